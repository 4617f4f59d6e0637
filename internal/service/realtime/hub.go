// internal/service/realtime/hub.go

package realtime

import (
	"encoding/json"
	"fmt"
	"log"
	"sync"
	"time"

	"github.com/nats-io/nats.go"

	"shareboard/internal/domain/realtime"
)

// HubConfig contains configuration for the hub.
type HubConfig struct {
	// SubjectPrefix namespaces the push subjects on the bus.
	SubjectPrefix string
}

// Hub implements the push channel. Sends are published to NATS and every
// instance delivers to the websocket connections it owns, so fan-out works
// across instances while exclusion stays by connection id (ids are unique per
// session, an instance that doesn't own an excluded id simply doesn't have
// it). Without a bus (tests, single process) frames are delivered in-process.
type Hub struct {
	registry *Registry
	bus      *nats.Conn
	config   HubConfig

	mu    sync.RWMutex
	local map[string]*Conn
	subs  []*nats.Subscription
}

// frame is the wire shape of one push on the bus.
type frame struct {
	Event      string          `json:"event"`
	Payload    json.RawMessage `json:"payload"`
	Channel    string          `json:"channel,omitempty"`
	Group      string          `json:"group,omitempty"`
	TargetIDs  []string        `json:"target_ids,omitempty"`
	ExcludeIDs []string        `json:"exclude_ids,omitempty"`
}

// clientMessage is what a websocket client receives.
type clientMessage struct {
	Event string          `json:"event"`
	Data  json.RawMessage `json:"data"`
	Time  time.Time       `json:"time"`
}

// NewHub creates a hub over the given registry. bus may be nil.
func NewHub(registry *Registry, bus *nats.Conn, config HubConfig) *Hub {
	if config.SubjectPrefix == "" {
		config.SubjectPrefix = "push"
	}
	return &Hub{
		registry: registry,
		bus:      bus,
		config:   config,
		local:    make(map[string]*Conn),
	}
}

var _ realtime.Pusher = (*Hub)(nil)

// Start subscribes the hub to the push subjects.
func (h *Hub) Start() error {
	if h.bus == nil {
		return nil
	}
	for _, kind := range []string{"direct", "broadcast", "group"} {
		sub, err := h.bus.Subscribe(h.subject(kind), func(msg *nats.Msg) {
			var f frame
			if err := json.Unmarshal(msg.Data, &f); err != nil {
				log.Printf("hub: bad push frame: %v", err)
				return
			}
			h.deliver(f)
		})
		if err != nil {
			return fmt.Errorf("subscribing to %s: %w", h.subject(kind), err)
		}
		h.subs = append(h.subs, sub)
	}
	return nil
}

// Stop drops the bus subscriptions.
func (h *Hub) Stop() {
	for _, sub := range h.subs {
		_ = sub.Unsubscribe()
	}
	h.subs = nil
}

// Attach registers a websocket connection on a channel and starts delivering
// to it.
func (h *Hub) Attach(conn *Conn, channel, remoteAddress string) {
	h.mu.Lock()
	h.local[conn.ID] = conn
	h.mu.Unlock()

	h.registry.Register(realtime.Connection{
		ID:            conn.ID,
		UserID:        conn.UserID,
		Channel:       channel,
		RemoteAddress: remoteAddress,
		ConnectedAt:   time.Now(),
	})
}

// Detach unregisters a connection; safe to call more than once.
func (h *Hub) Detach(connectionID string) {
	h.mu.Lock()
	delete(h.local, connectionID)
	h.mu.Unlock()

	h.registry.Unregister(connectionID)
}

// JoinGroup adds a connection to a per-post group.
func (h *Hub) JoinGroup(connectionID, groupID string) {
	h.registry.JoinGroup(connectionID, groupID)
}

// LeaveGroup removes a connection from a per-post group.
func (h *Hub) LeaveGroup(connectionID, groupID string) {
	h.registry.LeaveGroup(connectionID, groupID)
}

// SendToConnections pushes an event to specific connections.
func (h *Hub) SendToConnections(connectionIDs []string, event string, payload interface{}) {
	if len(connectionIDs) == 0 {
		return
	}
	h.publish("direct", frame{Event: event, Payload: mustJSON(payload), TargetIDs: connectionIDs})
}

// SendToAllExcept pushes an event to every connection on a channel except the
// excluded ids.
func (h *Hub) SendToAllExcept(channel string, excludeConnectionIDs []string, event string, payload interface{}) {
	h.publish("broadcast", frame{Event: event, Payload: mustJSON(payload), Channel: channel, ExcludeIDs: excludeConnectionIDs})
}

// SendToGroup pushes an event to a group, minus the excluded ids.
func (h *Hub) SendToGroup(groupID string, excludeConnectionIDs []string, event string, payload interface{}) {
	h.publish("group", frame{Event: event, Payload: mustJSON(payload), Group: groupID, ExcludeIDs: excludeConnectionIDs})
}

func (h *Hub) subject(kind string) string {
	return h.config.SubjectPrefix + "." + kind
}

func (h *Hub) publish(kind string, f frame) {
	if h.bus == nil {
		h.deliver(f)
		return
	}
	data, err := json.Marshal(f)
	if err != nil {
		log.Printf("hub: marshaling push frame: %v", err)
		return
	}
	if err := h.bus.Publish(h.subject(kind), data); err != nil {
		log.Printf("hub: publishing %s push: %v", kind, err)
	}
}

// deliver writes a frame to the locally-owned connections it addresses.
func (h *Hub) deliver(f frame) {
	var targets []string
	switch {
	case len(f.TargetIDs) > 0:
		targets = f.TargetIDs
	case f.Group != "":
		targets = h.registry.GroupConnections(f.Group)
	default:
		targets = h.registry.ConnectionsOn(f.Channel)
	}

	excluded := make(map[string]struct{}, len(f.ExcludeIDs))
	for _, id := range f.ExcludeIDs {
		excluded[id] = struct{}{}
	}

	msg, err := json.Marshal(clientMessage{Event: f.Event, Data: f.Payload, Time: time.Now()})
	if err != nil {
		log.Printf("hub: marshaling client message: %v", err)
		return
	}

	h.mu.RLock()
	conns := make([]*Conn, 0, len(targets))
	for _, id := range targets {
		if _, skip := excluded[id]; skip {
			continue
		}
		if c, ok := h.local[id]; ok {
			conns = append(conns, c)
		}
	}
	h.mu.RUnlock()

	for _, c := range conns {
		if err := c.Send(msg); err != nil {
			log.Printf("hub: delivering %s to connection %s: %v", f.Event, c.ID, err)
		}
	}
}

func mustJSON(v interface{}) json.RawMessage {
	data, err := json.Marshal(v)
	if err != nil {
		log.Printf("hub: marshaling payload: %v", err)
		return json.RawMessage("null")
	}
	return data
}
