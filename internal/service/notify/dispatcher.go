// internal/service/notify/dispatcher.go

package notify

import (
	"context"
	"log"

	"shareboard/internal/domain/post"
	"shareboard/internal/domain/realtime"
)

// EventNotificationCreated is pushed on the notification channel to users a
// transition targeted, alongside the durable row already committed.
const EventNotificationCreated = "notification.created"

// PostEventPayload is the wire shape of a post event. Self marks the variant
// delivered to the acting user's own connections.
type PostEventPayload struct {
	Self   bool       `json:"self"`
	PostID string     `json:"post_id"`
	Post   *post.Post `json:"post,omitempty"`
}

// Dispatcher fans a committed transition out to connected clients: the actor
// receives the self variant on their own connections, everyone else on the
// post channel receives the public variant through a broadcast that excludes
// the actor's connection ids, and targeted users get their notification
// pushed on the notification channel. The durable rows are already committed
// by the time Dispatch runs, so every failure here is logged and swallowed.
type Dispatcher struct {
	registry realtime.Registry
	pusher   realtime.Pusher
}

// NewDispatcher creates a new fan-out dispatcher.
func NewDispatcher(registry realtime.Registry, pusher realtime.Pusher) *Dispatcher {
	return &Dispatcher{
		registry: registry,
		pusher:   pusher,
	}
}

// Dispatch delivers ev to its audiences. The exclusion set is looked up at
// dispatch time, not cached, so a reconnecting actor is excluded under its
// current connection ids.
func (d *Dispatcher) Dispatch(ctx context.Context, ev post.Event) {
	payload := PostEventPayload{PostID: ev.PostID, Post: ev.Post}
	selfPayload := payload
	selfPayload.Self = true

	actorConns := d.registry.ConnectionsOf(ev.ActorID, realtime.ChannelPostEvents)

	if len(actorConns) > 0 {
		d.pusher.SendToConnections(actorConns, string(ev.Type), selfPayload)
	}
	d.pusher.SendToAllExcept(realtime.ChannelPostEvents, actorConns, string(ev.Type), payload)

	// Best-effort live copy of the durable notifications. Offline targets
	// catch up from the rows committed with the transition.
	for _, n := range ev.Notifications {
		conns := d.registry.ConnectionsOf(n.TargetUserID, realtime.ChannelNotificationEvents)
		if len(conns) == 0 {
			log.Printf("dispatch: user %s offline for notification %s (durable row committed)", n.TargetUserID, n.ID)
			continue
		}
		d.pusher.SendToConnections(conns, EventNotificationCreated, n)
	}
}
