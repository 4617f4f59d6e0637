// internal/service/realtime/registry.go

package realtime

import (
	"context"
	"log"
	"sync"

	"shareboard/internal/domain/realtime"
)

// Registry is the in-memory connection registry. It is authoritative for
// exclusion sets and group membership; every Register/Unregister is also
// mirrored best-effort into the persistence gateway.
//
// State is derived purely from the sequence of calls received: Unregister of
// an unknown id leaves a tombstone so a Register arriving late (network
// reordering) is dropped instead of leaking a dead connection.
type Registry struct {
	mu     sync.RWMutex
	conns  map[string]realtime.Connection
	byUser map[string]map[string]struct{} // userID+channel -> conn ids
	groups map[string]map[string]struct{} // groupID -> conn ids
	byConn map[string]map[string]struct{} // connID -> group ids
	dead   map[string]struct{}            // tombstones for reordered disconnects

	store realtime.ConnectionStore // optional mirror
}

// NewRegistry creates a registry. store may be nil in tests.
func NewRegistry(store realtime.ConnectionStore) *Registry {
	return &Registry{
		conns:  make(map[string]realtime.Connection),
		byUser: make(map[string]map[string]struct{}),
		groups: make(map[string]map[string]struct{}),
		byConn: make(map[string]map[string]struct{}),
		dead:   make(map[string]struct{}),
		store:  store,
	}
}

var _ realtime.Registry = (*Registry)(nil)

func userKey(userID, channel string) string { return userID + "\x00" + channel }

// Register records a live connection.
func (r *Registry) Register(conn realtime.Connection) {
	r.mu.Lock()
	if _, gone := r.dead[conn.ID]; gone {
		r.mu.Unlock()
		log.Printf("registry: dropping register of %s, disconnect already seen", conn.ID)
		return
	}
	r.conns[conn.ID] = conn
	key := userKey(conn.UserID, conn.Channel)
	if r.byUser[key] == nil {
		r.byUser[key] = make(map[string]struct{})
	}
	r.byUser[key][conn.ID] = struct{}{}
	r.mu.Unlock()

	if r.store != nil {
		if err := r.store.SaveConnection(context.Background(), conn); err != nil {
			log.Printf("registry: mirroring connection %s: %v", conn.ID, err)
		}
	}
}

// Unregister removes a connection. Unregistering an absent id is a no-op
// beyond the tombstone; it is logged, not an error.
func (r *Registry) Unregister(connectionID string) {
	r.mu.Lock()
	conn, ok := r.conns[connectionID]
	r.dead[connectionID] = struct{}{}
	if ok {
		delete(r.conns, connectionID)
		key := userKey(conn.UserID, conn.Channel)
		if set := r.byUser[key]; set != nil {
			delete(set, connectionID)
			if len(set) == 0 {
				delete(r.byUser, key)
			}
		}
		for groupID := range r.byConn[connectionID] {
			if set := r.groups[groupID]; set != nil {
				delete(set, connectionID)
				if len(set) == 0 {
					delete(r.groups, groupID)
				}
			}
		}
		delete(r.byConn, connectionID)
	}
	r.mu.Unlock()

	if !ok {
		log.Printf("registry: unregister of unknown connection %s", connectionID)
	}
	if r.store != nil {
		if err := r.store.DeleteConnection(context.Background(), connectionID); err != nil {
			log.Printf("registry: removing mirrored connection %s: %v", connectionID, err)
		}
	}
}

// ConnectionsOf returns the live connection ids of a user on a channel.
func (r *Registry) ConnectionsOf(userID, channel string) []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	set := r.byUser[userKey(userID, channel)]
	ids := make([]string, 0, len(set))
	for id := range set {
		ids = append(ids, id)
	}
	return ids
}

// ConnectionsOn returns all live connection ids on a channel.
func (r *Registry) ConnectionsOn(channel string) []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var ids []string
	for id, conn := range r.conns {
		if conn.Channel == channel {
			ids = append(ids, id)
		}
	}
	return ids
}

// JoinGroup adds a live connection to a group. Unknown connections are
// ignored.
func (r *Registry) JoinGroup(connectionID, groupID string) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.conns[connectionID]; !ok {
		return
	}
	if r.groups[groupID] == nil {
		r.groups[groupID] = make(map[string]struct{})
	}
	r.groups[groupID][connectionID] = struct{}{}
	if r.byConn[connectionID] == nil {
		r.byConn[connectionID] = make(map[string]struct{})
	}
	r.byConn[connectionID][groupID] = struct{}{}
}

// LeaveGroup removes a connection from a group; idempotent.
func (r *Registry) LeaveGroup(connectionID, groupID string) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if set := r.groups[groupID]; set != nil {
		delete(set, connectionID)
		if len(set) == 0 {
			delete(r.groups, groupID)
		}
	}
	if set := r.byConn[connectionID]; set != nil {
		delete(set, groupID)
		if len(set) == 0 {
			delete(r.byConn, connectionID)
		}
	}
}

// GroupConnections returns the connection ids currently in a group.
func (r *Registry) GroupConnections(groupID string) []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	set := r.groups[groupID]
	ids := make([]string, 0, len(set))
	for id := range set {
		ids = append(ids, id)
	}
	return ids
}
