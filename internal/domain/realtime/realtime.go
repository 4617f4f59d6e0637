// internal/domain/realtime/realtime.go

package realtime

import (
	"context"
	"time"
)

// Logical push channels. A user may hold connections on several channels and
// several connections per channel (multi-device).
const (
	ChannelPostEvents         = "post-events"
	ChannelNotificationEvents = "notification-events"
)

// Connection is the record of one live transport session.
type Connection struct {
	ID            string    `json:"id"`
	UserID        string    `json:"user_id"`
	Channel       string    `json:"channel"`
	RemoteAddress string    `json:"remote_address"`
	ConnectedAt   time.Time `json:"connected_at"`
}

// Registry tracks live connections. Unregister is idempotent, and the
// registry tolerates a disconnect arriving before its matching connect:
// state is derived solely from the sequence of calls received.
type Registry interface {
	Register(conn Connection)
	Unregister(connectionID string)
	ConnectionsOf(userID, channel string) []string
	JoinGroup(connectionID, groupID string)
	LeaveGroup(connectionID, groupID string)
}

// Pusher is the push channel the dispatcher delivers through. Delivery is
// fire-and-forget: failures are logged by the implementation, never returned
// into the triggering operation.
type Pusher interface {
	SendToConnections(connectionIDs []string, event string, payload interface{})
	SendToAllExcept(channel string, excludeConnectionIDs []string, event string, payload interface{})
	SendToGroup(groupID string, excludeConnectionIDs []string, event string, payload interface{})
}

// ConnectionStore mirrors connection records into the persistence gateway.
// The in-memory registry stays authoritative; mirror failures only get logged.
type ConnectionStore interface {
	SaveConnection(ctx context.Context, c Connection) error
	DeleteConnection(ctx context.Context, connectionID string) error
}
