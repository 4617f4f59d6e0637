// internal/server/handlers/websocket.go

package handlers

import (
	"encoding/json"
	"log"
	"net/http"
	"time"

	"github.com/gorilla/websocket"

	domain "shareboard/internal/domain/realtime"
	"shareboard/internal/service/realtime"
)

// WebSocketConfig contains configuration for WebSocket connections
type WebSocketConfig struct {
	// Time allowed to read the next pong message from the peer
	PongWait time.Duration

	// Maximum message size allowed from peer
	MaxMessageSize int64
}

// DefaultWebSocketConfig returns the default WebSocket configuration
func DefaultWebSocketConfig() WebSocketConfig {
	return WebSocketConfig{
		PongWait:       60 * time.Second,
		MaxMessageSize: 64 * 1024,
	}
}

// WebSocketUpgrader is used to upgrade HTTP connections to WebSocket
var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(r *http.Request) bool {
		// In production, this should be more restrictive
		return true
	},
}

// PostEventsHandler serves the post-events channel. Connected clients
// receive every post transition (self or public variant) and may join
// per-post groups for transient relay messages.
func PostEventsHandler(hub *realtime.Hub) http.HandlerFunc {
	return channelHandler(hub, domain.ChannelPostEvents, true)
}

// NotificationEventsHandler serves the notification-events channel, where
// targeted users receive their notifications live.
func NotificationEventsHandler(hub *realtime.Hub) http.HandlerFunc {
	return channelHandler(hub, domain.ChannelNotificationEvents, false)
}

func channelHandler(hub *realtime.Hub, channel string, groups bool) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		userID := r.Header.Get("X-User-ID")
		if userID == "" {
			userID = r.URL.Query().Get("user_id")
		}
		if userID == "" {
			http.Error(w, "Missing user ID", http.StatusBadRequest)
			return
		}

		ws, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			log.Printf("Failed to upgrade to WebSocket: %v", err)
			return
		}

		conn := realtime.NewConn(userID, ws)
		conn.Start()
		hub.Attach(conn, channel, r.RemoteAddr)

		log.Printf("New %s connection %s for user %s", channel, conn.ID, userID)

		go readPump(hub, conn, ws, groups)
	}
}

// inboundMessage is what clients may send upstream on the post channel.
type inboundMessage struct {
	Type   string          `json:"type"`
	PostID string          `json:"post_id"`
	Body   json.RawMessage `json:"body"`
}

// relayMessage is the transient group payload; it is never persisted.
type relayMessage struct {
	PostID string          `json:"post_id"`
	UserID string          `json:"user_id"`
	Body   json.RawMessage `json:"body"`
	Time   time.Time       `json:"time"`
}

func postGroup(postID string) string { return "post:" + postID }

// readPump consumes client frames until the connection drops, then detaches
// it from the hub (and so from the registry).
func readPump(hub *realtime.Hub, conn *realtime.Conn, ws *websocket.Conn, groups bool) {
	config := DefaultWebSocketConfig()

	defer func() {
		hub.Detach(conn.ID)
		conn.Close(websocket.CloseNormalClosure, "")
		log.Printf("Connection %s closed for user %s", conn.ID, conn.UserID)
	}()

	ws.SetReadLimit(config.MaxMessageSize)
	ws.SetReadDeadline(time.Now().Add(config.PongWait))
	ws.SetPongHandler(func(string) error {
		ws.SetReadDeadline(time.Now().Add(config.PongWait))
		return nil
	})

	for {
		_, message, err := ws.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				log.Printf("WebSocket error: %v", err)
			}
			return
		}
		if !groups {
			continue
		}

		var msg inboundMessage
		if err := json.Unmarshal(message, &msg); err != nil {
			log.Printf("Failed to parse WebSocket message: %v", err)
			continue
		}
		if msg.PostID == "" {
			continue
		}

		switch msg.Type {
		case "join_group":
			hub.JoinGroup(conn.ID, postGroup(msg.PostID))
		case "leave_group":
			hub.LeaveGroup(conn.ID, postGroup(msg.PostID))
		case "relay":
			payload := relayMessage{
				PostID: msg.PostID,
				UserID: conn.UserID,
				Body:   msg.Body,
				Time:   time.Now(),
			}
			hub.SendToGroup(postGroup(msg.PostID), []string{conn.ID}, "post.relay", payload)
		default:
			log.Printf("Unknown message type: %s", msg.Type)
		}
	}
}
