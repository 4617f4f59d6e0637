// internal/domain/notify/notification.go

package notify

import (
	"context"
	"time"
)

// PostSnapshot is the denormalized post state embedded in a notification, so
// the notification stays readable after the post mutates or disappears.
type PostSnapshot struct {
	ID          string   `json:"id"`
	Title       string   `json:"title"`
	Description string   `json:"description"`
	Price       float64  `json:"price"`
	CreatorID   string   `json:"creator_id"`
	MaxPeople   int      `json:"max_people"`
	MemberIDs   []string `json:"member_ids"`
}

// Notification is the durable, offline-safe record of a state change that
// targeted a specific user.
type Notification struct {
	ID           string       `json:"id"`
	TargetUserID string       `json:"target_user_id"`
	Message      string       `json:"message"`
	Post         PostSnapshot `json:"post"`
	IsRead       bool         `json:"is_read"`
	CreatedAt    time.Time    `json:"created_at"`
}

// Store persists notifications. Creation happens inside the post transaction
// (the post store receives the rows); this standalone method serves callers
// outside that boundary.
type Store interface {
	CreateNotification(ctx context.Context, n Notification) error
}
