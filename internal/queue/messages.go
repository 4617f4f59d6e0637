// internal/queue/messages.go

package queue

import (
	"encoding/json"
	"time"
)

// Request is the envelope of a queued operation. Every request carries the
// actor identity and a correlation id echoed back in the response; the
// remaining fields depend on the operation subject.
type Request struct {
	CorrelationID string `json:"correlation_id"`
	ActorID       string `json:"actor_id"`

	// Create / Update fields. Update treats nil as "leave unchanged".
	Title       *string  `json:"title,omitempty"`
	Description *string  `json:"description,omitempty"`
	Price       *float64 `json:"price,omitempty"`
	Latitude    *float64 `json:"latitude,omitempty"`
	Longitude   *float64 `json:"longitude,omitempty"`
	MaxPeople   *int     `json:"max_people,omitempty"`

	// Targeted operations.
	PostID          string   `json:"post_id,omitempty"`
	TargetUserID    string   `json:"target_user_id,omitempty"`
	RemoveMemberIDs []string `json:"remove_member_ids,omitempty"`

	// Search.
	Text          string    `json:"text,omitempty"`
	CreatedAfter  time.Time `json:"created_after,omitempty"`
	CreatedBefore time.Time `json:"created_before,omitempty"`
	HasMemberID   string    `json:"has_member_id,omitempty"`
	MaxPeopleMax  int       `json:"max_people_max,omitempty"`
	OnlyAvailable bool      `json:"only_available,omitempty"`
	Limit         int       `json:"limit,omitempty"`
	Offset        int       `json:"offset,omitempty"`
}

// Response is the uniform reply envelope, mirroring the REST status
// taxonomy.
type Response struct {
	Success       bool            `json:"success"`
	StatusCode    int             `json:"status_code"`
	Message       string          `json:"message,omitempty"`
	CorrelationID string          `json:"correlation_id,omitempty"`
	Data          json.RawMessage `json:"data,omitempty"`
}
