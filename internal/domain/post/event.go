// internal/domain/post/event.go

package post

import (
	"time"

	"shareboard/internal/domain/notify"
)

// EventType identifies a completed state transition.
type EventType string

const (
	EventCreated              EventType = "post.created"
	EventJoined               EventType = "post.joined"
	EventLeft                 EventType = "post.left"
	EventUpdated              EventType = "post.updated"
	EventDeleted              EventType = "post.deleted"
	EventOwnershipTransferred EventType = "post.ownership_transferred"
)

// Event is the typed result of a successful mutating operation, handed to the
// fan-out dispatcher after the transaction commits. Post is the snapshot after
// the transition (nil for deletions, which only carry PostID).
type Event struct {
	Type       EventType
	PostID     string
	ActorID    string
	Post       *Post
	NewOwnerID string   // set for ownership transfer and creator-leave promotion
	RemovedIDs []string // members removed through an update
	OccurredAt time.Time

	// Notifications are the durable rows written in the same transaction
	// as the transition, for the users the transition targeted. The
	// dispatcher additionally pushes them to any live connections.
	Notifications []notify.Notification
}

// Snapshot converts a post to the denormalized shape embedded in
// notifications.
func Snapshot(p *Post) notify.PostSnapshot {
	return notify.PostSnapshot{
		ID:          p.ID,
		Title:       p.Title,
		Description: p.Description,
		Price:       p.Price,
		CreatorID:   p.CreatorID,
		MaxPeople:   p.MaxPeople,
		MemberIDs:   p.MemberIDs(),
	}
}
