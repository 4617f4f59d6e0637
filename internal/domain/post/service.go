// internal/domain/post/service.go

package post

import (
	"context"
	"errors"
	"time"

	"shareboard/internal/domain/notify"
)

// ErrVersionConflict is returned by Store.SavePost/DeletePost when another
// writer committed first; the service retries from a fresh load.
var ErrVersionConflict = errors.New("post version conflict")

// CreateInput carries the fields for a new post. Field validation happens at
// the entry adapters; the state machine assumes a well-formed input.
type CreateInput struct {
	Title       string
	Description string
	Price       float64
	Latitude    float64
	Longitude   float64
	MaxPeople   int
	CreatedAt   time.Time
}

// Service is the membership state machine contract. Both entry adapters (the
// REST handlers and the queue consumer) funnel into one implementation.
type Service interface {
	// Create makes a new active post owned by actor.
	Create(ctx context.Context, actor string, in CreateInput) (*Post, error)

	// Get returns a post by id.
	Get(ctx context.Context, id string) (*Post, error)

	// Search returns posts matching the filter; no match is an empty
	// slice, not an error.
	Search(ctx context.Context, filter Filter) ([]Post, error)

	// Join adds actor as a member of the post.
	Join(ctx context.Context, postID, actor string) (*Post, error)

	// Leave removes actor; the creator leaving promotes a successor or,
	// with no members left, deletes the post (nil snapshot).
	Leave(ctx context.Context, postID, actor string) (*Post, error)

	// TransferOwnership hands the post from actor to target.
	TransferOwnership(ctx context.Context, postID, actor, target string) (*Post, error)

	// Update applies field changes and member removals by the creator.
	Update(ctx context.Context, postID, actor string, upd Update) (*Post, error)

	// Delete removes the post; creator only.
	Delete(ctx context.Context, postID, actor string) error
}

// Store is the persistence gateway for post aggregates. Save and Delete must
// reject concurrent versions so two joins racing the last slot cannot both
// commit, and must persist the given notifications in the same transaction as
// the state change.
type Store interface {
	// CreatePost inserts a new aggregate at version 1.
	CreatePost(ctx context.Context, p *Post) error

	// GetPost loads an aggregate, members in canonical order.
	GetPost(ctx context.Context, id string) (*Post, error)

	// SavePost writes the aggregate if the stored version still matches
	// p.Version, bumping it; otherwise it fails with a version conflict
	// the caller retries on.
	SavePost(ctx context.Context, p *Post, notes []notify.Notification) error

	// DeletePost removes the aggregate under the same version check.
	DeletePost(ctx context.Context, id string, version int64, notes []notify.Notification) error

	// FindPosts returns posts matching the filter.
	FindPosts(ctx context.Context, filter Filter) ([]Post, error)
}
