// internal/service/post/service.go

package post

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/singleflight"

	"shareboard/internal/domain/notify"
	"shareboard/internal/domain/post"
	"shareboard/internal/fault"
)

// Dispatcher receives the transition event strictly after the transaction
// committed. It must never fail the triggering operation.
type Dispatcher interface {
	Dispatch(ctx context.Context, ev post.Event)
}

// ServiceConfig contains configuration for the post service.
type ServiceConfig struct {
	// MaxSaveAttempts bounds the optimistic-concurrency retry loop.
	MaxSaveAttempts int
}

// Service implements the post.Service state machine over the persistence
// gateway. Every mutating operation runs load -> apply -> save, retrying on
// version conflicts so concurrent mutations of one aggregate serialize.
type Service struct {
	store      post.Store
	dispatcher Dispatcher
	config     ServiceConfig
	reads      singleflight.Group
	now        func() time.Time
}

// NewService creates a new post service.
func NewService(store post.Store, dispatcher Dispatcher, config ServiceConfig) *Service {
	if config.MaxSaveAttempts <= 0 {
		config.MaxSaveAttempts = 10
	}
	return &Service{
		store:      store,
		dispatcher: dispatcher,
		config:     config,
		now:        time.Now,
	}
}

var _ post.Service = (*Service)(nil)

// Create makes a new active post owned by actor.
func (s *Service) Create(ctx context.Context, actor string, in post.CreateInput) (*post.Post, error) {
	now := in.CreatedAt
	if now.IsZero() {
		now = s.now()
	}

	p := &post.Post{
		ID:          uuid.New().String(),
		Title:       in.Title,
		Description: in.Description,
		Price:       in.Price,
		Latitude:    in.Latitude,
		Longitude:   in.Longitude,
		MaxPeople:   in.MaxPeople,
		CreatorID:   actor,
		CreatedAt:   now,
		UpdatedAt:   now,
	}

	if err := s.store.CreatePost(ctx, p); err != nil {
		return nil, fault.Internal(err, "creating post")
	}

	s.dispatcher.Dispatch(ctx, post.Event{
		Type:       post.EventCreated,
		PostID:     p.ID,
		ActorID:    actor,
		Post:       p,
		OccurredAt: now,
	})
	return p, nil
}

// Get returns a post by id. Concurrent reads of the same id are coalesced
// into one gateway load.
func (s *Service) Get(ctx context.Context, id string) (*post.Post, error) {
	v, err, _ := s.reads.Do(id, func() (interface{}, error) {
		return s.store.GetPost(ctx, id)
	})
	if err != nil {
		return nil, err
	}
	// Hand each caller its own copy; coalesced results are shared.
	return v.(*post.Post).Clone(), nil
}

// Search returns posts matching the filter; zero matches is an empty slice.
func (s *Service) Search(ctx context.Context, filter post.Filter) ([]post.Post, error) {
	posts, err := s.store.FindPosts(ctx, filter)
	if err != nil {
		return nil, fault.Internal(err, "searching posts")
	}
	if posts == nil {
		posts = []post.Post{}
	}
	return posts, nil
}

// Join adds actor as a member of the post.
func (s *Service) Join(ctx context.Context, postID, actor string) (*post.Post, error) {
	return s.mutate(ctx, postID, func(p *post.Post, now time.Time) (*post.Event, error) {
		if err := p.Join(actor, now); err != nil {
			return nil, err
		}
		return &post.Event{Type: post.EventJoined, ActorID: actor}, nil
	})
}

// Leave removes actor from the post. The creator leaving an empty post
// deletes it (nil snapshot); otherwise ownership passes to the
// earliest-joined member.
func (s *Service) Leave(ctx context.Context, postID, actor string) (*post.Post, error) {
	return s.mutate(ctx, postID, func(p *post.Post, now time.Time) (*post.Event, error) {
		res, err := p.Leave(actor, now)
		if err != nil {
			return nil, err
		}
		if res.Deleted {
			return &post.Event{Type: post.EventDeleted, ActorID: actor}, nil
		}
		ev := &post.Event{Type: post.EventLeft, ActorID: actor, NewOwnerID: res.PromotedUserID}
		if res.PromotedUserID != "" {
			ev.Notifications = []notify.Notification{
				s.notification(res.PromotedUserID, fmt.Sprintf("You are now the owner of %q", p.Title), p, now),
			}
		}
		return ev, nil
	})
}

// TransferOwnership hands the post from actor to target.
func (s *Service) TransferOwnership(ctx context.Context, postID, actor, target string) (*post.Post, error) {
	return s.mutate(ctx, postID, func(p *post.Post, now time.Time) (*post.Event, error) {
		if err := p.TransferOwnership(actor, target, now); err != nil {
			return nil, err
		}
		return &post.Event{
			Type:       post.EventOwnershipTransferred,
			ActorID:    actor,
			NewOwnerID: target,
			Notifications: []notify.Notification{
				s.notification(target, fmt.Sprintf("You are now the owner of %q", p.Title), p, now),
			},
		}, nil
	})
}

// Update applies field changes and member removals by the creator.
func (s *Service) Update(ctx context.Context, postID, actor string, upd post.Update) (*post.Post, error) {
	return s.mutate(ctx, postID, func(p *post.Post, now time.Time) (*post.Event, error) {
		removed, err := p.ApplyUpdate(actor, upd, now)
		if err != nil {
			return nil, err
		}
		ev := &post.Event{Type: post.EventUpdated, ActorID: actor, RemovedIDs: removed}
		for _, id := range removed {
			ev.Notifications = append(ev.Notifications,
				s.notification(id, fmt.Sprintf("You were removed from %q", p.Title), p, now))
		}
		return ev, nil
	})
}

// Delete removes the post; creator only.
func (s *Service) Delete(ctx context.Context, postID, actor string) error {
	_, err := s.mutate(ctx, postID, func(p *post.Post, now time.Time) (*post.Event, error) {
		if err := p.AuthorizeDelete(actor); err != nil {
			return nil, err
		}
		return &post.Event{Type: post.EventDeleted, ActorID: actor}, nil
	})
	return err
}

// mutate runs one transition under the optimistic-concurrency loop: load the
// aggregate, apply the transition to a copy, persist copy plus notifications
// atomically, and retry from a fresh load when another writer got there
// first. The dispatcher only sees the event once the transaction committed.
func (s *Service) mutate(
	ctx context.Context,
	postID string,
	apply func(p *post.Post, now time.Time) (*post.Event, error),
) (*post.Post, error) {
	for attempt := 0; attempt < s.config.MaxSaveAttempts; attempt++ {
		if err := ctx.Err(); err != nil {
			return nil, fault.Internal(err, "mutating post %s", postID)
		}

		loaded, err := s.store.GetPost(ctx, postID)
		if err != nil {
			return nil, err
		}

		now := s.now()
		p := loaded.Clone()
		ev, err := apply(p, now)
		if err != nil {
			return nil, err
		}
		ev.PostID = postID
		ev.OccurredAt = now

		if ev.Type == post.EventDeleted {
			err = s.store.DeletePost(ctx, postID, p.Version, ev.Notifications)
		} else {
			err = s.store.SavePost(ctx, p, ev.Notifications)
			ev.Post = p
		}
		if errors.Is(err, post.ErrVersionConflict) {
			continue
		}
		if err != nil {
			return nil, fault.Internal(err, "saving post %s", postID)
		}

		s.dispatcher.Dispatch(ctx, *ev)
		if ev.Type == post.EventDeleted {
			return nil, nil
		}
		return p, nil
	}
	return nil, fault.Internal(post.ErrVersionConflict, "post %s contended beyond %d attempts", postID, s.config.MaxSaveAttempts)
}

func (s *Service) notification(target, message string, p *post.Post, now time.Time) notify.Notification {
	return notify.Notification{
		ID:           uuid.New().String(),
		TargetUserID: target,
		Message:      message,
		Post:         post.Snapshot(p),
		CreatedAt:    now,
	}
}
