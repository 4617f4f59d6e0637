// internal/domain/post/model.go

package post

import (
	"sort"
	"time"
)

// Member is a user who joined a post. JoinedAt orders members so that
// successor selection on creator departure is deterministic.
type Member struct {
	UserID   string    `json:"user_id"`
	JoinedAt time.Time `json:"joined_at"`
}

// Post is a shared listing with a capacity, exactly one creator, and a set of
// joined members. The creator is never simultaneously a member, and
// len(Members) never exceeds MaxPeople.
type Post struct {
	ID          string    `json:"id"`
	Title       string    `json:"title"`
	Description string    `json:"description"`
	Price       float64   `json:"price"`
	Latitude    float64   `json:"latitude"`
	Longitude   float64   `json:"longitude"`
	MaxPeople   int       `json:"max_people"`
	CreatorID   string    `json:"creator_id"`
	Members     []Member  `json:"members"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`

	// Version is the optimistic-concurrency token maintained by the store.
	Version int64 `json:"-"`
}

// IsCreator reports whether userID owns this post.
func (p *Post) IsCreator(userID string) bool {
	return p.CreatorID == userID
}

// IsMember reports whether userID has joined this post.
func (p *Post) IsMember(userID string) bool {
	return p.memberIndex(userID) >= 0
}

// IsFull reports whether the post has no free member slots. The creator does
// not count toward capacity.
func (p *Post) IsFull() bool {
	return len(p.Members) >= p.MaxPeople
}

// MemberIDs returns the member user ids in join order.
func (p *Post) MemberIDs() []string {
	ids := make([]string, len(p.Members))
	for i, m := range p.Members {
		ids[i] = m.UserID
	}
	return ids
}

// Clone returns a deep copy, so a transition can be applied and discarded on
// a version conflict without touching the loaded aggregate.
func (p *Post) Clone() *Post {
	cp := *p
	cp.Members = make([]Member, len(p.Members))
	copy(cp.Members, p.Members)
	return &cp
}

func (p *Post) memberIndex(userID string) int {
	for i, m := range p.Members {
		if m.UserID == userID {
			return i
		}
	}
	return -1
}

func (p *Post) removeMemberAt(i int) {
	p.Members = append(p.Members[:i], p.Members[i+1:]...)
}

// sortMembers keeps members ordered by join time, ties broken by user id.
// Stores call this after loading so iteration order is stable everywhere.
func (p *Post) sortMembers() {
	sort.Slice(p.Members, func(i, j int) bool {
		a, b := p.Members[i], p.Members[j]
		if !a.JoinedAt.Equal(b.JoinedAt) {
			return a.JoinedAt.Before(b.JoinedAt)
		}
		return a.UserID < b.UserID
	})
}

// Normalize restores the canonical member ordering. Exposed for stores.
func (p *Post) Normalize() {
	p.sortMembers()
}

// Filter defines the search criteria for posts. Filters compose as a
// conjunction; an empty filter matches everything.
type Filter struct {
	Text          string    // matches title or description
	CreatedAfter  time.Time
	CreatedBefore time.Time
	HasMemberID   string // posts this user has joined
	MaxPeopleMax  int    // capacity ceiling, 0 means unbounded
	OnlyAvailable bool   // only posts with free member slots
	Limit         int
	Offset        int
}
