// internal/domain/post/transitions.go

package post

import (
	"time"

	"shareboard/internal/fault"
)

// The methods in this file are the pure membership state machine. They mutate
// the receiver in place and return the typed outcome; callers work on a Clone
// of the loaded aggregate and persist it only when the transition succeeds.

// Update carries the optional field changes applied by the creator. Nil
// pointers leave the field untouched.
type Update struct {
	Title           *string
	Description     *string
	Price           *float64
	Latitude        *float64
	Longitude       *float64
	MaxPeople       *int
	MembersToRemove []string
}

// Join adds actor as a member.
func (p *Post) Join(actor string, now time.Time) error {
	if p.IsCreator(actor) {
		return fault.Conflict(fault.ReasonIsCreator, "creator cannot join their own post")
	}
	if p.IsMember(actor) {
		return fault.Conflict(fault.ReasonAlreadyMember, "user %s already joined post %s", actor, p.ID)
	}
	if p.IsFull() {
		return fault.Conflict(fault.ReasonCapacityFull, "post %s is full", p.ID)
	}
	p.Members = append(p.Members, Member{UserID: actor, JoinedAt: now})
	p.UpdatedAt = now
	return nil
}

// LeaveResult describes what a Leave transition did to the aggregate.
type LeaveResult struct {
	// Deleted is true when the creator left an empty post; the post no
	// longer exists and must be removed from storage.
	Deleted bool
	// PromotedUserID is the successor owner when the creator left a post
	// that still had members, "" otherwise.
	PromotedUserID string
}

// Leave removes actor from the post. A plain member is simply removed. When
// the creator leaves, ownership passes to the earliest-joined member (ties
// broken by lowest user id); if no members remain the post is deleted.
func (p *Post) Leave(actor string, now time.Time) (LeaveResult, error) {
	if p.IsCreator(actor) {
		if len(p.Members) == 0 {
			return LeaveResult{Deleted: true}, nil
		}
		successor := p.Members[0]
		p.CreatorID = successor.UserID
		p.removeMemberAt(0)
		p.UpdatedAt = now
		return LeaveResult{PromotedUserID: successor.UserID}, nil
	}

	i := p.memberIndex(actor)
	if i < 0 {
		return LeaveResult{}, fault.Conflict(fault.ReasonNotAParticipant, "user %s is not a participant of post %s", actor, p.ID)
	}
	p.removeMemberAt(i)
	p.UpdatedAt = now
	return LeaveResult{}, nil
}

// TransferOwnership hands the post to target, who must be a current member.
// The new owner leaves the member set, so the creator/member roles stay
// exclusive.
func (p *Post) TransferOwnership(actor, target string, now time.Time) error {
	if !p.IsCreator(actor) {
		return fault.Forbidden("only the creator of post %s may transfer ownership", p.ID)
	}
	i := p.memberIndex(target)
	if i < 0 {
		return fault.Conflict(fault.ReasonTargetNotMember, "user %s is not a member of post %s", target, p.ID)
	}
	p.CreatorID = target
	p.removeMemberAt(i)
	p.UpdatedAt = now
	return nil
}

// ApplyUpdate applies field changes and member removals. It returns the ids
// actually removed (ids that were not members are ignored; the creator cannot
// be removed through this path).
func (p *Post) ApplyUpdate(actor string, upd Update, now time.Time) ([]string, error) {
	if !p.IsCreator(actor) {
		return nil, fault.Forbidden("only the creator of post %s may update it", p.ID)
	}

	var removed []string
	for _, id := range upd.MembersToRemove {
		if id == p.CreatorID {
			continue
		}
		if i := p.memberIndex(id); i >= 0 {
			p.removeMemberAt(i)
			removed = append(removed, id)
		}
	}

	if upd.MaxPeople != nil {
		if *upd.MaxPeople < 1 {
			return nil, fault.Validation("max_people must be at least 1")
		}
		if *upd.MaxPeople < len(p.Members) {
			return nil, fault.Conflict(fault.ReasonCapacityBelowMembers,
				"post %s has %d members, cannot reduce capacity to %d", p.ID, len(p.Members), *upd.MaxPeople)
		}
		p.MaxPeople = *upd.MaxPeople
	}
	if upd.Title != nil {
		p.Title = *upd.Title
	}
	if upd.Description != nil {
		p.Description = *upd.Description
	}
	if upd.Price != nil {
		p.Price = *upd.Price
	}
	if upd.Latitude != nil {
		p.Latitude = *upd.Latitude
	}
	if upd.Longitude != nil {
		p.Longitude = *upd.Longitude
	}
	p.UpdatedAt = now
	return removed, nil
}

// AuthorizeDelete checks that actor may delete the post.
func (p *Post) AuthorizeDelete(actor string) error {
	if !p.IsCreator(actor) {
		return fault.Forbidden("only the creator of post %s may delete it", p.ID)
	}
	return nil
}
