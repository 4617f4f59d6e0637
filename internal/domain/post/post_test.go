package post

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"shareboard/internal/fault"
)

func testPost(creator string, maxPeople int) *Post {
	now := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	return &Post{
		ID:        "post-1",
		Title:     "Ride to the coast",
		MaxPeople: maxPeople,
		CreatorID: creator,
		CreatedAt: now,
		UpdatedAt: now,
	}
}

func at(minute int) time.Time {
	return time.Date(2025, 6, 1, 12, minute, 0, 0, time.UTC)
}

func TestJoin_FillsUpToCapacity(t *testing.T) {
	p := testPost("userA", 2)

	require.NoError(t, p.Join("userB", at(1)))
	require.NoError(t, p.Join("userC", at(2)))
	require.Equal(t, []string{"userB", "userC"}, p.MemberIDs())

	err := p.Join("userD", at(3))
	require.Error(t, err)
	require.Equal(t, fault.KindConflict, fault.KindOf(err))
	require.Equal(t, fault.ReasonCapacityFull, fault.ReasonOf(err))
	require.Len(t, p.Members, 2)
}

func TestJoin_CreatorCannotJoin(t *testing.T) {
	p := testPost("userA", 3)

	err := p.Join("userA", at(1))
	require.Equal(t, fault.ReasonIsCreator, fault.ReasonOf(err))
	require.Empty(t, p.Members)
}

func TestJoin_DuplicateMember(t *testing.T) {
	p := testPost("userA", 3)
	require.NoError(t, p.Join("userB", at(1)))

	err := p.Join("userB", at(2))
	require.Equal(t, fault.ReasonAlreadyMember, fault.ReasonOf(err))
	require.Len(t, p.Members, 1)
}

func TestJoin_CreatorNotCountedTowardCapacity(t *testing.T) {
	p := testPost("userA", 1)

	// The only slot belongs to a member, not the creator.
	require.NoError(t, p.Join("userB", at(1)))
	require.True(t, p.IsFull())
}

func TestLeave_PlainMember(t *testing.T) {
	p := testPost("userA", 3)
	require.NoError(t, p.Join("userB", at(1)))
	require.NoError(t, p.Join("userC", at(2)))

	res, err := p.Leave("userB", at(3))
	require.NoError(t, err)
	require.False(t, res.Deleted)
	require.Empty(t, res.PromotedUserID)
	require.Equal(t, []string{"userC"}, p.MemberIDs())
	require.Equal(t, "userA", p.CreatorID)
}

func TestLeave_NotAParticipant(t *testing.T) {
	p := testPost("userA", 3)

	_, err := p.Leave("userZ", at(1))
	require.Equal(t, fault.ReasonNotAParticipant, fault.ReasonOf(err))
}

func TestLeave_CreatorWithNoMembersDeletesPost(t *testing.T) {
	p := testPost("userA", 3)

	res, err := p.Leave("userA", at(1))
	require.NoError(t, err)
	require.True(t, res.Deleted)
}

func TestLeave_CreatorPromotesEarliestJoinedMember(t *testing.T) {
	p := testPost("userA", 3)
	require.NoError(t, p.Join("userB", at(1)))
	require.NoError(t, p.Join("userC", at(2)))

	res, err := p.Leave("userA", at(3))
	require.NoError(t, err)
	require.False(t, res.Deleted)
	require.Equal(t, "userB", res.PromotedUserID)
	require.Equal(t, "userB", p.CreatorID)

	// The new owner is no longer a member: roles stay exclusive.
	require.Equal(t, []string{"userC"}, p.MemberIDs())
	require.False(t, p.IsMember(p.CreatorID))
}

func TestLeave_SuccessorTieBreaksOnUserID(t *testing.T) {
	p := testPost("userA", 3)
	same := at(1)
	require.NoError(t, p.Join("userZ", same))
	require.NoError(t, p.Join("userB", same))
	p.Normalize()

	res, err := p.Leave("userA", at(2))
	require.NoError(t, err)
	require.Equal(t, "userB", res.PromotedUserID)
}

func TestTransferOwnership(t *testing.T) {
	p := testPost("userA", 3)
	require.NoError(t, p.Join("userB", at(1)))

	require.NoError(t, p.TransferOwnership("userA", "userB", at(2)))
	require.Equal(t, "userB", p.CreatorID)
	require.Empty(t, p.Members)
	require.False(t, p.IsMember("userB"))
}

func TestTransferOwnership_NotCreator(t *testing.T) {
	p := testPost("userA", 3)
	require.NoError(t, p.Join("userB", at(1)))

	err := p.TransferOwnership("userB", "userB", at(2))
	require.Equal(t, fault.KindForbidden, fault.KindOf(err))
}

func TestTransferOwnership_TargetNotMember(t *testing.T) {
	p := testPost("userA", 3)

	err := p.TransferOwnership("userA", "userZ", at(1))
	require.Equal(t, fault.ReasonTargetNotMember, fault.ReasonOf(err))
	require.Equal(t, "userA", p.CreatorID)
}

func TestApplyUpdate_FieldsAndRemovals(t *testing.T) {
	p := testPost("userA", 3)
	require.NoError(t, p.Join("userB", at(1)))
	require.NoError(t, p.Join("userC", at(2)))

	title := "Ride to the mountains"
	price := 12.5
	removed, err := p.ApplyUpdate("userA", Update{
		Title:           &title,
		Price:           &price,
		MembersToRemove: []string{"userB", "userA", "ghost"},
	}, at(3))
	require.NoError(t, err)

	// Only actual members come back; the creator and unknown ids are ignored.
	require.Equal(t, []string{"userB"}, removed)
	require.Equal(t, []string{"userC"}, p.MemberIDs())
	require.Equal(t, title, p.Title)
	require.Equal(t, price, p.Price)
	require.Equal(t, "userA", p.CreatorID)
}

func TestApplyUpdate_NotCreator(t *testing.T) {
	p := testPost("userA", 3)
	require.NoError(t, p.Join("userB", at(1)))

	title := "hijacked"
	_, err := p.ApplyUpdate("userB", Update{Title: &title}, at(2))
	require.Equal(t, fault.KindForbidden, fault.KindOf(err))
	require.Equal(t, "Ride to the coast", p.Title)
}

func TestApplyUpdate_CapacityBelowMembers(t *testing.T) {
	p := testPost("userA", 3)
	require.NoError(t, p.Join("userB", at(1)))
	require.NoError(t, p.Join("userC", at(2)))

	one := 1
	_, err := p.ApplyUpdate("userA", Update{MaxPeople: &one}, at(3))
	require.Equal(t, fault.ReasonCapacityBelowMembers, fault.ReasonOf(err))
	require.Equal(t, 3, p.MaxPeople)

	// Removing a member in the same update makes the same capacity legal.
	two := 2
	removed, err := p.ApplyUpdate("userA", Update{MaxPeople: &two, MembersToRemove: []string{"userB"}}, at(4))
	require.NoError(t, err)
	require.Equal(t, []string{"userB"}, removed)
	require.Equal(t, 2, p.MaxPeople)
}

func TestClone_IsolatesMembers(t *testing.T) {
	p := testPost("userA", 3)
	require.NoError(t, p.Join("userB", at(1)))

	cp := p.Clone()
	require.NoError(t, cp.Join("userC", at(2)))

	require.Len(t, p.Members, 1)
	require.Len(t, cp.Members, 2)
}
