package queue

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"testing"

	"github.com/stretchr/testify/require"

	"shareboard/internal/domain/post"
	"shareboard/internal/fault"
)

// stubService answers each operation from a canned function; unset operations
// fail the test if reached.
type stubService struct {
	t        *testing.T
	create   func(ctx context.Context, actor string, in post.CreateInput) (*post.Post, error)
	get      func(ctx context.Context, id string) (*post.Post, error)
	search   func(ctx context.Context, filter post.Filter) ([]post.Post, error)
	join     func(ctx context.Context, postID, actor string) (*post.Post, error)
	leave    func(ctx context.Context, postID, actor string) (*post.Post, error)
	transfer func(ctx context.Context, postID, actor, target string) (*post.Post, error)
	update   func(ctx context.Context, postID, actor string, upd post.Update) (*post.Post, error)
	del      func(ctx context.Context, postID, actor string) error
}

func (s *stubService) Create(ctx context.Context, actor string, in post.CreateInput) (*post.Post, error) {
	require.NotNil(s.t, s.create, "unexpected Create call")
	return s.create(ctx, actor, in)
}
func (s *stubService) Get(ctx context.Context, id string) (*post.Post, error) {
	require.NotNil(s.t, s.get, "unexpected Get call")
	return s.get(ctx, id)
}
func (s *stubService) Search(ctx context.Context, filter post.Filter) ([]post.Post, error) {
	require.NotNil(s.t, s.search, "unexpected Search call")
	return s.search(ctx, filter)
}
func (s *stubService) Join(ctx context.Context, postID, actor string) (*post.Post, error) {
	require.NotNil(s.t, s.join, "unexpected Join call")
	return s.join(ctx, postID, actor)
}
func (s *stubService) Leave(ctx context.Context, postID, actor string) (*post.Post, error) {
	require.NotNil(s.t, s.leave, "unexpected Leave call")
	return s.leave(ctx, postID, actor)
}
func (s *stubService) TransferOwnership(ctx context.Context, postID, actor, target string) (*post.Post, error) {
	require.NotNil(s.t, s.transfer, "unexpected TransferOwnership call")
	return s.transfer(ctx, postID, actor, target)
}
func (s *stubService) Update(ctx context.Context, postID, actor string, upd post.Update) (*post.Post, error) {
	require.NotNil(s.t, s.update, "unexpected Update call")
	return s.update(ctx, postID, actor, upd)
}
func (s *stubService) Delete(ctx context.Context, postID, actor string) error {
	require.NotNil(s.t, s.del, "unexpected Delete call")
	return s.del(ctx, postID, actor)
}

func newTestConsumer(t *testing.T, svc post.Service) *Consumer {
	t.Helper()
	return NewConsumer(nil, svc, ConsumerConfig{})
}

func strPtr(s string) *string { return &s }

func intPtr(n int) *int { return &n }

func fltPtr(f float64) *float64 { return &f }

func TestRenderSuccess(t *testing.T) {
	resp := RenderSuccess("corr-1", map[string]string{"id": "p1"})
	require.True(t, resp.Success)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	require.Equal(t, "corr-1", resp.CorrelationID)
	require.JSONEq(t, `{"id":"p1"}`, string(resp.Data))
}

func TestRenderSuccess_NilDataIsNoContent(t *testing.T) {
	resp := RenderSuccess("corr-1", nil)
	require.True(t, resp.Success)
	require.Equal(t, http.StatusNoContent, resp.StatusCode)
	require.Empty(t, resp.Data)
}

func TestRenderFailure(t *testing.T) {
	resp := RenderFailure("corr-2", fault.Conflict(fault.ReasonCapacityFull, "post is full"))
	require.False(t, resp.Success)
	require.Equal(t, http.StatusConflict, resp.StatusCode)
	require.Equal(t, "capacity-full: post is full", resp.Message)
	require.Equal(t, "corr-2", resp.CorrelationID)
}

func TestRenderFailure_HidesInternalDetail(t *testing.T) {
	resp := RenderFailure("corr-3", fault.Internal(errors.New("pg down"), "saving"))
	require.Equal(t, http.StatusInternalServerError, resp.StatusCode)
	require.Equal(t, "internal error", resp.Message)
}

func TestCreateOperation(t *testing.T) {
	svc := &stubService{t: t, create: func(ctx context.Context, actor string, in post.CreateInput) (*post.Post, error) {
		require.Equal(t, "userA", actor)
		require.Equal(t, "Ride", in.Title)
		require.Equal(t, 3, in.MaxPeople)
		require.Equal(t, 9.5, in.Price)
		return &post.Post{ID: "p1", Title: in.Title}, nil
	}}
	c := newTestConsumer(t, svc)

	got, err := c.create(context.Background(), Request{
		ActorID:   "userA",
		Title:     strPtr("Ride"),
		MaxPeople: intPtr(3),
		Price:     fltPtr(9.5),
	})
	require.NoError(t, err)
	require.Equal(t, "p1", got.(*post.Post).ID)
}

func TestCreateOperation_Validation(t *testing.T) {
	c := newTestConsumer(t, &stubService{t: t})

	_, err := c.create(context.Background(), Request{Title: strPtr("Ride"), MaxPeople: intPtr(3)})
	require.Equal(t, fault.KindValidation, fault.KindOf(err))

	_, err = c.create(context.Background(), Request{ActorID: "userA", MaxPeople: intPtr(3)})
	require.Equal(t, fault.KindValidation, fault.KindOf(err))

	_, err = c.create(context.Background(), Request{ActorID: "userA", Title: strPtr("Ride"), MaxPeople: intPtr(0)})
	require.Equal(t, fault.KindValidation, fault.KindOf(err))
}

func TestJoinOperation(t *testing.T) {
	svc := &stubService{t: t, join: func(ctx context.Context, postID, actor string) (*post.Post, error) {
		require.Equal(t, "p1", postID)
		require.Equal(t, "userB", actor)
		return &post.Post{ID: postID}, nil
	}}
	c := newTestConsumer(t, svc)

	got, err := c.join(context.Background(), Request{ActorID: "userB", PostID: "p1"})
	require.NoError(t, err)
	require.NotNil(t, got)

	_, err = c.join(context.Background(), Request{ActorID: "userB"})
	require.Equal(t, fault.KindValidation, fault.KindOf(err))
}

func TestLeaveOperation_DeletedPostYieldsNoContent(t *testing.T) {
	svc := &stubService{t: t, leave: func(ctx context.Context, postID, actor string) (*post.Post, error) {
		return nil, nil
	}}
	c := newTestConsumer(t, svc)

	got, err := c.leave(context.Background(), Request{ActorID: "userA", PostID: "p1"})
	require.NoError(t, err)
	require.Nil(t, got)

	resp := RenderSuccess("corr", got)
	require.Equal(t, http.StatusNoContent, resp.StatusCode)
}

func TestTransferOperation_RequiresTarget(t *testing.T) {
	c := newTestConsumer(t, &stubService{t: t})

	_, err := c.transfer(context.Background(), Request{ActorID: "userA", PostID: "p1"})
	require.Equal(t, fault.KindValidation, fault.KindOf(err))
}

func TestUpdateOperation_PassesPatchThrough(t *testing.T) {
	svc := &stubService{t: t, update: func(ctx context.Context, postID, actor string, upd post.Update) (*post.Post, error) {
		require.Equal(t, "new title", *upd.Title)
		require.Nil(t, upd.Description)
		require.Equal(t, []string{"userC"}, upd.MembersToRemove)
		return &post.Post{ID: postID}, nil
	}}
	c := newTestConsumer(t, svc)

	_, err := c.update(context.Background(), Request{
		ActorID:         "userA",
		PostID:          "p1",
		Title:           strPtr("new title"),
		RemoveMemberIDs: []string{"userC"},
	})
	require.NoError(t, err)
}

func TestSearchOperation_DefaultsLimit(t *testing.T) {
	svc := &stubService{t: t, search: func(ctx context.Context, filter post.Filter) ([]post.Post, error) {
		require.Equal(t, 20, filter.Limit)
		require.Equal(t, "coast", filter.Text)
		return []post.Post{}, nil
	}}
	c := newTestConsumer(t, svc)

	got, err := c.search(context.Background(), Request{Text: "coast"})
	require.NoError(t, err)
	require.Empty(t, got)
}

func TestDeleteOperation(t *testing.T) {
	svc := &stubService{t: t, del: func(ctx context.Context, postID, actor string) error {
		require.Equal(t, "p1", postID)
		require.Equal(t, "userA", actor)
		return nil
	}}
	c := newTestConsumer(t, svc)

	got, err := c.delete(context.Background(), Request{ActorID: "userA", PostID: "p1"})
	require.NoError(t, err)
	require.Nil(t, got)
}

func TestResponseEnvelopeRoundTrip(t *testing.T) {
	resp := RenderSuccess("corr-9", &post.Post{ID: "p1", Title: "Ride"})
	data, err := json.Marshal(resp)
	require.NoError(t, err)

	var decoded Response
	require.NoError(t, json.Unmarshal(data, &decoded))
	require.True(t, decoded.Success)
	require.Equal(t, "corr-9", decoded.CorrelationID)

	var p post.Post
	require.NoError(t, json.Unmarshal(decoded.Data, &p))
	require.Equal(t, "p1", p.ID)
}
