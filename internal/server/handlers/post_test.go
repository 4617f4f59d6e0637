package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/require"

	"shareboard/internal/domain/post"
	"shareboard/internal/domain/user"
	"shareboard/internal/fault"
)

// stubService answers each operation from a canned function.
type stubService struct {
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
	return s.create(ctx, actor, in)
}
func (s *stubService) Get(ctx context.Context, id string) (*post.Post, error) {
	return s.get(ctx, id)
}
func (s *stubService) Search(ctx context.Context, filter post.Filter) ([]post.Post, error) {
	return s.search(ctx, filter)
}
func (s *stubService) Join(ctx context.Context, postID, actor string) (*post.Post, error) {
	return s.join(ctx, postID, actor)
}
func (s *stubService) Leave(ctx context.Context, postID, actor string) (*post.Post, error) {
	return s.leave(ctx, postID, actor)
}
func (s *stubService) TransferOwnership(ctx context.Context, postID, actor, target string) (*post.Post, error) {
	return s.transfer(ctx, postID, actor, target)
}
func (s *stubService) Update(ctx context.Context, postID, actor string, upd post.Update) (*post.Post, error) {
	return s.update(ctx, postID, actor, upd)
}
func (s *stubService) Delete(ctx context.Context, postID, actor string) error {
	return s.del(ctx, postID, actor)
}

// stubUsers resolves from fixed maps.
type stubUsers struct {
	byID    map[string]user.User
	byEmail map[string]user.User
}

func (s *stubUsers) FindUsersByIDs(ctx context.Context, ids []string) ([]user.User, error) {
	var out []user.User
	for _, id := range ids {
		if u, ok := s.byID[id]; ok {
			out = append(out, u)
		}
	}
	return out, nil
}

func (s *stubUsers) FindUsersByEmails(ctx context.Context, emails []string) ([]user.User, error) {
	var out []user.User
	for _, e := range emails {
		if u, ok := s.byEmail[e]; ok {
			out = append(out, u)
		}
	}
	return out, nil
}

func newRouter(service post.Service, users user.Store) *chi.Mux {
	h := NewPostHandler(service, users)
	r := chi.NewRouter()
	r.Route("/api/v1/posts", func(r chi.Router) {
		r.Post("/", h.CreatePost)
		r.Get("/search", h.SearchPosts)
		r.Get("/{id}", h.GetPost)
		r.Patch("/{id}", h.UpdatePost)
		r.Delete("/{id}", h.DeletePost)
		r.Post("/{id}/membership", h.JoinPost)
		r.Delete("/{id}/membership", h.LeavePost)
		r.Put("/{id}/ownership", h.TransferOwnership)
	})
	return r
}

func doJSON(t *testing.T, router http.Handler, method, path, actor string, body interface{}) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	if actor != "" {
		req.Header.Set("X-User-ID", actor)
	}
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	return w
}

func samplePost() *post.Post {
	return &post.Post{ID: "p1", Title: "Ride", MaxPeople: 3, CreatorID: "userA"}
}

func TestCreatePost(t *testing.T) {
	svc := &stubService{
		create: func(ctx context.Context, actor string, in post.CreateInput) (*post.Post, error) {
			require.Equal(t, "userA", actor)
			require.Equal(t, "Ride", in.Title)
			require.Equal(t, 3, in.MaxPeople)
			return samplePost(), nil
		},
	}
	router := newRouter(svc, &stubUsers{})

	w := doJSON(t, router, http.MethodPost, "/api/v1/posts", "userA", map[string]interface{}{
		"title": "Ride", "max_people": 3,
	})
	require.Equal(t, http.StatusCreated, w.Code)

	var got post.Post
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &got))
	require.Equal(t, "p1", got.ID)
}

func TestCreatePost_MissingActorHeader(t *testing.T) {
	router := newRouter(&stubService{}, &stubUsers{})

	w := doJSON(t, router, http.MethodPost, "/api/v1/posts", "", map[string]interface{}{
		"title": "Ride", "max_people": 3,
	})
	require.Equal(t, http.StatusBadRequest, w.Code)
}

func TestCreatePost_ValidationFailure(t *testing.T) {
	router := newRouter(&stubService{}, &stubUsers{})

	// max_people missing entirely.
	w := doJSON(t, router, http.MethodPost, "/api/v1/posts", "userA", map[string]interface{}{
		"title": "Ride",
	})
	require.Equal(t, http.StatusBadRequest, w.Code)
}

func TestGetPost_NotFound(t *testing.T) {
	svc := &stubService{
		get: func(ctx context.Context, id string) (*post.Post, error) {
			return nil, fault.NotFound("post %s not found", id)
		},
	}
	router := newRouter(svc, &stubUsers{})

	w := doJSON(t, router, http.MethodGet, "/api/v1/posts/p1", "", nil)
	require.Equal(t, http.StatusNotFound, w.Code)
}

func TestJoinPost_CapacityConflict(t *testing.T) {
	svc := &stubService{
		join: func(ctx context.Context, postID, actor string) (*post.Post, error) {
			return nil, fault.Conflict(fault.ReasonCapacityFull, "post is full")
		},
	}
	router := newRouter(svc, &stubUsers{})

	w := doJSON(t, router, http.MethodPost, "/api/v1/posts/p1/membership", "userB", nil)
	require.Equal(t, http.StatusConflict, w.Code)

	var body map[string]string
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	require.Equal(t, "post is full", body["error"])
	require.Equal(t, fault.ReasonCapacityFull, body["reason"])
}

func TestLeavePost_DeletedPostRespondsNoContent(t *testing.T) {
	svc := &stubService{
		leave: func(ctx context.Context, postID, actor string) (*post.Post, error) {
			return nil, nil
		},
	}
	router := newRouter(svc, &stubUsers{})

	w := doJSON(t, router, http.MethodDelete, "/api/v1/posts/p1/membership", "userA", nil)
	require.Equal(t, http.StatusNoContent, w.Code)
	require.Empty(t, w.Body.Bytes())
}

func TestTransferOwnership_UnknownTarget(t *testing.T) {
	router := newRouter(&stubService{}, &stubUsers{byID: map[string]user.User{}})

	w := doJSON(t, router, http.MethodPut, "/api/v1/posts/p1/ownership", "userA", map[string]string{
		"target_user_id": "ghost",
	})
	require.Equal(t, http.StatusNotFound, w.Code)
}

func TestTransferOwnership(t *testing.T) {
	svc := &stubService{
		transfer: func(ctx context.Context, postID, actor, target string) (*post.Post, error) {
			require.Equal(t, "p1", postID)
			require.Equal(t, "userA", actor)
			require.Equal(t, "userB", target)
			p := samplePost()
			p.CreatorID = target
			return p, nil
		},
	}
	users := &stubUsers{byID: map[string]user.User{"userB": {ID: "userB"}}}
	router := newRouter(svc, users)

	w := doJSON(t, router, http.MethodPut, "/api/v1/posts/p1/ownership", "userA", map[string]string{
		"target_user_id": "userB",
	})
	require.Equal(t, http.StatusOK, w.Code)
}

func TestUpdatePost_ResolvesRemovalEmails(t *testing.T) {
	svc := &stubService{
		update: func(ctx context.Context, postID, actor string, upd post.Update) (*post.Post, error) {
			require.ElementsMatch(t, []string{"userC", "userB"}, upd.MembersToRemove)
			return samplePost(), nil
		},
	}
	users := &stubUsers{byEmail: map[string]user.User{"b@example.com": {ID: "userB", Email: "b@example.com"}}}
	router := newRouter(svc, users)

	w := doJSON(t, router, http.MethodPatch, "/api/v1/posts/p1", "userA", map[string]interface{}{
		"remove_member_ids":    []string{"userC"},
		"remove_member_emails": []string{"b@example.com"},
	})
	require.Equal(t, http.StatusOK, w.Code)
}

func TestUpdatePost_NonCreatorForbidden(t *testing.T) {
	svc := &stubService{
		update: func(ctx context.Context, postID, actor string, upd post.Update) (*post.Post, error) {
			return nil, fault.Forbidden("only the creator may update")
		},
	}
	router := newRouter(svc, &stubUsers{})

	title := "new title"
	w := doJSON(t, router, http.MethodPatch, "/api/v1/posts/p1", "userB", map[string]interface{}{
		"title": title,
	})
	require.Equal(t, http.StatusForbidden, w.Code)
}

func TestDeletePost(t *testing.T) {
	svc := &stubService{
		del: func(ctx context.Context, postID, actor string) error { return nil },
	}
	router := newRouter(svc, &stubUsers{})

	w := doJSON(t, router, http.MethodDelete, "/api/v1/posts/p1", "userA", nil)
	require.Equal(t, http.StatusNoContent, w.Code)
}

func TestSearchPosts_ParsesFilters(t *testing.T) {
	svc := &stubService{
		search: func(ctx context.Context, filter post.Filter) ([]post.Post, error) {
			require.Equal(t, "coast", filter.Text)
			require.Equal(t, "userB", filter.HasMemberID)
			require.True(t, filter.OnlyAvailable)
			require.Equal(t, 4, filter.MaxPeopleMax)
			require.Equal(t, 5, filter.Limit)
			return []post.Post{}, nil
		},
	}
	router := newRouter(svc, &stubUsers{})

	w := doJSON(t, router, http.MethodGet,
		"/api/v1/posts/search?q=coast&member=userB&available=true&max_people=4&limit=5", "", nil)
	require.Equal(t, http.StatusOK, w.Code)
	require.Equal(t, "[]", string(bytes.TrimSpace(w.Body.Bytes())))
}

func TestSearchPosts_BadTimestamp(t *testing.T) {
	router := newRouter(&stubService{}, &stubUsers{})

	w := doJSON(t, router, http.MethodGet, "/api/v1/posts/search?created_after=yesterday", "", nil)
	require.Equal(t, http.StatusBadRequest, w.Code)
}
