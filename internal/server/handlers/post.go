// internal/server/handlers/post.go

package handlers

import (
	"encoding/json"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"

	"shareboard/internal/domain/post"
	"shareboard/internal/domain/user"
	"shareboard/internal/fault"
)

// PostHandler handles post-related HTTP requests. It is a thin translator:
// parse and validate, call the domain service, render the outcome.
type PostHandler struct {
	service  post.Service
	users    user.Store
	validate *validator.Validate
}

// NewPostHandler creates a new post handler.
func NewPostHandler(service post.Service, users user.Store) *PostHandler {
	return &PostHandler{
		service:  service,
		users:    users,
		validate: validator.New(),
	}
}

// actorID extracts the authenticated user id. Authentication itself is an
// upstream concern; the gateway injects the header.
func actorID(r *http.Request) string {
	return r.Header.Get("X-User-ID")
}

type createPostRequest struct {
	Title       string  `json:"title" validate:"required,max=200"`
	Description string  `json:"description" validate:"max=2000"`
	Price       float64 `json:"price" validate:"gte=0"`
	Latitude    float64 `json:"latitude" validate:"gte=-90,lte=90"`
	Longitude   float64 `json:"longitude" validate:"gte=-180,lte=180"`
	MaxPeople   int     `json:"max_people" validate:"required,gte=1"`
}

// CreatePost creates a new post owned by the caller.
func (h *PostHandler) CreatePost(w http.ResponseWriter, r *http.Request) {
	actor := actorID(r)
	if actor == "" {
		respondWithError(w, http.StatusBadRequest, "Missing X-User-ID header")
		return
	}

	var req createPostRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondWithError(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	if err := h.validate.Struct(req); err != nil {
		respondWithFault(w, r, "create", fault.Validation("invalid post: %v", err))
		return
	}

	p, err := h.service.Create(r.Context(), actor, post.CreateInput{
		Title:       req.Title,
		Description: req.Description,
		Price:       req.Price,
		Latitude:    req.Latitude,
		Longitude:   req.Longitude,
		MaxPeople:   req.MaxPeople,
		CreatedAt:   time.Now(),
	})
	if err != nil {
		respondWithFault(w, r, "create", err)
		return
	}

	respondWithJSON(w, http.StatusCreated, p)
}

// GetPost returns a specific post by ID.
func (h *PostHandler) GetPost(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if id == "" {
		respondWithError(w, http.StatusBadRequest, "Missing post ID")
		return
	}

	p, err := h.service.Get(r.Context(), id)
	if err != nil {
		respondWithFault(w, r, "get", err)
		return
	}

	respondWithJSON(w, http.StatusOK, p)
}

// SearchPosts returns posts matching the query filters.
func (h *PostHandler) SearchPosts(w http.ResponseWriter, r *http.Request) {
	var filter post.Filter

	q := r.URL.Query()
	filter.Text = q.Get("q")
	filter.HasMemberID = q.Get("member")

	if v := q.Get("created_after"); v != "" {
		t, err := time.Parse(time.RFC3339, v)
		if err != nil {
			respondWithError(w, http.StatusBadRequest, "Invalid created_after")
			return
		}
		filter.CreatedAfter = t
	}
	if v := q.Get("created_before"); v != "" {
		t, err := time.Parse(time.RFC3339, v)
		if err != nil {
			respondWithError(w, http.StatusBadRequest, "Invalid created_before")
			return
		}
		filter.CreatedBefore = t
	}
	if v := q.Get("max_people"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 1 {
			respondWithError(w, http.StatusBadRequest, "Invalid max_people")
			return
		}
		filter.MaxPeopleMax = n
	}
	if v := q.Get("available"); v != "" {
		avail, err := strconv.ParseBool(v)
		if err == nil {
			filter.OnlyAvailable = avail
		}
	}
	if v := q.Get("limit"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			filter.Limit = n
		}
	}
	if v := q.Get("offset"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n >= 0 {
			filter.Offset = n
		}
	}
	if filter.Limit <= 0 {
		filter.Limit = 20
	}

	posts, err := h.service.Search(r.Context(), filter)
	if err != nil {
		respondWithFault(w, r, "search", err)
		return
	}

	respondWithJSON(w, http.StatusOK, posts)
}

// JoinPost adds the caller to a post's members.
func (h *PostHandler) JoinPost(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	actor := actorID(r)
	if actor == "" {
		respondWithError(w, http.StatusBadRequest, "Missing X-User-ID header")
		return
	}

	p, err := h.service.Join(r.Context(), id, actor)
	if err != nil {
		respondWithFault(w, r, "join", err)
		return
	}

	respondWithJSON(w, http.StatusOK, p)
}

// LeavePost removes the caller from a post. A creator leaving promotes the
// earliest-joined member, or deletes the post when nobody is left.
func (h *PostHandler) LeavePost(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	actor := actorID(r)
	if actor == "" {
		respondWithError(w, http.StatusBadRequest, "Missing X-User-ID header")
		return
	}

	p, err := h.service.Leave(r.Context(), id, actor)
	if err != nil {
		respondWithFault(w, r, "leave", err)
		return
	}
	if p == nil {
		// Creator left an empty post; it no longer exists.
		w.WriteHeader(http.StatusNoContent)
		return
	}

	respondWithJSON(w, http.StatusOK, p)
}

type transferOwnershipRequest struct {
	TargetUserID string `json:"target_user_id" validate:"required"`
}

// TransferOwnership hands a post from the caller to one of its members.
func (h *PostHandler) TransferOwnership(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	actor := actorID(r)
	if actor == "" {
		respondWithError(w, http.StatusBadRequest, "Missing X-User-ID header")
		return
	}

	var req transferOwnershipRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondWithError(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	if err := h.validate.Struct(req); err != nil {
		respondWithFault(w, r, "transfer", fault.Validation("invalid transfer: %v", err))
		return
	}

	found, err := h.users.FindUsersByIDs(r.Context(), []string{req.TargetUserID})
	if err != nil {
		respondWithFault(w, r, "transfer", fault.Internal(err, "looking up transfer target"))
		return
	}
	if len(found) == 0 {
		respondWithFault(w, r, "transfer", fault.NotFound("user %s not found", req.TargetUserID))
		return
	}

	p, err := h.service.TransferOwnership(r.Context(), id, actor, req.TargetUserID)
	if err != nil {
		respondWithFault(w, r, "transfer", err)
		return
	}

	respondWithJSON(w, http.StatusOK, p)
}

type updatePostRequest struct {
	Title              *string  `json:"title" validate:"omitempty,max=200"`
	Description        *string  `json:"description" validate:"omitempty,max=2000"`
	Price              *float64 `json:"price" validate:"omitempty,gte=0"`
	Latitude           *float64 `json:"latitude" validate:"omitempty,gte=-90,lte=90"`
	Longitude          *float64 `json:"longitude" validate:"omitempty,gte=-180,lte=180"`
	MaxPeople          *int     `json:"max_people" validate:"omitempty,gte=1"`
	RemoveMemberIDs    []string `json:"remove_member_ids"`
	RemoveMemberEmails []string `json:"remove_member_emails" validate:"omitempty,dive,email"`
}

// UpdatePost applies field changes and member removals by the creator.
// Removals may be given as user ids or as emails, which are resolved first.
func (h *PostHandler) UpdatePost(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	actor := actorID(r)
	if actor == "" {
		respondWithError(w, http.StatusBadRequest, "Missing X-User-ID header")
		return
	}

	var req updatePostRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondWithError(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	if err := h.validate.Struct(req); err != nil {
		respondWithFault(w, r, "update", fault.Validation("invalid update: %v", err))
		return
	}

	remove := append([]string{}, req.RemoveMemberIDs...)
	if len(req.RemoveMemberEmails) > 0 {
		users, err := h.users.FindUsersByEmails(r.Context(), req.RemoveMemberEmails)
		if err != nil {
			respondWithFault(w, r, "update", fault.Internal(err, "resolving removal emails"))
			return
		}
		for _, u := range users {
			remove = append(remove, u.ID)
		}
	}

	p, err := h.service.Update(r.Context(), id, actor, post.Update{
		Title:           req.Title,
		Description:     req.Description,
		Price:           req.Price,
		Latitude:        req.Latitude,
		Longitude:       req.Longitude,
		MaxPeople:       req.MaxPeople,
		MembersToRemove: remove,
	})
	if err != nil {
		respondWithFault(w, r, "update", err)
		return
	}

	respondWithJSON(w, http.StatusOK, p)
}

// DeletePost removes a post; creator only.
func (h *PostHandler) DeletePost(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	actor := actorID(r)
	if actor == "" {
		respondWithError(w, http.StatusBadRequest, "Missing X-User-ID header")
		return
	}

	if err := h.service.Delete(r.Context(), id, actor); err != nil {
		respondWithFault(w, r, "delete", err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}
