package handlers

import (
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/feedwall/backend/internal/auth"
	"github.com/feedwall/backend/internal/identity"
	"github.com/feedwall/backend/internal/models"
	"github.com/feedwall/backend/internal/store"
)

// PostHandler implements post creation and the post read endpoints.
type PostHandler struct {
	Store FeedStore
	Guard TokenResolver
}

type newPostRequest struct {
	Content string `json:"content"`
}

// Create handles POST /users/{username}/posts. The caller must be the path
// user and carry the posting role. The created post is fanned out to every
// current follower's feed after the write.
func (h PostHandler) Create(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	username := r.PathValue("username")
	if err := models.ValidateUsername("username", username); err != nil {
		respondError(ctx, w, err)
		return
	}

	var req newPostRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(ctx, w, &models.ValidationError{Field: "body", Reason: "invalid request body"})
		return
	}
	if err := models.ValidateContent(req.Content); err != nil {
		respondError(ctx, w, err)
		return
	}

	token, ok := bearerToken(r)
	if !ok {
		respondError(ctx, w, fmt.Errorf("%w: missing bearer token", auth.ErrUnauthorized))
		return
	}
	resolved, err := h.Guard.Resolve(ctx, token)
	if err != nil {
		respondError(ctx, w, err)
		return
	}
	claims, err := h.Guard.Claims(resolved)
	if err != nil {
		respondError(ctx, w, err)
		return
	}
	tokenUsername, err := auth.Username(claims)
	if err != nil {
		respondError(ctx, w, err)
		return
	}
	if tokenUsername != username {
		respondError(ctx, w, fmt.Errorf("%w: cannot post as another user", auth.ErrForbidden))
		return
	}
	if err := h.Guard.RequireRole(claims, identity.RoleCanPost); err != nil {
		respondError(ctx, w, err)
		return
	}

	post, err := h.Store.AddPost(ctx, models.Post{
		Author:    username,
		Content:   req.Content,
		CreatedAt: time.Now().UTC(),
	})
	if err != nil {
		respondError(ctx, w, err)
		return
	}

	if err := h.Store.FanOutToFollowers(ctx, post); err != nil {
		respondError(ctx, w, err)
		return
	}

	respondJSON(ctx, w, http.StatusCreated, map[string]models.PostWithID{"post": post})
}

// ListForUser handles GET /users/{username}/posts, most recent first.
func (h PostHandler) ListForUser(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	username := r.PathValue("username")
	if err := models.ValidateUsername("username", username); err != nil {
		respondError(ctx, w, err)
		return
	}
	cursor, err := parseCursor(r)
	if err != nil {
		respondError(ctx, w, err)
		return
	}

	if _, err := h.Store.GetUser(ctx, username); err != nil {
		respondError(ctx, w, err)
		return
	}

	posts, err := h.Store.GetUserPosts(ctx, username, cursor)
	if err != nil {
		respondError(ctx, w, err)
		return
	}
	if len(posts) == 0 {
		respondError(ctx, w, store.ErrNotFound)
		return
	}

	respondJSON(ctx, w, http.StatusOK, map[string][]models.PostWithID{"posts": posts})
}

// Get handles GET /posts/{post_id}.
func (h PostHandler) Get(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	id, err := strconv.ParseInt(r.PathValue("post_id"), 10, 32)
	if err != nil || id < 1 {
		respondError(ctx, w, &models.ValidationError{Field: "post_id", Reason: "must be a positive integer"})
		return
	}

	post, err := h.Store.GetPost(ctx, id)
	if err != nil {
		respondError(ctx, w, err)
		return
	}

	respondJSON(ctx, w, http.StatusOK, map[string]models.PostWithID{"post": post})
}
