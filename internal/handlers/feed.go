package handlers

import (
	"net/http"

	"github.com/feedwall/backend/internal/models"
	"github.com/feedwall/backend/internal/store"
)

// FeedHandler serves per-user feeds populated by fan-out.
type FeedHandler struct {
	Store FeedStore
}

// Get handles GET /users/{username}/feed, most recent first.
func (h FeedHandler) Get(w http.ResponseWriter, r *http.Request) {
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

	posts, err := h.Store.GetFeed(ctx, username, cursor)
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
