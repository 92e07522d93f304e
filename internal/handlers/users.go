package handlers

import (
	"net/http"

	"github.com/feedwall/backend/internal/models"
)

// UserHandler serves public user profiles.
type UserHandler struct {
	Store FeedStore
}

// Get handles GET /users/{username}. Only public attributes are returned; the
// provider-issued user ID stays internal.
func (h UserHandler) Get(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	username := r.PathValue("username")
	if err := models.ValidateUsername("username", username); err != nil {
		respondError(ctx, w, err)
		return
	}

	user, err := h.Store.GetUser(ctx, username)
	if err != nil {
		respondError(ctx, w, err)
		return
	}

	respondJSON(ctx, w, http.StatusOK, user.User)
}
