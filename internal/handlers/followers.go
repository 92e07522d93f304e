package handlers

import (
	"fmt"
	"net/http"

	"github.com/feedwall/backend/internal/auth"
	"github.com/feedwall/backend/internal/models"
	"github.com/feedwall/backend/internal/store"
)

// FollowerHandler implements the follow/unfollow edge endpoints and the
// follower listing.
type FollowerHandler struct {
	Store FeedStore
	Guard TokenResolver
}

// List handles GET /users/{username}/followers. An empty page answers 404,
// the same signal as a missing user.
func (h FollowerHandler) List(w http.ResponseWriter, r *http.Request) {
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

	followers, err := h.Store.GetFollowers(ctx, username, cursor)
	if err != nil {
		respondError(ctx, w, err)
		return
	}
	if len(followers) == 0 {
		respondError(ctx, w, store.ErrNotFound)
		return
	}

	respondJSON(ctx, w, http.StatusOK, map[string][]string{"followers": followers})
}

// Add handles PUT /users/{username}/followers/{follower}: creates the edge and
// backfills the follower's feed with the followed user's post history.
func (h FollowerHandler) Add(w http.ResponseWriter, r *http.Request) {
	h.mutate(w, r, true)
}

// Remove handles DELETE /users/{username}/followers/{follower}: drops the edge
// and purges the followed user's posts from the follower's feed.
func (h FollowerHandler) Remove(w http.ResponseWriter, r *http.Request) {
	h.mutate(w, r, false)
}

// mutate runs the shared follow/unfollow flow. Check order matters and
// mirrors the API contract: validation, token, ownership, existence,
// self-edge, then the mutation and its feed adjustment.
func (h FollowerHandler) mutate(w http.ResponseWriter, r *http.Request, follow bool) {
	ctx := r.Context()

	username := r.PathValue("username")
	follower := r.PathValue("follower")
	if err := models.ValidateUsername("username", username); err != nil {
		respondError(ctx, w, err)
		return
	}
	if err := models.ValidateUsername("follower", follower); err != nil {
		respondError(ctx, w, err)
		return
	}

	tokenUsername, err := h.authenticate(r)
	if err != nil {
		respondError(ctx, w, err)
		return
	}
	if tokenUsername != follower {
		respondError(ctx, w, fmt.Errorf("%w: cannot change another user's follow edges", auth.ErrForbidden))
		return
	}

	if _, err := h.Store.GetUser(ctx, username); err != nil {
		respondError(ctx, w, err)
		return
	}
	if _, err := h.Store.GetUser(ctx, follower); err != nil {
		respondError(ctx, w, err)
		return
	}

	if username == follower {
		respondJSON(ctx, w, http.StatusBadRequest, map[string]string{"detail": "self-following is not allowed"})
		return
	}

	if follow {
		err = h.Store.AddFollower(ctx, username, follower)
	} else {
		err = h.Store.RemoveFollower(ctx, username, follower)
	}
	if err != nil {
		respondError(ctx, w, err)
		return
	}

	// Adjust the follower's feed with the followed user's whole post history.
	// Runs outside any transaction with the edge write above.
	postIDs, err := h.Store.GetUserPostIDs(ctx, username)
	if err != nil {
		respondError(ctx, w, err)
		return
	}
	if follow {
		err = h.Store.AddPostIDsToFeed(ctx, follower, postIDs)
	} else {
		err = h.Store.RemovePostIDsFromFeed(ctx, follower, postIDs)
	}
	if err != nil {
		respondError(ctx, w, err)
		return
	}

	w.WriteHeader(http.StatusOK)
}

// authenticate resolves the request's bearer token and returns the username it
// belongs to.
func (h FollowerHandler) authenticate(r *http.Request) (string, error) {
	token, ok := bearerToken(r)
	if !ok {
		return "", fmt.Errorf("%w: missing bearer token", auth.ErrUnauthorized)
	}
	resolved, err := h.Guard.Resolve(r.Context(), token)
	if err != nil {
		return "", err
	}
	claims, err := h.Guard.Claims(resolved)
	if err != nil {
		return "", err
	}
	return auth.Username(claims)
}
