package handlers

import (
	"encoding/json"
	"net/http"

	"github.com/feedwall/backend/internal/logging"
	"github.com/feedwall/backend/internal/models"
)

// AuthHandler implements registration, login and logout against the identity
// provider.
type AuthHandler struct {
	Identity IdentityClient
	Tokens   TokenCache
	Store    FeedStore
	Limiter  RateLimiter
}

type registerRequest struct {
	Email          string `json:"email"`
	Username       string `json:"username"`
	Password       string `json:"password"`
	PasswordRepeat string `json:"password_repeat"`
	FirstName      string `json:"first_name"`
	LastName       string `json:"last_name"`
}

type loginRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

// Register handles POST /auth/register. The account is created at the
// provider first and then mirrored into the feed store; a store failure after
// the provider write is surfaced but not compensated.
func (h AuthHandler) Register(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	if !allowRequest(h.Limiter, r, "register") {
		respondJSON(ctx, w, http.StatusTooManyRequests, map[string]string{"detail": "too many registration attempts"})
		return
	}

	var req registerRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(ctx, w, &models.ValidationError{Field: "body", Reason: "invalid request body"})
		return
	}

	reg := models.Registration{
		Email:          req.Email,
		Username:       req.Username,
		Password:       req.Password,
		PasswordRepeat: req.PasswordRepeat,
		FirstName:      req.FirstName,
		LastName:       req.LastName,
	}
	if err := reg.Validate(); err != nil {
		respondError(ctx, w, err)
		return
	}

	userID, err := h.Identity.Register(ctx, reg)
	if err != nil {
		respondError(ctx, w, err)
		return
	}

	if err := h.Store.SetUser(ctx, userID, models.User{
		Username:  reg.Username,
		FirstName: reg.FirstName,
		LastName:  reg.LastName,
	}); err != nil {
		// The identity now exists without a store mirror. Accepted gap: no
		// compensating delete is attempted.
		logging.FromContext(ctx).Error("store mirror failed after registration", "username", reg.Username, "error", err)
		respondError(ctx, w, err)
		return
	}

	w.WriteHeader(http.StatusCreated)
}

// Login handles POST /auth/login and caches the minted token pair.
func (h AuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	if !allowRequest(h.Limiter, r, "login") {
		respondJSON(ctx, w, http.StatusTooManyRequests, map[string]string{"detail": "too many login attempts"})
		return
	}

	var req loginRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(ctx, w, &models.ValidationError{Field: "body", Reason: "invalid request body"})
		return
	}
	if err := models.ValidateUsername("username", req.Username); err != nil {
		respondError(ctx, w, err)
		return
	}
	if err := models.ValidatePassword(req.Password); err != nil {
		respondError(ctx, w, err)
		return
	}

	tokens, err := h.Identity.Login(ctx, req.Username, req.Password)
	if err != nil {
		respondError(ctx, w, err)
		return
	}

	if err := h.Tokens.Add(ctx, tokens); err != nil {
		respondError(ctx, w, err)
		return
	}

	respondJSON(ctx, w, http.StatusOK, map[string]string{"access_token": tokens.AccessToken})
}

// Logout handles POST /auth/logout. A bearer token with no cached refresh
// token is already logged out: answer 204 without contacting the provider.
func (h AuthHandler) Logout(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	accessToken, ok := bearerToken(r)
	if !ok {
		respondJSON(ctx, w, http.StatusForbidden, map[string]string{"detail": "missing bearer token"})
		return
	}

	refreshToken, found, err := h.Tokens.Get(ctx, accessToken)
	if err != nil {
		respondError(ctx, w, err)
		return
	}
	if !found {
		w.WriteHeader(http.StatusNoContent)
		return
	}

	if err := h.Identity.Logout(ctx, refreshToken); err != nil {
		respondError(ctx, w, err)
		return
	}

	if _, _, err := h.Tokens.Pop(ctx, accessToken); err != nil {
		respondError(ctx, w, err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}
