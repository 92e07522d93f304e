package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"strings"

	"github.com/feedwall/backend/internal/auth"
	"github.com/feedwall/backend/internal/identity"
	"github.com/feedwall/backend/internal/logging"
	"github.com/feedwall/backend/internal/models"
	"github.com/feedwall/backend/internal/store"
	"github.com/feedwall/backend/internal/tokencache"
)

func respondJSON(ctx context.Context, w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)

	if err := json.NewEncoder(w).Encode(payload); err != nil {
		logging.FromContext(ctx).Error("encode response body", "status", status, "error", err)
		return
	}

	logger := logging.FromContext(ctx)
	switch {
	case status >= http.StatusInternalServerError:
		logger.Error("request failed", "status", status, "response", payload)
	case status >= http.StatusBadRequest:
		logger.Warn("request returned client error", "status", status, "response", payload)
	}
}

// respondError owns the error-to-status mapping. Handlers never inspect
// transport-library errors; they surface package sentinels and let this
// function translate them.
func respondError(ctx context.Context, w http.ResponseWriter, err error) {
	var vErr *models.ValidationError
	logger := logging.FromContext(ctx)

	switch {
	case errors.As(err, &vErr):
		respondJSON(ctx, w, http.StatusUnprocessableEntity, map[string]string{"detail": vErr.Error()})
	case errors.Is(err, auth.ErrUnauthorized), errors.Is(err, identity.ErrAuth):
		respondJSON(ctx, w, http.StatusUnauthorized, map[string]string{"detail": "invalid or expired token or credentials"})
	case errors.Is(err, auth.ErrForbidden):
		respondJSON(ctx, w, http.StatusForbidden, map[string]string{"detail": "operation not permitted"})
	case errors.Is(err, store.ErrNotFound):
		respondJSON(ctx, w, http.StatusNotFound, map[string]string{"detail": "not found"})
	case errors.Is(err, identity.ErrConflict):
		respondJSON(ctx, w, http.StatusBadRequest, map[string]string{"detail": "account already exists"})
	case errors.Is(err, identity.ErrUnavailable),
		errors.Is(err, store.ErrUnavailable),
		errors.Is(err, tokencache.ErrUnavailable):
		logger.Error("upstream unavailable", "error", err)
		w.WriteHeader(http.StatusServiceUnavailable)
	default:
		logger.Error("unhandled error", "error", err)
		w.WriteHeader(http.StatusInternalServerError)
	}
}

// bearerToken extracts the token from an "Authorization: Bearer" header.
func bearerToken(r *http.Request) (string, bool) {
	const prefix = "Bearer "
	header := r.Header.Get("Authorization")
	if !strings.HasPrefix(header, prefix) {
		return "", false
	}
	return header[len(prefix):], true
}

// parseCursor reads the optional last_viewed pagination cursor. Nil means the
// first page.
func parseCursor(r *http.Request) (*int64, error) {
	raw := r.URL.Query().Get("last_viewed")
	if raw == "" {
		return nil, nil
	}
	cursor, err := strconv.ParseInt(raw, 10, 32)
	if err != nil || cursor < 0 {
		return nil, &models.ValidationError{Field: "last_viewed", Reason: "must be a non-negative integer"}
	}
	return &cursor, nil
}
