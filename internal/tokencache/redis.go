package tokencache

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/feedwall/backend/internal/db"
	"github.com/feedwall/backend/internal/models"
)

// NewRedis returns a Cache that shares the Redis instance with the feed store.
// Entries expire with the refresh token, so a crashed process cannot resurrect
// a pair the provider would no longer honour.
func NewRedis(client *redis.Client, logger *slog.Logger) *Redis {
	if logger == nil {
		logger = slog.Default()
	}
	return &Redis{client: client, logger: logger}
}

// Redis implements Cache on top of a Redis instance.
//
// Only Get treats connectivity loss as an error: a logout that cannot tell
// whether a token is cached must not silently no-op. Add, Pop and Contains are
// best-effort; losing an entry merely forces the user to re-authenticate.
type Redis struct {
	client *redis.Client
	logger *slog.Logger
}

func tokenKey(accessToken string) string {
	return "token:" + accessToken
}

func (r *Redis) Add(ctx context.Context, tokens models.TokenSet) error {
	ttl := time.Duration(tokens.RefreshExpiresIn) * time.Second
	if ttl < 0 {
		ttl = 0
	}
	err := r.client.Set(ctx, tokenKey(tokens.AccessToken), tokens.RefreshToken, ttl).Err()
	if err != nil && db.IsConnError(err) {
		r.logger.Warn("token cache add failed", "error", err)
		return nil
	}
	return err
}

func (r *Redis) Get(ctx context.Context, accessToken string) (string, bool, error) {
	refresh, err := r.client.Get(ctx, tokenKey(accessToken)).Result()
	switch {
	case err == redis.Nil:
		return "", false, nil
	case err != nil && db.IsConnError(err):
		return "", false, fmt.Errorf("%w: %v", ErrUnavailable, err)
	case err != nil:
		return "", false, err
	}
	return refresh, true, nil
}

func (r *Redis) Pop(ctx context.Context, accessToken string) (string, bool, error) {
	refresh, err := r.client.GetDel(ctx, tokenKey(accessToken)).Result()
	switch {
	case err == redis.Nil:
		return "", false, nil
	case err != nil && db.IsConnError(err):
		r.logger.Warn("token cache pop failed", "error", err)
		return "", false, nil
	case err != nil:
		return "", false, err
	}
	return refresh, true, nil
}

func (r *Redis) Contains(ctx context.Context, accessToken string) (bool, error) {
	n, err := r.client.Exists(ctx, tokenKey(accessToken)).Result()
	if err != nil {
		if db.IsConnError(err) {
			r.logger.Warn("token cache lookup failed", "error", err)
			return false, nil
		}
		return false, err
	}
	return n > 0, nil
}
