package app

import (
	"log/slog"

	"github.com/redis/go-redis/v9"

	"github.com/feedwall/backend/internal/auth"
	"github.com/feedwall/backend/internal/config"
	"github.com/feedwall/backend/internal/handlers"
	"github.com/feedwall/backend/internal/identity"
	"github.com/feedwall/backend/internal/middleware"
	"github.com/feedwall/backend/internal/store"
	"github.com/feedwall/backend/internal/tokencache"
)

// buildDependencies wires together concrete implementations used by the HTTP
// handlers. The token cache shares the Redis instance with the feed store so
// cached pairs survive process restarts.
func buildDependencies(cfg config.Config, client *redis.Client, logger *slog.Logger) handlers.Dependencies {
	idClient := identity.New(cfg.Keycloak)
	tokens := tokencache.NewRedis(client, logger)
	feedStore := store.New(client)

	return handlers.Dependencies{
		Identity:    idClient,
		Tokens:      tokens,
		Store:       feedStore,
		Guard:       auth.NewGuard(idClient, tokens, cfg.Keycloak.ClientID),
		AuthLimiter: middleware.NewIPRateLimiter(cfg.AuthRateLimit),
	}
}
