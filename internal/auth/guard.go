package auth

import (
	"context"
	"errors"
	"fmt"

	"github.com/golang-jwt/jwt/v5"

	"github.com/feedwall/backend/internal/identity"
	"github.com/feedwall/backend/internal/models"
	"github.com/feedwall/backend/internal/tokencache"
)

var (
	// ErrUnauthorized indicates the bearer token is missing, expired or could
	// not be refreshed.
	ErrUnauthorized = errors.New("invalid or expired token")
	// ErrForbidden indicates the token is valid but lacks a required role or
	// does not belong to the acting user.
	ErrForbidden = errors.New("operation not permitted for this token")
)

// IdentityProvider captures the identity-provider operations the guard needs.
type IdentityProvider interface {
	Introspect(ctx context.Context, accessToken string) (identity.Introspection, error)
	Refresh(ctx context.Context, refreshToken string) (models.TokenSet, error)
	Decode(accessToken string) (jwt.MapClaims, error)
}

// Guard resolves bearer tokens for protected requests: introspect first, and
// when the provider reports the token inactive, attempt exactly one refresh
// using the cached refresh token.
type Guard struct {
	provider IdentityProvider
	cache    tokencache.Cache
	clientID string
}

// NewGuard constructs a Guard. clientID names the OIDC client whose roles are
// inspected by RequireRole.
func NewGuard(provider IdentityProvider, cache tokencache.Cache, clientID string) *Guard {
	return &Guard{provider: provider, cache: cache, clientID: clientID}
}

// Resolve turns accessToken into a validated access token, refreshing it if
// the provider no longer considers it active. The returned token may differ
// from the input; callers must use it for the remainder of the request.
//
// The cache entry for the old token is evicted by the pop before the refresh
// is attempted, so a failed refresh leaves no stale pair behind.
func (g *Guard) Resolve(ctx context.Context, accessToken string) (string, error) {
	if accessToken == "" {
		return "", fmt.Errorf("%w: missing bearer token", ErrUnauthorized)
	}

	intro, err := g.provider.Introspect(ctx, accessToken)
	if err != nil {
		return "", err
	}
	if intro.Active {
		return accessToken, nil
	}

	refreshToken, ok, err := g.cache.Pop(ctx, accessToken)
	if err != nil {
		return "", err
	}
	if !ok {
		return "", ErrUnauthorized
	}

	tokens, err := g.provider.Refresh(ctx, refreshToken)
	if err != nil {
		if errors.Is(err, identity.ErrAuth) {
			return "", fmt.Errorf("%w: refresh rejected", ErrUnauthorized)
		}
		return "", err
	}

	if err := g.cache.Add(ctx, tokens); err != nil {
		return "", err
	}
	return tokens.AccessToken, nil
}

// Claims decodes the resolved token's embedded claims. Only call it with a
// token Resolve has vouched for.
func (g *Guard) Claims(accessToken string) (jwt.MapClaims, error) {
	claims, err := g.provider.Decode(accessToken)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrUnauthorized, err)
	}
	return claims, nil
}

// RequireRole checks that the token carries the given client role under
// resource_access.
func (g *Guard) RequireRole(claims jwt.MapClaims, role string) error {
	for _, have := range clientRoles(claims, g.clientID) {
		if have == role {
			return nil
		}
	}
	return fmt.Errorf("%w: missing role %q", ErrForbidden, role)
}

// Username extracts the authenticated username from token claims.
func Username(claims jwt.MapClaims) (string, error) {
	username, ok := claims["preferred_username"].(string)
	if !ok || username == "" {
		return "", fmt.Errorf("%w: token carries no username", ErrUnauthorized)
	}
	return username, nil
}

func clientRoles(claims jwt.MapClaims, clientID string) []string {
	access, ok := claims["resource_access"].(map[string]any)
	if !ok {
		return nil
	}
	clientAccess, ok := access[clientID].(map[string]any)
	if !ok {
		return nil
	}
	raw, ok := clientAccess["roles"].([]any)
	if !ok {
		return nil
	}
	roles := make([]string, 0, len(raw))
	for _, r := range raw {
		if name, ok := r.(string); ok {
			roles = append(roles, name)
		}
	}
	return roles
}
