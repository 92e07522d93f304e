package handlers

import (
	"context"

	"github.com/golang-jwt/jwt/v5"

	"github.com/feedwall/backend/internal/models"
)

// IdentityClient captures the identity-provider operations required by the
// auth handlers.
type IdentityClient interface {
	Login(ctx context.Context, username, password string) (models.TokenSet, error)
	Logout(ctx context.Context, refreshToken string) error
	Register(ctx context.Context, reg models.Registration) (string, error)
}

// TokenResolver resolves bearer tokens into validated (possibly rotated)
// access tokens and inspects their claims.
type TokenResolver interface {
	Resolve(ctx context.Context, accessToken string) (string, error)
	Claims(accessToken string) (jwt.MapClaims, error)
	RequireRole(claims jwt.MapClaims, role string) error
}

// TokenCache captures the access/refresh pair operations the logout and login
// handlers need.
type TokenCache interface {
	Add(ctx context.Context, tokens models.TokenSet) error
	Get(ctx context.Context, accessToken string) (string, bool, error)
	Pop(ctx context.Context, accessToken string) (string, bool, error)
}

// FeedStore captures the persistence operations required by the user, post,
// follower and feed handlers.
type FeedStore interface {
	SetUser(ctx context.Context, userID string, user models.User) error
	GetUser(ctx context.Context, username string) (models.UserWithID, error)

	AddFollower(ctx context.Context, username, follower string) error
	RemoveFollower(ctx context.Context, username, follower string) error
	GetFollowers(ctx context.Context, username string, lastViewed *int64) ([]string, error)

	AddPost(ctx context.Context, post models.Post) (models.PostWithID, error)
	GetPost(ctx context.Context, id int64) (models.PostWithID, error)
	GetUserPosts(ctx context.Context, username string, lastViewed *int64) ([]models.PostWithID, error)
	GetUserPostIDs(ctx context.Context, username string) ([]int64, error)

	FanOutToFollowers(ctx context.Context, post models.PostWithID) error
	AddPostIDsToFeed(ctx context.Context, username string, ids []int64) error
	RemovePostIDsFromFeed(ctx context.Context, username string, ids []int64) error
	GetFeed(ctx context.Context, username string, lastViewed *int64) ([]models.PostWithID, error)
}
