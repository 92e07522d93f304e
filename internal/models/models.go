package models

import "time"

// User holds the public attributes of an account mirrored from the identity
// provider into the feed store.
type User struct {
	Username  string `json:"username"`
	FirstName string `json:"first_name"`
	LastName  string `json:"last_name"`
}

// UserWithID extends User with the opaque identifier assigned by the identity
// provider. The identifier is never exposed on the public read path.
type UserWithID struct {
	User
	UserID string `json:"user_id"`
}

// Post is the body of a post before the store has assigned it an ID.
type Post struct {
	Author    string    `json:"author"`
	Content   string    `json:"content"`
	CreatedAt time.Time `json:"created_at"`
}

// PostWithID is a post as persisted, keyed by its store-assigned ID.
type PostWithID struct {
	Post
	ID int64 `json:"post_id"`
}

// TokenSet groups the credentials minted by the identity provider on login or
// refresh. RefreshExpiresIn (seconds) bounds how long the pair is worth caching.
type TokenSet struct {
	AccessToken      string
	RefreshToken     string
	RefreshExpiresIn int
}

// Registration carries the fields required to create a new account.
type Registration struct {
	Email          string
	Username       string
	Password       string
	PasswordRepeat string
	FirstName      string
	LastName       string
}
