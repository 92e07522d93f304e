package identity

import "errors"

var (
	// ErrAuth indicates the identity provider rejected the credentials, token
	// or grant (bad password, expired refresh token, half-configured account).
	ErrAuth = errors.New("identity provider rejected credentials")
	// ErrConflict indicates an account with the same username or email exists.
	ErrConflict = errors.New("account already exists")
	// ErrUnavailable indicates the identity provider could not be reached.
	ErrUnavailable = errors.New("identity provider unreachable")
)
