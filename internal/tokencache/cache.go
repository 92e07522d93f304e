package tokencache

import (
	"context"
	"errors"
	"sync"

	"github.com/feedwall/backend/internal/models"
)

// ErrUnavailable indicates the backing store could not be reached when the
// answer had to be authoritative.
var ErrUnavailable = errors.New("token cache unreachable")

// Cache maps a currently-valid access token to its paired refresh token. At
// most one refresh token is associated with an access token at a time.
type Cache interface {
	// Add stores the pair, bounded by the refresh token's lifetime where the
	// backing store supports expiry.
	Add(ctx context.Context, tokens models.TokenSet) error
	// Get returns the refresh token paired with accessToken without removing
	// it. A store that cannot answer reliably returns ErrUnavailable rather
	// than guessing "absent".
	Get(ctx context.Context, accessToken string) (string, bool, error)
	// Pop atomically removes and returns the paired refresh token.
	Pop(ctx context.Context, accessToken string) (string, bool, error)
	// Contains reports whether accessToken has a cached pair.
	Contains(ctx context.Context, accessToken string) (bool, error)
}

// NewMemory returns a Cache backed by an in-process map, safe for concurrent
// use across request handlers.
func NewMemory() *Memory {
	return &Memory{tokens: make(map[string]string)}
}

// Memory implements Cache for tests and single-process deployments. Entries do
// not expire; a popped or logged-out token is simply gone.
type Memory struct {
	mu     sync.RWMutex
	tokens map[string]string
}

func (m *Memory) Add(_ context.Context, tokens models.TokenSet) error {
	m.mu.Lock()
	m.tokens[tokens.AccessToken] = tokens.RefreshToken
	m.mu.Unlock()
	return nil
}

func (m *Memory) Get(_ context.Context, accessToken string) (string, bool, error) {
	m.mu.RLock()
	refresh, ok := m.tokens[accessToken]
	m.mu.RUnlock()
	return refresh, ok, nil
}

func (m *Memory) Pop(_ context.Context, accessToken string) (string, bool, error) {
	m.mu.Lock()
	refresh, ok := m.tokens[accessToken]
	if ok {
		delete(m.tokens, accessToken)
	}
	m.mu.Unlock()
	return refresh, ok, nil
}

func (m *Memory) Contains(_ context.Context, accessToken string) (bool, error) {
	m.mu.RLock()
	_, ok := m.tokens[accessToken]
	m.mu.RUnlock()
	return ok, nil
}
