package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/golang-jwt/jwt/v5"
	"github.com/redis/go-redis/v9"

	"github.com/feedwall/backend/internal/auth"
	"github.com/feedwall/backend/internal/models"
	"github.com/feedwall/backend/internal/store"
	"github.com/feedwall/backend/internal/tokencache"
)

type fakeIdentity struct {
	registerID  string
	registerErr error

	loginTokens models.TokenSet
	loginErr    error

	logoutErr   error
	logoutCalls int
	loggedOut   string
}

func (f *fakeIdentity) Register(_ context.Context, _ models.Registration) (string, error) {
	if f.registerErr != nil {
		return "", f.registerErr
	}
	return f.registerID, nil
}

func (f *fakeIdentity) Login(_ context.Context, _, _ string) (models.TokenSet, error) {
	if f.loginErr != nil {
		return models.TokenSet{}, f.loginErr
	}
	return f.loginTokens, nil
}

func (f *fakeIdentity) Logout(_ context.Context, refreshToken string) error {
	f.logoutCalls++
	f.loggedOut = refreshToken
	return f.logoutErr
}

// fakeResolver treats every token as belonging to a single configured user.
type fakeResolver struct {
	username   string
	roles      []string
	resolveErr error
}

func (f *fakeResolver) Resolve(_ context.Context, token string) (string, error) {
	if f.resolveErr != nil {
		return "", f.resolveErr
	}
	if token == "" || f.username == "" {
		return "", auth.ErrUnauthorized
	}
	return token, nil
}

func (f *fakeResolver) Claims(_ string) (jwt.MapClaims, error) {
	return jwt.MapClaims{"preferred_username": f.username}, nil
}

func (f *fakeResolver) RequireRole(_ jwt.MapClaims, role string) error {
	for _, have := range f.roles {
		if have == role {
			return nil
		}
	}
	return fmt.Errorf("%w: missing role %q", auth.ErrForbidden, role)
}

type denyLimiter struct{}

func (denyLimiter) Allow(string) bool { return false }

type testEnv struct {
	mux      *http.ServeMux
	store    *store.Store
	identity *fakeIdentity
	resolver *fakeResolver
	tokens   *tokencache.Memory
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()

	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { client.Close() })

	env := &testEnv{
		mux:      http.NewServeMux(),
		store:    store.New(client),
		identity: &fakeIdentity{registerID: "b7f9c2d4-user-id"},
		resolver: &fakeResolver{},
		tokens:   tokencache.NewMemory(),
	}
	RegisterRoutes(env.mux, Dependencies{
		Identity: env.identity,
		Tokens:   env.tokens,
		Store:    env.store,
		Guard:    env.resolver,
	})
	return env
}

func (e *testEnv) do(t *testing.T, method, target, token string, body any) *httptest.ResponseRecorder {
	t.Helper()

	var reader *bytes.Reader
	if body != nil {
		encoded, err := json.Marshal(body)
		if err != nil {
			t.Fatalf("marshal request body: %v", err)
		}
		reader = bytes.NewReader(encoded)
	} else {
		reader = bytes.NewReader(nil)
	}

	req := httptest.NewRequest(method, target, reader)
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	e.mux.ServeHTTP(rec, req)
	return rec
}

func (e *testEnv) seedUser(t *testing.T, username string) {
	t.Helper()
	err := e.store.SetUser(context.Background(), username+"-id", models.User{
		Username:  username,
		FirstName: "Test",
		LastName:  "User",
	})
	if err != nil {
		t.Fatalf("seed user %s: %v", username, err)
	}
}

func (e *testEnv) seedPost(t *testing.T, author, content string) models.PostWithID {
	t.Helper()
	post, err := e.store.AddPost(context.Background(), models.Post{
		Author:    author,
		Content:   content,
		CreatedAt: time.Now().UTC(),
	})
	if err != nil {
		t.Fatalf("seed post by %s: %v", author, err)
	}
	return post
}

func decodeBody(t *testing.T, rec *httptest.ResponseRecorder, dst any) {
	t.Helper()
	if err := json.NewDecoder(rec.Body).Decode(dst); err != nil {
		t.Fatalf("decode response body: %v", err)
	}
}

func postIDs(posts []models.PostWithID) []int64 {
	ids := make([]int64, len(posts))
	for i, p := range posts {
		ids[i] = p.ID
	}
	return ids
}
