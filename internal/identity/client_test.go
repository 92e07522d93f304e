package identity

import (
	"context"
	"errors"
	"net/http"
	"testing"

	"github.com/Nerzal/gocloak/v13"
	"github.com/golang-jwt/jwt/v5"

	"github.com/feedwall/backend/internal/config"
	"github.com/feedwall/backend/internal/models"
)

type fakeKeycloak struct {
	loginJWT *gocloak.JWT
	loginErr error

	logoutErr error

	retrospectResult *gocloak.IntroSpectTokenResult
	retrospectErr    error

	refreshJWT *gocloak.JWT
	refreshErr error

	adminJWT *gocloak.JWT
	adminErr error

	createdUser   gocloak.User
	createUserID  string
	createUserErr error

	clients    []*gocloak.Client
	clientsErr error

	roles    []*gocloak.Role
	rolesErr error

	assignedRoles []gocloak.Role
	assignErr     error
}

func (f *fakeKeycloak) Login(_ context.Context, _, _, _, _, _ string) (*gocloak.JWT, error) {
	return f.loginJWT, f.loginErr
}

func (f *fakeKeycloak) Logout(_ context.Context, _, _, _, _ string) error {
	return f.logoutErr
}

func (f *fakeKeycloak) RetrospectToken(_ context.Context, _, _, _, _ string) (*gocloak.IntroSpectTokenResult, error) {
	return f.retrospectResult, f.retrospectErr
}

func (f *fakeKeycloak) RefreshToken(_ context.Context, _, _, _, _ string) (*gocloak.JWT, error) {
	return f.refreshJWT, f.refreshErr
}

func (f *fakeKeycloak) LoginAdmin(_ context.Context, _, _, _ string) (*gocloak.JWT, error) {
	return f.adminJWT, f.adminErr
}

func (f *fakeKeycloak) CreateUser(_ context.Context, _, _ string, user gocloak.User) (string, error) {
	f.createdUser = user
	return f.createUserID, f.createUserErr
}

func (f *fakeKeycloak) GetClients(_ context.Context, _, _ string, _ gocloak.GetClientsParams) ([]*gocloak.Client, error) {
	return f.clients, f.clientsErr
}

func (f *fakeKeycloak) GetClientRoles(_ context.Context, _, _, _ string, _ gocloak.GetRoleParams) ([]*gocloak.Role, error) {
	return f.roles, f.rolesErr
}

func (f *fakeKeycloak) AddClientRolesToUser(_ context.Context, _, _, _, _ string, roles []gocloak.Role) error {
	f.assignedRoles = roles
	return f.assignErr
}

func newTestClient(kc *fakeKeycloak) *Client {
	return &Client{kc: kc, cfg: config.KeycloakConfig{
		Realm:    "feedwall",
		ClientID: "feedwall-backend",
	}}
}

func apiError(code int, message string) error {
	return &gocloak.APIError{Code: code, Message: message}
}

func TestLogin(t *testing.T) {
	kc := &fakeKeycloak{loginJWT: &gocloak.JWT{
		AccessToken:      "access-1",
		RefreshToken:     "refresh-1",
		RefreshExpiresIn: 1800,
	}}
	client := newTestClient(kc)

	tokens, err := client.Login(context.Background(), "first_user", "super-secret")
	if err != nil {
		t.Fatalf("login: %v", err)
	}
	if tokens.AccessToken != "access-1" || tokens.RefreshToken != "refresh-1" || tokens.RefreshExpiresIn != 1800 {
		t.Fatalf("unexpected token set %+v", tokens)
	}
}

func TestLoginBadCredentials(t *testing.T) {
	kc := &fakeKeycloak{loginErr: apiError(http.StatusUnauthorized, "invalid user credentials")}
	client := newTestClient(kc)

	_, err := client.Login(context.Background(), "first_user", "wrong")
	if !errors.Is(err, ErrAuth) {
		t.Fatalf("expected ErrAuth got %v", err)
	}
}

func TestLoginProviderUnreachable(t *testing.T) {
	kc := &fakeKeycloak{loginErr: errors.New("dial tcp: connection refused")}
	client := newTestClient(kc)

	_, err := client.Login(context.Background(), "first_user", "super-secret")
	if !errors.Is(err, ErrUnavailable) {
		t.Fatalf("expected ErrUnavailable got %v", err)
	}
}

func TestLogoutInvalidGrantTolerated(t *testing.T) {
	kc := &fakeKeycloak{logoutErr: apiError(http.StatusBadRequest, `{"error":"invalid_grant"}`)}
	client := newTestClient(kc)

	if err := client.Logout(context.Background(), "refresh-1"); err != nil {
		t.Fatalf("expected already-revoked token to be tolerated: %v", err)
	}
}

func TestLogoutProviderUnreachable(t *testing.T) {
	kc := &fakeKeycloak{logoutErr: errors.New("dial tcp: connection refused")}
	client := newTestClient(kc)

	if err := client.Logout(context.Background(), "refresh-1"); !errors.Is(err, ErrUnavailable) {
		t.Fatalf("expected ErrUnavailable got %v", err)
	}
}

func TestIntrospect(t *testing.T) {
	active := true
	kc := &fakeKeycloak{retrospectResult: &gocloak.IntroSpectTokenResult{Active: &active}}
	client := newTestClient(kc)

	intro, err := client.Introspect(context.Background(), "access-1")
	if err != nil {
		t.Fatalf("introspect: %v", err)
	}
	if !intro.Active {
		t.Fatal("expected active verdict")
	}
}

func TestIntrospectUnattributableToken(t *testing.T) {
	kc := &fakeKeycloak{retrospectErr: apiError(http.StatusUnauthorized, "invalid token")}
	client := newTestClient(kc)

	intro, err := client.Introspect(context.Background(), "garbage")
	if err != nil {
		t.Fatalf("expected inactive verdict, not an error: %v", err)
	}
	if intro.Active {
		t.Fatal("expected inactive verdict")
	}
}

func TestIntrospectProviderUnreachable(t *testing.T) {
	kc := &fakeKeycloak{retrospectErr: errors.New("dial tcp: connection refused")}
	client := newTestClient(kc)

	_, err := client.Introspect(context.Background(), "access-1")
	if !errors.Is(err, ErrUnavailable) {
		t.Fatalf("expected ErrUnavailable got %v", err)
	}
}

func TestRefreshExpiredToken(t *testing.T) {
	kc := &fakeKeycloak{refreshErr: apiError(http.StatusBadRequest, `{"error":"invalid_grant"}`)}
	client := newTestClient(kc)

	_, err := client.Refresh(context.Background(), "refresh-1")
	if !errors.Is(err, ErrAuth) {
		t.Fatalf("expected ErrAuth got %v", err)
	}
}

func TestDecode(t *testing.T) {
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"preferred_username": "first_user",
	}).SignedString([]byte("test-signing-key"))
	if err != nil {
		t.Fatalf("sign token: %v", err)
	}

	client := newTestClient(&fakeKeycloak{})
	claims, err := client.Decode(signed)
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	if claims["preferred_username"] != "first_user" {
		t.Fatalf("unexpected claims %v", claims)
	}
}

func TestDecodeMalformed(t *testing.T) {
	client := newTestClient(&fakeKeycloak{})

	if _, err := client.Decode("not-a-jwt"); !errors.Is(err, ErrAuth) {
		t.Fatalf("expected ErrAuth got %v", err)
	}
}

func TestRegister(t *testing.T) {
	clientUUID := "client-uuid"
	roleName := RoleCanPost
	otherRole := "can-moderate"
	kc := &fakeKeycloak{
		adminJWT:     &gocloak.JWT{AccessToken: "admin-token"},
		createUserID: "new-user-id",
		clients:      []*gocloak.Client{{ID: &clientUUID}},
		roles: []*gocloak.Role{
			{Name: &otherRole},
			{Name: &roleName},
		},
	}
	client := newTestClient(kc)

	userID, err := client.Register(context.Background(), testRegistration())
	if err != nil {
		t.Fatalf("register: %v", err)
	}
	if userID != "new-user-id" {
		t.Fatalf("unexpected user id %q", userID)
	}

	created := kc.createdUser
	if created.Username == nil || *created.Username != "first_user" {
		t.Fatalf("unexpected created user %+v", created)
	}
	if created.Enabled == nil || !*created.Enabled {
		t.Fatal("expected account enabled at creation")
	}
	if created.Credentials == nil || len(*created.Credentials) != 1 || *(*created.Credentials)[0].Temporary {
		t.Fatal("expected a permanent password credential")
	}

	if len(kc.assignedRoles) != 1 || kc.assignedRoles[0].Name == nil || *kc.assignedRoles[0].Name != RoleCanPost {
		t.Fatalf("expected the posting role assigned, got %+v", kc.assignedRoles)
	}
}

func TestRegisterDuplicate(t *testing.T) {
	kc := &fakeKeycloak{
		adminJWT:      &gocloak.JWT{AccessToken: "admin-token"},
		createUserErr: apiError(http.StatusConflict, "user exists with same username"),
	}
	client := newTestClient(kc)

	_, err := client.Register(context.Background(), testRegistration())
	if !errors.Is(err, ErrConflict) {
		t.Fatalf("expected ErrConflict got %v", err)
	}
}

func TestRegisterRoleNotConfigured(t *testing.T) {
	clientUUID := "client-uuid"
	kc := &fakeKeycloak{
		adminJWT:     &gocloak.JWT{AccessToken: "admin-token"},
		createUserID: "new-user-id",
		clients:      []*gocloak.Client{{ID: &clientUUID}},
	}
	client := newTestClient(kc)

	// A realm without the posting role still registers the account.
	userID, err := client.Register(context.Background(), testRegistration())
	if err != nil {
		t.Fatalf("register: %v", err)
	}
	if userID != "new-user-id" {
		t.Fatalf("unexpected user id %q", userID)
	}
	if kc.assignedRoles != nil {
		t.Fatalf("expected no role assignment, got %+v", kc.assignedRoles)
	}
}

func testRegistration() models.Registration {
	return models.Registration{
		Email:          "first.user@example.com",
		Username:       "first_user",
		Password:       "super-secret",
		PasswordRepeat: "super-secret",
		FirstName:      "First",
		LastName:       "User",
	}
}
