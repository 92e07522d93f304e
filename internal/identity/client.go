package identity

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/Nerzal/gocloak/v13"
	"github.com/golang-jwt/jwt/v5"

	"github.com/feedwall/backend/internal/config"
	"github.com/feedwall/backend/internal/models"
)

// RoleCanPost is the client role every registered account receives; posting
// endpoints require it.
const RoleCanPost = "can-post"

// Introspection is the provider's verdict on an access token. An inactive
// token is a normal result, not an error.
type Introspection struct {
	Active bool
}

// keycloakAPI narrows the gocloak surface used by the client so tests can
// substitute a fake. *gocloak.GoCloak satisfies it.
type keycloakAPI interface {
	Login(ctx context.Context, clientID, clientSecret, realm, username, password string) (*gocloak.JWT, error)
	Logout(ctx context.Context, clientID, clientSecret, realm, refreshToken string) error
	RetrospectToken(ctx context.Context, accessToken, clientID, clientSecret, realm string) (*gocloak.IntroSpectTokenResult, error)
	RefreshToken(ctx context.Context, refreshToken, clientID, clientSecret, realm string) (*gocloak.JWT, error)
	LoginAdmin(ctx context.Context, username, password, realm string) (*gocloak.JWT, error)
	CreateUser(ctx context.Context, token, realm string, user gocloak.User) (string, error)
	GetClients(ctx context.Context, accessToken, realm string, params gocloak.GetClientsParams) ([]*gocloak.Client, error)
	GetClientRoles(ctx context.Context, accessToken, realm, idOfClient string, params gocloak.GetRoleParams) ([]*gocloak.Role, error)
	AddClientRolesToUser(ctx context.Context, token, realm, idOfClient, userID string, roles []gocloak.Role) error
}

// Client wraps the Keycloak OIDC and admin APIs for a single realm. The target
// realm is passed explicitly on every call, so the client carries no mutable
// realm state.
type Client struct {
	kc  keycloakAPI
	cfg config.KeycloakConfig
}

// New constructs a Client talking to the Keycloak instance named in cfg.
func New(cfg config.KeycloakConfig) *Client {
	return &Client{kc: gocloak.NewClient(cfg.BaseURL), cfg: cfg}
}

// Login performs a password grant and returns the minted token pair.
func (c *Client) Login(ctx context.Context, username, password string) (models.TokenSet, error) {
	token, err := c.kc.Login(ctx, c.cfg.ClientID, c.cfg.ClientSecret, c.cfg.Realm, username, password)
	if err != nil {
		return models.TokenSet{}, classify(err)
	}
	return tokenSet(token), nil
}

// Logout revokes the session behind refreshToken. A token the provider no
// longer recognises ("invalid_grant") is treated as already logged out.
func (c *Client) Logout(ctx context.Context, refreshToken string) error {
	err := c.kc.Logout(ctx, c.cfg.ClientID, c.cfg.ClientSecret, c.cfg.Realm, refreshToken)
	if err == nil {
		return nil
	}
	var apiErr *gocloak.APIError
	if errors.As(err, &apiErr) && strings.Contains(apiErr.Message, "invalid_grant") {
		return nil
	}
	return classify(err)
}

// Introspect asks the provider whether accessToken is currently active.
func (c *Client) Introspect(ctx context.Context, accessToken string) (Introspection, error) {
	result, err := c.kc.RetrospectToken(ctx, accessToken, c.cfg.ClientID, c.cfg.ClientSecret, c.cfg.Realm)
	if err != nil {
		var apiErr *gocloak.APIError
		if !errors.As(err, &apiErr) {
			return Introspection{}, fmt.Errorf("%w: %v", ErrUnavailable, err)
		}
		// The provider answers 401 for tokens it cannot attribute to the
		// realm at all; that is still just an inactive token.
		if apiErr.Code == http.StatusUnauthorized || apiErr.Code == http.StatusBadRequest {
			return Introspection{Active: false}, nil
		}
		return Introspection{}, err
	}
	return Introspection{Active: result.Active != nil && *result.Active}, nil
}

// Refresh exchanges refreshToken for a fresh token pair.
func (c *Client) Refresh(ctx context.Context, refreshToken string) (models.TokenSet, error) {
	token, err := c.kc.RefreshToken(ctx, refreshToken, c.cfg.ClientID, c.cfg.ClientSecret, c.cfg.Realm)
	if err != nil {
		return models.TokenSet{}, classify(err)
	}
	return tokenSet(token), nil
}

// Decode extracts the claims embedded in accessToken without contacting the
// provider. The signature is not checked here: callers only decode tokens that
// introspection or a refresh has already vouched for.
func (c *Client) Decode(accessToken string) (jwt.MapClaims, error) {
	claims := jwt.MapClaims{}
	if _, _, err := jwt.NewParser().ParseUnverified(accessToken, claims); err != nil {
		return nil, fmt.Errorf("%w: malformed access token: %v", ErrAuth, err)
	}
	return claims, nil
}

// Register creates an enabled, email-verified account with a permanent
// password and assigns it the default posting role. Returns the provider's
// user ID.
func (c *Client) Register(ctx context.Context, reg models.Registration) (string, error) {
	admin, err := c.kc.LoginAdmin(ctx, c.cfg.AdminUsername, c.cfg.AdminPassword, c.cfg.AdminRealm)
	if err != nil {
		return "", classify(err)
	}

	userID, err := c.kc.CreateUser(ctx, admin.AccessToken, c.cfg.Realm, gocloak.User{
		Username:      gocloak.StringP(reg.Username),
		Enabled:       gocloak.BoolP(true),
		FirstName:     gocloak.StringP(reg.FirstName),
		LastName:      gocloak.StringP(reg.LastName),
		Email:         gocloak.StringP(reg.Email),
		EmailVerified: gocloak.BoolP(true),
		Credentials: &[]gocloak.CredentialRepresentation{{
			Type:      gocloak.StringP("password"),
			Value:     gocloak.StringP(reg.Password),
			Temporary: gocloak.BoolP(false),
		}},
	})
	if err != nil {
		return "", classify(err)
	}

	if err := c.assignDefaultRoles(ctx, admin.AccessToken, userID); err != nil {
		return "", err
	}
	return userID, nil
}

// assignDefaultRoles grants the posting role to a freshly created user. A realm
// without the role configured leaves the user without it rather than failing
// registration.
func (c *Client) assignDefaultRoles(ctx context.Context, adminToken, userID string) error {
	clients, err := c.kc.GetClients(ctx, adminToken, c.cfg.Realm, gocloak.GetClientsParams{
		ClientID: gocloak.StringP(c.cfg.ClientID),
	})
	if err != nil {
		return classify(err)
	}
	if len(clients) == 0 || clients[0].ID == nil {
		return fmt.Errorf("client %q not found in realm %q", c.cfg.ClientID, c.cfg.Realm)
	}
	idOfClient := *clients[0].ID

	roles, err := c.kc.GetClientRoles(ctx, adminToken, c.cfg.Realm, idOfClient, gocloak.GetRoleParams{})
	if err != nil {
		return classify(err)
	}

	var assign []gocloak.Role
	for _, role := range roles {
		if role != nil && role.Name != nil && *role.Name == RoleCanPost {
			assign = append(assign, *role)
		}
	}
	if len(assign) == 0 {
		return nil
	}

	if err := c.kc.AddClientRolesToUser(ctx, adminToken, c.cfg.Realm, idOfClient, userID, assign); err != nil {
		return classify(err)
	}
	return nil
}

// classify translates gocloak errors into the package taxonomy: provider HTTP
// errors become ErrAuth or ErrConflict, everything else means the provider was
// unreachable.
func classify(err error) error {
	var apiErr *gocloak.APIError
	if !errors.As(err, &apiErr) {
		return fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	switch apiErr.Code {
	case http.StatusConflict:
		return fmt.Errorf("%w: %s", ErrConflict, apiErr.Message)
	case http.StatusUnauthorized, http.StatusBadRequest, http.StatusForbidden:
		return fmt.Errorf("%w: %s", ErrAuth, apiErr.Message)
	default:
		return err
	}
}

func tokenSet(token *gocloak.JWT) models.TokenSet {
	return models.TokenSet{
		AccessToken:      token.AccessToken,
		RefreshToken:     token.RefreshToken,
		RefreshExpiresIn: token.RefreshExpiresIn,
	}
}
