package upstream

import (
	"context"
	"fmt"
	"net/http"

	"github.com/onsamiro-welfare-service/onsae-console/internal/core/domain"
)

// LoginKind selects which of the three login endpoints a credential set is
// sent to. The three flows share one request/response shape apart from the
// endpoint and required fields.
type LoginKind string

const (
	// LoginKindUser is the ordinary-user flow, authenticated by an
	// institution-issued login code.
	LoginKindUser LoginKind = "user"

	// LoginKindAdmin is the institution-admin flow.
	LoginKindAdmin LoginKind = "admin"

	// LoginKindSystem is the system-admin flow.
	LoginKindSystem LoginKind = "system"
)

// LoginRequest carries the credentials for any of the three login kinds.
// Unused fields for a given kind are omitted from the wire body.
type LoginRequest struct {
	Kind LoginKind `json:"-"`

	LoginCode     string `json:"loginCode,omitempty"`
	Email         string `json:"email,omitempty"`
	Password      string `json:"password,omitempty"`
	InstitutionID int64  `json:"institutionId,omitempty"`
}

// LoginResult is the token pair and profile returned by a successful login.
type LoginResult struct {
	AccessToken  string         `json:"accessToken"`
	RefreshToken string         `json:"refreshToken"`
	User         domain.Profile `json:"user"`
}

// TokenPair is the result of a refresh exchange.
type TokenPair struct {
	AccessToken  string `json:"accessToken"`
	RefreshToken string `json:"refreshToken"`
}

func (k LoginKind) endpoint() (string, error) {
	switch k {
	case LoginKindUser:
		return "/user/login", nil
	case LoginKindAdmin:
		return "/admin/login", nil
	case LoginKindSystem:
		return "/system/login", nil
	}
	return "", fmt.Errorf("unknown login kind %q", k)
}

// Login authenticates against the endpoint selected by req.Kind.
func (c *Client) Login(ctx context.Context, req LoginRequest) (*LoginResult, error) {
	path, err := req.Kind.endpoint()
	if err != nil {
		return nil, err
	}

	var result LoginResult
	if err := c.do(ctx, http.MethodPost, path, "", req, &result); err != nil {
		return nil, err
	}
	return &result, nil
}

// Refresh exchanges a refresh token for a new token pair.
func (c *Client) Refresh(ctx context.Context, refreshToken string) (*TokenPair, error) {
	body := map[string]string{"refreshToken": refreshToken}

	var pair TokenPair
	if err := c.do(ctx, http.MethodPost, "/auth/refresh", "", body, &pair); err != nil {
		return nil, err
	}
	return &pair, nil
}

// Logout invalidates the session upstream. Best-effort: callers log the
// error and clear local state regardless.
func (c *Client) Logout(ctx context.Context, accessToken string) error {
	return c.do(ctx, http.MethodPost, "/auth/logout", accessToken, nil, nil)
}
