package api

import (
	"context"
	"net/http"

	"github.com/go-ports/storefront/internal/models"
)

// Register creates an account.
func (c *Client) Register(ctx context.Context, req models.RegisterRequest) (*models.User, error) {
	var out models.User
	err := c.doJSON(ctx, request{method: http.MethodPost, route: "/auth/register", path: "/auth/register", body: req}, &out)
	if err != nil {
		return nil, err
	}
	return &out, nil
}

// Login exchanges credentials for a token pair.
func (c *Client) Login(ctx context.Context, email, password string) (*models.TokenPair, error) {
	var out models.TokenPair
	body := models.LoginRequest{Email: email, Password: password}
	err := c.doJSON(ctx, request{method: http.MethodPost, route: "/auth/login", path: "/auth/login", body: body}, &out)
	if err != nil {
		return nil, err
	}
	return &out, nil
}

// Refresh exchanges a refresh token for a new token pair.
func (c *Client) Refresh(ctx context.Context, refreshToken string) (*models.TokenPair, error) {
	var out models.TokenPair
	body := map[string]string{"refresh_token": refreshToken}
	err := c.doJSON(ctx, request{method: http.MethodPost, route: "/auth/refresh", path: "/auth/refresh", body: body}, &out)
	if err != nil {
		return nil, err
	}
	return &out, nil
}

// Me returns the user owning the current access token.
func (c *Client) Me(ctx context.Context) (*models.User, error) {
	var out models.User
	err := c.doJSON(ctx, request{method: http.MethodGet, route: "/auth/me", path: "/auth/me", auth: true}, &out)
	if err != nil {
		return nil, err
	}
	return &out, nil
}

// MeWithToken returns the user owning access without consulting the token
// source. Login uses it before the session holds the new tokens.
func (c *Client) MeWithToken(ctx context.Context, access string) (*models.User, error) {
	var out models.User
	err := c.send(ctx, request{method: http.MethodGet, route: "/auth/me", path: "/auth/me"}, nil, access, &out)
	if err != nil {
		return nil, err
	}
	return &out, nil
}
