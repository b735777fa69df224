// ABOUTME: Authentication and profile endpoints
// ABOUTME: Login and register persist the returned bearer token
package api

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"golang.org/x/oauth2"

	"github.com/harperreed/telemsg/models"
)

// AuthResult is returned by login and register.
type AuthResult struct {
	Token string      `json:"token"`
	User  models.User `json:"user"`
}

func (c *Client) Login(ctx context.Context, username, password string) (*AuthResult, error) {
	var out AuthResult
	body := map[string]string{"username": username, "password": password}
	if err := c.post(ctx, "/auth/login", body, &out); err != nil {
		return nil, err
	}
	NormalizeUser(&out.User, "")
	if err := c.storeToken(out.Token); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Client) Register(ctx context.Context, name, username, password string) (*AuthResult, error) {
	var out AuthResult
	body := map[string]string{"name": name, "username": username, "password": password}
	if err := c.post(ctx, "/auth/register", body, &out); err != nil {
		return nil, err
	}
	NormalizeUser(&out.User, name)
	if err := c.storeToken(out.Token); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Client) storeToken(token string) error {
	if c.local == nil || token == "" {
		return nil
	}
	if err := c.local.SetToken(token); err != nil {
		return fmt.Errorf("failed to persist token: %w", err)
	}
	return nil
}

// Logout calls the backend and always clears the local token.
// The backend error is returned for logging; callers treat it as best effort.
func (c *Client) Logout(ctx context.Context) error {
	tok := c.Token()
	clearErr := c.ClearToken()
	return errors.Join(c.LogoutWithToken(ctx, tok), clearErr)
}

// LogoutWithToken tells the backend to end the session for tok. Local
// storage is not touched, so callers can clear the token first.
func (c *Client) LogoutWithToken(ctx context.Context, tok string) error {
	if tok == "" {
		return nil
	}
	req, err := c.newRequest(ctx, http.MethodPost, "/auth/logout", nil)
	if err != nil {
		return err
	}
	(&oauth2.Token{AccessToken: tok, TokenType: "Bearer"}).SetAuthHeader(req)
	return c.do(req, nil)
}

// ClearToken drops the persisted token without calling the backend.
func (c *Client) ClearToken() error {
	if c.local == nil {
		return nil
	}
	return c.local.ClearToken()
}

func (c *Client) CurrentUser(ctx context.Context) (*models.User, error) {
	var u models.User
	if err := c.get(ctx, "/users/me", &u); err != nil {
		return nil, err
	}
	return &u, nil
}

func (c *Client) UpdateProfile(ctx context.Context, name, username string) (*models.User, error) {
	var u models.User
	body := map[string]string{"name": name, "username": username}
	if err := c.put(ctx, "/users/profile", body, &u); err != nil {
		return nil, err
	}
	return &u, nil
}

// TokenClaims is what the client can read from a bearer token without the signing key.
type TokenClaims struct {
	UserID    string
	ExpiresAt time.Time
}

// Expired reports whether the token has a known expiry in the past.
func (tc TokenClaims) Expired(now time.Time) bool {
	return !tc.ExpiresAt.IsZero() && now.After(tc.ExpiresAt)
}

// ParseTokenClaims decodes a JWT payload without verifying its signature.
// Non-JWT tokens return an error; callers should then just try the token.
func ParseTokenClaims(token string) (TokenClaims, error) {
	claims := jwt.MapClaims{}
	if _, _, err := jwt.NewParser().ParseUnverified(token, claims); err != nil {
		return TokenClaims{}, fmt.Errorf("failed to parse token: %w", err)
	}

	var tc TokenClaims
	for _, key := range []string{"user_id", "userId", "sub"} {
		if v, ok := claims[key]; ok {
			tc.UserID = fmt.Sprint(v)
			break
		}
	}
	if exp, err := claims.GetExpirationTime(); err == nil && exp != nil {
		tc.ExpiresAt = exp.Time
	}
	return tc, nil
}
