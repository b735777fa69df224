// ABOUTME: REST client for the TeleMsg backend
// ABOUTME: JSON requests with bearer auth, typed failures and fixture fallback for admin reads
package api

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/charmbracelet/log"
	"github.com/google/uuid"
	"golang.org/x/oauth2"
)

// TokenStore persists the bearer token.
type TokenStore interface {
	Token() string
	SetToken(token string) error
	ClearToken() error
}

// PermissionStore is the local fallback for role permission edits.
type PermissionStore interface {
	SaveMockRolePermissions(roleID string, ids []string) error
	MockRolePermissions(roleID string) ([]string, error)
}

// LocalStore is everything the client persists locally.
type LocalStore interface {
	TokenStore
	PermissionStore
}

type Options struct {
	BaseURL         string
	Timeout         time.Duration
	FixtureFallback bool
	Logger          *log.Logger
	HTTPClient      *http.Client
}

// Client talks to the backend REST API.
type Client struct {
	baseURL         string
	http            *http.Client
	local           LocalStore
	fixtureFallback bool
	logger          *log.Logger
}

func New(opts Options, local LocalStore) *Client {
	httpClient := opts.HTTPClient
	if httpClient == nil {
		timeout := opts.Timeout
		if timeout <= 0 {
			timeout = 15 * time.Second
		}
		httpClient = &http.Client{Timeout: timeout}
	}
	logger := opts.Logger
	if logger == nil {
		logger = log.New(io.Discard)
	}
	return &Client{
		baseURL:         strings.TrimRight(opts.BaseURL, "/"),
		http:            httpClient,
		local:           local,
		fixtureFallback: opts.FixtureFallback,
		logger:          logger,
	}
}

func (c *Client) BaseURL() string {
	return c.baseURL
}

// Token returns the persisted bearer token.
func (c *Client) Token() string {
	if c.local == nil {
		return ""
	}
	return c.local.Token()
}

// authorize attaches the bearer token when one is stored.
func (c *Client) authorize(req *http.Request) {
	tok := c.Token()
	if tok == "" {
		return
	}
	(&oauth2.Token{AccessToken: tok, TokenType: "Bearer"}).SetAuthHeader(req)
}

func (c *Client) newRequest(ctx context.Context, method, endpoint string, body io.Reader) (*http.Request, error) {
	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+endpoint, body)
	if err != nil {
		return nil, fmt.Errorf("failed to build request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("X-Request-ID", uuid.NewString())
	c.authorize(req)
	return req, nil
}

// request sends a JSON request and decodes a JSON response into out (if non-nil).
func (c *Client) request(ctx context.Context, method, endpoint string, body, out any) error {
	var reader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("failed to encode request: %w", err)
		}
		reader = bytes.NewReader(data)
	}

	req, err := c.newRequest(ctx, method, endpoint, reader)
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	return c.do(req, out)
}

// do sends a prepared request and maps non-2xx answers to *Error.
func (c *Client) do(req *http.Request, out any) error {
	resp, err := c.http.Do(req)
	if err != nil {
		if ctxErr := req.Context().Err(); ctxErr != nil {
			return ctxErr
		}
		return networkError(err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		apiErr := errorFromResponse(resp)
		c.logger.Debug("request failed", "method", req.Method, "endpoint", req.URL.Path, "status", resp.StatusCode, "err", apiErr)
		return apiErr
	}

	return decodeBody(resp.Body, out)
}

// decodeBody unmarshals a response, unwrapping {code, message, data} envelopes.
func decodeBody(r io.Reader, out any) error {
	data, err := io.ReadAll(r)
	if err != nil {
		return networkError(err)
	}
	if out == nil || len(bytes.TrimSpace(data)) == 0 {
		return nil
	}

	var envelope struct {
		Code *int            `json:"code"`
		Data json.RawMessage `json:"data"`
	}
	if bytes.HasPrefix(bytes.TrimSpace(data), []byte("{")) &&
		json.Unmarshal(data, &envelope) == nil && envelope.Code != nil && len(envelope.Data) > 0 {
		data = envelope.Data
	}

	if err := json.Unmarshal(data, out); err != nil {
		return &Error{Kind: KindDecode, Message: "failed to decode response", Err: err}
	}
	return nil
}

func (c *Client) get(ctx context.Context, endpoint string, out any) error {
	return c.request(ctx, http.MethodGet, endpoint, nil, out)
}

func (c *Client) post(ctx context.Context, endpoint string, body, out any) error {
	return c.request(ctx, http.MethodPost, endpoint, body, out)
}

func (c *Client) put(ctx context.Context, endpoint string, body, out any) error {
	return c.request(ctx, http.MethodPut, endpoint, body, out)
}

func (c *Client) del(ctx context.Context, endpoint string) error {
	return c.request(ctx, http.MethodDelete, endpoint, nil, nil)
}

// withFixture substitutes fixture data when fallback is enabled and the live call fails.
func withFixture[T any](c *Client, endpoint string, err error, live T, fixture func() T) (T, error) {
	if err == nil {
		return live, nil
	}
	if !c.fixtureFallback || errors.Is(err, context.Canceled) {
		return live, err
	}
	c.logger.Warn("backend unavailable, serving fixture data", "endpoint", endpoint, "err", err)
	return fixture(), nil
}

// WebSocketURL derives the push channel address from the REST base URL.
func (c *Client) WebSocketURL(userID string) string {
	base := c.baseURL
	switch {
	case strings.HasPrefix(base, "https://"):
		base = "wss://" + strings.TrimPrefix(base, "https://")
	case strings.HasPrefix(base, "http://"):
		base = "ws://" + strings.TrimPrefix(base, "http://")
	}
	q := url.Values{}
	q.Set("token", c.Token())
	q.Set("userId", userID)
	return base + "/ws?" + q.Encode()
}

func escape(id string) string {
	return url.PathEscape(id)
}
