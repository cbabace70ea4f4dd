// Package authapi is the raw client for the backend authentication
// endpoints. These calls are never routed through the authenticated request
// pipeline: attaching a bearer token to a login call, or refreshing while
// refreshing, would be nonsensical.
package authapi

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/pkg/errors"
	"github.com/rs/zerolog"
)

// BasePath is the auth endpoint prefix. The request pipeline uses it to
// identify calls that must bypass token attachment and 401 handling.
const BasePath = "/api/v1/auth"

const defaultTimeout = 30 * time.Second

// Client calls the backend auth endpoints with a plain, uninstrumented
// http.Client.
type Client struct {
	baseURL string
	httpc   *http.Client
	log     zerolog.Logger
}

// Option configures a Client.
type Option func(*Client)

// WithHTTPClient replaces the underlying http.Client. The replacement must
// not carry the authenticated pipeline transport.
func WithHTTPClient(httpc *http.Client) Option {
	return func(c *Client) {
		c.httpc = httpc
	}
}

// WithLogger sets the client logger.
func WithLogger(log zerolog.Logger) Option {
	return func(c *Client) {
		c.log = log
	}
}

func New(baseURL string, options ...Option) *Client {
	c := &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		httpc:   &http.Client{Timeout: defaultTimeout},
		log:     zerolog.Nop(),
	}
	for _, opt := range options {
		opt(c)
	}
	return c
}

// Authenticate exchanges credentials for a token pair.
func (c *Client) Authenticate(ctx context.Context, credentials Credentials) (*JWTResponse, error) {
	var response JWTResponse
	if err := c.postJSON(ctx, "/authenticate", credentials, &response); err != nil {
		return nil, errors.Wrap(err, "[Authenticate] postJSON")
	}
	return &response, nil
}

// Refresh exchanges the long-lived refresh token for a new access token.
func (c *Client) Refresh(ctx context.Context, refreshToken string) (*RefreshResponse, error) {
	body := map[string]string{"refreshToken": refreshToken}

	var response RefreshResponse
	if err := c.postJSON(ctx, "/refreshtoken", body, &response); err != nil {
		return nil, errors.Wrap(err, "[Refresh] postJSON")
	}
	return &response, nil
}

// Logout invalidates the refresh token server-side. Callers treat it as
// best-effort: the local session is torn down whether or not this succeeds.
func (c *Client) Logout(ctx context.Context, refreshToken string) error {
	body := map[string]string{"refreshToken": refreshToken}
	return c.postJSON(ctx, "/logout", body, nil)
}

// Register creates admin/reviewer accounts.
func (c *Client) Register(ctx context.Context, request AccountRequest) error {
	return c.postJSON(ctx, "/register", request, nil)
}

// CreateAccount runs the self-service account creation flow. The backend
// returns a token pair immediately.
func (c *Client) CreateAccount(ctx context.Context, request AccountRequest) (*JWTResponse, error) {
	var response JWTResponse
	if err := c.postJSON(ctx, "/create-account", request, &response); err != nil {
		return nil, errors.Wrap(err, "[CreateAccount] postJSON")
	}
	return &response, nil
}

// ActivateAccount finishes account creation with the emailed token.
func (c *Client) ActivateAccount(ctx context.Context, token, password string) error {
	body := map[string]string{"token": token, "password": password}
	return c.postJSON(ctx, "/activate-account", body, nil)
}

// ResendActivation requests a fresh activation link.
func (c *Client) ResendActivation(ctx context.Context, email string) error {
	body := map[string]string{"email": email}
	return c.postJSON(ctx, "/resend-activation", body, nil)
}

func (c *Client) postJSON(ctx context.Context, path string, body, out any) error {
	payload, err := json.Marshal(body)
	if err != nil {
		return errors.Wrap(err, "[postJSON] Marshal")
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+BasePath+path, bytes.NewReader(payload))
	if err != nil {
		return errors.Wrap(err, "[postJSON] NewRequest")
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpc.Do(req)
	if err != nil {
		return errors.Wrap(err, "[postJSON] Do")
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		apiErr := &APIError{Status: resp.StatusCode}
		// Error bodies are decoded best-effort; the status code alone is
		// enough to act on.
		if data, readErr := io.ReadAll(io.LimitReader(resp.Body, 1<<16)); readErr == nil {
			_ = json.Unmarshal(data, apiErr)
		}
		c.log.Debug().Int("status", resp.StatusCode).Str("path", path).Msg("auth endpoint returned error")
		return apiErr
	}

	if out == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return errors.Wrap(err, "[postJSON] Decode")
	}
	return nil
}
