// Package rest implements the provider boundary against a hosted BaaS
// exposing GoTrue-style auth endpoints and PostgREST-style table endpoints.
package rest

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/basisboard/basisboard/internal/provider"
)

// Client talks to the remote provider over HTTP. The anon API key is sent
// on every request; table and admin operations additionally authenticate
// with the service key, which bypasses provider-side row security.
type Client struct {
	baseURL    string
	apiKey     string
	serviceKey string
	httpClient *http.Client
}

// Option configures a Client.
type Option func(*Client)

// WithHTTPClient overrides the underlying HTTP client.
func WithHTTPClient(c *http.Client) Option {
	return func(cl *Client) { cl.httpClient = c }
}

// New creates a Client for the provider at baseURL.
func New(baseURL, apiKey, serviceKey string, opts ...Option) *Client {
	c := &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		apiKey:     apiKey,
		serviceKey: serviceKey,
		httpClient: &http.Client{Timeout: 15 * time.Second},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

var _ provider.Provider = (*Client)(nil)

type signInResponse struct {
	AccessToken string   `json:"access_token"`
	User        authUser `json:"user"`
}

type authUser struct {
	ID        string `json:"id"`
	Email     string `json:"email"`
	CreatedAt string `json:"created_at"`
}

func (u authUser) principal() *provider.Principal {
	createdAt, _ := time.Parse(time.RFC3339, u.CreatedAt)
	return &provider.Principal{
		ID:        u.ID,
		Email:     u.Email,
		CreatedAt: createdAt,
	}
}

// SignIn exchanges email/password credentials for a principal and an access token.
func (c *Client) SignIn(ctx context.Context, email, password string) (*provider.Principal, string, error) {
	body := map[string]string{"email": email, "password": password}

	resp, err := c.do(ctx, http.MethodPost, "/auth/v1/token?grant_type=password", c.apiKey, "", body)
	if err != nil {
		return nil, "", err
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusOK:
		var out signInResponse
		if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
			return nil, "", fmt.Errorf("decoding sign-in response: %w", err)
		}
		return out.User.principal(), out.AccessToken, nil
	case resp.StatusCode == http.StatusBadRequest, resp.StatusCode == http.StatusUnauthorized:
		return nil, "", provider.ErrInvalidCredentials
	default:
		return nil, "", unexpectedStatus("sign-in", resp)
	}
}

// SignOut revokes the session bound to the token.
func (c *Client) SignOut(ctx context.Context, token string) error {
	resp, err := c.do(ctx, http.MethodPost, "/auth/v1/logout", c.apiKey, token, nil)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 {
		return unexpectedStatus("sign-out", resp)
	}
	return nil
}

// ResolveToken returns the principal the bearer token belongs to.
func (c *Client) ResolveToken(ctx context.Context, token string) (*provider.Principal, error) {
	resp, err := c.do(ctx, http.MethodGet, "/auth/v1/user", c.apiKey, token, nil)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusOK:
		var u authUser
		if err := json.NewDecoder(resp.Body).Decode(&u); err != nil {
			return nil, fmt.Errorf("decoding user response: %w", err)
		}
		if u.ID == "" {
			return nil, provider.ErrInvalidToken
		}
		return u.principal(), nil
	case resp.StatusCode == http.StatusUnauthorized, resp.StatusCode == http.StatusForbidden:
		return nil, provider.ErrInvalidToken
	default:
		return nil, unexpectedStatus("resolve token", resp)
	}
}

// do issues a request with the provider headers set. The key authenticates
// the application; bearer, when non-empty, authenticates the caller.
func (c *Client) do(ctx context.Context, method, path, key, bearer string, body any) (*http.Response, error) {
	var reader io.Reader
	if body != nil {
		buf, err := json.Marshal(body)
		if err != nil {
			return nil, fmt.Errorf("encoding request body: %w", err)
		}
		reader = bytes.NewReader(buf)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return nil, fmt.Errorf("building request: %w", err)
	}

	req.Header.Set("apikey", key)
	if bearer == "" {
		bearer = key
	}
	req.Header.Set("Authorization", "Bearer "+bearer)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%s %s: %v: %w", method, path, err, provider.ErrUnavailable)
	}
	return resp, nil
}

// unexpectedStatus drains the body and maps a non-success status to the
// unavailable sentinel, keeping the provider's message for the logs.
func unexpectedStatus(op string, resp *http.Response) error {
	msg, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
	return fmt.Errorf("%s: status %d %s: %w", op, resp.StatusCode, strings.TrimSpace(string(msg)), provider.ErrUnavailable)
}

func escape(s string) string {
	return url.QueryEscape(s)
}
