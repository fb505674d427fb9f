// Package api is the HTTP client for the auth endpoints. It speaks the
// same JSON shapes the server responds with and surfaces failures as
// typed *Error values carrying the server's machine-readable code.
package api

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"
)

// User mirrors the server's user response, password never included.
type User struct {
	ID        int64     `json:"id"`
	Email     string    `json:"email"`
	Name      string    `json:"name"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

// LoginCredentials are the inputs to Login.
type LoginCredentials struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// RegisterCredentials are the inputs to Register.
type RegisterCredentials struct {
	Email    string `json:"email"`
	Password string `json:"password"`
	Name     string `json:"name"`
}

// LoginResponse is the payload of a successful login.
type LoginResponse struct {
	User         *User  `json:"user"`
	SessionToken string `json:"sessionToken"`
}

// RefreshResponse is the payload of a successful session rotation.
type RefreshResponse struct {
	SessionToken string    `json:"sessionToken"`
	ExpiresAt    time.Time `json:"expiresAt"`
	User         *User     `json:"user"`
}

// LogoutResponse acknowledges a deleted session.
type LogoutResponse struct {
	Message   string `json:"message"`
	SessionID int64  `json:"sessionId"`
}

// Client calls the auth endpoints of a maybewheel server.
type Client struct {
	baseURL    string
	httpClient *http.Client
}

// NewClient creates a Client for the given base URL. A nil httpClient
// falls back to http.DefaultClient.
func NewClient(baseURL string, httpClient *http.Client) *Client {
	if httpClient == nil {
		httpClient = http.DefaultClient
	}
	return &Client{baseURL: baseURL, httpClient: httpClient}
}

// Register creates an account. The server does not log the user in;
// callers chain Login themselves.
func (c *Client) Register(ctx context.Context, creds RegisterCredentials) (*User, error) {
	var created User
	if err := c.do(ctx, http.MethodPost, "/auth/register", "", creds, &created); err != nil {
		return nil, err
	}
	return &created, nil
}

// Login authenticates and returns the user plus a fresh session token.
func (c *Client) Login(ctx context.Context, creds LoginCredentials) (*LoginResponse, error) {
	var resp LoginResponse
	if err := c.do(ctx, http.MethodPost, "/auth/login", "", creds, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// Refresh rotates the session identified by token.
func (c *Client) Refresh(ctx context.Context, token string) (*RefreshResponse, error) {
	var resp RefreshResponse
	body := map[string]string{"sessionToken": token}
	if err := c.do(ctx, http.MethodPost, "/auth/refresh", token, body, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// Logout invalidates the session identified by token.
func (c *Client) Logout(ctx context.Context, token string) (*LogoutResponse, error) {
	var resp LogoutResponse
	body := map[string]string{"sessionToken": token}
	if err := c.do(ctx, http.MethodPost, "/auth/logout", token, body, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// Me resolves the token to the current user.
func (c *Client) Me(ctx context.Context, token string) (*User, error) {
	var current User
	if err := c.do(ctx, http.MethodGet, "/auth/me", token, nil, &current); err != nil {
		return nil, err
	}
	return &current, nil
}

func (c *Client) do(ctx context.Context, method, path, token string, body, out any) error {
	var reader *bytes.Reader
	if body != nil {
		encoded, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("failed to encode request body: %w", err)
		}
		reader = bytes.NewReader(encoded)
	} else {
		reader = bytes.NewReader(nil)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return fmt.Errorf("failed to build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		return decodeError(resp)
	}

	if out != nil {
		if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
			return fmt.Errorf("failed to decode response: %w", err)
		}
	}
	return nil
}
