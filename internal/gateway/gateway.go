// Package gateway is the HTTP client for the chat server. It holds no
// conversation state: only the base URL, the HTTP client and the client token
// that scopes server-side history.
package gateway

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

	"megbot/internal/models"
)

const (
	// TokenHeader carries the client token.
	TokenHeader = "X-MegBot-Token"

	DefaultTimeout = 60 * time.Second

	maxResponseSize = 1 << 20
	maxErrorBody    = 512
)

type Client struct {
	baseURL *url.URL
	token   string
	http    *http.Client
}

type Option func(*Client)

// WithHTTPClient replaces the default client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) {
		if hc != nil {
			c.http = hc
		}
	}
}

func WithTimeout(d time.Duration) Option {
	return func(c *Client) {
		if d > 0 {
			c.http.Timeout = d
		}
	}
}

// WithToken sets the client token sent with every request.
func WithToken(token string) Option {
	return func(c *Client) { c.token = strings.TrimSpace(token) }
}

func New(baseURL string, opts ...Option) (*Client, error) {
	u, err := url.Parse(strings.TrimRight(strings.TrimSpace(baseURL), "/"))
	if err != nil {
		return nil, fmt.Errorf("parse api url: %w", err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return nil, fmt.Errorf("api url %q must be http or https", baseURL)
	}
	c := &Client{
		baseURL: u,
		http:    &http.Client{Timeout: DefaultTimeout},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c, nil
}

func (c *Client) Token() string {
	return c.token
}

// SendMessage posts one user message and returns the assistant reply.
func (c *Client) SendMessage(ctx context.Context, content, sessionID, model string) (*models.MessageResponse, error) {
	req := models.MessageRequest{Content: content, SessionID: sessionID, Model: model}
	var out models.MessageResponse
	if err := c.do(ctx, "send message", http.MethodPost, "/api/message", req, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// SaveCredential hands a provider secret to the server. Success is read from
// the payload status, not the HTTP code.
func (c *Client) SaveCredential(ctx context.Context, secret, provider string) (*models.StatusResponse, error) {
	req := models.SaveCredentialRequest{Secret: secret, Provider: provider}
	var out models.StatusResponse
	if err := c.do(ctx, "save credential", http.MethodPost, "/api/save_api_key", req, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// DeleteCredential removes the provider secret stored for this client.
func (c *Client) DeleteCredential(ctx context.Context, provider string) (*models.StatusResponse, error) {
	req := models.DeleteCredentialRequest{Provider: provider}
	var out models.StatusResponse
	if err := c.do(ctx, "delete credential", http.MethodPost, "/api/delete_api_key", req, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// ListCredentials reports which providers have a secret stored for this
// client.
func (c *Client) ListCredentials(ctx context.Context) ([]models.CredentialInfo, error) {
	var out []models.CredentialInfo
	if err := c.do(ctx, "list credentials", http.MethodGet, "/api/api_keys", nil, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// ClearHistory resets the server-side history for this client.
func (c *Client) ClearHistory(ctx context.Context) (*models.StatusResponse, error) {
	var out models.StatusResponse
	if err := c.do(ctx, "clear history", http.MethodPost, "/api/clear_history", nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// SyncHistory replaces the server-side history with turns.
func (c *Client) SyncHistory(ctx context.Context, sessionID string, turns []models.Turn) (*models.StatusResponse, error) {
	req := models.SyncHistoryRequest{SessionID: sessionID, Messages: make([]models.HistoryMessage, 0, len(turns))}
	for _, t := range turns {
		req.Messages = append(req.Messages, models.HistoryMessage{Role: string(t.Role), Content: t.Content})
	}
	var out models.StatusResponse
	if err := c.do(ctx, "sync history", http.MethodPost, "/api/sync_history", req, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Client) do(ctx context.Context, op, method, path string, body, out any) error {
	var reader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("%s: encode request: %w", op, err)
		}
		reader = bytes.NewReader(data)
	}

	endpoint := c.baseURL.JoinPath(path)
	req, err := http.NewRequestWithContext(ctx, method, endpoint.String(), reader)
	if err != nil {
		return fmt.Errorf("%s: build request: %w", op, err)
	}
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if c.token != "" {
		req.Header.Set(TokenHeader, c.token)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return &TransportError{Op: op, Err: err}
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseSize))
	if err != nil {
		return &TransportError{Op: op, Err: fmt.Errorf("read response: %w", err)}
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return &StatusError{Op: op, Code: resp.StatusCode, Body: errorBody(data)}
	}
	if out == nil {
		return nil
	}
	if err := json.Unmarshal(data, out); err != nil {
		return &TransportError{Op: op, Err: fmt.Errorf("decode response: %w", err)}
	}
	return nil
}

func errorBody(data []byte) string {
	s := strings.TrimSpace(string(data))
	if len(s) > maxErrorBody {
		s = s[:maxErrorBody]
	}
	return s
}
