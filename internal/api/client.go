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
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
	"golang.org/x/time/rate"
)

// Sentinel errors callers branch on. Mutation failures propagate so widgets
// can surface them inline; ErrUnauthorized additionally tells the widget to
// prompt for login and abandon the action.
var (
	ErrUnauthorized = errors.New("not authorized")
	ErrValidation   = errors.New("invalid request")
)

// TokenSource supplies the bearer token for authenticated calls. An empty
// string means anonymous.
type TokenSource interface {
	Token(ctx context.Context) string
}

// ClientConfig configures the backend REST client.
type ClientConfig struct {
	BaseURL        string
	RequestTimeout time.Duration
	RatePerSecond  float64
	Burst          int
}

// DefaultClientConfig returns client defaults against the given base URL.
func DefaultClientConfig(baseURL string) ClientConfig {
	return ClientConfig{
		BaseURL:        baseURL,
		RequestTimeout: 10 * time.Second,
		RatePerSecond:  5.0,
		Burst:          10,
	}
}

// Client is a typed client for the dashboard backend. Every request carries a
// uuid request ID and flows through a shared rate limiter.
type Client struct {
	config  ClientConfig
	http    *http.Client
	limiter *rate.Limiter
	tokens  TokenSource
}

// NewClient builds a backend client. tokens may be nil for anonymous use;
// httpClient may be nil for a default client with the configured timeout.
func NewClient(config ClientConfig, tokens TokenSource, httpClient *http.Client) *Client {
	if httpClient == nil {
		httpClient = &http.Client{Timeout: config.RequestTimeout}
	}
	return &Client{
		config:  config,
		http:    httpClient,
		limiter: rate.NewLimiter(rate.Limit(config.RatePerSecond), config.Burst),
		tokens:  tokens,
	}
}

// GetQuote fetches the current quote for an asset symbol.
func (c *Client) GetQuote(ctx context.Context, symbol string) (*Quote, error) {
	var quote Quote
	if err := c.do(ctx, http.MethodGet, "/api/assets/"+url.PathEscape(symbol), nil, &quote); err != nil {
		return nil, err
	}
	return &quote, nil
}

// GetPoll reads the aggregate state of an asset's sentiment or intent poll.
func (c *Client) GetPoll(ctx context.Context, symbol string, kind PollKind) (*Poll, error) {
	var poll Poll
	path := fmt.Sprintf("/api/assets/%s/polls/%s", url.PathEscape(symbol), kind)
	if err := c.do(ctx, http.MethodGet, path, nil, &poll); err != nil {
		return nil, err
	}
	return &poll, nil
}

// Vote casts the caller's vote on an asset poll. Requires authentication.
func (c *Client) Vote(ctx context.Context, symbol string, kind PollKind, option string) error {
	path := fmt.Sprintf("/api/assets/%s/polls/%s/votes", url.PathEscape(symbol), kind)
	return c.do(ctx, http.MethodPost, path, map[string]string{"option": option}, nil)
}

// MyVote returns the caller's current vote on an asset poll, or "" when the
// caller has not voted.
func (c *Client) MyVote(ctx context.Context, symbol string, kind PollKind) (string, error) {
	var out struct {
		Option string `json:"option"`
	}
	path := fmt.Sprintf("/api/assets/%s/polls/%s/votes/mine", url.PathEscape(symbol), kind)
	if err := c.do(ctx, http.MethodGet, path, nil, &out); err != nil {
		return "", err
	}
	return out.Option, nil
}

// ListComments returns the threaded comments for an asset, newest first.
func (c *Client) ListComments(ctx context.Context, symbol string) ([]Comment, error) {
	var comments []Comment
	path := fmt.Sprintf("/api/assets/%s/comments", url.PathEscape(symbol))
	if err := c.do(ctx, http.MethodGet, path, nil, &comments); err != nil {
		return nil, err
	}
	return comments, nil
}

// PostComment adds a comment (or a reply, when parentID is set) to an asset
// thread. Requires authentication; empty bodies are rejected locally.
func (c *Client) PostComment(ctx context.Context, symbol, body, parentID string) (*Comment, error) {
	if body == "" {
		return nil, fmt.Errorf("%w: empty comment", ErrValidation)
	}
	var comment Comment
	path := fmt.Sprintf("/api/assets/%s/comments", url.PathEscape(symbol))
	payload := map[string]string{"body": body}
	if parentID != "" {
		payload["parent_id"] = parentID
	}
	if err := c.do(ctx, http.MethodPost, path, payload, &comment); err != nil {
		return nil, err
	}
	return &comment, nil
}

// EditComment replaces a comment's body. Requires authentication.
func (c *Client) EditComment(ctx context.Context, symbol, commentID, body string) error {
	if body == "" {
		return fmt.Errorf("%w: empty comment", ErrValidation)
	}
	path := fmt.Sprintf("/api/assets/%s/comments/%s", url.PathEscape(symbol), url.PathEscape(commentID))
	return c.do(ctx, http.MethodPut, path, map[string]string{"body": body}, nil)
}

// DeleteComment removes a comment. Requires authentication.
func (c *Client) DeleteComment(ctx context.Context, symbol, commentID string) error {
	path := fmt.Sprintf("/api/assets/%s/comments/%s", url.PathEscape(symbol), url.PathEscape(commentID))
	return c.do(ctx, http.MethodDelete, path, nil, nil)
}

// Login exchanges credentials for a bearer session.
func (c *Client) Login(ctx context.Context, username, password string) (*Session, error) {
	var session Session
	payload := map[string]string{"username": username, "password": password}
	if err := c.do(ctx, http.MethodPost, "/api/auth/login", payload, &session); err != nil {
		return nil, err
	}
	return &session, nil
}

// Signup registers a new account and returns its session.
func (c *Client) Signup(ctx context.Context, username, email, password string) (*Session, error) {
	var session Session
	payload := map[string]string{"username": username, "email": email, "password": password}
	if err := c.do(ctx, http.MethodPost, "/api/auth/signup", payload, &session); err != nil {
		return nil, err
	}
	return &session, nil
}

func (c *Client) do(ctx context.Context, method, path string, body, out interface{}) error {
	if err := c.limiter.Wait(ctx); err != nil {
		return fmt.Errorf("api rate limit: %w", err)
	}

	var reader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("encode request: %w", err)
		}
		reader = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.config.BaseURL+path, reader)
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("X-Request-ID", uuid.NewString())
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if c.tokens != nil {
		if token := c.tokens.Token(ctx); token != "" {
			req.Header.Set("Authorization", "Bearer "+token)
		}
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("%s %s: %w", method, path, err)
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden:
		return fmt.Errorf("%s %s: %w", method, path, ErrUnauthorized)
	case resp.StatusCode == http.StatusUnprocessableEntity || resp.StatusCode == http.StatusBadRequest:
		return fmt.Errorf("%s %s: %w", method, path, ErrValidation)
	case resp.StatusCode >= 400:
		log.Debug().Int("status", resp.StatusCode).Str("path", path).Msg("api error response")
		return fmt.Errorf("%s %s: status %d", method, path, resp.StatusCode)
	}

	if out == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode %s response: %w", path, err)
	}
	return nil
}
