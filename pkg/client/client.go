// Package client is a typed Go SDK over the marketplace HTTP API.
package client

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
	"sync"
	"time"

	pkgerrors "github.com/angelmondragon/marketplace-backend/pkg/errors"
)

const (
	defaultTimeout         = 15 * time.Second
	errorBodyReadLimit     = 64 * 1024
	idempotencyKeyHeader   = "Idempotency-Key"
	authorizationHeaderKey = "Authorization"
)

var errBaseURLRequired = errors.New("marketplace base url is required")

// Client talks to one marketplace API deployment. It is safe for
// concurrent use.
type Client struct {
	httpClient *http.Client
	baseURL    string

	mu     sync.RWMutex
	tokens Tokens
}

// Tokens are the credentials attached to authenticated calls.
type Tokens struct {
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token"`
}

// Option configures optional client behavior.
type Option func(*Client)

// WithHTTPClient overrides the default HTTP client.
func WithHTTPClient(client *http.Client) Option {
	return func(c *Client) {
		if client != nil {
			c.httpClient = client
		}
	}
}

// WithTokens starts the client with existing credentials.
func WithTokens(t Tokens) Option {
	return func(c *Client) {
		c.tokens = t
	}
}

// New builds a client for baseURL, e.g. "https://api.example.com".
func New(baseURL string, opts ...Option) (*Client, error) {
	trimmed := strings.TrimRight(strings.TrimSpace(baseURL), "/")
	if trimmed == "" {
		return nil, errBaseURLRequired
	}
	if _, err := url.Parse(trimmed); err != nil {
		return nil, fmt.Errorf("parse base url: %w", err)
	}

	c := &Client{
		baseURL:    trimmed,
		httpClient: &http.Client{Timeout: defaultTimeout},
	}
	for _, opt := range opts {
		if opt != nil {
			opt(c)
		}
	}
	return c, nil
}

func (c *Client) Tokens() Tokens {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.tokens
}

func (c *Client) SetTokens(t Tokens) {
	c.mu.Lock()
	c.tokens = t
	c.mu.Unlock()
}

// CallOption adjusts a single request.
type CallOption func(*http.Request)

// WithIdempotencyKey sets the Idempotency-Key header. Order creation,
// checkout, message send and becoming a seller require one.
func WithIdempotencyKey(key string) CallOption {
	return func(r *http.Request) {
		r.Header.Set(idempotencyKeyHeader, key)
	}
}

type envelope struct {
	Data  json.RawMessage `json:"data"`
	Error *Error          `json:"error"`
}

func (c *Client) do(ctx context.Context, method, path string, query url.Values, body, out any, opts ...CallOption) error {
	var reader io.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("marshal %s %s: %w", method, path, err)
		}
		reader = bytes.NewReader(payload)
	}

	target := c.baseURL + path
	if len(query) > 0 {
		target += "?" + query.Encode()
	}

	req, err := http.NewRequestWithContext(ctx, method, target, reader)
	if err != nil {
		return fmt.Errorf("build %s %s: %w", method, path, err)
	}
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	return c.send(req, out, opts...)
}

func (c *Client) send(req *http.Request, out any, opts ...CallOption) error {
	if token := c.Tokens().AccessToken; token != "" {
		req.Header.Set(authorizationHeaderKey, "Bearer "+token)
	}
	for _, opt := range opts {
		opt(req)
	}

	op := req.Method + " " + req.URL.Path
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return &TransportError{Op: op, Err: err}
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode >= http.StatusBadRequest {
		return decodeError(resp)
	}
	if out == nil || resp.StatusCode == http.StatusNoContent {
		return nil
	}

	var env envelope
	if err := json.NewDecoder(resp.Body).Decode(&env); err != nil {
		return &TransportError{Op: op, Err: fmt.Errorf("decode response: %w", err)}
	}
	if len(env.Data) == 0 {
		return nil
	}
	if err := json.Unmarshal(env.Data, out); err != nil {
		return &TransportError{Op: op, Err: fmt.Errorf("decode data: %w", err)}
	}
	return nil
}

func decodeError(resp *http.Response) error {
	raw, _ := io.ReadAll(io.LimitReader(resp.Body, errorBodyReadLimit))

	var env envelope
	if err := json.Unmarshal(raw, &env); err == nil && env.Error != nil && env.Error.Code != "" {
		env.Error.Status = resp.StatusCode
		return env.Error
	}

	// proxies and load balancers answer without the envelope
	code := pkgerrors.CodeInternal
	switch {
	case resp.StatusCode == http.StatusNotFound:
		code = pkgerrors.CodeNotFound
	case resp.StatusCode == http.StatusUnauthorized:
		code = pkgerrors.CodeUnauthorized
	case resp.StatusCode == http.StatusForbidden:
		code = pkgerrors.CodeForbidden
	case resp.StatusCode == http.StatusTooManyRequests:
		code = pkgerrors.CodeRateLimit
	case resp.StatusCode == http.StatusBadGateway,
		resp.StatusCode == http.StatusServiceUnavailable,
		resp.StatusCode == http.StatusGatewayTimeout:
		code = pkgerrors.CodeDependency
	case resp.StatusCode < http.StatusInternalServerError:
		code = pkgerrors.CodeValidation
	}
	return &Error{
		Code:    code,
		Message: strings.TrimSpace(string(raw)),
		Status:  resp.StatusCode,
	}
}

func pageQuery(p PageParams) url.Values {
	q := url.Values{}
	if p.Limit > 0 {
		q.Set("limit", fmt.Sprint(p.Limit))
	}
	if p.Cursor != "" {
		q.Set("cursor", p.Cursor)
	}
	return q
}

func escape(id fmt.Stringer) string {
	return url.PathEscape(id.String())
}
