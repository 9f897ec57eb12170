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
	"time"

	"go.uber.org/zap"
)

const (
	defaultTimeout    = 10 * time.Second
	apiPrefix         = "api/v1"
	idempotencyHeader = "Idempotency-Key"
	maxErrorBody      = 1 << 16
)

// HTTPClient matches the subset of http.Client used by Client.
type HTTPClient interface {
	Do(*http.Request) (*http.Response, error)
}

// TokenSource yields the bearer token attached to authenticated calls.
type TokenSource interface {
	BearerToken(ctx context.Context) (string, error)
}

// StaticToken is a TokenSource that always returns the same token.
type StaticToken string

// BearerToken implements TokenSource.
func (t StaticToken) BearerToken(context.Context) (string, error) {
	return strings.TrimSpace(string(t)), nil
}

// APIError is a non-2xx response decoded from the API error envelope.
type APIError struct {
	Status    int
	Code      string
	Message   string
	RequestID string
}

func (e *APIError) Error() string {
	if e.Code != "" {
		return fmt.Sprintf("client: api error %d (%s): %s", e.Status, e.Code, e.Message)
	}
	return fmt.Sprintf("client: api error %d: %s", e.Status, e.Message)
}

// Retryable reports whether resending the same request under the same idempotency key can still
// succeed. Other 4xx answers are stored by the server and would only be replayed.
func (e *APIError) Retryable() bool {
	return e.Status >= http.StatusInternalServerError || e.Code == "idempotency_in_progress"
}

// PublicMessage returns the server message intended for end users.
func (e *APIError) PublicMessage() string {
	return e.Message
}

// IsNotFound reports whether err is an APIError with status 404.
func IsNotFound(err error) bool {
	var apiErr *APIError
	return errors.As(err, &apiErr) && apiErr.Status == http.StatusNotFound
}

// Option customises a Client.
type Option func(*Client)

// WithHTTPClient overrides the transport.
func WithHTTPClient(httpClient HTTPClient) Option {
	return func(c *Client) {
		if httpClient != nil {
			c.http = httpClient
		}
	}
}

// WithTimeout sets the timeout of the default transport.
func WithTimeout(timeout time.Duration) Option {
	return func(c *Client) {
		if timeout > 0 {
			c.timeout = timeout
		}
	}
}

// WithTokenSource sets where bearer tokens come from.
func WithTokenSource(tokens TokenSource) Option {
	return func(c *Client) {
		c.tokens = tokens
	}
}

// WithLogger attaches a logger.
func WithLogger(logger *zap.Logger) Option {
	return func(c *Client) {
		if logger != nil {
			c.logger = logger
		}
	}
}

// Client talks to the storefront API.
type Client struct {
	base    *url.URL
	http    HTTPClient
	timeout time.Duration
	tokens  TokenSource
	logger  *zap.Logger
}

// New constructs a client for the API rooted at baseURL.
func New(baseURL string, opts ...Option) (*Client, error) {
	if strings.TrimSpace(baseURL) == "" {
		return nil, errors.New("client: base URL is required")
	}
	parsed, err := url.Parse(strings.TrimRight(strings.TrimSpace(baseURL), "/") + "/")
	if err != nil {
		return nil, fmt.Errorf("client: parse base URL: %w", err)
	}
	c := &Client{
		base:    parsed,
		timeout: defaultTimeout,
		logger:  zap.NewNop(),
	}
	for _, opt := range opts {
		if opt != nil {
			opt(c)
		}
	}
	if c.http == nil {
		c.http = &http.Client{Timeout: c.timeout}
	}
	return c, nil
}

type requestOptions struct {
	query          url.Values
	body           any
	idempotencyKey string
	anonymous      bool
}

func (c *Client) resolve(endpoint string, query url.Values) string {
	ref := &url.URL{Path: apiPrefix + "/" + strings.TrimPrefix(endpoint, "/")}
	if len(query) > 0 {
		ref.RawQuery = query.Encode()
	}
	return c.base.ResolveReference(ref).String()
}

func (c *Client) newRequest(ctx context.Context, method, endpoint string, opts requestOptions) (*http.Request, error) {
	var body io.Reader
	if opts.body != nil {
		var buf bytes.Buffer
		enc := json.NewEncoder(&buf)
		enc.SetEscapeHTML(false)
		if err := enc.Encode(opts.body); err != nil {
			return nil, fmt.Errorf("client: encode payload: %w", err)
		}
		body = &buf
	}
	req, err := http.NewRequestWithContext(ctx, method, c.resolve(endpoint, opts.query), body)
	if err != nil {
		return nil, fmt.Errorf("client: build request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if key := strings.TrimSpace(opts.idempotencyKey); key != "" {
		req.Header.Set(idempotencyHeader, key)
	}
	if !opts.anonymous && c.tokens != nil {
		token, err := c.tokens.BearerToken(ctx)
		if err != nil {
			return nil, fmt.Errorf("client: resolve token: %w", err)
		}
		if token != "" {
			req.Header.Set("Authorization", "Bearer "+token)
		}
	}
	return req, nil
}

func (c *Client) send(ctx context.Context, method, endpoint string, opts requestOptions) (*http.Response, error) {
	req, err := c.newRequest(ctx, method, endpoint, opts)
	if err != nil {
		return nil, err
	}
	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("client: %s %s: %w", method, endpoint, err)
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		apiErr := errorFromResponse(resp)
		c.logger.Debug("api call failed",
			zap.String("method", method),
			zap.String("endpoint", endpoint),
			zap.Int("status", apiErr.Status),
			zap.String("code", apiErr.Code),
		)
		return nil, apiErr
	}
	return resp, nil
}

func (c *Client) do(ctx context.Context, method, endpoint string, opts requestOptions, out any) error {
	resp, err := c.send(ctx, method, endpoint, opts)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if out == nil || resp.StatusCode == http.StatusNoContent {
		_, _ = io.Copy(io.Discard, resp.Body)
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("client: decode %s response: %w", endpoint, err)
	}
	return nil
}

func errorFromResponse(resp *http.Response) *APIError {
	body, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
	_ = resp.Body.Close()

	apiErr := &APIError{Status: resp.StatusCode}
	var envelope struct {
		Error     string `json:"error"`
		Message   string `json:"message"`
		Status    int    `json:"status"`
		RequestID string `json:"request_id"`
	}
	if len(body) > 0 && json.Unmarshal(body, &envelope) == nil && (envelope.Message != "" || envelope.Error != "") {
		apiErr.Code = strings.TrimSpace(envelope.Error)
		apiErr.Message = envelope.Message
		apiErr.RequestID = envelope.RequestID
		return apiErr
	}
	if trimmed := strings.TrimSpace(string(body)); trimmed != "" {
		apiErr.Message = trimmed
		return apiErr
	}
	apiErr.Message = http.StatusText(resp.StatusCode)
	return apiErr
}
