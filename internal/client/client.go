// Package client is a Go SDK for the catalog gateway. Reads are cached for a
// staleness window, deduplicated while in flight and retried once; writes
// invalidate the cached collection they change.
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

	"golang.org/x/sync/singleflight"

	"github.com/openpecha/catalog/internal/cache"
)

// Defaults mirroring the browser client's query settings.
const (
	DefaultStaleTime  = 5 * time.Minute
	DefaultRetryDelay = time.Second
)

// APIError is a non-2xx gateway response decoded from the {error, details}
// envelope.
type APIError struct {
	Status  int
	Message string
	Details any
}

func (e *APIError) Error() string {
	if e.Details == nil || e.Details == "" {
		return fmt.Sprintf("gateway %d: %s", e.Status, e.Message)
	}
	return fmt.Sprintf("gateway %d: %s: %v", e.Status, e.Message, e.Details)
}

// AsAPIError unwraps an APIError.
func AsAPIError(err error) (*APIError, bool) {
	var e *APIError
	ok := errors.As(err, &e)
	return e, ok
}

// Client talks to the gateway.
type Client struct {
	base       *url.URL
	http       *http.Client
	token      string
	cache      cache.Store
	staleTime  time.Duration
	retryDelay time.Duration
	group      singleflight.Group
}

// Option configures a Client.
type Option func(*Client)

// WithHTTPClient replaces the underlying http.Client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.http = hc }
}

// WithToken sends token as a bearer credential.
func WithToken(token string) Option {
	return func(c *Client) { c.token = token }
}

// WithCache replaces the default in-memory query cache.
func WithCache(store cache.Store) Option {
	return func(c *Client) { c.cache = store }
}

// WithStaleTime sets how long a query result is served without refetching.
func WithStaleTime(d time.Duration) Option {
	return func(c *Client) { c.staleTime = d }
}

// WithRetryDelay sets the pause before the single retry of a failed query.
func WithRetryDelay(d time.Duration) Option {
	return func(c *Client) { c.retryDelay = d }
}

// New creates a Client for the gateway at baseURL.
func New(baseURL string, opts ...Option) (*Client, error) {
	u, err := url.Parse(strings.TrimRight(baseURL, "/"))
	if err != nil {
		return nil, fmt.Errorf("client: parse base url: %w", err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return nil, fmt.Errorf("client: base url %q must be http or https", baseURL)
	}
	c := &Client{
		base:       u,
		http:       &http.Client{Timeout: 30 * time.Second},
		cache:      cache.NewMemory(),
		staleTime:  DefaultStaleTime,
		retryDelay: DefaultRetryDelay,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c, nil
}

// Invalidate drops every cached query whose key starts with prefix.
func (c *Client) Invalidate(ctx context.Context, prefix string) error {
	return c.cache.InvalidatePrefix(ctx, prefix)
}

// query returns the cached body for key or fetches path, sharing one
// in-flight request between concurrent callers.
func (c *Client) query(ctx context.Context, key string, q url.Values, segments ...string) ([]byte, error) {
	if data, ok, err := c.cache.Get(ctx, key); err == nil && ok {
		return data, nil
	}
	v, err, _ := c.group.Do(key, func() (any, error) {
		data, err := c.getWithRetry(ctx, q, segments...)
		if err != nil {
			return nil, err
		}
		_ = c.cache.Set(ctx, key, data, c.staleTime)
		return data, nil
	})
	if err != nil {
		return nil, err
	}
	return v.([]byte), nil
}

func (c *Client) getWithRetry(ctx context.Context, q url.Values, segments ...string) ([]byte, error) {
	data, err := c.do(ctx, http.MethodGet, q, nil, segments...)
	if err == nil || ctx.Err() != nil {
		return data, err
	}
	t := time.NewTimer(c.retryDelay)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	case <-t.C:
	}
	return c.do(ctx, http.MethodGet, q, nil, segments...)
}

// mutate sends payload as JSON and, on success, invalidates prefix.
func (c *Client) mutate(ctx context.Context, payload any, invalidate string, segments ...string) ([]byte, error) {
	body, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("client: encode payload: %w", err)
	}
	data, err := c.do(ctx, http.MethodPost, nil, body, segments...)
	if err != nil {
		return nil, err
	}
	if err := c.cache.InvalidatePrefix(ctx, invalidate); err != nil {
		return data, fmt.Errorf("client: invalidate %s: %w", invalidate, err)
	}
	return data, nil
}

// joinPath appends segments to base, escaping each one exactly once.
func joinPath(base url.URL, segments ...string) url.URL {
	raw := base.EscapedPath()
	for _, seg := range segments {
		base.Path += "/" + seg
		raw += "/" + url.PathEscape(seg)
	}
	base.RawPath = raw
	return base
}

func (c *Client) do(ctx context.Context, method string, q url.Values, body []byte, segments ...string) ([]byte, error) {
	u := joinPath(*c.base, segments...)
	path := u.EscapedPath()
	if len(q) > 0 {
		u.RawQuery = q.Encode()
	}
	var rd io.Reader
	if body != nil {
		rd = bytes.NewReader(body)
	}
	req, err := http.NewRequestWithContext(ctx, method, u.String(), rd)
	if err != nil {
		return nil, fmt.Errorf("client: build request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("client: %s %s: %w", method, path, err)
	}
	defer resp.Body.Close()
	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("client: read %s %s: %w", method, path, err)
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, decodeAPIError(resp.StatusCode, data)
	}
	return data, nil
}

func decodeAPIError(status int, data []byte) *APIError {
	var env struct {
		Error   string `json:"error"`
		Details any    `json:"details"`
	}
	if err := json.Unmarshal(data, &env); err != nil || env.Error == "" {
		return &APIError{Status: status, Message: http.StatusText(status), Details: strings.TrimSpace(string(data))}
	}
	return &APIError{Status: status, Message: env.Error, Details: env.Details}
}

func decode[T any](data []byte) (*T, error) {
	v := new(T)
	if err := json.Unmarshal(data, v); err != nil {
		return nil, fmt.Errorf("client: decode response: %w", err)
	}
	return v, nil
}
