// Package upstream is the HTTP client for the OpenPecha REST API.
package upstream

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"sync/atomic"
	"time"

	"github.com/go-chi/chi/v5/middleware"

	"github.com/openpecha/catalog/internal/apperr"
	"github.com/openpecha/catalog/internal/metrics"
	"github.com/openpecha/catalog/internal/models"
)

// maxResponseBytes bounds how much of an upstream response is buffered.
const maxResponseBytes = 32 << 20

// Client talks to the OpenPecha API. Responses are returned as raw JSON so
// the gateway can pass them through unchanged.
type Client struct {
	base    atomic.Pointer[url.URL]
	http    *http.Client
	metrics *metrics.Metrics
}

// Option configures a Client.
type Option func(*Client)

// WithHTTPClient replaces the underlying http.Client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.http = hc }
}

// WithTimeout sets the per-request timeout of the default http.Client.
func WithTimeout(d time.Duration) Option {
	return func(c *Client) { c.http.Timeout = d }
}

// WithMetrics records every call in m.
func WithMetrics(m *metrics.Metrics) Option {
	return func(c *Client) { c.metrics = m }
}

// New creates a Client for the API rooted at endpoint.
func New(endpoint string, opts ...Option) (*Client, error) {
	c := &Client{http: &http.Client{Timeout: 15 * time.Second}}
	if err := c.SetEndpoint(endpoint); err != nil {
		return nil, err
	}
	for _, opt := range opts {
		opt(c)
	}
	return c, nil
}

// SetEndpoint swaps the base URL. Safe to call while requests are in flight.
func (c *Client) SetEndpoint(endpoint string) error {
	u, err := url.Parse(strings.TrimRight(endpoint, "/"))
	if err != nil {
		return fmt.Errorf("upstream: parse endpoint: %w", err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return fmt.Errorf("upstream: endpoint %q must be http or https", endpoint)
	}
	c.base.Store(u)
	return nil
}

// Endpoint returns the current base URL.
func (c *Client) Endpoint() string {
	return c.base.Load().String()
}

// ListTexts fetches GET /texts with the filter forwarded as query parameters.
func (c *Client) ListTexts(ctx context.Context, f models.TextFilter) ([]byte, error) {
	return c.do(ctx, http.MethodGet, "texts", f.Values(), nil, "texts")
}

// GetText fetches GET /texts/{id}.
func (c *Client) GetText(ctx context.Context, id string) ([]byte, error) {
	return c.do(ctx, http.MethodGet, "texts", nil, nil, "texts", id)
}

// CreateText posts body to /texts unchanged.
func (c *Client) CreateText(ctx context.Context, body []byte) ([]byte, error) {
	return c.do(ctx, http.MethodPost, "texts", nil, body, "texts")
}

// ListTextInstances fetches GET /texts/{id}/instances.
func (c *Client) ListTextInstances(ctx context.Context, textID string) ([]byte, error) {
	return c.do(ctx, http.MethodGet, "instances", nil, nil, "texts", textID, "instances")
}

// CreateTextInstance posts body to /texts/{id}/instances unchanged.
func (c *Client) CreateTextInstance(ctx context.Context, textID string, body []byte) ([]byte, error) {
	return c.do(ctx, http.MethodPost, "instances", nil, body, "texts", textID, "instances")
}

// GetInstance fetches GET /instances/{id}.
func (c *Client) GetInstance(ctx context.Context, id string) ([]byte, error) {
	return c.do(ctx, http.MethodGet, "instances", nil, nil, "instances", id)
}

// ListPersons fetches GET /persons with the filter forwarded as query parameters.
func (c *Client) ListPersons(ctx context.Context, f models.PersonFilter) ([]byte, error) {
	return c.do(ctx, http.MethodGet, "persons", f.Values(), nil, "persons")
}

// GetPerson fetches GET /persons/{id}.
func (c *Client) GetPerson(ctx context.Context, id string) ([]byte, error) {
	return c.do(ctx, http.MethodGet, "persons", nil, nil, "persons", id)
}

// CreatePerson posts body to /persons.
func (c *Client) CreatePerson(ctx context.Context, body []byte) ([]byte, error) {
	return c.do(ctx, http.MethodPost, "persons", nil, body, "persons")
}

// Ping reports whether the API answers HTTP at all. Any status counts as reachable.
func (c *Client) Ping(ctx context.Context) error {
	_, err := c.do(ctx, http.MethodGet, "texts", models.TextFilter{Limit: 1}.Values(), nil, "texts")
	if _, ok := apperr.AsUpstream(err); ok {
		return nil
	}
	return err
}

// joinPath appends segments to base. Each segment is escaped exactly once,
// so ids holding spaces or slashes reach the server as a single segment.
func joinPath(base url.URL, segments ...string) url.URL {
	raw := base.EscapedPath()
	for _, seg := range segments {
		base.Path += "/" + seg
		raw += "/" + url.PathEscape(seg)
	}
	base.RawPath = raw
	return base
}

func (c *Client) do(ctx context.Context, method, resource string, query url.Values, body []byte, segments ...string) ([]byte, error) {
	u := joinPath(*c.base.Load(), segments...)
	path := u.EscapedPath()
	if len(query) > 0 {
		u.RawQuery = query.Encode()
	}

	var rd io.Reader
	if body != nil {
		rd = bytes.NewReader(body)
	}
	req, err := http.NewRequestWithContext(ctx, method, u.String(), rd)
	if err != nil {
		return nil, fmt.Errorf("upstream: build request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if id := middleware.GetReqID(ctx); id != "" {
		req.Header.Set(middleware.RequestIDHeader, id)
	}

	start := time.Now()
	resp, err := c.http.Do(req)
	if err != nil {
		c.metrics.ObserveUpstream(resource, method, 0, time.Since(start))
		return nil, fmt.Errorf("%w: %s %s: %v", apperr.ErrUnreachable, method, path, err)
	}
	defer resp.Body.Close()
	c.metrics.ObserveUpstream(resource, method, resp.StatusCode, time.Since(start))

	data, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	if err != nil {
		return nil, fmt.Errorf("%w: read %s %s: %v", apperr.ErrUnreachable, method, path, err)
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, &apperr.UpstreamError{Status: resp.StatusCode, Body: data}
	}
	return data, nil
}
