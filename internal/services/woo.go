package services

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log"
	"net"
	"net/http"
	"net/url"
	"strings"
	"syscall"
	"time"
)

const (
	defaultWooTimeout   = 15 * time.Second
	defaultWooRetries   = 2
	defaultRetryBackoff = 250 * time.Millisecond

	maxErrorBody    = 4096
	maxResponseBody = 8 << 20
)

// HTTPStatusError is returned for any non-2xx upstream response.
type HTTPStatusError struct {
	Method     string
	Path       string
	StatusCode int
	Body       string
}

func (e *HTTPStatusError) Error() string {
	return fmt.Sprintf("woo: %s %s: unexpected status %d: %s", e.Method, e.Path, e.StatusCode, e.Body)
}

// IsNotFound reports whether err is an upstream 404.
func IsNotFound(err error) bool {
	var se *HTTPStatusError
	return errors.As(err, &se) && se.StatusCode == http.StatusNotFound
}

// IsRetryable reports whether a failed read may be repeated: 429, any 5xx,
// timeouts, connection resets/aborts, early EOFs and DNS failures.
func IsRetryable(err error) bool {
	if err == nil {
		return false
	}
	var se *HTTPStatusError
	if errors.As(err, &se) {
		return se.StatusCode == http.StatusTooManyRequests || se.StatusCode >= 500
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return true
	}
	var dnsErr *net.DNSError
	if errors.As(err, &dnsErr) {
		return true
	}
	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return true
	}
	return errors.Is(err, syscall.ECONNRESET) ||
		errors.Is(err, syscall.ECONNABORTED) ||
		errors.Is(err, io.EOF) ||
		errors.Is(err, io.ErrUnexpectedEOF)
}

// Response is a successful upstream reply.
type Response struct {
	StatusCode int
	Body       []byte
}

// Decode unmarshals the body into v.
func (r *Response) Decode(v interface{}) error {
	if err := json.Unmarshal(r.Body, v); err != nil {
		return fmt.Errorf("woo: decode response: %w", err)
	}
	return nil
}

// WooClient talks to the WooCommerce REST API with Basic auth. GETs are
// retried on transient failures; PUTs are sent exactly once.
type WooClient struct {
	baseURL    string
	username   string
	password   string
	httpClient *http.Client
	retries    int
	backoff    time.Duration
	sleep      func(ctx context.Context, d time.Duration) error
}

// WooOption configures a WooClient.
type WooOption func(*WooClient)

// WithWooTimeout sets the per-request timeout.
func WithWooTimeout(d time.Duration) WooOption {
	return func(c *WooClient) { c.httpClient.Timeout = d }
}

// WithWooHTTPClient replaces the underlying HTTP client.
func WithWooHTTPClient(hc *http.Client) WooOption {
	return func(c *WooClient) { c.httpClient = hc }
}

// WithRetries sets how many times a failed GET is retried.
func WithRetries(n int) WooOption {
	return func(c *WooClient) { c.retries = n }
}

// WithRetryBackoff sets the linear backoff unit (attempt * unit).
func WithRetryBackoff(d time.Duration) WooOption {
	return func(c *WooClient) { c.backoff = d }
}

// NewWooClient creates a client for apiBase, e.g. https://shop/wp-json/wc/v3.
func NewWooClient(apiBase, username, password string, opts ...WooOption) (*WooClient, error) {
	apiBase = strings.TrimRight(strings.TrimSpace(apiBase), "/")
	if apiBase == "" {
		return nil, errors.New("woo: api base must not be empty")
	}
	if username == "" || password == "" {
		return nil, errors.New("woo: credentials must not be empty")
	}

	c := &WooClient{
		baseURL:    apiBase,
		username:   username,
		password:   password,
		httpClient: &http.Client{Timeout: defaultWooTimeout},
		retries:    defaultWooRetries,
		backoff:    defaultRetryBackoff,
		sleep:      sleepContext,
	}
	for _, opt := range opts {
		opt(c)
	}
	if c.retries < 0 {
		c.retries = 0
	}
	return c, nil
}

// Get issues a GET with query params, retrying transient failures.
func (c *WooClient) Get(ctx context.Context, path string, params url.Values) (*Response, error) {
	var lastErr error
	for attempt := 0; attempt <= c.retries; attempt++ {
		if attempt > 0 {
			wait := c.backoff * time.Duration(attempt)
			log.Printf("🔁 Retrying GET %s (attempt %d/%d) in %v: %v", path, attempt, c.retries, wait, lastErr)
			if err := c.sleep(ctx, wait); err != nil {
				return nil, fmt.Errorf("woo: GET %s: %w (last error: %v)", path, err, lastErr)
			}
		}

		resp, err := c.do(ctx, http.MethodGet, path, params, nil)
		if err == nil {
			return resp, nil
		}
		lastErr = err
		if !IsRetryable(err) || ctx.Err() != nil {
			return nil, err
		}
	}
	return nil, lastErr
}

// GetJSON is Get followed by Decode into out.
func (c *WooClient) GetJSON(ctx context.Context, path string, params url.Values, out interface{}) error {
	resp, err := c.Get(ctx, path, params)
	if err != nil {
		return err
	}
	return resp.Decode(out)
}

// Put sends body as JSON. It is never retried: the remote side may already
// have applied a write that failed on the way back.
func (c *WooClient) Put(ctx context.Context, path string, body interface{}) (*Response, error) {
	payload, err := json.Marshal(body)
	if err != nil {
		return nil, fmt.Errorf("woo: marshal PUT %s: %w", path, err)
	}
	return c.do(ctx, http.MethodPut, path, nil, payload)
}

func (c *WooClient) do(ctx context.Context, method, path string, params url.Values, body []byte) (*Response, error) {
	endpoint := c.baseURL + path
	if len(params) > 0 {
		endpoint += "?" + params.Encode()
	}

	var reader io.Reader
	if body != nil {
		reader = bytes.NewReader(body)
	}
	req, err := http.NewRequestWithContext(ctx, method, endpoint, reader)
	if err != nil {
		return nil, fmt.Errorf("woo: create request: %w", err)
	}
	req.SetBasicAuth(c.username, c.password)
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	res, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("woo: %s %s: %w", method, path, err)
	}
	defer func() { _ = res.Body.Close() }()

	if res.StatusCode < 200 || res.StatusCode >= 300 {
		buf, _ := io.ReadAll(io.LimitReader(res.Body, maxErrorBody))
		return nil, &HTTPStatusError{
			Method:     method,
			Path:       path,
			StatusCode: res.StatusCode,
			Body:       string(buf),
		}
	}

	buf, err := io.ReadAll(io.LimitReader(res.Body, maxResponseBody))
	if err != nil {
		return nil, fmt.Errorf("woo: %s %s: read body: %w", method, path, err)
	}
	return &Response{StatusCode: res.StatusCode, Body: buf}, nil
}

func sleepContext(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
