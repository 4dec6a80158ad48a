package httputil

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/url"
	"time"

	"github.com/matzehuels/depotview/pkg/errors"
	"github.com/matzehuels/depotview/pkg/observability"
)

// DefaultTimeout bounds a single HTTP request.
const DefaultTimeout = 10 * time.Second

// Client performs JSON requests against a remote API.
type Client struct {
	http     *http.Client
	headers  map[string]string
	attempts int
	delay    time.Duration
}

// ClientOption configures a Client.
type ClientOption func(*Client)

// WithHTTPClient replaces the underlying *http.Client.
func WithHTTPClient(hc *http.Client) ClientOption {
	return func(c *Client) {
		if hc != nil {
			c.http = hc
		}
	}
}

// WithTimeout sets the per-request timeout.
func WithTimeout(d time.Duration) ClientOption {
	return func(c *Client) {
		if d > 0 {
			c.http.Timeout = d
		}
	}
}

// WithRetry sets how often GET requests are attempted and the initial
// backoff delay.
func WithRetry(attempts int, delay time.Duration) ClientOption {
	return func(c *Client) {
		c.attempts, c.delay = attempts, delay
	}
}

// NewClient creates a Client that sends headers with every request.
func NewClient(headers map[string]string, opts ...ClientOption) *Client {
	c := &Client{
		http:     &http.Client{Timeout: DefaultTimeout},
		headers:  headers,
		attempts: 3,
		delay:    time.Second,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// GetJSON performs a GET request and decodes the JSON response into v.
// Transient failures are retried.
func (c *Client) GetJSON(ctx context.Context, rawURL string, v any) error {
	return Retry(ctx, c.attempts, c.delay, func() error {
		return c.do(ctx, http.MethodGet, rawURL, nil, v)
	})
}

// GetJSONOnce performs a single GET request without retries, for
// endpoints that change remote state.
func (c *Client) GetJSONOnce(ctx context.Context, rawURL string, v any) error {
	return c.do(ctx, http.MethodGet, rawURL, nil, v)
}

// PostJSON encodes body as JSON, POSTs it, and decodes the response into v
// when v is non-nil. It is never retried.
func (c *Client) PostJSON(ctx context.Context, rawURL string, body, v any) error {
	data, err := json.Marshal(body)
	if err != nil {
		return errors.Wrap(errors.ErrCodeInvalidInput, err, "encode request body")
	}
	return c.do(ctx, http.MethodPost, rawURL, data, v)
}

func (c *Client) do(ctx context.Context, method, rawURL string, body []byte, v any) error {
	host, path := splitURL(rawURL)
	hooks := observability.HTTP()

	var reader io.Reader
	if body != nil {
		reader = bytes.NewReader(body)
	}
	req, err := http.NewRequestWithContext(ctx, method, rawURL, reader)
	if err != nil {
		return errors.Wrap(errors.ErrCodeInvalidInput, err, "build request")
	}
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	for k, val := range c.headers {
		req.Header.Set(k, val)
	}

	hooks.OnRequest(ctx, method, host, path)
	start := time.Now()
	resp, err := c.http.Do(req)
	if err != nil {
		hooks.OnError(ctx, method, host, path, err)
		if ctx.Err() != nil {
			return errors.Wrap(errors.ErrCodeTimeout, ctx.Err(), "%s %s", method, path)
		}
		return Retryable(errors.Wrap(errors.ErrCodeNetwork, err, "%s %s", method, path))
	}
	defer resp.Body.Close()
	hooks.OnResponse(ctx, method, host, path, resp.StatusCode, time.Since(start))

	if err := checkStatus(resp.StatusCode, method, path); err != nil {
		_, _ = io.Copy(io.Discard, resp.Body)
		return err
	}
	if v == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(v); err != nil {
		return errors.Wrap(errors.ErrCodeInvalidFormat, err, "decode %s response", path)
	}
	return nil
}

func checkStatus(code int, method, path string) error {
	switch {
	case code >= 200 && code < 300:
		return nil
	case code == http.StatusNotFound:
		return errors.New(errors.ErrCodeNotFound, "%s %s: status %d", method, path, code)
	case code >= 500 || code == http.StatusTooManyRequests:
		return Retryable(errors.New(errors.ErrCodeNetwork, "%s %s: status %d", method, path, code))
	default:
		return errors.New(errors.ErrCodeNetwork, "%s %s: status %d", method, path, code)
	}
}

func splitURL(raw string) (host, path string) {
	u, err := url.Parse(raw)
	if err != nil {
		return "", raw
	}
	return u.Host, u.Path
}
