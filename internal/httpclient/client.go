// Package httpclient provides the bounded HTTP client used to fetch and upload assets
package httpclient

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"time"

	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
)

const (
	// DefaultTimeout is the default timeout for HTTP requests
	DefaultTimeout = 30 * time.Second

	// MaxResponseSize is the maximum allowed response size (100MB)
	MaxResponseSize = 100 * 1024 * 1024

	// UserAgent is the user agent string for HTTP requests
	UserAgent = "spatial-anchors/1.0"
)

// ProgressFunc receives the number of bytes read so far and the expected
// total, which is -1 when the server did not announce a length
type ProgressFunc func(read, total int64)

// Client is an interface for HTTP operations
//
//go:generate mockgen -destination=mocks/mock_client.go -package=mocks -source=client.go Client
type Client interface {
	// Get performs an HTTP GET request and returns the response body
	Get(ctx context.Context, url string, opts ...RequestOption) ([]byte, error)
	// Put uploads body with an HTTP PUT request
	Put(ctx context.Context, url, contentType string, body []byte, opts ...RequestOption) error
}

// RequestOption customises a single request
type RequestOption func(*requestConfig)

type requestConfig struct {
	headers  http.Header
	progress ProgressFunc
}

// WithHeader sets a request header
func WithHeader(key, value string) RequestOption {
	return func(c *requestConfig) {
		c.headers.Set(key, value)
	}
}

// WithProgress reports download progress of the response body
func WithProgress(fn ProgressFunc) RequestOption {
	return func(c *requestConfig) {
		c.progress = fn
	}
}

// Option configures a DefaultClient
type Option func(*DefaultClient)

// WithTransport replaces the instrumented default transport
func WithTransport(rt http.RoundTripper) Option {
	return func(c *DefaultClient) {
		c.client.Transport = rt
	}
}

// WithMaxResponseSize overrides MaxResponseSize
func WithMaxResponseSize(n int64) Option {
	return func(c *DefaultClient) {
		c.maxResponseSize = n
	}
}

// DefaultClient is the default HTTP client implementation
type DefaultClient struct {
	client          *http.Client
	timeout         time.Duration
	maxResponseSize int64
}

// NewDefaultClient creates a new default HTTP client with the specified timeout
// If timeout is 0, uses DefaultTimeout
func NewDefaultClient(timeout time.Duration, opts ...Option) *DefaultClient {
	if timeout == 0 {
		timeout = DefaultTimeout
	}
	c := &DefaultClient{
		client: &http.Client{
			Timeout:   timeout,
			Transport: otelhttp.NewTransport(http.DefaultTransport),
		},
		timeout:         timeout,
		maxResponseSize: MaxResponseSize,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

func newRequestConfig(opts []RequestOption) *requestConfig {
	cfg := &requestConfig{headers: make(http.Header)}
	for _, opt := range opts {
		opt(cfg)
	}
	return cfg
}

// Get performs an HTTP GET request
func (c *DefaultClient) Get(ctx context.Context, url string, opts ...RequestOption) ([]byte, error) {
	cfg := newRequestConfig(opts)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}

	req.Header.Set("User-Agent", UserAgent)
	req.Header.Set("Accept", "*/*")
	for key, values := range cfg.headers {
		req.Header[key] = values
	}

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to execute request: %w", err)
	}
	defer func() {
		_ = resp.Body.Close()
	}()

	if resp.StatusCode != http.StatusOK {
		return nil, NewHTTPError(resp.StatusCode, http.MethodGet, url, resp.Status)
	}

	if resp.ContentLength > c.maxResponseSize {
		return nil, fmt.Errorf("response size %d bytes exceeds maximum allowed size of %d bytes (%.2f MB)",
			resp.ContentLength, c.maxResponseSize, float64(c.maxResponseSize)/(1024*1024))
	}

	var reader io.Reader = io.LimitReader(resp.Body, c.maxResponseSize+1) // +1 to detect if limit exceeded
	if cfg.progress != nil {
		reader = &progressReader{r: reader, total: resp.ContentLength, fn: cfg.progress}
	}
	body, err := io.ReadAll(reader)
	if err != nil {
		return nil, fmt.Errorf("failed to read response body: %w", err)
	}

	if int64(len(body)) > c.maxResponseSize {
		return nil, fmt.Errorf("response size exceeds maximum allowed size of %d bytes (%.2f MB)",
			c.maxResponseSize, float64(c.maxResponseSize)/(1024*1024))
	}

	return body, nil
}

// Put performs an HTTP PUT request. Any 2xx status is a success.
func (c *DefaultClient) Put(ctx context.Context, url, contentType string, body []byte, opts ...RequestOption) error {
	cfg := newRequestConfig(opts)

	req, err := http.NewRequestWithContext(ctx, http.MethodPut, url, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}

	req.Header.Set("User-Agent", UserAgent)
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}
	for key, values := range cfg.headers {
		req.Header[key] = values
	}

	resp, err := c.client.Do(req)
	if err != nil {
		return fmt.Errorf("failed to execute request: %w", err)
	}
	defer func() {
		_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, 64*1024))
		_ = resp.Body.Close()
	}()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return NewHTTPError(resp.StatusCode, http.MethodPut, url, resp.Status)
	}
	return nil
}

type progressReader struct {
	r     io.Reader
	read  int64
	total int64
	fn    ProgressFunc
}

func (p *progressReader) Read(b []byte) (int, error) {
	n, err := p.r.Read(b)
	if n > 0 {
		p.read += int64(n)
		p.fn(p.read, p.total)
	}
	return n, err
}
