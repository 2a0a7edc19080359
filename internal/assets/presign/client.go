// Package presign resolves asset keys to pre-signed URLs through the assets API.
//
// The API is called as {endpoint}assets?assetKey=<key> with the caller's ID
// token in the Authorization header, using the HTTP method the URL is
// requested for. A single URL is returned in "ps_url". Listing every object
// under a shared key returns "ps_urls".
package presign

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"time"

	"github.com/tidwall/gjson"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
	"golang.org/x/oauth2"

	"github.com/stacklok/spatial-anchors/internal/assets"
	"github.com/stacklok/spatial-anchors/internal/httpclient"
	"github.com/stacklok/spatial-anchors/internal/validators"
)

const (
	// AssetsPath is the resource path appended to the endpoint
	AssetsPath = "assets"

	// DefaultTimeout bounds a single resolution request
	DefaultTimeout = 10 * time.Second

	maxResponseSize = 1 << 20
)

// ErrNoURL is returned when the API answered without a URL
var ErrNoURL = errors.New("response does not contain a pre-signed URL")

// Option configures a Client
type Option func(*Client)

// WithHTTPClient replaces the HTTP client
func WithHTTPClient(c *http.Client) Option {
	return func(cl *Client) {
		cl.http = c
	}
}

// Client is an assets.Resolver backed by the pre-signed URL API
type Client struct {
	endpoint *url.URL
	tokens   oauth2.TokenSource
	http     *http.Client
}

var _ assets.Resolver = (*Client)(nil)

// NewClient creates a resolver for the API at endpoint
func NewClient(endpoint string, tokens oauth2.TokenSource, opts ...Option) (*Client, error) {
	u, err := url.Parse(endpoint)
	if err != nil {
		return nil, fmt.Errorf("invalid assets endpoint: %w", err)
	}
	if u.Scheme == "" || u.Host == "" {
		return nil, fmt.Errorf("assets endpoint must be an absolute URL, got %q", endpoint)
	}
	if tokens == nil {
		return nil, errors.New("token source is required")
	}

	c := &Client{
		endpoint: u.JoinPath(AssetsPath),
		tokens:   tokens,
		http: &http.Client{
			Timeout:   DefaultTimeout,
			Transport: otelhttp.NewTransport(http.DefaultTransport),
		},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c, nil
}

// ResolveURL returns a pre-signed URL for method on key
func (c *Client) ResolveURL(ctx context.Context, key, method string) (string, error) {
	switch method {
	case assets.MethodGet, assets.MethodPut:
	default:
		return "", fmt.Errorf("unsupported method %q", method)
	}

	body, err := c.call(ctx, method, key, nil)
	if err != nil {
		return "", err
	}

	psURL := gjson.GetBytes(body, "ps_url")
	if psURL.Type != gjson.String || psURL.String() == "" {
		return "", fmt.Errorf("%w: key %q", ErrNoURL, key)
	}
	return psURL.String(), nil
}

// ResolveAllURLs returns pre-signed read URLs for every object stored under key
func (c *Client) ResolveAllURLs(ctx context.Context, key string) ([]string, error) {
	body, err := c.call(ctx, http.MethodGet, key, url.Values{"all": {"true"}})
	if err != nil {
		return nil, err
	}

	result := gjson.GetBytes(body, "ps_urls")
	if !result.IsArray() {
		return nil, fmt.Errorf("%w: key %q", ErrNoURL, key)
	}

	var urls []string
	for _, u := range result.Array() {
		if s := u.String(); s != "" {
			urls = append(urls, s)
		}
	}
	return urls, nil
}

func (c *Client) call(ctx context.Context, method, key string, extra url.Values) ([]byte, error) {
	key, err := validators.ValidateAssetKey(key)
	if err != nil {
		return nil, err
	}

	token, err := c.tokens.Token()
	if err != nil {
		return nil, fmt.Errorf("failed to get ID token: %w", err)
	}

	u := *c.endpoint
	q := url.Values{"assetKey": {key}}
	for k, v := range extra {
		q[k] = v
	}
	u.RawQuery = q.Encode()

	req, err := http.NewRequestWithContext(ctx, method, u.String(), nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Authorization", token.AccessToken)
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")
	req.Header.Set("User-Agent", httpclient.UserAgent)

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to execute request: %w", err)
	}
	defer func() {
		_ = resp.Body.Close()
	}()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseSize))
	if err != nil {
		return nil, fmt.Errorf("failed to read response body: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		message := gjson.GetBytes(body, "message").String()
		if message == "" {
			message = resp.Status
		}
		return nil, httpclient.NewHTTPError(resp.StatusCode, method, c.endpoint.String(), message)
	}
	if !gjson.ValidBytes(body) {
		return nil, fmt.Errorf("invalid JSON response for key %q", key)
	}

	slog.Debug("Resolved pre-signed URL", "key", key, "method", method)
	return body, nil
}
