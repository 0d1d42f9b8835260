package httputil

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/matzehuels/recompose/pkg/cache"
	"github.com/matzehuels/recompose/pkg/errors"
)

const (
	httpTimeout = 30 * time.Second

	// DefaultMaxBytes caps a fetched body.
	DefaultMaxBytes = 32 << 20
)

// Client reads remote resources through a cache.
type Client struct {
	http    *http.Client
	cache   cache.Cache
	keyer   cache.Keyer
	ttl     time.Duration
	backoff cache.Backoff
	headers map[string]string

	// MaxBytes bounds the body size. Zero selects [DefaultMaxBytes].
	MaxBytes int64
}

// NewClient creates a Client backed by c. A nil cache disables caching and a
// nil keyer selects the default keys.
func NewClient(c cache.Cache, keyer cache.Keyer, ttl time.Duration) *Client {
	if c == nil {
		c = cache.NewNullCache()
	}
	if keyer == nil {
		keyer = cache.NewDefaultKeyer()
	}
	return &Client{
		http:    NewHTTPClient(),
		cache:   c,
		keyer:   keyer,
		ttl:     ttl,
		backoff: cache.DefaultBackoff,
	}
}

// NewHTTPClient creates an HTTP client with the standard fetch timeout.
func NewHTTPClient() *http.Client {
	return &http.Client{Timeout: httpTimeout}
}

// WithHTTPClient replaces the transport client.
func (c *Client) WithHTTPClient(hc *http.Client) *Client {
	c.http = hc
	return c
}

// WithHeaders sets headers sent with every request.
func (c *Client) WithHeaders(h map[string]string) *Client {
	c.headers = h
	return c
}

// WithBackoff replaces the retry policy.
func (c *Client) WithBackoff(b cache.Backoff) *Client {
	c.backoff = b
	return c
}

// IsRemote reports whether s is an http or https URL.
func IsRemote(s string) bool {
	return strings.HasPrefix(s, "http://") || strings.HasPrefix(s, "https://")
}

// Get returns the body at url, from the cache when present.
func (c *Client) Get(ctx context.Context, url string) ([]byte, error) {
	if !IsRemote(url) {
		return nil, errors.New(errors.ErrCodeInvalidInput, "not an http(s) URL")
	}
	key := c.keyer.RemoteKey(url)
	if data, ok, err := c.cache.Get(ctx, key); err == nil && ok {
		return data, nil
	}

	var body []byte
	err := c.backoff.Retry(ctx, func() error {
		var err error
		body, err = c.fetch(ctx, url)
		return err
	})
	if err != nil {
		return nil, err
	}
	_ = c.cache.Set(ctx, key, body, c.ttl)
	return body, nil
}

func (c *Client) fetch(ctx context.Context, url string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, errors.Wrap(errors.ErrCodeInvalidInput, err, "bad URL")
	}
	for k, v := range c.headers {
		req.Header.Set(k, v)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		return nil, cache.Retryable(fmt.Errorf("%w: %v", cache.ErrNetwork, err))
	}
	defer resp.Body.Close()

	if err := checkStatus(resp.StatusCode); err != nil {
		return nil, err
	}

	limit := c.MaxBytes
	if limit <= 0 {
		limit = DefaultMaxBytes
	}
	data, err := io.ReadAll(io.LimitReader(resp.Body, limit+1))
	if err != nil {
		return nil, cache.Retryable(fmt.Errorf("%w: %v", cache.ErrNetwork, err))
	}
	if int64(len(data)) > limit {
		return nil, errors.New(errors.ErrCodeInvalidInput, "remote body exceeds %d bytes", limit)
	}
	return data, nil
}

func checkStatus(code int) error {
	switch {
	case code == http.StatusOK:
		return nil
	case code == http.StatusNotFound:
		return cache.ErrNotFound
	case code == http.StatusTooManyRequests, code >= 500:
		return cache.Retryable(fmt.Errorf("%w: status %d", cache.ErrNetwork, code))
	default:
		return fmt.Errorf("%w: status %d", cache.ErrNetwork, code)
	}
}
