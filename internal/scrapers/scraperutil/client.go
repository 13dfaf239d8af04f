package scraperutil

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"sync"
	"sync/atomic"
	"time"

	"golang.org/x/sync/semaphore"
)

const (
	defaultTimeout = 30 * time.Second
	maxRetries     = 2
	retryBaseDelay = 500 * time.Millisecond
	maxBodySize    = 20 << 20
)

// Client wraps http.Client with the behavior every bookmaker adapter needs:
// a concurrency cap, bounded retry on 429/5xx honoring Retry-After, JSON
// decoding and request/error counters.
type Client struct {
	mu      sync.Mutex
	http    *http.Client
	sem     *semaphore.Weighted
	maxConc int64
	headers map[string]string

	requests atomic.Int64
	errors   atomic.Int64
}

// Option configures a Client.
type Option func(*Client)

// WithTimeout sets the per-request timeout.
func WithTimeout(d time.Duration) Option {
	return func(c *Client) { c.http.Timeout = d }
}

// WithMaxConcurrent caps in-flight requests.
func WithMaxConcurrent(n int64) Option {
	return func(c *Client) {
		c.maxConc = n
		c.sem = semaphore.NewWeighted(n)
	}
}

// WithHeader adds a header to every request.
func WithHeader(key, value string) Option {
	return func(c *Client) { c.headers[key] = value }
}

func NewClient(opts ...Option) *Client {
	c := &Client{
		http: &http.Client{
			Timeout: defaultTimeout,
			Transport: &http.Transport{
				MaxIdleConnsPerHost: 10,
				IdleConnTimeout:     90 * time.Second,
			},
		},
		maxConc: 10,
		headers: map[string]string{
			"User-Agent": "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/124.0 Safari/537.36",
			"Accept":     "application/json",
		},
	}
	c.sem = semaphore.NewWeighted(c.maxConc)
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// SetHeader updates a default header, e.g. a refreshed bearer token.
func (c *Client) SetHeader(key, value string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.headers[key] = value
}

// GetJSON fetches url and decodes the JSON body into out.
func (c *Client) GetJSON(ctx context.Context, url string, out any) error {
	return c.doJSON(ctx, http.MethodGet, url, nil, out)
}

// PostJSON posts body as JSON to url and decodes the JSON response into out.
func (c *Client) PostJSON(ctx context.Context, url string, body, out any) error {
	return c.doJSON(ctx, http.MethodPost, url, body, out)
}

// GetBody fetches url and returns the raw body.
func (c *Client) GetBody(ctx context.Context, url string) ([]byte, error) {
	return c.do(ctx, http.MethodGet, url, nil)
}

func (c *Client) doJSON(ctx context.Context, method, url string, body, out any) error {
	var payload []byte
	if body != nil {
		var err error
		payload, err = json.Marshal(body)
		if err != nil {
			return fmt.Errorf("failed to encode request body: %w", err)
		}
	}
	data, err := c.do(ctx, method, url, payload)
	if err != nil {
		return err
	}
	if out == nil {
		return nil
	}
	if err := json.Unmarshal(data, out); err != nil {
		c.errors.Add(1)
		return fmt.Errorf("failed to decode response from %s: %w", url, err)
	}
	return nil
}

func (c *Client) do(ctx context.Context, method, url string, payload []byte) ([]byte, error) {
	if err := c.sem.Acquire(ctx, 1); err != nil {
		return nil, err
	}
	defer c.sem.Release(1)

	var lastErr error
	for attempt := 0; attempt <= maxRetries; attempt++ {
		if attempt > 0 {
			select {
			case <-ctx.Done():
				return nil, ctx.Err()
			case <-time.After(retryBaseDelay << (attempt - 1)):
			}
		}

		data, retryable, err := c.attempt(ctx, method, url, payload)
		if err == nil {
			return data, nil
		}
		lastErr = err
		if !retryable {
			break
		}
	}
	c.errors.Add(1)
	return nil, lastErr
}

func (c *Client) attempt(ctx context.Context, method, url string, payload []byte) (data []byte, retryable bool, err error) {
	var body io.Reader
	if payload != nil {
		body = bytes.NewReader(payload)
	}
	req, err := http.NewRequestWithContext(ctx, method, url, body)
	if err != nil {
		return nil, false, fmt.Errorf("failed to build request: %w", err)
	}
	c.mu.Lock()
	for k, v := range c.headers {
		req.Header.Set(k, v)
	}
	c.mu.Unlock()
	if payload != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	c.requests.Add(1)
	resp, err := c.http.Do(req)
	if err != nil {
		return nil, ctx.Err() == nil, fmt.Errorf("request to %s failed: %w", url, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusTooManyRequests || resp.StatusCode >= 500 {
		if wait := retryAfter(resp); wait > 0 {
			select {
			case <-ctx.Done():
				return nil, false, ctx.Err()
			case <-time.After(wait):
			}
		}
		return nil, true, fmt.Errorf("%s returned status %d", url, resp.StatusCode)
	}
	if resp.StatusCode != http.StatusOK {
		return nil, false, fmt.Errorf("%s returned status %d", url, resp.StatusCode)
	}

	data, err = io.ReadAll(io.LimitReader(resp.Body, maxBodySize))
	if err != nil {
		return nil, true, fmt.Errorf("failed to read response from %s: %w", url, err)
	}
	return data, false, nil
}

func retryAfter(resp *http.Response) time.Duration {
	v := resp.Header.Get("Retry-After")
	if v == "" {
		return 0
	}
	if secs, err := strconv.Atoi(v); err == nil && secs > 0 && secs <= 30 {
		return time.Duration(secs) * time.Second
	}
	return 0
}

// Requests returns the total request count.
func (c *Client) Requests() int64 { return c.requests.Load() }

// Errors returns the total error count.
func (c *Client) Errors() int64 { return c.errors.Load() }

// Reset drops pooled connections so the next request opens a fresh session.
func (c *Client) Reset() {
	c.http.CloseIdleConnections()
}
