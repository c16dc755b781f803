package fetcher

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"sync"
	"time"
)

// Result is a completed fetch. Body is fully read before Result is returned.
type Result struct {
	Body          []byte
	ContentType   string
	ContentLength int64
	StatusCode    int
	FinalURL      string
}

type Options struct {
	Timeout       time.Duration
	MaxConcurrent int
	MinInterval   time.Duration
	UserAgent     string
}

// Client wraps outbound HTTP with bounded concurrency, inter-call spacing,
// and a per-call timeout. Every other component fetches through it; failures
// come back as values, never as panics.
type Client struct {
	http        *http.Client
	sem         chan struct{}
	timeout     time.Duration
	minInterval time.Duration
	userAgent   string

	mu       sync.Mutex
	lastCall time.Time
}

func New(opts Options) *Client {
	if opts.MaxConcurrent <= 0 {
		opts.MaxConcurrent = 1
	}
	if opts.Timeout <= 0 {
		opts.Timeout = 30 * time.Second
	}

	return &Client{
		http:        &http.Client{},
		sem:         make(chan struct{}, opts.MaxConcurrent),
		timeout:     opts.Timeout,
		minInterval: opts.MinInterval,
		userAgent:   opts.UserAgent,
	}
}

// Get fetches a URL. At most MaxConcurrent calls are in flight at once and
// successive calls are spaced by at least MinInterval. A call exceeding the
// timeout resolves as a *Error with Timeout set.
func (c *Client) Get(ctx context.Context, url string) (*Result, error) {
	return c.do(ctx, http.MethodGet, url)
}

// Head issues a HEAD request, used to estimate image sizes from
// Content-Length without downloading bodies.
func (c *Client) Head(ctx context.Context, url string) (*Result, error) {
	return c.do(ctx, http.MethodHead, url)
}

func (c *Client) do(ctx context.Context, method, url string) (*Result, error) {
	select {
	case c.sem <- struct{}{}:
	case <-ctx.Done():
		return nil, &Error{URL: url, Err: ctx.Err(), Timeout: errors.Is(ctx.Err(), context.DeadlineExceeded)}
	}
	defer func() { <-c.sem }()

	if err := c.pace(ctx); err != nil {
		return nil, &Error{URL: url, Err: err, Timeout: errors.Is(err, context.DeadlineExceeded)}
	}

	timeoutCtx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(timeoutCtx, method, url, nil)
	if err != nil {
		return nil, &Error{URL: url, Err: fmt.Errorf("failed to create request: %w", err)}
	}

	if c.userAgent != "" {
		req.Header.Set("User-Agent", c.userAgent)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, &Error{URL: url, Err: err, Timeout: isTimeout(timeoutCtx, err)}
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, &Error{URL: url, Err: fmt.Errorf("failed to read response body: %w", err), Timeout: isTimeout(timeoutCtx, err)}
	}

	result := &Result{
		Body:          body,
		ContentType:   resp.Header.Get("Content-Type"),
		ContentLength: resp.ContentLength,
		StatusCode:    resp.StatusCode,
		FinalURL:      resp.Request.URL.String(),
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return result, &Error{URL: url, StatusCode: resp.StatusCode,
			Err: fmt.Errorf("HTTP error: %d %s", resp.StatusCode, resp.Status)}
	}

	return result, nil
}

// pace enforces the minimum spacing between successive outbound calls.
func (c *Client) pace(ctx context.Context) error {
	if c.minInterval <= 0 {
		return nil
	}

	c.mu.Lock()
	now := time.Now()
	wait := c.minInterval - now.Sub(c.lastCall)
	if wait < 0 {
		wait = 0
	}
	c.lastCall = now.Add(wait)
	c.mu.Unlock()

	if wait == 0 {
		return nil
	}

	timer := time.NewTimer(wait)
	defer timer.Stop()

	select {
	case <-timer.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func isTimeout(ctx context.Context, err error) bool {
	if errors.Is(ctx.Err(), context.DeadlineExceeded) {
		return true
	}
	var netErr interface{ Timeout() bool }
	if errors.As(err, &netErr) {
		return netErr.Timeout()
	}
	return false
}

// IsHTML reports whether the response looks like an HTML document.
func (r *Result) IsHTML() bool {
	return strings.Contains(strings.ToLower(r.ContentType), "text/html")
}
