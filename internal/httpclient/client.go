package httpclient

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/cenkalti/backoff/v5"
	"golang.org/x/time/rate"
)

const (
	defaultTimeout     = 30 * time.Second
	defaultMaxAttempts = 2
	defaultMaxBackoff  = 30 * time.Second
	maxErrorBody       = 512
)

// Client is an HTTP client with rate limiting and bounded retry.
type Client struct {
	http        *http.Client
	limiter     *rate.Limiter
	maxAttempts uint
	maxBackoff  time.Duration
	userAgent   string
}

// Option configures the Client.
type Option func(*Client)

// WithRateLimit sets requests per second.
func WithRateLimit(rps float64) Option {
	return func(cl *Client) {
		if rps > 0 {
			cl.limiter = rate.NewLimiter(rate.Limit(rps), 1)
		}
	}
}

// WithTimeout sets the per-attempt timeout.
func WithTimeout(d time.Duration) Option {
	return func(cl *Client) {
		if d > 0 {
			cl.http.Timeout = d
		}
	}
}

// WithRetry bounds the number of attempts and the longest wait between them.
func WithRetry(maxAttempts uint, maxBackoff time.Duration) Option {
	return func(cl *Client) {
		if maxAttempts > 0 {
			cl.maxAttempts = maxAttempts
		}
		if maxBackoff > 0 {
			cl.maxBackoff = maxBackoff
		}
	}
}

// WithHTTPClient replaces the underlying http.Client.
func WithHTTPClient(h *http.Client) Option {
	return func(cl *Client) { cl.http = h }
}

// WithUserAgent sets the User-Agent header on every request.
func WithUserAgent(ua string) Option {
	return func(cl *Client) { cl.userAgent = ua }
}

// New creates a new HTTP client.
func New(opts ...Option) *Client {
	c := &Client{
		http:        &http.Client{Timeout: defaultTimeout},
		maxAttempts: defaultMaxAttempts,
		maxBackoff:  defaultMaxBackoff,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Response wraps an HTTP response body and metadata.
type Response struct {
	Body       []byte
	StatusCode int
	Attempts   int
}

// StatusError is returned when the server answers with a non-success status.
type StatusError struct {
	URL        string
	StatusCode int
	Body       string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("HTTP GET %s: status %d: %s", e.URL, e.StatusCode, e.Body)
}

// Retryable reports whether the status is worth another attempt.
func (e *StatusError) Retryable() bool {
	return e.StatusCode >= 500 ||
		e.StatusCode == http.StatusRequestTimeout ||
		e.StatusCode == http.StatusTooManyRequests
}

// Get performs an HTTP GET, retrying transport failures and retryable statuses
// with exponential backoff.
func (c *Client) Get(ctx context.Context, url string, headers map[string]string) (*Response, error) {
	attempts := 0
	op := func() (*Response, error) {
		attempts++
		resp, err := c.do(ctx, url, headers)
		if err == nil {
			resp.Attempts = attempts
			return resp, nil
		}

		var se *StatusError
		if errors.As(err, &se) && !se.Retryable() {
			return nil, backoff.Permanent(err)
		}
		if ctx.Err() != nil {
			return nil, backoff.Permanent(err)
		}
		return nil, err
	}

	b := backoff.NewExponentialBackOff()
	b.InitialInterval = min(500*time.Millisecond, c.maxBackoff)
	b.MaxInterval = c.maxBackoff

	resp, err := backoff.Retry(ctx, op,
		backoff.WithBackOff(b),
		backoff.WithMaxTries(c.maxAttempts),
		backoff.WithNotify(func(err error, wait time.Duration) {
			slog.Warn("retrying request", "url", url, "attempt", attempts, "wait", wait, "error", err)
		}),
	)
	if err != nil {
		return nil, err
	}
	return resp, nil
}

func (c *Client) do(ctx context.Context, url string, headers map[string]string) (*Response, error) {
	// Rate limit
	if c.limiter != nil {
		if err := c.limiter.Wait(ctx); err != nil {
			return nil, fmt.Errorf("rate limit wait: %w", err)
		}
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("creating request: %w", err)
	}

	req.Header.Set("Accept", "application/json")
	if c.userAgent != "" {
		req.Header.Set("User-Agent", c.userAgent)
	}
	for k, v := range headers {
		req.Header.Set(k, v)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("HTTP GET %s: %w", url, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("reading response body: %w", err)
	}

	if resp.StatusCode >= 400 {
		snippet := string(body)
		if len(snippet) > maxErrorBody {
			snippet = snippet[:maxErrorBody]
		}
		return nil, &StatusError{URL: url, StatusCode: resp.StatusCode, Body: snippet}
	}

	return &Response{Body: body, StatusCode: resp.StatusCode}, nil
}
