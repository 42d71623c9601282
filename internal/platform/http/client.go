package http

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/rs/zerolog"
	"golang.org/x/time/rate"
)

// Client is a wrapper for HTTP client with rate limiting
type Client struct {
	HTTPClient *http.Client
	Limiter    *rate.Limiter

	maxRetries      int
	maxRetryTimeout time.Duration
	initialInterval time.Duration
	logger          zerolog.Logger
}

// ClientOptions holds options for creating a new Client
type ClientOptions struct {
	Timeout         time.Duration
	RequestsPerSec  int
	MaxRetries      int // 0 means bounded only by MaxRetryTimeout
	MaxRetryTimeout time.Duration
	InitialInterval time.Duration
	Logger          zerolog.Logger
}

// NewClient creates a new HTTP client allowing RequestsPerSec requests
// per second
func NewClient(opts ClientOptions) *Client {
	// Set default values if not provided
	if opts.Timeout == 0 {
		opts.Timeout = 30 * time.Second
	}
	if opts.RequestsPerSec == 0 {
		opts.RequestsPerSec = 5
	}
	if opts.MaxRetryTimeout == 0 {
		opts.MaxRetryTimeout = 30 * time.Second
	}
	if opts.InitialInterval == 0 {
		opts.InitialInterval = backoff.DefaultInitialInterval
	}

	return &Client{
		HTTPClient: &http.Client{
			Timeout: opts.Timeout,
		},
		Limiter:         rate.NewLimiter(rate.Limit(opts.RequestsPerSec), 1),
		maxRetries:      opts.MaxRetries,
		maxRetryTimeout: opts.MaxRetryTimeout,
		initialInterval: opts.InitialInterval,
		logger:          opts.Logger,
	}
}

// DoRequest performs an HTTP request with rate limiting and retries.
// Network errors, 429 and 5xx are retried; other non-200 answers are not.
func (c *Client) DoRequest(ctx context.Context, req *http.Request) (*http.Response, error) {
	// Wait for rate limiter
	if err := c.Limiter.Wait(ctx); err != nil {
		return nil, err
	}

	var resp *http.Response
	operation := func() error {
		var err error
		resp, err = c.HTTPClient.Do(req)
		if err != nil {
			if ctx.Err() != nil {
				return backoff.Permanent(err)
			}
			return err
		}
		if resp.StatusCode != http.StatusOK {
			resp.Body.Close()
			statusErr := &HTTPStatusError{StatusCode: resp.StatusCode}
			if !statusErr.Retryable() {
				return backoff.Permanent(statusErr)
			}
			return statusErr
		}
		return nil
	}

	expBackoff := backoff.NewExponentialBackOff()
	expBackoff.InitialInterval = c.initialInterval
	expBackoff.MaxElapsedTime = c.maxRetryTimeout

	var strategy backoff.BackOff = expBackoff
	if c.maxRetries > 0 {
		strategy = backoff.WithMaxRetries(strategy, uint64(c.maxRetries))
	}

	notify := func(err error, wait time.Duration) {
		c.logger.Debug().Err(err).Dur("wait", wait).Str("url", req.URL.String()).Msg("Retrying request")
	}

	if err := backoff.RetryNotify(operation, backoff.WithContext(strategy, ctx), notify); err != nil {
		return nil, err
	}

	return resp, nil
}

// HTTPStatusError represents an error due to a non-200 HTTP status code
type HTTPStatusError struct {
	StatusCode int
}

// Error implements the error interface
func (e *HTTPStatusError) Error() string {
	return "non-200 status code: " + http.StatusText(e.StatusCode)
}

// Retryable reports whether the status is worth another attempt
func (e *HTTPStatusError) Retryable() bool {
	return e.StatusCode == http.StatusTooManyRequests || e.StatusCode >= 500
}

// StatusCode returns the status carried by err, or 0
func StatusCode(err error) int {
	var statusErr *HTTPStatusError
	if errors.As(err, &statusErr) {
		return statusErr.StatusCode
	}
	return 0
}
