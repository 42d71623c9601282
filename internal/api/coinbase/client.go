package coinbase

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/Alias1177/btcpipe/internal/apperr"
	"github.com/Alias1177/btcpipe/internal/model"
	httpClient "github.com/Alias1177/btcpipe/internal/platform/http"
	"github.com/Alias1177/btcpipe/internal/validate"
)

// DefaultURL is the public spot price endpoint
const DefaultURL = "https://api.coinbase.com/v2/prices/spot?currency=USD"

const opFetch = "fetch spot price"

// Client is the Coinbase spot price client
type Client struct {
	url        string
	httpClient *httpClient.Client
	logger     zerolog.Logger
}

// ClientOptions holds options for creating a new Coinbase client
type ClientOptions struct {
	URL             string
	RequestTimeout  time.Duration
	RequestsPerSec  int
	MaxRetries      int
	MaxRetryTimeout time.Duration
	InitialInterval time.Duration
}

// NewClient creates a new Coinbase API client
func NewClient(options ClientOptions) *Client {
	logger := log.With().Str("component", "coinbase_client").Logger()

	httpOpts := httpClient.ClientOptions{
		Timeout:         options.RequestTimeout,
		RequestsPerSec:  options.RequestsPerSec,
		MaxRetries:      options.MaxRetries,
		MaxRetryTimeout: options.MaxRetryTimeout,
		InitialInterval: options.InitialInterval,
		Logger:          logger,
	}

	// Apply defaults if not set
	if httpOpts.Timeout == 0 {
		httpOpts.Timeout = 10 * time.Second
	}
	if options.URL == "" {
		options.URL = DefaultURL
	}

	return &Client{
		url:        options.URL,
		httpClient: httpClient.NewClient(httpOpts),
		logger:     logger,
	}
}

// URL returns the endpoint the client queries
func (c *Client) URL() string {
	return c.url
}

// FetchSpot performs one GET against the spot endpoint and returns the
// decoded body. It does not validate the shape.
func (c *Client) FetchSpot(ctx context.Context) (model.RawResponse, error) {
	c.logger.Debug().Str("url", c.url).Msg("Fetching spot price")

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.url, nil)
	if err != nil {
		return nil, apperr.Transport(opFetch, fmt.Errorf("creating request: %w", err))
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.DoRequest(ctx, req)
	if err != nil {
		return nil, apperr.Transport(opFetch, fmt.Errorf("HTTP request failed: %w", err))
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, apperr.Transport(opFetch, fmt.Errorf("reading response body: %w", err))
	}

	c.logger.Debug().Int("status", resp.StatusCode).Int("bytes", len(body)).Msg("Received spot price response")

	value, err := decode(body)
	if err != nil {
		c.logger.Debug().Err(err).Str("response", truncate(body, 512)).Msg("Error parsing JSON")
		return nil, apperr.Transport(opFetch, err)
	}

	// A well-formed body of the wrong shape is a validation failure
	return validate.Document(value)
}

// decode parses body as JSON. The top-level shape is not checked.
func decode(body []byte) (any, error) {
	trimmed := bytes.TrimSpace(body)
	if len(trimmed) == 0 {
		return nil, errors.New("empty response body")
	}

	var value any
	if err := json.Unmarshal(trimmed, &value); err != nil {
		return nil, fmt.Errorf("parsing JSON: %w", err)
	}
	return value, nil
}

func truncate(body []byte, n int) string {
	if len(body) <= n {
		return string(body)
	}
	return string(body[:n]) + "..."
}
