// Package client provides the core webgrab HTTP client with retry,
// bounded concurrency, and error classification.
package client

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/webgrab/webgrab/pkg/extract"
	"github.com/webgrab/webgrab/pkg/ratelimit"
)

// Prometheus metrics for fetch operations.
var (
	requestsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "webgrab_requests_total",
		Help: "Total fetch attempts by HTTP status or outcome",
	}, []string{"status"})

	requestDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "webgrab_request_duration_seconds",
		Help:    "Duration of a single fetch attempt in seconds",
		Buckets: []float64{0.1, 0.5, 1, 2, 5, 10},
	}, []string{"status"})

	errorsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "webgrab_errors_total",
		Help: "Total fetch errors by class",
	}, []string{"class"})
)

// ErrorClass represents a classification of fetch failures.
type ErrorClass string

const (
	// ErrorClassClient represents 4xx client errors. Never retried.
	ErrorClassClient ErrorClass = "client"

	// ErrorClassServer represents 5xx server errors. Retried until
	// attempts are exhausted.
	ErrorClassServer ErrorClass = "server"

	// ErrorClassNetwork represents connection and timeout errors. Retried.
	ErrorClassNetwork ErrorClass = "network"
)

// Client is a concurrent web-fetching client. It is immutable after
// construction and safe for use from multiple goroutines; all fetches
// issued through it share one limiter and one transport.
type Client struct {
	httpClient *http.Client
	limiter    *ratelimit.Limiter
	config     Config
	logger     zerolog.Logger
}

// Config holds the client configuration.
type Config struct {
	// Timeout bounds each individual request attempt.
	Timeout time.Duration

	// MaxRetries is the total number of attempts per logical fetch,
	// including the first one. Must be >= 1.
	MaxRetries int

	// Backoff is the linear backoff unit between attempts: attempt n
	// waits n*Backoff before attempt n+1. Zero means the default of 1s.
	Backoff time.Duration

	// MaxConcurrent caps the number of in-flight requests across the
	// whole client. Zero means unlimited.
	MaxConcurrent int
}

// DefaultConfig returns a safe default configuration.
func DefaultConfig() Config {
	return Config{
		Timeout:    5 * time.Second,
		MaxRetries: 3,
		Backoff:    1 * time.Second,
	}
}

// New creates a new webgrab client.
func New(cfg Config) (*Client, error) {
	if cfg.Timeout <= 0 {
		return nil, fmt.Errorf("timeout must be positive (got %v)", cfg.Timeout)
	}

	if cfg.MaxRetries < 1 {
		return nil, fmt.Errorf("max_retries must be >= 1 (got %d)", cfg.MaxRetries)
	}

	if cfg.MaxConcurrent < 0 {
		return nil, fmt.Errorf("max_concurrent must be >= 0 (got %d)", cfg.MaxConcurrent)
	}

	if cfg.Backoff < 0 {
		return nil, fmt.Errorf("backoff must be >= 0 (got %v)", cfg.Backoff)
	}
	if cfg.Backoff == 0 {
		cfg.Backoff = 1 * time.Second
	}

	logger := log.With().Str("component", "webgrab-client").Logger()

	// A nil limiter means unlimited concurrency.
	var limiter *ratelimit.Limiter
	if cfg.MaxConcurrent > 0 {
		limiter = ratelimit.New(cfg.MaxConcurrent)
	}

	return &Client{
		httpClient: &http.Client{
			Timeout: cfg.Timeout,
		},
		limiter: limiter,
		config:  cfg,
		logger:  logger,
	}, nil
}

// Fetch retrieves the body of url as a string, retrying per the client's
// retry policy. It blocks until the fetch succeeds, fails terminally, or
// ctx is cancelled.
func (c *Client) Fetch(ctx context.Context, url string) (string, error) {
	return c.fetchWithRetry(ctx, url)
}

// FetchJSON fetches url through the same retry policy as Fetch and
// decodes the body as JSON into v. A body that is not valid JSON fails
// with a *DecodeError, distinct from transport and HTTP status errors.
func (c *Client) FetchJSON(ctx context.Context, url string, v any) error {
	body, err := c.fetchWithRetry(ctx, url)
	if err != nil {
		return err
	}

	if err := json.Unmarshal([]byte(body), v); err != nil {
		c.logger.Warn().
			Str("url", url).
			Err(err).
			Msg("Response body is not valid JSON")
		return &DecodeError{URL: url, Err: err}
	}

	return nil
}

// Select extracts the text content of every node in html matching the
// CSS selector, in document order.
func (c *Client) Select(html, selector string) ([]string, error) {
	return extract.Select(html, selector)
}

// SelectAttr extracts the named attribute from every node in html
// matching the CSS selector. Nodes lacking the attribute are skipped.
func (c *Client) SelectAttr(html, selector, attr string) ([]string, error) {
	return extract.SelectAttr(html, selector, attr)
}

// do performs a single request attempt, gated by the limiter. The permit
// is acquired before the request is sent and released when the attempt
// completes, regardless of outcome.
func (c *Client) do(ctx context.Context, url string) (int, string, error) {
	var (
		status int
		body   string
	)

	err := c.limiter.Do(ctx, func() error {
		start := time.Now()

		req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
		if err != nil {
			return &TransportError{URL: url, Err: err}
		}

		resp, err := c.httpClient.Do(req)
		if err != nil {
			requestsTotal.WithLabelValues("network_error").Inc()
			return &TransportError{URL: url, Err: err}
		}
		defer resp.Body.Close()

		data, err := io.ReadAll(resp.Body)
		if err != nil {
			requestsTotal.WithLabelValues("network_error").Inc()
			return &TransportError{URL: url, Err: err}
		}

		statusLabel := fmt.Sprintf("%d", resp.StatusCode)
		requestsTotal.WithLabelValues(statusLabel).Inc()
		requestDuration.WithLabelValues(statusLabel).Observe(time.Since(start).Seconds())

		status = resp.StatusCode
		body = string(data)
		return nil
	})
	if err != nil {
		return 0, "", err
	}

	return status, body, nil
}

// classifyStatus categorizes a non-2xx HTTP status for retry decisions
// and observability.
func classifyStatus(status int) ErrorClass {
	switch {
	case status >= 500:
		return ErrorClassServer
	case status >= 400:
		return ErrorClassClient
	default:
		// Redirects and other non-success statuses the transport did not
		// resolve are terminal, same as client errors.
		return ErrorClassClient
	}
}

// Limiter returns the client's concurrency limiter, or nil when the
// client is unlimited.
func (c *Client) Limiter() *ratelimit.Limiter {
	return c.limiter
}

// Close closes the client and releases idle transport connections.
func (c *Client) Close() error {
	c.httpClient.CloseIdleConnections()
	return nil
}

// SetHTTPClient sets a custom HTTP client (for testing).
func (c *Client) SetHTTPClient(client *http.Client) {
	c.httpClient = client
}
