package client

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Prometheus metrics for retry operations.
var (
	retriesTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "webgrab_retries_total",
		Help: "Total number of retry attempts by error class",
	}, []string{"error_class"})

	retryBackoffSeconds = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "webgrab_retry_backoff_seconds",
		Help:    "Backoff duration before retries by error class",
		Buckets: []float64{0.5, 1, 2, 5, 10, 30, 60},
	}, []string{"error_class"})

	retryExhaustedTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "webgrab_retry_exhausted_total",
		Help: "Total number of times retry attempts were exhausted by error class",
	}, []string{"error_class"})
)

// fetchWithRetry runs a logical fetch: up to MaxRetries attempts with
// linear backoff between them. Attempt n sleeps n*Backoff before
// attempt n+1. The limiter permit is held only for the duration of each
// network call, never across a backoff sleep.
func (c *Client) fetchWithRetry(ctx context.Context, url string) (string, error) {
	var (
		lastErr   error
		lastClass ErrorClass
	)

	for attempt := 1; attempt <= c.config.MaxRetries; attempt++ {
		status, body, err := c.do(ctx, url)

		switch {
		case err != nil:
			// Permit acquisition aborted by the caller: not a network
			// failure, stop immediately.
			if ctx.Err() != nil {
				return "", fmt.Errorf("%w: %v", ErrContextCancelled, ctx.Err())
			}

			lastErr = err
			lastClass = ErrorClassNetwork
			errorsTotal.WithLabelValues(string(ErrorClassNetwork)).Inc()

			c.logger.Warn().
				Str("url", url).
				Int("attempt", attempt).
				Err(err).
				Msg("Fetch attempt failed")

		case status >= 200 && status < 300:
			if attempt > 1 {
				c.logger.Info().
					Str("url", url).
					Int("attempt", attempt).
					Msg("Fetch succeeded after retry")
			}
			return body, nil

		default:
			lastErr = &StatusError{
				StatusCode: status,
				Status:     fmt.Sprintf("%d %s", status, http.StatusText(status)),
				URL:        url,
			}
			lastClass = classifyStatus(status)
			errorsTotal.WithLabelValues(string(lastClass)).Inc()

			c.logger.Warn().
				Str("url", url).
				Int("attempt", attempt).
				Int("status", status).
				Str("error_class", string(lastClass)).
				Msg("Fetch attempt returned error status")

			if !shouldRetry(lastClass) {
				// Client errors are terminal regardless of remaining attempts.
				return "", lastErr
			}
		}

		if attempt >= c.config.MaxRetries {
			break
		}

		// Linear backoff: attempt 1 waits 1*Backoff, attempt 2 waits
		// 2*Backoff, and so on.
		wait := time.Duration(attempt) * c.config.Backoff

		retriesTotal.WithLabelValues(string(lastClass)).Inc()
		retryBackoffSeconds.WithLabelValues(string(lastClass)).Observe(wait.Seconds())

		c.logger.Debug().
			Str("url", url).
			Int("attempt", attempt).
			Dur("backoff", wait).
			Msg("Retrying fetch after backoff")

		select {
		case <-ctx.Done():
			c.logger.Warn().
				Str("url", url).
				Int("attempt", attempt).
				Msg("Context cancelled during retry backoff")
			return "", fmt.Errorf("%w: %v", ErrContextCancelled, ctx.Err())
		case <-time.After(wait):
		}
	}

	// All attempts used without a 2xx. Exhaustion is itself terminal and
	// carries the last observed reason.
	retryExhaustedTotal.WithLabelValues(string(lastClass)).Inc()
	c.logger.Warn().
		Str("url", url).
		Int("max_retries", c.config.MaxRetries).
		Str("error_class", string(lastClass)).
		Msg("Retry attempts exhausted")

	return "", fmt.Errorf("%w after %d attempts: %w", ErrRetryExhausted, c.config.MaxRetries, lastErr)
}
