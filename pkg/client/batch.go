package client

import (
	"context"
	"fmt"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"
)

// Result is the outcome of one URL within FetchManyResults.
type Result struct {
	URL  string
	Body string
	Err  error
}

// FetchMany fetches all urls concurrently, each independently subject to
// the client's retry policy and all sharing the client's limiter. The
// returned bodies match the input order, not completion order.
//
// The contract is fail-fast and all-or-nothing: if any URL fails
// terminally, the whole call fails with the first observed error and no
// partial results are returned. Cancellation propagates to the remaining
// fetches, cutting their backoff sleeps short. Callers needing per-URL
// granularity should use FetchManyResults instead.
func (c *Client) FetchMany(ctx context.Context, urls []string) ([]string, error) {
	start := time.Now()

	results := make([]string, len(urls))

	g, ctx := errgroup.WithContext(ctx)
	for i, url := range urls {
		g.Go(func() error {
			body, err := c.fetchWithRetry(ctx, url)
			if err != nil {
				return fmt.Errorf("fetch %s: %w", url, err)
			}
			results[i] = body
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		c.logger.Warn().
			Int("urls", len(urls)).
			Err(err).
			Msg("Batch fetch failed")
		return nil, err
	}

	c.logger.Info().
		Int("urls", len(urls)).
		Dur("duration", time.Since(start)).
		Msg("Batch fetch complete")

	return results, nil
}

// FetchManyResults fetches all urls concurrently like FetchMany but
// never fails the batch: every URL yields its own Result, in input
// order, with either a body or that URL's error.
func (c *Client) FetchManyResults(ctx context.Context, urls []string) []Result {
	results := make([]Result, len(urls))

	var wg sync.WaitGroup
	for i, url := range urls {
		wg.Add(1)
		go func() {
			defer wg.Done()
			body, err := c.fetchWithRetry(ctx, url)
			results[i] = Result{URL: url, Body: body, Err: err}
		}()
	}
	wg.Wait()

	return results
}
