// Package ratelimit bounds the number of in-flight HTTP requests with a
// fixed-capacity permit gate. One permit authorizes one request awaiting
// a response; the gate is shared by every fetch issued through a client,
// single or batched.
package ratelimit

import (
	"context"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Prometheus metrics for limiter operations.
var (
	inflightRequests = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "webgrab_inflight_requests",
		Help: "Number of requests currently holding a limiter permit",
	})

	limiterWaitsTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "webgrab_limiter_acquires_total",
		Help: "Total number of limiter permit acquisitions",
	})
)

// Limiter is a counting semaphore implemented as a buffered-channel
// token pool. It is safe for concurrent use. A nil *Limiter is valid
// and gates nothing.
type Limiter struct {
	permits  chan struct{}
	capacity int
}

// New creates a limiter with the given capacity. Capacity must be > 0.
func New(capacity int) *Limiter {
	return &Limiter{
		permits:  make(chan struct{}, capacity),
		capacity: capacity,
	}
}

// Acquire blocks until a permit is available or ctx is done. On success
// the caller must call Release exactly once; Do handles this pairing
// automatically and is the preferred entry point.
func (l *Limiter) Acquire(ctx context.Context) error {
	if l == nil {
		return nil
	}

	select {
	case l.permits <- struct{}{}:
		inflightRequests.Inc()
		limiterWaitsTotal.Inc()
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Release returns a permit to the pool. It must be called exactly once
// per successful Acquire.
func (l *Limiter) Release() {
	if l == nil {
		return
	}

	inflightRequests.Dec()
	<-l.permits
}

// Do runs fn while holding a permit. The permit is released on every
// exit path, including a panic inside fn, so no permit can leak.
func (l *Limiter) Do(ctx context.Context, fn func() error) error {
	if err := l.Acquire(ctx); err != nil {
		return err
	}
	defer l.Release()

	return fn()
}

// Capacity returns the configured permit capacity, or 0 for a nil
// limiter.
func (l *Limiter) Capacity() int {
	if l == nil {
		return 0
	}
	return l.capacity
}

// InFlight returns the number of permits currently held.
func (l *Limiter) InFlight() int {
	if l == nil {
		return 0
	}
	return len(l.permits)
}
