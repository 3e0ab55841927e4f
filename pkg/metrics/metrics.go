// Package metrics provides the centralized Prometheus registry reference
// for the webgrab client. All metrics are defined in their owning
// packages (client, ratelimit) to maintain modularity and avoid circular
// dependencies.
//
// This package provides documentation and reference for all available
// metrics.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

// Registry is the default Prometheus registry used by the client.
// All metrics are automatically registered via promauto in their
// respective packages.
var Registry = prometheus.DefaultRegisterer

// Metrics Documentation
//
// Request Metrics (pkg/client):
//   - webgrab_requests_total{status} (Counter): Fetch attempts by HTTP status,
//     or "network_error" for attempts that never produced a response
//   - webgrab_request_duration_seconds{status} (Histogram): Single-attempt duration
//   - webgrab_errors_total{class} (Counter): Failed attempts by class
//     (client, server, network)
//
// Retry Metrics (pkg/client):
//   - webgrab_retries_total{error_class} (Counter): Retry attempts by error class
//   - webgrab_retry_backoff_seconds{error_class} (Histogram): Linear backoff
//     duration before each retry
//   - webgrab_retry_exhausted_total{error_class} (Counter): Logical fetches that
//     used every permitted attempt without success
//
// Limiter Metrics (pkg/ratelimit):
//   - webgrab_inflight_requests (Gauge): Requests currently holding a permit
//   - webgrab_limiter_acquires_total (Counter): Total permit acquisitions
//
// Example Prometheus Queries:
//
//   # Attempt error rate
//   rate(webgrab_errors_total[5m]) / rate(webgrab_requests_total[5m])
//
//   # Limiter saturation (against a capacity of 10)
//   webgrab_inflight_requests / 10
//
//   # P95 attempt latency
//   histogram_quantile(0.95, rate(webgrab_request_duration_seconds_bucket[5m]))
//
//   # Retry exhaustion rate
//   rate(webgrab_retry_exhausted_total[5m])
