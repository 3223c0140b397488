// Package metrics provides the centralized Prometheus metrics reference for
// the extractor. All metrics are defined in their respective packages
// (github, quota, cache, extract, sink) to maintain modularity and avoid
// circular dependencies.
//
// This package provides documentation and reference for all available metrics.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

// Registry is the default Prometheus registry used by the extractor.
// All metrics are automatically registered via promauto in their respective packages.
var Registry = prometheus.DefaultRegisterer

// Metrics Documentation
//
// Quota Metrics (pkg/quota):
//   - ghx_quota_calls_remaining (Gauge): Remote-reported calls remaining in the current window
//   - ghx_budget_calls_remaining (Gauge): Run-local call budget remaining
//   - ghx_budget_exhausted_total (Counter): Runs that hit budget or quota exhaustion
//
// Cache Metrics (pkg/cache):
//   - ghx_cache_hits_total{layer} (Counter): Cache hits by layer (fs, redis)
//   - ghx_cache_misses_total (Counter): Cache misses
//   - ghx_cache_size_bytes{layer} (Gauge): Current cache size in bytes
//   - ghx_cache_errors_total{operation} (Counter): Cache operation errors
//
// Request Metrics (pkg/github):
//   - ghx_requests_total{endpoint, status} (Counter): Total requests by endpoint and HTTP status
//   - ghx_request_duration_seconds{endpoint} (Histogram): Request duration by endpoint
//   - ghx_errors_total{class} (Counter): Errors by class (client, server, rate_limit, network)
//   - ghx_retries_total{error_class} (Counter): Retry attempts by error class
//   - ghx_retry_backoff_seconds{error_class} (Histogram): Backoff duration by error class
//   - ghx_retry_exhausted_total{error_class} (Counter): Requests that exhausted max retries
//
// Run Metrics (pkg/extract):
//   - ghx_runs_total{result} (Counter): Extraction runs by result (completed, interrupted, failed)
//   - ghx_records_processed_total{outcome} (Counter): Records by outcome (valid, invalid, failed)
//   - ghx_run_duration_seconds (Histogram): Extraction run duration
//   - ghx_cursor_position (Gauge): Cursor saved at the end of the last run
//
// Artifact Metrics (pkg/sink):
//   - ghx_artifact_uploads_total{result} (Counter): Upload attempts by result
//   - ghx_artifact_size_bytes (Gauge): Size of the last uploaded artifact
//
// Example Prometheus Queries:
//
//   # Cache Hit Rate
//   sum(rate(ghx_cache_hits_total[5m])) /
//   (sum(rate(ghx_cache_hits_total[5m])) + sum(rate(ghx_cache_misses_total[5m])))
//
//   # Budget Headroom
//   ghx_budget_calls_remaining < 10
//
//   # Failed Record Rate
//   rate(ghx_records_processed_total{outcome="failed"}[1h])
//
//   # P95 Request Latency
//   histogram_quantile(0.95, rate(ghx_request_duration_seconds_bucket[5m]))
//
//   # Cursor Progress
//   delta(ghx_cursor_position[1d])
