// Package metrics provides the Prometheus registry used by the catalog feed.
// All metrics are defined in their respective packages (client, cache,
// ratelimit, translator, pagination, server) to maintain modularity and avoid
// circular dependencies.
//
// This package provides documentation and reference for all available metrics.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

// Registry is the default Prometheus registry used by the catalog feed.
// All metrics are automatically registered via promauto in their respective packages.
var Registry = prometheus.DefaultRegisterer

// Gatherer is the registry served on /metrics.
var Gatherer = prometheus.DefaultGatherer

// Metrics Documentation
//
// Error Budget Metrics (pkg/ratelimit):
//   - catalog_upstream_errors_remaining (Gauge): Upstream failures still tolerated in the window
//   - catalog_error_budget_blocks_total (Counter): Upstream requests refused by the budget
//   - catalog_error_budget_throttles_total (Counter): Upstream requests delayed by the budget
//
// Cache Metrics (pkg/cache):
//   - catalog_cache_hits_total (Counter): List windows served from Redis
//   - catalog_cache_misses_total (Counter): Cache misses (including stale entries)
//   - catalog_cache_stored_bytes (Gauge): Bytes written to the cache
//   - catalog_cache_conditional_requests_total (Counter): Revalidation requests sent
//   - catalog_cache_not_modified_total (Counter): 304 Not Modified answers
//   - catalog_cache_errors_total{operation} (Counter): Cache operation errors
//
// Upstream Metrics (pkg/client):
//   - catalog_upstream_requests_total{status} (Counter): Upstream requests by HTTP status
//   - catalog_upstream_request_duration_seconds (Histogram): Upstream request duration
//   - catalog_upstream_errors_total{class} (Counter): Errors by class (client, server, rate_limit, network, malformed)
//   - catalog_upstream_retries_total{error_class} (Counter): Retry attempts
//   - catalog_upstream_retry_backoff_seconds{error_class} (Histogram): Backoff durations
//   - catalog_upstream_retry_exhausted_total{error_class} (Counter): Requests that exhausted retries
//
// Translation Metrics (pkg/translator):
//   - catalog_translations_total{mode, result} (Counter): Page translations (mode all|tag)
//   - catalog_short_pages_total (Counter): Short upstream pages that contradicted the count
//   - catalog_dropped_items_total{reason} (Counter): Results dropped (bad_id, out_of_range)
//
// Warm-up Metrics (pkg/pagination):
//   - catalog_warm_pages_total{result} (Counter): Pages translated during warm-up
//
// HTTP Metrics (internal/server):
//   - catalog_http_requests_total{route, status} (Counter): Requests served
//   - catalog_http_request_duration_seconds{route} (Histogram): Request latency
//
// Example Prometheus Queries:
//
//   # Cache Hit Rate
//   sum(rate(catalog_cache_hits_total[5m])) /
//   (sum(rate(catalog_cache_hits_total[5m])) + sum(rate(catalog_cache_misses_total[5m])))
//
//   # Error Budget Status
//   catalog_upstream_errors_remaining < 20
//
//   # Upstream Error Rate
//   rate(catalog_upstream_errors_total[5m])
//
//   # P95 Feed Latency
//   histogram_quantile(0.95, rate(catalog_http_request_duration_seconds_bucket{route="/api/images"}[5m]))
//
//   # Upstream contract drift
//   increase(catalog_short_pages_total[1h]) > 0
