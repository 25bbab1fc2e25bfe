// Package metrics provides the centralized Prometheus registry reference
// for the storefront client. Metrics are defined in their respective
// packages (api, cache, ratelimit) via promauto to keep packages modular
// and avoid circular dependencies; this package documents them in one
// place.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

// Registry is the default Prometheus registerer used by the storefront
// client. All metrics register automatically via promauto in their
// respective packages.
var Registry = prometheus.DefaultRegisterer

// Metrics Documentation
//
// Request Metrics (pkg/api):
//   - storefront_requests_total{endpoint, status} (Counter): Requests by endpoint and HTTP status
//   - storefront_request_duration_seconds{endpoint} (Histogram): Request duration by endpoint
//   - storefront_errors_total{class} (Counter): Errors by class (network, parse, server, unauthorized)
//   - storefront_refreshes_total{result} (Counter): Credential refresh attempts by result
//
// Cache Metrics (pkg/cache):
//   - storefront_cache_hits_total{layer="redis"} (Counter): Cache hits by layer
//   - storefront_cache_misses_total (Counter): Cache misses
//   - storefront_cache_size_bytes{layer="redis"} (Gauge): Current cache size in bytes
//   - storefront_cache_errors_total{operation} (Counter): Cache operation errors
//
// Rate Limit Metrics (pkg/ratelimit):
//   - storefront_rate_limit_remaining (Gauge): Requests remaining in the current window
//   - storefront_rate_limit_blocks_total (Counter): Requests blocked on exhausted budget
//
// Example Prometheus Queries:
//
//   # Cache Hit Rate
//   sum(rate(storefront_cache_hits_total[5m])) /
//   (sum(rate(storefront_cache_hits_total[5m])) + sum(rate(storefront_cache_misses_total[5m])))
//
//   # Refresh Failure Rate
//   rate(storefront_refreshes_total{result="failure"}[5m])
//
//   # P95 Request Latency
//   histogram_quantile(0.95, rate(storefront_request_duration_seconds_bucket[5m]))
