// Package metrics exposes the Prometheus registry of the spot price cache.
// All metrics are defined in their respective packages (entsoe, cache,
// scheduler, notify, ratelimit) to maintain modularity and avoid circular
// dependencies.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Handler returns the HTTP handler serving every metric registered with the
// default registerer, which is where promauto puts them.
func Handler() http.Handler {
	return promhttp.Handler()
}

// Metrics Documentation
//
// Upstream Metrics (pkg/entsoe):
//   - spot_upstream_requests_total{status} (Counter): Requests by HTTP status or network_error
//   - spot_upstream_request_duration_seconds (Histogram): Request duration
//   - spot_upstream_errors_total{class} (Counter): Errors by class (client, server, rate_limit, network)
//   - spot_upstream_retries_total{class} (Counter): Retry attempts by error class
//   - spot_upstream_not_available_total (Counter): Acquisitions answered without data
//
// Rate Limit Metrics (pkg/ratelimit):
//   - spot_ratelimit_throttled_total (Counter): Requests that waited for the local limiter
//   - spot_upstream_rate_limited_total (Counter): 429 responses from upstream
//
// Cache Metrics (pkg/cache):
//   - spot_cache_points{slot} (Gauge): Points held per slot
//   - spot_cache_last_refresh_timestamp_seconds (Gauge): End of the last refresh iteration
//   - spot_cache_rotations_total (Counter): Day rollovers
//
// Scheduler Metrics (pkg/scheduler):
//   - spot_scheduler_iterations_total{outcome} (Counter): Iterations by outcome (ok, failure)
//   - spot_scheduler_consecutive_failures (Gauge): Current failure streak
//   - spot_scheduler_next_interval_seconds (Gauge): Delay until the next iteration
//   - spot_scheduler_events_published_total{type} (Counter): Change events by type
//
// Notifier Metrics (pkg/notify):
//   - spot_notify_subscribers (Gauge): Registered subscribers
//   - spot_notify_dropped_total (Counter): Subscribers dropped after a failed delivery
//   - spot_notify_relay_published_total (Counter): Events relayed to Redis
//
// Example Prometheus Queries:
//
//   # Tomorrow still missing late in the afternoon
//   spot_cache_points{slot="tomorrow"} == 0 and hour() >= 14
//
//   # Refresh failing repeatedly
//   spot_scheduler_consecutive_failures > 3
//
//   # Upstream error rate
//   rate(spot_upstream_errors_total[15m])
//
//   # P95 Request Latency
//   histogram_quantile(0.95, rate(spot_upstream_request_duration_seconds_bucket[1h]))
