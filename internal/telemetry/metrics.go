// Package telemetry provides application-level observability for the RADIUS gateway.
//
// # Prometheus Metrics Endpoint
//
// All metrics are registered against the default Prometheus registry and are
// automatically available on the side-channel HTTP server started by main.go:
//
//	GET http(s)://<host>:<RGW_TELEMETRY_METRICS_PROMETHEUS_PORT>/metrics
//
// Default port: 9090.  The endpoint returns data in the Prometheus text exposition
// format (Content-Type: text/plain; version=0.0.4) and is intended to be scraped by
// a Prometheus server every 15–60 seconds.  It is NOT served by the Gin router, so
// it never competes with NAS traffic for router middleware time.
//
// # Metric Groups
//
//   - HTTP request counters and latency histograms (labelled by route template, not raw URL)
//   - Authentication attempt counters and organization-token cache hit/miss counters
//   - RADIUS authorize decision, post-auth, and accounting packet counters
//   - Batch user creation and expired-user sweeper counters
//   - Database connection pool gauge (polled every 30 s)
//
// # Label Cardinality
//
// HTTP metrics use c.FullPath() (route template such as /api/v1/freeradius/:slug/authorize/)
// rather than the raw request URL to prevent unbounded label cardinality from
// user-supplied path segments such as organization slugs or usernames. No metric
// carries a username or token label for the same reason.
//
// # Usage
//
// Import the package for side effects so metrics are registered before the HTTP server
// starts listening:
//
//	import _ "github.com/radius-gateway/radius-gateway/internal/telemetry"
//
// Or import it directly and use an exported var:
//
//	telemetry.AuthAttemptsTotal.WithLabelValues("organization", "success").Inc()
package telemetry

import (
	"database/sql"
	"log/slog"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// HTTP metrics — labelled by method, route template, and status code.
//
// HTTPRequestsTotal is a CounterVec with labels {method, path, status}.
// The path label holds the Gin route template (e.g. /api/v1/freeradius/:slug/authorize/),
// NOT the raw URL, to prevent unbounded cardinality.
//
// Example PromQL queries:
//   - Request rate (req/s, 5 m window):  rate(http_requests_total[5m])
//   - Error rate (%):                    sum(rate(http_requests_total{status=~"5.."}[5m])) / sum(rate(http_requests_total[5m])) * 100
//   - Requests by route:                 sum by (path) (rate(http_requests_total[5m]))
//
// HTTPRequestDuration is a HistogramVec with labels {method, path} and exponential-ish
// buckets from 5 ms to 30 s.  Use histogram_quantile to compute latency percentiles.
//
// Example PromQL queries:
//   - p99 latency per route:             histogram_quantile(0.99, sum by (path, le) (rate(http_request_duration_seconds_bucket[5m])))
//   - Average latency:                   rate(http_request_duration_seconds_sum[5m]) / rate(http_request_duration_seconds_count[5m])
var (
	HTTPRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "http_requests_total",
			Help: "Total number of HTTP requests processed, by method, route template, and status code.",
		},
		[]string{"method", "path", "status"},
	)

	HTTPRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "http_request_duration_seconds",
			Help:    "Histogram of HTTP request latencies, by method and route template.",
			Buckets: []float64{0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30},
		},
		[]string{"method", "path"},
	)
)

// Authentication metrics — recorded by the organization-token, user-token, and
// staff-JWT middleware.
//
// AuthAttemptsTotal is a CounterVec with labels {kind, result}.  kind is
// "organization", "user", or "staff"; result is "success" or "failure".  The
// counter deliberately carries no identity label: a spike in failures is
// investigated through logs, not metrics.
//
// Example PromQL queries:
//   - Failure rate by kind:   sum by (kind) (rate(auth_attempts_total{result="failure"}[5m]))
//   - Alert expression:       increase(auth_attempts_total{kind="organization",result="failure"}[10m]) > 100
//
// TokenCacheRequestsTotal is a CounterVec with label {result} ("hit" or "miss")
// incremented on every organization-token cache lookup.  A falling hit ratio
// after a deploy usually means the cache TTL or invalidation wiring regressed.
//
// Example PromQL queries:
//   - Hit ratio:  sum(rate(token_cache_requests_total{result="hit"}[5m])) / sum(rate(token_cache_requests_total[5m]))
var (
	AuthAttemptsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "auth_attempts_total",
			Help: "Total number of authentication attempts, by credential kind and result.",
		},
		[]string{"kind", "result"},
	)

	TokenCacheRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "token_cache_requests_total",
			Help: "Total number of organization-token cache lookups, by result (hit/miss).",
		},
		[]string{"result"},
	)
)

// RADIUS traffic metrics — recorded by the freeradius endpoint handlers.
//
// RadiusAuthorizeDecisionsTotal is a CounterVec with label {decision} ("accept"
// or "reject") incremented once per authorize call.  Rejects include unknown
// users, bad passwords, and non-members, so a reject spike is a signal to
// check the post-auth log, not an incident by itself.
//
// Example PromQL queries:
//   - Reject ratio:  sum(rate(radius_authorize_decisions_total{decision="reject"}[5m])) / sum(rate(radius_authorize_decisions_total[5m]))
//
// RadiusAccountingPacketsTotal is a CounterVec with label {status_type}
// ("Start", "Interim-Update", "Stop") incremented once per accounting packet
// accepted.  Session leaks show up as Start rate exceeding Stop rate over
// long windows.
//
// Example PromQL queries:
//   - Packet mix:       sum by (status_type) (rate(radius_accounting_packets_total[15m]))
//   - Open-session drift: increase(radius_accounting_packets_total{status_type="Start"}[1h]) - increase(radius_accounting_packets_total{status_type="Stop"}[1h])
var (
	RadiusAuthorizeDecisionsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "radius_authorize_decisions_total",
			Help: "Total number of RADIUS authorize decisions, by decision (accept/reject).",
		},
		[]string{"decision"},
	)

	RadiusAccountingPacketsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "radius_accounting_packets_total",
			Help: "Total number of RADIUS accounting packets recorded, by Acct-Status-Type.",
		},
		[]string{"status_type"},
	)
)

// Batch and background-job metrics.
//
// BatchUsersCreatedTotal is a CounterVec with label {strategy} ("prefix" or
// "csv") incremented once per user account created through the batch endpoint.
//
// Example PromQL queries:
//   - Creation rate by strategy:  sum by (strategy) (rate(batch_users_created_total[1h]))
//
// ExpiredUsersDeactivatedTotal is a plain Counter incremented by the
// expired-user sweeper for every account it deactivates.  A stalled counter
// combined with past-expiry batches is the alert signal for a dead sweeper.
//
// Example PromQL queries:
//   - Deactivation rate:  rate(expired_users_deactivated_total[24h])
var (
	BatchUsersCreatedTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "batch_users_created_total",
			Help: "Total number of user accounts created by batch operations, by strategy.",
		},
		[]string{"strategy"},
	)

	ExpiredUsersDeactivatedTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "expired_users_deactivated_total",
			Help: "Total number of batch user accounts deactivated after their batch expired.",
		},
	)
)

// DBOpenConnections is a Gauge that tracks the number of open connections currently
// held by the sql.DB connection pool.  It is sampled every 30 seconds by
// StartDBStatsCollector rather than per-request to avoid the overhead of sql.DB.Stats().
//
// Example PromQL queries:
//   - Pool utilisation (%): db_open_connections / <RGW_DATABASE_MAX_CONNECTIONS> * 100
//   - Alert on near-exhaustion: db_open_connections > 20  (for max_connections=25)
var DBOpenConnections = promauto.NewGauge(
	prometheus.GaugeOpts{
		Name: "db_open_connections",
		Help: "Current number of open database connections in the pool.",
	},
)

// StartDBStatsCollector launches a background goroutine that samples sql.DB connection
// pool statistics every 30 seconds and updates the DBOpenConnections gauge.
// The goroutine exits cleanly when the database becomes unreachable (db.Ping fails),
// which happens automatically when the application shuts down and defers db.Close().
//
// Call this once, immediately after db.Connect() succeeds in main.go:
//
//	telemetry.StartDBStatsCollector(database)
func StartDBStatsCollector(db *sql.DB) {
	go func() {
		ticker := time.NewTicker(30 * time.Second)
		defer ticker.Stop()
		for range ticker.C {
			if err := db.Ping(); err != nil {
				slog.Warn("db stats collector: database unreachable, stopping collector", "error", err)
				return
			}
			DBOpenConnections.Set(float64(db.Stats().OpenConnections))
		}
	}()
}
