// Package telemetry provides application-level observability for contactvault.
//
// All metrics are registered against the default Prometheus registry and served
// on the side-channel HTTP server started by main.go:
//
//	GET http://<host>:<CV_TELEMETRY_METRICS_PROMETHEUS_PORT>/metrics
//
// Default port: 9090. The endpoint is not served by the Gin router, so it is
// unreachable through the public API ingress path and bypasses rate limiting.
//
// HTTP metrics use c.FullPath() (the route template, e.g. /api/v1/contacts/:id)
// rather than the raw request URL so user-supplied path segments such as
// contact IDs cannot inflate label cardinality.
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
// Example PromQL queries:
//   - Request rate (req/s, 5 m window):  rate(http_requests_total[5m])
//   - Error rate (%):                    sum(rate(http_requests_total{status=~"5.."}[5m])) / sum(rate(http_requests_total[5m])) * 100
//   - p99 latency per route:             histogram_quantile(0.99, sum by (path, le) (rate(http_request_duration_seconds_bucket[5m])))
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

// Domain metrics.
//
// ContactMutationsTotal counts committed contact service mutations by
// operation (create, update, archive, add_note). It is incremented only after
// the mutation's transaction commits, so it tracks durable writes, not attempts.
//
// AuditRecordsTotal counts ledger entries written, by entity type and action.
// The ratio of audit records to contact mutations is a cheap consistency
// signal: updates that changed nothing write no record, so the two series are
// close but not equal.
//
// AuditShipFailuresTotal counts failed deliveries to external audit sinks,
// by shipper type. Shipping is best-effort; failures here never fail requests.
var (
	ContactMutationsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "contact_mutations_total",
			Help: "Total number of committed contact mutations, by operation.",
		},
		[]string{"operation"},
	)

	AuditRecordsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "audit_records_total",
			Help: "Total number of audit trail entries written, by entity type and action.",
		},
		[]string{"entity_type", "action"},
	)

	AuditShipFailuresTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "audit_ship_failures_total",
			Help: "Total number of failed audit entry deliveries to external sinks, by shipper type.",
		},
		[]string{"shipper"},
	)

	LoginAttemptsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "login_attempts_total",
			Help: "Total number of login attempts, by outcome (success, invalid_credentials, inactive).",
		},
		[]string{"outcome"},
	)
)

// Database connection pool gauges, polled periodically by StartDBStatsCollector.
var (
	DBConnectionsOpen = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "db_connections_open",
			Help: "Current number of open database connections (in use + idle).",
		},
	)

	DBConnectionsInUse = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "db_connections_in_use",
			Help: "Current number of database connections in use.",
		},
	)

	DBConnectionsWaitCount = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "db_connections_wait_total",
			Help: "Cumulative number of times a request had to wait for a free database connection.",
		},
	)
)

// StartDBStatsCollector polls sql.DB pool statistics every 30 seconds and
// exports them as gauges. The goroutine runs for the life of the process.
func StartDBStatsCollector(db *sql.DB) {
	go func() {
		ticker := time.NewTicker(30 * time.Second)
		defer ticker.Stop()

		var lastWaitCount int64
		for range ticker.C {
			stats := db.Stats()
			DBConnectionsOpen.Set(float64(stats.OpenConnections))
			DBConnectionsInUse.Set(float64(stats.InUse))
			if delta := stats.WaitCount - lastWaitCount; delta > 0 {
				DBConnectionsWaitCount.Add(float64(delta))
				lastWaitCount = stats.WaitCount
			}
		}
	}()
	slog.Info("database pool stats collector started", "interval", "30s")
}
