// Package observability exposes Prometheus metrics for the scan service.
package observability

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/deidscan/deidscan/internal/pii"
)

// Metrics holds the service's Prometheus collectors.
type Metrics struct {
	registry *prometheus.Registry

	ScansTotal    prometheus.Counter
	ScanFailures  prometheus.Counter
	RowsProcessed prometheus.Counter
	MatchesTotal  *prometheus.CounterVec
	ScanDuration  prometheus.Histogram
	HTTPRequests  *prometheus.CounterVec
}

// New creates the collectors on a private registry so tests can build
// multiple instances.
func New() *Metrics {
	registry := prometheus.NewRegistry()
	factory := promauto.With(registry)

	return &Metrics{
		registry: registry,
		ScansTotal: factory.NewCounter(prometheus.CounterOpts{
			Name: "deidscan_scans_total",
			Help: "Total number of scan runs started.",
		}),
		ScanFailures: factory.NewCounter(prometheus.CounterOpts{
			Name: "deidscan_scan_failures_total",
			Help: "Total number of scan runs that failed.",
		}),
		RowsProcessed: factory.NewCounter(prometheus.CounterOpts{
			Name: "deidscan_rows_processed_total",
			Help: "Total number of records processed across all runs.",
		}),
		MatchesTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "deidscan_matches_total",
			Help: "Total accepted matches by category.",
		}, []string{"category"}),
		ScanDuration: factory.NewHistogram(prometheus.HistogramOpts{
			Name:    "deidscan_scan_duration_seconds",
			Help:    "Scan run duration in seconds.",
			Buckets: prometheus.ExponentialBuckets(0.01, 2, 12),
		}),
		HTTPRequests: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "deidscan_http_requests_total",
			Help: "HTTP requests by method, path, and status code.",
		}, []string{"method", "path", "status"}),
	}
}

// ObserveRun records the counters for one finished run.
func (m *Metrics) ObserveRun(summary pii.Summary, seconds float64) {
	m.ScansTotal.Inc()
	m.RowsProcessed.Add(float64(summary.RowsProcessed))
	m.ScanDuration.Observe(seconds)
	for category, count := range summary.Matches {
		m.MatchesTotal.WithLabelValues(string(category)).Add(float64(count))
	}
}

// Handler serves the metrics endpoint.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}
