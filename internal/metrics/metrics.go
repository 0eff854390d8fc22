// Package metrics exposes Prometheus collectors for the audit service.
package metrics

import (
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	scansTotal                 *prometheus.CounterVec
	pagesPersistedTotal        prometheus.Counter
	pageLinksPersistedTotal    prometheus.Counter
	pollAttemptsTotal          prometheus.Counter
	tasksTotal                 *prometheus.CounterVec
	enrichmentRowsTotal        *prometheus.CounterVec
	httpRequestsTotal          *prometheus.CounterVec
	httpRequestDurationSeconds *prometheus.HistogramVec
	activeWorkers              prometheus.Gauge

	once sync.Once
)

// Init initializes the Prometheus metrics collectors.
// It is safe to call this function multiple times.
func Init() {
	once.Do(func() {
		scansTotal = promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "audit_scans_total",
				Help: "Total number of scans reaching a lifecycle state, labeled by status.",
			},
			[]string{"status"},
		)

		pagesPersistedTotal = promauto.NewCounter(
			prometheus.CounterOpts{
				Name: "audit_pages_persisted_total",
				Help: "Total number of crawled pages written to the store.",
			},
		)

		pageLinksPersistedTotal = promauto.NewCounter(
			prometheus.CounterOpts{
				Name: "audit_page_links_persisted_total",
				Help: "Total number of outbound links written to the store.",
			},
		)

		pollAttemptsTotal = promauto.NewCounter(
			prometheus.CounterOpts{
				Name: "audit_crawl_poll_attempts_total",
				Help: "Total number of crawl job status checks issued.",
			},
		)

		tasksTotal = promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "audit_tasks_total",
				Help: "Total number of background tasks processed, labeled by kind.",
			},
			[]string{"kind"},
		)

		enrichmentRowsTotal = promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "audit_enrichment_rows_total",
				Help: "Total number of enrichment rows stored, labeled by job.",
			},
			[]string{"job"},
		)

		httpRequestsTotal = promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "http_requests_total",
				Help: "Total number of HTTP requests, labeled by method and code.",
			},
			[]string{"method", "code"},
		)

		httpRequestDurationSeconds = promauto.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "http_request_duration_seconds",
				Help:    "Histogram of HTTP request latencies, labeled by method and route.",
				Buckets: []float64{0.05, 0.1, 0.25, 0.5, 1, 2, 5},
			},
			[]string{"method", "route"},
		)

		activeWorkers = promauto.NewGauge(
			prometheus.GaugeOpts{
				Name: "audit_active_workers",
				Help: "Number of workers currently processing a task.",
			},
		)
	})
}

// Handler returns an http.Handler for exposing Prometheus metrics.
func Handler() http.Handler {
	return promhttp.Handler()
}

// ObserveScan increments the scan counter for the given status.
func ObserveScan(status string) {
	if scansTotal == nil {
		return
	}
	scansTotal.WithLabelValues(status).Inc()
}

// ObservePagePersisted increments the persisted-page counter.
func ObservePagePersisted() {
	if pagesPersistedTotal == nil {
		return
	}
	pagesPersistedTotal.Inc()
}

// ObservePageLinkPersisted increments the persisted-link counter.
func ObservePageLinkPersisted() {
	if pageLinksPersistedTotal == nil {
		return
	}
	pageLinksPersistedTotal.Inc()
}

// ObservePollAttempt increments the poll attempt counter.
func ObservePollAttempt() {
	if pollAttemptsTotal == nil {
		return
	}
	pollAttemptsTotal.Inc()
}

// ObserveTask increments the task counter for the given kind.
func ObserveTask(kind string) {
	if tasksTotal == nil {
		return
	}
	tasksTotal.WithLabelValues(kind).Inc()
}

// ObserveEnrichmentRow increments the enrichment row counter for the given job.
func ObserveEnrichmentRow(job string) {
	if enrichmentRowsTotal == nil {
		return
	}
	enrichmentRowsTotal.WithLabelValues(job).Inc()
}

// ObserveHTTPRequest increments the HTTP request metrics.
func ObserveHTTPRequest(method, route string, code int, duration time.Duration) {
	if httpRequestsTotal == nil {
		return
	}
	httpRequestsTotal.WithLabelValues(method, strconv.Itoa(code)).Inc()
	httpRequestDurationSeconds.WithLabelValues(method, route).Observe(duration.Seconds())
}

// IncActiveWorkers increments the active workers gauge.
func IncActiveWorkers() {
	if activeWorkers == nil {
		return
	}
	activeWorkers.Inc()
}

// DecActiveWorkers decrements the active workers gauge.
func DecActiveWorkers() {
	if activeWorkers == nil {
		return
	}
	activeWorkers.Dec()
}
