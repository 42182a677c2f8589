package fetch

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Metrics bundles Prometheus collectors for the downloader.
type Metrics struct {
	Registry           *prometheus.Registry
	RequestsTotal      *prometheus.CounterVec
	RequestDuration    prometheus.Histogram
	DownloadsTotal     *prometheus.CounterVec
	ExpiriesDiscovered prometheus.Counter
	ErrorsTotal        *prometheus.CounterVec
}

// NewMetrics constructs and registers all metrics on a dedicated registry.
func NewMetrics() *Metrics {
	registry := prometheus.NewRegistry()

	requests := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "nsedata_requests_total",
			Help: "Total HTTP requests issued, by endpoint.",
		},
		[]string{"endpoint"},
	)
	requestDuration := prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "nsedata_request_duration_seconds",
			Help:    "HTTP request latency.",
			Buckets: prometheus.DefBuckets,
		},
	)
	downloads := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "nsedata_downloads_total",
			Help: "Download outcomes by status.",
		},
		[]string{"status"},
	)
	expiries := prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "nsedata_expiries_discovered_total",
			Help: "Total expiry dates returned by the metadata endpoint.",
		},
	)
	errorsTotal := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "nsedata_errors_total",
			Help: "Total errors by category.",
		},
		[]string{"error_type"},
	)

	registry.MustRegister(requests, requestDuration, downloads, expiries, errorsTotal)

	return &Metrics{
		Registry:           registry,
		RequestsTotal:      requests,
		RequestDuration:    requestDuration,
		DownloadsTotal:     downloads,
		ExpiriesDiscovered: expiries,
		ErrorsTotal:        errorsTotal,
	}
}

// IncRequest increments the request counter for an endpoint label.
func (m *Metrics) IncRequest(endpoint string) {
	if m == nil {
		return
	}
	m.RequestsTotal.WithLabelValues(endpoint).Inc()
}

// ObserveDuration records an HTTP request duration.
func (m *Metrics) ObserveDuration(d time.Duration) {
	if m == nil {
		return
	}
	m.RequestDuration.Observe(d.Seconds())
}

// IncDownload increments the download counter for a status label.
func (m *Metrics) IncDownload(status string) {
	if m == nil {
		return
	}
	m.DownloadsTotal.WithLabelValues(status).Inc()
}

// AddExpiries counts discovered expiry dates.
func (m *Metrics) AddExpiries(n int) {
	if m == nil {
		return
	}
	m.ExpiriesDiscovered.Add(float64(n))
}

// IncError increments the error counter for a category label.
func (m *Metrics) IncError(errorType string) {
	if m == nil {
		return
	}
	m.ErrorsTotal.WithLabelValues(errorType).Inc()
}
