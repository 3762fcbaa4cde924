// Package metrics defines the Prometheus collectors of the server.
package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds the collectors registered for one server.
// It implements collection.Observer.
type Metrics struct {
	gatherer prometheus.Gatherer

	// RequestTotal counts HTTP requests by method, route template and status.
	RequestTotal *prometheus.CounterVec
	// RequestDuration is the latency of HTTP requests.
	RequestDuration *prometheus.HistogramVec
	// StoreDuration is the latency of store calls by endpoint and operation.
	StoreDuration *prometheus.HistogramVec
	// StoreErrors counts failed store calls.
	StoreErrors *prometheus.CounterVec
	// FilterErrors counts rejected filters by kind (syntax, translation, unresolved, grammar).
	FilterErrors *prometheus.CounterVec
}

// New registers the collectors with reg. A nil reg uses a fresh registry,
// so several servers can coexist in one process.
func New(reg *prometheus.Registry) *Metrics {
	if reg == nil {
		reg = prometheus.NewRegistry()
	}
	f := promauto.With(reg)

	return &Metrics{
		gatherer: reg,
		RequestTotal: f.NewCounterVec(
			prometheus.CounterOpts{
				Name: "optimade_http_requests_total",
				Help: "Total number of HTTP requests",
			},
			[]string{"method", "route", "status"},
		),
		RequestDuration: f.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "optimade_http_request_duration_seconds",
				Help:    "HTTP request latency in seconds",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"method", "route"},
		),
		StoreDuration: f.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "optimade_store_operation_duration_seconds",
				Help:    "Store call latency in seconds",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"endpoint", "op"},
		),
		StoreErrors: f.NewCounterVec(
			prometheus.CounterOpts{
				Name: "optimade_store_errors_total",
				Help: "Total number of failed store calls",
			},
			[]string{"endpoint", "op"},
		),
		FilterErrors: f.NewCounterVec(
			prometheus.CounterOpts{
				Name: "optimade_filter_errors_total",
				Help: "Total number of rejected filters",
			},
			[]string{"kind"},
		),
	}
}

// StoreOperation records the duration of a store call.
func (m *Metrics) StoreOperation(endpoint, op string, elapsed time.Duration, err error) {
	m.StoreDuration.WithLabelValues(endpoint, op).Observe(elapsed.Seconds())
	if err != nil {
		m.StoreErrors.WithLabelValues(endpoint, op).Inc()
	}
}

// FilterError counts a rejected filter.
func (m *Metrics) FilterError(kind string) {
	m.FilterErrors.WithLabelValues(kind).Inc()
}

// Handler serves the registry in the Prometheus exposition format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.gatherer, promhttp.HandlerOpts{})
}
