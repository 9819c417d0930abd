// Package metrics holds the Prometheus collectors for HTTP traffic and
// Record Store operations.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

const (
	ResultOK    = "ok"
	ResultError = "error"
)

type Metrics struct {
	HTTPRequests        *prometheus.CounterVec
	HTTPRequestDuration *prometheus.HistogramVec
	StoreOperations     *prometheus.CounterVec
}

// New creates the collectors and registers them on reg.
func New(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		HTTPRequests: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "cloudfiles_http_requests_total",
				Help: "Total HTTP requests by method, route and status.",
			},
			[]string{"method", "route", "status"},
		),
		HTTPRequestDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "cloudfiles_http_request_duration_seconds",
				Help:    "HTTP request latency in seconds.",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"method", "route"},
		),
		StoreOperations: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "cloudfiles_store_operations_total",
				Help: "Record store operations by operation and result.",
			},
			[]string{"operation", "result"},
		),
	}
	reg.MustRegister(m.HTTPRequests, m.HTTPRequestDuration, m.StoreOperations)
	return m
}

// ObserveStore counts one store operation. A nil receiver is a no-op.
func (m *Metrics) ObserveStore(operation string, err error) {
	if m == nil {
		return
	}
	result := ResultOK
	if err != nil {
		result = ResultError
	}
	m.StoreOperations.WithLabelValues(operation, result).Inc()
}
