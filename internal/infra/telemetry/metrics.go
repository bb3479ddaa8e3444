package telemetry

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds the Prometheus collectors exposed by the service.
type Metrics struct {
	RequestsTotal   *prometheus.CounterVec
	RequestDuration *prometheus.HistogramVec
	LoginFailures   prometheus.Counter
	ActiveSessions  prometheus.Gauge
}

// NewMetrics registers service collectors on the default registry.
func NewMetrics() *Metrics {
	return &Metrics{
		RequestsTotal: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: "safelease",
			Subsystem: "http",
			Name:      "requests_total",
			Help:      "Total number of HTTP requests.",
		}, []string{"method", "route", "status"}),
		RequestDuration: promauto.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "safelease",
			Subsystem: "http",
			Name:      "request_duration_seconds",
			Help:      "HTTP request latency.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"method", "route"}),
		LoginFailures: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: "safelease",
			Subsystem: "auth",
			Name:      "login_failures_total",
			Help:      "Total number of failed login attempts.",
		}),
		ActiveSessions: promauto.NewGauge(prometheus.GaugeOpts{
			Namespace: "safelease",
			Subsystem: "auth",
			Name:      "active_sessions",
			Help:      "Number of tracked sessions, updated on login and revocation.",
		}),
	}
}
