package jwt

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/vyrodovalexey/idgate/internal/observability"
)

// Metrics holds Prometheus metrics for token verification.
type Metrics struct {
	validationTotal    *prometheus.CounterVec
	validationDuration *prometheus.HistogramVec
}

// NewMetrics creates token verification metrics and registers them with
// registerer. A nil registerer leaves them unregistered, which suits tests.
func NewMetrics(namespace string, registerer prometheus.Registerer) *Metrics {
	if namespace == "" {
		namespace = "gateway"
	}

	m := &Metrics{}

	m.validationTotal = observability.RegisterCollector(registerer, prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "jwt",
			Name:      "validation_total",
			Help:      "Total number of token verification attempts",
		},
		[]string{"status", "reason"},
	))

	m.validationDuration = observability.RegisterCollector(registerer, prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "jwt",
			Name:      "validation_duration_seconds",
			Help:      "Token verification duration in seconds",
			Buckets:   []float64{.00001, .00005, .0001, .0005, .001, .005, .01},
		},
		[]string{"status"},
	))

	return m
}

// Init pre-initializes the success series so it is exported before the
// first request.
func (m *Metrics) Init() {
	m.validationTotal.WithLabelValues("success", ReasonNone)
	m.validationDuration.WithLabelValues("success")
	m.validationDuration.WithLabelValues("error")
}

// RecordValidation records a token verification attempt.
func (m *Metrics) RecordValidation(status, reason string, duration time.Duration) {
	m.validationTotal.WithLabelValues(status, reason).Inc()
	m.validationDuration.WithLabelValues(status).Observe(duration.Seconds())
}
