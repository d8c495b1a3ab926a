package secrets

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/vyrodovalexey/idgate/internal/observability"
)

// Metrics holds Prometheus metrics for secret resolution.
type Metrics struct {
	resolveTotal    *prometheus.CounterVec
	resolveDuration *prometheus.HistogramVec
}

// NewMetrics creates secret resolution metrics registered with registerer.
// A nil registerer leaves them unregistered.
func NewMetrics(namespace string, registerer prometheus.Registerer) *Metrics {
	if namespace == "" {
		namespace = "gateway"
	}

	m := &Metrics{}
	m.resolveTotal = observability.RegisterCollector(registerer, prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "secrets",
			Name:      "resolve_total",
			Help:      "Total number of signing secret resolutions",
		},
		[]string{"source", "result"},
	))
	m.resolveDuration = observability.RegisterCollector(registerer, prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "secrets",
			Name:      "resolve_duration_seconds",
			Help:      "Duration of signing secret resolution in seconds",
			Buckets:   prometheus.DefBuckets,
		},
		[]string{"source"},
	))
	return m
}

// RecordResolve records one resolution attempt.
func (m *Metrics) RecordResolve(source SourceType, err error, duration time.Duration) {
	result := "success"
	if err != nil {
		result = "error"
	}
	m.resolveTotal.WithLabelValues(string(source), result).Inc()
	m.resolveDuration.WithLabelValues(string(source)).Observe(duration.Seconds())
}
