package proxy

import (
	"github.com/prometheus/client_golang/prometheus"

	"github.com/vyrodovalexey/idgate/internal/observability"
)

// Metrics holds Prometheus metrics for upstream forwarding.
type Metrics struct {
	upstreamErrors *prometheus.CounterVec
}

// NewMetrics creates proxy metrics registered with registerer. A nil
// registerer leaves them unregistered.
func NewMetrics(namespace string, registerer prometheus.Registerer) *Metrics {
	if namespace == "" {
		namespace = "gateway"
	}

	return &Metrics{
		upstreamErrors: observability.RegisterCollector(registerer, prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: "proxy",
				Name:      "upstream_errors_total",
				Help:      "Total number of failed upstream round trips",
			},
			[]string{"kind"},
		)),
	}
}

// RecordUpstreamError records a failed round trip.
func (m *Metrics) RecordUpstreamError(kind string) {
	m.upstreamErrors.WithLabelValues(kind).Inc()
}
