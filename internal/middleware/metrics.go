package middleware

import (
	"github.com/prometheus/client_golang/prometheus"

	"github.com/vyrodovalexey/idgate/internal/observability"
)

// Metrics holds Prometheus metrics for pipeline stages.
type Metrics struct {
	panicsRecovered prometheus.Counter

	circuitBreakerRequests    *prometheus.CounterVec
	circuitBreakerTransitions *prometheus.CounterVec
}

// NewMetrics creates middleware metrics registered with registerer. A nil
// registerer leaves them unregistered.
func NewMetrics(namespace string, registerer prometheus.Registerer) *Metrics {
	if namespace == "" {
		namespace = "gateway"
	}

	return &Metrics{
		panicsRecovered: observability.RegisterCollector(registerer, prometheus.NewCounter(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: "middleware",
				Name:      "panics_recovered_total",
				Help:      "Total number of panics recovered in the request pipeline",
			},
		)),
		circuitBreakerRequests: observability.RegisterCollector(registerer, prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: "middleware",
				Name:      "circuit_breaker_requests_total",
				Help:      "Requests seen by the upstream circuit breaker by state",
			},
			[]string{"name", "state"},
		)),
		circuitBreakerTransitions: observability.RegisterCollector(registerer, prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: "middleware",
				Name:      "circuit_breaker_transitions_total",
				Help:      "Upstream circuit breaker state transitions",
			},
			[]string{"name", "from", "to"},
		)),
	}
}
