package auth

import (
	"github.com/prometheus/client_golang/prometheus"

	"github.com/vyrodovalexey/idgate/internal/observability"
)

// Metrics holds Prometheus metrics for the identity gate.
type Metrics struct {
	requestsTotal *prometheus.CounterVec
}

// NewMetrics creates gate metrics registered with registerer. A nil
// registerer leaves them unregistered.
func NewMetrics(namespace string, registerer prometheus.Registerer) *Metrics {
	if namespace == "" {
		namespace = "gateway"
	}

	m := &Metrics{}
	m.requestsTotal = observability.RegisterCollector(registerer, prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "auth_gate",
			Name:      "requests_total",
			Help:      "Total number of requests seen by the identity gate",
		},
		[]string{"outcome", "reason"},
	))

	return m
}

// Init pre-initializes the label combinations every deployment sees.
func (m *Metrics) Init() {
	m.requestsTotal.WithLabelValues(string(OutcomeAuthenticated), ReasonNone)
	m.requestsTotal.WithLabelValues(string(OutcomeNoToken), ReasonNone)
}

// RecordResult records one gate decision.
func (m *Metrics) RecordResult(outcome Outcome, reason string) {
	m.requestsTotal.WithLabelValues(string(outcome), reason).Inc()
}
