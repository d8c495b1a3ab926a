package health

import (
	"github.com/prometheus/client_golang/prometheus"

	"github.com/vyrodovalexey/idgate/internal/observability"
)

// Metrics holds Prometheus metrics for health checks.
type Metrics struct {
	checksTotal *prometheus.CounterVec
	checkStatus *prometheus.GaugeVec
}

// NewMetrics creates health metrics registered with registerer. A nil
// registerer leaves them unregistered.
func NewMetrics(namespace string, registerer prometheus.Registerer) *Metrics {
	if namespace == "" {
		namespace = "gateway"
	}

	m := &Metrics{}
	m.checksTotal = observability.RegisterCollector(registerer, prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "health",
			Name:      "checks_total",
			Help:      "Total number of health probes served",
		},
		[]string{"type"},
	))
	m.checkStatus = observability.RegisterCollector(registerer, prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "health",
			Name:      "check_status",
			Help:      "Last readiness check status (1=healthy, 0=unhealthy)",
		},
		[]string{"check"},
	))
	return m
}

// Init exports the probe counters before the first probe.
func (m *Metrics) Init() {
	m.checksTotal.WithLabelValues("liveness")
	m.checksTotal.WithLabelValues("readiness")
}

func (m *Metrics) recordCheck(probe string) {
	m.checksTotal.WithLabelValues(probe).Inc()
}

func (m *Metrics) setStatus(check string, healthy bool) {
	v := 0.0
	if healthy {
		v = 1.0
	}
	m.checkStatus.WithLabelValues(check).Set(v)
}
