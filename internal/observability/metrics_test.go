package observability

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	dto "github.com/prometheus/client_model/go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMetrics_RecordRequest(t *testing.T) {
	t.Parallel()

	m := NewMetrics("")
	m.RecordRequest(http.MethodGet, http.StatusOK, 10*time.Millisecond)
	m.RecordRequest(http.MethodGet, http.StatusOK, 20*time.Millisecond)

	assert.Equal(t, float64(2), testutil.ToFloat64(m.requestsTotal.WithLabelValues("GET", "200")))
}

func TestMetrics_Handler(t *testing.T) {
	t.Parallel()

	m := NewMetrics("idgate")
	m.SetBuildInfo("v1", "abc", "now")

	rec := httptest.NewRecorder()
	m.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "idgate_build_info")
}

func TestMetricsMiddleware(t *testing.T) {
	t.Parallel()

	m := NewMetrics("gateway")
	handler := MetricsMiddleware(m)(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusTeapot)
	}))

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/x", nil))

	assert.Equal(t, http.StatusTeapot, rec.Code)
	assert.Equal(t, float64(1), testutil.ToFloat64(m.requestsTotal.WithLabelValues("POST", "418")))

	families, err := m.Registry().Gather()
	require.NoError(t, err)

	var histogram *dto.Histogram
	for _, mf := range families {
		if mf.GetName() == "gateway_http_request_duration_seconds" {
			require.Len(t, mf.GetMetric(), 1)
			histogram = mf.GetMetric()[0].GetHistogram()
		}
	}
	require.NotNil(t, histogram)
	assert.Equal(t, uint64(1), histogram.GetSampleCount())
}

func TestRegisterCollector(t *testing.T) {
	t.Parallel()

	reg := prometheus.NewRegistry()
	opts := prometheus.CounterOpts{Name: "dup_total", Help: "dup"}

	first := RegisterCollector(reg, prometheus.NewCounter(opts))
	second := RegisterCollector(reg, prometheus.NewCounter(opts))
	second.Inc()

	assert.Same(t, first, second)
	assert.Equal(t, float64(1), testutil.ToFloat64(first))

	count, err := testutil.GatherAndCount(reg, "dup_total")
	require.NoError(t, err)
	assert.Equal(t, 1, count)
}

func TestRegisterCollector_NilRegisterer(t *testing.T) {
	t.Parallel()

	c := prometheus.NewCounter(prometheus.CounterOpts{Name: "free_total", Help: "free"})
	assert.Same(t, c, RegisterCollector[prometheus.Counter](nil, c))
}

func TestRegisterCollector_ConflictPanics(t *testing.T) {
	t.Parallel()

	reg := prometheus.NewRegistry()
	RegisterCollector(reg, prometheus.NewCounter(prometheus.CounterOpts{Name: "clash", Help: "a"}))

	assert.Panics(t, func() {
		RegisterCollector(reg, prometheus.NewGauge(prometheus.GaugeOpts{Name: "clash", Help: "b"}))
	})
}
