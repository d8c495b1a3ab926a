package middleware

import (
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/sony/gobreaker"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vyrodovalexey/idgate/internal/config"
	"github.com/vyrodovalexey/idgate/internal/observability"
)

// statusUpstream answers with the status held in code and counts calls.
func statusUpstream(code *atomic.Int32, calls *atomic.Int32) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		calls.Add(1)
		w.WriteHeader(int(code.Load()))
	})
}

func serve(h http.Handler) int {
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/orders", nil))
	return rec.Code
}

func TestCircuitBreaker_OpensOnUpstreamErrors(t *testing.T) {
	t.Parallel()

	var code, calls atomic.Int32
	code.Store(http.StatusBadGateway)

	metrics := NewMetrics("test_breaker_open", prometheus.NewRegistry())
	cb := NewCircuitBreaker("upstream", 2, 50*time.Millisecond,
		WithCircuitBreakerLogger(observability.NopLogger()),
		WithCircuitBreakerMetrics(metrics),
	)
	handler := cb.Middleware()(statusUpstream(&code, &calls))

	assert.Equal(t, http.StatusBadGateway, serve(handler))
	assert.Equal(t, gobreaker.StateClosed, cb.State())
	assert.Equal(t, http.StatusBadGateway, serve(handler))
	assert.Equal(t, gobreaker.StateOpen, cb.State())

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/orders", nil))
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
	assert.JSONEq(t, `{"error":"service unavailable"}`, rec.Body.String())
	assert.EqualValues(t, 2, calls.Load())

	assert.Equal(t, 1.0, testutil.ToFloat64(metrics.circuitBreakerRequests.WithLabelValues("upstream", "rejected")))
	assert.Equal(t, 1.0, testutil.ToFloat64(metrics.circuitBreakerTransitions.WithLabelValues("upstream", "closed", "open")))

	code.Store(http.StatusOK)
	assert.Eventually(t, func() bool {
		return serve(handler) == http.StatusOK
	}, 2*time.Second, 20*time.Millisecond)
	assert.Equal(t, http.StatusOK, serve(handler))
	assert.Equal(t, gobreaker.StateClosed, cb.State())
}

func TestCircuitBreaker_ClientErrorsDoNotTrip(t *testing.T) {
	t.Parallel()

	var code, calls atomic.Int32
	code.Store(http.StatusUnauthorized)

	cb := NewCircuitBreaker("upstream", 1, time.Minute)
	handler := cb.Middleware()(statusUpstream(&code, &calls))

	for i := 0; i < 5; i++ {
		assert.Equal(t, http.StatusUnauthorized, serve(handler))
	}
	assert.Equal(t, gobreaker.StateClosed, cb.State())
	assert.EqualValues(t, 5, calls.Load())
}

func TestCircuitBreaker_SkipsUpgrade(t *testing.T) {
	t.Parallel()

	var code, calls atomic.Int32
	code.Store(http.StatusInternalServerError)

	cb := NewCircuitBreaker("upstream", 1, time.Minute)
	handler := cb.Middleware()(statusUpstream(&code, &calls))

	req := httptest.NewRequest(http.MethodGet, "/ws", nil)
	req.Header.Set("Connection", "Upgrade")
	req.Header.Set("Upgrade", "websocket")
	handler.ServeHTTP(httptest.NewRecorder(), req)

	assert.Equal(t, gobreaker.StateClosed, cb.State())
}

func TestCircuitBreakerFromConfig(t *testing.T) {
	t.Parallel()

	var code, calls atomic.Int32
	code.Store(http.StatusInternalServerError)
	next := statusUpstream(&code, &calls)

	t.Run("disabled passes through", func(t *testing.T) {
		for _, cfg := range []*config.CircuitBreakerConfig{nil, {Enabled: false, Threshold: 1}} {
			mw := CircuitBreakerFromConfig(cfg)
			for i := 0; i < 3; i++ {
				assert.Equal(t, http.StatusInternalServerError, serve(mw(next)))
			}
		}
	})

	t.Run("enabled", func(t *testing.T) {
		mw := CircuitBreakerFromConfig(&config.CircuitBreakerConfig{
			Enabled:   true,
			Threshold: 1,
			Timeout:   config.Duration(time.Minute),
		})
		handler := mw(next)

		require.Equal(t, http.StatusInternalServerError, serve(handler))
		assert.Equal(t, http.StatusServiceUnavailable, serve(handler))
	})
}
