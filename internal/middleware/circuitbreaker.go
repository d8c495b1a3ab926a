package middleware

import (
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/sony/gobreaker"

	"github.com/vyrodovalexey/idgate/internal/config"
	"github.com/vyrodovalexey/idgate/internal/observability"
)

// OrderCircuitBreaker places the breaker after the identity gate and the
// request metrics, directly in front of the upstream.
const OrderCircuitBreaker = 20

// errUpstreamStatus marks an upstream 5xx as a breaker failure.
type errUpstreamStatus int

func (e errUpstreamStatus) Error() string {
	return fmt.Sprintf("upstream returned %d", int(e))
}

// CircuitBreaker wraps gobreaker.CircuitBreaker.
type CircuitBreaker struct {
	cb      *gobreaker.CircuitBreaker
	logger  observability.Logger
	metrics *Metrics
}

// CircuitBreakerOption configures a CircuitBreaker.
type CircuitBreakerOption func(*CircuitBreaker)

// WithCircuitBreakerLogger sets the logger for state changes and rejections.
func WithCircuitBreakerLogger(logger observability.Logger) CircuitBreakerOption {
	return func(cb *CircuitBreaker) {
		cb.logger = logger
	}
}

// WithCircuitBreakerMetrics sets the metrics the breaker reports to.
func WithCircuitBreakerMetrics(m *Metrics) CircuitBreakerOption {
	return func(cb *CircuitBreaker) {
		cb.metrics = m
	}
}

// NewCircuitBreaker creates a breaker that opens once at least threshold
// requests were seen in a window and half of them failed.
func NewCircuitBreaker(
	name string,
	threshold int,
	timeout time.Duration,
	opts ...CircuitBreakerOption,
) *CircuitBreaker {
	cb := &CircuitBreaker{
		logger: observability.NopLogger(),
	}
	for _, opt := range opts {
		opt(cb)
	}

	limit := safeIntToUint32(threshold)

	cb.cb = gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name:        name,
		MaxRequests: limit,
		Interval:    timeout,
		Timeout:     timeout,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			if counts.Requests == 0 {
				return false
			}
			ratio := float64(counts.TotalFailures) / float64(counts.Requests)
			return counts.Requests >= limit && ratio >= 0.5
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			cb.logger.Info("circuit breaker state change",
				observability.String("name", name),
				observability.String("from", from.String()),
				observability.String("to", to.String()),
			)
			if cb.metrics != nil {
				cb.metrics.circuitBreakerTransitions.WithLabelValues(name, from.String(), to.String()).Inc()
			}
		},
	})
	return cb
}

func safeIntToUint32(n int) uint32 {
	if n < 0 {
		return 0
	}
	if uint64(n) > uint64(^uint32(0)) {
		return ^uint32(0)
	}
	return uint32(n) //nolint:gosec // bounds checked above
}

// State returns the current breaker state.
func (cb *CircuitBreaker) State() gobreaker.State {
	return cb.cb.State()
}

// Name returns the breaker name.
func (cb *CircuitBreaker) Name() string {
	return cb.cb.Name()
}

func (cb *CircuitBreaker) countRequest(state string) {
	if cb.metrics != nil {
		cb.metrics.circuitBreakerRequests.WithLabelValues(cb.cb.Name(), state).Inc()
	}
}

// Middleware returns the breaker as a pipeline stage. Upstream responses
// of 500 and above count as failures. While open, requests are answered
// with 503 without reaching next.
func (cb *CircuitBreaker) Middleware() func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			// Upgraded connections need the raw writer for Hijack.
			if isUpgrade(r) {
				next.ServeHTTP(w, r)
				return
			}

			state := cb.State().String()
			rw := &responseWriter{ResponseWriter: w, status: http.StatusOK}

			_, err := cb.cb.Execute(func() (interface{}, error) {
				cb.countRequest(state)
				next.ServeHTTP(rw, r)
				if rw.status >= http.StatusInternalServerError {
					return nil, errUpstreamStatus(rw.status)
				}
				return nil, nil
			})

			if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
				cb.countRequest("rejected")
				cb.logger.WithContext(r.Context()).Warn("circuit breaker rejected request",
					observability.String("path", r.URL.Path),
					observability.String("state", cb.State().String()),
				)
				if !rw.wroteHeader {
					w.Header().Set("Content-Type", "application/json")
					w.WriteHeader(http.StatusServiceUnavailable)
					_, _ = io.WriteString(w, `{"error":"service unavailable"}`)
				}
			}
		})
	}
}

func isUpgrade(r *http.Request) bool {
	return r.Header.Get("Upgrade") != "" &&
		strings.Contains(strings.ToLower(r.Header.Get("Connection")), "upgrade")
}

// CircuitBreakerFromConfig returns the breaker stage for cfg, or a
// pass-through when the breaker is disabled.
func CircuitBreakerFromConfig(
	cfg *config.CircuitBreakerConfig,
	opts ...CircuitBreakerOption,
) func(http.Handler) http.Handler {
	if cfg == nil || !cfg.Enabled {
		return func(next http.Handler) http.Handler { return next }
	}
	return NewCircuitBreaker("upstream", cfg.Threshold, cfg.Timeout.Duration(), opts...).Middleware()
}
