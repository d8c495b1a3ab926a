package auth

import (
	"encoding/json"
	"errors"
	"net/http"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/vyrodovalexey/idgate/internal/auth/jwt"
	"github.com/vyrodovalexey/idgate/internal/observability"
)

// authTracer is the OTEL tracer used by the identity gate.
var authTracer = otel.Tracer("idgate/auth")

// Outcome is the terminal state of one gate decision.
type Outcome string

// Gate outcomes.
const (
	OutcomeAuthenticated Outcome = "authenticated"
	OutcomeNoToken       Outcome = "no_token"
	OutcomeRejected      Outcome = "rejected"
)

// ReasonNone is reported for outcomes that carry no failure reason.
const ReasonNone = jwt.ReasonNone

// Result describes how the gate handled a request.
type Result struct {
	Outcome Outcome

	// Reason is the verification failure label for rejected tokens.
	Reason string

	// Identity is set for authenticated requests.
	Identity *Identity

	// Allowed is false only when the gate fails closed on a request
	// without a verified identity.
	Allowed bool
}

// Gate verifies the session cookie and propagates the identity as
// headers. It is safe for concurrent use.
type Gate struct {
	validator jwt.Validator
	extractor jwt.TokenExtractor
	policy    FailurePolicy
	strip     bool
	logger    observability.Logger
	metrics   *Metrics
}

// GateOption is a functional option for the gate.
type GateOption func(*Gate)

// WithGateLogger sets the logger for the gate.
func WithGateLogger(logger observability.Logger) GateOption {
	return func(g *Gate) {
		g.logger = logger
	}
}

// WithGateMetrics sets the metrics for the gate.
func WithGateMetrics(metrics *Metrics) GateOption {
	return func(g *Gate) {
		g.metrics = metrics
	}
}

// WithTokenExtractor replaces the cookie extractor.
func WithTokenExtractor(extractor jwt.TokenExtractor) GateOption {
	return func(g *Gate) {
		g.extractor = extractor
	}
}

// NewGate creates an identity gate.
func NewGate(config *Config, validator jwt.Validator, opts ...GateOption) (*Gate, error) {
	if config == nil {
		config = DefaultConfig()
	}
	if err := config.Validate(); err != nil {
		return nil, err
	}
	if validator == nil {
		return nil, errors.New("validator is required")
	}

	g := &Gate{
		validator: validator,
		extractor: jwt.NewCookieExtractor(config.GetCookieName()),
		policy:    config.GetFailurePolicy(),
		strip:     config.ShouldStripUntrustedHeaders(),
		logger:    observability.NopLogger(),
	}

	for _, opt := range opts {
		opt(g)
	}

	if g.metrics == nil {
		g.metrics = NewMetrics("gateway", nil)
	}

	return g, nil
}

// Resolve decides how r is forwarded. It returns the request to hand to
// the next stage: a clone carrying the identity headers on success, or r
// itself when there is nothing to change. r is never modified.
func (g *Gate) Resolve(r *http.Request) (*http.Request, Result) {
	ctx, span := authTracer.Start(r.Context(), "auth.identity",
		trace.WithSpanKind(trace.SpanKindInternal),
	)
	defer span.End()

	logger := g.logger.WithContext(r.Context())

	token, err := g.extractor.Extract(r)
	if err != nil || token == "" {
		result := Result{Outcome: OutcomeNoToken, Reason: ReasonNone}
		logger.Debug("no session token", observability.String("path", r.URL.Path))
		return g.finish(r, result, span)
	}

	claims, err := g.validator.Validate(ctx, token)
	if err != nil {
		result := Result{Outcome: OutcomeRejected, Reason: jwt.Reason(err)}
		logger.Info("session token rejected",
			observability.String("reason", result.Reason),
			observability.String("path", r.URL.Path),
		)
		return g.finish(r, result, span)
	}

	identity := IdentityFromClaims(claims)
	result := Result{
		Outcome:  OutcomeAuthenticated,
		Reason:   ReasonNone,
		Identity: identity,
		Allowed:  true,
	}

	forwarded := r.Clone(ContextWithIdentity(r.Context(), identity))
	applyIdentityHeaders(forwarded.Header, identity)

	logger.Debug("identity propagated", observability.String("user_id", identity.UserID))
	span.SetAttributes(attribute.String("auth.user_id", identity.UserID))

	return forwarded, g.record(result, span)
}

// finish completes an unauthenticated decision.
func (g *Gate) finish(r *http.Request, result Result, span trace.Span) (*http.Request, Result) {
	result.Allowed = g.policy != FailClosed

	forwarded := r
	if g.strip && hasIdentityHeaders(r.Header) {
		forwarded = r.Clone(r.Context())
		deleteIdentityHeaders(forwarded.Header)
	}

	return forwarded, g.record(result, span)
}

func (g *Gate) record(result Result, span trace.Span) Result {
	g.metrics.RecordResult(result.Outcome, result.Reason)
	span.SetAttributes(
		attribute.String("auth.outcome", string(result.Outcome)),
		attribute.String("auth.reason", result.Reason),
		attribute.Bool("auth.allowed", result.Allowed),
	)
	return result
}

// Middleware returns the gate as net/http middleware. Unless the gate
// fails closed, next is invoked exactly once for every request.
func (g *Gate) Middleware() func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			forwarded, result := g.Resolve(r)
			if !result.Allowed {
				writeUnauthorized(w)
				return
			}
			next.ServeHTTP(w, forwarded)
		})
	}
}

// unauthorizedMessage is returned when the gate fails closed.
const unauthorizedMessage = "authentication required"

func writeUnauthorized(w http.ResponseWriter) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusUnauthorized)
	_ = json.NewEncoder(w).Encode(map[string]string{"error": unauthorizedMessage})
}
