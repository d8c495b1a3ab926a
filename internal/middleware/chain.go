package middleware

import (
	"errors"
	"fmt"
	"net/http"
	"sort"
)

// Well-known stage orders. The identity gate keeps the precedence it has
// always had in the gateway filter chain.
const (
	OrderRecovery  = -100
	OrderRequestID = -50
	OrderTracing   = -40
	OrderIdentity  = -1
	OrderLogging   = 0
	OrderMetrics   = 10
)

// Errors returned by NewChain.
var (
	// ErrStageOrder indicates that an identity consumer would run before
	// the identity provider.
	ErrStageOrder = errors.New("identity consumer ordered before identity provider")

	// ErrNoIdentityProvider indicates identity consumers without a provider.
	ErrNoIdentityProvider = errors.New("identity consumer registered without identity provider")

	// ErrInvalidStage indicates a stage without a name or middleware.
	ErrInvalidStage = errors.New("invalid stage")
)

// Stage is one ordered step of the request pipeline.
type Stage struct {
	Name  string
	Order int

	// ProvidesIdentity marks the stage that writes the identity headers.
	ProvidesIdentity bool

	// ConsumesIdentity marks stages that read the identity headers or
	// the identity in the request context.
	ConsumesIdentity bool

	Middleware func(http.Handler) http.Handler
}

// Chain is an immutable, ordered list of stages.
type Chain struct {
	stages []Stage
}

// NewChain sorts stages by Order (stable for equal orders) and checks that
// every identity consumer runs after the identity provider.
func NewChain(stages ...Stage) (*Chain, error) {
	sorted := make([]Stage, len(stages))
	copy(sorted, stages)

	for _, s := range sorted {
		if s.Name == "" || s.Middleware == nil {
			return nil, fmt.Errorf("%w: name and middleware are required (name=%q)", ErrInvalidStage, s.Name)
		}
	}

	sort.SliceStable(sorted, func(i, j int) bool {
		return sorted[i].Order < sorted[j].Order
	})

	provider := -1
	for i, s := range sorted {
		if s.ProvidesIdentity {
			provider = i
			break
		}
	}

	for i, s := range sorted {
		if !s.ConsumesIdentity || s.ProvidesIdentity {
			continue
		}
		if provider < 0 {
			return nil, fmt.Errorf("%w: %s", ErrNoIdentityProvider, s.Name)
		}
		if i < provider {
			return nil, fmt.Errorf("%w: %s (order %d) runs before %s (order %d)",
				ErrStageOrder, s.Name, s.Order, sorted[provider].Name, sorted[provider].Order)
		}
	}

	return &Chain{stages: sorted}, nil
}

// Then wraps h so the first stage sees the request first.
func (c *Chain) Then(h http.Handler) http.Handler {
	for i := len(c.stages) - 1; i >= 0; i-- {
		h = c.stages[i].Middleware(h)
	}
	return h
}

// Names returns the stage names in execution order.
func (c *Chain) Names() []string {
	names := make([]string, len(c.stages))
	for i, s := range c.stages {
		names[i] = s.Name
	}
	return names
}
