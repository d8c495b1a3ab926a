package auth

import (
	"fmt"

	"github.com/vyrodovalexey/idgate/internal/auth/jwt"
)

// FailurePolicy decides what happens to requests without a verified identity.
type FailurePolicy string

// Failure policies.
const (
	// FailOpen forwards unauthenticated requests without identity headers.
	FailOpen FailurePolicy = "open"

	// FailClosed answers unauthenticated requests with 401.
	FailClosed FailurePolicy = "closed"
)

// Config configures the identity gate.
type Config struct {
	// CookieName is the cookie carrying the session token.
	CookieName string `yaml:"cookieName,omitempty" json:"cookieName,omitempty"`

	// FailurePolicy is open (default) or closed.
	FailurePolicy FailurePolicy `yaml:"failurePolicy,omitempty" json:"failurePolicy,omitempty"`

	// StripUntrustedHeaders removes client-supplied identity headers from
	// requests that end up unauthenticated. Nil means true.
	StripUntrustedHeaders *bool `yaml:"stripUntrustedHeaders,omitempty" json:"stripUntrustedHeaders,omitempty"`
}

// DefaultConfig returns the gate defaults: cookie "token", fail open and
// strip untrusted headers.
func DefaultConfig() *Config {
	strip := true
	return &Config{
		CookieName:            jwt.DefaultCookieName,
		FailurePolicy:         FailOpen,
		StripUntrustedHeaders: &strip,
	}
}

// Validate validates the configuration.
func (c *Config) Validate() error {
	if c == nil {
		return fmt.Errorf("auth config is required")
	}
	switch c.FailurePolicy {
	case "", FailOpen, FailClosed:
	default:
		return fmt.Errorf("invalid failurePolicy %q: must be %q or %q", c.FailurePolicy, FailOpen, FailClosed)
	}
	return nil
}

// GetCookieName returns the effective cookie name.
func (c *Config) GetCookieName() string {
	if c.CookieName == "" {
		return jwt.DefaultCookieName
	}
	return c.CookieName
}

// GetFailurePolicy returns the effective failure policy.
func (c *Config) GetFailurePolicy() FailurePolicy {
	if c.FailurePolicy == "" {
		return FailOpen
	}
	return c.FailurePolicy
}

// ShouldStripUntrustedHeaders returns the effective strip setting.
func (c *Config) ShouldStripUntrustedHeaders() bool {
	return c.StripUntrustedHeaders == nil || *c.StripUntrustedHeaders
}
