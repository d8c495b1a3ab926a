package jwt

import (
	"errors"
	"fmt"
	"time"
)

// Default claim names carried by gateway session tokens.
const (
	DefaultSubjectClaim  = "sub"
	DefaultRoleClaim     = "role"
	DefaultEmailClaim    = "email"
	DefaultFullNameClaim = "fullName"
)

// Config represents token verification configuration.
type Config struct {
	// Algorithms restricts the accepted HMAC algorithms. Empty means every
	// HS* algorithm the signing key is long enough for.
	Algorithms []string `yaml:"algorithms,omitempty" json:"algorithms,omitempty"`

	// Issuer, when set, must equal the token's iss claim.
	Issuer string `yaml:"issuer,omitempty" json:"issuer,omitempty"`

	// Audience, when set, must be contained in the token's aud claim.
	Audience string `yaml:"audience,omitempty" json:"audience,omitempty"`

	// ClockSkew is the tolerance applied to exp, nbf and iat.
	ClockSkew time.Duration `yaml:"clockSkew,omitempty" json:"clockSkew,omitempty"`

	// RequireExpiration rejects tokens without an exp claim.
	RequireExpiration bool `yaml:"requireExpiration,omitempty" json:"requireExpiration,omitempty"`

	// ClaimMapping maps token claims to identity fields.
	ClaimMapping *ClaimMapping `yaml:"claimMapping,omitempty" json:"claimMapping,omitempty"`
}

// ClaimMapping configures which claims feed the propagated identity.
type ClaimMapping struct {
	Subject  string `yaml:"subject,omitempty" json:"subject,omitempty"`
	Role     string `yaml:"role,omitempty" json:"role,omitempty"`
	Email    string `yaml:"email,omitempty" json:"email,omitempty"`
	FullName string `yaml:"fullName,omitempty" json:"fullName,omitempty"`
}

// DefaultConfig returns the configuration matching the session tokens
// issued by the platform: any HS* algorithm, no issuer or audience pinning,
// no clock skew and exp optional.
func DefaultConfig() *Config {
	return &Config{
		ClaimMapping: DefaultClaimMapping(),
	}
}

// DefaultClaimMapping returns the sub/role/email/fullName mapping.
func DefaultClaimMapping() *ClaimMapping {
	return &ClaimMapping{
		Subject:  DefaultSubjectClaim,
		Role:     DefaultRoleClaim,
		Email:    DefaultEmailClaim,
		FullName: DefaultFullNameClaim,
	}
}

// Validate validates the configuration.
func (c *Config) Validate() error {
	if c == nil {
		return errors.New("jwt config is required")
	}

	for _, alg := range c.Algorithms {
		if _, ok := minKeyBytes[alg]; !ok {
			return fmt.Errorf("invalid algorithm: %s (only HS256, HS384 and HS512 are supported)", alg)
		}
	}

	if c.ClockSkew < 0 {
		return errors.New("clockSkew must be non-negative")
	}

	return nil
}

// EffectiveClaimMapping returns the claim mapping with defaults filled in.
func (c *Config) EffectiveClaimMapping() ClaimMapping {
	m := *DefaultClaimMapping()
	if c.ClaimMapping == nil {
		return m
	}
	if c.ClaimMapping.Subject != "" {
		m.Subject = c.ClaimMapping.Subject
	}
	if c.ClaimMapping.Role != "" {
		m.Role = c.ClaimMapping.Role
	}
	if c.ClaimMapping.Email != "" {
		m.Email = c.ClaimMapping.Email
	}
	if c.ClaimMapping.FullName != "" {
		m.FullName = c.ClaimMapping.FullName
	}
	return m
}

// allowedAlgorithms intersects the configured algorithms with those the key
// supports.
func (c *Config) allowedAlgorithms(key *SigningKey) (map[string]bool, error) {
	candidates := c.Algorithms
	if len(candidates) == 0 {
		candidates = key.SupportedAlgorithms()
	}

	allowed := make(map[string]bool, len(candidates))
	for _, alg := range candidates {
		if !key.Supports(alg) {
			return nil, NewKeyError(
				fmt.Sprintf("%s requires a key of at least %d bits", alg, minKeyBytes[alg]*8),
				nil,
			)
		}
		allowed[alg] = true
	}
	return allowed, nil
}
