package jwt

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/lestrrat-go/jwx/v2/jws"
	jwtx "github.com/lestrrat-go/jwx/v2/jwt"

	"github.com/vyrodovalexey/idgate/internal/observability"
)

// Validator verifies session tokens.
type Validator interface {
	// Validate verifies the token and returns the identity claims it carries.
	Validate(ctx context.Context, token string) (*Claims, error)
}

// Claims is the verified projection of a token's claims set. Optional
// string claims are empty when the token does not carry them.
type Claims struct {
	Subject   string
	Role      string
	Email     string
	FullName  string
	Issuer    string
	Audience  []string
	ExpiresAt time.Time
	IssuedAt  time.Time
}

// validator implements the Validator interface.
type validator struct {
	config  *Config
	key     *SigningKey
	allowed map[string]bool
	mapping ClaimMapping
	now     func() time.Time
	logger  observability.Logger
	metrics *Metrics
}

// ValidatorOption is a functional option for the validator.
type ValidatorOption func(*validator)

// WithValidatorLogger sets the logger for the validator.
func WithValidatorLogger(logger observability.Logger) ValidatorOption {
	return func(v *validator) {
		v.logger = logger
	}
}

// WithValidatorMetrics sets the metrics for the validator.
func WithValidatorMetrics(metrics *Metrics) ValidatorOption {
	return func(v *validator) {
		v.metrics = metrics
	}
}

// WithClock overrides the clock used for temporal claim checks.
func WithClock(now func() time.Time) ValidatorOption {
	return func(v *validator) {
		v.now = now
	}
}

// NewValidator creates a token validator bound to key.
func NewValidator(config *Config, key *SigningKey, opts ...ValidatorOption) (Validator, error) {
	if config == nil {
		return nil, fmt.Errorf("config is required")
	}
	if key == nil {
		return nil, NewKeyError("signing key is required", nil)
	}
	if err := config.Validate(); err != nil {
		return nil, err
	}

	allowed, err := config.allowedAlgorithms(key)
	if err != nil {
		return nil, err
	}

	v := &validator{
		config:  config,
		key:     key,
		allowed: allowed,
		mapping: config.EffectiveClaimMapping(),
		now:     time.Now,
		logger:  observability.NopLogger(),
	}

	for _, opt := range opts {
		opt(v)
	}

	if v.metrics == nil {
		v.metrics = NewMetrics("gateway", nil)
	}

	return v, nil
}

// Validate verifies the token and returns its claims. The token itself is
// never logged.
func (v *validator) Validate(_ context.Context, token string) (*Claims, error) {
	start := time.Now()

	claims, err := v.validate(token)
	if err != nil {
		reason := Reason(err)
		v.metrics.RecordValidation("error", reason, time.Since(start))
		v.logger.Debug("token rejected", observability.String("reason", reason))
		return nil, err
	}

	v.metrics.RecordValidation("success", ReasonNone, time.Since(start))
	v.logger.Debug("token verified", observability.String("subject", claims.Subject))

	return claims, nil
}

func (v *validator) validate(token string) (*Claims, error) {
	if token == "" {
		return nil, ErrEmptyToken
	}

	// Compact serialization only; the JSON serialization is never issued.
	if strings.Count(token, ".") != 2 {
		return nil, NewValidationError("token is not a compact JWS", ErrTokenMalformed)
	}

	msg, err := jws.Parse([]byte(token))
	if err != nil {
		return nil, NewValidationError(fmt.Sprintf("failed to parse token: %v", err), ErrTokenMalformed)
	}

	sigs := msg.Signatures()
	if len(sigs) != 1 {
		return nil, NewValidationError("token must carry exactly one signature", ErrTokenMalformed)
	}

	alg := sigs[0].ProtectedHeaders().Algorithm()
	if !v.allowed[alg.String()] {
		return nil, NewValidationError(fmt.Sprintf("algorithm %q is not allowed", alg.String()), ErrUnsupportedAlgorithm)
	}

	if _, err := jws.Verify([]byte(token), jws.WithKey(alg, v.key.material)); err != nil {
		return nil, NewValidationError("signature verification failed", ErrTokenInvalidSignature)
	}

	// The signature is trusted from here on; parse the claims set without
	// verifying again.
	tok, err := jwtx.Parse([]byte(token), jwtx.WithVerify(false), jwtx.WithValidate(false))
	if err != nil {
		return nil, NewValidationError(fmt.Sprintf("failed to parse claims: %v", err), ErrTokenMalformed)
	}

	if err := v.validateClaims(tok); err != nil {
		return nil, err
	}

	return v.project(tok)
}

// validateClaims enforces temporal claims when present, then the
// configured expiration, issuer and audience requirements.
func (v *validator) validateClaims(tok jwtx.Token) error {
	err := jwtx.Validate(tok,
		jwtx.WithClock(jwtx.ClockFunc(v.now)),
		jwtx.WithAcceptableSkew(v.config.ClockSkew),
	)
	switch {
	case err == nil:
	case errors.Is(err, jwtx.ErrTokenExpired()):
		return NewValidationError("token has expired", ErrTokenExpired)
	case errors.Is(err, jwtx.ErrTokenNotYetValid()):
		return NewValidationError("token is not yet valid", ErrTokenNotYetValid)
	default:
		return NewValidationError(fmt.Sprintf("claims rejected: %v", err), ErrTokenInvalidClaim)
	}

	if v.config.RequireExpiration && tok.Expiration().IsZero() {
		return NewValidationError("exp claim is missing", ErrTokenMissingClaim)
	}

	if v.config.Issuer != "" && tok.Issuer() != v.config.Issuer {
		return NewValidationError("issuer is not allowed", ErrTokenInvalidIssuer)
	}

	if v.config.Audience != "" && !contains(tok.Audience(), v.config.Audience) {
		return NewValidationError("audience does not match", ErrTokenInvalidAudience)
	}

	return nil
}

// project extracts the identity claims. A missing subject fails the token
// since downstream headers would otherwise carry an empty identity.
func (v *validator) project(tok jwtx.Token) (*Claims, error) {
	subject, err := stringClaim(tok, v.mapping.Subject)
	if err != nil {
		return nil, err
	}
	if subject == "" {
		return nil, NewValidationError(
			fmt.Sprintf("%s claim is missing", v.mapping.Subject),
			ErrTokenMissingClaim,
		)
	}

	claims := &Claims{
		Subject:   subject,
		Issuer:    tok.Issuer(),
		Audience:  tok.Audience(),
		ExpiresAt: tok.Expiration(),
		IssuedAt:  tok.IssuedAt(),
	}

	if claims.Role, err = stringClaim(tok, v.mapping.Role); err != nil {
		return nil, err
	}
	if claims.Email, err = stringClaim(tok, v.mapping.Email); err != nil {
		return nil, err
	}
	if claims.FullName, err = stringClaim(tok, v.mapping.FullName); err != nil {
		return nil, err
	}

	return claims, nil
}

// stringClaim returns the named claim as a string, or "" when absent.
// A present claim of another type is an error.
func stringClaim(tok jwtx.Token, name string) (string, error) {
	value, ok := tok.Get(name)
	if !ok || value == nil {
		return "", nil
	}
	s, ok := value.(string)
	if !ok {
		return "", NewValidationError(fmt.Sprintf("%s claim is not a string", name), ErrTokenInvalidClaim)
	}
	return s, nil
}

func contains(values []string, want string) bool {
	for _, v := range values {
		if v == want {
			return true
		}
	}
	return false
}

// Ensure validator implements Validator.
var _ Validator = (*validator)(nil)
