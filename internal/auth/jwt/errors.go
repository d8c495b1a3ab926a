package jwt

import (
	"errors"
	"fmt"
)

// Sentinel errors for token verification.
var (
	// ErrEmptyToken indicates that the token is empty.
	ErrEmptyToken = errors.New("token is empty")

	// ErrTokenMalformed indicates that the token cannot be parsed.
	ErrTokenMalformed = errors.New("token is malformed")

	// ErrUnsupportedAlgorithm indicates that the header algorithm is absent or not allowed.
	ErrUnsupportedAlgorithm = errors.New("signing algorithm is not supported")

	// ErrTokenInvalidSignature indicates that the token signature is invalid.
	ErrTokenInvalidSignature = errors.New("token signature is invalid")

	// ErrTokenExpired indicates that the token has expired.
	ErrTokenExpired = errors.New("token has expired")

	// ErrTokenNotYetValid indicates that the token is not yet valid.
	ErrTokenNotYetValid = errors.New("token is not yet valid")

	// ErrTokenInvalidIssuer indicates that the token issuer is invalid.
	ErrTokenInvalidIssuer = errors.New("token issuer is invalid")

	// ErrTokenInvalidAudience indicates that the token audience is invalid.
	ErrTokenInvalidAudience = errors.New("token audience is invalid")

	// ErrTokenMissingClaim indicates that a required claim is missing.
	ErrTokenMissingClaim = errors.New("required claim is missing")

	// ErrTokenInvalidClaim indicates that a claim value has the wrong type.
	ErrTokenInvalidClaim = errors.New("claim value is invalid")

	// ErrInvalidKey indicates that the signing key is unusable.
	ErrInvalidKey = errors.New("signing key is invalid")
)

// Failure reasons reported in metrics and logs.
const (
	ReasonNone                 = "none"
	ReasonEmpty                = "empty_token"
	ReasonMalformed            = "malformed"
	ReasonUnsupportedAlgorithm = "unsupported_algorithm"
	ReasonInvalidSignature     = "invalid_signature"
	ReasonExpired              = "expired"
	ReasonNotYetValid          = "not_yet_valid"
	ReasonInvalidIssuer        = "invalid_issuer"
	ReasonInvalidAudience      = "invalid_audience"
	ReasonMissingClaim         = "missing_claim"
	ReasonInvalidClaim         = "invalid_claim"
	ReasonUnknown              = "unknown"
)

var reasons = []struct {
	err    error
	reason string
}{
	{ErrEmptyToken, ReasonEmpty},
	{ErrTokenMalformed, ReasonMalformed},
	{ErrUnsupportedAlgorithm, ReasonUnsupportedAlgorithm},
	{ErrTokenInvalidSignature, ReasonInvalidSignature},
	{ErrTokenExpired, ReasonExpired},
	{ErrTokenNotYetValid, ReasonNotYetValid},
	{ErrTokenInvalidIssuer, ReasonInvalidIssuer},
	{ErrTokenInvalidAudience, ReasonInvalidAudience},
	{ErrTokenMissingClaim, ReasonMissingClaim},
	{ErrTokenInvalidClaim, ReasonInvalidClaim},
}

// Reason classifies a verification error into a stable, low-cardinality
// label. It returns ReasonNone for a nil error.
func Reason(err error) string {
	if err == nil {
		return ReasonNone
	}
	for _, r := range reasons {
		if errors.Is(err, r.err) {
			return r.reason
		}
	}
	return ReasonUnknown
}

// ValidationError represents a token verification failure.
type ValidationError struct {
	Message string
	Cause   error
}

// Error implements the error interface.
func (e *ValidationError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("jwt validation error: %s: %v", e.Message, e.Cause)
	}
	return fmt.Sprintf("jwt validation error: %s", e.Message)
}

// Unwrap returns the underlying error.
func (e *ValidationError) Unwrap() error {
	return e.Cause
}

// Is checks if the error matches the target.
func (e *ValidationError) Is(target error) bool {
	_, ok := target.(*ValidationError)
	return ok || errors.Is(e.Cause, target)
}

// NewValidationError creates a new ValidationError.
func NewValidationError(message string, cause error) *ValidationError {
	return &ValidationError{
		Message: message,
		Cause:   cause,
	}
}

// KeyError represents a signing key problem detected at startup.
type KeyError struct {
	Message string
	Cause   error
}

// Error implements the error interface.
func (e *KeyError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("jwt key error: %s: %v", e.Message, e.Cause)
	}
	return fmt.Sprintf("jwt key error: %s", e.Message)
}

// Unwrap returns the underlying error.
func (e *KeyError) Unwrap() error {
	return e.Cause
}

// Is reports ErrInvalidKey for every KeyError.
func (e *KeyError) Is(target error) bool {
	if target == ErrInvalidKey {
		return true
	}
	_, ok := target.(*KeyError)
	return ok || errors.Is(e.Cause, target)
}

// NewKeyError creates a new KeyError.
func NewKeyError(message string, cause error) *KeyError {
	return &KeyError{
		Message: message,
		Cause:   cause,
	}
}

// IsValidationError checks if an error is a validation error.
func IsValidationError(err error) bool {
	var validationErr *ValidationError
	return errors.As(err, &validationErr)
}
