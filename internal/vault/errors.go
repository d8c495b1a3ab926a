package vault

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	vaultapi "github.com/hashicorp/vault/api"
)

// Sentinel errors for Vault operations.
var (
	ErrDisabled             = errors.New("vault: integration is disabled")
	ErrNotAuthenticated     = errors.New("vault: client not authenticated")
	ErrAuthenticationFailed = errors.New("vault: authentication failed")
	ErrSecretNotFound       = errors.New("vault: secret not found")
	ErrInvalidPath          = errors.New("vault: invalid secret path")
	ErrClientClosed         = errors.New("vault: client closed")
)

// ConfigurationError reports an invalid Vault configuration field.
type ConfigurationError struct {
	Field   string
	Message string
	Cause   error
}

// NewConfigurationError creates a ConfigurationError.
func NewConfigurationError(field, message string) *ConfigurationError {
	return &ConfigurationError{Field: field, Message: message}
}

// NewConfigurationErrorWithCause creates a ConfigurationError wrapping cause.
func NewConfigurationErrorWithCause(field, message string, cause error) *ConfigurationError {
	return &ConfigurationError{Field: field, Message: message, Cause: cause}
}

// Error implements the error interface.
func (e *ConfigurationError) Error() string {
	msg := "vault configuration error"
	if e.Field != "" {
		msg += " in " + e.Field
	}
	msg += ": " + e.Message
	if e.Cause != nil {
		msg += ": " + e.Cause.Error()
	}
	return msg
}

// Unwrap returns the underlying error.
func (e *ConfigurationError) Unwrap() error {
	return e.Cause
}

// Is matches any *ConfigurationError.
func (e *ConfigurationError) Is(target error) bool {
	_, ok := target.(*ConfigurationError)
	return ok
}

// VaultError describes a failed Vault operation.
type VaultError struct {
	Op      string
	Path    string
	Message string
	Cause   error
}

// NewVaultError creates a VaultError.
func NewVaultError(op, path, message string, cause error) *VaultError {
	return &VaultError{Op: op, Path: path, Message: message, Cause: cause}
}

// Error implements the error interface.
func (e *VaultError) Error() string {
	msg := "vault " + e.Op
	if e.Path != "" {
		msg += " " + e.Path
	}
	msg += ": " + e.Message
	if e.Cause != nil {
		msg = fmt.Sprintf("%s: %v", msg, e.Cause)
	}
	return msg
}

// Unwrap returns the underlying error.
func (e *VaultError) Unwrap() error {
	return e.Cause
}

// StatusCode returns the HTTP status Vault answered with, or 0 when the
// request never got a response.
func StatusCode(err error) int {
	var respErr *vaultapi.ResponseError
	if errors.As(err, &respErr) {
		return respErr.StatusCode
	}
	return 0
}

// IsRetryable reports whether err is a transient failure: a transport
// error, a 5xx response or rate limiting.
func IsRetryable(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return false
	}
	if errors.Is(err, ErrSecretNotFound) || errors.Is(err, ErrInvalidPath) || errors.Is(err, ErrClientClosed) {
		return false
	}

	code := StatusCode(err)
	switch {
	case code == 0:
		return true
	case code == http.StatusTooManyRequests:
		return true
	case code >= http.StatusInternalServerError:
		return true
	default:
		return false
	}
}

// IsAuthError reports whether err is an authentication or permission failure.
func IsAuthError(err error) bool {
	if errors.Is(err, ErrAuthenticationFailed) || errors.Is(err, ErrNotAuthenticated) {
		return true
	}
	code := StatusCode(err)
	return code == http.StatusUnauthorized || code == http.StatusForbidden
}
