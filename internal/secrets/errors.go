package secrets

import "errors"

// Sentinel errors for secret resolution.
var (
	ErrInvalidSource       = errors.New("secrets: invalid source")
	ErrSourceNotConfigured = errors.New("secrets: source not configured")
	ErrSecretNotFound      = errors.New("secrets: secret not found")
	ErrEmptySecret         = errors.New("secrets: secret is empty")
)
