package vault

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"testing"

	vaultapi "github.com/hashicorp/vault/api"
	"github.com/stretchr/testify/assert"
)

func TestConfigurationError(t *testing.T) {
	t.Parallel()

	cause := errors.New("bad pem")
	err := NewConfigurationErrorWithCause("tls", "failed to configure TLS", cause)

	assert.Equal(t, "vault configuration error in tls: failed to configure TLS: bad pem", err.Error())
	assert.ErrorIs(t, err, cause)
	assert.ErrorIs(t, err, &ConfigurationError{})
	assert.Equal(t, "vault configuration error: configuration is nil", NewConfigurationError("", "configuration is nil").Error())
}

func TestVaultError(t *testing.T) {
	t.Parallel()

	err := NewVaultError("kv_read", "secret/data/idgate", "failed to read secret", ErrSecretNotFound)

	assert.Equal(t, "vault kv_read secret/data/idgate: failed to read secret: vault: secret not found", err.Error())
	assert.ErrorIs(t, err, ErrSecretNotFound)
	assert.Equal(t, "vault health: unreachable", NewVaultError("health", "", "unreachable", nil).Error())
}

func TestIsRetryable(t *testing.T) {
	t.Parallel()

	response := func(code int) error {
		return fmt.Errorf("read: %w", &vaultapi.ResponseError{StatusCode: code})
	}

	tests := []struct {
		name string
		err  error
		want bool
	}{
		{"nil", nil, false},
		{"transport error", errors.New("connection refused"), true},
		{"service unavailable", response(http.StatusServiceUnavailable), true},
		{"internal error", response(http.StatusInternalServerError), true},
		{"rate limited", response(http.StatusTooManyRequests), true},
		{"forbidden", response(http.StatusForbidden), false},
		{"bad request", response(http.StatusBadRequest), false},
		{"canceled", context.Canceled, false},
		{"deadline", fmt.Errorf("wrapped: %w", context.DeadlineExceeded), false},
		{"not found", ErrSecretNotFound, false},
		{"closed", ErrClientClosed, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			assert.Equal(t, tt.want, IsRetryable(tt.err))
		})
	}
}

func TestIsAuthError(t *testing.T) {
	t.Parallel()

	assert.True(t, IsAuthError(ErrAuthenticationFailed))
	assert.True(t, IsAuthError(fmt.Errorf("x: %w", ErrNotAuthenticated)))
	assert.True(t, IsAuthError(&vaultapi.ResponseError{StatusCode: http.StatusForbidden}))
	assert.True(t, IsAuthError(&vaultapi.ResponseError{StatusCode: http.StatusUnauthorized}))
	assert.False(t, IsAuthError(&vaultapi.ResponseError{StatusCode: http.StatusServiceUnavailable}))
	assert.False(t, IsAuthError(nil))
}

func TestStatusCode(t *testing.T) {
	t.Parallel()

	assert.Equal(t, 0, StatusCode(errors.New("dial tcp")))
	assert.Equal(t, 404, StatusCode(fmt.Errorf("w: %w", &vaultapi.ResponseError{StatusCode: 404})))
}
