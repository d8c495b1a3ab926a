package jwt

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestConfig_Validate(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		config  *Config
		wantErr bool
	}{
		{name: "Default", config: DefaultConfig()},
		{name: "Explicit HMAC algorithms", config: &Config{Algorithms: []string{AlgHS256, AlgHS512}}},
		{name: "Asymmetric algorithm", config: &Config{Algorithms: []string{"RS256"}}, wantErr: true},
		{name: "None algorithm", config: &Config{Algorithms: []string{"none"}}, wantErr: true},
		{name: "Negative skew", config: &Config{ClockSkew: -time.Second}, wantErr: true},
		{name: "Nil config", config: nil, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			err := tt.config.Validate()
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			assert.NoError(t, err)
		})
	}
}

func TestConfig_EffectiveClaimMapping(t *testing.T) {
	t.Parallel()

	assert.Equal(t, *DefaultClaimMapping(), (&Config{}).EffectiveClaimMapping())

	cfg := &Config{ClaimMapping: &ClaimMapping{Role: "roles", FullName: "name"}}
	m := cfg.EffectiveClaimMapping()
	assert.Equal(t, DefaultSubjectClaim, m.Subject)
	assert.Equal(t, "roles", m.Role)
	assert.Equal(t, DefaultEmailClaim, m.Email)
	assert.Equal(t, "name", m.FullName)
}

func TestConfig_AllowedAlgorithms(t *testing.T) {
	t.Parallel()

	key, err := NewSigningKeyFromBytes(testKeyBytes(48))
	require.NoError(t, err)

	allowed, err := (&Config{}).allowedAlgorithms(key)
	require.NoError(t, err)
	assert.Equal(t, map[string]bool{AlgHS256: true, AlgHS384: true}, allowed)

	allowed, err = (&Config{Algorithms: []string{AlgHS384}}).allowedAlgorithms(key)
	require.NoError(t, err)
	assert.Equal(t, map[string]bool{AlgHS384: true}, allowed)

	_, err = (&Config{Algorithms: []string{AlgHS512}}).allowedAlgorithms(key)
	assert.ErrorIs(t, err, ErrInvalidKey)
}
