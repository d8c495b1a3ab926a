package vault

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"

	"github.com/vyrodovalexey/idgate/internal/observability"
)

func newTestClient(t *testing.T, cfg *Config, opts ...ClientOption) *Client {
	t.Helper()

	client, err := New(cfg, observability.NopLogger(), opts...)
	require.NoError(t, err)
	t.Cleanup(func() { _ = client.Close() })
	return client
}

func TestNew_Errors(t *testing.T) {
	t.Parallel()

	_, err := New(nil, nil)
	assert.ErrorIs(t, err, &ConfigurationError{})

	_, err = New(&Config{Enabled: false}, nil)
	assert.ErrorIs(t, err, ErrDisabled)

	_, err = New(&Config{Enabled: true, AuthMethod: AuthMethodToken}, nil)
	assert.ErrorIs(t, err, &ConfigurationError{})

	_, err = New(&Config{
		Enabled:    true,
		Address:    "http://vault:8200",
		AuthMethod: AuthMethodToken,
		Token:      "t",
		TLS:        &TLSConfig{CACert: "/does/not/exist.pem"},
	}, nil)
	assert.ErrorIs(t, err, &ConfigurationError{})
}

func TestClient_TokenAuthAndRead(t *testing.T) {
	t.Parallel()

	fv := newFakeVault(t)
	client := newTestClient(t, tokenConfig(fv.URL))

	require.NoError(t, client.Authenticate(context.Background()))

	data, err := client.ReadKV(context.Background(), "secret", "idgate/session")
	require.NoError(t, err)
	assert.Equal(t, testSessionValue, data["secret"])
}

func TestClient_TokenAuthRejected(t *testing.T) {
	t.Parallel()

	fv := newFakeVault(t)
	cfg := tokenConfig(fv.URL)
	cfg.Token = "wrong"
	client := newTestClient(t, cfg)

	err := client.Authenticate(context.Background())
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrAuthenticationFailed)
	assert.True(t, IsAuthError(err))
	assert.NotContains(t, err.Error(), "wrong")
}

func TestClient_AppRoleAuth(t *testing.T) {
	t.Parallel()

	fv := newFakeVault(t)
	cfg := tokenConfig(fv.URL)
	cfg.AuthMethod = AuthMethodAppRole
	cfg.Token = ""
	cfg.AppRole = &AppRoleAuthConfig{RoleID: testRoleID, SecretID: testSecretID}
	client := newTestClient(t, cfg)

	require.NoError(t, client.Authenticate(context.Background()))

	data, err := client.ReadKV(context.Background(), "secret", "idgate/session")
	require.NoError(t, err)
	assert.Equal(t, testSessionValue, data["secret"])
}

func TestClient_AppRoleAuthRejected(t *testing.T) {
	t.Parallel()

	fv := newFakeVault(t)
	cfg := tokenConfig(fv.URL)
	cfg.AuthMethod = AuthMethodAppRole
	cfg.AppRole = &AppRoleAuthConfig{RoleID: testRoleID, SecretID: "stale"}
	client := newTestClient(t, cfg)

	assert.ErrorIs(t, client.Authenticate(context.Background()), ErrAuthenticationFailed)
}

func TestClient_KubernetesAuth(t *testing.T) {
	t.Parallel()

	tokenPath := filepath.Join(t.TempDir(), "token")
	require.NoError(t, os.WriteFile(tokenPath, []byte(testK8sJWT+"\n"), 0o600))

	fv := newFakeVault(t)
	cfg := tokenConfig(fv.URL)
	cfg.AuthMethod = AuthMethodKubernetes
	cfg.Kubernetes = &KubernetesAuthConfig{Role: testK8sRole, TokenPath: tokenPath}
	client := newTestClient(t, cfg)

	require.NoError(t, client.Authenticate(context.Background()))
}

func TestClient_KubernetesAuthMissingToken(t *testing.T) {
	t.Parallel()

	fv := newFakeVault(t)
	cfg := tokenConfig(fv.URL)
	cfg.AuthMethod = AuthMethodKubernetes
	cfg.Kubernetes = &KubernetesAuthConfig{Role: testK8sRole, TokenPath: filepath.Join(t.TempDir(), "absent")}
	client := newTestClient(t, cfg)

	assert.ErrorIs(t, client.Authenticate(context.Background()), ErrAuthenticationFailed)
}

func TestClient_ReadKVVersion1(t *testing.T) {
	t.Parallel()

	fv := newFakeVault(t)
	client := newTestClient(t, tokenConfig(fv.URL))
	require.NoError(t, client.Authenticate(context.Background()))

	data, err := client.ReadKV(context.Background(), "/kv1/", "idgate/session")
	require.NoError(t, err)
	assert.Equal(t, testSessionValue, data["secret"])
}

func TestClient_ReadKVNotFound(t *testing.T) {
	t.Parallel()

	fv := newFakeVault(t)
	client := newTestClient(t, tokenConfig(fv.URL))
	require.NoError(t, client.Authenticate(context.Background()))

	for _, path := range []string{"idgate/missing", "idgate/deleted"} {
		_, err := client.ReadKV(context.Background(), "secret", path)
		assert.ErrorIs(t, err, ErrSecretNotFound, path)
	}
}

func TestClient_ReadKVRetriesUnavailable(t *testing.T) {
	t.Parallel()

	core, logs := observer.New(zap.WarnLevel)
	fv := newFakeVault(t)
	client, err := New(tokenConfig(fv.URL), observability.NewLoggerFromZap(zap.New(core)))
	require.NoError(t, err)
	require.NoError(t, client.Authenticate(context.Background()))

	data, err := client.ReadKV(context.Background(), "secret", "idgate/flaky")
	require.NoError(t, err)
	assert.Equal(t, testSessionValue, data["secret"])
	assert.Equal(t, int32(3), fv.flakyCalls.Load())
	assert.Equal(t, 2, logs.FilterMessage("vault read failed, retrying").Len())
}

func TestClient_ReadKVRetryBudget(t *testing.T) {
	t.Parallel()

	fv := newFakeVault(t)
	fv.flakyFails = 100
	cfg := tokenConfig(fv.URL)
	cfg.Retry.MaxRetries = 1
	client := newTestClient(t, cfg)
	require.NoError(t, client.Authenticate(context.Background()))

	_, err := client.ReadKV(context.Background(), "secret", "idgate/flaky")
	require.Error(t, err)
	assert.Equal(t, 503, StatusCode(err))
	assert.Equal(t, int32(2), fv.flakyCalls.Load())
}

func TestClient_ReadKVPreconditions(t *testing.T) {
	t.Parallel()

	fv := newFakeVault(t)
	client := newTestClient(t, tokenConfig(fv.URL))

	_, err := client.ReadKV(context.Background(), "secret", "idgate/session")
	assert.ErrorIs(t, err, ErrNotAuthenticated)

	require.NoError(t, client.Authenticate(context.Background()))

	for _, tc := range []struct{ mount, path string }{
		{"", "idgate/session"},
		{"secret", ""},
		{"secret", "../sys/raw"},
	} {
		_, err := client.ReadKV(context.Background(), tc.mount, tc.path)
		assert.ErrorIs(t, err, ErrInvalidPath)
	}
}

func TestClient_Health(t *testing.T) {
	t.Parallel()

	fv := newFakeVault(t)
	client := newTestClient(t, tokenConfig(fv.URL))

	health, err := client.Health(context.Background())
	require.NoError(t, err)
	assert.True(t, health.Initialized)
	assert.False(t, health.Sealed)
	assert.Equal(t, "1.15.2", health.Version)
}

func TestClient_Closed(t *testing.T) {
	t.Parallel()

	fv := newFakeVault(t)
	client := newTestClient(t, tokenConfig(fv.URL))
	require.NoError(t, client.Authenticate(context.Background()))
	require.NoError(t, client.Close())

	assert.ErrorIs(t, client.Authenticate(context.Background()), ErrClientClosed)
	_, err := client.ReadKV(context.Background(), "secret", "idgate/session")
	assert.ErrorIs(t, err, ErrClientClosed)
	_, err = client.Health(context.Background())
	assert.ErrorIs(t, err, ErrClientClosed)
}

func TestClient_Metrics(t *testing.T) {
	t.Parallel()

	reg := prometheus.NewRegistry()
	metrics := NewMetrics("test", reg)

	fv := newFakeVault(t)
	client := newTestClient(t, tokenConfig(fv.URL), WithMetrics(metrics))
	require.NoError(t, client.Authenticate(context.Background()))
	_, err := client.ReadKV(context.Background(), "secret", "idgate/session")
	require.NoError(t, err)
	_, err = client.ReadKV(context.Background(), "secret", "idgate/missing")
	require.Error(t, err)

	assert.Equal(t, 1.0, testutil.ToFloat64(metrics.requestsTotal.WithLabelValues("authenticate", "success")))
	assert.Equal(t, 1.0, testutil.ToFloat64(metrics.requestsTotal.WithLabelValues("kv_read", "success")))
	assert.Equal(t, 1.0, testutil.ToFloat64(metrics.requestsTotal.WithLabelValues("kv_read", "not_found")))
}

func TestClient_NeverLogsSecrets(t *testing.T) {
	t.Parallel()

	core, logs := observer.New(zap.DebugLevel)
	fv := newFakeVault(t)
	client, err := New(tokenConfig(fv.URL), observability.NewLoggerFromZap(zap.New(core)))
	require.NoError(t, err)

	require.NoError(t, client.Authenticate(context.Background()))
	_, err = client.ReadKV(context.Background(), "secret", "idgate/session")
	require.NoError(t, err)

	require.NotZero(t, logs.Len())
	for _, entry := range logs.All() {
		for _, value := range entry.ContextMap() {
			s, _ := value.(string)
			assert.NotContains(t, s, testRootToken)
			assert.NotContains(t, s, testSessionValue)
		}
	}
}
