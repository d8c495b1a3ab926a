package secrets

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
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
	"github.com/vyrodovalexey/idgate/internal/vault"
)

const testSecret = "dGhpcy1pcy1hLXRlc3Qtc2lnbmluZy1zZWNyZXQtMzItYnl0ZXM="

type fakeKV struct {
	data map[string]interface{}
	err  error
}

func (f *fakeKV) ReadKV(_ context.Context, _, _ string) (map[string]interface{}, error) {
	return f.data, f.err
}

func TestNewProvider(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name     string
		cfg      *Config
		kv       KVReader
		wantType SourceType
		wantErr  error
	}{
		{"nil config is env", nil, nil, SourceEnv, nil},
		{"env", &Config{Source: SourceEnv, EnvVar: "X"}, nil, SourceEnv, nil},
		{"file", &Config{Source: SourceFile, File: "/tmp/s"}, nil, SourceFile, nil},
		{"inline", &Config{Source: SourceInline, Value: testSecret}, nil, SourceInline, nil},
		{"vault", &Config{Source: SourceVault, Vault: &VaultSource{Mount: "secret", Path: "p"}}, &fakeKV{}, SourceVault, nil},
		{"vault without client", &Config{Source: SourceVault, Vault: &VaultSource{Mount: "secret", Path: "p"}}, nil, "", ErrSourceNotConfigured},
		{"invalid", &Config{Source: "consul"}, nil, "", ErrInvalidSource},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			p, err := NewProvider(tt.cfg, tt.kv)
			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.wantType, p.Type())
		})
	}
}

func TestEnvProvider(t *testing.T) {
	t.Parallel()

	env := map[string]string{"JWT_SECRET": "  " + testSecret + "\n"}
	p := NewEnvProvider("")
	p.lookup = func(name string) (string, bool) {
		v, ok := env[name]
		return v, ok
	}

	got, err := p.Secret(context.Background())
	require.NoError(t, err)
	assert.Equal(t, testSecret, got)

	missing := NewEnvProvider("IDGATE_UNSET_SECRET")
	missing.lookup = p.lookup
	_, err = missing.Secret(context.Background())
	assert.ErrorIs(t, err, ErrSecretNotFound)
}

func TestFileProvider(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "secret")
	require.NoError(t, os.WriteFile(path, []byte(testSecret+"\n"), 0o600))

	p, err := NewProvider(&Config{Source: SourceFile, File: path}, nil)
	require.NoError(t, err)

	got, err := p.Secret(context.Background())
	require.NoError(t, err)
	assert.Equal(t, testSecret, got)

	absent := &FileProvider{path: filepath.Join(t.TempDir(), "absent")}
	_, err = absent.Secret(context.Background())
	assert.ErrorIs(t, err, ErrSecretNotFound)
}

func TestInlineProvider(t *testing.T) {
	t.Parallel()

	p := &InlineProvider{value: " " + testSecret}
	got, err := p.Secret(context.Background())
	require.NoError(t, err)
	assert.Equal(t, testSecret, got)
}

func TestVaultProvider(t *testing.T) {
	t.Parallel()

	errSealed := errors.New("vault is sealed")

	tests := []struct {
		name    string
		kv      *fakeKV
		key     string
		want    string
		wantErr error
	}{
		{"default key", &fakeKV{data: map[string]interface{}{"secret": testSecret}}, "secret", testSecret, nil},
		{"custom key", &fakeKV{data: map[string]interface{}{"hmac": testSecret}}, "hmac", testSecret, nil},
		{"missing key", &fakeKV{data: map[string]interface{}{"other": "x"}}, "secret", "", ErrSecretNotFound},
		{"non-string", &fakeKV{data: map[string]interface{}{"secret": 42}}, "secret", "", ErrSecretNotFound},
		{"read error", &fakeKV{err: errSealed}, "secret", "", errSealed},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			p := &VaultProvider{client: tt.kv, mount: "secret", path: "idgate", key: tt.key}
			got, err := p.Secret(context.Background())
			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestResolve(t *testing.T) {
	t.Parallel()

	reg := prometheus.NewRegistry()
	metrics := NewMetrics("test", reg)
	core, logs := observer.New(zap.DebugLevel)
	logger := observability.NewLoggerFromZap(zap.New(core))

	got, err := Resolve(context.Background(), &InlineProvider{value: testSecret}, logger, metrics)
	require.NoError(t, err)
	assert.Equal(t, testSecret, got)

	_, err = Resolve(context.Background(), &InlineProvider{value: "   "}, logger, metrics)
	assert.ErrorIs(t, err, ErrEmptySecret)

	assert.Equal(t, 1.0, testutil.ToFloat64(metrics.resolveTotal.WithLabelValues("inline", "success")))
	assert.Equal(t, 1.0, testutil.ToFloat64(metrics.resolveTotal.WithLabelValues("inline", "error")))

	for _, entry := range logs.All() {
		assert.NotContains(t, entry.Message, testSecret)
		for _, value := range entry.ContextMap() {
			s, _ := value.(string)
			assert.NotContains(t, s, testSecret)
		}
	}
}

func TestResolve_NilLoggerAndMetrics(t *testing.T) {
	t.Parallel()

	got, err := Resolve(context.Background(), &InlineProvider{value: testSecret}, nil, nil)
	require.NoError(t, err)
	assert.Equal(t, testSecret, got)
}

func TestResolve_FromVaultServer(t *testing.T) {
	t.Parallel()

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		if r.Header.Get("X-Vault-Token") != "root" {
			w.WriteHeader(http.StatusForbidden)
			_, _ = w.Write([]byte(`{"errors":["permission denied"]}`))
			return
		}
		switch r.URL.Path {
		case "/v1/auth/token/lookup-self":
			_, _ = w.Write([]byte(`{"data":{"ttl":0,"renewable":false}}`))
		case "/v1/secret/data/idgate/session":
			_ = json.NewEncoder(w).Encode(map[string]interface{}{
				"data": map[string]interface{}{
					"data": map[string]interface{}{"secret": testSecret},
				},
			})
		default:
			w.WriteHeader(http.StatusNotFound)
			_, _ = w.Write([]byte(`{"errors":[]}`))
		}
	}))
	t.Cleanup(server.Close)

	client, err := vault.New(&vault.Config{
		Enabled:    true,
		Address:    server.URL,
		AuthMethod: vault.AuthMethodToken,
		Token:      "root",
	}, observability.NopLogger())
	require.NoError(t, err)
	t.Cleanup(func() { _ = client.Close() })
	require.NoError(t, client.Authenticate(context.Background()))

	p, err := NewProvider(&Config{
		Source: SourceVault,
		Vault:  &VaultSource{Mount: "secret", Path: "idgate/session"},
	}, client)
	require.NoError(t, err)

	got, err := Resolve(context.Background(), p, nil, nil)
	require.NoError(t, err)
	assert.Equal(t, testSecret, got)

	missing, err := NewProvider(&Config{
		Source: SourceVault,
		Vault:  &VaultSource{Mount: "secret", Path: "idgate/absent"},
	}, client)
	require.NoError(t, err)
	_, err = Resolve(context.Background(), missing, nil, nil)
	assert.ErrorIs(t, err, vault.ErrSecretNotFound)
}
