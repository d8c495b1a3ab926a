package vault

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/vyrodovalexey/idgate/internal/retry"
)

const (
	testRootToken    = "root-token"
	testIssuedToken  = "issued-token"
	testRoleID       = "gateway-role"
	testSecretID     = "gateway-secret-id"
	testK8sRole      = "idgate"
	testK8sJWT       = "service-account-jwt"
	testSessionValue = "c2Vzc2lvbi1zZWNyZXQtdGhhdC1pcy1sb25nLWVub3VnaA=="
)

// fakeVault serves the subset of the Vault HTTP API the client uses.
type fakeVault struct {
	*httptest.Server
	flakyCalls atomic.Int32
	flakyFails int32
}

func newFakeVault(t *testing.T) *fakeVault {
	t.Helper()

	fv := &fakeVault{flakyFails: 2}
	mux := http.NewServeMux()

	mux.HandleFunc("/v1/auth/token/lookup-self", func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("X-Vault-Token") != testRootToken {
			writeJSON(w, http.StatusForbidden, map[string]interface{}{"errors": []string{"permission denied"}})
			return
		}
		writeJSON(w, http.StatusOK, map[string]interface{}{
			"data": map[string]interface{}{"ttl": 3600, "renewable": true},
		})
	})

	mux.HandleFunc("/v1/auth/approle/login", func(w http.ResponseWriter, r *http.Request) {
		var body map[string]string
		_ = json.NewDecoder(r.Body).Decode(&body)
		if body["role_id"] != testRoleID || body["secret_id"] != testSecretID {
			writeJSON(w, http.StatusBadRequest, map[string]interface{}{"errors": []string{"invalid role or secret ID"}})
			return
		}
		writeJSON(w, http.StatusOK, map[string]interface{}{
			"auth": map[string]interface{}{"client_token": testIssuedToken, "lease_duration": 600},
		})
	})

	mux.HandleFunc("/v1/auth/kubernetes/login", func(w http.ResponseWriter, r *http.Request) {
		var body map[string]string
		_ = json.NewDecoder(r.Body).Decode(&body)
		if body["role"] != testK8sRole || body["jwt"] != testK8sJWT {
			writeJSON(w, http.StatusForbidden, map[string]interface{}{"errors": []string{"permission denied"}})
			return
		}
		writeJSON(w, http.StatusOK, map[string]interface{}{
			"auth": map[string]interface{}{"client_token": testIssuedToken, "lease_duration": 600},
		})
	})

	authorized := func(next http.HandlerFunc) http.HandlerFunc {
		return func(w http.ResponseWriter, r *http.Request) {
			tok := r.Header.Get("X-Vault-Token")
			if tok != testRootToken && tok != testIssuedToken {
				writeJSON(w, http.StatusForbidden, map[string]interface{}{"errors": []string{"permission denied"}})
				return
			}
			next(w, r)
		}
	}

	mux.HandleFunc("/v1/secret/data/idgate/session", authorized(func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, http.StatusOK, map[string]interface{}{
			"data": map[string]interface{}{
				"data":     map[string]interface{}{"secret": testSessionValue},
				"metadata": map[string]interface{}{"version": 3},
			},
		})
	}))

	mux.HandleFunc("/v1/secret/data/idgate/deleted", authorized(func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, http.StatusOK, map[string]interface{}{
			"data": map[string]interface{}{
				"data":     nil,
				"metadata": map[string]interface{}{"deletion_time": "2026-01-01T00:00:00Z"},
			},
		})
	}))

	mux.HandleFunc("/v1/kv1/data/idgate/session", authorized(func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, http.StatusOK, map[string]interface{}{
			"data": map[string]interface{}{"secret": testSessionValue},
		})
	}))

	mux.HandleFunc("/v1/secret/data/idgate/missing", authorized(func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, http.StatusNotFound, map[string]interface{}{"errors": []string{}})
	}))

	mux.HandleFunc("/v1/secret/data/idgate/flaky", authorized(func(w http.ResponseWriter, _ *http.Request) {
		if fv.flakyCalls.Add(1) <= fv.flakyFails {
			writeJSON(w, http.StatusServiceUnavailable, map[string]interface{}{"errors": []string{"Vault is sealed"}})
			return
		}
		writeJSON(w, http.StatusOK, map[string]interface{}{
			"data": map[string]interface{}{"data": map[string]interface{}{"secret": testSessionValue}},
		})
	}))

	mux.HandleFunc("/v1/sys/health", func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, http.StatusOK, map[string]interface{}{
			"initialized": true,
			"sealed":      false,
			"standby":     false,
			"version":     "1.15.2",
		})
	})

	fv.Server = httptest.NewServer(mux)
	t.Cleanup(fv.Close)
	return fv
}

func writeJSON(w http.ResponseWriter, status int, body interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}

func tokenConfig(addr string) *Config {
	return &Config{
		Enabled:    true,
		Address:    addr,
		AuthMethod: AuthMethodToken,
		Token:      testRootToken,
		Timeout:    5 * time.Second,
		Retry: &retry.Config{
			MaxRetries:     3,
			InitialBackoff: time.Millisecond,
			MaxBackoff:     5 * time.Millisecond,
		},
	}
}
