package vault

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	vaultapi "github.com/hashicorp/vault/api"

	"github.com/vyrodovalexey/idgate/internal/observability"
	"github.com/vyrodovalexey/idgate/internal/retry"
)

// HealthStatus is the subset of the Vault health response the gateway
// reports.
type HealthStatus struct {
	Initialized bool
	Sealed      bool
	Standby     bool
	Version     string
}

// Client reads secrets from Vault. It is safe for concurrent use.
type Client struct {
	config  *Config
	api     *vaultapi.Client
	auth    authenticator
	logger  observability.Logger
	metrics *Metrics

	mu            sync.RWMutex
	authenticated bool
	closed        bool
}

// ClientOption is a functional option for the client.
type ClientOption func(*Client)

// WithMetrics sets the metrics for the client.
func WithMetrics(metrics *Metrics) ClientOption {
	return func(c *Client) {
		c.metrics = metrics
	}
}

// New creates a Vault client. It does not contact Vault; call
// Authenticate before reading.
func New(cfg *Config, logger observability.Logger, opts ...ClientOption) (*Client, error) {
	if cfg == nil {
		return nil, NewConfigurationError("", "configuration is nil")
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if !cfg.Enabled {
		return nil, ErrDisabled
	}
	if logger == nil {
		logger = observability.NopLogger()
	}

	apiConfig := vaultapi.DefaultConfig()
	if apiConfig.Error != nil {
		return nil, NewConfigurationErrorWithCause("", "failed to load vault defaults", apiConfig.Error)
	}
	apiConfig.Address = cfg.Address
	apiConfig.Timeout = cfg.GetTimeout()
	// Retries are driven by ReadKV so they can be logged and bounded.
	apiConfig.MaxRetries = 0

	if cfg.TLS != nil {
		err := apiConfig.ConfigureTLS(&vaultapi.TLSConfig{
			CACert:        cfg.TLS.CACert,
			CAPath:        cfg.TLS.CAPath,
			ClientCert:    cfg.TLS.ClientCert,
			ClientKey:     cfg.TLS.ClientKey,
			TLSServerName: cfg.TLS.ServerName,
			Insecure:      cfg.TLS.SkipVerify,
		})
		if err != nil {
			return nil, NewConfigurationErrorWithCause("tls", "failed to configure TLS", err)
		}
	}

	api, err := vaultapi.NewClient(apiConfig)
	if err != nil {
		return nil, NewVaultError("init", "", "failed to create vault client", err)
	}
	// Only the configured auth method supplies a token.
	api.ClearToken()
	if cfg.Namespace != "" {
		api.SetNamespace(cfg.Namespace)
	}

	auth, err := newAuthenticator(cfg)
	if err != nil {
		return nil, err
	}

	c := &Client{
		config: cfg,
		api:    api,
		auth:   auth,
		logger: logger.With(observability.String("component", "vault")),
	}
	for _, opt := range opts {
		opt(c)
	}
	if c.metrics == nil {
		c.metrics = NewMetrics("gateway", nil)
	}

	return c, nil
}

// Authenticate logs in with the configured method.
func (c *Client) Authenticate(ctx context.Context) error {
	if err := c.checkOpen(); err != nil {
		return err
	}

	start := time.Now()
	secret, err := c.auth.Authenticate(ctx, c.api)
	if err != nil {
		c.metrics.RecordRequest("authenticate", "error", time.Since(start))
		return NewVaultError("authenticate", "", c.auth.Name(), fmt.Errorf("%w: %w", ErrAuthenticationFailed, err))
	}
	if secret == nil || secret.Auth == nil || secret.Auth.ClientToken == "" {
		c.metrics.RecordRequest("authenticate", "error", time.Since(start))
		return NewVaultError("authenticate", "", c.auth.Name(), fmt.Errorf("%w: no client token returned", ErrAuthenticationFailed))
	}

	c.api.SetToken(secret.Auth.ClientToken)
	c.mu.Lock()
	c.authenticated = true
	c.mu.Unlock()

	c.metrics.RecordRequest("authenticate", "success", time.Since(start))
	c.logger.Info("authenticated with vault",
		observability.String("method", c.auth.Name()),
		observability.Int("lease_seconds", secret.Auth.LeaseDuration),
	)
	return nil
}

// ReadKV reads the secret at path under a KV mount. Version 2 mounts are
// tried first; a response without a nested data object is treated as a
// version 1 entry. A soft-deleted version 2 entry is reported as
// ErrSecretNotFound.
func (c *Client) ReadKV(ctx context.Context, mount, path string) (map[string]interface{}, error) {
	if err := c.checkOpen(); err != nil {
		return nil, err
	}
	c.mu.RLock()
	authenticated := c.authenticated
	c.mu.RUnlock()
	if !authenticated {
		return nil, ErrNotAuthenticated
	}

	mount = strings.Trim(mount, "/")
	path = strings.Trim(path, "/")
	if mount == "" || path == "" || strings.Contains(path, "..") {
		return nil, NewVaultError("kv_read", path, "mount and path are required", ErrInvalidPath)
	}

	start := time.Now()
	fullPath := fmt.Sprintf("%s/data/%s", mount, path)

	var secret *vaultapi.Secret
	err := retry.Do(ctx, c.config.Retry, func() error {
		var err error
		secret, err = c.api.Logical().ReadWithContext(ctx, fullPath)
		return err
	}, &retry.Options{
		ShouldRetry: IsRetryable,
		OnRetry: func(attempt int, err error, backoff time.Duration) {
			c.logger.Warn("vault read failed, retrying",
				observability.String("path", fullPath),
				observability.Int("attempt", attempt),
				observability.Duration("backoff", backoff),
				observability.Error(err),
			)
		},
	})
	if err != nil {
		c.metrics.RecordRequest("kv_read", "error", time.Since(start))
		return nil, NewVaultError("kv_read", fullPath, "failed to read secret", err)
	}

	data, err := kvData(secret)
	if err != nil {
		c.metrics.RecordRequest("kv_read", "not_found", time.Since(start))
		return nil, NewVaultError("kv_read", fullPath, "no data", err)
	}

	c.metrics.RecordRequest("kv_read", "success", time.Since(start))
	c.logger.Debug("secret read", observability.String("path", fullPath))
	return data, nil
}

func kvData(secret *vaultapi.Secret) (map[string]interface{}, error) {
	if secret == nil || secret.Data == nil {
		return nil, ErrSecretNotFound
	}

	value, ok := secret.Data["data"]
	if !ok {
		return secret.Data, nil
	}
	if value == nil {
		return nil, ErrSecretNotFound
	}
	data, ok := value.(map[string]interface{})
	if !ok {
		return secret.Data, nil
	}
	return data, nil
}

// Health returns the Vault server health.
func (c *Client) Health(ctx context.Context) (*HealthStatus, error) {
	if err := c.checkOpen(); err != nil {
		return nil, err
	}

	start := time.Now()
	health, err := c.api.Sys().HealthWithContext(ctx)
	if err != nil {
		c.metrics.RecordRequest("health", "error", time.Since(start))
		return nil, NewVaultError("health", "", "failed to get health status", err)
	}
	c.metrics.RecordRequest("health", "success", time.Since(start))

	return &HealthStatus{
		Initialized: health.Initialized,
		Sealed:      health.Sealed,
		Standby:     health.Standby,
		Version:     health.Version,
	}, nil
}

// Close releases the client. Further calls return ErrClientClosed.
func (c *Client) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.closed = true
	c.authenticated = false
	c.api.ClearToken()
	return nil
}

func (c *Client) checkOpen() error {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if c.closed {
		return ErrClientClosed
	}
	return nil
}
