package vault

import (
	"fmt"
	"time"

	"github.com/vyrodovalexey/idgate/internal/retry"
)

// AuthMethod specifies the Vault authentication method.
type AuthMethod string

// Authentication methods.
const (
	AuthMethodToken      AuthMethod = "token"
	AuthMethodKubernetes AuthMethod = "kubernetes"
	AuthMethodAppRole    AuthMethod = "approle"
)

// IsValid returns true if the auth method is known.
func (m AuthMethod) IsValid() bool {
	switch m {
	case AuthMethodToken, AuthMethodKubernetes, AuthMethodAppRole:
		return true
	default:
		return false
	}
}

// DefaultTimeout is the per-request timeout of the Vault client.
const DefaultTimeout = 10 * time.Second

// Config represents Vault client configuration.
type Config struct {
	// Enabled enables Vault integration.
	Enabled bool `yaml:"enabled" json:"enabled"`

	// Address is the Vault server address.
	Address string `yaml:"address" json:"address"`

	// Namespace is the Vault Enterprise namespace.
	Namespace string `yaml:"namespace,omitempty" json:"namespace,omitempty"`

	// AuthMethod specifies the authentication method.
	AuthMethod AuthMethod `yaml:"authMethod" json:"authMethod"`

	// Token for token authentication.
	Token string `yaml:"token,omitempty" json:"-"`

	Kubernetes *KubernetesAuthConfig `yaml:"kubernetes,omitempty" json:"kubernetes,omitempty"`
	AppRole    *AppRoleAuthConfig    `yaml:"appRole,omitempty" json:"appRole,omitempty"`
	TLS        *TLSConfig            `yaml:"tls,omitempty" json:"tls,omitempty"`

	// Timeout bounds each HTTP request to Vault.
	Timeout time.Duration `yaml:"timeout,omitempty" json:"timeout,omitempty"`

	// Retry controls how failed reads are retried.
	Retry *retry.Config `yaml:"retry,omitempty" json:"retry,omitempty"`
}

// KubernetesAuthConfig configures Kubernetes authentication.
type KubernetesAuthConfig struct {
	Role string `yaml:"role" json:"role"`

	// MountPath defaults to "kubernetes".
	MountPath string `yaml:"mountPath,omitempty" json:"mountPath,omitempty"`

	// TokenPath defaults to the in-cluster ServiceAccount token.
	TokenPath string `yaml:"tokenPath,omitempty" json:"tokenPath,omitempty"`
}

// AppRoleAuthConfig configures AppRole authentication.
type AppRoleAuthConfig struct {
	RoleID   string `yaml:"roleId" json:"roleId"`
	SecretID string `yaml:"secretId" json:"-"`

	// MountPath defaults to "approle".
	MountPath string `yaml:"mountPath,omitempty" json:"mountPath,omitempty"`
}

// TLSConfig configures TLS for the Vault connection.
type TLSConfig struct {
	CACert     string `yaml:"caCert,omitempty" json:"caCert,omitempty"`
	CAPath     string `yaml:"caPath,omitempty" json:"caPath,omitempty"`
	ClientCert string `yaml:"clientCert,omitempty" json:"clientCert,omitempty"`
	ClientKey  string `yaml:"clientKey,omitempty" json:"clientKey,omitempty"`
	ServerName string `yaml:"serverName,omitempty" json:"serverName,omitempty"`

	// SkipVerify skips certificate verification. Never use in production.
	SkipVerify bool `yaml:"skipVerify,omitempty" json:"skipVerify,omitempty"`
}

// DefaultConfig returns a disabled Config with default values.
func DefaultConfig() *Config {
	return &Config{
		AuthMethod: AuthMethodToken,
		Timeout:    DefaultTimeout,
		Retry:      retry.DefaultConfig(),
	}
}

// GetTimeout returns the effective request timeout.
func (c *Config) GetTimeout() time.Duration {
	if c == nil || c.Timeout <= 0 {
		return DefaultTimeout
	}
	return c.Timeout
}

// Validate validates the Vault configuration. A disabled configuration is
// always valid.
func (c *Config) Validate() error {
	if c == nil {
		return NewConfigurationError("", "configuration is nil")
	}
	if !c.Enabled {
		return nil
	}

	if c.Address == "" {
		return NewConfigurationError("address", "vault address is required")
	}
	if !c.AuthMethod.IsValid() {
		return NewConfigurationError("authMethod", fmt.Sprintf("invalid auth method: %q", c.AuthMethod))
	}
	if c.Timeout < 0 {
		return NewConfigurationError("timeout", "timeout must not be negative")
	}

	switch c.AuthMethod {
	case AuthMethodToken:
		if c.Token == "" {
			return NewConfigurationError("token", "token is required for token authentication")
		}
	case AuthMethodKubernetes:
		if c.Kubernetes == nil || c.Kubernetes.Role == "" {
			return NewConfigurationError("kubernetes.role", "role is required for kubernetes authentication")
		}
	case AuthMethodAppRole:
		if c.AppRole == nil || c.AppRole.RoleID == "" {
			return NewConfigurationError("appRole.roleId", "roleId is required for approle authentication")
		}
		if c.AppRole.SecretID == "" {
			return NewConfigurationError("appRole.secretId", "secretId is required for approle authentication")
		}
	}

	if c.TLS != nil && (c.TLS.ClientCert == "") != (c.TLS.ClientKey == "") {
		return NewConfigurationError("tls", "clientCert and clientKey must be set together")
	}

	return nil
}
