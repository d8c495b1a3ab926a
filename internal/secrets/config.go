package secrets

import (
	"fmt"
	"strings"
)

// SourceType identifies where the signing secret is read from.
type SourceType string

// Secret sources.
const (
	SourceEnv    SourceType = "env"
	SourceFile   SourceType = "file"
	SourceInline SourceType = "inline"
	SourceVault  SourceType = "vault"
)

// DefaultEnvVar is the variable read by the env source.
//
//nolint:gosec // G101: variable name, not a credential
const DefaultEnvVar = "JWT_SECRET"

// DefaultVaultKey is the field of the Vault entry holding the secret.
const DefaultVaultKey = "secret"

// Config selects and configures the secret source.
type Config struct {
	// Source defaults to env.
	Source SourceType `yaml:"source,omitempty" json:"source,omitempty"`

	// EnvVar names the variable for the env source.
	EnvVar string `yaml:"envVar,omitempty" json:"envVar,omitempty"`

	// File is the path read by the file source.
	File string `yaml:"file,omitempty" json:"file,omitempty"`

	// Value is the secret itself for the inline source.
	Value string `yaml:"value,omitempty" json:"-"`

	// Vault locates the secret for the vault source.
	Vault *VaultSource `yaml:"vault,omitempty" json:"vault,omitempty"`
}

// VaultSource locates the secret in a Vault KV mount.
type VaultSource struct {
	Mount string `yaml:"mount" json:"mount"`
	Path  string `yaml:"path" json:"path"`

	// Key defaults to "secret".
	Key string `yaml:"key,omitempty" json:"key,omitempty"`
}

// DefaultConfig returns a Config reading JWT_SECRET.
func DefaultConfig() *Config {
	return &Config{
		Source: SourceEnv,
		EnvVar: DefaultEnvVar,
	}
}

// GetSource returns the effective source.
func (c *Config) GetSource() SourceType {
	if c == nil || c.Source == "" {
		return SourceEnv
	}
	return c.Source
}

// GetEnvVar returns the effective environment variable name.
func (c *Config) GetEnvVar() string {
	if c == nil || c.EnvVar == "" {
		return DefaultEnvVar
	}
	return c.EnvVar
}

// GetVaultKey returns the effective Vault entry field.
func (c *Config) GetVaultKey() string {
	if c == nil || c.Vault == nil || c.Vault.Key == "" {
		return DefaultVaultKey
	}
	return c.Vault.Key
}

// Validate checks that the selected source is fully configured.
func (c *Config) Validate() error {
	switch c.GetSource() {
	case SourceEnv:
		return nil
	case SourceFile:
		if c.File == "" {
			return fmt.Errorf("%w: file path is required for the file source", ErrSourceNotConfigured)
		}
	case SourceInline:
		if strings.TrimSpace(c.Value) == "" {
			return fmt.Errorf("%w: value is required for the inline source", ErrSourceNotConfigured)
		}
	case SourceVault:
		if c.Vault == nil || c.Vault.Mount == "" || c.Vault.Path == "" {
			return fmt.Errorf("%w: vault mount and path are required for the vault source", ErrSourceNotConfigured)
		}
	default:
		return fmt.Errorf("%w: %q, must be one of: env, file, inline, vault", ErrInvalidSource, c.Source)
	}
	return nil
}
