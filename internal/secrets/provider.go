package secrets

import (
	"context"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/vyrodovalexey/idgate/internal/observability"
)

// Provider returns the base64 signing secret from one source.
type Provider interface {
	// Type returns the source the provider reads.
	Type() SourceType

	// Secret returns the raw secret text with surrounding whitespace
	// removed.
	Secret(ctx context.Context) (string, error)
}

// KVReader reads a key-value entry from a secrets store.
type KVReader interface {
	ReadKV(ctx context.Context, mount, path string) (map[string]interface{}, error)
}

// NewProvider builds the provider selected by cfg. kv is required only for
// the vault source.
func NewProvider(cfg *Config, kv KVReader) (Provider, error) {
	if cfg == nil {
		cfg = DefaultConfig()
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	switch cfg.GetSource() {
	case SourceFile:
		return &FileProvider{path: cfg.File}, nil
	case SourceInline:
		return &InlineProvider{value: cfg.Value}, nil
	case SourceVault:
		if kv == nil {
			return nil, fmt.Errorf("%w: vault client is required for the vault source", ErrSourceNotConfigured)
		}
		return &VaultProvider{
			client: kv,
			mount:  cfg.Vault.Mount,
			path:   cfg.Vault.Path,
			key:    cfg.GetVaultKey(),
		}, nil
	default:
		return NewEnvProvider(cfg.GetEnvVar()), nil
	}
}

// EnvProvider reads the secret from an environment variable.
type EnvProvider struct {
	name   string
	lookup func(string) (string, bool)
}

// NewEnvProvider creates a provider reading the variable name.
func NewEnvProvider(name string) *EnvProvider {
	if name == "" {
		name = DefaultEnvVar
	}
	return &EnvProvider{name: name, lookup: os.LookupEnv}
}

// Type returns SourceEnv.
func (p *EnvProvider) Type() SourceType { return SourceEnv }

// Secret returns the variable's value.
func (p *EnvProvider) Secret(_ context.Context) (string, error) {
	value, ok := p.lookup(p.name)
	if !ok {
		return "", fmt.Errorf("%w: environment variable %s is not set", ErrSecretNotFound, p.name)
	}
	return strings.TrimSpace(value), nil
}

// FileProvider reads the secret from a file, typically a mounted
// Kubernetes Secret.
type FileProvider struct {
	path string
}

// Type returns SourceFile.
func (p *FileProvider) Type() SourceType { return SourceFile }

// Secret returns the file content.
func (p *FileProvider) Secret(_ context.Context) (string, error) {
	data, err := os.ReadFile(p.path)
	if err != nil {
		if os.IsNotExist(err) {
			return "", fmt.Errorf("%w: %s", ErrSecretNotFound, p.path)
		}
		return "", fmt.Errorf("failed to read secret file %s: %w", p.path, err)
	}
	return strings.TrimSpace(string(data)), nil
}

// InlineProvider returns a secret embedded in the configuration.
type InlineProvider struct {
	value string
}

// Type returns SourceInline.
func (p *InlineProvider) Type() SourceType { return SourceInline }

// Secret returns the configured value.
func (p *InlineProvider) Secret(_ context.Context) (string, error) {
	return strings.TrimSpace(p.value), nil
}

// VaultProvider reads the secret from one field of a Vault KV entry.
type VaultProvider struct {
	client KVReader
	mount  string
	path   string
	key    string
}

// Type returns SourceVault.
func (p *VaultProvider) Type() SourceType { return SourceVault }

// Secret reads the entry and returns its configured field.
func (p *VaultProvider) Secret(ctx context.Context) (string, error) {
	data, err := p.client.ReadKV(ctx, p.mount, p.path)
	if err != nil {
		return "", fmt.Errorf("failed to read %s/%s from vault: %w", p.mount, p.path, err)
	}

	raw, ok := data[p.key]
	if !ok {
		return "", fmt.Errorf("%w: field %q missing in %s/%s", ErrSecretNotFound, p.key, p.mount, p.path)
	}
	value, ok := raw.(string)
	if !ok {
		return "", fmt.Errorf("%w: field %q in %s/%s is not a string", ErrSecretNotFound, p.key, p.mount, p.path)
	}
	return strings.TrimSpace(value), nil
}

// Resolve fetches the secret from p. An empty secret is an error. Only
// the source type is logged.
func Resolve(ctx context.Context, p Provider, logger observability.Logger, metrics *Metrics) (string, error) {
	if logger == nil {
		logger = observability.NopLogger()
	}
	if metrics == nil {
		metrics = NewMetrics("gateway", nil)
	}

	start := time.Now()
	secret, err := p.Secret(ctx)
	if err == nil && secret == "" {
		err = ErrEmptySecret
	}
	metrics.RecordResolve(p.Type(), err, time.Since(start))

	if err != nil {
		logger.Error("failed to resolve signing secret",
			observability.String("source", string(p.Type())),
			observability.Error(err),
		)
		return "", err
	}

	logger.Info("signing secret resolved", observability.String("source", string(p.Type())))
	return secret, nil
}

var (
	_ Provider = (*EnvProvider)(nil)
	_ Provider = (*FileProvider)(nil)
	_ Provider = (*InlineProvider)(nil)
	_ Provider = (*VaultProvider)(nil)
)
