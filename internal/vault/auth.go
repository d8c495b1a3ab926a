package vault

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"strings"

	vaultapi "github.com/hashicorp/vault/api"
)

// Auth method defaults.
const (
	//nolint:gosec // G101: well-known Kubernetes path, not a credential
	DefaultServiceAccountTokenPath = "/var/run/secrets/kubernetes.io/serviceaccount/token"
	DefaultKubernetesMountPath     = "kubernetes"
	DefaultAppRoleMountPath        = "approle"
)

// authenticator logs in to Vault and returns the auth secret.
type authenticator interface {
	Authenticate(ctx context.Context, api *vaultapi.Client) (*vaultapi.Secret, error)
	Name() string
}

func newAuthenticator(cfg *Config) (authenticator, error) {
	switch cfg.AuthMethod {
	case AuthMethodToken:
		return &tokenAuth{token: cfg.Token}, nil
	case AuthMethodAppRole:
		return &appRoleAuth{
			roleID:    cfg.AppRole.RoleID,
			secretID:  cfg.AppRole.SecretID,
			mountPath: orDefault(cfg.AppRole.MountPath, DefaultAppRoleMountPath),
		}, nil
	case AuthMethodKubernetes:
		return &kubernetesAuth{
			role:      cfg.Kubernetes.Role,
			mountPath: orDefault(cfg.Kubernetes.MountPath, DefaultKubernetesMountPath),
			tokenPath: orDefault(cfg.Kubernetes.TokenPath, DefaultServiceAccountTokenPath),
		}, nil
	default:
		return nil, NewConfigurationError("authMethod", fmt.Sprintf("unsupported auth method: %q", cfg.AuthMethod))
	}
}

func orDefault(value, def string) string {
	if value == "" {
		return def
	}
	return value
}

// tokenAuth uses a pre-issued token and checks it with a self lookup.
type tokenAuth struct {
	token string
}

func (a *tokenAuth) Name() string { return string(AuthMethodToken) }

func (a *tokenAuth) Authenticate(ctx context.Context, api *vaultapi.Client) (*vaultapi.Secret, error) {
	api.SetToken(a.token)

	lookup, err := api.Auth().Token().LookupSelfWithContext(ctx)
	if err != nil {
		return nil, err
	}

	secret := &vaultapi.Secret{
		Auth: &vaultapi.SecretAuth{ClientToken: a.token},
	}
	if lookup != nil && lookup.Data != nil {
		if ttl, ok := lookup.Data["ttl"].(json.Number); ok {
			if v, err := ttl.Int64(); err == nil {
				secret.Auth.LeaseDuration = int(v)
			}
		}
		if renewable, ok := lookup.Data["renewable"].(bool); ok {
			secret.Auth.Renewable = renewable
		}
	}
	return secret, nil
}

// appRoleAuth logs in with a RoleID and SecretID pair.
type appRoleAuth struct {
	roleID    string
	secretID  string
	mountPath string
}

func (a *appRoleAuth) Name() string { return string(AuthMethodAppRole) }

func (a *appRoleAuth) Authenticate(ctx context.Context, api *vaultapi.Client) (*vaultapi.Secret, error) {
	return api.Logical().WriteWithContext(ctx, loginPath(a.mountPath), map[string]interface{}{
		"role_id":   a.roleID,
		"secret_id": a.secretID,
	})
}

// kubernetesAuth logs in with the pod's ServiceAccount token.
type kubernetesAuth struct {
	role      string
	mountPath string
	tokenPath string
}

func (a *kubernetesAuth) Name() string { return string(AuthMethodKubernetes) }

func (a *kubernetesAuth) Authenticate(ctx context.Context, api *vaultapi.Client) (*vaultapi.Secret, error) {
	jwt, err := os.ReadFile(a.tokenPath)
	if err != nil {
		return nil, fmt.Errorf("failed to read service account token: %w", err)
	}

	return api.Logical().WriteWithContext(ctx, loginPath(a.mountPath), map[string]interface{}{
		"role": a.role,
		"jwt":  strings.TrimSpace(string(jwt)),
	})
}

func loginPath(mount string) string {
	return fmt.Sprintf("auth/%s/login", strings.Trim(mount, "/"))
}
