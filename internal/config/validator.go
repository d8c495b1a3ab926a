package config

import (
	"fmt"
	"net/url"
	"strings"

	"go.uber.org/zap/zapcore"

	"github.com/vyrodovalexey/idgate/internal/secrets"
)

// ValidationError is one invalid configuration field.
type ValidationError struct {
	Path    string
	Message string
}

// Error implements the error interface.
func (e *ValidationError) Error() string {
	if e.Path != "" {
		return fmt.Sprintf("%s: %s", e.Path, e.Message)
	}
	return e.Message
}

// ValidationErrors collects every problem found in one pass.
type ValidationErrors []ValidationError

// Error implements the error interface.
func (e ValidationErrors) Error() string {
	switch len(e) {
	case 0:
		return "no validation errors"
	case 1:
		return e[0].Error()
	}

	var sb strings.Builder
	fmt.Fprintf(&sb, "%d validation errors:\n", len(e))
	for i := range e {
		fmt.Fprintf(&sb, "  %d. %s\n", i+1, e[i].Error())
	}
	return sb.String()
}

// ValidateConfig validates a gateway configuration.
func ValidateConfig(cfg *GatewayConfig) error {
	v := &validator{}
	return v.validate(cfg)
}

type validator struct {
	errors ValidationErrors
}

func (v *validator) add(path, format string, args ...interface{}) {
	v.errors = append(v.errors, ValidationError{Path: path, Message: fmt.Sprintf(format, args...)})
}

func (v *validator) addErr(path string, err error) {
	if err != nil {
		v.add(path, "%v", err)
	}
}

func (v *validator) validate(cfg *GatewayConfig) error {
	if cfg == nil {
		v.add("", "configuration is nil")
		return v.errors
	}

	v.validateListener(&cfg.Listener)
	v.validateUpstream(&cfg.Upstream)
	v.validateAuth(cfg)
	v.validateObservability(&cfg.Observability)
	if cfg.Vault != nil {
		v.addErr("vault", cfg.Vault.Validate())
	}

	if len(v.errors) > 0 {
		return v.errors
	}
	return nil
}

func (v *validator) validateListener(l *ListenerConfig) {
	if l.Address == "" {
		v.add("listener.address", "address is required")
	}
	for path, d := range map[string]Duration{
		"listener.readTimeout":       l.ReadTimeout,
		"listener.readHeaderTimeout": l.ReadHeaderTimeout,
		"listener.writeTimeout":      l.WriteTimeout,
		"listener.idleTimeout":       l.IdleTimeout,
		"listener.shutdownTimeout":   l.ShutdownTimeout,
	} {
		if d < 0 {
			v.add(path, "must not be negative")
		}
	}
}

func (v *validator) validateUpstream(u *UpstreamConfig) {
	if u.URL == "" {
		v.add("upstream.url", "upstream URL is required")
	} else if parsed, err := url.Parse(u.URL); err != nil {
		v.add("upstream.url", "invalid URL: %v", err)
	} else if (parsed.Scheme != "http" && parsed.Scheme != "https") || parsed.Host == "" {
		v.add("upstream.url", "must be an absolute http or https URL")
	}
	if u.Timeout < 0 {
		v.add("upstream.timeout", "must not be negative")
	}
	if cb := u.CircuitBreaker; cb.Enabled {
		if cb.Threshold <= 0 {
			v.add("upstream.circuitBreaker.threshold", "must be positive when the circuit breaker is enabled")
		}
		if cb.Timeout <= 0 {
			v.add("upstream.circuitBreaker.timeout", "must be positive when the circuit breaker is enabled")
		}
	}
}

func (v *validator) validateAuth(cfg *GatewayConfig) {
	a := &cfg.Auth
	v.addErr("auth", a.Config.Validate())
	v.addErr("auth.secret", a.Secret.Validate())
	v.addErr("auth.jwt", a.JWT.Validate())

	if a.Secret.GetSource() == secrets.SourceVault && !cfg.VaultEnabled() {
		v.add("auth.secret.source", "vault source requires vault.enabled")
	}
	if strings.ContainsAny(a.GetCookieName(), " ;,=\t") {
		v.add("auth.cookieName", "invalid cookie name %q", a.CookieName)
	}
}

func (v *validator) validateObservability(o *ObservabilityConfig) {
	if _, err := zapcore.ParseLevel(o.Logging.Level); err != nil {
		v.add("observability.logging.level", "invalid level %q", o.Logging.Level)
	}
	switch o.Logging.Format {
	case "json", "console":
	default:
		v.add("observability.logging.format", "must be json or console, got %q", o.Logging.Format)
	}

	if o.Tracing.SamplingRate < 0 || o.Tracing.SamplingRate > 1 {
		v.add("observability.tracing.samplingRate", "must be between 0 and 1")
	}

	if o.Metrics.Enabled {
		if o.Metrics.Address == "" {
			v.add("observability.metrics.address", "address is required when metrics are enabled")
		}
		if !strings.HasPrefix(o.Metrics.Path, "/") {
			v.add("observability.metrics.path", "must start with /")
		}
	}
}
