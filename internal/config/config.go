package config

import (
	"time"

	"github.com/vyrodovalexey/idgate/internal/auth"
	"github.com/vyrodovalexey/idgate/internal/auth/jwt"
	"github.com/vyrodovalexey/idgate/internal/secrets"
	"github.com/vyrodovalexey/idgate/internal/vault"
)

// Default values.
const (
	DefaultListenAddress     = ":8080"
	DefaultMetricsAddress    = ":9090"
	DefaultMetricsPath       = "/metrics"
	DefaultMetricsNamespace  = "gateway"
	DefaultServiceName       = "idgate"
	DefaultReadHeaderTimeout = 10 * time.Second
	DefaultIdleTimeout       = 120 * time.Second
	DefaultShutdownTimeout   = 30 * time.Second
	DefaultUpstreamTimeout   = 30 * time.Second
	DefaultBreakerThreshold  = 5
	DefaultBreakerTimeout    = 30 * time.Second
	DefaultLogLevel          = "info"
	DefaultLogFormat         = "json"
)

// GatewayConfig is the complete gateway configuration.
type GatewayConfig struct {
	Listener      ListenerConfig      `yaml:"listener" json:"listener"`
	Upstream      UpstreamConfig      `yaml:"upstream" json:"upstream"`
	Auth          AuthConfig          `yaml:"auth" json:"auth"`
	Observability ObservabilityConfig `yaml:"observability" json:"observability"`
	Vault         *vault.Config       `yaml:"vault,omitempty" json:"vault,omitempty"`
}

// ListenerConfig configures the public HTTP listener.
type ListenerConfig struct {
	Address           string   `yaml:"address" json:"address"`
	ReadTimeout       Duration `yaml:"readTimeout,omitempty" json:"readTimeout,omitempty"`
	ReadHeaderTimeout Duration `yaml:"readHeaderTimeout,omitempty" json:"readHeaderTimeout,omitempty"`
	WriteTimeout      Duration `yaml:"writeTimeout,omitempty" json:"writeTimeout,omitempty"`
	IdleTimeout       Duration `yaml:"idleTimeout,omitempty" json:"idleTimeout,omitempty"`

	// ShutdownTimeout bounds the graceful drain on SIGTERM.
	ShutdownTimeout Duration `yaml:"shutdownTimeout,omitempty" json:"shutdownTimeout,omitempty"`
}

// UpstreamConfig configures the single upstream the gateway proxies to.
type UpstreamConfig struct {
	URL string `yaml:"url" json:"url"`

	// Timeout bounds a whole upstream exchange. Zero disables it.
	Timeout Duration `yaml:"timeout,omitempty" json:"timeout,omitempty"`

	// FlushInterval is passed to the reverse proxy. Negative flushes
	// after every write.
	FlushInterval Duration `yaml:"flushInterval,omitempty" json:"flushInterval,omitempty"`

	CircuitBreaker CircuitBreakerConfig `yaml:"circuitBreaker,omitempty" json:"circuitBreaker,omitempty"`
}

// CircuitBreakerConfig configures the breaker in front of the upstream.
// Upstream 5xx responses count as failures; the identity gate never does.
type CircuitBreakerConfig struct {
	Enabled bool `yaml:"enabled" json:"enabled"`

	// Threshold is the minimum number of requests in a window before the
	// failure ratio can open the breaker. It also caps half-open trial requests.
	Threshold int `yaml:"threshold,omitempty" json:"threshold,omitempty"`

	// Timeout is both the closed-state counting window and how long the
	// breaker stays open.
	Timeout Duration `yaml:"timeout,omitempty" json:"timeout,omitempty"`
}

// AuthConfig configures the identity gate.
type AuthConfig struct {
	auth.Config `yaml:",inline"`

	// Secret selects where the base64 signing secret comes from.
	Secret secrets.Config `yaml:"secret" json:"secret"`

	// JWT configures token verification.
	JWT jwt.Config `yaml:"jwt" json:"jwt"`
}

// ObservabilityConfig configures logging, tracing and metrics.
type ObservabilityConfig struct {
	Logging LoggingConfig `yaml:"logging" json:"logging"`
	Tracing TracingConfig `yaml:"tracing" json:"tracing"`
	Metrics MetricsConfig `yaml:"metrics" json:"metrics"`
}

// LoggingConfig configures the zap logger.
type LoggingConfig struct {
	Level  string `yaml:"level" json:"level"`
	Format string `yaml:"format" json:"format"`
}

// TracingConfig configures OpenTelemetry tracing.
type TracingConfig struct {
	Enabled      bool    `yaml:"enabled" json:"enabled"`
	ServiceName  string  `yaml:"serviceName,omitempty" json:"serviceName,omitempty"`
	OTLPEndpoint string  `yaml:"otlpEndpoint,omitempty" json:"otlpEndpoint,omitempty"`
	SamplingRate float64 `yaml:"samplingRate,omitempty" json:"samplingRate,omitempty"`
}

// MetricsConfig configures the Prometheus listener.
type MetricsConfig struct {
	Enabled   bool   `yaml:"enabled" json:"enabled"`
	Address   string `yaml:"address,omitempty" json:"address,omitempty"`
	Path      string `yaml:"path,omitempty" json:"path,omitempty"`
	Namespace string `yaml:"namespace,omitempty" json:"namespace,omitempty"`
}

// DefaultConfig returns the configuration used for fields a file leaves out.
func DefaultConfig() *GatewayConfig {
	return &GatewayConfig{
		Listener: ListenerConfig{
			Address:           DefaultListenAddress,
			ReadHeaderTimeout: Duration(DefaultReadHeaderTimeout),
			IdleTimeout:       Duration(DefaultIdleTimeout),
			ShutdownTimeout:   Duration(DefaultShutdownTimeout),
		},
		Upstream: UpstreamConfig{
			Timeout:        Duration(DefaultUpstreamTimeout),
			CircuitBreaker: CircuitBreakerConfig{
				Threshold: DefaultBreakerThreshold,
				Timeout:   Duration(DefaultBreakerTimeout),
			},
		},
		Auth: AuthConfig{
			Config: *auth.DefaultConfig(),
			Secret: *secrets.DefaultConfig(),
			JWT:    *jwt.DefaultConfig(),
		},
		Observability: ObservabilityConfig{
			Logging: LoggingConfig{
				Level:  DefaultLogLevel,
				Format: DefaultLogFormat,
			},
			Tracing: TracingConfig{
				ServiceName:  DefaultServiceName,
				SamplingRate: 1.0,
			},
			Metrics: MetricsConfig{
				Enabled:   true,
				Address:   DefaultMetricsAddress,
				Path:      DefaultMetricsPath,
				Namespace: DefaultMetricsNamespace,
			},
		},
	}
}

// VaultEnabled reports whether a Vault client must be built.
func (c *GatewayConfig) VaultEnabled() bool {
	return c.Vault != nil && c.Vault.Enabled
}
