package main

import (
	"context"
	"fmt"
	"net/http"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/vyrodovalexey/idgate/internal/auth"
	"github.com/vyrodovalexey/idgate/internal/auth/jwt"
	"github.com/vyrodovalexey/idgate/internal/config"
	"github.com/vyrodovalexey/idgate/internal/health"
	"github.com/vyrodovalexey/idgate/internal/middleware"
	"github.com/vyrodovalexey/idgate/internal/observability"
	"github.com/vyrodovalexey/idgate/internal/proxy"
	"github.com/vyrodovalexey/idgate/internal/secrets"
	"github.com/vyrodovalexey/idgate/internal/vault"
)

// Health endpoints served on the main listener, outside the gate.
const (
	livenessPath  = "/healthz"
	readinessPath = "/readyz"
)

// application holds all application components.
type application struct {
	config        *config.GatewayConfig
	logger        observability.Logger
	metrics       *observability.Metrics
	components    *componentMetrics
	reloadMetrics *reloadMetrics
	tracer        *observability.Tracer
	vaultClient   *vault.Client
	healthChecker *health.Checker
	gate          *gateHolder
	handler       http.Handler
	server        *http.Server
	metricsServer *http.Server
}

// componentMetrics groups the per-package collectors, all registered with
// the gateway registry. They are built once so gate rebuilds on reload keep
// reporting into the same series.
type componentMetrics struct {
	jwt        *jwt.Metrics
	auth       *auth.Metrics
	secrets    *secrets.Metrics
	vault      *vault.Metrics
	proxy      *proxy.Metrics
	middleware *middleware.Metrics
	health     *health.Metrics
}

func newComponentMetrics(namespace string, registerer prometheus.Registerer) *componentMetrics {
	cm := &componentMetrics{
		jwt:        jwt.NewMetrics(namespace, registerer),
		auth:       auth.NewMetrics(namespace, registerer),
		secrets:    secrets.NewMetrics(namespace, registerer),
		vault:      vault.NewMetrics(namespace, registerer),
		proxy:      proxy.NewMetrics(namespace, registerer),
		middleware: middleware.NewMetrics(namespace, registerer),
		health:     health.NewMetrics(namespace, registerer),
	}
	cm.jwt.Init()
	cm.auth.Init()
	cm.health.Init()
	return cm
}

// newApplication builds every component from cfg. Secret resolution,
// including the Vault round trip, happens here and never on the request
// path.
func newApplication(
	ctx context.Context,
	cfg *config.GatewayConfig,
	logger observability.Logger,
) (*application, error) {
	metrics := observability.NewMetrics(cfg.Observability.Metrics.Namespace)
	metrics.SetBuildInfo(version, gitCommit, buildTime)

	app := &application{
		config:  cfg,
		logger:  logger,
		metrics: metrics,
		components: newComponentMetrics(
			cfg.Observability.Metrics.Namespace, metrics.Registry(),
		),
		reloadMetrics: newReloadMetrics(cfg.Observability.Metrics.Namespace, metrics.Registry()),
	}

	tracer, err := observability.NewTracer(observability.TracerConfig{
		ServiceName:  cfg.Observability.Tracing.ServiceName,
		OTLPEndpoint: cfg.Observability.Tracing.OTLPEndpoint,
		SamplingRate: cfg.Observability.Tracing.SamplingRate,
		Enabled:      cfg.Observability.Tracing.Enabled,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to initialize tracer: %w", err)
	}
	app.tracer = tracer

	if cfg.VaultEnabled() {
		if err := app.initVault(ctx); err != nil {
			return nil, err
		}
	}

	gate, err := app.buildGate(ctx, cfg)
	if err != nil {
		return nil, err
	}
	app.gate = newGateHolder(gate)

	app.healthChecker = app.initHealthChecker()

	handler, err := app.buildHandler()
	if err != nil {
		return nil, err
	}
	app.handler = handler

	return app, nil
}

// initVault creates and authenticates the Vault client.
func (app *application) initVault(ctx context.Context) error {
	client, err := vault.New(app.config.Vault, app.logger, vault.WithMetrics(app.components.vault))
	if err != nil {
		return fmt.Errorf("failed to create vault client: %w", err)
	}
	if err := client.Authenticate(ctx); err != nil {
		_ = client.Close()
		return fmt.Errorf("failed to authenticate with vault: %w", err)
	}
	app.vaultClient = client
	return nil
}

// buildGate resolves the signing secret and assembles key, validator and
// gate for cfg.
func (app *application) buildGate(ctx context.Context, cfg *config.GatewayConfig) (*auth.Gate, error) {
	var kv secrets.KVReader
	if app.vaultClient != nil {
		kv = app.vaultClient
	}

	provider, err := secrets.NewProvider(&cfg.Auth.Secret, kv)
	if err != nil {
		return nil, fmt.Errorf("failed to create secret provider: %w", err)
	}

	secret, err := secrets.Resolve(ctx, provider, app.logger, app.components.secrets)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve signing secret: %w", err)
	}

	key, err := jwt.NewSigningKey(secret)
	if err != nil {
		return nil, fmt.Errorf("failed to load signing key: %w", err)
	}

	validator, err := jwt.NewValidator(&cfg.Auth.JWT, key,
		jwt.WithValidatorLogger(app.logger),
		jwt.WithValidatorMetrics(app.components.jwt),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create token validator: %w", err)
	}

	gate, err := auth.NewGate(&cfg.Auth.Config, validator,
		auth.WithGateLogger(app.logger),
		auth.WithGateMetrics(app.components.auth),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create identity gate: %w", err)
	}

	app.logger.Info("identity gate ready",
		observability.String("cookie", cfg.Auth.GetCookieName()),
		observability.String("failure_policy", string(cfg.Auth.GetFailurePolicy())),
		observability.Int("key_bits", key.Len()*8),
	)

	return gate, nil
}

// initHealthChecker registers the readiness checks.
func (app *application) initHealthChecker() *health.Checker {
	checker := health.NewChecker(version, health.WithMetrics(app.components.health))

	checker.RegisterCheck("signing_key", func(_ context.Context) error {
		if app.gate.Load() == nil {
			return fmt.Errorf("identity gate is not loaded")
		}
		return nil
	})

	if app.vaultClient != nil {
		checker.RegisterCheck("vault", func(ctx context.Context) error {
			status, err := app.vaultClient.Health(ctx)
			if err != nil {
				return err
			}
			if status.Sealed {
				return fmt.Errorf("vault is sealed")
			}
			return nil
		})
	}

	return checker
}

// buildHandler assembles the request pipeline in front of the reverse
// proxy and mounts the health endpoints beside it.
func (app *application) buildHandler() (http.Handler, error) {
	upstream := app.config.Upstream

	rp, err := proxy.NewReverseProxy(upstream.URL,
		proxy.WithProxyLogger(app.logger),
		proxy.WithProxyMetrics(app.components.proxy),
		proxy.WithTimeout(upstream.Timeout.Duration()),
		proxy.WithFlushInterval(upstream.FlushInterval.Duration()),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create reverse proxy: %w", err)
	}

	chain, err := app.buildChain()
	if err != nil {
		return nil, err
	}

	app.logger.Info("request pipeline built",
		observability.Any("stages", chain.Names()),
		observability.String("upstream", rp.Target()),
	)

	mux := http.NewServeMux()
	mux.Handle(livenessPath, app.healthChecker.LivenessHandler())
	mux.Handle(readinessPath, app.healthChecker.ReadinessHandler())
	mux.Handle("/", chain.Then(rp))

	return mux, nil
}

// buildChain orders the stages. Request logging consumes the identity and
// must therefore follow the gate.
func (app *application) buildChain() (*middleware.Chain, error) {
	stages := []middleware.Stage{
		{
			Name:       "recovery",
			Order:      middleware.OrderRecovery,
			Middleware: middleware.Recovery(app.logger, app.components.middleware),
		},
		{
			Name:       "request-id",
			Order:      middleware.OrderRequestID,
			Middleware: middleware.RequestID(),
		},
		{
			Name:       "tracing",
			Order:      middleware.OrderTracing,
			Middleware: observability.TracingMiddleware(app.tracer),
		},
		{
			Name:             "identity",
			Order:            middleware.OrderIdentity,
			ProvidesIdentity: true,
			Middleware:       app.gate.Middleware,
		},
		{
			Name:             "logging",
			Order:            middleware.OrderLogging,
			ConsumesIdentity: true,
			Middleware:       middleware.Logging(app.logger),
		},
	}

	if app.config.Observability.Metrics.Enabled {
		stages = append(stages, middleware.Stage{
			Name:       "metrics",
			Order:      middleware.OrderMetrics,
			Middleware: observability.MetricsMiddleware(app.metrics),
		})
	}

	if cb := app.config.Upstream.CircuitBreaker; cb.Enabled {
		stages = append(stages, middleware.Stage{
			Name:  "circuit-breaker",
			Order: middleware.OrderCircuitBreaker,
			Middleware: middleware.CircuitBreakerFromConfig(&cb,
				middleware.WithCircuitBreakerLogger(app.logger),
				middleware.WithCircuitBreakerMetrics(app.components.middleware),
			),
		})
	}

	chain, err := middleware.NewChain(stages...)
	if err != nil {
		return nil, fmt.Errorf("failed to build request pipeline: %w", err)
	}
	return chain, nil
}
