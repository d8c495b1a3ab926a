package main

import (
	"context"
	"net/http"
	"reflect"
	"sync"
	"sync/atomic"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/vyrodovalexey/idgate/internal/auth"
	"github.com/vyrodovalexey/idgate/internal/config"
	"github.com/vyrodovalexey/idgate/internal/observability"
	"github.com/vyrodovalexey/idgate/internal/secrets"
)

// gateHolder lets the pipeline keep one identity stage while reloads swap
// the gate behind it. In-flight requests finish on the gate they started
// with. mu serializes reloads and guards application.config.
type gateHolder struct {
	current atomic.Pointer[auth.Gate]
	mu      sync.Mutex
}

func newGateHolder(gate *auth.Gate) *gateHolder {
	h := &gateHolder{}
	h.current.Store(gate)
	return h
}

// Load returns the active gate.
func (h *gateHolder) Load() *auth.Gate {
	return h.current.Load()
}

// Store replaces the active gate.
func (h *gateHolder) Store(gate *auth.Gate) {
	h.current.Store(gate)
}

// Middleware dispatches every request to the gate active when it arrives.
func (h *gateHolder) Middleware(next http.Handler) http.Handler {
	return &gateDispatcher{holder: h, next: next}
}

// gateHandler is next wrapped by one gate.
type gateHandler struct {
	gate    *auth.Gate
	handler http.Handler
}

// gateDispatcher wraps next once per gate rather than once per request.
type gateDispatcher struct {
	holder *gateHolder
	next   http.Handler
	cached atomic.Pointer[gateHandler]
}

func (d *gateDispatcher) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	d.handlerFor(d.holder.Load()).handler.ServeHTTP(w, r)
}

func (d *gateDispatcher) handlerFor(gate *auth.Gate) *gateHandler {
	if c := d.cached.Load(); c != nil && c.gate == gate {
		return c
	}
	// Concurrent requests right after a swap may each wrap; the last
	// store wins and the others are dropped.
	c := &gateHandler{gate: gate, handler: gate.Middleware()(d.next)}
	d.cached.Store(c)
	return c
}

// reloadMetrics holds Prometheus metrics for configuration reloads.
type reloadMetrics struct {
	reloadTotal       *prometheus.CounterVec
	reloadDuration    prometheus.Histogram
	reloadLastSuccess prometheus.Gauge
	watcherStatus     prometheus.Gauge
}

func newReloadMetrics(namespace string, registerer prometheus.Registerer) *reloadMetrics {
	if namespace == "" {
		namespace = config.DefaultMetricsNamespace
	}

	rm := &reloadMetrics{}
	rm.reloadTotal = observability.RegisterCollector(registerer, prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "config_reload_total",
			Help:      "Total number of identity gate reloads",
		},
		[]string{"result"},
	))
	rm.reloadDuration = observability.RegisterCollector(registerer, prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "config_reload_duration_seconds",
			Help:      "Duration of identity gate reloads",
			Buckets:   []float64{.01, .05, .1, .25, .5, 1, 2.5, 5},
		},
	))
	rm.reloadLastSuccess = observability.RegisterCollector(registerer, prometheus.NewGauge(
		prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "config_reload_last_success_timestamp",
			Help:      "Timestamp of the last successful reload",
		},
	))
	rm.watcherStatus = observability.RegisterCollector(registerer, prometheus.NewGauge(
		prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "config_watcher_running",
			Help:      "Whether the config file watcher is running (1=running, 0=stopped)",
		},
	))
	return rm
}

// startConfigWatcher watches the configuration file and, for the file
// secret source, the secret file. A reload that moves the secret to another
// file adds that file to the watch.
func startConfigWatcher(
	ctx context.Context,
	app *application,
	configPath string,
	logger observability.Logger,
) *config.Watcher {
	var watcher *config.Watcher
	onChange := func(newCfg *config.GatewayConfig) {
		if err := app.reload(ctx, newCfg); err != nil {
			logger.Error("identity gate reload failed, keeping previous gate", observability.Error(err))
			return
		}
		if path := secretFile(newCfg); path != "" {
			if err := watcher.AddFile(path); err != nil {
				logger.Warn("failed to watch secret file", observability.Error(err))
			}
		}
	}

	watcher, err := config.NewWatcher(configPath, onChange,
		config.WithWatcherLogger(logger),
		config.WithExtraFiles(secretFile(app.currentConfig())),
		config.WithErrorCallback(func(error) {
			app.reloadMetrics.reloadTotal.WithLabelValues("error").Inc()
		}),
	)
	if err != nil {
		logger.Warn("failed to create config watcher", observability.Error(err))
		app.reloadMetrics.watcherStatus.Set(0)
		return nil
	}

	if err := watcher.Start(ctx); err != nil {
		logger.Warn("failed to start config watcher", observability.Error(err))
		_ = watcher.Stop()
		app.reloadMetrics.watcherStatus.Set(0)
		return nil
	}

	app.reloadMetrics.watcherStatus.Set(1)
	return watcher
}

// secretFile returns the signing secret path for the file source, or "".
func secretFile(cfg *config.GatewayConfig) string {
	if cfg.Auth.Secret.GetSource() != secrets.SourceFile {
		return ""
	}
	return cfg.Auth.Secret.File
}

// currentConfig returns the active configuration.
func (app *application) currentConfig() *config.GatewayConfig {
	app.gate.mu.Lock()
	defer app.gate.mu.Unlock()
	return app.config
}

// reload rebuilds the identity gate from newCfg and swaps it in. The
// previous gate stays active when the rebuild fails. Sections other than
// auth are bound at startup; changes to them are reported and ignored.
func (app *application) reload(ctx context.Context, newCfg *config.GatewayConfig) error {
	app.gate.mu.Lock()
	defer app.gate.mu.Unlock()

	start := time.Now()
	defer func() {
		app.reloadMetrics.reloadDuration.Observe(time.Since(start).Seconds())
	}()

	for _, section := range restartRequiredSections(app.config, newCfg) {
		app.logger.Warn("configuration change requires a restart",
			observability.String("section", section),
		)
	}

	gate, err := app.buildGate(ctx, newCfg)
	if err != nil {
		app.reloadMetrics.reloadTotal.WithLabelValues("error").Inc()
		return err
	}

	app.gate.Store(gate)
	app.config = withAuth(app.config, newCfg.Auth)

	app.reloadMetrics.reloadTotal.WithLabelValues("success").Inc()
	app.reloadMetrics.reloadLastSuccess.SetToCurrentTime()
	app.logger.Info("identity gate reloaded")
	return nil
}

// withAuth returns a copy of cfg carrying the auth section a.
func withAuth(cfg *config.GatewayConfig, a config.AuthConfig) *config.GatewayConfig {
	updated := *cfg
	updated.Auth = a
	return &updated
}

// restartRequiredSections lists the changed sections that are not
// hot-reloaded.
func restartRequiredSections(oldCfg, newCfg *config.GatewayConfig) []string {
	var changed []string
	if !reflect.DeepEqual(oldCfg.Listener, newCfg.Listener) {
		changed = append(changed, "listener")
	}
	if !reflect.DeepEqual(oldCfg.Upstream, newCfg.Upstream) {
		changed = append(changed, "upstream")
	}
	if !reflect.DeepEqual(oldCfg.Observability, newCfg.Observability) {
		changed = append(changed, "observability")
	}
	if !reflect.DeepEqual(oldCfg.Vault, newCfg.Vault) {
		changed = append(changed, "vault")
	}
	return changed
}
