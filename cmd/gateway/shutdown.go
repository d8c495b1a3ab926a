package main

import (
	"context"
	"errors"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/vyrodovalexey/idgate/internal/config"
	"github.com/vyrodovalexey/idgate/internal/observability"
)

// runGateway starts the listeners and blocks until a shutdown signal.
func runGateway(app *application, flags cliFlags, logger observability.Logger) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	app.server = createServer(app.config.Listener, app.handler)
	ln, err := net.Listen("tcp", app.server.Addr)
	if err != nil {
		fatalWithSync(logger, "failed to listen", observability.Error(err),
			observability.String("address", app.server.Addr))
		return
	}
	logger.Info("gateway listening", observability.String("address", ln.Addr().String()))
	go serve(app.server, ln, logger)

	startMetricsServerIfEnabled(app, logger)

	var watcher *config.Watcher
	if flags.watch {
		watcher = startConfigWatcher(ctx, app, flags.configPath, logger)
	}

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	sig := <-sigCh
	logger.Info("received shutdown signal", observability.String("signal", sig.String()))

	shutdown(app, watcher, logger)
}

// createServer builds the main listener's server.
func createServer(cfg config.ListenerConfig, handler http.Handler) *http.Server {
	return &http.Server{
		Addr:              cfg.Address,
		Handler:           handler,
		ReadTimeout:       cfg.ReadTimeout.Duration(),
		ReadHeaderTimeout: cfg.ReadHeaderTimeout.Duration(),
		WriteTimeout:      cfg.WriteTimeout.Duration(),
		IdleTimeout:       cfg.IdleTimeout.Duration(),
	}
}

// shutdownTimeout bounds the whole drain.
func shutdownTimeout(cfg *config.GatewayConfig) time.Duration {
	if timeout := cfg.Listener.ShutdownTimeout.Duration(); timeout > 0 {
		return timeout
	}
	return config.DefaultShutdownTimeout
}

func serve(server *http.Server, ln net.Listener, logger observability.Logger) {
	if err := server.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
		logger.Error("gateway server error", observability.Error(err))
	}
}

// shutdown drains the gateway: readiness flips first so load balancers
// stop routing, then listeners close, then the Vault client and tracer.
func shutdown(app *application, watcher *config.Watcher, logger observability.Logger) {
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout(app.currentConfig()))
	defer cancel()

	app.healthChecker.SetDraining(true)

	if watcher != nil {
		_ = watcher.Stop()
		app.reloadMetrics.watcherStatus.Set(0)
	}

	if app.server != nil {
		if err := app.server.Shutdown(shutdownCtx); err != nil {
			logger.Error("failed to stop gateway gracefully", observability.Error(err))
		}
	}

	if app.metricsServer != nil {
		logger.Info("stopping metrics server")
		if err := app.metricsServer.Shutdown(shutdownCtx); err != nil {
			logger.Error("failed to stop metrics server gracefully", observability.Error(err))
		}
	}

	if app.vaultClient != nil {
		logger.Info("closing vault client")
		if err := app.vaultClient.Close(); err != nil {
			logger.Error("failed to close vault client", observability.Error(err))
		}
	}

	if err := app.tracer.Shutdown(shutdownCtx); err != nil {
		logger.Error("failed to shutdown tracer", observability.Error(err))
	}

	logger.Info("gateway stopped")
}
