// Package observability provides logging, metrics and tracing for the
// identity gateway.
//
// Logging is structured via zap behind the Logger interface so packages
// can take a NopLogger in tests:
//
//	logger, err := observability.NewLogger(observability.LogConfig{
//	    Level:  "info",
//	    Format: "json",
//	})
//	if err != nil {
//	    log.Fatal(err)
//	}
//	defer logger.Sync()
//
// Tracing uses OpenTelemetry with an OTLP gRPC exporter when an endpoint
// is configured. A disabled tracer falls back to the global provider.
// TracingMiddleware opens the server span that the identity gate's span
// nests under.
//
// Metrics owns the process registry; other packages register their
// collectors on it through RegisterCollector.
package observability
