package proxy

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httputil"
	"net/url"
	"time"

	"github.com/vyrodovalexey/idgate/internal/observability"
)

// ReverseProxy forwards requests to a single upstream.
type ReverseProxy struct {
	target        *url.URL
	proxy         *httputil.ReverseProxy
	logger        observability.Logger
	metrics       *Metrics
	transport     http.RoundTripper
	flushInterval time.Duration
	timeout       time.Duration
}

// ProxyOption is a functional option for configuring the proxy.
type ProxyOption func(*ReverseProxy)

// WithProxyLogger sets the logger for the proxy.
func WithProxyLogger(logger observability.Logger) ProxyOption {
	return func(p *ReverseProxy) {
		p.logger = logger
	}
}

// WithProxyMetrics sets the metrics for the proxy.
func WithProxyMetrics(metrics *Metrics) ProxyOption {
	return func(p *ReverseProxy) {
		p.metrics = metrics
	}
}

// WithTransport sets the transport for the proxy.
func WithTransport(transport http.RoundTripper) ProxyOption {
	return func(p *ReverseProxy) {
		p.transport = transport
	}
}

// WithFlushInterval sets the flush interval for streaming responses.
func WithFlushInterval(interval time.Duration) ProxyOption {
	return func(p *ReverseProxy) {
		p.flushInterval = interval
	}
}

// WithTimeout bounds each upstream round trip. Zero disables the bound.
func WithTimeout(timeout time.Duration) ProxyOption {
	return func(p *ReverseProxy) {
		p.timeout = timeout
	}
}

// NewReverseProxy creates a reverse proxy for upstream, an absolute
// http or https URL. A path on upstream is prefixed to every request path.
func NewReverseProxy(upstream string, opts ...ProxyOption) (*ReverseProxy, error) {
	target, err := url.Parse(upstream)
	if err != nil {
		return nil, NewProxyError("parse_target", upstream, "cannot parse upstream", errors.Join(ErrInvalidTargetURL, err))
	}
	if (target.Scheme != "http" && target.Scheme != "https") || target.Host == "" {
		return nil, NewProxyError("parse_target", upstream, "upstream must be an absolute http(s) URL", ErrInvalidTargetURL)
	}

	p := &ReverseProxy{
		target:        target,
		logger:        observability.NopLogger(),
		flushInterval: -1, // Immediate flush
	}

	for _, opt := range opts {
		opt(p)
	}

	if p.metrics == nil {
		p.metrics = NewMetrics("gateway", nil)
	}

	p.proxy = &httputil.ReverseProxy{
		Rewrite:       p.rewrite,
		Transport:     p.transport,
		FlushInterval: p.flushInterval,
		ErrorHandler:  p.errorHandler,
	}

	return p, nil
}

// rewrite points the outbound request at the upstream. Hop-by-hop and
// inbound X-Forwarded-* headers are already removed from pr.Out here.
// The current span context is forwarded so upstream spans join the trace.
func (p *ReverseProxy) rewrite(pr *httputil.ProxyRequest) {
	pr.SetURL(p.target)
	pr.SetXForwarded()
	observability.InjectTraceContext(pr.In.Context(), pr.Out.Header)
}

// ServeHTTP implements http.Handler.
func (p *ReverseProxy) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if p.timeout > 0 {
		ctx, cancel := context.WithTimeout(r.Context(), p.timeout)
		defer cancel()
		r = r.WithContext(ctx)
	}

	p.proxy.ServeHTTP(w, r)
}

// Target returns the upstream URL.
func (p *ReverseProxy) Target() string {
	return p.target.String()
}

// errorHandler answers failed round trips with 502, or 504 on timeout.
func (p *ReverseProxy) errorHandler(w http.ResponseWriter, r *http.Request, err error) {
	status := http.StatusBadGateway
	body := `{"error":"bad gateway","message":"failed to proxy request"}`
	kind := "unavailable"
	cause := ErrUpstreamUnavailable

	if errors.Is(err, context.DeadlineExceeded) {
		status = http.StatusGatewayTimeout
		body = `{"error":"gateway timeout","message":"upstream did not respond in time"}`
		kind = "timeout"
		cause = ErrUpstreamTimeout
	} else if errors.Is(err, context.Canceled) {
		kind = "canceled"
	}

	p.metrics.RecordUpstreamError(kind)
	p.logger.WithContext(r.Context()).Error("proxy error",
		observability.String("path", r.URL.Path),
		observability.String("method", r.Method),
		observability.Error(NewProxyError("round_trip", p.target.String(), "upstream request failed", errors.Join(cause, err))),
	)

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_, _ = io.WriteString(w, body)
}
