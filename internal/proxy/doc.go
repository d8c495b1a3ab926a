// Package proxy forwards gated requests to the upstream service.
//
// The proxy sees the request exactly as the identity gate forwarded it,
// identity headers included. Hop-by-hop headers are dropped and the
// X-Forwarded-* headers are rewritten from the inbound connection:
//
//	p, err := proxy.NewReverseProxy("http://orders.internal:8080",
//	    proxy.WithProxyLogger(logger),
//	    proxy.WithTimeout(30*time.Second),
//	)
//	if err != nil {
//	    log.Fatal(err)
//	}
package proxy
