// Package middleware provides the HTTP pipeline of the identity gateway.
//
// Stages are plain func(http.Handler) http.Handler values registered with
// an order. Lower orders run first, so the identity gate (order -1) runs
// ahead of every stage that reads the identity headers:
//
//	chain, err := middleware.NewChain(
//	    middleware.Stage{Name: "recovery", Order: middleware.OrderRecovery, Middleware: middleware.Recovery(logger, nil)},
//	    middleware.Stage{Name: "identity", Order: middleware.OrderIdentity, ProvidesIdentity: true, Middleware: gate.Middleware()},
//	    middleware.Stage{Name: "logging", Order: middleware.OrderLogging, ConsumesIdentity: true, Middleware: middleware.Logging(logger)},
//	)
//	if err != nil {
//	    log.Fatal(err)
//	}
//	handler := chain.Then(proxy)
package middleware
