// Package auth provides the identity gate of the gateway.
//
// The gate reads a session token from a cookie, verifies it with the
// jwt subpackage and forwards the request with trusted identity headers:
//
//	X-User-Id        subject
//	X-User-Role      role claim
//	X-User-Email     email claim
//	X-User-FullName  fullName claim
//
// Client-supplied values under those names never reach the upstream next
// to a verified identity. A request without a usable token is forwarded
// unauthenticated unless the gate is configured to fail closed.
//
// # Usage
//
//	key, err := jwt.NewSigningKey(os.Getenv("JWT_SECRET"))
//	if err != nil {
//	    log.Fatal(err)
//	}
//
//	validator, err := jwt.NewValidator(jwt.DefaultConfig(), key)
//	if err != nil {
//	    log.Fatal(err)
//	}
//
//	gate, err := auth.NewGate(auth.DefaultConfig(), validator,
//	    auth.WithGateLogger(logger),
//	)
//	if err != nil {
//	    log.Fatal(err)
//	}
//
//	handler := gate.Middleware()(upstream)
//
// The same gate is available for gin engines through GinMiddleware.
package auth
