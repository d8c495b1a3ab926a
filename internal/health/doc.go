// Package health serves the liveness and readiness probes of the gateway.
//
// Liveness only reports that the process serves HTTP. Readiness runs every
// registered check (for example "signing key loaded") and answers 503 when
// one fails or while the gateway drains on shutdown. Both endpoints sit
// outside the identity gate.
package health
