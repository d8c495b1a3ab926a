// Package secrets resolves the base64 signing secret of the identity gate.
//
// The secret comes from exactly one source: an environment variable
// (JWT_SECRET by default), a file, an inline configuration value or a
// Vault KV entry. It is resolved once at startup and handed to the key
// constructor in internal/auth/jwt. The secret is never logged.
package secrets
