// Package jwt verifies HMAC-signed session tokens for the identity gateway.
//
// A SigningKey is derived once from a base64 secret. The Validator checks
// the token structure, the header algorithm against an allow-list of HS*
// algorithms the key is long enough for, the signature, temporal claims
// and the configured issuer and audience, and finally projects the claims
// the gateway propagates:
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
//	claims, err := validator.Validate(ctx, tokenString)
//	if err != nil {
//	    reason := jwt.Reason(err) // "expired", "invalid_signature", ...
//	}
//
// Failures wrap the sentinel errors in errors.go so callers classify them
// with errors.Is or Reason.
package jwt
