package auth

import (
	"context"
	"errors"

	"github.com/vyrodovalexey/idgate/internal/auth/jwt"
)

// Identity is the verified identity propagated downstream. Optional fields
// are empty when the token did not carry the claim.
type Identity struct {
	UserID   string `json:"userId"`
	Role     string `json:"role,omitempty"`
	Email    string `json:"email,omitempty"`
	FullName string `json:"fullName,omitempty"`
}

// IdentityFromClaims projects verified claims onto an Identity.
func IdentityFromClaims(claims *jwt.Claims) *Identity {
	if claims == nil {
		return nil
	}
	return &Identity{
		UserID:   claims.Subject,
		Role:     claims.Role,
		Email:    claims.Email,
		FullName: claims.FullName,
	}
}

// Context key type for identity.
type identityContextKey struct{}

// ContextWithIdentity adds an identity to the context.
func ContextWithIdentity(ctx context.Context, identity *Identity) context.Context {
	return context.WithValue(ctx, identityContextKey{}, identity)
}

// IdentityFromContext extracts the identity from the context.
func IdentityFromContext(ctx context.Context) (*Identity, bool) {
	identity, ok := ctx.Value(identityContextKey{}).(*Identity)
	return identity, ok && identity != nil
}

// ErrIdentityNotFound is returned when identity is not found in context.
var ErrIdentityNotFound = errors.New("identity not found in context")

// IdentityFromContextOrError extracts the identity from the context or
// returns ErrIdentityNotFound.
func IdentityFromContextOrError(ctx context.Context) (*Identity, error) {
	identity, ok := IdentityFromContext(ctx)
	if !ok {
		return nil, ErrIdentityNotFound
	}
	return identity, nil
}
