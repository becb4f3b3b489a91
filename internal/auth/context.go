package auth

import (
	"context"
	"errors"
)

// Claims are the identity attributes asserted by the provider in the ID
// token. The application only relies on these two.
type Claims struct {
	PreferredUsername string `json:"preferred_username"`
	Name              string `json:"name"`
}

type contextKey string

const claimsKey = contextKey("claims")

// WithClaims stores the current user's claims in the context.
func WithClaims(ctx context.Context, claims *Claims) context.Context {
	return context.WithValue(ctx, claimsKey, claims)
}

// ClaimsFromContext extracts the current user's claims from the context.
func ClaimsFromContext(ctx context.Context) (*Claims, error) {
	claims, ok := ctx.Value(claimsKey).(*Claims)
	if !ok || claims == nil {
		return nil, errors.New("claims not found in context")
	}
	return claims, nil
}
