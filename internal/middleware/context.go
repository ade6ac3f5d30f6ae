package middleware

import (
	"context"

	"github.com/anabada/anabada/internal/models"
)

type principalContextKey struct{}

// WithPrincipal returns a copy of ctx carrying the authenticated principal.
func WithPrincipal(ctx context.Context, principal models.Principal) context.Context {
	return context.WithValue(ctx, principalContextKey{}, principal)
}

// PrincipalFromContext returns the principal set by RequireAuth. ok is false
// for anonymous requests.
func PrincipalFromContext(ctx context.Context) (models.Principal, bool) {
	principal, ok := ctx.Value(principalContextKey{}).(models.Principal)
	return principal, ok
}
