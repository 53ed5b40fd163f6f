package shared

import (
	"context"
	"net/http"
)

// Identity is the authenticated principal as reported by the auth provider.
type Identity struct {
	UserID string `json:"user_id"`
	Email  string `json:"email,omitempty"`
}

// IdentityResolver establishes who is calling. Implementations return
// ErrUnauthenticated (possibly wrapped) when no identity can be established.
type IdentityResolver interface {
	Resolve(ctx context.Context, r *http.Request) (Identity, error)
}

// IdentityResolverFunc adapts a function to IdentityResolver.
type IdentityResolverFunc func(ctx context.Context, r *http.Request) (Identity, error)

// Resolve calls f.
func (f IdentityResolverFunc) Resolve(ctx context.Context, r *http.Request) (Identity, error) {
	return f(ctx, r)
}
