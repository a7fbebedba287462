package auth

import (
	"context"
	"time"
)

// Principal is the authenticated caller behind a session token.
type Principal struct {
	UserID      string
	Email       string
	DisplayName string
	TokenID     string
	ExpiresAt   time.Time
}

type principalKey struct{}

// WithPrincipal stores the principal in context.
func WithPrincipal(ctx context.Context, p *Principal) context.Context {
	return context.WithValue(ctx, principalKey{}, p)
}

// FromContext retrieves the principal from context (if any).
func FromContext(ctx context.Context) (*Principal, bool) {
	p, ok := ctx.Value(principalKey{}).(*Principal)
	return p, ok && p != nil
}
