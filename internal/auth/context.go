// Package auth provides password hashing, access tokens, and ballot receipts.
package auth

import (
	"context"

	"github.com/ballotbox/ballotbox/internal/model"
)

// authKey is unexported so no other package can overwrite the caller
// identity once the token middleware has attached it.
type authKey struct{}

// ContextWithAuth returns a child context carrying the caller identity.
func ContextWithAuth(ctx context.Context, ac *model.AuthContext) context.Context {
	return context.WithValue(ctx, authKey{}, ac)
}

// AuthFromContext returns the caller identity attached by the token
// middleware, or nil on unauthenticated requests.
func AuthFromContext(ctx context.Context) *model.AuthContext {
	ac, _ := ctx.Value(authKey{}).(*model.AuthContext)
	return ac
}

// MustAuthFromContext is AuthFromContext for handlers mounted behind the
// token middleware, where a missing identity is a wiring bug.
func MustAuthFromContext(ctx context.Context) *model.AuthContext {
	ac := AuthFromContext(ctx)
	if ac == nil {
		panic("auth: no caller identity in context")
	}
	return ac
}
