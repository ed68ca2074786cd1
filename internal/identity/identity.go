// Package identity carries the signed-in user through a request.
//
// The user is attached once by the auth middleware (session or bearer token)
// and removed implicitly when the request ends. Managers never read it from
// the context themselves; handlers resolve it here and pass the id along.
package identity

import (
	"context"
	"errors"

	"github.com/joestump/frequency/internal/store"
)

// ErrNotAuthenticated is returned when an operation needs a signed-in user
// and none is present.
var ErrNotAuthenticated = errors.New("not authenticated")

type contextKey struct{}

// WithUser returns a copy of ctx carrying u.
func WithUser(ctx context.Context, u *store.User) context.Context {
	return context.WithValue(ctx, contextKey{}, u)
}

// UserFromContext returns the signed-in user, or nil.
func UserFromContext(ctx context.Context) *store.User {
	u, _ := ctx.Value(contextKey{}).(*store.User)
	return u
}

// Require returns the signed-in user's id or ErrNotAuthenticated.
func Require(ctx context.Context) (string, error) {
	u := UserFromContext(ctx)
	if u == nil || u.ID == "" {
		return "", ErrNotAuthenticated
	}
	return u.ID, nil
}

// Check returns ErrNotAuthenticated when self is empty.
func Check(self string) error {
	if self == "" {
		return ErrNotAuthenticated
	}
	return nil
}
