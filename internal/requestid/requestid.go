// Package requestid carries a per-call correlation ID through context.
package requestid

import (
	"context"

	"github.com/google/uuid"
)

// Header is the HTTP header used to accept and echo request IDs.
const Header = "X-Request-ID"

// ctxKey is unexported so no other package can collide with it.
type ctxKey struct{}

// New returns a fresh random ID.
func New() string {
	return uuid.NewString()
}

// With returns a copy of ctx carrying id.
func With(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, ctxKey{}, id)
}

// From returns the ID stored in ctx, or "" when there is none.
func From(ctx context.Context) string {
	id, _ := ctx.Value(ctxKey{}).(string)
	return id
}

// Ensure returns ctx unchanged if it already carries an ID, otherwise a
// copy with a new one. The ID in effect is returned alongside.
func Ensure(ctx context.Context) (context.Context, string) {
	if id := From(ctx); id != "" {
		return ctx, id
	}
	id := New()
	return With(ctx, id), id
}
