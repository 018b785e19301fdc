// Package ctxutil provides context helpers shared by the store, registry and
// service layers.
package ctxutil

import "context"

// Canceled returns the context error when ctx is done and nil otherwise.
// Operations call it on entry so a canceled caller never starts a mutation.
func Canceled(ctx context.Context) error {
	return ctx.Err()
}
