// Package ctxutil provides context helpers.
package ctxutil

import "context"

// Canceled returns the context error once ctx is done, nil otherwise.
// Long-running operations call it at entry and between steps.
func Canceled(ctx context.Context) error {
	return ctx.Err()
}
