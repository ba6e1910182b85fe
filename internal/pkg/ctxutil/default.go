package ctxutil

import "context"

// Default substitutes context.Background() for a nil ctx so client helpers
// can be called without one.
func Default(ctx context.Context) context.Context {
	if ctx == nil {
		return context.Background()
	}
	return ctx
}
