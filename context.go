package lendcache

import "context"

type residentOnlyCtxKey struct{}

// WithResidentOnly returns context that limits borrows to resident entries.
//
// With such context Get and GetMut do not fall back to the store on a miss
// and fail with ErrNotFound instead.
func WithResidentOnly(ctx context.Context) context.Context {
	return context.WithValue(ctx, residentOnlyCtxKey{}, true)
}

// ResidentOnly returns true if store fallback is disabled in context.
func ResidentOnly(ctx context.Context) bool {
	_, ok := ctx.Value(residentOnlyCtxKey{}).(bool)
	return ok
}
