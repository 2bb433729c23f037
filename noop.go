package lendcache

import (
	"context"
)

// NoOpStore is a WritableStore stub.
type NoOpStore[K comparable, V any] struct{}

var _ WritableStore[string, int] = NoOpStore[string, int]{}

// Contains finds nothing.
func (NoOpStore[K, V]) Contains(_ context.Context, _ K) bool {
	return false
}

// Fetch does not find anything.
func (NoOpStore[K, V]) Fetch(_ context.Context, _ K) (V, error) {
	var zero V

	return zero, ErrNotFound
}

// Replace discards the value.
func (NoOpStore[K, V]) Replace(_ context.Context, _ K, _ V) error {
	return nil
}

// Insert discards the value.
func (NoOpStore[K, V]) Insert(_ context.Context, _ K, _ V) error {
	return nil
}

// Remove discards the key.
func (NoOpStore[K, V]) Remove(_ context.Context, _ K) error {
	return nil
}

// Commit does nothing.
func (NoOpStore[K, V]) Commit(_ context.Context) error {
	return nil
}
