package lendcache

import (
	"context"
	"errors"
	"fmt"

	bcache "github.com/bool64/cache"
)

var _ Store[string, int] = &Upstream[int]{}

// Upstream exposes a bool64/cache reader as a read-only store with string keys.
//
// Wrap it with ReadOnly to borrow values of an existing cache for inspection:
//
//	front := lendcache.New[string, Order](lendcache.ReadOnly[string, Order](lendcache.NewUpstream[Order](mem)))
type Upstream[V any] struct {
	reader bcache.Reader
}

// NewUpstream creates a read-only store view of a bool64/cache reader.
func NewUpstream[V any](r bcache.Reader) *Upstream[V] {
	return &Upstream[V]{reader: r}
}

// Contains reports key presence upstream.
func (u *Upstream[V]) Contains(ctx context.Context, key string) bool {
	_, err := u.reader.Read(ctx, []byte(key))

	return err == nil
}

// Fetch reads the upstream value, leaving the upstream copy in place.
func (u *Upstream[V]) Fetch(ctx context.Context, key string) (V, error) {
	var zero V

	v, err := u.reader.Read(ctx, []byte(key))
	if err != nil {
		if errors.Is(err, bcache.ErrNotFound) || errors.Is(err, bcache.ErrExpired) {
			return zero, ErrNotFound
		}

		return zero, err
	}

	typed, ok := v.(V)
	if !ok {
		return zero, fmt.Errorf("unexpected upstream value type %T", v)
	}

	return typed, nil
}

// Replace is a no-op, the upstream keeps its copy.
func (u *Upstream[V]) Replace(_ context.Context, _ string, _ V) error {
	return nil
}
