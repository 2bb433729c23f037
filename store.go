package lendcache

import "context"

// Store is the read-only tier of the store contract.
//
// A store may transfer logical ownership of a value with Fetch, meaning it
// does not have to retain a usable copy. The cache gives such values back
// with Replace once it is done with them. Stores that keep authoritative
// copies implement Replace as a no-op.
type Store[K comparable, V any] interface {
	// Contains reports key presence in the store.
	Contains(ctx context.Context, key K) bool

	// Fetch returns the stored value, possibly giving up ownership of it.
	Fetch(ctx context.Context, key K) (V, error)

	// Replace returns a previously fetched value that was not changed.
	Replace(ctx context.Context, key K, value V) error
}

// WritableStore is the full store contract.
type WritableStore[K comparable, V any] interface {
	Store[K, V]

	// Insert adds or overwrites a stored value.
	Insert(ctx context.Context, key K, value V) error

	// Remove deletes a stored value.
	Remove(ctx context.Context, key K) error

	// Commit brings the store to a stable, durable state.
	//
	// Stores with per-call durability implement it as a no-op.
	Commit(ctx context.Context) error
}

// ReadOnly exposes a read-only store through the writable contract,
// so it can feed a cache used for inspection.
//
// Insert and Remove fail with ErrReadOnly, Commit succeeds having nothing to do.
func ReadOnly[K comparable, V any](s Store[K, V]) WritableStore[K, V] {
	return readOnlyStore[K, V]{Store: s}
}

type readOnlyStore[K comparable, V any] struct {
	Store[K, V]
}

func (readOnlyStore[K, V]) Insert(_ context.Context, _ K, _ V) error {
	return ErrReadOnly
}

func (readOnlyStore[K, V]) Remove(_ context.Context, _ K) error {
	return ErrReadOnly
}

func (readOnlyStore[K, V]) Commit(_ context.Context) error {
	return nil
}
