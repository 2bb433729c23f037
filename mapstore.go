package lendcache

import (
	"context"
	"sync"
)

var _ WritableStore[string, int] = &MapStore[string, int]{}

// MapStoreConfig controls MapStore instance.
type MapStoreConfig struct {
	// Lend makes Fetch transfer ownership of the value: the entry is removed
	// from the map on Fetch and only restored when it is given back with
	// Replace or Insert.
	Lend bool
}

// MapStore is an in-memory store, an ephemeral backing useful on its own and
// for exercising the store contract in tests.
type MapStore[K comparable, V any] struct {
	mu   sync.RWMutex
	data map[K]V
	lend bool
}

// NewMapStore creates an in-memory store with optional configuration.
func NewMapStore[K comparable, V any](cfg ...MapStoreConfig) *MapStore[K, V] {
	config := MapStoreConfig{}

	if len(cfg) >= 1 {
		config = cfg[0]
	}

	return &MapStore[K, V]{
		data: map[K]V{},
		lend: config.Lend,
	}
}

// Contains reports key presence.
func (s *MapStore[K, V]) Contains(_ context.Context, key K) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()

	_, ok := s.data[key]

	return ok
}

// Fetch returns the stored value, removing it from the map in Lend mode.
func (s *MapStore[K, V]) Fetch(_ context.Context, key K) (V, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	v, ok := s.data[key]
	if !ok {
		var zero V

		return zero, ErrNotFound
	}

	if s.lend {
		delete(s.data, key)
	}

	return v, nil
}

// Replace puts a lent value back, a no-op otherwise.
func (s *MapStore[K, V]) Replace(_ context.Context, key K, value V) error {
	if !s.lend {
		return nil
	}

	s.mu.Lock()
	s.data[key] = value
	s.mu.Unlock()

	return nil
}

// Insert adds or overwrites a value.
func (s *MapStore[K, V]) Insert(_ context.Context, key K, value V) error {
	s.mu.Lock()
	s.data[key] = value
	s.mu.Unlock()

	return nil
}

// Remove deletes a value, succeeding when it is already absent.
func (s *MapStore[K, V]) Remove(_ context.Context, key K) error {
	s.mu.Lock()
	delete(s.data, key)
	s.mu.Unlock()

	return nil
}

// Commit is a no-op, the map is as stable as it gets.
func (s *MapStore[K, V]) Commit(_ context.Context) error {
	return nil
}

// Len returns the number of stored values.
func (s *MapStore[K, V]) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return len(s.data)
}
