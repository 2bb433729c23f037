package lendcache

import "context"

// Ref is a shared read reference to a cached value.
//
// The entry stays resident and is not evictable while the reference is live.
// A Ref is owned by a single goroutine and is not meant to be shared.
type Ref[K comparable, V any] struct {
	cache    *Cache[K, V]
	key      K
	val      V
	released bool
}

// Key returns the borrowed key.
func (r *Ref[K, V]) Key() K {
	return r.key
}

// Value returns the borrowed value.
func (r *Ref[K, V]) Value() V {
	return r.val
}

// Release retires the reference, it is safe to call more than once.
//
// Retiring the last reference of a key makes the entry evictable again, and
// the eviction pass may flush another value to the store, hence the error.
func (r *Ref[K, V]) Release() error {
	if r.released {
		return nil
	}

	r.released = true

	return r.cache.release(context.Background(), r.key, false)
}

// MutRef is an exclusive write reference to a cached value.
//
// While it is live no other reference to the same key can be taken. The
// entry is marked changed on issuance and its value reaches the store on a
// later eviction, Commit or Close.
type MutRef[K comparable, V any] struct {
	cache    *Cache[K, V]
	key      K
	val      *V
	released bool
}

// Key returns the borrowed key.
func (r *MutRef[K, V]) Key() K {
	return r.key
}

// Value returns a pointer to the cached value, valid until Release.
func (r *MutRef[K, V]) Value() *V {
	return r.val
}

// Release retires the reference, it is safe to call more than once.
func (r *MutRef[K, V]) Release() error {
	if r.released {
		return nil
	}

	r.released = true
	r.val = nil

	return r.cache.release(context.Background(), r.key, true)
}
