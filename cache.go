package lendcache

import (
	"container/list"
	"context"
	"sync"
	"time"

	"github.com/bool64/ctxd"
	"github.com/bool64/stats"
)

// DefaultCapacity bounds idle resident entries when Config.Capacity is not set.
const DefaultCapacity = 64

// Config controls cache instance.
type Config struct {
	// Logger is an instance of contextualized logger, can be nil.
	Logger ctxd.Logger

	// Stats is metrics collector, can be nil.
	Stats stats.Tracker

	// Name is cache instance name, used in stats and logging.
	Name string

	// Capacity is the maximum number of resident entries with no live references, default 64.
	//
	// Referenced entries are not counted against it, so the bound is soft:
	// heavy borrowing can keep more values in memory temporarily.
	Capacity int

	// ItemsCountReportInterval is items count metric report interval, default 1m.
	ItemsCountReportInterval time.Duration
}

// Cache lends values of a store and writes changes back lazily.
//
// Values are borrowed with Get (shared) or GetMut (exclusive) and returned by
// releasing the reference. An entry with live references is pinned in memory,
// it can not be evicted, removed or overwritten. Once the last reference is
// released the entry joins the idle pool, where least recently used entries
// are evicted beyond Config.Capacity. Changed values reach the store on
// eviction, Commit or Close; an abnormal process termination before that
// loses them, callers needing durability should call Commit periodically.
//
// All methods are safe for concurrent use. Per-key exclusivity is enforced
// with reference bookkeeping, not blocking: conflicting borrows fail with
// ErrConflict right away.
type Cache[K comparable, V any] struct {
	mu     sync.Mutex
	store  WritableStore[K, V]
	slots  map[K]*slot[V]
	idle   *list.List // Keys of resident entries with no live references, most recent at front.
	active int        // Count of entries with live references.
	closed bool
	done   chan struct{}

	config Config
	log    ctxd.Logger
	stat   stats.Tracker
}

// slot is a resident entry.
type slot[V any] struct {
	val     V
	readers int
	writer  bool
	dirty   bool
	elem    *list.Element // Position in the idle list, nil while referenced.
}

func (s *slot[V]) referenced() bool {
	return s.readers > 0 || s.writer
}

// New creates a cache instance in front of a store with optional configuration.
func New[K comparable, V any](store WritableStore[K, V], cfg ...Config) *Cache[K, V] {
	config := Config{}

	if len(cfg) >= 1 {
		config = cfg[0]
	}

	if config.Capacity == 0 {
		config.Capacity = DefaultCapacity
	}

	if config.ItemsCountReportInterval == 0 {
		config.ItemsCountReportInterval = time.Minute
	}

	c := &Cache[K, V]{
		store:  store,
		slots:  map[K]*slot[V]{},
		idle:   list.New(),
		done:   make(chan struct{}),
		config: config,
		log:    config.Logger,
		stat:   config.Stats,
	}

	if c.stat != nil {
		go c.reportItemsCount()
	}

	return c
}

// Get borrows a shared reference to the value of a key.
//
// A resident value is served directly, otherwise it is fetched from the
// store and kept resident. Multiple shared references to the same key may be
// live at once; Get fails with ErrConflict while an exclusive reference is
// live. Store errors are returned as is.
func (c *Cache[K, V]) Get(ctx context.Context, key K) (*Ref[K, V], error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.closed {
		return nil, ErrClosed
	}

	if s, ok := c.slots[key]; ok {
		if s.writer {
			c.conflict(ctx, "get", key)

			return nil, ErrConflict
		}

		c.pin(s)
		s.readers++

		c.hit(ctx, key)

		return &Ref[K, V]{cache: c, key: key, val: s.val}, nil
	}

	if ResidentOnly(ctx) {
		return nil, ErrNotFound
	}

	c.miss(ctx, key)

	v, err := c.store.Fetch(ctx, key)
	if err != nil {
		return nil, err
	}

	c.slots[key] = &slot[V]{val: v, readers: 1}
	c.active++

	return &Ref[K, V]{cache: c, key: key, val: v}, nil
}

// GetMut borrows an exclusive reference to the value of a key.
//
// The entry is marked changed and its value is written back to the store
// when it is later evicted, committed or closed. GetMut fails with
// ErrConflict while any other reference to the key is live.
func (c *Cache[K, V]) GetMut(ctx context.Context, key K) (*MutRef[K, V], error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.closed {
		return nil, ErrClosed
	}

	if s, ok := c.slots[key]; ok {
		if s.referenced() {
			c.conflict(ctx, "get_mut", key)

			return nil, ErrConflict
		}

		c.pin(s)
		s.writer = true
		s.dirty = true

		c.hit(ctx, key)

		return &MutRef[K, V]{cache: c, key: key, val: &s.val}, nil
	}

	if ResidentOnly(ctx) {
		return nil, ErrNotFound
	}

	c.miss(ctx, key)

	v, err := c.store.Fetch(ctx, key)
	if err != nil {
		return nil, err
	}

	s := &slot[V]{val: v, writer: true, dirty: true}
	c.slots[key] = s
	c.active++

	return &MutRef[K, V]{cache: c, key: key, val: &s.val}, nil
}

// Insert stores a value resident and changed, to be flushed lazily.
//
// It fails with ErrConflict if the key has live references, live references
// are never invalidated. The eviction pass after insertion may flush another
// value to the store and report its failure.
func (c *Cache[K, V]) Insert(ctx context.Context, key K, value V) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.closed {
		return ErrClosed
	}

	if s, ok := c.slots[key]; ok {
		if s.referenced() {
			c.conflict(ctx, "insert", key)

			return ErrConflict
		}

		s.val = value
		s.dirty = true
		c.idle.MoveToFront(s.elem)
	} else {
		s := &slot[V]{val: value, dirty: true}
		s.elem = c.idle.PushFront(key)
		c.slots[key] = s
	}

	if c.log != nil {
		c.log.Debug(ctx, "inserted value", "name", c.config.Name, "key", key)
	}

	if c.stat != nil {
		c.stat.Add(ctx, MetricWrite, 1, "name", c.config.Name)
	}

	return c.evictLocked(ctx)
}

// Remove drops the entry from memory and deletes it from the store.
//
// It fails with ErrConflict if the key has live references.
func (c *Cache[K, V]) Remove(ctx context.Context, key K) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.closed {
		return ErrClosed
	}

	if s, ok := c.slots[key]; ok {
		if s.referenced() {
			c.conflict(ctx, "remove", key)

			return ErrConflict
		}

		c.idle.Remove(s.elem)
		delete(c.slots, key)
	}

	return c.store.Remove(ctx, key)
}

// Contains reports key presence in the cache or in the store.
//
// Residency is a cache of presence, not the source of truth, so a miss in
// memory defers to the store.
func (c *Cache[K, V]) Contains(ctx context.Context, key K) bool {
	c.mu.Lock()
	closed := c.closed
	_, ok := c.slots[key]
	c.mu.Unlock()

	if closed {
		return false
	}

	if ok {
		return true
	}

	return c.store.Contains(ctx, key)
}

// Commit flushes every changed idle entry to the store, gives unchanged idle
// values back with Replace and commits the store.
//
// After it succeeds the store holds every idle value, so stores lending
// ownership on Fetch lose nothing even if resident copies never flush again.
// It fails with ErrConflict if any changed entry still has live references.
// Committing twice with no changes in between issues no inserts.
func (c *Cache[K, V]) Commit(ctx context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.closed {
		return ErrClosed
	}

	for _, s := range c.slots {
		if s.dirty && s.referenced() {
			c.conflict(ctx, "commit", nil)

			return ErrConflict
		}
	}

	for key, s := range c.slots {
		if s.dirty {
			if err := c.store.Insert(ctx, key, s.val); err != nil {
				return err
			}

			s.dirty = false

			if c.stat != nil {
				c.stat.Add(ctx, MetricFlush, 1, "name", c.config.Name)
			}

			continue
		}

		// A clean value may have been lent out by the store on Fetch,
		// giving it back keeps the store complete. Borrowed entries are
		// still out, they are returned on release or close.
		if s.referenced() {
			continue
		}

		if err := c.store.Replace(ctx, key, s.val); err != nil {
			return err
		}
	}

	return c.store.Commit(ctx)
}

// Close flushes all resident values to the store and shuts the cache down.
//
// Changed values are inserted, unchanged ones are given back with Replace,
// then the store is committed. Close fails with ErrConflict while any
// reference is live and leaves the cache open on a store failure so it can
// be retried. Operations on a closed cache fail with ErrClosed, closing
// twice is a no-op.
func (c *Cache[K, V]) Close(ctx context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.closed {
		return nil
	}

	if c.active > 0 {
		c.conflict(ctx, "close", nil)

		return ErrConflict
	}

	for key, s := range c.slots {
		if err := c.flushLocked(ctx, key, s); err != nil {
			return err
		}
	}

	if err := c.store.Commit(ctx); err != nil {
		return err
	}

	c.slots = nil
	c.idle.Init()
	c.closed = true
	close(c.done)

	if c.log != nil {
		c.log.Debug(ctx, "cache closed", "name", c.config.Name)
	}

	return nil
}

// Active is true if the key has live references.
func (c *Cache[K, V]) Active(key K) bool {
	c.mu.Lock()
	defer c.mu.Unlock()

	s, ok := c.slots[key]

	return ok && s.referenced()
}

// NumActive returns the count of entries with live references.
func (c *Cache[K, V]) NumActive() int {
	c.mu.Lock()
	defer c.mu.Unlock()

	return c.active
}

// Len returns the number of resident entries, referenced and idle.
func (c *Cache[K, V]) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()

	return len(c.slots)
}

// Cap returns the configured capacity.
func (c *Cache[K, V]) Cap() int {
	return c.config.Capacity
}

// Walk calls walkFn for every idle resident entry, most recently used first,
// and fails on first error returned by that function.
//
// The cache is locked for the duration of the walk, walkFn must not call
// back into the cache. Count of processed entries is returned.
func (c *Cache[K, V]) Walk(walkFn func(key K, value V) error) (int, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	n := 0

	for e := c.idle.Front(); e != nil; e = e.Next() {
		key := e.Value.(K)

		if err := walkFn(key, c.slots[key].val); err != nil {
			return n, err
		}

		n++
	}

	return n, nil
}

// pin takes a slot out of the idle pool before a reference is issued.
func (c *Cache[K, V]) pin(s *slot[V]) {
	if s.elem != nil {
		c.idle.Remove(s.elem)
		s.elem = nil
		c.active++
	}
}

// release retires one reference of a key, issued by Ref and MutRef.
//
// Retiring the last reference moves the entry to the idle pool and runs the
// eviction pass, which may flush another value to the store.
func (c *Cache[K, V]) release(ctx context.Context, key K, exclusive bool) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	s, ok := c.slots[key]
	if !ok {
		return nil
	}

	if exclusive {
		s.writer = false
	} else if s.readers > 0 {
		s.readers--
	}

	if s.referenced() {
		return nil
	}

	c.active--
	s.elem = c.idle.PushFront(key)

	return c.evictLocked(ctx)
}

func (c *Cache[K, V]) hit(ctx context.Context, key K) {
	if c.log != nil {
		c.log.Debug(ctx, "cache hit", "name", c.config.Name, "key", key)
	}

	if c.stat != nil {
		c.stat.Add(ctx, MetricHit, 1, "name", c.config.Name)
	}
}

func (c *Cache[K, V]) miss(ctx context.Context, key K) {
	if c.log != nil {
		c.log.Debug(ctx, "cache miss", "name", c.config.Name, "key", key)
	}

	if c.stat != nil {
		c.stat.Add(ctx, MetricMiss, 1, "name", c.config.Name)
	}
}

func (c *Cache[K, V]) conflict(ctx context.Context, op string, key interface{}) {
	if c.log != nil {
		c.log.Warn(ctx, "operation rejected, item is referenced",
			"name", c.config.Name,
			"op", op,
			"key", key)
	}

	if c.stat != nil {
		c.stat.Add(ctx, MetricConflict, 1, "name", c.config.Name)
	}
}

func (c *Cache[K, V]) reportItemsCount() {
	for {
		select {
		case <-time.After(c.config.ItemsCountReportInterval):
		case <-c.done:
			return
		}

		c.mu.Lock()
		count := len(c.slots)
		c.mu.Unlock()

		c.stat.Set(context.Background(), MetricItems, float64(count), "name", c.config.Name)
	}
}
