package lendcache

import (
	"context"

	"github.com/bool64/ctxd"
)

// evictLocked drops least recently used idle entries until the capacity bound holds.
//
// If fewer evictable entries exist than the overflow, the cache stays over
// capacity until references are released; live references are never
// invalidated.
func (c *Cache[K, V]) evictLocked(ctx context.Context) error {
	for c.idle.Len() > c.config.Capacity {
		e := c.idle.Back()
		key := e.Value.(K)
		s := c.slots[key]

		// A failed flush keeps the entry resident with its change intact.
		if err := c.flushLocked(ctx, key, s); err != nil {
			return err
		}

		c.idle.Remove(e)
		s.elem = nil
		delete(c.slots, key)

		if c.log != nil {
			c.log.Debug(ctx, "evicted cache item", "name", c.config.Name, "key", key)
		}

		if c.stat != nil {
			c.stat.Add(ctx, MetricEvict, 1, "name", c.config.Name)
		}
	}

	return nil
}

// flushLocked hands a value back to the store before it leaves memory.
//
// Changed values are inserted, unchanged ones are returned with Replace so
// that stores lending ownership on Fetch get their copy back.
func (c *Cache[K, V]) flushLocked(ctx context.Context, key K, s *slot[V]) error {
	if !s.dirty {
		if err := c.store.Replace(ctx, key, s.val); err != nil {
			return ctxd.WrapError(ctx, err, "failed to return value to store",
				"name", c.config.Name,
				"key", key)
		}

		return nil
	}

	if err := c.store.Insert(ctx, key, s.val); err != nil {
		if c.log != nil {
			c.log.Error(ctx, "failed to flush changed value",
				"error", err,
				"name", c.config.Name,
				"key", key)
		}

		return ctxd.WrapError(ctx, err, "failed to flush changed value",
			"name", c.config.Name,
			"key", key)
	}

	s.dirty = false

	if c.stat != nil {
		c.stat.Add(ctx, MetricFlush, 1, "name", c.config.Name)
	}

	return nil
}
