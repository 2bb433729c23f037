package lendcache

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/bool64/ctxd"
	"github.com/bool64/stats"
	gocache "github.com/patrickmn/go-cache"
)

// LoaderConfig is optional configuration for NewLoader.
type LoaderConfig struct {
	// Name is added to logs and stats.
	Name string

	// FailedBuildTTL is ttl of failed build cache, default 20s, -1 disables errors cache.
	FailedBuildTTL time.Duration

	// Logger collects messages with context.
	Logger ctxd.Logger

	// Stats tracks stats.
	Stats stats.Tracker
}

// Loader issues references read-through: a missing value is built, inserted
// and then borrowed.
//
// Please use NewLoader to create instance.
type Loader[K comparable, V any] struct {
	// Errors caches errors of failed builds.
	Errors *gocache.Cache

	cache    *Cache[K, V]
	lock     sync.Mutex          // Securing keyLocks
	keyLocks map[K]chan struct{} // Preventing build concurrency per key
	config   LoaderConfig
	log      ctxd.Logger
	stat     stats.Tracker
}

// NewLoader creates a Loader on top of a cache instance.
//
// Build is locked per key to avoid concurrent builds of the same value.
// Build errors are cached with low TTL to avoid flooding an unhealthy
// builder.
func NewLoader[K comparable, V any](c *Cache[K, V], cfg ...LoaderConfig) *Loader[K, V] {
	config := LoaderConfig{}

	if len(cfg) >= 1 {
		config = cfg[0]
	}

	if config.FailedBuildTTL == 0 {
		config.FailedBuildTTL = 20 * time.Second
	}

	l := &Loader[K, V]{
		cache:    c,
		keyLocks: make(map[K]chan struct{}),
		config:   config,
	}

	l.log = config.Logger
	if l.log == nil {
		l.log = ctxd.NoOpLogger{}
	}

	l.stat = config.Stats
	if l.stat == nil {
		l.stat = stats.NoOp{}
	}

	if config.FailedBuildTTL > -1 {
		// Short cleanup interval to avoid storing potentially heavy errors for long time.
		l.Errors = gocache.New(config.FailedBuildTTL, time.Minute)
	}

	return l
}

// Get returns a reference to a cached or freshly built value.
func (l *Loader[K, V]) Get(ctx context.Context, key K, buildFunc func(ctx context.Context) (V, error)) (*Ref[K, V], error) {
	ref, err := l.cache.Get(ctx, key)
	if err == nil {
		return ref, nil
	}

	if !errors.Is(err, ErrNotFound) {
		return nil, err
	}

	// Locking key for build or finding active lock.
	l.lock.Lock()

	keyLock, alreadyLocked := l.keyLocks[key]
	if !alreadyLocked {
		keyLock = make(chan struct{})
		l.keyLocks[key] = keyLock
	}
	l.lock.Unlock()

	// If already locked, waiting for the owner to finish building.
	if alreadyLocked {
		return l.waitForValue(ctx, key, keyLock)
	}

	// Releasing the lock.
	defer func() {
		l.lock.Lock()
		delete(l.keyLocks, key)
		close(keyLock)
		l.lock.Unlock()
	}()

	// Checking for value built between the miss and the critical section.
	ref, err = l.cache.Get(ctx, key)
	if err == nil {
		return ref, nil
	}

	if !errors.Is(err, ErrNotFound) {
		return nil, err
	}

	// Check if build failed recently.
	if err := l.recentlyFailed(key); err != nil {
		return nil, err
	}

	if err := l.build(ctx, key, buildFunc); err != nil {
		return nil, err
	}

	return l.cache.Get(ctx, key)
}

func (l *Loader[K, V]) waitForValue(ctx context.Context, key K, keyLock chan struct{}) (*Ref[K, V], error) {
	l.log.Debug(ctx, "waiting for cache value", "name", l.config.Name, "key", key)

	// Waiting for value built by keyLock owner.
	select {
	case <-keyLock:
	case <-ctx.Done():
		return nil, ctx.Err()
	}

	ref, err := l.cache.Get(ctx, key)
	if errors.Is(err, ErrNotFound) {
		// Check if build failed recently.
		if failed := l.recentlyFailed(key); failed != nil {
			return nil, failed
		}
	}

	return ref, err
}

func (l *Loader[K, V]) build(ctx context.Context, key K, buildFunc func(ctx context.Context) (V, error)) error {
	defer func() {
		l.stat.Add(ctx, MetricBuild, 1, "name", l.config.Name)
	}()

	l.log.Debug(ctx, "building cache value", "name", l.config.Name, "key", key)

	v, err := buildFunc(ctx)
	if err != nil {
		l.stat.Add(ctx, MetricFailed, 1, "name", l.config.Name)

		if l.Errors != nil {
			l.Errors.Set(l.errKey(key), err, gocache.DefaultExpiration)
		}

		return err
	}

	return l.cache.Insert(ctx, key, v)
}

func (l *Loader[K, V]) recentlyFailed(key K) error {
	if l.Errors == nil {
		return nil
	}

	if errVal, found := l.Errors.Get(l.errKey(key)); found {
		return errVal.(error)
	}

	return nil
}

// errKey needs to tell keys apart, %#v keeps field names so that distinct
// struct keys with equal plain prints do not alias their cached errors.
func (l *Loader[K, V]) errKey(key K) string {
	return fmt.Sprintf("%#v", key)
}
