package lendcache

import (
	"context"
	"fmt"
	"sync"
	"time"
)

// Syncer is a registry of cache commit triggers.
//
// It pushes changed values of several caches to their stores in one shot,
// e.g. from a periodic job or a shutdown hook.
type Syncer struct {
	sync.Mutex

	// SkipInterval defines minimal duration between two syncs (flood protection).
	SkipInterval time.Duration

	// Callbacks contains a list of functions to call on sync, typically Cache.Commit.
	Callbacks []func(ctx context.Context) error

	lastRun time.Time
}

// Sync triggers commit of registered caches and fails on the first failed one.
func (s *Syncer) Sync(ctx context.Context) error {
	if s.Callbacks == nil {
		return ErrNothingToSync
	}

	s.Lock()
	defer s.Unlock()

	if s.SkipInterval == 0 {
		s.SkipInterval = 15 * time.Second
	}

	if time.Since(s.lastRun) < s.SkipInterval {
		return fmt.Errorf("%w at %s, %s did not pass",
			ErrAlreadySynced, s.lastRun.String(), s.SkipInterval.String())
	}

	s.lastRun = time.Now()

	for _, cb := range s.Callbacks {
		if err := cb(ctx); err != nil {
			return err
		}
	}

	return nil
}
