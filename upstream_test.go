package lendcache_test

import (
	"context"
	"testing"

	bcache "github.com/bool64/cache"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/vearutop/lendcache"
)

func TestUpstream(t *testing.T) {
	ctx := context.Background()

	mem := bcache.NewShardedMap()
	require.NoError(t, mem.Write(ctx, []byte("pi"), 3.14))

	c := lendcache.New[string, float64](lendcache.ReadOnly[string, float64](lendcache.NewUpstream[float64](mem)))

	assert.True(t, c.Contains(ctx, "pi"))
	assert.False(t, c.Contains(ctx, "tau"))

	ref, err := c.Get(ctx, "pi")
	require.NoError(t, err)
	assert.Equal(t, 3.14, ref.Value())
	require.NoError(t, ref.Release())

	_, err = c.Get(ctx, "tau")
	assert.ErrorIs(t, err, lendcache.ErrNotFound)

	// Local writes are accepted, but they cannot be pushed back upstream.
	require.NoError(t, c.Insert(ctx, "tau", 6.28))
	assert.ErrorIs(t, c.Commit(ctx), lendcache.ErrReadOnly)
	assert.ErrorIs(t, c.Close(ctx), lendcache.ErrReadOnly)
}
