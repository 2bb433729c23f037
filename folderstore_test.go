package lendcache_test

import (
	"context"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/vearutop/lendcache"
)

func TestFolderStore_persistAcrossReopen(t *testing.T) {
	ctx := context.Background()
	dir := t.TempDir()

	folder, err := lendcache.OpenFolder[int, string](dir)
	require.NoError(t, err)

	c := lendcache.New[int, string](folder, lendcache.Config{Capacity: 2})

	require.NoError(t, c.Insert(ctx, 42, "meaning"))
	require.NoError(t, c.Insert(ctx, 99, "bottles"))

	ref, err := c.Get(ctx, 42)
	require.NoError(t, err)
	assert.Equal(t, "meaning", ref.Value())
	require.NoError(t, ref.Release())

	require.NoError(t, c.Close(ctx))

	// Resume from the same directory.
	folder, err = lendcache.OpenFolder[int, string](dir)
	require.NoError(t, err)
	assert.Equal(t, 2, folder.Len())

	c = lendcache.New[int, string](folder, lendcache.Config{Capacity: 2})

	ref, err = c.Get(ctx, 42)
	require.NoError(t, err)
	assert.Equal(t, "meaning", ref.Value())
	require.NoError(t, ref.Release())

	ref, err = c.Get(ctx, 99)
	require.NoError(t, err)
	assert.Equal(t, "bottles", ref.Value())
	require.NoError(t, ref.Release())
}

func TestFolderStore_cleared(t *testing.T) {
	ctx := context.Background()
	dir := t.TempDir()

	folder, err := lendcache.OpenFolder[int, string](dir)
	require.NoError(t, err)
	require.NoError(t, folder.Insert(ctx, 1, "one"))
	require.NoError(t, folder.Insert(ctx, 2, "two"))

	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	assert.NotEmpty(t, entries)

	folder, err = lendcache.OpenFolder[int, string](dir, lendcache.FolderConfig{Cleared: true})
	require.NoError(t, err)
	assert.Equal(t, 0, folder.Len())

	entries, err = os.ReadDir(dir)
	require.NoError(t, err)
	assert.Empty(t, entries)

	_, err = folder.Fetch(ctx, 1)
	assert.ErrorIs(t, err, lendcache.ErrNotFound)
}

func TestFolderStore_mutationPersistsAfterEviction(t *testing.T) {
	ctx := context.Background()
	dir := t.TempDir()

	folder, err := lendcache.OpenFolder[int, string](dir)
	require.NoError(t, err)

	c := lendcache.New[int, string](folder, lendcache.Config{Capacity: 2})

	for i := 0; i < 5; i++ {
		require.NoError(t, c.Insert(ctx, i, "value_"+strconv.Itoa(i)))
	}

	mref, err := c.GetMut(ctx, 1)
	require.NoError(t, err)
	*mref.Value() = "modified"
	require.NoError(t, mref.Release())

	// Push the changed entry out of memory.
	for i := 2; i < 5; i++ {
		ref, err := c.Get(ctx, i)
		require.NoError(t, err)
		require.NoError(t, ref.Release())
	}

	_, err = c.Get(lendcache.WithResidentOnly(ctx), 1)
	require.ErrorIs(t, err, lendcache.ErrNotFound)

	// Reload forces a read from the directory.
	ref, err := c.Get(ctx, 1)
	require.NoError(t, err)
	assert.Equal(t, "modified", ref.Value())
	require.NoError(t, ref.Release())
}

func TestFolderStore_manyInserts(t *testing.T) {
	ctx := context.Background()
	dir := t.TempDir()

	folder, err := lendcache.OpenFolder[int, string](dir)
	require.NoError(t, err)

	c := lendcache.New[int, string](folder, lendcache.Config{Capacity: 2})

	for i := 0; i < 200; i++ {
		require.NoError(t, c.Insert(ctx, i, strings.Repeat("memphis", i%20)))
	}

	require.NoError(t, c.Close(ctx))

	folder, err = lendcache.OpenFolder[int, string](dir)
	require.NoError(t, err)
	assert.Equal(t, 200, folder.Len())

	c = lendcache.New[int, string](folder, lendcache.Config{Capacity: 2})

	for i := 0; i < 200; i++ {
		ref, err := c.Get(ctx, i)
		require.NoError(t, err, i)
		assert.Equal(t, strings.Repeat("memphis", i%20), ref.Value())
		require.NoError(t, ref.Release())
	}
}

func TestFolderStore_oneFilePerKey(t *testing.T) {
	ctx := context.Background()
	dir := t.TempDir()

	folder, err := lendcache.OpenFolder[int, string](dir)
	require.NoError(t, err)

	for i := 0; i < 7; i++ {
		require.NoError(t, folder.Insert(ctx, i, strconv.Itoa(i)))
	}

	// Overwrites reuse the key-derived name.
	for i := 0; i < 7; i++ {
		require.NoError(t, folder.Insert(ctx, i, strconv.Itoa(7-i)))
	}

	require.NoError(t, folder.Commit(ctx))

	files, err := filepath.Glob(filepath.Join(dir, "*.cache"))
	require.NoError(t, err)
	assert.Len(t, files, 7)

	for i := 0; i < 7; i++ {
		require.NoError(t, folder.Remove(ctx, i))
	}

	files, err = filepath.Glob(filepath.Join(dir, "*.cache"))
	require.NoError(t, err)
	assert.Empty(t, files)

	// Removing an absent key succeeds.
	require.NoError(t, folder.Remove(ctx, 100))
}

func TestFolderStore_nameCollision(t *testing.T) {
	ctx := context.Background()
	dir := t.TempDir()

	folder, err := lendcache.OpenFolder[int, string](dir)
	require.NoError(t, err)
	require.NoError(t, folder.Insert(ctx, 1, "one"))

	files, err := filepath.Glob(filepath.Join(dir, "*.cache"))
	require.NoError(t, err)
	require.Len(t, files, 1)

	// Overwrite the record file with a record of another key, as a name
	// hash collision between distinct keys would.
	type record struct {
		Key   int
		Value string
	}

	data, err := lendcache.GobCodec{}.Encode(record{Key: 999, Value: "other"})
	require.NoError(t, err)
	require.NoError(t, os.WriteFile(files[0], data, 0o600))

	assert.True(t, folder.Contains(ctx, 1))

	// The stored key is the authority, the overwritten record is gone.
	_, err = folder.Fetch(ctx, 1)
	assert.ErrorIs(t, err, lendcache.ErrNotFound)

	// Presence answers consistently after the failed read.
	assert.False(t, folder.Contains(ctx, 1))
}

func TestFolderStore_jsonCodec(t *testing.T) {
	ctx := context.Background()
	dir := t.TempDir()

	type payload struct {
		Name  string `json:"name"`
		Count int    `json:"count"`
	}

	folder, err := lendcache.OpenFolder[string, payload](dir, lendcache.FolderConfig{Codec: lendcache.JSONCodec{}})
	require.NoError(t, err)

	require.NoError(t, folder.Insert(ctx, "dogs", payload{Name: "spot", Count: 3}))

	folder, err = lendcache.OpenFolder[string, payload](dir, lendcache.FolderConfig{Codec: lendcache.JSONCodec{}})
	require.NoError(t, err)

	v, err := folder.Fetch(ctx, "dogs")
	require.NoError(t, err)
	assert.Equal(t, payload{Name: "spot", Count: 3}, v)
}
