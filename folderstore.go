package lendcache

import (
	"context"
	"fmt"
	"hash/fnv"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/bool64/ctxd"
)

const folderExt = ".cache"

var _ WritableStore[string, int] = &FolderStore[string, int]{}

// FolderConfig controls FolderStore instance.
type FolderConfig struct {
	// Cleared wipes previously persisted records on open.
	Cleared bool

	// Codec serializes keys and values, default GobCodec.
	Codec Codec

	// Logger is an instance of contextualized logger, can be nil.
	Logger ctxd.Logger
}

// FolderStore persists each value as an individually serialized file under a
// key-derived name in a directory.
//
// Records carry their key, so the key set is recovered by scanning the
// directory on open. Writes go through a temporary file and rename, Commit
// syncs the directory.
type FolderStore[K comparable, V any] struct {
	mu    sync.Mutex
	dir   string
	codec Codec
	names map[K]string
	log   ctxd.Logger
}

type folderRecord[K comparable, V any] struct {
	Key   K
	Value V
}

// OpenFolder opens a directory as a store, resuming previously persisted
// records unless FolderConfig.Cleared is set.
func OpenFolder[K comparable, V any](dir string, cfg ...FolderConfig) (*FolderStore[K, V], error) {
	config := FolderConfig{}

	if len(cfg) >= 1 {
		config = cfg[0]
	}

	if config.Codec == nil {
		config.Codec = GobCodec{}
	}

	if err := os.MkdirAll(dir, 0o700); err != nil {
		return nil, err
	}

	s := &FolderStore[K, V]{
		dir:   dir,
		codec: config.Codec,
		names: map[K]string{},
		log:   config.Logger,
	}

	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, err
	}

	for _, e := range entries {
		if e.IsDir() || !strings.HasSuffix(e.Name(), folderExt) {
			continue
		}

		if config.Cleared {
			if err := os.Remove(filepath.Join(dir, e.Name())); err != nil {
				return nil, err
			}

			continue
		}

		rec, err := s.readRecord(e.Name())
		if err != nil {
			return nil, ctxd.WrapError(context.Background(), err, "failed to resume folder store",
				"dir", dir,
				"file", e.Name())
		}

		s.names[rec.Key] = e.Name()
	}

	return s, nil
}

// Contains reports key presence among persisted records.
func (s *FolderStore[K, V]) Contains(_ context.Context, key K) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	_, ok := s.names[key]

	return ok
}

// Fetch reads and decodes the record of a key.
func (s *FolderStore[K, V]) Fetch(_ context.Context, key K) (V, error) {
	var zero V

	s.mu.Lock()
	defer s.mu.Unlock()

	name, ok := s.names[key]
	if !ok {
		return zero, ErrNotFound
	}

	rec, err := s.readRecord(name)
	if err != nil {
		return zero, err
	}

	// A name hash collision between distinct keys leaves the older record
	// overwritten, the stored key is the authority. The stale name is
	// dropped so that Contains agrees.
	if rec.Key != key {
		delete(s.names, key)

		return zero, ErrNotFound
	}

	return rec.Value, nil
}

// Replace is a no-op, files keep authoritative copies.
func (s *FolderStore[K, V]) Replace(_ context.Context, _ K, _ V) error {
	return nil
}

// Insert serializes the value to its file, atomically via rename.
func (s *FolderStore[K, V]) Insert(ctx context.Context, key K, value V) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	name, err := s.fileName(key)
	if err != nil {
		return err
	}

	data, err := s.codec.Encode(folderRecord[K, V]{Key: key, Value: value})
	if err != nil {
		return err
	}

	path := filepath.Join(s.dir, name)
	tmp := path + ".tmp"

	if err := os.WriteFile(tmp, data, 0o600); err != nil {
		return err
	}

	if err := os.Rename(tmp, path); err != nil {
		return err
	}

	if s.log != nil {
		s.log.Debug(ctx, "persisted record", "dir", s.dir, "file", name)
	}

	s.names[key] = name

	return nil
}

// Remove deletes the record of a key, succeeding when it is already absent.
func (s *FolderStore[K, V]) Remove(_ context.Context, key K) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	name, ok := s.names[key]
	if !ok {
		return nil
	}

	delete(s.names, key)

	if err := os.Remove(filepath.Join(s.dir, name)); err != nil && !os.IsNotExist(err) {
		return err
	}

	return nil
}

// Commit syncs the directory so that renamed records are durable.
func (s *FolderStore[K, V]) Commit(_ context.Context) error {
	d, err := os.Open(s.dir)
	if err != nil {
		return err
	}

	err = d.Sync()

	if closeErr := d.Close(); err == nil {
		err = closeErr
	}

	return err
}

// Len returns the number of persisted records.
func (s *FolderStore[K, V]) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()

	return len(s.names)
}

func (s *FolderStore[K, V]) fileName(key K) (string, error) {
	enc, err := s.codec.Encode(key)
	if err != nil {
		return "", err
	}

	h := fnv.New64a()
	// nolint:errcheck // fnv.Write never returns an error.
	_, _ = h.Write(enc)

	return fmt.Sprintf("%016x%s", h.Sum64(), folderExt), nil
}

func (s *FolderStore[K, V]) readRecord(name string) (folderRecord[K, V], error) {
	rec := folderRecord[K, V]{}

	data, err := os.ReadFile(filepath.Join(s.dir, name))
	if err != nil {
		return rec, err
	}

	err = s.codec.Decode(data, &rec)

	return rec, err
}
