package lendcache

// SentinelError is an error.
type SentinelError string

const (
	// ErrNotFound indicates a key that is neither resident nor present in the store.
	ErrNotFound = SentinelError("missing cache item")

	// ErrConflict indicates a structural operation on a key with live references.
	ErrConflict = SentinelError("cache item is referenced")

	// ErrClosed indicates an operation on a closed cache.
	ErrClosed = SentinelError("cache is closed")

	// ErrReadOnly indicates a write operation on a read-only store.
	ErrReadOnly = SentinelError("store is read-only")

	// ErrNothingToSync indicates no caches were added to Syncer.
	ErrNothingToSync = SentinelError("nothing to sync")

	// ErrAlreadySynced indicates recent sync.
	ErrAlreadySynced = SentinelError("already synced")
)

// Error implements error.
func (e SentinelError) Error() string {
	return string(e)
}
