// Package lendcache provides a bounded borrow-aware cache in front of a persistent store.
// Focused on safe lending of values with lazy write-back to external storage.
//
// Features:
//
//  - Values are borrowed with shared or exclusive references, never copied out blindly.
//  - Borrowed entries are pinned, eviction only touches entries with no live references.
//  - Mutations are tracked per entry and flushed to the store on eviction, commit or close.
//  - LRU eviction keeps the number of idle resident entries within a soft capacity.
//  - Pluggable store contract with read-only and writable capability tiers.
//  - Folder, Redis, Postgres, in-memory and read-through upstream stores included.
//  - Build of missing values is locked per key to eliminate racy updates and only build once.
//  - Allows logging, stats collection.
//  - Propagates context to allow better control of backend and application components.
package lendcache
