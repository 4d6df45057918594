// Package kv declares the ordered byte-key transactional store contract
// that the session/catalog/orchestrator layers are built against (spec.md
// §2, "transactional KV store" collaborator). BoltKV is the one concrete
// implementation, adapted from the teacher's bucket-per-resource BoltDB
// store (pkg/storage/boltdb.go) collapsed to the single flat keyspace this
// module's relation-id key-range layout requires.
package kv

import "context"

// Txn is one KV transaction: either a read-only snapshot or a writable
// transaction, matching one SessionTx per spec.md §4.3. Keys are raw
// bytes; ordering is byte-lexicographic.
type Txn interface {
	// Get returns the value for key, or (nil, false) if absent.
	Get(key []byte) ([]byte, bool, error)
	// Put writes key/value. Only valid on a writable Txn.
	Put(key, value []byte) error
	// Delete removes key if present. Only valid on a writable Txn.
	Delete(key []byte) error

	// Scan iterates [lower, upper) in ascending key order, calling fn for
	// each pair. Iteration stops early if fn returns false or an error.
	Scan(lower, upper []byte, fn func(key, value []byte) (bool, error)) error

	// DeleteRange removes every key in [lower, upper). Only valid on a
	// writable Txn.
	DeleteRange(lower, upper []byte) error

	// Writable reports whether this Txn permits mutation.
	Writable() bool

	// Commit finalizes the transaction. Rollback discards it. Exactly one
	// of the two must be called.
	Commit() error
	Rollback() error
}

// Store is the root handle opened once per database instance.
type Store interface {
	// Begin opens a new Txn. The context is checked once before the
	// transaction opens; it does not bound the wait for the underlying
	// writer lock (bbolt serializes writers).
	Begin(ctx context.Context, writable bool) (Txn, error)
	// Close releases the underlying file handle.
	Close() error
	// Path returns the backing file path.
	Path() string
	// Compact reclaims space left by deleted/overwritten keys by rewriting
	// the store into a fresh file and swapping it in. It returns the
	// number of key/value pairs copied.
	Compact() (int64, error)
}
