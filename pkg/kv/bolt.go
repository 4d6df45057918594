package kv

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"sync"

	bolt "go.etcd.io/bbolt"
)

// dataBucket is the single flat keyspace bucket. Relations are partitioned
// within it purely by key prefix (the 8-byte big-endian relation id), so
// there is no per-relation bucket: a relation's key range is
// [tuple()@id, tuple()@id.next()) as spec.md §3 describes, and bbolt
// buckets would only get in the way of that range-scan contract.
var dataBucket = []byte("data")

// BoltKV is the concrete Store backed by go.etcd.io/bbolt, grounded on the
// teacher's NewBoltStore (pkg/storage/boltdb.go): open-or-create the file,
// ensure the bucket exists, hand out closures-scoped transactions.
type BoltKV struct {
	mu   sync.RWMutex
	db   *bolt.DB
	path string
}

// OpenBoltKV opens (creating if absent) a bbolt file at path and ensures
// the flat data bucket exists.
func OpenBoltKV(path string) (*BoltKV, error) {
	db, err := bolt.Open(path, 0600, nil)
	if err != nil {
		return nil, fmt.Errorf("opening kv store at %s: %w", path, err)
	}
	err = db.Update(func(tx *bolt.Tx) error {
		_, err := tx.CreateBucketIfNotExists(dataBucket)
		return err
	})
	if err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("initializing kv store bucket: %w", err)
	}
	return &BoltKV{db: db, path: path}, nil
}

func (s *BoltKV) Path() string { return s.path }

func (s *BoltKV) Close() error {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.db.Close()
}

// Begin opens a bolt.Tx of the requested kind. bbolt has no native
// per-transaction context cancellation, so ctx is only checked up front:
// once a writer transaction is granted, it runs to completion. The
// read lock only excludes Compact, which briefly swaps s.db out from
// under in-flight callers; it does not serialize ordinary readers and
// writers against each other, bbolt already does that internally.
func (s *BoltKV) Begin(ctx context.Context, writable bool) (Txn, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	tx, err := s.db.Begin(writable)
	if err != nil {
		return nil, fmt.Errorf("beginning kv transaction: %w", err)
	}
	return &boltTxn{tx: tx, writable: writable}, nil
}

// Compact implements the system `compact` op (spec.md §4.7's
// range_compact over the whole keyspace). bbolt has no in-place vacuum,
// so this is the standard copy-compact idiom: walk every key in the
// data bucket into a freshly created file, then swap it in for the live
// one. It takes the write lock for the whole operation, so it excludes
// new transactions; closing the live bolt.DB before the swap blocks until
// every transaction already in flight has committed or rolled back.
func (s *BoltKV) Compact() (copied int64, err error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	tmpPath := s.path + ".compact.tmp"
	_ = os.Remove(tmpPath)

	dst, err := bolt.Open(tmpPath, 0600, nil)
	if err != nil {
		return 0, fmt.Errorf("opening compaction target: %w", err)
	}

	err = s.db.View(func(srcTx *bolt.Tx) error {
		return dst.Update(func(dstTx *bolt.Tx) error {
			dstBucket, err := dstTx.CreateBucketIfNotExists(dataBucket)
			if err != nil {
				return err
			}
			dstBucket.FillPercent = 0.9
			srcBucket := srcTx.Bucket(dataBucket)
			if srcBucket == nil {
				return nil
			}
			c := srcBucket.Cursor()
			for k, v := c.First(); k != nil; k, v = c.Next() {
				if err := dstBucket.Put(k, v); err != nil {
					return err
				}
				copied++
			}
			return nil
		})
	})
	if err != nil {
		_ = dst.Close()
		_ = os.Remove(tmpPath)
		return 0, fmt.Errorf("copying into compaction target: %w", err)
	}
	if err := dst.Close(); err != nil {
		_ = os.Remove(tmpPath)
		return 0, fmt.Errorf("closing compaction target: %w", err)
	}

	if err := s.db.Close(); err != nil {
		_ = os.Remove(tmpPath)
		return 0, fmt.Errorf("closing live store before swap: %w", err)
	}
	if err := os.Rename(tmpPath, s.path); err != nil {
		return 0, fmt.Errorf("swapping compacted file into place: %w", err)
	}

	newDB, err := bolt.Open(s.path, 0600, nil)
	if err != nil {
		return 0, fmt.Errorf("reopening store after compaction: %w", err)
	}
	s.db = newDB
	return copied, nil
}

type boltTxn struct {
	tx       *bolt.Tx
	writable bool
}

func (t *boltTxn) Writable() bool { return t.writable }

func (t *boltTxn) bucket() *bolt.Bucket {
	return t.tx.Bucket(dataBucket)
}

func (t *boltTxn) Get(key []byte) ([]byte, bool, error) {
	v := t.bucket().Get(key)
	if v == nil {
		return nil, false, nil
	}
	cp := make([]byte, len(v))
	copy(cp, v)
	return cp, true, nil
}

func (t *boltTxn) Put(key, value []byte) error {
	if !t.writable {
		return fmt.Errorf("put on read-only transaction")
	}
	return t.bucket().Put(key, value)
}

func (t *boltTxn) Delete(key []byte) error {
	if !t.writable {
		return fmt.Errorf("delete on read-only transaction")
	}
	return t.bucket().Delete(key)
}

func (t *boltTxn) Scan(lower, upper []byte, fn func(key, value []byte) (bool, error)) error {
	c := t.bucket().Cursor()
	for k, v := c.Seek(lower); k != nil && (upper == nil || bytes.Compare(k, upper) < 0); k, v = c.Next() {
		cont, err := fn(k, v)
		if err != nil {
			return err
		}
		if !cont {
			return nil
		}
	}
	return nil
}

func (t *boltTxn) DeleteRange(lower, upper []byte) error {
	if !t.writable {
		return fmt.Errorf("delete range on read-only transaction")
	}
	b := t.bucket()
	c := b.Cursor()
	var keys [][]byte
	for k, _ := c.Seek(lower); k != nil && (upper == nil || bytes.Compare(k, upper) < 0); k, _ = c.Next() {
		cp := make([]byte, len(k))
		copy(cp, k)
		keys = append(keys, cp)
	}
	for _, k := range keys {
		if err := b.Delete(k); err != nil {
			return err
		}
	}
	return nil
}

// Commit finalizes the transaction. bbolt refuses Commit on a read-only
// transaction, so a read-only Txn is released with Rollback instead.
func (t *boltTxn) Commit() error {
	if !t.writable {
		return t.tx.Rollback()
	}
	return t.tx.Commit()
}

func (t *boltTxn) Rollback() error {
	return t.tx.Rollback()
}
