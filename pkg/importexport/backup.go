package importexport

import (
	"context"
	"fmt"

	"github.com/cuemby/strata/pkg/catalog"
	"github.com/cuemby/strata/pkg/kv"
)

// fullRangeLower is the lower bound of the whole backing keyspace: the
// empty key. Scans pass nil as the upper bound, which every kv.Txn.Scan
// implementation treats as unbounded — together the practical
// equivalent of spec.md's "[ε, [0x01))" full-database range, expressed
// against this module's flat byte keyspace rather than the original's
// internal tuple-tag encoding.
var fullRangeLower = []byte{}

// Backup copies every (key, value) pair of src's full keyspace into a
// fresh on-disk companion store at destPath (§4.6). The companion is a
// second, ordinary instance of the same kv.Store abstraction.
func Backup(ctx context.Context, src kv.Store, destPath string) (copied int64, err error) {
	dest, err := kv.OpenBoltKV(destPath)
	if err != nil {
		return 0, fmt.Errorf("opening backup destination %q: %w", destPath, err)
	}
	defer dest.Close()

	srcTx, err := src.Begin(ctx, false)
	if err != nil {
		return 0, fmt.Errorf("opening backup read transaction: %w", err)
	}
	defer srcTx.Rollback()

	destTx, err := dest.Begin(ctx, true)
	if err != nil {
		return 0, fmt.Errorf("opening backup write transaction: %w", err)
	}

	err = srcTx.Scan(fullRangeLower, nil, func(key, value []byte) (bool, error) {
		if err := destTx.Put(key, value); err != nil {
			return false, err
		}
		copied++
		return true, nil
	})
	if err != nil {
		_ = destTx.Rollback()
		return 0, fmt.Errorf("copying backup range: %w", err)
	}
	if err := destTx.Commit(); err != nil {
		return 0, fmt.Errorf("committing backup: %w", err)
	}
	return copied, nil
}

// Restore copies every (key, value) pair from a backup file at srcPath
// into dest (the inverse of Backup). It refuses if dest already holds
// any relation, since a non-empty destination's relation_store_id is
// nonzero and restoring over live data would silently merge two
// databases' id spaces (§4.6).
func Restore(ctx context.Context, srcPath string, dest kv.Store) (copied int64, err error) {
	destTx, err := dest.Begin(ctx, false)
	if err != nil {
		return 0, fmt.Errorf("checking destination emptiness: %w", err)
	}
	rels, err := catalog.New(destTx).ListRelations()
	_ = destTx.Rollback()
	if err != nil {
		return 0, fmt.Errorf("checking destination emptiness: %w", err)
	}
	if len(rels) != 0 {
		return 0, fmt.Errorf("refusing to restore into a non-empty database (%d relations present)", len(rels))
	}

	src, err := kv.OpenBoltKV(srcPath)
	if err != nil {
		return 0, fmt.Errorf("opening backup source %q: %w", srcPath, err)
	}
	defer src.Close()

	srcTx, err := src.Begin(ctx, false)
	if err != nil {
		return 0, fmt.Errorf("opening restore read transaction: %w", err)
	}
	defer srcTx.Rollback()

	writeTx, err := dest.Begin(ctx, true)
	if err != nil {
		return 0, fmt.Errorf("opening restore write transaction: %w", err)
	}

	err = srcTx.Scan(fullRangeLower, nil, func(key, value []byte) (bool, error) {
		if err := writeTx.Put(key, value); err != nil {
			return false, err
		}
		copied++
		return true, nil
	})
	if err != nil {
		_ = writeTx.Rollback()
		return 0, fmt.Errorf("copying restore range: %w", err)
	}
	if err := writeTx.Commit(); err != nil {
		return 0, fmt.Errorf("committing restore: %w", err)
	}
	return copied, nil
}

// ImportFromBackup reads each named relation's range out of a backup
// file and re-homes it onto destTx's same-named relation, rewriting the
// 8-byte relation-id key prefix to the destination's id via
// AmendKeyPrefix (§4.6). Value bytes carry no relation-id prefix in this
// encoding (types.EncodeTuple has no relation identity in it), so unlike
// the spec's "both key and value" wording there is nothing to amend on
// the value side — it is copied as-is. The backup file is read in a
// read-only transaction that this function rolls back itself; destTx is
// left for the caller to commit once every relation has copied
// successfully, so the whole operation is atomic.
func ImportFromBackup(ctx context.Context, destCat *catalog.Catalog, destTx kv.Txn, srcPath string, names []string) (copied int64, err error) {
	src, err := kv.OpenBoltKV(srcPath)
	if err != nil {
		return 0, fmt.Errorf("opening backup source %q: %w", srcPath, err)
	}
	defer src.Close()

	srcTx, err := src.Begin(ctx, false)
	if err != nil {
		return 0, fmt.Errorf("opening backup read transaction: %w", err)
	}
	defer srcTx.Rollback()
	srcCat := catalog.New(srcTx)

	for _, name := range names {
		srcHandle, err := srcCat.GetRelation(name, false)
		if err != nil {
			return copied, fmt.Errorf("reading %q from backup: %w", name, err)
		}
		destHandle, err := destCat.GetRelation(name, true)
		if err != nil {
			return copied, fmt.Errorf("locating %q in destination: %w", name, err)
		}

		err = srcTx.Scan(srcHandle.LowerBound(), srcHandle.UpperBound(), func(key, value []byte) (bool, error) {
			k := append([]byte{}, key...)
			v := append([]byte{}, value...)
			destHandle.AmendKeyPrefix(k)
			if err := destTx.Put(k, v); err != nil {
				return false, err
			}
			copied++
			return true, nil
		})
		if err != nil {
			return copied, fmt.Errorf("importing %q from backup: %w", name, err)
		}
	}
	return copied, nil
}
