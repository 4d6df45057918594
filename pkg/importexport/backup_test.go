package importexport

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/cuemby/strata/pkg/catalog"
	"github.com/cuemby/strata/pkg/kv"
	"github.com/cuemby/strata/pkg/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func openStore(t *testing.T) kv.Store {
	t.Helper()
	store, err := kv.OpenBoltKV(filepath.Join(t.TempDir(), "test.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = store.Close() })
	return store
}

func createPerson(t *testing.T, store kv.Store, id types.RelationId, rows []types.Tuple) {
	t.Helper()
	ctx := context.Background()
	tx, err := store.Begin(ctx, true)
	require.NoError(t, err)
	h := types.RelationHandle{Name: "person", Id: id, Metadata: personMeta()}
	require.NoError(t, catalog.New(tx).CreateRelation(h))
	nk := len(h.Metadata.Keys)
	for _, row := range rows {
		key := h.EncodeKey(row[:nk])
		val := h.EncodeValue(row[nk:])
		require.NoError(t, tx.Put(key, val))
	}
	require.NoError(t, tx.Commit())
}

func TestBackupThenRestoreRoundTrips(t *testing.T) {
	src := openStore(t)
	createPerson(t, src, 1, []types.Tuple{{types.Str("a"), types.Str("Alice")}})

	destPath := filepath.Join(t.TempDir(), "backup.db")
	copied, err := Backup(context.Background(), src, destPath)
	require.NoError(t, err)
	assert.Greater(t, copied, int64(0))

	dest := openStore(t)
	restored, err := Restore(context.Background(), destPath, dest)
	require.NoError(t, err)
	assert.Equal(t, copied, restored)

	tx, err := dest.Begin(context.Background(), false)
	require.NoError(t, err)
	defer tx.Rollback()
	h, err := catalog.New(tx).GetRelation("person", false)
	require.NoError(t, err)
	var n int
	require.NoError(t, tx.Scan(h.LowerBound(), h.UpperBound(), func(k, v []byte) (bool, error) {
		n++
		return true, nil
	}))
	assert.Equal(t, 1, n)
}

func TestRestoreRefusesNonEmptyDestination(t *testing.T) {
	src := openStore(t)
	createPerson(t, src, 1, []types.Tuple{{types.Str("a"), types.Str("Alice")}})
	destPath := filepath.Join(t.TempDir(), "backup.db")
	_, err := Backup(context.Background(), src, destPath)
	require.NoError(t, err)

	dest := openStore(t)
	createPerson(t, dest, 1, nil)

	_, err = Restore(context.Background(), destPath, dest)
	require.Error(t, err)
}

func TestImportFromBackupRewritesRelationIdPrefix(t *testing.T) {
	src := openStore(t)
	createPerson(t, src, 5, []types.Tuple{{types.Str("a"), types.Str("Alice")}})
	backupPath := filepath.Join(t.TempDir(), "backup.db")
	_, err := Backup(context.Background(), src, backupPath)
	require.NoError(t, err)

	dest := openStore(t)
	createPerson(t, dest, 9, nil)

	ctx := context.Background()
	destTx, err := dest.Begin(ctx, true)
	require.NoError(t, err)
	destCat := catalog.New(destTx)

	copied, err := ImportFromBackup(ctx, destCat, destTx, backupPath, []string{"person"})
	require.NoError(t, err)
	assert.Equal(t, int64(1), copied)
	require.NoError(t, destTx.Commit())

	checkTx, err := dest.Begin(ctx, false)
	require.NoError(t, err)
	defer checkTx.Rollback()
	h, err := catalog.New(checkTx).GetRelation("person", false)
	require.NoError(t, err)
	assert.Equal(t, types.RelationId(9), h.Id)

	var n int
	require.NoError(t, checkTx.Scan(h.LowerBound(), h.UpperBound(), func(k, v []byte) (bool, error) {
		n++
		return true, nil
	}))
	assert.Equal(t, 1, n)
}
