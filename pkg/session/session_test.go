package session

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/cuemby/strata/pkg/dlog/simple"
	"github.com/cuemby/strata/pkg/kv"
	"github.com/cuemby/strata/pkg/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type seqAllocator struct{ n uint64 }

func (a *seqAllocator) Next() types.RelationId {
	a.n++
	return types.RelationId(a.n)
}

func newTestSession(t *testing.T) *SessionTx {
	t.Helper()
	store, err := kv.OpenBoltKV(filepath.Join(t.TempDir(), "test.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = store.Close() })
	tx, err := store.Begin(context.Background(), true)
	require.NoError(t, err)
	return New(tx, &seqAllocator{}, Deps{Compiler: simple.Compiler{}})
}

func TestExecuteRelationCreateThenPut(t *testing.T) {
	s := newTestSession(t)
	meta := types.RelationMetadata{
		Keys:    []types.ColumnDef{{Name: "id", Type: types.TypeString}},
		NonKeys: []types.ColumnDef{{Name: "name", Type: types.TypeString}},
	}
	rows := []types.Tuple{{types.Str("a"), types.Str("A")}}
	_, err := s.ExecuteRelation(rows, types.OpCreate, meta, "person", nil)
	require.NoError(t, err)

	exists, err := s.RelationExists("person")
	require.NoError(t, err)
	assert.True(t, exists)

	more := []types.Tuple{{types.Str("b"), types.Str("B")}}
	_, err = s.ExecuteRelation(more, types.OpPut, meta, "person", nil)
	require.NoError(t, err)

	h, err := s.GetRelation("person", false)
	require.NoError(t, err)
	var count int
	require.NoError(t, s.Txn().Scan(h.LowerBound(), h.UpperBound(), func(k, v []byte) (bool, error) {
		count++
		return true, nil
	}))
	assert.Equal(t, 2, count)
}

func TestExecuteRelationReplaceReturnsOldRange(t *testing.T) {
	s := newTestSession(t)
	meta := types.RelationMetadata{Keys: []types.ColumnDef{{Name: "id", Type: types.TypeString}}}
	_, err := s.ExecuteRelation([]types.Tuple{{types.Str("a")}}, types.OpCreate, meta, "r", nil)
	require.NoError(t, err)

	cleanups, err := s.ExecuteRelation([]types.Tuple{{types.Str("c")}}, types.OpReplace, meta, "r", nil)
	require.NoError(t, err)
	require.Len(t, cleanups, 1)

	h, err := s.GetRelation("r", false)
	require.NoError(t, err)
	var rows []types.Tuple
	require.NoError(t, s.Txn().Scan(h.LowerBound(), h.UpperBound(), func(k, v []byte) (bool, error) {
		key, err := types.DecodeTuple(k[8:], 1)
		require.NoError(t, err)
		rows = append(rows, key)
		return true, nil
	}))
	require.Len(t, rows, 1)
	assert.Equal(t, "c", rows[0][0].String())
}

func TestSortAndCollectOrdersByColumn(t *testing.T) {
	s := newTestSession(t)
	rows := []types.Tuple{{types.Int(3)}, {types.Int(1)}, {types.Int(2)}}
	result := &fakeRelation{rows: rows}
	out, err := s.SortAndCollect(result, []types.Sorter{{Column: "n", Direction: types.Ascending}}, types.EntryHead{"n"})
	require.NoError(t, err)
	require.Len(t, out, 3)
	assert.Equal(t, int64(1), out[0][0].I)
	assert.Equal(t, int64(2), out[1][0].I)
	assert.Equal(t, int64(3), out[2][0].I)
}

type fakeRelation struct {
	rows []types.Tuple
}

func (f *fakeRelation) ScanAll(fn func(types.Tuple) (bool, error)) error {
	for _, r := range f.rows {
		cont, err := fn(r)
		if err != nil {
			return err
		}
		if !cont {
			return nil
		}
	}
	return nil
}
func (f *fakeRelation) EarlyReturn() bool { return false }

func TestLoadLastRelationStoreId(t *testing.T) {
	s := newTestSession(t)
	meta := types.RelationMetadata{Keys: []types.ColumnDef{{Name: "id", Type: types.TypeString}}}
	_, err := s.ExecuteRelation(nil, types.OpCreate, meta, "a", nil)
	require.NoError(t, err)
	_, err = s.ExecuteRelation(nil, types.OpCreate, meta, "b", nil)
	require.NoError(t, err)

	id, err := s.LoadLastRelationStoreId()
	require.NoError(t, err)
	assert.Equal(t, types.RelationId(2), id)
}
