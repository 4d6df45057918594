package importexport

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/cuemby/strata/pkg/dlog/simple"
	"github.com/cuemby/strata/pkg/kv"
	"github.com/cuemby/strata/pkg/session"
	"github.com/cuemby/strata/pkg/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type seqAllocator struct{ n uint64 }

func (a *seqAllocator) Next() types.RelationId {
	a.n++
	return types.RelationId(a.n)
}

func newTestSession(t *testing.T) *session.SessionTx {
	t.Helper()
	store, err := kv.OpenBoltKV(filepath.Join(t.TempDir(), "test.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = store.Close() })
	tx, err := store.Begin(context.Background(), true)
	require.NoError(t, err)
	return session.New(tx, &seqAllocator{}, session.Deps{Compiler: simple.Compiler{}})
}

func personMeta() types.RelationMetadata {
	return types.RelationMetadata{
		Keys:    []types.ColumnDef{{Name: "id", Type: types.TypeString}},
		NonKeys: []types.ColumnDef{{Name: "name", Type: types.TypeString}},
	}
}

func TestExportAsObjects(t *testing.T) {
	s := newTestSession(t)
	meta := personMeta()
	rows := []types.Tuple{
		{types.Str("a"), types.Str("Alice")},
		{types.Str("b"), types.Str("Bob")},
	}
	_, err := s.ExecuteRelation(rows, types.OpCreate, meta, "person", nil)
	require.NoError(t, err)

	out, err := Export(s, []string{"person"}, true)
	require.NoError(t, err)

	objs, ok := out["person"].([]map[string]interface{})
	require.True(t, ok)
	require.Len(t, objs, 2)
	assert.Equal(t, "a", objs[0]["id"])
	assert.Equal(t, "Alice", objs[0]["name"])
}

func TestExportAsTable(t *testing.T) {
	s := newTestSession(t)
	meta := personMeta()
	rows := []types.Tuple{{types.Str("a"), types.Str("Alice")}}
	_, err := s.ExecuteRelation(rows, types.OpCreate, meta, "person", nil)
	require.NoError(t, err)

	out, err := Export(s, []string{"person"}, false)
	require.NoError(t, err)

	table, ok := out["person"].(map[string]interface{})
	require.True(t, ok)
	assert.Equal(t, []string{"id", "name"}, table["headers"])
	rowsOut, ok := table["rows"].([][]interface{})
	require.True(t, ok)
	require.Len(t, rowsOut, 1)
	assert.Equal(t, []interface{}{"a", "Alice"}, rowsOut[0])
}

func TestExportMissingRelationFails(t *testing.T) {
	s := newTestSession(t)
	_, err := Export(s, []string{"ghost"}, true)
	require.Error(t, err)
}
