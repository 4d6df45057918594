package catalog

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/cuemby/strata/pkg/dberr"
	"github.com/cuemby/strata/pkg/kv"
	"github.com/cuemby/strata/pkg/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func openTxn(t *testing.T) (kv.Store, kv.Txn) {
	t.Helper()
	store, err := kv.OpenBoltKV(filepath.Join(t.TempDir(), "test.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = store.Close() })
	tx, err := store.Begin(context.Background(), true)
	require.NoError(t, err)
	return store, tx
}

func samplePerson(id types.RelationId) types.RelationHandle {
	return types.RelationHandle{
		Name: "person",
		Id:   id,
		Metadata: types.RelationMetadata{
			Keys:    []types.ColumnDef{{Name: "id", Type: types.TypeString}},
			NonKeys: []types.ColumnDef{{Name: "name", Type: types.TypeString}},
		},
	}
}

func TestCreateGetExists(t *testing.T) {
	_, tx := openTxn(t)
	c := New(tx)

	ok, err := c.RelationExists("person")
	require.NoError(t, err)
	assert.False(t, ok)

	require.NoError(t, c.CreateRelation(samplePerson(1)))

	ok, err = c.RelationExists("person")
	require.NoError(t, err)
	assert.True(t, ok)

	h, err := c.GetRelation("person", false)
	require.NoError(t, err)
	assert.Equal(t, types.RelationId(1), h.Id)
}

func TestCreateConflict(t *testing.T) {
	_, tx := openTxn(t)
	c := New(tx)
	require.NoError(t, c.CreateRelation(samplePerson(1)))

	err := c.CreateRelation(samplePerson(2))
	require.Error(t, err)
	assert.True(t, dberr.Is(err, dberr.CodeStoredRelationConflict))
}

func TestGetMissingFails(t *testing.T) {
	_, tx := openTxn(t)
	c := New(tx)
	_, err := c.GetRelation("ghost", false)
	require.Error(t, err)
	assert.True(t, dberr.Is(err, dberr.CodeStoredRelationNotFound))
}

func TestDestroyReturnsOldRange(t *testing.T) {
	_, tx := openTxn(t)
	c := New(tx)
	h := samplePerson(7)
	require.NoError(t, c.CreateRelation(h))

	lower, upper, err := c.DestroyRelation("person")
	require.NoError(t, err)
	assert.Equal(t, h.LowerBound(), lower)
	assert.Equal(t, h.UpperBound(), upper)

	ok, err := c.RelationExists("person")
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestRenameRelation(t *testing.T) {
	_, tx := openTxn(t)
	c := New(tx)
	require.NoError(t, c.CreateRelation(samplePerson(3)))
	require.NoError(t, c.RenameRelation("person", "people"))

	ok, err := c.RelationExists("person")
	require.NoError(t, err)
	assert.False(t, ok)

	h, err := c.GetRelation("people", false)
	require.NoError(t, err)
	assert.Equal(t, types.RelationId(3), h.Id)
}

func TestSetAccessLevelAndTriggers(t *testing.T) {
	_, tx := openTxn(t)
	c := New(tx)
	require.NoError(t, c.CreateRelation(samplePerson(4)))

	require.NoError(t, c.SetAccessLevel("person", types.AccessReadOnly))
	h, err := c.GetRelation("person", false)
	require.NoError(t, err)
	assert.Equal(t, types.AccessReadOnly, h.AccessLevel)

	require.NoError(t, c.SetRelationTriggers("person", []types.Trigger{"on_put"}, nil, nil))
	h, err = c.GetRelation("person", false)
	require.NoError(t, err)
	assert.Equal(t, []types.Trigger{"on_put"}, h.PutTriggers)
}

func TestListRelations(t *testing.T) {
	_, tx := openTxn(t)
	c := New(tx)
	require.NoError(t, c.CreateRelation(samplePerson(1)))
	require.NoError(t, c.CreateRelation(types.RelationHandle{Name: "zzz_last", Id: 2}))

	list, err := c.ListRelations()
	require.NoError(t, err)
	require.Len(t, list, 2)
	names := []string{list[0].Name, list[1].Name}
	assert.ElementsMatch(t, []string{"person", "zzz_last"}, names)
}
