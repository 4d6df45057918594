package engine

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/cuemby/strata/pkg/dlog/simple"
	"github.com/cuemby/strata/pkg/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func openTestDB(t *testing.T) *Database {
	t.Helper()
	db, err := Open(filepath.Join(t.TempDir(), "test.db"), nil)
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })
	return db
}

func friendMeta() types.RelationMetadata {
	return types.RelationMetadata{
		Keys:    []types.ColumnDef{{Name: "from", Type: types.TypeString}},
		NonKeys: []types.ColumnDef{{Name: "to", Type: types.TypeString}},
	}
}

func createFriendStmt() types.InputProgram {
	prog := simple.NewProgram("friend", nil)
	return types.InputProgram{
		Rules:     prog,
		EntryRule: "friend",
		EntryHead: types.EntryHead{"from", "to"},
		OutOpts: types.OutOpts{
			StoreRelation: &types.StoreRelationDirective{Op: types.OpCreate, Name: "friend", Meta: friendMeta()},
		},
	}
}

func putFriendStmt(from, to string) types.InputProgram {
	prog := simple.NewProgram("input", []simple.Rule{
		{Head: simple.Atom{Relation: "input", Args: []simple.Term{simple.Const(types.Str(from)), simple.Const(types.Str(to))}}},
	})
	return types.InputProgram{
		Rules:     prog,
		EntryRule: "input",
		EntryHead: types.EntryHead{"from", "to"},
		OutOpts: types.OutOpts{
			StoreRelation: &types.StoreRelationDirective{Op: types.OpPut, Name: "friend", Meta: friendMeta()},
		},
	}
}

func queryFriendOfBobStmt() types.InputProgram {
	prog := simple.NewProgram("friends_of_bob", []simple.Rule{
		{Head: simple.Atom{Relation: "friends_of_bob", Args: []simple.Term{simple.Var("Y")}},
			Body: []simple.Atom{{Relation: "friend", Args: []simple.Term{simple.Const(types.Str("bob")), simple.Var("Y")}}}},
	})
	return types.InputProgram{
		Rules:     prog,
		EntryRule: "friends_of_bob",
		EntryHead: types.EntryHead{"name"},
	}
}

func TestOpenSeedsAllocatorAndRunScriptCreatesRelation(t *testing.T) {
	db := openTestDB(t)
	ctx := context.Background()

	res, err := db.RunScript(ctx, []types.InputProgram{createFriendStmt()})
	require.NoError(t, err)
	assert.True(t, res.Ok)

	n, err := db.RelationCount()
	require.NoError(t, err)
	assert.Equal(t, 1, n)
}

func TestRunScriptPutThenQuery(t *testing.T) {
	db := openTestDB(t)
	ctx := context.Background()

	_, err := db.RunScript(ctx, []types.InputProgram{createFriendStmt()})
	require.NoError(t, err)
	_, err = db.RunScript(ctx, []types.InputProgram{putFriendStmt("bob", "ann")})
	require.NoError(t, err)

	res, err := db.RunScript(ctx, []types.InputProgram{queryFriendOfBobStmt()})
	require.NoError(t, err)
	require.Len(t, res.Rows, 1)
	assert.Equal(t, "ann", res.Rows[0][0])
}

func TestRunScriptAssertSomeOnEmptyResultReturnsError(t *testing.T) {
	db := openTestDB(t)
	ctx := context.Background()
	_, err := db.RunScript(ctx, []types.InputProgram{createFriendStmt()})
	require.NoError(t, err)

	stmt := queryFriendOfBobStmt()
	stmt.OutOpts.Assertion = &types.QueryAssertion{Kind: types.AssertSome}
	_, err = db.RunScript(ctx, []types.InputProgram{stmt})
	require.Error(t, err)
}

func TestListRelationsAndRemoveRelation(t *testing.T) {
	db := openTestDB(t)
	ctx := context.Background()
	_, err := db.RunScript(ctx, []types.InputProgram{createFriendStmt()})
	require.NoError(t, err)

	listed, err := db.ListRelations(ctx)
	require.NoError(t, err)
	require.Len(t, listed.Rows, 1)
	assert.Equal(t, "friend", listed.Rows[0][0])

	_, err = db.RemoveRelation(ctx, []string{"friend"})
	require.NoError(t, err)

	n, err := db.RelationCount()
	require.NoError(t, err)
	assert.Equal(t, 0, n)
}

func TestRenameRelation(t *testing.T) {
	db := openTestDB(t)
	ctx := context.Background()
	_, err := db.RunScript(ctx, []types.InputProgram{createFriendStmt()})
	require.NoError(t, err)

	_, err = db.RenameRelation(ctx, [][2]string{{"friend", "buddy"}})
	require.NoError(t, err)

	res, err := db.ListRelation(ctx, "buddy")
	require.NoError(t, err)
	assert.Len(t, res.Rows, 2)
}

func TestSetAccessLevel(t *testing.T) {
	db := openTestDB(t)
	ctx := context.Background()
	_, err := db.RunScript(ctx, []types.InputProgram{createFriendStmt()})
	require.NoError(t, err)

	_, err = db.SetAccessLevel(ctx, []string{"friend"}, types.AccessReadOnly)
	require.NoError(t, err)

	listed, err := db.ListRelations(ctx)
	require.NoError(t, err)
	assert.Equal(t, "read_only", listed.Rows[0][2])
}

func TestListAndKillRunningOnIdleRegistry(t *testing.T) {
	db := openTestDB(t)
	listed := db.ListRunning()
	assert.Empty(t, listed.Rows)

	res := db.KillRunning(999)
	assert.Equal(t, "NOT_FOUND", res.Rows[0][0])
}

func TestCompactOnEmptyStore(t *testing.T) {
	db := openTestDB(t)
	res, err := db.Compact(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "OK", res.Rows[0][0])
}

func TestExplainRendersTable(t *testing.T) {
	db := openTestDB(t)
	ctx := context.Background()
	_, err := db.RunScript(ctx, []types.InputProgram{createFriendStmt()})
	require.NoError(t, err)

	res, err := db.Explain(ctx, queryFriendOfBobStmt())
	require.NoError(t, err)
	assert.NotEmpty(t, res.Headers)
}
