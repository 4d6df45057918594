package simple

import (
	"sort"
	"testing"

	"github.com/cuemby/strata/pkg/poison"
	"github.com/cuemby/strata/pkg/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// edgeRows returns the stored "edge" relation shared by the recursion and negation
// tests below: a -> b -> c, plus a disconnected d -> e.
func edgeRows() []types.Tuple {
	return []types.Tuple{
		{types.Str("a"), types.Str("b")},
		{types.Str("b"), types.Str("c")},
		{types.Str("d"), types.Str("e")},
	}
}

func storedFrom(rows map[string][]types.Tuple) StoredLookup {
	return func(name string) ([]types.Tuple, bool, error) {
		r, ok := rows[name]
		return r, ok, nil
	}
}

func runProgram(t *testing.T, prog *Program, stored StoredLookup) []types.Tuple {
	t.Helper()
	strat, err := prog.Stratify()
	require.NoError(t, err)
	magic, err := strat.MagicSetsRewrite(nil)
	require.NoError(t, err)
	compiled, stores, err := (Compiler{}).Compile(magic, nil)
	require.NoError(t, err)
	eval := &Evaluator{Stored: stored}
	result, _, err := eval.Evaluate(compiled, stores, nil, nil, poison.New())
	require.NoError(t, err)
	var rows []types.Tuple
	require.NoError(t, result.ScanAll(func(t types.Tuple) (bool, error) {
		rows = append(rows, t)
		return true, nil
	}))
	return rows
}

func tupleStrings(rows []types.Tuple) []string {
	out := make([]string, len(rows))
	for i, r := range rows {
		out[i] = r[0].String() + "," + r[1].String()
	}
	sort.Strings(out)
	return out
}

func TestTransitiveClosureRecursion(t *testing.T) {
	// reach(X, Y) :- edge(X, Y).
	// reach(X, Y) :- edge(X, Z), reach(Z, Y).
	prog := NewProgram("reach", []Rule{
		{Head: Atom{Relation: "reach", Args: []Term{Var("X"), Var("Y")}},
			Body: []Atom{{Relation: "edge", Args: []Term{Var("X"), Var("Y")}}}},
		{Head: Atom{Relation: "reach", Args: []Term{Var("X"), Var("Y")}},
			Body: []Atom{
				{Relation: "edge", Args: []Term{Var("X"), Var("Z")}},
				{Relation: "reach", Args: []Term{Var("Z"), Var("Y")}},
			}},
	})
	rows := runProgram(t, prog, storedFrom(map[string][]types.Tuple{"edge": edgeRows()}))
	assert.ElementsMatch(t, []string{"a,b", "a,c", "b,c", "d,e"}, tupleStrings(rows))
}

func TestNegationAgainstLowerStratum(t *testing.T) {
	// has_target(X) :- edge(X, _).
	// isolated(X) :- node(X), not has_target(X).
	prog := NewProgram("isolated", []Rule{
		{Head: Atom{Relation: "has_target", Args: []Term{Var("X")}},
			Body: []Atom{{Relation: "edge", Args: []Term{Var("X"), Var("_")}}}},
		{Head: Atom{Relation: "isolated", Args: []Term{Var("X")}},
			Body: []Atom{
				{Relation: "node", Args: []Term{Var("X")}},
				{Relation: "has_target", Args: []Term{Var("X")}, Negated: true},
			}},
	})
	stored := storedFrom(map[string][]types.Tuple{
		"edge": edgeRows(),
		"node": {{types.Str("a")}, {types.Str("c")}, {types.Str("z")}},
	})
	rows := runProgram(t, prog, stored)
	var got []string
	for _, r := range rows {
		got = append(got, r[0].String())
	}
	sort.Strings(got)
	assert.Equal(t, []string{"c", "z"}, got)
}

func TestStratifyRejectsNegationCycle(t *testing.T) {
	prog := NewProgram("p", []Rule{
		{Head: Atom{Relation: "p", Args: []Term{Var("X")}},
			Body: []Atom{{Relation: "q", Args: []Term{Var("X")}, Negated: true}}},
		{Head: Atom{Relation: "q", Args: []Term{Var("X")}},
			Body: []Atom{{Relation: "p", Args: []Term{Var("X")}, Negated: true}}},
	})
	_, err := prog.Stratify()
	assert.Error(t, err)
}

func TestConstantArgsFilter(t *testing.T) {
	// bob_friends(Y) :- friend("bob", Y).  -- a constant argument in a body
	// atom filters the stored rows; comparison operators belong to the
	// excluded compiler/evaluator surface.
	prog := NewProgram("bob_friends", []Rule{
		{Head: Atom{Relation: "bob_friends", Args: []Term{Var("Y")}},
			Body: []Atom{{Relation: "friend", Args: []Term{Const(types.Str("bob")), Var("Y")}}}},
	})
	stored := storedFrom(map[string][]types.Tuple{
		"friend": {
			{types.Str("bob"), types.Str("ann")},
			{types.Str("carl"), types.Str("dee")},
		},
	})
	rows := runProgram(t, prog, stored)
	require.Len(t, rows, 1)
	assert.Equal(t, "ann", rows[0][0].String())
}
