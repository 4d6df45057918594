package explain

import (
	"testing"

	"github.com/cuemby/strata/pkg/dlog/simple"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestExplainProducesOutRowPerRule(t *testing.T) {
	prog := simple.NewProgram("reach", []simple.Rule{
		{Head: simple.Atom{Relation: "reach", Args: []simple.Term{simple.Var("X"), simple.Var("Y")}},
			Body: []simple.Atom{{Relation: "edge", Args: []simple.Term{simple.Var("X"), simple.Var("Y")}}}},
	})
	strat, err := prog.Stratify()
	require.NoError(t, err)
	magic, err := strat.MagicSetsRewrite(nil)
	require.NoError(t, err)
	compiled, _, err := (simple.Compiler{}).Compile(magic, nil)
	require.NoError(t, err)

	rows := Explain(compiled)
	require.NotEmpty(t, rows)

	var outRows, scanRows int
	for _, r := range rows {
		switch r.Op {
		case "out":
			outRows++
		case "load_stored":
			scanRows++
		}
	}
	assert.Equal(t, 1, outRows)
	assert.Equal(t, 1, scanRows)

	json := ToJSONRows(rows)
	assert.Len(t, json, len(rows))
}

func TestExplainProducesOneOutRowPerClause(t *testing.T) {
	// reach(X, Y) :- edge(X, Y).
	// reach(X, Y) :- edge(X, Z), reach(Z, Y).
	prog := simple.NewProgram("reach", []simple.Rule{
		{Head: simple.Atom{Relation: "reach", Args: []simple.Term{simple.Var("X"), simple.Var("Y")}},
			Body: []simple.Atom{{Relation: "edge", Args: []simple.Term{simple.Var("X"), simple.Var("Y")}}}},
		{Head: simple.Atom{Relation: "reach", Args: []simple.Term{simple.Var("X"), simple.Var("Y")}},
			Body: []simple.Atom{
				{Relation: "edge", Args: []simple.Term{simple.Var("X"), simple.Var("Z")}},
				{Relation: "reach", Args: []simple.Term{simple.Var("Z"), simple.Var("Y")}},
			}},
	})
	strat, err := prog.Stratify()
	require.NoError(t, err)
	magic, err := strat.MagicSetsRewrite(nil)
	require.NoError(t, err)
	compiled, _, err := (simple.Compiler{}).Compile(magic, nil)
	require.NoError(t, err)

	rows := Explain(compiled)
	require.NotEmpty(t, rows)

	var outRows int
	ruleIdxs := map[int]bool{}
	for _, r := range rows {
		if r.Op == "out" {
			outRows++
			ruleIdxs[r.RuleIdx] = true
		}
	}
	assert.Equal(t, 2, outRows, "one out row per clause, not one per relation name")
	assert.Len(t, ruleIdxs, 2, "each clause gets its own rule_idx")
}
