// Package explain walks a compiled stratified plan into the tabular
// ::explain result described by spec.md §4.5. The per-clause relational-
// algebra stack-walk lives on each dlog.CompiledRuleSet (the compiler
// collaborator's responsibility, per spec.md §1); this package is
// responsible for the surrounding bookkeeping — a stratum-wide clause
// index, per-clause row reversal, and final table assembly — that is the
// same regardless of which compiler produced the rows.
package explain

import "github.com/cuemby/strata/pkg/dlog"

// Headers are the fixed ::explain output columns.
var Headers = []string{"stratum", "rule_idx", "rule", "atom_idx", "op", "ref", "joins_on", "expr", "out_relation"}

// Row is one line of the explain table.
type Row struct {
	Stratum    int
	RuleIdx    int
	Rule       string
	AtomIdx    int
	Op         string
	Ref        string
	JoinsOn    string
	Expr       string
	OutRelation string
}

// Explain walks every stratum's rule sets and assembles the full table.
// rule_idx counts clauses across the whole stratum (not per relation name),
// matching the original's clause_idx: a relation defined by N rules
// contributes N distinct rule_idx groups, one per clause.
func Explain(cp dlog.CompiledProgram) []Row {
	var out []Row
	for stratumIdx, stratum := range cp.Strata() {
		clauseIdx := 0
		rowID := 0
		for _, rs := range stratum {
			clauses := rs.Explain(&rowID, 0)
			for _, raw := range clauses {
				// The algorithm in spec.md §4.5 builds each clause's rows
				// root-first via a stack-walk (a node is emitted before
				// its children are pushed), then reverses that clause's
				// rows so children precede parents in the final table.
				for i, j := 0, len(raw)-1; i < j; i, j = i+1, j-1 {
					raw[i], raw[j] = raw[j], raw[i]
				}
				for atomIdx, r := range raw {
					out = append(out, Row{
						Stratum:     stratumIdx,
						RuleIdx:     clauseIdx,
						Rule:        rs.Name(),
						AtomIdx:     atomIdx,
						Op:          r.OpName,
						Ref:         r.RefName,
						JoinsOn:     joinOn(r.OutBindings),
						Expr:        r.Info,
						OutRelation: rs.Name(),
					})
				}
				clauseIdx++
			}
		}
	}
	return out
}

func joinOn(bindings []string) string {
	if len(bindings) == 0 {
		return ""
	}
	s := bindings[0]
	for _, b := range bindings[1:] {
		s += "," + b
	}
	return s
}

// ToJSONRows renders the table as the {headers, rows} shape every other
// system op in this module produces.
func ToJSONRows(rows []Row) [][]interface{} {
	out := make([][]interface{}, len(rows))
	for i, r := range rows {
		out[i] = []interface{}{r.Stratum, r.RuleIdx, r.Rule, r.AtomIdx, r.Op, r.Ref, r.JoinsOn, r.Expr, r.OutRelation}
	}
	return out
}
