// Package simple is a minimal, reference implementation of the dlog
// collaborator interfaces (spec.md §1 Non-goals: parser/compiler/evaluator
// are external collaborators this module does not own). It supports
// conjunctive joins over literal and stored-relation atoms, negation
// against a strictly lower stratum, and one level of linear recursion via
// semi-naive fixpoint iteration — enough to exercise pkg/session and
// pkg/orchestrator end to end without pulling in a full query compiler.
//
// It deliberately does not implement magic-set rewriting (MagicSetsRewrite
// is an identity pass here): building an adornment-based rewriter is
// exactly the "Datalog compiler proper" work spec.md places out of scope.
// What's left is a naive-but-correct stratified evaluator.
package simple

import (
	"fmt"
	"sort"

	"github.com/cuemby/strata/pkg/dberr"
	"github.com/cuemby/strata/pkg/dlog"
	"github.com/cuemby/strata/pkg/poison"
	"github.com/cuemby/strata/pkg/types"
)

// Term is either a bound variable or a constant.
type Term struct {
	Var   string
	Const types.DataValue
	IsVar bool
}

func Var(name string) Term          { return Term{Var: name, IsVar: true} }
func Const(v types.DataValue) Term { return Term{Const: v} }

// Atom is one body or head literal: a relation name applied to terms.
type Atom struct {
	Relation string
	Args     []Term
	Negated  bool // only meaningful in rule bodies
}

// Rule is one `head :- body...` clause. Multiple rules may share a head
// relation name (union semantics, as in ordinary Datalog).
type Rule struct {
	Head Atom
	Body []Atom
}

// Program is a named set of rules plus the designated entry rule.
type Program struct {
	Rules     map[string][]Rule
	EntryName string
	headCols  map[string][]string
}

// NewProgram builds a Program, deriving each relation's column names from
// the variable names of its first rule's head atom.
func NewProgram(entry string, rules []Rule) *Program {
	p := &Program{Rules: map[string][]Rule{}, EntryName: entry, headCols: map[string][]string{}}
	for _, r := range rules {
		p.Rules[r.Head.Relation] = append(p.Rules[r.Head.Relation], r)
		if _, ok := p.headCols[r.Head.Relation]; !ok {
			cols := make([]string, len(r.Head.Args))
			for i, a := range r.Head.Args {
				if a.IsVar {
					cols[i] = a.Var
				} else {
					cols[i] = fmt.Sprintf("_%d", i)
				}
			}
			p.headCols[r.Head.Relation] = cols
		}
	}
	return p
}

// Stratify implements dlog.NormalizedProgram. Strata are computed from the
// rule dependency graph: a rule referencing another relation negated must
// land in a strictly higher stratum than that relation's own rules. Cycles
// through negation are rejected; cycles through plain (non-negated)
// references collapse into one stratum and are evaluated by fixpoint.
func (p *Program) Stratify() (dlog.StratifiedProgram, error) {
	stratumOf := map[string]int{}
	for name := range p.Rules {
		stratumOf[name] = 0
	}
	changed := true
	for iter := 0; changed; iter++ {
		if iter > len(p.Rules)+1 {
			return nil, dberr.New(dberr.CodeImportBadData, "stratification did not converge, negation cycle suspected")
		}
		changed = false
		for name, rules := range p.Rules {
			for _, r := range rules {
				for _, b := range r.Body {
					dep, ok := stratumOf[b.Relation]
					if !ok {
						continue // stored relation or EDB, stratum 0 by definition
					}
					want := dep
					if b.Negated {
						want = dep + 1
					}
					if want > stratumOf[name] {
						stratumOf[name] = want
						changed = true
					}
				}
			}
		}
	}
	return &stratified{prog: p, stratumOf: stratumOf}, nil
}

type stratified struct {
	prog      *Program
	stratumOf map[string]int
}

// MagicSetsRewrite is an identity pass (see package doc).
func (s *stratified) MagicSetsRewrite(lookup dlog.RelationLookup) (dlog.MagicProgram, error) {
	return &magic{stratified: s, lookup: lookup}, nil
}

type magic struct {
	*stratified
	lookup dlog.RelationLookup
}

func (m *magic) EntryHead() types.EntryHead {
	return types.EntryHead(m.prog.headCols[m.prog.EntryName])
}

// compiledProgram groups rules by stratum, in ascending evaluation order.
type compiledProgram struct {
	strata  [][]dlog.CompiledRuleSet
	byName  map[string][]Rule
	entry   string
	order   []string // relation names grouped by stratum, flattened for Strata()
}

func (c *compiledProgram) Strata() [][]dlog.CompiledRuleSet { return c.strata }

type compiledRuleSet struct {
	name  string
	rules []Rule
}

func (c *compiledRuleSet) Name() string { return c.name }

func (c *compiledRuleSet) Explain(rowID *int, depth int) [][]dlog.ExplainRow {
	// No rule in dlog/simple ever carries an aggregator (aggregation
	// belongs to the excluded compiler surface), so every clause's output
	// row is plain "out". Each clause gets its own row and its own tree —
	// a relation with N rules (union semantics) produces N independent
	// row groups, never one row group merging every clause's atoms.
	out := make([][]dlog.ExplainRow, 0, len(c.rules))
	for _, r := range c.rules {
		id := *rowID
		*rowID++
		row := dlog.ExplainRow{ID: id, OpName: "out", RefName: c.name, Info: fmt.Sprintf("%d atom(s)", len(r.Body))}
		rows := []dlog.ExplainRow{row}
		for _, b := range r.Body {
			bid := *rowID
			*rowID++
			op := "load_stored"
			if b.Negated {
				op = "filter_not"
			}
			var bindings []string
			for _, a := range b.Args {
				if a.IsVar {
					bindings = append(bindings, a.Var)
				}
			}
			rows = append(rows, dlog.ExplainRow{ID: bid, ParentIDs: []int{id}, OpName: op, RefName: b.Relation, OutBindings: bindings})
		}
		out = append(out, rows)
	}
	return out
}

// Compiler is the reference dlog.Compiler: it simply groups rules by
// computed stratum. No auxiliary stores are introduced because magic-set
// rewriting never ran; the returned metadata slice is always empty.
type Compiler struct{}

func (Compiler) Compile(mp dlog.MagicProgram, lookup dlog.RelationLookup) (dlog.CompiledProgram, []types.RelationMetadata, error) {
	m, ok := mp.(*magic)
	if !ok {
		return nil, nil, dberr.New(dberr.CodeImportBadData, "simple compiler given a foreign MagicProgram")
	}
	maxStratum := 0
	for _, s := range m.stratumOf {
		if s > maxStratum {
			maxStratum = s
		}
	}
	byStratum := make([][]string, maxStratum+1)
	for name, s := range m.stratumOf {
		byStratum[s] = append(byStratum[s], name)
	}
	for _, names := range byStratum {
		sort.Strings(names)
	}
	strata := make([][]dlog.CompiledRuleSet, 0, len(byStratum))
	for _, names := range byStratum {
		var sets []dlog.CompiledRuleSet
		for _, name := range names {
			sets = append(sets, &compiledRuleSet{name: name, rules: m.prog.Rules[name]})
		}
		if len(sets) > 0 {
			strata = append(strata, sets)
		}
	}
	return &compiledProgram{strata: strata, byName: m.prog.Rules, entry: m.prog.EntryName}, nil, nil
}
