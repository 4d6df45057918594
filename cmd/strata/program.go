package main

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/cuemby/strata/pkg/dlog/simple"
	"github.com/cuemby/strata/pkg/types"
)

// wireProgram is the JSON encoding `strata run`/`strata explain` accept in
// place of script text: this module owns no script parser (spec.md §1
// treats it as an external collaborator), so the CLI speaks the same rule
// shape dlog/simple.Rule already exports, rather than inventing a second
// Datalog surface syntax of its own.
type wireProgram struct {
	Rules   []wireRule    `json:"rules"`
	Entry   string        `json:"entry"`
	OutOpts wireOutOpts   `json:"out_opts"`
}

type wireRule struct {
	Head wireAtom   `json:"head"`
	Body []wireAtom `json:"body"`
}

type wireAtom struct {
	Relation string     `json:"relation"`
	Args     []wireTerm `json:"args"`
	Negated  bool       `json:"negated,omitempty"`
}

type wireTerm struct {
	Var   string      `json:"var,omitempty"`
	Const interface{} `json:"const,omitempty"`
}

type wireSorter struct {
	Column    string `json:"column"`
	Direction string `json:"direction"` // "asc" or "desc"
}

type wireStoreRelation struct {
	Name string            `json:"name"`
	Op   string            `json:"op"` // create, replace, put, rm, ensure, ensure_not
	Keys []wireColumn      `json:"keys"`
	NonKeys []wireColumn   `json:"non_keys"`
}

type wireColumn struct {
	Name    string `json:"name"`
	Type    string `json:"type"`
	Default string `json:"default,omitempty"`
}

type wireOutOpts struct {
	Sorters        []wireSorter       `json:"sorters,omitempty"`
	Limit          *int               `json:"limit,omitempty"`
	Offset         *int               `json:"offset,omitempty"`
	StoreRelation  *wireStoreRelation `json:"store_relation,omitempty"`
	AssertNone     bool               `json:"assert_none,omitempty"`
	AssertSome     bool               `json:"assert_some,omitempty"`
	TimeoutSeconds *float64           `json:"timeout_seconds,omitempty"`
	SleepSeconds   *float64           `json:"sleep_seconds,omitempty"`
}

func loadProgramFile(path string) (types.InputProgram, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return types.InputProgram{}, fmt.Errorf("reading program file %q: %w", path, err)
	}
	var wp wireProgram
	if err := json.Unmarshal(raw, &wp); err != nil {
		return types.InputProgram{}, fmt.Errorf("parsing program file %q: %w", path, err)
	}
	return wp.toInputProgram()
}

func (wp wireProgram) toInputProgram() (types.InputProgram, error) {
	rules := make([]simple.Rule, len(wp.Rules))
	for i, wr := range wp.Rules {
		rules[i] = simple.Rule{Head: wr.Head.toAtom(), Body: toAtoms(wr.Body)}
	}
	prog := simple.NewProgram(wp.Entry, rules)

	var entryHead types.EntryHead
	for _, r := range rules {
		if r.Head.Relation == wp.Entry {
			entryHead = make(types.EntryHead, len(r.Head.Args))
			for i, a := range r.Head.Args {
				if a.IsVar {
					entryHead[i] = a.Var
				} else {
					entryHead[i] = fmt.Sprintf("_%d", i)
				}
			}
			break
		}
	}

	outOpts, err := wp.OutOpts.toOutOpts()
	if err != nil {
		return types.InputProgram{}, err
	}

	return types.InputProgram{
		Rules:     prog,
		EntryRule: wp.Entry,
		EntryHead: entryHead,
		OutOpts:   outOpts,
	}, nil
}

func (wa wireAtom) toAtom() simple.Atom {
	return simple.Atom{Relation: wa.Relation, Args: toTerms(wa.Args), Negated: wa.Negated}
}

func toAtoms(was []wireAtom) []simple.Atom {
	atoms := make([]simple.Atom, len(was))
	for i, wa := range was {
		atoms[i] = wa.toAtom()
	}
	return atoms
}

func toTerms(wts []wireTerm) []simple.Term {
	terms := make([]simple.Term, len(wts))
	for i, wt := range wts {
		if wt.Var != "" {
			terms[i] = simple.Var(wt.Var)
		} else {
			terms[i] = simple.Const(types.FromJSON(wt.Const))
		}
	}
	return terms
}

func (wo wireOutOpts) toOutOpts() (types.OutOpts, error) {
	opts := types.OutOpts{Limit: wo.Limit, Offset: wo.Offset, TimeoutSeconds: wo.TimeoutSeconds, SleepSeconds: wo.SleepSeconds}

	sorters := make([]types.Sorter, len(wo.Sorters))
	for i, ws := range wo.Sorters {
		dir := types.Ascending
		if ws.Direction == "desc" {
			dir = types.Descending
		}
		sorters[i] = types.Sorter{Column: ws.Column, Direction: dir}
	}
	opts.Sorters = sorters

	if wo.AssertNone {
		opts.Assertion = &types.QueryAssertion{Kind: types.AssertNone}
	} else if wo.AssertSome {
		opts.Assertion = &types.QueryAssertion{Kind: types.AssertSome}
	}

	if wo.StoreRelation != nil {
		dir, err := wo.StoreRelation.toDirective()
		if err != nil {
			return types.OutOpts{}, err
		}
		opts.StoreRelation = dir
	}
	return opts, nil
}

func (wsr wireStoreRelation) toDirective() (*types.StoreRelationDirective, error) {
	var op types.StoreRelationOp
	switch wsr.Op {
	case "create":
		op = types.OpCreate
	case "replace":
		op = types.OpReplace
	case "put":
		op = types.OpPut
	case "rm":
		op = types.OpRm
	case "ensure":
		op = types.OpEnsure
	case "ensure_not":
		op = types.OpEnsureNot
	default:
		return nil, fmt.Errorf("unknown store_relation op %q", wsr.Op)
	}
	return &types.StoreRelationDirective{
		Name: wsr.Name,
		Op:   op,
		Meta: types.RelationMetadata{Keys: toColumnDefs(wsr.Keys), NonKeys: toColumnDefs(wsr.NonKeys)},
	}, nil
}

func toColumnDefs(wcs []wireColumn) []types.ColumnDef {
	cols := make([]types.ColumnDef, len(wcs))
	for i, wc := range wcs {
		cols[i] = types.ColumnDef{Name: wc.Name, Type: types.ColumnType(wc.Type), HasDefault: wc.Default != "", DefaultExpr: wc.Default}
	}
	return cols
}
