package simple

import (
	"github.com/cuemby/strata/pkg/dlog"
	"github.com/cuemby/strata/pkg/metrics"
	"github.com/cuemby/strata/pkg/poison"
	"github.com/cuemby/strata/pkg/types"
)

// binding is one row's variable assignment during body evaluation.
type binding map[string]types.DataValue

// StoredLookup resolves a stored-relation atom (one not defined by any
// rule in the program) to its current tuple set. Evaluator callers supply
// this bound to the session's transaction, keeping the evaluator itself
// free of any kv/catalog dependency.
type StoredLookup func(name string) ([]types.Tuple, bool, error)

// Evaluator is the reference dlog.Evaluator. It evaluates each stratum to
// a fixpoint by repeated full re-evaluation of the stratum's rules
// (semi-naive in spirit only for the common single-rule-set-per-name
// case: it compares round sizes rather than tracking per-rule deltas,
// which is sufficient for correctness though not for minimal work).
type Evaluator struct {
	Stored StoredLookup
}

type memResult struct {
	rows        []types.Tuple
	earlyReturn bool
}

func (r *memResult) ScanAll(fn func(types.Tuple) (bool, error)) error {
	for _, t := range r.rows {
		cont, err := fn(t)
		if err != nil {
			return err
		}
		if !cont {
			return nil
		}
	}
	return nil
}

func (r *memResult) EarlyReturn() bool { return r.earlyReturn }

func (e *Evaluator) Evaluate(cp dlog.CompiledProgram, stores []types.RelationMetadata, limit, offset *int, p poison.Poison) (dlog.Relation, bool, error) {
	c, ok := cp.(*compiledProgram)
	if !ok {
		return nil, false, errForeignProgram()
	}

	derived := map[string][]types.Tuple{}

	for _, stratum := range c.strata {
		if err := p.Check(); err != nil {
			return nil, false, err
		}
		names := make([]string, 0, len(stratum))
		for _, rs := range stratum {
			names = append(names, rs.Name())
		}
		iters, err := e.fixpoint(names, c.byName, derived, p)
		if err != nil {
			return nil, false, err
		}
		metrics.FixpointIterations.Observe(float64(iters))
	}
	metrics.StrataEvaluated.Observe(float64(len(c.strata)))

	rows := derived[c.entry]
	if rows == nil {
		// Entry relation has no rules in any stratum (e.g. it's a direct
		// alias for a stored relation): resolve it as a stored lookup.
		if e.Stored != nil {
			if tuples, ok, err := e.Stored(c.entry); err != nil {
				return nil, false, err
			} else if ok {
				rows = tuples
			}
		}
	}

	if offset != nil && *offset > 0 && *offset < len(rows) {
		rows = rows[*offset:]
	} else if offset != nil && *offset >= len(rows) {
		rows = nil
	}
	if limit != nil && *limit < len(rows) {
		rows = rows[:*limit]
	}

	// Pushdown was applied here, against the full derived set, so the
	// caller must not slice rows a second time (dlog.Relation's
	// EarlyReturn doc comment: "no further limit/offset pushdown
	// applies").
	earlyReturn := limit != nil || offset != nil
	return &memResult{rows: rows, earlyReturn: earlyReturn}, earlyReturn, nil
}

// fixpoint re-evaluates every rule whose head is in names until no
// relation in the group grows, then stops, reporting the number of rounds
// it took. names share a stratum so none of them may depend negatively on
// another name in the same group (that would have forced a higher stratum
// during Stratify).
func (e *Evaluator) fixpoint(names []string, byName map[string][]Rule, derived map[string][]types.Tuple, p poison.Poison) (int, error) {
	seen := map[string]map[string]bool{}
	for _, name := range names {
		seen[name] = map[string]bool{}
		for _, t := range derived[name] {
			seen[name][string(types.EncodeTuple(t))] = true
		}
	}

	iters := 0
	for {
		if err := p.Check(); err != nil {
			return iters, err
		}
		iters++
		grew := false
		for _, name := range names {
			for _, rule := range byName[name] {
				results, err := e.evalRule(rule, derived)
				if err != nil {
					return iters, err
				}
				for _, t := range results {
					key := string(types.EncodeTuple(t))
					if !seen[name][key] {
						seen[name][key] = true
						derived[name] = append(derived[name], t)
						grew = true
					}
				}
			}
		}
		if !grew {
			return iters, nil
		}
	}
}

// evalRule joins the rule's body atoms left to right against derived
// (in-stratum) relations or stored relations, then projects onto the head.
func (e *Evaluator) evalRule(rule Rule, derived map[string][]types.Tuple) ([]types.Tuple, error) {
	bindings := []binding{{}}
	for _, atom := range rule.Body {
		rows, err := e.resolve(atom.Relation, derived)
		if err != nil {
			return nil, err
		}
		if atom.Negated {
			bindings = antiJoin(bindings, atom, rows)
			continue
		}
		bindings = join(bindings, atom, rows)
		if len(bindings) == 0 {
			return nil, nil
		}
	}
	out := make([]types.Tuple, 0, len(bindings))
	for _, b := range bindings {
		t := make(types.Tuple, len(rule.Head.Args))
		for i, a := range rule.Head.Args {
			if a.IsVar {
				t[i] = b[a.Var]
			} else {
				t[i] = a.Const
			}
		}
		out = append(out, t)
	}
	return out, nil
}

func (e *Evaluator) resolve(name string, derived map[string][]types.Tuple) ([]types.Tuple, error) {
	if rows, ok := derived[name]; ok {
		return rows, nil
	}
	if e.Stored != nil {
		if rows, ok, err := e.Stored(name); err != nil {
			return nil, err
		} else if ok {
			return rows, nil
		}
	}
	return nil, nil
}

// join extends each existing binding with every row of rows that agrees
// with it on shared variables, binding any new variables along the way.
func join(bindings []binding, atom Atom, rows []types.Tuple) []binding {
	var out []binding
	for _, b := range bindings {
		for _, row := range rows {
			if len(row) != len(atom.Args) {
				continue
			}
			nb := extend(b, atom, row)
			if nb != nil {
				out = append(out, nb)
			}
		}
	}
	return out
}

// antiJoin keeps only bindings for which no row of rows matches (negation).
func antiJoin(bindings []binding, atom Atom, rows []types.Tuple) []binding {
	var out []binding
	for _, b := range bindings {
		matched := false
		for _, row := range rows {
			if len(row) != len(atom.Args) {
				continue
			}
			if extend(b, atom, row) != nil {
				matched = true
				break
			}
		}
		if !matched {
			out = append(out, b)
		}
	}
	return out
}

// extend returns a copy of b with atom's variables bound against row, or
// nil if row is incompatible with b's existing bindings or atom's
// constants.
func extend(b binding, atom Atom, row types.Tuple) binding {
	nb := make(binding, len(b)+len(atom.Args))
	for k, v := range b {
		nb[k] = v
	}
	for i, a := range atom.Args {
		if a.IsVar {
			if existing, ok := nb[a.Var]; ok {
				if existing.Compare(row[i]) != 0 {
					return nil
				}
			} else {
				nb[a.Var] = row[i]
			}
		} else if a.Const.Compare(row[i]) != 0 {
			return nil
		}
	}
	return nb
}

func errForeignProgram() error {
	return &foreignProgramError{}
}

type foreignProgramError struct{}

func (*foreignProgramError) Error() string {
	return "simple evaluator given a CompiledProgram it did not compile"
}
