// Package dlog declares the script-parser, compiler, and evaluator
// collaborator contracts that this module's scope excludes (spec.md §1,
// Non-goals: "the script parser, the Datalog compiler proper, and the
// evaluator kernel are external collaborators"). SessionTx and Orchestrator
// are written entirely against these interfaces; package dlog/simple
// supplies one concrete, minimal implementation so the runtime core can be
// exercised end to end.
package dlog

import (
	"github.com/cuemby/strata/pkg/poison"
	"github.com/cuemby/strata/pkg/types"
)

// RelationLookup is the narrow view of the catalog the compiler needs: can
// a name be resolved to a relation's schema. It is satisfied by
// pkg/catalog.Catalog, kept separate here so dlog never imports catalog.
type RelationLookup interface {
	Lookup(name string) (types.RelationHandle, bool, error)
}

// NormalizedProgram is the result of name resolution and rule-head
// arity/type checking over an InputProgram, ready for stratification.
type NormalizedProgram interface {
	// Stratify partitions the program's rules into strata such that every
	// negated or aggregated dependency lands in a strictly lower stratum.
	Stratify() (StratifiedProgram, error)
}

// StratifiedProgram is a program with its strata decided, ready for magic
// set rewriting.
type StratifiedProgram interface {
	// MagicSetsRewrite adjoins adornment-filtered "magic" relations so
	// evaluation only derives tuples reachable from the bound entry
	// arguments, rather than the full naive fixpoint.
	MagicSetsRewrite(lookup RelationLookup) (MagicProgram, error)
}

// MagicProgram is a fully rewritten program ready for compilation.
type MagicProgram interface {
	// EntryHead returns the column names of the program's output rule.
	EntryHead() types.EntryHead
}

// CompiledProgram holds every stratum's compiled relational-algebra rule
// sets, ready for semi-naive evaluation. Strata are evaluated in
// order, each seeded with the previous stratum's stored results.
type CompiledProgram interface {
	// Strata returns the compiled rule sets, one slice per stratum, in
	// evaluation order.
	Strata() [][]CompiledRuleSet
}

// CompiledRuleSet is the compiled form of every rule (clause) sharing one
// head relation name, used by the explainer to render one row group per
// clause.
type CompiledRuleSet interface {
	Name() string
	// Explain renders one relational-algebra tree per clause defining this
	// rule set's relation, each an ordered, root-first sequence of tabular
	// rows in the shape pkg/explain expects. rowID is shared and mutated
	// across every clause so ids stay unique within the stratum.
	Explain(rowID *int, depth int) [][]ExplainRow
}

// ExplainRow is one row of a ::explain result.
type ExplainRow struct {
	ID        int
	ParentIDs []int
	OpName    string
	RefName   string
	OutBindings []string
	Info      string
}

// Relation is the evaluator's result set: an iterable collection of
// output tuples, scanned once. Early-return (an entry rule whose tuples
// are produced directly, bypassing the usual stratified scan) is
// reported via EarlyReturn so the orchestrator can pick the right scan
// method.
type Relation interface {
	// ScanAll iterates every output tuple in derivation order, calling fn
	// for each. Iteration stops early if fn returns false or an error.
	ScanAll(fn func(types.Tuple) (bool, error)) error
	// EarlyReturn reports whether this relation's tuples should be read
	// via the early-return path (no further limit/offset pushdown
	// applies: the producer has already bounded its own output).
	EarlyReturn() bool
}

// Compiler turns a MagicProgram plus the transaction's relation lookup
// into a CompiledProgram and the set of auxiliary stored relations (magic
// and stratum-intermediate stores) the evaluator will materialize.
type Compiler interface {
	Compile(mp MagicProgram, lookup RelationLookup) (CompiledProgram, []types.RelationMetadata, error)
}

// Evaluator runs a CompiledProgram to fixpoint via stratified semi-naive
// evaluation, honoring limit/offset pushdown when no external sort is
// needed and the cooperative cancellation flag.
type Evaluator interface {
	Evaluate(cp CompiledProgram, stores []types.RelationMetadata, limit, offset *int, p poison.Poison) (result Relation, earlyReturn bool, err error)
}

// Parser turns script source text into one InputProgram per statement.
// ParseScript is the sole external entry point non-Open-system queries
// pass through before reaching SessionTx.
type Parser interface {
	ParseScript(source string, params map[string]types.DataValue) ([]types.InputProgram, error)
}
