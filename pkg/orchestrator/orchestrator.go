// Package orchestrator runs a parsed script (spec.md §4.4): one
// transaction per invocation, one compile→evaluate→sort→store-or-serialize
// pass per statement, and post-commit range cleanups. It is the component
// the host's run_script entry point (pkg/engine) calls after parsing.
package orchestrator

import (
	"fmt"

	"github.com/cuemby/strata/pkg/dberr"
	"github.com/cuemby/strata/pkg/dlog"
	"github.com/cuemby/strata/pkg/log"
	"github.com/cuemby/strata/pkg/poison"
	"github.com/cuemby/strata/pkg/registry"
	"github.com/cuemby/strata/pkg/session"
	"github.com/cuemby/strata/pkg/types"
)

// StatementResult is the per-statement output shape before the orchestrator
// folds the last one into the script-level response.
type StatementResult struct {
	Headers interface{} // []string or nil
	Rows    [][]interface{}
}

// Clock supplies wall-clock seconds-since-epoch, kept pluggable so tests
// don't depend on real time (spec.md §9: "wall-clock for took and
// started_at must be monotonic-free epoch seconds").
type Clock func() float64

// Sleeper pauses for the given number of seconds; overridable for tests
// and skippable on platforms without threading (spec.md §9).
type Sleeper func(seconds float64)

// Options configures one Run invocation.
type Options struct {
	Now      Clock
	Sleep    Sleeper
	Registry *registry.Registry
}

// Result is what Run returns: the last statement's shaped output plus the
// accumulated (lower, upper) ranges the caller must delete in a *separate*
// transaction after commit (spec.md §4.4, §9 "cleanup deferred past
// commit" — del_range must never run inside the transaction being
// cleaned up, or a crash mid-commit could leave a half-deleted range
// visible to a reader of the old, still-committed data).
type Result struct {
	Statement StatementResult
	Cleanups  [][2][]byte
}

// Run executes every program in stmts against one SessionTx and commits.
// It does NOT apply the returned cleanup ranges — the caller (pkg/engine)
// does that via a fresh transaction once commit has succeeded, per
// spec.md §4.4 step 2's "post-commit" ordering requirement. The caller is
// responsible for opening the SessionTx with the right writability (see
// NeedsWritable) and for rolling it back on error.
func Run(s *session.SessionTx, stmts []types.InputProgram, opts Options) (Result, error) {
	if opts.Now == nil {
		return Result{}, fmt.Errorf("orchestrator: Options.Now is required")
	}

	var cleanups [][2][]byte
	var last StatementResult

	for i, stmt := range stmts {
		res, stmtCleanups, err := runStatement(s, stmt, opts)
		if err != nil {
			return Result{}, err
		}
		cleanups = append(cleanups, stmtCleanups...)
		last = res
		log.Logger.Debug().Int("statement", i).Msg("statement evaluated")
	}

	if !s.Writable() && len(cleanups) != 0 {
		return Result{}, fmt.Errorf("invariant violated: read-only transaction accumulated cleanup ranges")
	}

	if err := s.CommitTx(); err != nil {
		return Result{}, fmt.Errorf("committing script transaction: %w", err)
	}

	return Result{Statement: last, Cleanups: cleanups}, nil
}

// NeedsWritable scans stmts and reports whether any carries a
// store-relation directive — the orchestrator asks for a writable
// transaction iff so (spec.md §4.4 step 2).
func NeedsWritable(stmts []types.InputProgram) bool {
	for _, s := range stmts {
		if s.OutOpts.StoreRelation != nil {
			return true
		}
	}
	return false
}

func runStatement(s *session.SessionTx, stmt types.InputProgram, opts Options) (StatementResult, [][2][]byte, error) {
	if err := preflight(s, stmt); err != nil {
		return StatementResult{}, nil, err
	}

	np, err := s.ToNormalizedProgram(stmt)
	if err != nil {
		return StatementResult{}, nil, err
	}
	sp, err := s.Stratify(np)
	if err != nil {
		return StatementResult{}, nil, err
	}
	mp, err := s.MagicSetsRewrite(sp)
	if err != nil {
		return StatementResult{}, nil, err
	}
	compiled, stores, err := s.StratifiedMagicCompile(mp)
	if err != nil {
		return StatementResult{}, nil, err
	}

	p := poison.New()
	if stmt.OutOpts.TimeoutSeconds != nil {
		p.SetTimeout(*stmt.OutOpts.TimeoutSeconds)
	}

	var guard *registry.Guard
	if opts.Registry != nil {
		guard = opts.Registry.Register(p, opts.Now())
		defer guard.Release()
	}

	sorters := stmt.OutOpts.Sorters
	var limit, offset *int
	if len(sorters) == 0 {
		limit, offset = stmt.OutOpts.NumToTake(), stmt.OutOpts.Offset
	}

	result, earlyReturn, err := s.StratifiedMagicEvaluate(compiled, stores, limit, offset, p)
	if err != nil {
		return StatementResult{}, nil, err
	}

	if err := enforceAssertion(result, stmt.OutOpts.Assertion); err != nil {
		return StatementResult{}, nil, err
	}

	var rows []types.Tuple
	if len(sorters) > 0 {
		rows, err = s.SortAndCollect(result, sorters, stmt.EntryHead)
		if err != nil {
			return StatementResult{}, nil, err
		}
		rows = paginate(rows, stmt.OutOpts.Offset, stmt.OutOpts.Limit)
	} else {
		rows, err = scanRows(result, earlyReturn, stmt.OutOpts.Limit, stmt.OutOpts.Offset)
		if err != nil {
			return StatementResult{}, nil, err
		}
	}

	if stmt.OutOpts.StoreRelation != nil {
		dir := stmt.OutOpts.StoreRelation
		head := stmt.EntryHead
		if head == nil {
			head = types.EntryHead(dir.Meta.ColumnNames())
		}
		cleanups, err := s.ExecuteRelation(rows, dir.Op, dir.Meta, dir.Name, head)
		if err != nil {
			return StatementResult{}, nil, fmt.Errorf("when executing against relation %q: %w", dir.Name, err)
		}
		if stmt.OutOpts.SleepSeconds != nil && opts.Sleep != nil {
			opts.Sleep(*stmt.OutOpts.SleepSeconds)
		}
		return StatementResult{Headers: []string{"status"}, Rows: [][]interface{}{{"OK"}}}, cleanups, nil
	}

	if stmt.OutOpts.SleepSeconds != nil && opts.Sleep != nil {
		opts.Sleep(*stmt.OutOpts.SleepSeconds)
	}
	return StatementResult{Headers: headerStrings(stmt.EntryHead), Rows: tuplesToJSON(rows)}, nil, nil
}

func preflight(s *session.SessionTx, stmt types.InputProgram) error {
	dir := stmt.OutOpts.StoreRelation
	if dir == nil {
		return nil
	}
	exists, err := s.RelationExists(dir.Name)
	if err != nil {
		return err
	}
	switch dir.Op {
	case types.OpCreate:
		if exists {
			return dberr.New(dberr.CodeStoredRelationConflict, "stored relation %q conflicts with an existing one", dir.Name)
		}
	case types.OpReplace:
		// Replace unconditionally redefines the relation; no existence
		// check required.
	default:
		if !exists {
			return dberr.New(dberr.CodeStoredRelationNotFound, "stored relation %q not found", dir.Name)
		}
		existing, err := s.GetRelation(dir.Name, true)
		if err != nil {
			return err
		}
		if err := existing.EnsureCompatible(dir.Meta); err != nil {
			return fmt.Errorf("relation %q schema mismatch: %w", dir.Name, err)
		}
	}
	return nil
}

func enforceAssertion(result dlog.Relation, a *types.QueryAssertion) error {
	if a == nil {
		return nil
	}
	var first *types.Tuple
	_ = result.ScanAll(func(t types.Tuple) (bool, error) {
		cp := append(types.Tuple{}, t...)
		first = &cp
		return false, nil
	})
	switch a.Kind {
	case types.AssertNone:
		if first != nil {
			return dberr.New(dberr.CodeAssertNoneFailure, "query is asserted to return no result, but a tuple was found").
				WithSpan(dberr.Span{Start: a.Span.Start, End: a.Span.End}).
				WithPayload(types.TupleToJSON(*first))
		}
	case types.AssertSome:
		if first == nil {
			return dberr.New(dberr.CodeAssertSomeFailure, "query is asserted to return some results, but returned none").
				WithSpan(dberr.Span{Start: a.Span.Start, End: a.Span.End})
		}
	}
	return nil
}

func scanRows(result dlog.Relation, earlyReturn bool, limit, offset *int) ([]types.Tuple, error) {
	var all []types.Tuple
	if err := result.ScanAll(func(t types.Tuple) (bool, error) {
		all = append(all, t)
		return true, nil
	}); err != nil {
		return nil, err
	}
	if earlyReturn {
		return all, nil
	}
	return paginate(all, offset, limit), nil
}

func paginate(rows []types.Tuple, offset, limit *int) []types.Tuple {
	if offset != nil {
		o := *offset
		if o >= len(rows) {
			return nil
		}
		if o > 0 {
			rows = rows[o:]
		}
	}
	if limit != nil && *limit < len(rows) {
		rows = rows[:*limit]
	}
	return rows
}

func headerStrings(h types.EntryHead) interface{} {
	if h == nil {
		return nil
	}
	out := make([]string, len(h))
	copy(out, h)
	return out
}

func tuplesToJSON(rows []types.Tuple) [][]interface{} {
	out := make([][]interface{}, len(rows))
	for i, r := range rows {
		out[i] = types.TupleToJSON(r)
	}
	return out
}
