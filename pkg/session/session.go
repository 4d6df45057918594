// Package session implements SessionTx (spec.md §4.3): the transaction-
// scoped object the orchestrator drives through compile → evaluate →
// store/serialize for one statement. It is the glue between pkg/catalog,
// pkg/dlog's collaborator interfaces, and pkg/kv, grounded on the
// teacher's one-BoltStore-handle-per-call pattern generalized to one
// kv.Txn per script invocation.
package session

import (
	"fmt"

	"github.com/cuemby/strata/pkg/catalog"
	"github.com/cuemby/strata/pkg/dberr"
	"github.com/cuemby/strata/pkg/dlog"
	"github.com/cuemby/strata/pkg/kv"
	"github.com/cuemby/strata/pkg/metrics"
	"github.com/cuemby/strata/pkg/poison"
	"github.com/cuemby/strata/pkg/types"
)

// IdAllocator hands out relation ids from the database-wide monotonic
// counter. SessionTx never owns the counter itself (it is shared across
// concurrent sessions via pkg/engine), only a view of it.
type IdAllocator interface {
	Next() types.RelationId
}

// TriggerRunner executes an opaque trigger script against one mutated
// tuple. Trigger bodies are outside this module's scope (spec.md §1); the
// default runner is a no-op, letting the host wire in a real script
// evaluator later without SessionTx needing to know about it.
type TriggerRunner func(script types.Trigger, tuple types.Tuple) error

// Deps bundles the pluggable collaborators a SessionTx needs beyond the
// transaction itself, so that dlog and triggers stay swappable. Evaluator
// is typically constructed per-session by pkg/engine, since the reference
// dlog/simple.Evaluator needs a stored-relation lookup bound to this
// session's own transaction.
type Deps struct {
	Compiler  dlog.Compiler
	Evaluator dlog.Evaluator
	Triggers  TriggerRunner
}

// SessionTx wraps exactly one kv.Txn for the lifetime of one script
// invocation.
type SessionTx struct {
	tx      kv.Txn
	cat     *catalog.Catalog
	ids     IdAllocator
	deps    Deps
	storeID int // ephemeral in-memory rule-store counter, unused by the reference dlog/simple evaluator but threaded through for future compilers that need scratch store ids
}

// New wraps tx with catalog access and the given collaborators.
func New(tx kv.Txn, ids IdAllocator, deps Deps) *SessionTx {
	return &SessionTx{tx: tx, cat: catalog.New(tx), ids: ids, deps: deps}
}

// Writable reports whether the underlying transaction permits mutation.
func (s *SessionTx) Writable() bool { return s.tx.Writable() }

// Catalog exposes the underlying catalog for callers (e.g. pkg/importexport,
// pkg/engine system ops) that need direct relation administration without
// going through a query program.
func (s *SessionTx) Catalog() *catalog.Catalog { return s.cat }

// Txn exposes the underlying kv transaction for import/export's raw
// range-scan and batch-put needs.
func (s *SessionTx) Txn() kv.Txn { return s.tx }

func (s *SessionTx) GetRelation(name string, needsWrite bool) (types.RelationHandle, error) {
	return s.cat.GetRelation(name, needsWrite)
}

func (s *SessionTx) RelationExists(name string) (bool, error) {
	return s.cat.RelationExists(name)
}

func (s *SessionTx) DestroyRelation(name string) (lower, upper []byte, err error) {
	return s.cat.DestroyRelation(name)
}

func (s *SessionTx) RenameRelation(oldName, newName string) error {
	return s.cat.RenameRelation(oldName, newName)
}

func (s *SessionTx) SetRelationTriggers(name string, puts, rms, replaces []types.Trigger) error {
	return s.cat.SetRelationTriggers(name, puts, rms, replaces)
}

func (s *SessionTx) SetAccessLevel(name string, level types.AccessLevel) error {
	return s.cat.SetAccessLevel(name, level)
}

// LoadLastRelationStoreId reports the allocator's current high-water mark,
// used by pkg/engine at startup to seed its atomic counter from whatever
// id the most recently created relation consumed.
func (s *SessionTx) LoadLastRelationStoreId() (types.RelationId, error) {
	relations, err := s.cat.ListRelations()
	if err != nil {
		return 0, err
	}
	var max types.RelationId
	for _, r := range relations {
		if r.Id > max {
			max = r.Id
		}
	}
	return max, nil
}

// ToNormalizedProgram recovers the dlog.NormalizedProgram embedded in an
// InputProgram's opaque Rules field. Name resolution/arity-checking
// against the catalog is the compiler collaborator's job (spec.md §1); by
// the time Rules reaches here it is expected to already satisfy
// dlog.NormalizedProgram (dlog/simple.Program does, directly).
func (s *SessionTx) ToNormalizedProgram(input types.InputProgram) (dlog.NormalizedProgram, error) {
	np, ok := input.Rules.(dlog.NormalizedProgram)
	if !ok {
		return nil, fmt.Errorf("input program's Rules does not implement dlog.NormalizedProgram (got %T)", input.Rules)
	}
	return np, nil
}

func (s *SessionTx) Stratify(np dlog.NormalizedProgram) (dlog.StratifiedProgram, error) {
	return np.Stratify()
}

func (s *SessionTx) MagicSetsRewrite(sp dlog.StratifiedProgram) (dlog.MagicProgram, error) {
	return sp.MagicSetsRewrite(s.cat)
}

func (s *SessionTx) StratifiedMagicCompile(mp dlog.MagicProgram) (dlog.CompiledProgram, []types.RelationMetadata, error) {
	if s.deps.Compiler == nil {
		return nil, nil, fmt.Errorf("session has no dlog.Compiler configured")
	}
	return s.deps.Compiler.Compile(mp, s.cat)
}

func (s *SessionTx) StratifiedMagicEvaluate(cp dlog.CompiledProgram, stores []types.RelationMetadata, limit, offset *int, p poison.Poison) (dlog.Relation, bool, error) {
	if s.deps.Evaluator == nil {
		return nil, false, fmt.Errorf("session has no dlog.Evaluator configured")
	}
	return s.deps.Evaluator.Evaluate(cp, stores, limit, offset, p)
}

// SortAndCollect materializes result into a slice ordered by sorters.
// entryHead maps column names to tuple positions.
func (s *SessionTx) SortAndCollect(result dlog.Relation, sorters []types.Sorter, entryHead types.EntryHead) ([]types.Tuple, error) {
	idx := make(map[string]int, len(entryHead))
	for i, name := range entryHead {
		idx[name] = i
	}
	var rows []types.Tuple
	if err := result.ScanAll(func(t types.Tuple) (bool, error) {
		rows = append(rows, t)
		return true, nil
	}); err != nil {
		return nil, err
	}
	sortTuples(rows, sorters, idx)
	return rows, nil
}

func sortTuples(rows []types.Tuple, sorters []types.Sorter, idx map[string]int) {
	less := func(a, b types.Tuple) bool {
		for _, sorter := range sorters {
			col, ok := idx[sorter.Column]
			if !ok || col >= len(a) || col >= len(b) {
				continue
			}
			c := a[col].Compare(b[col])
			if c == 0 {
				continue
			}
			if sorter.Direction == types.Descending {
				return c > 0
			}
			return c < 0
		}
		return false
	}
	insertionSort(rows, less)
}

// insertionSort is a stable O(n^2) sort, adequate for the row counts a
// reference evaluator produces; swapping in a larger sort.Slice is a
// one-line change if result sets grow large.
func insertionSort(rows []types.Tuple, less func(a, b types.Tuple) bool) {
	for i := 1; i < len(rows); i++ {
		for j := i; j > 0 && less(rows[j], rows[j-1]); j-- {
			rows[j], rows[j-1] = rows[j-1], rows[j]
		}
	}
}

// ExecuteRelation applies a store-relation directive's rows against the
// named relation, returning the (lower, upper) ranges the orchestrator
// must delete after commit (non-empty only for Replace, reclaiming the
// old id's range).
func (s *SessionTx) ExecuteRelation(rows []types.Tuple, op types.StoreRelationOp, meta types.RelationMetadata, name string, head types.EntryHead) ([][2][]byte, error) {
	timer := metrics.NewTimer()
	defer timer.ObserveDurationVec(metrics.RelationWriteDuration, op.String())
	switch op {
	case types.OpCreate:
		h := types.RelationHandle{Name: name, Id: s.ids.Next(), Metadata: meta}
		if err := s.cat.CreateRelation(h); err != nil {
			return nil, err
		}
		return nil, s.putRows(h, rows, head)
	case types.OpReplace:
		h := types.RelationHandle{Name: name, Id: s.ids.Next(), Metadata: meta}
		lower, upper, err := s.cat.ReplaceRelation(h)
		if err != nil {
			return nil, err
		}
		if err := s.putRows(h, rows, head); err != nil {
			return nil, err
		}
		if lower == nil {
			return nil, nil
		}
		return [][2][]byte{{lower, upper}}, nil
	case types.OpPut:
		h, err := s.cat.GetRelation(name, true)
		if err != nil {
			return nil, err
		}
		return nil, s.putRows(h, rows, head)
	case types.OpRm:
		h, err := s.cat.GetRelation(name, true)
		if err != nil {
			return nil, err
		}
		return nil, s.rmRows(h, rows, head)
	case types.OpEnsure:
		h, err := s.cat.GetRelation(name, false)
		if err != nil {
			return nil, err
		}
		return nil, s.ensureRows(h, rows, head, true)
	case types.OpEnsureNot:
		h, err := s.cat.GetRelation(name, false)
		if err != nil {
			return nil, err
		}
		return nil, s.ensureRows(h, rows, head, false)
	default:
		return nil, fmt.Errorf("unknown store-relation op %v", op)
	}
}

func (s *SessionTx) putRows(h types.RelationHandle, rows []types.Tuple, head types.EntryHead) error {
	nk := len(h.Metadata.Keys)
	for _, row := range rows {
		if len(row) < nk {
			return fmt.Errorf("row has %d columns, relation %q needs at least %d key columns", len(row), h.Name, nk)
		}
		key := h.EncodeKey(row[:nk])
		val := h.EncodeValue(row[nk:])
		if err := s.tx.Put(key, val); err != nil {
			return err
		}
		if err := s.fireTriggers(h.PutTriggers, row); err != nil {
			return err
		}
	}
	return nil
}

func (s *SessionTx) rmRows(h types.RelationHandle, rows []types.Tuple, head types.EntryHead) error {
	nk := len(h.Metadata.Keys)
	for _, row := range rows {
		if len(row) < nk {
			return fmt.Errorf("row has %d columns, relation %q needs at least %d key columns", len(row), h.Name, nk)
		}
		key := h.EncodeKey(row[:nk])
		if err := s.tx.Delete(key); err != nil {
			return err
		}
		if err := s.fireTriggers(h.RmTriggers, row); err != nil {
			return err
		}
	}
	return nil
}

// ensureRows asserts that every key tuple of rows is present (wantPresent
// true) or absent (false) in h, without mutating the store. This is the
// implementation chosen for the StoreRelationOp.Ensure/EnsureNot pair:
// they read as data assertions over an existing relation, not mutations.
func (s *SessionTx) ensureRows(h types.RelationHandle, rows []types.Tuple, head types.EntryHead, wantPresent bool) error {
	nk := len(h.Metadata.Keys)
	for _, row := range rows {
		if len(row) < nk {
			return fmt.Errorf("row has %d columns, relation %q needs at least %d key columns", len(row), h.Name, nk)
		}
		key := h.EncodeKey(row[:nk])
		_, present, err := s.tx.Get(key)
		if err != nil {
			return err
		}
		if present != wantPresent {
			if wantPresent {
				return dberr.New(dberr.CodeAssertSomeFailure, "ensure failed: row not present in %q", h.Name).WithPayload(row)
			}
			return dberr.New(dberr.CodeAssertNoneFailure, "ensure_not failed: row present in %q", h.Name).WithPayload(row)
		}
	}
	return nil
}

func (s *SessionTx) fireTriggers(scripts []types.Trigger, row types.Tuple) error {
	if s.deps.Triggers == nil {
		return nil
	}
	for _, script := range scripts {
		if err := s.deps.Triggers(script, row); err != nil {
			return err
		}
	}
	return nil
}

// CommitTx finalizes the underlying transaction.
func (s *SessionTx) CommitTx() error {
	timer := metrics.NewTimer()
	defer timer.ObserveDuration(metrics.TxnCommitDuration)
	return s.tx.Commit()
}

// Rollback discards the underlying transaction. Used on any error path so
// no partial state is ever committed (spec.md §7).
func (s *SessionTx) Rollback() error {
	return s.tx.Rollback()
}
