// Package engine assembles the catalog, session, and orchestrator layers
// into the database aggregate root described by spec.md §5/§6: a shallow,
// reference-counted bundle of counters, a mutex-guarded registry, and the
// storage handle, safe to share across threads so long as no single
// kv.Txn crosses a goroutine boundary.
package engine

import (
	"context"
	"fmt"
	"sync/atomic"
	"time"

	"github.com/cuemby/strata/pkg/catalog"
	"github.com/cuemby/strata/pkg/dberr"
	"github.com/cuemby/strata/pkg/dlog/simple"
	"github.com/cuemby/strata/pkg/events"
	"github.com/cuemby/strata/pkg/kv"
	"github.com/cuemby/strata/pkg/log"
	"github.com/cuemby/strata/pkg/metrics"
	"github.com/cuemby/strata/pkg/orchestrator"
	"github.com/cuemby/strata/pkg/registry"
	"github.com/cuemby/strata/pkg/session"
	"github.com/cuemby/strata/pkg/types"
)

// idAllocator is the persistent, monotonic relation-id counter
// (spec.md §5's "relation_store_id: atomic u64"). It is seeded from the
// catalog's high-water mark at Open time and only ever advances in
// memory afterward — the id is durable the instant the relation handle
// carrying it is committed, so there is nothing else to persist.
type idAllocator struct {
	n atomic.Uint64
}

func (a *idAllocator) Next() types.RelationId {
	return types.RelationId(a.n.Add(1))
}

// Database is the top-level handle a host embeds. It owns the backing
// store, the running-query registry, and the relation-id allocator, and
// drives one transaction per RunScript/system-op call.
type Database struct {
	store        *kv.BoltKV
	registry     *registry.Registry
	events       *events.Broker
	ids          *idAllocator
	triggers     session.TriggerRunner
	now          orchestrator.Clock
	sleep        orchestrator.Sleeper
	queriesCount atomic.Uint64
}

// Events exposes the lifecycle event broker so a host can subscribe to
// relation and query notifications (e.g. a CLI `watch` verb).
func (d *Database) Events() *events.Broker { return d.events }

// Open opens (creating if absent) the backing store at path and seeds the
// relation-id allocator from the catalog's current high-water mark —
// the two-phase NewDatabase/Init split the teacher's manager.NewManager
// follows for its own Raft/FSM bootstrap, collapsed here into one call
// since there is no cluster membership step to defer. triggers runs a
// relation's registered trigger scripts; pass nil if the host has no
// trigger-script evaluator wired up yet.
func Open(path string, triggers session.TriggerRunner) (*Database, error) {
	store, err := kv.OpenBoltKV(path)
	if err != nil {
		return nil, dberr.Wrap(dberr.CodeDbInit, err, "opening backing store at %q", path)
	}

	broker := events.NewBroker()
	broker.Start()

	d := &Database{
		store:    store,
		registry: registry.New(),
		events:   broker,
		ids:      &idAllocator{},
		triggers: triggers,
		now:      func() float64 { return float64(time.Now().UnixNano()) / 1e9 },
		sleep:    func(secs float64) { time.Sleep(time.Duration(secs * float64(time.Second))) },
	}

	if err := d.seedRelationIds(); err != nil {
		broker.Stop()
		_ = store.Close()
		return nil, err
	}

	log.WithComponent("engine").Info().Str("path", path).Msg("database opened")
	return d, nil
}

// sessionDeps builds the collaborator bundle for one transaction. The
// evaluator's stored-relation lookup must read through this exact tx (a
// *bolt.Tx), so it cannot be shared across sessions the way the stateless
// Compiler can.
func (d *Database) sessionDeps(tx kv.Txn) session.Deps {
	cat := catalog.New(tx)
	return session.Deps{
		Compiler: simple.Compiler{},
		Evaluator: &simple.Evaluator{Stored: func(name string) ([]types.Tuple, bool, error) {
			h, ok, err := cat.Lookup(name)
			if err != nil || !ok {
				return nil, ok, err
			}
			rows, err := scanFullRelation(tx, h)
			return rows, true, err
		}},
		Triggers: d.triggers,
	}
}

// scanFullRelation decodes every stored row of h (keys then non-keys)
// out of tx's data range. Grounded on the same decode shape
// pkg/importexport.scanRelation uses for export, duplicated here because
// that function is unexported and reads through a SessionTx rather than a
// bare kv.Txn.
func scanFullRelation(tx kv.Txn, h types.RelationHandle) ([]types.Tuple, error) {
	nk := len(h.Metadata.Keys)
	nv := len(h.Metadata.NonKeys)
	var rows []types.Tuple
	err := tx.Scan(h.LowerBound(), h.UpperBound(), func(key, value []byte) (bool, error) {
		keyTuple, err := types.DecodeTuple(key[8:], nk)
		if err != nil {
			return false, err
		}
		valTuple, err := types.DecodeTuple(value, nv)
		if err != nil {
			return false, err
		}
		row := make(types.Tuple, 0, nk+nv)
		row = append(row, keyTuple...)
		row = append(row, valTuple...)
		rows = append(rows, row)
		return true, nil
	})
	return rows, err
}

func (d *Database) seedRelationIds() error {
	tx, err := d.store.Begin(context.Background(), false)
	if err != nil {
		return dberr.Wrap(dberr.CodeDbInit, err, "opening seed transaction")
	}
	defer tx.Rollback()

	s := session.New(tx, d.ids, d.sessionDeps(tx))
	last, err := s.LoadLastRelationStoreId()
	if err != nil {
		return dberr.Wrap(dberr.CodeDbInit, err, "loading relation_store_id high-water mark")
	}
	d.ids.n.Store(uint64(last))
	return nil
}

// Close releases the backing store and stops the event broker. It does
// not stop any in-flight query; callers should drain RunScript calls
// first.
func (d *Database) Close() error {
	d.events.Stop()
	return d.store.Close()
}

// Registry exposes the running-query registry, e.g. for metrics.Collector.
func (d *Database) Registry() *registry.Registry { return d.registry }

// RelationCount implements metrics.RelationCounter.
func (d *Database) RelationCount() (int, error) {
	tx, err := d.store.Begin(context.Background(), false)
	if err != nil {
		return 0, err
	}
	defer tx.Rollback()
	rels, err := catalog.New(tx).ListRelations()
	if err != nil {
		return 0, err
	}
	return len(rels), nil
}

// RunScriptResult is the wire shape of §6's run_script success payload.
type RunScriptResult struct {
	Ok      bool            `json:"ok"`
	Took    float64         `json:"took"`
	Headers interface{}     `json:"headers"`
	Rows    [][]interface{} `json:"rows"`
}

// RunScript executes stmts against a fresh transaction (writable iff any
// statement carries a store-relation directive), commits, and — per the
// "cleanup deferred past commit" ordering requirement the orchestrator
// package's doc comment explains — applies the returned cleanup ranges in
// a second, freshly-opened writable transaction.
func (d *Database) RunScript(ctx context.Context, stmts []types.InputProgram) (RunScriptResult, error) {
	start := d.now()
	writable := orchestrator.NeedsWritable(stmts)

	tx, err := d.store.Begin(ctx, writable)
	if err != nil {
		return RunScriptResult{}, dberr.Wrap(dberr.CodeDbInit, err, "opening script transaction")
	}

	s := session.New(tx, d.ids, d.sessionDeps(tx))
	queryNum := d.queriesCount.Add(1)
	d.events.Publish(&events.Event{Type: events.EventQueryStarted, Metadata: map[string]string{"query_id": fmt.Sprint(queryNum)}})

	res, err := orchestrator.Run(s, stmts, orchestrator.Options{Now: d.now, Sleep: d.sleep, Registry: d.registry})

	outcome := "ok"
	if err != nil {
		outcome = "error"
		if dberr.Is(err, dberr.CodeKilled) {
			outcome = "killed"
			d.events.Publish(&events.Event{Type: events.EventQueryKilled, Metadata: map[string]string{"query_id": fmt.Sprint(queryNum)}})
		}
		_ = s.Rollback()
		metrics.QueriesTotal.WithLabelValues(outcome).Inc()
		metrics.QueryDuration.WithLabelValues(outcome).Observe(d.now() - start)
		return RunScriptResult{}, err
	}

	if err := d.applyCleanups(ctx, res.Cleanups); err != nil {
		log.WithComponent("engine").Error().Err(err).Msg("cleanup application failed")
	}

	metrics.QueriesTotal.WithLabelValues(outcome).Inc()
	took := d.now() - start
	metrics.QueryDuration.WithLabelValues(outcome).Observe(took)
	d.events.Publish(&events.Event{Type: events.EventQueryCompleted, Metadata: map[string]string{"query_id": fmt.Sprint(queryNum), "took": fmt.Sprintf("%f", took)}})
	d.publishStoreRelationEvents(stmts)

	return RunScriptResult{
		Ok:      true,
		Took:    took,
		Headers: res.Statement.Headers,
		Rows:    res.Statement.Rows,
	}, nil
}

// publishStoreRelationEvents emits one relation-lifecycle event per
// statement that carried a store-relation directive, after the script's
// transaction has already committed successfully.
func (d *Database) publishStoreRelationEvents(stmts []types.InputProgram) {
	for _, stmt := range stmts {
		dir := stmt.OutOpts.StoreRelation
		if dir == nil {
			continue
		}
		typ := events.EventRelationReplaced
		if dir.Op == types.OpCreate {
			typ = events.EventRelationCreated
		}
		d.events.Publish(&events.Event{Type: typ, Metadata: map[string]string{"relation": dir.Name, "op": dir.Op.String()}})
	}
}

// applyCleanups opens a fresh writable transaction — never the script's
// own, already-committed one — and deletes every accumulated range.
func (d *Database) applyCleanups(ctx context.Context, ranges [][2][]byte) error {
	if len(ranges) == 0 {
		return nil
	}
	tx, err := d.store.Begin(ctx, true)
	if err != nil {
		return fmt.Errorf("opening cleanup transaction: %w", err)
	}
	for _, r := range ranges {
		if err := tx.DeleteRange(r[0], r[1]); err != nil {
			_ = tx.Rollback()
			return fmt.Errorf("deleting cleanup range: %w", err)
		}
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("committing cleanup transaction: %w", err)
	}
	metrics.CleanupRangesApplied.Add(float64(len(ranges)))
	return nil
}

// beginSystemOp opens a transaction for a system-op call and wraps it with
// a Catalog/SessionTx pair. Mutating ops pass writable=true.
func (d *Database) beginSystemOp(ctx context.Context, writable bool) (*session.SessionTx, kv.Txn, error) {
	tx, err := d.store.Begin(ctx, writable)
	if err != nil {
		return nil, nil, dberr.Wrap(dberr.CodeDbInit, err, "opening system-op transaction")
	}
	return session.New(tx, d.ids, d.sessionDeps(tx)), tx, nil
}
