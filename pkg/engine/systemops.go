package engine

import (
	"context"
	"fmt"

	"github.com/cuemby/strata/pkg/catalog"
	"github.com/cuemby/strata/pkg/dberr"
	"github.com/cuemby/strata/pkg/events"
	"github.com/cuemby/strata/pkg/explain"
	"github.com/cuemby/strata/pkg/metrics"
	"github.com/cuemby/strata/pkg/registry"
	"github.com/cuemby/strata/pkg/types"
)

// SystemOpResult is the {headers, rows} shape spec.md §4.7 requires of
// every system operation.
type SystemOpResult struct {
	Headers []string        `json:"headers"`
	Rows    [][]interface{} `json:"rows"`
}

// Explain normalizes/stratifies/magic-rewrites/compiles program and
// renders the resulting plan as the fixed explain table (§4.5), inside
// its own read-only transaction; nothing it touches needs to persist.
func (d *Database) Explain(ctx context.Context, program types.InputProgram) (SystemOpResult, error) {
	s, tx, err := d.beginSystemOp(ctx, false)
	if err != nil {
		return SystemOpResult{}, err
	}
	defer tx.Rollback()

	np, err := s.ToNormalizedProgram(program)
	if err != nil {
		return SystemOpResult{}, err
	}
	sp, err := s.Stratify(np)
	if err != nil {
		return SystemOpResult{}, err
	}
	mp, err := s.MagicSetsRewrite(sp)
	if err != nil {
		return SystemOpResult{}, err
	}
	compiled, _, err := s.StratifiedMagicCompile(mp)
	if err != nil {
		return SystemOpResult{}, err
	}

	rows := explain.Explain(compiled)
	return SystemOpResult{Headers: explain.Headers, Rows: explain.ToJSONRows(rows)}, nil
}

// Compact reclaims space left by deleted/replaced relations by rewriting
// the backing file in place (spec.md's `store.range_compact` over the
// whole keyspace). It takes no session transaction of its own — the
// store-level Compact call brackets its own lock.
func (d *Database) Compact(ctx context.Context) (SystemOpResult, error) {
	if err := ctx.Err(); err != nil {
		return SystemOpResult{}, err
	}
	n, err := d.store.Compact()
	if err != nil {
		return SystemOpResult{}, dberr.Wrap(dberr.CodeDbInit, err, "compacting backing store")
	}
	return SystemOpResult{
		Headers: []string{"status", "keys_copied"},
		Rows:    [][]interface{}{{"OK", n}},
	}, nil
}

// ListRelations projects the system catalog into one summary row per
// relation (§4.7).
func (d *Database) ListRelations(ctx context.Context) (SystemOpResult, error) {
	_, tx, err := d.beginSystemOp(ctx, false)
	if err != nil {
		return SystemOpResult{}, err
	}
	defer tx.Rollback()

	handles, err := catalog.New(tx).ListRelations()
	if err != nil {
		return SystemOpResult{}, err
	}

	headers := []string{"name", "arity", "access_level", "n_keys", "n_non_keys", "n_put_triggers", "n_rm_triggers", "n_replace_triggers"}
	rows := make([][]interface{}, len(handles))
	for i, h := range handles {
		rows[i] = []interface{}{
			h.Name,
			h.Metadata.Arity(),
			h.AccessLevel.String(),
			len(h.Metadata.Keys),
			len(h.Metadata.NonKeys),
			len(h.PutTriggers),
			len(h.RmTriggers),
			len(h.ReplaceTriggers),
		}
	}
	return SystemOpResult{Headers: headers, Rows: rows}, nil
}

// ListRelation enumerates one relation's columns, keys first, each
// carrying a monotonically increasing index across the whole row (§4.7).
func (d *Database) ListRelation(ctx context.Context, name string) (SystemOpResult, error) {
	s, tx, err := d.beginSystemOp(ctx, false)
	if err != nil {
		return SystemOpResult{}, err
	}
	defer tx.Rollback()

	h, err := s.GetRelation(name, false)
	if err != nil {
		return SystemOpResult{}, err
	}

	headers := []string{"name", "is_key", "index", "type_string", "has_default"}
	var rows [][]interface{}
	idx := 0
	for _, c := range h.Metadata.Keys {
		rows = append(rows, []interface{}{c.Name, true, idx, string(c.Type), c.HasDefault})
		idx++
	}
	for _, c := range h.Metadata.NonKeys {
		rows = append(rows, []interface{}{c.Name, false, idx, string(c.Type), c.HasDefault})
		idx++
	}
	return SystemOpResult{Headers: headers, Rows: rows}, nil
}

// RemoveRelation destroys each named relation, commits the catalog
// change, then applies the collected ranges in a fresh transaction —
// the same post-commit cleanup ordering RunScript observes, for the
// same reason (spec.md §5's "del_range issued after commit").
func (d *Database) RemoveRelation(ctx context.Context, names []string) (SystemOpResult, error) {
	s, tx, err := d.beginSystemOp(ctx, true)
	if err != nil {
		return SystemOpResult{}, err
	}

	var cleanups [][2][]byte
	for _, name := range names {
		lower, upper, err := s.DestroyRelation(name)
		if err != nil {
			_ = tx.Rollback()
			return SystemOpResult{}, fmt.Errorf("removing relation %q: %w", name, err)
		}
		cleanups = append(cleanups, [2][]byte{lower, upper})
	}

	if err := tx.Commit(); err != nil {
		return SystemOpResult{}, fmt.Errorf("committing relation removal: %w", err)
	}
	if err := d.applyCleanups(ctx, cleanups); err != nil {
		return SystemOpResult{}, err
	}

	for _, name := range names {
		d.events.Publish(&events.Event{Type: events.EventRelationDestroyed, Metadata: map[string]string{"relation": name}})
	}
	return SystemOpResult{Headers: []string{"status"}, Rows: [][]interface{}{{"OK"}}}, nil
}

// RenameRelation applies every (old, new) pair sequentially in one
// writable session (§4.7).
func (d *Database) RenameRelation(ctx context.Context, pairs [][2]string) (SystemOpResult, error) {
	s, tx, err := d.beginSystemOp(ctx, true)
	if err != nil {
		return SystemOpResult{}, err
	}

	for _, p := range pairs {
		if err := s.RenameRelation(p[0], p[1]); err != nil {
			_ = tx.Rollback()
			return SystemOpResult{}, fmt.Errorf("renaming %q to %q: %w", p[0], p[1], err)
		}
	}

	if err := tx.Commit(); err != nil {
		return SystemOpResult{}, fmt.Errorf("committing relation rename: %w", err)
	}
	for _, p := range pairs {
		d.events.Publish(&events.Event{Type: events.EventRelationRenamed, Metadata: map[string]string{"from": p[0], "to": p[1]}})
	}
	return SystemOpResult{Headers: []string{"status"}, Rows: [][]interface{}{{"OK"}}}, nil
}

// ListRunning reports every currently registered query's id and start
// time (§4.2).
func (d *Database) ListRunning() SystemOpResult {
	entries := d.registry.List()
	rows := make([][]interface{}, len(entries))
	for i, e := range entries {
		rows[i] = []interface{}{e.ID, e.StartedAt}
	}
	return SystemOpResult{Headers: []string{"id", "started_at"}, Rows: rows}
}

// KillRunning trips the Poison of a running query by id (§4.2) and
// reports "KILLING", or "NOT_FOUND" when the id is not registered. A
// query that finished between the caller's ListRunning snapshot and this
// call is not an error, it is the expected race spec.md §5 describes.
func (d *Database) KillRunning(id uint64) SystemOpResult {
	result := d.registry.Kill(id)
	status := "NOT_FOUND"
	if result == registry.Killing {
		status = "KILLING"
		metrics.QueriesKilledTotal.Inc()
		d.events.Publish(&events.Event{Type: events.EventQueryKilled, Metadata: map[string]string{"query_id": fmt.Sprint(id)}})
	}
	return SystemOpResult{Headers: []string{"status"}, Rows: [][]interface{}{{status}}}
}

// ShowTrigger lists every trigger script registered on a relation,
// tagged by kind and its index within that kind's list (§4.7).
func (d *Database) ShowTrigger(ctx context.Context, name string) (SystemOpResult, error) {
	s, tx, err := d.beginSystemOp(ctx, false)
	if err != nil {
		return SystemOpResult{}, err
	}
	defer tx.Rollback()

	h, err := s.GetRelation(name, false)
	if err != nil {
		return SystemOpResult{}, err
	}

	headers := []string{"kind", "index", "script"}
	var rows [][]interface{}
	for i, t := range h.PutTriggers {
		rows = append(rows, []interface{}{"put", i, string(t)})
	}
	for i, t := range h.RmTriggers {
		rows = append(rows, []interface{}{"rm", i, string(t)})
	}
	for i, t := range h.ReplaceTriggers {
		rows = append(rows, []interface{}{"replace", i, string(t)})
	}
	return SystemOpResult{Headers: headers, Rows: rows}, nil
}

// SetTriggers replaces all three of a relation's trigger lists
// atomically (§4.7).
func (d *Database) SetTriggers(ctx context.Context, name string, puts, rms, replaces []types.Trigger) (SystemOpResult, error) {
	s, tx, err := d.beginSystemOp(ctx, true)
	if err != nil {
		return SystemOpResult{}, err
	}

	if err := s.SetRelationTriggers(name, puts, rms, replaces); err != nil {
		_ = tx.Rollback()
		return SystemOpResult{}, fmt.Errorf("setting triggers on %q: %w", name, err)
	}
	if err := tx.Commit(); err != nil {
		return SystemOpResult{}, fmt.Errorf("committing trigger update: %w", err)
	}
	return SystemOpResult{Headers: []string{"status"}, Rows: [][]interface{}{{"OK"}}}, nil
}

// SetAccessLevel batch-updates the access level of every named relation
// in one writable session (§4.7).
func (d *Database) SetAccessLevel(ctx context.Context, names []string, level types.AccessLevel) (SystemOpResult, error) {
	s, tx, err := d.beginSystemOp(ctx, true)
	if err != nil {
		return SystemOpResult{}, err
	}

	for _, name := range names {
		if err := s.SetAccessLevel(name, level); err != nil {
			_ = tx.Rollback()
			return SystemOpResult{}, fmt.Errorf("setting access level on %q: %w", name, err)
		}
	}
	if err := tx.Commit(); err != nil {
		return SystemOpResult{}, fmt.Errorf("committing access level update: %w", err)
	}
	return SystemOpResult{Headers: []string{"status"}, Rows: [][]interface{}{{"OK"}}}, nil
}
