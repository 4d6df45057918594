package engine

import (
	"context"
	"fmt"

	"github.com/cuemby/strata/pkg/catalog"
	"github.com/cuemby/strata/pkg/importexport"
	"github.com/cuemby/strata/pkg/metrics"
)

// Export projects the named relations to JSON (§4.6), inside a read-only
// transaction.
func (d *Database) Export(ctx context.Context, names []string, asObjects bool) (map[string]interface{}, error) {
	s, tx, err := d.beginSystemOp(ctx, false)
	if err != nil {
		return nil, err
	}
	defer tx.Rollback()

	out, err := importexport.Export(s, names, asObjects)
	if err != nil {
		return nil, err
	}
	for name, data := range out {
		metrics.ExportRowsTotal.WithLabelValues(name).Add(float64(exportedRowCount(data)))
	}
	return out, nil
}

func exportedRowCount(data interface{}) int {
	switch v := data.(type) {
	case []map[string]interface{}:
		return len(v)
	case map[string]interface{}:
		rows, _ := v["rows"].([][]interface{})
		return len(rows)
	default:
		return 0
	}
}

// Import applies a `{relation_or_prefixed_name: payload}` mapping in one
// writable session and commits atomically (§4.6).
func (d *Database) Import(ctx context.Context, payload map[string]interface{}) (SystemOpResult, error) {
	s, tx, err := d.beginSystemOp(ctx, true)
	if err != nil {
		return SystemOpResult{}, err
	}

	counts, err := importexport.Import(s, payload)
	if err != nil {
		_ = tx.Rollback()
		return SystemOpResult{}, err
	}
	if err := tx.Commit(); err != nil {
		return SystemOpResult{}, fmt.Errorf("committing import: %w", err)
	}
	for name, n := range counts {
		metrics.ImportRowsTotal.WithLabelValues(name).Add(float64(n))
	}
	return SystemOpResult{Headers: []string{"status"}, Rows: [][]interface{}{{"OK"}}}, nil
}

// Backup copies this database's full keyspace into a fresh on-disk
// companion store at destPath (§4.6).
func (d *Database) Backup(ctx context.Context, destPath string) (SystemOpResult, error) {
	copied, err := importexport.Backup(ctx, d.store, destPath)
	if err != nil {
		return SystemOpResult{}, err
	}
	return SystemOpResult{Headers: []string{"status", "keys_copied"}, Rows: [][]interface{}{{"OK", copied}}}, nil
}

// Restore copies a backup file's full keyspace into this database. It
// refuses if this database already holds any relation (§4.6).
func (d *Database) Restore(ctx context.Context, srcPath string) (SystemOpResult, error) {
	copied, err := importexport.Restore(ctx, srcPath, d.store)
	if err != nil {
		return SystemOpResult{}, err
	}
	return SystemOpResult{Headers: []string{"status", "keys_copied"}, Rows: [][]interface{}{{"OK", copied}}}, nil
}

// ImportFromBackup re-homes each named relation's rows out of a backup
// file onto this database's same-named relation, rewriting the relation
// id prefix as it goes (§4.6). It commits once every relation has
// copied successfully.
func (d *Database) ImportFromBackup(ctx context.Context, srcPath string, names []string) (SystemOpResult, error) {
	_, tx, err := d.beginSystemOp(ctx, true)
	if err != nil {
		return SystemOpResult{}, err
	}

	cat := catalog.New(tx)
	copied, err := importexport.ImportFromBackup(ctx, cat, tx, srcPath, names)
	if err != nil {
		_ = tx.Rollback()
		return SystemOpResult{}, err
	}
	if err := tx.Commit(); err != nil {
		return SystemOpResult{}, fmt.Errorf("committing import-from-backup: %w", err)
	}
	return SystemOpResult{Headers: []string{"status", "keys_copied"}, Rows: [][]interface{}{{"OK", copied}}}, nil
}
