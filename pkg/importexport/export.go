// Package importexport implements spec.md §4.6: exporting relations to
// JSON, importing rows from array-of-objects or headers/rows payloads,
// and backing up/restoring/importing-from-backup against a second KV
// store instance. It is grounded on the teacher's deploy-bundle
// marshal/unmarshal helpers (pkg/deploy/deploy.go), generalized from one
// fixed manifest shape to the relation catalog's variable schemas.
package importexport

import (
	"fmt"

	"github.com/cuemby/strata/pkg/session"
	"github.com/cuemby/strata/pkg/types"
)

// Export projects every named relation's stored rows into a JSON-ready
// value, keyed by relation name. asObjects selects between the two row
// shapes §4.6 describes: `{col: value, ...}` per row, or a shared
// `{headers, rows}` table.
func Export(s *session.SessionTx, names []string, asObjects bool) (map[string]interface{}, error) {
	out := make(map[string]interface{}, len(names))
	for _, name := range names {
		h, err := s.GetRelation(name, false)
		if err != nil {
			return nil, fmt.Errorf("exporting %q: %w", name, err)
		}
		rows, err := scanRelation(s, h)
		if err != nil {
			return nil, fmt.Errorf("exporting %q: %w", name, err)
		}
		cols := h.Metadata.ColumnNames()
		if asObjects {
			objs := make([]map[string]interface{}, len(rows))
			for i, row := range rows {
				obj := make(map[string]interface{}, len(cols))
				for j, col := range cols {
					obj[col] = types.ToJSON(row[j])
				}
				objs[i] = obj
			}
			out[name] = objs
		} else {
			jsonRows := make([][]interface{}, len(rows))
			for i, row := range rows {
				jsonRows[i] = types.TupleToJSON(row)
			}
			out[name] = map[string]interface{}{"headers": cols, "rows": jsonRows}
		}
	}
	return out, nil
}

// scanRelation range-scans a relation's full key range and decodes each
// (key, value) pair into a full row, keys then non-keys, per §4.6.
func scanRelation(s *session.SessionTx, h types.RelationHandle) ([]types.Tuple, error) {
	nk := len(h.Metadata.Keys)
	nv := len(h.Metadata.NonKeys)
	var rows []types.Tuple
	err := s.Txn().Scan(h.LowerBound(), h.UpperBound(), func(key, value []byte) (bool, error) {
		keyTuple, err := types.DecodeTuple(key[8:], nk)
		if err != nil {
			return false, fmt.Errorf("decoding key: %w", err)
		}
		valTuple, err := types.DecodeTuple(value, nv)
		if err != nil {
			return false, fmt.Errorf("decoding value: %w", err)
		}
		row := make(types.Tuple, 0, nk+nv)
		row = append(row, keyTuple...)
		row = append(row, valTuple...)
		rows = append(rows, row)
		return true, nil
	})
	return rows, err
}
