package importexport

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/cuemby/strata/pkg/dberr"
	"github.com/cuemby/strata/pkg/session"
	"github.com/cuemby/strata/pkg/types"
)

// Import applies a `{relation_or_prefixed_name: payload}` mapping against
// s in one pass (§4.6). A leading "-" on the key name selects delete-mode
// for that relation. Every entry is applied via the session's existing
// ExecuteRelation path (the same one that serves `:put`/`:rm` script
// statements), so import shares exactly the put/delete/trigger semantics
// a hand-written script would get.
//
// Import does not commit; the caller commits once after every entry has
// applied successfully, so the whole mapping is atomic. It returns the
// number of rows applied per relation name (unprefixed), for metrics.
func Import(s *session.SessionTx, payload map[string]interface{}) (map[string]int, error) {
	counts := make(map[string]int, len(payload))
	for rawName, data := range payload {
		deleteMode := strings.HasPrefix(rawName, "-")
		name := strings.TrimPrefix(rawName, "-")

		h, err := s.GetRelation(name, true)
		if err != nil {
			return nil, fmt.Errorf("importing into %q: %w", name, err)
		}

		rows, err := decodeImportRows(data, h.Metadata, deleteMode)
		if err != nil {
			return nil, fmt.Errorf("importing into %q: %w", name, err)
		}

		op := types.OpPut
		if deleteMode {
			op = types.OpRm
		}
		head := types.EntryHead(h.Metadata.ColumnNames())
		if _, err := s.ExecuteRelation(rows, op, h.Metadata, name, head); err != nil {
			return nil, fmt.Errorf("importing into %q: %w", name, err)
		}
		counts[name] += len(rows)
	}
	return counts, nil
}

// decodeImportRows dispatches on the payload's shape: an array of
// objects, or a {headers, rows} table. Other shapes fail (§4.6).
func decodeImportRows(data interface{}, meta types.RelationMetadata, deleteMode bool) ([]types.Tuple, error) {
	switch v := data.(type) {
	case []interface{}:
		return decodeObjectRows(v, meta, deleteMode)
	case map[string]interface{}:
		headersRaw, hasHeaders := v["headers"]
		rowsRaw, hasRows := v["rows"]
		if hasHeaders && hasRows {
			return decodeHeaderRows(headersRaw, rowsRaw, meta, deleteMode)
		}
		return nil, fmt.Errorf("object payload must have \"headers\" and \"rows\"")
	default:
		return nil, dberr.New(dberr.CodeImportBadData, "unsupported import payload shape %T", data)
	}
}

// decodeObjectRows handles the array-of-objects shape: each row is a
// JSON object, columns looked up by name.
func decodeObjectRows(objs []interface{}, meta types.RelationMetadata, deleteMode bool) ([]types.Tuple, error) {
	cols := meta.Keys
	if !deleteMode {
		cols = append(append([]types.ColumnDef{}, meta.Keys...), meta.NonKeys...)
	}
	rows := make([]types.Tuple, 0, len(objs))
	for i, raw := range objs {
		obj, ok := raw.(map[string]interface{})
		if !ok {
			return nil, fmt.Errorf("row %d: expected an object, got %T", i, raw)
		}
		row := make(types.Tuple, 0, len(cols))
		for _, col := range cols {
			v, err := lookupColumn(obj, col)
			if err != nil {
				return nil, fmt.Errorf("row %d: %w", i, err)
			}
			row = append(row, v)
		}
		rows = append(rows, row)
	}
	return rows, nil
}

func lookupColumn(obj map[string]interface{}, col types.ColumnDef) (types.DataValue, error) {
	raw, present := obj[col.Name]
	var v types.DataValue
	if !present {
		if !col.HasDefault {
			return types.DataValue{}, dberr.New(dberr.CodeImportBadData, "missing required column %q with no default", col.Name)
		}
		dv, err := evalDefault(col.DefaultExpr)
		if err != nil {
			return types.DataValue{}, fmt.Errorf("column %q: %w", col.Name, err)
		}
		v = dv
	} else {
		v = types.FromJSON(raw)
	}
	return types.Coerce(v, col.Type)
}

// evalDefault evaluates a column's default expression as a constant.
// Expression evaluation proper belongs to the compiler collaborator
// (spec.md §1); at import time a default is always a literal constant,
// so it is parsed here as one JSON value rather than threaded through a
// real expression evaluator the import path has no access to.
func evalDefault(expr string) (types.DataValue, error) {
	var v interface{}
	if err := json.Unmarshal([]byte(expr), &v); err != nil {
		return types.DataValue{}, fmt.Errorf("invalid default expression %q: %w", expr, err)
	}
	return types.FromJSON(v), nil
}

// decodeHeaderRows handles the {headers, rows} shape: headers give a
// name->index mapping, rows are indexed by position.
func decodeHeaderRows(headersRaw, rowsRaw interface{}, meta types.RelationMetadata, deleteMode bool) ([]types.Tuple, error) {
	headers, ok := headersRaw.([]interface{})
	if !ok {
		return nil, fmt.Errorf("\"headers\" must be an array of strings")
	}
	nameToIdx := make(map[string]int, len(headers))
	for i, h := range headers {
		name, ok := h.(string)
		if !ok {
			return nil, fmt.Errorf("header %d is not a string", i)
		}
		nameToIdx[name] = i
	}

	cols := meta.Keys
	if !deleteMode {
		cols = append(append([]types.ColumnDef{}, meta.Keys...), meta.NonKeys...)
	}
	colIdx := make([]int, len(cols))
	for i, col := range cols {
		idx, ok := nameToIdx[col.Name]
		if !ok {
			return nil, fmt.Errorf("missing header for required column %q", col.Name)
		}
		colIdx[i] = idx
	}

	rowsArr, ok := rowsRaw.([]interface{})
	if !ok {
		return nil, fmt.Errorf("\"rows\" must be an array")
	}
	rows := make([]types.Tuple, 0, len(rowsArr))
	for i, raw := range rowsArr {
		arr, ok := raw.([]interface{})
		if !ok {
			return nil, fmt.Errorf("row %d: expected an array, got %T", i, raw)
		}
		row := make(types.Tuple, 0, len(cols))
		for j, col := range cols {
			idx := colIdx[j]
			if idx >= len(arr) {
				return nil, fmt.Errorf("row %d: missing value for column %q at index %d", i, col.Name, idx)
			}
			v, err := types.Coerce(types.FromJSON(arr[idx]), col.Type)
			if err != nil {
				return nil, fmt.Errorf("row %d, column %q: %w", i, col.Name, err)
			}
			row = append(row, v)
		}
		rows = append(rows, row)
	}
	return rows, nil
}
