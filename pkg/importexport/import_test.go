package importexport

import (
	"testing"

	"github.com/cuemby/strata/pkg/dberr"
	"github.com/cuemby/strata/pkg/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestImportObjectRowsCreatesAndPuts(t *testing.T) {
	s := newTestSession(t)
	meta := personMeta()
	_, err := s.ExecuteRelation(nil, types.OpCreate, meta, "person", nil)
	require.NoError(t, err)

	payload := map[string]interface{}{
		"person": []interface{}{
			map[string]interface{}{"id": "a", "name": "Alice"},
			map[string]interface{}{"id": "b", "name": "Bob"},
		},
	}
	counts, err := Import(s, payload)
	require.NoError(t, err)
	assert.Equal(t, 2, counts["person"])

	h, err := s.GetRelation("person", false)
	require.NoError(t, err)
	var n int
	require.NoError(t, s.Txn().Scan(h.LowerBound(), h.UpperBound(), func(k, v []byte) (bool, error) {
		n++
		return true, nil
	}))
	assert.Equal(t, 2, n)
}

func TestImportHeaderRowsShape(t *testing.T) {
	s := newTestSession(t)
	meta := personMeta()
	_, err := s.ExecuteRelation(nil, types.OpCreate, meta, "person", nil)
	require.NoError(t, err)

	payload := map[string]interface{}{
		"person": map[string]interface{}{
			"headers": []interface{}{"id", "name"},
			"rows":    []interface{}{[]interface{}{"a", "Alice"}},
		},
	}
	counts, err := Import(s, payload)
	require.NoError(t, err)
	assert.Equal(t, 1, counts["person"])
}

func TestImportDeleteModePrefix(t *testing.T) {
	s := newTestSession(t)
	meta := personMeta()
	rows := []types.Tuple{{types.Str("a"), types.Str("Alice")}}
	_, err := s.ExecuteRelation(rows, types.OpCreate, meta, "person", nil)
	require.NoError(t, err)

	payload := map[string]interface{}{
		"-person": []interface{}{
			map[string]interface{}{"id": "a"},
		},
	}
	counts, err := Import(s, payload)
	require.NoError(t, err)
	assert.Equal(t, 1, counts["person"])

	h, err := s.GetRelation("person", false)
	require.NoError(t, err)
	var n int
	require.NoError(t, s.Txn().Scan(h.LowerBound(), h.UpperBound(), func(k, v []byte) (bool, error) {
		n++
		return true, nil
	}))
	assert.Equal(t, 0, n)
}

func TestImportMissingRequiredColumnFails(t *testing.T) {
	s := newTestSession(t)
	meta := personMeta()
	_, err := s.ExecuteRelation(nil, types.OpCreate, meta, "person", nil)
	require.NoError(t, err)

	payload := map[string]interface{}{
		"person": []interface{}{
			map[string]interface{}{"id": "a"},
		},
	}
	_, err = Import(s, payload)
	require.Error(t, err)
	assert.True(t, dberr.Is(err, dberr.CodeImportBadData))
}

func TestImportUnsupportedPayloadShapeFails(t *testing.T) {
	s := newTestSession(t)
	meta := personMeta()
	_, err := s.ExecuteRelation(nil, types.OpCreate, meta, "person", nil)
	require.NoError(t, err)

	payload := map[string]interface{}{"person": "not a valid payload"}
	_, err = Import(s, payload)
	require.Error(t, err)
	assert.True(t, dberr.Is(err, dberr.CodeImportBadData))
}
