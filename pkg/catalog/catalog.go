// Package catalog implements the system-catalog relation described by
// spec.md §3/§4.3: the persistent descriptor store for every user
// relation, itself stored as ordinary rows at RelationId 0. It is
// grounded on the teacher's BoltStore CRUD helpers (pkg/storage/boltdb.go)
// — JSON-marshal a struct, Put it under an encoded key, decode on Get —
// adapted from bucket-scoped keys to the relation-id-prefixed flat
// keyspace pkg/kv exposes.
package catalog

import (
	"bytes"
	"encoding/json"
	"fmt"

	"github.com/cuemby/strata/pkg/dberr"
	"github.com/cuemby/strata/pkg/kv"
	"github.com/cuemby/strata/pkg/types"
)

// largestUTFChar is the maximum Unicode code point, the counterpart of the
// original implementation's LARGEST_UTF_CHAR sentinel. Under the
// length-prefixed string encoding of types.EncodeTuple, a key built from it
// does not exceed names longer than four bytes, so ListRelations does not
// use it as its scan bound.
const largestUTFChar = "\U0010FFFF"

// Catalog mediates all reads/writes of relation handles against the
// system-catalog range (RelationId 0) of one kv.Txn.
type Catalog struct {
	tx kv.Txn
}

// New wraps a transaction with catalog operations.
func New(tx kv.Txn) *Catalog {
	return &Catalog{tx: tx}
}

func catalogKey(name string) []byte {
	return types.SystemCatalogHandle().EncodeKey(types.Tuple{types.Str(name)})
}

// Lookup implements dlog.RelationLookup.
func (c *Catalog) Lookup(name string) (types.RelationHandle, bool, error) {
	return c.get(name)
}

func (c *Catalog) get(name string) (types.RelationHandle, bool, error) {
	raw, ok, err := c.tx.Get(catalogKey(name))
	if err != nil {
		return types.RelationHandle{}, false, err
	}
	if !ok {
		return types.RelationHandle{}, false, nil
	}
	var h types.RelationHandle
	if err := json.Unmarshal(raw, &h); err != nil {
		return types.RelationHandle{}, false, fmt.Errorf("decoding relation handle %q: %w", name, err)
	}
	return h, true, nil
}

func (c *Catalog) put(h types.RelationHandle) error {
	raw, err := json.Marshal(h)
	if err != nil {
		return fmt.Errorf("encoding relation handle %q: %w", h.Name, err)
	}
	return c.tx.Put(catalogKey(h.Name), raw)
}

// GetRelation resolves name to its handle, failing with
// eval::stored_relation_not_found if absent. needsWrite is accepted for
// interface symmetry with spec.md §4.3 and ignored; no layer of this module
// enforces access levels on writes.
func (c *Catalog) GetRelation(name string, needsWrite bool) (types.RelationHandle, error) {
	h, ok, err := c.get(name)
	if err != nil {
		return types.RelationHandle{}, err
	}
	if !ok {
		return types.RelationHandle{}, dberr.New(dberr.CodeStoredRelationNotFound, "stored relation %q not found", name)
	}
	_ = needsWrite
	return h, nil
}

// RelationExists reports whether name is defined.
func (c *Catalog) RelationExists(name string) (bool, error) {
	_, ok, err := c.get(name)
	return ok, err
}

// CreateRelation inserts a brand-new handle, failing with
// eval::stored_relation_conflict if the name is already taken.
func (c *Catalog) CreateRelation(h types.RelationHandle) error {
	exists, err := c.RelationExists(h.Name)
	if err != nil {
		return err
	}
	if exists {
		return dberr.New(dberr.CodeStoredRelationConflict, "stored relation %q already exists", h.Name)
	}
	return c.put(h)
}

// ReplaceRelation unconditionally redefines name's handle (new id, new
// schema), returning the old handle's key range so the caller can
// register it for post-commit deletion.
func (c *Catalog) ReplaceRelation(h types.RelationHandle) (lower, upper []byte, err error) {
	old, ok, err := c.get(h.Name)
	if err != nil {
		return nil, nil, err
	}
	if err := c.put(h); err != nil {
		return nil, nil, err
	}
	if !ok {
		return nil, nil, nil
	}
	return old.LowerBound(), old.UpperBound(), nil
}

// DestroyRelation removes name's catalog entry and returns its key range
// for the caller to delete after commit.
func (c *Catalog) DestroyRelation(name string) (lower, upper []byte, err error) {
	h, err := c.GetRelation(name, true)
	if err != nil {
		return nil, nil, err
	}
	if err := c.tx.Delete(catalogKey(name)); err != nil {
		return nil, nil, err
	}
	return h.LowerBound(), h.UpperBound(), nil
}

// RenameRelation moves a handle's catalog entry to a new name, leaving its
// id and data range untouched.
func (c *Catalog) RenameRelation(oldName, newName string) error {
	h, err := c.GetRelation(oldName, true)
	if err != nil {
		return err
	}
	if exists, err := c.RelationExists(newName); err != nil {
		return err
	} else if exists {
		return dberr.New(dberr.CodeStoredRelationConflict, "stored relation %q already exists", newName)
	}
	if err := c.tx.Delete(catalogKey(oldName)); err != nil {
		return err
	}
	h.Name = newName
	return c.put(h)
}

// SetRelationTriggers replaces all three trigger lists atomically.
func (c *Catalog) SetRelationTriggers(name string, puts, rms, replaces []types.Trigger) error {
	h, err := c.GetRelation(name, true)
	if err != nil {
		return err
	}
	h.PutTriggers, h.RmTriggers, h.ReplaceTriggers = puts, rms, replaces
	return c.put(h)
}

// SetAccessLevel updates name's access level.
func (c *Catalog) SetAccessLevel(name string, level types.AccessLevel) error {
	h, err := c.GetRelation(name, true)
	if err != nil {
		return err
	}
	h.AccessLevel = level
	return c.put(h)
}

// ListRelations scans the whole catalog range, decoding every handle. The
// upper bound is the catalog relation's own UpperBound (the first key of
// relation id 1), so names of any length are included; the loop still
// checks each key against upper explicitly so it terminates even if the
// backing iterator over-scans past the bound.
func (c *Catalog) ListRelations() ([]types.RelationHandle, error) {
	sysHandle := types.SystemCatalogHandle()
	lower := sysHandle.EncodeKey(types.Tuple{types.Str("")})
	upper := sysHandle.UpperBound()

	var out []types.RelationHandle
	err := c.tx.Scan(lower, upper, func(k, v []byte) (bool, error) {
		if bytes.Compare(k, upper) >= 0 {
			return false, nil
		}
		var h types.RelationHandle
		if err := json.Unmarshal(v, &h); err != nil {
			return false, fmt.Errorf("decoding relation handle during list: %w", err)
		}
		out = append(out, h)
		return true, nil
	})
	return out, err
}
