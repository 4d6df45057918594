// Package types defines the data model shared by the catalog, session, and
// orchestrator: relation identifiers and handles, tuples, data values, and
// the parsed shape of a single query statement (InputProgram).
package types

import (
	"encoding/binary"
	"fmt"
)

// RelationId is a 64-bit identifier for a stored relation. Id 0 is reserved
// for the system catalog. Ids are allocated strictly monotonically over the
// lifetime of a database.
type RelationId uint64

// SystemCatalogId is the reserved relation id holding relation handles.
const SystemCatalogId RelationId = 0

// Next returns the successor id, used as the exclusive upper bound of this
// relation's key range.
func (r RelationId) Next() RelationId {
	return r + 1
}

// Bytes returns the big-endian encoding of the id, used as the key prefix.
func (r RelationId) Bytes() [8]byte {
	var b [8]byte
	binary.BigEndian.PutUint64(b[:], uint64(r))
	return b
}

// AccessLevel constrains what mutations a relation accepts. Enforcement is a
// catalog-collaborator responsibility; the level itself is opaque data here.
type AccessLevel int

const (
	AccessNormal AccessLevel = iota
	AccessProtected
	AccessReadOnly
	AccessHidden
)

func (a AccessLevel) String() string {
	switch a {
	case AccessNormal:
		return "normal"
	case AccessProtected:
		return "protected"
	case AccessReadOnly:
		return "read_only"
	case AccessHidden:
		return "hidden"
	default:
		return "unknown"
	}
}

// ParseAccessLevel parses the surface-syntax spelling of an access level.
func ParseAccessLevel(s string) (AccessLevel, error) {
	switch s {
	case "normal":
		return AccessNormal, nil
	case "protected":
		return AccessProtected, nil
	case "read_only", "readonly", "read-only":
		return AccessReadOnly, nil
	case "hidden":
		return AccessHidden, nil
	default:
		return 0, fmt.Errorf("unknown access level %q", s)
	}
}

// ColumnDef describes one key or non-key column of a relation.
type ColumnDef struct {
	Name       string
	Type       ColumnType
	HasDefault bool
	// DefaultExpr is an opaque constant expression evaluated once at import
	// time when a column's value is missing from the input row. It is a
	// string because expression evaluation belongs to the compiler
	// collaborator; this module only needs to know whether one exists.
	DefaultExpr string
}

// ColumnType is the semantic type tag attached to a column.
type ColumnType string

const (
	TypeAny    ColumnType = "Any"
	TypeInt    ColumnType = "Int"
	TypeFloat  ColumnType = "Float"
	TypeString ColumnType = "String"
	TypeBool   ColumnType = "Bool"
	TypeBytes  ColumnType = "Bytes"
	TypeList   ColumnType = "List"
)

// Trigger is an opaque script run on a put/rm/replace mutation event.
type Trigger string

// RelationMetadata is the ordered schema of a relation: key columns followed
// by non-key (value) columns.
type RelationMetadata struct {
	Keys    []ColumnDef
	NonKeys []ColumnDef
}

// Arity is the total number of columns.
func (m RelationMetadata) Arity() int {
	return len(m.Keys) + len(m.NonKeys)
}

// ColumnNames returns key column names followed by non-key column names.
func (m RelationMetadata) ColumnNames() []string {
	names := make([]string, 0, m.Arity())
	for _, c := range m.Keys {
		names = append(names, c.Name)
	}
	for _, c := range m.NonKeys {
		names = append(names, c.Name)
	}
	return names
}

// CompatibleWith reports whether this metadata accepts the same rows as
// other — same key/non-key column names and types, in the same order. It
// does not require default expressions or trigger lists to match.
func (m RelationMetadata) CompatibleWith(other RelationMetadata) error {
	if len(m.Keys) != len(other.Keys) {
		return fmt.Errorf("key column count mismatch: %d vs %d", len(m.Keys), len(other.Keys))
	}
	if len(m.NonKeys) != len(other.NonKeys) {
		return fmt.Errorf("non-key column count mismatch: %d vs %d", len(m.NonKeys), len(other.NonKeys))
	}
	for i, c := range m.Keys {
		if c.Name != other.Keys[i].Name || c.Type != other.Keys[i].Type {
			return fmt.Errorf("key column %d mismatch: %s:%s vs %s:%s", i, c.Name, c.Type, other.Keys[i].Name, other.Keys[i].Type)
		}
	}
	for i, c := range m.NonKeys {
		if c.Name != other.NonKeys[i].Name || c.Type != other.NonKeys[i].Type {
			return fmt.Errorf("non-key column %d mismatch: %s:%s vs %s:%s", i, c.Name, c.Type, other.NonKeys[i].Name, other.NonKeys[i].Type)
		}
	}
	return nil
}

// RelationHandle is the persistent descriptor of one stored relation.
type RelationHandle struct {
	Name            string
	Id              RelationId
	Metadata        RelationMetadata
	AccessLevel     AccessLevel
	PutTriggers     []Trigger
	RmTriggers      []Trigger
	ReplaceTriggers []Trigger
}

// EncodeKey encodes a tuple of key-column values into a store key, prefixed
// by this relation's id.
func (h *RelationHandle) EncodeKey(keys Tuple) []byte {
	return encodeKeyWithPrefix(h.Id, keys)
}

// EncodeValue encodes a tuple of non-key-column values into a store value.
func (h *RelationHandle) EncodeValue(vals Tuple) []byte {
	return encodeValue(vals)
}

// LowerBound is the inclusive lower bound of this relation's key range.
func (h *RelationHandle) LowerBound() []byte {
	return encodeKeyWithPrefix(h.Id, Tuple{})
}

// UpperBound is the exclusive upper bound of this relation's key range.
func (h *RelationHandle) UpperBound() []byte {
	return encodeKeyWithPrefix(h.Id.Next(), Tuple{})
}

// AmendKeyPrefix rewrites the leading 8-byte relation-id prefix of b in
// place to this handle's id. Used by import-from-backup to re-home rows
// copied from a source database's relation onto this database's id for the
// same-named relation. b must be at least 8 bytes long.
func (h *RelationHandle) AmendKeyPrefix(b []byte) {
	if len(b) < 8 {
		return
	}
	prefix := h.Id.Bytes()
	copy(b[:8], prefix[:])
}

func encodeKeyWithPrefix(id RelationId, keys Tuple) []byte {
	prefix := id.Bytes()
	body := EncodeTuple(keys)
	out := make([]byte, 0, 8+len(body))
	out = append(out, prefix[:]...)
	out = append(out, body...)
	return out
}

func encodeValue(vals Tuple) []byte {
	return EncodeTuple(vals)
}

// EnsureCompatible is the catalog-facing name used by spec.md §4.4's
// pre-flight check: an existing handle must accept the schema of meta.
func (h *RelationHandle) EnsureCompatible(meta RelationMetadata) error {
	return h.Metadata.CompatibleWith(meta)
}

// SystemCatalogHandle returns the (unstored) handle describing the system
// catalog relation itself: one string key column holding the relation
// name. It exists purely so callers can reuse RelationHandle's key-
// encoding helpers instead of hand-rolling the id-0 prefix.
func SystemCatalogHandle() *RelationHandle {
	return &RelationHandle{
		Name: "_system_catalog",
		Id:   SystemCatalogId,
		Metadata: RelationMetadata{
			Keys: []ColumnDef{{Name: "name", Type: TypeString}},
		},
	}
}
