/*
Package types defines the core data structures shared across the query
runtime: the self-describing DataValue/Tuple model, relation metadata
and handles, and the input-program/output-options shapes the orchestrator
and session layers operate on.

These types are used by every other package for encoding, catalog
bookkeeping, and script execution; they carry no storage or evaluation
logic of their own (that belongs to pkg/kv and pkg/dlog respectively).

# Architecture

The types package is the foundation of the query runtime's data model.
It defines:

  - DataValue: the tagged-union scalar value (null, bool, int, float,
    string, bytes, list, map, and the internal "Bot" sentinel used for
    exclusive upper bounds)
  - Tuple: an ordered row of DataValues
  - RelationId / RelationHandle / RelationMetadata: catalog-facing
    identity and schema for one stored relation
  - ColumnDef / ColumnType: per-column schema and coercion rules
  - AccessLevel: the relation's read/write/protected classification
  - InputProgram / OutOpts / Sorter / QueryAssertion /
    StoreRelationDirective: the shape of one compiled script statement,
    independent of which parser or compiler produced it

# Core Types

Values:
  - DataValue: one scalar; constructors Null, Bool, Int, Float, Str,
    Bytes, List, Map, Bot
  - Tuple: []DataValue, one row
  - DataValue.Compare: total order used both by EncodeTuple's byte
    encoding and by in-memory sorters (spec.md's ordering invariant:
    Null < Bool < numeric < String < Bytes < List < Map < Bot)

Relations:
  - RelationId: 64-bit monotonic identifier, Next() advances it and
    Bytes() gives its big-endian key-prefix encoding
  - ColumnDef, ColumnType: one column's name and declared type
  - RelationMetadata: ordered key columns + value columns, Arity(),
    ColumnNames(), CompatibleWith() for schema-change rejection
  - RelationHandle: a relation's id + metadata, with EncodeKey/EncodeValue
    for turning a Tuple into the byte range pkg/kv stores it under, and
    LowerBound/UpperBound for range scans and deletes
  - SystemCatalogHandle: the well-known handle for the catalog's own
    backing relation (name -> serialized RelationHandle)
  - AccessLevel: Normal, Protected, ReadOnly, Hidden — ParseAccessLevel parses
    the script-facing string form

Programs:
  - InputProgram: one script statement — an opaque Rules value (the
    parser/compiler's NormalizedProgram), entry rule name, entry head
    column names, and OutOpts
  - OutOpts: limit/offset, Sorters, optional QueryAssertion, optional
    StoreRelationDirective, optional TimeoutSeconds/SleepSeconds
  - Sorter, SortDirection: one ORDER BY column and direction
  - QueryAssertion, AssertionKind: ::assert none / ::assert some, with
    a SourceSpan for error reporting
  - StoreRelationDirective, StoreRelationOp: what a `:create`/`:put`/
    `:rm`/`:replace`/`:ensure`/`:ensure_not` statement does to a named
    relation

# Usage

Building a relation handle and encoding a row:

	meta := types.RelationMetadata{
		Keys: []types.ColumnDef{{Name: "name", Type: types.TypeString}},
	}
	handle := types.RelationHandle{Id: 7, Name: "bob_friends", Metadata: meta}
	key := handle.EncodeKey(types.Tuple{types.Str("ann")})

Comparing two values for ordering:

	if a.Compare(b) < 0 {
		// a sorts before b
	}

# Design Patterns

Tagged union over one struct:

	DataValue carries a Kind discriminator plus one field per variant
	rather than an interface, so encoding/decoding and Compare stay
	branch-on-Kind switches instead of type assertions.

Handles carry behavior, metadata stays plain data:

	RelationHandle's pointer-receiver methods (EncodeKey, LowerBound,
	...) depend on the relation's id, so callers construct or look up a
	handle once and reuse it; RelationMetadata itself has no storage
	awareness.

Pluggable program representation:

	InputProgram.Rules is intentionally interface{} rather than a
	concrete compiler type: pkg/session type-asserts it against
	dlog.NormalizedProgram, so any compiler package (pkg/dlog/simple or
	a future real compiler) can produce what ToNormalizedProgram
	consumes without types depending on dlog.

# See Also

  - pkg/dlog for the collaborator interfaces these types are threaded
    through (NormalizedProgram, StratifiedProgram, Relation, ...)
  - pkg/catalog for how RelationHandle is persisted and looked up
  - pkg/kv for the byte-range encoding EncodeKey/EncodeValue feed
*/
package types
