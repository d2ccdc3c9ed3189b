// =============================================================================
// CSV Document Loader - Store Handle
// =============================================================================
//
// The store package is the only code that talks to the document database.
// The loader and the orchestrator see it through the Store and Collection
// interfaces, so the same pipeline runs against MongoDB or against the
// in-memory store used by tests and dry runs.
//
// IMPLEMENTATIONS:
//   - MongoStore:  go.mongodb.org/mongo-driver, one client per run
//   - MemoryStore: maps guarded by a mutex, Mongo-like duplicate semantics
//
// =============================================================================

package store

import (
	"context"

	"go.mongodb.org/mongo-driver/bson"
)

// Duplicate key error codes reported by MongoDB.
var duplicateKeyCodes = map[int]bool{
	11000: true,
	11001: true,
	12582: true,
}

// IsDuplicateKeyCode reports whether a server error code means a unique
// index rejected the document.
func IsDuplicateKeyCode(code int) bool {
	return duplicateKeyCodes[code]
}

// =============================================================================
// RESULTS
// =============================================================================

// WriteFailure is the rejection of one document of a bulk operation.
type WriteFailure struct {
	// Index is the position of the document in the submitted batch.
	Index int

	// Duplicate is true when a unique index rejected the document.
	Duplicate bool

	Message string
}

// BulkResult summarizes an unordered bulk operation. Failures of single
// documents are reported here and do not stop the rest of the batch.
type BulkResult struct {
	// Inserted counts documents created by plain inserts.
	Inserted int64

	// Upserted counts documents created by replace-with-upsert.
	Upserted int64

	// Matched counts replacements that found an existing document.
	Matched int64

	// Modified counts matched documents whose content changed.
	Modified int64

	Failures []WriteFailure
}

// =============================================================================
// INTERFACES
// =============================================================================

// Collection is a named set of documents.
type Collection interface {
	// Name returns the collection name.
	Name() string

	// Count returns the number of stored documents.
	Count(ctx context.Context) (int64, error)

	// InsertMany inserts docs without stopping at the first failure.
	// The error is non-nil only when the batch as a whole failed.
	InsertMany(ctx context.Context, docs []bson.D) (*BulkResult, error)

	// ReplaceMany replaces, or inserts when absent, each document keyed by
	// the value at idField. Documents without that value are inserted.
	ReplaceMany(ctx context.Context, idField string, docs []bson.D) (*BulkResult, error)

	// Exists reports whether any stored document matches any filter. A
	// filter matches when every path it names holds the given value.
	Exists(ctx context.Context, filters ...bson.D) (bool, error)

	// DeleteAll removes every document and returns how many were removed.
	DeleteAll(ctx context.Context) (int64, error)
}

// Store hands out collections of one database.
type Store interface {
	Collection(name string) Collection
	Close(ctx context.Context) error
}
