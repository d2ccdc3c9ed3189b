// =============================================================================
// CSV Document Loader - Shared Types
// =============================================================================
//
// This package contains types shared by the converter, loader, store and
// orchestrator packages so that none of them has to import another just
// for a type.
//
// =============================================================================

package types

import (
	"go.mongodb.org/mongo-driver/bson"
)

// =============================================================================
// RECORDS
// =============================================================================

// Record is one document built from a CSV row (or from a group of rows after
// consolidation). It is an ordered document so that stored field order
// follows header order and its BSON encoding is deterministic.
type Record = bson.D

// =============================================================================
// LOAD OUTCOME
// =============================================================================

// LoadOutcome counts what happened to the records of one file.
type LoadOutcome struct {
	// Inserted is the number of newly created documents.
	Inserted int

	// Modified is the number of existing documents that were changed.
	Modified int

	// Duplicates counts records that were already present (ignored
	// duplicates and unchanged upserts).
	Duplicates int

	// Errors holds every per-row and per-record error message in order.
	Errors []string
}

// AddError appends an error message.
func (o *LoadOutcome) AddError(msg string) {
	o.Errors = append(o.Errors, msg)
}

// Merge adds the counts and errors of other into o.
func (o *LoadOutcome) Merge(other LoadOutcome) {
	o.Inserted += other.Inserted
	o.Modified += other.Modified
	o.Duplicates += other.Duplicates
	o.Errors = append(o.Errors, other.Errors...)
}
