// =============================================================================
// CSV Document Loader - Batched Writer
// =============================================================================
//
// The writer sends the records of one file to the store as a single
// unordered batch and turns the store's answer into a LoadOutcome.
// A rejected record never stops its siblings; only a failure of the batch
// as a whole (connection lost, timeout) is returned as an error.
//
// NATURAL KEYS:
//   Some collections have records without a stable _id whose identity is a
//   combination of fields (employee, month, year). With load.natural_key
//   set, the insert strategies first look for a stored record with the
//   same _id or the same natural key and count a match as a duplicate.
//
// =============================================================================

package loader

import (
	"context"
	"fmt"

	"go.mongodb.org/mongo-driver/bson"

	"github.com/ginjaninja78/csvload/internal/store"
	"github.com/ginjaninja78/csvload/internal/types"
)

// WriteError is a failure of a whole batch.
type WriteError struct {
	Collection string
	Strategy   string
	Err        error
}

func (e *WriteError) Error() string {
	if e.Strategy == "" {
		return fmt.Sprintf("write to %s failed: %v", e.Collection, e.Err)
	}
	return fmt.Sprintf("write to %s (%s) failed: %v", e.Collection, e.Strategy, e.Err)
}

func (e *WriteError) Unwrap() error {
	return e.Err
}

// Writer writes the records of a file.
type Writer struct {
	// IDField is the identifier path used by UpsertByID.
	IDField string

	// NaturalKey lists the paths that identify a record when its _id is
	// not stable. Empty disables the pre-check.
	NaturalKey []string
}

// Write stores records with the given strategy.
//
// PARAMETERS:
//   - coll: The target collection.
//   - records: The records of one file, in order.
//   - strategy: How to write them.
//
// RETURNS:
//   - The counts and per-record errors.
//   - A *WriteError if the batch as a whole failed.
func (w *Writer) Write(ctx context.Context, coll store.Collection, records []types.Record, strategy Strategy) (*types.LoadOutcome, error) {
	outcome := &types.LoadOutcome{}
	if len(records) == 0 {
		return outcome, nil
	}

	fail := func(err error) (*types.LoadOutcome, error) {
		return nil, &WriteError{Collection: coll.Name(), Strategy: strategy.String(), Err: err}
	}

	switch strategy {
	case UpsertByID:
		res, err := coll.ReplaceMany(ctx, w.idField(), records)
		if err != nil {
			return fail(err)
		}
		w.addFailures(outcome, res.Failures, records, false)

		outcome.Inserted = int(res.Upserted + res.Inserted)
		outcome.Modified = int(res.Modified)
		unchanged := len(records) - outcome.Inserted - outcome.Modified - len(res.Failures)
		if unchanged > 0 {
			outcome.Duplicates = unchanged
		}
		return outcome, nil

	case Insert, InsertIgnoreDuplicates:
		pending, existing, err := w.precheck(ctx, coll, records)
		if err != nil {
			return fail(err)
		}
		outcome.Duplicates = existing

		res, err := coll.InsertMany(ctx, pending)
		if err != nil {
			return fail(err)
		}
		outcome.Inserted = int(res.Inserted)
		w.addFailures(outcome, res.Failures, pending, strategy == InsertIgnoreDuplicates)
		return outcome, nil

	default:
		return fail(fmt.Errorf("unknown strategy %d", int(strategy)))
	}
}

func (w *Writer) idField() string {
	if w.IDField == "" {
		return "_id"
	}
	return w.IDField
}

// precheck drops records that are already stored under the same _id or
// the same natural key. It returns the records left to insert and how many
// were dropped.
func (w *Writer) precheck(ctx context.Context, coll store.Collection, records []types.Record) ([]types.Record, int, error) {
	if len(w.NaturalKey) == 0 {
		return records, 0, nil
	}

	pending := make([]types.Record, 0, len(records))
	dropped := 0
	for _, rec := range records {
		filters := w.identityFilters(rec)
		if len(filters) == 0 {
			pending = append(pending, rec)
			continue
		}

		found, err := coll.Exists(ctx, filters...)
		if err != nil {
			return nil, 0, err
		}
		if found {
			dropped++
			continue
		}
		pending = append(pending, rec)
	}
	return pending, dropped, nil
}

// identityFilters returns the _id filter and the natural key filter of a
// record, each only when every value it needs is present.
func (w *Writer) identityFilters(rec types.Record) []bson.D {
	var filters []bson.D

	if id, ok := types.Lookup(rec, "_id"); ok && id != nil {
		filters = append(filters, bson.D{{Key: "_id", Value: id}})
	}

	key := make(bson.D, 0, len(w.NaturalKey))
	for _, path := range w.NaturalKey {
		value, ok := types.Lookup(rec, path)
		if !ok || value == nil {
			return filters
		}
		key = append(key, bson.E{Key: path, Value: value})
	}
	return append(filters, key)
}

// addFailures records per-record failures. With ignoreDuplicates, duplicate
// key failures are counted instead of reported.
func (w *Writer) addFailures(outcome *types.LoadOutcome, failures []store.WriteFailure, batch []types.Record, ignoreDuplicates bool) {
	for _, f := range failures {
		if ignoreDuplicates && f.Duplicate {
			outcome.Duplicates++
			continue
		}
		outcome.AddError(fmt.Sprintf("record %d%s: %s", f.Index+1, describe(batch, f.Index), f.Message))
	}
}

// describe names the record at index by its _id, when it has one.
func describe(batch []types.Record, index int) string {
	if index < 0 || index >= len(batch) {
		return ""
	}
	id, ok := types.Lookup(batch[index], "_id")
	if !ok || id == nil {
		return ""
	}
	return fmt.Sprintf(" (_id %v)", id)
}
