// =============================================================================
// CSV Document Loader - Load Strategy Selector
// =============================================================================
//
// A strategy decides how the records of one file are written:
//
//   Insert                  - the collection is empty; plain inserts
//   UpsertByID              - records carry an identifier; replace or create
//   InsertIgnoreDuplicates  - inserts where an existing identifier is a
//                             duplicate rather than an error
//
// The choice is made once per file from the collection's state and the
// first record. Collections may pin a strategy in their configuration.
// A collection with a natural key never upserts automatically: replacing
// by _id would bypass the natural key check.
//
// =============================================================================

package loader

import (
	"context"
	"fmt"

	"github.com/ginjaninja78/csvload/internal/config"
	"github.com/ginjaninja78/csvload/internal/store"
	"github.com/ginjaninja78/csvload/internal/types"
)

// Strategy is a write strategy.
type Strategy int

const (
	Insert Strategy = iota
	UpsertByID
	InsertIgnoreDuplicates
)

func (s Strategy) String() string {
	switch s {
	case Insert:
		return config.StrategyInsert
	case UpsertByID:
		return config.StrategyUpsert
	case InsertIgnoreDuplicates:
		return config.StrategyInsertIgnoreDuplicates
	default:
		return fmt.Sprintf("Strategy(%d)", int(s))
	}
}

// Configured returns the strategy pinned by a collection's load settings.
// It returns false for "auto" (or an empty setting).
func Configured(name string) (Strategy, bool) {
	switch name {
	case config.StrategyInsert:
		return Insert, true
	case config.StrategyUpsert:
		return UpsertByID, true
	case config.StrategyInsertIgnoreDuplicates:
		return InsertIgnoreDuplicates, true
	default:
		return Insert, false
	}
}

// SelectStrategy picks the strategy for a file.
//
// PARAMETERS:
//   - coll: The target collection.
//   - sample: The first record of the file.
//   - idField: The identifier path of the collection.
//   - naturalKey: The collection's natural key paths, if any.
//
// RETURNS:
//   - Insert when the collection is empty, InsertIgnoreDuplicates when a
//     natural key is set, UpsertByID when the sample has a non-null
//     identifier, InsertIgnoreDuplicates otherwise.
//   - An error if the collection cannot be counted.
func SelectStrategy(ctx context.Context, coll store.Collection, sample types.Record, idField string, naturalKey []string) (Strategy, error) {
	n, err := coll.Count(ctx)
	if err != nil {
		return Insert, &WriteError{Collection: coll.Name(), Err: err}
	}
	if n == 0 {
		return Insert, nil
	}
	if len(naturalKey) > 0 {
		return InsertIgnoreDuplicates, nil
	}

	if id, ok := types.Lookup(sample, idField); ok && id != nil && id != "" {
		return UpsertByID, nil
	}
	return InsertIgnoreDuplicates, nil
}
