// =============================================================================
// CSV Document Loader - Converter Module
// =============================================================================
//
// This module runs the pipeline for a single file, from CSV text to
// documents written to the store.
//
// PIPELINE:
//   1. Parse the CSV file (lines, tokens, headers, required fields)
//   2. Build one record per row (transform, coerce, nest)
//   3. Consolidate records into grouped documents (when configured)
//   4. Choose the load strategy
//   5. Write the documents as one unordered batch
//
// Steps 1 to 3 are Prepare and touch no store; `inspect` uses them alone.
//
// =============================================================================

package converter

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/ginjaninja78/csvload/internal/config"
	"github.com/ginjaninja78/csvload/internal/csvparser"
	"github.com/ginjaninja78/csvload/internal/loader"
	"github.com/ginjaninja78/csvload/internal/logging"
	"github.com/ginjaninja78/csvload/internal/store"
	"github.com/ginjaninja78/csvload/internal/types"
)

// ErrAllRowsFailed is returned when no row of a file could be built.
var ErrAllRowsFailed = errors.New("all rows contained errors")

// =============================================================================
// RESULT STRUCTURES
// =============================================================================

// Prepared holds the documents built from a file, before loading.
type Prepared struct {
	// Rows is the number of data rows read.
	Rows int

	// RowErrors is the number of rows skipped in lenient mode.
	RowErrors int

	// Records are the documents to write, in order.
	Records []types.Record

	// Errors are the row and consolidation errors that were skipped.
	Errors []string

	// NoData is true when the file had no data rows.
	NoData bool
}

// Result represents the outcome of processing a single file.
type Result struct {
	// File is the path of the input file.
	File string

	// Collection is the target collection.
	Collection string

	// Strategy is the write strategy used, empty if nothing was written.
	Strategy string

	// Rows is the number of data rows read.
	Rows int

	// RowErrors is the number of rows skipped in lenient mode.
	RowErrors int

	// Records is the number of documents sent to the store.
	Records int

	// WriteErrors is the number of documents the store rejected.
	WriteErrors int

	// Outcome holds the load counts and every recorded error. It is set
	// whenever rows were built, even if the file later failed.
	Outcome *types.LoadOutcome

	// Err is the file-level failure, nil on success.
	Err error

	// NoData is true when the file had no data rows and was skipped.
	NoData bool

	// Duration is the time taken to process the file.
	Duration time.Duration
}

// Failed reports whether the file failed at file level.
func (r *Result) Failed() bool {
	return r.Err != nil
}

// =============================================================================
// CONVERTER STRUCTURE
// =============================================================================

// Converter handles the loading of a single CSV file.
type Converter struct {
	filePath string
	config   *config.CollectionConfig
	target   store.Collection
	logger   logging.Logger
}

// New creates a new Converter instance.
//
// PARAMETERS:
//   - filePath: The path to the input CSV file.
//   - collCfg: The configuration of the target collection.
//   - target: The collection to write to. It may be nil for Prepare only.
//   - logger: Receives progress messages.
func New(filePath string, collCfg *config.CollectionConfig, target store.Collection, logger logging.Logger) *Converter {
	if logger == nil {
		logger = logging.Nop()
	}
	return &Converter{
		filePath: filePath,
		config:   collCfg,
		target:   target,
		logger:   logger,
	}
}

// =============================================================================
// PREPARATION
// =============================================================================

// Prepare parses the file and builds its documents.
//
// RETURNS:
//   - The prepared documents. NoData is set for empty or header-only files.
//   - A file-level error: *csvparser.ReadError, *csvparser.MissingFieldsError,
//     the first *RowError in strict mode, ErrAllRowsFailed, or a
//     consolidation error.
func (c *Converter) Prepare() (*Prepared, error) {
	strict := c.config.Strict()

	// =========================================================================
	// STEP 1: PARSE INPUT CSV
	// =========================================================================

	data, err := csvparser.Parse(c.filePath, c.config.CSVSettings, c.config.RequiredFields)
	if err != nil {
		return nil, err
	}
	if data.Empty() {
		return &Prepared{NoData: true}, nil
	}

	prepared := &Prepared{Rows: len(data.Rows)}
	c.logger.Debugf("Parsed %d rows with %d headers", len(data.Rows), len(data.Headers))

	// =========================================================================
	// STEP 2: BUILD RECORDS
	// =========================================================================

	processor := &RowProcessor{
		Headers:     data.Headers,
		Directives:  c.config.FieldTypes,
		Transformer: NewTransformer(c.config.Transformations),
	}

	records, rowErrors, err := BuildRecords(data.Rows, processor, strict)
	if err != nil {
		return nil, err
	}
	for _, rowErr := range rowErrors {
		c.logger.Warnf("Skipping row: %v", rowErr)
		prepared.Errors = append(prepared.Errors, rowErr.Error())
	}
	prepared.RowErrors = len(rowErrors)

	if len(records) == 0 {
		return nil, ErrAllRowsFailed
	}

	// =========================================================================
	// STEP 3: CONSOLIDATE
	// =========================================================================

	if spec := c.config.Consolidation; spec != nil {
		consolidated, issues, err := Consolidate(records, spec, strict)
		if err != nil {
			return nil, err
		}
		for _, issue := range issues {
			c.logger.Warnf("Skipping item: %v", issue)
			prepared.Errors = append(prepared.Errors, issue.Error())
		}
		c.logger.Debugf("Consolidated %d records into %d documents", len(records), len(consolidated))
		records = consolidated
	}

	prepared.Records = records
	return prepared, nil
}

// =============================================================================
// MAIN PROCESSING FUNCTION
// =============================================================================

// Run executes the full pipeline for the file.
//
// RETURNS:
//   - A Result describing the file. Run never panics on bad input; every
//     failure is reported in Result.Err.
func (c *Converter) Run(ctx context.Context) *Result {
	start := time.Now()
	result := &Result{
		File:       c.filePath,
		Collection: c.config.Collection,
	}
	defer func() { result.Duration = time.Since(start) }()

	c.logger.Infof("Processing file: %s", c.filePath)

	prepared, err := c.Prepare()
	if err != nil {
		result.Err = err
		return result
	}
	if prepared.NoData {
		result.NoData = true
		c.logger.Infof("No data rows, skipping")
		return result
	}

	result.Rows = prepared.Rows
	result.RowErrors = prepared.RowErrors
	result.Records = len(prepared.Records)
	result.Outcome = &types.LoadOutcome{Errors: prepared.Errors}

	if c.target == nil {
		result.Err = fmt.Errorf("no target collection for %s", c.config.Collection)
		return result
	}

	// =========================================================================
	// STEP 4: CHOOSE STRATEGY
	// =========================================================================

	strategy, pinned := loader.Configured(c.config.Load.Strategy)
	if !pinned {
		strategy, err = loader.SelectStrategy(ctx, c.target, prepared.Records[0], c.config.Load.IDField, c.config.Load.NaturalKey)
		if err != nil {
			result.Err = err
			return result
		}
	}
	result.Strategy = strategy.String()
	c.logger.Debugf("Using strategy %s", strategy)

	// =========================================================================
	// STEP 5: WRITE
	// =========================================================================

	writer := &loader.Writer{
		IDField:    c.config.Load.IDField,
		NaturalKey: c.config.Load.NaturalKey,
	}
	outcome, err := writer.Write(ctx, c.target, prepared.Records, strategy)
	if err != nil {
		result.Err = err
		return result
	}
	result.WriteErrors = len(outcome.Errors)
	result.Outcome.Merge(*outcome)

	c.logger.Infof("Inserted %d, modified %d, duplicates %d, errors %d",
		result.Outcome.Inserted, result.Outcome.Modified, result.Outcome.Duplicates, len(result.Outcome.Errors))

	return result
}
