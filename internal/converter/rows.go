// =============================================================================
// CSV Document Loader - Row Processor
// =============================================================================
//
// The row processor turns each tokenized row into a nested record: for every
// header, in header order, the raw value is transformed, typed and assigned
// at the header's field path.
//
// MODES:
//   strict  - the first failing row aborts the file; nothing is returned
//   lenient - failing rows are skipped and reported as RowErrors
//
// =============================================================================

package converter

import (
	"fmt"

	"github.com/ginjaninja78/csvload/internal/coerce"
	"github.com/ginjaninja78/csvload/internal/csvparser"
	"github.com/ginjaninja78/csvload/internal/types"
)

// RowError is a failure of one data row.
type RowError struct {
	// Line is the physical line number of the row.
	Line int

	Err error
}

func (e *RowError) Error() string {
	return fmt.Sprintf("line %d: %v", e.Line, e.Err)
}

func (e *RowError) Unwrap() error {
	return e.Err
}

// RowProcessor builds records from rows of one file.
type RowProcessor struct {
	Headers     []string
	Directives  coerce.Directives
	Transformer *Transformer
}

// Process builds the record for one row. Missing trailing values read as
// empty; values beyond the last header are ignored.
func (p *RowProcessor) Process(row csvparser.Row) (types.Record, error) {
	record, rowErr := p.build(row)
	if rowErr != nil {
		return nil, rowErr
	}
	return record, nil
}

func (p *RowProcessor) build(row csvparser.Row) (types.Record, *RowError) {
	if row.Err != nil {
		return nil, &RowError{Line: row.Line, Err: row.Err}
	}

	record := types.Record{}
	for i, path := range p.Headers {
		if path == "" {
			continue
		}

		raw := ""
		if i < len(row.Fields) {
			raw = row.Fields[i]
		}

		raw, err := p.Transformer.Transform(path, raw)
		if err != nil {
			return nil, &RowError{Line: row.Line, Err: fmt.Errorf("field '%s': %w", path, err)}
		}

		value, err := coerce.Value(path, raw, p.Directives)
		if err != nil {
			return nil, &RowError{Line: row.Line, Err: err}
		}

		types.Set(&record, path, value)
	}
	return record, nil
}

// BuildRecords processes every row of a file.
//
// PARAMETERS:
//   - rows: The file's data rows, in file order.
//   - p: The processor configured for the file's headers.
//   - strict: Abort on the first failing row.
//
// RETURNS:
//   - The records of the rows that succeeded, in file order.
//   - The row errors (lenient mode only).
//   - The first row error in strict mode, with no records.
func BuildRecords(rows []csvparser.Row, p *RowProcessor, strict bool) ([]types.Record, []*RowError, error) {
	records := make([]types.Record, 0, len(rows))
	var rowErrors []*RowError

	for _, row := range rows {
		record, rowErr := p.build(row)
		if rowErr != nil {
			if strict {
				return nil, nil, rowErr
			}
			rowErrors = append(rowErrors, rowErr)
			continue
		}
		records = append(records, record)
	}

	return records, rowErrors, nil
}
