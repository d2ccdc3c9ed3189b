// =============================================================================
// CSV Document Loader - CSV Parser Module
// =============================================================================
//
// This module ties the line normalizer, the tokenizer and the header
// resolver together and returns a file's header paths and raw data rows.
//
// FLOW:
//   1. Read and normalize lines (ReadError on failure)
//   2. One line or fewer: no data, nothing else is checked
//   3. Tokenize and resolve the header (MissingFieldsError on failure)
//   4. Tokenize every data line, keeping its physical line number
//
// Typing and nesting of values happen later, in the converter.
//
// =============================================================================

package csvparser

import (
	"fmt"

	"github.com/ginjaninja78/csvload/internal/config"
)

// =============================================================================
// CSV DATA STRUCTURE
// =============================================================================

// Row is one tokenized data line.
type Row struct {
	// Line is the physical line number in the source file.
	Line int

	// Fields are the raw values, positionally aligned with the headers.
	Fields []string

	// Err is set when the line could not be tokenized (strict quotes only).
	Err error
}

// CSVData is the parsed content of one file.
type CSVData struct {
	// SourceFile is the path the data was read from.
	SourceFile string

	// Headers are the trimmed field paths from the first line.
	Headers []string

	// Rows are the data lines in file order.
	Rows []Row
}

// Empty reports whether the file held no data rows.
func (d *CSVData) Empty() bool {
	return len(d.Rows) == 0
}

// =============================================================================
// PARSER FUNCTIONS
// =============================================================================

// Parse reads a CSV file and returns its header paths and data rows.
//
// PARAMETERS:
//   - filePath: The path to the CSV file.
//   - settings: Encoding and quoting settings of the target collection.
//   - required: Field paths the header must contain.
//
// RETURNS:
//   - The parsed data. A file with only a header (or nothing) yields
//     data with no rows and no error.
//   - A *ReadError, a *MissingFieldsError, or a header tokenizing error.
func Parse(filePath string, settings config.CSVSettings, required []string) (*CSVData, error) {
	lines, err := ReadLines(filePath, settings.Encoding)
	if err != nil {
		return nil, err
	}

	data := &CSVData{SourceFile: filePath}
	if len(lines) <= 1 {
		return data, nil
	}

	tokenizer := Tokenizer{StrictQuotes: settings.StrictQuotes}

	headerFields, err := tokenizer.Split(lines[0].Text)
	if err != nil {
		return nil, fmt.Errorf("header on line %d: %w", lines[0].Number, err)
	}
	data.Headers, err = ResolveHeaders(headerFields, required)
	if err != nil {
		return nil, err
	}

	data.Rows = make([]Row, 0, len(lines)-1)
	for _, line := range lines[1:] {
		fields, err := tokenizer.Split(line.Text)
		data.Rows = append(data.Rows, Row{Line: line.Number, Fields: fields, Err: err})
	}

	return data, nil
}
