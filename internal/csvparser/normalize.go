// =============================================================================
// CSV Document Loader - Line Normalizer
// =============================================================================
//
// This module reads a CSV file and splits it into logical lines:
//   - the file is decoded to UTF-8 (a leading byte-order mark is dropped)
//   - "\r\n" and lone "\r" become "\n"
//   - every line is trimmed
//   - lines that are empty after trimming are dropped
//
// Each kept line remembers its physical line number so that diagnostics
// point at the line a user sees in an editor, not at its position among
// the non-empty lines.
//
// ENCODINGS:
//   utf-8 (default), latin1 / iso-8859-1, windows-1252, utf-16le, utf-16be.
//
// =============================================================================

package csvparser

import (
	"fmt"
	"io"
	"os"
	"strings"

	"golang.org/x/text/encoding"
	"golang.org/x/text/encoding/charmap"
	"golang.org/x/text/encoding/unicode"
	"golang.org/x/text/transform"
)

// Line is one non-empty, trimmed line of input.
type Line struct {
	// Number is the 1-based physical line number in the source file.
	Number int

	// Text is the trimmed line content.
	Text string
}

// ReadError reports a file that could not be opened or decoded.
type ReadError struct {
	Path string
	Err  error
}

func (e *ReadError) Error() string {
	return fmt.Sprintf("failed to read %s: %v", e.Path, e.Err)
}

func (e *ReadError) Unwrap() error {
	return e.Err
}

// =============================================================================
// NORMALIZATION
// =============================================================================

// NormalizeLines splits content into trimmed, non-empty lines.
func NormalizeLines(content string) []Line {
	content = strings.ReplaceAll(content, "\r\n", "\n")
	content = strings.ReplaceAll(content, "\r", "\n")

	var lines []Line
	for i, raw := range strings.Split(content, "\n") {
		text := strings.TrimSpace(raw)
		if text == "" {
			continue
		}
		lines = append(lines, Line{Number: i + 1, Text: text})
	}
	return lines
}

// ReadLines reads and normalizes a whole file.
//
// PARAMETERS:
//   - filePath: The CSV file to read.
//   - encodingName: The file's character encoding. Empty means UTF-8.
//
// RETURNS:
//   - The normalized lines (possibly none).
//   - A *ReadError if the file cannot be opened, decoded or read.
func ReadLines(filePath, encodingName string) ([]Line, error) {
	enc, err := LookupEncoding(encodingName)
	if err != nil {
		return nil, &ReadError{Path: filePath, Err: err}
	}

	file, err := os.Open(filePath)
	if err != nil {
		return nil, &ReadError{Path: filePath, Err: err}
	}
	defer file.Close()

	data, err := io.ReadAll(transform.NewReader(file, enc.NewDecoder()))
	if err != nil {
		return nil, &ReadError{Path: filePath, Err: err}
	}

	return NormalizeLines(string(data)), nil
}

// LookupEncoding returns the decoder for a configured encoding name.
//
// CUSTOMIZATION: Add entries here when a source system exports in another
// code page. Names are matched case-insensitively.
func LookupEncoding(name string) (encoding.Encoding, error) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "", "utf-8", "utf8":
		return unicode.UTF8BOM, nil
	case "latin1", "iso-8859-1", "iso8859-1":
		return charmap.ISO8859_1, nil
	case "windows-1252", "cp1252":
		return charmap.Windows1252, nil
	case "utf-16le":
		return unicode.UTF16(unicode.LittleEndian, unicode.UseBOM), nil
	case "utf-16be":
		return unicode.UTF16(unicode.BigEndian, unicode.UseBOM), nil
	default:
		return nil, fmt.Errorf("unsupported encoding %q", name)
	}
}
