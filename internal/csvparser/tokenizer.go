// =============================================================================
// CSV Document Loader - Row Tokenizer
// =============================================================================
//
// The tokenizer turns one logical line into its raw field strings in a
// single left-to-right scan:
//   - a double quote inside a quoted section followed by another double
//     quote is a literal quote (two characters in, one out)
//   - any other double quote toggles the quoted state
//   - a comma separates fields only outside a quoted section
//   - the last field is always emitted, even when empty
//
// Fields never span lines: the line normalizer has already split the file.
// An unterminated quoted field absorbs the rest of the line unless the
// tokenizer runs with StrictQuotes.
//
// =============================================================================

package csvparser

import (
	"errors"
	"strings"
)

const (
	quoteChar = '"'
	separator = ','
)

// ErrUnterminatedQuote is returned by a strict tokenizer when a line ends
// inside a quoted field.
var ErrUnterminatedQuote = errors.New("unterminated quoted field")

// Tokenizer splits lines into raw fields.
type Tokenizer struct {
	// StrictQuotes makes an unterminated quoted field an error.
	StrictQuotes bool
}

// Split tokenizes one line.
func (t Tokenizer) Split(line string) ([]string, error) {
	fields, inQuotes := scan(line)
	if inQuotes && t.StrictQuotes {
		return fields, ErrUnterminatedQuote
	}
	return fields, nil
}

// SplitLine tokenizes one line, tolerating unbalanced quotes.
func SplitLine(line string) []string {
	fields, _ := scan(line)
	return fields
}

func scan(line string) ([]string, bool) {
	var (
		fields   []string
		current  strings.Builder
		inQuotes bool
	)

	runes := []rune(line)
	for i := 0; i < len(runes); i++ {
		r := runes[i]
		switch {
		case r == quoteChar && inQuotes && i+1 < len(runes) && runes[i+1] == quoteChar:
			current.WriteRune(quoteChar)
			i++
		case r == quoteChar:
			inQuotes = !inQuotes
		case r == separator && !inQuotes:
			fields = append(fields, current.String())
			current.Reset()
		default:
			current.WriteRune(r)
		}
	}
	fields = append(fields, current.String())

	return fields, inQuotes
}

// JoinFields is the inverse of SplitLine: fields containing a comma or a
// quote are quoted and their quotes doubled.
func JoinFields(fields []string) string {
	quoted := make([]string, len(fields))
	for i, f := range fields {
		if strings.ContainsAny(f, `,"`) {
			f = `"` + strings.ReplaceAll(f, `"`, `""`) + `"`
		}
		quoted[i] = f
	}
	return strings.Join(quoted, ",")
}
