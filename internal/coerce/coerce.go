// =============================================================================
// CSV Document Loader - Type Coercion Engine
// =============================================================================
//
// This module converts one raw CSV field into a typed value. The result is
// always one of:
//
//   nil                  - empty input
//   primitive.ObjectID   - objectid directive
//   time.Time            - date directive, or an inferred date
//   float64              - number directive, or an inferred number
//   bool                 - boolean directive, or an inferred true/false
//   string               - everything else
//
// An empty value becomes nil before any directive is looked at, so an empty
// cell never fails coercion.
//
// =============================================================================

package coerce

import (
	"math"
	"regexp"
	"strconv"
	"strings"
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// numericPattern is the shape Auto accepts as a number: optional minus,
// digits, optional single decimal point, optional digits.
var numericPattern = regexp.MustCompile(`^-?\d+\.?\d*$`)

// decimalPattern is the shape the number directive accepts: plain decimal
// notation with an optional exponent. Infinities, hex floats and digit
// separators are rejected.
var decimalPattern = regexp.MustCompile(`^[+-]?(\d+\.?\d*|\.\d+)([eE][+-]?\d+)?$`)

// dateLayouts are tried in order by the date directive and by Auto.
//
// CUSTOMIZATION: Add layouts here if a source system exports dates in a
// format not listed. Slash dates are read month-first.
var dateLayouts = []string{
	time.RFC3339Nano,
	time.RFC3339,
	"2006-01-02T15:04:05",
	"2006-01-02T15:04",
	"2006-01-02 15:04:05",
	"2006-01-02 15:04",
	"2006-01-02",
	"2006-1-2 15:04:05",
	"2006-1-2",
	"2006/01/02",
	"2006/1/2",
	"01/02/2006",
	"1/2/2006",
	"01/02/2006 15:04:05",
	"Jan 2, 2006",
	"January 2, 2006",
	"2 Jan 2006",
	"02 Jan 2006",
	time.RFC1123Z,
	time.RFC1123,
	time.ANSIC,
}

var (
	trueWords  = map[string]bool{"true": true, "1": true, "si": true}
	falseWords = map[string]bool{"false": true, "0": true, "no": true}
)

// =============================================================================
// COERCION
// =============================================================================

// Value coerces a raw field value using the directive configured for path.
//
// PARAMETERS:
//   - path: The field path (used for directive lookup and error messages).
//   - raw: The raw field string produced by the tokenizer.
//   - directives: Per-collection directives. May be nil.
//
// RETURNS:
//   - The typed value (see the package header for the possible types).
//   - A *FieldError wrapping one of the Err* kinds on failure.
func Value(path, raw string, directives Directives) (interface{}, error) {
	return As(path, raw, directives.For(path))
}

// As coerces a raw value with an explicit directive.
func As(path, raw string, d Directive) (interface{}, error) {
	value := strings.TrimSpace(raw)
	if value == "" {
		return nil, nil
	}

	switch d {
	case ObjectID:
		id, err := primitive.ObjectIDFromHex(value)
		if err != nil {
			return nil, &FieldError{Path: path, Raw: raw, Err: ErrInvalidIdentifier}
		}
		return id, nil

	case Date:
		t, ok := parseDate(value)
		if !ok {
			return nil, &FieldError{Path: path, Raw: raw, Err: ErrInvalidDate}
		}
		return t, nil

	case Number:
		f, ok := parseNumber(value)
		if !ok {
			return nil, &FieldError{Path: path, Raw: raw, Err: ErrInvalidNumber}
		}
		return f, nil

	case Boolean:
		lower := strings.ToLower(value)
		switch {
		case trueWords[lower]:
			return true, nil
		case falseWords[lower]:
			return false, nil
		}
		return nil, &FieldError{Path: path, Raw: raw, Err: ErrInvalidBoolean}

	case String:
		return UnwrapQuotes(value), nil

	default:
		return infer(value), nil
	}
}

// infer implements the Auto directive. value is already trimmed and
// non-empty.
func infer(value string) interface{} {
	// Quoted text stays text, even when it looks like a number.
	if unquoted := UnwrapQuotes(value); unquoted != value {
		return unquoted
	}

	if numericPattern.MatchString(value) {
		if f, err := strconv.ParseFloat(value, 64); err == nil {
			return f
		}
	}

	switch strings.ToLower(value) {
	case "true":
		return true
	case "false":
		return false
	}

	if t, ok := parseDate(value); ok {
		return t
	}

	return value
}

// =============================================================================
// HELPERS
// =============================================================================

// UnwrapQuotes strips one layer of matching double or single quotes and
// un-doubles the same quote character inside. Values that are not wrapped
// are returned unchanged.
//
// EXAMPLE:
//   "\"say \"\"hi\"\"\"" -> "say \"hi\""
//   "'it''s'"           -> "it's"
//   "plain"             -> "plain"
func UnwrapQuotes(value string) string {
	if len(value) < 2 {
		return value
	}
	for _, q := range []string{`"`, `'`} {
		if strings.HasPrefix(value, q) && strings.HasSuffix(value, q) {
			inner := value[1 : len(value)-1]
			return strings.ReplaceAll(inner, q+q, q)
		}
	}
	return value
}

func parseNumber(value string) (float64, bool) {
	if !decimalPattern.MatchString(value) {
		return 0, false
	}
	f, err := strconv.ParseFloat(value, 64)
	if err != nil || math.IsNaN(f) || math.IsInf(f, 0) {
		return 0, false
	}
	return f, true
}

func parseDate(value string) (time.Time, bool) {
	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, value); err == nil {
			return t, true
		}
	}
	return time.Time{}, false
}

// ParseNumber exposes the number directive's parser for callers that
// conform already-typed values (see the consolidation engine).
func ParseNumber(value string) (float64, bool) {
	return parseNumber(strings.TrimSpace(value))
}
