// =============================================================================
// CSV Document Loader - Type Directives
// =============================================================================
//
// A Directive names the target type of one field path. Directives come from
// the per-collection configuration (field_types) or from an XLSX schema
// template. The set is closed: a directive string that does not name one of
// the values below is rejected when the configuration is loaded, never while
// rows are being processed.
//
// SUPPORTED DIRECTIVES:
//   auto      - infer the type from the raw value (default)
//   objectid  - 24 character hex document identifier
//   date      - calendar date or timestamp
//   number    - 64-bit float
//   boolean   - true/1/si or false/0/no
//   string    - text, with one layer of wrapping quotes removed
//
// =============================================================================

package coerce

import (
	"fmt"
	"strings"

	"gopkg.in/yaml.v3"
)

// Directive is the closed set of type directives.
type Directive int

const (
	Auto Directive = iota
	ObjectID
	Date
	Number
	Boolean
	String
)

var directiveNames = map[Directive]string{
	Auto:     "auto",
	ObjectID: "objectid",
	Date:     "date",
	Number:   "number",
	Boolean:  "boolean",
	String:   "string",
}

// String returns the configuration spelling of the directive.
func (d Directive) String() string {
	if name, ok := directiveNames[d]; ok {
		return name
	}
	return fmt.Sprintf("directive(%d)", int(d))
}

// ParseDirective converts a configuration string into a Directive.
//
// PARAMETERS:
//   - s: The directive name. Matching is case-insensitive and ignores
//        surrounding whitespace. An empty string means Auto.
//
// RETURNS:
//   - The Directive.
//   - An error naming the accepted values if s is not recognized.
func ParseDirective(s string) (Directive, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "auto":
		return Auto, nil
	case "objectid", "object_id":
		return ObjectID, nil
	case "date":
		return Date, nil
	case "number":
		return Number, nil
	case "boolean":
		return Boolean, nil
	case "string":
		return String, nil
	default:
		return Auto, fmt.Errorf("unknown type directive %q (expected auto, objectid, date, number, boolean or string)", s)
	}
}

// UnmarshalYAML lets directives be decoded straight from configuration files
// so that an unknown name fails the load.
func (d *Directive) UnmarshalYAML(node *yaml.Node) error {
	var raw string
	if err := node.Decode(&raw); err != nil {
		return err
	}
	parsed, err := ParseDirective(raw)
	if err != nil {
		return fmt.Errorf("line %d: %w", node.Line, err)
	}
	*d = parsed
	return nil
}

// MarshalYAML writes the directive back in its configuration spelling.
func (d Directive) MarshalYAML() (interface{}, error) {
	return d.String(), nil
}

// =============================================================================
// DIRECTIVE MAP
// =============================================================================

// Directives maps lower-cased field paths to their directive. A path that
// is absent from the map is coerced with Auto.
type Directives map[string]Directive

// For returns the directive configured for path.
func (m Directives) For(path string) Directive {
	if m == nil {
		return Auto
	}
	return m[strings.ToLower(path)]
}

// Set stores a directive under the lower-cased path.
func (m Directives) Set(path string, d Directive) {
	m[strings.ToLower(path)] = d
}

// Has reports whether path has an explicit directive.
func (m Directives) Has(path string) bool {
	_, ok := m[strings.ToLower(path)]
	return ok
}
