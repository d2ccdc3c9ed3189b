// =============================================================================
// CSV Document Loader - Header Resolver
// =============================================================================

package csvparser

import (
	"fmt"
	"strings"
)

// MissingFieldsError lists every required field path absent from a header.
type MissingFieldsError struct {
	Missing []string
}

func (e *MissingFieldsError) Error() string {
	return fmt.Sprintf("missing required fields: %s", strings.Join(e.Missing, ", "))
}

// ResolveHeaders trims the tokenized header row and checks it against the
// required field paths. All missing paths are collected before failing.
//
// PARAMETERS:
//   - fields: The tokenized first line.
//   - required: Field paths that must be present. May be empty.
//
// RETURNS:
//   - The trimmed field paths, in column order.
//   - A *MissingFieldsError if any required path is absent.
func ResolveHeaders(fields []string, required []string) ([]string, error) {
	headers := make([]string, len(fields))
	present := make(map[string]bool, len(fields))
	for i, f := range fields {
		headers[i] = strings.TrimSpace(f)
		present[headers[i]] = true
	}

	var missing []string
	for _, r := range required {
		if !present[r] {
			missing = append(missing, r)
		}
	}
	if len(missing) > 0 {
		return nil, &MissingFieldsError{Missing: missing}
	}

	return headers, nil
}
