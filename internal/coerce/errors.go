// =============================================================================
// CSV Document Loader - Coercion Errors
// =============================================================================

package coerce

import (
	"errors"
	"fmt"
)

// Error kinds reported by Value. Use errors.Is to classify a failure.
var (
	ErrInvalidIdentifier = errors.New("invalid identifier")
	ErrInvalidDate       = errors.New("invalid date")
	ErrInvalidNumber     = errors.New("invalid number")
	ErrInvalidBoolean    = errors.New("invalid boolean")
)

// FieldError is a coercion failure for one field of one row.
type FieldError struct {
	// Path is the field path from the header.
	Path string

	// Raw is the value as it appeared in the file.
	Raw string

	// Err is one of the Err* kinds above.
	Err error
}

func (e *FieldError) Error() string {
	return fmt.Sprintf("field '%s': %v (value: %q)", e.Path, e.Err, e.Raw)
}

func (e *FieldError) Unwrap() error {
	return e.Err
}
