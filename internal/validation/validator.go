// =============================================================================
// CSV Document Loader - Configuration Validation
// =============================================================================
//
// This module checks the main configuration and every collection
// configuration before a run, so that a bad setting is reported once, with
// its file and field, instead of failing every row of a load.
//
// VALIDATION LEVELS:
//   1. Struct rules: the `validate` tags of the config structs, checked with
//      go-playground/validator (required fields, enumerations, ranges)
//   2. Custom rules: transformation types and encodings, registered as
//      validator tags
//   3. Semantic rules: checks that span several fields or touch the file
//      system (patterns, regular expressions, consolidation layout)
//
// SEVERITY:
//   "error"   - the configuration cannot be used
//   "warning" - the configuration works but is probably not what was meant
//
// =============================================================================

package validation

import (
	"fmt"
	"path/filepath"
	"reflect"
	"regexp"
	"strings"

	"github.com/go-playground/validator/v10"

	"github.com/ginjaninja78/csvload/internal/config"
	"github.com/ginjaninja78/csvload/internal/converter"
	"github.com/ginjaninja78/csvload/internal/csvparser"
	"github.com/ginjaninja78/csvload/pkg/utils"
)

// Severity levels.
const (
	SeverityError   = "error"
	SeverityWarning = "warning"
)

// =============================================================================
// VALIDATION ERROR TYPES
// =============================================================================

// ValidationError represents a single validation problem.
type ValidationError struct {
	// Severity is SeverityError or SeverityWarning.
	Severity string

	// Source names the configuration the problem was found in: the main
	// config path or a collection config file.
	Source string

	// Field is the YAML path of the offending setting.
	Field string

	// Value is the offending value, empty when the setting is missing.
	Value string

	// Rule is the validation rule that was violated.
	Rule string

	// Message is a human-readable error message.
	Message string
}

// Error implements the error interface.
func (e *ValidationError) Error() string {
	msg := fmt.Sprintf("[%s] %s: field '%s': %s",
		strings.ToUpper(e.Severity),
		e.Source,
		e.Field,
		e.Message,
	)
	if e.Value != "" {
		msg += fmt.Sprintf(" (value: '%s')", e.Value)
	}
	return msg
}

// =============================================================================
// VALIDATION RESULT
// =============================================================================

// ValidationResult contains the results of validation.
type ValidationResult struct {
	// IsValid is true if there are no errors. Warnings do not count.
	IsValid bool

	// Errors contains all problems, warnings included, in detection order.
	Errors []*ValidationError

	ErrorCount   int
	WarningCount int

	// CollectionsValidated is the number of collection configs checked.
	CollectionsValidated int
}

func newResult() *ValidationResult {
	return &ValidationResult{IsValid: true}
}

func (r *ValidationResult) add(e *ValidationError) {
	r.Errors = append(r.Errors, e)
	if e.Severity == SeverityWarning {
		r.WarningCount++
		return
	}
	r.ErrorCount++
	r.IsValid = false
}

func (r *ValidationResult) merge(other *ValidationResult) {
	for _, e := range other.Errors {
		r.add(e)
	}
	r.CollectionsValidated += other.CollectionsValidated
}

// =============================================================================
// VALIDATOR
// =============================================================================

// Validator validates loader configurations.
type Validator struct {
	structs *validator.Validate
}

// NewValidator creates a Validator with the loader's custom rules
// registered.
func NewValidator() *Validator {
	v := validator.New(validator.WithRequiredStructEnabled())

	// Report fields by their YAML names.
	v.RegisterTagNameFunc(func(field reflect.StructField) string {
		name := strings.SplitN(field.Tag.Get("yaml"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		if name == "" {
			return field.Name
		}
		return name
	})

	// Registration only fails for empty tags or nil functions.
	_ = v.RegisterValidation("transform_action", func(fl validator.FieldLevel) bool {
		return converter.IsKnownAction(fl.Field().String())
	})
	_ = v.RegisterValidation("encoding", func(fl validator.FieldLevel) bool {
		_, err := csvparser.LookupEncoding(fl.Field().String())
		return err == nil
	})

	return &Validator{structs: v}
}

// =============================================================================
// MAIN CONFIGURATION
// =============================================================================

// ValidateMainConfig validates the main configuration.
//
// PARAMETERS:
//   - cfg: The loaded main configuration, defaults applied.
//   - source: The config file path, used in messages.
//
// RETURNS:
//   - The validation result.
func (v *Validator) ValidateMainConfig(cfg *config.MainConfig, source string) *ValidationResult {
	result := newResult()
	v.validateStruct(result, source, cfg)

	if cfg.Store.URI != "" &&
		!strings.HasPrefix(cfg.Store.URI, "mongodb://") &&
		!strings.HasPrefix(cfg.Store.URI, "mongodb+srv://") {
		result.add(&ValidationError{
			Severity: SeverityError,
			Source:   source,
			Field:    "store.uri",
			Value:    cfg.Store.URI,
			Rule:     "mongodb_uri",
			Message:  "must start with mongodb:// or mongodb+srv://",
		})
	}

	// The input directory may be created between validation and the run.
	if cfg.InputDir != "" && !utils.DirExists(cfg.InputDir) {
		result.add(&ValidationError{
			Severity: SeverityWarning,
			Source:   source,
			Field:    "input_dir",
			Value:    cfg.InputDir,
			Rule:     "dir_exists",
			Message:  "directory does not exist",
		})
	}

	return result
}

// =============================================================================
// COLLECTION CONFIGURATION
// =============================================================================

// ValidateCollection validates one collection configuration.
func (v *Validator) ValidateCollection(c *config.CollectionConfig) *ValidationResult {
	result := newResult()
	result.CollectionsValidated = 1

	source := c.SourceFile
	if source == "" {
		source = "collection " + c.Collection
	}

	v.validateStruct(result, source, c)

	for i, pattern := range c.FilePatterns {
		if _, err := filepath.Match(pattern, ""); err != nil {
			result.add(&ValidationError{
				Severity: SeverityError,
				Source:   source,
				Field:    fmt.Sprintf("file_patterns[%d]", i),
				Value:    pattern,
				Rule:     "glob",
				Message:  "malformed file pattern",
			})
		}
	}

	for i, rule := range c.Transformations {
		for j, action := range rule.Actions {
			if action.Type != "regex_replace" {
				continue
			}
			if _, err := regexp.Compile(action.Find); err != nil {
				result.add(&ValidationError{
					Severity: SeverityError,
					Source:   source,
					Field:    fmt.Sprintf("transformations[%d].actions[%d].find", i, j),
					Value:    action.Find,
					Rule:     "regexp",
					Message:  fmt.Sprintf("invalid regular expression: %v", err),
				})
			}
		}
	}

	if c.Consolidation != nil {
		validateConsolidation(result, source, c.Consolidation)
	}

	if c.Load.Strategy == config.StrategyUpsert && len(c.Load.NaturalKey) > 0 {
		result.add(&ValidationError{
			Severity: SeverityWarning,
			Source:   source,
			Field:    "load.natural_key",
			Value:    strings.Join(c.Load.NaturalKey, ","),
			Rule:     "natural_key_strategy",
			Message:  "natural_key is ignored by the upsert strategy",
		})
	}

	return result
}

func validateConsolidation(result *ValidationResult, source string, spec *config.Consolidation) {
	seen := make(map[string]bool, len(spec.Arrays))
	for i, array := range spec.Arrays {
		field := fmt.Sprintf("consolidation.arrays[%d]", i)

		if array.Name != "" && seen[array.Name] {
			result.add(&ValidationError{
				Severity: SeverityError,
				Source:   source,
				Field:    field + ".name",
				Value:    array.Name,
				Rule:     "unique",
				Message:  "array is declared twice",
			})
		}
		seen[array.Name] = true

		if array.Name != "" && array.Name == spec.GroupBy {
			result.add(&ValidationError{
				Severity: SeverityError,
				Source:   source,
				Field:    field + ".name",
				Value:    array.Name,
				Rule:     "group_by",
				Message:  "array cannot be the group_by field",
			})
		}

		if len(array.Fields) == 0 || array.Discriminant == "" {
			continue
		}
		listed := false
		for _, f := range array.Fields {
			if f.Name == array.Discriminant {
				listed = true
				break
			}
		}
		if !listed {
			result.add(&ValidationError{
				Severity: SeverityWarning,
				Source:   source,
				Field:    field + ".discriminant",
				Value:    array.Discriminant,
				Rule:     "discriminant_field",
				Message:  "discriminant is not one of the item fields and will be dropped from items",
			})
		}
	}
}

// =============================================================================
// ALL CONFIGURATIONS
// =============================================================================

// ValidateAll validates the main configuration and every collection in the
// registry.
func (v *Validator) ValidateAll(main *config.MainConfig, source string, registry *config.Registry) *ValidationResult {
	result := v.ValidateMainConfig(main, source)
	if registry == nil {
		return result
	}
	for _, c := range registry.All() {
		result.merge(v.ValidateCollection(c))
	}
	return result
}

// =============================================================================
// STRUCT RULES
// =============================================================================

// validateStruct runs the validate tags and converts the failures.
func (v *Validator) validateStruct(result *ValidationResult, source string, s interface{}) {
	err := v.structs.Struct(s)
	if err == nil {
		return
	}

	fieldErrs, ok := err.(validator.ValidationErrors)
	if !ok {
		result.add(&ValidationError{
			Severity: SeverityError,
			Source:   source,
			Rule:     "struct",
			Message:  err.Error(),
		})
		return
	}

	for _, fe := range fieldErrs {
		result.add(&ValidationError{
			Severity: SeverityError,
			Source:   source,
			Field:    fieldPath(fe.Namespace()),
			Value:    valueString(fe.Value()),
			Rule:     fe.Tag(),
			Message:  ruleMessage(fe),
		})
	}
}

// fieldPath drops the root struct name from a validator namespace.
func fieldPath(namespace string) string {
	if i := strings.Index(namespace, "."); i >= 0 {
		return namespace[i+1:]
	}
	return namespace
}

func valueString(value interface{}) string {
	if value == nil {
		return ""
	}
	rv := reflect.ValueOf(value)
	switch rv.Kind() {
	case reflect.Ptr:
		if rv.IsNil() {
			return ""
		}
		return fmt.Sprint(rv.Elem().Interface())
	case reflect.Slice, reflect.Map:
		if rv.Len() == 0 {
			return ""
		}
	}
	return fmt.Sprint(value)
}

// ruleMessage converts a failed validator tag into a readable message.
func ruleMessage(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return "is required"
	case "oneof":
		return "must be one of: " + strings.ReplaceAll(fe.Param(), " ", ", ")
	case "min":
		return fmt.Sprintf("must have at least %s entries", fe.Param())
	case "gt":
		return fmt.Sprintf("must be greater than %s", fe.Param())
	case "gte":
		return fmt.Sprintf("must be at least %s", fe.Param())
	case "transform_action":
		return "unknown transformation type"
	case "encoding":
		return "unsupported encoding"
	default:
		return fmt.Sprintf("failed the '%s' rule", fe.Tag())
	}
}

// =============================================================================
// HELPER FUNCTIONS
// =============================================================================

// FormatErrors formats validation errors for display or logging.
//
// PARAMETERS:
//   - errors: The validation errors to format.
//
// RETURNS:
//   - A formatted string containing all errors.
func FormatErrors(errors []*ValidationError) string {
	if len(errors) == 0 {
		return "No validation errors."
	}

	var builder strings.Builder

	builder.WriteString(fmt.Sprintf("Validation completed with %d problem(s):\n\n", len(errors)))

	for i, err := range errors {
		builder.WriteString(fmt.Sprintf("%d. %s\n", i+1, err.Error()))
	}

	return builder.String()
}
