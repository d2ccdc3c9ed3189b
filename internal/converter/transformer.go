// =============================================================================
// CSV Document Loader - Transformation Engine
// =============================================================================
//
// This module rewrites raw field values before they are typed. Rules come
// from the collection configuration and are keyed by header path; the
// actions of a rule run in order on the raw string.
//
// COMMON USES:
//   - Restoring leading zeros lost by spreadsheet exports
//   - Mapping legacy codes to current ones (lookup tables)
//   - Filling empty cells with a default
//
// =============================================================================

package converter

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"github.com/ginjaninja78/csvload/internal/config"
)

// knownActions lists every supported transformation type.
var knownActions = map[string]bool{
	"trim":                 true,
	"uppercase":            true,
	"lowercase":            true,
	"prepend_string":       true,
	"append_string":        true,
	"replace":              true,
	"regex_replace":        true,
	"pad_zeros_to_length":  true,
	"remove_leading_zeros": true,
	"extract_digits":       true,
	"normalize_whitespace": true,
	"lookup":               true,
	"lookup_with_default":  true,
	"if_empty_use_default": true,
}

var (
	digitsPattern     = regexp.MustCompile(`\d+`)
	whitespacePattern = regexp.MustCompile(`\s+`)
)

// IsKnownAction reports whether name is a supported transformation type.
func IsKnownAction(name string) bool {
	return knownActions[name]
}

// =============================================================================
// TRANSFORMER
// =============================================================================

// Transformer applies transformation rules to raw values.
type Transformer struct {
	rules map[string][]config.TransformationAction
}

// NewTransformer indexes rules by field path. Rules for the same path are
// concatenated in configuration order.
func NewTransformer(rules []config.TransformationRule) *Transformer {
	t := &Transformer{rules: make(map[string][]config.TransformationAction)}
	for _, rule := range rules {
		t.rules[rule.Field] = append(t.rules[rule.Field], rule.Actions...)
	}
	return t
}

// Transform applies the actions configured for path to value.
//
// PARAMETERS:
//   - path: The header path of the field.
//   - value: The raw value from the tokenizer.
//
// RETURNS:
//   - The transformed value (value itself if no rule applies).
//   - An error naming the failing action.
func (t *Transformer) Transform(path, value string) (string, error) {
	if t == nil {
		return value, nil
	}

	result := value
	for _, action := range t.rules[path] {
		var err error
		result, err = ApplyTransformation(result, action)
		if err != nil {
			return "", fmt.Errorf("transformation '%s' failed: %w", action.Type, err)
		}
	}
	return result, nil
}

// ApplyTransformation applies a single transformation action.
func ApplyTransformation(value string, action config.TransformationAction) (string, error) {
	switch action.Type {

	// =========================================================================
	// STRING MANIPULATIONS
	// =========================================================================

	case "trim":
		return strings.TrimSpace(value), nil

	case "uppercase":
		return strings.ToUpper(value), nil

	case "lowercase":
		return strings.ToLower(value), nil

	case "prepend_string":
		return action.Value + value, nil

	case "append_string":
		return value + action.Value, nil

	case "replace":
		if action.Find == "" {
			return value, nil
		}
		return strings.ReplaceAll(value, action.Find, action.Value), nil

	case "regex_replace":
		if action.Find == "" {
			return value, nil
		}
		re, err := regexp.Compile(action.Find)
		if err != nil {
			return "", fmt.Errorf("invalid regex pattern: %w", err)
		}
		return re.ReplaceAllString(value, action.Value), nil

	case "normalize_whitespace":
		return strings.TrimSpace(whitespacePattern.ReplaceAllString(value, " ")), nil

	// =========================================================================
	// NUMERIC STRINGS
	// =========================================================================

	case "pad_zeros_to_length":
		// Empty values stay empty so they still coerce to null.
		targetLength, err := strconv.Atoi(action.Value)
		if err != nil || targetLength <= 0 || value == "" {
			return value, nil
		}
		return PadLeft(value, targetLength, '0'), nil

	case "remove_leading_zeros":
		if value == "" {
			return value, nil
		}
		result := strings.TrimLeft(value, "0")
		if result == "" {
			return "0", nil
		}
		return result, nil

	case "extract_digits":
		return strings.Join(digitsPattern.FindAllString(value, -1), ""), nil

	// =========================================================================
	// LOOKUPS AND DEFAULTS
	// =========================================================================

	case "lookup":
		if replacement, exists := action.LookupTable[value]; exists {
			return replacement, nil
		}
		return value, nil

	case "lookup_with_default":
		if replacement, exists := action.LookupTable[value]; exists {
			return replacement, nil
		}
		return action.Value, nil

	case "if_empty_use_default":
		if strings.TrimSpace(value) == "" {
			return action.Value, nil
		}
		return value, nil

	default:
		return "", fmt.Errorf("unknown transformation type: %s", action.Type)
	}
}

// PadLeft pads a string with a character on the left to reach the target
// length in characters.
func PadLeft(s string, length int, padChar rune) string {
	n := len([]rune(s))
	if n >= length {
		return s
	}
	return strings.Repeat(string(padChar), length-n) + s
}
