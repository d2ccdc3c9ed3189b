// =============================================================================
// CSV Document Loader - XLSX Schema Template Parser
// =============================================================================
//
// This module parses XLSX templates that describe the fields of a target
// collection. A template lets data owners maintain field types and required
// fields in a spreadsheet instead of YAML.
//
// TEMPLATE STRUCTURE (first sheet, row 1 is a header and is skipped):
//
//   | Column A     | Column B  | Column C  |
//   |--------------|-----------|-----------|
//   | Field Path   | Data Type | Required  |
//   | _id          | objectid  | required  |
//   | empleado_id  | objectid  | required  |
//   | salario_base | decimal   | optional  |
//   | fecha_inicio | date      |           |
//
// Data type names are mapped onto the loader's type directives; a name that
// maps to none of them fails the parse.
//
// CUSTOMIZATION:
//   - Change TemplateColumns if your template uses other columns
//   - Add synonyms in normalizeDataType / normalizeRequired
//
// =============================================================================

package xlsxparser

import (
	"fmt"
	"strings"

	"github.com/xuri/excelize/v2"

	"github.com/ginjaninja78/csvload/internal/coerce"
)

// =============================================================================
// SCHEMA STRUCTURE
// =============================================================================

// Schema is the parsed content of a template.
type Schema struct {
	// TemplateFile is the path to the source template file.
	TemplateFile string

	// Fields in template order.
	Fields []FieldDef
}

// FieldDef describes one field path.
type FieldDef struct {
	// Path is the dot-separated field path as it appears in CSV headers.
	Path string

	// Directive is the type the field is coerced to.
	Directive coerce.Directive

	// Required fields must be present in the CSV header.
	Required bool

	// Order is the 0-based template row the field came from.
	Order int
}

// Field returns the definition for a path, or nil.
func (s *Schema) Field(path string) *FieldDef {
	for i := range s.Fields {
		if s.Fields[i].Path == path {
			return &s.Fields[i]
		}
	}
	return nil
}

// RequiredPaths returns the paths marked as required.
func (s *Schema) RequiredPaths() []string {
	var paths []string
	for _, f := range s.Fields {
		if f.Required {
			paths = append(paths, f.Path)
		}
	}
	return paths
}

// =============================================================================
// TEMPLATE COLUMN CONFIGURATION
// =============================================================================

// TemplateColumns defines which columns hold which data.
// Column indices are 0-based (A=0, B=1, C=2, etc.)
type TemplateColumns struct {
	PathColumn     int
	DataTypeColumn int
	RequiredColumn int

	// DataStartRow is the first row holding a field (0-based).
	DataStartRow int
}

// DefaultTemplateColumns returns the default column configuration.
func DefaultTemplateColumns() TemplateColumns {
	return TemplateColumns{
		PathColumn:     0, // Column A
		DataTypeColumn: 1, // Column B
		RequiredColumn: 2, // Column C
		DataStartRow:   1, // Row 2
	}
}

// =============================================================================
// PARSER FUNCTIONS
// =============================================================================

// Parse reads an XLSX template with the default column layout.
func Parse(templatePath string) (*Schema, error) {
	return ParseWithConfig(templatePath, DefaultTemplateColumns())
}

// ParseWithConfig reads an XLSX template using a custom column layout.
//
// PARAMETERS:
//   - templatePath: The path to the XLSX template file.
//   - columns: The column configuration for parsing.
//
// RETURNS:
//   - The schema.
//   - An error if the file cannot be opened, has no sheets, or holds an
//     unknown data type or a field path twice.
func ParseWithConfig(templatePath string, columns TemplateColumns) (*Schema, error) {
	f, err := excelize.OpenFile(templatePath)
	if err != nil {
		return nil, fmt.Errorf("failed to open template file: %w", err)
	}
	defer f.Close()

	sheetName := f.GetSheetName(0)
	if sheetName == "" {
		return nil, fmt.Errorf("template file has no sheets")
	}

	rows, err := f.GetRows(sheetName)
	if err != nil {
		return nil, fmt.Errorf("failed to read rows: %w", err)
	}

	schema := &Schema{TemplateFile: templatePath}
	seen := make(map[string]bool)

	for i := columns.DataStartRow; i < len(rows); i++ {
		row := rows[i]
		if len(row) == 0 || isRowEmpty(row) {
			continue
		}

		field, err := parseRow(row, columns, i)
		if err != nil {
			return nil, fmt.Errorf("error parsing row %d: %w", i+1, err)
		}
		if field.Path == "" {
			continue
		}
		if seen[field.Path] {
			return nil, fmt.Errorf("error parsing row %d: field %q is defined twice", i+1, field.Path)
		}
		seen[field.Path] = true

		schema.Fields = append(schema.Fields, field)
	}

	return schema, nil
}

// parseRow extracts a FieldDef from a single row.
func parseRow(row []string, columns TemplateColumns, rowIndex int) (FieldDef, error) {
	getCell := func(index int) string {
		if index < len(row) {
			return strings.TrimSpace(row[index])
		}
		return ""
	}

	directive, err := normalizeDataType(getCell(columns.DataTypeColumn))
	if err != nil {
		return FieldDef{}, err
	}

	return FieldDef{
		Path:      getCell(columns.PathColumn),
		Directive: directive,
		Required:  normalizeRequired(getCell(columns.RequiredColumn)),
		Order:     rowIndex,
	}, nil
}

// =============================================================================
// HELPER FUNCTIONS
// =============================================================================

// isRowEmpty checks if a row contains only empty cells.
func isRowEmpty(row []string) bool {
	for _, cell := range row {
		if strings.TrimSpace(cell) != "" {
			return false
		}
	}
	return true
}

// normalizeRequired reads the Required column. Anything not recognized as
// a yes is optional.
func normalizeRequired(value string) bool {
	switch strings.ToLower(strings.TrimSpace(value)) {
	case "required", "req", "r", "yes", "y", "si", "true", "1", "mandatory":
		return true
	default:
		return false
	}
}

// normalizeDataType maps the spreadsheet's data type names onto directives.
func normalizeDataType(value string) (coerce.Directive, error) {
	switch strings.ToLower(strings.TrimSpace(value)) {
	case "", "auto":
		return coerce.Auto, nil
	case "string", "str", "text", "varchar", "alphanumeric", "alphanum", "alpha":
		return coerce.String, nil
	case "number", "numeric", "num", "int", "integer", "decimal", "dec", "float", "double", "money", "currency":
		return coerce.Number, nil
	case "date", "datetime", "timestamp":
		return coerce.Date, nil
	case "boolean", "bool", "bit":
		return coerce.Boolean, nil
	case "objectid", "object_id", "id", "reference":
		return coerce.ObjectID, nil
	default:
		return coerce.Auto, fmt.Errorf("unknown data type %q", value)
	}
}
