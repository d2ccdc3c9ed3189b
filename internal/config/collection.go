// =============================================================================
// CSV Document Loader - Collection Configuration
// =============================================================================
//
// Each YAML file in the configs directory describes how files for one
// target collection are parsed, typed, consolidated and written.
//
// EXAMPLE (configs/nominas.yaml):
//
//   collection: nominas
//   file_patterns: ["nominas*.csv"]
//   strict_mode: false
//   required_fields: [_id, empleado_id, periodo.mes, periodo.año]
//   field_types:
//     empleado_id: objectid
//     total_devengado: number
//   consolidation:
//     group_by: _id
//     arrays:
//       - name: conceptos
//         discriminant: codigo_concepto
//         fields:
//           - {name: codigo_concepto, type: string}
//           - {name: valor, type: number, default: 0}
//   load:
//     strategy: insert_ignore_duplicates
//     natural_key: [empleado_id, periodo.mes, periodo.año]
//
// Files that match no configuration load into the collection named after
// the file (without ".csv") with default settings.
//
// =============================================================================

package config

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/ginjaninja78/csvload/internal/coerce"
	"github.com/ginjaninja78/csvload/internal/xlsxparser"
)

// Load strategies accepted in the load.strategy setting.
const (
	StrategyAuto                   = "auto"
	StrategyInsert                 = "insert"
	StrategyUpsert                 = "upsert"
	StrategyInsertIgnoreDuplicates = "insert_ignore_duplicates"
)

// DefaultIDField is the identifier field used when none is configured.
const DefaultIDField = "_id"

// =============================================================================
// COLLECTION CONFIGURATION STRUCTURE
// =============================================================================

// CollectionConfig holds the configuration for one target collection.
type CollectionConfig struct {
	// Collection is the target collection name.
	Collection string `yaml:"collection" validate:"required"`

	// FilePatterns are glob patterns matched against input file base names.
	// Example: "nominas_*.csv"
	FilePatterns []string `yaml:"file_patterns"`

	// StrictMode aborts a file on its first failing row. When false, failing
	// rows are skipped and reported.
	// Default: true
	StrictMode *bool `yaml:"strict_mode"`

	// RequiredFields must all be present in the header.
	RequiredFields []string `yaml:"required_fields"`

	// FieldTypes maps field paths to type directives. Paths are matched
	// case-insensitively. Unknown directives fail the load.
	FieldTypes coerce.Directives `yaml:"field_types"`

	// SchemaTemplate is an XLSX file in the templates directory that adds
	// field types and required fields.
	SchemaTemplate string `yaml:"schema_template"`

	// CSVSettings controls decoding and quoting.
	CSVSettings CSVSettings `yaml:"csv_settings"`

	// Transformations rewrite raw values before they are typed.
	Transformations []TransformationRule `yaml:"transformations" validate:"dive"`

	// Consolidation merges rows that share a group key. Nil disables it.
	Consolidation *Consolidation `yaml:"consolidation"`

	// Load controls how documents are written.
	Load LoadSettings `yaml:"load"`

	// SourceFile is the YAML file this configuration was read from.
	SourceFile string `yaml:"-"`
}

// CSVSettings contains settings for reading CSV files.
type CSVSettings struct {
	// Encoding is the character encoding of the input files.
	// Values: "utf-8" (default), "latin1", "iso-8859-1", "windows-1252",
	// "utf-16le", "utf-16be"
	Encoding string `yaml:"encoding" validate:"omitempty,encoding"`

	// StrictQuotes makes an unterminated quoted field a row error instead of
	// letting it absorb the rest of the line.
	StrictQuotes bool `yaml:"strict_quotes"`
}

// TransformationRule defines the transformations applied to one field.
type TransformationRule struct {
	// Field is the header path the rule applies to.
	Field string `yaml:"field" validate:"required"`

	// Actions are applied in order.
	Actions []TransformationAction `yaml:"actions" validate:"min=1,dive"`
}

// TransformationAction is a single transformation step.
type TransformationAction struct {
	// Type is one of the actions supported by the converter's transformer.
	Type string `yaml:"type" validate:"required,transform_action"`

	// Value is the action parameter (prefix, length, replacement, default).
	Value string `yaml:"value"`

	// Find is the substring or pattern for replace and regex_replace.
	Find string `yaml:"find,omitempty"`

	// LookupTable maps raw values to replacements for lookup actions.
	LookupTable map[string]string `yaml:"lookup_table,omitempty"`
}

// Consolidation describes how rows of one entity are merged.
type Consolidation struct {
	// GroupBy is the field path whose value identifies an entity.
	// Default: the load id field.
	GroupBy string `yaml:"group_by"`

	// Arrays are the repeated sub-structures collected from the rows.
	Arrays []ArrayField `yaml:"arrays" validate:"min=1,dive"`
}

// ArrayField is one array-valued field built during consolidation.
type ArrayField struct {
	// Name is the header prefix of the sub-fields and the array's key.
	Name string `yaml:"name" validate:"required"`

	// Discriminant is the sub-field that must be non-empty for a row to
	// contribute an item.
	Discriminant string `yaml:"discriminant" validate:"required"`

	// Fields shape each item. Empty keeps the sub-object as it was built.
	Fields []ItemField `yaml:"fields" validate:"dive"`
}

// ItemField is one sub-field of an array item.
type ItemField struct {
	Name    string           `yaml:"name" validate:"required"`
	Type    coerce.Directive `yaml:"type"`
	Default interface{}      `yaml:"default"`
}

// LoadSettings controls the write step.
type LoadSettings struct {
	// Strategy is "auto" (default), "insert", "upsert" or
	// "insert_ignore_duplicates".
	Strategy string `yaml:"strategy" validate:"omitempty,oneof=auto insert upsert insert_ignore_duplicates"`

	// IDField is the document identifier field.
	// Default: "_id"
	IDField string `yaml:"id_field"`

	// NaturalKey lists field paths that identify an existing document even
	// when its identifier differs. Only used by the insert strategies; with
	// strategy auto a non-empty collection never upserts when it is set.
	NaturalKey []string `yaml:"natural_key"`
}

// Strict reports whether the collection runs in strict mode.
func (c *CollectionConfig) Strict() bool {
	return c.StrictMode == nil || *c.StrictMode
}

// Matches reports whether the file's base name matches one of the
// collection's patterns.
func (c *CollectionConfig) Matches(filePath string) bool {
	name := filepath.Base(filePath)
	for _, pattern := range c.FilePatterns {
		if matched, err := filepath.Match(pattern, name); err == nil && matched {
			return true
		}
	}
	return false
}

// =============================================================================
// REGISTRY
// =============================================================================

// Registry holds the loaded collection configurations.
type Registry struct {
	configs []*CollectionConfig
}

// NewRegistry builds a registry from already loaded configurations.
func NewRegistry(configs ...*CollectionConfig) *Registry {
	return &Registry{configs: configs}
}

// All returns the configurations in load order.
func (r *Registry) All() []*CollectionConfig {
	return r.configs
}

// Get returns the configuration for a collection name.
func (r *Registry) Get(name string) (*CollectionConfig, bool) {
	for _, c := range r.configs {
		if c.Collection == name {
			return c, true
		}
	}
	return nil, false
}

// ForFile returns the configuration for an input file: the first
// configuration whose patterns match, then a configuration named after the
// file, then defaults for that name.
func (r *Registry) ForFile(filePath string) *CollectionConfig {
	for _, c := range r.configs {
		if c.Matches(filePath) {
			return c
		}
	}
	name := CollectionNameFromFile(filePath)
	if c, ok := r.Get(name); ok {
		return c
	}
	return DefaultCollectionConfig(name)
}

// CollectionNameFromFile derives a collection name from a file path.
func CollectionNameFromFile(filePath string) string {
	name := filepath.Base(filePath)
	return strings.TrimSuffix(name, filepath.Ext(name))
}

// DefaultCollectionConfig returns the settings used for files with no
// configuration.
func DefaultCollectionConfig(name string) *CollectionConfig {
	c := &CollectionConfig{Collection: name}
	applyCollectionDefaults(c)
	return c
}

// =============================================================================
// LOADING
// =============================================================================

// LoadCollectionConfigs loads all collection configurations from a directory.
//
// PARAMETERS:
//   - configsDir: The directory with *.yaml / *.yml files. A missing
//                 directory yields an empty registry.
//   - templatesDir: Where schema templates are resolved from.
//
// RETURNS:
//   - The registry, ordered by file name.
//   - An error naming the first file that cannot be read, parsed or merged.
func LoadCollectionConfigs(configsDir, templatesDir string) (*Registry, error) {
	registry := &Registry{}

	if _, err := os.Stat(configsDir); os.IsNotExist(err) {
		return registry, nil
	}

	files, err := filepath.Glob(filepath.Join(configsDir, "*.yaml"))
	if err != nil {
		return nil, fmt.Errorf("failed to list config files: %w", err)
	}
	ymlFiles, err := filepath.Glob(filepath.Join(configsDir, "*.yml"))
	if err != nil {
		return nil, fmt.Errorf("failed to list config files: %w", err)
	}
	files = append(files, ymlFiles...)
	sort.Strings(files)

	for _, file := range files {
		c, err := LoadCollectionConfig(file, templatesDir)
		if err != nil {
			return nil, fmt.Errorf("failed to load %s: %w", file, err)
		}
		if _, dup := registry.Get(c.Collection); dup {
			return nil, fmt.Errorf("failed to load %s: collection %q is configured twice", file, c.Collection)
		}
		registry.configs = append(registry.configs, c)
	}

	return registry, nil
}

// LoadCollectionConfig loads a single collection configuration file.
func LoadCollectionConfig(filePath, templatesDir string) (*CollectionConfig, error) {
	data, err := os.ReadFile(filePath)
	if err != nil {
		return nil, fmt.Errorf("failed to read file: %w", err)
	}

	var c CollectionConfig
	if err := yaml.Unmarshal(data, &c); err != nil {
		return nil, fmt.Errorf("failed to parse file: %w", err)
	}
	c.SourceFile = filePath

	if c.Collection == "" {
		c.Collection = CollectionNameFromFile(filePath)
	}

	if c.SchemaTemplate != "" {
		if err := mergeTemplate(&c, filepath.Join(templatesDir, c.SchemaTemplate)); err != nil {
			return nil, err
		}
	}

	applyCollectionDefaults(&c)

	return &c, nil
}

// mergeTemplate adds the template's field types (where the YAML sets none)
// and required fields.
func mergeTemplate(c *CollectionConfig, templatePath string) error {
	schema, err := xlsxparser.Parse(templatePath)
	if err != nil {
		return fmt.Errorf("schema template: %w", err)
	}

	if c.FieldTypes == nil {
		c.FieldTypes = coerce.Directives{}
	}
	required := make(map[string]bool, len(c.RequiredFields))
	for _, r := range c.RequiredFields {
		required[r] = true
	}

	for _, field := range schema.Fields {
		if !c.FieldTypes.Has(field.Path) {
			c.FieldTypes.Set(field.Path, field.Directive)
		}
		if field.Required && !required[field.Path] {
			c.RequiredFields = append(c.RequiredFields, field.Path)
			required[field.Path] = true
		}
	}
	return nil
}

// applyCollectionDefaults fills unset options and lower-cases directive keys.
func applyCollectionDefaults(c *CollectionConfig) {
	normalized := coerce.Directives{}
	for path, d := range c.FieldTypes {
		normalized.Set(path, d)
	}
	c.FieldTypes = normalized

	if c.Load.Strategy == "" {
		c.Load.Strategy = StrategyAuto
	}
	if c.Load.IDField == "" {
		c.Load.IDField = DefaultIDField
	}
	if c.Load.IDField == DefaultIDField && !c.FieldTypes.Has(DefaultIDField) {
		c.FieldTypes.Set(DefaultIDField, coerce.ObjectID)
	}
	if c.Consolidation != nil && c.Consolidation.GroupBy == "" {
		c.Consolidation.GroupBy = c.Load.IDField
	}
}
