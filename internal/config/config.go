// =============================================================================
// CSV Document Loader - Configuration Module
// =============================================================================
//
// This module is responsible for loading and managing all configuration. It
// handles both the main application configuration and the per-collection
// configurations.
//
// CONFIGURATION SOURCES (later sources win):
//   1. Built-in defaults
//   2. Main config (etl.yaml): global application settings
//   3. .env / .env.local files, then the process environment
//   4. Collection configs (configs/*.yaml): per-collection rules, optionally
//      completed by an XLSX schema template (templates/*.xlsx)
//
// Struct tags drive both decoding (yaml, env) and validation (validate).
// Validation itself lives in the validation package so that the 'validate'
// command can report every problem at once.
//
// =============================================================================

package config

import (
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// =============================================================================
// MAIN CONFIGURATION STRUCTURE
// =============================================================================

// MainConfig holds the global application configuration.
type MainConfig struct {
	// =========================================================================
	// DIRECTORY SETTINGS
	// =========================================================================

	// InputDir is scanned for *.csv files. It must exist when a run starts.
	// Default: "raw-data"
	InputDir string `yaml:"input_dir" env:"ETL_INPUT_DIR" validate:"required"`

	// ConfigsDir holds one YAML file per configured collection.
	// Default: "configs"
	ConfigsDir string `yaml:"configs_dir" env:"ETL_CONFIGS_DIR"`

	// TemplatesDir holds XLSX schema templates referenced by collection
	// configs.
	// Default: "templates"
	TemplatesDir string `yaml:"templates_dir"`

	// ArchiveDir receives input files after they load without a file-level
	// error. Empty disables archiving.
	ArchiveDir string `yaml:"archive_dir"`

	// ArchiveDateSubdirs files archived inputs under YYYY/MM/DD
	// subdirectories of ArchiveDir.
	ArchiveDateSubdirs bool `yaml:"archive_date_subdirs"`

	// ReportDir receives a text summary of each run. Empty disables it.
	ReportDir string `yaml:"report_dir"`

	// MetricsFile is a Prometheus textfile written at the end of each run.
	// Empty disables it.
	MetricsFile string `yaml:"metrics_file" env:"ETL_METRICS_FILE"`

	// =========================================================================
	// STORE SETTINGS
	// =========================================================================

	Store StoreConfig `yaml:"store"`

	// =========================================================================
	// LOGGING SETTINGS
	// =========================================================================

	// LogFile is an optional log file, written in addition to stdout.
	LogFile string `yaml:"log_file" env:"ETL_LOG_FILE"`

	// LogLevel controls the verbosity of logging.
	// Valid values: "debug", "info", "warn", "error", "silent"
	// Default: "info"
	LogLevel string `yaml:"log_level" env:"ETL_LOG_LEVEL" validate:"oneof=debug info warn error silent"`

	// LogFormat is "text" or "json".
	// Default: "text"
	LogFormat string `yaml:"log_format" env:"ETL_LOG_FORMAT" validate:"oneof=text json"`

	// =========================================================================
	// REPORTING SETTINGS
	// =========================================================================

	// DisplayErrorCap limits how many errors per collection are printed in
	// the summary. The full count is always shown; 0 prints counts only.
	// Default: 5 (only when the key is absent)
	DisplayErrorCap int `yaml:"display_error_cap" validate:"gte=0"`
}

// DefaultDisplayErrorCap is the error cap used when none is configured.
const DefaultDisplayErrorCap = 5

// StoreConfig describes the MongoDB connection.
type StoreConfig struct {
	// URI is the MongoDB connection string.
	// Default: "mongodb://localhost:27017"
	URI string `yaml:"uri" env:"MONGO_URI" validate:"required"`

	// Database is the target database name.
	// Default: "eantion"
	Database string `yaml:"database" env:"MONGO_DATABASE" validate:"required"`

	// ConnectTimeout bounds connecting and the initial ping.
	// Default: 10s
	ConnectTimeout time.Duration `yaml:"connect_timeout" env:"MONGO_CONNECT_TIMEOUT" validate:"gt=0"`
}

// =============================================================================
// CONFIGURATION LOADING FUNCTIONS
// =============================================================================

// LoadMainConfig loads the main configuration from a YAML file and applies
// environment overrides.
//
// PARAMETERS:
//   - configPath: The path to the main configuration file. A missing file
//                 is not an error; defaults are used instead.
//
// RETURNS:
//   - A pointer to the MainConfig struct.
//   - An error if the file cannot be read or parsed, or the environment
//     holds a malformed value.
func LoadMainConfig(configPath string) (*MainConfig, error) {
	// Seeded before decoding so an explicit 0 survives.
	config := MainConfig{DisplayErrorCap: DefaultDisplayErrorCap}

	data, err := os.ReadFile(configPath)
	switch {
	case errors.Is(err, os.ErrNotExist):
		// Run on defaults and environment only.
	case err != nil:
		return nil, fmt.Errorf("failed to read config file: %w", err)
	default:
		if err := yaml.Unmarshal(data, &config); err != nil {
			return nil, fmt.Errorf("failed to parse config file: %w", err)
		}
	}

	if err := env.Parse(&config); err != nil {
		return nil, fmt.Errorf("failed to apply environment: %w", err)
	}

	applyMainConfigDefaults(&config)

	return &config, nil
}

// applyMainConfigDefaults sets default values for any unset configuration options.
func applyMainConfigDefaults(config *MainConfig) {
	if config.InputDir == "" {
		config.InputDir = "raw-data"
	}
	if config.ConfigsDir == "" {
		config.ConfigsDir = "configs"
	}
	if config.TemplatesDir == "" {
		config.TemplatesDir = "templates"
	}
	if config.Store.URI == "" {
		config.Store.URI = "mongodb://localhost:27017"
	}
	if config.Store.Database == "" {
		config.Store.Database = "eantion"
	}
	if config.Store.ConnectTimeout == 0 {
		config.Store.ConnectTimeout = 10 * time.Second
	}
	if config.LogLevel == "" {
		config.LogLevel = "info"
	}
	if config.LogFormat == "" {
		config.LogFormat = "text"
	}
}

// LoadEnv loads the given .env files into the process environment. Files
// that do not exist are skipped.
//
// RETURNS:
//   - The number of files loaded.
//   - An error if an existing file cannot be parsed.
func LoadEnv(envFiles []string) (int, error) {
	existing := make([]string, 0, len(envFiles))
	for _, file := range envFiles {
		if _, err := os.Stat(file); err == nil {
			existing = append(existing, file)
		}
	}

	if len(existing) == 0 {
		return 0, nil
	}

	return len(existing), godotenv.Load(existing...)
}
