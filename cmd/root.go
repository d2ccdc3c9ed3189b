// =============================================================================
// CSV Document Loader - Root Command
// =============================================================================
//
// This file defines the root command for the Cobra CLI. Every other command
// is attached to it.
//
// COBRA CLI STRUCTURE:
//   rootCmd (csvload)
//   ├── runCmd      (csvload run)
//   ├── validateCmd (csvload validate)
//   ├── inspectCmd  (csvload inspect FILE)
//   ├── cleanCmd    (csvload clean COLLECTION)
//   └── versionCmd  (csvload version)
//
// CONFIGURATION:
//   Commands that need configuration call setup(), which:
//   1. Loads .env and .env.local into the environment (when present)
//   2. Loads the main configuration (--config, defaults when missing)
//   3. Builds the logger
//
// =============================================================================

package cmd

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/ginjaninja78/csvload/internal/config"
	"github.com/ginjaninja78/csvload/internal/logging"
)

// =============================================================================
// GLOBAL VARIABLES
// =============================================================================

// cfgFile holds the path to the main configuration file.
var cfgFile string

// verbose forces debug logging.
var verbose bool

// envFiles are loaded before the configuration. Variables already set in
// the environment are kept.
var envFiles = []string{".env", ".env.local"}

// =============================================================================
// ROOT COMMAND DEFINITION
// =============================================================================

var rootCmd = &cobra.Command{
	Use:   "csvload",
	Short: "CSV Document Loader - Load flat CSV exports into MongoDB as typed documents",
	Long: `CSV Document Loader reads the CSV files of an input directory and writes
each file to the MongoDB collection named after it.

Rows are converted into nested documents using dotted headers
(periodo.mes -> {periodo: {mes: ...}}), values are typed per collection
configuration, and rows describing the same entity can be consolidated into
one document with arrays.

Collection behaviour is configured with one YAML file per collection in the
configs directory; files without configuration load with defaults.`,

	// A failed run is not a usage error.
	SilenceUsage: true,
}

// Execute runs the root command and exits with status 1 on failure.
func Execute() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	if err := rootCmd.ExecuteContext(ctx); err != nil {
		stop()
		os.Exit(1)
	}
}

// =============================================================================
// INITIALIZATION
// =============================================================================

func init() {
	rootCmd.PersistentFlags().StringVar(
		&cfgFile,
		"config",
		"etl.yaml",
		"Path to the main configuration file",
	)

	rootCmd.PersistentFlags().BoolVarP(
		&verbose,
		"verbose",
		"v",
		false,
		"Enable debug logging",
	)
}

// =============================================================================
// SHARED SETUP
// =============================================================================

// app holds what every configured command needs.
type app struct {
	config *config.MainConfig
	logger *logrus.Logger
	close  func() error
}

// setup loads the environment and the main configuration and builds the
// logger. Log output goes to logOut so that command output stays clean.
func setup(logOut io.Writer) (*app, error) {
	if _, err := config.LoadEnv(envFiles); err != nil {
		return nil, fmt.Errorf("failed to load environment files: %w", err)
	}

	mainConfig, err := config.LoadMainConfig(cfgFile)
	if err != nil {
		return nil, fmt.Errorf("failed to load main config: %w", err)
	}

	level := mainConfig.LogLevel
	if verbose {
		level = "debug"
	}
	logger, closeLog, err := logging.New(logging.Options{
		Level:  level,
		Format: mainConfig.LogFormat,
		File:   mainConfig.LogFile,
		Output: logOut,
	})
	if err != nil {
		return nil, err
	}

	return &app{config: mainConfig, logger: logger, close: closeLog}, nil
}

// loadRegistry loads the collection configurations.
func (a *app) loadRegistry() (*config.Registry, error) {
	registry, err := config.LoadCollectionConfigs(a.config.ConfigsDir, a.config.TemplatesDir)
	if err != nil {
		return nil, fmt.Errorf("failed to load collection configs: %w", err)
	}
	a.logger.Debugf("Loaded %d collection configuration(s) from %s", len(registry.All()), a.config.ConfigsDir)
	return registry, nil
}

func (a *app) shutdown() {
	if err := a.close(); err != nil {
		fmt.Fprintf(os.Stderr, "failed to close log file: %v\n", err)
	}
}
