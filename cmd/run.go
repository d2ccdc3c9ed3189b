// =============================================================================
// CSV Document Loader - Run Command
// =============================================================================
//
// The 'run' command loads every CSV file of the input directory.
//
// USAGE:
//   csvload run [--input-dir DIR] [--dry-run]
//
// FLAGS:
//   --input-dir   Override the input directory from the config file
//   --dry-run     Write to an in-memory store and keep the input files
//
// EXIT STATUS:
//   1 when the configuration is invalid, the run cannot start, or any file
//   failed.
//
// =============================================================================

package cmd

import (
	"context"
	"errors"
	"fmt"
	"io"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/ginjaninja78/csvload/internal/config"
	"github.com/ginjaninja78/csvload/internal/etl"
	"github.com/ginjaninja78/csvload/internal/metrics"
	"github.com/ginjaninja78/csvload/internal/store"
	"github.com/ginjaninja78/csvload/internal/validation"
)

// errRunFailed is returned when the run completed but was not successful.
var errRunFailed = errors.New("run failed")

var (
	inputDir string
	dryRun   bool
)

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Load all CSV files of the input directory",
	Long: `Load all CSV files of the input directory into MongoDB.

Each file is loaded into the collection its name maps to. Files are
processed one at a time in name order; a failed file does not stop the run.
Successfully loaded files are moved to the archive directory.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return runLoad(cmd.Context(), cmd.OutOrStdout(), cmd.ErrOrStderr())
	},
}

func init() {
	runCmd.Flags().StringVar(&inputDir, "input-dir", "", "Override the input directory")
	runCmd.Flags().BoolVar(&dryRun, "dry-run", false, "Load into an in-memory store and do not archive files")
	rootCmd.AddCommand(runCmd)
}

// =============================================================================
// MAIN PROCESSING FUNCTION
// =============================================================================

func runLoad(ctx context.Context, out, logOut io.Writer) error {
	// =========================================================================
	// STEP 1: LOAD AND CHECK CONFIGURATION
	// =========================================================================

	a, err := setup(logOut)
	if err != nil {
		return err
	}
	defer a.shutdown()

	if inputDir != "" {
		a.config.InputDir = inputDir
	}

	registry, err := a.loadRegistry()
	if err != nil {
		return err
	}

	if err := checkConfiguration(a, registry); err != nil {
		return err
	}

	// =========================================================================
	// STEP 2: OPEN THE STORE
	// =========================================================================

	var target store.Store
	if dryRun {
		a.logger.Info("Dry run: documents are loaded into memory")
		target = store.NewMemoryStore()
	} else {
		mongoStore, err := store.Open(ctx, a.config.Store)
		if err != nil {
			return err
		}
		a.logger.Infof("Connected to %s", a.config.Store.Database)
		defer closeStore(mongoStore, a.logger)
		target = mongoStore
	}

	// =========================================================================
	// STEP 3: RUN
	// =========================================================================

	runner := &etl.Runner{
		Config:   a.config,
		Registry: registry,
		Store:    target,
		Logger:   a.logger,
		Metrics:  metrics.New(),
		DryRun:   dryRun,
	}

	report, err := runner.Run(ctx)
	if err != nil {
		return err
	}

	// =========================================================================
	// STEP 4: PRINT SUMMARY
	// =========================================================================

	report.Print(out, a.config.DisplayErrorCap)

	if !report.Success {
		return errRunFailed
	}
	return nil
}

// checkConfiguration logs warnings and fails on configuration errors.
func checkConfiguration(a *app, registry *config.Registry) error {
	result := validation.NewValidator().ValidateAll(a.config, cfgFile, registry)

	var fatal []*validation.ValidationError
	for _, e := range result.Errors {
		if e.Severity == validation.SeverityWarning {
			a.logger.Warn(e.Error())
			continue
		}
		fatal = append(fatal, e)
	}

	if !result.IsValid {
		return fmt.Errorf("invalid configuration\n%s", validation.FormatErrors(fatal))
	}
	return nil
}

func closeStore(s store.Store, logger logrus.FieldLogger) {
	if err := s.Close(context.Background()); err != nil {
		logger.Warnf("Failed to close store: %v", err)
	}
}
