// =============================================================================
// CSV Document Loader - Validate Command
// =============================================================================
//
// The 'validate' command loads the main configuration, every collection
// configuration and their schema templates, and reports every problem
// found without touching the store or the input files.
//
// =============================================================================

package cmd

import (
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/ginjaninja78/csvload/internal/validation"
)

var validateCmd = &cobra.Command{
	Use:   "validate",
	Short: "Validate the configuration without loading anything",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return runValidate(cmd.OutOrStdout(), cmd.ErrOrStderr())
	},
}

func init() {
	rootCmd.AddCommand(validateCmd)
}

func runValidate(out, logOut io.Writer) error {
	a, err := setup(logOut)
	if err != nil {
		return err
	}
	defer a.shutdown()

	// A config or template that cannot be parsed stops validation here.
	registry, err := a.loadRegistry()
	if err != nil {
		return err
	}

	result := validation.NewValidator().ValidateAll(a.config, cfgFile, registry)

	fmt.Fprint(out, validation.FormatErrors(result.Errors))
	fmt.Fprintf(out, "\nChecked %s and %d collection configuration(s): %d error(s), %d warning(s)\n",
		cfgFile, result.CollectionsValidated, result.ErrorCount, result.WarningCount)

	if !result.IsValid {
		return fmt.Errorf("configuration has %d error(s)", result.ErrorCount)
	}
	return nil
}
