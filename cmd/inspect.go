// =============================================================================
// CSV Document Loader - Inspect Command
// =============================================================================
//
// The 'inspect' command runs the parse, build and consolidate steps on one
// file and prints the resulting documents as relaxed Extended JSON. The
// store is never opened and the file is not archived.
//
// USAGE:
//   csvload inspect raw-data/nominas.csv
//   csvload inspect export.csv --collection nominas --limit 3
//
// =============================================================================

package cmd

import (
	"fmt"
	"io"

	"github.com/spf13/cobra"
	"go.mongodb.org/mongo-driver/bson"

	"github.com/ginjaninja78/csvload/internal/config"
	"github.com/ginjaninja78/csvload/internal/converter"
)

var (
	inspectCollection string
	inspectLimit      int
)

var inspectCmd = &cobra.Command{
	Use:   "inspect FILE",
	Short: "Show the documents a CSV file would produce",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return runInspect(args[0], cmd.OutOrStdout(), cmd.ErrOrStderr())
	},
}

func init() {
	inspectCmd.Flags().StringVar(&inspectCollection, "collection", "", "Collection configuration to use (default: derived from the file name)")
	inspectCmd.Flags().IntVar(&inspectLimit, "limit", 0, "Print at most this many documents (0 prints all)")
	rootCmd.AddCommand(inspectCmd)
}

func runInspect(filePath string, out, logOut io.Writer) error {
	a, err := setup(logOut)
	if err != nil {
		return err
	}
	defer a.shutdown()

	registry, err := a.loadRegistry()
	if err != nil {
		return err
	}

	collCfg := registry.ForFile(filePath)
	if inspectCollection != "" {
		c, ok := registry.Get(inspectCollection)
		if !ok {
			c = config.DefaultCollectionConfig(inspectCollection)
		}
		collCfg = c
	}

	prepared, err := converter.New(filePath, collCfg, nil, a.logger).Prepare()
	if err != nil {
		return err
	}
	if prepared.NoData {
		fmt.Fprintf(out, "%s: no data rows\n", filePath)
		return nil
	}

	fmt.Fprintf(out, "%s -> %s: %d rows, %d documents, %d errors\n",
		filePath, collCfg.Collection, prepared.Rows, len(prepared.Records), len(prepared.Errors))
	for _, e := range prepared.Errors {
		fmt.Fprintf(out, "  * %s\n", e)
	}

	for i, doc := range prepared.Records {
		if inspectLimit > 0 && i == inspectLimit {
			fmt.Fprintf(out, "... and %d more\n", len(prepared.Records)-inspectLimit)
			break
		}
		data, err := bson.MarshalExtJSON(doc, false, false)
		if err != nil {
			return fmt.Errorf("failed to render document %d: %w", i+1, err)
		}
		fmt.Fprintln(out, string(data))
	}

	return nil
}
