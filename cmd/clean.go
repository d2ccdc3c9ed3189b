// =============================================================================
// CSV Document Loader - Clean Command
// =============================================================================
//
// The 'clean' command deletes every document of a collection. It is meant
// for resetting a collection before a full reload.
//
// USAGE:
//   csvload clean nominas --yes
//
// =============================================================================

package cmd

import (
	"context"
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/ginjaninja78/csvload/internal/store"
)

var cleanConfirmed bool

var cleanCmd = &cobra.Command{
	Use:   "clean COLLECTION",
	Short: "Delete every document of a collection",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return runClean(cmd.Context(), args[0], cmd.OutOrStdout(), cmd.ErrOrStderr())
	},
}

func init() {
	cleanCmd.Flags().BoolVar(&cleanConfirmed, "yes", false, "Confirm the deletion")
	rootCmd.AddCommand(cleanCmd)
}

func runClean(ctx context.Context, collection string, out, logOut io.Writer) error {
	if !cleanConfirmed {
		return fmt.Errorf("refusing to delete all documents of %q without --yes", collection)
	}

	a, err := setup(logOut)
	if err != nil {
		return err
	}
	defer a.shutdown()

	mongoStore, err := store.Open(ctx, a.config.Store)
	if err != nil {
		return err
	}
	defer closeStore(mongoStore, a.logger)

	deleted, err := mongoStore.Collection(collection).DeleteAll(ctx)
	if err != nil {
		return err
	}

	a.logger.WithField("collection", collection).Infof("Deleted %d documents", deleted)
	fmt.Fprintf(out, "Deleted %d documents from %s.%s\n", deleted, a.config.Store.Database, collection)
	return nil
}
