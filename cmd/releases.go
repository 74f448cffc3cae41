package cmd

import (
	"context"
	"fmt"
	"text/tabwriter"
	"time"

	"app-host/core/database"
	"app-host/feature/releases"

	"github.com/spf13/cobra"
)

var releasesLimit int

// releasesCmd lists recorded descriptor releases.
var releasesCmd = &cobra.Command{
	Use:   "releases",
	Short: "List recorded descriptor releases",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := context.Background()

		cfg, err := loadConfig()
		if err != nil {
			return err
		}
		db, err := database.Connect(cfg.Database)
		if err != nil {
			return fmt.Errorf("failed to connect to database: %w", err)
		}

		store := releases.NewStore(db)
		if err := store.Migrate(ctx); err != nil {
			return err
		}
		list, err := store.List(ctx, releasesLimit)
		if err != nil {
			return err
		}

		w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
		defer w.Flush()
		fmt.Fprintln(w, "ID\tCREATED\tSTATUS\tSOURCE\tRUNTIME\tHANDLERS\tDIGEST")
		for _, r := range list {
			fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\t%d\t%s\n",
				r.ID, r.CreatedAt.Format(time.RFC3339), r.Status, r.Source, r.Runtime, r.Handlers, shortDigest(r.Digest))
		}
		return nil
	},
}

func init() {
	releasesCmd.Flags().IntVar(&releasesLimit, "limit", releases.DefaultLimit, "maximum number of releases to list")
	RootCmd.AddCommand(releasesCmd)
}

func shortDigest(d string) string {
	if len(d) > 12 {
		return d[:12]
	}
	return d
}
