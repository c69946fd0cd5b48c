package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var syncCmd = &cobra.Command{
	Use:   "sync",
	Short: "Reconcile the source table with the entity cache",
	Long:  "Resolves every source row to a Wikidata identifier, refreshes countries, and rewrites the cache sorted by label.",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, _ []string) error {
		ctx := cmd.Context()

		env, err := initPipeline(ctx, cfg)
		if err != nil {
			return err
		}
		defer env.Close()

		res, err := env.Pipeline.Sync(ctx)
		if err != nil {
			return err
		}

		fmt.Fprintf(os.Stdout, "Synced %d entities to %s (%d from cache, %d searched, %d unresolved, %d duplicates)\n",
			res.Entities, cfg.Cache.Path,
			res.Reconcile.FromCache, res.Reconcile.Searched,
			res.Reconcile.Unresolved, res.Reconcile.Duplicates,
		)
		return nil
	},
}

func init() {
	rootCmd.AddCommand(syncCmd)
}
