package main

import (
	"fmt"
	"os"
	"sort"

	"github.com/spf13/cobra"
)

var enrichCmd = &cobra.Command{
	Use:   "enrich",
	Short: "Add attribute groups to the cached entities",
	Long:  "Runs the configured attribute groups (enrich.groups) as chunked SPARQL queries and merges the values into the cache.",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, _ []string) error {
		ctx := cmd.Context()

		env, err := initPipeline(ctx, cfg)
		if err != nil {
			return err
		}
		defer env.Close()

		res, err := env.Pipeline.Enrich(ctx)
		if err != nil {
			return err
		}

		groups := make([]string, 0, len(res.Touched))
		for g := range res.Touched {
			groups = append(groups, g)
		}
		sort.Strings(groups)
		for _, g := range groups {
			fmt.Fprintf(os.Stdout, "%-10s %d entities\n", g, res.Touched[g])
		}
		fmt.Fprintf(os.Stdout, "Enriched %s (%d entities)\n", cfg.Cache.Path, res.Entities)
		return nil
	},
}

func init() {
	rootCmd.AddCommand(enrichCmd)
}
