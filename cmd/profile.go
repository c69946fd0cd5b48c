package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/sells-group/kg-reconcile/internal/pipeline"
)

var profileCmd = &cobra.Command{
	Use:   "profile [ID]",
	Short: "Extract a full profile for one entity",
	Long:  "Runs every profile facet for ID (default " + pipeline.DefaultProfileID + ") and writes the result to <profile.dir>/<ID>.json.",
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		var id string
		if len(args) == 1 {
			id = args[0]
		}

		env, err := initPipeline(ctx, cfg)
		if err != nil {
			return err
		}
		defer env.Close()

		res, err := env.Pipeline.Profile(ctx, id)
		if err != nil {
			return err
		}

		fmt.Fprintf(os.Stdout, "Wrote %s (%d fields, %d financial points)\n", res.Path, res.Fields, res.History)
		return nil
	},
}

func init() {
	rootCmd.AddCommand(profileCmd)
}
