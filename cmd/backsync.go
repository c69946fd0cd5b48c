package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var backsyncCmd = &cobra.Command{
	Use:   "backsync",
	Short: "Write cached identifiers back into the source table",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, _ []string) error {
		ctx := cmd.Context()

		env, err := initPipeline(ctx, cfg)
		if err != nil {
			return err
		}
		defer env.Close()

		res, err := env.Pipeline.BackSync(ctx)
		if err != nil {
			return err
		}

		fmt.Fprintf(os.Stdout, "Updated %d of %d rows in %s\n", res.Changed, res.Rows, cfg.Source.Path)
		return nil
	},
}

var overridesCmd = &cobra.Command{
	Use:   "overrides",
	Short: "Write fixed override identifiers into the source table",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, _ []string) error {
		ctx := cmd.Context()

		env, err := initPipeline(ctx, cfg)
		if err != nil {
			return err
		}
		defer env.Close()

		res, err := env.Pipeline.ApplyOverrides(ctx)
		if err != nil {
			return err
		}

		fmt.Fprintf(os.Stdout, "Applied overrides to %d of %d rows in %s\n", res.Changed, res.Rows, cfg.Source.Path)
		return nil
	},
}

func init() {
	rootCmd.AddCommand(backsyncCmd)
	rootCmd.AddCommand(overridesCmd)
}
