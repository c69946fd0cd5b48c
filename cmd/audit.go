package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var auditCmd = &cobra.Command{
	Use:   "audit",
	Short: "Check cached identifiers against Wikidata",
	Long:  "Re-fetches the English label of every cached identifier and reports missing entities and label mismatches. The cache is not modified.",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, _ []string) error {
		ctx := cmd.Context()

		env, err := initPipeline(ctx, cfg)
		if err != nil {
			return err
		}
		defer env.Close()

		res, err := env.Pipeline.Audit(ctx)
		if err != nil {
			return err
		}

		for _, f := range res.Findings {
			fmt.Fprintln(os.Stdout, f.String())
		}
		fmt.Fprintf(os.Stdout, "Audited %d entities: %d missing, %d mismatched, %d failed\n",
			res.Stats.Checked, res.Stats.Missing, res.Stats.Mismatched, res.Stats.Failed)
		return nil
	},
}

func init() {
	rootCmd.AddCommand(auditCmd)
}
