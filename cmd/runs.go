package main

import (
	"fmt"
	"io"
	"os"
	"text/tabwriter"
	"time"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"

	"github.com/sells-group/kg-reconcile/internal/model"
)

const runsLimit = 20

var runsCmd = &cobra.Command{
	Use:   "runs [RUN_ID]",
	Short: "Inspect run history",
	Long:  "Lists the most recent runs, or prints one run and its audit findings as JSON.",
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		env, err := initPipeline(ctx, cfg)
		if err != nil {
			return err
		}
		defer env.Close()

		if len(args) == 1 {
			if env.Store == nil {
				return eris.New("runs: run history is disabled (store.path is empty)")
			}
			run, err := env.Store.GetRun(ctx, args[0])
			if err != nil {
				return eris.Wrap(err, "runs show")
			}
			findings, err := env.Store.ListFindings(ctx, run.ID)
			if err != nil {
				return eris.Wrap(err, "runs show")
			}
			return writeJSON(os.Stdout, struct {
				*model.Run
				Findings []model.Finding `json:"findings,omitempty"`
			}{run, findings})
		}

		runs, err := env.Pipeline.Runs(ctx, runsLimit)
		if err != nil {
			return err
		}
		if len(runs) == 0 {
			fmt.Fprintln(os.Stderr, "No runs found.")
			return nil
		}
		formatRunsList(os.Stdout, runs)
		return nil
	},
}

func init() {
	rootCmd.AddCommand(runsCmd)
}

// formatRunsList writes a tab-aligned table of runs.
func formatRunsList(w io.Writer, runs []model.Run) {
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "ID\tKIND\tSTATUS\tSTARTED\tDURATION\tERROR")
	for _, r := range runs {
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\t%s\n",
			r.ID,
			r.Kind,
			r.Status,
			r.StartedAt.Local().Format("2006-01-02 15:04:05"),
			formatDuration(r),
			truncate(r.Error, 60),
		)
	}
	_ = tw.Flush()
}

func formatDuration(r model.Run) string {
	if r.FinishedAt == nil {
		return "-"
	}
	return r.FinishedAt.Sub(r.StartedAt).Round(time.Millisecond).String()
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n-3] + "..."
}
