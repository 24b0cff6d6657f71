package commands

import (
	"encoding/json"
	"fmt"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/wplocal/wplocal/pkg/stores"
)

func newHistoryCommand() *cobra.Command {
	var limit int
	var showSteps bool

	cmd := &cobra.Command{
		Use:   "history",
		Short: "Show recent provisioning and removal runs",
		Long: `Show the audit trail of recent runs from the local history database.

The history is informational only: site state is always reconstructed
from the live resources, never from this log.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			a, err := newApp(ctx)
			if err != nil {
				return err
			}
			defer a.Close(ctx)

			if a.store == nil {
				return fmt.Errorf("run history is not available (state_db_path is empty or unwritable)")
			}

			runs, err := a.store.ListRuns(ctx, limit)
			if err != nil {
				return err
			}

			if jsonOutput {
				return json.NewEncoder(cmd.OutOrStdout()).Encode(runs)
			}

			out := cmd.OutOrStdout()
			if len(runs) == 0 {
				fmt.Fprintln(out, "No recorded runs.")
				return nil
			}
			for _, run := range runs {
				printRun(cmd, run)
				if showSteps {
					events, err := a.store.ListEvents(ctx, run.ID)
					if err != nil {
						return err
					}
					for _, ev := range events {
						fmt.Fprintf(out, "    %-9s %-22s %s\n", ev.Action, ev.Step, ev.Outcome)
					}
				}
			}
			return nil
		},
	}

	cmd.Flags().IntVarP(&limit, "limit", "n", 20, "maximum number of runs to show")
	cmd.Flags().BoolVar(&showSteps, "steps", false, "show per-step events for each run")

	return cmd
}

func printRun(cmd *cobra.Command, run *stores.Run) {
	out := cmd.OutOrStdout()
	stamp := run.StartedAt.Format("2006-01-02 15:04:05")

	var statusColor *color.Color
	switch run.Status {
	case stores.RunStatusSucceeded:
		statusColor = color.New(color.FgGreen)
	case stores.RunStatusRolledBack:
		statusColor = color.New(color.FgYellow)
	default:
		statusColor = color.New(color.FgRed)
	}

	fmt.Fprintf(out, "%s  %-12s %-20s ", stamp, run.Operation, run.SiteID)
	statusColor.Fprintf(out, "%s\n", run.Status)
	if run.Error != nil {
		fmt.Fprintf(out, "    %s\n", *run.Error)
	}
}
