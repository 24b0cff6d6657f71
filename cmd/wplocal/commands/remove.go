package commands

import (
	"bufio"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/wplocal/wplocal/pkg/engine"
)

func newRemoveCommand() *cobra.Command {
	var yes bool

	cmd := &cobra.Command{
		Use:   "remove <site-id> <db-name> <db-user>",
		Short: "Remove a WordPress site and all of its resources",
		Long: `Remove a site's document root, Apache vhost, hosts file entry,
database, and database user.

Removal is not transactional and needs no rollback: every step tolerates
an already-absent resource, so a partially failed removal can simply be
run again until everything reports clean.`,
		Example: `  # Remove a site, typing its id to confirm
  wplocal remove myblog myblog_db myblog_user

  # Skip the confirmation prompt (for scripts)
  wplocal remove myblog myblog_db myblog_user --yes`,
		Args: cobra.ExactArgs(3),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			siteID := args[0]

			confirmed := yes
			if !confirmed {
				var err error
				confirmed, err = confirmRemoval(cmd, siteID)
				if err != nil {
					return err
				}
			}

			a, err := newApp(ctx)
			if err != nil {
				return err
			}
			defer a.Close(ctx)

			report, err := a.decommissioner().Decommission(ctx, siteID, args[1], args[2], confirmed)
			if engine.IsNotConfirmed(err) {
				fmt.Fprintln(cmd.ErrOrStderr(), "Removal not confirmed; nothing was changed.")
				return err
			}
			if report != nil {
				printRemovalReport(cmd, report)
			}
			if err != nil {
				color.New(color.FgRed).Fprintln(cmd.ErrOrStderr(),
					"Some resources could not be removed; run the command again after fixing the cause.")
				return err
			}
			color.New(color.FgGreen, color.Bold).Fprintf(cmd.OutOrStdout(), "Site %s removed\n", siteID)
			return nil
		},
	}

	cmd.Flags().BoolVar(&yes, "yes", false, "skip the confirmation prompt")

	return cmd
}

// confirmRemoval asks the operator to type the site id back. Anything else
// declines the removal.
func confirmRemoval(cmd *cobra.Command, siteID string) (bool, error) {
	fmt.Fprintf(cmd.OutOrStdout(), "This permanently deletes the site, its database, and its files.\n")
	fmt.Fprintf(cmd.OutOrStdout(), "Type the site id (%s) to confirm: ", siteID)

	line, err := bufio.NewReader(cmd.InOrStdin()).ReadString('\n')
	if err != nil && line == "" {
		return false, fmt.Errorf("read confirmation: %w", err)
	}
	return strings.TrimSpace(line) == siteID, nil
}

func printRemovalReport(cmd *cobra.Command, report *engine.RemovalReport) {
	if jsonOutput {
		_ = json.NewEncoder(cmd.OutOrStdout()).Encode(report)
		return
	}

	out := cmd.OutOrStdout()
	for _, step := range report.Steps {
		switch step.Outcome {
		case engine.OutcomeRemoved:
			color.New(color.FgGreen).Fprintf(out, "  removed  %s\n", step.Resource)
		case engine.OutcomeAbsent:
			fmt.Fprintf(out, "  absent   %s\n", step.Resource)
		case engine.OutcomeFailed:
			color.New(color.FgRed).Fprintf(out, "  failed   %s: %s\n", step.Resource, step.Detail)
		}
	}
}
