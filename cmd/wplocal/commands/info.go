package commands

import (
	"encoding/json"
	"fmt"

	"github.com/fatih/color"
	"github.com/spf13/cobra"
)

func newInfoCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "info <site-id>",
		Short: "Show the reconstructed state of one site",
		Long: `Show the state of a site across every resource it occupies.

Nothing is read from a registry: each facet (directory, vhost, enabled
link, hosts entry, database) is queried from the live system, and the
database name is read back from the site's wp-config.php.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			a, err := newApp(ctx)
			if err != nil {
				return err
			}
			defer a.Close(ctx)

			status, err := a.inspector().Inspect(ctx, args[0])
			if err != nil {
				return err
			}

			if jsonOutput {
				return json.NewEncoder(cmd.OutOrStdout()).Encode(status)
			}

			out := cmd.OutOrStdout()
			if status.Provisioned() {
				color.New(color.FgGreen, color.Bold).Fprintf(out, "%s: fully provisioned\n", status.SiteID)
			} else {
				color.New(color.FgYellow, color.Bold).Fprintf(out, "%s: incomplete\n", status.SiteID)
			}

			fmt.Fprintf(out, "  URL:           http://%s.localhost\n", status.SiteID)
			fmt.Fprintf(out, "  Document root: %s\n", status.DocumentRoot)
			printFacet(cmd, "directory", status.DirectoryExists)
			printFacet(cmd, "vhost config", status.VhostPresent)
			printFacet(cmd, "site enabled", status.Enabled)
			printFacet(cmd, "hosts entry", status.HostsEntry)
			printFacet(cmd, "database", status.DatabaseExists)
			printFacet(cmd, "database user", status.DBUserExists)
			if status.DBName != "" {
				fmt.Fprintf(out, "  Database name: %s (%d tables)\n", status.DBName, status.TableCount)
			}
			if status.DBUser != "" {
				fmt.Fprintf(out, "  Database user: %s\n", status.DBUser)
			}
			return nil
		},
	}

	return cmd
}

func printFacet(cmd *cobra.Command, name string, present bool) {
	out := cmd.OutOrStdout()
	if present {
		color.New(color.FgGreen).Fprintf(out, "  %-14s present\n", name)
	} else {
		color.New(color.FgRed).Fprintf(out, "  %-14s missing\n", name)
	}
}
