package commands

import (
	"encoding/json"
	"fmt"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/wplocal/wplocal/pkg/engine"
)

func newCreateCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "create <site-id> <admin-user> <admin-password> <admin-email> <db-name> <db-user> <db-password>",
		Short: "Provision a new WordPress site",
		Long: `Provision a complete WordPress development site.

This command:
  - Verifies the site does not already exist (directory, vhost, hosts entry)
  - Verifies Apache, MySQL, and wp-cli are available
  - Creates the document root and the database with its own user
  - Downloads and installs WordPress via wp-cli
  - Writes and enables the Apache vhost and the hosts file entry

The run is transactional: on any failure (or Ctrl-C) every completed
step is undone in reverse order and the machine is left unchanged.`,
		Example: `  # Provision a site reachable at http://myblog.localhost
  wplocal create myblog blogadmin 's3cretpass' admin@example.com myblog_db myblog_user 'dbpass1234'`,
		Args: cobra.ExactArgs(7),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			a, err := newApp(ctx)
			if err != nil {
				return err
			}
			defer a.Close(ctx)

			prov, err := a.provisioner()
			if err != nil {
				return err
			}

			req := engine.SiteRequest{
				SiteID:        args[0],
				AdminUser:     args[1],
				AdminPassword: args[2],
				AdminEmail:    args[3],
				DBName:        args[4],
				DBUser:        args[5],
				DBPassword:    args[6],
			}

			info, err := prov.Provision(ctx, req)
			if err != nil {
				return explainFailure(cmd, err)
			}

			if jsonOutput {
				return json.NewEncoder(cmd.OutOrStdout()).Encode(info)
			}

			color.New(color.FgGreen, color.Bold).Fprintf(cmd.OutOrStdout(), "Site %s is ready\n", info.SiteID)
			fmt.Fprintf(cmd.OutOrStdout(), "  URL:           %s\n", info.URL)
			fmt.Fprintf(cmd.OutOrStdout(), "  Admin:         %s/wp-admin (user %s)\n", info.URL, info.AdminUser)
			fmt.Fprintf(cmd.OutOrStdout(), "  Document root: %s\n", info.DocumentRoot)
			fmt.Fprintf(cmd.OutOrStdout(), "  Database:      %s (user %s)\n", info.DBName, info.DBUser)
			return nil
		},
	}

	return cmd
}

// explainFailure prints an actionable hint for the common failure classes
// before returning the error for exit handling.
func explainFailure(cmd *cobra.Command, err error) error {
	out := cmd.ErrOrStderr()
	switch {
	case engine.IsConflict(err):
		color.New(color.FgYellow).Fprintln(out, "The site already exists on this machine; nothing was changed.")
		fmt.Fprintln(out, "Pick a different site id, or remove the leftover resource first.")
	case engine.IsUnavailable(err):
		color.New(color.FgYellow).Fprintln(out, "A required service or tool is missing; nothing was changed.")
	case engine.IsValidation(err):
		color.New(color.FgYellow).Fprintln(out, "The request was rejected before touching anything.")
	case engine.IsConfigInvalid(err), engine.IsAdapter(err):
		color.New(color.FgRed).Fprintln(out, "Provisioning failed; completed steps were rolled back.")
	}
	return err
}
