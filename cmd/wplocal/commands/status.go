package commands

import (
	"encoding/json"
	"fmt"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/wplocal/wplocal/pkg/engine"
	"github.com/wplocal/wplocal/pkg/runner"
)

func newStatusCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "status",
		Short: "Check the backing services",
		Long: `Probe the services and tools provisioning depends on: the Apache
service, the MySQL engine, and the wp-cli binary. Each dependency is
reported individually so missing ones can be fixed as a batch.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			a, err := newApp(ctx)
			if err != nil {
				return err
			}
			defer a.Close(ctx)

			statuses := a.inspector().Health(ctx)
			statuses = append(statuses, probeBinaries(a)...)

			if jsonOutput {
				return json.NewEncoder(cmd.OutOrStdout()).Encode(statuses)
			}

			out := cmd.OutOrStdout()
			allOK := true
			for _, dep := range statuses {
				if dep.OK {
					color.New(color.FgGreen).Fprintf(out, "  ok       %s\n", dep.Name)
					continue
				}
				allOK = false
				color.New(color.FgRed).Fprintf(out, "  missing  %s: %s\n", dep.Name, dep.Detail)
			}
			if !allOK {
				return fmt.Errorf("one or more dependencies are unavailable")
			}
			return nil
		},
	}

	return cmd
}

// probeBinaries checks that the helper binaries the adapters shell out to
// resolve on PATH. Absolute paths from the config are skipped.
func probeBinaries(a *app) []engine.DependencyStatus {
	names := []string{"systemctl", "a2ensite", "a2dissite", a.cfg.ApacheCtl, a.cfg.WPCLIPath}

	var statuses []engine.DependencyStatus
	for _, name := range names {
		if name == "" || name[0] == '/' {
			continue
		}
		dep := engine.DependencyStatus{Name: name + " binary", OK: true}
		if err := runner.LookPath(name); err != nil {
			dep.OK = false
			dep.Detail = err.Error()
		}
		statuses = append(statuses, dep)
	}
	return statuses
}
