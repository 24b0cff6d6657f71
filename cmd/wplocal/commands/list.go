package commands

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"
)

func newListCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List known sites",
		Long: `List every site id known to this machine, as the union of web-root
directories and Apache vhost configurations. Sites that exist only
partially (for example a leftover vhost without files) still appear, so
they can be inspected and cleaned up.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			a, err := newApp(ctx)
			if err != nil {
				return err
			}
			defer a.Close(ctx)

			sites, err := a.inspector().List(ctx)
			if err != nil {
				return err
			}

			if jsonOutput {
				return json.NewEncoder(cmd.OutOrStdout()).Encode(sites)
			}
			if len(sites) == 0 {
				fmt.Fprintln(cmd.OutOrStdout(), "No sites found.")
				return nil
			}
			for _, site := range sites {
				fmt.Fprintln(cmd.OutOrStdout(), site)
			}
			return nil
		},
	}

	return cmd
}
