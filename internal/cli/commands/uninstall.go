// pluggitctl uninstall — stop, unresolve, and remove a plug-in entirely.
package commands

import (
	"github.com/spf13/cobra"

	"github.com/pluggit/pluggit/pkg/pprint"
)

func NewUninstallCmd() *cobra.Command {
	return &cobra.Command{
		Use:          "uninstall <plugin-id>",
		Short:        "Uninstall a plug-in, stopping and unresolving it first",
		Args:         cobra.ExactArgs(1),
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			rt := FromContext(cmd.Context())
			id := args[0]

			if err := rt.Ctx.UninstallPlugin(id); err != nil {
				pprint.Error("uninstall %s: %v", id, err)
				return err
			}

			pprint.Success("uninstalled %s", id)
			return nil
		},
	}
}
