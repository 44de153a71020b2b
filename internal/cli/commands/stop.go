// pluggitctl stop — stop a plug-in and everything depending on it.
package commands

import (
	"github.com/spf13/cobra"

	"github.com/pluggit/pluggit/pkg/pprint"
)

func NewStopCmd() *cobra.Command {
	var all bool

	cmd := &cobra.Command{
		Use:          "stop [plugin-id]",
		Short:        "Stop a plug-in and its dependents, or every active plug-in with --all",
		Args:         cobra.MaximumNArgs(1),
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			rt := FromContext(cmd.Context())

			if all {
				rt.Ctx.StopAllPlugins()
				pprint.Success("stopped all active plug-ins")
				return nil
			}

			if len(args) == 0 {
				return cmd.Usage()
			}

			id := args[0]
			if err := rt.Ctx.StopPlugin(id); err != nil {
				pprint.Error("stop %s: %v", id, err)
				return err
			}
			pprint.Success("stopped %s", id)
			return nil
		},
	}

	cmd.Flags().BoolVar(&all, "all", false, "Stop every active plug-in in reverse start order")
	return cmd
}
