// pluggitctl start — resolve and start a plug-in and its dependencies.
package commands

import (
	"github.com/spf13/cobra"

	"github.com/pluggit/pluggit/pkg/pprint"
)

func NewStartCmd() *cobra.Command {
	return &cobra.Command{
		Use:          "start <plugin-id>",
		Short:        "Resolve and start a plug-in and its imports",
		Args:         cobra.ExactArgs(1),
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			rt := FromContext(cmd.Context())
			id := args[0]

			if err := rt.Ctx.StartPlugin(id); err != nil {
				pprint.Error("start %s: %v", id, err)
				return err
			}

			pprint.Success("started %s", id)
			return nil
		},
	}
}
