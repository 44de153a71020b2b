// pluggitctl install — register a plug-in descriptor with the running context.
package commands

import (
	"github.com/spf13/cobra"

	"github.com/pluggit/pluggit/internal/manifest"
	"github.com/pluggit/pluggit/pkg/pprint"
)

func NewInstallCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:          "install <manifest.yaml>",
		Short:        "Install a plug-in from its descriptor manifest",
		Args:         cobra.ExactArgs(1),
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			rt := FromContext(cmd.Context())

			info, err := manifest.Load(args[0])
			if err != nil {
				return err
			}

			if err := rt.Ctx.InstallPlugin(info); err != nil {
				pprint.Error("install %s: %v", info.Identifier, err)
				return err
			}

			pprint.Success("installed %s", info.Identifier)
			return nil
		},
	}
	return cmd
}
