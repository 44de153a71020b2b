// pluggitctl logs — print the persisted lifecycle-event ledger for a plug-in.
package commands

import (
	"fmt"

	"github.com/spf13/cobra"

	v1 "github.com/pluggit/pluggit/api/v1"
)

func NewLogsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "logs [plugin-id]",
		Short: "Show recorded lifecycle events, optionally filtered to one plug-in",
		Args:  cobra.MaximumNArgs(1),
		Example: `  pluggitctl logs
  pluggitctl logs com.example.auth`,
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			rt := FromContext(cmd.Context())

			if rt.Store == nil {
				return fmt.Errorf("no event ledger is configured (set store.path in the config file)")
			}

			pluginID := ""
			if len(args) == 1 {
				pluginID = args[0]
			}

			events, err := rt.Store.ListEvents(pluginID)
			if err != nil {
				return fmt.Errorf("list events: %w", err)
			}

			for _, ev := range events {
				fmt.Printf("%s  %-32s  %s -> %s\n",
					ev.Timestamp.Format("2006-01-02T15:04:05Z07:00"),
					ev.PluginID,
					v1.PluginState(ev.OldState),
					v1.PluginState(ev.NewState),
				)
			}
			return nil
		},
	}
	return cmd
}
