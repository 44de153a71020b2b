// pluggitctl monitor — launch the live Bubble Tea plug-in dashboard.
package commands

import (
	"fmt"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/spf13/cobra"

	"github.com/pluggit/pluggit/internal/tui"
)

func NewMonitorCmd() *cobra.Command {
	return &cobra.Command{
		Use:          "monitor",
		Short:        "Open a live dashboard of plug-in state and lifecycle events",
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			rt := FromContext(cmd.Context())

			model := tui.New(tui.Config{Ctx: rt.Ctx})
			p := tea.NewProgram(model, tea.WithAltScreen())
			if _, err := p.Run(); err != nil {
				return fmt.Errorf("monitor: %w", err)
			}
			return nil
		},
	}
}
