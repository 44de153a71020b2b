// pluggitctl list — show every registered plug-in and its state.
package commands

import (
	"fmt"
	"sort"

	"github.com/spf13/cobra"

	"github.com/pluggit/pluggit"
	v1 "github.com/pluggit/pluggit/api/v1"
	"github.com/pluggit/pluggit/pkg/pprint"
)

func NewListCmd() *cobra.Command {
	var tree bool

	cmd := &cobra.Command{
		Use:          "list",
		Short:        "List registered plug-ins",
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			rt := FromContext(cmd.Context())

			ids := rt.Ctx.ListPlugins()
			sort.Strings(ids)

			if tree {
				printTree(rt.Ctx, ids)
				return nil
			}

			table := pprint.NewTable("PLUGIN", "STATE", "VERSION")
			for _, id := range ids {
				state, _ := rt.Ctx.PluginState(id)
				handle, err := rt.Ctx.GetPluginInfo(id)
				version := ""
				if err == nil {
					version = handle.Info().Version.String()
					pluggit.ReleaseInfo(handle)
				}
				table.AddRow(id, pprint.StateStyle(state).Render(state.String()), version)
			}
			table.Render()
			return nil
		},
	}

	cmd.Flags().BoolVar(&tree, "tree", false, "Print a console-style dependency tree instead of a flat table")
	return cmd
}

// printTree renders each root plug-in (one with no importing plug-ins
// among the listed set) followed by its transitive imports, console-style
// (SPEC_FULL.md supplemented feature 5).
func printTree(ctx *pluggit.Context, ids []string) {
	infos := make(map[string]v1.PluginInfo, len(ids))
	for _, id := range ids {
		if h, err := ctx.GetPluginInfo(id); err == nil {
			infos[id] = h.Info()
			pluggit.ReleaseInfo(h)
		}
	}

	imported := make(map[string]bool)
	for _, info := range infos {
		for _, imp := range info.Imports {
			imported[imp.PluginID] = true
		}
	}

	for _, id := range ids {
		if imported[id] {
			continue
		}
		printTreeNode(ctx, infos, id, 0, map[string]bool{})
	}
}

func printTreeNode(ctx *pluggit.Context, infos map[string]v1.PluginInfo, id string, depth int, seen map[string]bool) {
	state, _ := ctx.PluginState(id)
	prefix := ""
	for i := 0; i < depth; i++ {
		prefix += "  "
	}
	if depth > 0 {
		prefix += "└─ "
	}
	fmt.Printf("%s%s (%s)\n", prefix, id, pprint.StateStyle(state).Render(state.String()))

	if seen[id] {
		return
	}
	seen[id] = true

	info := infos[id]
	for _, imp := range info.Imports {
		if _, ok := infos[imp.PluginID]; ok {
			printTreeNode(ctx, infos, imp.PluginID, depth+1, seen)
		}
	}
}
