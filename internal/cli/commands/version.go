// pluggitctl version — print version information.
package commands

import (
	"encoding/json"
	"fmt"
	"os"
	"runtime"

	"github.com/spf13/cobra"

	"github.com/pluggit/pluggit"
	"github.com/pluggit/pluggit/pkg/pprint"
)

// Build-time variables injected via -ldflags.
var (
	Version   = "dev"
	Commit    = "unknown"
	BuildDate = "unknown"
)

func NewVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:          "version",
		Short:        "Print pluggit version and implementation information",
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			impl := pluggit.GetImplementationInfo()

			info := map[string]string{
				"version":    Version,
				"commit":     Commit,
				"build_date": BuildDate,
				"api":        impl.API.String(),
				"host":       impl.HostTriplet,
				"threads":    impl.ThreadModel,
				"go_version": runtime.Version(),
			}

			jsonFlag, _ := cmd.Root().PersistentFlags().GetBool("json")
			if jsonFlag {
				return json.NewEncoder(os.Stdout).Encode(info)
			}

			pprint.PrintBanner(Version, BuildDate)

			pprint.KV("Version  ", Version)
			pprint.KV("Commit   ", Commit)
			pprint.KV("Built    ", BuildDate)
			pprint.KV("API      ", impl.API.String())
			pprint.KV("Host     ", impl.HostTriplet)
			pprint.KV("Threads  ", impl.ThreadModel)
			pprint.KV("Go       ", runtime.Version())
			fmt.Println()
			return nil
		},
	}
}
