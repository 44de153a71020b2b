// Package cli defines the root Cobra command and global flag/runtime setup.
package cli

import (
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/pluggit/pluggit"
	v1 "github.com/pluggit/pluggit/api/v1"
	"github.com/pluggit/pluggit/internal/cli/commands"
	"github.com/pluggit/pluggit/internal/core/config"
	"github.com/pluggit/pluggit/internal/core/logger"
	"github.com/pluggit/pluggit/internal/core/store"
	"github.com/pluggit/pluggit/internal/scanner"
	"github.com/pluggit/pluggit/pkg/pprint"
)

// globalFlags holds values bound to persistent global flags.
var globalFlags struct {
	configFile string
	debug      bool
	jsonOutput bool
	watch      bool
}

// rootCmd is the base command for pluggitctl.
var rootCmd = &cobra.Command{
	Use:           "pluggitctl",
	Short:         "pluggitctl — a dependency-aware plug-in lifecycle host",
	Long:          ``, // help output is wrapped by SetHelpFunc in Execute
	SilenceUsage:  true,
	SilenceErrors: true,
	RunE: func(cmd *cobra.Command, args []string) error {
		return cmd.Help()
	},
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		if cmd.Name() == "version" || cmd.Name() == "completion" || cmd.Name() == "init" {
			return nil
		}
		return initRuntime(cmd)
	},
}

// Execute runs the CLI. Called by main().
func Execute() {
	origHelp := rootCmd.HelpFunc()
	rootCmd.SetHelpFunc(func(cmd *cobra.Command, args []string) {
		pprint.PrintBanner(commands.Version, commands.BuildDate)
		origHelp(cmd, args)
	})

	if err := rootCmd.Execute(); err != nil {
		pprint.Error("%s", err)
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&globalFlags.configFile, "config", "c", "", "Path to pluggit.yaml (defaults to auto-discovery)")
	rootCmd.PersistentFlags().BoolVar(&globalFlags.debug, "debug", false, "Enable debug-level logging")
	rootCmd.PersistentFlags().BoolVar(&globalFlags.jsonOutput, "json", false, "Output in machine-readable JSON")
	rootCmd.PersistentFlags().BoolVar(&globalFlags.watch, "watch", false, "Start the directory scanner in the background for this invocation")

	rootCmd.AddCommand(
		commands.NewInitCmd(),
		commands.NewInstallCmd(),
		commands.NewStartCmd(),
		commands.NewStopCmd(),
		commands.NewUninstallCmd(),
		commands.NewListCmd(),
		commands.NewLogsCmd(),
		commands.NewMonitorCmd(),
		commands.NewVersionCmd(),
	)
}

// initRuntime loads config, logger, store, and the plug-in Context before
// each command runs, wiring a pluggit.Context and its supporting
// store/scanner as the runtime's collaborators.
func initRuntime(cmd *cobra.Command) error {
	cfg, err := config.Load(globalFlags.configFile)
	if err != nil && globalFlags.configFile != "" {
		return fmt.Errorf("config: %w", err)
	}
	if cfg == nil {
		cfg = &config.Config{}
	}

	logFile := cfg.Log.File
	log, err := logger.Init(cfg.Log.Level, cfg.Log.Format, logFile, globalFlags.debug)
	if err != nil {
		return fmt.Errorf("logger init: %w", err)
	}

	var db *store.Store
	if cfg.Store.Path != "" {
		db, err = store.Open(cfg.Store.Path)
		if err != nil {
			return fmt.Errorf("open store: %w", err)
		}
	}

	ctx := pluggit.Create(pluggit.Config{Log: log, Store: db}, func(_ *pluggit.Context, code v1.ErrorCode, msg string) {
		log.Error("context error", "code", code, "message", msg)
	}, nil)

	for _, dir := range cfg.PluginDirs {
		if err := ctx.AddPluginDir(dir); err != nil {
			return fmt.Errorf("register plugin dir %q: %w", dir, err)
		}
	}
	if db != nil {
		persisted, err := db.ListPluginDirs()
		if err != nil {
			return fmt.Errorf("load persisted plugin dirs: %w", err)
		}
		for _, dir := range persisted {
			_ = ctx.AddPluginDir(dir)
		}
	}

	rt := &commands.Runtime{
		Config: cfg,
		Log:    log,
		Store:  db,
		Ctx:    ctx,
		Flags: commands.GlobalFlags{
			Debug:      globalFlags.debug,
			JSONOutput: globalFlags.jsonOutput,
		},
	}

	if globalFlags.watch {
		flags := parseScanFlags(cfg.Scanner.Flags)
		interval := parsePollInterval(cfg.Scanner.PollInterval)

		sc, err := scanner.New(scanner.Config{Ctx: ctx, Log: log, Flags: flags, PollInterval: interval})
		if err != nil {
			return fmt.Errorf("start scanner: %w", err)
		}
		rt.Scanner = sc
		go sc.Run(cmd.Context().Done())
	}

	cmd.SetContext(commands.NewContext(cmd.Context(), rt))
	return nil
}

// parseScanFlags translates the config file's string flag names into the
// v1.ScanFlags bitmask the scanner operates on.
func parseScanFlags(names []string) v1.ScanFlags {
	var flags v1.ScanFlags
	for _, name := range names {
		switch name {
		case "upgrade":
			flags |= v1.Upgrade
		case "stop-all-on-upgrade":
			flags |= v1.StopAllOnUpgrade
		case "stop-all-on-install":
			flags |= v1.StopAllOnInstall
		case "restart-active":
			flags |= v1.RestartActive
		}
	}
	return flags
}

func parsePollInterval(s string) time.Duration {
	if s == "" {
		return 5 * time.Second
	}
	d, err := time.ParseDuration(s)
	if err != nil {
		return 5 * time.Second
	}
	return d
}
