// Package config loads pluggitctl's host configuration by merging
// defaults → ~/.pluggit/config.yaml → pluggit.yaml → PLUGGIT_* environment
// variables, a layered Viper setup in which each later layer takes
// precedence over the earlier ones.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/viper"
)

// Defaults contains factory-default values applied before any config file
// is loaded.
var Defaults = map[string]any{
	"log.level":            "info",
	"log.format":           "text",
	"log.file":             "",
	"store.path":           "",
	"scanner.poll_interval": "5s",
	"scanner.flags":         []string{},
}

// ─────────────────────────────────────────────────────────────────────────────
// Config types
// ─────────────────────────────────────────────────────────────────────────────

// Config is the fully-decoded host configuration.
type Config struct {
	PluginDirs []string      `mapstructure:"plugin_dirs"`
	Store      StoreConfig   `mapstructure:"store"`
	Scanner    ScannerConfig `mapstructure:"scanner"`
	Log        LogConfig     `mapstructure:"log"`
}

// StoreConfig controls the optional bbolt-backed persistence layer.
type StoreConfig struct {
	Path string `mapstructure:"path"` // empty disables persistence
}

// ScannerConfig controls the external directory scanner.
type ScannerConfig struct {
	PollInterval string   `mapstructure:"poll_interval"`
	Flags        []string `mapstructure:"flags"` // "upgrade", "stop-all-on-upgrade", "stop-all-on-install", "restart-active"
}

// LogConfig controls ambient diagnostic logging.
type LogConfig struct {
	Level  string `mapstructure:"level"` // debug | info | warn | error
	File   string `mapstructure:"file"`
	Format string `mapstructure:"format"` // json | text
}

// ─────────────────────────────────────────────────────────────────────────────
// Loader
// ─────────────────────────────────────────────────────────────────────────────

// Load discovers and loads the host configuration, walking up directories
// to find pluggit.yaml, then merging it with the global config and
// environment variables.
func Load(explicitPath string) (*Config, error) {
	v := viper.New()

	for k, val := range Defaults {
		v.SetDefault(k, val)
	}

	// Environment variable binding: PLUGGIT_LOG_LEVEL → log.level
	v.SetEnvPrefix("PLUGGIT")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	globalCfg := filepath.Join(pluggitHome(), "config.yaml")
	if _, err := os.Stat(globalCfg); err == nil {
		v.SetConfigFile(globalCfg)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("read global config: %w", err)
		}
	}

	if explicitPath != "" {
		v.SetConfigFile(explicitPath)
	} else if path, err := discoverProjectConfig(); err == nil {
		v.SetConfigFile(path)
	}

	if v.ConfigFileUsed() != "" || explicitPath != "" {
		if err := v.MergeInConfig(); err != nil && explicitPath != "" {
			return nil, fmt.Errorf("read project config %q: %w", explicitPath, err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}

	if cfg.Store.Path != "" && !filepath.IsAbs(cfg.Store.Path) {
		cfg.Store.Path = filepath.Join(pluggitHome(), cfg.Store.Path)
	}

	if err := validate(&cfg); err != nil {
		return nil, fmt.Errorf("config validation: %w", err)
	}

	return &cfg, nil
}

// ─────────────────────────────────────────────────────────────────────────────
// Internal helpers
// ─────────────────────────────────────────────────────────────────────────────

// discoverProjectConfig walks up from the CWD looking for pluggit.yaml.
func discoverProjectConfig() (string, error) {
	dir, err := os.Getwd()
	if err != nil {
		return "", err
	}

	for {
		candidate := filepath.Join(dir, "pluggit.yaml")
		if _, err := os.Stat(candidate); err == nil {
			return candidate, nil
		}
		parent := filepath.Dir(dir)
		if parent == dir {
			break
		}
		dir = parent
	}
	return "", fmt.Errorf("pluggit.yaml not found (searched up from cwd)")
}

// validate performs semantic validation on the loaded config.
func validate(cfg *Config) error {
	seen := map[string]bool{}
	for _, dir := range cfg.PluginDirs {
		if dir == "" {
			return fmt.Errorf("plugin_dirs entries must not be empty")
		}
		if seen[dir] {
			return fmt.Errorf("duplicate plugin directory: %q", dir)
		}
		seen[dir] = true
	}
	switch cfg.Log.Format {
	case "", "text", "json":
	default:
		return fmt.Errorf("log.format must be \"text\" or \"json\", got %q", cfg.Log.Format)
	}
	return nil
}

// pluggitHome returns the pluggit home directory (~/.pluggit).
func pluggitHome() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ".pluggit"
	}
	return filepath.Join(home, ".pluggit")
}

// PluggitHome is the exported variant for use by other packages.
func PluggitHome() string {
	return pluggitHome()
}

// DefaultConfigTemplate is the content written by `pluggitctl init`.
const DefaultConfigTemplate = `# pluggit.yaml — host manifest
version: "1"

plugin_dirs:
  - ./plugins

store:
  path: pluggit.db

scanner:
  poll_interval: 5s
  flags: []

log:
  level: info
  format: text
`
