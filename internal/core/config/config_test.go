package config

import (
	"os"
	"path/filepath"
	"testing"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "pluggit.yaml")
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write config fixture: %v", err)
	}
	return path
}

func TestLoad_ExplicitPathMergesOverDefaults(t *testing.T) {
	path := writeConfig(t, `
plugin_dirs:
  - ./plugins
log:
  level: debug
`)
	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if len(cfg.PluginDirs) != 1 || cfg.PluginDirs[0] != "./plugins" {
		t.Fatalf("PluginDirs = %v, want [./plugins]", cfg.PluginDirs)
	}
	if cfg.Log.Level != "debug" {
		t.Fatalf("Log.Level = %q, want %q", cfg.Log.Level, "debug")
	}
	if cfg.Log.Format != "text" {
		t.Fatalf("Log.Format = %q, want default %q", cfg.Log.Format, "text")
	}
}

func TestLoad_RejectsDuplicatePluginDirs(t *testing.T) {
	path := writeConfig(t, `
plugin_dirs:
  - ./plugins
  - ./plugins
`)
	if _, err := Load(path); err == nil {
		t.Fatalf("expected a validation error for duplicate plugin_dirs")
	}
}

func TestLoad_RejectsEmptyPluginDirEntry(t *testing.T) {
	path := writeConfig(t, `
plugin_dirs:
  - ""
`)
	if _, err := Load(path); err == nil {
		t.Fatalf("expected a validation error for an empty plugin_dirs entry")
	}
}

func TestLoad_RejectsUnknownLogFormat(t *testing.T) {
	path := writeConfig(t, `
log:
  format: xml
`)
	if _, err := Load(path); err == nil {
		t.Fatalf("expected a validation error for an unsupported log format")
	}
}

func TestLoad_EnvironmentOverridesLogLevel(t *testing.T) {
	t.Setenv("PLUGGIT_LOG_LEVEL", "warn")

	path := writeConfig(t, `
log:
  level: debug
`)
	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if cfg.Log.Level != "warn" {
		t.Fatalf("Log.Level = %q, want env override %q", cfg.Log.Level, "warn")
	}
}

func TestLoad_RelativeStorePathJoinedUnderPluggitHome(t *testing.T) {
	path := writeConfig(t, `
store:
  path: pluggit.db
`)
	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	want := filepath.Join(PluggitHome(), "pluggit.db")
	if cfg.Store.Path != want {
		t.Fatalf("Store.Path = %q, want %q", cfg.Store.Path, want)
	}
}

func TestLoad_AbsoluteStorePathIsUnchanged(t *testing.T) {
	abs := filepath.Join(t.TempDir(), "pluggit.db")
	path := writeConfig(t, "store:\n  path: "+abs+"\n")

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if cfg.Store.Path != abs {
		t.Fatalf("Store.Path = %q, want unchanged %q", cfg.Store.Path, abs)
	}
}
