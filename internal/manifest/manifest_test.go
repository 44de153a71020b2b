package manifest

import (
	"os"
	"path/filepath"
	"testing"

	v1 "github.com/pluggit/pluggit/api/v1"
)

func writeManifest(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "plugin.yaml")
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write manifest fixture: %v", err)
	}
	return path
}

func TestLoad_DecodesFullDescriptor(t *testing.T) {
	t.Parallel()

	path := writeManifest(t, `
identifier: com.example.ui
version: "1.2.0.0"
name: Example UI
provider_name: Example Corp
plugin_path: .
lib_path: ui.so
start_func: Start
stop_func: Stop
imports:
  - plugin_id: com.example.core
    version: "1.0.0.0"
    match: compatible
  - plugin_id: com.example.telemetry
    optional: true
ext_points:
  - local_id: panel
    name: Panel Slot
extensions:
  - local_id: default-panel
    ext_point_id: com.example.ui.panel
    cfg: "<panel/>"
`)

	info, err := Load(path)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	if info.Identifier != "com.example.ui" {
		t.Fatalf("Identifier = %q, want %q", info.Identifier, "com.example.ui")
	}
	if !info.HasVersion || info.Version != (v1.Version{1, 2, 0, 0}) {
		t.Fatalf("Version = %v (HasVersion=%v), want {1 2 0 0}/true", info.Version, info.HasVersion)
	}
	if info.LibPath != "ui.so" || info.StartFuncName != "Start" || info.StopFuncName != "Stop" {
		t.Fatalf("runtime fields = %+v", info)
	}
	if len(info.Imports) != 2 {
		t.Fatalf("len(Imports) = %d, want 2", len(info.Imports))
	}
	if info.Imports[0].PluginID != "com.example.core" || info.Imports[0].Match != v1.MatchCompatible || !info.Imports[0].HasVersion {
		t.Fatalf("Imports[0] = %+v", info.Imports[0])
	}
	if !info.Imports[1].Optional {
		t.Fatalf("Imports[1].Optional = false, want true")
	}
	if len(info.ExtPoints) != 1 || info.ExtPoints[0].LocalID != "panel" {
		t.Fatalf("ExtPoints = %+v", info.ExtPoints)
	}
	if len(info.Extensions) != 1 || info.Extensions[0].ExtPointID != "com.example.ui.panel" {
		t.Fatalf("Extensions = %+v", info.Extensions)
	}
}

func TestLoad_MissingVersionLeavesHasVersionFalse(t *testing.T) {
	t.Parallel()

	path := writeManifest(t, `
identifier: com.example.core
`)
	info, err := Load(path)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if info.HasVersion {
		t.Fatalf("HasVersion = true, want false for a descriptor with no version field")
	}
}

func TestLoad_MalformedVersionFails(t *testing.T) {
	t.Parallel()

	path := writeManifest(t, `
identifier: com.example.core
version: "not-a-version"
`)
	if _, err := Load(path); err == nil {
		t.Fatalf("expected an error for a malformed version string")
	}
}

func TestLoad_NonexistentFile(t *testing.T) {
	t.Parallel()

	if _, err := Load("/nonexistent/plugin.yaml"); err == nil {
		t.Fatalf("expected an error for a missing manifest file")
	}
}

func TestParseMatchRule(t *testing.T) {
	t.Parallel()

	cases := map[string]v1.MatchRule{
		"perfect":          v1.MatchPerfect,
		"equivalent":       v1.MatchEquivalent,
		"compatible":       v1.MatchCompatible,
		"greater-or-equal": v1.MatchGreaterOrEqual,
		"":                 v1.MatchNone,
		"nonsense":         v1.MatchNone,
	}
	for in, want := range cases {
		if got := parseMatchRule(in); got != want {
			t.Fatalf("parseMatchRule(%q) = %v, want %v", in, got, want)
		}
	}
}
