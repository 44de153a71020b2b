package scanner

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/pluggit/pluggit"
	v1 "github.com/pluggit/pluggit/api/v1"
)

func newTestScanner(t *testing.T, ctx *pluggit.Context, flags v1.ScanFlags) *Scanner {
	t.Helper()
	s, err := New(Config{Ctx: ctx, Flags: flags})
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

func writePluginDescriptor(t *testing.T, root, subdir, identifier, version string) {
	t.Helper()
	dir := filepath.Join(root, subdir)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		t.Fatalf("mkdir %s: %v", dir, err)
	}
	content := "identifier: " + identifier + "\nversion: \"" + version + "\"\n"
	if err := os.WriteFile(filepath.Join(dir, manifestName), []byte(content), 0o644); err != nil {
		t.Fatalf("write descriptor: %v", err)
	}
}

func TestDiscover_FindsImmediateSubdirectoryDescriptors(t *testing.T) {
	t.Parallel()

	root := t.TempDir()
	writePluginDescriptor(t, root, "core", "com.example.core", "1.0.0.0")
	writePluginDescriptor(t, root, "ui", "com.example.ui", "1.0.0.0")
	// A nested non-plugin directory (no plugin.yaml) must be ignored.
	if err := os.MkdirAll(filepath.Join(root, "not-a-plugin"), 0o755); err != nil {
		t.Fatalf("mkdir: %v", err)
	}

	ctx := pluggit.Create(pluggit.Config{}, nil, nil)
	if err := ctx.AddPluginDir(root); err != nil {
		t.Fatalf("AddPluginDir() error = %v", err)
	}
	s := newTestScanner(t, ctx, 0)

	found := s.discover()
	if len(found) != 2 {
		t.Fatalf("discover() found %d descriptors, want 2: %v", len(found), found)
	}
	if _, ok := found["com.example.core"]; !ok {
		t.Fatalf("discover() missing com.example.core")
	}
	if _, ok := found["com.example.ui"]; !ok {
		t.Fatalf("discover() missing com.example.ui")
	}
}

func TestReconcile_InstallsUnknownPlugin(t *testing.T) {
	t.Parallel()

	ctx := pluggit.Create(pluggit.Config{}, nil, nil)
	s := newTestScanner(t, ctx, 0)

	s.reconcile("com.example.core", v1.PluginInfo{Identifier: "com.example.core", Version: v1.Version{1, 0, 0, 0}, HasVersion: true})

	state, ok := ctx.PluginState("com.example.core")
	if !ok || state != v1.Installed {
		t.Fatalf("PluginState() = (%v, %v), want (Installed, true)", state, ok)
	}
}

func TestReconcile_WithoutUpgradeFlagIgnoresNewerVersion(t *testing.T) {
	t.Parallel()

	ctx := pluggit.Create(pluggit.Config{}, nil, nil)
	s := newTestScanner(t, ctx, 0) // no Upgrade flag

	s.reconcile("core", v1.PluginInfo{Identifier: "core", Version: v1.Version{1, 0, 0, 0}, HasVersion: true})
	s.reconcile("core", v1.PluginInfo{Identifier: "core", Version: v1.Version{2, 0, 0, 0}, HasVersion: true})

	handle, err := ctx.GetPluginInfo("core")
	if err != nil {
		t.Fatalf("GetPluginInfo() error = %v", err)
	}
	defer pluggit.ReleaseInfo(handle)
	if handle.Info().Version != (v1.Version{1, 0, 0, 0}) {
		t.Fatalf("Version = %v, want unchanged {1 0 0 0}", handle.Info().Version)
	}
}

func TestReconcile_UpgradesToNewerVersionWhenSelfInstalled(t *testing.T) {
	t.Parallel()

	ctx := pluggit.Create(pluggit.Config{}, nil, nil)
	s := newTestScanner(t, ctx, v1.Upgrade)

	s.reconcile("core", v1.PluginInfo{Identifier: "core", Version: v1.Version{1, 0, 0, 0}, HasVersion: true})
	s.reconcile("core", v1.PluginInfo{Identifier: "core", Version: v1.Version{2, 0, 0, 0}, HasVersion: true})

	handle, err := ctx.GetPluginInfo("core")
	if err != nil {
		t.Fatalf("GetPluginInfo() error = %v", err)
	}
	defer pluggit.ReleaseInfo(handle)
	if handle.Info().Version != (v1.Version{2, 0, 0, 0}) {
		t.Fatalf("Version = %v, want upgraded {2 0 0 0}", handle.Info().Version)
	}
}

func TestReconcile_NeverDowngrades(t *testing.T) {
	t.Parallel()

	ctx := pluggit.Create(pluggit.Config{}, nil, nil)
	s := newTestScanner(t, ctx, v1.Upgrade)

	s.reconcile("core", v1.PluginInfo{Identifier: "core", Version: v1.Version{2, 0, 0, 0}, HasVersion: true})
	s.reconcile("core", v1.PluginInfo{Identifier: "core", Version: v1.Version{1, 0, 0, 0}, HasVersion: true})

	handle, err := ctx.GetPluginInfo("core")
	if err != nil {
		t.Fatalf("GetPluginInfo() error = %v", err)
	}
	defer pluggit.ReleaseInfo(handle)
	if handle.Info().Version != (v1.Version{2, 0, 0, 0}) {
		t.Fatalf("Version = %v, want unchanged {2 0 0 0} (no downgrade)", handle.Info().Version)
	}
}

func TestReconcile_IgnoresOperatorInstalledPluginEvenWithUpgradeFlag(t *testing.T) {
	t.Parallel()

	ctx := pluggit.Create(pluggit.Config{}, nil, nil)
	// Installed directly, not through the scanner, so s.installed never
	// learns about it.
	if err := ctx.InstallPlugin(v1.PluginInfo{Identifier: "core", Version: v1.Version{1, 0, 0, 0}, HasVersion: true}); err != nil {
		t.Fatalf("InstallPlugin() error = %v", err)
	}

	s := newTestScanner(t, ctx, v1.Upgrade)
	s.reconcile("core", v1.PluginInfo{Identifier: "core", Version: v1.Version{2, 0, 0, 0}, HasVersion: true})

	handle, err := ctx.GetPluginInfo("core")
	if err != nil {
		t.Fatalf("GetPluginInfo() error = %v", err)
	}
	defer pluggit.ReleaseInfo(handle)
	if handle.Info().Version != (v1.Version{1, 0, 0, 0}) {
		t.Fatalf("Version = %v, want unchanged {1 0 0 0} (operator-installed copy must not be clobbered)", handle.Info().Version)
	}
}

func TestScanOnce_DiscoversAndInstallsFromDisk(t *testing.T) {
	t.Parallel()

	root := t.TempDir()
	writePluginDescriptor(t, root, "core", "com.example.core", "1.0.0.0")

	ctx := pluggit.Create(pluggit.Config{}, nil, nil)
	if err := ctx.AddPluginDir(root); err != nil {
		t.Fatalf("AddPluginDir() error = %v", err)
	}
	s := newTestScanner(t, ctx, 0)

	s.scanOnce()

	state, ok := ctx.PluginState("com.example.core")
	if !ok || state != v1.Installed {
		t.Fatalf("PluginState() = (%v, %v), want (Installed, true)", state, ok)
	}
}
