package loader

import (
	"os"
	"path/filepath"
	"testing"

	v1 "github.com/pluggit/pluggit/api/v1"
	"github.com/pluggit/pluggit/pkg/perrors"
)

// Load's happy path requires a real compiled .so built with a matching Go
// toolchain, which this module never builds (no go tool invocations are
// part of this suite). The checksum gate and error paths below are fully
// exercised without one.

func TestDigest_StableForSameContent(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	path := filepath.Join(dir, "plugin.so")
	if err := os.WriteFile(path, []byte("not a real plugin, just bytes"), 0o644); err != nil {
		t.Fatalf("write fixture: %v", err)
	}

	d1, err := Digest(path)
	if err != nil {
		t.Fatalf("Digest() error = %v", err)
	}
	d2, err := Digest(path)
	if err != nil {
		t.Fatalf("Digest() error = %v", err)
	}
	if string(d1) != string(d2) {
		t.Fatalf("Digest() was not stable across calls")
	}
}

func TestDigest_MissingFile(t *testing.T) {
	t.Parallel()

	if _, err := Digest("/nonexistent/path/plugin.so"); err == nil {
		t.Fatalf("expected an error for a missing file")
	}
}

func TestLoad_MissingLibraryIsRuntimeError(t *testing.T) {
	t.Parallel()

	l := New()
	_, err := l.Load("example.plugin", t.TempDir(), "missing.so")
	if err == nil {
		t.Fatalf("expected an error opening a nonexistent shared object")
	}
	if perrors.Code(err) != v1.Runtime {
		t.Fatalf("Code() = %v, want %v", perrors.Code(err), v1.Runtime)
	}
}

func TestLoad_PinnedChecksumMismatchRejectsBeforeOpen(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	libPath := "plugin.so"
	full := filepath.Join(dir, libPath)
	if err := os.WriteFile(full, []byte("actual content"), 0o644); err != nil {
		t.Fatalf("write fixture: %v", err)
	}

	l := New()
	l.PinChecksum(libPath, []byte("not the real digest"))

	_, err := l.Load("example.plugin", dir, libPath)
	if err == nil {
		t.Fatalf("expected a checksum mismatch error")
	}
	if perrors.Code(err) != v1.Runtime {
		t.Fatalf("Code() = %v, want %v", perrors.Code(err), v1.Runtime)
	}
}

func TestLoad_PinnedChecksumMatchPassesGateBeforeOpenFails(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	libPath := "plugin.so"
	full := filepath.Join(dir, libPath)
	content := []byte("actual content")
	if err := os.WriteFile(full, content, 0o644); err != nil {
		t.Fatalf("write fixture: %v", err)
	}

	digest, err := Digest(full)
	if err != nil {
		t.Fatalf("Digest() error = %v", err)
	}

	l := New()
	l.PinChecksum(libPath, digest)

	// The checksum gate passes, so the failure that surfaces is
	// plugin.Open's own rejection of a non-plugin file, not a checksum
	// mismatch. Either way this is not a compiled Go plugin, so Load must
	// still fail, just past the checksum check.
	if _, err := l.Load("example.plugin", dir, libPath); err == nil {
		t.Fatalf("expected plugin.Open to reject a non-plugin file")
	}
}
