// Package loader implements the Runtime Loader (§4.6): resolving a
// PluginInfo's LibPath to an in-process symbol table via Go's own plugin
// package, and looking up its start/stop functions by name.
//
// Grounded on a plugin.Open + Lookup + panic-recovery pattern against a
// malformed shared object, generalized from a fixed symbol and hook map
// into PluginInfo's own StartFuncName/StopFuncName pair, plus an added
// integrity check (supplemented, see SPEC_FULL.md's domain-stack
// disposition for golang.org/x/crypto).
package loader

import (
	"fmt"
	"os"
	"path/filepath"
	stdplugin "plugin"
	"sync"

	"golang.org/x/crypto/blake2b"

	v1 "github.com/pluggit/pluggit/api/v1"
	"github.com/pluggit/pluggit/pkg/perrors"
)

// Handle is an opaque reference to one opened runtime library. nil means
// "not yet loaded" — registeredPlugin keeps this as a field precisely so
// Resolve can defer the actual plugin.Open until a plug-in is first
// resolved, matching §4.5's "Resolve... ensures the runtime library is
// loaded" step.
type Handle = *stdplugin.Plugin

// Loader opens plug-in shared objects and resolves their entry points. It
// is otherwise stateless; the checksums map lets a host pin expected
// digests ahead of time (e.g. loaded from a signed manifest) but is
// optional.
type Loader struct {
	mu        sync.Mutex
	checksums map[string][]byte // pluginPath/libPath -> expected blake2b-256 digest
}

// New returns a ready-to-use Loader with no pinned checksums.
func New() *Loader {
	return &Loader{checksums: make(map[string][]byte)}
}

// PinChecksum records the expected blake2b-256 digest for libPath (joined
// against its owning PluginInfo.PluginPath by the caller). Load fails
// with v1.Runtime if the file's digest does not match a pinned value.
func (l *Loader) PinChecksum(libPath string, digest []byte) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.checksums[libPath] = digest
}

// Load opens the shared object at libPath (resolved relative to
// pluginPath, matching PluginInfo.LibPath's documented semantics) and
// returns a Handle. A panic during plugin.Open — observed in the wild when
// a .so was built against a mismatched Go toolchain — is recovered and
// reported as a v1.Runtime error instead of crashing the host process.
func (l *Loader) Load(pluginID, pluginPath, libPath string) (handle Handle, retErr error) {
	defer func() {
		if r := recover(); r != nil {
			handle = nil
			retErr = perrors.Newf(v1.Runtime, "load", "plugin %q panicked while loading: %v", pluginID, r).WithPlugin(pluginID)
		}
	}()

	full := libPath
	if !filepath.IsAbs(full) {
		full = filepath.Join(pluginPath, libPath)
	}

	if err := l.verifyChecksum(libPath, full); err != nil {
		return nil, err
	}

	p, err := stdplugin.Open(full)
	if err != nil {
		return nil, perrors.Wrap(err, v1.Runtime, "load").WithPlugin(pluginID)
	}
	return p, nil
}

// verifyChecksum compares full's blake2b-256 digest against any digest
// pinned for libPath. Absent a pinned digest, this is a no-op: checksum
// pinning is opt-in hardening, not a requirement of every install.
func (l *Loader) verifyChecksum(libPath, full string) error {
	l.mu.Lock()
	want, pinned := l.checksums[libPath]
	l.mu.Unlock()
	if !pinned {
		return nil
	}

	data, err := os.ReadFile(full)
	if err != nil {
		return perrors.Wrap(err, v1.IO, "load-checksum")
	}
	got := blake2b.Sum256(data)
	if !equalDigest(got[:], want) {
		return perrors.Newf(v1.Runtime, "load-checksum", "checksum mismatch for %s", full)
	}
	return nil
}

func equalDigest(a, b []byte) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}

// LookupStart resolves funcName against an already-loaded handle,
// type-asserting it to a v1.StartFunc.
func LookupStart(handle Handle, funcName string) (v1.StartFunc, error) {
	sym, err := handle.Lookup(funcName)
	if err != nil {
		return nil, perrors.Wrap(err, v1.Runtime, "lookup-start")
	}
	fn, ok := sym.(func(v1.Host) bool)
	if !ok {
		if fnp, ok := sym.(*func(v1.Host) bool); ok {
			return v1.StartFunc(*fnp), nil
		}
		return nil, perrors.Newf(v1.Runtime, "lookup-start", "symbol %q has the wrong signature for a start function", funcName)
	}
	return v1.StartFunc(fn), nil
}

// LookupStop resolves funcName as a v1.StopFunc.
func LookupStop(handle Handle, funcName string) (v1.StopFunc, error) {
	sym, err := handle.Lookup(funcName)
	if err != nil {
		return nil, perrors.Wrap(err, v1.Runtime, "lookup-stop")
	}
	fn, ok := sym.(func(v1.Host))
	if !ok {
		if fnp, ok := sym.(*func(v1.Host)); ok {
			return v1.StopFunc(*fnp), nil
		}
		return nil, perrors.Newf(v1.Runtime, "lookup-stop", "symbol %q has the wrong signature for a stop function", funcName)
	}
	return v1.StopFunc(fn), nil
}

// Digest computes the blake2b-256 digest of the file at path, for hosts
// that want to populate PinChecksum from a manifest at startup.
func Digest(path string) ([]byte, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("digest %s: %w", path, err)
	}
	sum := blake2b.Sum256(data)
	return sum[:], nil
}
