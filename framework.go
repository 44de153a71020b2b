// The process-wide Framework Singleton (§4.1): init/teardown refcounting,
// the fatal-error hook, implementation metadata, and the single dedicated
// Logger Registry shared by every Context.
//
// Grounded on an idempotent-global-init pattern generalized into a true
// refcounted singleton per spec.md §4.1 and §9 ("model them as a single
// module-level value protected by a mutex; initialization is idempotent").
package pluggit

import (
	"fmt"
	"os"
	"runtime"
	"runtime/debug"
	"sync"

	v1 "github.com/pluggit/pluggit/api/v1"
)

// apiTriple is pluggit's own libtool-style API version triple, bumped
// whenever the public surface in api/v1 changes in a way that affects
// binary or source compatibility.
var apiTriple = v1.APITriple{Current: 1, Revision: 0, Age: 0}

// releaseVersion is overridden at build time via -ldflags.
var releaseVersion = "dev"

// FatalHandler is invoked on any invariant violation (§7). There is no
// mechanism to resume from a fatal call: the framework always terminates
// the process immediately afterward via os.Exit(2), matching the
// original's cp_fatalf, which never returns.
type FatalHandler func(msg string)

// destroyable is implemented by *Context; the singleton holds contexts only
// behind this interface so Destroy can tear down whatever was registered
// without Context needing to know about the singleton's bookkeeping.
type destroyable interface {
	Destroy()
}

// singleton is the one module-level instance described in spec.md §9.
type singleton struct {
	mu       sync.Mutex
	refcount int
	fatal    FatalHandler
	loggers  *LoggerRegistry
	contexts []destroyable
}

var global singleton

// Init increments the process-wide reference count. On the first call it
// allocates the Logger Registry. Safe to call from multiple goroutines.
func Init() {
	global.mu.Lock()
	defer global.mu.Unlock()

	if global.refcount == 0 {
		global.loggers = NewLoggerRegistry()
	}
	global.refcount++
}

// Destroy decrements the reference count. On the last call it destroys
// every outstanding Context (via registerContext) and tears down the
// Logger Registry. Destroying more times than Init is a fatal invariant
// violation (§7): there is no recoverable error code for it because no
// Framework state exists to report through.
func Destroy() {
	global.mu.Lock()
	if global.refcount <= 0 {
		global.mu.Unlock()
		fatal("framework destroyed more times than initialized")
		return
	}

	global.refcount--
	if global.refcount > 0 {
		global.mu.Unlock()
		return
	}

	contexts := global.contexts
	global.contexts = nil
	global.loggers = nil
	global.mu.Unlock()

	for _, c := range contexts {
		c.Destroy()
	}
}

// registerContext records ctx so Destroy() can tear it down when the
// framework reaches refcount zero. Called by Create.
func registerContext(ctx destroyable) {
	global.mu.Lock()
	defer global.mu.Unlock()
	global.contexts = append(global.contexts, ctx)
}

// unregisterContext removes ctx from the teardown list; called by
// Context.Destroy so a context explicitly destroyed by its owner is not
// destroyed a second time when the framework itself tears down.
func unregisterContext(ctx destroyable) {
	global.mu.Lock()
	defer global.mu.Unlock()
	for i, c := range global.contexts {
		if c == ctx {
			global.contexts = append(global.contexts[:i], global.contexts[i+1:]...)
			return
		}
	}
}

// Loggers returns the process-wide Logger Registry. Valid only between
// Init and the matching Destroy; callers that need it on every log call
// should cache it once after Init rather than calling Loggers() on a hot
// path, since it briefly takes the framework lock.
func Loggers() *LoggerRegistry {
	global.mu.Lock()
	defer global.mu.Unlock()
	return global.loggers
}

// logf reports msg to the process-wide Logger Registry, if one exists
// (i.e. Init has been called). Contexts built directly via Create without
// a surrounding Init/Destroy — as most tests do — simply get no diagnostic
// channel.
func logf(ctx any, severity Severity, format string, args ...any) {
	global.mu.Lock()
	reg := global.loggers
	global.mu.Unlock()
	if reg == nil {
		return
	}
	reg.Log(ctx, severity, fmt.Sprintf(format, args...))
}

// SetFatalErrorHandler installs cb as the process-wide fatal handler.
// Passing nil reverts to writing the message to stderr before aborting.
func SetFatalErrorHandler(cb FatalHandler) {
	global.mu.Lock()
	defer global.mu.Unlock()
	global.fatal = cb
}

// fatal formats msg, invokes the fatal handler (or writes to stderr if
// none is registered), and aborts the process. There is no return from
// fatal; it never yields control back to its caller.
func fatal(format string, args ...any) {
	msg := fmt.Sprintf(format, args...)

	logf(nil, Error, "fatal: %s", msg)

	global.mu.Lock()
	handler := global.fatal
	global.mu.Unlock()

	if handler != nil {
		handler(msg)
	} else {
		fmt.Fprintf(os.Stderr, "pluggit: fatal: %s\n", msg)
	}
	os.Exit(2)
}

// GetImplementationInfo returns release version, API triple, host triplet,
// and thread-model tag for the running build (§4.1, SPEC_FULL.md
// supplemented feature 4).
func GetImplementationInfo() v1.ImplementationInfo {
	version := releaseVersion
	if bi, ok := debug.ReadBuildInfo(); ok && bi.Main.Version != "" && bi.Main.Version != "(devel)" {
		version = bi.Main.Version
	}
	return v1.ImplementationInfo{
		ReleaseVersion: version,
		API:            apiTriple,
		HostTriplet:    fmt.Sprintf("%s/%s", runtime.GOOS, runtime.GOARCH),
		ThreadModel:    "goroutines",
	}
}
