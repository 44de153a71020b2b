// Package pluggit is the public, importable surface of the plug-in
// lifecycle and dependency engine: the Context (§3/§4.3), the Plug-in
// Registry (§4.4), the Dependency & Lifecycle Engine (§4.5), and the
// process-wide Framework Singleton (§4.1) and Logger Registry (§4.2). A
// host program embeds extensibility by importing this package directly —
// it is deliberately not under internal/, since Go's internal/ visibility
// rule would otherwise confine it to this module alone, defeating the
// point of a linkable plug-in framework (mirroring libcpluff being a
// shared library any host links against).
//
// The Context type itself is named for the isolated plug-in universe it
// represents (§3), not for Go's standard context package — it carries no
// cancellation or timeout token, per spec.md §5.
package pluggit

import (
	"bytes"
	"path/filepath"
	"reflect"
	"runtime"
	"strconv"
	"sync"
	"sync/atomic"

	v1 "github.com/pluggit/pluggit/api/v1"
	"github.com/pluggit/pluggit/internal/core/loader"
	"github.com/pluggit/pluggit/internal/core/logger"
	"github.com/pluggit/pluggit/internal/core/store"
	"github.com/pluggit/pluggit/pkg/perrors"
)

// callbackKeyOfListener and callbackKeyOfErrorHandler give EventListener and
// ErrorHandler values a comparable identity via their code pointer, the same
// trick LoggerRegistry uses for Callback, so re-registering the same
// function is a no-op rather than a duplicate entry.
func callbackKeyOfListener(cb EventListener) uintptr {
	return reflect.ValueOf(cb).Pointer()
}

func callbackKeyOfErrorHandler(cb ErrorHandler) uintptr {
	return reflect.ValueOf(cb).Pointer()
}

// ErrorHandler receives a recoverable error raised by ctx's own operations
// (§4.3, §7). It is invoked synchronously, under the context lock, exactly
// like an event listener.
type ErrorHandler func(ctx *Context, code v1.ErrorCode, msg string)

// EventListener receives every state-transition event for ctx (§4.3).
type EventListener func(ctx *Context, ev v1.Event)

type listenerEntry struct {
	key uintptr
	cb  EventListener
}

type errorHandlerEntry struct {
	key uintptr
	cb  ErrorHandler
}

// Context is an isolated plug-in universe: its own registries, its own
// reentrant-checked lock, and its own lifecycle-event ledger (§3).
type Context struct {
	mu        sync.Mutex
	lockOwner atomic.Uint64 // goroutine id currently holding mu, 0 if unlocked

	plugins    map[string]*registeredPlugin
	extPoints  map[string]extPointRecord
	extensions map[string][]extensionRecord
	started    []*registeredPlugin // stack, top = most recently started

	pluginDirs map[string]struct{}

	listeners     []listenerEntry
	errorHandlers []errorHandlerEntry

	startInvocations int
	stopInvocations  int

	loader *loader.Loader
	log    *logger.Logger
	db     *store.Store // optional, nil if no persistence configured
}

// Config bundles the optional collaborators a Context can be built with.
type Config struct {
	Log    *logger.Logger // defaults to an error-level text logger on stderr if nil
	Store  *store.Store   // optional persistence for plugin dirs + event ledger
	Loader *loader.Loader // defaults to loader.New() if nil
}

// Create allocates an initialized Context and registers errHandler as its
// first error handler, if non-nil (§4.3). The Context is also registered
// with the process-wide Framework so Destroy is called on it if the host
// never calls Context.Destroy explicitly before the matching Destroy.
func Create(cfg Config, errHandler ErrorHandler, userData any) *Context {
	_ = userData // threaded through errHandler's closure by the caller, not stored here

	lg := cfg.Log
	if lg == nil {
		lg, _ = logger.Init("error", "text", "", false)
	}
	ld := cfg.Loader
	if ld == nil {
		ld = loader.New()
	}

	c := &Context{
		plugins:    make(map[string]*registeredPlugin),
		extPoints:  make(map[string]extPointRecord),
		extensions: make(map[string][]extensionRecord),
		pluginDirs: make(map[string]struct{}),
		loader:     ld,
		log:        lg,
		db:         cfg.Store,
	}
	if errHandler != nil {
		c.errorHandlers = append(c.errorHandlers, errorHandlerEntry{key: callbackKeyOfErrorHandler(errHandler), cb: errHandler})
	}

	registerContext(c)
	return c
}

// Destroy stops, unresolves, and uninstalls every plug-in, then frees the
// context (§4.3). Safe to call from the package-level Destroy as well as
// directly.
func (c *Context) Destroy() {
	c.lock()
	ids := make([]string, 0, len(c.plugins))
	for id := range c.plugins {
		ids = append(ids, id)
	}
	c.unlock()

	for _, id := range ids {
		c.UninstallPlugin(id)
	}

	unregisterContext(c)
}

// ─────────────────────────────────────────────────────────────────────────────
// Reentrant-lock simulation (§5, SPEC_FULL.md Open Question resolutions)
// ─────────────────────────────────────────────────────────────────────────────

// goroutineID extracts the calling goroutine's id by parsing the header
// line of a runtime.Stack dump. This is the standard workaround for Go's
// lack of a first-class goroutine-id API; it is used here purely to
// detect a callback re-entering its own Context's lock (which would
// otherwise self-deadlock) and trip the fatal path instead, per §5's
// check_invocation requirement.
func goroutineID() uint64 {
	var buf [64]byte
	n := runtime.Stack(buf[:], false)
	b := buf[:n]
	b = bytes.TrimPrefix(b, []byte("goroutine "))
	if i := bytes.IndexByte(b, ' '); i >= 0 {
		b = b[:i]
	}
	id, _ := strconv.ParseUint(string(b), 10, 64)
	return id
}

// lock acquires c.mu, fatally aborting instead of deadlocking if the
// calling goroutine already holds it (i.e. a start_fn/stop_fn/listener/
// error-handler callback called back into a mutating public operation).
func (c *Context) lock() {
	gid := goroutineID()
	if c.lockOwner.Load() == gid {
		fatal("pluggit: context re-entered from a callback on the same goroutine")
		return // unreachable; fatal calls os.Exit
	}
	c.mu.Lock()
	c.lockOwner.Store(gid)
}

func (c *Context) unlock() {
	c.lockOwner.Store(0)
	c.mu.Unlock()
}

// ─────────────────────────────────────────────────────────────────────────────
// Plugin directory registry (§4.3)
// ─────────────────────────────────────────────────────────────────────────────

// AddPluginDir registers path for the external scanner's use. Idempotent:
// succeeds without error whether or not the canonicalized path was already
// present, but only mutates the set (and, if configured, persists it) the
// first time.
func (c *Context) AddPluginDir(path string) error {
	canon := canonicalize(path)

	c.lock()
	_, exists := c.pluginDirs[canon]
	if !exists {
		c.pluginDirs[canon] = struct{}{}
	}
	db := c.db
	c.unlock()

	if !exists && db != nil {
		return db.AddPluginDir(canon)
	}
	return nil
}

// RemovePluginDir unregisters path. No error if absent.
func (c *Context) RemovePluginDir(path string) error {
	canon := canonicalize(path)

	c.lock()
	_, exists := c.pluginDirs[canon]
	delete(c.pluginDirs, canon)
	db := c.db
	c.unlock()

	if exists && db != nil {
		return db.RemovePluginDir(canon)
	}
	return nil
}

// PluginDirs returns the currently registered plugin directories.
func (c *Context) PluginDirs() []string {
	c.lock()
	defer c.unlock()
	out := make([]string, 0, len(c.pluginDirs))
	for d := range c.pluginDirs {
		out = append(out, d)
	}
	return out
}

// canonicalize resolves path to an absolute, symlink-free form when
// possible (SPEC_FULL.md supplemented feature 2). When the path does not
// yet exist, EvalSymlinks necessarily fails, so we fall back to the
// cleaned absolute path — still canonical enough for the idempotency
// comparison AddPluginDir/RemovePluginDir require.
func canonicalize(path string) string {
	abs, err := filepath.Abs(path)
	if err != nil {
		return filepath.Clean(path)
	}
	if resolved, err := filepath.EvalSymlinks(abs); err == nil {
		return resolved
	}
	return abs
}

// ─────────────────────────────────────────────────────────────────────────────
// Event listener / error handler registries (§4.3)
// ─────────────────────────────────────────────────────────────────────────────

// AddEventListener registers cb. Re-registering the same callback updates
// nothing (there is no per-listener filter to update); it is treated like
// AddLogger's de-duplication for symmetry, so a listener is never invoked
// twice for one event.
func (c *Context) AddEventListener(cb EventListener) {
	key := callbackKeyOfListener(cb)
	c.lock()
	defer c.unlock()
	for _, e := range c.listeners {
		if e.key == key {
			return
		}
	}
	c.listeners = append(c.listeners, listenerEntry{key: key, cb: cb})
}

// RemoveEventListener unregisters cb. Idempotent.
func (c *Context) RemoveEventListener(cb EventListener) {
	key := callbackKeyOfListener(cb)
	c.lock()
	defer c.unlock()
	for i, e := range c.listeners {
		if e.key == key {
			c.listeners = append(c.listeners[:i], c.listeners[i+1:]...)
			return
		}
	}
}

// AddErrorHandler registers cb as an additional error handler.
func (c *Context) AddErrorHandler(cb ErrorHandler) {
	key := callbackKeyOfErrorHandler(cb)
	c.lock()
	defer c.unlock()
	for _, e := range c.errorHandlers {
		if e.key == key {
			return
		}
	}
	c.errorHandlers = append(c.errorHandlers, errorHandlerEntry{key: key, cb: cb})
}

// RemoveErrorHandler unregisters cb. Idempotent.
func (c *Context) RemoveErrorHandler(cb ErrorHandler) {
	key := callbackKeyOfErrorHandler(cb)
	c.lock()
	defer c.unlock()
	for i, e := range c.errorHandlers {
		if e.key == key {
			c.errorHandlers = append(c.errorHandlers[:i], c.errorHandlers[i+1:]...)
			return
		}
	}
}

// emitLocked delivers ev to every listener. Callers must hold c.mu.
// Listeners must not mutate plug-in state; see the reentrancy guard above.
func (c *Context) emitLocked(ev v1.Event) {
	for _, l := range c.listeners {
		l.cb(c, ev)
	}
}

// reportErrorLocked delivers a recoverable error to every error handler.
// Callers must hold c.mu.
func (c *Context) reportErrorLocked(code v1.ErrorCode, msg string) {
	for _, h := range c.errorHandlers {
		h.cb(c, code, msg)
	}
}

// reportAndReturn reports err (if non-nil) to every registered error
// handler before handing it back to the caller of a public operation, per
// §7's "recoverable errors are both returned and sent to the error
// handlers". Callers must hold c.mu; err's code is extracted the same way
// a caller inspecting the returned error would via perrors.Code.
func (c *Context) reportAndReturn(err error) error {
	if err == nil {
		return nil
	}
	c.reportErrorLocked(perrors.Code(err), err.Error())
	return err
}

// recordEventLocked persists a lifecycle transition to the event ledger,
// if persistence is configured. Callers must hold c.mu.
func (c *Context) recordEventLocked(pluginID string, oldState, newState v1.PluginState) {
	if c.db == nil {
		return
	}
	_ = c.db.AppendEvent(store.Event{
		PluginID: pluginID,
		OldState: int(oldState),
		NewState: int(newState),
	})
}
