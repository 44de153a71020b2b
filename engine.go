package pluggit

import (
	"fmt"

	v1 "github.com/pluggit/pluggit/api/v1"
	"github.com/pluggit/pluggit/internal/core/loader"
	"github.com/pluggit/pluggit/pkg/perrors"
)

// DependencyError reports the specific import that could not be satisfied
// during Resolve (SPEC_FULL.md supplemented feature 1 — the original
// implementation only logged this via its error callback; partial-resolve
// attempts deserve a typed, inspectable error here).
type DependencyError struct {
	PluginID string
	ImportID string
	Reason   string // "missing", "version-mismatch", "transitively-unresolved"
}

func (e *DependencyError) Error() string {
	return fmt.Sprintf("plugin %q: unsatisfied import %q (%s)", e.PluginID, e.ImportID, e.Reason)
}

// Unwrap exposes a *perrors.PluginError carrying v1.Dependency, so
// perrors.Code and perrors.IsCode report the Dependency code for an
// unsatisfied import.
func (e *DependencyError) Unwrap() error {
	return perrors.Newf(v1.Dependency, "resolve", "unsatisfied import %q (%s)", e.ImportID, e.Reason).WithPlugin(e.PluginID)
}

// pluginHost adapts one registeredPlugin to v1.Host for its start/stop
// entry points, so plug-in code never sees the full Context.
type pluginHost struct {
	id string
}

func (h pluginHost) PluginID() string { return h.id }

// ─────────────────────────────────────────────────────────────────────────────
// Resolve (§4.5) — preliminary/commit/rollback transitive resolution
// ─────────────────────────────────────────────────────────────────────────────

// ResolvePlugin resolves id and its transitive mandatory imports (§4.5).
// Plug-ins involved in a dependency cycle are resolved together: the cycle
// is broken via the processed flag exactly as resolve_plugin_prel_rec does,
// so no single plug-in in the cycle waits forever on another.
func (c *Context) ResolvePlugin(id string) error {
	c.lock()
	defer c.unlock()

	rp, ok := c.plugins[id]
	if !ok {
		return c.reportAndReturn(perrors.Newf(v1.Unknown, "resolve", "plugin %q is not registered", id).WithPlugin(id))
	}
	return c.reportAndReturn(c.resolvePlugin(rp))
}

func (c *Context) resolvePlugin(rp *registeredPlugin) error {
	if _, _, err := c.resolvePrelim(rp); err != nil {
		c.resolveFailedRec(rp)
		return err
	}
	c.resolveCommitRec(rp)
	return nil
}

// resolvePrelim is resolve_plugin_prel_rec: returns (ok, preliminary, err).
// preliminary is true when rp was already mid-traversal (a cycle) so its
// state transition must be deferred to the commit pass.
func (c *Context) resolvePrelim(rp *registeredPlugin) (bool, bool, error) {
	if rp.state >= v1.Resolved {
		return true, false, nil
	}
	if rp.processed {
		return true, true, nil
	}
	rp.processed = true

	rp.imported = nil
	for _, imp := range rp.info.Info().Imports {
		ip, err := c.resolveImport(rp, imp)
		if err != nil {
			return false, false, err
		}
		if ip == nil {
			continue // optional import with nothing installed
		}
		rp.imported = append(rp.imported, ip)
		ip.importing[rp] = struct{}{}

		if ok, _, _ := c.resolvePrelim(ip); !ok {
			return false, false, &DependencyError{PluginID: rp.id, ImportID: ip.id, Reason: "transitively-unresolved"}
		}
	}

	if err := c.resolveRuntime(rp); err != nil {
		return false, false, err
	}

	return true, false, nil
}

// resolveImport is resolve_plugin_import: looks up the imported plug-in,
// checks its version against the import's requirement, and reports a
// DependencyError for a missing mandatory import or a version mismatch.
// A missing optional import returns (nil, nil).
func (c *Context) resolveImport(rp *registeredPlugin, imp v1.PluginImport) (*registeredPlugin, error) {
	ip, found := c.plugins[imp.PluginID]

	if found && imp.HasVersion {
		available := ip.info.Info().Version
		if !imp.Match.Satisfies(available, imp.Version) {
			return nil, &DependencyError{PluginID: rp.id, ImportID: imp.PluginID, Reason: "version-mismatch"}
		}
	}

	if !found {
		if imp.Optional {
			return nil, nil
		}
		return nil, &DependencyError{PluginID: rp.id, ImportID: imp.PluginID, Reason: "missing"}
	}
	return ip, nil
}

// resolveRuntime loads rp's runtime library (if any) and resolves its
// start/stop symbols, mirroring resolve_plugin_runtime.
func (c *Context) resolveRuntime(rp *registeredPlugin) error {
	info := rp.info.Info()
	if info.LibPath == "" {
		return nil
	}

	handle, err := c.loader.Load(rp.id, info.PluginPath, info.LibPath)
	if err != nil {
		return err
	}

	var startFn v1.StartFunc
	var stopFn v1.StopFunc
	if info.StartFuncName != "" {
		startFn, err = loader.LookupStart(handle, info.StartFuncName)
		if err != nil {
			return err
		}
	}
	if info.StopFuncName != "" {
		stopFn, err = loader.LookupStop(handle, info.StopFuncName)
		if err != nil {
			return err
		}
	}

	rp.runtimeLib = handle
	rp.startFn = startFn
	rp.stopFn = stopFn
	return nil
}

// unresolveRuntime mirrors unresolve_plugin_runtime: there is no DLCLOSE
// equivalent for Go's plugin package (plugins cannot be unloaded), so this
// only clears the resolved symbols — the *plugin.Plugin stays mapped in
// the process for its lifetime, a documented platform limitation.
func (c *Context) unresolveRuntime(rp *registeredPlugin) {
	rp.startFn = nil
	rp.stopFn = nil
	rp.runtimeLib = nil
}

// resolveCommitRec is resolve_plugin_commit_rec.
func (c *Context) resolveCommitRec(rp *registeredPlugin) {
	if !rp.processed {
		return
	}
	rp.processed = false

	if rp.state < v1.Resolved {
		for _, ip := range rp.imported {
			c.resolveCommitRec(ip)
		}
		old := rp.state
		rp.state = v1.Resolved
		c.emitLocked(v1.Event{Kind: v1.EventStateChange, PluginID: rp.id, OldState: old, NewState: v1.Resolved})
		c.recordEventLocked(rp.id, old, v1.Resolved)
		logf(c, Info, "plugin %q resolved", rp.id)
	}
}

// resolveFailedRec is resolve_plugin_failed_rec: tears down the partially
// built dependency graph after a failed resolve attempt.
func (c *Context) resolveFailedRec(rp *registeredPlugin) {
	if !rp.processed {
		return
	}
	rp.processed = false

	if rp.state < v1.Resolved {
		for _, ip := range rp.imported {
			c.resolveFailedRec(ip)
			delete(ip.importing, rp)
		}
		rp.imported = nil
	}
}

// ─────────────────────────────────────────────────────────────────────────────
// Start (§4.5)
// ─────────────────────────────────────────────────────────────────────────────

// StartPlugin resolves id if needed, then starts it and its transitive
// imports in dependency order (§4.5). If a plug-in's start function
// returns false, the failing plug-in is rolled back to Resolved and
// v1.Runtime is returned; plug-ins already started remain active.
func (c *Context) StartPlugin(id string) error {
	c.lock()
	defer c.unlock()

	rp, ok := c.plugins[id]
	if !ok {
		return c.reportAndReturn(perrors.Newf(v1.Unknown, "start", "plugin %q is not registered", id).WithPlugin(id))
	}
	if err := c.resolvePlugin(rp); err != nil {
		return c.reportAndReturn(err)
	}
	err := c.startRec(rp)
	c.resetProcessedDeps(rp)
	return c.reportAndReturn(err)
}

func (c *Context) startRec(rp *registeredPlugin) error {
	if rp.state >= v1.Active {
		return nil
	}
	if rp.processed {
		return nil
	}
	rp.processed = true

	for _, ip := range rp.imported {
		if err := c.startRec(ip); err != nil {
			return err
		}
	}

	return c.startRuntime(rp)
}

// startRuntime is start_plugin_runtime.
func (c *Context) startRuntime(rp *registeredPlugin) error {
	old := rp.state
	rp.state = v1.Starting
	c.emitLocked(v1.Event{Kind: v1.EventStateChange, PluginID: rp.id, OldState: old, NewState: v1.Starting})
	c.recordEventLocked(rp.id, old, v1.Starting)

	if rp.startFn != nil {
		c.startInvocations++
		ok := rp.startFn(pluginHost{id: rp.id})
		c.startInvocations--

		if !ok {
			old = rp.state
			rp.state = v1.Stopping
			c.emitLocked(v1.Event{Kind: v1.EventStateChange, PluginID: rp.id, OldState: old, NewState: v1.Stopping})
			if rp.stopFn != nil {
				c.stopInvocations++
				rp.stopFn(pluginHost{id: rp.id})
				c.stopInvocations--
			}
			old = rp.state
			rp.state = v1.Resolved
			c.emitLocked(v1.Event{Kind: v1.EventStateChange, PluginID: rp.id, OldState: old, NewState: v1.Resolved})
			c.recordEventLocked(rp.id, old, v1.Resolved)
			logf(c, Warning, "plugin %q failed to start", rp.id)

			return perrors.Newf(v1.Runtime, "start", "plugin %q failed to start", rp.id).WithPlugin(rp.id)
		}
	}

	c.started = append(c.started, rp)
	old = rp.state
	rp.state = v1.Active
	c.emitLocked(v1.Event{Kind: v1.EventStateChange, PluginID: rp.id, OldState: old, NewState: v1.Active})
	c.recordEventLocked(rp.id, old, v1.Active)
	logf(c, Info, "plugin %q active", rp.id)
	return nil
}

func (c *Context) resetProcessedDeps(rp *registeredPlugin) {
	if !rp.processed {
		return
	}
	rp.processed = false
	for _, ip := range rp.imported {
		c.resetProcessedDeps(ip)
	}
}

// ─────────────────────────────────────────────────────────────────────────────
// Stop (§4.5)
// ─────────────────────────────────────────────────────────────────────────────

// StopPlugin stops id and every plug-in depending on it, deepest dependent
// first (§4.5).
func (c *Context) StopPlugin(id string) error {
	c.lock()
	defer c.unlock()

	rp, ok := c.plugins[id]
	if !ok {
		return c.reportAndReturn(perrors.Newf(v1.Unknown, "stop", "plugin %q is not registered", id).WithPlugin(id))
	}
	c.stopRec(rp)
	return nil
}

// StopAllPlugins stops every active plug-in in the reverse order they were
// started (§4.5), matching cp_stop_all_plugins exactly rather than walking
// the importing graph from arbitrary roots.
func (c *Context) StopAllPlugins() {
	c.lock()
	defer c.unlock()

	for len(c.started) > 0 {
		top := c.started[len(c.started)-1]
		c.stopRec(top)
	}
}

func (c *Context) stopRec(rp *registeredPlugin) {
	if rp.state < v1.Active {
		return
	}
	if rp.processed {
		return
	}
	rp.processed = true

	for ip := range rp.importing {
		c.stopRec(ip)
	}

	c.stopRuntime(rp)
	rp.processed = false
}

// stopRuntime is stop_plugin_runtime.
func (c *Context) stopRuntime(rp *registeredPlugin) {
	old := rp.state
	rp.state = v1.Stopping
	c.emitLocked(v1.Event{Kind: v1.EventStateChange, PluginID: rp.id, OldState: old, NewState: v1.Stopping})
	c.recordEventLocked(rp.id, old, v1.Stopping)

	if rp.stopFn != nil {
		c.stopInvocations++
		rp.stopFn(pluginHost{id: rp.id})
		c.stopInvocations--
	}

	c.removeFromStarted(rp)
	old = rp.state
	rp.state = v1.Resolved
	c.emitLocked(v1.Event{Kind: v1.EventStateChange, PluginID: rp.id, OldState: old, NewState: v1.Resolved})
	c.recordEventLocked(rp.id, old, v1.Resolved)
	logf(c, Info, "plugin %q stopped", rp.id)
}

func (c *Context) removeFromStarted(rp *registeredPlugin) {
	for i, s := range c.started {
		if s == rp {
			c.started = append(c.started[:i], c.started[i+1:]...)
			return
		}
	}
}

// ─────────────────────────────────────────────────────────────────────────────
// Unresolve / Uninstall (§4.5)
// ─────────────────────────────────────────────────────────────────────────────

// UnresolvePlugin stops id (and its dependents) then releases its runtime
// library and import edges, returning it to Installed.
func (c *Context) UnresolvePlugin(id string) error {
	c.lock()
	defer c.unlock()

	rp, ok := c.plugins[id]
	if !ok {
		return c.reportAndReturn(perrors.Newf(v1.Unknown, "unresolve", "plugin %q is not registered", id).WithPlugin(id))
	}
	c.unresolvePlugin(rp)
	return nil
}

func (c *Context) unresolvePlugin(rp *registeredPlugin) {
	c.stopRec(rp)
	c.unresolveRec(rp)
}

func (c *Context) unresolveRec(rp *registeredPlugin) {
	if rp.state < v1.Resolved {
		return
	}
	if rp.processed {
		return
	}
	rp.processed = true

	for ip := range rp.importing {
		c.unresolveRec(ip)
	}

	c.unresolveRuntime(rp)
	for _, ip := range rp.imported {
		delete(ip.importing, rp)
	}
	rp.imported = nil

	old := rp.state
	rp.state = v1.Installed
	c.emitLocked(v1.Event{Kind: v1.EventStateChange, PluginID: rp.id, OldState: old, NewState: v1.Installed})
	c.recordEventLocked(rp.id, old, v1.Installed)
	logf(c, Info, "plugin %q unresolved", rp.id)

	rp.processed = false
}

// UninstallPlugin unresolves id, removes its extension points/extensions,
// and deletes it from the registry entirely (§4.4, §4.5).
func (c *Context) UninstallPlugin(id string) error {
	c.lock()
	defer c.unlock()

	rp, ok := c.plugins[id]
	if !ok {
		return c.reportAndReturn(perrors.Newf(v1.Unknown, "uninstall", "plugin %q is not registered", id).WithPlugin(id))
	}
	c.uninstallPlugin(rp)
	return nil
}

// UninstallAllPlugins uninstalls every registered plug-in, stopping and
// unresolving each as needed, in no particular order (every dependency
// edge is torn down as each plug-in is reached regardless of order).
func (c *Context) UninstallAllPlugins() {
	c.lock()
	ids := make([]string, 0, len(c.plugins))
	for id := range c.plugins {
		ids = append(ids, id)
	}
	for _, id := range ids {
		if rp, ok := c.plugins[id]; ok {
			c.uninstallPlugin(rp)
		}
	}
	c.unlock()
}

func (c *Context) uninstallPlugin(rp *registeredPlugin) {
	if rp.state <= v1.Uninstalled {
		return
	}

	c.unresolvePlugin(rp)

	old := rp.state
	rp.state = v1.Uninstalled
	c.emitLocked(v1.Event{Kind: v1.EventStateChange, PluginID: rp.id, OldState: old, NewState: v1.Uninstalled})
	c.recordEventLocked(rp.id, old, v1.Uninstalled)
	logf(c, Info, "plugin %q uninstalled", rp.id)

	info := rp.info.Info()
	for _, ep := range info.ExtPoints {
		delete(c.extPoints, globalID(rp.id, ep.LocalID))
	}
	for epID := range c.extensions {
		c.removeExtensionsOf(epID, rp.id)
	}

	delete(c.plugins, rp.id)
	ReleaseInfo(rp.info)
}
