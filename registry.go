package pluggit

import (
	v1 "github.com/pluggit/pluggit/api/v1"
	"github.com/pluggit/pluggit/internal/core/loader"
	"github.com/pluggit/pluggit/pkg/perrors"
)

// registeredPlugin is the mutable per-context record for one installed
// plug-in (§3). It is owned exclusively by Context.plugins; every other
// reference to it (imported/importing edges, Context.started) is
// non-owning, per SPEC_FULL.md's design notes on back-edges without
// pointer cycles.
type registeredPlugin struct {
	id    string
	info  *InfoHandle
	state v1.PluginState

	imported  []*registeredPlugin          // populated only when state >= Resolved
	importing map[*registeredPlugin]struct{} // back-edges

	runtimeLib loader.Handle // nil when info.LibPath is empty or not yet resolved
	startFn    v1.StartFunc
	stopFn     v1.StopFunc

	// processed is traversal scratch state for the engine (§9). It must be
	// false outside the dynamic extent of any top-level engine call.
	processed bool
}

func newRegisteredPlugin(id string, info *InfoHandle) *registeredPlugin {
	return &registeredPlugin{
		id:        id,
		info:      info,
		state:     v1.Installed,
		importing: make(map[*registeredPlugin]struct{}),
	}
}

// extPointRecord pairs a published ExtPoint with the plug-in that owns it.
type extPointRecord struct {
	ep      v1.ExtPoint
	ownerID string
}

// extensionRecord pairs a contributed Extension with the plug-in that owns
// it, so extensions[ext_point_id] entries can be removed again when their
// owning plug-in is uninstalled.
type extensionRecord struct {
	ext     v1.Extension
	ownerID string
}

// InstallPlugin integrates info into the registry (§4.4). It takes
// ownership of info — the caller must not also call ReleaseInfo on a
// handle it never received back from this call.
func (c *Context) InstallPlugin(info v1.PluginInfo) error {
	c.lock()
	defer c.unlock()

	if info.Identifier == "" {
		return c.reportAndReturn(perrors.Newf(v1.Malformed, "install", "plugin identifier must not be empty"))
	}
	if _, exists := c.plugins[info.Identifier]; exists {
		return c.reportAndReturn(perrors.Newf(v1.Conflict, "install", "plugin %q is already installed", info.Identifier).WithPlugin(info.Identifier))
	}

	handle := newInfoHandle(info)
	rp := newRegisteredPlugin(info.Identifier, handle)

	var installedEPs []string
	var installedExtOwners []string // ext_point_id keys touched, for rollback trimming

	rollback := func() {
		for _, gid := range installedEPs {
			delete(c.extPoints, gid)
		}
		for _, epID := range installedExtOwners {
			c.removeExtensionsOf(epID, info.Identifier)
		}
	}

	for _, ep := range info.ExtPoints {
		gid := globalID(info.Identifier, ep.LocalID)
		ep.GlobalID = gid
		if _, exists := c.extPoints[gid]; exists {
			rollback()
			return c.reportAndReturn(perrors.Newf(v1.Conflict, "install", "extension point %q is already published", gid).WithPlugin(info.Identifier))
		}
		c.extPoints[gid] = extPointRecord{ep: ep, ownerID: info.Identifier}
		installedEPs = append(installedEPs, gid)
	}

	for _, ext := range info.Extensions {
		if ext.LocalID != "" {
			ext.GlobalID = globalID(info.Identifier, ext.LocalID)
		}
		c.extensions[ext.ExtPointID] = append(c.extensions[ext.ExtPointID], extensionRecord{ext: ext, ownerID: info.Identifier})
		installedExtOwners = appendUnique(installedExtOwners, ext.ExtPointID)
	}

	c.plugins[info.Identifier] = rp
	c.emitLocked(v1.Event{Kind: v1.EventStateChange, PluginID: info.Identifier, OldState: v1.Uninstalled, NewState: v1.Installed})
	c.recordEventLocked(info.Identifier, v1.Uninstalled, v1.Installed)
	logf(c, Info, "plugin %q installed", info.Identifier)
	return nil
}

func globalID(pluginID, localID string) string {
	return pluginID + "." + localID
}

func appendUnique(s []string, v string) []string {
	for _, x := range s {
		if x == v {
			return s
		}
	}
	return append(s, v)
}

// removeExtensionsOf deletes every extension contributed by ownerID from
// extensions[epID], and the map entry itself if the list becomes empty.
func (c *Context) removeExtensionsOf(epID, ownerID string) {
	list := c.extensions[epID]
	kept := list[:0]
	for _, e := range list {
		if e.ownerID != ownerID {
			kept = append(kept, e)
		}
	}
	if len(kept) == 0 {
		delete(c.extensions, epID)
	} else {
		c.extensions[epID] = kept
	}
}

// ─────────────────────────────────────────────────────────────────────────────
// Lookups
// ─────────────────────────────────────────────────────────────────────────────

// GetExtPoint returns the ExtPoint published under globalID, or false if
// none is registered (dangling extensions referencing a missing ext-point
// are allowed per §3, so this is a plain lookup, not an error path).
func (c *Context) GetExtPoint(globalID string) (v1.ExtPoint, bool) {
	c.lock()
	defer c.unlock()
	rec, ok := c.extPoints[globalID]
	if !ok {
		return v1.ExtPoint{}, false
	}
	return rec.ep, true
}

// GetExtensions returns every extension currently contributed to epGlobalID.
func (c *Context) GetExtensions(epGlobalID string) []v1.Extension {
	c.lock()
	defer c.unlock()
	recs := c.extensions[epGlobalID]
	out := make([]v1.Extension, len(recs))
	for i, r := range recs {
		out[i] = r.ext
	}
	return out
}

// PluginState returns the current state of id, or (Uninstalled, false) if
// id is not registered.
func (c *Context) PluginState(id string) (v1.PluginState, bool) {
	c.lock()
	defer c.unlock()
	rp, ok := c.plugins[id]
	if !ok {
		return v1.Uninstalled, false
	}
	return rp.state, true
}

// ListPlugins returns the identifiers of every registered plug-in.
func (c *Context) ListPlugins() []string {
	c.lock()
	defer c.unlock()
	out := make([]string, 0, len(c.plugins))
	for id := range c.plugins {
		out = append(out, id)
	}
	return out
}

// GetPluginInfo returns a refcount-bumped InfoHandle for id. The caller
// must call ReleaseInfo on the returned handle exactly once.
func (c *Context) GetPluginInfo(id string) (*InfoHandle, error) {
	c.lock()
	defer c.unlock()
	rp, ok := c.plugins[id]
	if !ok {
		return nil, c.reportAndReturn(perrors.Newf(v1.Unknown, "get-plugin-info", "plugin %q is not registered", id).WithPlugin(id))
	}
	rp.info.use()
	return rp.info, nil
}

// GetPluginsInfo returns a refcount-bumped InfoHandle for every registered
// plug-in.
func (c *Context) GetPluginsInfo() []*InfoHandle {
	c.lock()
	defer c.unlock()
	out := make([]*InfoHandle, 0, len(c.plugins))
	for _, rp := range c.plugins {
		rp.info.use()
		out = append(out, rp.info)
	}
	return out
}

// ReleaseInfo releases one reference obtained from GetPluginInfo or
// GetPluginsInfo. It does not take the context lock: InfoHandle's own
// atomic counter is the synchronization point, matching §5's description
// of refcounted PluginInfo as independent of context-lock traffic.
func ReleaseInfo(h *InfoHandle) {
	h.release()
}
