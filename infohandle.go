package pluggit

import (
	"sync/atomic"

	v1 "github.com/pluggit/pluggit/api/v1"
)

// InfoHandle is a refcounted handle to an immutable PluginInfo (§5,
// "Resource ownership"). The Context holds exactly one reference for as
// long as the plug-in is registered (state >= Installed); GetPluginInfo /
// GetPluginsInfo each add a reference that the caller must match with a
// ReleaseInfo.
type InfoHandle struct {
	info  v1.PluginInfo
	count int32
}

// newInfoHandle wraps info with an initial refcount of 1, owned by the
// Context that is about to register it.
func newInfoHandle(info v1.PluginInfo) *InfoHandle {
	return &InfoHandle{info: info, count: 1}
}

// Info returns the wrapped PluginInfo. The returned value is a copy of the
// immutable descriptor; mutating it has no effect on the registry.
func (h *InfoHandle) Info() v1.PluginInfo {
	return h.info
}

// use bumps the refcount. Called by GetPluginInfo/GetPluginsInfo; the
// Context's own reference is the initial count set by newInfoHandle.
func (h *InfoHandle) use() {
	atomic.AddInt32(&h.count, 1)
}

// release drops the refcount and reports whether it reached zero.
func (h *InfoHandle) release() bool {
	return atomic.AddInt32(&h.count, -1) == 0
}

// refs reports the current outstanding reference count, for tests and
// diagnostics only.
func (h *InfoHandle) refs() int32 {
	return atomic.LoadInt32(&h.count)
}
