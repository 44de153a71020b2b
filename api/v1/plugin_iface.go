// Package v1 also defines the native entry-point contract a plug-in's
// runtime library exports (§4.6). A plug-in library built against pluggit
// exports two package-level symbols named after PluginInfo.StartFuncName /
// StopFuncName, of these exact types.
package v1

// Host is the minimal handle a plug-in's start/stop entry points receive.
// The engine passes a small per-plug-in adapter implementing it; plug-in code
// never sees the full Context.
type Host interface {
	// PluginID returns the identifier of the plug-in being started/stopped.
	PluginID() string
}

// StartFunc is the signature a plug-in exports under PluginInfo.StartFuncName.
// It returns false to abort startup, which rolls the plug-in back to Resolved
// and reports ErrorCode Runtime to the caller of StartPlugin.
type StartFunc func(host Host) bool

// StopFunc is the signature a plug-in exports under PluginInfo.StopFuncName.
type StopFunc func(host Host)
