package pluggit

import (
	"reflect"
	"sync"
)

// Severity orders the four levels a host-registered logger callback can
// filter on. Debug < Info < Warning < Error.
type Severity int

const (
	Debug Severity = iota
	Info
	Warning
	Error
)

func (s Severity) String() string {
	switch s {
	case Debug:
		return "debug"
	case Info:
		return "info"
	case Warning:
		return "warning"
	case Error:
		return "error"
	default:
		return "unknown"
	}
}

// Callback is a host-supplied logger function. ctx is the Context the
// message concerns, or nil for framework-wide messages.
type Callback func(ctx any, severity Severity, msg string, userData any)

type entry struct {
	key         uintptr
	cb          Callback
	userData    any
	minSeverity Severity
	ctxFilter   any // nil matches any context
	hasFilter   bool
}

// LoggerRegistry is the process-wide set of registered loggers (§4.2). It
// is guarded by its own dedicated mutex, independent of the Framework lock
// and of any Context lock, so that a logger callback can never deadlock
// against either.
type LoggerRegistry struct {
	mu      sync.Mutex
	loggers []*entry
	// floor is the minimum severity over all registered loggers; Log()
	// rejects anything below it without touching the logger list.
	floor Severity
	empty bool
}

// NewLoggerRegistry returns an empty LoggerRegistry. The initial floor has
// no meaning until at least one logger is registered; empty tracks that
// case so Log short-circuits to a no-op.
func NewLoggerRegistry() *LoggerRegistry {
	return &LoggerRegistry{empty: true}
}

// AddLogger registers cb with the given userData, minimum severity, and
// optional context filter. Registering the same callback again (identity
// compared via its code pointer, the closest Go analog to C function
// pointer equality) updates its filter in place rather than adding a
// second entry, per §4.2.
func (r *LoggerRegistry) AddLogger(cb Callback, userData any, minSeverity Severity, ctxFilter any, hasFilter bool) {
	r.mu.Lock()
	defer r.mu.Unlock()

	key := callbackKey(cb)
	for _, e := range r.loggers {
		if e.key == key {
			e.cb = cb
			e.userData = userData
			e.minSeverity = minSeverity
			e.ctxFilter = ctxFilter
			e.hasFilter = hasFilter
			r.recomputeFloor()
			return
		}
	}

	r.loggers = append(r.loggers, &entry{
		key:         key,
		cb:          cb,
		userData:    userData,
		minSeverity: minSeverity,
		ctxFilter:   ctxFilter,
		hasFilter:   hasFilter,
	})
	r.recomputeFloor()
}

// RemoveLogger unregisters cb. Idempotent.
func (r *LoggerRegistry) RemoveLogger(cb Callback) {
	r.mu.Lock()
	defer r.mu.Unlock()

	key := callbackKey(cb)
	for i, e := range r.loggers {
		if e.key == key {
			r.loggers = append(r.loggers[:i], r.loggers[i+1:]...)
			r.recomputeFloor()
			return
		}
	}
}

// callbackKey derives a comparable identity for a Callback. Go func values
// are not comparable with ==, so we use the entry point address of the
// underlying code, same as reflect.Value.Pointer() for any non-nil func.
func callbackKey(cb Callback) uintptr {
	return reflect.ValueOf(cb).Pointer()
}

// recomputeFloor must be called with r.mu held.
func (r *LoggerRegistry) recomputeFloor() {
	if len(r.loggers) == 0 {
		r.empty = true
		return
	}
	r.empty = false
	min := r.loggers[0].minSeverity
	for _, e := range r.loggers[1:] {
		if e.minSeverity < min {
			min = e.minSeverity
		}
	}
	r.floor = min
}

// Log delivers msg at severity to every logger whose filter matches ctx.
// It is an O(1) no-op when severity is below the registry's global floor.
// Logger callbacks must not call AddLogger/RemoveLogger; doing so would
// deadlock against r.mu, since Log holds it for the duration of delivery.
func (r *LoggerRegistry) Log(ctx any, severity Severity, msg string) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.empty || severity < r.floor {
		return
	}

	for _, e := range r.loggers {
		if severity < e.minSeverity {
			continue
		}
		if e.hasFilter && e.ctxFilter != ctx {
			continue
		}
		e.cb(ctx, severity, msg, e.userData)
	}
}
