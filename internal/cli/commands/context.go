// Package commands provides the shared context type and all CLI subcommands.
package commands

import (
	"context"

	"github.com/pluggit/pluggit"
	"github.com/pluggit/pluggit/internal/core/config"
	"github.com/pluggit/pluggit/internal/core/logger"
	"github.com/pluggit/pluggit/internal/core/store"
	"github.com/pluggit/pluggit/internal/scanner"
)

type contextKey string

const runtimeContextKey contextKey = "pluggit.runtime"

// GlobalFlags holds the parsed global flags for use by subcommands.
type GlobalFlags struct {
	Debug      bool
	JSONOutput bool
}

// Runtime is the shared dependency bundle injected into each subcommand via
// its Cobra context.
type Runtime struct {
	Config  *config.Config
	Log     *logger.Logger
	Store   *store.Store // nil if persistence is disabled
	Ctx     *pluggit.Context
	Scanner *scanner.Scanner // nil unless a directory scan was requested
	Flags   GlobalFlags
}

// NewContext returns a new context carrying rt.
func NewContext(parent context.Context, rt *Runtime) context.Context {
	if parent == nil {
		parent = context.Background()
	}
	return context.WithValue(parent, runtimeContextKey, rt)
}

// FromContext extracts the Runtime from ctx. Panics if absent — every
// subcommand runs behind rootCmd's PersistentPreRunE, so this is always a
// programming error, never a user-facing condition.
func FromContext(ctx context.Context) *Runtime {
	rt, ok := ctx.Value(runtimeContextKey).(*Runtime)
	if !ok || rt == nil {
		panic("pluggit: Runtime not found in context — missing PersistentPreRunE?")
	}
	return rt
}
