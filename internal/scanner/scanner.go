// Package scanner watches a Context's registered plugin directories and
// installs or upgrades plug-ins as their on-disk manifests appear or
// change. A plug-in whose manifest disappears stays installed; the scanner
// uninstalls a plug-in only to replace it during an upgrade. It is an
// external collaborator to the core engine, not part of
// it, exactly as spec.md §1 keeps plug-in discovery out of the Context's
// own responsibilities — grounded on the original's cp_rescan_plugins and
// generalized to the Upgrade/StopAllOnUpgrade/StopAllOnInstall/
// RestartActive flag set in api/v1.ScanFlags (SPEC_FULL.md supplemented
// feature 3).
package scanner

import (
	"os"
	"path/filepath"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/pluggit/pluggit"
	v1 "github.com/pluggit/pluggit/api/v1"
	"github.com/pluggit/pluggit/internal/core/logger"
	"github.com/pluggit/pluggit/internal/manifest"
)

// manifestName is the descriptor file every plug-in directory must contain
// to be discovered by a scan.
const manifestName = "plugin.yaml"

// Scanner periodically (or on fsnotify events) walks a Context's registered
// plugin directories, loading any plugin.yaml it finds and reconciling the
// result against the Context's current registry.
type Scanner struct {
	ctx   *pluggit.Context
	log   *logger.Logger
	flags v1.ScanFlags

	pollInterval time.Duration
	watcher      *fsnotify.Watcher

	installed map[string]v1.Version // identifier -> version most recently installed by this scanner
}

// Config bundles the parameters a Scanner is built with.
type Config struct {
	Ctx          *pluggit.Context
	Log          *logger.Logger
	Flags        v1.ScanFlags
	PollInterval time.Duration // falls back to 5s if zero
}

// New builds a Scanner. It does not perform an initial scan or start
// watching; call Run for that.
func New(cfg Config) (*Scanner, error) {
	interval := cfg.PollInterval
	if interval <= 0 {
		interval = 5 * time.Second
	}

	w, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}

	return &Scanner{
		ctx:          cfg.Ctx,
		log:          cfg.Log,
		flags:        cfg.Flags,
		pollInterval: interval,
		watcher:      w,
		installed:    make(map[string]v1.Version),
	}, nil
}

// Close stops the underlying fsnotify watcher.
func (s *Scanner) Close() error {
	return s.watcher.Close()
}

// Run watches every directory currently registered on the Scanner's Context
// and rescans on both a timer and an fsnotify event, until done is closed
// or the watcher's channels close. It performs one scan immediately and
// then blocks in its loop; scan failures are logged, not returned.
func (s *Scanner) Run(done <-chan struct{}) {
	s.watchCurrentDirs()
	s.scanOnce()

	ticker := time.NewTicker(s.pollInterval)
	defer ticker.Stop()

	for {
		select {
		case <-done:
			return
		case <-ticker.C:
			s.watchCurrentDirs()
			s.scanOnce()
		case ev, ok := <-s.watcher.Events:
			if !ok {
				return
			}
			if ev.Op&(fsnotify.Create|fsnotify.Remove|fsnotify.Rename|fsnotify.Write) != 0 {
				s.scanOnce()
			}
		case err, ok := <-s.watcher.Errors:
			if !ok {
				return
			}
			if s.log != nil {
				s.log.Warn("scanner: watch error", "error", err)
			}
		}
	}
}

// watchCurrentDirs adds any newly registered plugin directory to the
// fsnotify watch list. Removing stale watches is unnecessary: fsnotify
// quietly ignores events for paths it no longer needs, and re-adding an
// already-watched path is a cheap no-op.
func (s *Scanner) watchCurrentDirs() {
	for _, dir := range s.ctx.PluginDirs() {
		_ = s.watcher.Add(dir)
	}
}

// scanOnce is ScanPlugins (SPEC_FULL.md's name for cp_rescan_plugins):
// it walks every registered directory for immediate subdirectories
// containing plugin.yaml, then reconciles discovered descriptors against
// the Context's current plug-in set.
func (s *Scanner) scanOnce() {
	found := s.discover()

	for id, info := range found {
		s.reconcile(id, info)
	}
}

// discover returns every valid descriptor found one level below each
// registered plugin directory, keyed by plugin identifier. A later
// directory's descriptor for the same identifier wins, matching the
// original's "last scanned directory wins" rule.
func (s *Scanner) discover() map[string]v1.PluginInfo {
	out := make(map[string]v1.PluginInfo)

	for _, root := range s.ctx.PluginDirs() {
		entries, err := os.ReadDir(root)
		if err != nil {
			if s.log != nil {
				s.log.Warn("scanner: read plugin dir", "dir", root, "error", err)
			}
			continue
		}

		for _, entry := range entries {
			if !entry.IsDir() {
				continue
			}
			descPath := filepath.Join(root, entry.Name(), manifestName)
			if _, err := os.Stat(descPath); err != nil {
				continue
			}

			info, err := manifest.Load(descPath)
			if err != nil {
				if s.log != nil {
					s.log.Warn("scanner: load manifest", "path", descPath, "error", err)
				}
				continue
			}
			if info.PluginPath == "" {
				info.PluginPath = filepath.Join(root, entry.Name())
			}
			out[info.Identifier] = info
		}
	}

	return out
}

// reconcile installs a never-before-seen plug-in, or upgrades one whose
// on-disk version is newer than the currently installed one when the
// Upgrade flag is set. A descriptor whose version does not exceed the
// installed one is left untouched, matching CP_RESCAN_NO_DOWNGRADE's
// always-on downgrade protection in the original.
func (s *Scanner) reconcile(id string, info v1.PluginInfo) {
	state, known := s.ctx.PluginState(id)

	if !known {
		s.install(info, s.flags.Has(v1.StopAllOnInstall))
		return
	}

	if !s.flags.Has(v1.Upgrade) {
		return
	}

	prev, sawBefore := s.installed[id]
	if !sawBefore {
		// We didn't install the currently registered copy ourselves (e.g.
		// installed via `pluggitctl install` directly); treat it as a
		// floor rather than risk clobbering an operator's explicit choice.
		return
	}
	if info.Version.Compare(prev, 4) <= 0 {
		return
	}

	wasActive := state == v1.Active
	s.upgrade(id, info, wasActive)
}

func (s *Scanner) install(info v1.PluginInfo, stopAllFirst bool) {
	var wasActive []string
	if stopAllFirst {
		wasActive = s.activePlugins()
		s.ctx.StopAllPlugins()
	}

	if err := s.ctx.InstallPlugin(info); err != nil {
		if s.log != nil {
			s.log.Error("scanner: install", "plugin", info.Identifier, "error", err)
		}
		return
	}
	s.installed[info.Identifier] = info.Version

	if s.log != nil {
		s.log.Info("scanner: installed plug-in", "plugin", info.Identifier, "version", info.Version.String())
	}

	s.restartIfConfigured(wasActive)
}

func (s *Scanner) upgrade(id string, info v1.PluginInfo, wasActive bool) {
	var stoppedByUs []string
	if s.flags.Has(v1.StopAllOnUpgrade) {
		stoppedByUs = s.activePlugins()
		s.ctx.StopAllPlugins()
	} else if wasActive {
		stoppedByUs = s.activePlugins()
		_ = s.ctx.StopPlugin(id)
	}

	if err := s.ctx.UninstallPlugin(id); err != nil {
		if s.log != nil {
			s.log.Error("scanner: uninstall for upgrade", "plugin", id, "error", err)
		}
		return
	}
	if err := s.ctx.InstallPlugin(info); err != nil {
		if s.log != nil {
			s.log.Error("scanner: install upgraded plugin", "plugin", id, "error", err)
		}
		return
	}
	s.installed[id] = info.Version

	if s.log != nil {
		s.log.Info("scanner: upgraded plug-in", "plugin", id, "version", info.Version.String())
	}

	s.restartIfConfigured(stoppedByUs)
}

// restartIfConfigured restarts plug-ins the scanner itself stopped, if
// RestartActive is set. previouslyActive is nil when nothing was stopped.
func (s *Scanner) restartIfConfigured(previouslyActive []string) {
	if !s.flags.Has(v1.RestartActive) {
		return
	}
	for _, id := range previouslyActive {
		if _, ok := s.ctx.PluginState(id); ok {
			_ = s.ctx.StartPlugin(id)
		}
	}
}

// activePlugins returns the identifiers of every plug-in currently Active,
// snapshotted before a StopAllPlugins call so restartIfConfigured knows
// what to bring back up.
func (s *Scanner) activePlugins() []string {
	var out []string
	for _, id := range s.ctx.ListPlugins() {
		if state, ok := s.ctx.PluginState(id); ok && state == v1.Active {
			out = append(out, id)
		}
	}
	return out
}
