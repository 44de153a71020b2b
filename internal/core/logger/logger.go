// Package logger provides pluggit's ambient diagnostic logger: the
// internal, slog-backed channel pluggit's own scanner and CLI use to write
// their own diagnostics, with stderr/file/TUI
// sinks. This is distinct from the top-level pluggit.LoggerRegistry
// (§4.2), the public, host-facing set of caller-supplied callbacks that
// the core reports recoverable conditions through — that type lives
// alongside Context since it is part of the package a host imports.
package logger

import (
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
)

// ─────────────────────────────────────────────────────────────────────────────
// Logger (ambient diagnostics)
// ─────────────────────────────────────────────────────────────────────────────

// Logger wraps slog.Logger with pluggit-specific sink plumbing.
type Logger struct {
	*slog.Logger
	tuiSink chan<- string // non-nil when TUI is active
}

var tuiSinkCh chan string

// SetTUISink registers a channel that receives log lines destined for the TUI.
// Call before Init to enable TUI log forwarding.
func SetTUISink(ch chan string) {
	tuiSinkCh = ch
}

// Init initialises the ambient diagnostic logger. Safe to call multiple
// times; each call builds an independent *Logger (unlike the process-wide
// Framework singleton in package pluggit, this is purely an I/O sink).
func Init(level, format, logFile string, debug bool) (*Logger, error) {
	var lvl slog.Level
	switch level {
	case "debug":
		lvl = slog.LevelDebug
	case "warn":
		lvl = slog.LevelWarn
	case "error":
		lvl = slog.LevelError
	default:
		lvl = slog.LevelInfo
	}
	if debug {
		lvl = slog.LevelDebug
	}

	writers := []io.Writer{os.Stderr}

	if logFile != "" {
		if err := os.MkdirAll(filepath.Dir(logFile), 0750); err == nil {
			if f, err := os.OpenFile(logFile, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0640); err == nil {
				writers = append(writers, f)
			}
		}
	}

	if tuiSinkCh != nil {
		writers = append(writers, &tuiWriter{ch: tuiSinkCh})
	}

	out := io.MultiWriter(writers...)

	var handler slog.Handler
	opts := &slog.HandlerOptions{Level: lvl, AddSource: debug}
	if format == "json" {
		handler = slog.NewJSONHandler(out, opts)
	} else {
		handler = slog.NewTextHandler(out, opts)
	}

	return &Logger{Logger: slog.New(handler)}, nil
}

// ─────────────────────────────────────────────────────────────────────────────
// TUI writer
// ─────────────────────────────────────────────────────────────────────────────

// tuiWriter implements io.Writer by forwarding lines to the TUI sink channel.
type tuiWriter struct {
	mu sync.Mutex
	ch chan<- string
}

func (w *tuiWriter) Write(p []byte) (int, error) {
	w.mu.Lock()
	defer w.mu.Unlock()
	select {
	case w.ch <- string(p):
	default: // drop if channel full — never block logger
	}
	return len(p), nil
}
