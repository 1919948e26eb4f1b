package common

import (
	"context"
	"log/slog"
	"sync/atomic"
)

// nopHandler discards every record. Enabled reports false so callers skip formatting.
type nopHandler struct{}

func (nopHandler) Enabled(context.Context, slog.Level) bool  { return false }
func (nopHandler) Handle(context.Context, slog.Record) error { return nil }
func (nopHandler) WithAttrs([]slog.Attr) slog.Handler        { return nopHandler{} }
func (nopHandler) WithGroup(string) slog.Handler             { return nopHandler{} }

func newNopLogger() *slog.Logger { return slog.New(nopHandler{}) }

// loggerPtr stores the active logger shared by every engine package.
var loggerPtr atomic.Pointer[slog.Logger]

func init() {
	loggerPtr.Store(newNopLogger())
}

// SetLogger configures the logger used by the engine and all of its sub-packages.
// By default the engine produces no log output. Passing nil restores the silent default.
//
// Log levels used by the engine:
//   - slog.LevelDebug: per-frame diagnostics (skipped materials, rebuilt bind groups)
//   - slog.LevelInfo: lifecycle events (shader loaded, device created, profiler intervals)
//   - slog.LevelWarn: non-fatal problems (missing bind group entries, out of range feature bits)
//
// Parameters:
//   - l: the logger to install, or nil to disable logging
func SetLogger(l *slog.Logger) {
	if l == nil {
		l = newNopLogger()
	}
	loggerPtr.Store(l)
}

// Logger returns the current engine logger. Safe for concurrent use.
//
// Returns:
//   - *slog.Logger: the active logger
func Logger() *slog.Logger {
	return loggerPtr.Load()
}
