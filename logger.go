package cgs

import (
	"context"
	"log/slog"
	"sync"
	"sync/atomic"
)

// nopHandler is a slog.Handler that silently discards all log records.
// The Enabled method returns false so the caller skips message formatting
// entirely, making disabled logging effectively zero-cost.
type nopHandler struct{}

func (nopHandler) Enabled(context.Context, slog.Level) bool  { return false }
func (nopHandler) Handle(context.Context, slog.Record) error { return nil }
func (nopHandler) WithAttrs([]slog.Attr) slog.Handler        { return nopHandler{} }
func (nopHandler) WithGroup(string) slog.Handler             { return nopHandler{} }

// newNopLogger creates a logger that silently discards all output.
func newNopLogger() *slog.Logger { return slog.New(nopHandler{}) }

// loggerPtr stores the active logger. Accessed atomically so that
// SetLogger can be called concurrently with logging from any goroutine.
var loggerPtr atomic.Pointer[slog.Logger]

// live tracks open systems so SetLogger can reach their devices.
var (
	liveMu sync.Mutex
	live   = make(map[*System]struct{})
)

func init() {
	l := newNopLogger()
	loggerPtr.Store(l)
}

// SetLogger configures the logger for cgs and the devices of every open
// System. By default, cgs produces no log output. Call SetLogger to enable
// logging.
//
// SetLogger is safe for concurrent use: it stores the new logger atomically.
// Pass nil to disable logging (restore default silent behavior).
//
// Log levels used by cgs:
//   - [slog.LevelDebug]: resource traffic (uploads, allocations, links)
//   - [slog.LevelInfo]: lifecycle events (device selected, system closed)
//   - [slog.LevelWarn]: usage errors that degrade to a no-op
//   - [slog.LevelError]: usage errors that fall back to a safe default
//     (out of range texels, undersized allocation hints)
//
// Example:
//
//	cgs.SetLogger(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
//	    Level: slog.LevelDebug,
//	})))
func SetLogger(l *slog.Logger) {
	if l == nil {
		l = newNopLogger()
	}
	loggerPtr.Store(l)

	liveMu.Lock()
	defer liveMu.Unlock()
	for s := range live {
		propagateLogger(s, l)
	}
}

// Logger returns the current logger used by cgs.
//
// Logger is safe for concurrent use.
func Logger() *slog.Logger {
	return loggerPtr.Load()
}

// loggerSetter is implemented by devices that accept a logger.
type loggerSetter interface {
	SetLogger(*slog.Logger)
}

// propagateLogger passes the logger to the system's device if it implements
// loggerSetter. A system configured WithLogger keeps its own logger.
func propagateLogger(s *System, l *slog.Logger) {
	if s.opts.logger != nil {
		return
	}
	if ls, ok := s.device.(loggerSetter); ok {
		ls.SetLogger(l)
	}
}

func track(s *System) {
	liveMu.Lock()
	defer liveMu.Unlock()
	live[s] = struct{}{}
	if s.opts.logger != nil {
		if ls, ok := s.device.(loggerSetter); ok {
			ls.SetLogger(s.opts.logger)
		}
		return
	}
	propagateLogger(s, Logger())
}

func untrack(s *System) {
	liveMu.Lock()
	defer liveMu.Unlock()
	delete(live, s)
}

// logger returns the system's logger, tagged with its instance id.
func (s *System) logger() *slog.Logger {
	base := s.opts.logger
	if base == nil {
		base = Logger()
	}
	if base != s.logBase {
		s.logBase = base
		s.log = base.With("system", s.id.String())
	}
	return s.log
}
