// Package tracelog provides the leveled logger used across the connection
// core, matching the trace-level taxonomy of the library surface: none,
// state changes, messages, errors, all.
package tracelog

import (
	"io"
	"log/slog"
	"os"

	"gopkg.in/natefinch/lumberjack.v2"
)

// Level selects which categories of trace lines are emitted.
type Level int

const (
	// None suppresses every gated category below; Info lines are still
	// written.
	None Level = iota
	// StateChanges emits only "[state change] a -> b" lines.
	StateChanges
	// Messages emits only inbound/outbound message trace lines.
	Messages
	// Errors emits only error-level lines.
	Errors
	// All emits every category above.
	All
)

// Logger is the leveled logger handed to the connection core. It wraps
// log/slog and filters by category against the configured Level.
type Logger struct {
	level   Level
	slogger *slog.Logger
	file    *lumberjack.Logger
}

// New builds a Logger at the given level, writing to w. If w is nil, it
// writes to os.Stderr.
func New(level Level, w io.Writer) *Logger {
	if w == nil {
		w = os.Stderr
	}
	return &Logger{level: level, slogger: slog.New(slog.NewTextHandler(w, nil))}
}

// NewRotatingFile builds a Logger that writes to a size/age-rotated file,
// for long-running embedders that don't supply their own writer.
func NewRotatingFile(level Level, path string, maxSizeMB, maxBackups, maxAgeDays int) *Logger {
	lj := &lumberjack.Logger{
		Filename:   path,
		MaxSize:    maxSizeMB,
		MaxBackups: maxBackups,
		MaxAge:     maxAgeDays,
	}
	return &Logger{
		level:   level,
		slogger: slog.New(slog.NewJSONHandler(lj, nil)),
		file:    lj,
	}
}

// Close releases the rotating file handle, if any.
func (l *Logger) Close() error {
	if l.file == nil {
		return nil
	}
	return l.file.Close()
}

func (l *Logger) enabled(category Level) bool {
	return l.level == All || l.level == category
}

// StateChange logs a "[state change] from -> to" line when the
// StateChanges (or All) category is enabled.
func (l *Logger) StateChange(from, to string) {
	if !l.enabled(StateChanges) {
		return
	}
	l.slogger.Info("[state change] "+from+" -> "+to)
}

// Message logs a message-category trace line.
func (l *Logger) Message(msg string, args ...any) {
	if !l.enabled(Messages) {
		return
	}
	l.slogger.Info(msg, args...)
}

// Error logs an error-category trace line.
func (l *Logger) Error(msg string, args ...any) {
	if !l.enabled(Errors) {
		return
	}
	l.slogger.Error(msg, args...)
}

// Info logs an unconditional informational line (used for the lifecycle
// messages spec.md requires verbatim, e.g. "stopping connection").
func (l *Logger) Info(msg string, args ...any) {
	l.slogger.Info(msg, args...)
}
