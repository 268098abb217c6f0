package signalr

import "github.com/signalrgo/client/internal/tracelog"

// Logger is the logging contract the connection core writes through. The
// default implementation (internal/tracelog) filters by TraceLevel; tests
// substitute a recorder to assert on exact log lines.
type Logger interface {
	StateChange(from, to string)
	Info(msg string, args ...any)
	Message(msg string, args ...any)
	Error(msg string, args ...any)
}

// NewRotatingFileLogger builds a Logger that writes to a size/age-rotated
// file via lumberjack instead of a plain io.Writer, for long-running
// embedders that don't want to manage log rotation themselves. Pass it to
// New via WithLogger. Call Close when done with it.
func NewRotatingFileLogger(level TraceLevel, path string, maxSizeMB, maxBackups, maxAgeDays int) *tracelog.Logger {
	return tracelog.NewRotatingFile(level, path, maxSizeMB, maxBackups, maxAgeDays)
}
