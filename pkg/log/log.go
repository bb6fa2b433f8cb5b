// Package log defines the structured logging seam used across the SDK.
//
// The SDK never configures process-wide logging on its own. Components accept
// a Logger as an optional collaborator and default to a NoopLogger, so
// embedding applications stay in control of log routing and verbosity.
package log

// Logger is a leveled, structured logger.
// keysAndValues are treated as alternating key-value pairs
// (e.g. "channel", name, "attempt", n).
type Logger interface {
	// Debug logs low-level detail useful during development.
	Debug(msg string, keysAndValues ...any)
	// Info logs routine progress and state changes.
	Info(msg string, keysAndValues ...any)
	// Warn logs unexpected situations the SDK can recover from.
	Warn(msg string, keysAndValues ...any)
	// Error logs failures that prevent an operation from completing.
	Error(msg string, keysAndValues ...any)
	// Fatal logs an unrecoverable failure and may terminate the program.
	Fatal(msg string, keysAndValues ...any)
	// WithKV returns a logger with an extra key-value pair attached to all
	// future log entries.
	WithKV(key string, value any) Logger
	// WithName returns a logger named after a component (e.g. "stream").
	// Names nest with dots when applied repeatedly.
	WithName(name string) Logger
	// Name returns the logger's current name.
	Name() string
}

// Level represents the severity threshold for log output.
type Level string

const (
	LevelDebug Level = "debug"
	LevelInfo  Level = "info"
	LevelWarn  Level = "warn"
	LevelError Level = "error"
	LevelFatal Level = "fatal"
)
