package log

var _ Logger = NoopLogger{}

// NoopLogger discards all log messages. It is the default collaborator for
// SDK components when the caller does not supply a logger.
type NoopLogger struct{}

// NewNoopLogger creates a NoopLogger.
func NewNoopLogger() Logger {
	return NoopLogger{}
}

func (n NoopLogger) Debug(msg string, keysAndValues ...any) {}
func (n NoopLogger) Info(msg string, keysAndValues ...any)  {}
func (n NoopLogger) Warn(msg string, keysAndValues ...any)  {}
func (n NoopLogger) Error(msg string, keysAndValues ...any) {}
func (n NoopLogger) Fatal(msg string, keysAndValues ...any) {}

func (n NoopLogger) WithKV(key string, value any) Logger { return n }
func (n NoopLogger) WithName(name string) Logger         { return n }
func (n NoopLogger) Name() string                        { return "noop" }
