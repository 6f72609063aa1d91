package interfaces

import "context"

// Logger is the leveled logger handed to the matcher, walker, engines and
// command handlers. The method set matches github.com/goliatone/go-logger.
type Logger interface {
	Trace(msg string, args ...any)
	Debug(msg string, args ...any)
	Info(msg string, args ...any)
	Warn(msg string, args ...any)
	Error(msg string, args ...any)
	Fatal(msg string, args ...any)
	WithContext(ctx context.Context) Logger
}

// LoggerProvider hands out loggers by module name, e.g. "replace.search".
type LoggerProvider interface {
	GetLogger(name string) Logger
}

// FieldsLogger is implemented by loggers that can bind fields to every
// entry. See logging.WithFields.
type FieldsLogger interface {
	WithFields(fields map[string]any) Logger
}
