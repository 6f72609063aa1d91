package commands

import (
	"context"
	"time"

	"github.com/goliatone/go-cms-replace/internal/logging"
	"github.com/goliatone/go-cms-replace/pkg/interfaces"
)

// DefaultCommandTimeout bounds a single command. Large replace runs should
// raise it through WithTimeout.
const DefaultCommandTimeout = 5 * time.Minute

// EnsureContext returns ctx, or context.Background when ctx is nil.
func EnsureContext(ctx context.Context) context.Context {
	if ctx == nil {
		return context.Background()
	}
	return ctx
}

// WithCommandTimeout applies timeout unless it is zero or negative.
func WithCommandTimeout(ctx context.Context, timeout time.Duration) (context.Context, context.CancelFunc) {
	if timeout <= 0 {
		return ctx, func() {}
	}
	return context.WithTimeout(ctx, timeout)
}

// EnsureLogger returns logger, or a no-op logger when nil.
func EnsureLogger(logger interfaces.Logger) interfaces.Logger {
	if logger == nil {
		return logging.NoOp()
	}
	return logger
}
