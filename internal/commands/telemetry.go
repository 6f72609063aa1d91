package commands

import (
	"context"
	"time"

	"github.com/goliatone/go-cms-replace/internal/logging"
	"github.com/goliatone/go-cms-replace/pkg/interfaces"
	command "github.com/goliatone/go-command"
)

// TelemetryStatus classifies how a command run ended.
type TelemetryStatus string

const (
	TelemetryStatusSuccess      TelemetryStatus = "success"
	TelemetryStatusFailed       TelemetryStatus = "failed"
	TelemetryStatusContextError TelemetryStatus = "context_error"
)

// TelemetryInfo is handed to telemetry after every run. TextCode is the
// go-errors text code the caller receives, empty on success.
type TelemetryInfo struct {
	Command   string
	Operation string
	Fields    map[string]any
	Duration  time.Duration
	Error     error
	TextCode  string
	Status    TelemetryStatus
	Logger    interfaces.Logger
}

// Telemetry observes finished command runs.
type Telemetry[T command.Message] func(ctx context.Context, msg T, info TelemetryInfo)

// DefaultTelemetry writes one log entry per run.
func DefaultTelemetry[T command.Message](logger interfaces.Logger) Telemetry[T] {
	if logger == nil {
		logger = logging.NoOp()
	}
	return func(ctx context.Context, _ T, info TelemetryInfo) {
		entry := logging.WithFields(logger, info.Fields).WithContext(ctx)
		args := []any{"duration_ms", info.Duration.Milliseconds()}
		if info.TextCode != "" {
			args = append(args, "text_code", info.TextCode)
		}
		if info.Status == TelemetryStatusSuccess {
			entry.Info("command.execute.success", args...)
			return
		}
		entry.Error("command.execute."+string(info.Status), append(args, "error", info.Error)...)
	}
}
