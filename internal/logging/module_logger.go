package logging

import (
	"context"
	"strings"

	"github.com/goliatone/go-cms-replace/pkg/interfaces"
)

const (
	rootModule    = "replace"
	searchModule  = "replace.search"
	replaceModule = "replace.engine"
	jobsModule    = "replace.jobs"
	reportsModule = "replace.reports"
	storageModule = "replace.storage"
)

const (
	fieldOperation = "operation"
	fieldLangcode  = "langcode"
	fieldReportID  = "report_id"
)

// ModuleLogger returns a module-scoped logger, defaulting to a no-op
// implementation when no provider is supplied. The module identifier is
// attached as a structured field so entries can be filtered predictably.
func ModuleLogger(provider interfaces.LoggerProvider, module string) interfaces.Logger {
	if module == "" {
		module = rootModule
	}

	logger := NoOp()
	if provider != nil {
		if provided := provider.GetLogger(module); provided != nil {
			logger = provided
		}
	}

	return WithFields(logger, map[string]any{
		"module": module,
	})
}

// SearchLogger returns the logger namespace reserved for the search engine.
func SearchLogger(provider interfaces.LoggerProvider) interfaces.Logger {
	return ModuleLogger(provider, searchModule)
}

// ReplaceLogger returns the logger namespace reserved for the replace engine.
func ReplaceLogger(provider interfaces.LoggerProvider) interfaces.Logger {
	return ModuleLogger(provider, replaceModule)
}

// JobsLogger returns the logger namespace reserved for the batch coordinator.
func JobsLogger(provider interfaces.LoggerProvider) interfaces.Logger {
	return ModuleLogger(provider, jobsModule)
}

// ReportsLogger returns the logger namespace reserved for reports and undo.
func ReportsLogger(provider interfaces.LoggerProvider) interfaces.Logger {
	return ModuleLogger(provider, reportsModule)
}

// StorageLogger returns the logger namespace reserved for record stores.
func StorageLogger(provider interfaces.LoggerProvider) interfaces.Logger {
	return ModuleLogger(provider, storageModule)
}

// WithOperationContext enriches the logger with the operation name, language
// filter and report id. Empty values are ignored.
func WithOperationContext(logger interfaces.Logger, operation, langcode, reportID string) interfaces.Logger {
	fields := map[string]any{}
	if trimmed := strings.TrimSpace(operation); trimmed != "" {
		fields[fieldOperation] = trimmed
	}
	if trimmed := strings.TrimSpace(langcode); trimmed != "" {
		fields[fieldLangcode] = trimmed
	}
	if trimmed := strings.TrimSpace(reportID); trimmed != "" {
		fields[fieldReportID] = trimmed
	}
	return WithFields(logger, fields)
}

// NoOp returns a logger that drops every log entry.
func NoOp() interfaces.Logger {
	return noopLogger{}
}

type noopLogger struct{}

var _ interfaces.Logger = noopLogger{}

func (noopLogger) Trace(string, ...any) {}
func (noopLogger) Debug(string, ...any) {}
func (noopLogger) Info(string, ...any)  {}
func (noopLogger) Warn(string, ...any)  {}
func (noopLogger) Error(string, ...any) {}
func (noopLogger) Fatal(string, ...any) {}

func (n noopLogger) WithFields(map[string]any) interfaces.Logger {
	return n
}

func (n noopLogger) WithContext(context.Context) interfaces.Logger {
	return n
}
