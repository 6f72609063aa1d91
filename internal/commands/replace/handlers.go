package replacecmd

import (
	"context"

	"github.com/goliatone/go-cms-replace/internal/commands"
	"github.com/goliatone/go-cms-replace/internal/export"
	"github.com/goliatone/go-cms-replace/internal/logging"
	"github.com/goliatone/go-cms-replace/internal/reports"
	"github.com/goliatone/go-cms-replace/internal/search"
	"github.com/goliatone/go-cms-replace/pkg/interfaces"
	command "github.com/goliatone/go-command"
)

const (
	searchOperation  = "replace.search"
	replaceOperation = "replace.run"
	undoOperation    = "replace.undo"
	exportOperation  = "replace.export"
)

var (
	_ command.Commander[SearchCommand]  = (*SearchHandler)(nil)
	_ command.Commander[ReplaceCommand] = (*ReplaceHandler)(nil)
	_ command.Commander[UndoCommand]    = (*UndoHandler)(nil)
	_ command.Commander[ExportCommand]  = (*ExportHandler)(nil)
)

func scopeFields(s Scope) map[string]any {
	fields := map[string]any{"term": s.Term}
	if s.IsRegex {
		fields["is_regex"] = true
	}
	if s.CaseSensitive {
		fields["case_sensitive"] = true
	}
	if len(s.Kinds) > 0 {
		fields["kinds"] = s.Kinds
	}
	if len(s.Bundles) > 0 {
		fields["bundles"] = s.Bundles
	}
	if s.Langcode != "" {
		fields["langcode"] = s.Langcode
	}
	return fields
}

// SearchHandler runs searches through the search service.
type SearchHandler struct {
	inner *commands.Handler[SearchCommand]
}

// NewSearchHandler constructs a handler wired to the provided search service.
func NewSearchHandler(service search.Service, logger interfaces.Logger, opts ...commands.HandlerOption[SearchCommand]) *SearchHandler {
	baseLogger := commands.EnsureLogger(logger)
	exec := func(ctx context.Context, msg SearchCommand) error {
		result, err := service.Search(ctx, msg.request())
		if err != nil {
			return err
		}
		logging.WithFields(baseLogger, map[string]any{
			"total":         result.Total,
			"total_matches": result.TotalMatches,
			"warnings":      len(result.Warnings),
		}).Debug("replace.command.search.completed")
		if msg.OnResult != nil {
			msg.OnResult(result)
		}
		return nil
	}

	handlerOpts := []commands.HandlerOption[SearchCommand]{
		commands.WithLogger[SearchCommand](baseLogger),
		commands.WithOperation[SearchCommand](searchOperation),
		commands.WithMessageFields(func(msg SearchCommand) map[string]any {
			return scopeFields(msg.Scope)
		}),
	}
	handlerOpts = append(handlerOpts, opts...)
	return &SearchHandler{inner: commands.NewHandler(exec, handlerOpts...)}
}

// Execute satisfies command.Commander[SearchCommand].
func (h *SearchHandler) Execute(ctx context.Context, msg SearchCommand) error {
	return h.inner.Execute(ctx, msg)
}

// ReplaceHandler runs replacements through the report service so committed
// runs are recorded.
type ReplaceHandler struct {
	inner *commands.Handler[ReplaceCommand]
}

// NewReplaceHandler constructs a handler wired to the report service.
func NewReplaceHandler(service reports.Service, logger interfaces.Logger, opts ...commands.HandlerOption[ReplaceCommand]) *ReplaceHandler {
	baseLogger := commands.EnsureLogger(logger)
	exec := func(ctx context.Context, msg ReplaceCommand) error {
		outcome, err := service.Replace(ctx, msg.request())
		if err != nil {
			return err
		}
		replaced, affected, errs := outcome.Summary()
		fields := map[string]any{
			"replaced": replaced,
			"affected": affected,
			"errors":   errs,
			"dry_run":  msg.DryRun,
		}
		if outcome.Report != nil {
			fields["report_id"] = outcome.Report.ID
		}
		logging.WithFields(baseLogger, fields).Info("replace.command.run.completed")
		if msg.OnOutcome != nil {
			msg.OnOutcome(outcome)
		}
		return nil
	}

	handlerOpts := []commands.HandlerOption[ReplaceCommand]{
		commands.WithLogger[ReplaceCommand](baseLogger),
		commands.WithOperation[ReplaceCommand](replaceOperation),
		commands.WithMessageFields(func(msg ReplaceCommand) map[string]any {
			fields := scopeFields(msg.Scope)
			fields["all"] = msg.All
			if len(msg.Selection) > 0 {
				fields["selected"] = len(msg.Selection)
			}
			if msg.DryRun {
				fields["dry_run"] = true
			}
			return fields
		}),
	}
	handlerOpts = append(handlerOpts, opts...)
	return &ReplaceHandler{inner: commands.NewHandler(exec, handlerOpts...)}
}

// Execute satisfies command.Commander[ReplaceCommand].
func (h *ReplaceHandler) Execute(ctx context.Context, msg ReplaceCommand) error {
	return h.inner.Execute(ctx, msg)
}

// UndoHandler reverts reports.
type UndoHandler struct {
	inner *commands.Handler[UndoCommand]
}

// NewUndoHandler constructs a handler wired to the report service.
func NewUndoHandler(service reports.Service, logger interfaces.Logger, opts ...commands.HandlerOption[UndoCommand]) *UndoHandler {
	baseLogger := commands.EnsureLogger(logger)
	exec := func(ctx context.Context, msg UndoCommand) error {
		outcome, err := service.Undo(ctx, reports.UndoRequest{ReportID: msg.ReportID, ActorID: msg.ActorID})
		if err != nil {
			return err
		}
		replaced, affected, _ := outcome.Summary()
		logging.WithFields(baseLogger, map[string]any{
			"replaced": replaced,
			"affected": affected,
			"skipped":  len(outcome.Skipped),
		}).Info("replace.command.undo.completed")
		if msg.OnOutcome != nil {
			msg.OnOutcome(outcome)
		}
		return nil
	}

	handlerOpts := []commands.HandlerOption[UndoCommand]{
		commands.WithLogger[UndoCommand](baseLogger),
		commands.WithOperation[UndoCommand](undoOperation),
		commands.WithMessageFields(func(msg UndoCommand) map[string]any {
			return map[string]any{"report_id": msg.ReportID}
		}),
	}
	handlerOpts = append(handlerOpts, opts...)
	return &UndoHandler{inner: commands.NewHandler(exec, handlerOpts...)}
}

// Execute satisfies command.Commander[UndoCommand].
func (h *UndoHandler) Execute(ctx context.Context, msg UndoCommand) error {
	return h.inner.Execute(ctx, msg)
}

// ExportHandler searches without paging and writes the items as CSV.
type ExportHandler struct {
	inner *commands.Handler[ExportCommand]
}

// NewExportHandler constructs a handler wired to the search service and CSV writer.
func NewExportHandler(service search.Service, writer *export.Writer, logger interfaces.Logger, opts ...commands.HandlerOption[ExportCommand]) *ExportHandler {
	baseLogger := commands.EnsureLogger(logger)
	if writer == nil {
		writer = export.NewWriter(export.WithLogger(baseLogger))
	}
	exec := func(ctx context.Context, msg ExportCommand) error {
		req := SearchCommand{Scope: msg.Scope, Unpaged: true}.request()
		result, err := service.Search(ctx, req)
		if err != nil {
			return err
		}
		return writer.WriteCSV(msg.Output, result.Items, export.Options{
			URLGroup: msg.URLGroup,
			BaseURL:  msg.BaseURL,
		})
	}

	handlerOpts := []commands.HandlerOption[ExportCommand]{
		commands.WithLogger[ExportCommand](baseLogger),
		commands.WithOperation[ExportCommand](exportOperation),
		commands.WithMessageFields(func(msg ExportCommand) map[string]any {
			return scopeFields(msg.Scope)
		}),
	}
	handlerOpts = append(handlerOpts, opts...)
	return &ExportHandler{inner: commands.NewHandler(exec, handlerOpts...)}
}

// Execute satisfies command.Commander[ExportCommand].
func (h *ExportHandler) Execute(ctx context.Context, msg ExportCommand) error {
	return h.inner.Execute(ctx, msg)
}
