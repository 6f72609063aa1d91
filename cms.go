package cmsreplace

import (
	"context"
	"fmt"
	"io"
	"io/fs"

	"github.com/goliatone/go-cms-replace/content"
	replacecmd "github.com/goliatone/go-cms-replace/internal/commands/replace"
	"github.com/goliatone/go-cms-replace/internal/di"
	"github.com/goliatone/go-cms-replace/internal/export"
	"github.com/goliatone/go-cms-replace/internal/fixtures"
	"github.com/goliatone/go-cms-replace/internal/matcher"
	"github.com/goliatone/go-cms-replace/internal/replace"
	"github.com/goliatone/go-cms-replace/internal/reports"
	"github.com/goliatone/go-cms-replace/internal/search"
	"github.com/google/uuid"
)

var (
	ErrInvalidPattern   = matcher.ErrInvalidPattern
	ErrDangerousPattern = matcher.ErrDangerousPattern
	ErrNoSelection      = replace.ErrNoSelection
	ErrReportNotFound   = reports.ErrReportNotFound
	ErrAlreadyUndone    = reports.ErrAlreadyUndone
	ErrUndoIrreversible = reports.ErrUndoIrreversible
)

type (
	SearchRequest  = search.Request
	SearchResult   = search.Result
	SearchItem     = search.Item
	ReplaceRequest = reports.ReplaceRequest
	UndoRequest    = reports.UndoRequest
	Outcome        = reports.Outcome
	Report         = reports.Report
	ReportStatus   = reports.Status
	ListOptions    = reports.ListOptions
	ExportOptions  = export.Options
	// CommandHandlers are the go-command handlers backing the module.
	CommandHandlers = replacecmd.HandlerSet
)

// Module is the top level search and replace runtime.
type Module struct {
	container *di.Container
	commands  *replacecmd.HandlerSet
}

// New constructs a module from cfg and optional container overrides.
func New(cfg Config, opts ...di.Option) (*Module, error) {
	container, err := di.NewContainer(cfg, opts...)
	if err != nil {
		return nil, err
	}
	handlers, err := replacecmd.RegisterReplaceCommands(nil, replacecmd.Services{
		Search:   container.SearchService(),
		Reports:  container.ReportService(),
		Exporter: container.Exporter(),
	}, container.LoggerProvider())
	if err != nil {
		_ = container.Close()
		return nil, err
	}
	return &Module{container: container, commands: handlers}, nil
}

// Container exposes the underlying DI container for advanced integrations.
func (m *Module) Container() *di.Container {
	return m.container
}

// Commands returns the command handlers, for hosts that dispatch messages.
func (m *Module) Commands() *CommandHandlers {
	return m.commands
}

// Close releases storage owned by the module.
func (m *Module) Close() error {
	return m.container.Close()
}

// Search lists matching fields.
func (m *Module) Search(ctx context.Context, req SearchRequest) (*SearchResult, error) {
	return m.container.SearchService().Search(ctx, req)
}

// Replace runs a replacement and records a report unless DryRun is set.
func (m *Module) Replace(ctx context.Context, req ReplaceRequest) (*Outcome, error) {
	return m.container.ReportService().Replace(ctx, req)
}

// Undo reverts a committed report.
func (m *Module) Undo(ctx context.Context, req UndoRequest) (*Outcome, error) {
	return m.container.ReportService().Undo(ctx, req)
}

// Report returns one report.
func (m *Module) Report(ctx context.Context, id uuid.UUID) (*Report, error) {
	return m.container.ReportService().Get(ctx, id)
}

// Reports lists reports newest first with the total count.
func (m *Module) Reports(ctx context.Context, opts ListOptions) ([]*Report, int, error) {
	return m.container.ReportService().List(ctx, opts)
}

// ReportStatus reports whether a report was undone.
func (m *Module) ReportStatus(ctx context.Context, id uuid.UUID) (ReportStatus, error) {
	return m.container.ReportService().Status(ctx, id)
}

// Export writes every item matching req as CSV. Paging fields of req are
// ignored.
func (m *Module) Export(ctx context.Context, out io.Writer, req SearchRequest, opts ExportOptions) error {
	req.Unpaged = true
	result, err := m.Search(ctx, req)
	if err != nil {
		return err
	}
	return m.container.Exporter().WriteCSV(out, result.Items, opts)
}

// Seed loads markdown fixture documents under dir and saves them into the
// record store. It returns the number of records saved.
func (m *Module) Seed(ctx context.Context, fsys fs.FS, dir string) (int, error) {
	loader := fixtures.NewLoader(fsys, fixtures.LoaderConfig{
		DefaultLocale: m.container.Config.DefaultLocale,
		Recursive:     true,
		Logger:        m.container.Logger("replace.fixtures"),
	})
	records, err := loader.LoadDirectory(ctx, dir)
	if err != nil {
		return 0, err
	}
	return m.SaveRecords(ctx, records...)
}

// SaveRecords persists records through the configured store.
func (m *Module) SaveRecords(ctx context.Context, records ...*content.Record) (int, error) {
	store := m.container.RecordStore()
	for i, rec := range records {
		if err := store.Save(ctx, rec); err != nil {
			return i, fmt.Errorf("save %s: %w", rec.Ref(), err)
		}
	}
	return len(records), nil
}
