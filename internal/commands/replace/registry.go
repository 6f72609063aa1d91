package replacecmd

import (
	"errors"

	"github.com/goliatone/go-cms-replace/internal/commands"
	"github.com/goliatone/go-cms-replace/internal/export"
	"github.com/goliatone/go-cms-replace/internal/reports"
	"github.com/goliatone/go-cms-replace/internal/search"
	"github.com/goliatone/go-cms-replace/pkg/interfaces"
	"github.com/goliatone/go-command/dispatcher"
	"github.com/goliatone/go-command/runner"
)

var (
	ErrSearchServiceRequired = errors.New("replace command registration: search service is nil")
	ErrReportServiceRequired = errors.New("replace command registration: report service is nil")
)

// CommandRegistry is the minimal registration contract expected when wiring command handlers.
type CommandRegistry interface {
	RegisterCommand(handler any) error
}

// CommandSubscription allows hosts to tear down dispatcher subscriptions.
type CommandSubscription interface {
	Unsubscribe()
}

// Services are the collaborators the handlers run against.
type Services struct {
	Search   search.Service
	Reports  reports.Service
	Exporter *export.Writer
}

// HandlerSet groups the handlers produced by RegisterReplaceCommands.
type HandlerSet struct {
	Search  *SearchHandler
	Replace *ReplaceHandler
	Undo    *UndoHandler
	Export  *ExportHandler
}

// Option customises handler wiring during registration.
type Option func(*options)

type options struct {
	searchOpts  []commands.HandlerOption[SearchCommand]
	replaceOpts []commands.HandlerOption[ReplaceCommand]
	undoOpts    []commands.HandlerOption[UndoCommand]
	exportOpts  []commands.HandlerOption[ExportCommand]
}

// WithSearchHandlerOptions forwards options to the SearchHandler constructor.
func WithSearchHandlerOptions(opts ...commands.HandlerOption[SearchCommand]) Option {
	return func(cfg *options) {
		cfg.searchOpts = append(cfg.searchOpts, opts...)
	}
}

// WithReplaceHandlerOptions forwards options to the ReplaceHandler constructor.
func WithReplaceHandlerOptions(opts ...commands.HandlerOption[ReplaceCommand]) Option {
	return func(cfg *options) {
		cfg.replaceOpts = append(cfg.replaceOpts, opts...)
	}
}

// WithUndoHandlerOptions forwards options to the UndoHandler constructor.
func WithUndoHandlerOptions(opts ...commands.HandlerOption[UndoCommand]) Option {
	return func(cfg *options) {
		cfg.undoOpts = append(cfg.undoOpts, opts...)
	}
}

// WithExportHandlerOptions forwards options to the ExportHandler constructor.
func WithExportHandlerOptions(opts ...commands.HandlerOption[ExportCommand]) Option {
	return func(cfg *options) {
		cfg.exportOpts = append(cfg.exportOpts, opts...)
	}
}

// RegisterReplaceCommands builds the handlers and registers them with reg
// when it is not nil.
func RegisterReplaceCommands(reg CommandRegistry, services Services, provider interfaces.LoggerProvider, opts ...Option) (*HandlerSet, error) {
	if services.Search == nil {
		return nil, ErrSearchServiceRequired
	}
	if services.Reports == nil {
		return nil, ErrReportServiceRequired
	}

	cfg := options{}
	for _, opt := range opts {
		if opt != nil {
			opt(&cfg)
		}
	}

	set := &HandlerSet{
		Search:  NewSearchHandler(services.Search, commands.CommandLogger(provider, "search"), cfg.searchOpts...),
		Replace: NewReplaceHandler(services.Reports, commands.CommandLogger(provider, "run"), cfg.replaceOpts...),
		Undo:    NewUndoHandler(services.Reports, commands.CommandLogger(provider, "undo"), cfg.undoOpts...),
		Export:  NewExportHandler(services.Search, services.Exporter, commands.CommandLogger(provider, "export"), cfg.exportOpts...),
	}

	if reg != nil {
		var errs error
		for _, handler := range set.all() {
			errs = errors.Join(errs, reg.RegisterCommand(handler))
		}
		if errs != nil {
			return nil, errs
		}
	}
	return set, nil
}

func (s *HandlerSet) all() []any {
	return []any{s.Search, s.Replace, s.Undo, s.Export}
}

// Subscribe attaches every handler to the go-command dispatcher so messages
// can be sent with dispatcher.Dispatch. Handlers run once: a failed replace
// or undo is never retried.
func (s *HandlerSet) Subscribe() []CommandSubscription {
	if s == nil {
		return nil
	}
	once := runner.WithMaxRetries(0)
	return []CommandSubscription{
		dispatcher.SubscribeCommand(s.Search, once),
		dispatcher.SubscribeCommand(s.Replace, once),
		dispatcher.SubscribeCommand(s.Undo, once),
		dispatcher.SubscribeCommand(s.Export, once),
	}
}

// Unsubscribe tears down subscriptions returned by Subscribe.
func Unsubscribe(subs []CommandSubscription) {
	for _, sub := range subs {
		if sub != nil {
			sub.Unsubscribe()
		}
	}
}
