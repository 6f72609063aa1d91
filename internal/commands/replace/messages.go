package replacecmd

import (
	"io"

	validation "github.com/go-ozzo/ozzo-validation/v4"
	"github.com/goliatone/go-cms-replace/content"
	"github.com/goliatone/go-cms-replace/internal/replace"
	"github.com/goliatone/go-cms-replace/internal/reports"
	"github.com/goliatone/go-cms-replace/internal/search"
	"github.com/google/uuid"
)

const (
	searchMessageType  = "replace.search"
	replaceMessageType = "replace.run"
	undoMessageType    = "replace.undo"
	exportMessageType  = "replace.export"
)

// Scope is the record filter shared by every message.
type Scope struct {
	Term          string   `json:"term"`
	IsRegex       bool     `json:"is_regex,omitempty"`
	CaseSensitive bool     `json:"case_sensitive,omitempty"`
	Kinds         []string `json:"kinds,omitempty"`
	Bundles       []string `json:"bundles,omitempty"`
	Langcode      string   `json:"langcode,omitempty"`
}

func (s Scope) kinds() []content.Kind {
	if len(s.Kinds) == 0 {
		return nil
	}
	out := make([]content.Kind, 0, len(s.Kinds))
	for _, kind := range s.Kinds {
		if parsed := content.ParseKind(kind); parsed != "" {
			out = append(out, parsed)
		}
	}
	return out
}

func (s Scope) validate(prefix string, errs validation.Errors) {
	if s.Term == "" {
		errs["term"] = validation.NewError(prefix+".term_required", "term is required")
	}
	for _, kind := range s.Kinds {
		if content.ParseKind(kind) == "" {
			errs["kinds"] = validation.NewError(prefix+".kind_invalid", "kinds must not contain blank entries")
			break
		}
	}
}

// SearchCommand lists the fields matching a term.
type SearchCommand struct {
	Scope
	Page     int  `json:"page,omitempty"`
	PageSize int  `json:"page_size,omitempty"`
	Unpaged  bool `json:"unpaged,omitempty"`

	// OnResult receives the page produced by the handler.
	OnResult func(*search.Result) `json:"-"`
}

// Type implements command.Message.
func (SearchCommand) Type() string { return searchMessageType }

// Validate ensures the message carries the required fields before reaching handlers.
func (m SearchCommand) Validate() error {
	errs := validation.Errors{}
	m.Scope.validate(searchMessageType, errs)
	if m.Page < 0 {
		errs["page"] = validation.NewError(searchMessageType+".page_invalid", "page must not be negative")
	}
	if m.PageSize < 0 {
		errs["page_size"] = validation.NewError(searchMessageType+".page_size_invalid", "page_size must not be negative")
	}
	if len(errs) > 0 {
		return errs
	}
	return nil
}

func (m SearchCommand) request() search.Request {
	return search.Request{
		Term:          m.Term,
		IsRegex:       m.IsRegex,
		CaseSensitive: m.CaseSensitive,
		Kinds:         m.kinds(),
		Bundles:       m.Bundles,
		Langcode:      m.Langcode,
		Page:          m.Page,
		PageSize:      m.PageSize,
		Unpaged:       m.Unpaged,
	}
}

// ReplaceCommand runs a replacement over every match (All) or over the
// selected fields only.
type ReplaceCommand struct {
	Scope
	Replacement string    `json:"replacement"`
	DryRun      bool      `json:"dry_run,omitempty"`
	All         bool      `json:"all,omitempty"`
	Selection   []string  `json:"selection,omitempty"`
	ActorID     uuid.UUID `json:"actor_id,omitempty"`

	// OnOutcome receives the run summary.
	OnOutcome func(*reports.Outcome) `json:"-"`
}

// Type implements command.Message.
func (ReplaceCommand) Type() string { return replaceMessageType }

// Validate ensures the message carries the required fields before reaching handlers.
func (m ReplaceCommand) Validate() error {
	errs := validation.Errors{}
	m.Scope.validate(replaceMessageType, errs)
	if m.All && len(m.Selection) > 0 {
		errs["selection"] = validation.NewError(replaceMessageType+".selection_conflict", "selection cannot be combined with all")
	}
	if !m.All && len(m.Selection) == 0 {
		errs["selection"] = validation.NewError(replaceMessageType+".selection_required", "select at least one field or set all")
	}
	for _, key := range m.Selection {
		if _, err := content.ParseSelectionKey(key); err != nil {
			errs["selection"] = validation.NewError(replaceMessageType+".selection_malformed", "selection key "+key+" is malformed")
			break
		}
	}
	if len(errs) > 0 {
		return errs
	}
	return nil
}

func (m ReplaceCommand) request() reports.ReplaceRequest {
	req := reports.ReplaceRequest{ActorID: m.ActorID}
	req.Term = m.Term
	req.Replacement = m.Replacement
	req.IsRegex = m.IsRegex
	req.CaseSensitive = m.CaseSensitive
	req.Kinds = m.kinds()
	req.Bundles = m.Bundles
	req.Langcode = m.Langcode
	req.DryRun = m.DryRun
	if m.All {
		req.Mode = replace.ModeAll
	} else {
		req.Mode = replace.ModeSelected
		req.Selection = content.NewSelection(m.Selection...)
	}
	return req
}

// UndoCommand reverts a committed report.
type UndoCommand struct {
	ReportID uuid.UUID `json:"report_id"`
	ActorID  uuid.UUID `json:"actor_id,omitempty"`

	OnOutcome func(*reports.Outcome) `json:"-"`
}

// Type implements command.Message.
func (UndoCommand) Type() string { return undoMessageType }

// Validate ensures the message carries the required fields before reaching handlers.
func (m UndoCommand) Validate() error {
	if m.ReportID == uuid.Nil {
		return validation.Errors{
			"report_id": validation.NewError(undoMessageType+".report_id_required", "report_id is required"),
		}
	}
	return nil
}

// ExportCommand writes every matching field as CSV to Output.
type ExportCommand struct {
	Scope
	URLGroup string `json:"url_group,omitempty"`
	BaseURL  string `json:"base_url,omitempty"`

	Output io.Writer `json:"-"`
}

// Type implements command.Message.
func (ExportCommand) Type() string { return exportMessageType }

// Validate ensures the message carries the required fields before reaching handlers.
func (m ExportCommand) Validate() error {
	errs := validation.Errors{}
	m.Scope.validate(exportMessageType, errs)
	if m.Output == nil {
		errs["output"] = validation.NewError(exportMessageType+".output_required", "output is required")
	}
	if len(errs) > 0 {
		return errs
	}
	return nil
}
