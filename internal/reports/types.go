package reports

import (
	"context"
	"errors"
	"time"

	"github.com/goliatone/go-cms-replace/content"
	"github.com/goliatone/go-cms-replace/internal/replace"
	"github.com/google/uuid"
)

// DetailsSchemaVersion is the version written into new report details.
const DetailsSchemaVersion = 2

var (
	ErrReportNotFound = errors.New("reports: report not found")
	// ErrAlreadyUndone is returned when a report was reverted before.
	ErrAlreadyUndone = errors.New("reports: report already undone")
	// ErrUndoIrreversible is returned for reports whose replacement cannot be
	// inverted: regex runs and deletions.
	ErrUndoIrreversible = errors.New("reports: report cannot be undone")
	ErrStoreRequired    = errors.New("reports: report store required")
	ErrDetailsInvalid   = errors.New("reports: details invalid")
)

// Status is the lifecycle state of a report.
type Status string

const (
	StatusActive Status = "active"
	StatusUndone Status = "undone"
)

// Report is the audit record of one committed replace or undo run.
type Report struct {
	ID            uuid.UUID  `json:"id"`
	ActorID       uuid.UUID  `json:"actor_id"`
	CreatedAt     time.Time  `json:"created_at"`
	SearchTerm    string     `json:"search_term"`
	ReplaceTerm   string     `json:"replace_term"`
	IsRegex       bool       `json:"is_regex"`
	CaseSensitive bool       `json:"case_sensitive"`
	Langcode      string     `json:"langcode,omitempty"`
	Replaced      int        `json:"replaced"`
	Affected      int        `json:"affected"`
	Errors        int        `json:"errors"`
	Details       Details    `json:"details"`
	UndoneFrom    *uuid.UUID `json:"undone_from,omitempty"`
	UndoneAt      *time.Time `json:"undone_at,omitempty"`
	UndoneBy      *uuid.UUID `json:"undone_by,omitempty"`
}

// Status reports whether the report was reverted.
func (r *Report) Status() Status {
	if r != nil && r.UndoneAt != nil {
		return StatusUndone
	}
	return StatusActive
}

// UndoSelection rebuilds the selection keys of the fields rewritten for the
// records in refs. It reports false when the details predate field
// tracking.
func (r *Report) UndoSelection(refs []content.RecordRef) (content.Selection, bool) {
	if r == nil || r.Details.SchemaVersion < DetailsSchemaVersion {
		return nil, false
	}
	wanted := make(map[content.RecordRef]bool, len(refs))
	for _, ref := range refs {
		wanted[ref] = true
	}
	sel := content.Selection{}
	for _, rec := range r.Details.Records {
		if len(rec.Fields) == 0 {
			return nil, false
		}
		if !wanted[content.RecordRef{Kind: content.Kind(rec.Kind), ID: rec.RecordID}] {
			continue
		}
		for _, key := range rec.SelectionKeys() {
			sel[key] = true
		}
	}
	return sel, true
}

// AffectedRefs lists the distinct records recorded in the details.
func (r *Report) AffectedRefs() []content.RecordRef {
	if r == nil {
		return nil
	}
	seen := map[content.RecordRef]struct{}{}
	var out []content.RecordRef
	for _, rec := range r.Details.Records {
		ref := content.RecordRef{Kind: content.Kind(rec.Kind), ID: rec.RecordID}
		if _, ok := seen[ref]; ok {
			continue
		}
		seen[ref] = struct{}{}
		out = append(out, ref)
	}
	return out
}

// Details is the versioned body of a report.
type Details struct {
	SchemaVersion int             `json:"schema_version"`
	Mode          string          `json:"mode"`
	Kinds         []string        `json:"kinds,omitempty"`
	Bundles       []string        `json:"bundles,omitempty"`
	Records       []DetailRecord  `json:"records"`
	Failures      []DetailFailure `json:"failures,omitempty"`
	UndoneFrom    string          `json:"undone_from,omitempty"`
}

// DetailRecord is the tally of one affected record translation.
type DetailRecord struct {
	RecordID uuid.UUID `json:"record_id"`
	Kind     string    `json:"kind"`
	Title    string    `json:"title"`
	Bundle   string    `json:"bundle"`
	Langcode string    `json:"langcode"`
	Count    int       `json:"count"`
	// Fields are the walker keys rewritten in this translation.
	Fields []string `json:"fields"`
}

// SelectionKeys returns the selection keys of the rewritten fields.
func (d DetailRecord) SelectionKeys() []string {
	keys := make([]string, 0, len(d.Fields))
	for _, field := range d.Fields {
		keys = append(keys, content.SelectionKey(content.Kind(d.Kind), d.RecordID, field, d.Langcode))
	}
	return keys
}

// DetailFailure is a record that could not be processed.
type DetailFailure struct {
	RecordID string `json:"record_id,omitempty"`
	Kind     string `json:"kind,omitempty"`
	Stage    string `json:"stage"`
	Message  string `json:"message"`
}

// ListOptions pages report listings. A zero Limit returns every report.
type ListOptions struct {
	Limit  int
	Offset int
}

// Store is the report store collaborator.
type Store interface {
	Insert(ctx context.Context, report *Report) (*Report, error)
	// Find returns ErrReportNotFound when id is unknown.
	Find(ctx context.Context, id uuid.UUID) (*Report, error)
	// FindByUndoneFrom returns the undo report created for id, or
	// ErrReportNotFound when the report was never undone.
	FindByUndoneFrom(ctx context.Context, id uuid.UUID) (*Report, error)
	MarkUndone(ctx context.Context, id uuid.UUID, at time.Time, by uuid.UUID) error
	// List returns reports newest first with the total count.
	List(ctx context.Context, opts ListOptions) ([]*Report, int, error)
}

func buildDetails(mode replace.Mode, req replace.Request, result *replace.Result) Details {
	details := Details{
		SchemaVersion: DetailsSchemaVersion,
		Mode:          string(mode),
		Bundles:       append([]string(nil), req.Bundles...),
		Records:       []DetailRecord{},
	}
	for _, kind := range req.Kinds {
		details.Kinds = append(details.Kinds, string(kind))
	}
	for _, entry := range result.Entries {
		details.Records = append(details.Records, DetailRecord{
			RecordID: entry.Record.ID,
			Kind:     string(entry.Record.Kind),
			Title:    entry.Title,
			Bundle:   entry.Bundle,
			Langcode: entry.Langcode,
			Count:    entry.Count,
			Fields:   append([]string(nil), entry.Fields...),
		})
	}
	for _, failure := range result.Failures {
		df := DetailFailure{Stage: failure.Stage, Message: failure.Message, Kind: string(failure.Record.Kind)}
		if failure.Record.ID != uuid.Nil {
			df.RecordID = failure.Record.ID.String()
		}
		details.Failures = append(details.Failures, df)
	}
	return details
}

func cloneReport(r *Report) *Report {
	if r == nil {
		return nil
	}
	out := *r
	out.Details.Kinds = append([]string(nil), r.Details.Kinds...)
	out.Details.Bundles = append([]string(nil), r.Details.Bundles...)
	out.Details.Records = make([]DetailRecord, len(r.Details.Records))
	for i, rec := range r.Details.Records {
		rec.Fields = append([]string(nil), rec.Fields...)
		out.Details.Records[i] = rec
	}
	out.Details.Failures = append([]DetailFailure(nil), r.Details.Failures...)
	if r.UndoneFrom != nil {
		v := *r.UndoneFrom
		out.UndoneFrom = &v
	}
	if r.UndoneAt != nil {
		v := *r.UndoneAt
		out.UndoneAt = &v
	}
	if r.UndoneBy != nil {
		v := *r.UndoneBy
		out.UndoneBy = &v
	}
	return &out
}
