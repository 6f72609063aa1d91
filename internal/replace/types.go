package replace

import (
	"errors"
	"fmt"

	"github.com/goliatone/go-cms-replace/content"
	"github.com/goliatone/go-cms-replace/internal/search"
	"github.com/google/uuid"
)

var (
	// ErrNoSelection is returned when selective mode is requested without any
	// selected key.
	ErrNoSelection   = errors.New("replace: selective replace requires at least one selected field")
	ErrStoreRequired = errors.New("replace: record store required")
	ErrModeUnknown   = errors.New("replace: unknown mode")
)

// Mode picks which matching fields are eligible.
type Mode string

const (
	// ModeAll replaces every match in the filtered record set.
	ModeAll Mode = "all"
	// ModeSelected only touches fields whose selection key is selected.
	ModeSelected Mode = "selected"
)

// Failure stages.
const (
	StageLoad = "load"
	StageWalk = "walk"
	StageSave = "save"
)

// Request describes one replacement run.
type Request struct {
	Term          string
	Replacement   string
	IsRegex       bool
	CaseSensitive bool
	Kinds         []content.Kind
	Bundles       []string
	Langcode      string
	IDs           []content.RecordRef
	DryRun        bool
	// Mode defaults to ModeSelected when Selection holds keys and to ModeAll
	// otherwise.
	Mode      Mode
	Selection content.Selection
}

func (r Request) mode() (Mode, error) {
	switch r.Mode {
	case "":
		if len(r.Selection) > 0 {
			return ModeSelected, nil
		}
		return ModeAll, nil
	case ModeAll, ModeSelected:
		return r.Mode, nil
	default:
		return "", fmt.Errorf("%w: %q", ErrModeUnknown, r.Mode)
	}
}

// Entry is the replacement tally of one affected record translation. Fields
// lists the walker keys that changed, in walk order.
type Entry struct {
	Record   content.RecordRef `json:"record"`
	Bundle   string            `json:"bundle"`
	Title    string            `json:"title"`
	Langcode string            `json:"langcode"`
	Count    int               `json:"count"`
	Fields   []string          `json:"fields"`
}

// SelectionKeys returns the selection keys of the changed fields.
func (e Entry) SelectionKeys() []string {
	keys := make([]string, 0, len(e.Fields))
	for _, field := range e.Fields {
		keys = append(keys, content.SelectionKey(e.Record.Kind, e.Record.ID, field, e.Langcode))
	}
	return keys
}

// Failure is a record that could not be processed. Processing continues with
// the next record.
type Failure struct {
	Record   content.RecordRef `json:"record"`
	Langcode string            `json:"langcode,omitempty"`
	Stage    string            `json:"stage"`
	Message  string            `json:"message"`
}

func (f Failure) String() string {
	if f.Record.ID == uuid.Nil {
		return fmt.Sprintf("%s: %s", f.Stage, f.Message)
	}
	return fmt.Sprintf("%s %s: %s", f.Stage, f.Record, f.Message)
}

// FailuresFromWarnings converts skipped search records into load failures.
func FailuresFromWarnings(warnings []search.Warning) []Failure {
	if len(warnings) == 0 {
		return nil
	}
	out := make([]Failure, 0, len(warnings))
	for _, w := range warnings {
		out = append(out, Failure{Record: w.Record, Langcode: w.Langcode, Stage: StageLoad, Message: w.Message})
	}
	return out
}

// Result aggregates a run. A record is affected when at least one of its
// fields matched and, outside dry runs, was written back.
type Result struct {
	Replaced int       `json:"replaced"`
	Entries  []Entry   `json:"entries"`
	Failures []Failure `json:"failures,omitempty"`
	DryRun   bool      `json:"dry_run"`
}

// Merge folds other into r.
func (r *Result) Merge(other *Result) {
	if r == nil || other == nil {
		return
	}
	r.Replaced += other.Replaced
	r.Entries = append(r.Entries, other.Entries...)
	r.Failures = append(r.Failures, other.Failures...)
}

// Affected returns the distinct affected records in first seen order.
func (r *Result) Affected() []content.RecordRef {
	if r == nil {
		return nil
	}
	seen := map[content.RecordRef]struct{}{}
	var out []content.RecordRef
	for _, entry := range r.Entries {
		if _, ok := seen[entry.Record]; ok {
			continue
		}
		seen[entry.Record] = struct{}{}
		out = append(out, entry.Record)
	}
	return out
}

// AffectedCount returns the number of distinct affected records.
func (r *Result) AffectedCount() int {
	return len(r.Affected())
}

// ErrorCount returns the number of failed records.
func (r *Result) ErrorCount() int {
	if r == nil {
		return 0
	}
	return len(r.Failures)
}
