package jobs

import (
	"github.com/goliatone/go-cms-replace/content"
	"github.com/goliatone/go-cms-replace/internal/replace"
)

// Progress is the running state of a job after its last chunk.
type Progress struct {
	Processed int  `json:"processed"`
	Total     int  `json:"total"`
	Chunks    int  `json:"chunks"`
	Replaced  int  `json:"replaced"`
	Affected  int  `json:"affected"`
	Errors    int  `json:"errors"`
	Cancelled bool `json:"cancelled,omitempty"`
}

// Job holds the cursor and running totals of one batched run. A job can be
// kept by the caller and advanced by repeated Step calls.
type Job struct {
	ID     string
	Action string
	DryRun bool

	targets   []content.RecordRef
	chunkSize int
	cursor    int
	totals    replace.Result
	progress  Progress
	finished  bool
}

// NewJob creates a job over targets. A chunk size of zero uses the
// coordinator default.
func NewJob(id string, targets []content.RecordRef, chunkSize int) *Job {
	return &Job{
		ID:        id,
		Action:    ActionReplace,
		targets:   append([]content.RecordRef(nil), targets...),
		chunkSize: chunkSize,
		progress:  Progress{Total: len(targets)},
	}
}

// WithDryRun marks the job as a dry run so no audit events are recorded.
func (j *Job) WithDryRun(dryRun bool) *Job {
	j.DryRun = dryRun
	j.totals.DryRun = dryRun
	return j
}

// WithAction overrides the audit action.
func (j *Job) WithAction(action string) *Job {
	if action != "" {
		j.Action = action
	}
	return j
}

// Cursor is the index of the next record to process.
func (j *Job) Cursor() int {
	return j.cursor
}

// Remaining returns the number of records not processed yet.
func (j *Job) Remaining() int {
	return len(j.targets) - j.cursor
}

// Finished reports whether the job was finalized.
func (j *Job) Finished() bool {
	return j.finished
}

// Progress returns a snapshot of the job progress.
func (j *Job) Progress() Progress {
	return j.progress
}

// Result returns a copy of the aggregated totals.
func (j *Job) Result() *replace.Result {
	out := j.totals
	out.Entries = append([]replace.Entry(nil), j.totals.Entries...)
	out.Failures = append([]replace.Failure(nil), j.totals.Failures...)
	return &out
}

// AddFailures records failures found outside of chunk processing, such as
// targets that could not be resolved.
func (j *Job) AddFailures(failures ...replace.Failure) {
	j.totals.Failures = append(j.totals.Failures, failures...)
	j.progress.Errors = len(j.totals.Failures)
}
