package jobs

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/goliatone/go-cms-replace/content"
	"github.com/goliatone/go-cms-replace/internal/logging"
	"github.com/goliatone/go-cms-replace/internal/metrics"
	"github.com/goliatone/go-cms-replace/internal/replace"
	"github.com/goliatone/go-cms-replace/pkg/interfaces"
)

// DefaultChunkSize is the number of records processed per step.
const DefaultChunkSize = 10

// Audit actions.
const (
	ActionReplace = "replace"
	ActionUndo    = "undo"
)

var (
	ErrJobRequired  = errors.New("jobs: job required")
	ErrStepRequired = errors.New("jobs: step function required")
	ErrJobFinished  = errors.New("jobs: job already finished")
)

// StepFunc applies the replacement to one chunk of records. Per-record
// failures belong in the returned result; a returned error marks every record
// of the chunk as failed.
type StepFunc func(ctx context.Context, chunk []content.RecordRef) (*replace.Result, error)

// Finalizer receives the aggregated totals once the job stops.
type Finalizer interface {
	Finalize(ctx context.Context, job *Job) error
}

// FinalizerFunc adapts a function to Finalizer.
type FinalizerFunc func(ctx context.Context, job *Job) error

// Finalize calls f.
func (f FinalizerFunc) Finalize(ctx context.Context, job *Job) error {
	return f(ctx, job)
}

// ProgressFunc observes progress after every chunk.
type ProgressFunc func(Progress)

// Coordinator advances jobs chunk by chunk, strictly sequentially.
type Coordinator struct {
	chunkSize int
	audit     AuditRecorder
	logger    interfaces.Logger
	metrics   *metrics.Metrics
	progress  ProgressFunc
	now       func() time.Time
}

// Option configures the coordinator.
type Option func(*Coordinator)

func WithChunkSize(size int) Option {
	return func(c *Coordinator) {
		if size > 0 {
			c.chunkSize = size
		}
	}
}

func WithAuditRecorder(recorder AuditRecorder) Option {
	return func(c *Coordinator) {
		c.audit = recorder
	}
}

func WithLogger(logger interfaces.Logger) Option {
	return func(c *Coordinator) {
		if logger != nil {
			c.logger = logger
		}
	}
}

func WithMetrics(m *metrics.Metrics) Option {
	return func(c *Coordinator) {
		c.metrics = m
	}
}

func WithProgress(fn ProgressFunc) Option {
	return func(c *Coordinator) {
		c.progress = fn
	}
}

func WithClock(clock func() time.Time) Option {
	return func(c *Coordinator) {
		if clock != nil {
			c.now = clock
		}
	}
}

func NewCoordinator(opts ...Option) *Coordinator {
	c := &Coordinator{
		chunkSize: DefaultChunkSize,
		logger:    logging.NoOp(),
		now:       time.Now,
	}
	for _, opt := range opts {
		if opt != nil {
			opt(c)
		}
	}
	return c
}

// ChunkSize returns the configured chunk size.
func (c *Coordinator) ChunkSize() int {
	return c.chunkSize
}

// Step processes the next chunk of job and reports whether the job has no
// records left.
func (c *Coordinator) Step(ctx context.Context, job *Job, step StepFunc) (bool, error) {
	if job == nil {
		return false, ErrJobRequired
	}
	if step == nil {
		return false, ErrStepRequired
	}
	if job.finished {
		return true, ErrJobFinished
	}
	if job.Remaining() == 0 {
		return true, nil
	}

	size := job.chunkSize
	if size <= 0 {
		size = c.chunkSize
	}
	end := job.cursor + size
	if end > len(job.targets) {
		end = len(job.targets)
	}
	chunk := job.targets[job.cursor:end]

	logger := c.logger.WithContext(ctx)
	started := c.now()
	result, err := step(ctx, chunk)
	if err != nil {
		logger.Error("jobs.chunk.failed", "job_id", job.ID, "cursor", job.cursor, "error", err)
		result = &replace.Result{DryRun: job.DryRun}
		for _, ref := range chunk {
			result.Failures = append(result.Failures, replace.Failure{Record: ref, Stage: replace.StageWalk, Message: err.Error()})
		}
	}
	c.metrics.ObserveChunk(c.now().Sub(started))

	job.cursor = end
	job.totals.Merge(result)
	job.progress.Chunks++
	job.progress.Processed = job.cursor
	job.progress.Replaced = job.totals.Replaced
	job.progress.Affected = job.totals.AffectedCount()
	job.progress.Errors = job.totals.ErrorCount()

	if !job.DryRun {
		c.recordAudit(ctx, logger, job, result)
	}
	logger.Debug("jobs.chunk.completed", "job_id", job.ID, "processed", job.progress.Processed, "total", job.progress.Total, "replaced", job.progress.Replaced)
	if c.progress != nil {
		c.progress(job.Progress())
	}
	return job.Remaining() == 0, nil
}

// Run processes every remaining chunk and then hands the job to finalize.
// Cancellation is honoured between chunks only; a cancelled job is still
// finalized with the totals reached so far and the context error is returned.
func (c *Coordinator) Run(ctx context.Context, job *Job, step StepFunc, finalize Finalizer) (*replace.Result, error) {
	if job == nil {
		return nil, ErrJobRequired
	}
	var runErr error
	for !job.finished && job.Remaining() > 0 {
		if err := ctx.Err(); err != nil {
			job.progress.Cancelled = true
			c.logger.WithContext(ctx).Warn("jobs.cancelled", "job_id", job.ID, "processed", job.progress.Processed, "total", job.progress.Total)
			runErr = err
			break
		}
		if _, err := c.Step(ctx, job, step); err != nil {
			return nil, err
		}
	}
	if job.finished {
		return job.Result(), ErrJobFinished
	}
	job.finished = true

	if finalize != nil {
		// Finalization must persist even when the run itself was cancelled.
		finalCtx := ctx
		if runErr != nil {
			finalCtx = context.WithoutCancel(ctx)
		}
		if err := finalize.Finalize(finalCtx, job); err != nil {
			return job.Result(), fmt.Errorf("jobs: finalize: %w", err)
		}
	}
	return job.Result(), runErr
}

func (c *Coordinator) recordAudit(ctx context.Context, logger interfaces.Logger, job *Job, result *replace.Result) {
	if c.audit == nil || result == nil {
		return
	}
	for _, entry := range result.Entries {
		event := AuditEvent{
			EntityType: string(entry.Record.Kind),
			EntityID:   entry.Record.ID.String(),
			Action:     job.Action,
			OccurredAt: c.now(),
			Metadata: map[string]any{
				"count":    entry.Count,
				"langcode": entry.Langcode,
				"report":   job.ID,
			},
		}
		if err := c.audit.Record(ctx, event); err != nil {
			logger.Warn("jobs.audit.failed", "job_id", job.ID, "record_id", entry.Record.ID, "error", err)
		}
	}
}
