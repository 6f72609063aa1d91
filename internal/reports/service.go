package reports

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/goliatone/go-cms-replace/content"
	"github.com/goliatone/go-cms-replace/internal/jobs"
	"github.com/goliatone/go-cms-replace/internal/logging"
	"github.com/goliatone/go-cms-replace/internal/metrics"
	"github.com/goliatone/go-cms-replace/internal/replace"
	"github.com/goliatone/go-cms-replace/internal/search"
	"github.com/goliatone/go-cms-replace/pkg/interfaces"
	"github.com/google/uuid"
)

// Service runs batched replacements, records their reports and reverts them.
type Service interface {
	Replace(ctx context.Context, req ReplaceRequest) (*Outcome, error)
	Undo(ctx context.Context, req UndoRequest) (*Outcome, error)
	Get(ctx context.Context, id uuid.UUID) (*Report, error)
	List(ctx context.Context, opts ListOptions) ([]*Report, int, error)
	Status(ctx context.Context, id uuid.UUID) (Status, error)
}

// ReplaceRequest is a replace run attributed to an actor.
type ReplaceRequest struct {
	replace.Request
	ActorID uuid.UUID
}

// UndoRequest reverts one report.
type UndoRequest struct {
	ReportID uuid.UUID
	ActorID  uuid.UUID
}

// Outcome summarises a run. Report is nil for dry runs.
type Outcome struct {
	Report   *Report
	Result   *replace.Result
	Progress jobs.Progress
	// Skipped lists records whose replacement term was gone when an undo
	// re-checked them.
	Skipped []content.RecordRef
}

// Summary returns the replaced, affected and error counts.
func (o *Outcome) Summary() (replaced, affected, errs int) {
	if o == nil || o.Result == nil {
		return 0, 0, 0
	}
	return o.Result.Replaced, o.Result.AffectedCount(), o.Result.ErrorCount()
}

// ServiceOption configures the report service.
type ServiceOption func(*service)

func WithLogger(logger interfaces.Logger) ServiceOption {
	return func(s *service) {
		if logger != nil {
			s.logger = logger
		}
	}
}

func WithMetrics(m *metrics.Metrics) ServiceOption {
	return func(s *service) {
		s.metrics = m
	}
}

func WithClock(clock func() time.Time) ServiceOption {
	return func(s *service) {
		if clock != nil {
			s.now = clock
		}
	}
}

// WithIDGenerator overrides report id generation.
func WithIDGenerator(gen func() uuid.UUID) ServiceOption {
	return func(s *service) {
		if gen != nil {
			s.newID = gen
		}
	}
}

type service struct {
	store       Store
	engine      *replace.Engine
	search      search.Service
	coordinator *jobs.Coordinator
	logger      interfaces.Logger
	metrics     *metrics.Metrics
	now         func() time.Time
	newID       func() uuid.UUID
}

// NewService wires the report service. The search service is used to
// re-check content before an undo.
func NewService(store Store, engine *replace.Engine, searcher search.Service, coordinator *jobs.Coordinator, opts ...ServiceOption) Service {
	if coordinator == nil {
		coordinator = jobs.NewCoordinator()
	}
	s := &service{
		store:       store,
		engine:      engine,
		search:      searcher,
		coordinator: coordinator,
		logger:      logging.NoOp(),
		now:         time.Now,
		newID:       uuid.New,
	}
	for _, opt := range opts {
		if opt != nil {
			opt(s)
		}
	}
	return s
}

func (s *service) Replace(ctx context.Context, req ReplaceRequest) (*Outcome, error) {
	if s.store == nil {
		return nil, ErrStoreRequired
	}
	op, err := s.engine.Prepare(ctx, req.Request)
	if err != nil {
		return nil, err
	}
	reportID := s.newID()
	logger := logging.WithOperationContext(s.logger, "replace", req.Langcode, reportID.String())

	outcome, err := s.run(ctx, op, reportID, jobs.ActionReplace, func(ctx context.Context, result *replace.Result) (*Report, error) {
		report := s.newReport(reportID, req.ActorID, req.Request, result)
		report.Details = buildDetails(op.Mode(), req.Request, result)
		return s.store.Insert(ctx, report)
	})
	if err != nil {
		return outcome, err
	}

	metricMode := metrics.ModeCommit
	if req.DryRun {
		metricMode = metrics.ModeDryRun
	}
	replaced, affected, errs := outcome.Summary()
	s.metrics.ObserveReplace(metricMode, replaced, affected)
	s.metrics.ObserveRecordErrors(metrics.OperationReplace, errs)
	logger.Info("reports.replace.completed", "dry_run", req.DryRun, "replaced", replaced, "affected", affected, "errors", errs)
	return outcome, nil
}

func (s *service) Undo(ctx context.Context, req UndoRequest) (*Outcome, error) {
	if s.store == nil {
		return nil, ErrStoreRequired
	}
	original, err := s.store.Find(ctx, req.ReportID)
	if err != nil {
		return nil, err
	}
	if original.IsRegex || original.ReplaceTerm == "" {
		return nil, fmt.Errorf("%w: %s", ErrUndoIrreversible, original.ID)
	}
	if err := s.ensureNotUndone(ctx, original); err != nil {
		return nil, err
	}

	reportID := s.newID()
	logger := logging.WithOperationContext(s.logger, "undo", original.Langcode, reportID.String())

	affected := original.AffectedRefs()
	present, err := s.recheck(ctx, original, affected)
	if err != nil {
		return nil, err
	}
	var skipped []content.RecordRef
	targets := make([]content.RecordRef, 0, len(present))
	for _, ref := range affected {
		if present[ref] {
			targets = append(targets, ref)
			continue
		}
		skipped = append(skipped, ref)
		logger.Warn("reports.undo.skipped", "record", ref.String(), "reason", "replacement term no longer present")
	}

	// Only the fields the original run rewrote are reverted, in the
	// translations it rewrote them in.
	selection, ok := original.UndoSelection(targets)
	if !ok {
		return nil, fmt.Errorf("%w: %s has no field details", ErrUndoIrreversible, original.ID)
	}
	undoReq := replace.Request{
		Term:          original.ReplaceTerm,
		Replacement:   original.SearchTerm,
		CaseSensitive: true,
		Langcode:      original.Langcode,
		IDs:           targets,
		Mode:          replace.ModeSelected,
		Selection:     selection,
	}
	// With no targets left an empty run still records the undo so the
	// original cannot be reverted twice.
	var op *replace.Operation
	if len(targets) > 0 {
		if op, err = s.engine.Prepare(ctx, undoReq); err != nil {
			return nil, err
		}
	}

	outcome, err := s.run(ctx, op, reportID, jobs.ActionUndo, func(ctx context.Context, result *replace.Result) (*Report, error) {
		report := s.newReport(reportID, req.ActorID, undoReq, result)
		report.UndoneFrom = &original.ID
		report.Details = buildDetails(replace.ModeSelected, undoReq, result)
		report.Details.Mode = ModeUndo
		report.Details.UndoneFrom = original.ID.String()
		inserted, err := s.store.Insert(ctx, report)
		if err != nil {
			return nil, err
		}
		if err := s.store.MarkUndone(ctx, original.ID, inserted.CreatedAt, req.ActorID); err != nil {
			return nil, err
		}
		return inserted, nil
	})
	if err != nil {
		return outcome, err
	}
	outcome.Skipped = skipped

	replaced, affectedCount, errs := outcome.Summary()
	s.metrics.ObserveReplace(metrics.ModeUndo, replaced, affectedCount)
	s.metrics.ObserveRecordErrors(metrics.OperationUndo, errs)
	logger.Info("reports.undo.completed", "undone_from", original.ID, "replaced", replaced, "affected", affectedCount, "skipped", len(skipped))
	return outcome, nil
}

func (s *service) Get(ctx context.Context, id uuid.UUID) (*Report, error) {
	if s.store == nil {
		return nil, ErrStoreRequired
	}
	return s.store.Find(ctx, id)
}

func (s *service) List(ctx context.Context, opts ListOptions) ([]*Report, int, error) {
	if s.store == nil {
		return nil, 0, ErrStoreRequired
	}
	return s.store.List(ctx, opts)
}

func (s *service) Status(ctx context.Context, id uuid.UUID) (Status, error) {
	report, err := s.Get(ctx, id)
	if err != nil {
		return "", err
	}
	if report.Status() == StatusUndone {
		return StatusUndone, nil
	}
	if _, err := s.store.FindByUndoneFrom(ctx, id); err == nil {
		return StatusUndone, nil
	} else if !errors.Is(err, ErrReportNotFound) {
		return "", err
	}
	return StatusActive, nil
}

type persistFunc func(ctx context.Context, result *replace.Result) (*Report, error)

// run drives op through the batch coordinator. Dry runs never persist a
// report. A nil op finalizes an empty run.
func (s *service) run(ctx context.Context, op *replace.Operation, reportID uuid.UUID, action string, persist persistFunc) (*Outcome, error) {
	var (
		targets []content.RecordRef
		dryRun  bool
	)
	if op != nil {
		targets = op.Targets()
		dryRun = op.Request().DryRun
	}
	job := jobs.NewJob(reportID.String(), targets, 0).WithDryRun(dryRun).WithAction(action)
	if op != nil {
		job.AddFailures(op.Failures()...)
	}

	outcome := &Outcome{}
	step := func(ctx context.Context, chunk []content.RecordRef) (*replace.Result, error) {
		return s.engine.Apply(ctx, op, chunk), nil
	}
	finalize := jobs.FinalizerFunc(func(ctx context.Context, job *jobs.Job) error {
		if dryRun {
			return nil
		}
		report, err := persist(ctx, job.Result())
		if err != nil {
			return err
		}
		outcome.Report = report
		return nil
	})

	result, err := s.coordinator.Run(ctx, job, step, finalize)
	outcome.Result = result
	outcome.Progress = job.Progress()
	if err != nil {
		return outcome, err
	}
	return outcome, nil
}

func (s *service) ensureNotUndone(ctx context.Context, report *Report) error {
	if report.Status() == StatusUndone {
		return fmt.Errorf("%w: %s", ErrAlreadyUndone, report.ID)
	}
	child, err := s.store.FindByUndoneFrom(ctx, report.ID)
	switch {
	case err == nil:
		return fmt.Errorf("%w: %s by %s", ErrAlreadyUndone, report.ID, child.ID)
	case errors.Is(err, ErrReportNotFound):
		return nil
	default:
		return err
	}
}

// recheck searches the current content of the affected records for the
// replacement term.
func (s *service) recheck(ctx context.Context, report *Report, refs []content.RecordRef) (map[content.RecordRef]bool, error) {
	present := map[content.RecordRef]bool{}
	if len(refs) == 0 || s.search == nil {
		return present, nil
	}
	res, err := s.search.Search(ctx, search.Request{
		Term:          report.ReplaceTerm,
		CaseSensitive: true,
		Langcode:      report.Langcode,
		IDs:           refs,
		Unpaged:       true,
	})
	if err != nil {
		return nil, err
	}
	for _, item := range res.Items {
		present[item.Ref()] = true
	}
	return present, nil
}

func (s *service) newReport(id, actor uuid.UUID, req replace.Request, result *replace.Result) *Report {
	return &Report{
		ID:            id,
		ActorID:       actor,
		CreatedAt:     s.now().UTC(),
		SearchTerm:    req.Term,
		ReplaceTerm:   req.Replacement,
		IsRegex:       req.IsRegex,
		CaseSensitive: req.CaseSensitive,
		Langcode:      content.NormalizeLangcode(req.Langcode),
		Replaced:      result.Replaced,
		Affected:      result.AffectedCount(),
		Errors:        result.ErrorCount(),
	}
}
