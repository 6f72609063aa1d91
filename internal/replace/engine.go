package replace

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/goliatone/go-cms-replace/content"
	"github.com/goliatone/go-cms-replace/internal/logging"
	"github.com/goliatone/go-cms-replace/internal/matcher"
	"github.com/goliatone/go-cms-replace/internal/metrics"
	"github.com/goliatone/go-cms-replace/internal/search"
	"github.com/goliatone/go-cms-replace/internal/walker"
	"github.com/goliatone/go-cms-replace/pkg/interfaces"
	"github.com/google/uuid"
)

// Engine rewrites matches in place and persists the records it changed.
type Engine struct {
	schemas      interfaces.SchemaProvider
	store        interfaces.RecordStore
	walker       *walker.Walker
	logger       interfaces.Logger
	metrics      *metrics.Metrics
	now          func() time.Time
	matchTimeout time.Duration
	maxDepth     int
}

// Option configures the engine.
type Option func(*Engine)

// WithLogger sets the engine logger.
func WithLogger(logger interfaces.Logger) Option {
	return func(e *Engine) {
		if logger != nil {
			e.logger = logger
		}
	}
}

// WithMetrics attaches prometheus instrumentation.
func WithMetrics(m *metrics.Metrics) Option {
	return func(e *Engine) {
		e.metrics = m
	}
}

// WithClock overrides the clock used to stamp modified records.
func WithClock(clock func() time.Time) Option {
	return func(e *Engine) {
		if clock != nil {
			e.now = clock
		}
	}
}

// WithMatchTimeout bounds each regex evaluation.
func WithMatchTimeout(timeout time.Duration) Option {
	return func(e *Engine) {
		if timeout > 0 {
			e.matchTimeout = timeout
		}
	}
}

// WithMaxDepth caps nested component recursion.
func WithMaxDepth(depth int) Option {
	return func(e *Engine) {
		if depth > 0 {
			e.maxDepth = depth
		}
	}
}

// NewEngine wires the replace engine over the schema and storage collaborators.
func NewEngine(schemas interfaces.SchemaProvider, store interfaces.RecordStore, opts ...Option) *Engine {
	e := &Engine{
		schemas:  schemas,
		store:    store,
		logger:   logging.NoOp(),
		now:      time.Now,
		maxDepth: walker.DefaultMaxDepth,
	}
	for _, opt := range opts {
		if opt != nil {
			opt(e)
		}
	}
	e.walker = walker.New(schemas, store, walker.WithMaxDepth(e.maxDepth), walker.WithLogger(e.logger))
	return e
}

// Operation is a prepared run: compiled pattern, resolved targets and the
// traversal state shared by every chunk so components reached from several
// records are counted and saved once.
type Operation struct {
	request   Request
	mode      Mode
	pattern   *matcher.Pattern
	targets   []content.RecordRef
	warnings  []search.Warning
	traversal *walker.Traversal
}

// Request returns the request the operation was prepared from.
func (o *Operation) Request() Request {
	return o.request
}

// Mode returns the effective mode of the operation.
func (o *Operation) Mode() Mode {
	return o.mode
}

// Targets returns the records the operation will visit, in order.
func (o *Operation) Targets() []content.RecordRef {
	return append([]content.RecordRef(nil), o.targets...)
}

// Failures reports targets that could not be resolved.
func (o *Operation) Failures() []Failure {
	return FailuresFromWarnings(o.warnings)
}

// Prepare validates the request and resolves its targets. Pattern and
// selection errors surface here, before any record is touched.
func (e *Engine) Prepare(ctx context.Context, req Request) (*Operation, error) {
	if e.store == nil {
		return nil, ErrStoreRequired
	}
	mode, err := req.mode()
	if err != nil {
		return nil, err
	}
	if mode == ModeSelected && !req.Selection.Enabled() {
		return nil, ErrNoSelection
	}
	pattern, err := matcher.Compile(req.Term, matcher.Options{
		IsRegex:       req.IsRegex,
		CaseSensitive: req.CaseSensitive,
		MatchTimeout:  e.matchTimeout,
	})
	if err != nil {
		return nil, err
	}

	filter := search.Filter{Kinds: req.Kinds, Bundles: req.Bundles, IDs: req.IDs}
	if mode == ModeSelected && len(filter.IDs) == 0 {
		filter.IDs = req.Selection.Refs()
	}
	targets, warnings, err := search.ResolveTargets(ctx, e.store, filter)
	if err != nil {
		return nil, err
	}
	return &Operation{
		request:   req,
		mode:      mode,
		pattern:   pattern,
		targets:   targets,
		warnings:  warnings,
		traversal: walker.NewTraversal(),
	}, nil
}

// Replace prepares and applies a run over every target in one pass.
func (e *Engine) Replace(ctx context.Context, req Request) (*Result, error) {
	op, err := e.Prepare(ctx, req)
	if err != nil {
		return nil, err
	}
	result := e.Apply(ctx, op, op.Targets())
	result.Failures = append(op.Failures(), result.Failures...)

	mode := metrics.ModeCommit
	if req.DryRun {
		mode = metrics.ModeDryRun
	}
	e.metrics.ObserveReplace(mode, result.Replaced, result.AffectedCount())
	e.metrics.ObserveRecordErrors(metrics.OperationReplace, result.ErrorCount())
	return result, nil
}

// Apply processes refs, which must belong to op, one record at a time. Each
// record is loaded, rewritten and saved once; failures are recorded and the
// next record is processed.
func (e *Engine) Apply(ctx context.Context, op *Operation, refs []content.RecordRef) *Result {
	result := &Result{DryRun: op.request.DryRun}
	logger := logging.WithOperationContext(e.logger, "replace", op.request.Langcode, "")

	records, warnings := search.LoadRecords(ctx, e.store, refs)
	result.Failures = append(result.Failures, FailuresFromWarnings(warnings)...)
	for _, w := range warnings {
		logger.Warn("replace.record.skipped", "record", w.Record.String(), "error", w.Message)
	}

	for _, rec := range records {
		entries, failures := e.applyRecord(ctx, op, rec)
		for _, failure := range failures {
			logger.Error("replace.record.failed", "record", failure.Record.String(), "stage", failure.Stage, "error", failure.Message)
		}
		result.Failures = append(result.Failures, failures...)
		for _, entry := range entries {
			result.Replaced += entry.Count
		}
		result.Entries = append(result.Entries, entries...)
	}
	return result
}

// fieldChange is the tally of one rewritten field. Owner is the record that
// holds the value: the walked record or one of its components.
type fieldChange struct {
	langcode string
	key      string
	owner    uuid.UUID
	count    int
}

// applyRecord rewrites one record. The record is saved before its dirty
// components; a component that fails to save drops its own fields from the
// returned entries so they only count what was persisted.
func (e *Engine) applyRecord(ctx context.Context, op *Operation, rec *content.Record) ([]Entry, []Failure) {
	req := op.request
	langcodes := rec.Langcodes()
	if strings.TrimSpace(req.Langcode) != "" {
		langcodes = []string{content.NormalizeLangcode(req.Langcode)}
	}
	fail := func(lang, stage string, err error) []Failure {
		// Mutations of a failed record are discarded along with its components.
		op.traversal.DirtyComponents()
		return []Failure{{Record: rec.Ref(), Langcode: lang, Stage: stage, Message: err.Error()}}
	}

	titles := map[string]string{}
	var changes []fieldChange
	for _, lang := range langcodes {
		translation, ok := rec.Translation(lang)
		if !ok {
			continue
		}
		titles[lang] = translation.Title
		for field, err := range e.walker.Walk(ctx, rec, lang, op.traversal) {
			if err != nil {
				return nil, fail(lang, StageWalk, err)
			}
			if op.mode == ModeSelected && !req.Selection.Has(content.SelectionKey(rec.Kind, rec.ID, field.Key, lang)) {
				continue
			}
			spans, err := op.pattern.FindMatches(field.Text)
			if err != nil {
				return nil, fail(lang, StageWalk, fmt.Errorf("field %s: %w", field.Key, err))
			}
			if len(spans) == 0 {
				continue
			}
			owner := rec.ID
			if field.Owner != nil {
				owner = field.Owner.ID
			}
			changes = append(changes, fieldChange{langcode: lang, key: field.Key, owner: owner, count: len(spans)})
			if !req.DryRun {
				field.Set(matcher.Apply(field.Text, spans, req.Replacement, op.pattern.IsRegex()))
			}
		}
	}
	if len(changes) == 0 || req.DryRun {
		return entriesFor(rec, langcodes, titles, changes), nil
	}

	now := e.now()
	entries := entriesFor(rec, langcodes, titles, changes)
	components := op.traversal.DirtyComponents()
	stamp(rec, entries, now)
	if err := e.store.Save(ctx, rec); err != nil {
		return nil, fail("", StageSave, err)
	}

	var failures []Failure
	dropped := map[uuid.UUID]bool{}
	for _, component := range components {
		stamp(component, entries, now)
		if err := e.store.Save(ctx, component); err != nil {
			dropped[component.ID] = true
			failures = append(failures, Failure{Record: component.Ref(), Stage: StageSave, Message: fmt.Sprintf("component of %s: %v", rec.Ref(), err)})
		}
	}
	if len(dropped) > 0 {
		kept := changes[:0]
		for _, change := range changes {
			if !dropped[change.owner] {
				kept = append(kept, change)
			}
		}
		entries = entriesFor(rec, langcodes, titles, kept)
	}
	e.logger.Info("replace.record.saved", "record_id", rec.ID, "kind", rec.Kind, "entries", len(entries))
	return entries, failures
}

// entriesFor groups changes into one entry per language, following the order
// of langcodes.
func entriesFor(rec *content.Record, langcodes []string, titles map[string]string, changes []fieldChange) []Entry {
	var entries []Entry
	for _, lang := range langcodes {
		entry := Entry{Record: rec.Ref(), Bundle: rec.Bundle, Title: titles[lang], Langcode: lang}
		seen := map[string]bool{}
		for _, change := range changes {
			if change.langcode != lang {
				continue
			}
			entry.Count += change.count
			if !seen[change.key] {
				seen[change.key] = true
				entry.Fields = append(entry.Fields, change.key)
			}
		}
		if entry.Count > 0 {
			entries = append(entries, entry)
		}
	}
	return entries
}

func stamp(rec *content.Record, entries []Entry, now time.Time) {
	rec.UpdatedAt = now
	for _, entry := range entries {
		if tr, ok := rec.Translation(entry.Langcode); ok {
			tr.UpdatedAt = now
		}
	}
}
