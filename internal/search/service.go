package search

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/goliatone/go-cms-replace/content"
	"github.com/goliatone/go-cms-replace/internal/logging"
	"github.com/goliatone/go-cms-replace/internal/matcher"
	"github.com/goliatone/go-cms-replace/internal/metrics"
	"github.com/goliatone/go-cms-replace/internal/walker"
	"github.com/goliatone/go-cms-replace/pkg/interfaces"
)

// Service runs searches across the record store.
type Service interface {
	Search(ctx context.Context, req Request) (*Result, error)
}

// ServiceOption configures the search service.
type ServiceOption func(*service)

// WithLogger sets the logger used for skipped records.
func WithLogger(logger interfaces.Logger) ServiceOption {
	return func(s *service) {
		if logger != nil {
			s.logger = logger
		}
	}
}

// WithMetrics attaches prometheus instrumentation.
func WithMetrics(m *metrics.Metrics) ServiceOption {
	return func(s *service) {
		s.metrics = m
	}
}

// WithContextOptions overrides snippet rendering.
func WithContextOptions(opts matcher.ContextOptions) ServiceOption {
	return func(s *service) {
		s.context = opts
	}
}

// WithMatchTimeout bounds each regex evaluation.
func WithMatchTimeout(timeout time.Duration) ServiceOption {
	return func(s *service) {
		if timeout > 0 {
			s.matchTimeout = timeout
		}
	}
}

// WithDefaultPageSize sets the page size used when requests leave it empty.
func WithDefaultPageSize(size int) ServiceOption {
	return func(s *service) {
		if size > 0 {
			s.pageSize = size
		}
	}
}

// WithMaxDepth caps nested component recursion.
func WithMaxDepth(depth int) ServiceOption {
	return func(s *service) {
		if depth > 0 {
			s.maxDepth = depth
		}
	}
}

type service struct {
	schemas      interfaces.SchemaProvider
	store        interfaces.RecordStore
	walker       *walker.Walker
	logger       interfaces.Logger
	metrics      *metrics.Metrics
	context      matcher.ContextOptions
	matchTimeout time.Duration
	pageSize     int
	maxDepth     int
}

// NewService wires a search service over the schema and storage collaborators.
func NewService(schemas interfaces.SchemaProvider, store interfaces.RecordStore, opts ...ServiceOption) Service {
	s := &service{
		schemas:  schemas,
		store:    store,
		logger:   logging.NoOp(),
		context:  matcher.DefaultContextOptions(),
		pageSize: DefaultPageSize,
		maxDepth: walker.DefaultMaxDepth,
	}
	for _, opt := range opts {
		if opt != nil {
			opt(s)
		}
	}
	s.walker = walker.New(schemas, store, walker.WithMaxDepth(s.maxDepth), walker.WithLogger(s.logger))
	return s
}

func (s *service) Search(ctx context.Context, req Request) (result *Result, err error) {
	defer func() {
		matches := 0
		if result != nil {
			matches = result.TotalMatches
		}
		s.metrics.ObserveSearch(matches, err)
	}()

	if s.schemas == nil {
		return nil, ErrSchemaRequired
	}
	pattern, err := matcher.Compile(req.Term, matcher.Options{
		IsRegex:       req.IsRegex,
		CaseSensitive: req.CaseSensitive,
		MatchTimeout:  s.matchTimeout,
	})
	if err != nil {
		return nil, err
	}

	refs, warnings, err := ResolveTargets(ctx, s.store, req.Filter())
	if err != nil {
		return nil, err
	}
	records, loadWarnings := LoadRecords(ctx, s.store, refs)
	warnings = append(warnings, loadWarnings...)

	logger := logging.WithOperationContext(s.logger, "search", req.Langcode, "")
	tr := walker.NewTraversal()
	var items []Item
	for _, rec := range records {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		found, warning := s.scanRecord(ctx, pattern, rec, req.Langcode, tr)
		if warning != nil {
			logger.Warn("search.record.skipped", "record_id", rec.ID, "kind", rec.Kind, "langcode", warning.Langcode, "error", warning.Message)
			warnings = append(warnings, *warning)
			continue
		}
		items = append(items, found...)
	}
	for _, w := range warnings {
		logger.Debug("search.warning", "warning", w.String())
	}
	s.metrics.ObserveRecordErrors(metrics.OperationSearch, len(warnings))

	SortItems(items)
	result = &Result{Total: len(items), Warnings: warnings, Page: req.Page, PageSize: req.PageSize}
	for _, item := range items {
		result.TotalMatches += item.Matches
	}
	if req.Unpaged {
		result.Items = items
		result.Page, result.PageSize = 0, len(items)
		return result, nil
	}
	if result.PageSize <= 0 {
		result.PageSize = s.pageSize
	}
	if result.Page < 0 {
		result.Page = 0
	}
	result.Items = paginate(items, result.Page, result.PageSize)
	return result, nil
}

// scanRecord walks every requested language of one record. Any fault drops
// the whole record and is returned as a warning.
func (s *service) scanRecord(ctx context.Context, pattern *matcher.Pattern, rec *content.Record, langcode string, tr *walker.Traversal) ([]Item, *Warning) {
	schema, err := s.schemas.Bundle(rec.Kind, rec.Bundle)
	if err != nil {
		return nil, &Warning{Record: rec.Ref(), Message: err.Error()}
	}
	langcodes := rec.Langcodes()
	if strings.TrimSpace(langcode) != "" {
		langcodes = []string{content.NormalizeLangcode(langcode)}
	}

	var items []Item
	for _, lang := range langcodes {
		translation, ok := rec.Translation(lang)
		if !ok {
			continue
		}
		updated := translation.UpdatedAt
		if updated.IsZero() {
			updated = rec.UpdatedAt
		}
		byField := map[string]int{}
		for field, err := range s.walker.Walk(ctx, rec, lang, tr) {
			if err != nil {
				return nil, &Warning{Record: rec.Ref(), Langcode: lang, Message: err.Error()}
			}
			spans, err := pattern.FindMatches(field.Text)
			if err != nil {
				return nil, &Warning{Record: rec.Ref(), Langcode: lang, Message: fmt.Sprintf("field %s: %v", field.Key, err)}
			}
			if len(spans) == 0 {
				continue
			}
			if idx, ok := byField[field.Key]; ok {
				items[idx].Matches += len(spans)
				continue
			}
			byField[field.Key] = len(items)
			items = append(items, Item{
				RecordID:    rec.ID,
				Kind:        rec.Kind,
				Bundle:      rec.Bundle,
				BundleLabel: schema.DisplayLabel(),
				Title:       translation.Title,
				Field:       field.Key,
				FieldLabel:  field.Label,
				FieldKind:   field.Kind,
				Format:      field.Format,
				Context:     matcher.Context(field.Text, spans[0], s.context),
				Matches:     len(spans),
				Status:      rec.Status,
				UpdatedAt:   updated,
				Langcode:    lang,
				Nested:      field.Nested(),
				Text:        field.Text,
			})
		}
	}
	return items, nil
}

// SortItems orders items by last modification, newest first, then by record
// id. The sort is stable so fields of one record keep their walk order.
func SortItems(items []Item) {
	sort.SliceStable(items, func(i, j int) bool {
		a, b := items[i], items[j]
		if !a.UpdatedAt.Equal(b.UpdatedAt) {
			return a.UpdatedAt.After(b.UpdatedAt)
		}
		return a.RecordID.String() < b.RecordID.String()
	})
}

func paginate(items []Item, page, size int) []Item {
	if size <= 0 || page < 0 || len(items) == 0 || page > (len(items)-1)/size {
		return []Item{}
	}
	start := page * size
	end := len(items)
	if size < end-start {
		end = start + size
	}
	return items[start:end]
}
