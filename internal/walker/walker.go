package walker

import (
	"context"
	"errors"
	"fmt"
	"iter"

	"github.com/goliatone/go-cms-replace/content"
	"github.com/goliatone/go-cms-replace/internal/logging"
	"github.com/goliatone/go-cms-replace/pkg/interfaces"
)

// Walker enumerates the text-bearing values of a record in one language,
// following references into embedded components.
type Walker struct {
	schemas  interfaces.SchemaProvider
	store    interfaces.RecordStore
	maxDepth int
	logger   interfaces.Logger
}

// Option configures the walker.
type Option func(*Walker)

// WithMaxDepth overrides the nesting cap. Values below one are ignored.
func WithMaxDepth(depth int) Option {
	return func(w *Walker) {
		if depth > 0 {
			w.maxDepth = depth
		}
	}
}

// WithLogger attaches a logger for skipped references.
func WithLogger(logger interfaces.Logger) Option {
	return func(w *Walker) {
		if logger != nil {
			w.logger = logger
		}
	}
}

// New constructs a walker. The store is used to load embedded components and
// may be nil when records carry no references.
func New(schemas interfaces.SchemaProvider, store interfaces.RecordStore, opts ...Option) *Walker {
	w := &Walker{
		schemas:  schemas,
		store:    store,
		maxDepth: DefaultMaxDepth,
		logger:   logging.NoOp(),
	}
	for _, opt := range opts {
		if opt != nil {
			opt(w)
		}
	}
	return w
}

// Walk yields the title first, then every plain and rich text value in schema
// order, one entry per value index, descending depth first into embedded
// components. A nil traversal gives every iteration its own state so the
// sequence can be restarted. The sequence stops after the first error.
func (w *Walker) Walk(ctx context.Context, rec *content.Record, langcode string, tr *Traversal) iter.Seq2[Field, error] {
	return func(yield func(Field, error) bool) {
		if w == nil || w.schemas == nil {
			yield(Field{}, ErrSchemaRequired)
			return
		}
		if rec == nil {
			yield(Field{}, ErrRecordRequired)
			return
		}
		state := tr
		if state == nil {
			state = NewTraversal()
		}
		langcode = content.NormalizeLangcode(langcode)
		if !state.visit(rec.ID, langcode) {
			return
		}
		translation, ok := rec.Translation(langcode)
		if !ok {
			return
		}
		schema, err := w.bundle(state, rec.Kind, rec.Bundle)
		if err != nil {
			yield(Field{}, err)
			return
		}

		title := Field{
			Key:      TitleField,
			Name:     TitleField,
			Label:    titleLabel(schema),
			Text:     translation.Title,
			Kind:     content.FieldPlainText,
			Langcode: langcode,
			Owner:    rec,
			set:      func(text string) { translation.Title = text },
		}
		if !yield(title, nil) {
			return
		}

		w.fields(ctx, state, rec, translation, schema, langcode, frame{}, yield)
	}
}

type frame struct {
	depth  int
	key    string
	labels []string
}

func (f frame) child(key, label string) frame {
	labels := append(append([]string(nil), f.labels...), label)
	return frame{depth: f.depth + 1, key: key, labels: labels}
}

// fields walks one record translation and returns false when iteration stopped.
func (w *Walker) fields(ctx context.Context, state *Traversal, owner *content.Record, translation *content.Translation, schema *content.BundleSchema, langcode string, at frame, yield func(Field, error) bool) bool {
	for _, def := range schema.Fields {
		values := translation.Fields[def.Name]
		switch {
		case def.Kind.Searchable():
			for idx := range values {
				value := &values[idx]
				if !value.Kind.Searchable() {
					continue
				}
				field := Field{
					Key:      joinKey(at.key, def.Name),
					Name:     def.Name,
					Label:    joinLabel(append(append([]string(nil), at.labels...), def.DisplayLabel())...),
					Index:    idx,
					Text:     value.Text,
					Kind:     value.Kind,
					Format:   value.Format,
					Langcode: langcode,
					Depth:    at.depth,
					Owner:    owner,
					set:      w.setter(state, owner, at.depth, value),
				}
				if !yield(field, nil) {
					return false
				}
			}
		case def.Kind == content.FieldReference:
			for _, value := range values {
				if value.Kind != content.FieldReference {
					continue
				}
				if !w.descend(ctx, state, def, value, langcode, at, yield) {
					return false
				}
			}
		}
	}
	return true
}

func (w *Walker) setter(state *Traversal, owner *content.Record, depth int, value *content.FieldValue) func(string) {
	return func(text string) {
		value.Text = text
		if depth > 0 {
			state.markDirty(owner)
		}
	}
}

func (w *Walker) descend(ctx context.Context, state *Traversal, def content.FieldSchema, ref content.FieldValue, langcode string, at frame, yield func(Field, error) bool) bool {
	if err := ctx.Err(); err != nil {
		return yield(Field{}, err)
	}
	if at.depth+1 > w.maxDepth {
		w.logger.Warn("walker.depth.exceeded", "target_id", ref.TargetID, "max_depth", w.maxDepth)
		return true
	}
	if ref.TargetKind != "" && ref.TargetKind != content.KindEmbedded {
		return true
	}

	component, err := w.component(ctx, state, ref)
	if err != nil {
		if errors.Is(err, content.ErrRecordNotFound) {
			w.logger.Debug("walker.reference.dangling", "target_id", ref.TargetID, "field", def.Name)
			return true
		}
		return yield(Field{}, fmt.Errorf("walker: load component %s: %w", ref.TargetID, err))
	}
	if !state.visit(component.ID, langcode) {
		return true
	}
	translation, ok := component.Translation(langcode)
	if !ok {
		return true
	}
	schema, err := w.bundle(state, component.Kind, component.Bundle)
	if err != nil {
		return yield(Field{}, err)
	}

	next := at.child(componentKey(at.key, def.Name, component.ID), schema.DisplayLabel())
	return w.fields(ctx, state, component, translation, schema, langcode, next, yield)
}

func (w *Walker) component(ctx context.Context, state *Traversal, ref content.FieldValue) (*content.Record, error) {
	if cached, ok := state.components[ref.TargetID]; ok {
		return cached, nil
	}
	if w.store == nil {
		return nil, &content.NotFoundError{Resource: "component", Key: ref.TargetID.String()}
	}
	kind := ref.TargetKind
	if kind == "" {
		kind = content.KindEmbedded
	}
	rec, err := w.store.Load(ctx, kind, ref.TargetID)
	if err != nil {
		return nil, err
	}
	if rec == nil {
		return nil, &content.NotFoundError{Resource: "component", Key: ref.TargetID.String()}
	}
	state.components[ref.TargetID] = rec
	return rec, nil
}

func (w *Walker) bundle(state *Traversal, kind content.Kind, bundle string) (*content.BundleSchema, error) {
	key := string(kind) + ":" + bundle
	if schema, ok := state.schemas[key]; ok {
		return schema, nil
	}
	schema, err := w.schemas.Bundle(kind, bundle)
	if err != nil {
		return nil, fmt.Errorf("walker: schema %s: %w", key, err)
	}
	state.schemas[key] = schema
	return schema, nil
}

func titleLabel(schema *content.BundleSchema) string {
	if schema != nil && schema.TitleLabel != "" {
		return schema.TitleLabel
	}
	return "Title"
}
