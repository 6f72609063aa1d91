package schema

import (
	"errors"
	"fmt"
	"io"
	"sort"
	"strings"
	"sync"

	"github.com/goliatone/go-cms-replace/content"
	"gopkg.in/yaml.v3"
)

var (
	ErrKindRequired       = errors.New("schema: kind required")
	ErrBundleRequired     = errors.New("schema: bundle required")
	ErrFieldNameRequired  = errors.New("schema: field name required")
	ErrFieldNameReserved  = errors.New("schema: field name reserved")
	ErrFieldDuplicate     = errors.New("schema: duplicate field name")
	ErrFieldKindUnknown   = errors.New("schema: unknown field kind")
	ErrFieldNameMalformed = errors.New("schema: field names may not contain '.' or ':'")
)

// Registry is an in-memory SchemaProvider keyed by kind and bundle.
type Registry struct {
	mu      sync.RWMutex
	bundles map[string]*content.BundleSchema
}

// NewRegistry returns a registry seeded with the supplied bundles.
func NewRegistry(bundles ...content.BundleSchema) (*Registry, error) {
	r := &Registry{bundles: map[string]*content.BundleSchema{}}
	for _, b := range bundles {
		if err := r.Register(b); err != nil {
			return nil, err
		}
	}
	return r, nil
}

// MustNewRegistry panics on invalid bundles. Intended for tests and fixtures.
func MustNewRegistry(bundles ...content.BundleSchema) *Registry {
	r, err := NewRegistry(bundles...)
	if err != nil {
		panic(err)
	}
	return r
}

// Register validates and stores the bundle, replacing any previous definition.
func (r *Registry) Register(bundle content.BundleSchema) error {
	normalized, err := normalize(bundle)
	if err != nil {
		return err
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	r.bundles[key(normalized.Kind, normalized.Bundle)] = normalized
	return nil
}

// Bundle returns a copy of the registered bundle schema.
func (r *Registry) Bundle(kind content.Kind, bundle string) (*content.BundleSchema, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	found, ok := r.bundles[key(kind, bundle)]
	if !ok {
		return nil, fmt.Errorf("%w: %s", content.ErrBundleNotFound, key(kind, bundle))
	}
	return clone(found), nil
}

// FieldsOf returns the ordered field definitions of the bundle.
func (r *Registry) FieldsOf(kind content.Kind, bundle string) ([]content.FieldSchema, error) {
	b, err := r.Bundle(kind, bundle)
	if err != nil {
		return nil, err
	}
	return b.Fields, nil
}

// Bundles lists the machine names registered for kind in alphabetical order.
func (r *Registry) Bundles(kind content.Kind) []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var out []string
	for _, b := range r.bundles {
		if b.Kind == kind {
			out = append(out, b.Bundle)
		}
	}
	sort.Strings(out)
	return out
}

// Kinds lists every kind with at least one registered bundle.
func (r *Registry) Kinds() []content.Kind {
	r.mu.RLock()
	defer r.mu.RUnlock()

	seen := map[content.Kind]struct{}{}
	var out []content.Kind
	for _, b := range r.bundles {
		if _, ok := seen[b.Kind]; ok {
			continue
		}
		seen[b.Kind] = struct{}{}
		out = append(out, b.Kind)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}

// LoadYAML registers every bundle in the document read from r.
func (r *Registry) LoadYAML(reader io.Reader) error {
	var doc Document
	if err := yaml.NewDecoder(reader).Decode(&doc); err != nil {
		if errors.Is(err, io.EOF) {
			return nil
		}
		return fmt.Errorf("schema: decode yaml: %w", err)
	}
	return r.RegisterAll(doc.Bundles)
}

// RegisterAll validates the declarations as a document, then registers
// bundles in order, stopping at the first invalid one.
func (r *Registry) RegisterAll(bundles []content.BundleSchema) error {
	if err := ValidateDocument(Document{Bundles: bundles}); err != nil {
		return err
	}
	for _, b := range bundles {
		if err := r.Register(b); err != nil {
			return fmt.Errorf("schema: bundle %s:%s: %w", b.Kind, b.Bundle, err)
		}
	}
	return nil
}

func normalize(bundle content.BundleSchema) (*content.BundleSchema, error) {
	bundle.Kind = content.ParseKind(string(bundle.Kind))
	bundle.Bundle = strings.TrimSpace(bundle.Bundle)
	if bundle.Kind == "" {
		return nil, ErrKindRequired
	}
	if bundle.Bundle == "" {
		return nil, ErrBundleRequired
	}

	seen := map[string]struct{}{}
	fields := make([]content.FieldSchema, 0, len(bundle.Fields))
	for _, f := range bundle.Fields {
		f.Name = strings.TrimSpace(f.Name)
		switch {
		case f.Name == "":
			return nil, ErrFieldNameRequired
		case f.Name == "title":
			return nil, fmt.Errorf("%w: %s", ErrFieldNameReserved, f.Name)
		case strings.ContainsAny(f.Name, ".:"):
			return nil, fmt.Errorf("%w: %s", ErrFieldNameMalformed, f.Name)
		}
		if _, dup := seen[f.Name]; dup {
			return nil, fmt.Errorf("%w: %s", ErrFieldDuplicate, f.Name)
		}
		seen[f.Name] = struct{}{}

		switch f.Kind {
		case content.FieldPlainText, content.FieldRichText:
		case content.FieldReference:
			if f.TargetKind == "" {
				f.TargetKind = content.KindEmbedded
			}
		default:
			return nil, fmt.Errorf("%w: %q", ErrFieldKindUnknown, f.Kind)
		}
		fields = append(fields, f)
	}
	bundle.Fields = fields
	return &bundle, nil
}

func clone(src *content.BundleSchema) *content.BundleSchema {
	copied := *src
	copied.Fields = append([]content.FieldSchema(nil), src.Fields...)
	return &copied
}

func key(kind content.Kind, bundle string) string {
	return string(kind) + ":" + bundle
}
