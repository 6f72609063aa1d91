package content

import (
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/goliatone/go-cms-replace/domain"
	"github.com/google/uuid"
)

// Kind tags the variant of a content record.
type Kind string

const (
	// KindPrimary identifies top level editorial content (articles, pages).
	KindPrimary Kind = "node"
	// KindEmbedded identifies nested components composed inline through reference fields.
	KindEmbedded Kind = "paragraph"
	// KindTaxonomyTerm identifies vocabulary terms.
	KindTaxonomyTerm Kind = "taxonomy_term"
	// KindUserProfile identifies user profile records.
	KindUserProfile Kind = "user"
	// KindBlock identifies reusable custom blocks.
	KindBlock Kind = "block_content"
)

// ParseKind normalises a kind identifier.
func ParseKind(value string) Kind {
	return Kind(strings.ToLower(strings.TrimSpace(value)))
}

// FieldKind describes the storage shape of a field value.
type FieldKind string

const (
	FieldPlainText FieldKind = "plain_text"
	FieldRichText  FieldKind = "rich_text"
	FieldReference FieldKind = "reference"
)

// Searchable reports whether values of this kind carry text that can be matched.
func (k FieldKind) Searchable() bool {
	return k == FieldPlainText || k == FieldRichText
}

// Rich text formats understood by exports.
const (
	FormatHTML     = "html"
	FormatMarkdown = "markdown"
)

// FieldValue is a tagged union over plain text, rich text and references.
// Only text values are matched; references are edges followed by the walker.
type FieldValue struct {
	Kind       FieldKind `json:"kind"`
	Text       string    `json:"text,omitempty"`
	Format     string    `json:"format,omitempty"`
	TargetID   uuid.UUID `json:"target_id,omitempty"`
	TargetKind Kind      `json:"target_kind,omitempty"`
}

// PlainText builds a plain text value.
func PlainText(text string) FieldValue {
	return FieldValue{Kind: FieldPlainText, Text: text}
}

// RichText builds a rich text value in the supplied format (html when empty).
func RichText(text, format string) FieldValue {
	if strings.TrimSpace(format) == "" {
		format = FormatHTML
	}
	return FieldValue{Kind: FieldRichText, Text: text, Format: format}
}

// Reference builds an edge to another record.
func Reference(target uuid.UUID, kind Kind) FieldValue {
	return FieldValue{Kind: FieldReference, TargetID: target, TargetKind: kind}
}

// Translation is one language variant of a record.
type Translation struct {
	Langcode  string                  `json:"langcode"`
	Title     string                  `json:"title"`
	Fields    map[string][]FieldValue `json:"fields,omitempty"`
	UpdatedAt time.Time               `json:"updated_at"`
}

// Record is a polymorphic content entity with one translation per language.
type Record struct {
	ID              uuid.UUID               `json:"id"`
	Kind            Kind                    `json:"kind"`
	Bundle          string                  `json:"bundle"`
	Status          domain.Status           `json:"status"`
	DefaultLangcode string                  `json:"default_langcode"`
	Translations    map[string]*Translation `json:"translations"`
	CreatedAt       time.Time               `json:"created_at"`
	UpdatedAt       time.Time               `json:"updated_at"`
}

// Ref returns the stable reference for the record.
func (r *Record) Ref() RecordRef {
	if r == nil {
		return RecordRef{}
	}
	return RecordRef{Kind: r.Kind, ID: r.ID}
}

// Translation resolves a language variant.
func (r *Record) Translation(langcode string) (*Translation, bool) {
	if r == nil || r.Translations == nil {
		return nil, false
	}
	tr, ok := r.Translations[NormalizeLangcode(langcode)]
	return tr, ok && tr != nil
}

// Langcodes returns the record languages, default language first then alphabetical.
func (r *Record) Langcodes() []string {
	if r == nil || len(r.Translations) == 0 {
		return nil
	}
	codes := make([]string, 0, len(r.Translations))
	for code, tr := range r.Translations {
		if tr == nil {
			continue
		}
		codes = append(codes, code)
	}
	defaultCode := NormalizeLangcode(r.DefaultLangcode)
	sort.Slice(codes, func(i, j int) bool {
		if codes[i] == defaultCode {
			return codes[j] != defaultCode
		}
		if codes[j] == defaultCode {
			return false
		}
		return codes[i] < codes[j]
	})
	return codes
}

// Title returns the label in the given language, falling back to the default language.
func (r *Record) Title(langcode string) string {
	if tr, ok := r.Translation(langcode); ok {
		return tr.Title
	}
	if tr, ok := r.Translation(r.DefaultLangcode); ok {
		return tr.Title
	}
	return ""
}

// RecordRef identifies a record by kind and id.
type RecordRef struct {
	Kind Kind      `json:"kind"`
	ID   uuid.UUID `json:"id"`
}

func (r RecordRef) String() string {
	return fmt.Sprintf("%s:%s", r.Kind, r.ID)
}

// FieldSchema declares one field of a bundle.
type FieldSchema struct {
	Name       string    `json:"name" yaml:"name"`
	Label      string    `json:"label" yaml:"label"`
	Kind       FieldKind `json:"kind" yaml:"kind"`
	TargetKind Kind      `json:"target_kind,omitempty" yaml:"target_kind,omitempty"`
}

// DisplayLabel returns the label or the machine name when no label was declared.
func (f FieldSchema) DisplayLabel() string {
	if strings.TrimSpace(f.Label) != "" {
		return f.Label
	}
	return f.Name
}

// BundleSchema describes a bundle (subtype) of a record kind.
type BundleSchema struct {
	Kind       Kind          `json:"kind" yaml:"kind"`
	Bundle     string        `json:"bundle" yaml:"bundle"`
	Label      string        `json:"label" yaml:"label"`
	TitleLabel string        `json:"title_label,omitempty" yaml:"title_label,omitempty"`
	Fields     []FieldSchema `json:"fields" yaml:"fields"`
}

// DisplayLabel returns the bundle label or its machine name.
func (b *BundleSchema) DisplayLabel() string {
	if b == nil {
		return ""
	}
	if strings.TrimSpace(b.Label) != "" {
		return b.Label
	}
	return b.Bundle
}

func sortStrings(values []string) {
	sort.Strings(values)
}

// NormalizeLangcode trims and lowercases language codes for comparison.
func NormalizeLangcode(code string) string {
	return strings.ToLower(strings.TrimSpace(code))
}

// CloneRecord returns a deep copy of the record so callers can mutate it freely.
func CloneRecord(src *Record) *Record {
	if src == nil {
		return nil
	}
	copied := *src
	if src.Translations != nil {
		copied.Translations = make(map[string]*Translation, len(src.Translations))
		for code, tr := range src.Translations {
			copied.Translations[code] = CloneTranslation(tr)
		}
	}
	return &copied
}

// CloneTranslation returns a deep copy of the translation.
func CloneTranslation(src *Translation) *Translation {
	if src == nil {
		return nil
	}
	copied := *src
	if src.Fields != nil {
		copied.Fields = make(map[string][]FieldValue, len(src.Fields))
		for name, values := range src.Fields {
			copied.Fields[name] = append([]FieldValue(nil), values...)
		}
	}
	return &copied
}
