package walker

import (
	"errors"
	"strings"

	"github.com/goliatone/go-cms-replace/content"
	"github.com/google/uuid"
)

// TitleField is the key reported for record titles.
const TitleField = "title"

// DefaultMaxDepth caps nested component recursion.
const DefaultMaxDepth = 8

var (
	ErrSchemaRequired = errors.New("walker: schema provider required")
	ErrRecordRequired = errors.New("walker: record required")
)

// Field is one text-bearing value yielded by a walk. Key is the machine path
// (nested values are prefixed with the reference field and component id) and
// Label is the human breadcrumb.
type Field struct {
	Key      string
	Name     string
	Label    string
	Index    int
	Text     string
	Kind     content.FieldKind
	Format   string
	Langcode string
	Depth    int
	// Owner is the record that stores the value, the walked record itself or
	// an embedded component reached through it.
	Owner *content.Record

	set func(string)
}

// Set writes text back into the owning record held in memory. Nothing is
// persisted.
func (f Field) Set(text string) {
	if f.set != nil {
		f.set(text)
	}
}

// Nested reports whether the value lives in an embedded component.
func (f Field) Nested() bool {
	return f.Depth > 0
}

func joinKey(prefix, name string) string {
	if prefix == "" {
		return name
	}
	return prefix + "." + name
}

func componentKey(prefix, refField string, id uuid.UUID) string {
	return joinKey(prefix, refField+"."+id.String())
}

func joinLabel(parts ...string) string {
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if strings.TrimSpace(p) != "" {
			out = append(out, p)
		}
	}
	return strings.Join(out, " > ")
}
