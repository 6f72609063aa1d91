package walker

import (
	"github.com/goliatone/go-cms-replace/content"
	"github.com/google/uuid"
)

type visitKey struct {
	id       uuid.UUID
	langcode string
}

// Traversal carries state shared by every walk of one operation: the visited
// set guarding against cycles and shared components, loaded components so
// setters mutate a single in-memory copy, schema lookups and the components
// modified through setters.
type Traversal struct {
	visited    map[visitKey]struct{}
	components map[uuid.UUID]*content.Record
	schemas    map[string]*content.BundleSchema
	dirty      map[uuid.UUID]*content.Record
	dirtyOrder []uuid.UUID
}

// NewTraversal returns empty traversal state.
func NewTraversal() *Traversal {
	return &Traversal{
		visited:    map[visitKey]struct{}{},
		components: map[uuid.UUID]*content.Record{},
		schemas:    map[string]*content.BundleSchema{},
		dirty:      map[uuid.UUID]*content.Record{},
	}
}

// visit marks the record/language pair and reports whether it was new.
func (t *Traversal) visit(id uuid.UUID, langcode string) bool {
	key := visitKey{id: id, langcode: langcode}
	if _, seen := t.visited[key]; seen {
		return false
	}
	t.visited[key] = struct{}{}
	return true
}

// Visited reports whether the record was already walked in the language.
func (t *Traversal) Visited(id uuid.UUID, langcode string) bool {
	_, seen := t.visited[visitKey{id: id, langcode: content.NormalizeLangcode(langcode)}]
	return seen
}

func (t *Traversal) markDirty(rec *content.Record) {
	if rec == nil {
		return
	}
	if _, ok := t.dirty[rec.ID]; ok {
		return
	}
	t.dirty[rec.ID] = rec
	t.dirtyOrder = append(t.dirtyOrder, rec.ID)
}

// DirtyComponents returns the embedded components changed through setters
// since the last call, in first-modified order, and resets the list.
func (t *Traversal) DirtyComponents() []*content.Record {
	if len(t.dirtyOrder) == 0 {
		return nil
	}
	out := make([]*content.Record, 0, len(t.dirtyOrder))
	for _, id := range t.dirtyOrder {
		out = append(out, t.dirty[id])
	}
	t.dirty = map[uuid.UUID]*content.Record{}
	t.dirtyOrder = nil
	return out
}
