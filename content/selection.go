package content

import (
	"errors"
	"strings"

	"github.com/google/uuid"
)

// ErrSelectionKeyMalformed is returned when a selection key cannot be parsed.
var ErrSelectionKeyMalformed = errors.New("content: malformed selection key")

// SelectionKey identifies the occurrences of one field of one record
// translation: kind:id:field:langcode. Field is the walker key, so nested
// component fields carry their full path.
func SelectionKey(kind Kind, id uuid.UUID, field, langcode string) string {
	return strings.Join([]string{string(kind), id.String(), field, NormalizeLangcode(langcode)}, ":")
}

// SelectionTarget is a parsed selection key.
type SelectionTarget struct {
	Kind     Kind
	ID       uuid.UUID
	Field    string
	Langcode string
}

// ParseSelectionKey splits a key produced by SelectionKey.
func ParseSelectionKey(key string) (SelectionTarget, error) {
	parts := strings.Split(strings.TrimSpace(key), ":")
	if len(parts) != 4 || parts[0] == "" || parts[2] == "" {
		return SelectionTarget{}, ErrSelectionKeyMalformed
	}
	id, err := uuid.Parse(parts[1])
	if err != nil {
		return SelectionTarget{}, ErrSelectionKeyMalformed
	}
	return SelectionTarget{Kind: Kind(parts[0]), ID: id, Field: parts[2], Langcode: parts[3]}, nil
}

// Selection is the set of keys opted into a selective replace. Only keys
// mapped to true are eligible.
type Selection map[string]bool

// NewSelection builds a selection from keys.
func NewSelection(keys ...string) Selection {
	sel := make(Selection, len(keys))
	for _, key := range keys {
		if key = strings.TrimSpace(key); key != "" {
			sel[key] = true
		}
	}
	return sel
}

// Enabled reports whether at least one key is selected.
func (s Selection) Enabled() bool {
	for _, on := range s {
		if on {
			return true
		}
	}
	return false
}

// Has reports whether key is selected.
func (s Selection) Has(key string) bool {
	return s[key]
}

// Refs returns the distinct records named by selected keys, in key order.
// Malformed keys are ignored.
func (s Selection) Refs() []RecordRef {
	keys := make([]string, 0, len(s))
	for key, on := range s {
		if on {
			keys = append(keys, key)
		}
	}
	sortStrings(keys)
	seen := map[RecordRef]struct{}{}
	var out []RecordRef
	for _, key := range keys {
		target, err := ParseSelectionKey(key)
		if err != nil {
			continue
		}
		ref := RecordRef{Kind: target.Kind, ID: target.ID}
		if _, ok := seen[ref]; ok {
			continue
		}
		seen[ref] = struct{}{}
		out = append(out, ref)
	}
	return out
}
