package search

import (
	"errors"
	"fmt"
	"time"

	"github.com/goliatone/go-cms-replace/content"
	"github.com/goliatone/go-cms-replace/domain"
	"github.com/google/uuid"
)

// DefaultPageSize is used when a request does not set one.
const DefaultPageSize = 50

// DefaultKinds are searched when a request names no kinds. Embedded
// components are reached through their owners instead.
var DefaultKinds = []content.Kind{
	content.KindPrimary,
	content.KindTaxonomyTerm,
	content.KindUserProfile,
	content.KindBlock,
}

var (
	ErrStoreRequired  = errors.New("search: record store required")
	ErrSchemaRequired = errors.New("search: schema provider required")
)

// Filter narrows the records an operation visits. IDs, when set, replace the
// kind and bundle query.
type Filter struct {
	Kinds   []content.Kind
	Bundles []string
	IDs     []content.RecordRef
}

// Request describes one search.
type Request struct {
	Term          string
	IsRegex       bool
	CaseSensitive bool
	Kinds         []content.Kind
	Bundles       []string
	// Langcode restricts the search to one language. Empty searches every
	// translation.
	Langcode string
	// Page is zero based.
	Page     int
	PageSize int
	// Unpaged returns every item regardless of Page and PageSize.
	Unpaged bool
	IDs     []content.RecordRef
}

// Filter returns the record filter of the request.
func (r Request) Filter() Filter {
	return Filter{Kinds: r.Kinds, Bundles: r.Bundles, IDs: r.IDs}
}

// Item is one matching field of one record translation. Multi-value fields
// are reported once with the matches of every value summed.
type Item struct {
	RecordID    uuid.UUID         `json:"record_id"`
	Kind        content.Kind      `json:"kind"`
	Bundle      string            `json:"bundle"`
	BundleLabel string            `json:"bundle_label"`
	Title       string            `json:"title"`
	Field       string            `json:"field"`
	FieldLabel  string            `json:"field_label"`
	FieldKind   content.FieldKind `json:"field_kind"`
	Format      string            `json:"format,omitempty"`
	Context     string            `json:"context"`
	Matches     int               `json:"matches"`
	Status      domain.Status     `json:"status"`
	UpdatedAt   time.Time         `json:"updated_at"`
	Langcode    string            `json:"langcode"`
	Nested      bool              `json:"nested,omitempty"`
	// Text is the first matching value, unrendered.
	Text string `json:"-"`
}

// SelectionKey returns the key used to opt this item into a selective replace.
func (i Item) SelectionKey() string {
	return content.SelectionKey(i.Kind, i.RecordID, i.Field, i.Langcode)
}

// Ref returns the owning record reference.
func (i Item) Ref() content.RecordRef {
	return content.RecordRef{Kind: i.Kind, ID: i.RecordID}
}

// Warning describes a record that was skipped.
type Warning struct {
	Record   content.RecordRef `json:"record"`
	Langcode string            `json:"langcode,omitempty"`
	Message  string            `json:"message"`
}

func (w Warning) String() string {
	if w.Record.ID == uuid.Nil {
		return w.Message
	}
	if w.Langcode != "" {
		return fmt.Sprintf("%s (%s): %s", w.Record, w.Langcode, w.Message)
	}
	return fmt.Sprintf("%s: %s", w.Record, w.Message)
}

// Result is a page of items. Total counts every item before pagination and
// TotalMatches sums the matches of every item.
type Result struct {
	Items        []Item    `json:"items"`
	Total        int       `json:"total"`
	TotalMatches int       `json:"total_matches"`
	Page         int       `json:"page"`
	PageSize     int       `json:"page_size"`
	Warnings     []Warning `json:"warnings,omitempty"`
}
