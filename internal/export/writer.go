package export

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/goliatone/go-cms-replace/internal/logging"
	"github.com/goliatone/go-cms-replace/internal/search"
	"github.com/goliatone/go-cms-replace/pkg/interfaces"
	urlkit "github.com/goliatone/go-urlkit"
)

// ModifiedLayout formats the Modified column.
const ModifiedLayout = "2006-01-02 15:04:05"

var ErrWriterRequired = errors.New("export: writer required")

// bom marks the output as UTF-8 for spreadsheet applications.
var bom = []byte{0xEF, 0xBB, 0xBF}

// Header lists the exported columns in order.
var Header = []string{"EntityType", "ContentType", "ID", "Title", "Language", "Field", "Extract", "Status", "Modified", "URL"}

// Options configures one export.
type Options struct {
	// URLGroup is the dotted route group path, e.g. "public.fr".
	URLGroup string
	// BaseURL replaces the base URL of the route groups.
	BaseURL string
}

// Writer renders search items as CSV rows.
type Writer struct {
	markdown *MarkdownRenderer
	urls     *URLResolver
	logger   interfaces.Logger
	defaults Options
}

type WriterOption func(*Writer)

func WithLogger(logger interfaces.Logger) WriterOption {
	return func(w *Writer) {
		if logger != nil {
			w.logger = logger
		}
	}
}

// WithDefaults sets options used when a call leaves them empty.
func WithDefaults(opts Options) WriterOption {
	return func(w *Writer) {
		w.defaults = opts
	}
}

// WithRoutes sets the go-urlkit routes rows link to. Route names are record
// kinds.
func WithRoutes(cfg *urlkit.Config) WriterOption {
	return func(w *Writer) {
		if cfg != nil {
			w.urls = NewURLResolver(cfg)
		}
	}
}

func NewWriter(opts ...WriterOption) *Writer {
	w := &Writer{
		markdown: NewMarkdownRenderer(),
		urls:     NewURLResolver(nil),
		logger:   logging.NoOp(),
		defaults: Options{URLGroup: DefaultURLGroup},
	}
	for _, opt := range opts {
		if opt != nil {
			opt(w)
		}
	}
	return w
}

// WriteCSV writes the BOM, the header and one row per item.
func (w *Writer) WriteCSV(out io.Writer, items []search.Item, opts Options) error {
	if out == nil {
		return ErrWriterRequired
	}
	if strings.TrimSpace(opts.URLGroup) == "" {
		opts.URLGroup = w.defaults.URLGroup
	}
	if opts.BaseURL == "" {
		opts.BaseURL = w.defaults.BaseURL
	}

	if _, err := out.Write(bom); err != nil {
		return fmt.Errorf("export: write bom: %w", err)
	}
	writer := csv.NewWriter(out)
	if err := writer.Write(Header); err != nil {
		return fmt.Errorf("export: write header: %w", err)
	}
	for _, item := range items {
		if err := writer.Write(w.row(item, opts)); err != nil {
			return fmt.Errorf("export: write row %s: %w", item.RecordID, err)
		}
	}
	writer.Flush()
	if err := writer.Error(); err != nil {
		return fmt.Errorf("export: flush: %w", err)
	}
	w.logger.Debug("export.csv.written", "rows", len(items))
	return nil
}

func (w *Writer) row(item search.Item, opts Options) []string {
	contentType := item.BundleLabel
	if contentType == "" {
		contentType = item.Bundle
	}
	return []string{
		string(item.Kind),
		contentType,
		item.RecordID.String(),
		item.Title,
		item.Langcode,
		item.FieldLabel,
		w.Extract(item.FieldKind, item.Format, item.Text),
		item.Status.Label(),
		formatModified(item.UpdatedAt),
		w.URL(item, opts),
	}
}

// URL links item through the configured routes. Items without a route get
// an empty URL.
func (w *Writer) URL(item search.Item, opts Options) string {
	url, err := w.urls.Resolve(opts.URLGroup, opts.BaseURL, item)
	if err != nil {
		w.logger.Warn("export.url.unresolved", "record_id", item.RecordID, "kind", item.Kind, "group", opts.URLGroup, "error", err)
		return ""
	}
	return url
}

func formatModified(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.UTC().Format(ModifiedLayout)
}

// WriteCSV exports items with a default writer.
func WriteCSV(out io.Writer, items []search.Item, opts Options) error {
	return NewWriter().WriteCSV(out, items, opts)
}
