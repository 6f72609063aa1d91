package fixtures

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"path"
	"sort"
	"strings"
	"time"

	"github.com/goliatone/go-cms-replace/content"
	"github.com/goliatone/go-cms-replace/domain"
	"github.com/goliatone/go-cms-replace/internal/identity"
	"github.com/goliatone/go-cms-replace/internal/logging"
	"github.com/goliatone/go-cms-replace/pkg/interfaces"
	"github.com/google/uuid"
)

// BodyField receives the Markdown body of a document.
const BodyField = "body"

var (
	ErrKindRequired     = errors.New("fixtures: kind required")
	ErrBundleRequired   = errors.New("fixtures: bundle required")
	ErrBundleConflict   = errors.New("fixtures: translations disagree on kind or bundle")
	ErrReferenceInvalid = errors.New("fixtures: invalid reference")
)

// LoaderConfig configures document discovery.
type LoaderConfig struct {
	// DefaultLocale applies to documents without a langcode.
	DefaultLocale string
	// Pattern filters file names (defaults to "*.md").
	Pattern string
	// Recursive walks sub-directories.
	Recursive bool
	// Now stamps documents without an updated date.
	Now func() time.Time
	Logger interfaces.Logger
}

// Loader turns Markdown documents into content records. Documents sharing a
// key (or id) become translations of one record.
type Loader struct {
	fs            fs.FS
	defaultLocale string
	pattern       string
	recursive     bool
	now           func() time.Time
	logger        interfaces.Logger
}

func NewLoader(filesystem fs.FS, cfg LoaderConfig) *Loader {
	pattern := strings.TrimSpace(cfg.Pattern)
	if pattern == "" {
		pattern = "*.md"
	}
	locale := content.NormalizeLangcode(cfg.DefaultLocale)
	if locale == "" {
		locale = "en"
	}
	now := cfg.Now
	if now == nil {
		now = time.Now
	}
	logger := cfg.Logger
	if logger == nil {
		logger = logging.NoOp()
	}
	return &Loader{
		fs:            filesystem,
		defaultLocale: locale,
		pattern:       pattern,
		recursive:     cfg.Recursive,
		now:           now,
		logger:        logger,
	}
}

// LoadDirectory reads every matching document under dir and returns the
// merged records sorted by kind then id.
func (l *Loader) LoadDirectory(ctx context.Context, dir string) ([]*content.Record, error) {
	root := path.Clean(strings.TrimPrefix(dir, "/"))
	if root == "" {
		root = "."
	}

	var paths []string
	err := fs.WalkDir(l.fs, root, func(p string, d fs.DirEntry, walkErr error) error {
		if walkErr != nil {
			return walkErr
		}
		if err := ctx.Err(); err != nil {
			return err
		}
		if d.IsDir() {
			if p != root && !l.recursive {
				return fs.SkipDir
			}
			return nil
		}
		if ok, _ := path.Match(l.pattern, path.Base(p)); ok {
			paths = append(paths, p)
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("fixtures: walk %s: %w", root, err)
	}
	sort.Strings(paths)

	records := map[uuid.UUID]*content.Record{}
	for _, p := range paths {
		rel := p
		if root != "." {
			rel = strings.TrimPrefix(p, root+"/")
		}
		rec, err := l.load(ctx, p, rel)
		if err != nil {
			return nil, err
		}
		if err := merge(records, rec); err != nil {
			return nil, fmt.Errorf("fixtures: %s: %w", p, err)
		}
	}

	out := make([]*content.Record, 0, len(records))
	for _, rec := range records {
		if rec.DefaultLangcode == "" {
			rec.DefaultLangcode = rec.Langcodes()[0]
		}
		out = append(out, rec)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Kind != out[j].Kind {
			return out[i].Kind < out[j].Kind
		}
		return out[i].ID.String() < out[j].ID.String()
	})
	l.logger.Info("fixtures.loaded", "documents", len(paths), "records", len(out))
	return out, nil
}

// LoadFile parses one document into a single-translation record keyed by
// its path.
func (l *Loader) LoadFile(ctx context.Context, p string) (*content.Record, error) {
	rec, err := l.load(ctx, p, p)
	if err != nil {
		return nil, err
	}
	if rec.DefaultLangcode == "" {
		rec.DefaultLangcode = rec.Langcodes()[0]
	}
	return rec, nil
}

func (l *Loader) load(ctx context.Context, p, key string) (*content.Record, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	data, err := fs.ReadFile(l.fs, p)
	if err != nil {
		return nil, fmt.Errorf("fixtures: read %s: %w", p, err)
	}
	header, body, err := ParseDocument(data)
	if err != nil {
		return nil, fmt.Errorf("fixtures: %s: %w", p, err)
	}
	modified := header.Updated
	if modified.IsZero() {
		if info, statErr := fs.Stat(l.fs, p); statErr == nil && !info.ModTime().IsZero() {
			modified = info.ModTime()
		} else {
			modified = l.now()
		}
	}
	rec, err := l.build(key, header, body, modified.UTC())
	if err != nil {
		return nil, fmt.Errorf("fixtures: %s: %w", p, err)
	}
	return rec, nil
}

func (l *Loader) build(key string, header Header, body []byte, modified time.Time) (*content.Record, error) {
	if header.Kind == "" {
		return nil, ErrKindRequired
	}
	if header.Bundle == "" {
		return nil, ErrBundleRequired
	}
	kind := content.ParseKind(header.Kind)
	langcode := content.NormalizeLangcode(header.Langcode)
	if langcode == "" {
		langcode = l.defaultLocale
	}

	id, err := recordID(kind, header, documentKey(key, langcode))
	if err != nil {
		return nil, err
	}

	fields := map[string][]content.FieldValue{}
	for name, values := range header.Fields {
		fields[name] = append([]content.FieldValue(nil), values...)
	}
	if len(body) > 0 {
		format := header.Format
		if strings.TrimSpace(format) == "" {
			format = content.FormatMarkdown
		}
		fields[BodyField] = append(fields[BodyField], content.RichText(string(body), format))
	}
	for name, targets := range header.Refs {
		for _, target := range targets {
			ref, err := resolveRef(target)
			if err != nil {
				return nil, err
			}
			fields[name] = append(fields[name], content.Reference(ref.ID, ref.Kind))
		}
	}

	status := domain.StatusPublished
	if strings.TrimSpace(header.Status) != "" {
		status = domain.NormalizeStatus(header.Status)
	}
	// Records whose documents never claim the default language fall back to
	// their first language once merged.
	defaultLang := ""
	if header.Default || langcode == l.defaultLocale {
		defaultLang = langcode
	}
	return &content.Record{
		ID:              id,
		Kind:            kind,
		Bundle:          header.Bundle,
		Status:          status,
		DefaultLangcode: defaultLang,
		CreatedAt:       modified,
		UpdatedAt:       modified,
		Translations: map[string]*content.Translation{
			langcode: {Langcode: langcode, Title: header.Title, Fields: fields, UpdatedAt: modified},
		},
	}, nil
}

// documentKey strips the extension and a trailing language suffix, so
// "about.fr.md" and "about.md" describe the same record.
func documentKey(p, langcode string) string {
	key := strings.TrimSuffix(p, path.Ext(p))
	return strings.TrimSuffix(key, "."+langcode)
}

func recordID(kind content.Kind, header Header, fallbackKey string) (uuid.UUID, error) {
	if raw := strings.TrimSpace(header.ID); raw != "" {
		id, err := uuid.Parse(raw)
		if err != nil {
			return uuid.Nil, fmt.Errorf("fixtures: invalid id %q: %w", raw, err)
		}
		return id, nil
	}
	key := strings.TrimSpace(header.Key)
	if key == "" {
		key = fallbackKey
	}
	return identity.RecordUUID(string(kind), key), nil
}

// resolveRef accepts "<uuid>", "<kind>:<uuid>", "<key>" or "<kind>:<key>".
// Kind defaults to embedded components.
func resolveRef(target string) (content.RecordRef, error) {
	target = strings.TrimSpace(target)
	if target == "" {
		return content.RecordRef{}, ErrReferenceInvalid
	}
	kind := content.KindEmbedded
	key := target
	if prefix, rest, ok := strings.Cut(target, ":"); ok && !strings.Contains(prefix, "/") {
		kind = content.ParseKind(prefix)
		key = strings.TrimSpace(rest)
	}
	if key == "" {
		return content.RecordRef{}, fmt.Errorf("%w: %q", ErrReferenceInvalid, target)
	}
	if id, err := uuid.Parse(key); err == nil {
		return content.RecordRef{Kind: kind, ID: id}, nil
	}
	return content.RecordRef{Kind: kind, ID: identity.RecordUUID(string(kind), key)}, nil
}

func merge(records map[uuid.UUID]*content.Record, rec *content.Record) error {
	existing, ok := records[rec.ID]
	if !ok {
		records[rec.ID] = rec
		return nil
	}
	if existing.Kind != rec.Kind || existing.Bundle != rec.Bundle {
		return ErrBundleConflict
	}
	for code, tr := range rec.Translations {
		existing.Translations[code] = tr
	}
	if existing.DefaultLangcode == "" {
		existing.DefaultLangcode = rec.DefaultLangcode
	}
	if rec.UpdatedAt.After(existing.UpdatedAt) {
		existing.UpdatedAt = rec.UpdatedAt
	}
	if rec.CreatedAt.Before(existing.CreatedAt) {
		existing.CreatedAt = rec.CreatedAt
	}
	return nil
}
