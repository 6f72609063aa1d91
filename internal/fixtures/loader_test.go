package fixtures_test

import (
	"context"
	"errors"
	"testing"
	"testing/fstest"
	"time"

	"github.com/goliatone/go-cms-replace/content"
	"github.com/goliatone/go-cms-replace/domain"
	"github.com/goliatone/go-cms-replace/internal/fixtures"
	"github.com/goliatone/go-cms-replace/internal/identity"
)

var fixedNow = time.Date(2024, 6, 1, 9, 0, 0, 0, time.UTC)

func testFS() fstest.MapFS {
	return fstest.MapFS{
		"site/about.md": {Data: []byte(`---
kind: node
bundle: article
title: About Acme
updated: 2024-05-01T12:00:00Z
fields:
  tags: [alpha, beta]
  summary:
    text: "<p>Acme summary</p>"
    format: html
refs:
  components: [blocks/intro, "paragraph:blocks/missing"]
---
# Hello

Acme builds things.
`)},
		"site/about.fr.md": {Data: []byte(`---
kind: node
bundle: article
langcode: fr
title: A propos
---
Bonjour Acme.
`)},
		"site/blocks/intro.md": {Data: []byte(`---
kind: paragraph
bundle: text_block
fields:
  text: Made by Acme
---
`)},
		"site/notes.txt": {Data: []byte("ignored")},
	}
}

func TestLoadDirectoryMergesTranslationsAndResolvesRefs(t *testing.T) {
	loader := fixtures.NewLoader(testFS(), fixtures.LoaderConfig{
		DefaultLocale: "en",
		Recursive:     true,
		Now:           func() time.Time { return fixedNow },
	})

	records, err := loader.LoadDirectory(context.Background(), "site")
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if len(records) != 2 {
		t.Fatalf("expected 2 records, got %d", len(records))
	}

	// Sorted by kind: node before paragraph.
	article, block := records[0], records[1]
	if article.ID != identity.RecordUUID("node", "about") || article.Bundle != "article" {
		t.Fatalf("unexpected article %+v", article)
	}
	if article.Status != domain.StatusPublished || article.DefaultLangcode != "en" {
		t.Fatalf("unexpected defaults %s/%s", article.Status, article.DefaultLangcode)
	}
	if len(article.Translations) != 2 || article.Translations["fr"].Title != "A propos" {
		t.Fatalf("expected merged french translation, got %+v", article.Translations)
	}

	en := article.Translations["en"]
	if !en.UpdatedAt.Equal(time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)) {
		t.Fatalf("unexpected updated stamp %s", en.UpdatedAt)
	}
	body := en.Fields[fixtures.BodyField]
	if len(body) != 1 || body[0].Format != content.FormatMarkdown || body[0].Text != "# Hello\n\nAcme builds things." {
		t.Fatalf("unexpected body %+v", body)
	}
	if tags := en.Fields["tags"]; len(tags) != 2 || tags[1].Text != "beta" || tags[1].Kind != content.FieldPlainText {
		t.Fatalf("unexpected tags %+v", tags)
	}
	if summary := en.Fields["summary"]; len(summary) != 1 || summary[0].Kind != content.FieldRichText || summary[0].Format != content.FormatHTML {
		t.Fatalf("unexpected summary %+v", summary)
	}
	refs := en.Fields["components"]
	if len(refs) != 2 || refs[0].TargetID != block.ID || refs[0].TargetKind != content.KindEmbedded {
		t.Fatalf("expected first component to point at the intro block, got %+v", refs)
	}
	if refs[1].TargetID != identity.RecordUUID("paragraph", "blocks/missing") {
		t.Fatalf("unexpected dangling ref %+v", refs[1])
	}

	if block.Kind != content.KindEmbedded || block.Translations["en"].Fields["text"][0].Text != "Made by Acme" {
		t.Fatalf("unexpected block %+v", block)
	}
	if !block.UpdatedAt.Equal(fixedNow) {
		t.Fatalf("expected clock fallback, got %s", block.UpdatedAt)
	}
}

func TestLoadDirectoryWithoutRecursion(t *testing.T) {
	loader := fixtures.NewLoader(testFS(), fixtures.LoaderConfig{Now: func() time.Time { return fixedNow }})
	records, err := loader.LoadDirectory(context.Background(), "site")
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if len(records) != 1 || records[0].Kind != content.KindPrimary {
		t.Fatalf("expected only the top level article, got %d records", len(records))
	}
}

func TestLoadFileValidatesHeader(t *testing.T) {
	fsys := fstest.MapFS{
		"plain.md":    {Data: []byte("no front matter here")},
		"nokind.md":   {Data: []byte("---\nbundle: article\n---\nbody")},
		"badfield.md": {Data: []byte("---\nkind: node\nbundle: article\nfields:\n  nested: [[a]]\n---\n")},
		"explicit.md": {Data: []byte("---\nid: 00000000-0000-0000-0000-00000000a001\nkind: node\nbundle: page\n---\n")},
	}
	loader := fixtures.NewLoader(fsys, fixtures.LoaderConfig{Now: func() time.Time { return fixedNow }})
	ctx := context.Background()

	if _, err := loader.LoadFile(ctx, "plain.md"); !errors.Is(err, fixtures.ErrHeaderMissing) {
		t.Fatalf("expected ErrHeaderMissing, got %v", err)
	}
	if _, err := loader.LoadFile(ctx, "nokind.md"); !errors.Is(err, fixtures.ErrKindRequired) {
		t.Fatalf("expected ErrKindRequired, got %v", err)
	}
	if _, err := loader.LoadFile(ctx, "badfield.md"); !errors.Is(err, fixtures.ErrFieldValueInvalid) {
		t.Fatalf("expected ErrFieldValueInvalid, got %v", err)
	}
	rec, err := loader.LoadFile(ctx, "explicit.md")
	if err != nil {
		t.Fatalf("load explicit: %v", err)
	}
	if rec.ID.String() != "00000000-0000-0000-0000-00000000a001" {
		t.Fatalf("expected explicit id, got %s", rec.ID)
	}
	if _, ok := rec.Translations["en"].Fields[fixtures.BodyField]; ok {
		t.Fatalf("empty body must not produce a field")
	}
}
