package walker_test

import (
	"context"
	"errors"
	"testing"

	"github.com/goliatone/go-cms-replace/content"
	"github.com/goliatone/go-cms-replace/domain"
	recordstore "github.com/goliatone/go-cms-replace/internal/content"
	"github.com/goliatone/go-cms-replace/internal/schema"
	"github.com/goliatone/go-cms-replace/internal/walker"
	"github.com/google/uuid"
)

var (
	articleID  = uuid.MustParse("00000000-0000-0000-0000-00000000a001")
	blockOne   = uuid.MustParse("00000000-0000-0000-0000-00000000b001")
	blockTwo   = uuid.MustParse("00000000-0000-0000-0000-00000000b002")
	quoteID    = uuid.MustParse("00000000-0000-0000-0000-00000000b003")
	danglingID = uuid.MustParse("00000000-0000-0000-0000-00000000dead")
)

func registry() *schema.Registry {
	return schema.MustNewRegistry(
		content.BundleSchema{
			Kind: content.KindPrimary, Bundle: "article", Label: "Article", TitleLabel: "Headline",
			Fields: []content.FieldSchema{
				{Name: "body", Label: "Body", Kind: content.FieldRichText},
				{Name: "tags", Label: "Tags", Kind: content.FieldPlainText},
				{Name: "components", Label: "Components", Kind: content.FieldReference},
			},
		},
		content.BundleSchema{
			Kind: content.KindEmbedded, Bundle: "text_block", Label: "Text block",
			Fields: []content.FieldSchema{
				{Name: "text", Label: "Text", Kind: content.FieldPlainText},
				{Name: "children", Label: "Children", Kind: content.FieldReference},
			},
		},
	)
}

func record(id uuid.UUID, kind content.Kind, bundle string, translations map[string]*content.Translation) *content.Record {
	return &content.Record{
		ID: id, Kind: kind, Bundle: bundle, Status: domain.StatusPublished,
		DefaultLangcode: "en", Translations: translations,
	}
}

func block(id uuid.UUID, text string, children ...uuid.UUID) *content.Record {
	refs := make([]content.FieldValue, 0, len(children))
	for _, child := range children {
		refs = append(refs, content.Reference(child, content.KindEmbedded))
	}
	return record(id, content.KindEmbedded, "text_block", map[string]*content.Translation{
		"en": {Langcode: "en", Fields: map[string][]content.FieldValue{
			"text":     {content.PlainText(text)},
			"children": refs,
		}},
	})
}

func fixture() (*content.Record, *recordstore.MemoryRecordStore) {
	article := record(articleID, content.KindPrimary, "article", map[string]*content.Translation{
		"en": {Langcode: "en", Title: "Needle headline", Fields: map[string][]content.FieldValue{
			"body": {content.RichText("<p>body</p>", content.FormatHTML)},
			"tags": {content.PlainText("alpha"), content.PlainText("beta")},
			"components": {
				content.Reference(blockOne, content.KindEmbedded),
				content.Reference(danglingID, content.KindEmbedded),
				content.Reference(blockTwo, content.KindEmbedded),
			},
		}},
		"fr": {Langcode: "fr", Title: "Titre", Fields: map[string][]content.FieldValue{
			"components": {content.Reference(blockOne, content.KindEmbedded)},
		}},
	})
	first := block(blockOne, "first block")
	first.Translations["fr"] = &content.Translation{Langcode: "fr", Fields: map[string][]content.FieldValue{
		"text": {content.PlainText("premier bloc")},
	}}
	// blockTwo -> quote -> blockTwo forms a cycle.
	store := recordstore.NewMemoryRecordStore(
		first,
		block(blockTwo, "second block", quoteID),
		block(quoteID, "quoted", blockTwo),
	)
	return article, store
}

func collect(t *testing.T, w *walker.Walker, rec *content.Record, langcode string, tr *walker.Traversal) []walker.Field {
	t.Helper()
	var out []walker.Field
	for field, err := range w.Walk(context.Background(), rec, langcode, tr) {
		if err != nil {
			t.Fatalf("walk: %v", err)
		}
		out = append(out, field)
	}
	return out
}

func TestWalkYieldsTitleFirstThenSchemaOrder(t *testing.T) {
	article, store := fixture()
	w := walker.New(registry(), store)

	fields := collect(t, w, article, "en", nil)

	want := []struct{ key, label, text string }{
		{"title", "Headline", "Needle headline"},
		{"body", "Body", "<p>body</p>"},
		{"tags", "Tags", "alpha"},
		{"tags", "Tags", "beta"},
		{"components." + blockOne.String() + ".text", "Text block > Text", "first block"},
		{"components." + blockTwo.String() + ".text", "Text block > Text", "second block"},
		{"components." + blockTwo.String() + ".children." + quoteID.String() + ".text", "Text block > Text block > Text", "quoted"},
	}
	if len(fields) != len(want) {
		t.Fatalf("expected %d fields, got %d: %+v", len(want), len(fields), fields)
	}
	for i, w := range want {
		got := fields[i]
		if got.Key != w.key || got.Label != w.label || got.Text != w.text {
			t.Fatalf("field %d: want %+v, got key=%q label=%q text=%q", i, w, got.Key, got.Label, got.Text)
		}
	}
	if fields[3].Index != 1 {
		t.Fatalf("expected second tag to carry index 1, got %d", fields[3].Index)
	}
	if !fields[6].Nested() || fields[6].Depth != 2 || fields[6].Owner.ID != quoteID {
		t.Fatalf("unexpected nested field %+v", fields[6])
	}
}

func TestWalkIsRestartable(t *testing.T) {
	article, store := fixture()
	seq := walker.New(registry(), store).Walk(context.Background(), article, "en", nil)

	count := func() int {
		n := 0
		for _, err := range seq {
			if err != nil {
				t.Fatalf("walk: %v", err)
			}
			n++
		}
		return n
	}
	first, second := count(), count()
	if first != second || first == 0 {
		t.Fatalf("expected restartable sequence, got %d then %d", first, second)
	}
}

func TestSharedTraversalVisitsComponentsOncePerLanguage(t *testing.T) {
	article, store := fixture()
	w := walker.New(registry(), store)
	tr := walker.NewTraversal()

	_ = collect(t, w, article, "en", tr)
	again := collect(t, w, article, "en", tr)
	if len(again) != 0 {
		t.Fatalf("expected already visited record to yield nothing, got %d", len(again))
	}

	french := collect(t, w, article, "fr", tr)
	if len(french) != 2 {
		t.Fatalf("expected title and first block in french walk, got %d", len(french))
	}
	if !tr.Visited(blockOne, "FR") {
		t.Fatalf("expected block to be marked visited for fr")
	}
}

func TestComponentsWithoutLanguageAreSkipped(t *testing.T) {
	article, store := fixture()
	article.Translations["de"] = &content.Translation{Langcode: "de", Title: "Titel", Fields: map[string][]content.FieldValue{
		"components": {content.Reference(blockOne, content.KindEmbedded)},
	}}

	fields := collect(t, walker.New(registry(), store), article, "de", nil)
	if len(fields) != 1 || fields[0].Key != walker.TitleField {
		t.Fatalf("expected only the title, got %+v", fields)
	}
}

func TestMaxDepthStopsDescent(t *testing.T) {
	article, store := fixture()
	fields := collect(t, walker.New(registry(), store, walker.WithMaxDepth(1)), article, "en", nil)
	for _, f := range fields {
		if f.Depth > 1 {
			t.Fatalf("unexpected field beyond depth cap: %+v", f)
		}
	}
	if len(fields) != 6 {
		t.Fatalf("expected 6 fields with depth cap, got %d", len(fields))
	}
}

func TestSetterMutatesRecordAndTracksComponents(t *testing.T) {
	article, store := fixture()
	w := walker.New(registry(), store)
	tr := walker.NewTraversal()

	for field, err := range w.Walk(context.Background(), article, "en", tr) {
		if err != nil {
			t.Fatalf("walk: %v", err)
		}
		switch field.Key {
		case walker.TitleField:
			field.Set("Changed headline")
		case "tags":
			if field.Index == 1 {
				field.Set("gamma")
			}
		case "components." + blockTwo.String() + ".text":
			field.Set("changed block")
		}
	}

	en := article.Translations["en"]
	if en.Title != "Changed headline" || en.Fields["tags"][1].Text != "gamma" || en.Fields["tags"][0].Text != "alpha" {
		t.Fatalf("unexpected root mutation %+v", en)
	}
	dirty := tr.DirtyComponents()
	if len(dirty) != 1 || dirty[0].ID != blockTwo {
		t.Fatalf("expected blockTwo dirty, got %d", len(dirty))
	}
	if dirty[0].Translations["en"].Fields["text"][0].Text != "changed block" {
		t.Fatalf("expected component mutation to be held in memory")
	}
	if len(tr.DirtyComponents()) != 0 {
		t.Fatalf("expected dirty list to reset")
	}
}

func TestWalkReportsSchemaFailures(t *testing.T) {
	rec := record(articleID, content.KindPrimary, "unknown", map[string]*content.Translation{
		"en": {Langcode: "en", Title: "x"},
	})
	var got error
	for _, err := range walker.New(registry(), recordstore.NewMemoryRecordStore()).Walk(context.Background(), rec, "en", nil) {
		got = err
	}
	if !errors.Is(got, content.ErrBundleNotFound) {
		t.Fatalf("expected bundle error, got %v", got)
	}
}
