package search_test

import (
	"context"
	"errors"
	"math"
	"strings"
	"testing"
	"time"

	"github.com/goliatone/go-cms-replace/content"
	"github.com/goliatone/go-cms-replace/domain"
	recordstore "github.com/goliatone/go-cms-replace/internal/content"
	"github.com/goliatone/go-cms-replace/internal/matcher"
	"github.com/goliatone/go-cms-replace/internal/schema"
	"github.com/goliatone/go-cms-replace/internal/search"
	"github.com/google/uuid"
)

var (
	base       = time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)
	greetingID = uuid.MustParse("00000000-0000-0000-0000-00000000a001")
	parentID   = uuid.MustParse("00000000-0000-0000-0000-00000000a002")
	brokenID   = uuid.MustParse("00000000-0000-0000-0000-00000000a003")
	blockHit   = uuid.MustParse("00000000-0000-0000-0000-00000000b001")
	blockMiss  = uuid.MustParse("00000000-0000-0000-0000-00000000b002")
)

func registry() *schema.Registry {
	return schema.MustNewRegistry(
		content.BundleSchema{
			Kind: content.KindPrimary, Bundle: "article", Label: "Article",
			Fields: []content.FieldSchema{
				{Name: "body", Label: "Body", Kind: content.FieldRichText},
				{Name: "tags", Label: "Tags", Kind: content.FieldPlainText},
				{Name: "components", Label: "Components", Kind: content.FieldReference},
			},
		},
		content.BundleSchema{
			Kind: content.KindEmbedded, Bundle: "text_block", Label: "Text block",
			Fields: []content.FieldSchema{{Name: "text", Label: "Text", Kind: content.FieldPlainText}},
		},
	)
}

func article(id uuid.UUID, bundle, title string, updated time.Time, fields map[string][]content.FieldValue) *content.Record {
	return &content.Record{
		ID: id, Kind: content.KindPrimary, Bundle: bundle, Status: domain.StatusPublished,
		DefaultLangcode: "en", UpdatedAt: updated,
		Translations: map[string]*content.Translation{
			"en": {Langcode: "en", Title: title, Fields: fields, UpdatedAt: updated},
		},
	}
}

func block(id uuid.UUID, text string) *content.Record {
	return &content.Record{
		ID: id, Kind: content.KindEmbedded, Bundle: "text_block", DefaultLangcode: "en",
		Translations: map[string]*content.Translation{
			"en": {Langcode: "en", Fields: map[string][]content.FieldValue{"text": {content.PlainText(text)}}},
		},
	}
}

func fixtureStore() *recordstore.MemoryRecordStore {
	return recordstore.NewMemoryRecordStore(
		article(greetingID, "article", "Greeting", base, map[string][]content.FieldValue{
			"body": {content.RichText("Hello world, hello, HELLO", content.FormatHTML)},
		}),
		article(parentID, "article", "Parent", base.Add(time.Hour), map[string][]content.FieldValue{
			"components": {
				content.Reference(blockHit, content.KindEmbedded),
				content.Reference(blockMiss, content.KindEmbedded),
			},
		}),
		block(blockHit, "say hello from the block"),
		block(blockMiss, "nothing to see"),
	)
}

func TestSearchHonoursCaseSensitivity(t *testing.T) {
	svc := search.NewService(registry(), fixtureStore())
	ids := []content.RecordRef{{Kind: content.KindPrimary, ID: greetingID}}

	insensitive, err := svc.Search(context.Background(), search.Request{Term: "hello", IDs: ids})
	if err != nil {
		t.Fatalf("search: %v", err)
	}
	if insensitive.TotalMatches != 3 || insensitive.Total != 1 {
		t.Fatalf("expected 3 matches in one item, got %d in %d", insensitive.TotalMatches, insensitive.Total)
	}

	sensitive, err := svc.Search(context.Background(), search.Request{Term: "hello", CaseSensitive: true, IDs: ids})
	if err != nil {
		t.Fatalf("search: %v", err)
	}
	if sensitive.TotalMatches != 1 {
		t.Fatalf("expected 1 case-sensitive match, got %d", sensitive.TotalMatches)
	}
}

func TestSearchAttributesNestedMatchesToComponent(t *testing.T) {
	svc := search.NewService(registry(), fixtureStore())

	res, err := svc.Search(context.Background(), search.Request{
		Term: "hello",
		IDs:  []content.RecordRef{{Kind: content.KindPrimary, ID: parentID}},
	})
	if err != nil {
		t.Fatalf("search: %v", err)
	}
	if len(res.Items) != 1 {
		t.Fatalf("expected exactly one item, got %+v", res.Items)
	}
	item := res.Items[0]
	if !strings.HasPrefix(item.FieldLabel, "Text block > ") {
		t.Fatalf("expected component breadcrumb, got %q", item.FieldLabel)
	}
	if item.Field != "components."+blockHit.String()+".text" || !item.Nested {
		t.Fatalf("unexpected nested field %q", item.Field)
	}
	if item.RecordID != parentID || item.Title != "Parent" || item.BundleLabel != "Article" {
		t.Fatalf("expected owning record attribution, got %+v", item)
	}
	if item.SelectionKey() != "node:"+parentID.String()+":components."+blockHit.String()+".text:en" {
		t.Fatalf("unexpected selection key %q", item.SelectionKey())
	}
	if item.Context != "say <strong>hello</strong> from the block" {
		t.Fatalf("unexpected context %q", item.Context)
	}
}

func TestSearchSortsNewestFirstAndPaginates(t *testing.T) {
	store := recordstore.NewMemoryRecordStore()
	var ids []uuid.UUID
	for i := 0; i < 5; i++ {
		id := uuid.MustParse("00000000-0000-0000-0000-00000000c00" + string(rune('1'+i)))
		ids = append(ids, id)
		updated := base
		if i >= 3 {
			updated = base.Add(time.Duration(i) * time.Minute)
		}
		if err := store.Save(context.Background(), article(id, "article", "Doc", updated, map[string][]content.FieldValue{
			"body": {content.RichText("term", content.FormatHTML)},
			"tags": {content.PlainText("term"), content.PlainText("term term")},
		})); err != nil {
			t.Fatalf("seed: %v", err)
		}
	}
	svc := search.NewService(registry(), store, search.WithDefaultPageSize(4))

	all, err := svc.Search(context.Background(), search.Request{Term: "term", Unpaged: true})
	if err != nil {
		t.Fatalf("search: %v", err)
	}
	if all.Total != 10 || all.TotalMatches != 20 {
		t.Fatalf("expected 10 items with 20 matches, got %d/%d", all.Total, all.TotalMatches)
	}
	wantOrder := []uuid.UUID{ids[4], ids[4], ids[3], ids[3], ids[0], ids[0], ids[1], ids[1], ids[2], ids[2]}
	for i, item := range all.Items {
		if item.RecordID != wantOrder[i] {
			t.Fatalf("position %d: want %s, got %s", i, wantOrder[i], item.RecordID)
		}
	}
	if all.Items[0].Field != "body" || all.Items[1].Field != "tags" || all.Items[1].Matches != 3 {
		t.Fatalf("expected walk order and grouped tags, got %+v", all.Items[:2])
	}

	page, err := svc.Search(context.Background(), search.Request{Term: "term", Page: 2})
	if err != nil {
		t.Fatalf("search: %v", err)
	}
	if page.Total != 10 || len(page.Items) != 2 || page.PageSize != 4 {
		t.Fatalf("expected last page with 2 items, got %d (total %d)", len(page.Items), page.Total)
	}
	if page.Items[0].RecordID != ids[2] {
		t.Fatalf("unexpected last page start %s", page.Items[0].RecordID)
	}

	beyond, _ := svc.Search(context.Background(), search.Request{Term: "term", Page: 9})
	if len(beyond.Items) != 0 || beyond.Total != 10 {
		t.Fatalf("expected empty page beyond range, got %d", len(beyond.Items))
	}

	huge, err := svc.Search(context.Background(), search.Request{Term: "term", Page: math.MaxInt, PageSize: 4})
	if err != nil {
		t.Fatalf("search huge page: %v", err)
	}
	if len(huge.Items) != 0 || huge.Total != 10 {
		t.Fatalf("expected empty page for huge page number, got %d", len(huge.Items))
	}
	wide, _ := svc.Search(context.Background(), search.Request{Term: "term", Page: 1, PageSize: math.MaxInt})
	if len(wide.Items) != 0 {
		t.Fatalf("expected empty second page for huge page size, got %d", len(wide.Items))
	}
}

func TestSearchSkipsBrokenRecordsWithWarning(t *testing.T) {
	store := fixtureStore()
	if err := store.Save(context.Background(), article(brokenID, "missing_bundle", "Broken", base, map[string][]content.FieldValue{
		"body": {content.RichText("hello", content.FormatHTML)},
	})); err != nil {
		t.Fatalf("seed: %v", err)
	}
	svc := search.NewService(registry(), store)

	res, err := svc.Search(context.Background(), search.Request{Term: "hello", Unpaged: true})
	if err != nil {
		t.Fatalf("search: %v", err)
	}
	if res.Total != 2 {
		t.Fatalf("expected the two healthy records to match, got %d", res.Total)
	}
	if len(res.Warnings) != 1 || res.Warnings[0].Record.ID != brokenID {
		t.Fatalf("expected one warning for the broken record, got %+v", res.Warnings)
	}
}

func TestSearchReportsMissingExplicitIDs(t *testing.T) {
	svc := search.NewService(registry(), fixtureStore())
	missing := uuid.MustParse("00000000-0000-0000-0000-0000000000ff")

	res, err := svc.Search(context.Background(), search.Request{
		Term: "hello",
		IDs: []content.RecordRef{
			{Kind: content.KindPrimary, ID: missing},
			{Kind: content.KindPrimary, ID: greetingID},
		},
	})
	if err != nil {
		t.Fatalf("search: %v", err)
	}
	if res.Total != 1 || len(res.Warnings) != 1 || res.Warnings[0].Message != "record not found" {
		t.Fatalf("expected one item and a not found warning, got %d / %+v", res.Total, res.Warnings)
	}
}

func TestSearchRejectsBadPatternsBeforeTraversal(t *testing.T) {
	svc := search.NewService(registry(), fixtureStore())
	cases := []struct {
		req  search.Request
		want error
	}{
		{req: search.Request{Term: ""}, want: matcher.ErrInvalidPattern},
		{req: search.Request{Term: "(", IsRegex: true}, want: matcher.ErrInvalidPattern},
		{req: search.Request{Term: "(a)(?1)", IsRegex: true}, want: matcher.ErrDangerousPattern},
	}
	for _, tc := range cases {
		if _, err := svc.Search(context.Background(), tc.req); !errors.Is(err, tc.want) {
			t.Fatalf("term %q: expected %v, got %v", tc.req.Term, tc.want, err)
		}
	}
}

func TestSearchRestrictsLanguage(t *testing.T) {
	rec := article(greetingID, "article", "Hello", base, map[string][]content.FieldValue{})
	rec.Translations["fr"] = &content.Translation{Langcode: "fr", Title: "Bonjour hello", UpdatedAt: base.Add(time.Hour)}
	svc := search.NewService(registry(), recordstore.NewMemoryRecordStore(rec))

	all, err := svc.Search(context.Background(), search.Request{Term: "hello", Unpaged: true})
	if err != nil {
		t.Fatalf("search: %v", err)
	}
	if all.Total != 2 || all.Items[0].Langcode != "fr" || all.Items[0].Field != "title" {
		t.Fatalf("expected both translations newest first, got %+v", all.Items)
	}

	fr, err := svc.Search(context.Background(), search.Request{Term: "hello", Langcode: "FR", Unpaged: true})
	if err != nil {
		t.Fatalf("search: %v", err)
	}
	if fr.Total != 1 || fr.Items[0].Title != "Bonjour hello" {
		t.Fatalf("expected french title only, got %+v", fr.Items)
	}
}
