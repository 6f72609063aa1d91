package content_test

import (
	"context"
	"errors"
	"testing"
	"time"

	cmscontent "github.com/goliatone/go-cms-replace/content"
	"github.com/goliatone/go-cms-replace/domain"
	"github.com/goliatone/go-cms-replace/internal/content"
	"github.com/goliatone/go-cms-replace/pkg/interfaces"
	"github.com/goliatone/go-cms-replace/pkg/testsupport"
	repocache "github.com/goliatone/go-repository-cache/cache"
	"github.com/google/uuid"
	"github.com/uptrace/bun"
	"github.com/uptrace/bun/dialect/sqlitedialect"
)

func sampleRecord(id string, bundle, title, body string) *cmscontent.Record {
	updated := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)
	return &cmscontent.Record{
		ID:              uuid.MustParse(id),
		Kind:            cmscontent.KindPrimary,
		Bundle:          bundle,
		Status:          domain.StatusPublished,
		DefaultLangcode: "en",
		CreatedAt:       updated,
		UpdatedAt:       updated,
		Translations: map[string]*cmscontent.Translation{
			"en": {
				Langcode:  "en",
				Title:     title,
				UpdatedAt: updated,
				Fields: map[string][]cmscontent.FieldValue{
					"body": {cmscontent.RichText(body, cmscontent.FormatHTML)},
					"components": {cmscontent.Reference(
						uuid.MustParse("00000000-0000-0000-0000-0000000000c1"), cmscontent.KindEmbedded)},
				},
			},
		},
	}
}

func newBunDB(t *testing.T) *bun.DB {
	t.Helper()
	sqlDB, err := testsupport.NewSQLiteMemoryDB()
	if err != nil {
		t.Fatalf("new sqlite db: %v", err)
	}
	t.Cleanup(func() { _ = sqlDB.Close() })

	db := bun.NewDB(sqlDB, sqlitedialect.New())
	db.SetMaxOpenConns(1)
	if err := content.RegisterModels(context.Background(), db); err != nil {
		t.Fatalf("register models: %v", err)
	}
	return db
}

func newCachedBunStore(t *testing.T) *content.BunRecordStore {
	t.Helper()
	cfg := repocache.DefaultConfig()
	cfg.TTL = time.Minute
	cacheService, err := repocache.NewCacheService(cfg)
	if err != nil {
		t.Fatalf("new cache service: %v", err)
	}
	return content.NewBunRecordStoreWithCache(newBunDB(t), cacheService, repocache.NewDefaultKeySerializer())
}

func exerciseStore(t *testing.T, store interfaces.RecordStore) {
	t.Helper()
	ctx := context.Background()

	article := sampleRecord("00000000-0000-0000-0000-0000000000a1", "article", "Hello", "<p>Hello world</p>")
	page := sampleRecord("00000000-0000-0000-0000-0000000000a2", "page", "About", "<p>About us</p>")
	for _, rec := range []*cmscontent.Record{article, page} {
		if err := store.Save(ctx, rec); err != nil {
			t.Fatalf("save %s: %v", rec.ID, err)
		}
	}

	loaded, err := store.Load(ctx, cmscontent.KindPrimary, article.ID)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	tr, ok := loaded.Translation("en")
	if !ok || tr.Title != "Hello" {
		t.Fatalf("unexpected translation %+v", tr)
	}
	if got := tr.Fields["body"][0].Text; got != "<p>Hello world</p>" {
		t.Fatalf("unexpected body %q", got)
	}
	if ref := tr.Fields["components"][0]; ref.Kind != cmscontent.FieldReference || ref.TargetKind != cmscontent.KindEmbedded {
		t.Fatalf("unexpected reference %+v", ref)
	}

	tr.Fields["body"][0].Text = "<p>Goodbye world</p>"
	if err := store.Save(ctx, loaded); err != nil {
		t.Fatalf("update: %v", err)
	}
	reloaded, err := store.Load(ctx, cmscontent.KindPrimary, article.ID)
	if err != nil {
		t.Fatalf("reload: %v", err)
	}
	if got := reloaded.Translations["en"].Fields["body"][0].Text; got != "<p>Goodbye world</p>" {
		t.Fatalf("expected persisted update, got %q", got)
	}

	ids, err := store.QueryIDs(ctx, cmscontent.KindPrimary, []string{"article"})
	if err != nil {
		t.Fatalf("query ids: %v", err)
	}
	if len(ids) != 1 || ids[0] != article.ID {
		t.Fatalf("unexpected ids %v", ids)
	}
	all, err := store.QueryIDs(ctx, cmscontent.KindPrimary, nil)
	if err != nil || len(all) != 2 {
		t.Fatalf("expected two ids, got %v (%v)", all, err)
	}

	missing := uuid.MustParse("00000000-0000-0000-0000-0000000000ff")
	many, err := store.LoadMany(ctx, cmscontent.KindPrimary, []uuid.UUID{page.ID, missing, article.ID})
	if err != nil {
		t.Fatalf("load many: %v", err)
	}
	if len(many) != 2 || many[0].ID != page.ID || many[1].ID != article.ID {
		t.Fatalf("expected input order without missing ids, got %d records", len(many))
	}

	if _, err := store.Load(ctx, cmscontent.KindPrimary, missing); !errors.Is(err, cmscontent.ErrRecordNotFound) {
		t.Fatalf("expected not found, got %v", err)
	}
	if _, err := store.Load(ctx, cmscontent.KindTaxonomyTerm, article.ID); !errors.Is(err, cmscontent.ErrRecordNotFound) {
		t.Fatalf("expected kind mismatch to be not found, got %v", err)
	}
}

func TestMemoryRecordStore(t *testing.T) {
	exerciseStore(t, content.NewMemoryRecordStore())
}

func TestBunRecordStore(t *testing.T) {
	exerciseStore(t, content.NewBunRecordStore(newBunDB(t)))
}

func TestBunRecordStoreWithCache(t *testing.T) {
	exerciseStore(t, newCachedBunStore(t))
}

func TestMemoryRecordStoreIsolatesCallers(t *testing.T) {
	ctx := context.Background()
	rec := sampleRecord("00000000-0000-0000-0000-0000000000b1", "article", "Original", "body")
	store := content.NewMemoryRecordStore(rec)

	rec.Translations["en"].Title = "mutated after seeding"
	loaded, _ := store.Load(ctx, cmscontent.KindPrimary, rec.ID)
	if loaded.Translations["en"].Title != "Original" {
		t.Fatalf("expected seeded copy to be isolated")
	}
	loaded.Translations["en"].Fields["body"][0].Text = "mutated after load"
	again, _ := store.Load(ctx, cmscontent.KindPrimary, rec.ID)
	if again.Translations["en"].Fields["body"][0].Text != "body" {
		t.Fatalf("expected loads to be isolated")
	}
	if store.SaveCount(rec.ID) != 0 {
		t.Fatalf("seeding should not count as save")
	}
	if err := store.Save(ctx, loaded); err != nil {
		t.Fatalf("save: %v", err)
	}
	if store.SaveCount(rec.ID) != 1 {
		t.Fatalf("expected one save, got %d", store.SaveCount(rec.ID))
	}
	if err := store.Save(ctx, &cmscontent.Record{}); !errors.Is(err, cmscontent.ErrRecordIDRequired) {
		t.Fatalf("expected id required, got %v", err)
	}
}
