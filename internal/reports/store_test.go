package reports_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/goliatone/go-cms-replace/content"
	"github.com/goliatone/go-cms-replace/internal/reports"
	"github.com/goliatone/go-cms-replace/pkg/testsupport"
	"github.com/google/uuid"
	"github.com/uptrace/bun"
	"github.com/uptrace/bun/dialect/sqlitedialect"
)

func newBunStore(t *testing.T) reports.Store {
	t.Helper()
	sqlDB, err := testsupport.NewSQLiteMemoryDB()
	if err != nil {
		t.Fatalf("new sqlite db: %v", err)
	}
	t.Cleanup(func() { _ = sqlDB.Close() })

	db := bun.NewDB(sqlDB, sqlitedialect.New())
	db.SetMaxOpenConns(1)
	if err := reports.RegisterModels(context.Background(), db); err != nil {
		t.Fatalf("register models: %v", err)
	}
	return reports.NewBunStore(db)
}

func storeImplementations(t *testing.T) map[string]func(*testing.T) reports.Store {
	t.Helper()
	return map[string]func(*testing.T) reports.Store{
		"memory": func(*testing.T) reports.Store { return reports.NewMemoryStore() },
		"bun":    newBunStore,
	}
}

func sampleReport(id uuid.UUID, created time.Time) *reports.Report {
	return &reports.Report{
		ID:            id,
		ActorID:       actorID,
		CreatedAt:     created,
		SearchTerm:    "Acme",
		ReplaceTerm:   "Globex",
		CaseSensitive: true,
		Replaced:      3,
		Affected:      1,
		Details: reports.Details{
			SchemaVersion: reports.DetailsSchemaVersion,
			Mode:          "all",
			Kinds:         []string{"node"},
			Records: []reports.DetailRecord{
				{RecordID: firstID, Kind: "node", Title: "Acme news", Bundle: "article", Langcode: "en", Count: 3, Fields: []string{"title", "body"}},
			},
		},
	}
}

func TestStoresPersistAndFindReports(t *testing.T) {
	for name, build := range storeImplementations(t) {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()
			store := build(t)
			id := uuid.MustParse("00000000-0000-0000-0000-0000000000f1")

			if _, err := store.Insert(ctx, sampleReport(id, clockTime)); err != nil {
				t.Fatalf("insert: %v", err)
			}
			got, err := store.Find(ctx, id)
			if err != nil {
				t.Fatalf("find: %v", err)
			}
			if got.SearchTerm != "Acme" || got.Replaced != 3 || !got.CreatedAt.Equal(clockTime) {
				t.Fatalf("unexpected report %+v", got)
			}
			if len(got.Details.Records) != 1 || got.Details.Records[0].Count != 3 || len(got.Details.Records[0].Fields) != 2 {
				t.Fatalf("details not round tripped: %+v", got.Details)
			}
			refs := got.AffectedRefs()
			if len(refs) != 1 || refs[0] != (content.RecordRef{Kind: content.KindPrimary, ID: firstID}) {
				t.Fatalf("unexpected affected refs %+v", refs)
			}
			if got.Status() != reports.StatusActive {
				t.Fatalf("expected active report")
			}

			if _, err := store.Find(ctx, uuid.New()); !errors.Is(err, reports.ErrReportNotFound) {
				t.Fatalf("expected ErrReportNotFound, got %v", err)
			}
		})
	}
}

func TestStoresTrackUndo(t *testing.T) {
	for name, build := range storeImplementations(t) {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()
			store := build(t)
			original := uuid.MustParse("00000000-0000-0000-0000-0000000000f1")
			undoID := uuid.MustParse("00000000-0000-0000-0000-0000000000f2")

			if _, err := store.Insert(ctx, sampleReport(original, clockTime)); err != nil {
				t.Fatalf("insert: %v", err)
			}
			if _, err := store.FindByUndoneFrom(ctx, original); !errors.Is(err, reports.ErrReportNotFound) {
				t.Fatalf("expected no undo yet, got %v", err)
			}

			undo := sampleReport(undoID, clockTime.Add(time.Minute))
			undo.SearchTerm, undo.ReplaceTerm = "Globex", "Acme"
			undo.UndoneFrom = &original
			undo.Details.Mode = reports.ModeUndo
			undo.Details.UndoneFrom = original.String()
			if _, err := store.Insert(ctx, undo); err != nil {
				t.Fatalf("insert undo: %v", err)
			}
			if err := store.MarkUndone(ctx, original, clockTime.Add(time.Minute), actorID); err != nil {
				t.Fatalf("mark undone: %v", err)
			}

			child, err := store.FindByUndoneFrom(ctx, original)
			if err != nil || child.ID != undoID {
				t.Fatalf("expected undo child, got %+v (%v)", child, err)
			}
			got, err := store.Find(ctx, original)
			if err != nil {
				t.Fatalf("find: %v", err)
			}
			if got.Status() != reports.StatusUndone || got.UndoneBy == nil || *got.UndoneBy != actorID {
				t.Fatalf("expected undone original, got %+v", got)
			}
			if err := store.MarkUndone(ctx, uuid.New(), clockTime, actorID); !errors.Is(err, reports.ErrReportNotFound) {
				t.Fatalf("expected ErrReportNotFound, got %v", err)
			}
		})
	}
}

func TestStoresListNewestFirst(t *testing.T) {
	for name, build := range storeImplementations(t) {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()
			store := build(t)
			ids := []uuid.UUID{
				uuid.MustParse("00000000-0000-0000-0000-0000000000f1"),
				uuid.MustParse("00000000-0000-0000-0000-0000000000f2"),
				uuid.MustParse("00000000-0000-0000-0000-0000000000f3"),
			}
			for i, id := range ids {
				if _, err := store.Insert(ctx, sampleReport(id, clockTime.Add(time.Duration(i)*time.Hour))); err != nil {
					t.Fatalf("insert: %v", err)
				}
			}

			all, total, err := store.List(ctx, reports.ListOptions{})
			if err != nil {
				t.Fatalf("list: %v", err)
			}
			if total != 3 || len(all) != 3 || all[0].ID != ids[2] || all[2].ID != ids[0] {
				t.Fatalf("unexpected order %+v", all)
			}

			page, total, err := store.List(ctx, reports.ListOptions{Limit: 1, Offset: 1})
			if err != nil {
				t.Fatalf("list page: %v", err)
			}
			if total != 3 || len(page) != 1 || page[0].ID != ids[1] {
				t.Fatalf("unexpected page %+v (total %d)", page, total)
			}
		})
	}
}

func TestInsertRejectsInvalidDetails(t *testing.T) {
	report := sampleReport(uuid.New(), clockTime)
	report.Details.Records[0].Count = 0
	if _, err := reports.NewMemoryStore().Insert(context.Background(), report); !errors.Is(err, reports.ErrDetailsInvalid) {
		t.Fatalf("expected ErrDetailsInvalid, got %v", err)
	}

	report = sampleReport(uuid.New(), clockTime)
	report.Details.Records[0].Fields = nil
	if err := reports.ValidateDetails(report.Details); !errors.Is(err, reports.ErrDetailsInvalid) {
		t.Fatalf("expected ErrDetailsInvalid without fields, got %v", err)
	}

	report = sampleReport(uuid.New(), clockTime)
	report.Details.Mode = "sideways"
	if err := reports.ValidateDetails(report.Details); !errors.Is(err, reports.ErrDetailsInvalid) {
		t.Fatalf("expected ErrDetailsInvalid for unknown mode, got %v", err)
	}
	if err := reports.ValidateDetails(sampleReport(uuid.New(), clockTime).Details); err != nil {
		t.Fatalf("expected valid details, got %v", err)
	}
}
