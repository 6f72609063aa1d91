package content

import (
	"context"
	"errors"
	"fmt"
	"time"

	cmscontent "github.com/goliatone/go-cms-replace/content"
	"github.com/goliatone/go-cms-replace/pkg/interfaces"
	goerrors "github.com/goliatone/go-errors"
	repository "github.com/goliatone/go-repository-bun"
	cache "github.com/goliatone/go-repository-cache/cache"
	repositorycache "github.com/goliatone/go-repository-cache/repositorycache"
	"github.com/google/uuid"
	"github.com/uptrace/bun"
)

const recordNamespace = "replace_record"

// BunRecordStore implements RecordStore on top of go-repository-bun. Record
// rows may be cached; translation rows always come from the database so
// matching never runs against stale field values.
type BunRecordStore struct {
	records      repository.Repository[*RecordModel]
	translations repository.Repository[*TranslationModel]
	cacheService cache.CacheService
	now          func() time.Time
}

var _ interfaces.RecordStore = (*BunRecordStore)(nil)

// NewBunRecordStore creates a store without caching.
func NewBunRecordStore(db *bun.DB) *BunRecordStore {
	return NewBunRecordStoreWithCache(db, nil, nil)
}

// NewBunRecordStoreWithCache wraps the record repository with
// go-repository-cache when both cache collaborators are supplied.
func NewBunRecordStoreWithCache(db *bun.DB, cacheService cache.CacheService, serializer cache.KeySerializer) *BunRecordStore {
	store := &BunRecordStore{
		records:      NewRecordRepository(db),
		translations: NewTranslationRepository(db),
		now:          time.Now,
	}
	if cacheService != nil && serializer != nil {
		store.records = repositorycache.New(store.records, cacheService, serializer)
		store.cacheService = cacheService
	}
	return store
}

func (s *BunRecordStore) Load(ctx context.Context, kind cmscontent.Kind, id uuid.UUID) (*cmscontent.Record, error) {
	model, err := s.records.GetByID(ctx, id.String())
	if err != nil {
		return nil, mapRepositoryError(err, string(kind), id.String())
	}
	if model == nil || cmscontent.Kind(model.Kind) != kind {
		return nil, &cmscontent.NotFoundError{Resource: string(kind), Key: id.String()}
	}
	translations, _, err := s.translations.List(ctx,
		repository.SelectRawProcessor(func(q *bun.SelectQuery) *bun.SelectQuery {
			return q.Where("?TableAlias.record_id = ?", id).
				OrderExpr("?TableAlias.langcode ASC")
		}),
	)
	if err != nil {
		return nil, mapRepositoryError(err, "translation", id.String())
	}
	return fromModels(model, translations), nil
}

func (s *BunRecordStore) LoadMany(ctx context.Context, kind cmscontent.Kind, ids []uuid.UUID) ([]*cmscontent.Record, error) {
	if len(ids) == 0 {
		return nil, nil
	}
	models, _, err := s.records.List(ctx,
		repository.SelectRawProcessor(func(q *bun.SelectQuery) *bun.SelectQuery {
			return q.Where("?TableAlias.id IN (?)", bun.In(ids)).
				Where("?TableAlias.kind = ?", string(kind))
		}),
	)
	if err != nil {
		return nil, mapRepositoryError(err, string(kind), "")
	}
	if len(models) == 0 {
		return nil, nil
	}

	found := make([]uuid.UUID, 0, len(models))
	for _, m := range models {
		found = append(found, m.ID)
	}
	translations, _, err := s.translations.List(ctx,
		repository.SelectRawProcessor(func(q *bun.SelectQuery) *bun.SelectQuery {
			return q.Where("?TableAlias.record_id IN (?)", bun.In(found)).
				OrderExpr("?TableAlias.langcode ASC")
		}),
	)
	if err != nil {
		return nil, mapRepositoryError(err, "translation", "")
	}

	byRecord := make(map[uuid.UUID][]*TranslationModel, len(models))
	for _, tr := range translations {
		byRecord[tr.RecordID] = append(byRecord[tr.RecordID], tr)
	}
	byID := make(map[uuid.UUID]*RecordModel, len(models))
	for _, m := range models {
		byID[m.ID] = m
	}

	out := make([]*cmscontent.Record, 0, len(models))
	for _, id := range ids {
		if m, ok := byID[id]; ok {
			out = append(out, fromModels(m, byRecord[id]))
		}
	}
	return out, nil
}

// Save upserts the record row and every translation row.
func (s *BunRecordStore) Save(ctx context.Context, record *cmscontent.Record) error {
	if record == nil || record.ID == uuid.Nil {
		return cmscontent.ErrRecordIDRequired
	}
	if record.Kind == "" {
		return cmscontent.ErrRecordKindRequired
	}
	model, translations := toModels(record)
	now := s.now().UTC()
	if model.CreatedAt.IsZero() {
		model.CreatedAt = now
	}
	if model.UpdatedAt.IsZero() {
		model.UpdatedAt = now
	}

	exists, err := s.exists(ctx, model.ID)
	if err != nil {
		return err
	}
	if exists {
		_, err = s.records.Update(ctx, model,
			repository.UpdateByID(model.ID.String()),
			repository.UpdateColumns("kind", "bundle", "status", "default_langcode", "updated_at"),
		)
	} else {
		_, err = s.records.Create(ctx, model)
	}
	if err != nil {
		return fmt.Errorf("save %s %s: %w", record.Kind, record.ID, err)
	}

	for _, tr := range translations {
		if tr.UpdatedAt.IsZero() {
			tr.UpdatedAt = model.UpdatedAt
		}
		if err := s.saveTranslation(ctx, tr); err != nil {
			return err
		}
	}
	return s.invalidate(ctx)
}

func (s *BunRecordStore) QueryIDs(ctx context.Context, kind cmscontent.Kind, bundles []string) ([]uuid.UUID, error) {
	models, _, err := s.records.List(ctx,
		repository.SelectRawProcessor(func(q *bun.SelectQuery) *bun.SelectQuery {
			q = q.Where("?TableAlias.kind = ?", string(kind))
			if len(bundles) > 0 {
				q = q.Where("?TableAlias.bundle IN (?)", bun.In(bundles))
			}
			return q.OrderExpr("?TableAlias.id ASC")
		}),
	)
	if err != nil {
		return nil, mapRepositoryError(err, string(kind), "")
	}
	ids := make([]uuid.UUID, 0, len(models))
	for _, m := range models {
		ids = append(ids, m.ID)
	}
	return ids, nil
}

func (s *BunRecordStore) saveTranslation(ctx context.Context, tr *TranslationModel) error {
	_, err := s.translations.GetByID(ctx, tr.ID.String())
	switch {
	case err == nil:
		_, err = s.translations.Update(ctx, tr,
			repository.UpdateByID(tr.ID.String()),
			repository.UpdateColumns("title", "fields", "updated_at"),
		)
	case isNotFound(err):
		_, err = s.translations.Create(ctx, tr)
	}
	if err != nil {
		return fmt.Errorf("save translation %s/%s: %w", tr.RecordID, tr.Langcode, err)
	}
	return nil
}

func (s *BunRecordStore) exists(ctx context.Context, id uuid.UUID) (bool, error) {
	_, err := s.records.GetByID(ctx, id.String())
	if err == nil {
		return true, nil
	}
	if isNotFound(err) {
		return false, nil
	}
	return false, err
}

func (s *BunRecordStore) invalidate(ctx context.Context) error {
	if s.cacheService == nil {
		return nil
	}
	return s.cacheService.DeleteByPrefix(ctx, recordNamespace+cache.KeySeparator)
}

func isNotFound(err error) bool {
	return goerrors.IsCategory(err, repository.CategoryDatabaseNotFound) || errors.Is(err, cmscontent.ErrRecordNotFound)
}

func mapRepositoryError(err error, resource, key string) error {
	if err == nil {
		return nil
	}
	if goerrors.IsCategory(err, repository.CategoryDatabaseNotFound) {
		return &cmscontent.NotFoundError{Resource: resource, Key: key}
	}
	return fmt.Errorf("%s repository error: %w", resource, err)
}
