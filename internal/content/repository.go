package content

import (
	repository "github.com/goliatone/go-repository-bun"
	"github.com/google/uuid"
	"github.com/uptrace/bun"
)

func NewRecordRepository(db *bun.DB) repository.Repository[*RecordModel] {
	return repository.MustNewRepository(db, repository.ModelHandlers[*RecordModel]{
		NewRecord: func() *RecordModel { return &RecordModel{} },
		GetID: func(r *RecordModel) uuid.UUID {
			return r.ID
		},
		SetID: func(r *RecordModel, id uuid.UUID) {
			r.ID = id
		},
		GetIdentifier: func() string {
			return "id"
		},
		GetIdentifierValue: func(r *RecordModel) string {
			if r == nil {
				return ""
			}
			return r.ID.String()
		},
	})
}

func NewTranslationRepository(db *bun.DB) repository.Repository[*TranslationModel] {
	return repository.MustNewRepository(db, repository.ModelHandlers[*TranslationModel]{
		NewRecord: func() *TranslationModel { return &TranslationModel{} },
		GetID: func(t *TranslationModel) uuid.UUID {
			return t.ID
		},
		SetID: func(t *TranslationModel, id uuid.UUID) {
			t.ID = id
		},
		GetIdentifier: func() string {
			return "id"
		},
		GetIdentifierValue: func(t *TranslationModel) string {
			if t == nil {
				return ""
			}
			return t.ID.String()
		},
	})
}
