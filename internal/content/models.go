package content

import (
	"context"
	"fmt"
	"time"

	cmscontent "github.com/goliatone/go-cms-replace/content"
	"github.com/goliatone/go-cms-replace/domain"
	"github.com/google/uuid"
	"github.com/uptrace/bun"
)

// RecordModel is the bun row for a content record.
type RecordModel struct {
	bun.BaseModel `bun:"table:replace_records,alias:rr"`

	ID              uuid.UUID `bun:",pk,type:uuid"                  json:"id"`
	Kind            string    `bun:"kind,notnull"                    json:"kind"`
	Bundle          string    `bun:"bundle,notnull"                  json:"bundle"`
	Status          string    `bun:"status,notnull,default:'draft'"  json:"status"`
	DefaultLangcode string    `bun:"default_langcode,notnull"        json:"default_langcode"`
	CreatedAt       time.Time `bun:"created_at,nullzero,default:current_timestamp" json:"created_at"`
	UpdatedAt       time.Time `bun:"updated_at,nullzero,default:current_timestamp" json:"updated_at"`
}

// TranslationModel stores one language variant; field values live in a JSON column.
type TranslationModel struct {
	bun.BaseModel `bun:"table:replace_record_translations,alias:rrt"`

	ID        uuid.UUID                          `bun:",pk,type:uuid"                                 json:"id"`
	RecordID  uuid.UUID                          `bun:"record_id,notnull,type:uuid"                   json:"record_id"`
	Langcode  string                             `bun:"langcode,notnull"                              json:"langcode"`
	Title     string                             `bun:"title,notnull"                                 json:"title"`
	Fields    map[string][]cmscontent.FieldValue `bun:"fields,type:jsonb,notnull"                     json:"fields"`
	UpdatedAt time.Time                          `bun:"updated_at,nullzero,default:current_timestamp" json:"updated_at"`
}

// TranslationID derives the stable row id of a record translation.
func TranslationID(recordID uuid.UUID, langcode string) uuid.UUID {
	return uuid.NewSHA1(recordID, []byte(cmscontent.NormalizeLangcode(langcode)))
}

// RegisterModels creates the record tables when they do not exist.
func RegisterModels(ctx context.Context, db bun.IDB) error {
	models := []any{(*RecordModel)(nil), (*TranslationModel)(nil)}
	for _, model := range models {
		if _, err := db.NewCreateTable().Model(model).IfNotExists().Exec(ctx); err != nil {
			return fmt.Errorf("create table for %T: %w", model, err)
		}
	}
	return nil
}

func toModels(rec *cmscontent.Record) (*RecordModel, []*TranslationModel) {
	model := &RecordModel{
		ID:              rec.ID,
		Kind:            string(rec.Kind),
		Bundle:          rec.Bundle,
		Status:          string(rec.Status),
		DefaultLangcode: cmscontent.NormalizeLangcode(rec.DefaultLangcode),
		CreatedAt:       rec.CreatedAt,
		UpdatedAt:       rec.UpdatedAt,
	}
	if model.Status == "" {
		model.Status = string(domain.StatusDraft)
	}
	translations := make([]*TranslationModel, 0, len(rec.Translations))
	for _, code := range rec.Langcodes() {
		tr := rec.Translations[code]
		fields := tr.Fields
		if fields == nil {
			fields = map[string][]cmscontent.FieldValue{}
		}
		translations = append(translations, &TranslationModel{
			ID:        TranslationID(rec.ID, code),
			RecordID:  rec.ID,
			Langcode:  cmscontent.NormalizeLangcode(code),
			Title:     tr.Title,
			Fields:    fields,
			UpdatedAt: tr.UpdatedAt,
		})
	}
	return model, translations
}

func fromModels(model *RecordModel, translations []*TranslationModel) *cmscontent.Record {
	rec := &cmscontent.Record{
		ID:              model.ID,
		Kind:            cmscontent.Kind(model.Kind),
		Bundle:          model.Bundle,
		Status:          domain.NormalizeStatus(model.Status),
		DefaultLangcode: model.DefaultLangcode,
		CreatedAt:       model.CreatedAt,
		UpdatedAt:       model.UpdatedAt,
		Translations:    make(map[string]*cmscontent.Translation, len(translations)),
	}
	for _, tr := range translations {
		rec.Translations[tr.Langcode] = cmscontent.CloneTranslation(&cmscontent.Translation{
			Langcode:  tr.Langcode,
			Title:     tr.Title,
			Fields:    tr.Fields,
			UpdatedAt: tr.UpdatedAt,
		})
	}
	return rec
}
