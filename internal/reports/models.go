package reports

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/uptrace/bun"
)

// ReportModel is the bun row of a report. Undo bookkeeping lives in real
// columns so the undo guard is a query, not a scan of the details blob.
type ReportModel struct {
	bun.BaseModel `bun:"table:replace_reports,alias:rp"`

	ID            uuid.UUID  `bun:",pk,type:uuid"                    json:"id"`
	ActorID       uuid.UUID  `bun:"actor_id,type:uuid"               json:"actor_id"`
	SearchTerm    string     `bun:"search_term,notnull"              json:"search_term"`
	ReplaceTerm   string     `bun:"replace_term,notnull"             json:"replace_term"`
	IsRegex       bool       `bun:"is_regex,notnull"                 json:"is_regex"`
	CaseSensitive bool       `bun:"case_sensitive,notnull"           json:"case_sensitive"`
	Langcode      string     `bun:"langcode,notnull"                 json:"langcode"`
	ReplacedCount int        `bun:"replaced_count,notnull"           json:"replaced_count"`
	AffectedCount int        `bun:"affected_count,notnull"           json:"affected_count"`
	ErrorCount    int        `bun:"error_count,notnull"              json:"error_count"`
	Details       Details    `bun:"details,type:jsonb,notnull"       json:"details"`
	UndoneFrom    *uuid.UUID `bun:"undone_from,type:uuid,nullzero"   json:"undone_from,omitempty"`
	UndoneAt      *time.Time `bun:"undone_at,nullzero"               json:"undone_at,omitempty"`
	UndoneBy      *uuid.UUID `bun:"undone_by,type:uuid,nullzero"     json:"undone_by,omitempty"`
	CreatedAt     time.Time  `bun:"created_at,notnull"               json:"created_at"`
}

// RegisterModels creates the report table and its undo lookup index.
func RegisterModels(ctx context.Context, db bun.IDB) error {
	if _, err := db.NewCreateTable().Model((*ReportModel)(nil)).IfNotExists().Exec(ctx); err != nil {
		return fmt.Errorf("create table for reports: %w", err)
	}
	if _, err := db.NewCreateIndex().Model((*ReportModel)(nil)).
		Index("replace_reports_undone_from_idx").
		IfNotExists().
		Column("undone_from").
		Exec(ctx); err != nil {
		return fmt.Errorf("create undone_from index: %w", err)
	}
	return nil
}

func toModel(r *Report) *ReportModel {
	return &ReportModel{
		ID:            r.ID,
		ActorID:       r.ActorID,
		SearchTerm:    r.SearchTerm,
		ReplaceTerm:   r.ReplaceTerm,
		IsRegex:       r.IsRegex,
		CaseSensitive: r.CaseSensitive,
		Langcode:      r.Langcode,
		ReplacedCount: r.Replaced,
		AffectedCount: r.Affected,
		ErrorCount:    r.Errors,
		Details:       r.Details,
		UndoneFrom:    r.UndoneFrom,
		UndoneAt:      r.UndoneAt,
		UndoneBy:      r.UndoneBy,
		CreatedAt:     r.CreatedAt,
	}
}

func fromModel(m *ReportModel) *Report {
	if m == nil {
		return nil
	}
	return cloneReport(&Report{
		ID:            m.ID,
		ActorID:       m.ActorID,
		CreatedAt:     m.CreatedAt,
		SearchTerm:    m.SearchTerm,
		ReplaceTerm:   m.ReplaceTerm,
		IsRegex:       m.IsRegex,
		CaseSensitive: m.CaseSensitive,
		Langcode:      m.Langcode,
		Replaced:      m.ReplacedCount,
		Affected:      m.AffectedCount,
		Errors:        m.ErrorCount,
		Details:       m.Details,
		UndoneFrom:    m.UndoneFrom,
		UndoneAt:      m.UndoneAt,
		UndoneBy:      m.UndoneBy,
	})
}
