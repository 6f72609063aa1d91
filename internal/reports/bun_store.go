package reports

import (
	"context"
	"fmt"
	"time"

	goerrors "github.com/goliatone/go-errors"
	repository "github.com/goliatone/go-repository-bun"
	"github.com/google/uuid"
	"github.com/uptrace/bun"
)

// BunStore persists reports through go-repository-bun.
type BunStore struct {
	repo repository.Repository[*ReportModel]
}

var _ Store = (*BunStore)(nil)

func NewBunStore(db *bun.DB) *BunStore {
	return &BunStore{repo: NewReportRepository(db)}
}

func NewReportRepository(db *bun.DB) repository.Repository[*ReportModel] {
	return repository.MustNewRepository(db, repository.ModelHandlers[*ReportModel]{
		NewRecord: func() *ReportModel { return &ReportModel{} },
		GetID: func(r *ReportModel) uuid.UUID {
			return r.ID
		},
		SetID: func(r *ReportModel, id uuid.UUID) {
			r.ID = id
		},
		GetIdentifier: func() string {
			return "id"
		},
		GetIdentifierValue: func(r *ReportModel) string {
			if r == nil {
				return ""
			}
			return r.ID.String()
		},
	})
}

func (s *BunStore) Insert(ctx context.Context, report *Report) (*Report, error) {
	if report == nil {
		return nil, fmt.Errorf("reports: nil report")
	}
	if err := ValidateDetails(report.Details); err != nil {
		return nil, err
	}
	model := toModel(report)
	if model.ID == uuid.Nil {
		model.ID = uuid.New()
	}
	created, err := s.repo.Create(ctx, model)
	if err != nil {
		return nil, fmt.Errorf("reports: insert %s: %w", model.ID, err)
	}
	return fromModel(created), nil
}

func (s *BunStore) Find(ctx context.Context, id uuid.UUID) (*Report, error) {
	model, err := s.repo.GetByID(ctx, id.String())
	if err != nil {
		return nil, mapRepositoryError(err, id)
	}
	return fromModel(model), nil
}

func (s *BunStore) FindByUndoneFrom(ctx context.Context, id uuid.UUID) (*Report, error) {
	models, _, err := s.repo.List(ctx,
		repository.SelectRawProcessor(func(q *bun.SelectQuery) *bun.SelectQuery {
			return q.Where("?TableAlias.undone_from = ?", id).OrderExpr("?TableAlias.created_at ASC")
		}),
		repository.SelectPaginate(1, 0),
	)
	if err != nil {
		return nil, mapRepositoryError(err, id)
	}
	if len(models) == 0 {
		return nil, fmt.Errorf("%w: no undo of %s", ErrReportNotFound, id)
	}
	return fromModel(models[0]), nil
}

func (s *BunStore) MarkUndone(ctx context.Context, id uuid.UUID, at time.Time, by uuid.UUID) error {
	model, err := s.repo.GetByID(ctx, id.String())
	if err != nil {
		return mapRepositoryError(err, id)
	}
	model.UndoneAt = &at
	model.UndoneBy = &by
	if _, err := s.repo.Update(ctx, model,
		repository.UpdateByID(id.String()),
		repository.UpdateColumns("undone_at", "undone_by"),
	); err != nil {
		return fmt.Errorf("reports: mark %s undone: %w", id, err)
	}
	return nil
}

func (s *BunStore) List(ctx context.Context, opts ListOptions) ([]*Report, int, error) {
	order := repository.SelectRawProcessor(func(q *bun.SelectQuery) *bun.SelectQuery {
		return q.OrderExpr("?TableAlias.created_at DESC").OrderExpr("?TableAlias.id ASC")
	})
	var (
		models []*ReportModel
		total  int
		err    error
	)
	if opts.Limit > 0 {
		offset := opts.Offset
		if offset < 0 {
			offset = 0
		}
		models, total, err = s.repo.List(ctx, order, repository.SelectPaginate(opts.Limit, offset))
	} else {
		models, total, err = s.repo.List(ctx, order)
	}
	if err != nil {
		return nil, 0, fmt.Errorf("reports: list: %w", err)
	}
	out := make([]*Report, 0, len(models))
	for _, m := range models {
		out = append(out, fromModel(m))
	}
	return out, total, nil
}

func mapRepositoryError(err error, id uuid.UUID) error {
	if goerrors.IsCategory(err, repository.CategoryDatabaseNotFound) {
		return fmt.Errorf("%w: %s", ErrReportNotFound, id)
	}
	return fmt.Errorf("reports: repository error: %w", err)
}
