package reports

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
)

// MemoryStore keeps reports in memory. Callers receive copies.
type MemoryStore struct {
	mu      sync.RWMutex
	reports map[uuid.UUID]*Report
}

var _ Store = (*MemoryStore)(nil)

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{reports: map[uuid.UUID]*Report{}}
}

func (m *MemoryStore) Insert(_ context.Context, report *Report) (*Report, error) {
	if report == nil {
		return nil, fmt.Errorf("reports: nil report")
	}
	if err := ValidateDetails(report.Details); err != nil {
		return nil, err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	stored := cloneReport(report)
	if stored.ID == uuid.Nil {
		stored.ID = uuid.New()
	}
	if _, exists := m.reports[stored.ID]; exists {
		return nil, fmt.Errorf("reports: report %s already exists", stored.ID)
	}
	m.reports[stored.ID] = stored
	return cloneReport(stored), nil
}

func (m *MemoryStore) Find(_ context.Context, id uuid.UUID) (*Report, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	report, ok := m.reports[id]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrReportNotFound, id)
	}
	return cloneReport(report), nil
}

func (m *MemoryStore) FindByUndoneFrom(_ context.Context, id uuid.UUID) (*Report, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	for _, report := range m.reports {
		if report.UndoneFrom != nil && *report.UndoneFrom == id {
			return cloneReport(report), nil
		}
	}
	return nil, fmt.Errorf("%w: no undo of %s", ErrReportNotFound, id)
}

func (m *MemoryStore) MarkUndone(_ context.Context, id uuid.UUID, at time.Time, by uuid.UUID) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	report, ok := m.reports[id]
	if !ok {
		return fmt.Errorf("%w: %s", ErrReportNotFound, id)
	}
	report.UndoneAt = &at
	report.UndoneBy = &by
	return nil
}

func (m *MemoryStore) List(_ context.Context, opts ListOptions) ([]*Report, int, error) {
	m.mu.RLock()
	all := make([]*Report, 0, len(m.reports))
	for _, report := range m.reports {
		all = append(all, cloneReport(report))
	}
	m.mu.RUnlock()

	sortNewestFirst(all)
	total := len(all)
	start := opts.Offset
	if start < 0 {
		start = 0
	}
	if start > total {
		start = total
	}
	end := total
	if opts.Limit > 0 && start+opts.Limit < end {
		end = start + opts.Limit
	}
	return all[start:end], total, nil
}

func sortNewestFirst(reports []*Report) {
	sort.SliceStable(reports, func(i, j int) bool {
		if !reports[i].CreatedAt.Equal(reports[j].CreatedAt) {
			return reports[i].CreatedAt.After(reports[j].CreatedAt)
		}
		return reports[i].ID.String() < reports[j].ID.String()
	})
}
