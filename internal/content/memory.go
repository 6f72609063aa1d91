package content

import (
	"context"
	"sort"
	"sync"

	cmscontent "github.com/goliatone/go-cms-replace/content"
	"github.com/goliatone/go-cms-replace/pkg/interfaces"
	"github.com/google/uuid"
)

// MemoryRecordStore is an in-memory RecordStore for tests and the CLI
// memory provider. Records are cloned on every read and write.
type MemoryRecordStore struct {
	mu      sync.RWMutex
	records map[cmscontent.Kind]map[uuid.UUID]*cmscontent.Record
	saves   map[uuid.UUID]int
}

var _ interfaces.RecordStore = (*MemoryRecordStore)(nil)

// NewMemoryRecordStore creates a store seeded with records.
func NewMemoryRecordStore(records ...*cmscontent.Record) *MemoryRecordStore {
	store := &MemoryRecordStore{
		records: map[cmscontent.Kind]map[uuid.UUID]*cmscontent.Record{},
		saves:   map[uuid.UUID]int{},
	}
	for _, rec := range records {
		store.put(rec)
	}
	return store
}

func (m *MemoryRecordStore) Load(_ context.Context, kind cmscontent.Kind, id uuid.UUID) (*cmscontent.Record, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	rec, ok := m.records[kind][id]
	if !ok {
		return nil, &cmscontent.NotFoundError{Resource: string(kind), Key: id.String()}
	}
	return cmscontent.CloneRecord(rec), nil
}

func (m *MemoryRecordStore) LoadMany(_ context.Context, kind cmscontent.Kind, ids []uuid.UUID) ([]*cmscontent.Record, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	out := make([]*cmscontent.Record, 0, len(ids))
	for _, id := range ids {
		if rec, ok := m.records[kind][id]; ok {
			out = append(out, cmscontent.CloneRecord(rec))
		}
	}
	return out, nil
}

func (m *MemoryRecordStore) Save(_ context.Context, record *cmscontent.Record) error {
	if record == nil || record.ID == uuid.Nil {
		return cmscontent.ErrRecordIDRequired
	}
	if record.Kind == "" {
		return cmscontent.ErrRecordKindRequired
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.put(record)
	m.saves[record.ID]++
	return nil
}

func (m *MemoryRecordStore) QueryIDs(_ context.Context, kind cmscontent.Kind, bundles []string) ([]uuid.UUID, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	allowed := map[string]struct{}{}
	for _, b := range bundles {
		allowed[b] = struct{}{}
	}
	var ids []uuid.UUID
	for id, rec := range m.records[kind] {
		if len(allowed) > 0 {
			if _, ok := allowed[rec.Bundle]; !ok {
				continue
			}
		}
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i].String() < ids[j].String() })
	return ids, nil
}

// SaveCount reports how many times Save persisted the record.
func (m *MemoryRecordStore) SaveCount(id uuid.UUID) int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.saves[id]
}

func (m *MemoryRecordStore) put(rec *cmscontent.Record) {
	if rec == nil {
		return
	}
	bucket, ok := m.records[rec.Kind]
	if !ok {
		bucket = map[uuid.UUID]*cmscontent.Record{}
		m.records[rec.Kind] = bucket
	}
	bucket[rec.ID] = cmscontent.CloneRecord(rec)
}
