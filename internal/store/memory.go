package store

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/JonMunkholm/tcgen/internal/schema"
)

// MemStore is an in-process Store. Records are kept in insertion order.
type MemStore struct {
	mu      sync.RWMutex
	nextID  int64
	records []schema.StoredRecord
	now     func() time.Time
}

// NewMemStore creates an empty in-memory store.
func NewMemStore() *MemStore {
	return &MemStore{nextID: 1, now: time.Now}
}

func (m *MemStore) Insert(ctx context.Context, rec schema.Record) (schema.StoredRecord, error) {
	if err := validate(rec); err != nil {
		return schema.StoredRecord{}, err
	}
	if err := ctx.Err(); err != nil {
		return schema.StoredRecord{}, &StorageError{Op: "insert", Err: err}
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	stored := schema.StoredRecord{ID: m.nextID, CreatedAt: m.now().UTC(), Record: rec}
	m.nextID++
	m.records = append(m.records, stored)
	return stored, nil
}

func (m *MemStore) Get(_ context.Context, id int64) (schema.StoredRecord, bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	i := sort.Search(len(m.records), func(i int) bool { return m.records[i].ID >= id })
	if i < len(m.records) && m.records[i].ID == id {
		return m.records[i], true, nil
	}
	return schema.StoredRecord{}, false, nil
}

func (m *MemStore) FindLatestByName(_ context.Context, name string) (schema.StoredRecord, bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	for i := len(m.records) - 1; i >= 0; i-- {
		if m.records[i].StudentName == name {
			return m.records[i], true, nil
		}
	}
	return schema.StoredRecord{}, false, nil
}

func (m *MemStore) ListDistinctNames(_ context.Context) ([]string, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	seen := make(map[string]bool)
	names := make([]string, 0)
	for _, r := range m.records {
		if strings.TrimSpace(r.StudentName) == "" || seen[r.StudentName] {
			continue
		}
		seen[r.StudentName] = true
		names = append(names, r.StudentName)
	}
	sort.Strings(names)
	return names, nil
}

func (m *MemStore) Search(_ context.Context, pattern string) ([]schema.StoredRecord, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	out := make([]schema.StoredRecord, 0)
	for _, r := range m.records {
		if matches(r.Record, pattern) {
			out = append(out, r)
		}
	}
	sort.SliceStable(out, func(i, j int) bool {
		if out[i].StudentName != out[j].StudentName {
			return out[i].StudentName < out[j].StudentName
		}
		return out[i].ID < out[j].ID
	})
	return out, nil
}

func (m *MemStore) List(_ context.Context) ([]schema.StoredRecord, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	out := make([]schema.StoredRecord, len(m.records))
	for i, r := range m.records {
		out[len(m.records)-1-i] = r
	}
	return out, nil
}

func (m *MemStore) Delete(_ context.Context, id int64) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	for i, r := range m.records {
		if r.ID == id {
			m.records = append(m.records[:i], m.records[i+1:]...)
			return true, nil
		}
	}
	return false, nil
}

func (m *MemStore) Ping(context.Context) error { return nil }

func (m *MemStore) Close() error { return nil }
