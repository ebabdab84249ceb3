package storage

import (
	"context"
	"sync"

	"github.com/rl1809/putaway/internal/core/domain"
)

// MemoryStore is a seeded in-memory DataStore used by tests and the stress
// harness.
type MemoryStore struct {
	mu          sync.Mutex
	locations   []domain.Location
	inventory   []domain.StockRecord
	unlocated   []domain.Unit
	assignments []domain.Assignment
}

func NewMemoryStore(locations []domain.Location, inventory []domain.StockRecord, unlocated []domain.Unit) *MemoryStore {
	return &MemoryStore{
		locations: locations,
		inventory: inventory,
		unlocated: unlocated,
	}
}

func (m *MemoryStore) LoadLocations(ctx context.Context) ([]domain.Location, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]domain.Location(nil), m.locations...), nil
}

func (m *MemoryStore) LoadInventory(ctx context.Context) ([]domain.StockRecord, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]domain.StockRecord(nil), m.inventory...), nil
}

func (m *MemoryStore) LoadUnlocatedUnits(ctx context.Context) ([]domain.Unit, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]domain.Unit(nil), m.unlocated...), nil
}

func (m *MemoryStore) PersistAssignment(ctx context.Context, a domain.Assignment) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.assignments = append(m.assignments, a)
	return nil
}

// Assignments returns everything persisted so far, for test verification.
func (m *MemoryStore) Assignments() []domain.Assignment {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]domain.Assignment(nil), m.assignments...)
}

// MemoryLog is the in-process AssignmentLog. Entries preserve the order in
// which commits actually succeeded.
type MemoryLog struct {
	mu      sync.Mutex
	byUnit  map[string]domain.Assignment
	entries []domain.Assignment
}

func NewMemoryLog() *MemoryLog {
	return &MemoryLog{byUnit: make(map[string]domain.Assignment)}
}

func (l *MemoryLog) Append(ctx context.Context, a domain.Assignment) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	if _, dup := l.byUnit[a.UnitID]; dup {
		return nil
	}
	l.byUnit[a.UnitID] = a
	l.entries = append(l.entries, a)
	return nil
}

func (l *MemoryLog) Get(ctx context.Context, unitID string) (*domain.Assignment, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if a, ok := l.byUnit[unitID]; ok {
		cp := a
		return &cp, nil
	}
	return nil, nil
}

func (l *MemoryLog) Entries(ctx context.Context) ([]domain.Assignment, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	return append([]domain.Assignment(nil), l.entries...), nil
}
