package report

import (
	"context"
	"fmt"
	"sync"

	"github.com/newthinker/momentum/internal/core"
)

// MemoryStore is a bounded in-memory report store.
type MemoryStore struct {
	reports []core.ScanReport
	maxSize int
	mu      sync.RWMutex
}

// NewMemoryStore creates a new in-memory store with max capacity.
func NewMemoryStore(maxSize int) *MemoryStore {
	if maxSize <= 0 {
		maxSize = 1
	}
	return &MemoryStore{
		reports: make([]core.ScanReport, 0, maxSize),
		maxSize: maxSize,
	}
}

// Save appends a report, evicting the oldest beyond capacity.
func (m *MemoryStore) Save(ctx context.Context, r core.ScanReport) error {
	if r.ID == "" {
		return core.WrapError(core.ErrInvalidInput, fmt.Errorf("report has no id"))
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	m.reports = append(m.reports, r)
	if len(m.reports) > m.maxSize {
		m.reports = m.reports[len(m.reports)-m.maxSize:]
	}
	return nil
}

// Latest returns the last saved report or core.ErrNoData.
func (m *MemoryStore) Latest(ctx context.Context) (*core.ScanReport, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	if len(m.reports) == 0 {
		return nil, core.WrapError(core.ErrNoData, fmt.Errorf("no scan has completed yet"))
	}
	r := m.reports[len(m.reports)-1]
	return &r, nil
}

// GetByID retrieves a report by ID.
func (m *MemoryStore) GetByID(ctx context.Context, id string) (*core.ScanReport, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	for i := range m.reports {
		if m.reports[i].ID == id {
			r := m.reports[i]
			return &r, nil
		}
	}
	return nil, core.WrapError(core.ErrNoData, fmt.Errorf("report %s not found", id))
}

// List returns reports matching the filter, newest first.
func (m *MemoryStore) List(ctx context.Context, filter ListFilter) ([]core.ScanReport, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	var result []core.ScanReport
	for i := len(m.reports) - 1; i >= 0; i-- {
		if matches(m.reports[i], filter) {
			result = append(result, m.reports[i])
		}
	}

	if filter.Offset >= len(result) {
		return []core.ScanReport{}, nil
	}
	result = result[filter.Offset:]

	if filter.Limit > 0 && filter.Limit < len(result) {
		result = result[:filter.Limit]
	}
	return result, nil
}

func matches(r core.ScanReport, filter ListFilter) bool {
	if filter.Source != "" && r.Source != filter.Source {
		return false
	}
	if !filter.From.IsZero() && r.StartedAt.Before(filter.From) {
		return false
	}
	if !filter.To.IsZero() && r.StartedAt.After(filter.To) {
		return false
	}
	return true
}
