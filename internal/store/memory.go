package store

import (
	"cmp"
	"context"
	"slices"
	"sync"
)

// Memory is an in-process Backend.
type Memory struct {
	mu   sync.RWMutex
	recs map[uint32]Record

	// LoadErr, if set, is returned by LoadPositions.
	LoadErr error
}

func NewMemory(recs ...Record) *Memory {
	m := &Memory{recs: make(map[uint32]Record, len(recs))}
	for _, r := range recs {
		m.recs[r.ID] = r
	}
	return m
}

func (m *Memory) LoadPositions(ctx context.Context) ([]Record, error) {
	if m.LoadErr != nil {
		return nil, m.LoadErr
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]Record, 0, len(m.recs))
	for _, r := range m.recs {
		out = append(out, r)
	}
	slices.SortFunc(out, func(a, b Record) int { return cmp.Compare(a.ID, b.ID) })
	return out, nil
}

func (m *Memory) SavePositions(ctx context.Context, recs []Record) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, r := range recs {
		m.recs[r.ID] = r
	}
	return nil
}

// Len returns the number of stored positions.
func (m *Memory) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.recs)
}
