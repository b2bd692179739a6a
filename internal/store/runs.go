package store

import (
	"context"
	"encoding/json"
	"sync"
	"time"

	"github.com/google/uuid"
)

// Run is the record kept for every layout run.
type Run struct {
	ID         uuid.UUID
	StartedAt  time.Time
	FinishedAt time.Time
	Dim        int
	Nodes      int

	// Iterations per level, coarsest first.
	Iterations []int64

	// State is the terminal state of the finest level, or "failed".
	State  string
	Params json.RawMessage
}

// RunRecorder keeps a history of layout runs.
type RunRecorder interface {
	RecordRun(ctx context.Context, r Run) error
}

// MemoryRuns is an in-process RunRecorder.
type MemoryRuns struct {
	mu   sync.Mutex
	runs []Run
}

func (m *MemoryRuns) RecordRun(ctx context.Context, r Run) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.runs = append(m.runs, r)
	return nil
}

// Runs returns a copy of the recorded runs, oldest first.
func (m *MemoryRuns) Runs() []Run {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]Run(nil), m.runs...)
}
