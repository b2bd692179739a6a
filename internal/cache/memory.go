package cache

import (
	"sync"
	"time"
)

// Memory is an unbounded map cache used in tests and when the ristretto
// cache is disabled. Entries never expire.
type Memory struct {
	mu    sync.Mutex
	data  map[string][]byte
	stats Stats
}

func NewMemory() *Memory {
	return &Memory{data: make(map[string][]byte)}
}

func (m *Memory) Get(key string) ([]byte, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	v, ok := m.data[key]
	if ok {
		m.stats.Hits++
	} else {
		m.stats.Misses++
	}
	return v, ok
}

func (m *Memory) Set(key string, value []byte, _ time.Duration) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if old, ok := m.data[key]; ok {
		m.stats.Size -= int64(len(old))
	} else {
		m.stats.Items++
	}
	m.data[key] = value
	m.stats.KeysAdded++
	m.stats.Size += int64(len(value))
}

func (m *Memory) Delete(key string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if old, ok := m.data[key]; ok {
		m.stats.Size -= int64(len(old))
		m.stats.Items--
		delete(m.data, key)
	}
}

func (m *Memory) Clear() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.data = make(map[string][]byte)
	m.stats.Size, m.stats.Items = 0, 0
}

func (m *Memory) Stats() Stats {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.stats
}
