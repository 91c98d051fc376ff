package storage

import (
	"context"
	"sync"
)

// Memory is an in-memory Adapter. Snapshots do not survive the process; it
// exists for tests and for queues that only want crash-consistent state
// within a single run.
type Memory struct {
	mu      sync.RWMutex
	entries map[string][]byte
}

// NewMemory creates a new in-memory adapter.
func NewMemory() *Memory {
	return &Memory{
		entries: make(map[string][]byte),
	}
}

// Save stores a copy of data under key.
func (m *Memory) Save(_ context.Context, key string, data []byte) error {
	if err := ValidateKey(key); err != nil {
		return err
	}

	buf := make([]byte, len(data))
	copy(buf, data)

	m.mu.Lock()
	m.entries[key] = buf
	m.mu.Unlock()
	return nil
}

// Load retrieves the data stored under key.
func (m *Memory) Load(_ context.Context, key string) ([]byte, bool, error) {
	m.mu.RLock()
	data, ok := m.entries[key]
	m.mu.RUnlock()

	if !ok {
		return nil, false, nil
	}

	buf := make([]byte, len(data))
	copy(buf, data)
	return buf, true, nil
}

// Remove deletes the data stored under key. Idempotent - no error on miss.
func (m *Memory) Remove(_ context.Context, key string) error {
	m.mu.Lock()
	delete(m.entries, key)
	m.mu.Unlock()
	return nil
}

// Len returns the number of stored keys.
func (m *Memory) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.entries)
}

// Ensure Memory implements Adapter
var _ Adapter = (*Memory)(nil)
