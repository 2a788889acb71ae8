package eventlog

import (
	"context"
	"slices"
	"sync"
)

// Memory is an in-process Storage for tests and single-node setups.
type Memory struct {
	mu      sync.RWMutex
	entries map[Key][]Entry
}

// NewMemory creates an empty in-memory storage.
func NewMemory() *Memory {
	return &Memory{entries: make(map[Key][]Entry)}
}

// Append records the entry. It never fails.
func (m *Memory) Append(_ context.Context, entry Entry) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	key := entry.Key()
	m.entries[key] = append(m.entries[key], entry)
	return nil
}

// Query returns the key's entries in append order.
func (m *Memory) Query(_ context.Context, key Key) ([]Entry, error) {
	if err := key.Validate(); err != nil {
		return nil, err
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	return slices.Clone(m.entries[key]), nil
}
