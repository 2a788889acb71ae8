package store

import (
	"context"
	"sync"
)

// Memory is a mutex-guarded in-memory EntityStore for tests and local
// development. The compare and the write happen under one lock, which makes
// ConditionalWrite atomic across goroutines.
type Memory struct {
	mu       sync.RWMutex
	entities map[Ref]map[string]string
}

// NewMemory creates an empty in-memory store.
func NewMemory() *Memory {
	return &Memory{entities: make(map[Ref]map[string]string)}
}

// Seed writes an attribute value unconditionally, creating the entity if
// needed. Intended for test setup.
func (m *Memory) Seed(ref Ref, attribute, value string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	attrs, ok := m.entities[ref]
	if !ok {
		attrs = make(map[string]string)
		m.entities[ref] = attrs
	}
	attrs[attribute] = value
}

// Delete removes the entity and all its attributes.
func (m *Memory) Delete(ref Ref) {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.entities, ref)
}

func (m *Memory) ReadState(_ context.Context, ref Ref, attribute string) (string, bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	attrs, ok := m.entities[ref]
	if !ok {
		return "", false, nil
	}
	v, ok := attrs[attribute]
	return v, ok, nil
}

func (m *Memory) ConditionalWrite(_ context.Context, ref Ref, attribute, expected, value string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	attrs, ok := m.entities[ref]
	if !ok {
		attrs = make(map[string]string)
		m.entities[ref] = attrs
	}

	current, found := attrs[attribute]
	if expected == "" {
		if found {
			return false, nil
		}
	} else if !found || current != expected {
		return false, nil
	}

	attrs[attribute] = value
	return true, nil
}

func (m *Memory) Exists(_ context.Context, ref Ref) (bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	attrs, ok := m.entities[ref]
	return ok && len(attrs) > 0, nil
}
