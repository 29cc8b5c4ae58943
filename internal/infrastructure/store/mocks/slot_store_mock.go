// Package mocks provides an in-memory slot store for tests.
package mocks

import (
	"context"
	"errors"
	"sync"
)

// ErrPutFailed is returned by Put when FailPuts is set.
var ErrPutFailed = errors.New("mock: put failed")

// MockSlotStore implements store.Interface in memory and records calls so
// tests can assert on persistence behavior.
type MockSlotStore struct {
	mu       sync.Mutex
	slots    map[string][]byte
	PutCalls []string
	FailPuts bool
}

func NewMockSlotStore() *MockSlotStore {
	return &MockSlotStore{slots: make(map[string][]byte)}
}

func (m *MockSlotStore) Put(ctx context.Context, key string, value []byte) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.PutCalls = append(m.PutCalls, key)
	if m.FailPuts {
		return ErrPutFailed
	}
	cp := make([]byte, len(value))
	copy(cp, value)
	m.slots[key] = cp
	return nil
}

func (m *MockSlotStore) Get(ctx context.Context, key string) ([]byte, bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	value, ok := m.slots[key]
	if !ok {
		return nil, false, nil
	}
	cp := make([]byte, len(value))
	copy(cp, value)
	return cp, true, nil
}

func (m *MockSlotStore) Delete(ctx context.Context, key string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.slots, key)
	return nil
}

// Seed stores a value without recording a put call.
func (m *MockSlotStore) Seed(key string, value []byte) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.slots[key] = value
}
