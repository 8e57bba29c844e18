package mocks

import (
	"context"
	"sync"
)

// RecordRepositoryMock keeps records in a map unless a func field overrides
// the call.
type RecordRepositoryMock struct {
	LoadFunc   func(ctx context.Context, key string) (string, bool, error)
	SaveFunc   func(ctx context.Context, key, value string) error
	DeleteFunc func(ctx context.Context, key string) error

	mu      sync.Mutex
	records map[string]string
	saves   int
}

func (m *RecordRepositoryMock) Load(ctx context.Context, key string) (string, bool, error) {
	if m.LoadFunc != nil {
		return m.LoadFunc(ctx, key)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	v, ok := m.records[key]
	return v, ok, nil
}

func (m *RecordRepositoryMock) Save(ctx context.Context, key, value string) error {
	m.mu.Lock()
	m.saves++
	m.mu.Unlock()
	if m.SaveFunc != nil {
		return m.SaveFunc(ctx, key, value)
	}
	m.Put(key, value)
	return nil
}

func (m *RecordRepositoryMock) Delete(ctx context.Context, key string) error {
	if m.DeleteFunc != nil {
		return m.DeleteFunc(ctx, key)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.records, key)
	return nil
}

// Put seeds a record without counting it as a save.
func (m *RecordRepositoryMock) Put(key, value string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.records == nil {
		m.records = make(map[string]string)
	}
	m.records[key] = value
}

// Get returns the last value saved under key.
func (m *RecordRepositoryMock) Get(key string) (string, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	v, ok := m.records[key]
	return v, ok
}

// Saves counts Save calls, including failed ones.
func (m *RecordRepositoryMock) Saves() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.saves
}
