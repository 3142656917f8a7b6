package localstore

import (
	"context"
	"sync"
)

// Memory keeps state in process memory. Useful for tests and throwaway sessions.
type Memory struct {
	mu     sync.RWMutex
	values map[string]string
	reads  map[string]int
}

func NewMemory() *Memory {
	return &Memory{values: map[string]string{}, reads: map[string]int{}}
}

func (m *Memory) Get(_ context.Context, key string) (string, bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.reads[key]++
	value, ok := m.values[key]
	return value, ok, nil
}

func (m *Memory) Set(_ context.Context, key, value string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.values[key] = value
	return nil
}

func (m *Memory) Delete(_ context.Context, keys ...string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, key := range keys {
		delete(m.values, key)
	}
	return nil
}

func (m *Memory) Ping(context.Context) error {
	return nil
}

// Reads returns how many times key was physically read.
func (m *Memory) Reads(key string) int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.reads[key]
}

// Has reports whether key is present without counting as a read.
func (m *Memory) Has(key string) bool {
	m.mu.RLock()
	defer m.mu.RUnlock()
	_, ok := m.values[key]
	return ok
}

// Raw returns the stored value without counting as a read.
func (m *Memory) Raw(key string) string {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.values[key]
}
