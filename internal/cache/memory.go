package cache

import (
	"context"
	"strings"
	"sync"
	"time"
)

type entry struct {
	value    []byte
	storedAt time.Time
}

// Memory is a process-local cache. It is unbounded by count; expired
// entries are dropped on read and by Sweep.
type Memory struct {
	mu      sync.RWMutex
	ttl     time.Duration
	entries map[string]entry
	now     func() time.Time
}

func NewMemory(ttl time.Duration) *Memory {
	return &Memory{
		ttl:     ttl,
		entries: make(map[string]entry),
		now:     time.Now,
	}
}

// WithClock replaces the time source. Used by tests.
func (m *Memory) WithClock(now func() time.Time) *Memory {
	m.now = now
	return m
}

func (m *Memory) Get(_ context.Context, key string) ([]byte, bool, error) {
	m.mu.RLock()
	e, ok := m.entries[key]
	m.mu.RUnlock()
	if !ok || m.now().Sub(e.storedAt) >= m.ttl {
		return nil, false, nil
	}
	return e.value, true, nil
}

func (m *Memory) Set(_ context.Context, key string, value []byte) error {
	m.mu.Lock()
	m.entries[key] = entry{value: value, storedAt: m.now()}
	m.mu.Unlock()
	return nil
}

func (m *Memory) Delete(_ context.Context, keys ...string) error {
	m.mu.Lock()
	for _, k := range keys {
		delete(m.entries, k)
	}
	m.mu.Unlock()
	return nil
}

func (m *Memory) DeletePrefix(_ context.Context, prefix string) error {
	m.mu.Lock()
	for k := range m.entries {
		if strings.HasPrefix(k, prefix) {
			delete(m.entries, k)
		}
	}
	m.mu.Unlock()
	return nil
}

func (m *Memory) Sweep(context.Context) int {
	now := m.now()
	removed := 0
	m.mu.Lock()
	for k, e := range m.entries {
		if now.Sub(e.storedAt) >= m.ttl {
			delete(m.entries, k)
			removed++
		}
	}
	m.mu.Unlock()
	return removed
}

// Len returns the number of stored entries, expired or not.
func (m *Memory) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.entries)
}
