package cache

import (
	"context"
	"sync"
)

// MemoryBackend keeps values in process memory.
//
// A non-zero maxBytes caps the total stored size; writes beyond it fail with
// ErrQuotaExceeded, the way a browser storage area rejects writes when full.
type MemoryBackend struct {
	mu       sync.RWMutex
	data     map[string][]byte
	size     int
	maxBytes int
}

// NewMemoryBackend creates an in-memory backend. maxBytes of 0 means unlimited.
func NewMemoryBackend(maxBytes int) *MemoryBackend {
	return &MemoryBackend{
		data:     make(map[string][]byte),
		maxBytes: maxBytes,
	}
}

func (m *MemoryBackend) Get(_ context.Context, key string) ([]byte, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	v, ok := m.data[key]
	if !ok {
		return nil, ErrNotFound
	}
	out := make([]byte, len(v))
	copy(out, v)
	return out, nil
}

func (m *MemoryBackend) Set(_ context.Context, key string, value []byte) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	newSize := m.size - len(m.data[key]) + len(value)
	if m.maxBytes > 0 && newSize > m.maxBytes {
		return ErrQuotaExceeded
	}

	v := make([]byte, len(value))
	copy(v, value)
	m.data[key] = v
	m.size = newSize
	return nil
}

func (m *MemoryBackend) Delete(_ context.Context, key string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.size -= len(m.data[key])
	delete(m.data, key)
	return nil
}
