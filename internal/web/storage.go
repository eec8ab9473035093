package web

import (
	"errors"
	"sync"
)

// ErrStorageUnavailable is returned by storages that cannot be used.
var ErrStorageUnavailable = errors.New("web: storage unavailable")

// ErrQuotaExceeded is returned when a write does not fit. It wraps
// ErrStorageUnavailable.
var ErrQuotaExceeded = errors.Join(ErrStorageUnavailable, errors.New("web: storage quota exceeded"))

// Storage is a session-scoped key-value medium. Any call may fail; callers
// go through SessionStore, which turns failures into no-ops.
type Storage interface {
	Get(key string) (string, bool, error)
	Set(key, value string) error
	Remove(key string) error
}

// MemoryStorage keeps values in process memory.
type MemoryStorage struct {
	mu     sync.Mutex
	values map[string]string
	// Quota caps the total bytes of keys and values. Zero means unlimited.
	Quota int
}

// NewMemoryStorage returns an empty storage with no quota.
func NewMemoryStorage() *MemoryStorage {
	return &MemoryStorage{values: make(map[string]string)}
}

// Get implements Storage.
func (m *MemoryStorage) Get(key string) (string, bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	v, ok := m.values[key]
	return v, ok, nil
}

// Set implements Storage.
func (m *MemoryStorage) Set(key, value string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.values == nil {
		m.values = make(map[string]string)
	}
	if m.Quota > 0 {
		used := 0
		for k, v := range m.values {
			if k != key {
				used += len(k) + len(v)
			}
		}
		if used+len(key)+len(value) > m.Quota {
			return ErrQuotaExceeded
		}
	}
	m.values[key] = value
	return nil
}

// Remove implements Storage.
func (m *MemoryStorage) Remove(key string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.values, key)
	return nil
}

// DisabledStorage fails every call, like a browser with storage turned off.
type DisabledStorage struct{}

// Get implements Storage.
func (DisabledStorage) Get(string) (string, bool, error) { return "", false, ErrStorageUnavailable }

// Set implements Storage.
func (DisabledStorage) Set(string, string) error { return ErrStorageUnavailable }

// Remove implements Storage.
func (DisabledStorage) Remove(string) error { return ErrStorageUnavailable }
