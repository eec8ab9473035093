package web

import (
	"log/slog"
	"strings"
)

// StorageKey is the only key the form ever writes.
const StorageKey = "kindleEmail"

// SessionStore remembers one delivery address. Every operation is fail-soft:
// a broken Storage makes Load report absent and writes do nothing.
type SessionStore struct {
	storage Storage
	logger  *slog.Logger
}

// NewSessionStore wraps storage. A nil logger discards nothing and uses
// slog.Default().
func NewSessionStore(storage Storage, logger *slog.Logger) *SessionStore {
	if logger == nil {
		logger = slog.Default()
	}
	return &SessionStore{storage: storage, logger: logger}
}

// Load returns the remembered address, if any.
func (s *SessionStore) Load() (string, bool) {
	if s == nil || s.storage == nil {
		return "", false
	}
	v, ok, err := s.storage.Get(StorageKey)
	if err != nil {
		s.logger.Debug("Session storage read failed.", "error", err)
		return "", false
	}
	v = strings.TrimSpace(v)
	if !ok || v == "" {
		return "", false
	}
	return v, true
}

// Save remembers address. An empty address clears instead.
func (s *SessionStore) Save(address string) {
	if s == nil || s.storage == nil {
		return
	}
	address = strings.TrimSpace(address)
	if address == "" {
		s.Clear()
		return
	}
	if err := s.storage.Set(StorageKey, address); err != nil {
		s.logger.Debug("Session storage write failed.", "error", err)
	}
}

// Clear forgets the remembered address.
func (s *SessionStore) Clear() {
	if s == nil || s.storage == nil {
		return
	}
	if err := s.storage.Remove(StorageKey); err != nil {
		s.logger.Debug("Session storage remove failed.", "error", err)
	}
}

// Sync applies the write-on-change rule: the value is stored only while
// remember is on and the address is non-empty, and removed otherwise.
func (s *SessionStore) Sync(remember bool, address string) {
	if !remember || strings.TrimSpace(address) == "" {
		s.Clear()
		return
	}
	s.Save(address)
}
