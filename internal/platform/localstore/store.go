package localstore

import (
	"errors"
	"strings"
	"sync"
)

var (
	// ErrClosed is returned when a store is used after Close.
	ErrClosed = errors.New("localstore: store is closed")
	// ErrKeyRequired is returned for blank keys.
	ErrKeyRequired = errors.New("localstore: key is required")
)

// Store is a small durable key/value surface for client-local state such as carts and sessions.
type Store interface {
	Get(key string) ([]byte, bool, error)
	Put(key string, value []byte) error
	Delete(key string) error
}

// MemoryStore is a process-local Store used by tests and ephemeral sessions.
type MemoryStore struct {
	mu     sync.RWMutex
	values map[string][]byte
}

// NewMemoryStore constructs an empty MemoryStore.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{values: make(map[string][]byte)}
}

// Get returns a copy of the stored value.
func (s *MemoryStore) Get(key string) ([]byte, bool, error) {
	key = strings.TrimSpace(key)
	if key == "" {
		return nil, false, ErrKeyRequired
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	value, ok := s.values[key]
	if !ok {
		return nil, false, nil
	}
	return append([]byte(nil), value...), true, nil
}

// Put stores a copy of value under key.
func (s *MemoryStore) Put(key string, value []byte) error {
	key = strings.TrimSpace(key)
	if key == "" {
		return ErrKeyRequired
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.values[key] = append([]byte(nil), value...)
	return nil
}

// Delete removes key; deleting an absent key is not an error.
func (s *MemoryStore) Delete(key string) error {
	key = strings.TrimSpace(key)
	if key == "" {
		return ErrKeyRequired
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.values, key)
	return nil
}
