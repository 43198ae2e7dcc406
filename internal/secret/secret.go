// Package secret provides the credential stores injected into the model core.
//
// The core only consumes Store; persistence and encryption are the concern of
// the implementation picked at wiring time.
package secret

import (
	"errors"
	"sync"
)

// OpenRouterKey is the well-known key of the remote chat credential.
const OpenRouterKey = "openrouter_api_key"

var (
	// ErrEmptyKey is returned when a store operation is given an empty key.
	ErrEmptyKey = errors.New("secret: empty key")
	// ErrEmptyValue is returned when a credential value is blank.
	ErrEmptyValue = errors.New("secret: empty value")
)

// Store is a key to secret mapping. Absent keys are not errors: Get reports
// ok=false.
type Store interface {
	Get(key string) (value string, ok bool, err error)
	Put(key, value string) error
	Delete(key string) error
}

// Has reports whether key holds a non-empty secret. Read errors count as absent.
func Has(s Store, key string) bool {
	if s == nil {
		return false
	}
	v, ok, err := s.Get(key)
	return err == nil && ok && v != ""
}

// MemoryStore keeps secrets in process memory.
type MemoryStore struct {
	mu sync.RWMutex
	m  map[string]string
}

func NewMemoryStore() *MemoryStore { return &MemoryStore{m: make(map[string]string)} }

func (s *MemoryStore) Get(key string) (string, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	v, ok := s.m[key]
	return v, ok, nil
}

func (s *MemoryStore) Put(key, value string) error {
	if key == "" {
		return ErrEmptyKey
	}
	s.mu.Lock()
	s.m[key] = value
	s.mu.Unlock()
	return nil
}

func (s *MemoryStore) Delete(key string) error {
	s.mu.Lock()
	delete(s.m, key)
	s.mu.Unlock()
	return nil
}
