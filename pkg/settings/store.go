// Package settings persists per-modality configuration in an opaque
// key-value store.
package settings

import (
	"errors"
	"fmt"
	"sort"
	"strings"
	"sync"

	"github.com/teslashibe/go-access/internal/config"
)

var (
	// ErrUnknownBackend is returned by Open for an unsupported DSN scheme.
	ErrUnknownBackend = errors.New("settings: unknown backend")

	// ErrUnknownKey is returned when applying a value for an unknown setting.
	ErrUnknownKey = errors.New("settings: unknown key")
)

// Store is a key-value settings backend. Paths are dot-separated.
type Store interface {
	// Get returns the value at path and whether it was set.
	Get(path string) (string, bool, error)

	// Set stores value at path.
	Set(path, value string) error

	// Keys returns every path with the given prefix, sorted.
	Keys(prefix string) ([]string, error)

	// Close releases any resources held by the store.
	Close() error
}

// Open creates a store from a DSN: "memory:", "json:<path>" or "sqlite:<path>".
func Open(dsn string) (Store, error) {
	scheme, location := config.SplitDSN(dsn)
	switch scheme {
	case "", "memory":
		return NewMemoryStore(), nil
	case "json":
		return NewJSONStore(location)
	case "sqlite":
		return NewSQLiteStore(location)
	}
	return nil, fmt.Errorf("%w: %q", ErrUnknownBackend, scheme)
}

// MemoryStore keeps settings in memory.
type MemoryStore struct {
	mu     sync.RWMutex
	values map[string]string
}

// NewMemoryStore creates an empty in-memory store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{values: make(map[string]string)}
}

// Get returns the value at path.
func (s *MemoryStore) Get(path string) (string, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	v, ok := s.values[path]
	return v, ok, nil
}

// Set stores value at path.
func (s *MemoryStore) Set(path, value string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.values[path] = value
	return nil
}

// Keys returns the paths under prefix.
func (s *MemoryStore) Keys(prefix string) ([]string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return sortedKeys(s.values, prefix), nil
}

// Close is a no-op.
func (s *MemoryStore) Close() error {
	return nil
}

func sortedKeys(m map[string]string, prefix string) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		if strings.HasPrefix(k, prefix) {
			keys = append(keys, k)
		}
	}
	sort.Strings(keys)
	return keys
}

var (
	_ Store = (*MemoryStore)(nil)
	_ Store = (*JSONStore)(nil)
	_ Store = (*SQLiteStore)(nil)
)
