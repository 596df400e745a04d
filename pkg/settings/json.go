package settings

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"
)

// JSONStore keeps settings in memory and rewrites a JSON file on every Set.
type JSONStore struct {
	FilePath string

	mu     sync.RWMutex
	values map[string]string
}

// NewJSONStore loads the file at path, if any.
func NewJSONStore(path string) (*JSONStore, error) {
	s := &JSONStore{FilePath: path, values: make(map[string]string)}
	if err := s.load(); err != nil {
		return nil, err
	}
	return s, nil
}

func (s *JSONStore) load() error {
	if s.FilePath == "" {
		return nil
	}
	data, err := os.ReadFile(s.FilePath)
	if err != nil {
		if os.IsNotExist(err) {
			return nil // created on first Set
		}
		return fmt.Errorf("read file: %w", err)
	}
	if len(data) == 0 {
		return nil
	}
	if err := json.Unmarshal(data, &s.values); err != nil {
		return fmt.Errorf("decode settings: %w", err)
	}
	return nil
}

func (s *JSONStore) save() error {
	if s.FilePath == "" {
		return nil
	}
	dir := filepath.Dir(s.FilePath)
	if dir != "" && dir != "." {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return fmt.Errorf("create directory: %w", err)
		}
	}
	data, err := json.MarshalIndent(s.values, "", "  ")
	if err != nil {
		return fmt.Errorf("encode settings: %w", err)
	}
	tmp := s.FilePath + ".tmp"
	if err := os.WriteFile(tmp, data, 0644); err != nil {
		return fmt.Errorf("write file: %w", err)
	}
	return os.Rename(tmp, s.FilePath)
}

// Get returns the value at path.
func (s *JSONStore) Get(path string) (string, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	v, ok := s.values[path]
	return v, ok, nil
}

// Set stores value at path and persists the file.
func (s *JSONStore) Set(path, value string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	prev, had := s.values[path]
	s.values[path] = value
	if err := s.save(); err != nil {
		if had {
			s.values[path] = prev
		} else {
			delete(s.values, path)
		}
		return err
	}
	return nil
}

// Keys returns the paths under prefix.
func (s *JSONStore) Keys(prefix string) ([]string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return sortedKeys(s.values, prefix), nil
}

// Close is a no-op for JSON files.
func (s *JSONStore) Close() error {
	return nil
}
