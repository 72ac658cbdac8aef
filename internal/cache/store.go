// Package cache is a small persisted key/value store. Values are kept as
// decoded YAML nodes in memory so reads never touch the disk; every write is
// flushed through to the backing file.
package cache

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"sync"

	"gopkg.in/yaml.v3"
)

var ErrCorrupt = errors.New("cache file is corrupt")

const fileVersion = 1

type storeFile struct {
	Version int                   `yaml:"version"`
	Entries map[string]*yaml.Node `yaml:"entries"`
}

type Store struct {
	path    string
	entries map[string]*yaml.Node
	loaded  bool
	mu      sync.RWMutex
}

func NewStore(path string) (*Store, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, err
	}

	return &Store{
		path:    path,
		entries: make(map[string]*yaml.Node),
	}, nil
}

func (s *Store) Path() string {
	return s.path
}

// Load reads the backing file into the mirror. A missing or empty file
// leaves the store empty.
func (s *Store) Load() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.loaded = true

	data, err := os.ReadFile(s.path)
	if os.IsNotExist(err) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("failed to read cache file: %w", err)
	}

	var file storeFile
	if err := yaml.Unmarshal(data, &file); err != nil {
		return fmt.Errorf("%w: %q: %v", ErrCorrupt, s.path, err)
	}

	s.entries = make(map[string]*yaml.Node, len(file.Entries))
	for k, v := range file.Entries {
		if v != nil {
			s.entries[k] = v
		}
	}
	return nil
}

func (s *Store) Loaded() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.loaded
}

func (s *Store) Has(key string) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	_, ok := s.entries[key]
	return ok
}

func (s *Store) Keys() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()

	keys := make([]string, 0, len(s.entries))
	for k := range s.entries {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

func (s *Store) Remove(key string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.entries[key]; !ok {
		return nil
	}
	delete(s.entries, key)
	return s.flushLocked()
}

// Clear drops every entry and deletes the backing file.
func (s *Store) Clear() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.entries = make(map[string]*yaml.Node)
	if err := os.Remove(s.path); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("failed to remove cache file: %w", err)
	}
	return nil
}

func (s *Store) put(key string, node *yaml.Node) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.entries[key] = node
	return s.flushLocked()
}

func (s *Store) node(key string) (*yaml.Node, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	n, ok := s.entries[key]
	return n, ok
}

func (s *Store) flushLocked() error {
	file := storeFile{
		Version: fileVersion,
		Entries: s.entries,
	}

	data, err := yaml.Marshal(file)
	if err != nil {
		return err
	}

	tmpPath := s.path + ".tmp"
	if err := os.WriteFile(tmpPath, data, 0o644); err != nil {
		return err
	}

	return os.Rename(tmpPath, s.path)
}

// Get decodes the value stored under key. ok is false when the key is absent.
func Get[T any](s *Store, key string) (T, bool, error) {
	var v T
	n, ok := s.node(key)
	if !ok {
		return v, false, nil
	}
	if err := n.Decode(&v); err != nil {
		return v, false, fmt.Errorf("%w: key %q: %v", ErrCorrupt, key, err)
	}
	return v, true, nil
}

func Set[T any](s *Store, key string, value T) error {
	var n yaml.Node
	if err := n.Encode(value); err != nil {
		return fmt.Errorf("failed to encode cache value %q: %w", key, err)
	}
	return s.put(key, &n)
}
