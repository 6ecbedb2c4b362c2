// Package store is the durable per-guild state layer: one JSON document per
// (subsystem, key) path under a root directory, mutated under an exclusive
// per-path lock and written atomically.
package store

import (
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"sync"
)

// Store is a keyed JSON document store. Paths are slash-separated and
// relative to the root, e.g. "economy.json" or "giveaways/1234.json".
type Store struct {
	root string

	mu    sync.Mutex
	locks map[string]*sync.Mutex
}

// New creates a store rooted at dir, creating the directory if needed.
func New(dir string) (*Store, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create data directory: %w", err)
	}
	return &Store{
		root:  dir,
		locks: make(map[string]*sync.Mutex),
	}, nil
}

func (s *Store) lock(path string) *sync.Mutex {
	s.mu.Lock()
	defer s.mu.Unlock()
	l, ok := s.locks[path]
	if !ok {
		l = &sync.Mutex{}
		s.locks[path] = l
	}
	return l
}

// Load reads the document at path into v. A missing file leaves v untouched
// so callers get their zero-value document.
func (s *Store) Load(path string, v any) error {
	l := s.lock(path)
	l.Lock()
	defer l.Unlock()
	return s.read(path, v)
}

// Save writes v to path atomically (write temp, then rename).
func (s *Store) Save(path string, v any) error {
	l := s.lock(path)
	l.Lock()
	defer l.Unlock()
	return s.write(path, v)
}

// Mutate performs a read-modify-write cycle on the document at path under
// the path's exclusive lock: load into v, run fn, persist v. If fn returns
// an error nothing is written.
func (s *Store) Mutate(path string, v any, fn func() error) error {
	l := s.lock(path)
	l.Lock()
	defer l.Unlock()

	if err := s.read(path, v); err != nil {
		return err
	}
	if err := fn(); err != nil {
		return err
	}
	return s.write(path, v)
}

func (s *Store) read(path string, v any) error {
	data, err := os.ReadFile(s.abs(path))
	if errors.Is(err, fs.ErrNotExist) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("failed to read %s: %w", path, err)
	}
	if len(data) == 0 {
		return nil
	}
	if err := json.Unmarshal(data, v); err != nil {
		return fmt.Errorf("failed to decode %s: %w", path, err)
	}
	return nil
}

func (s *Store) write(path string, v any) error {
	full := s.abs(path)
	if err := os.MkdirAll(filepath.Dir(full), 0o755); err != nil {
		return fmt.Errorf("failed to create directory for %s: %w", path, err)
	}

	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to encode %s: %w", path, err)
	}

	tmp, err := os.CreateTemp(filepath.Dir(full), ".tmp-*")
	if err != nil {
		return fmt.Errorf("failed to create temp file for %s: %w", path, err)
	}
	tmpName := tmp.Name()
	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return fmt.Errorf("failed to write temp file for %s: %w", path, err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("failed to close temp file for %s: %w", path, err)
	}
	if err := os.Rename(tmpName, full); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("failed to rename temp file for %s: %w", path, err)
	}
	return nil
}

func (s *Store) abs(path string) string {
	return filepath.Join(s.root, filepath.FromSlash(path))
}

// List returns the document paths directly under dir, e.g. the per-guild
// giveaway files. Missing directories list as empty.
func (s *Store) List(dir string) ([]string, error) {
	entries, err := os.ReadDir(s.abs(dir))
	if errors.Is(err, fs.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to list %s: %w", dir, err)
	}
	var paths []string
	for _, e := range entries {
		if e.IsDir() || !strings.HasSuffix(e.Name(), ".json") {
			continue
		}
		paths = append(paths, dir+"/"+e.Name())
	}
	return paths, nil
}
