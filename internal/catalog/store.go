package catalog

import (
	"fmt"
	"sync/atomic"
)

// Store holds the active catalog. Readers always see a complete, validated
// catalog; Reload replaces the pointer and never mutates a published value.
type Store struct {
	path string
	cur  atomic.Pointer[Catalog]
}

// NewStore loads the catalog at path (empty for the embedded one).
func NewStore(path string) (*Store, error) {
	cat, err := LoadFile(path)
	if err != nil {
		return nil, err
	}
	s := &Store{path: path}
	s.cur.Store(cat)
	return s, nil
}

// NewStaticStore wraps an already loaded catalog.
func NewStaticStore(cat *Catalog) *Store {
	s := &Store{}
	s.cur.Store(cat)
	return s
}

func (s *Store) Get() *Catalog {
	return s.cur.Load()
}

func (s *Store) Path() string {
	return s.path
}

// Swap publishes cat and returns the previous catalog.
func (s *Store) Swap(cat *Catalog) *Catalog {
	return s.cur.Swap(cat)
}

// Reload re-reads the source. On error the current catalog stays active.
func (s *Store) Reload() (*Catalog, error) {
	cat, err := LoadFile(s.path)
	if err != nil {
		return nil, fmt.Errorf("reload %s: %w", s.sourceName(), err)
	}
	s.Swap(cat)
	return cat, nil
}

func (s *Store) sourceName() string {
	if s.path == "" {
		return "embedded catalog"
	}
	return s.path
}
