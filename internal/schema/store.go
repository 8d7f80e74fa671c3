package schema

import (
	"sync"
	"sync/atomic"
)

// Store holds the current catalog. Readers take a snapshot with Current and
// keep using it for the whole document they are processing; Reload swaps in
// a new catalog only after it has been fully parsed and validated.
type Store struct {
	cur      atomic.Pointer[Catalog]
	reloadMu sync.Mutex
	path     string
}

// NewStore returns a Store serving c. path is the file Reload reads; it may
// be empty for the embedded catalog.
func NewStore(c *Catalog, path string) *Store {
	s := &Store{path: path}
	s.cur.Store(c)
	return s
}

// Open loads the catalog at path, or the embedded default when path is empty.
func Open(path string) (*Store, error) {
	var (
		c   *Catalog
		err error
	)
	if path == "" {
		c, err = Default()
	} else {
		c, err = Load(path)
	}
	if err != nil {
		return nil, err
	}
	return NewStore(c, path), nil
}

// Current returns the active catalog.
func (s *Store) Current() *Catalog {
	return s.cur.Load()
}

// MaxLevelFor delegates to the active catalog.
func (s *Store) MaxLevelFor(templateType string) int {
	return s.Current().MaxLevelFor(templateType)
}

// Path returns the backing file, if any.
func (s *Store) Path() string {
	return s.path
}

// Reload re-reads the backing file. On any error the active catalog is kept.
func (s *Store) Reload() (*Catalog, error) {
	s.reloadMu.Lock()
	defer s.reloadMu.Unlock()

	var (
		c   *Catalog
		err error
	)
	if s.path == "" {
		c, err = Default()
	} else {
		c, err = Load(s.path)
	}
	if err != nil {
		return s.Current(), err
	}
	s.cur.Store(c)
	return c, nil
}
