// Package memory provides an in-memory journal store for tests and
// single-process deployments.
package memory

import (
	"context"
	"sort"
	"sync"

	"github.com/xraph/formrelay/id"
	"github.com/xraph/formrelay/journal"
)

// compile-time interface check.
var _ journal.Store = (*Store)(nil)

// Store is an in-memory journal.Store.
type Store struct {
	mu      sync.RWMutex
	entries map[string]*journal.Entry
	closed  bool
}

// New creates an empty store.
func New() *Store {
	return &Store{entries: make(map[string]*journal.Entry)}
}

// Migrate is a no-op for the in-memory store.
func (s *Store) Migrate(_ context.Context) error { return nil }

// Ping reports ErrStoreClosed after Close.
func (s *Store) Ping(_ context.Context) error {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.closed {
		return journal.ErrStoreClosed
	}
	return nil
}

// Close marks the store as closed.
func (s *Store) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.closed = true
	return nil
}

// Append stores a copy of e. IDs are unique.
func (s *Store) Append(_ context.Context, e *journal.Entry) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return journal.ErrStoreClosed
	}
	if _, ok := s.entries[e.ID.String()]; ok {
		return journal.ErrDuplicateEntry
	}
	s.entries[e.ID.String()] = copyEntry(e)
	return nil
}

// Get returns a copy of the entry.
func (s *Store) Get(_ context.Context, entryID id.ID) (*journal.Entry, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	e, ok := s.entries[entryID.String()]
	if !ok {
		return nil, journal.ErrEntryNotFound
	}
	return copyEntry(e), nil
}

// List returns entries newest first, optionally filtered by state.
func (s *Store) List(_ context.Context, opts journal.ListOpts) ([]*journal.Entry, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	result := make([]*journal.Entry, 0, len(s.entries))
	for _, e := range s.entries {
		if opts.State != "" && e.State != opts.State {
			continue
		}
		result = append(result, copyEntry(e))
	}

	sort.Slice(result, func(i, j int) bool {
		if result[i].CreatedAt.Equal(result[j].CreatedAt) {
			return result[i].ID.String() > result[j].ID.String()
		}
		return result[i].CreatedAt.After(result[j].CreatedAt)
	})

	return journal.Paginate(result, opts.Offset, opts.Limit), nil
}

func copyEntry(e *journal.Entry) *journal.Entry {
	cp := *e
	if e.Record != nil {
		cp.Record = append([]byte(nil), e.Record...)
	}
	return &cp
}
