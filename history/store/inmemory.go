// Package store holds history.Store implementations.
package store

import (
	"context"
	"fmt"
	"sync"

	errorskg "github.com/sweetpotato0/ragdeck/errors"
	"github.com/sweetpotato0/ragdeck/history"
)

// InMemoryStore keeps records in process memory, oldest first.
type InMemoryStore struct {
	records []*history.Record
	max     int
	mu      sync.RWMutex
}

// NewInMemoryStore creates a store that keeps at most max records
// (unbounded when max <= 0).
func NewInMemoryStore(max int) *InMemoryStore {
	return &InMemoryStore{max: max}
}

// Add stores a copy of r.
func (s *InMemoryStore) Add(ctx context.Context, r *history.Record) error {
	if r == nil {
		return fmt.Errorf("record cannot be nil")
	}
	r.Prepare()

	s.mu.Lock()
	defer s.mu.Unlock()
	s.records = append(s.records, r.Clone())
	if s.max > 0 && len(s.records) > s.max {
		s.records = s.records[len(s.records)-s.max:]
	}
	return nil
}

// Get returns one record.
func (s *InMemoryStore) Get(ctx context.Context, id string) (*history.Record, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, r := range s.records {
		if r.ID == id {
			return r.Clone(), nil
		}
	}
	return nil, fmt.Errorf("record %s: %w", id, errorskg.ErrNotFound)
}

// Search returns records whose query or response contains query.
func (s *InMemoryStore) Search(ctx context.Context, query string, limit int) ([]*history.Record, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]*history.Record, 0)
	for i := len(s.records) - 1; i >= 0; i-- {
		if limit > 0 && len(out) >= limit {
			break
		}
		if s.records[i].Matches(query) {
			out = append(out, s.records[i].Clone())
		}
	}
	return out, nil
}

// Recent returns the newest records.
func (s *InMemoryStore) Recent(ctx context.Context, limit int) ([]*history.Record, error) {
	return s.Search(ctx, "", limit)
}

// Clear removes every record.
func (s *InMemoryStore) Clear(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.records = nil
	return nil
}

// Count returns the number of records.
func (s *InMemoryStore) Count(ctx context.Context) (int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.records), nil
}
