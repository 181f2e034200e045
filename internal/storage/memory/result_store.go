// Package memory provides an in-memory result store for dry runs and tests.
package memory

import (
	"context"
	"errors"
	"sync"

	"github.com/JakeFAU/markercheck/internal/checker"
)

// ErrClosed is returned by Append after Close.
var ErrClosed = errors.New("result store closed")

// ResultStore keeps every appended record in completion order.
type ResultStore struct {
	mu      sync.RWMutex
	records []checker.ResultRecord
	byID    map[string][]int
	closed  bool
	failErr error
}

// NewResultStore constructs an empty ResultStore.
func NewResultStore() *ResultStore {
	return &ResultStore{byID: make(map[string][]int)}
}

// FailWith makes every later Append return err. Passing nil clears it.
func (s *ResultStore) FailWith(err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.failErr = err
}

// Append stores rec.
func (s *ResultStore) Append(_ context.Context, rec checker.ResultRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return ErrClosed
	}
	if s.failErr != nil {
		return s.failErr
	}
	s.byID[rec.ID] = append(s.byID[rec.ID], len(s.records))
	s.records = append(s.records, rec)
	return nil
}

// Records returns a copy of the stored records.
func (s *ResultStore) Records() []checker.ResultRecord {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]checker.ResultRecord(nil), s.records...)
}

// ForID returns the records stored for id, oldest first.
func (s *ResultStore) ForID(id string) []checker.ResultRecord {
	s.mu.RLock()
	defer s.mu.RUnlock()
	idx := s.byID[id]
	out := make([]checker.ResultRecord, 0, len(idx))
	for _, i := range idx {
		out = append(out, s.records[i])
	}
	return out
}

// Closed reports whether Close was called.
func (s *ResultStore) Closed() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.closed
}

// Close marks the store closed.
func (s *ResultStore) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.closed = true
	return nil
}
