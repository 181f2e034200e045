package dispatcher

import (
	"context"
	"sync"
)

type outcome int

const (
	outcomeCompleted outcome = iota
	outcomeFailed
	outcomeFaulted
	outcomeInterrupted
)

// queueState owns the pending list and counters. done is closed exactly once,
// when pending is empty and no task is active.
type queueState struct {
	mu          sync.Mutex
	pending     []string
	total       int
	active      int
	completed   int
	failed      int
	faulted     int
	interrupted int
	skipped     int
	done        chan struct{}
	closed      bool
}

func newQueueState(ids []string) *queueState {
	st := &queueState{
		pending: append([]string(nil), ids...),
		total:   len(ids),
		done:    make(chan struct{}),
	}
	st.maybeCloseLocked()
	return st
}

// admit pops the next identifier and marks it active. Once ctx is done the
// remaining pending identifiers are dropped.
func (s *queueState) admit(ctx context.Context) (string, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if ctx.Err() != nil && len(s.pending) > 0 {
		s.skipped += len(s.pending)
		s.pending = nil
		s.maybeCloseLocked()
	}
	if len(s.pending) == 0 {
		return "", false
	}
	id := s.pending[0]
	s.pending = s.pending[1:]
	s.active++
	return id, true
}

func (s *queueState) complete(res outcome) Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.active--
	switch res {
	case outcomeCompleted:
		s.completed++
	case outcomeFailed:
		s.failed++
	case outcomeFaulted:
		s.faulted++
	case outcomeInterrupted:
		s.interrupted++
	}
	s.maybeCloseLocked()
	return s.snapshotLocked()
}

func (s *queueState) maybeCloseLocked() {
	if !s.closed && len(s.pending) == 0 && s.active == 0 {
		s.closed = true
		close(s.done)
	}
}

func (s *queueState) snapshotLocked() Snapshot {
	return Snapshot{
		Total:     s.total,
		Pending:   len(s.pending),
		Active:    s.active,
		Completed: s.completed,
		Failed:    s.failed,
		Faulted:   s.faulted,
	}
}

func (s *queueState) summary() Summary {
	s.mu.Lock()
	defer s.mu.Unlock()
	return Summary{Snapshot: s.snapshotLocked(), Skipped: s.skipped + s.interrupted}
}
