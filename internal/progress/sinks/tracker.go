package sinks

import (
	"context"
	"sync"
	"time"

	"github.com/JakeFAU/markercheck/internal/progress"
)

// Snapshot is a point-in-time view of a run.
type Snapshot struct {
	RunID     string         `json:"run_id,omitempty"`
	StartedAt *time.Time     `json:"started_at,omitempty"`
	Finished  bool           `json:"finished"`
	Total     int            `json:"total"`
	Done      int            `json:"done"`
	Retries   int            `json:"retries"`
	Faults    int            `json:"faults"`
	Labels    map[string]int `json:"labels"`
	LastID    string         `json:"last_id,omitempty"`
}

// Tracker keeps the latest run totals in memory for the status API.
type Tracker struct {
	mu   sync.RWMutex
	snap Snapshot
}

// NewTracker creates an empty Tracker.
func NewTracker() *Tracker {
	return &Tracker{snap: Snapshot{Labels: map[string]int{}}}
}

// Consume folds batch into the current snapshot. A RUN_START for a new run
// resets the totals.
func (t *Tracker) Consume(_ context.Context, batch []progress.Event) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	for _, evt := range batch {
		switch evt.Stage {
		case progress.StageRunStart:
			started := evt.TS
			t.snap = Snapshot{
				RunID:     evt.RunUUID().String(),
				StartedAt: &started,
				Total:     evt.Total,
				Labels:    map[string]int{},
			}
		case progress.StageRetry:
			t.snap.Retries++
		case progress.StageTaskDone:
			t.snap.Done++
			t.snap.Labels[string(evt.Label)]++
			t.snap.LastID = evt.ID
		case progress.StageTaskFault:
			t.snap.Faults++
		case progress.StageRunDone:
			t.snap.Finished = true
		}
	}
	return nil
}

// Snapshot returns a copy of the current totals.
func (t *Tracker) Snapshot() Snapshot {
	t.mu.RLock()
	defer t.mu.RUnlock()
	out := t.snap
	out.Labels = make(map[string]int, len(t.snap.Labels))
	for k, v := range t.snap.Labels {
		out.Labels[k] = v
	}
	return out
}

// Close implements the Sink interface; it performs no action.
func (t *Tracker) Close(context.Context) error {
	return nil
}
