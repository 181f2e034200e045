package progress

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
)

// TestHubBatchBySize verifies the hub flushes as soon as the batch is full.
func TestHubBatchBySize(t *testing.T) {
	t.Parallel()

	sink := newStubSink()
	hub := NewHub(Config{
		BufferSize:     8,
		MaxBatchEvents: 2,
		MaxBatchWait:   time.Minute,
	}, sink)
	defer func() {
		require.NoError(t, hub.Close(context.Background()))
	}()

	evt := sampleEvent(StageRunStart)
	hub.Emit(evt)
	hub.Emit(evt)
	require.Eventually(t, func() bool {
		b := sink.Batches()
		return len(b) == 1 && len(b[0]) == 2
	}, time.Second, 10*time.Millisecond)
}

// TestHubBatchByTimer verifies small batches are flushed after MaxBatchWait.
func TestHubBatchByTimer(t *testing.T) {
	t.Parallel()

	sink := newStubSink()
	hub := NewHub(Config{
		BufferSize:     4,
		MaxBatchEvents: 10,
		MaxBatchWait:   25 * time.Millisecond,
	}, sink)
	defer func() {
		require.NoError(t, hub.Close(context.Background()))
	}()

	hub.Emit(sampleEvent(StageRunStart))
	require.Eventually(t, func() bool {
		return len(sink.Batches()) == 1
	}, time.Second, 5*time.Millisecond)
}

// TestHubEmitNeverBlocks asserts a full buffer drops instead of blocking.
func TestHubEmitNeverBlocks(t *testing.T) {
	t.Parallel()

	hub := &Hub{
		cfg:    Config{}.withDefaults(),
		events: make(chan Event),
	}
	start := time.Now()
	hub.Emit(sampleEvent(StageRunStart))
	require.Less(t, time.Since(start), 50*time.Millisecond)
	require.EqualValues(t, 0, hub.Dropped(), "first drop is reported and reset")
	hub.Emit(sampleEvent(StageRunStart))
	require.EqualValues(t, 1, hub.Dropped())
}

// TestHubDiscardsInvalidEvents keeps malformed events away from sinks.
func TestHubDiscardsInvalidEvents(t *testing.T) {
	t.Parallel()

	sink := newStubSink()
	hub := NewHub(Config{MaxBatchEvents: 1}, sink)
	hub.Emit(Event{Stage: StageRunStart})
	require.NoError(t, hub.Close(context.Background()))
	require.Empty(t, sink.Batches())
}

// TestHubFlushOnClose ensures Close drains buffered events and closes sinks.
func TestHubFlushOnClose(t *testing.T) {
	t.Parallel()

	sink := newStubSink()
	hub := NewHub(Config{
		BufferSize:     4,
		MaxBatchEvents: 100,
		MaxBatchWait:   time.Minute,
	}, sink)

	hub.Emit(sampleEvent(StageRunStart))

	require.NoError(t, hub.Close(context.Background()))
	require.NoError(t, hub.Close(context.Background()))
	require.Len(t, sink.Batches(), 1)
	require.Len(t, sink.Batches()[0], 1)
	require.GreaterOrEqual(t, sink.Closed(), 1)

	hub.Emit(sampleEvent(StageRunStart))
	require.Len(t, sink.Batches(), 1, "emits after close are ignored")
}

func TestEventValidate(t *testing.T) {
	t.Parallel()

	base := sampleEvent(StageTaskDone)
	base.ID = "1001"
	base.Label = "SI"
	require.NoError(t, base.Validate())

	missingLabel := base
	missingLabel.Label = ""
	require.Error(t, missingLabel.Validate())

	missingID := sampleEvent(StageAttempt)
	require.Error(t, missingID.Validate())

	unknown := sampleEvent("NOPE")
	require.Error(t, unknown.Validate())

	negative := sampleEvent(StageRunDone)
	negative.Dur = -time.Second
	require.Error(t, negative.Validate())
}

func TestClassifyStatus(t *testing.T) {
	t.Parallel()

	require.Equal(t, Status2xx, ClassifyStatus(200))
	require.Equal(t, Status3xx, ClassifyStatus(302))
	require.Equal(t, Status4xx, ClassifyStatus(404))
	require.Equal(t, Status5xx, ClassifyStatus(503))
	require.Equal(t, StatusOther, ClassifyStatus(0))
}

type stubSink struct {
	mu      sync.Mutex
	batches [][]Event
	closed  int
}

func newStubSink() *stubSink {
	return &stubSink{}
}

func (s *stubSink) Consume(_ context.Context, batch []Event) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.batches = append(s.batches, append([]Event(nil), batch...))
	return nil
}

func (s *stubSink) Close(context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.closed++
	return nil
}

func (s *stubSink) Batches() [][]Event {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([][]Event, len(s.batches))
	for i, b := range s.batches {
		out[i] = append([]Event(nil), b...)
	}
	return out
}

func (s *stubSink) Closed() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.closed
}

func sampleEvent(stage Stage) Event {
	return Event{
		RunID: UUIDToBytes(uuid.New()),
		TS:    time.Now(),
		Stage: stage,
	}
}
