package sinks

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"

	"github.com/JakeFAU/markercheck/internal/progress"
)

func TestTrackerSnapshot(t *testing.T) {
	t.Parallel()

	id := uuid.New()
	runID := progress.UUIDToBytes(id)
	now := time.Now()
	tr := NewTracker()
	require.NoError(t, tr.Consume(context.Background(), []progress.Event{
		{RunID: runID, TS: now, Stage: progress.StageRunStart, Total: 3},
		{RunID: runID, TS: now, Stage: progress.StageTaskDone, ID: "a", Label: "SI"},
		{RunID: runID, TS: now, Stage: progress.StageRetry, ID: "b"},
		{RunID: runID, TS: now, Stage: progress.StageTaskDone, ID: "b", Label: "NO"},
	}))

	snap := tr.Snapshot()
	require.Equal(t, id.String(), snap.RunID)
	require.Equal(t, 3, snap.Total)
	require.Equal(t, 2, snap.Done)
	require.Equal(t, 1, snap.Retries)
	require.Equal(t, "b", snap.LastID)
	require.Equal(t, map[string]int{"SI": 1, "NO": 1}, snap.Labels)
	require.False(t, snap.Finished)

	snap.Labels["SI"] = 99
	require.Equal(t, 1, tr.Snapshot().Labels["SI"], "snapshot must be a copy")

	require.NoError(t, tr.Consume(context.Background(), []progress.Event{
		{RunID: runID, TS: now, Stage: progress.StageRunDone},
	}))
	require.True(t, tr.Snapshot().Finished)
}

func TestLogSinkWritesCompletions(t *testing.T) {
	t.Parallel()

	core, logs := observer.New(zap.InfoLevel)
	sink := NewLogSink(zap.New(core))
	runID := progress.UUIDToBytes(uuid.New())
	require.NoError(t, sink.Consume(context.Background(), []progress.Event{
		{RunID: runID, TS: time.Now(), Stage: progress.StageAttempt, ID: "1001"},
		{RunID: runID, TS: time.Now(), Stage: progress.StageTaskDone, ID: "1001", Label: "SI", Note: "Bienvenido a Udeki"},
	}))

	entries := logs.FilterMessage("checked").All()
	require.Len(t, entries, 1)
	fields := entries[0].ContextMap()
	require.Equal(t, "1001", fields["id"])
	require.Equal(t, "SI", fields["found"])
	require.Equal(t, "Bienvenido a Udeki", fields["fragment"])
}
