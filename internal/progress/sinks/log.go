package sinks

import (
	"context"

	"go.uber.org/zap"

	"github.com/JakeFAU/markercheck/internal/progress"
)

// LogSink writes one line per finished identifier, showing the extracted
// fragment and its classification.
type LogSink struct {
	logger *zap.Logger
}

// NewLogSink wires a Zap logger to the sink interface.
func NewLogSink(logger *zap.Logger) *LogSink {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &LogSink{logger: logger}
}

// Consume logs task completions and faults; other stages are ignored.
func (s *LogSink) Consume(_ context.Context, batch []progress.Event) error {
	for _, evt := range batch {
		switch evt.Stage {
		case progress.StageTaskDone:
			s.logger.Info("checked",
				zap.String("id", evt.ID),
				zap.String("fragment", evt.Note),
				zap.String("found", string(evt.Label)),
				zap.Int("attempts", evt.Attempt),
				zap.Duration("elapsed", evt.Dur),
			)
		case progress.StageTaskFault:
			s.logger.Error("task fault", zap.String("id", evt.ID), zap.String("note", evt.Note))
		}
	}
	return nil
}

// Close implements the Sink interface; it performs no action.
func (s *LogSink) Close(context.Context) error {
	return nil
}
