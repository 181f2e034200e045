// Package dispatcher runs identifiers through a bounded pool of workers.
package dispatcher

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"go.uber.org/zap"

	"github.com/JakeFAU/markercheck/internal/checker"
)

// WorkFunc processes one identifier to completion.
type WorkFunc func(ctx context.Context, id string) error

// Snapshot is a point-in-time view of the queue.
type Snapshot struct {
	Total     int
	Pending   int
	Active    int
	Completed int
	Failed    int
	Faulted   int
}

// Finished returns the number of tasks that left the active set.
func (s Snapshot) Finished() int {
	return s.Completed + s.Failed + s.Faulted
}

// Summary describes a finished run.
type Summary struct {
	Snapshot
	// Skipped counts identifiers that produced no result because the run was
	// canceled, whether never admitted or interrupted mid-task.
	Skipped int
}

// Config controls a Dispatcher.
type Config struct {
	Concurrency int
	// OnProgress is invoked after every task leaves the active set. It runs on
	// the worker goroutine and must not block for long.
	OnProgress func(Snapshot)
	// OnFault is invoked with every recovered panic.
	OnFault func(*checker.WorkerFault)
	// IsShutdown classifies errors caused by cancellation. Such tasks are
	// neither completed nor failed.
	IsShutdown func(error) bool
	Logger     *zap.Logger
}

// Dispatcher fans identifiers out to at most Concurrency concurrent workers.
type Dispatcher struct {
	cfg    Config
	logger *zap.Logger
}

// New creates a Dispatcher.
func New(cfg Config) (*Dispatcher, error) {
	if cfg.Concurrency < 1 {
		return nil, fmt.Errorf("concurrency must be >= 1, got %d", cfg.Concurrency)
	}
	if cfg.IsShutdown == nil {
		cfg.IsShutdown = func(err error) bool {
			return errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded)
		}
	}
	logger := cfg.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Dispatcher{cfg: cfg, logger: logger}, nil
}

// Run admits every identifier in order and blocks until the queue is drained:
// nothing pending and nothing active. Canceling ctx stops admission; tasks
// already running are left to observe ctx themselves. A panic inside fn is
// recovered, logged and counted as a fault.
func (d *Dispatcher) Run(ctx context.Context, ids []string, fn WorkFunc) (Summary, error) {
	st := newQueueState(ids)

	var wg sync.WaitGroup
	slots := min(d.cfg.Concurrency, len(ids))
	for range slots {
		wg.Add(1)
		go func() {
			defer wg.Done()
			d.loop(ctx, st, fn)
		}()
	}

	<-st.done
	wg.Wait()

	sum := st.summary()
	if sum.Skipped > 0 {
		cause := context.Cause(ctx)
		if cause == nil {
			cause = context.Canceled
		}
		return sum, fmt.Errorf("run interrupted with %d ids unfinished: %w", sum.Skipped, cause)
	}
	return sum, nil
}

func (d *Dispatcher) loop(ctx context.Context, st *queueState, fn WorkFunc) {
	for {
		id, ok := st.admit(ctx)
		if !ok {
			return
		}
		res := d.runOne(ctx, id, fn)
		snap := st.complete(res)
		if d.cfg.OnProgress != nil {
			d.cfg.OnProgress(snap)
		}
	}
}

// runOne is the last guard against a panicking task; workers normally record
// their own faults.
func (d *Dispatcher) runOne(ctx context.Context, id string, fn WorkFunc) (res outcome) {
	defer func() {
		if r := recover(); r != nil {
			fault := &checker.WorkerFault{ID: id, Value: r}
			d.logger.Error("worker fault", zap.String("id", id), zap.Error(fault))
			if d.cfg.OnFault != nil {
				d.cfg.OnFault(fault)
			}
			res = outcomeFaulted
		}
	}()

	err := fn(ctx, id)
	switch {
	case err == nil:
		return outcomeCompleted
	case d.cfg.IsShutdown(err):
		d.logger.Debug("task interrupted", zap.String("id", id), zap.Error(err))
		return outcomeInterrupted
	default:
		d.logger.Error("task failed", zap.String("id", id), zap.Error(err))
		return outcomeFailed
	}
}
