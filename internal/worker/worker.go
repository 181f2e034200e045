// Package worker implements the per-identifier retry loop: wait for the rate
// limiter, fetch, classify, and on failure back off and try again until the
// retry budget is spent. Every call to Process that is not interrupted by
// shutdown writes exactly one result record.
package worker

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/JakeFAU/markercheck/internal/checker"
	"github.com/JakeFAU/markercheck/internal/progress"
)

// State is the lifecycle position of a Task.
type State string

// Task states. Succeeded, Exhausted and Faulted are terminal.
const (
	StatePending    State = "pending"
	StateAttempting State = "attempting"
	StateRetrying   State = "retrying"
	StateSucceeded  State = "succeeded"
	StateExhausted  State = "exhausted"
	StateFaulted    State = "faulted"
)

// Terminal reports whether s ends the task.
func (s State) Terminal() bool {
	return s == StateSucceeded || s == StateExhausted || s == StateFaulted
}

// maxBackoffShift keeps base<<shift from overflowing.
const maxBackoffShift = 20

// Task tracks one identifier through its attempts.
type Task struct {
	ID       string
	URL      string
	State    State
	Attempts int
	Elapsed  time.Duration
	LastErr  error
	Record   checker.ResultRecord
}

// Config controls Worker behavior.
type Config struct {
	Run   checker.RunConfig
	RunID [16]byte
}

// Worker runs the retry loop for one identifier at a time. A Worker holds no
// per-task state, so one instance may serve many goroutines.
type Worker struct {
	fetcher   checker.Fetcher
	extractor checker.Extractor
	limiter   checker.Limiter
	sink      checker.ResultSink
	emitter   progress.Emitter
	clock     checker.Clock
	cfg       Config
	logger    *zap.Logger
	sleep     func(context.Context, time.Duration) error
}

// New constructs a Worker.
func New(
	fetcher checker.Fetcher,
	extractor checker.Extractor,
	limiter checker.Limiter,
	sink checker.ResultSink,
	emitter progress.Emitter,
	clock checker.Clock,
	cfg Config,
	logger *zap.Logger,
) *Worker {
	if emitter == nil {
		emitter = progress.Discard
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Worker{
		fetcher:   fetcher,
		extractor: extractor,
		limiter:   limiter,
		sink:      sink,
		emitter:   emitter,
		clock:     clock,
		cfg:       cfg,
		logger:    logger,
		sleep:     sleepCtx,
	}
}

// Process drives id to a terminal state and appends its record. The returned
// error is non-nil only when the context ended before a terminal state or the
// sink rejected the record; fetch failures are reported in the Task.
//
// A panic raised before the record is built turns into an ERROR record for
// id. Once the task is terminal the record may already be half written, so a
// panic from the sink is left to the caller.
func (w *Worker) Process(ctx context.Context, id string) (task Task, err error) {
	task = Task{ID: id, URL: w.cfg.Run.URLFor(id), State: StatePending}
	start := w.clock.Now()
	defer func() {
		r := recover()
		if r == nil {
			return
		}
		if task.State.Terminal() {
			panic(r)
		}
		err = w.fault(ctx, &task, r, start)
	}()

	for {
		task.State = StateAttempting
		if err := w.limiter.Wait(ctx); err != nil {
			return task, fmt.Errorf("id %s: %w", id, err)
		}
		task.Attempts++

		resp, err := w.fetcher.Fetch(ctx, checker.FetchRequest{URL: task.URL, Timeout: w.cfg.Run.Timeout})
		if err == nil {
			w.emitAttempt(&task, progress.ClassifyStatus(resp.StatusCode), resp.Duration, "")
			w.succeed(&task, resp, start)
			return task, w.record(ctx, &task)
		}
		if ctx.Err() != nil {
			return task, fmt.Errorf("id %s: %w", id, ctx.Err())
		}

		task.LastErr = err
		w.emitAttempt(&task, progress.StatusFailed, 0, err.Error())
		if task.Attempts > w.cfg.Run.MaxRetries {
			w.exhaust(&task, err, start)
			return task, w.record(ctx, &task)
		}

		task.State = StateRetrying
		backoff := w.Backoff(task.Attempts)
		w.logger.Warn("fetch attempt failed; retrying",
			zap.String("id", id),
			zap.Int("attempt", task.Attempts),
			zap.Error(err),
			zap.Duration("backoff", backoff),
		)
		w.emit(progress.Event{Stage: progress.StageRetry, ID: id, URL: task.URL, Attempt: task.Attempts, Note: err.Error()})
		if err := w.sleep(ctx, backoff); err != nil {
			return task, fmt.Errorf("id %s: backoff: %w", id, err)
		}
	}
}

// Backoff returns the pause after the given number of failed attempts:
// BackoffBase, then doubling.
func (w *Worker) Backoff(failed int) time.Duration {
	shift := failed - 1
	if shift < 0 {
		shift = 0
	}
	if shift > maxBackoffShift {
		shift = maxBackoffShift
	}
	return w.cfg.Run.BackoffBase << shift
}

func (w *Worker) succeed(task *Task, resp checker.FetchResponse, start time.Time) {
	res := w.extractor.Extract(resp.Body, w.cfg.Run.Marker)
	task.State = StateSucceeded
	task.LastErr = nil
	task.Elapsed = w.clock.Now().Sub(start)
	task.Record = checker.NewMatchRecord(
		task.ID,
		task.URL,
		resp.StatusCode,
		task.Elapsed,
		w.cfg.Run.Label(res.Matched),
		res.Fragment,
	)
}

func (w *Worker) exhaust(task *Task, last error, start time.Time) {
	task.State = StateExhausted
	task.Elapsed = w.clock.Now().Sub(start)
	task.LastErr = &checker.ExhaustedError{ID: task.ID, Attempts: task.Attempts, Last: last}
	task.Record = checker.NewErrorRecord(task.ID, task.URL, last.Error())
	w.logger.Warn("retries exhausted",
		zap.String("id", task.ID),
		zap.Int("attempts", task.Attempts),
		zap.Error(last),
	)
}

func (w *Worker) fault(ctx context.Context, task *Task, value any, start time.Time) error {
	fault := &checker.WorkerFault{ID: task.ID, Value: value}
	task.State = StateFaulted
	task.Elapsed = w.clock.Now().Sub(start)
	task.LastErr = fault
	task.Record = checker.NewErrorRecord(task.ID, task.URL, fault.Error())
	w.logger.Error("worker fault",
		zap.String("id", task.ID),
		zap.Int("attempts", task.Attempts),
		zap.Error(fault),
		zap.Stack("stack"),
	)
	w.emit(progress.Event{Stage: progress.StageTaskFault, ID: task.ID, URL: task.URL, Note: fault.Error()})
	return w.record(ctx, task)
}

// record appends the terminal record. It ignores cancellation of ctx so a
// finished task is never lost to a shutdown racing the write.
func (w *Worker) record(ctx context.Context, task *Task) error {
	task.Record.RecordedAt = w.clock.Now()
	if err := w.sink.Append(context.WithoutCancel(ctx), task.Record); err != nil {
		return fmt.Errorf("id %s: append result: %w", task.ID, err)
	}
	w.emit(progress.Event{
		Stage:   progress.StageTaskDone,
		ID:      task.ID,
		URL:     task.URL,
		Label:   task.Record.Label,
		Attempt: task.Attempts,
		Dur:     task.Elapsed,
		Note:    task.Record.Detail,
	})
	return nil
}

func (w *Worker) emitAttempt(task *Task, class progress.StatusClass, dur time.Duration, note string) {
	w.emit(progress.Event{
		Stage:       progress.StageAttempt,
		ID:          task.ID,
		URL:         task.URL,
		StatusClass: class,
		Attempt:     task.Attempts,
		Dur:         dur,
		Note:        note,
	})
}

func (w *Worker) emit(evt progress.Event) {
	evt.RunID = w.cfg.RunID
	evt.TS = w.clock.Now()
	w.emitter.Emit(evt)
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return nil
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

// IsShutdown reports whether err from Process came from context cancellation
// rather than a sink failure.
func IsShutdown(err error) bool {
	return errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded)
}
