// Package ratelimit computes the pause each worker takes before a network
// attempt. The default mode is per worker: every worker waits its own
// interval plus jitter, so the aggregate rate is roughly
// concurrency × requests-per-second. The global mode shares one token bucket
// across all workers and still adds jitter on top.
package ratelimit

import (
	"context"
	"fmt"
	"math"
	"math/rand/v2"
	"time"

	"golang.org/x/time/rate"

	"github.com/JakeFAU/markercheck/internal/checker"
)

// Mode selects how the request rate is enforced.
type Mode string

// Supported modes.
const (
	ModePerWorker Mode = "per_worker"
	ModeGlobal    Mode = "global"
)

// MinRequestsPerSecond is the slowest supported rate, one request an hour.
// Slower rates would overflow the per-attempt interval.
const MinRequestsPerSecond = 1.0 / 3600

const maxInterval = time.Hour

// ValidRate reports whether rps is finite and not below MinRequestsPerSecond.
func ValidRate(rps float64) bool {
	return !math.IsNaN(rps) && !math.IsInf(rps, 0) && rps >= MinRequestsPerSecond
}

// Config holds rate limiter configuration.
type Config struct {
	Mode              Mode
	RequestsPerSecond float64
	MinJitter         time.Duration
}

// New builds the limiter for cfg.Mode.
func New(cfg Config) (checker.Limiter, error) {
	if !ValidRate(cfg.RequestsPerSecond) {
		return nil, fmt.Errorf("requests per second must be finite and >= %v, got %v",
			MinRequestsPerSecond, cfg.RequestsPerSecond)
	}
	if cfg.MinJitter < 0 {
		return nil, fmt.Errorf("min jitter must be >= 0, got %v", cfg.MinJitter)
	}
	switch cfg.Mode {
	case "", ModePerWorker:
		return NewJittered(cfg.RequestsPerSecond, cfg.MinJitter), nil
	case ModeGlobal:
		return NewGlobal(cfg.RequestsPerSecond, cfg.MinJitter), nil
	default:
		return nil, fmt.Errorf("unknown rate mode %q", cfg.Mode)
	}
}

// Jittered waits 1s/rps plus a uniform jitter in [0, minJitter) before each
// attempt. It keeps no shared schedule, so concurrent callers do not delay
// each other.
type Jittered struct {
	interval time.Duration
	jitter   time.Duration
	randN    func(n int64) int64
}

// NewJittered creates a per-worker limiter. The interval is capped at one
// hour.
func NewJittered(rps float64, minJitter time.Duration) *Jittered {
	return &Jittered{
		interval: intervalFor(rps),
		jitter:   minJitter,
		randN:    rand.Int64N,
	}
}

func intervalFor(rps float64) time.Duration {
	secs := 1 / rps
	if math.IsNaN(secs) || secs <= 0 || secs > maxInterval.Seconds() {
		return maxInterval
	}
	return time.Duration(secs * float64(time.Second))
}

// DelayBeforeNext returns the pause to take before the next attempt.
func (l *Jittered) DelayBeforeNext() time.Duration {
	return l.interval + l.nextJitter()
}

func (l *Jittered) nextJitter() time.Duration {
	if l.jitter <= 0 {
		return 0
	}
	return time.Duration(l.randN(int64(l.jitter)))
}

// Wait sleeps for DelayBeforeNext, returning early if ctx ends.
func (l *Jittered) Wait(ctx context.Context) error {
	return sleep(ctx, l.DelayBeforeNext())
}

// Global shares a single token bucket between all workers.
type Global struct {
	bucket *rate.Limiter
	jitter *Jittered
}

// NewGlobal creates a limiter capped at rps across every caller.
func NewGlobal(rps float64, minJitter time.Duration) *Global {
	return &Global{
		bucket: rate.NewLimiter(rate.Limit(rps), 1),
		jitter: &Jittered{jitter: minJitter, randN: rand.Int64N},
	}
}

// Wait blocks until a token is available, then applies jitter.
func (l *Global) Wait(ctx context.Context) error {
	if err := l.bucket.Wait(ctx); err != nil {
		return fmt.Errorf("rate limit wait: %w", err)
	}
	return sleep(ctx, l.jitter.nextJitter())
}

func sleep(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		if err := ctx.Err(); err != nil {
			return fmt.Errorf("rate limit wait: %w", err)
		}
		return nil
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return fmt.Errorf("rate limit wait: %w", ctx.Err())
	case <-timer.C:
		return nil
	}
}
