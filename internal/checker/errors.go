package checker

import (
	"context"
	"errors"
	"fmt"
	"net"
)

// ErrorKind classifies transport failures.
type ErrorKind string

// Fetch failure kinds. Both are retryable.
const (
	KindTimeout ErrorKind = "timeout"
	KindNetwork ErrorKind = "network"
)

// Sentinels matched by errors.Is against a *FetchError of the same kind.
var (
	ErrTimeout = errors.New("fetch timed out")
	ErrNetwork = errors.New("network error")
)

// FetchError is the failure outcome of a fetch.
type FetchError struct {
	Kind ErrorKind
	URL  string
	Err  error
}

// Error implements the error interface.
func (e *FetchError) Error() string {
	if e.Kind == KindTimeout {
		return fmt.Sprintf("timeout fetching %s: %v", e.URL, e.Err)
	}
	return fmt.Sprintf("fetch %s: %v", e.URL, e.Err)
}

// Unwrap returns the underlying error.
func (e *FetchError) Unwrap() error {
	return e.Err
}

// Is matches the kind sentinels.
func (e *FetchError) Is(target error) bool {
	switch target {
	case ErrTimeout:
		return e.Kind == KindTimeout
	case ErrNetwork:
		return e.Kind == KindNetwork
	default:
		return false
	}
}

// NewFetchError wraps err, deriving the kind from deadline and net.Error
// timeout signals.
func NewFetchError(url string, err error) *FetchError {
	kind := KindNetwork
	var netErr net.Error
	switch {
	case errors.Is(err, context.DeadlineExceeded):
		kind = KindTimeout
	case errors.As(err, &netErr) && netErr.Timeout():
		kind = KindTimeout
	}
	return &FetchError{Kind: kind, URL: url, Err: err}
}

// ExhaustedError is recorded when every attempt for an identifier failed.
type ExhaustedError struct {
	ID       string
	Attempts int
	Last     error
}

// Error implements the error interface.
func (e *ExhaustedError) Error() string {
	return fmt.Sprintf("id %s: gave up after %d attempts: %v", e.ID, e.Attempts, e.Last)
}

// Unwrap returns the last attempt's error.
func (e *ExhaustedError) Unwrap() error {
	return e.Last
}

// WorkerFault wraps a panic recovered from a task.
type WorkerFault struct {
	ID    string
	Value any
}

// Error implements the error interface.
func (e *WorkerFault) Error() string {
	return fmt.Sprintf("worker fault for id %s: %v", e.ID, e.Value)
}
