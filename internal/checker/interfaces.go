package checker

import (
	"context"
	"time"
)

// Fetcher issues a single HTTP GET. Non-2xx statuses are returned as responses;
// only transport failures produce an error, which should be a *FetchError.
type Fetcher interface {
	Fetch(ctx context.Context, request FetchRequest) (FetchResponse, error)
}

// Extractor locates the designated fragment in a body and classifies it.
type Extractor interface {
	Extract(body []byte, marker string) ExtractionResult
}

// Limiter blocks until the caller may issue its next network attempt.
type Limiter interface {
	Wait(ctx context.Context) error
}

// ResultSink persists result records. Append must be safe for concurrent use
// and atomic per record.
type ResultSink interface {
	Append(ctx context.Context, record ResultRecord) error
	Close() error
}

// Clock returns the current time (useful for testing).
type Clock interface {
	Now() time.Time
}
