package checker

import (
	"strings"
	"time"
)

// Label is the classification written to the "found" column.
type Label string

// Classification labels. The match label is configurable per run; LabelMatch is
// the default used when RunConfig.MatchLabel is empty.
const (
	LabelMatch   Label = "SI"
	LabelNoMatch Label = "NO"
	LabelError   Label = "ERROR"
)

// NotFound is the fragment text recorded when the designated tag is absent.
const NotFound = "NOT_FOUND"

// DefaultJoin separates the base URL from the identifier.
const DefaultJoin = "="

// RunConfig is the immutable configuration for a single run.
type RunConfig struct {
	BaseURL           string
	Join              string
	Marker            string
	MatchLabel        Label
	UserAgent         string
	Concurrency       int
	RequestsPerSecond float64
	MinJitter         time.Duration
	MaxRetries        int
	BackoffBase       time.Duration
	Timeout           time.Duration
	OutputPath        string
}

// URLFor builds the target URL for id. Trailing slashes on the base URL are
// dropped before joining.
func (c RunConfig) URLFor(id string) string {
	join := c.Join
	if join == "" {
		join = DefaultJoin
	}
	return strings.TrimRight(c.BaseURL, "/") + join + id
}

// Label returns the label for a clean response.
func (c RunConfig) Label(matched bool) Label {
	if !matched {
		return LabelNoMatch
	}
	if c.MatchLabel == "" {
		return LabelMatch
	}
	return c.MatchLabel
}

// FetchRequest captures everything needed to fetch one URL.
type FetchRequest struct {
	URL     string
	Timeout time.Duration
}

// FetchResponse is the successful outcome of a fetch. Any HTTP status counts
// as a response; classification is left to the caller.
type FetchResponse struct {
	URL        string
	StatusCode int
	Body       []byte
	Duration   time.Duration
}

// ExtractionResult is derived deterministically from a response body.
type ExtractionResult struct {
	Fragment string
	Matched  bool
}

// Found reports whether the designated fragment was located.
func (r ExtractionResult) Found() bool {
	return r.Fragment != NotFound
}

// ResultRecord is the single output row produced for an identifier.
type ResultRecord struct {
	ID         string
	URL        string
	StatusCode *int
	ElapsedMs  *int64
	Label      Label
	Detail     string
	RecordedAt time.Time
}

// NewMatchRecord builds the record for a task that received a response.
func NewMatchRecord(id, url string, status int, elapsed time.Duration, label Label, fragment string) ResultRecord {
	ms := elapsed.Milliseconds()
	return ResultRecord{
		ID:         id,
		URL:        url,
		StatusCode: &status,
		ElapsedMs:  &ms,
		Label:      label,
		Detail:     fragment,
	}
}

// NewErrorRecord builds the record for a task that never received a response.
func NewErrorRecord(id, url, detail string) ResultRecord {
	return ResultRecord{
		ID:     id,
		URL:    url,
		Label:  LabelError,
		Detail: detail,
	}
}
