package progress

import (
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/JakeFAU/markercheck/internal/checker"
)

// Stage denotes the milestone represented by an Event.
type Stage string

// Supported progress stages.
const (
	StageRunStart  Stage = "RUN_START"
	StageAttempt   Stage = "ATTEMPT"
	StageRetry     Stage = "RETRY"
	StageTaskDone  Stage = "TASK_DONE"
	StageTaskFault Stage = "TASK_FAULT"
	StageRunDone   Stage = "RUN_DONE"
)

// StatusClass is a coarse HTTP response grouping.
type StatusClass string

// Status classes recorded on attempt events. StatusFailed marks attempts that
// never produced a response.
const (
	Status2xx    StatusClass = "2xx"
	Status3xx    StatusClass = "3xx"
	Status4xx    StatusClass = "4xx"
	Status5xx    StatusClass = "5xx"
	StatusOther  StatusClass = "other"
	StatusFailed StatusClass = "failed"
)

// Event captures a single piece of run progress.
type Event struct {
	// RunID identifies the run using the 16-byte UUID form.
	RunID [16]byte
	// TS is the UTC timestamp recorded by the emitter.
	TS    time.Time
	Stage Stage
	// ID is the identifier the event refers to; empty for run-level stages.
	ID  string
	URL string
	// Label is set on TASK_DONE.
	Label       checker.Label
	StatusClass StatusClass
	// Attempt is the 1-based attempt number for ATTEMPT and RETRY.
	Attempt int
	// Total is the number of admitted identifiers on RUN_START.
	Total int
	Dur   time.Duration
	// Note carries low-volume context such as an error message or fragment.
	Note string
}

// Validate performs coarse validation on Event payloads.
func (e Event) Validate() error {
	if e.RunID == [16]byte{} {
		return errors.New("run id is required")
	}
	if e.TS.IsZero() {
		return errors.New("timestamp is required")
	}
	switch e.Stage {
	case StageRunStart:
		if e.Total < 0 {
			return errors.New("run start requires total >= 0")
		}
	case StageRunDone:
	case StageAttempt, StageRetry, StageTaskFault:
		if e.ID == "" {
			return fmt.Errorf("%s requires id", e.Stage)
		}
	case StageTaskDone:
		if e.ID == "" {
			return errors.New("task done requires id")
		}
		if e.Label == "" {
			return errors.New("task done requires label")
		}
	default:
		return fmt.Errorf("unknown stage %q", e.Stage)
	}
	if e.Dur < 0 {
		return errors.New("duration must be >= 0")
	}
	return nil
}

// RunUUID converts the binary run ID to uuid.UUID.
func (e Event) RunUUID() uuid.UUID {
	return uuid.UUID(e.RunID)
}

// UUIDToBytes encodes a uuid.UUID into the Event form.
func UUIDToBytes(id uuid.UUID) [16]byte {
	var dest [16]byte
	copy(dest[:], id[:])
	return dest
}

// ClassifyStatus groups HTTP status codes for attempt events.
func ClassifyStatus(code int) StatusClass {
	switch {
	case code >= 200 && code < 300:
		return Status2xx
	case code >= 300 && code < 400:
		return Status3xx
	case code >= 400 && code < 500:
		return Status4xx
	case code >= 500 && code < 600:
		return Status5xx
	default:
		return StatusOther
	}
}
