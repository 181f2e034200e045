package checker

import (
	"context"
	"errors"
	"fmt"
	"net"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRunConfig_URLFor(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		cfg  RunConfig
		id   string
		want string
	}{
		{"default join", RunConfig{BaseURL: "https://x.test/login?id"}, "1001", "https://x.test/login?id=1001"},
		{"trailing slashes", RunConfig{BaseURL: "https://x.test/login?id//"}, "7", "https://x.test/login?id=7"},
		{"custom join", RunConfig{BaseURL: "https://x.test/users", Join: "/"}, "42", "https://x.test/users/42"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			assert.Equal(t, tt.want, tt.cfg.URLFor(tt.id))
		})
	}
}

func TestRunConfig_Label(t *testing.T) {
	t.Parallel()

	assert.Equal(t, LabelMatch, RunConfig{}.Label(true))
	assert.Equal(t, LabelNoMatch, RunConfig{}.Label(false))
	assert.Equal(t, Label("YES"), RunConfig{MatchLabel: "YES"}.Label(true))
	assert.Equal(t, LabelNoMatch, RunConfig{MatchLabel: "YES"}.Label(false))
}

func TestRecords(t *testing.T) {
	t.Parallel()

	rec := NewMatchRecord("1", "u", 200, 1500*time.Millisecond, LabelMatch, "hola")
	require.NotNil(t, rec.StatusCode)
	require.NotNil(t, rec.ElapsedMs)
	assert.Equal(t, 200, *rec.StatusCode)
	assert.Equal(t, int64(1500), *rec.ElapsedMs)

	errRec := NewErrorRecord("2", "u2", "timeout")
	assert.Nil(t, errRec.StatusCode)
	assert.Nil(t, errRec.ElapsedMs)
	assert.Equal(t, LabelError, errRec.Label)

	assert.False(t, ExtractionResult{Fragment: NotFound}.Found())
	assert.True(t, ExtractionResult{Fragment: ""}.Found())
}

type timeoutErr struct{}

func (timeoutErr) Error() string   { return "i/o timeout" }
func (timeoutErr) Timeout() bool   { return true }
func (timeoutErr) Temporary() bool { return true }

var _ net.Error = timeoutErr{}

func TestNewFetchError_Kinds(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		err  error
		kind ErrorKind
	}{
		{"deadline", fmt.Errorf("get: %w", context.DeadlineExceeded), KindTimeout},
		{"net timeout", &net.OpError{Op: "read", Err: timeoutErr{}}, KindTimeout},
		{"refused", errors.New("connection refused"), KindNetwork},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			fe := NewFetchError("https://x.test", tt.err)
			assert.Equal(t, tt.kind, fe.Kind)
			assert.ErrorIs(t, fe, tt.err)
			if tt.kind == KindTimeout {
				assert.ErrorIs(t, fe, ErrTimeout)
				assert.NotErrorIs(t, fe, ErrNetwork)
				assert.Contains(t, fe.Error(), "timeout")
			} else {
				assert.ErrorIs(t, fe, ErrNetwork)
				assert.NotErrorIs(t, fe, ErrTimeout)
			}
		})
	}
}

func TestExhaustedError(t *testing.T) {
	t.Parallel()

	last := NewFetchError("u", errors.New("reset"))
	err := fmt.Errorf("task: %w", &ExhaustedError{ID: "9", Attempts: 3, Last: last})

	assert.ErrorIs(t, err, ErrNetwork)
	assert.Contains(t, err.Error(), "gave up after 3 attempts")

	var exhausted *ExhaustedError
	require.ErrorAs(t, err, &exhausted)
	assert.Equal(t, "9", exhausted.ID)
}

func TestWorkerFault(t *testing.T) {
	t.Parallel()

	err := fmt.Errorf("wrapped: %w", &WorkerFault{ID: "3", Value: "nil map"})
	var fault *WorkerFault
	require.ErrorAs(t, err, &fault)
	assert.Equal(t, "nil map", fault.Value)
	assert.Contains(t, err.Error(), "worker fault for id 3")
}
