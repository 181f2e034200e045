package system

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/JakeFAU/markercheck/internal/checker"
)

var _ checker.Clock = Clock{}

func TestClockNow(t *testing.T) {
	t.Parallel()

	clk := New()
	before := time.Now()
	got := clk.Now()
	after := time.Now()

	require.False(t, got.Before(before))
	require.False(t, got.After(after))
}

func TestClockElapsedIsNonNegative(t *testing.T) {
	t.Parallel()

	clk := New()
	first := clk.Now()
	second := clk.Now()
	require.GreaterOrEqual(t, second.Sub(first), time.Duration(0))
}
