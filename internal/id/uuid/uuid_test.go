package uuid

import (
	"testing"

	goUUID "github.com/google/uuid"
	"github.com/stretchr/testify/require"
)

func TestNewRunID(t *testing.T) {
	t.Parallel()

	first, err := NewRunID()
	require.NoError(t, err)
	second, err := NewRunID()
	require.NoError(t, err)

	require.NotEqual(t, first, second)
	require.Equal(t, goUUID.Version(7), first.Version())
	require.LessOrEqual(t, first.String(), second.String(), "v7 ids sort by creation time")
}
