package tasks

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestTaskStatusComplete(t *testing.T) {
	require.True(t, TaskStatusCompletedSuccess.Complete())
	require.True(t, TaskStatusCompletedFailure.Complete())
	require.False(t, TaskStatusStarted.Complete())
	require.False(t, TaskStatusFailed.Complete())
}

func TestAttributesKey(t *testing.T) {
	require.Equal(t, AttributesKey("a1", "S1.1"), AttributesKey("a1", "S1.1"))
	require.NotEqual(t, AttributesKey("a1", "S1.1"), AttributesKey("a1S", "1.1"))
	require.Len(t, AttributesKey("a1", "S1.1"), len("attributes:")+16)
}
