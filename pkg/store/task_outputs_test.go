package store

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSaveTaskOutput_UpsertIsIdempotent(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping testcontainers-backed test in short mode")
	}
	s := newTestStore(t)
	ctx := context.Background()

	require.NoError(t, s.SaveTaskOutput(ctx, "wf-1", "fetch_data", "first output"))
	require.NoError(t, s.SaveTaskOutput(ctx, "wf-1", "fetch_data", "revised output"))

	outputs, err := s.LoadTaskOutputs(ctx, "wf-1")
	require.NoError(t, err)
	require.Len(t, outputs, 1)
	assert.Equal(t, "revised output", outputs["fetch_data"])
}

func TestLoadTaskOutputs_ScopedByWorkflow(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping testcontainers-backed test in short mode")
	}
	s := newTestStore(t)
	ctx := context.Background()

	require.NoError(t, s.SaveTaskOutput(ctx, "wf-a", "task1", "a1"))
	require.NoError(t, s.SaveTaskOutput(ctx, "wf-a", "task2", "a2"))
	require.NoError(t, s.SaveTaskOutput(ctx, "wf-b", "task1", "b1"))

	outputsA, err := s.LoadTaskOutputs(ctx, "wf-a")
	require.NoError(t, err)
	assert.Len(t, outputsA, 2)
	assert.Equal(t, "a1", outputsA["task1"])
	assert.Equal(t, "a2", outputsA["task2"])

	outputsB, err := s.LoadTaskOutputs(ctx, "wf-b")
	require.NoError(t, err)
	assert.Len(t, outputsB, 1)
	assert.Equal(t, "b1", outputsB["task1"])
}

func TestLoadTaskOutputs_UnknownWorkflowReturnsEmptyMap(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping testcontainers-backed test in short mode")
	}
	s := newTestStore(t)
	ctx := context.Background()

	outputs, err := s.LoadTaskOutputs(ctx, "does-not-exist")
	require.NoError(t, err)
	assert.Empty(t, outputs)
}
