package tools

import (
	"os"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tarsy-labs/agentcore/pkg/workflow"
)

func TestTTSTool_SynthesizesWAVFile(t *testing.T) {
	dir := t.TempDir()
	tool := NewTTSTool(dir)

	result := tool.Run(workflow.ExecutionInput{Content: "hello world"})
	require.True(t, result.Success)

	data, err := os.ReadFile(result.Output)
	require.NoError(t, err)
	require.GreaterOrEqual(t, len(data), 44)
	assert.Equal(t, "RIFF", string(data[0:4]))
	assert.Equal(t, "WAVE", string(data[8:12]))
}

func TestTTSTool_RejectsBlankText(t *testing.T) {
	tool := NewTTSTool(t.TempDir())
	result := tool.Run(workflow.ExecutionInput{Content: ""})
	assert.False(t, result.Success)
}

func TestTTSTool_GeneratesUniqueFilenames(t *testing.T) {
	tool := NewTTSTool(t.TempDir())
	r1 := tool.Run(workflow.ExecutionInput{Content: "first"})
	r2 := tool.Run(workflow.ExecutionInput{Content: "second"})
	require.True(t, r1.Success)
	require.True(t, r2.Success)
	assert.NotEqual(t, r1.Output, r2.Output)
}
