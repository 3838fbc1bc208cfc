package tools

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/tarsy-labs/agentcore/pkg/workflow"
)

func TestStripTags(t *testing.T) {
	assert.Equal(t, "hello world", stripTags("<b>hello</b> <i>world</i>"))
	assert.Equal(t, "plain", stripTags("plain"))
}

func TestMockResults(t *testing.T) {
	results := mockResults("golang concurrency")
	assert.Len(t, results, 1)
	assert.Contains(t, results[0].Title, "golang concurrency")
}

func TestWebSearchTool_RejectsBlankQuery(t *testing.T) {
	tool := NewWebSearchTool()
	result := tool.Run(workflow.ExecutionInput{Content: ""})
	assert.False(t, result.Success)
}
