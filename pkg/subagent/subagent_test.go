package subagent

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tarsy-labs/agentcore/pkg/tools"
	"github.com/tarsy-labs/agentcore/pkg/workflow"
)

type fakeLLM struct {
	responses []GenerateResponse
	calls     int
	lastReq   GenerateRequest
}

func (f *fakeLLM) Generate(_ context.Context, req GenerateRequest) (GenerateResponse, error) {
	f.lastReq = req
	resp := f.responses[f.calls]
	f.calls++
	return resp, nil
}

type fakeMemory struct {
	entries map[string][]MemoryEntry
}

func newFakeMemory() *fakeMemory {
	return &fakeMemory{entries: make(map[string][]MemoryEntry)}
}

func (m *fakeMemory) LoadMemory(_ context.Context, agentName string, limit int) ([]MemoryEntry, error) {
	entries := m.entries[agentName]
	if len(entries) > limit {
		entries = entries[:limit]
	}
	return entries, nil
}

func (m *fakeMemory) AddMemory(_ context.Context, agentName, content string) error {
	m.entries[agentName] = append(m.entries[agentName], MemoryEntry{Content: content})
	return nil
}

func TestSubAgent_ExecuteReturnsFinalText(t *testing.T) {
	llm := &fakeLLM{responses: []GenerateResponse{{Text: "the answer"}}}
	mem := newFakeMemory()
	agent := New("planner", llm, tools.NewRegistry(), mem, "system prompt")

	result, err := agent.Execute(context.Background(), workflow.ExecutionInput{Content: "what is 2+2?"})
	require.NoError(t, err)
	assert.True(t, result.Success)
	assert.Equal(t, "the answer", result.Output)
	assert.Equal(t, 1, llm.calls)
}

func TestSubAgent_AppendsExchangeToMemory(t *testing.T) {
	llm := &fakeLLM{responses: []GenerateResponse{{Text: "ok"}}}
	mem := newFakeMemory()
	agent := New("researcher", llm, tools.NewRegistry(), mem, "")

	_, err := agent.Execute(context.Background(), workflow.ExecutionInput{Content: "hello"})
	require.NoError(t, err)
	assert.Len(t, mem.entries["researcher"], 2)
}

func TestSubAgent_ResolvesToolCallAndLoops(t *testing.T) {
	registry := tools.NewRegistry()
	registry.Register(stubTool{})

	llm := &fakeLLM{responses: []GenerateResponse{
		{ToolCall: &ToolCall{ID: "1", Name: "stub", Arguments: "args"}},
		{Text: "final after tool"},
	}}
	mem := newFakeMemory()
	agent := New("toolcaller", llm, registry, mem, "")

	result, err := agent.Execute(context.Background(), workflow.ExecutionInput{Content: "use the tool"})
	require.NoError(t, err)
	assert.True(t, result.Success)
	assert.Equal(t, "final after tool", result.Output)
	assert.Equal(t, 2, llm.calls)
}

func TestSubAgent_StopsAtMaxIterations(t *testing.T) {
	registry := tools.NewRegistry()
	registry.Register(stubTool{})

	responses := make([]GenerateResponse, defaultMaxIterations)
	for i := range responses {
		responses[i] = GenerateResponse{ToolCall: &ToolCall{ID: "x", Name: "stub", Arguments: "a"}}
	}
	llm := &fakeLLM{responses: responses}
	agent := New("looper", llm, registry, newFakeMemory(), "")

	result, err := agent.Execute(context.Background(), workflow.ExecutionInput{Content: "loop forever"})
	require.NoError(t, err)
	assert.True(t, result.Success)
	assert.Contains(t, result.Output, "maximum tool-call iterations")
	assert.Equal(t, defaultMaxIterations, llm.calls)
}

func TestSubAgent_LLMErrorIsReportedAsUnsuccessfulResult(t *testing.T) {
	llm := &erroringLLM{}
	agent := New("failer", llm, tools.NewRegistry(), newFakeMemory(), "")

	result, err := agent.Execute(context.Background(), workflow.ExecutionInput{Content: "hi"})
	require.NoError(t, err)
	assert.False(t, result.Success)
}

func TestSubAgent_UnknownToolNameReportedInToolMessage(t *testing.T) {
	llm := &fakeLLM{responses: []GenerateResponse{
		{ToolCall: &ToolCall{ID: "1", Name: "does_not_exist", Arguments: ""}},
		{Text: "done"},
	}}
	agent := New("caller", llm, tools.NewRegistry(), newFakeMemory(), "")

	result, err := agent.Execute(context.Background(), workflow.ExecutionInput{Content: "go"})
	require.NoError(t, err)
	assert.True(t, result.Success)
	assert.Contains(t, llm.lastReq.Messages[len(llm.lastReq.Messages)-1].Content, "not found")
}

type stubTool struct{}

func (stubTool) Name() string        { return "stub" }
func (stubTool) Description() string { return "a stub tool" }
func (stubTool) Run(workflow.ExecutionInput) workflow.ExecutionResult {
	return workflow.ExecutionResult{Success: true, Output: "stub output"}
}

type erroringLLM struct{}

func (erroringLLM) Generate(context.Context, GenerateRequest) (GenerateResponse, error) {
	return GenerateResponse{}, assertError{}
}

type assertError struct{}

func (assertError) Error() string { return "llm call failed" }
