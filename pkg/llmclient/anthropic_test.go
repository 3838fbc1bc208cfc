package llmclient

import (
	"context"
	"testing"

	sdk "github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tarsy-labs/agentcore/pkg/engineerr"
	"github.com/tarsy-labs/agentcore/pkg/subagent"
)

type stubMessagesClient struct {
	lastParams sdk.MessageNewParams
	resp       *sdk.Message
	err        error
	calls      int
}

func (s *stubMessagesClient) New(_ context.Context, body sdk.MessageNewParams, _ ...option.RequestOption) (*sdk.Message, error) {
	s.lastParams = body
	s.calls++
	return s.resp, s.err
}

func newTestClient(stub *stubMessagesClient) *AnthropicClient {
	return &AnthropicClient{msg: stub, model: "claude-test", timeout: 0, maxRetries: 0, maxTokens: 1024}
}

func TestAnthropicClient_GenerateReturnsText(t *testing.T) {
	stub := &stubMessagesClient{resp: &sdk.Message{
		Content: []sdk.ContentBlockUnion{{Type: "text", Text: "hello there"}},
	}}
	client := newTestClient(stub)
	client.timeout = 1_000_000_000 // 1s; a zero timeout would expire the request context at once

	resp, err := client.Generate(context.Background(), subagent.GenerateRequest{
		SystemPrompt: "be terse",
		Messages:     []subagent.Message{{Role: subagent.RoleUser, Content: "hi"}},
	})
	require.NoError(t, err)
	assert.Equal(t, "hello there", resp.Text)
	assert.Nil(t, resp.ToolCall)
	assert.Equal(t, 1, stub.calls)
	assert.Len(t, stub.lastParams.System, 1)
	assert.Equal(t, "be terse", stub.lastParams.System[0].Text)
}

func TestAnthropicClient_GenerateSurfacesToolCall(t *testing.T) {
	stub := &stubMessagesClient{resp: &sdk.Message{
		Content: []sdk.ContentBlockUnion{
			{Type: "tool_use", ID: "call-1", Name: "file_read", Input: map[string]any{"path": "a.txt"}},
		},
	}}
	client := newTestClient(stub)
	client.timeout = 1_000_000_000

	resp, err := client.Generate(context.Background(), subagent.GenerateRequest{
		Messages: []subagent.Message{{Role: subagent.RoleUser, Content: "read a.txt"}},
	})
	require.NoError(t, err)
	require.NotNil(t, resp.ToolCall)
	assert.Equal(t, "file_read", resp.ToolCall.Name)
	assert.Equal(t, "call-1", resp.ToolCall.ID)
	assert.Contains(t, resp.ToolCall.Arguments, "a.txt")
}

func TestAnthropicClient_NonRetryableErrorStopsImmediately(t *testing.T) {
	stub := &stubMessagesClient{err: engineerr.New(engineerr.CategoryInvalidInput, "bad request")}
	client := newTestClient(stub)
	client.timeout = 1_000_000_000
	client.maxRetries = 3

	_, err := client.Generate(context.Background(), subagent.GenerateRequest{
		Messages: []subagent.Message{{Role: subagent.RoleUser, Content: "hi"}},
	})
	require.Error(t, err)
	assert.Equal(t, 1, stub.calls)
}

func TestAnthropicClient_RetryableErrorIsRetriedUpToMaxRetries(t *testing.T) {
	stub := &stubMessagesClient{err: engineerr.New(engineerr.CategoryService, "upstream hiccup")}
	client := newTestClient(stub)
	client.timeout = 5_000_000_000
	client.maxRetries = 2

	_, err := client.Generate(context.Background(), subagent.GenerateRequest{
		Messages: []subagent.Message{{Role: subagent.RoleUser, Content: "hi"}},
	})
	require.Error(t, err)
	assert.Equal(t, 3, stub.calls) // initial attempt + 2 retries
}

func TestAnthropicClient_MapsMessagesByRole(t *testing.T) {
	stub := &stubMessagesClient{resp: &sdk.Message{}}
	client := newTestClient(stub)
	client.timeout = 1_000_000_000

	_, err := client.Generate(context.Background(), subagent.GenerateRequest{
		Messages: []subagent.Message{
			{Role: subagent.RoleUser, Content: "question"},
			{Role: subagent.RoleAssistant, Content: "[tool_call x(y)]"},
			{Role: subagent.RoleTool, Content: "tool output"},
		},
	})
	require.NoError(t, err)
	require.Len(t, stub.lastParams.Messages, 3)
}
