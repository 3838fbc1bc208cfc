// Package subagent implements the per-task agent: it takes an already
// rendered prompt, calls an LLM, optionally loops through tool calls, and records the
// exchange to conversational memory.
package subagent

import (
	"context"
	"fmt"

	"github.com/tarsy-labs/agentcore/pkg/engineerr"
	"github.com/tarsy-labs/agentcore/pkg/tools"
	"github.com/tarsy-labs/agentcore/pkg/workflow"
)

// defaultMaxIterations bounds the tool-call loop.
const defaultMaxIterations = 5

// GenerateRequest is one non-streaming LLM call.
type GenerateRequest struct {
	SystemPrompt string
	Messages     []Message
}

// Message is one turn of conversation passed to the LLM.
type Message struct {
	Role    string // RoleUser, RoleAssistant, RoleTool
	Content string
}

// Conversation roles.
const (
	RoleUser      = "user"
	RoleAssistant = "assistant"
	RoleTool      = "tool"
)

// ToolCall is an LLM's request to invoke a registered tool.
type ToolCall struct {
	ID        string
	Name      string
	Arguments string
}

// GenerateResponse is the LLM's reply: either final text, or a tool-call
// directive to resolve before looping again.
type GenerateResponse struct {
	Text     string
	ToolCall *ToolCall
}

// LLMClient is the capability a sub-agent depends on to call an LLM; the
// concrete implementation is pkg/llmclient.AnthropicClient.
type LLMClient interface {
	Generate(ctx context.Context, req GenerateRequest) (GenerateResponse, error)
}

// MemoryStore is the subset of pkg/store.Store a sub-agent depends on.
type MemoryStore interface {
	LoadMemory(ctx context.Context, agentName string, limit int) ([]MemoryEntry, error)
	AddMemory(ctx context.Context, agentName, content string) error
}

// MemoryEntry mirrors pkg/store.MemoryEntry's shape the sub-agent actually
// reads, declared locally to avoid importing pkg/store from this package.
type MemoryEntry struct {
	Content string
}

// IterationState tracks a SubAgent's tool-call loop progress across
// iterations of a single Execute call.
type IterationState struct {
	CurrentIteration int
	MaxIterations    int
}

// Done reports whether the loop has exhausted its iteration budget.
func (s *IterationState) Done() bool {
	return s.CurrentIteration >= s.MaxIterations
}

// Advance records the completion of one iteration.
func (s *IterationState) Advance() {
	s.CurrentIteration++
}

// Controller is the iteration strategy a SubAgent delegates its
// generate-call-tool-append loop to, so the LLM-calling strategy can be
// swapped independently of Execute's public contract.
type Controller interface {
	Run(ctx context.Context, state *IterationState, systemPrompt string, messages []Message) (string, error)
}

// loopController is the default Controller: call the LLM, and if it
// returns a tool-call directive, resolve it against the tool registry and
// loop again, until a final text response arrives or the iteration budget
// is exhausted.
type loopController struct {
	llm   LLMClient
	tools *tools.Registry
}

func (c *loopController) Run(ctx context.Context, state *IterationState, systemPrompt string, messages []Message) (string, error) {
	for !state.Done() {
		resp, err := c.llm.Generate(ctx, GenerateRequest{SystemPrompt: systemPrompt, Messages: messages})
		if err != nil {
			return "", err
		}

		if resp.ToolCall == nil {
			return resp.Text, nil
		}

		messages = append(messages, Message{Role: RoleAssistant, Content: fmt.Sprintf("[tool_call %s(%s)]", resp.ToolCall.Name, resp.ToolCall.Arguments)})
		toolResult := c.callTool(*resp.ToolCall)
		messages = append(messages, Message{Role: RoleTool, Content: toolResult})

		state.Advance()
	}
	return "maximum tool-call iterations reached without a final response", nil
}

func (c *loopController) callTool(call ToolCall) string {
	if c.tools == nil {
		return fmt.Sprintf("no tool registry configured; cannot run %q", call.Name)
	}
	tool, ok := c.tools.Get(call.Name)
	if !ok {
		return fmt.Sprintf("tool %q not found", call.Name)
	}
	result := tool.Run(workflow.ExecutionInput{Content: call.Arguments})
	if !result.Success {
		return "error: " + result.Output
	}
	return result.Output
}

// SubAgent holds an LLM client, tool registry, its own name, and a shared
// memory store. One instance is constructed per task. It is a thin shell
// over a Controller, which owns the actual iterate-call-tool-append loop.
type SubAgent struct {
	Name          string
	LLM           LLMClient
	Tools         *tools.Registry
	Memory        MemoryStore
	SystemPrompt  string
	MaxIterations int
	MemoryLimit   int

	controller Controller
}

// New returns a SubAgent with its default iteration bound and memory limit
// applied, using the default generate-call-tool-append loopController.
func New(name string, llm LLMClient, registry *tools.Registry, memory MemoryStore, systemPrompt string) *SubAgent {
	a := NewWithController(name, &loopController{llm: llm, tools: registry}, memory, systemPrompt)
	a.LLM = llm
	a.Tools = registry
	return a
}

// NewWithController returns a SubAgent delegating its iteration loop to
// controller instead of the default loopController, so a caller can swap
// in a different LLM-calling strategy without touching Execute's contract.
// Panics if controller is nil — a SubAgent with no iteration strategy to
// delegate to is a programming error, not a runtime condition to recover
// from.
func NewWithController(name string, controller Controller, memory MemoryStore, systemPrompt string) *SubAgent {
	if controller == nil {
		panic("subagent: NewWithController requires a non-nil controller")
	}
	return &SubAgent{
		Name:          name,
		Memory:        memory,
		SystemPrompt:  systemPrompt,
		MaxIterations: defaultMaxIterations,
		MemoryLimit:   20,
		controller:    controller,
	}
}

// Execute uses input.Content (already rendered by the caller) as the task
// prompt, loads conversational history, and delegates the bounded tool-call loop to this SubAgent's
// controller.
func (a *SubAgent) Execute(ctx context.Context, input workflow.ExecutionInput) (workflow.ExecutionResult, error) {
	var history []Message
	if a.Memory != nil {
		entries, err := a.Memory.LoadMemory(ctx, a.Name, a.MemoryLimit)
		if err != nil {
			return workflow.ExecutionResult{}, engineerr.Wrap(engineerr.CategoryInternal, err, "loading agent memory").WithContext(a.Name)
		}
		for _, e := range entries {
			history = append(history, Message{Role: RoleAssistant, Content: e.Content})
		}
	}

	messages := append(history, Message{Role: RoleUser, Content: input.Content})

	maxIter := a.MaxIterations
	if maxIter <= 0 {
		maxIter = defaultMaxIterations
	}
	state := &IterationState{MaxIterations: maxIter}

	finalText, err := a.controller.Run(ctx, state, a.SystemPrompt, messages)
	if err != nil {
		return a.finish(ctx, input.Content, workflow.ExecutionResult{Success: false, Output: err.Error()}), nil
	}

	return a.finish(ctx, input.Content, workflow.ExecutionResult{Success: true, Output: finalText}), nil
}

func (a *SubAgent) finish(ctx context.Context, userInput string, result workflow.ExecutionResult) workflow.ExecutionResult {
	if a.Memory != nil {
		_ = a.Memory.AddMemory(ctx, a.Name, "user: "+userInput)
		_ = a.Memory.AddMemory(ctx, a.Name, "assistant: "+result.Output)
	}
	return result
}
