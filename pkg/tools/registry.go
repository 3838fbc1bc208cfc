// Package tools implements the ToolRegistry and the concrete tool substrate:
// FileReadTool, CommandRunnerTool, WebSearchTool, and TTSTool. Every tool is
// stateless and thread-safe; failures are returned in-band via
// workflow.ExecutionResult rather than as Go errors.
package tools

import (
	"sync"

	"github.com/tarsy-labs/agentcore/pkg/workflow"
)

// Tool is the capability every registered tool exposes. Implementations
// must be safe for concurrent use and must not panic on expected failures —
// those are reported via ExecutionResult.Success == false.
type Tool interface {
	Name() string
	Description() string
	Run(input workflow.ExecutionInput) workflow.ExecutionResult
}

// Registry is a thread-safe name→Tool map guarded by a coarse RWMutex.
// Lookups take the read lock, so they run concurrently with each other but
// are not lock-free: they wait while a Register call holds the write lock.
type Registry struct {
	mu    sync.RWMutex
	tools map[string]Tool
}

// NewRegistry returns an empty Registry.
func NewRegistry() *Registry {
	return &Registry{tools: make(map[string]Tool)}
}

// Register inserts tool under its own Name(), overwriting any prior tool
// registered under that name.
func (r *Registry) Register(tool Tool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.tools[tool.Name()] = tool
}

// Get returns the tool registered under name, or ok=false if none exists.
func (r *Registry) Get(name string) (Tool, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	t, ok := r.tools[name]
	return t, ok
}

// ListNames returns the names of every registered tool. Order is
// unspecified.
func (r *Registry) ListNames() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	names := make([]string, 0, len(r.tools))
	for name := range r.tools {
		names = append(names, name)
	}
	return names
}

// ToolDefinition is a tool's name and description, consumed by a SubAgent
// when building the LLM's tool-selection context.
type ToolDefinition struct {
	Name        string
	Description string
}

// Describe returns the name and description of every registered tool.
// Order is unspecified.
func (r *Registry) Describe() []ToolDefinition {
	r.mu.RLock()
	defer r.mu.RUnlock()
	defs := make([]ToolDefinition, 0, len(r.tools))
	for name, t := range r.tools {
		defs = append(defs, ToolDefinition{Name: name, Description: t.Description()})
	}
	return defs
}
