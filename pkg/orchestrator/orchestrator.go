// Package orchestrator wires the execution plane's leaf components —
// MemoryStore, DependencyAnalyzer, ParallelTaskExecutor, per-task SubAgent,
// and an optional ApprovalGate — into the single entry point
// cmd/agentcored calls to run a plan.
package orchestrator

import (
	"context"
	"sync"

	"github.com/tarsy-labs/agentcore/pkg/analyzer"
	"github.com/tarsy-labs/agentcore/pkg/approval"
	"github.com/tarsy-labs/agentcore/pkg/engineerr"
	"github.com/tarsy-labs/agentcore/pkg/executor"
	"github.com/tarsy-labs/agentcore/pkg/store"
	"github.com/tarsy-labs/agentcore/pkg/subagent"
	"github.com/tarsy-labs/agentcore/pkg/tools"
	"github.com/tarsy-labs/agentcore/pkg/workflow"
)

// Store is the subset of pkg/store.Store the orchestrator depends on,
// spanning both the executor's and the sub-agents' persistence needs. As
// the composition root, this package (unlike pkg/executor/pkg/subagent)
// depends on pkg/store's concrete MemoryEntry type directly rather than
// declaring its own, since no other package needs to avoid importing it
// here.
type Store interface {
	executor.MemoryStore
	SavePlan(ctx context.Context, plan workflow.Plan) error
	LoadPlan(ctx context.Context, workflowID string) (workflow.Plan, bool, error)
	LoadRun(ctx context.Context, workflowID string) (workflow.WorkflowRun, bool, error)
	LoadMemory(ctx context.Context, agentName string, limit int) ([]store.MemoryEntry, error)
	AddMemory(ctx context.Context, agentName, content string) error
}

// memoryAdapter satisfies subagent.MemoryStore by projecting a Store's
// richer MemoryEntry rows down to subagent's local, narrower shape.
type memoryAdapter struct {
	store Store
}

func (a *memoryAdapter) LoadMemory(ctx context.Context, agentName string, limit int) ([]subagent.MemoryEntry, error) {
	entries, err := a.store.LoadMemory(ctx, agentName, limit)
	if err != nil {
		return nil, err
	}
	out := make([]subagent.MemoryEntry, len(entries))
	for i, e := range entries {
		out[i] = subagent.MemoryEntry{Content: e.Content}
	}
	return out, nil
}

func (a *memoryAdapter) AddMemory(ctx context.Context, agentName, content string) error {
	return a.store.AddMemory(ctx, agentName, content)
}

// Config configures an Orchestrator.
type Config struct {
	Executor executor.Config
	// SystemPrompt is shared by every per-task sub-agent this orchestrator
	// creates; tasks have no persona of their own, only their own prompt
	// template and memory history (keyed by task name).
	SystemPrompt string
}

// Orchestrator threads the dependency analyzer, executor, tool registry,
// LLM client, and an optional approval gate into one Run entry point.
type Orchestrator struct {
	store    Store
	llm      subagent.LLMClient
	registry *tools.Registry
	gate     *approval.Gate
	cfg      Config

	ex *executor.Executor

	mu     sync.Mutex
	agents map[string]*subagent.SubAgent // per-task-name, created lazily
}

// New constructs an Orchestrator. gate may be nil if no task in any plan
// this orchestrator runs sets RequiresApproval.
func New(store Store, llm subagent.LLMClient, registry *tools.Registry, gate *approval.Gate, cfg Config) *Orchestrator {
	o := &Orchestrator{
		store:    store,
		llm:      llm,
		registry: registry,
		gate:     gate,
		cfg:      cfg,
		agents:   make(map[string]*subagent.SubAgent),
	}
	o.ex = executor.New(store, dispatchingAgent{o}, analyzer.New(), cfg.Executor)
	return o
}

// runContext carries the in-flight run's gated-task set, so concurrent Run
// calls for distinct workflows never share mutable state: a context value,
// not an extra mutex, threads this per-call data to dispatchingAgent.
type runContext struct {
	workflowID string
	gated      map[string]bool
}

type runContextKey struct{}

// Run persists plan (so a crash after this point can resume from storage)
// and hands execution to the executor, which owns the run's Running and
// terminal WorkflowRun status transitions.
func (o *Orchestrator) Run(ctx context.Context, workflowID, userRequest string, plan workflow.Plan) ([]workflow.ExecutionResult, error) {
	if err := o.store.SavePlan(ctx, plan); err != nil {
		return nil, err
	}

	gated := make(map[string]bool, len(plan.Tasks))
	for _, t := range plan.Tasks {
		if t.RequiresApproval {
			gated[t.TaskName] = true
		}
	}
	runCtx := context.WithValue(ctx, runContextKey{}, runContext{workflowID: workflowID, gated: gated})

	return o.ex.Run(runCtx, workflowID, userRequest, plan)
}

// subAgentFor returns this orchestrator's sub-agent for taskName, creating
// one (with agentName = taskName, so memory history is scoped per task) on
// first use.
func (o *Orchestrator) subAgentFor(taskName string) *subagent.SubAgent {
	o.mu.Lock()
	defer o.mu.Unlock()
	if a, ok := o.agents[taskName]; ok {
		return a
	}
	a := subagent.New(taskName, o.llm, o.registry, &memoryAdapter{o.store}, o.cfg.SystemPrompt)
	o.agents[taskName] = a
	return a
}

// dispatchingAgent fronts every per-task sub-agent this Orchestrator owns,
// satisfying executor.Agent by reading the originating task's name back out
// of ExecutionInput.Metadata (set by the executor per task).
type dispatchingAgent struct {
	o *Orchestrator
}

func (d dispatchingAgent) Execute(ctx context.Context, input workflow.ExecutionInput) (workflow.ExecutionResult, error) {
	taskName, _ := input.Metadata.(string)
	if taskName == "" {
		return workflow.ExecutionResult{}, engineerr.New(engineerr.CategoryInternal, "executor did not supply a task name")
	}

	agent := d.o.subAgentFor(taskName)
	result, err := agent.Execute(ctx, input)
	if err != nil || !result.Success {
		return result, err
	}

	if d.o.gate == nil {
		return result, nil
	}

	rc, _ := ctx.Value(runContextKey{}).(runContext)
	if !rc.gated[taskName] {
		return result, nil
	}

	resp, err := d.o.gate.RequestApproval(ctx, result.Output, taskName, rc.workflowID, "")
	if err != nil {
		return workflow.ExecutionResult{Success: false, Output: err.Error()}, nil
	}
	if resp.State == approval.StateApproved {
		return result, nil
	}
	return workflow.ExecutionResult{Success: false, Output: "approval " + string(resp.State) + ": " + resp.Comment}, nil
}
