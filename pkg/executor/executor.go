// Package executor implements ParallelTaskExecutor: it runs the batches
// produced by a DependencyAnalyzer, executing each batch's tasks
// concurrently with a bounded worker pool, persisting every task's output
// durably, and supporting crash-resumable re-runs.
package executor

import (
	"context"
	"fmt"
	"runtime"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/tarsy-labs/agentcore/pkg/analyzer"
	"github.com/tarsy-labs/agentcore/pkg/engineerr"
	"github.com/tarsy-labs/agentcore/pkg/workflow"
)

// Agent is the capability a sub-agent exposes to the executor: render and
// invoke, returning a result or an error that should terminate the task.
// The executor passes the originating task's name in input.Metadata so an
// Agent fronting several per-task sub-agents (pkg/orchestrator) can
// dispatch to the right one.
type Agent interface {
	Execute(ctx context.Context, input workflow.ExecutionInput) (workflow.ExecutionResult, error)
}

// MemoryStore is the subset of pkg/store.Store the executor depends on.
// Declared narrowly here so this package does not import pkg/store
// directly, keeping the dependency direction leaf-ward.
//
// SaveRun is part of this interface, not pkg/orchestrator's, because the
// executor is the only component that observes both "first batch about to
// start" and "last batch finished/failed" — an outer caller only sees
// Run's overall return, not the batch boundaries within it.
type MemoryStore interface {
	LoadTaskOutputs(ctx context.Context, workflowID string) (map[string]string, error)
	SaveTaskOutput(ctx context.Context, workflowID, taskName, output string) error
	SaveRun(ctx context.Context, run workflow.WorkflowRun) error
}

// Config configures a ParallelTaskExecutor.
type Config struct {
	MaxParallelism int           // default: runtime.NumCPU()
	TaskTimeout    time.Duration // default: 300s
	ShutdownGrace  time.Duration // default: 30s
}

// Executor runs a Plan's batches against a given Agent, persisting outputs
// to a MemoryStore as each task completes.
type Executor struct {
	store    MemoryStore
	agent    Agent
	analyzer *analyzer.DependencyAnalyzer
	cfg      Config
}

// New returns an Executor. cfg's zero values are replaced with its package
// defaults.
func New(store MemoryStore, agent Agent, an *analyzer.DependencyAnalyzer, cfg Config) *Executor {
	if cfg.MaxParallelism <= 0 {
		cfg.MaxParallelism = runtime.NumCPU()
	}
	if cfg.TaskTimeout <= 0 {
		cfg.TaskTimeout = 300 * time.Second
	}
	if cfg.ShutdownGrace <= 0 {
		cfg.ShutdownGrace = 30 * time.Second
	}
	return &Executor{store: store, agent: agent, analyzer: an, cfg: cfg}
}

// outputMap is a mutex-guarded map with a single-writer-per-key property:
// every key is written by at most one task, so the lock only ever
// serializes distinct keys incidentally, never contends on the same one.
type outputMap struct {
	mu   sync.RWMutex
	data map[string]string
}

func newOutputMap(initial map[string]string) *outputMap {
	data := make(map[string]string, len(initial))
	for k, v := range initial {
		data[k] = v
	}
	return &outputMap{data: data}
}

func (m *outputMap) get(key string) (string, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	v, ok := m.data[key]
	return v, ok
}

func (m *outputMap) set(key, value string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.data[key] = value
}

func (m *outputMap) snapshot() map[string]string {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make(map[string]string, len(m.data))
	for k, v := range m.data {
		out[k] = v
	}
	return out
}

// TaskFailure reports which task of a run failed and why.
type TaskFailure struct {
	TaskName string
	Cause    error
}

func (e *TaskFailure) Error() string {
	return fmt.Sprintf("task %q failed: %v", e.TaskName, e.Cause)
}

func (e *TaskFailure) Unwrap() error { return e.Cause }

// Run executes plan's tasks for workflowID against userRequest, returning
// results in authored order. On any task or batch failure, the results
// already computed and persisted remain available for a resumed re-run.
//
// Run is also the sole writer of the run's WorkflowRun bookkeeping: it is
// the only component that observes both the moment the first batch is
// about to start and the moment the last batch finishes or fails, so it
// records the Running transition before the batch loop and the terminal
// Completed/Failed transition once the loop (or an early failure) settles.
func (e *Executor) Run(ctx context.Context, workflowID, userRequest string, plan workflow.Plan) (results []workflow.ExecutionResult, runErr error) {
	batches, err := e.analyzer.Analyze(plan.Tasks)
	if err != nil {
		return nil, err
	}

	if err := e.store.SaveRun(ctx, workflow.WorkflowRun{WorkflowID: workflowID, UserRequest: userRequest, Status: workflow.RunStatusRunning}); err != nil {
		return nil, err
	}
	defer func() {
		finalStatus := workflow.RunStatusCompleted
		if runErr != nil {
			finalStatus = workflow.RunStatusFailed
		}
		// Best-effort: a failure recording the terminal status must not mask
		// the original execution error/result.
		_ = e.store.SaveRun(ctx, workflow.WorkflowRun{WorkflowID: workflowID, UserRequest: userRequest, Status: finalStatus})
	}()

	if len(batches) == 0 {
		return []workflow.ExecutionResult{}, nil
	}

	persisted, err := e.store.LoadTaskOutputs(ctx, workflowID)
	if err != nil {
		return nil, engineerr.Wrap(engineerr.CategoryInternal, err, "loading existing task outputs").WithContext(workflowID)
	}
	outputs := newOutputMap(persisted)

	taskResults := make(map[string]workflow.ExecutionResult, len(plan.Tasks))
	var resultsMu sync.Mutex

	lastCompletedOutput := ""

	for _, batch := range batches {
		if len(batch) == 1 {
			task := batch[0]
			result, err := e.runTask(ctx, workflowID, userRequest, task, outputs, lastCompletedOutput)
			if err != nil {
				return flattenResults(plan, taskResults), &TaskFailure{TaskName: task.TaskName, Cause: err}
			}
			resultsMu.Lock()
			taskResults[task.TaskName] = result
			resultsMu.Unlock()
			lastCompletedOutput = result.Output
			continue
		}

		batchTimeout := e.cfg.TaskTimeout * time.Duration(len(batch))
		batchCtx, cancel := context.WithTimeout(ctx, batchTimeout)

		prevForBatch := lastCompletedOutput
		g, gctx := errgroup.WithContext(batchCtx)
		g.SetLimit(e.cfg.MaxParallelism)

		for _, task := range batch {
			task := task
			g.Go(func() error {
				result, err := e.runTask(gctx, workflowID, userRequest, task, outputs, prevForBatch)
				if err != nil {
					return &TaskFailure{TaskName: task.TaskName, Cause: err}
				}
				resultsMu.Lock()
				taskResults[task.TaskName] = result
				resultsMu.Unlock()
				return nil
			})
		}

		waitErr := g.Wait()
		cancel()

		if waitErr != nil {
			if batchCtx.Err() == context.DeadlineExceeded {
				return flattenResults(plan, taskResults), engineerr.New(engineerr.CategoryTimeout, fmt.Sprintf("batch timed out after %s", batchTimeout)).WithContext(workflowID)
			}
			return flattenResults(plan, taskResults), waitErr
		}

		for _, task := range batch {
			if r, ok := taskResults[task.TaskName]; ok {
				lastCompletedOutput = r.Output
			}
		}
	}

	return flattenResults(plan, taskResults), nil
}

// runTask executes a single task, short-circuiting if its output is already
// persisted (crash-resume semantics: at most one LLM invocation per task
// per workflow run).
func (e *Executor) runTask(ctx context.Context, workflowID, userRequest string, task workflow.TaskDefinition, outputs *outputMap, prevOutput string) (workflow.ExecutionResult, error) {
	if cached, ok := outputs.get(task.TaskName); ok {
		return workflow.ExecutionResult{Success: true, Output: cached}, nil
	}

	taskCtx, cancel := context.WithTimeout(ctx, e.cfg.TaskTimeout)
	defer cancel()

	vars := map[string]string{
		analyzer.ReservedUserRequest: userRequest,
		analyzer.ReservedPrevOutput:  prevOutput,
	}
	for name, output := range outputs.snapshot() {
		vars[name] = output
	}

	prompt := analyzer.Render(task.PromptTemplate, vars)

	result, err := e.agent.Execute(taskCtx, workflow.ExecutionInput{Content: prompt, Metadata: task.TaskName})
	if err != nil {
		if taskCtx.Err() == context.DeadlineExceeded {
			return workflow.ExecutionResult{}, engineerr.New(engineerr.CategoryTimeout, fmt.Sprintf("task %q timed out after %s", task.TaskName, e.cfg.TaskTimeout))
		}
		return workflow.ExecutionResult{}, err
	}
	if !result.Success {
		return workflow.ExecutionResult{}, engineerr.New(engineerr.CategoryService, result.Output).WithContext(task.TaskName)
	}

	output := result.Output
	if err := e.store.SaveTaskOutput(ctx, workflowID, task.TaskName, output); err != nil {
		return workflow.ExecutionResult{}, err
	}
	outputs.set(task.TaskName, output)

	return result, nil
}

// Close releases executor resources. The per-batch worker groups this
// executor creates are ephemeral (scoped to a single Run call), so there is
// no persistent pool to drain; Close exists so Executor can be used as a
// scoped resource alongside MemoryStore and is safe to call exactly once.
func (e *Executor) Close() {}

// flattenResults returns results in plan's authored order, omitting any
// task that never completed (present only on a failed run's partial
// return).
func flattenResults(plan workflow.Plan, results map[string]workflow.ExecutionResult) []workflow.ExecutionResult {
	out := make([]workflow.ExecutionResult, 0, len(plan.Tasks))
	for _, t := range plan.Tasks {
		if r, ok := results[t.TaskName]; ok {
			out = append(out, r)
		}
	}
	return out
}
