// Package workflow defines the shared data model for the execution plane:
// TaskDefinition, Plan, Batch, ExecutionInput, and ExecutionResult are used
// by the dependency analyzer, the parallel executor, the memory store, and
// sub-agents alike, so they live in their own package to avoid import
// cycles between those components.
package workflow

// TaskDefinition is one named step of a Plan. Immutable once the plan is
// constructed.
type TaskDefinition struct {
	TaskName        string `json:"task_name"`
	TaskDescription string `json:"task_description,omitempty"`
	PromptTemplate  string `json:"prompt_template"`

	// RequiresApproval marks this task as a gated stage: its generated
	// output is held for an ApprovalHandler decision before any dependent
	// batch may start.
	RequiresApproval bool `json:"requires_approval,omitempty"`
}

// Plan is an ordered sequence of tasks for one workflow run. Order is
// semantically significant: it defines the authored-order predecessor used
// to resolve the prev_output template variable.
type Plan struct {
	WorkflowID string           `json:"workflow_id"`
	Tasks      []TaskDefinition `json:"tasks"`
}

// TaskByName returns the task with the given name and its index in the
// plan, or ok=false if no such task exists.
func (p Plan) TaskByName(name string) (TaskDefinition, int, bool) {
	for i, t := range p.Tasks {
		if t.TaskName == name {
			return t, i, true
		}
	}
	return TaskDefinition{}, -1, false
}

// Batch is an ordered set of tasks with no mutual dependencies, emitted by
// the dependency analyzer. Authored order is preserved within a batch for
// deterministic logging.
type Batch []TaskDefinition

// ExecutionInput is the prompt/argument passed to a tool or sub-agent.
type ExecutionInput struct {
	Content  string
	Metadata any
}

// ExecutionResult is the outcome of a tool or sub-agent invocation.
// Immutable once constructed.
type ExecutionResult struct {
	Success  bool   `json:"success"`
	Output   string `json:"output"`
	Metadata any    `json:"metadata,omitempty"`
}

// RunStatus tracks a WorkflowRun's lifecycle.
type RunStatus string

// WorkflowRun lifecycle states.
const (
	RunStatusPending   RunStatus = "pending"
	RunStatusRunning   RunStatus = "running"
	RunStatusCompleted RunStatus = "completed"
	RunStatusFailed    RunStatus = "failed"
)

// WorkflowRun tracks one end-to-end execution's status independent of the
// task-output rows it wraps, so a caller can poll run status without
// re-supplying the plan.
type WorkflowRun struct {
	WorkflowID  string    `json:"workflow_id"`
	UserRequest string    `json:"user_request"`
	Status      RunStatus `json:"status"`
}
