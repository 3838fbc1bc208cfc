package analyzer

import (
	"fmt"

	"github.com/tarsy-labs/agentcore/pkg/engineerr"
	"github.com/tarsy-labs/agentcore/pkg/workflow"
)

// DependencyAnalyzer turns an authored-order task list into topologically
// ordered, parallel-safe batches.
type DependencyAnalyzer struct{}

// New returns a DependencyAnalyzer. The analyzer is stateless; a single
// instance may be shared across workflows.
func New() *DependencyAnalyzer {
	return &DependencyAnalyzer{}
}

// Analyze builds the dependency DAG for tasks and emits it as an ordered
// list of batches. Returns an INVALID_INPUT engineerr.Error wrapping a cycle
// description if the plan cannot be linearized.
func (a *DependencyAnalyzer) Analyze(tasks []workflow.TaskDefinition) ([]workflow.Batch, error) {
	if len(tasks) == 0 {
		return []workflow.Batch{}, nil
	}

	if err := validateTaskNames(tasks); err != nil {
		return nil, err
	}

	index := make(map[string]int, len(tasks))
	for i, t := range tasks {
		index[t.TaskName] = i
	}

	deps := make([][]int, len(tasks))
	for i, t := range tasks {
		depSet := make(map[int]struct{})
		for v := range ExtractVariableNames(t.PromptTemplate) {
			switch {
			case v == ReservedUserRequest:
				// no dependency
			case v == ReservedPrevOutput:
				if i > 0 {
					depSet[i-1] = struct{}{}
				}
			default:
				if j, ok := index[v]; ok {
					// A reference to a task authored later in the plan (j >
					// i) is accepted here and simply reorders that task
					// ahead of i in the emitted batches; only a true cycle
					// is rejected, by topologicalBatches's stall check.
					depSet[j] = struct{}{}
				}
				// unknown identifiers are treated as externally supplied
				// inputs with no in-plan dependency.
			}
		}
		for j := range depSet {
			deps[i] = append(deps[i], j)
		}
	}

	return topologicalBatches(tasks, deps)
}

// validateTaskNames enforces invariant 1: unique, non-empty task names.
func validateTaskNames(tasks []workflow.TaskDefinition) error {
	seen := make(map[string]struct{}, len(tasks))
	for _, t := range tasks {
		if t.TaskName == "" {
			return engineerr.New(engineerr.CategoryInvalidInput, "task name must not be empty")
		}
		if _, dup := seen[t.TaskName]; dup {
			return engineerr.New(engineerr.CategoryInvalidInput, fmt.Sprintf("duplicate task name %q", t.TaskName))
		}
		seen[t.TaskName] = struct{}{}
	}
	return nil
}

// topologicalBatches performs Kahn-style layering: each round collects every
// not-yet-placed task whose dependencies are all already placed. Authored
// order is preserved within a batch.
func topologicalBatches(tasks []workflow.TaskDefinition, deps [][]int) ([]workflow.Batch, error) {
	placed := make([]bool, len(tasks))
	remaining := len(tasks)
	var batches []workflow.Batch

	for remaining > 0 {
		var batch workflow.Batch
		var batchIdx []int
		for i, t := range tasks {
			if placed[i] {
				continue
			}
			if allPlaced(deps[i], placed) {
				batch = append(batch, t)
				batchIdx = append(batchIdx, i)
			}
		}
		if len(batch) == 0 {
			return nil, engineerr.New(engineerr.CategoryInvalidInput, "cycle detected among task dependencies")
		}
		for _, i := range batchIdx {
			placed[i] = true
		}
		remaining -= len(batch)
		batches = append(batches, batch)
	}

	if batches == nil {
		batches = []workflow.Batch{}
	}
	return batches, nil
}

func allPlaced(deps []int, placed []bool) bool {
	for _, d := range deps {
		if !placed[d] {
			return false
		}
	}
	return true
}
