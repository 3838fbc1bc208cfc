package store

import (
	"context"

	"github.com/tarsy-labs/agentcore/pkg/engineerr"
)

// SaveTaskOutput upserts the output for (workflowID, taskName). Idempotent:
// a later call with the same key overwrites the earlier one.
func (s *Store) SaveTaskOutput(ctx context.Context, workflowID, taskName, output string) error {
	_, err := s.pool.Exec(ctx,
		`INSERT INTO task_outputs (workflow_id, task_name, output, updated_at)
		 VALUES ($1, $2, $3, now())
		 ON CONFLICT (workflow_id, task_name)
		 DO UPDATE SET output = EXCLUDED.output, updated_at = now()`,
		workflowID, taskName, output)
	if err != nil {
		return engineerr.Wrap(engineerr.CategoryInternal, err, "saving task output").
			WithContext(workflowID + "/" + taskName)
	}
	return nil
}

// LoadTaskOutputs returns every task output saved for workflowID, keyed by
// task name. Returns an empty map (not an error) if none exist.
func (s *Store) LoadTaskOutputs(ctx context.Context, workflowID string) (map[string]string, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT task_name, output FROM task_outputs WHERE workflow_id = $1`,
		workflowID)
	if err != nil {
		return nil, engineerr.Wrap(engineerr.CategoryInternal, err, "loading task outputs").WithContext(workflowID)
	}
	defer rows.Close()

	result := make(map[string]string)
	for rows.Next() {
		var taskName, output string
		if err := rows.Scan(&taskName, &output); err != nil {
			return nil, engineerr.Wrap(engineerr.CategoryInternal, err, "scanning task outputs").WithContext(workflowID)
		}
		result[taskName] = output
	}
	if err := rows.Err(); err != nil {
		return nil, engineerr.Wrap(engineerr.CategoryInternal, err, "iterating task outputs").WithContext(workflowID)
	}
	return result, nil
}
