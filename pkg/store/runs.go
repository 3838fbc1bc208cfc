package store

import (
	"context"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/tarsy-labs/agentcore/pkg/engineerr"
	"github.com/tarsy-labs/agentcore/pkg/workflow"
)

// SaveRun upserts a WorkflowRun's bookkeeping row, tracked so a caller can
// poll run status independent of task-output rows.
func (s *Store) SaveRun(ctx context.Context, run workflow.WorkflowRun) error {
	var finishedAt *time.Time
	if run.Status == workflow.RunStatusCompleted || run.Status == workflow.RunStatusFailed {
		now := time.Now()
		finishedAt = &now
	}

	_, err := s.pool.Exec(ctx,
		`INSERT INTO workflow_runs (workflow_id, user_request, status, started_at, finished_at)
		 VALUES ($1, $2, $3, now(), $4)
		 ON CONFLICT (workflow_id)
		 DO UPDATE SET status = EXCLUDED.status,
		               finished_at = COALESCE(workflow_runs.finished_at, EXCLUDED.finished_at)`,
		run.WorkflowID, run.UserRequest, string(run.Status), finishedAt)
	if err != nil {
		return engineerr.Wrap(engineerr.CategoryInternal, err, "saving workflow run").WithContext(run.WorkflowID)
	}
	return nil
}

// LoadRun returns the bookkeeping row for workflowID, or ok=false if none
// exists.
func (s *Store) LoadRun(ctx context.Context, workflowID string) (workflow.WorkflowRun, bool, error) {
	var run workflow.WorkflowRun
	var status string
	run.WorkflowID = workflowID

	err := s.pool.QueryRow(ctx,
		`SELECT user_request, status FROM workflow_runs WHERE workflow_id = $1`, workflowID,
	).Scan(&run.UserRequest, &status)
	if err != nil {
		if err == pgx.ErrNoRows {
			return workflow.WorkflowRun{}, false, nil
		}
		return workflow.WorkflowRun{}, false, engineerr.Wrap(engineerr.CategoryInternal, err, "loading workflow run").WithContext(workflowID)
	}
	run.Status = workflow.RunStatus(status)
	return run, true, nil
}
