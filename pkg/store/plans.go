package store

import (
	"context"
	"encoding/json"

	"github.com/jackc/pgx/v5"

	"github.com/tarsy-labs/agentcore/pkg/engineerr"
	"github.com/tarsy-labs/agentcore/pkg/workflow"
)

// planRow is the JSON-serializable shape stored in workflow_plans.plan_json.
// Only the task list is persisted; WorkflowID is the row's key.
type planRow struct {
	Tasks []workflow.TaskDefinition `json:"tasks"`
}

// SavePlan upserts the serialized plan for workflowID.
func (s *Store) SavePlan(ctx context.Context, plan workflow.Plan) error {
	data, err := json.Marshal(planRow{Tasks: plan.Tasks})
	if err != nil {
		return engineerr.Wrap(engineerr.CategoryInternal, err, "serializing plan").WithContext(plan.WorkflowID)
	}

	_, err = s.pool.Exec(ctx,
		`INSERT INTO workflow_plans (workflow_id, plan_json, updated_at)
		 VALUES ($1, $2, now())
		 ON CONFLICT (workflow_id)
		 DO UPDATE SET plan_json = EXCLUDED.plan_json, updated_at = now()`,
		plan.WorkflowID, data)
	if err != nil {
		return engineerr.Wrap(engineerr.CategoryInternal, err, "saving plan").WithContext(plan.WorkflowID)
	}
	return nil
}

// LoadPlan returns the plan for workflowID, or ok=false if none was saved.
func (s *Store) LoadPlan(ctx context.Context, workflowID string) (workflow.Plan, bool, error) {
	var data []byte
	err := s.pool.QueryRow(ctx,
		`SELECT plan_json FROM workflow_plans WHERE workflow_id = $1`, workflowID,
	).Scan(&data)
	if err != nil {
		if err == pgx.ErrNoRows {
			return workflow.Plan{}, false, nil
		}
		return workflow.Plan{}, false, engineerr.Wrap(engineerr.CategoryInternal, err, "loading plan").WithContext(workflowID)
	}

	var row planRow
	if err := json.Unmarshal(data, &row); err != nil {
		return workflow.Plan{}, false, engineerr.Wrap(engineerr.CategoryInternal, err, "deserializing plan").WithContext(workflowID)
	}
	return workflow.Plan{WorkflowID: workflowID, Tasks: row.Tasks}, true, nil
}
