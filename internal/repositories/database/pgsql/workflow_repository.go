package pgsql

import (
	"context"

	"github.com/SscSPs/fulfillment_coordinator/internal/core/domain"
	"github.com/jackc/pgx/v5"
)

type workflowRepo struct{ q querier }

func scanStep(row rowScanner) (*domain.WorkflowStep, error) {
	var s domain.WorkflowStep
	if err := row.Scan(&s.StepID, &s.WorkflowID, &s.Key, &s.Name, &s.Sequence, &s.IsDispatchTrigger, &s.IsTerminal); err != nil {
		return nil, err
	}
	return &s, nil
}

func scanTransition(row rowScanner) (*domain.WorkflowStepTransition, error) {
	var t domain.WorkflowStepTransition
	if err := row.Scan(&t.WorkflowID, &t.FromStepID, &t.ToStepID); err != nil {
		return nil, err
	}
	return &t, nil
}

// FindWorkflowByID loads the header, the steps ordered by sequence and the
// transitions.
func (r workflowRepo) FindWorkflowByID(ctx context.Context, workflowID string) (*domain.Workflow, error) {
	var wf domain.Workflow
	err := r.q.QueryRow(ctx, `
		SELECT workflow_id, shop_category, name, is_default FROM workflows WHERE workflow_id = $1`, workflowID).
		Scan(&wf.WorkflowID, &wf.ShopCategory, &wf.Name, &wf.IsDefault)
	if err != nil {
		return nil, mapError(err, "workflow "+workflowID)
	}

	wf.Steps, err = queryAll(ctx, r.q, "steps of workflow "+workflowID, scanStep, `
		SELECT step_id, workflow_id, step_key, name, sequence, is_dispatch_trigger, is_terminal
		FROM workflow_steps WHERE workflow_id = $1 ORDER BY sequence, step_id`, workflowID)
	if err != nil {
		return nil, err
	}
	wf.Transitions, err = queryAll(ctx, r.q, "transitions of workflow "+workflowID, scanTransition, `
		SELECT workflow_id, from_step_id, to_step_id
		FROM workflow_transitions WHERE workflow_id = $1 ORDER BY from_step_id, to_step_id`, workflowID)
	if err != nil {
		return nil, err
	}
	return &wf, nil
}

func (r workflowRepo) FindDefaultWorkflow(ctx context.Context, category domain.ShopCategory) (*domain.Workflow, error) {
	var workflowID string
	err := r.q.QueryRow(ctx, `
		SELECT workflow_id FROM workflows
		WHERE shop_category = $1 AND is_default
		ORDER BY workflow_id LIMIT 1`, category).Scan(&workflowID)
	if err != nil {
		return nil, mapError(err, "default workflow for category "+string(category))
	}
	return r.FindWorkflowByID(ctx, workflowID)
}

// SaveWorkflow upserts the header and replaces the steps and transitions.
func (r workflowRepo) SaveWorkflow(ctx context.Context, wf domain.Workflow) error {
	if err := wf.Validate(); err != nil {
		return err
	}

	batch := &pgx.Batch{}
	batch.Queue(`
		INSERT INTO workflows (workflow_id, shop_category, name, is_default)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT (workflow_id) DO UPDATE SET
			shop_category = EXCLUDED.shop_category, name = EXCLUDED.name, is_default = EXCLUDED.is_default`,
		wf.WorkflowID, wf.ShopCategory, wf.Name, wf.IsDefault)
	batch.Queue(`DELETE FROM workflow_transitions WHERE workflow_id = $1`, wf.WorkflowID)
	batch.Queue(`DELETE FROM workflow_steps WHERE workflow_id = $1`, wf.WorkflowID)
	for _, s := range wf.Steps {
		batch.Queue(`
			INSERT INTO workflow_steps (step_id, workflow_id, step_key, name, sequence, is_dispatch_trigger, is_terminal)
			VALUES ($1, $2, $3, $4, $5, $6, $7)`,
			s.StepID, wf.WorkflowID, s.Key, s.Name, s.Sequence, s.IsDispatchTrigger, s.IsTerminal)
	}
	for _, t := range wf.Transitions {
		batch.Queue(`
			INSERT INTO workflow_transitions (workflow_id, from_step_id, to_step_id)
			VALUES ($1, $2, $3)`,
			wf.WorkflowID, t.FromStepID, t.ToStepID)
	}
	if err := r.q.SendBatch(ctx, batch).Close(); err != nil {
		return mapError(err, "workflow "+wf.WorkflowID)
	}
	return nil
}

func (r workflowRepo) AppendWorkflowEvent(ctx context.Context, e domain.OrderWorkflowEvent) error {
	_, err := r.q.Exec(ctx, `
		INSERT INTO order_workflow_events (event_id, order_id, workflow_id, from_step_id, to_step_id, actor_id, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)`,
		e.EventID, e.OrderID, e.WorkflowID, e.FromStepID, e.ToStepID, e.ActorID, e.CreatedAt)
	return mapError(err, "workflow event of order "+e.OrderID)
}

func scanWorkflowEvent(row rowScanner) (*domain.OrderWorkflowEvent, error) {
	var e domain.OrderWorkflowEvent
	if err := row.Scan(&e.EventID, &e.OrderID, &e.WorkflowID, &e.FromStepID, &e.ToStepID, &e.ActorID, &e.CreatedAt); err != nil {
		return nil, err
	}
	return &e, nil
}

func (r workflowRepo) ListWorkflowEvents(ctx context.Context, orderID string) ([]domain.OrderWorkflowEvent, error) {
	return queryAll(ctx, r.q, "workflow events of order "+orderID, scanWorkflowEvent, `
		SELECT event_id, order_id, workflow_id, from_step_id, to_step_id, actor_id, created_at
		FROM order_workflow_events WHERE order_id = $1 ORDER BY seq`, orderID)
}
