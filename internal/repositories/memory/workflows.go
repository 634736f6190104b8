package memory

import (
	"context"
	"fmt"
	"slices"
	"sort"

	"github.com/SscSPs/fulfillment_coordinator/internal/apperrors"
	"github.com/SscSPs/fulfillment_coordinator/internal/core/domain"
)

type workflowRepo struct{ st *state }

func (r workflowRepo) FindWorkflowByID(_ context.Context, workflowID string) (*domain.Workflow, error) {
	wf, ok := r.st.workflows[workflowID]
	if !ok {
		return nil, fmt.Errorf("%w: workflow %s", apperrors.ErrNotFound, workflowID)
	}
	return &wf, nil
}

func (r workflowRepo) FindDefaultWorkflow(_ context.Context, category domain.ShopCategory) (*domain.Workflow, error) {
	ids := make([]string, 0, len(r.st.workflows))
	for id, wf := range r.st.workflows {
		if wf.ShopCategory == category && wf.IsDefault {
			ids = append(ids, id)
		}
	}
	if len(ids) == 0 {
		return nil, fmt.Errorf("%w: default workflow for category %s", apperrors.ErrNotFound, category)
	}
	sort.Strings(ids)
	wf := r.st.workflows[ids[0]]
	return &wf, nil
}

func (r workflowRepo) SaveWorkflow(_ context.Context, workflow domain.Workflow) error {
	if err := workflow.Validate(); err != nil {
		return err
	}
	workflow.Steps = slices.Clone(workflow.Steps)
	workflow.Transitions = slices.Clone(workflow.Transitions)
	r.st.workflows[workflow.WorkflowID] = workflow
	return nil
}

func (r workflowRepo) AppendWorkflowEvent(_ context.Context, event domain.OrderWorkflowEvent) error {
	r.st.wfEvents[event.OrderID] = append(r.st.wfEvents[event.OrderID], event)
	return nil
}

func (r workflowRepo) ListWorkflowEvents(_ context.Context, orderID string) ([]domain.OrderWorkflowEvent, error) {
	out := slices.Clone(r.st.wfEvents[orderID])
	if out == nil {
		out = []domain.OrderWorkflowEvent{}
	}
	return out, nil
}
