package repositories

import (
	"context"

	"github.com/SscSPs/fulfillment_coordinator/internal/core/domain"
)

// WorkflowRepository persists workflow graphs and the order workflow trail.
type WorkflowRepository interface {
	// FindWorkflowByID loads the workflow with its steps and transitions.
	FindWorkflowByID(ctx context.Context, workflowID string) (*domain.Workflow, error)

	// FindDefaultWorkflow returns the default workflow of a shop category.
	FindDefaultWorkflow(ctx context.Context, category domain.ShopCategory) (*domain.Workflow, error)

	// SaveWorkflow replaces the graph of workflow.WorkflowID.
	SaveWorkflow(ctx context.Context, workflow domain.Workflow) error

	AppendWorkflowEvent(ctx context.Context, event domain.OrderWorkflowEvent) error
	ListWorkflowEvents(ctx context.Context, orderID string) ([]domain.OrderWorkflowEvent, error)
}
