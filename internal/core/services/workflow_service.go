package services

import (
	"context"
	"log/slog"

	"github.com/SscSPs/fulfillment_coordinator/internal/core/domain"
	portsrepo "github.com/SscSPs/fulfillment_coordinator/internal/core/ports/repositories"
	portssvc "github.com/SscSPs/fulfillment_coordinator/internal/core/ports/services"
	"github.com/google/uuid"
)

// workflowService advances orders through their shop category's step graph and
// hands off to dispatch at the trigger step.
type workflowService struct {
	BaseService
	dispatch portssvc.DispatchSvc
}

// NewWorkflowService creates a new WorkflowSvc.
func NewWorkflowService(base BaseService, dispatch portssvc.DispatchSvc) portssvc.WorkflowSvc {
	return &workflowService{BaseService: base, dispatch: dispatch}
}

var _ portssvc.WorkflowSvc = (*workflowService)(nil)

func (s *workflowService) Start(ctx context.Context, uow portsrepo.UnitOfWork, actor domain.Actor, orderID string, eta domain.ETA) (*domain.Order, error) {
	order, err := uow.Orders().LockOrder(ctx, orderID)
	if err != nil {
		return nil, err
	}
	shop, err := requireSeller(ctx, uow, actor, order)
	if err != nil {
		return nil, err
	}
	if order.IsPaused() {
		return nil, domain.ErrOrderPaused
	}
	if order.Status.IsTerminal() {
		return nil, domain.ErrInvalidTransition
	}
	if err := eta.Validate(); err != nil {
		return nil, err
	}
	if order.CurrentStepID != nil {
		return order, nil
	}

	var wf *domain.Workflow
	switch {
	case order.WorkflowID != nil:
		wf, err = uow.Workflows().FindWorkflowByID(ctx, *order.WorkflowID)
	case shop.DefaultWorkflowID != nil:
		wf, err = uow.Workflows().FindWorkflowByID(ctx, *shop.DefaultWorkflowID)
	default:
		wf, err = uow.Workflows().FindDefaultWorkflow(ctx, shop.Category)
	}
	if err != nil {
		return nil, err
	}
	first, ok := wf.FirstStep()
	if !ok {
		return nil, domain.ErrWorkflowEmpty
	}
	return s.enterStep(ctx, uow, actor, order, shop, wf, first, eta)
}

func (s *workflowService) Advance(ctx context.Context, uow portsrepo.UnitOfWork, actor domain.Actor, orderID string, toStepKey string, eta domain.ETA) (*domain.Order, error) {
	order, err := uow.Orders().LockOrder(ctx, orderID)
	if err != nil {
		return nil, err
	}
	shop, err := requireSeller(ctx, uow, actor, order)
	if err != nil {
		return nil, err
	}
	if order.IsPaused() {
		return nil, domain.ErrOrderPaused
	}
	if order.Status.IsTerminal() {
		return nil, domain.ErrInvalidTransition
	}
	if err := eta.Validate(); err != nil {
		return nil, err
	}
	if order.WorkflowID == nil || order.CurrentStepID == nil {
		return nil, domain.ErrWorkflowNotStarted
	}

	wf, err := uow.Workflows().FindWorkflowByID(ctx, *order.WorkflowID)
	if err != nil {
		return nil, err
	}
	to, ok := wf.StepByKey(toStepKey)
	if !ok {
		return nil, domain.ErrUnknownStep
	}
	if to.StepID == *order.CurrentStepID {
		return order, nil
	}
	if !wf.Allows(*order.CurrentStepID, to.StepID) {
		return nil, domain.ErrStepNotAllowed
	}
	if shop.Category == domain.CategoryRepair && to.Key == domain.StepKeyRepairing && order.QuoteStatus != domain.QuoteApproved {
		return nil, domain.ErrQuoteNotApproved
	}
	return s.enterStep(ctx, uow, actor, order, shop, wf, to, eta)
}

func (s *workflowService) NextSteps(ctx context.Context, uow portsrepo.UnitOfWork, actor domain.Actor, orderID string) ([]domain.WorkflowStep, error) {
	order, err := uow.Orders().FindOrderByID(ctx, orderID)
	if err != nil {
		return nil, err
	}
	if _, err := requireSeller(ctx, uow, actor, order); err != nil {
		return nil, err
	}
	if order.WorkflowID == nil || order.CurrentStepID == nil {
		return []domain.WorkflowStep{}, nil
	}
	wf, err := uow.Workflows().FindWorkflowByID(ctx, *order.WorkflowID)
	if err != nil {
		return nil, err
	}
	return wf.NextSteps(*order.CurrentStepID), nil
}

// stepState derives the workflow state an order has on step.
func stepState(order *domain.Order, shop *domain.Shop, step domain.WorkflowStep) domain.WorkflowState {
	switch {
	case step.IsTerminal:
		return domain.WorkflowCompleted
	case shop.Category == domain.CategoryRepair && step.Key == domain.StepKeyQuoteApproval && order.QuoteStatus != domain.QuoteApproved:
		return domain.WorkflowBlocked
	case step.IsDispatchTrigger:
		return domain.WorkflowReady
	default:
		return domain.WorkflowInProgress
	}
}

func (s *workflowService) enterStep(ctx context.Context, uow portsrepo.UnitOfWork, actor domain.Actor, order *domain.Order, shop *domain.Shop, wf *domain.Workflow, step domain.WorkflowStep, eta domain.ETA) (*domain.Order, error) {
	now := s.Now()
	from := order.CurrentStepID

	order.WorkflowID = domain.StringPtr(wf.WorkflowID)
	order.CurrentStepID = domain.StringPtr(step.StepID)
	order.WorkflowState = stepState(order, shop, step)
	if eta.MinMinutes != nil {
		order.EtaMinMinutes = eta.MinMinutes
	}
	if eta.MaxMinutes != nil {
		order.EtaMaxMinutes = eta.MaxMinutes
	}
	order.LastUpdatedAt = now
	order.LastUpdatedBy = actor.UserID
	if err := uow.Orders().UpdateOrder(ctx, *order); err != nil {
		return nil, err
	}

	if err := uow.Workflows().AppendWorkflowEvent(ctx, domain.OrderWorkflowEvent{
		EventID:    uuid.NewString(),
		OrderID:    order.OrderID,
		WorkflowID: wf.WorkflowID,
		FromStepID: from,
		ToStepID:   step.StepID,
		ActorID:    actor.UserID,
		CreatedAt:  now,
	}); err != nil {
		return nil, err
	}

	s.Publish(uow, domain.Event{
		Type:     domain.EventWorkflowAdvanced,
		OrderID:  order.OrderID,
		Channels: []domain.Channel{domain.ChannelBuyer, domain.ChannelSeller},
		Payload:  map[string]string{"step": step.Key, "state": string(order.WorkflowState)},
	})
	s.LogInfo(ctx, "Workflow step entered",
		slog.String("order_id", order.OrderID),
		slog.String("step", step.Key),
		slog.String("state", string(order.WorkflowState)))

	if !step.IsDispatchTrigger {
		return order, nil
	}
	if _, err := s.dispatch.DispatchOrder(ctx, uow, actor, order.OrderID, domain.PurposeDelivery); err != nil {
		return nil, err
	}
	return uow.Orders().FindOrderByID(ctx, order.OrderID)
}
