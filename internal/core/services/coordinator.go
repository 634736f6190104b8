package services

import (
	"context"

	"github.com/SscSPs/fulfillment_coordinator/internal/core/domain"
	portsrepo "github.com/SscSPs/fulfillment_coordinator/internal/core/ports/repositories"
	portssvc "github.com/SscSPs/fulfillment_coordinator/internal/core/ports/services"
	"github.com/SscSPs/fulfillment_coordinator/internal/dto"
	"github.com/shopspring/decimal"
)

// coordinator opens exactly one transaction per external operation and
// delegates to the component services inside it.
type coordinator struct {
	tm           portsrepo.TransactionManager
	orders       portssvc.OrderSvc
	workflow     portssvc.WorkflowSvc
	quotes       portssvc.QuoteSvc
	dispatch     portssvc.DispatchSvc
	cancellation portssvc.CancellationSvc
	disputes     portssvc.DisputeSvc
	accounts     portssvc.AccountSvc
}

var _ portssvc.CoordinatorSvc = (*coordinator)(nil)

func within[T any](ctx context.Context, tm portsrepo.TransactionManager, fn func(ctx context.Context, uow portsrepo.UnitOfWork) (T, error)) (T, error) {
	var out T
	err := tm.WithinTx(ctx, func(ctx context.Context, uow portsrepo.UnitOfWork) error {
		var err error
		out, err = fn(ctx, uow)
		return err
	})
	if err != nil {
		var zero T
		return zero, err
	}
	return out, nil
}

func (c *coordinator) PlaceOrder(ctx context.Context, actor domain.Actor, req dto.PlaceOrderRequest) (*domain.Order, error) {
	return within(ctx, c.tm, func(ctx context.Context, uow portsrepo.UnitOfWork) (*domain.Order, error) {
		return c.orders.PlaceOrder(ctx, uow, actor, req)
	})
}

func (c *coordinator) ConfirmPayment(ctx context.Context, orderID string, req dto.PaymentConfirmationRequest) (*domain.Order, error) {
	return within(ctx, c.tm, func(ctx context.Context, uow portsrepo.UnitOfWork) (*domain.Order, error) {
		return c.orders.ConfirmPayment(ctx, uow, orderID, req)
	})
}

func (c *coordinator) AcceptOrder(ctx context.Context, actor domain.Actor, orderID string) (*domain.Order, error) {
	return within(ctx, c.tm, func(ctx context.Context, uow portsrepo.UnitOfWork) (*domain.Order, error) {
		return c.orders.AcceptOrder(ctx, uow, actor, orderID)
	})
}

func (c *coordinator) ConfirmDelivery(ctx context.Context, actor domain.Actor, orderID string) (*domain.Order, error) {
	return within(ctx, c.tm, func(ctx context.Context, uow portsrepo.UnitOfWork) (*domain.Order, error) {
		return c.orders.ConfirmDelivery(ctx, uow, actor, orderID)
	})
}

func (c *coordinator) SetAdminPause(ctx context.Context, actor domain.Actor, orderID string, paused bool, reason string) (*domain.Order, error) {
	return within(ctx, c.tm, func(ctx context.Context, uow portsrepo.UnitOfWork) (*domain.Order, error) {
		return c.orders.SetAdminPause(ctx, uow, actor, orderID, paused, reason)
	})
}

func (c *coordinator) GetOrder(ctx context.Context, actor domain.Actor, orderID string) (*domain.Order, error) {
	return within(ctx, c.tm, func(ctx context.Context, uow portsrepo.UnitOfWork) (*domain.Order, error) {
		return c.orders.GetOrder(ctx, uow, actor, orderID)
	})
}

func (c *coordinator) GetTimeline(ctx context.Context, actor domain.Actor, orderID string) (*dto.TimelineResponse, error) {
	return within(ctx, c.tm, func(ctx context.Context, uow portsrepo.UnitOfWork) (*dto.TimelineResponse, error) {
		return c.orders.GetTimeline(ctx, uow, actor, orderID)
	})
}

func (c *coordinator) StartWorkflow(ctx context.Context, actor domain.Actor, orderID string, eta domain.ETA) (*domain.Order, error) {
	return within(ctx, c.tm, func(ctx context.Context, uow portsrepo.UnitOfWork) (*domain.Order, error) {
		return c.workflow.Start(ctx, uow, actor, orderID, eta)
	})
}

func (c *coordinator) AdvanceWorkflow(ctx context.Context, actor domain.Actor, orderID string, toStepKey string, eta domain.ETA) (*domain.Order, error) {
	return within(ctx, c.tm, func(ctx context.Context, uow portsrepo.UnitOfWork) (*domain.Order, error) {
		return c.workflow.Advance(ctx, uow, actor, orderID, toStepKey, eta)
	})
}

func (c *coordinator) NextSteps(ctx context.Context, actor domain.Actor, orderID string) ([]domain.WorkflowStep, error) {
	return within(ctx, c.tm, func(ctx context.Context, uow portsrepo.UnitOfWork) ([]domain.WorkflowStep, error) {
		return c.workflow.NextSteps(ctx, uow, actor, orderID)
	})
}

func (c *coordinator) SendQuote(ctx context.Context, actor domain.Actor, orderID string, amount decimal.Decimal, note string) (*domain.Order, error) {
	return within(ctx, c.tm, func(ctx context.Context, uow portsrepo.UnitOfWork) (*domain.Order, error) {
		return c.quotes.SendQuote(ctx, uow, actor, orderID, amount, note)
	})
}

func (c *coordinator) ApproveQuote(ctx context.Context, actor domain.Actor, orderID string) (*domain.Order, error) {
	return within(ctx, c.tm, func(ctx context.Context, uow portsrepo.UnitOfWork) (*domain.Order, error) {
		return c.quotes.ApproveQuote(ctx, uow, actor, orderID)
	})
}

func (c *coordinator) RejectQuote(ctx context.Context, actor domain.Actor, orderID string) (*domain.Order, error) {
	return within(ctx, c.tm, func(ctx context.Context, uow portsrepo.UnitOfWork) (*domain.Order, error) {
		return c.quotes.RejectQuote(ctx, uow, actor, orderID)
	})
}

func (c *coordinator) DispatchOrder(ctx context.Context, actor domain.Actor, orderID string, purpose domain.DispatchPurpose) (*domain.DispatchJob, error) {
	return within(ctx, c.tm, func(ctx context.Context, uow portsrepo.UnitOfWork) (*domain.DispatchJob, error) {
		return c.dispatch.DispatchOrder(ctx, uow, actor, orderID, purpose)
	})
}

func (c *coordinator) AcceptOffer(ctx context.Context, actor domain.Actor, offerID string) (*domain.DispatchJob, error) {
	return within(ctx, c.tm, func(ctx context.Context, uow portsrepo.UnitOfWork) (*domain.DispatchJob, error) {
		return c.dispatch.AcceptOffer(ctx, uow, actor, offerID)
	})
}

func (c *coordinator) DeclineOffer(ctx context.Context, actor domain.Actor, offerID string) (*domain.DispatchOffer, error) {
	return within(ctx, c.tm, func(ctx context.Context, uow portsrepo.UnitOfWork) (*domain.DispatchOffer, error) {
		return c.dispatch.DeclineOffer(ctx, uow, actor, offerID)
	})
}

func (c *coordinator) UploadProof(ctx context.Context, actor domain.Actor, orderID string, kind domain.ProofKind, req dto.ProofRequest) (*domain.DeliveryProof, error) {
	return within(ctx, c.tm, func(ctx context.Context, uow portsrepo.UnitOfWork) (*domain.DeliveryProof, error) {
		return c.dispatch.UploadProof(ctx, uow, actor, orderID, kind, req)
	})
}

func (c *coordinator) MarkPickedUp(ctx context.Context, actor domain.Actor, orderID string) (*domain.Order, error) {
	return within(ctx, c.tm, func(ctx context.Context, uow portsrepo.UnitOfWork) (*domain.Order, error) {
		return c.dispatch.MarkPickedUp(ctx, uow, actor, orderID)
	})
}

func (c *coordinator) MarkDelivered(ctx context.Context, actor domain.Actor, orderID string, otp string) (*domain.Order, error) {
	return within(ctx, c.tm, func(ctx context.Context, uow portsrepo.UnitOfWork) (*domain.Order, error) {
		return c.dispatch.MarkDelivered(ctx, uow, actor, orderID, otp)
	})
}

func (c *coordinator) Cancel(ctx context.Context, actor domain.Actor, orderID string, reason string) (*domain.Order, error) {
	return within(ctx, c.tm, func(ctx context.Context, uow portsrepo.UnitOfWork) (*domain.Order, error) {
		return c.cancellation.Cancel(ctx, uow, actor, orderID, reason)
	})
}

func (c *coordinator) RaiseDispute(ctx context.Context, actor domain.Actor, orderID string, reason string) (*domain.Dispute, error) {
	return within(ctx, c.tm, func(ctx context.Context, uow portsrepo.UnitOfWork) (*domain.Dispute, error) {
		return c.disputes.RaiseDispute(ctx, uow, actor, orderID, reason)
	})
}

func (c *coordinator) ResolveDispute(ctx context.Context, actor domain.Actor, disputeID string, req dto.ResolveDisputeRequest) (*domain.Dispute, error) {
	return within(ctx, c.tm, func(ctx context.Context, uow portsrepo.UnitOfWork) (*domain.Dispute, error) {
		return c.disputes.ResolveDispute(ctx, uow, actor, disputeID, req)
	})
}

func (c *coordinator) GetAccount(ctx context.Context, userID string) (*domain.Account, error) {
	return within(ctx, c.tm, func(ctx context.Context, uow portsrepo.UnitOfWork) (*domain.Account, error) {
		return c.accounts.GetAccount(ctx, uow, userID)
	})
}

func (c *coordinator) ListEntries(ctx context.Context, userID string, req dto.ListEntriesParams) (*dto.ListEntriesResponse, error) {
	return within(ctx, c.tm, func(ctx context.Context, uow portsrepo.UnitOfWork) (*dto.ListEntriesResponse, error) {
		return c.accounts.ListEntries(ctx, uow, userID, req)
	})
}

func (c *coordinator) TopUp(ctx context.Context, userID string, req dto.TopUpRequest) (*domain.LedgerEntry, error) {
	return within(ctx, c.tm, func(ctx context.Context, uow portsrepo.UnitOfWork) (*domain.LedgerEntry, error) {
		return c.accounts.TopUp(ctx, uow, userID, req)
	})
}
