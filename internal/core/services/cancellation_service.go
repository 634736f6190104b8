package services

import (
	"context"
	"log/slog"

	"github.com/SscSPs/fulfillment_coordinator/internal/apperrors"
	"github.com/SscSPs/fulfillment_coordinator/internal/core/domain"
	portsrepo "github.com/SscSPs/fulfillment_coordinator/internal/core/ports/repositories"
	portssvc "github.com/SscSPs/fulfillment_coordinator/internal/core/ports/services"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

type cancellationService struct {
	BaseService
	escrow   portssvc.EscrowSvc
	ledger   portssvc.LedgerSvc
	dispatch portssvc.DispatchSvc
	settings Settings
}

// NewCancellationService creates a new CancellationSvc.
func NewCancellationService(base BaseService, escrow portssvc.EscrowSvc, ledger portssvc.LedgerSvc, dispatch portssvc.DispatchSvc, settings Settings) portssvc.CancellationSvc {
	return &cancellationService{BaseService: base, escrow: escrow, ledger: ledger, dispatch: dispatch, settings: settings}
}

var _ portssvc.CancellationSvc = (*cancellationService)(nil)

func (s *cancellationService) Cancel(ctx context.Context, uow portsrepo.UnitOfWork, actor domain.Actor, orderID string, reason string) (*domain.Order, error) {
	order, err := uow.Orders().LockOrder(ctx, orderID)
	if err != nil {
		return nil, err
	}
	if order.Status == domain.OrderCancelled {
		// Replays are answered only to parties of the order.
		switch actor.Role {
		case domain.RoleBuyer, domain.RoleSeller, domain.RoleRider:
		default:
			return nil, domain.ErrRoleNotAllowed
		}
		if err := canView(ctx, uow, actor, order); err != nil {
			return nil, err
		}
		return order, nil
	}

	switch actor.Role {
	case domain.RoleBuyer, domain.RoleSeller:
		return s.cancelByParty(ctx, uow, actor, order, reason)
	case domain.RoleRider:
		return s.cancelByRider(ctx, uow, actor, order, reason)
	default:
		return nil, domain.ErrRoleNotAllowed
	}
}

func (s *cancellationService) cancelByParty(ctx context.Context, uow portsrepo.UnitOfWork, actor domain.Actor, order *domain.Order, reason string) (*domain.Order, error) {
	var shop *domain.Shop
	var err error
	if actor.Role == domain.RoleBuyer {
		if err := requireBuyer(actor, order); err != nil {
			return nil, err
		}
		shop, err = uow.Shops().FindShopByID(ctx, order.ShopID)
	} else {
		shop, err = requireSeller(ctx, uow, actor, order)
	}
	if err != nil {
		return nil, err
	}

	if order.WorkflowID != nil {
		wf, err := uow.Workflows().FindWorkflowByID(ctx, *order.WorkflowID)
		if err != nil {
			return nil, err
		}
		if wf.HasPassedDispatchTrigger(order.CurrentStepID) {
			return nil, domain.ErrPastDispatchTrigger
		}
	}
	switch order.Status {
	case domain.OrderPlaced, domain.OrderPaid, domain.OrderAcceptedBySeller:
	default:
		return nil, domain.ErrInvalidTransition
	}

	if err := s.dispatch.CancelOrderJobs(ctx, uow, order.OrderID); err != nil {
		return nil, err
	}

	refunded := false
	if _, err := s.escrow.Refund(ctx, uow, order.OrderID, actor.UserID); err == nil {
		refunded = true
	} else if !isNotFound(err) {
		return nil, err
	}
	order.PaymentStatus = domain.PaymentRefunded

	restored, err := uow.Inventory().RestoreOrderStock(ctx, order.OrderID)
	if err != nil {
		return nil, err
	}

	if err := s.TransitionOrder(ctx, uow, order, domain.OrderCancelled, actor.UserID, reason); err != nil {
		return nil, err
	}
	if err := uow.Orders().UpdateOrder(ctx, *order); err != nil {
		return nil, err
	}
	if err := uow.Cancellations().InsertCancellation(ctx, domain.Cancellation{
		CancellationID: uuid.NewString(),
		OrderID:        order.OrderID,
		ActorID:        actor.UserID,
		ActorRole:      actor.Role,
		Reason:         reason,
		Refunded:       refunded,
		CreatedAt:      s.Now(),
	}); err != nil {
		return nil, err
	}

	counterpart := shop.SellerID
	if actor.Role == domain.RoleSeller {
		counterpart = order.BuyerID
	}
	s.Notify(uow, domain.Notification{UserID: counterpart, Title: "Order cancelled", Body: reason, OrderID: order.OrderID})

	s.LogInfo(ctx, "Order cancelled",
		slog.String("order_id", order.OrderID),
		slog.String("role", string(actor.Role)),
		slog.Bool("refunded", refunded),
		slog.Int("restocked_lines", restored))
	return order, nil
}

// cancelByRider hands the job back to broadcasting and charges the rider a
// penalty. A penalty the rider cannot pay is recorded as zero.
func (s *cancellationService) cancelByRider(ctx context.Context, uow portsrepo.UnitOfWork, actor domain.Actor, order *domain.Order, reason string) (*domain.Order, error) {
	rider, err := requireRider(ctx, uow, actor)
	if err != nil {
		return nil, err
	}
	if order.Status != domain.OrderAssignedToRider {
		return nil, domain.ErrInvalidTransition
	}
	peek, err := uow.Dispatch().FindJob(ctx, order.OrderID, domain.PurposeDelivery)
	if err != nil {
		return nil, err
	}
	job, err := uow.Dispatch().LockJob(ctx, peek.JobID)
	if err != nil {
		return nil, err
	}
	if !job.IsAssignedTo(rider.RiderID) {
		return nil, domain.ErrNotAssigned
	}
	if order.IsPaused() {
		return nil, domain.ErrOrderPaused
	}

	now := s.Now()
	windowEnd := now.Add(s.settings.PrivatePoolWindow)
	job.Status = domain.JobBroadcasting
	job.AssignedRiderID = nil
	job.AssignedAt = nil
	job.PrivatePoolUntil = windowEnd
	job.FallbackBroadcastAt = windowEnd
	job.UpdatedAt = now
	if err := uow.Dispatch().UpdateJob(ctx, *job); err != nil {
		return nil, err
	}

	offers, err := uow.Dispatch().ListOffersByJob(ctx, job.JobID)
	if err != nil {
		return nil, err
	}
	reopened := 0
	for _, offer := range offers {
		switch {
		case offer.RiderID == rider.RiderID:
			if offer.Status == domain.OfferExpired {
				continue
			}
			offer.Status = domain.OfferExpired
			offer.RespondedAt = domain.TimePtr(now)
		case offer.Status == domain.OfferExpired:
			other, err := uow.Riders().FindRiderByID(ctx, offer.RiderID)
			if err != nil {
				return nil, err
			}
			if !other.IsActive || other.Status != domain.RiderAvailable {
				continue
			}
			offer.Status = domain.OfferSent
			offer.SentAt = now
			offer.RespondedAt = nil
			reopened++
		default:
			continue
		}
		if err := uow.Dispatch().UpdateOffer(ctx, offer); err != nil {
			return nil, err
		}
	}

	order.RiderID = nil
	if err := s.TransitionOrder(ctx, uow, order, domain.OrderDispatching, actor.UserID, reason); err != nil {
		return nil, err
	}
	if err := uow.Orders().UpdateOrder(ctx, *order); err != nil {
		return nil, err
	}
	if err := uow.Riders().SetRiderStatus(ctx, rider.RiderID, domain.RiderAvailable); err != nil {
		return nil, err
	}

	count, err := uow.Cancellations().CountRiderCancellations(ctx, order.OrderID, rider.RiderID)
	if err != nil {
		return nil, err
	}
	record := domain.RiderCancellation{
		RiderCancellationID: uuid.NewString(),
		OrderID:             order.OrderID,
		JobID:               job.JobID,
		RiderID:             rider.RiderID,
		Reason:              reason,
		PenaltyAmount:       decimal.Zero,
		CreatedAt:           now,
	}
	entry, err := chargePenalty(ctx, &s.BaseService, s.ledger, uow, rider.UserID, s.settings.RiderCancelPenalty,
		domain.RiderPenaltyReference(order.OrderID, rider.RiderID, count+1), "rider_cancellation", order.OrderID)
	if err != nil {
		return nil, err
	}
	if entry != nil {
		record.PenaltyAmount = entry.Amount
		record.PenaltyEntryID = domain.StringPtr(entry.EntryID)
	}
	if err := uow.Cancellations().InsertRiderCancellation(ctx, record); err != nil {
		return nil, err
	}

	s.ScheduleAfterCommit(uow, domain.ScheduledTask{Kind: domain.TaskBroadcastOffers, JobID: job.JobID, OrderID: order.OrderID, Mode: domain.BroadcastPrivate, RunAt: now})
	s.ScheduleAfterCommit(uow, domain.ScheduledTask{Kind: domain.TaskBroadcastOffers, JobID: job.JobID, OrderID: order.OrderID, Mode: domain.BroadcastFallback, RunAt: windowEnd})
	s.Publish(uow, domain.Event{
		Type:     domain.EventShipmentUpdated,
		OrderID:  order.OrderID,
		Channels: []domain.Channel{domain.ChannelBuyer, domain.ChannelSeller, domain.ChannelAdmin},
		Payload:  map[string]string{"stage": "rider_cancelled", "job_id": job.JobID},
	})

	s.LogInfo(ctx, "Rider cancelled assignment",
		slog.String("order_id", order.OrderID),
		slog.String("rider_id", rider.RiderID),
		slog.Int("reopened_offers", reopened),
		slog.String("penalty", record.PenaltyAmount.StringFixed(domain.MoneyPlaces)))
	return order, nil
}

// chargePenalty debits a penalty from userID. Domain failures such as
// insufficient funds or a frozen account are logged and yield a nil entry.
func chargePenalty(ctx context.Context, base *BaseService, ledger portssvc.LedgerSvc, uow portsrepo.UnitOfWork, userID string, amount decimal.Decimal, reference, relatedType, relatedID string) (*domain.LedgerEntry, error) {
	if !amount.IsPositive() || userID == "" {
		return nil, nil
	}
	entry, err := ledger.Record(ctx, uow, domain.RecordEntry{
		UserID:            userID,
		Type:              domain.EntryFee,
		Direction:         domain.DirectionOut,
		Amount:            amount,
		Reference:         reference,
		RelatedEntityType: relatedType,
		RelatedEntityID:   relatedID,
	})
	if err == nil {
		return entry, nil
	}
	if !apperrors.IsDomain(err) {
		return nil, err
	}
	base.LogWarn(ctx, "Penalty debit failed, recording zero penalty",
		slog.String("user_id", userID),
		slog.String("reference", reference),
		slog.String("error", err.Error()))
	return nil, nil
}
