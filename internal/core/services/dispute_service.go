package services

import (
	"context"
	"log/slog"

	"github.com/SscSPs/fulfillment_coordinator/internal/core/domain"
	portsrepo "github.com/SscSPs/fulfillment_coordinator/internal/core/ports/repositories"
	portssvc "github.com/SscSPs/fulfillment_coordinator/internal/core/ports/services"
	"github.com/SscSPs/fulfillment_coordinator/internal/dto"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

const entityDispute = "dispute"

type disputeService struct {
	BaseService
	escrow   portssvc.EscrowSvc
	ledger   portssvc.LedgerSvc
	settings Settings
}

// NewDisputeService creates a new DisputeSvc.
func NewDisputeService(base BaseService, escrow portssvc.EscrowSvc, ledger portssvc.LedgerSvc, settings Settings) portssvc.DisputeSvc {
	return &disputeService{BaseService: base, escrow: escrow, ledger: ledger, settings: settings}
}

var _ portssvc.DisputeSvc = (*disputeService)(nil)

// RaiseDispute opens the single dispute of a delivered order and freezes its
// escrow until an admin resolves it.
func (s *disputeService) RaiseDispute(ctx context.Context, uow portsrepo.UnitOfWork, actor domain.Actor, orderID string, reason string) (*domain.Dispute, error) {
	order, err := uow.Orders().LockOrder(ctx, orderID)
	if err != nil {
		return nil, err
	}
	if err := requireBuyer(actor, order); err != nil {
		return nil, err
	}
	if _, err := uow.Disputes().FindDisputeByOrderID(ctx, orderID); err == nil {
		return nil, domain.ErrDisputeAlreadyRaised
	} else if !isNotFound(err) {
		return nil, err
	}
	if order.Status == domain.OrderDisputed {
		return nil, domain.ErrDisputeAlreadyRaised
	}
	if order.Status != domain.OrderDelivered {
		return nil, domain.ErrInvalidTransition
	}

	hold, err := uow.Escrow().LockHoldByOrderID(ctx, orderID)
	if err != nil {
		return nil, err
	}
	now := s.Now()
	if hold.ExpiresAt != nil && !now.Before(*hold.ExpiresAt) {
		return nil, domain.ErrDisputeWindowClosed
	}
	if _, err := s.escrow.Freeze(ctx, uow, orderID, actor.UserID); err != nil {
		return nil, err
	}

	if err := s.TransitionOrder(ctx, uow, order, domain.OrderDisputed, actor.UserID, reason); err != nil {
		return nil, err
	}
	if err := uow.Orders().UpdateOrder(ctx, *order); err != nil {
		return nil, err
	}
	dispute := domain.Dispute{
		DisputeID: uuid.NewString(),
		OrderID:   orderID,
		RaisedBy:  actor.UserID,
		Reason:    reason,
		Status:    domain.DisputeOpen,
		CreatedAt: now,
	}
	if err := uow.Disputes().InsertDispute(ctx, dispute); err != nil {
		return nil, err
	}

	s.publishDispute(uow, &dispute)
	if shop, err := uow.Shops().FindShopByID(ctx, order.ShopID); err == nil {
		s.Notify(uow, domain.Notification{UserID: shop.SellerID, Title: "Dispute raised", Body: reason, OrderID: orderID})
	}
	s.LogInfo(ctx, "Dispute raised", slog.String("order_id", orderID), slog.String("dispute_id", dispute.DisputeID))
	return &dispute, nil
}

func (s *disputeService) ResolveDispute(ctx context.Context, uow portsrepo.UnitOfWork, actor domain.Actor, disputeID string, req dto.ResolveDisputeRequest) (*domain.Dispute, error) {
	if err := requireAdmin(actor); err != nil {
		return nil, err
	}
	if !req.Resolution.IsValid() {
		return nil, domain.ErrUnknownResolution
	}
	// Unlocked read for the order id only: orders lock before their disputes,
	// and a dispute never moves to another order.
	peek, err := uow.Disputes().FindDisputeByID(ctx, disputeID)
	if err != nil {
		return nil, err
	}
	order, err := uow.Orders().LockOrder(ctx, peek.OrderID)
	if err != nil {
		return nil, err
	}
	dispute, err := uow.Disputes().LockDispute(ctx, disputeID)
	if err != nil {
		return nil, err
	}
	if dispute.Status == domain.DisputeResolved {
		return dispute, nil
	}
	if order.Status != domain.OrderDisputed {
		return nil, domain.ErrInvalidTransition
	}

	switch {
	case req.Resolution == domain.ResolutionPaySeller:
		if _, err := s.escrow.Release(ctx, uow, order, actor.UserID); err != nil {
			return nil, err
		}
		if err := s.TransitionOrder(ctx, uow, order, domain.OrderConfirmed, actor.UserID, "dispute resolved: pay seller"); err != nil {
			return nil, err
		}
	case req.Resolution.RefundsBuyer():
		if err := s.refundBuyer(ctx, uow, actor, order, req.Resolution); err != nil {
			return nil, err
		}
	case req.Resolution == domain.ResolutionPartialRefund:
		if req.RefundAmount == nil {
			return nil, domain.ErrInvalidRefund
		}
		if err := s.partialRefund(ctx, uow, actor, order, domain.Money(*req.RefundAmount)); err != nil {
			return nil, err
		}
		dispute.RefundAmount = req.RefundAmount
	default:
		return nil, domain.ErrUnknownResolution
	}
	if err := uow.Orders().UpdateOrder(ctx, *order); err != nil {
		return nil, err
	}

	now := s.Now()
	resolution := req.Resolution
	dispute.Status = domain.DisputeResolved
	dispute.Resolution = &resolution
	dispute.ResolvedBy = domain.StringPtr(actor.UserID)
	dispute.ResolvedAt = domain.TimePtr(now)
	dispute.ResolutionNote = req.Note
	if err := uow.Disputes().UpdateDispute(ctx, *dispute); err != nil {
		return nil, err
	}
	if err := s.Audit(ctx, uow, entityDispute, dispute.DisputeID, "dispute.resolved", actor.UserID, map[string]string{
		"order_id":   order.OrderID,
		"resolution": string(resolution),
	}); err != nil {
		return nil, err
	}

	s.publishDispute(uow, dispute)
	s.Notify(uow, domain.Notification{UserID: order.BuyerID, Title: "Dispute resolved", Body: string(resolution), OrderID: order.OrderID})
	s.LogInfo(ctx, "Dispute resolved",
		slog.String("order_id", order.OrderID),
		slog.String("dispute_id", dispute.DisputeID),
		slog.String("resolution", string(resolution)))
	return dispute, nil
}

func (s *disputeService) refundBuyer(ctx context.Context, uow portsrepo.UnitOfWork, actor domain.Actor, order *domain.Order, resolution domain.DisputeResolution) error {
	hold, err := s.escrow.Refund(ctx, uow, order.OrderID, actor.UserID)
	if err != nil {
		return err
	}
	order.PaymentStatus = domain.PaymentRefunded
	if _, err := uow.Inventory().RestoreOrderStock(ctx, order.OrderID); err != nil {
		return err
	}
	if err := s.TransitionOrder(ctx, uow, order, domain.OrderCancelled, actor.UserID, "dispute resolved: "+string(resolution)); err != nil {
		return err
	}

	var party, userID string
	switch resolution {
	case domain.ResolutionRefundBuyerPenalizeSell:
		party, userID = domain.PartySeller, hold.SellerID
	case domain.ResolutionRefundBuyerPenalizeRide:
		if !order.HasRider() {
			s.LogWarn(ctx, "Rider penalty requested without an assigned rider", slog.String("order_id", order.OrderID))
			return nil
		}
		rider, err := uow.Riders().FindRiderByID(ctx, *order.RiderID)
		if err != nil {
			return err
		}
		party, userID = domain.PartyRider, rider.UserID
	default:
		return nil
	}
	_, err = chargePenalty(ctx, &s.BaseService, s.ledger, uow, userID, s.settings.DisputePenalty,
		domain.DisputePenaltyReference(order.OrderID, party), entityDispute, order.OrderID)
	return err
}

// partialRefund credits the buyer directly and releases the rest of the hold
// with rider and platform paid first.
func (s *disputeService) partialRefund(ctx context.Context, uow portsrepo.UnitOfWork, actor domain.Actor, order *domain.Order, amount decimal.Decimal) error {
	hold, err := uow.Escrow().LockHoldByOrderID(ctx, order.OrderID)
	if err != nil {
		return err
	}
	if !hold.Status.IsSettleable() {
		return domain.ErrHoldNotSettleable
	}
	if !amount.IsPositive() || amount.GreaterThan(hold.Amount) {
		return domain.ErrInvalidRefund
	}

	if _, err := s.ledger.Record(ctx, uow, domain.RecordEntry{
		UserID:            order.BuyerID,
		Type:              domain.EntryRefund,
		Direction:         domain.DirectionIn,
		Amount:            amount,
		Reference:         domain.PartialRefundReference(order.OrderID),
		RelatedEntityType: entityEscrowHold,
		RelatedEntityID:   hold.HoldID,
	}); err != nil {
		return err
	}

	remaining := hold.Amount.Sub(amount)
	breakdown := domain.ReleaseBreakdown{SellerID: hold.SellerID}
	if order.HasRider() {
		rider, err := uow.Riders().FindRiderByID(ctx, *order.RiderID)
		if err != nil {
			return err
		}
		breakdown.RiderID = rider.UserID
		breakdown.RiderAmount = domain.MinMoney(order.RiderShare, remaining)
		remaining = remaining.Sub(breakdown.RiderAmount)
	}
	if s.settings.PlatformUserID != "" {
		breakdown.PlatformID = s.settings.PlatformUserID
		breakdown.PlatformAmount = domain.MinMoney(order.PlatformFee, remaining)
		remaining = remaining.Sub(breakdown.PlatformAmount)
	}
	breakdown.SellerAmount = remaining

	if _, err := s.escrow.ReleaseWithBreakdown(ctx, uow, order, breakdown, actor.UserID); err != nil {
		return err
	}
	return s.TransitionOrder(ctx, uow, order, domain.OrderConfirmed, actor.UserID, "dispute resolved: partial refund")
}

func (s *disputeService) publishDispute(uow portsrepo.UnitOfWork, dispute *domain.Dispute) {
	payload := map[string]string{"dispute_id": dispute.DisputeID, "status": string(dispute.Status)}
	if dispute.Resolution != nil {
		payload["resolution"] = string(*dispute.Resolution)
	}
	s.Publish(uow, domain.Event{
		Type:     domain.EventDisputeChanged,
		OrderID:  dispute.OrderID,
		Channels: []domain.Channel{domain.ChannelBuyer, domain.ChannelSeller, domain.ChannelAdmin},
		Payload:  payload,
	})
}
