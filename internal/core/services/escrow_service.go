package services

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/SscSPs/fulfillment_coordinator/internal/apperrors"
	"github.com/SscSPs/fulfillment_coordinator/internal/core/domain"
	portsrepo "github.com/SscSPs/fulfillment_coordinator/internal/core/ports/repositories"
	portssvc "github.com/SscSPs/fulfillment_coordinator/internal/core/ports/services"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

const entityEscrowHold = "escrow_hold"

// escrowService implements portssvc.EscrowSvc on top of the ledger.
type escrowService struct {
	BaseService
	ledger         portssvc.LedgerSvc
	platformUserID string
}

// NewEscrowService creates a new EscrowSvc. An empty platformUserID disables the
// platform share of releases.
func NewEscrowService(base BaseService, ledger portssvc.LedgerSvc, platformUserID string) portssvc.EscrowSvc {
	return &escrowService{BaseService: base, ledger: ledger, platformUserID: platformUserID}
}

var _ portssvc.EscrowSvc = (*escrowService)(nil)

func (s *escrowService) CreateHold(ctx context.Context, uow portsrepo.UnitOfWork, order *domain.Order, amount decimal.Decimal, actorID string) (*domain.EscrowHold, error) {
	existing, err := uow.Escrow().LockHoldByOrderID(ctx, order.OrderID)
	if err == nil {
		return existing, nil
	}
	if !errors.Is(err, apperrors.ErrNotFound) {
		return nil, err
	}

	amount = domain.Money(amount)
	if !amount.IsPositive() {
		return nil, domain.ErrNonPositiveAmount
	}
	shop, err := uow.Shops().FindShopByID(ctx, order.ShopID)
	if err != nil {
		return nil, err
	}

	now := s.Now()
	hold := domain.EscrowHold{
		HoldID:   uuid.NewString(),
		OrderID:  order.OrderID,
		BuyerID:  order.BuyerID,
		SellerID: shop.SellerID,
		Amount:   amount,
		Status:   domain.HoldHeld,
		AuditFields: domain.AuditFields{
			CreatedAt:     now,
			CreatedBy:     actorID,
			LastUpdatedAt: now,
			LastUpdatedBy: actorID,
		},
	}
	inserted, err := uow.Escrow().InsertHoldIfAbsent(ctx, hold)
	if err != nil {
		return nil, err
	}
	if !inserted {
		return uow.Escrow().LockHoldByOrderID(ctx, order.OrderID)
	}

	if _, err := s.ledger.Record(ctx, uow, domain.RecordEntry{
		UserID:            order.BuyerID,
		Type:              domain.EntryHold,
		Direction:         domain.DirectionOut,
		Amount:            amount,
		Reference:         domain.HoldReference(order.OrderID),
		RelatedEntityType: entityEscrowHold,
		RelatedEntityID:   hold.HoldID,
	}); err != nil {
		return nil, err
	}
	if err := s.Audit(ctx, uow, entityEscrowHold, hold.HoldID, "escrow.held", actorID, map[string]string{
		"order_id": order.OrderID,
		"amount":   amount.StringFixed(domain.MoneyPlaces),
	}); err != nil {
		return nil, err
	}

	s.publishEscrow(uow, &hold)
	s.LogInfo(ctx, "Escrow hold created", slog.String("order_id", order.OrderID), slog.String("amount", amount.StringFixed(domain.MoneyPlaces)))
	return &hold, nil
}

func (s *escrowService) Freeze(ctx context.Context, uow portsrepo.UnitOfWork, orderID string, actorID string) (*domain.EscrowHold, error) {
	return s.toggle(ctx, uow, orderID, actorID, domain.HoldHeld, domain.HoldFrozen)
}

func (s *escrowService) Unfreeze(ctx context.Context, uow portsrepo.UnitOfWork, orderID string, actorID string) (*domain.EscrowHold, error) {
	return s.toggle(ctx, uow, orderID, actorID, domain.HoldFrozen, domain.HoldHeld)
}

func (s *escrowService) toggle(ctx context.Context, uow portsrepo.UnitOfWork, orderID, actorID string, from, to domain.HoldStatus) (*domain.EscrowHold, error) {
	hold, err := uow.Escrow().LockHoldByOrderID(ctx, orderID)
	if err != nil {
		return nil, err
	}
	if hold.Status == to {
		return hold, nil
	}
	if hold.Status != from {
		return nil, domain.ErrHoldNotSettleable
	}

	hold.Status = to
	hold.LastUpdatedAt = s.Now()
	hold.LastUpdatedBy = actorID
	if err := uow.Escrow().UpdateHold(ctx, *hold); err != nil {
		return nil, err
	}
	if err := s.Audit(ctx, uow, entityEscrowHold, hold.HoldID, "escrow."+string(to), actorID, map[string]string{"order_id": orderID}); err != nil {
		return nil, err
	}
	s.publishEscrow(uow, hold)
	s.LogInfo(ctx, "Escrow hold status changed", slog.String("order_id", orderID), slog.String("from", string(from)), slog.String("to", string(to)))
	return hold, nil
}

// Release pays rider and platform first, then the seller up to the subtotal.
func (s *escrowService) Release(ctx context.Context, uow portsrepo.UnitOfWork, order *domain.Order, actorID string) (*domain.EscrowHold, error) {
	hold, err := uow.Escrow().LockHoldByOrderID(ctx, order.OrderID)
	if err != nil {
		return nil, err
	}
	if hold.Status == domain.HoldReleased {
		return hold, nil
	}
	if !hold.Status.IsSettleable() {
		return nil, domain.ErrHoldNotSettleable
	}

	breakdown := domain.ReleaseBreakdown{SellerID: hold.SellerID}
	remaining := hold.Amount

	if order.HasRider() {
		rider, err := uow.Riders().FindRiderByID(ctx, *order.RiderID)
		if err != nil {
			return nil, err
		}
		breakdown.RiderID = rider.UserID
		breakdown.RiderAmount = domain.MinMoney(order.RiderShare, remaining)
		remaining = remaining.Sub(breakdown.RiderAmount)
	}
	if s.platformUserID != "" {
		breakdown.PlatformID = s.platformUserID
		breakdown.PlatformAmount = domain.MinMoney(order.PlatformFee, remaining)
		remaining = remaining.Sub(breakdown.PlatformAmount)
	}
	breakdown.SellerAmount = decimal.Max(decimal.Zero, domain.MinMoney(order.Subtotal, remaining))

	if breakdown.SellerAmount.LessThan(order.Subtotal) {
		s.LogWarn(ctx, "Seller release clamped below subtotal",
			slog.String("order_id", order.OrderID),
			slog.String("subtotal", order.Subtotal.StringFixed(domain.MoneyPlaces)),
			slog.String("seller_amount", breakdown.SellerAmount.StringFixed(domain.MoneyPlaces)),
			slog.String("hold_amount", hold.Amount.StringFixed(domain.MoneyPlaces)))
	}

	return s.settle(ctx, uow, hold, breakdown, actorID)
}

func (s *escrowService) ReleaseWithBreakdown(ctx context.Context, uow portsrepo.UnitOfWork, order *domain.Order, breakdown domain.ReleaseBreakdown, actorID string) (*domain.EscrowHold, error) {
	hold, err := uow.Escrow().LockHoldByOrderID(ctx, order.OrderID)
	if err != nil {
		return nil, err
	}
	if hold.Status == domain.HoldReleased {
		return hold, nil
	}
	if !hold.Status.IsSettleable() {
		return nil, domain.ErrHoldNotSettleable
	}
	if breakdown.SellerAmount.IsNegative() || breakdown.RiderAmount.IsNegative() || breakdown.PlatformAmount.IsNegative() {
		return nil, domain.ErrInvalidBreakdown
	}
	if breakdown.Total().GreaterThan(hold.Amount) {
		return nil, domain.ErrInvalidBreakdown
	}
	if breakdown.SellerID == "" {
		breakdown.SellerID = hold.SellerID
	}
	return s.settle(ctx, uow, hold, breakdown, actorID)
}

// settle credits every non-zero part, records the seller payout and marks the
// hold released.
func (s *escrowService) settle(ctx context.Context, uow portsrepo.UnitOfWork, hold *domain.EscrowHold, b domain.ReleaseBreakdown, actorID string) (*domain.EscrowHold, error) {
	parts := []struct {
		party  string
		userID string
		amount decimal.Decimal
	}{
		{domain.PartyRider, b.RiderID, b.RiderAmount},
		{domain.PartyPlatform, b.PlatformID, b.PlatformAmount},
		{domain.PartySeller, b.SellerID, b.SellerAmount},
	}
	for _, p := range parts {
		if p.userID == "" || !p.amount.IsPositive() {
			continue
		}
		if _, err := s.ledger.Record(ctx, uow, domain.RecordEntry{
			UserID:            p.userID,
			Type:              domain.EntryRelease,
			Direction:         domain.DirectionIn,
			Amount:            p.amount,
			Reference:         domain.ReleaseReference(hold.OrderID, p.party),
			RelatedEntityType: entityEscrowHold,
			RelatedEntityID:   hold.HoldID,
			Metadata:          map[string]string{"party": p.party},
		}); err != nil {
			return nil, err
		}
	}

	now := s.Now()
	if b.SellerAmount.IsPositive() {
		if _, err := uow.Escrow().InsertPayoutIfAbsent(ctx, domain.Payout{
			PayoutID:  uuid.NewString(),
			OrderID:   hold.OrderID,
			SellerID:  b.SellerID,
			Amount:    b.SellerAmount,
			Status:    domain.PayoutPending,
			CreatedAt: now,
		}); err != nil {
			return nil, err
		}
	}

	hold.Status = domain.HoldReleased
	hold.ReleasedAt = domain.TimePtr(now)
	hold.SettledBy = actorID
	hold.LastUpdatedAt = now
	hold.LastUpdatedBy = actorID
	if err := uow.Escrow().UpdateHold(ctx, *hold); err != nil {
		return nil, err
	}
	if err := s.Audit(ctx, uow, entityEscrowHold, hold.HoldID, "escrow.released", actorID, map[string]string{
		"order_id":        hold.OrderID,
		"seller_amount":   b.SellerAmount.StringFixed(domain.MoneyPlaces),
		"rider_amount":    b.RiderAmount.StringFixed(domain.MoneyPlaces),
		"platform_amount": b.PlatformAmount.StringFixed(domain.MoneyPlaces),
	}); err != nil {
		return nil, err
	}

	s.publishEscrow(uow, hold)
	s.LogInfo(ctx, "Escrow released",
		slog.String("order_id", hold.OrderID),
		slog.String("seller_amount", b.SellerAmount.StringFixed(domain.MoneyPlaces)),
		slog.String("rider_amount", b.RiderAmount.StringFixed(domain.MoneyPlaces)),
		slog.String("platform_amount", b.PlatformAmount.StringFixed(domain.MoneyPlaces)))
	return hold, nil
}

func (s *escrowService) Refund(ctx context.Context, uow portsrepo.UnitOfWork, orderID string, actorID string) (*domain.EscrowHold, error) {
	hold, err := uow.Escrow().LockHoldByOrderID(ctx, orderID)
	if err != nil {
		return nil, err
	}
	if hold.Status == domain.HoldRefunded {
		return hold, nil
	}
	if !hold.Status.IsSettleable() {
		return nil, domain.ErrHoldNotSettleable
	}

	if _, err := s.ledger.Record(ctx, uow, domain.RecordEntry{
		UserID:            hold.BuyerID,
		Type:              domain.EntryRefund,
		Direction:         domain.DirectionIn,
		Amount:            hold.Amount,
		Reference:         domain.RefundReference(orderID),
		RelatedEntityType: entityEscrowHold,
		RelatedEntityID:   hold.HoldID,
	}); err != nil {
		return nil, err
	}

	now := s.Now()
	hold.Status = domain.HoldRefunded
	hold.RefundedAt = domain.TimePtr(now)
	hold.SettledBy = actorID
	hold.LastUpdatedAt = now
	hold.LastUpdatedBy = actorID
	if err := uow.Escrow().UpdateHold(ctx, *hold); err != nil {
		return nil, err
	}
	if err := s.Audit(ctx, uow, entityEscrowHold, hold.HoldID, "escrow.refunded", actorID, map[string]string{
		"order_id": orderID,
		"amount":   hold.Amount.StringFixed(domain.MoneyPlaces),
	}); err != nil {
		return nil, err
	}

	s.publishEscrow(uow, hold)
	s.LogInfo(ctx, "Escrow refunded", slog.String("order_id", orderID), slog.String("amount", hold.Amount.StringFixed(domain.MoneyPlaces)))
	return hold, nil
}

func (s *escrowService) SetReleaseDeadline(ctx context.Context, uow portsrepo.UnitOfWork, orderID string, at time.Time) (*domain.EscrowHold, bool, error) {
	hold, err := uow.Escrow().LockHoldByOrderID(ctx, orderID)
	if err != nil {
		return nil, false, err
	}
	if hold.ExpiresAt != nil || hold.Status != domain.HoldHeld {
		return hold, false, nil
	}
	hold.ExpiresAt = domain.TimePtr(at)
	hold.LastUpdatedAt = s.Now()
	if err := uow.Escrow().UpdateHold(ctx, *hold); err != nil {
		return nil, false, err
	}
	if err := s.Audit(ctx, uow, entityEscrowHold, hold.HoldID, "escrow.deadline_set", domain.SystemActor.UserID, map[string]string{
		"order_id":   orderID,
		"expires_at": at.Format(time.RFC3339),
	}); err != nil {
		return nil, false, err
	}
	return hold, true, nil
}

func (s *escrowService) publishEscrow(uow portsrepo.UnitOfWork, hold *domain.EscrowHold) {
	s.Publish(uow, domain.Event{
		Type:     domain.EventEscrowChanged,
		OrderID:  hold.OrderID,
		Channels: []domain.Channel{domain.ChannelBuyer, domain.ChannelSeller, domain.ChannelAdmin},
		Payload:  map[string]string{"status": string(hold.Status), "amount": hold.Amount.StringFixed(domain.MoneyPlaces)},
	})
}
