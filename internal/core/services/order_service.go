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

// orderService implements the order lifecycle around payment, acceptance,
// confirmation and admin control.
type orderService struct {
	BaseService
	ledger   portssvc.LedgerSvc
	escrow   portssvc.EscrowSvc
	dispatch portssvc.DispatchSvc
}

// NewOrderService creates a new OrderSvc.
func NewOrderService(base BaseService, ledger portssvc.LedgerSvc, escrow portssvc.EscrowSvc, dispatch portssvc.DispatchSvc) portssvc.OrderSvc {
	return &orderService{BaseService: base, ledger: ledger, escrow: escrow, dispatch: dispatch}
}

var _ portssvc.OrderSvc = (*orderService)(nil)

// PlaceOrder freezes the monetary breakdown and reserves stock for every line.
func (s *orderService) PlaceOrder(ctx context.Context, uow portsrepo.UnitOfWork, actor domain.Actor, req dto.PlaceOrderRequest) (*domain.Order, error) {
	if actor.Role != domain.RoleBuyer {
		return nil, domain.ErrRoleNotAllowed
	}
	shop, err := uow.Shops().FindShopByID(ctx, req.ShopID)
	if err != nil {
		return nil, err
	}
	if len(req.Items) == 0 && (shop.Category != domain.CategoryRepair || req.Kind != domain.KindService) {
		return nil, domain.ErrEmptyOrder
	}
	fee, err := uow.Zones().FeeForZone(ctx, req.ZoneID)
	if err != nil {
		return nil, err
	}

	now := s.Now()
	orderID := uuid.NewString()
	subtotal := decimal.Zero
	items := make([]domain.OrderItem, 0, len(req.Items))
	for _, line := range req.Items {
		product, err := uow.Inventory().FindProductByID(ctx, line.ProductID)
		if err != nil {
			return nil, err
		}
		if product.ShopID != shop.ShopID {
			return nil, domain.ErrForeignProduct
		}
		if err := uow.Inventory().ReserveStock(ctx, product.ProductID, line.Quantity); err != nil {
			return nil, err
		}
		subtotal = subtotal.Add(product.Price.Mul(decimal.NewFromInt(int64(line.Quantity))))
		items = append(items, domain.OrderItem{
			ItemID:    uuid.NewString(),
			OrderID:   orderID,
			ProductID: product.ProductID,
			Quantity:  line.Quantity,
			UnitPrice: product.Price,
		})
	}

	order := domain.Order{
		OrderID:             orderID,
		BuyerID:             actor.UserID,
		ShopID:              shop.ShopID,
		ZoneID:              req.ZoneID,
		Kind:                req.Kind,
		Status:              domain.OrderPlaced,
		PaymentStatus:       domain.PaymentPending,
		Breakdown:           domain.NewBreakdown(subtotal, *fee),
		WorkflowState:       domain.WorkflowNone,
		QuoteStatus:         domain.QuoteNone,
		RequiresDeliveryOTP: req.RequiresDeliveryOTP,
		AuditFields: domain.AuditFields{
			CreatedAt:     now,
			CreatedBy:     actor.UserID,
			LastUpdatedAt: now,
			LastUpdatedBy: actor.UserID,
		},
	}
	if err := uow.Orders().InsertOrder(ctx, order, items); err != nil {
		return nil, err
	}
	if err := uow.Orders().AppendStatusHistory(ctx, domain.OrderStatusHistory{
		HistoryID: uuid.NewString(),
		OrderID:   orderID,
		ToStatus:  domain.OrderPlaced,
		ActorID:   actor.UserID,
		Reason:    "order placed",
		CreatedAt: now,
	}); err != nil {
		return nil, err
	}

	s.Publish(uow, domain.Event{
		Type:     domain.EventOrderStatusChanged,
		OrderID:  orderID,
		Channels: []domain.Channel{domain.ChannelBuyer, domain.ChannelSeller, domain.ChannelAdmin},
		Payload:  map[string]string{"to": string(domain.OrderPlaced)},
	})
	s.Notify(uow, domain.Notification{UserID: shop.SellerID, Title: "New order", Body: "You have a new order", OrderID: orderID})
	s.LogInfo(ctx, "Order placed",
		slog.String("order_id", orderID),
		slog.String("shop_id", shop.ShopID),
		slog.Int("lines", len(items)),
		slog.String("total", order.Total.StringFixed(domain.MoneyPlaces)))
	return &order, nil
}

// ConfirmPayment records an external capture as a wallet top-up and moves the
// same amount into escrow. Replays converge on the original ledger entries.
func (s *orderService) ConfirmPayment(ctx context.Context, uow portsrepo.UnitOfWork, orderID string, req dto.PaymentConfirmationRequest) (*domain.Order, error) {
	order, err := uow.Orders().LockOrder(ctx, orderID)
	if err != nil {
		return nil, err
	}
	if order.PaymentStatus == domain.PaymentPaid {
		return order, nil
	}
	if order.Status != domain.OrderPlaced || order.PaymentStatus != domain.PaymentPending {
		return nil, domain.ErrInvalidTransition
	}
	if !order.Total.IsPositive() {
		return nil, domain.ErrNothingToPay
	}
	if !domain.Money(req.Amount).Equal(order.Total) {
		return nil, domain.ErrAmountMismatch
	}

	actorID := domain.SystemActor.UserID
	if _, err := s.ledger.Record(ctx, uow, domain.RecordEntry{
		UserID:            order.BuyerID,
		Type:              domain.EntryTopup,
		Direction:         domain.DirectionIn,
		Amount:            order.Total,
		Reference:         domain.PaymentCaptureReference(orderID),
		RelatedEntityType: "order",
		RelatedEntityID:   orderID,
		Metadata:          map[string]string{"external_reference": req.ExternalReference},
	}); err != nil {
		return nil, err
	}
	if _, err := s.escrow.CreateHold(ctx, uow, order, order.Total, actorID); err != nil {
		return nil, err
	}

	order.PaymentStatus = domain.PaymentPaid
	if err := s.TransitionOrder(ctx, uow, order, domain.OrderPaid, actorID, "payment captured"); err != nil {
		return nil, err
	}
	if err := uow.Orders().UpdateOrder(ctx, *order); err != nil {
		return nil, err
	}

	s.Publish(uow, domain.Event{
		Type:     domain.EventPaymentCaptured,
		OrderID:  orderID,
		Channels: []domain.Channel{domain.ChannelBuyer, domain.ChannelSeller, domain.ChannelAdmin},
		Payload:  map[string]string{"amount": order.Total.StringFixed(domain.MoneyPlaces), "external_reference": req.ExternalReference},
	})
	s.LogInfo(ctx, "Payment captured", slog.String("order_id", orderID), slog.String("external_reference", req.ExternalReference))
	return order, nil
}

func (s *orderService) AcceptOrder(ctx context.Context, uow portsrepo.UnitOfWork, actor domain.Actor, orderID string) (*domain.Order, error) {
	order, err := uow.Orders().LockOrder(ctx, orderID)
	if err != nil {
		return nil, err
	}
	if _, err := requireSeller(ctx, uow, actor, order); err != nil {
		return nil, err
	}
	if order.Status == domain.OrderAcceptedBySeller {
		return order, nil
	}
	if order.Status != domain.OrderPaid {
		return nil, domain.ErrInvalidTransition
	}
	if err := s.TransitionOrder(ctx, uow, order, domain.OrderAcceptedBySeller, actor.UserID, "seller accepted"); err != nil {
		return nil, err
	}
	if err := uow.Orders().UpdateOrder(ctx, *order); err != nil {
		return nil, err
	}
	s.Notify(uow, domain.Notification{UserID: order.BuyerID, Title: "Order accepted", Body: "The seller accepted your order", OrderID: orderID})
	return order, nil
}

func (s *orderService) ConfirmDelivery(ctx context.Context, uow portsrepo.UnitOfWork, actor domain.Actor, orderID string) (*domain.Order, error) {
	order, err := uow.Orders().LockOrder(ctx, orderID)
	if err != nil {
		return nil, err
	}
	if err := requireBuyer(actor, order); err != nil {
		return nil, err
	}
	if order.Status == domain.OrderConfirmed {
		return order, nil
	}
	if order.Status != domain.OrderDelivered {
		return nil, domain.ErrInvalidTransition
	}
	return s.releaseAndConfirm(ctx, uow, order, actor.UserID, "buyer confirmed delivery")
}

// AutoRelease is the scheduled release after delivery. It re-checks every
// precondition and is a no-op once the hold or order has moved on.
func (s *orderService) AutoRelease(ctx context.Context, uow portsrepo.UnitOfWork, orderID string) (*domain.Order, error) {
	order, err := uow.Orders().LockOrder(ctx, orderID)
	if err != nil {
		return nil, err
	}
	hold, err := uow.Escrow().LockHoldByOrderID(ctx, orderID)
	if err != nil {
		return nil, err
	}
	if hold.Status != domain.HoldHeld || order.Status != domain.OrderDelivered || hold.ExpiresAt == nil {
		s.LogDebug(ctx, "Auto-release skipped",
			slog.String("order_id", orderID),
			slog.String("hold_status", string(hold.Status)),
			slog.String("order_status", string(order.Status)))
		return order, nil
	}
	if s.Now().Before(*hold.ExpiresAt) {
		s.ScheduleAfterCommit(uow, domain.ScheduledTask{
			Kind:    domain.TaskEscrowAutoRelease,
			OrderID: orderID,
			RunAt:   *hold.ExpiresAt,
		})
		s.LogDebug(ctx, "Auto-release fired early, rescheduled", slog.String("order_id", orderID), slog.Time("run_at", *hold.ExpiresAt))
		return order, nil
	}
	return s.releaseAndConfirm(ctx, uow, order, domain.SystemActor.UserID, "auto release")
}

func (s *orderService) releaseAndConfirm(ctx context.Context, uow portsrepo.UnitOfWork, order *domain.Order, actorID, reason string) (*domain.Order, error) {
	if _, err := s.escrow.Release(ctx, uow, order, actorID); err != nil {
		return nil, err
	}
	if err := s.TransitionOrder(ctx, uow, order, domain.OrderConfirmed, actorID, reason); err != nil {
		return nil, err
	}
	if err := uow.Orders().UpdateOrder(ctx, *order); err != nil {
		return nil, err
	}
	return order, nil
}

func (s *orderService) SetAdminPause(ctx context.Context, uow portsrepo.UnitOfWork, actor domain.Actor, orderID string, paused bool, reason string) (*domain.Order, error) {
	if err := requireAdmin(actor); err != nil {
		return nil, err
	}
	order, err := uow.Orders().LockOrder(ctx, orderID)
	if err != nil {
		return nil, err
	}
	if order.IsPaused() == paused {
		return order, nil
	}

	now := s.Now()
	if paused {
		order.AdminPausedAt = domain.TimePtr(now)
		order.PauseReason = reason
	} else {
		order.AdminPausedAt = nil
		order.PauseReason = ""
	}
	order.LastUpdatedAt = now
	order.LastUpdatedBy = actor.UserID
	if err := uow.Orders().UpdateOrder(ctx, *order); err != nil {
		return nil, err
	}
	if !paused {
		if err := s.dispatch.ResumeBroadcasts(ctx, uow, orderID); err != nil {
			return nil, err
		}
	}
	s.LogInfo(ctx, "Admin pause changed", slog.String("order_id", orderID), slog.Bool("paused", paused), slog.String("reason", reason))
	return order, nil
}

func (s *orderService) GetOrder(ctx context.Context, uow portsrepo.UnitOfWork, actor domain.Actor, orderID string) (*domain.Order, error) {
	order, err := uow.Orders().FindOrderByID(ctx, orderID)
	if err != nil {
		return nil, err
	}
	if err := canView(ctx, uow, actor, order); err != nil {
		return nil, err
	}
	return order, nil
}

func (s *orderService) GetTimeline(ctx context.Context, uow portsrepo.UnitOfWork, actor domain.Actor, orderID string) (*dto.TimelineResponse, error) {
	if _, err := s.GetOrder(ctx, uow, actor, orderID); err != nil {
		return nil, err
	}
	history, err := uow.Orders().ListStatusHistory(ctx, orderID)
	if err != nil {
		return nil, err
	}
	events, err := uow.Workflows().ListWorkflowEvents(ctx, orderID)
	if err != nil {
		return nil, err
	}
	return &dto.TimelineResponse{OrderID: orderID, StatusHistory: history, WorkflowEvents: events}, nil
}
