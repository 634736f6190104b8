package services

import (
	"context"
	"log/slog"

	"github.com/SscSPs/fulfillment_coordinator/internal/core/domain"
	portsrepo "github.com/SscSPs/fulfillment_coordinator/internal/core/ports/repositories"
	portssvc "github.com/SscSPs/fulfillment_coordinator/internal/core/ports/services"
	"github.com/SscSPs/fulfillment_coordinator/internal/utils"
	"github.com/shopspring/decimal"
)

// quoteService negotiates repair prices. Approval pays from the buyer's balance
// into escrow.
type quoteService struct {
	BaseService
	escrow portssvc.EscrowSvc
}

// NewQuoteService creates a new QuoteSvc.
func NewQuoteService(base BaseService, escrow portssvc.EscrowSvc) portssvc.QuoteSvc {
	return &quoteService{BaseService: base, escrow: escrow}
}

var _ portssvc.QuoteSvc = (*quoteService)(nil)

func (s *quoteService) SendQuote(ctx context.Context, uow portsrepo.UnitOfWork, actor domain.Actor, orderID string, amount decimal.Decimal, note string) (*domain.Order, error) {
	order, err := uow.Orders().LockOrder(ctx, orderID)
	if err != nil {
		return nil, err
	}
	shop, err := requireSeller(ctx, uow, actor, order)
	if err != nil {
		return nil, err
	}
	if shop.Category != domain.CategoryRepair || order.Kind != domain.KindService {
		return nil, domain.ErrQuoteNotSupported
	}
	if order.IsPaused() {
		return nil, domain.ErrOrderPaused
	}
	if order.QuoteStatus == domain.QuoteApproved || order.PaymentStatus != domain.PaymentPending || order.Status != domain.OrderPlaced {
		return nil, domain.ErrInvalidTransition
	}
	amount = domain.Money(amount)
	if !amount.IsPositive() {
		return nil, domain.ErrNonPositiveAmount
	}

	now := s.Now()
	order.QuoteAmount = &amount
	order.QuoteNote = note
	order.QuoteStatus = domain.QuotePending
	order.QuoteSentAt = domain.TimePtr(now)
	order.QuoteDecidedAt = nil
	order.LastUpdatedAt = now
	order.LastUpdatedBy = actor.UserID
	if err := uow.Orders().UpdateOrder(ctx, *order); err != nil {
		return nil, err
	}

	s.publishQuote(uow, order)
	s.Notify(uow, domain.Notification{
		UserID:  order.BuyerID,
		Title:   "Repair quote received",
		Body:    "Your repair quote is " + utils.FormatMoney(amount),
		OrderID: order.OrderID,
	})
	s.LogInfo(ctx, "Quote sent", slog.String("order_id", orderID), slog.String("amount", amount.StringFixed(domain.MoneyPlaces)))
	return order, nil
}

func (s *quoteService) ApproveQuote(ctx context.Context, uow portsrepo.UnitOfWork, actor domain.Actor, orderID string) (*domain.Order, error) {
	order, shop, err := s.lockForBuyer(ctx, uow, actor, orderID)
	if err != nil {
		return nil, err
	}
	if order.QuoteStatus == domain.QuoteApproved {
		return order, nil
	}
	if order.QuoteStatus != domain.QuotePending || order.QuoteAmount == nil {
		return nil, domain.ErrQuoteNotPending
	}
	if order.Status != domain.OrderPlaced {
		return nil, domain.ErrInvalidTransition
	}

	fee, err := uow.Zones().FeeForZone(ctx, order.ZoneID)
	if err != nil {
		return nil, err
	}
	order.Breakdown = domain.NewBreakdown(*order.QuoteAmount, *fee)

	if _, err := s.escrow.CreateHold(ctx, uow, order, order.Total, actor.UserID); err != nil {
		return nil, err
	}

	now := s.Now()
	order.QuoteStatus = domain.QuoteApproved
	order.QuoteDecidedAt = domain.TimePtr(now)
	order.PaymentStatus = domain.PaymentPaid
	if err := s.TransitionOrder(ctx, uow, order, domain.OrderPaid, actor.UserID, "quote approved"); err != nil {
		return nil, err
	}
	if err := s.refreshGateState(ctx, uow, order, shop); err != nil {
		return nil, err
	}
	if err := uow.Orders().UpdateOrder(ctx, *order); err != nil {
		return nil, err
	}

	s.publishQuote(uow, order)
	s.notifySeller(uow, shop, order, "Quote approved", "The buyer approved your quote")
	s.LogInfo(ctx, "Quote approved", slog.String("order_id", orderID), slog.String("total", order.Total.StringFixed(domain.MoneyPlaces)))
	return order, nil
}

func (s *quoteService) RejectQuote(ctx context.Context, uow portsrepo.UnitOfWork, actor domain.Actor, orderID string) (*domain.Order, error) {
	order, shop, err := s.lockForBuyer(ctx, uow, actor, orderID)
	if err != nil {
		return nil, err
	}
	if order.QuoteStatus == domain.QuoteRejected {
		return order, nil
	}
	if order.QuoteStatus != domain.QuotePending {
		return nil, domain.ErrQuoteNotPending
	}

	now := s.Now()
	order.QuoteStatus = domain.QuoteRejected
	order.QuoteDecidedAt = domain.TimePtr(now)
	if err := s.refreshGateState(ctx, uow, order, shop); err != nil {
		return nil, err
	}
	order.LastUpdatedAt = now
	order.LastUpdatedBy = actor.UserID
	if err := uow.Orders().UpdateOrder(ctx, *order); err != nil {
		return nil, err
	}

	s.publishQuote(uow, order)
	s.notifySeller(uow, shop, order, "Quote rejected", "The buyer rejected your quote")
	s.LogInfo(ctx, "Quote rejected", slog.String("order_id", orderID))
	return order, nil
}

func (s *quoteService) lockForBuyer(ctx context.Context, uow portsrepo.UnitOfWork, actor domain.Actor, orderID string) (*domain.Order, *domain.Shop, error) {
	order, err := uow.Orders().LockOrder(ctx, orderID)
	if err != nil {
		return nil, nil, err
	}
	if err := requireBuyer(actor, order); err != nil {
		return nil, nil, err
	}
	shop, err := uow.Shops().FindShopByID(ctx, order.ShopID)
	if err != nil {
		return nil, nil, err
	}
	if shop.Category != domain.CategoryRepair || order.Kind != domain.KindService {
		return nil, nil, domain.ErrQuoteNotSupported
	}
	return order, shop, nil
}

// refreshGateState recomputes the workflow state when the order sits on the
// quote approval step.
func (s *quoteService) refreshGateState(ctx context.Context, uow portsrepo.UnitOfWork, order *domain.Order, shop *domain.Shop) error {
	if order.WorkflowID == nil || order.CurrentStepID == nil {
		return nil
	}
	wf, err := uow.Workflows().FindWorkflowByID(ctx, *order.WorkflowID)
	if err != nil {
		return err
	}
	step, ok := wf.StepByID(*order.CurrentStepID)
	if !ok || step.Key != domain.StepKeyQuoteApproval {
		return nil
	}
	order.WorkflowState = stepState(order, shop, step)
	return nil
}

func (s *quoteService) publishQuote(uow portsrepo.UnitOfWork, order *domain.Order) {
	s.Publish(uow, domain.Event{
		Type:     domain.EventQuoteUpdated,
		OrderID:  order.OrderID,
		Channels: []domain.Channel{domain.ChannelBuyer, domain.ChannelSeller},
		Payload:  map[string]string{"quote_status": string(order.QuoteStatus)},
	})
}

func (s *quoteService) notifySeller(uow portsrepo.UnitOfWork, shop *domain.Shop, order *domain.Order, title, body string) {
	s.Notify(uow, domain.Notification{UserID: shop.SellerID, Title: title, Body: body, OrderID: order.OrderID})
}
