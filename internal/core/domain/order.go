package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// OrderStatus is the order's single linear-with-branches state.
type OrderStatus string

const (
	OrderPlaced           OrderStatus = "placed"
	OrderPaid             OrderStatus = "paid"
	OrderAcceptedBySeller OrderStatus = "accepted_by_seller"
	OrderDispatching      OrderStatus = "dispatching"
	OrderAssignedToRider  OrderStatus = "assigned_to_rider"
	OrderPickedUp         OrderStatus = "picked_up"
	OrderDelivered        OrderStatus = "delivered"
	OrderConfirmed        OrderStatus = "confirmed"
	OrderCancelled        OrderStatus = "cancelled"
	OrderDisputed         OrderStatus = "disputed"
)

// CanTransitionTo reports whether next is reachable from s in one step.
func (s OrderStatus) CanTransitionTo(next OrderStatus) bool {
	switch s {
	case OrderPlaced:
		return next == OrderPaid || next == OrderCancelled
	case OrderPaid:
		return next == OrderAcceptedBySeller || next == OrderDispatching || next == OrderCancelled
	case OrderAcceptedBySeller:
		return next == OrderDispatching || next == OrderCancelled
	case OrderDispatching:
		return next == OrderAssignedToRider
	case OrderAssignedToRider:
		// back to dispatching when the rider cancels
		return next == OrderPickedUp || next == OrderDispatching
	case OrderPickedUp:
		return next == OrderDelivered
	case OrderDelivered:
		return next == OrderConfirmed || next == OrderDisputed
	case OrderDisputed:
		return next == OrderConfirmed || next == OrderCancelled
	case OrderConfirmed, OrderCancelled:
		return false
	default:
		return false
	}
}

// IsTerminal reports whether the order can no longer change status.
func (s OrderStatus) IsTerminal() bool {
	return s == OrderConfirmed || s == OrderCancelled
}

// rank orders delivery progress so that idempotent "already past this point"
// checks can be expressed as comparisons.
func (s OrderStatus) rank() int {
	switch s {
	case OrderPlaced:
		return 0
	case OrderPaid:
		return 1
	case OrderAcceptedBySeller:
		return 2
	case OrderDispatching:
		return 3
	case OrderAssignedToRider:
		return 4
	case OrderPickedUp:
		return 5
	case OrderDelivered:
		return 6
	case OrderDisputed, OrderConfirmed:
		return 7
	default:
		return -1
	}
}

// HasReached reports whether s is at or beyond target on the delivery path.
// Cancelled orders have reached nothing.
func (s OrderStatus) HasReached(target OrderStatus) bool {
	return s.rank() >= 0 && s.rank() >= target.rank()
}

// OrderKind separates product deliveries from service orders.
type OrderKind string

const (
	KindProduct OrderKind = "product"
	KindService OrderKind = "service"
)

// PaymentStatus tracks the buyer's payment.
type PaymentStatus string

const (
	PaymentPending  PaymentStatus = "pending"
	PaymentPaid     PaymentStatus = "paid"
	PaymentRefunded PaymentStatus = "refunded"
)

// WorkflowState summarizes where an order is inside its workflow.
type WorkflowState string

const (
	WorkflowNone       WorkflowState = "none"
	WorkflowInProgress WorkflowState = "in_progress"
	WorkflowReady      WorkflowState = "ready"
	WorkflowCompleted  WorkflowState = "completed"
	WorkflowBlocked    WorkflowState = "blocked"
)

// QuoteStatus tracks a negotiated service price.
type QuoteStatus string

const (
	QuoteNone     QuoteStatus = "none"
	QuotePending  QuoteStatus = "pending"
	QuoteApproved QuoteStatus = "approved"
	QuoteRejected QuoteStatus = "rejected"
)

// Breakdown is the frozen monetary breakdown of an order.
type Breakdown struct {
	Subtotal    decimal.Decimal `json:"subtotal"`
	DeliveryFee decimal.Decimal `json:"deliveryFee"`
	RiderShare  decimal.Decimal `json:"riderShare"`
	PlatformFee decimal.Decimal `json:"platformFee"`
	Total       decimal.Decimal `json:"total"`
}

// NewBreakdown derives totals from a subtotal and the zone fee rule.
func NewBreakdown(subtotal decimal.Decimal, fee ZoneFee) Breakdown {
	subtotal = Money(subtotal)
	return Breakdown{
		Subtotal:    subtotal,
		DeliveryFee: Money(fee.DeliveryFee),
		RiderShare:  Money(fee.RiderShare),
		PlatformFee: Money(fee.PlatformFee),
		Total:       subtotal.Add(Money(fee.DeliveryFee)),
	}
}

// Order is the aggregate root of fulfillment.
type Order struct {
	OrderID       string        `json:"orderID"`
	BuyerID       string        `json:"buyerID"`
	ShopID        string        `json:"shopID"`
	ZoneID        string        `json:"zoneID"`
	Kind          OrderKind     `json:"kind"`
	Status        OrderStatus   `json:"status"`
	PaymentStatus PaymentStatus `json:"paymentStatus"`
	Breakdown
	RiderID *string `json:"riderID,omitempty"`

	WorkflowID    *string       `json:"workflowID,omitempty"`
	CurrentStepID *string       `json:"currentStepID,omitempty"`
	WorkflowState WorkflowState `json:"workflowState"`
	EtaMinMinutes *int          `json:"etaMinMinutes,omitempty"`
	EtaMaxMinutes *int          `json:"etaMaxMinutes,omitempty"`

	QuoteAmount    *decimal.Decimal `json:"quoteAmount,omitempty"`
	QuoteNote      string           `json:"quoteNote,omitempty"`
	QuoteStatus    QuoteStatus      `json:"quoteStatus"`
	QuoteSentAt    *time.Time       `json:"quoteSentAt,omitempty"`
	QuoteDecidedAt *time.Time       `json:"quoteDecidedAt,omitempty"`

	RequiresDeliveryOTP bool       `json:"requiresDeliveryOTP"`
	DeliveryOTPHash     string     `json:"-"`
	DeliveryOTPExpires  *time.Time `json:"-"`

	AdminPausedAt *time.Time `json:"adminPausedAt,omitempty"`
	PauseReason   string     `json:"pauseReason,omitempty"`
	DeliveredAt   *time.Time `json:"deliveredAt,omitempty"`
	AuditFields
}

// IsPaused reports whether an admin has halted workflow and dispatch mutation.
func (o *Order) IsPaused() bool {
	return o.AdminPausedAt != nil
}

// HasRider reports whether a rider is currently assigned.
func (o *Order) HasRider() bool {
	return o.RiderID != nil && *o.RiderID != ""
}

// OrderItem is one product line of an order.
type OrderItem struct {
	ItemID    string          `json:"itemID"`
	OrderID   string          `json:"orderID"`
	ProductID string          `json:"productID"`
	Quantity  int             `json:"quantity"`
	UnitPrice decimal.Decimal `json:"unitPrice"`
	Restocked bool            `json:"restocked"`
}

// OrderStatusHistory is the append-only trail of order status changes.
type OrderStatusHistory struct {
	HistoryID  string      `json:"historyID"`
	OrderID    string      `json:"orderID"`
	FromStatus OrderStatus `json:"fromStatus"`
	ToStatus   OrderStatus `json:"toStatus"`
	ActorID    string      `json:"actorID"`
	Reason     string      `json:"reason,omitempty"`
	CreatedAt  time.Time   `json:"createdAt"`
}

// ShopCategory selects the workflow template of a shop.
type ShopCategory string

// CategoryRepair shops negotiate service prices through quotes.
const CategoryRepair ShopCategory = "repair"

// Shop is the seller's storefront.
type Shop struct {
	ShopID            string       `json:"shopID"`
	SellerID          string       `json:"sellerID"`
	Name              string       `json:"name"`
	Category          ShopCategory `json:"category"`
	ZoneID            string       `json:"zoneID"`
	DefaultWorkflowID *string      `json:"defaultWorkflowID,omitempty"`
}

// ZoneFee is the delivery-fee rule of a zone.
type ZoneFee struct {
	ZoneID      string          `json:"zoneID"`
	DeliveryFee decimal.Decimal `json:"deliveryFee"`
	RiderShare  decimal.Decimal `json:"riderShare"`
	PlatformFee decimal.Decimal `json:"platformFee"`
}

// Product is a catalogue line with its available stock.
type Product struct {
	ProductID string          `json:"productID"`
	ShopID    string          `json:"shopID"`
	Name      string          `json:"name"`
	Price     decimal.Decimal `json:"price"`
	Stock     int             `json:"stock"`
}
