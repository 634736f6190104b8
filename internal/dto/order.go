package dto

import (
	"time"

	"github.com/SscSPs/fulfillment_coordinator/internal/core/domain"
	"github.com/shopspring/decimal"
)

// PlaceOrderItem is one requested product line.
type PlaceOrderItem struct {
	ProductID string `json:"productID" binding:"required"`
	Quantity  int    `json:"quantity" binding:"required,gt=0"`
}

// PlaceOrderRequest defines the data needed to place an order.
type PlaceOrderRequest struct {
	ShopID              string           `json:"shopID" binding:"required"`
	ZoneID              string           `json:"zoneID" binding:"required"`
	Kind                domain.OrderKind `json:"kind" binding:"required,oneof=product service"`
	Items               []PlaceOrderItem `json:"items" binding:"dive"`
	RequiresDeliveryOTP bool             `json:"requiresDeliveryOTP"`
}

// PaymentConfirmationRequest is the webhook body of an external payment capture.
type PaymentConfirmationRequest struct {
	ExternalReference string          `json:"externalReference" binding:"required"`
	Amount            decimal.Decimal `json:"amount" binding:"dgt0"`
}

// CancelOrderRequest carries the cancellation reason.
type CancelOrderRequest struct {
	Reason string `json:"reason" binding:"required"`
}

// PauseOrderRequest toggles the admin pause.
type PauseOrderRequest struct {
	Paused bool   `json:"paused"`
	Reason string `json:"reason"`
}

// OrderResponse defines the data returned for an order.
type OrderResponse struct {
	OrderID             string               `json:"orderID"`
	BuyerID             string               `json:"buyerID"`
	ShopID              string               `json:"shopID"`
	ZoneID              string               `json:"zoneID"`
	Kind                domain.OrderKind     `json:"kind"`
	Status              domain.OrderStatus   `json:"status"`
	PaymentStatus       domain.PaymentStatus `json:"paymentStatus"`
	Subtotal            decimal.Decimal      `json:"subtotal"`
	DeliveryFee         decimal.Decimal      `json:"deliveryFee"`
	RiderShare          decimal.Decimal      `json:"riderShare"`
	PlatformFee         decimal.Decimal      `json:"platformFee"`
	Total               decimal.Decimal      `json:"total"`
	RiderID             *string              `json:"riderID,omitempty"`
	WorkflowID          *string              `json:"workflowID,omitempty"`
	CurrentStepID       *string              `json:"currentStepID,omitempty"`
	WorkflowState       domain.WorkflowState `json:"workflowState"`
	EtaMinMinutes       *int                 `json:"etaMinMinutes,omitempty"`
	EtaMaxMinutes       *int                 `json:"etaMaxMinutes,omitempty"`
	QuoteAmount         *decimal.Decimal     `json:"quoteAmount,omitempty"`
	QuoteStatus         domain.QuoteStatus   `json:"quoteStatus"`
	RequiresDeliveryOTP bool                 `json:"requiresDeliveryOTP"`
	Paused              bool                 `json:"paused"`
	DeliveredAt         *time.Time           `json:"deliveredAt,omitempty"`
	CreatedAt           time.Time            `json:"createdAt"`
	LastUpdatedAt       time.Time            `json:"lastUpdatedAt"`
}

// ToOrderResponse converts a domain.Order to OrderResponse DTO
func ToOrderResponse(o *domain.Order) OrderResponse {
	return OrderResponse{
		OrderID:             o.OrderID,
		BuyerID:             o.BuyerID,
		ShopID:              o.ShopID,
		ZoneID:              o.ZoneID,
		Kind:                o.Kind,
		Status:              o.Status,
		PaymentStatus:       o.PaymentStatus,
		Subtotal:            o.Subtotal,
		DeliveryFee:         o.DeliveryFee,
		RiderShare:          o.RiderShare,
		PlatformFee:         o.PlatformFee,
		Total:               o.Total,
		RiderID:             o.RiderID,
		WorkflowID:          o.WorkflowID,
		CurrentStepID:       o.CurrentStepID,
		WorkflowState:       o.WorkflowState,
		EtaMinMinutes:       o.EtaMinMinutes,
		EtaMaxMinutes:       o.EtaMaxMinutes,
		QuoteAmount:         o.QuoteAmount,
		QuoteStatus:         o.QuoteStatus,
		RequiresDeliveryOTP: o.RequiresDeliveryOTP,
		Paused:              o.IsPaused(),
		DeliveredAt:         o.DeliveredAt,
		CreatedAt:           o.CreatedAt,
		LastUpdatedAt:       o.LastUpdatedAt,
	}
}

// TimelineResponse is the reconstructed history of an order.
type TimelineResponse struct {
	OrderID        string                      `json:"orderID"`
	StatusHistory  []domain.OrderStatusHistory `json:"statusHistory"`
	WorkflowEvents []domain.OrderWorkflowEvent `json:"workflowEvents"`
}
