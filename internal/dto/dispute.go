package dto

import (
	"github.com/SscSPs/fulfillment_coordinator/internal/core/domain"
	"github.com/shopspring/decimal"
)

// RaiseDisputeRequest carries the buyer's complaint.
type RaiseDisputeRequest struct {
	Reason string `json:"reason" binding:"required"`
}

// ResolveDisputeRequest is the admin decision. RefundAmount is required for
// partial_refund only.
type ResolveDisputeRequest struct {
	Resolution   domain.DisputeResolution `json:"resolution" binding:"required,oneof=pay_seller refund_buyer refund_buyer_penalize_seller refund_buyer_penalize_rider partial_refund"`
	RefundAmount *decimal.Decimal         `json:"refundAmount"`
	Note         string                   `json:"note"`
}
