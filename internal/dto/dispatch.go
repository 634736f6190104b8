package dto

import (
	"github.com/SscSPs/fulfillment_coordinator/internal/core/domain"
)

// DispatchOrderRequest selects the dispatch purpose; delivery when empty.
type DispatchOrderRequest struct {
	Purpose domain.DispatchPurpose `json:"purpose" binding:"omitempty,oneof=delivery return"`
}

// ProofRequest carries a pickup or delivery proof.
type ProofRequest struct {
	PhotoURL string `json:"photoURL" binding:"required,url"`
	Note     string `json:"note"`
}

// MarkDeliveredRequest carries the buyer's delivery OTP when required.
type MarkDeliveredRequest struct {
	OTP string `json:"otp"`
}
