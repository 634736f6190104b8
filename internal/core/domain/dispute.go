package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// Cancellation records the single buyer/seller cancellation of an order.
type Cancellation struct {
	CancellationID string    `json:"cancellationID"`
	OrderID        string    `json:"orderID"`
	ActorID        string    `json:"actorID"`
	ActorRole      ActorRole `json:"actorRole"`
	Reason         string    `json:"reason"`
	Refunded       bool      `json:"refunded"`
	CreatedAt      time.Time `json:"createdAt"`
}

// RiderCancellation records a rider abandoning an assignment. A rider may cancel
// the same order more than once if re-assigned.
type RiderCancellation struct {
	RiderCancellationID string          `json:"riderCancellationID"`
	OrderID             string          `json:"orderID"`
	JobID               string          `json:"jobID"`
	RiderID             string          `json:"riderID"`
	Reason              string          `json:"reason"`
	PenaltyAmount       decimal.Decimal `json:"penaltyAmount"`
	PenaltyEntryID      *string         `json:"penaltyEntryID,omitempty"`
	CreatedAt           time.Time       `json:"createdAt"`
}

// DisputeStatus is the state of a dispute.
type DisputeStatus string

const (
	DisputeOpen     DisputeStatus = "open"
	DisputeResolved DisputeStatus = "resolved"
)

// DisputeResolution is the admin decision closing a dispute.
type DisputeResolution string

const (
	ResolutionPaySeller               DisputeResolution = "pay_seller"
	ResolutionRefundBuyer             DisputeResolution = "refund_buyer"
	ResolutionRefundBuyerPenalizeSell DisputeResolution = "refund_buyer_penalize_seller"
	ResolutionRefundBuyerPenalizeRide DisputeResolution = "refund_buyer_penalize_rider"
	ResolutionPartialRefund           DisputeResolution = "partial_refund"
)

// IsValid reports whether r is a known resolution.
func (r DisputeResolution) IsValid() bool {
	switch r {
	case ResolutionPaySeller, ResolutionRefundBuyer, ResolutionRefundBuyerPenalizeSell,
		ResolutionRefundBuyerPenalizeRide, ResolutionPartialRefund:
		return true
	default:
		return false
	}
}

// RefundsBuyer reports whether the resolution refunds the full hold.
func (r DisputeResolution) RefundsBuyer() bool {
	switch r {
	case ResolutionRefundBuyer, ResolutionRefundBuyerPenalizeSell, ResolutionRefundBuyerPenalizeRide:
		return true
	case ResolutionPaySeller, ResolutionPartialRefund:
		return false
	default:
		return false
	}
}

// Dispute is a buyer complaint raised after delivery. Raising it freezes escrow.
type Dispute struct {
	DisputeID      string             `json:"disputeID"`
	OrderID        string             `json:"orderID"`
	RaisedBy       string             `json:"raisedBy"`
	Reason         string             `json:"reason"`
	Status         DisputeStatus      `json:"status"`
	Resolution     *DisputeResolution `json:"resolution,omitempty"`
	RefundAmount   *decimal.Decimal   `json:"refundAmount,omitempty"`
	ResolvedBy     *string            `json:"resolvedBy,omitempty"`
	ResolvedAt     *time.Time         `json:"resolvedAt,omitempty"`
	ResolutionNote string             `json:"resolutionNote,omitempty"`
	CreatedAt      time.Time          `json:"createdAt"`
}
