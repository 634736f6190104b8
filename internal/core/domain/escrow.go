package domain

import (
	"fmt"
	"time"

	"github.com/shopspring/decimal"
)

// HoldStatus is the state of an escrow hold. Released and refunded are terminal.
type HoldStatus string

const (
	HoldHeld     HoldStatus = "held"
	HoldFrozen   HoldStatus = "frozen"
	HoldReleased HoldStatus = "released"
	HoldRefunded HoldStatus = "refunded"
)

// IsTerminal reports whether no further escrow transitions are possible.
func (s HoldStatus) IsTerminal() bool {
	switch s {
	case HoldReleased, HoldRefunded:
		return true
	case HoldHeld, HoldFrozen:
		return false
	default:
		return false
	}
}

// IsSettleable reports whether the hold may still be released or refunded.
func (s HoldStatus) IsSettleable() bool {
	return s == HoldHeld || s == HoldFrozen
}

// EscrowHold is the custodial record of buyer funds for one order.
type EscrowHold struct {
	HoldID     string          `json:"holdID"`
	OrderID    string          `json:"orderID"`
	BuyerID    string          `json:"buyerID"`
	SellerID   string          `json:"sellerID"`
	Amount     decimal.Decimal `json:"amount"`
	Status     HoldStatus      `json:"status"`
	ExpiresAt  *time.Time      `json:"expiresAt,omitempty"`
	ReleasedAt *time.Time      `json:"releasedAt,omitempty"`
	RefundedAt *time.Time      `json:"refundedAt,omitempty"`
	SettledBy  string          `json:"settledBy,omitempty"`
	AuditFields
}

// ReleaseBreakdown is the three-way split of a release. Zero parts are skipped.
type ReleaseBreakdown struct {
	SellerID       string
	SellerAmount   decimal.Decimal
	RiderID        string
	RiderAmount    decimal.Decimal
	PlatformID     string
	PlatformAmount decimal.Decimal
}

// Total is the sum of the three parts.
func (b ReleaseBreakdown) Total() decimal.Decimal {
	return b.SellerAmount.Add(b.RiderAmount).Add(b.PlatformAmount)
}

// PayoutStatus is the state of a seller payout.
type PayoutStatus string

const (
	PayoutPending PayoutStatus = "pending"
	PayoutPaid    PayoutStatus = "paid"
)

// Payout records the seller portion of a release awaiting settlement.
type Payout struct {
	PayoutID  string          `json:"payoutID"`
	OrderID   string          `json:"orderID"`
	SellerID  string          `json:"sellerID"`
	Amount    decimal.Decimal `json:"amount"`
	Status    PayoutStatus    `json:"status"`
	CreatedAt time.Time       `json:"createdAt"`
}

// Release parties used in ledger references.
const (
	PartySeller   = "seller"
	PartyRider    = "rider"
	PartyPlatform = "platform"
)

// Ledger reference formats. These strings are an external contract: they must stay
// stable so that replays from any caller converge on the original entry.

// PaymentCaptureReference is the topup recorded for an external payment confirmation.
func PaymentCaptureReference(orderID string) string {
	return fmt.Sprintf("payment:%s:capture", orderID)
}

// HoldReference is the buyer debit taken when escrow is created.
func HoldReference(orderID string) string {
	return fmt.Sprintf("escrow:order:%s:hold", orderID)
}

// ReleaseReference is the credit to one party on release.
func ReleaseReference(orderID, party string) string {
	return fmt.Sprintf("order:%s:%s:release", orderID, party)
}

// RefundReference is the full buyer refund.
func RefundReference(orderID string) string {
	return fmt.Sprintf("escrow:order:%s:refund", orderID)
}

// PartialRefundReference is the direct buyer credit of a partial-refund resolution.
func PartialRefundReference(orderID string) string {
	return fmt.Sprintf("dispute:%s:partial_refund", orderID)
}

// RiderPenaltyReference is the penalty debit for a rider cancellation. The sequence
// distinguishes repeated cancellations by the same rider on one order.
func RiderPenaltyReference(orderID, riderID string, seq int) string {
	return fmt.Sprintf("cancellation:%s:rider_penalty:%s:%d", orderID, riderID, seq)
}

// DisputePenaltyReference is the penalty debit of a penalty resolution.
func DisputePenaltyReference(orderID, party string) string {
	return fmt.Sprintf("dispute:%s:%s_penalty", orderID, party)
}
