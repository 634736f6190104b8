package repositories

import (
	"context"

	"github.com/SscSPs/fulfillment_coordinator/internal/core/domain"
)

// EscrowRepository persists escrow holds and seller payouts.
type EscrowRepository interface {
	FindHoldByOrderID(ctx context.Context, orderID string) (*domain.EscrowHold, error)
	LockHoldByOrderID(ctx context.Context, orderID string) (*domain.EscrowHold, error)

	// InsertHoldIfAbsent reports false when the order already has a hold.
	InsertHoldIfAbsent(ctx context.Context, hold domain.EscrowHold) (bool, error)
	UpdateHold(ctx context.Context, hold domain.EscrowHold) error

	// InsertPayoutIfAbsent is idempotent per order.
	InsertPayoutIfAbsent(ctx context.Context, payout domain.Payout) (bool, error)
	FindPayoutByOrderID(ctx context.Context, orderID string) (*domain.Payout, error)
}
