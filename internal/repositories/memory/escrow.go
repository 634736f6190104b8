package memory

import (
	"context"
	"fmt"

	"github.com/SscSPs/fulfillment_coordinator/internal/apperrors"
	"github.com/SscSPs/fulfillment_coordinator/internal/core/domain"
)

type escrowRepo struct{ st *state }

func (r escrowRepo) FindHoldByOrderID(_ context.Context, orderID string) (*domain.EscrowHold, error) {
	hold, ok := r.st.holds[orderID]
	if !ok {
		return nil, fmt.Errorf("%w: escrow hold for order %s", apperrors.ErrNotFound, orderID)
	}
	return &hold, nil
}

func (r escrowRepo) LockHoldByOrderID(ctx context.Context, orderID string) (*domain.EscrowHold, error) {
	return r.FindHoldByOrderID(ctx, orderID)
}

func (r escrowRepo) InsertHoldIfAbsent(_ context.Context, hold domain.EscrowHold) (bool, error) {
	if _, exists := r.st.holds[hold.OrderID]; exists {
		return false, nil
	}
	r.st.holds[hold.OrderID] = hold
	return true, nil
}

func (r escrowRepo) UpdateHold(_ context.Context, hold domain.EscrowHold) error {
	if _, exists := r.st.holds[hold.OrderID]; !exists {
		return fmt.Errorf("%w: escrow hold for order %s", apperrors.ErrNotFound, hold.OrderID)
	}
	r.st.holds[hold.OrderID] = hold
	return nil
}

func (r escrowRepo) InsertPayoutIfAbsent(_ context.Context, payout domain.Payout) (bool, error) {
	if _, exists := r.st.payouts[payout.OrderID]; exists {
		return false, nil
	}
	r.st.payouts[payout.OrderID] = payout
	return true, nil
}

func (r escrowRepo) FindPayoutByOrderID(_ context.Context, orderID string) (*domain.Payout, error) {
	payout, ok := r.st.payouts[orderID]
	if !ok {
		return nil, fmt.Errorf("%w: payout for order %s", apperrors.ErrNotFound, orderID)
	}
	return &payout, nil
}
