package memory

import (
	"context"
	"fmt"

	"github.com/SscSPs/fulfillment_coordinator/internal/apperrors"
	"github.com/SscSPs/fulfillment_coordinator/internal/core/domain"
)

type cancellationRepo struct{ st *state }

func (r cancellationRepo) FindCancellationByOrderID(_ context.Context, orderID string) (*domain.Cancellation, error) {
	c, ok := r.st.cancels[orderID]
	if !ok {
		return nil, fmt.Errorf("%w: cancellation for order %s", apperrors.ErrNotFound, orderID)
	}
	return &c, nil
}

func (r cancellationRepo) InsertCancellation(_ context.Context, cancellation domain.Cancellation) error {
	if _, exists := r.st.cancels[cancellation.OrderID]; exists {
		return fmt.Errorf("%w: cancellation for order %s", apperrors.ErrDuplicate, cancellation.OrderID)
	}
	r.st.cancels[cancellation.OrderID] = cancellation
	return nil
}

func (r cancellationRepo) InsertRiderCancellation(_ context.Context, cancellation domain.RiderCancellation) error {
	r.st.riderCancel = append(r.st.riderCancel, cancellation)
	return nil
}

func (r cancellationRepo) CountRiderCancellations(_ context.Context, orderID, riderID string) (int, error) {
	n := 0
	for _, c := range r.st.riderCancel {
		if c.OrderID == orderID && c.RiderID == riderID {
			n++
		}
	}
	return n, nil
}

type disputeRepo struct{ st *state }

func (r disputeRepo) FindDisputeByID(_ context.Context, disputeID string) (*domain.Dispute, error) {
	d, ok := r.st.disputes[disputeID]
	if !ok {
		return nil, fmt.Errorf("%w: dispute %s", apperrors.ErrNotFound, disputeID)
	}
	return &d, nil
}

func (r disputeRepo) FindDisputeByOrderID(_ context.Context, orderID string) (*domain.Dispute, error) {
	for _, d := range r.st.disputes {
		if d.OrderID == orderID {
			return &d, nil
		}
	}
	return nil, fmt.Errorf("%w: dispute for order %s", apperrors.ErrNotFound, orderID)
}

func (r disputeRepo) LockDispute(ctx context.Context, disputeID string) (*domain.Dispute, error) {
	return r.FindDisputeByID(ctx, disputeID)
}

func (r disputeRepo) InsertDispute(ctx context.Context, dispute domain.Dispute) error {
	if _, err := r.FindDisputeByOrderID(ctx, dispute.OrderID); err == nil {
		return fmt.Errorf("%w: dispute for order %s", apperrors.ErrDuplicate, dispute.OrderID)
	}
	r.st.disputes[dispute.DisputeID] = dispute
	return nil
}

func (r disputeRepo) UpdateDispute(_ context.Context, dispute domain.Dispute) error {
	if _, ok := r.st.disputes[dispute.DisputeID]; !ok {
		return fmt.Errorf("%w: dispute %s", apperrors.ErrNotFound, dispute.DisputeID)
	}
	r.st.disputes[dispute.DisputeID] = dispute
	return nil
}
