package repositories

import (
	"context"

	"github.com/SscSPs/fulfillment_coordinator/internal/core/domain"
)

// CancellationRepository persists cancellations.
type CancellationRepository interface {
	FindCancellationByOrderID(ctx context.Context, orderID string) (*domain.Cancellation, error)

	// InsertCancellation fails with apperrors.ErrDuplicate for a second row per order.
	InsertCancellation(ctx context.Context, cancellation domain.Cancellation) error

	InsertRiderCancellation(ctx context.Context, cancellation domain.RiderCancellation) error
	CountRiderCancellations(ctx context.Context, orderID, riderID string) (int, error)
}

// DisputeRepository persists disputes.
type DisputeRepository interface {
	FindDisputeByID(ctx context.Context, disputeID string) (*domain.Dispute, error)
	FindDisputeByOrderID(ctx context.Context, orderID string) (*domain.Dispute, error)
	LockDispute(ctx context.Context, disputeID string) (*domain.Dispute, error)

	// InsertDispute fails with apperrors.ErrDuplicate for a second dispute per order.
	InsertDispute(ctx context.Context, dispute domain.Dispute) error
	UpdateDispute(ctx context.Context, dispute domain.Dispute) error
}
