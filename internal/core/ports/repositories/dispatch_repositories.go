package repositories

import (
	"context"

	"github.com/SscSPs/fulfillment_coordinator/internal/core/domain"
)

// RiderRepository reads and updates delivery partners.
type RiderRepository interface {
	FindRiderByID(ctx context.Context, riderID string) (*domain.Rider, error)
	FindRiderByUserID(ctx context.Context, userID string) (*domain.Rider, error)
	SaveRider(ctx context.Context, rider domain.Rider) error
	SetRiderStatus(ctx context.Context, riderID string, status domain.RiderStatus) error

	// ListPrivatePoolRiders returns the riders a shop has pre-approved.
	ListPrivatePoolRiders(ctx context.Context, shopID string) ([]domain.Rider, error)
	AddToPrivatePool(ctx context.Context, shopID, riderID string) error

	// ListActiveRidersInZone returns active riders operating in a zone.
	ListActiveRidersInZone(ctx context.Context, zoneID string) ([]domain.Rider, error)
}

// DispatchRepository persists dispatch jobs, offers and proofs.
type DispatchRepository interface {
	FindJob(ctx context.Context, orderID string, purpose domain.DispatchPurpose) (*domain.DispatchJob, error)
	FindJobByID(ctx context.Context, jobID string) (*domain.DispatchJob, error)
	LockJob(ctx context.Context, jobID string) (*domain.DispatchJob, error)

	// InsertJobIfAbsent is idempotent per (order, purpose).
	InsertJobIfAbsent(ctx context.Context, job domain.DispatchJob) (bool, error)
	UpdateJob(ctx context.Context, job domain.DispatchJob) error

	FindOffer(ctx context.Context, offerID string) (*domain.DispatchOffer, error)
	LockOffer(ctx context.Context, offerID string) (*domain.DispatchOffer, error)

	// InsertOfferIfAbsent is idempotent per (job, rider).
	InsertOfferIfAbsent(ctx context.Context, offer domain.DispatchOffer) (bool, error)
	UpdateOffer(ctx context.Context, offer domain.DispatchOffer) error
	ListOffersByJob(ctx context.Context, jobID string) ([]domain.DispatchOffer, error)

	InsertProof(ctx context.Context, proof domain.DeliveryProof) error
	FindLatestProof(ctx context.Context, jobID string, kind domain.ProofKind) (*domain.DeliveryProof, error)
}
