package memory

import (
	"context"
	"fmt"
	"slices"
	"sort"

	"github.com/SscSPs/fulfillment_coordinator/internal/apperrors"
	"github.com/SscSPs/fulfillment_coordinator/internal/core/domain"
)

type riderRepo struct{ st *state }

func (r riderRepo) FindRiderByID(_ context.Context, riderID string) (*domain.Rider, error) {
	rider, ok := r.st.riders[riderID]
	if !ok {
		return nil, fmt.Errorf("%w: rider %s", apperrors.ErrNotFound, riderID)
	}
	return &rider, nil
}

func (r riderRepo) FindRiderByUserID(_ context.Context, userID string) (*domain.Rider, error) {
	for _, rider := range r.st.riders {
		if rider.UserID == userID {
			return &rider, nil
		}
	}
	return nil, fmt.Errorf("%w: rider for user %s", apperrors.ErrNotFound, userID)
}

func (r riderRepo) SaveRider(_ context.Context, rider domain.Rider) error {
	r.st.riders[rider.RiderID] = rider
	return nil
}

func (r riderRepo) SetRiderStatus(_ context.Context, riderID string, status domain.RiderStatus) error {
	rider, ok := r.st.riders[riderID]
	if !ok {
		return fmt.Errorf("%w: rider %s", apperrors.ErrNotFound, riderID)
	}
	rider.Status = status
	r.st.riders[riderID] = rider
	return nil
}

func (r riderRepo) ListPrivatePoolRiders(_ context.Context, shopID string) ([]domain.Rider, error) {
	out := []domain.Rider{}
	for _, id := range r.st.pools[shopID] {
		if rider, ok := r.st.riders[id]; ok {
			out = append(out, rider)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].RiderID < out[j].RiderID })
	return out, nil
}

func (r riderRepo) AddToPrivatePool(_ context.Context, shopID, riderID string) error {
	if slices.Contains(r.st.pools[shopID], riderID) {
		return nil
	}
	r.st.pools[shopID] = append(r.st.pools[shopID], riderID)
	return nil
}

func (r riderRepo) ListActiveRidersInZone(_ context.Context, zoneID string) ([]domain.Rider, error) {
	out := []domain.Rider{}
	for _, rider := range r.st.riders {
		if rider.ZoneID == zoneID && rider.IsActive {
			out = append(out, rider)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].RiderID < out[j].RiderID })
	return out, nil
}

type dispatchRepo struct{ st *state }

func (r dispatchRepo) FindJob(_ context.Context, orderID string, purpose domain.DispatchPurpose) (*domain.DispatchJob, error) {
	for _, job := range r.st.jobs {
		if job.OrderID == orderID && job.Purpose == purpose {
			return &job, nil
		}
	}
	return nil, fmt.Errorf("%w: %s job for order %s", apperrors.ErrNotFound, purpose, orderID)
}

func (r dispatchRepo) FindJobByID(_ context.Context, jobID string) (*domain.DispatchJob, error) {
	job, ok := r.st.jobs[jobID]
	if !ok {
		return nil, fmt.Errorf("%w: dispatch job %s", apperrors.ErrNotFound, jobID)
	}
	return &job, nil
}

func (r dispatchRepo) LockJob(ctx context.Context, jobID string) (*domain.DispatchJob, error) {
	return r.FindJobByID(ctx, jobID)
}

func (r dispatchRepo) InsertJobIfAbsent(ctx context.Context, job domain.DispatchJob) (bool, error) {
	if _, err := r.FindJob(ctx, job.OrderID, job.Purpose); err == nil {
		return false, nil
	}
	r.st.jobs[job.JobID] = job
	return true, nil
}

func (r dispatchRepo) UpdateJob(_ context.Context, job domain.DispatchJob) error {
	if _, ok := r.st.jobs[job.JobID]; !ok {
		return fmt.Errorf("%w: dispatch job %s", apperrors.ErrNotFound, job.JobID)
	}
	r.st.jobs[job.JobID] = job
	return nil
}

func (r dispatchRepo) FindOffer(_ context.Context, offerID string) (*domain.DispatchOffer, error) {
	offer, ok := r.st.offers[offerID]
	if !ok {
		return nil, fmt.Errorf("%w: offer %s", apperrors.ErrNotFound, offerID)
	}
	return &offer, nil
}

func (r dispatchRepo) LockOffer(ctx context.Context, offerID string) (*domain.DispatchOffer, error) {
	return r.FindOffer(ctx, offerID)
}

func (r dispatchRepo) InsertOfferIfAbsent(_ context.Context, offer domain.DispatchOffer) (bool, error) {
	for _, existing := range r.st.offers {
		if existing.JobID == offer.JobID && existing.RiderID == offer.RiderID {
			return false, nil
		}
	}
	r.st.offers[offer.OfferID] = offer
	return true, nil
}

func (r dispatchRepo) UpdateOffer(_ context.Context, offer domain.DispatchOffer) error {
	if _, ok := r.st.offers[offer.OfferID]; !ok {
		return fmt.Errorf("%w: offer %s", apperrors.ErrNotFound, offer.OfferID)
	}
	r.st.offers[offer.OfferID] = offer
	return nil
}

func (r dispatchRepo) ListOffersByJob(_ context.Context, jobID string) ([]domain.DispatchOffer, error) {
	out := []domain.DispatchOffer{}
	for _, offer := range r.st.offers {
		if offer.JobID == jobID {
			out = append(out, offer)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].SentAt.Equal(out[j].SentAt) {
			return out[i].SentAt.Before(out[j].SentAt)
		}
		return out[i].RiderID < out[j].RiderID
	})
	return out, nil
}

func (r dispatchRepo) InsertProof(_ context.Context, proof domain.DeliveryProof) error {
	r.st.proofs = append(r.st.proofs, proof)
	return nil
}

func (r dispatchRepo) FindLatestProof(_ context.Context, jobID string, kind domain.ProofKind) (*domain.DeliveryProof, error) {
	for i := len(r.st.proofs) - 1; i >= 0; i-- {
		p := r.st.proofs[i]
		if p.JobID == jobID && p.Kind == kind {
			return &p, nil
		}
	}
	return nil, fmt.Errorf("%w: %s proof for job %s", apperrors.ErrNotFound, kind, jobID)
}
