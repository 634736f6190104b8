package pgsql

import (
	"context"

	"github.com/SscSPs/fulfillment_coordinator/internal/core/domain"
)

const riderColumns = `rider_id, user_id, zone_id, status, is_active`

type riderRepo struct{ q querier }

func scanRider(row rowScanner) (*domain.Rider, error) {
	var rd domain.Rider
	if err := row.Scan(&rd.RiderID, &rd.UserID, &rd.ZoneID, &rd.Status, &rd.IsActive); err != nil {
		return nil, err
	}
	return &rd, nil
}

func (r riderRepo) FindRiderByID(ctx context.Context, riderID string) (*domain.Rider, error) {
	rider, err := scanRider(r.q.QueryRow(ctx, `SELECT `+riderColumns+` FROM riders WHERE rider_id = $1`, riderID))
	if err != nil {
		return nil, mapError(err, "rider "+riderID)
	}
	return rider, nil
}

func (r riderRepo) FindRiderByUserID(ctx context.Context, userID string) (*domain.Rider, error) {
	rider, err := scanRider(r.q.QueryRow(ctx, `SELECT `+riderColumns+` FROM riders WHERE user_id = $1`, userID))
	if err != nil {
		return nil, mapError(err, "rider for user "+userID)
	}
	return rider, nil
}

func (r riderRepo) SaveRider(ctx context.Context, rd domain.Rider) error {
	_, err := r.q.Exec(ctx, `
		INSERT INTO riders (`+riderColumns+`) VALUES ($1, $2, $3, $4, $5)
		ON CONFLICT (rider_id) DO UPDATE SET
			user_id = EXCLUDED.user_id, zone_id = EXCLUDED.zone_id,
			status = EXCLUDED.status, is_active = EXCLUDED.is_active`,
		rd.RiderID, rd.UserID, rd.ZoneID, rd.Status, rd.IsActive)
	return mapError(err, "rider "+rd.RiderID)
}

func (r riderRepo) SetRiderStatus(ctx context.Context, riderID string, status domain.RiderStatus) error {
	tag, err := r.q.Exec(ctx, `UPDATE riders SET status = $2 WHERE rider_id = $1`, riderID, status)
	return expectOne(tag, err, "rider "+riderID)
}

func (r riderRepo) ListPrivatePoolRiders(ctx context.Context, shopID string) ([]domain.Rider, error) {
	return queryAll(ctx, r.q, "private pool of shop "+shopID, scanRider, `
		SELECT r.rider_id, r.user_id, r.zone_id, r.status, r.is_active
		FROM shop_private_pool p JOIN riders r ON r.rider_id = p.rider_id
		WHERE p.shop_id = $1 ORDER BY r.rider_id`, shopID)
}

func (r riderRepo) AddToPrivatePool(ctx context.Context, shopID, riderID string) error {
	_, err := r.q.Exec(ctx, `
		INSERT INTO shop_private_pool (shop_id, rider_id) VALUES ($1, $2)
		ON CONFLICT DO NOTHING`, shopID, riderID)
	return mapError(err, "private pool of shop "+shopID)
}

func (r riderRepo) ListActiveRidersInZone(ctx context.Context, zoneID string) ([]domain.Rider, error) {
	return queryAll(ctx, r.q, "riders in zone "+zoneID, scanRider, `
		SELECT `+riderColumns+` FROM riders
		WHERE zone_id = $1 AND is_active ORDER BY rider_id`, zoneID)
}

const jobColumns = `job_id, order_id, purpose, status, assigned_rider_id,
	private_pool_until, fallback_broadcast_at, assigned_at, created_at, updated_at`

type dispatchRepo struct{ q querier }

func scanJob(row rowScanner) (*domain.DispatchJob, error) {
	var j domain.DispatchJob
	err := row.Scan(&j.JobID, &j.OrderID, &j.Purpose, &j.Status, &j.AssignedRiderID,
		&j.PrivatePoolUntil, &j.FallbackBroadcastAt, &j.AssignedAt, &j.CreatedAt, &j.UpdatedAt)
	if err != nil {
		return nil, err
	}
	return &j, nil
}

func (r dispatchRepo) FindJob(ctx context.Context, orderID string, purpose domain.DispatchPurpose) (*domain.DispatchJob, error) {
	job, err := scanJob(r.q.QueryRow(ctx, `
		SELECT `+jobColumns+` FROM dispatch_jobs WHERE order_id = $1 AND purpose = $2`, orderID, purpose))
	if err != nil {
		return nil, mapError(err, string(purpose)+" job for order "+orderID)
	}
	return job, nil
}

func (r dispatchRepo) FindJobByID(ctx context.Context, jobID string) (*domain.DispatchJob, error) {
	job, err := scanJob(r.q.QueryRow(ctx, `SELECT `+jobColumns+` FROM dispatch_jobs WHERE job_id = $1`, jobID))
	if err != nil {
		return nil, mapError(err, "dispatch job "+jobID)
	}
	return job, nil
}

func (r dispatchRepo) LockJob(ctx context.Context, jobID string) (*domain.DispatchJob, error) {
	job, err := scanJob(r.q.QueryRow(ctx, `SELECT `+jobColumns+` FROM dispatch_jobs WHERE job_id = $1 FOR UPDATE`, jobID))
	if err != nil {
		return nil, mapError(err, "dispatch job "+jobID)
	}
	return job, nil
}

func (r dispatchRepo) InsertJobIfAbsent(ctx context.Context, j domain.DispatchJob) (bool, error) {
	tag, err := r.q.Exec(ctx, `
		INSERT INTO dispatch_jobs (`+jobColumns+`)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
		ON CONFLICT (order_id, purpose) DO NOTHING`,
		j.JobID, j.OrderID, j.Purpose, j.Status, j.AssignedRiderID,
		j.PrivatePoolUntil, j.FallbackBroadcastAt, j.AssignedAt, j.CreatedAt, j.UpdatedAt)
	if err != nil {
		return false, mapError(err, string(j.Purpose)+" job for order "+j.OrderID)
	}
	return tag.RowsAffected() == 1, nil
}

func (r dispatchRepo) UpdateJob(ctx context.Context, j domain.DispatchJob) error {
	tag, err := r.q.Exec(ctx, `
		UPDATE dispatch_jobs SET status = $2, assigned_rider_id = $3, private_pool_until = $4,
			fallback_broadcast_at = $5, assigned_at = $6, updated_at = $7
		WHERE job_id = $1`,
		j.JobID, j.Status, j.AssignedRiderID, j.PrivatePoolUntil, j.FallbackBroadcastAt, j.AssignedAt, j.UpdatedAt)
	return expectOne(tag, err, "dispatch job "+j.JobID)
}

const offerColumns = `offer_id, job_id, rider_id, status, sent_at, responded_at`

func scanOffer(row rowScanner) (*domain.DispatchOffer, error) {
	var o domain.DispatchOffer
	if err := row.Scan(&o.OfferID, &o.JobID, &o.RiderID, &o.Status, &o.SentAt, &o.RespondedAt); err != nil {
		return nil, err
	}
	return &o, nil
}

func (r dispatchRepo) FindOffer(ctx context.Context, offerID string) (*domain.DispatchOffer, error) {
	offer, err := scanOffer(r.q.QueryRow(ctx, `SELECT `+offerColumns+` FROM dispatch_offers WHERE offer_id = $1`, offerID))
	if err != nil {
		return nil, mapError(err, "dispatch offer "+offerID)
	}
	return offer, nil
}

func (r dispatchRepo) LockOffer(ctx context.Context, offerID string) (*domain.DispatchOffer, error) {
	offer, err := scanOffer(r.q.QueryRow(ctx, `SELECT `+offerColumns+` FROM dispatch_offers WHERE offer_id = $1 FOR UPDATE`, offerID))
	if err != nil {
		return nil, mapError(err, "dispatch offer "+offerID)
	}
	return offer, nil
}

func (r dispatchRepo) InsertOfferIfAbsent(ctx context.Context, o domain.DispatchOffer) (bool, error) {
	tag, err := r.q.Exec(ctx, `
		INSERT INTO dispatch_offers (`+offerColumns+`) VALUES ($1, $2, $3, $4, $5, $6)
		ON CONFLICT (job_id, rider_id) DO NOTHING`,
		o.OfferID, o.JobID, o.RiderID, o.Status, o.SentAt, o.RespondedAt)
	if err != nil {
		return false, mapError(err, "dispatch offer for rider "+o.RiderID)
	}
	return tag.RowsAffected() == 1, nil
}

func (r dispatchRepo) UpdateOffer(ctx context.Context, o domain.DispatchOffer) error {
	tag, err := r.q.Exec(ctx, `
		UPDATE dispatch_offers SET status = $2, sent_at = $3, responded_at = $4 WHERE offer_id = $1`,
		o.OfferID, o.Status, o.SentAt, o.RespondedAt)
	return expectOne(tag, err, "dispatch offer "+o.OfferID)
}

func (r dispatchRepo) ListOffersByJob(ctx context.Context, jobID string) ([]domain.DispatchOffer, error) {
	return queryAll(ctx, r.q, "offers of job "+jobID, scanOffer, `
		SELECT `+offerColumns+` FROM dispatch_offers
		WHERE job_id = $1 ORDER BY sent_at, rider_id`, jobID)
}

func (r dispatchRepo) InsertProof(ctx context.Context, p domain.DeliveryProof) error {
	_, err := r.q.Exec(ctx, `
		INSERT INTO delivery_proofs (proof_id, job_id, order_id, kind, photo_url, note, created_by, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`,
		p.ProofID, p.JobID, p.OrderID, p.Kind, p.PhotoURL, p.Note, p.CreatedBy, p.CreatedAt)
	return mapError(err, "proof for job "+p.JobID)
}

func (r dispatchRepo) FindLatestProof(ctx context.Context, jobID string, kind domain.ProofKind) (*domain.DeliveryProof, error) {
	var p domain.DeliveryProof
	err := r.q.QueryRow(ctx, `
		SELECT proof_id, job_id, order_id, kind, photo_url, note, created_by, created_at
		FROM delivery_proofs WHERE job_id = $1 AND kind = $2
		ORDER BY seq DESC LIMIT 1`, jobID, kind).
		Scan(&p.ProofID, &p.JobID, &p.OrderID, &p.Kind, &p.PhotoURL, &p.Note, &p.CreatedBy, &p.CreatedAt)
	if err != nil {
		return nil, mapError(err, string(kind)+" proof for job "+jobID)
	}
	return &p, nil
}
