package pgsql

import (
	"context"

	"github.com/SscSPs/fulfillment_coordinator/internal/core/domain"
	"github.com/shopspring/decimal"
)

type cancellationRepo struct{ q querier }

func (r cancellationRepo) FindCancellationByOrderID(ctx context.Context, orderID string) (*domain.Cancellation, error) {
	var c domain.Cancellation
	err := r.q.QueryRow(ctx, `
		SELECT cancellation_id, order_id, actor_id, actor_role, reason, refunded, created_at
		FROM cancellations WHERE order_id = $1`, orderID).
		Scan(&c.CancellationID, &c.OrderID, &c.ActorID, &c.ActorRole, &c.Reason, &c.Refunded, &c.CreatedAt)
	if err != nil {
		return nil, mapError(err, "cancellation of order "+orderID)
	}
	return &c, nil
}

func (r cancellationRepo) InsertCancellation(ctx context.Context, c domain.Cancellation) error {
	_, err := r.q.Exec(ctx, `
		INSERT INTO cancellations (cancellation_id, order_id, actor_id, actor_role, reason, refunded, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)`,
		c.CancellationID, c.OrderID, c.ActorID, c.ActorRole, c.Reason, c.Refunded, c.CreatedAt)
	return mapError(err, "cancellation of order "+c.OrderID)
}

func (r cancellationRepo) InsertRiderCancellation(ctx context.Context, c domain.RiderCancellation) error {
	_, err := r.q.Exec(ctx, `
		INSERT INTO rider_cancellations (rider_cancellation_id, order_id, job_id, rider_id, reason,
			penalty_amount, penalty_entry_id, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`,
		c.RiderCancellationID, c.OrderID, c.JobID, c.RiderID, c.Reason,
		c.PenaltyAmount, c.PenaltyEntryID, c.CreatedAt)
	return mapError(err, "rider cancellation of order "+c.OrderID)
}

func (r cancellationRepo) CountRiderCancellations(ctx context.Context, orderID, riderID string) (int, error) {
	var n int
	err := r.q.QueryRow(ctx, `
		SELECT COUNT(*) FROM rider_cancellations WHERE order_id = $1 AND rider_id = $2`, orderID, riderID).Scan(&n)
	if err != nil {
		return 0, mapError(err, "rider cancellations of order "+orderID)
	}
	return n, nil
}

const disputeColumns = `dispute_id, order_id, raised_by, reason, status, resolution,
	refund_amount, resolved_by, resolved_at, resolution_note, created_at`

type disputeRepo struct{ q querier }

func scanDispute(row rowScanner) (*domain.Dispute, error) {
	var d domain.Dispute
	var refund decimal.NullDecimal
	err := row.Scan(&d.DisputeID, &d.OrderID, &d.RaisedBy, &d.Reason, &d.Status, &d.Resolution,
		&refund, &d.ResolvedBy, &d.ResolvedAt, &d.ResolutionNote, &d.CreatedAt)
	if err != nil {
		return nil, err
	}
	if refund.Valid {
		d.RefundAmount = &refund.Decimal
	}
	return &d, nil
}

func disputeArgs(d domain.Dispute) []any {
	refund := decimal.NullDecimal{}
	if d.RefundAmount != nil {
		refund = decimal.NewNullDecimal(*d.RefundAmount)
	}
	return []any{d.DisputeID, d.OrderID, d.RaisedBy, d.Reason, d.Status, d.Resolution,
		refund, d.ResolvedBy, d.ResolvedAt, d.ResolutionNote, d.CreatedAt}
}

func (r disputeRepo) FindDisputeByID(ctx context.Context, disputeID string) (*domain.Dispute, error) {
	d, err := scanDispute(r.q.QueryRow(ctx, `SELECT `+disputeColumns+` FROM disputes WHERE dispute_id = $1`, disputeID))
	if err != nil {
		return nil, mapError(err, "dispute "+disputeID)
	}
	return d, nil
}

func (r disputeRepo) FindDisputeByOrderID(ctx context.Context, orderID string) (*domain.Dispute, error) {
	d, err := scanDispute(r.q.QueryRow(ctx, `SELECT `+disputeColumns+` FROM disputes WHERE order_id = $1`, orderID))
	if err != nil {
		return nil, mapError(err, "dispute for order "+orderID)
	}
	return d, nil
}

func (r disputeRepo) LockDispute(ctx context.Context, disputeID string) (*domain.Dispute, error) {
	d, err := scanDispute(r.q.QueryRow(ctx, `SELECT `+disputeColumns+` FROM disputes WHERE dispute_id = $1 FOR UPDATE`, disputeID))
	if err != nil {
		return nil, mapError(err, "dispute "+disputeID)
	}
	return d, nil
}

func (r disputeRepo) InsertDispute(ctx context.Context, d domain.Dispute) error {
	_, err := r.q.Exec(ctx, `
		INSERT INTO disputes (`+disputeColumns+`)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)`, disputeArgs(d)...)
	return mapError(err, "dispute for order "+d.OrderID)
}

func (r disputeRepo) UpdateDispute(ctx context.Context, d domain.Dispute) error {
	refund := decimal.NullDecimal{}
	if d.RefundAmount != nil {
		refund = decimal.NewNullDecimal(*d.RefundAmount)
	}
	tag, err := r.q.Exec(ctx, `
		UPDATE disputes SET status = $2, resolution = $3, refund_amount = $4, resolved_by = $5,
			resolved_at = $6, resolution_note = $7
		WHERE dispute_id = $1`,
		d.DisputeID, d.Status, d.Resolution, refund, d.ResolvedBy, d.ResolvedAt, d.ResolutionNote)
	return expectOne(tag, err, "dispute "+d.DisputeID)
}
