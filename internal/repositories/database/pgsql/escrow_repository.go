package pgsql

import (
	"context"

	"github.com/SscSPs/fulfillment_coordinator/internal/core/domain"
)

const holdColumns = `hold_id, order_id, buyer_id, seller_id, amount, status, expires_at,
	released_at, refunded_at, settled_by, created_at, created_by, last_updated_at, last_updated_by`

type escrowRepo struct{ q querier }

func scanHold(row rowScanner) (*domain.EscrowHold, error) {
	var h domain.EscrowHold
	err := row.Scan(&h.HoldID, &h.OrderID, &h.BuyerID, &h.SellerID, &h.Amount, &h.Status, &h.ExpiresAt,
		&h.ReleasedAt, &h.RefundedAt, &h.SettledBy, &h.CreatedAt, &h.CreatedBy, &h.LastUpdatedAt, &h.LastUpdatedBy)
	if err != nil {
		return nil, err
	}
	return &h, nil
}

func (r escrowRepo) FindHoldByOrderID(ctx context.Context, orderID string) (*domain.EscrowHold, error) {
	hold, err := scanHold(r.q.QueryRow(ctx, `SELECT `+holdColumns+` FROM escrow_holds WHERE order_id = $1`, orderID))
	if err != nil {
		return nil, mapError(err, "escrow hold for order "+orderID)
	}
	return hold, nil
}

func (r escrowRepo) LockHoldByOrderID(ctx context.Context, orderID string) (*domain.EscrowHold, error) {
	hold, err := scanHold(r.q.QueryRow(ctx, `SELECT `+holdColumns+` FROM escrow_holds WHERE order_id = $1 FOR UPDATE`, orderID))
	if err != nil {
		return nil, mapError(err, "escrow hold for order "+orderID)
	}
	return hold, nil
}

func (r escrowRepo) InsertHoldIfAbsent(ctx context.Context, h domain.EscrowHold) (bool, error) {
	tag, err := r.q.Exec(ctx, `
		INSERT INTO escrow_holds (`+holdColumns+`)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14)
		ON CONFLICT (order_id) DO NOTHING`,
		h.HoldID, h.OrderID, h.BuyerID, h.SellerID, h.Amount, h.Status, h.ExpiresAt,
		h.ReleasedAt, h.RefundedAt, h.SettledBy, h.CreatedAt, h.CreatedBy, h.LastUpdatedAt, h.LastUpdatedBy)
	if err != nil {
		return false, mapError(err, "escrow hold for order "+h.OrderID)
	}
	return tag.RowsAffected() == 1, nil
}

func (r escrowRepo) UpdateHold(ctx context.Context, h domain.EscrowHold) error {
	tag, err := r.q.Exec(ctx, `
		UPDATE escrow_holds
		SET status = $2, expires_at = $3, released_at = $4, refunded_at = $5, settled_by = $6,
			last_updated_at = $7, last_updated_by = $8
		WHERE hold_id = $1`,
		h.HoldID, h.Status, h.ExpiresAt, h.ReleasedAt, h.RefundedAt, h.SettledBy,
		h.LastUpdatedAt, h.LastUpdatedBy)
	return expectOne(tag, err, "escrow hold "+h.HoldID)
}

func (r escrowRepo) InsertPayoutIfAbsent(ctx context.Context, p domain.Payout) (bool, error) {
	tag, err := r.q.Exec(ctx, `
		INSERT INTO payouts (payout_id, order_id, seller_id, amount, status, created_at)
		VALUES ($1, $2, $3, $4, $5, $6)
		ON CONFLICT (order_id) DO NOTHING`,
		p.PayoutID, p.OrderID, p.SellerID, p.Amount, p.Status, p.CreatedAt)
	if err != nil {
		return false, mapError(err, "payout for order "+p.OrderID)
	}
	return tag.RowsAffected() == 1, nil
}

func (r escrowRepo) FindPayoutByOrderID(ctx context.Context, orderID string) (*domain.Payout, error) {
	var p domain.Payout
	err := r.q.QueryRow(ctx, `
		SELECT payout_id, order_id, seller_id, amount, status, created_at
		FROM payouts WHERE order_id = $1`, orderID).
		Scan(&p.PayoutID, &p.OrderID, &p.SellerID, &p.Amount, &p.Status, &p.CreatedAt)
	if err != nil {
		return nil, mapError(err, "payout for order "+orderID)
	}
	return &p, nil
}
