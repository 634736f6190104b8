package pgsql

import (
	"context"

	"github.com/SscSPs/fulfillment_coordinator/internal/core/domain"
	"github.com/jackc/pgx/v5"
	"github.com/shopspring/decimal"
)

const orderColumns = `order_id, buyer_id, shop_id, zone_id, kind, status, payment_status,
	subtotal, delivery_fee, rider_share, platform_fee, total, rider_id,
	workflow_id, current_step_id, workflow_state, eta_min_minutes, eta_max_minutes,
	quote_amount, quote_note, quote_status, quote_sent_at, quote_decided_at,
	requires_delivery_otp, delivery_otp_hash, delivery_otp_expires,
	admin_paused_at, pause_reason, delivered_at,
	created_at, created_by, last_updated_at, last_updated_by`

type orderRepo struct{ q querier }

func scanOrder(row rowScanner) (*domain.Order, error) {
	var o domain.Order
	var quote decimal.NullDecimal
	err := row.Scan(&o.OrderID, &o.BuyerID, &o.ShopID, &o.ZoneID, &o.Kind, &o.Status, &o.PaymentStatus,
		&o.Subtotal, &o.DeliveryFee, &o.RiderShare, &o.PlatformFee, &o.Total, &o.RiderID,
		&o.WorkflowID, &o.CurrentStepID, &o.WorkflowState, &o.EtaMinMinutes, &o.EtaMaxMinutes,
		&quote, &o.QuoteNote, &o.QuoteStatus, &o.QuoteSentAt, &o.QuoteDecidedAt,
		&o.RequiresDeliveryOTP, &o.DeliveryOTPHash, &o.DeliveryOTPExpires,
		&o.AdminPausedAt, &o.PauseReason, &o.DeliveredAt,
		&o.CreatedAt, &o.CreatedBy, &o.LastUpdatedAt, &o.LastUpdatedBy)
	if err != nil {
		return nil, err
	}
	if quote.Valid {
		o.QuoteAmount = &quote.Decimal
	}
	return &o, nil
}

func orderArgs(o domain.Order) []any {
	quote := decimal.NullDecimal{}
	if o.QuoteAmount != nil {
		quote = decimal.NewNullDecimal(*o.QuoteAmount)
	}
	return []any{o.OrderID, o.BuyerID, o.ShopID, o.ZoneID, o.Kind, o.Status, o.PaymentStatus,
		o.Subtotal, o.DeliveryFee, o.RiderShare, o.PlatformFee, o.Total, o.RiderID,
		o.WorkflowID, o.CurrentStepID, o.WorkflowState, o.EtaMinMinutes, o.EtaMaxMinutes,
		quote, o.QuoteNote, o.QuoteStatus, o.QuoteSentAt, o.QuoteDecidedAt,
		o.RequiresDeliveryOTP, o.DeliveryOTPHash, o.DeliveryOTPExpires,
		o.AdminPausedAt, o.PauseReason, o.DeliveredAt,
		o.CreatedAt, o.CreatedBy, o.LastUpdatedAt, o.LastUpdatedBy}
}

func (r orderRepo) FindOrderByID(ctx context.Context, orderID string) (*domain.Order, error) {
	order, err := scanOrder(r.q.QueryRow(ctx, `SELECT `+orderColumns+` FROM orders WHERE order_id = $1`, orderID))
	if err != nil {
		return nil, mapError(err, "order "+orderID)
	}
	return order, nil
}

func (r orderRepo) LockOrder(ctx context.Context, orderID string) (*domain.Order, error) {
	order, err := scanOrder(r.q.QueryRow(ctx, `SELECT `+orderColumns+` FROM orders WHERE order_id = $1 FOR UPDATE`, orderID))
	if err != nil {
		return nil, mapError(err, "order "+orderID)
	}
	return order, nil
}

func scanItem(row rowScanner) (*domain.OrderItem, error) {
	var it domain.OrderItem
	if err := row.Scan(&it.ItemID, &it.OrderID, &it.ProductID, &it.Quantity, &it.UnitPrice, &it.Restocked); err != nil {
		return nil, err
	}
	return &it, nil
}

func (r orderRepo) ListOrderItems(ctx context.Context, orderID string) ([]domain.OrderItem, error) {
	return queryAll(ctx, r.q, "items of order "+orderID, scanItem, `
		SELECT item_id, order_id, product_id, quantity, unit_price, restocked
		FROM order_items WHERE order_id = $1 ORDER BY item_id`, orderID)
}

func scanHistory(row rowScanner) (*domain.OrderStatusHistory, error) {
	var h domain.OrderStatusHistory
	if err := row.Scan(&h.HistoryID, &h.OrderID, &h.FromStatus, &h.ToStatus, &h.ActorID, &h.Reason, &h.CreatedAt); err != nil {
		return nil, err
	}
	return &h, nil
}

func (r orderRepo) ListStatusHistory(ctx context.Context, orderID string) ([]domain.OrderStatusHistory, error) {
	return queryAll(ctx, r.q, "status history of order "+orderID, scanHistory, `
		SELECT history_id, order_id, from_status, to_status, actor_id, reason, created_at
		FROM order_status_history WHERE order_id = $1 ORDER BY seq`, orderID)
}

// InsertOrder writes the order and its lines in one batch.
func (r orderRepo) InsertOrder(ctx context.Context, order domain.Order, items []domain.OrderItem) error {
	batch := &pgx.Batch{}
	batch.Queue(`INSERT INTO orders (`+orderColumns+`) VALUES (
		$1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17,
		$18, $19, $20, $21, $22, $23, $24, $25, $26, $27, $28, $29, $30, $31, $32, $33)`,
		orderArgs(order)...)
	for _, it := range items {
		batch.Queue(`
			INSERT INTO order_items (item_id, order_id, product_id, quantity, unit_price, restocked)
			VALUES ($1, $2, $3, $4, $5, $6)`,
			it.ItemID, order.OrderID, it.ProductID, it.Quantity, it.UnitPrice, it.Restocked)
	}
	if err := r.q.SendBatch(ctx, batch).Close(); err != nil {
		return mapError(err, "order "+order.OrderID)
	}
	return nil
}

func (r orderRepo) UpdateOrder(ctx context.Context, o domain.Order) error {
	quote := decimal.NullDecimal{}
	if o.QuoteAmount != nil {
		quote = decimal.NewNullDecimal(*o.QuoteAmount)
	}
	tag, err := r.q.Exec(ctx, `
		UPDATE orders SET
			status = $2, payment_status = $3,
			subtotal = $4, delivery_fee = $5, rider_share = $6, platform_fee = $7, total = $8, rider_id = $9,
			workflow_id = $10, current_step_id = $11, workflow_state = $12, eta_min_minutes = $13, eta_max_minutes = $14,
			quote_amount = $15, quote_note = $16, quote_status = $17, quote_sent_at = $18, quote_decided_at = $19,
			requires_delivery_otp = $20, delivery_otp_hash = $21, delivery_otp_expires = $22,
			admin_paused_at = $23, pause_reason = $24, delivered_at = $25,
			last_updated_at = $26, last_updated_by = $27
		WHERE order_id = $1`,
		o.OrderID, o.Status, o.PaymentStatus,
		o.Subtotal, o.DeliveryFee, o.RiderShare, o.PlatformFee, o.Total, o.RiderID,
		o.WorkflowID, o.CurrentStepID, o.WorkflowState, o.EtaMinMinutes, o.EtaMaxMinutes,
		quote, o.QuoteNote, o.QuoteStatus, o.QuoteSentAt, o.QuoteDecidedAt,
		o.RequiresDeliveryOTP, o.DeliveryOTPHash, o.DeliveryOTPExpires,
		o.AdminPausedAt, o.PauseReason, o.DeliveredAt,
		o.LastUpdatedAt, o.LastUpdatedBy)
	return expectOne(tag, err, "order "+o.OrderID)
}

func (r orderRepo) AppendStatusHistory(ctx context.Context, h domain.OrderStatusHistory) error {
	_, err := r.q.Exec(ctx, `
		INSERT INTO order_status_history (history_id, order_id, from_status, to_status, actor_id, reason, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)`,
		h.HistoryID, h.OrderID, h.FromStatus, h.ToStatus, h.ActorID, h.Reason, h.CreatedAt)
	return mapError(err, "status history of order "+h.OrderID)
}

type shopRepo struct{ q querier }

func (r shopRepo) FindShopByID(ctx context.Context, shopID string) (*domain.Shop, error) {
	var s domain.Shop
	err := r.q.QueryRow(ctx, `
		SELECT shop_id, seller_id, name, category, zone_id, default_workflow_id
		FROM shops WHERE shop_id = $1`, shopID).
		Scan(&s.ShopID, &s.SellerID, &s.Name, &s.Category, &s.ZoneID, &s.DefaultWorkflowID)
	if err != nil {
		return nil, mapError(err, "shop "+shopID)
	}
	return &s, nil
}

func (r shopRepo) SaveShop(ctx context.Context, s domain.Shop) error {
	_, err := r.q.Exec(ctx, `
		INSERT INTO shops (shop_id, seller_id, name, category, zone_id, default_workflow_id)
		VALUES ($1, $2, $3, $4, $5, $6)
		ON CONFLICT (shop_id) DO UPDATE SET
			seller_id = EXCLUDED.seller_id, name = EXCLUDED.name, category = EXCLUDED.category,
			zone_id = EXCLUDED.zone_id, default_workflow_id = EXCLUDED.default_workflow_id`,
		s.ShopID, s.SellerID, s.Name, s.Category, s.ZoneID, s.DefaultWorkflowID)
	return mapError(err, "shop "+s.ShopID)
}

type inventoryRepo struct{ q querier }

func (r inventoryRepo) FindProductByID(ctx context.Context, productID string) (*domain.Product, error) {
	var p domain.Product
	err := r.q.QueryRow(ctx, `
		SELECT product_id, shop_id, name, price, stock FROM products WHERE product_id = $1`, productID).
		Scan(&p.ProductID, &p.ShopID, &p.Name, &p.Price, &p.Stock)
	if err != nil {
		return nil, mapError(err, "product "+productID)
	}
	return &p, nil
}

func (r inventoryRepo) SaveProduct(ctx context.Context, p domain.Product) error {
	_, err := r.q.Exec(ctx, `
		INSERT INTO products (product_id, shop_id, name, price, stock)
		VALUES ($1, $2, $3, $4, $5)
		ON CONFLICT (product_id) DO UPDATE SET
			shop_id = EXCLUDED.shop_id, name = EXCLUDED.name, price = EXCLUDED.price, stock = EXCLUDED.stock`,
		p.ProductID, p.ShopID, p.Name, p.Price, p.Stock)
	return mapError(err, "product "+p.ProductID)
}

// ReserveStock decrements stock with a guarded update so concurrent orders cannot
// oversell.
func (r inventoryRepo) ReserveStock(ctx context.Context, productID string, quantity int) error {
	tag, err := r.q.Exec(ctx, `
		UPDATE products SET stock = stock - $2 WHERE product_id = $1 AND stock >= $2`,
		productID, quantity)
	if err != nil {
		return mapError(err, "product "+productID)
	}
	if tag.RowsAffected() == 1 {
		return nil
	}
	if _, err := r.FindProductByID(ctx, productID); err != nil {
		return err
	}
	return domain.ErrOutOfStock
}

func (r inventoryRepo) RestoreOrderStock(ctx context.Context, orderID string) (int, error) {
	_, err := r.q.Exec(ctx, `
		UPDATE products p SET stock = p.stock + i.qty
		FROM (
			SELECT product_id, SUM(quantity) AS qty
			FROM order_items WHERE order_id = $1 AND NOT restocked
			GROUP BY product_id
		) i
		WHERE p.product_id = i.product_id`, orderID)
	if err != nil {
		return 0, mapError(err, "stock of order "+orderID)
	}
	tag, err := r.q.Exec(ctx, `
		UPDATE order_items SET restocked = TRUE WHERE order_id = $1 AND NOT restocked`, orderID)
	if err != nil {
		return 0, mapError(err, "items of order "+orderID)
	}
	return int(tag.RowsAffected()), nil
}

type zoneRepo struct{ q querier }

func (r zoneRepo) FeeForZone(ctx context.Context, zoneID string) (*domain.ZoneFee, error) {
	var f domain.ZoneFee
	err := r.q.QueryRow(ctx, `
		SELECT zone_id, delivery_fee, rider_share, platform_fee FROM zone_fees WHERE zone_id = $1`, zoneID).
		Scan(&f.ZoneID, &f.DeliveryFee, &f.RiderShare, &f.PlatformFee)
	if err != nil {
		return nil, mapError(err, "fee rule for zone "+zoneID)
	}
	return &f, nil
}

func (r zoneRepo) SaveZoneFee(ctx context.Context, f domain.ZoneFee) error {
	_, err := r.q.Exec(ctx, `
		INSERT INTO zone_fees (zone_id, delivery_fee, rider_share, platform_fee)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT (zone_id) DO UPDATE SET
			delivery_fee = EXCLUDED.delivery_fee, rider_share = EXCLUDED.rider_share,
			platform_fee = EXCLUDED.platform_fee`,
		f.ZoneID, f.DeliveryFee, f.RiderShare, f.PlatformFee)
	return mapError(err, "fee rule for zone "+f.ZoneID)
}
