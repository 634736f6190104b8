package memory

import (
	"context"
	"fmt"
	"slices"

	"github.com/SscSPs/fulfillment_coordinator/internal/apperrors"
	"github.com/SscSPs/fulfillment_coordinator/internal/core/domain"
)

type orderRepo struct{ st *state }

func (r orderRepo) FindOrderByID(_ context.Context, orderID string) (*domain.Order, error) {
	order, ok := r.st.orders[orderID]
	if !ok {
		return nil, fmt.Errorf("%w: order %s", apperrors.ErrNotFound, orderID)
	}
	return &order, nil
}

func (r orderRepo) ListOrderItems(_ context.Context, orderID string) ([]domain.OrderItem, error) {
	return slices.Clone(r.st.orderItems[orderID]), nil
}

func (r orderRepo) ListStatusHistory(_ context.Context, orderID string) ([]domain.OrderStatusHistory, error) {
	out := slices.Clone(r.st.history[orderID])
	if out == nil {
		out = []domain.OrderStatusHistory{}
	}
	return out, nil
}

func (r orderRepo) InsertOrder(_ context.Context, order domain.Order, items []domain.OrderItem) error {
	if _, exists := r.st.orders[order.OrderID]; exists {
		return fmt.Errorf("%w: order %s", apperrors.ErrDuplicate, order.OrderID)
	}
	r.st.orders[order.OrderID] = order
	r.st.orderItems[order.OrderID] = slices.Clone(items)
	return nil
}

func (r orderRepo) LockOrder(ctx context.Context, orderID string) (*domain.Order, error) {
	return r.FindOrderByID(ctx, orderID)
}

func (r orderRepo) UpdateOrder(_ context.Context, order domain.Order) error {
	if _, exists := r.st.orders[order.OrderID]; !exists {
		return fmt.Errorf("%w: order %s", apperrors.ErrNotFound, order.OrderID)
	}
	r.st.orders[order.OrderID] = order
	return nil
}

func (r orderRepo) AppendStatusHistory(_ context.Context, history domain.OrderStatusHistory) error {
	r.st.history[history.OrderID] = append(r.st.history[history.OrderID], history)
	return nil
}

type shopRepo struct{ st *state }

func (r shopRepo) FindShopByID(_ context.Context, shopID string) (*domain.Shop, error) {
	shop, ok := r.st.shops[shopID]
	if !ok {
		return nil, fmt.Errorf("%w: shop %s", apperrors.ErrNotFound, shopID)
	}
	return &shop, nil
}

func (r shopRepo) SaveShop(_ context.Context, shop domain.Shop) error {
	r.st.shops[shop.ShopID] = shop
	return nil
}

type inventoryRepo struct{ st *state }

func (r inventoryRepo) FindProductByID(_ context.Context, productID string) (*domain.Product, error) {
	product, ok := r.st.products[productID]
	if !ok {
		return nil, fmt.Errorf("%w: product %s", apperrors.ErrNotFound, productID)
	}
	return &product, nil
}

func (r inventoryRepo) SaveProduct(_ context.Context, product domain.Product) error {
	r.st.products[product.ProductID] = product
	return nil
}

func (r inventoryRepo) ReserveStock(_ context.Context, productID string, quantity int) error {
	product, ok := r.st.products[productID]
	if !ok {
		return fmt.Errorf("%w: product %s", apperrors.ErrNotFound, productID)
	}
	if product.Stock < quantity {
		return domain.ErrOutOfStock
	}
	product.Stock -= quantity
	r.st.products[productID] = product
	return nil
}

func (r inventoryRepo) RestoreOrderStock(_ context.Context, orderID string) (int, error) {
	items := r.st.orderItems[orderID]
	restored := 0
	for i := range items {
		if items[i].Restocked {
			continue
		}
		if product, ok := r.st.products[items[i].ProductID]; ok {
			product.Stock += items[i].Quantity
			r.st.products[product.ProductID] = product
		}
		items[i].Restocked = true
		restored++
	}
	return restored, nil
}

type zoneRepo struct{ st *state }

func (r zoneRepo) FeeForZone(_ context.Context, zoneID string) (*domain.ZoneFee, error) {
	fee, ok := r.st.zoneFees[zoneID]
	if !ok {
		return nil, fmt.Errorf("%w: fee rule for zone %s", apperrors.ErrNotFound, zoneID)
	}
	return &fee, nil
}

func (r zoneRepo) SaveZoneFee(_ context.Context, fee domain.ZoneFee) error {
	r.st.zoneFees[fee.ZoneID] = fee
	return nil
}
