package repositories

import (
	"context"

	"github.com/SscSPs/fulfillment_coordinator/internal/core/domain"
)

// OrderReader defines read operations for orders
type OrderReader interface {
	FindOrderByID(ctx context.Context, orderID string) (*domain.Order, error)
	ListOrderItems(ctx context.Context, orderID string) ([]domain.OrderItem, error)
	ListStatusHistory(ctx context.Context, orderID string) ([]domain.OrderStatusHistory, error)
}

// OrderWriter defines write operations for orders
type OrderWriter interface {
	InsertOrder(ctx context.Context, order domain.Order, items []domain.OrderItem) error
	LockOrder(ctx context.Context, orderID string) (*domain.Order, error)
	UpdateOrder(ctx context.Context, order domain.Order) error
	AppendStatusHistory(ctx context.Context, history domain.OrderStatusHistory) error
}

// OrderRepository combines all order operations
type OrderRepository interface {
	OrderReader
	OrderWriter
}

// ShopRepository reads seller storefronts.
type ShopRepository interface {
	FindShopByID(ctx context.Context, shopID string) (*domain.Shop, error)
	SaveShop(ctx context.Context, shop domain.Shop) error
}

// InventoryRepository is the stock collaborator.
type InventoryRepository interface {
	FindProductByID(ctx context.Context, productID string) (*domain.Product, error)
	SaveProduct(ctx context.Context, product domain.Product) error

	// ReserveStock decrements stock, failing with apperrors.ErrConflict when short.
	ReserveStock(ctx context.Context, productID string, quantity int) error

	// RestoreOrderStock returns the quantity of every not yet restocked line and
	// marks it restocked. It reports the number of lines restored.
	RestoreOrderStock(ctx context.Context, orderID string) (int, error)
}

// ZoneRepository is the delivery-fee collaborator.
type ZoneRepository interface {
	// FeeForZone returns apperrors.ErrNotFound for an unknown zone.
	FeeForZone(ctx context.Context, zoneID string) (*domain.ZoneFee, error)
	SaveZoneFee(ctx context.Context, fee domain.ZoneFee) error
}
