package repositories

import (
	"context"
)

// UnitOfWork exposes every repository bound to one open transaction. Lock* methods
// take exclusive row locks held until commit. Callers lock in the fixed order
// Order, then EscrowHold/DispatchJob/DispatchOffer, then Account.
type UnitOfWork interface {
	Accounts() AccountRepository
	Ledger() LedgerRepository
	Audit() AuditRepository
	Escrow() EscrowRepository
	Orders() OrderRepository
	Shops() ShopRepository
	Inventory() InventoryRepository
	Zones() ZoneRepository
	Workflows() WorkflowRepository
	Riders() RiderRepository
	Dispatch() DispatchRepository
	Cancellations() CancellationRepository
	Disputes() DisputeRepository

	// AfterCommit registers fn to run once the transaction has committed. It is
	// discarded on rollback.
	AfterCommit(fn func(ctx context.Context))
}

// TransactionManager runs fn inside one transaction. A returned error rolls back
// every write made through the unit of work.
type TransactionManager interface {
	WithinTx(ctx context.Context, fn func(ctx context.Context, uow UnitOfWork) error) error
}
