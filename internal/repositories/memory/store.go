// Package memory is an in-process unit of work. Transactions are serialized by a
// single mutex and run against a copy of the state that replaces the committed
// state only when the callback succeeds.
package memory

import (
	"context"
	"maps"
	"slices"
	"sync"

	"github.com/SscSPs/fulfillment_coordinator/internal/core/domain"
	portsrepo "github.com/SscSPs/fulfillment_coordinator/internal/core/ports/repositories"
	"github.com/google/uuid"
)

type state struct {
	accounts    map[string]domain.Account // by user id
	entries     map[string]domain.LedgerEntry
	entryByRef  map[string]string
	audits      []domain.AuditRecord
	holds       map[string]domain.EscrowHold // by order id
	payouts     map[string]domain.Payout     // by order id
	orders      map[string]domain.Order
	orderItems  map[string][]domain.OrderItem
	history     map[string][]domain.OrderStatusHistory
	shops       map[string]domain.Shop
	products    map[string]domain.Product
	zoneFees    map[string]domain.ZoneFee
	workflows   map[string]domain.Workflow
	wfEvents    map[string][]domain.OrderWorkflowEvent
	riders      map[string]domain.Rider
	pools       map[string][]string // shop id -> rider ids
	jobs        map[string]domain.DispatchJob
	offers      map[string]domain.DispatchOffer
	proofs      []domain.DeliveryProof
	cancels     map[string]domain.Cancellation // by order id
	riderCancel []domain.RiderCancellation
	disputes    map[string]domain.Dispute
}

func newState() *state {
	return &state{
		accounts:   map[string]domain.Account{},
		entries:    map[string]domain.LedgerEntry{},
		entryByRef: map[string]string{},
		holds:      map[string]domain.EscrowHold{},
		payouts:    map[string]domain.Payout{},
		orders:     map[string]domain.Order{},
		orderItems: map[string][]domain.OrderItem{},
		history:    map[string][]domain.OrderStatusHistory{},
		shops:      map[string]domain.Shop{},
		products:   map[string]domain.Product{},
		zoneFees:   map[string]domain.ZoneFee{},
		workflows:  map[string]domain.Workflow{},
		wfEvents:   map[string][]domain.OrderWorkflowEvent{},
		riders:     map[string]domain.Rider{},
		pools:      map[string][]string{},
		jobs:       map[string]domain.DispatchJob{},
		offers:     map[string]domain.DispatchOffer{},
		cancels:    map[string]domain.Cancellation{},
		disputes:   map[string]domain.Dispute{},
	}
}

func cloneSliceMap[T any](in map[string][]T) map[string][]T {
	out := make(map[string][]T, len(in))
	for k, v := range in {
		out[k] = slices.Clone(v)
	}
	return out
}

// clone copies every collection so that in-place edits inside a transaction
// never reach the committed state.
func (s *state) clone() *state {
	return &state{
		accounts:    maps.Clone(s.accounts),
		entries:     maps.Clone(s.entries),
		entryByRef:  maps.Clone(s.entryByRef),
		audits:      slices.Clone(s.audits),
		holds:       maps.Clone(s.holds),
		payouts:     maps.Clone(s.payouts),
		orders:      maps.Clone(s.orders),
		orderItems:  cloneSliceMap(s.orderItems),
		history:     cloneSliceMap(s.history),
		shops:       maps.Clone(s.shops),
		products:    maps.Clone(s.products),
		zoneFees:    maps.Clone(s.zoneFees),
		workflows:   maps.Clone(s.workflows),
		wfEvents:    cloneSliceMap(s.wfEvents),
		riders:      maps.Clone(s.riders),
		pools:       cloneSliceMap(s.pools),
		jobs:        maps.Clone(s.jobs),
		offers:      maps.Clone(s.offers),
		proofs:      slices.Clone(s.proofs),
		cancels:     maps.Clone(s.cancels),
		riderCancel: slices.Clone(s.riderCancel),
		disputes:    maps.Clone(s.disputes),
	}
}

// Store is the memory TransactionManager.
type Store struct {
	mu    sync.Mutex
	state *state
}

// NewStore creates an empty store.
func NewStore() *Store {
	return &Store{state: newState()}
}

var _ portsrepo.TransactionManager = (*Store)(nil)

// WithinTx runs fn against a private copy of the state. The copy is committed
// when fn returns nil; after-commit hooks run once the lock is released.
func (s *Store) WithinTx(ctx context.Context, fn func(ctx context.Context, uow portsrepo.UnitOfWork) error) error {
	uow, err := s.run(ctx, fn)
	if err != nil {
		return err
	}
	for _, hook := range uow.hooks {
		hook(ctx)
	}
	return nil
}

// run holds the lock only for fn; a panic in fn releases it and discards the copy.
func (s *Store) run(ctx context.Context, fn func(ctx context.Context, uow portsrepo.UnitOfWork) error) (*unitOfWork, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	uow := &unitOfWork{st: s.state.clone()}
	if err := fn(ctx, uow); err != nil {
		return nil, err
	}
	s.state = uow.st
	return uow, nil
}

// AuditCount reports how many audit records are committed.
func (s *Store) AuditCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.state.audits)
}

type unitOfWork struct {
	st    *state
	hooks []func(ctx context.Context)
}

var _ portsrepo.UnitOfWork = (*unitOfWork)(nil)

func (u *unitOfWork) Accounts() portsrepo.AccountRepository           { return accountRepo{u.st} }
func (u *unitOfWork) Ledger() portsrepo.LedgerRepository              { return ledgerRepo{u.st} }
func (u *unitOfWork) Audit() portsrepo.AuditRepository                { return auditRepo{u.st} }
func (u *unitOfWork) Escrow() portsrepo.EscrowRepository              { return escrowRepo{u.st} }
func (u *unitOfWork) Orders() portsrepo.OrderRepository               { return orderRepo{u.st} }
func (u *unitOfWork) Shops() portsrepo.ShopRepository                 { return shopRepo{u.st} }
func (u *unitOfWork) Inventory() portsrepo.InventoryRepository        { return inventoryRepo{u.st} }
func (u *unitOfWork) Zones() portsrepo.ZoneRepository                 { return zoneRepo{u.st} }
func (u *unitOfWork) Workflows() portsrepo.WorkflowRepository         { return workflowRepo{u.st} }
func (u *unitOfWork) Riders() portsrepo.RiderRepository               { return riderRepo{u.st} }
func (u *unitOfWork) Dispatch() portsrepo.DispatchRepository          { return dispatchRepo{u.st} }
func (u *unitOfWork) Cancellations() portsrepo.CancellationRepository { return cancellationRepo{u.st} }
func (u *unitOfWork) Disputes() portsrepo.DisputeRepository           { return disputeRepo{u.st} }

func (u *unitOfWork) AfterCommit(fn func(ctx context.Context)) {
	u.hooks = append(u.hooks, fn)
}

func newID() string {
	return uuid.NewString()
}
