// Package pgsql is the PostgreSQL unit of work. Every repository is bound to the
// pgx.Tx opened by TransactionManager.WithinTx and Lock* methods use
// SELECT ... FOR UPDATE.
package pgsql

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/SscSPs/fulfillment_coordinator/internal/apperrors"
	portsrepo "github.com/SscSPs/fulfillment_coordinator/internal/core/ports/repositories"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

// querier is the subset of pgx.Tx the repositories need.
type querier interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
	SendBatch(ctx context.Context, b *pgx.Batch) pgx.BatchResults
}

// rowScanner is satisfied by both pgx.Row and pgx.Rows.
type rowScanner interface {
	Scan(dest ...any) error
}

// TransactionManager opens one pgx transaction per WithinTx call.
type TransactionManager struct {
	Pool *pgxpool.Pool
}

// NewTransactionManager creates a TransactionManager over pool.
func NewTransactionManager(pool *pgxpool.Pool) *TransactionManager {
	return &TransactionManager{Pool: pool}
}

var _ portsrepo.TransactionManager = (*TransactionManager)(nil)

// WithinTx runs fn in a read-committed transaction. Hooks registered through
// AfterCommit run only when the commit succeeds.
func (m *TransactionManager) WithinTx(ctx context.Context, fn func(ctx context.Context, uow portsrepo.UnitOfWork) error) error {
	tx, err := m.begin(ctx)
	if err != nil {
		return err
	}
	defer m.rollback(ctx, tx) // no-op once committed

	uow := &unitOfWork{q: tx}
	if err := fn(ctx, uow); err != nil {
		return err
	}
	if err := m.commit(ctx, tx); err != nil {
		return err
	}

	for _, hook := range uow.hooks {
		hook(ctx)
	}
	return nil
}

func (m *TransactionManager) begin(ctx context.Context) (pgx.Tx, error) {
	tx, err := m.Pool.BeginTx(ctx, pgx.TxOptions{IsoLevel: pgx.ReadCommitted})
	if err != nil {
		return nil, apperrors.NewAppError(500, "failed to begin transaction", err)
	}
	return tx, nil
}

func (m *TransactionManager) commit(ctx context.Context, tx pgx.Tx) error {
	if err := tx.Commit(ctx); err != nil {
		return apperrors.NewAppError(500, "failed to commit transaction", err)
	}
	return nil
}

func (m *TransactionManager) rollback(ctx context.Context, tx pgx.Tx) {
	if err := tx.Rollback(ctx); err != nil && !errors.Is(err, pgx.ErrTxClosed) {
		slog.ErrorContext(ctx, "failed to rollback transaction", slog.String("error", err.Error()))
	}
}

type unitOfWork struct {
	q     querier
	hooks []func(ctx context.Context)
}

var _ portsrepo.UnitOfWork = (*unitOfWork)(nil)

func (u *unitOfWork) Accounts() portsrepo.AccountRepository           { return accountRepo{u.q} }
func (u *unitOfWork) Ledger() portsrepo.LedgerRepository              { return ledgerRepo{u.q} }
func (u *unitOfWork) Audit() portsrepo.AuditRepository                { return auditRepo{u.q} }
func (u *unitOfWork) Escrow() portsrepo.EscrowRepository              { return escrowRepo{u.q} }
func (u *unitOfWork) Orders() portsrepo.OrderRepository               { return orderRepo{u.q} }
func (u *unitOfWork) Shops() portsrepo.ShopRepository                 { return shopRepo{u.q} }
func (u *unitOfWork) Inventory() portsrepo.InventoryRepository        { return inventoryRepo{u.q} }
func (u *unitOfWork) Zones() portsrepo.ZoneRepository                 { return zoneRepo{u.q} }
func (u *unitOfWork) Workflows() portsrepo.WorkflowRepository         { return workflowRepo{u.q} }
func (u *unitOfWork) Riders() portsrepo.RiderRepository               { return riderRepo{u.q} }
func (u *unitOfWork) Dispatch() portsrepo.DispatchRepository          { return dispatchRepo{u.q} }
func (u *unitOfWork) Cancellations() portsrepo.CancellationRepository { return cancellationRepo{u.q} }
func (u *unitOfWork) Disputes() portsrepo.DisputeRepository           { return disputeRepo{u.q} }

func (u *unitOfWork) AfterCommit(fn func(ctx context.Context)) {
	u.hooks = append(u.hooks, fn)
}

// mapError translates driver errors into the apperrors taxonomy. what names the
// row for the message.
func mapError(err error, what string) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, pgx.ErrNoRows) {
		return fmt.Errorf("%w: %s", apperrors.ErrNotFound, what)
	}
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == "23505" { // unique_violation
		return fmt.Errorf("%w: %s", apperrors.ErrDuplicate, what)
	}
	return apperrors.NewAppError(500, "database error on "+what, err)
}

// expectOne turns a zero-row update into ErrNotFound.
func expectOne(tag pgconn.CommandTag, err error, what string) error {
	if err != nil {
		return mapError(err, what)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("%w: %s", apperrors.ErrNotFound, what)
	}
	return nil
}
