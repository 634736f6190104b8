package memory_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/SscSPs/fulfillment_coordinator/internal/apperrors"
	"github.com/SscSPs/fulfillment_coordinator/internal/core/domain"
	portsrepo "github.com/SscSPs/fulfillment_coordinator/internal/core/ports/repositories"
	"github.com/SscSPs/fulfillment_coordinator/internal/repositories/memory"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var errBoom = errors.New("boom")

func TestWithinTx_RollsBackOnError(t *testing.T) {
	ctx := context.Background()
	store := memory.NewStore()
	require.NoError(t, store.WithinTx(ctx, func(ctx context.Context, uow portsrepo.UnitOfWork) error {
		return uow.Inventory().SaveProduct(ctx, domain.Product{ProductID: "p1", ShopID: "s1", Price: decimal.NewFromInt(5), Stock: 3})
	}))

	hookRan := false
	err := store.WithinTx(ctx, func(ctx context.Context, uow portsrepo.UnitOfWork) error {
		uow.AfterCommit(func(context.Context) { hookRan = true })
		require.NoError(t, uow.Inventory().ReserveStock(ctx, "p1", 2))
		require.NoError(t, uow.Audit().AppendAudit(ctx, domain.AuditRecord{AuditID: "a1"}))
		return errBoom
	})
	require.ErrorIs(t, err, errBoom)
	assert.False(t, hookRan)
	assert.Equal(t, 0, store.AuditCount())

	require.NoError(t, store.WithinTx(ctx, func(ctx context.Context, uow portsrepo.UnitOfWork) error {
		p, err := uow.Inventory().FindProductByID(ctx, "p1")
		require.NoError(t, err)
		assert.Equal(t, 3, p.Stock)
		return nil
	}))
}

func TestWithinTx_HooksRunAfterCommit(t *testing.T) {
	ctx := context.Background()
	store := memory.NewStore()

	var order []string
	require.NoError(t, store.WithinTx(ctx, func(ctx context.Context, uow portsrepo.UnitOfWork) error {
		uow.AfterCommit(func(ctx context.Context) {
			// The hook sees committed state and may open its own transaction.
			err := store.WithinTx(ctx, func(ctx context.Context, uow portsrepo.UnitOfWork) error {
				_, err := uow.Shops().FindShopByID(ctx, "s1")
				return err
			})
			assert.NoError(t, err)
			order = append(order, "first")
		})
		uow.AfterCommit(func(context.Context) { order = append(order, "second") })
		return uow.Shops().SaveShop(ctx, domain.Shop{ShopID: "s1", SellerID: "u1"})
	}))
	assert.Equal(t, []string{"first", "second"}, order)
}

func TestReserveStock_OutOfStock(t *testing.T) {
	ctx := context.Background()
	store := memory.NewStore()
	err := store.WithinTx(ctx, func(ctx context.Context, uow portsrepo.UnitOfWork) error {
		require.NoError(t, uow.Inventory().SaveProduct(ctx, domain.Product{ProductID: "p1", Stock: 1}))
		return uow.Inventory().ReserveStock(ctx, "p1", 2)
	})
	assert.ErrorIs(t, err, domain.ErrOutOfStock)

	err = store.WithinTx(ctx, func(ctx context.Context, uow portsrepo.UnitOfWork) error {
		return uow.Inventory().ReserveStock(ctx, "missing", 1)
	})
	assert.ErrorIs(t, err, apperrors.ErrNotFound)
}

func TestInsertIfAbsent_Uniqueness(t *testing.T) {
	ctx := context.Background()
	store := memory.NewStore()
	require.NoError(t, store.WithinTx(ctx, func(ctx context.Context, uow portsrepo.UnitOfWork) error {
		ok, err := uow.Dispatch().InsertOfferIfAbsent(ctx, domain.DispatchOffer{OfferID: "o1", JobID: "j1", RiderID: "r1", Status: domain.OfferSent})
		require.NoError(t, err)
		assert.True(t, ok)
		ok, err = uow.Dispatch().InsertOfferIfAbsent(ctx, domain.DispatchOffer{OfferID: "o2", JobID: "j1", RiderID: "r1", Status: domain.OfferSent})
		require.NoError(t, err)
		assert.False(t, ok)

		ok, err = uow.Ledger().InsertEntryIfAbsent(ctx, domain.LedgerEntry{EntryID: "e1", Reference: "ref"})
		require.NoError(t, err)
		assert.True(t, ok)
		ok, err = uow.Ledger().InsertEntryIfAbsent(ctx, domain.LedgerEntry{EntryID: "e2", Reference: "ref"})
		require.NoError(t, err)
		assert.False(t, ok)

		entry, err := uow.Ledger().FindEntryByReference(ctx, "ref")
		require.NoError(t, err)
		assert.Equal(t, "e1", entry.EntryID)
		return nil
	}))
}

func TestListEntriesByAccount_Keyset(t *testing.T) {
	ctx := context.Background()
	store := memory.NewStore()
	base := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	require.NoError(t, store.WithinTx(ctx, func(ctx context.Context, uow portsrepo.UnitOfWork) error {
		for i, id := range []string{"e1", "e2", "e3"} {
			_, err := uow.Ledger().InsertEntryIfAbsent(ctx, domain.LedgerEntry{
				EntryID:   id,
				AccountID: "acc",
				Reference: "ref-" + id,
				CreatedAt: base.Add(time.Duration(i) * time.Minute),
			})
			require.NoError(t, err)
		}
		_, err := uow.Ledger().InsertEntryIfAbsent(ctx, domain.LedgerEntry{EntryID: "x", AccountID: "other", Reference: "ref-x", CreatedAt: base})
		return err
	}))

	require.NoError(t, store.WithinTx(ctx, func(ctx context.Context, uow portsrepo.UnitOfWork) error {
		first, err := uow.Ledger().ListEntriesByAccount(ctx, "acc", 2, nil, nil)
		require.NoError(t, err)
		require.Len(t, first, 2)
		assert.Equal(t, "e3", first[0].EntryID)
		assert.Equal(t, "e2", first[1].EntryID)

		rest, err := uow.Ledger().ListEntriesByAccount(ctx, "acc", 2, &first[1].CreatedAt, &first[1].EntryID)
		require.NoError(t, err)
		require.Len(t, rest, 1)
		assert.Equal(t, "e1", rest[0].EntryID)
		return nil
	}))
}

func TestLockAccountByUserID_CreatesOnFirstUse(t *testing.T) {
	ctx := context.Background()
	store := memory.NewStore()
	now := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	require.NoError(t, store.WithinTx(ctx, func(ctx context.Context, uow portsrepo.UnitOfWork) error {
		_, err := uow.Accounts().FindAccountByUserID(ctx, "u1")
		assert.ErrorIs(t, err, apperrors.ErrNotFound)

		acc, err := uow.Accounts().LockAccountByUserID(ctx, "u1", "INR", now)
		require.NoError(t, err)
		assert.True(t, acc.Balance.IsZero())
		assert.Equal(t, domain.AccountActive, acc.Status)

		again, err := uow.Accounts().LockAccountByUserID(ctx, "u1", "INR", now)
		require.NoError(t, err)
		assert.Equal(t, acc.AccountID, again.AccountID)
		return nil
	}))
}

func TestWithinTx_PanicReleasesLockAndDiscardsChanges(t *testing.T) {
	ctx := context.Background()
	store := memory.NewStore()

	assert.Panics(t, func() {
		_ = store.WithinTx(ctx, func(ctx context.Context, uow portsrepo.UnitOfWork) error {
			require.NoError(t, uow.Shops().SaveShop(ctx, domain.Shop{ShopID: "s1", SellerID: "u1"}))
			panic("handler bug")
		})
	})

	done := make(chan error, 1)
	go func() {
		done <- store.WithinTx(ctx, func(ctx context.Context, uow portsrepo.UnitOfWork) error {
			_, err := uow.Shops().FindShopByID(ctx, "s1")
			return err
		})
	}()
	select {
	case err := <-done:
		assert.ErrorIs(t, err, apperrors.ErrNotFound)
	case <-time.After(2 * time.Second):
		t.Fatal("store stayed locked after a panicking transaction")
	}
}
