package repositories

import (
	"context"
	"time"

	"github.com/SscSPs/fulfillment_coordinator/internal/core/domain"
	"github.com/shopspring/decimal"
)

// AccountReader defines read operations for balance accounts
type AccountReader interface {
	// FindAccountByUserID returns apperrors.ErrNotFound when the user has no account yet.
	FindAccountByUserID(ctx context.Context, userID string) (*domain.Account, error)
}

// AccountWriter defines write operations for balance accounts
type AccountWriter interface {
	// LockAccountByUserID selects the user's account for update, creating it first
	// when it does not exist.
	LockAccountByUserID(ctx context.Context, userID string, currencyCode string, now time.Time) (*domain.Account, error)

	// UpdateAccountBalance sets the balance of a locked account.
	UpdateAccountBalance(ctx context.Context, accountID string, balance decimal.Decimal, now time.Time) error

	// SetAccountStatus freezes or re-activates an account.
	SetAccountStatus(ctx context.Context, accountID string, status domain.AccountStatus, now time.Time) error
}

// AccountRepository combines all account operations
type AccountRepository interface {
	AccountReader
	AccountWriter
}

// LedgerRepository persists immutable ledger entries.
type LedgerRepository interface {
	// FindEntryByReference returns apperrors.ErrNotFound when no entry carries reference.
	FindEntryByReference(ctx context.Context, reference string) (*domain.LedgerEntry, error)

	// InsertEntryIfAbsent inserts entry unless its reference already exists and
	// reports whether a row was written.
	InsertEntryIfAbsent(ctx context.Context, entry domain.LedgerEntry) (bool, error)

	// ListEntriesByAccount pages entries newest first. The cursor is the
	// (created_at, entry_id) of the last row of the previous page.
	ListEntriesByAccount(ctx context.Context, accountID string, limit int, afterCreatedAt *time.Time, afterID *string) ([]domain.LedgerEntry, error)
}

// AuditRepository appends audit records.
type AuditRepository interface {
	AppendAudit(ctx context.Context, record domain.AuditRecord) error
}
