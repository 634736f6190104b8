package pgsql

import (
	"context"
	"strings"
	"time"

	"github.com/SscSPs/fulfillment_coordinator/internal/core/domain"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

const accountColumns = `account_id, user_id, balance, currency_code, status,
	created_at, created_by, last_updated_at, last_updated_by`

type accountRepo struct{ q querier }

func scanAccount(row rowScanner) (*domain.Account, error) {
	var a domain.Account
	err := row.Scan(&a.AccountID, &a.UserID, &a.Balance, &a.CurrencyCode, &a.Status,
		&a.CreatedAt, &a.CreatedBy, &a.LastUpdatedAt, &a.LastUpdatedBy)
	if err != nil {
		return nil, err
	}
	return &a, nil
}

func (r accountRepo) FindAccountByUserID(ctx context.Context, userID string) (*domain.Account, error) {
	row := r.q.QueryRow(ctx, `SELECT `+accountColumns+` FROM accounts WHERE user_id = $1`, userID)
	acc, err := scanAccount(row)
	if err != nil {
		return nil, mapError(err, "account for user "+userID)
	}
	return acc, nil
}

// LockAccountByUserID creates the account on first use and then takes its row lock.
func (r accountRepo) LockAccountByUserID(ctx context.Context, userID string, currencyCode string, now time.Time) (*domain.Account, error) {
	_, err := r.q.Exec(ctx, `
		INSERT INTO accounts (account_id, user_id, balance, currency_code, status,
			created_at, created_by, last_updated_at, last_updated_by)
		VALUES ($1, $2, 0, $3, $4, $5, $2, $5, $2)
		ON CONFLICT (user_id) DO NOTHING`,
		uuid.NewString(), userID, currencyCode, domain.AccountActive, now)
	if err != nil {
		return nil, mapError(err, "account for user "+userID)
	}

	row := r.q.QueryRow(ctx, `SELECT `+accountColumns+` FROM accounts WHERE user_id = $1 FOR UPDATE`, userID)
	acc, err := scanAccount(row)
	if err != nil {
		return nil, mapError(err, "account for user "+userID)
	}
	return acc, nil
}

func (r accountRepo) UpdateAccountBalance(ctx context.Context, accountID string, balance decimal.Decimal, now time.Time) error {
	tag, err := r.q.Exec(ctx,
		`UPDATE accounts SET balance = $2, last_updated_at = $3 WHERE account_id = $1`,
		accountID, balance, now)
	return expectOne(tag, err, "account "+accountID)
}

func (r accountRepo) SetAccountStatus(ctx context.Context, accountID string, status domain.AccountStatus, now time.Time) error {
	tag, err := r.q.Exec(ctx,
		`UPDATE accounts SET status = $2, last_updated_at = $3 WHERE account_id = $1`,
		accountID, status, now)
	return expectOne(tag, err, "account "+accountID)
}

const entryColumns = `entry_id, account_id, entry_type, direction, amount, balance_after,
	reference, related_entity_type, related_entity_id, metadata, created_at`

type ledgerRepo struct{ q querier }

func scanEntry(row rowScanner) (*domain.LedgerEntry, error) {
	var e domain.LedgerEntry
	err := row.Scan(&e.EntryID, &e.AccountID, &e.Type, &e.Direction, &e.Amount, &e.BalanceAfter,
		&e.Reference, &e.RelatedEntityType, &e.RelatedEntityID, &e.Metadata, &e.CreatedAt)
	if err != nil {
		return nil, err
	}
	return &e, nil
}

func (r ledgerRepo) FindEntryByReference(ctx context.Context, reference string) (*domain.LedgerEntry, error) {
	row := r.q.QueryRow(ctx, `SELECT `+entryColumns+` FROM ledger_entries WHERE reference = $1`, reference)
	entry, err := scanEntry(row)
	if err != nil {
		return nil, mapError(err, "ledger entry "+reference)
	}
	return entry, nil
}

func (r ledgerRepo) InsertEntryIfAbsent(ctx context.Context, e domain.LedgerEntry) (bool, error) {
	tag, err := r.q.Exec(ctx, `
		INSERT INTO ledger_entries (`+entryColumns+`)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
		ON CONFLICT (reference) DO NOTHING`,
		e.EntryID, e.AccountID, e.Type, e.Direction, e.Amount, e.BalanceAfter,
		e.Reference, e.RelatedEntityType, e.RelatedEntityID, e.Metadata, e.CreatedAt)
	if err != nil {
		return false, mapError(err, "ledger entry "+e.Reference)
	}
	return tag.RowsAffected() == 1, nil
}

// ListEntriesByAccount pages newest first on (created_at, entry_id).
func (r ledgerRepo) ListEntriesByAccount(ctx context.Context, accountID string, limit int, afterCreatedAt *time.Time, afterID *string) ([]domain.LedgerEntry, error) {
	var sb strings.Builder
	sb.WriteString(`SELECT ` + entryColumns + ` FROM ledger_entries WHERE account_id = $1`)
	args := []any{accountID}
	if afterCreatedAt != nil && afterID != nil {
		sb.WriteString(` AND (created_at, entry_id) < ($2, $3)`)
		args = append(args, *afterCreatedAt, *afterID)
	}
	sb.WriteString(` ORDER BY created_at DESC, entry_id DESC`)
	if limit > 0 {
		args = append(args, limit)
		sb.WriteString(` LIMIT $` + itoa(len(args)))
	}

	return queryAll(ctx, r.q, "ledger entries of account "+accountID, scanEntry, sb.String(), args...)
}

type auditRepo struct{ q querier }

func (r auditRepo) AppendAudit(ctx context.Context, a domain.AuditRecord) error {
	_, err := r.q.Exec(ctx, `
		INSERT INTO audit_records (audit_id, entity_type, entity_id, action, actor_id, metadata, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)`,
		a.AuditID, a.EntityType, a.EntityID, a.Action, a.ActorID, a.Metadata, a.CreatedAt)
	return mapError(err, "audit record "+a.AuditID)
}
