package memory

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/SscSPs/fulfillment_coordinator/internal/apperrors"
	"github.com/SscSPs/fulfillment_coordinator/internal/core/domain"
	"github.com/shopspring/decimal"
)

type accountRepo struct{ st *state }

func (r accountRepo) FindAccountByUserID(_ context.Context, userID string) (*domain.Account, error) {
	acc, ok := r.st.accounts[userID]
	if !ok {
		return nil, fmt.Errorf("%w: account for user %s", apperrors.ErrNotFound, userID)
	}
	return &acc, nil
}

func (r accountRepo) LockAccountByUserID(_ context.Context, userID string, currencyCode string, now time.Time) (*domain.Account, error) {
	acc, ok := r.st.accounts[userID]
	if !ok {
		acc = domain.Account{
			AccountID:    newID(),
			UserID:       userID,
			Balance:      decimal.Zero,
			CurrencyCode: currencyCode,
			Status:       domain.AccountActive,
			AuditFields: domain.AuditFields{
				CreatedAt:     now,
				CreatedBy:     userID,
				LastUpdatedAt: now,
				LastUpdatedBy: userID,
			},
		}
		r.st.accounts[userID] = acc
	}
	return &acc, nil
}

func (r accountRepo) byID(accountID string) (string, bool) {
	for userID, acc := range r.st.accounts {
		if acc.AccountID == accountID {
			return userID, true
		}
	}
	return "", false
}

func (r accountRepo) UpdateAccountBalance(_ context.Context, accountID string, balance decimal.Decimal, now time.Time) error {
	userID, ok := r.byID(accountID)
	if !ok {
		return fmt.Errorf("%w: account %s", apperrors.ErrNotFound, accountID)
	}
	acc := r.st.accounts[userID]
	acc.Balance = balance
	acc.LastUpdatedAt = now
	r.st.accounts[userID] = acc
	return nil
}

func (r accountRepo) SetAccountStatus(_ context.Context, accountID string, status domain.AccountStatus, now time.Time) error {
	userID, ok := r.byID(accountID)
	if !ok {
		return fmt.Errorf("%w: account %s", apperrors.ErrNotFound, accountID)
	}
	acc := r.st.accounts[userID]
	acc.Status = status
	acc.LastUpdatedAt = now
	r.st.accounts[userID] = acc
	return nil
}

type ledgerRepo struct{ st *state }

func (r ledgerRepo) FindEntryByReference(_ context.Context, reference string) (*domain.LedgerEntry, error) {
	id, ok := r.st.entryByRef[reference]
	if !ok {
		return nil, fmt.Errorf("%w: ledger entry %s", apperrors.ErrNotFound, reference)
	}
	entry := r.st.entries[id]
	return &entry, nil
}

func (r ledgerRepo) InsertEntryIfAbsent(_ context.Context, entry domain.LedgerEntry) (bool, error) {
	if _, exists := r.st.entryByRef[entry.Reference]; exists {
		return false, nil
	}
	r.st.entries[entry.EntryID] = entry
	r.st.entryByRef[entry.Reference] = entry.EntryID
	return true, nil
}

func (r ledgerRepo) ListEntriesByAccount(_ context.Context, accountID string, limit int, afterCreatedAt *time.Time, afterID *string) ([]domain.LedgerEntry, error) {
	out := []domain.LedgerEntry{}
	for _, e := range r.st.entries {
		if e.AccountID != accountID {
			continue
		}
		if afterCreatedAt != nil && afterID != nil {
			if e.CreatedAt.After(*afterCreatedAt) {
				continue
			}
			if e.CreatedAt.Equal(*afterCreatedAt) && e.EntryID >= *afterID {
				continue
			}
		}
		out = append(out, e)
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].CreatedAt.After(out[j].CreatedAt)
		}
		return out[i].EntryID > out[j].EntryID
	})
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

type auditRepo struct{ st *state }

func (r auditRepo) AppendAudit(_ context.Context, record domain.AuditRecord) error {
	r.st.audits = append(r.st.audits, record)
	return nil
}
