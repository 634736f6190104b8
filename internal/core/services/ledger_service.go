package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/SscSPs/fulfillment_coordinator/internal/apperrors"
	"github.com/SscSPs/fulfillment_coordinator/internal/core/domain"
	portsrepo "github.com/SscSPs/fulfillment_coordinator/internal/core/ports/repositories"
	portssvc "github.com/SscSPs/fulfillment_coordinator/internal/core/ports/services"
	"github.com/google/uuid"
)

// ledgerService owns every balance mutation.
type ledgerService struct {
	BaseService
	currencyCode string
}

// NewLedgerService creates a new LedgerSvc.
func NewLedgerService(base BaseService, currencyCode string) portssvc.LedgerSvc {
	return &ledgerService{BaseService: base, currencyCode: currencyCode}
}

var _ portssvc.LedgerSvc = (*ledgerService)(nil)

func (s *ledgerService) Record(ctx context.Context, uow portsrepo.UnitOfWork, in domain.RecordEntry) (*domain.LedgerEntry, error) {
	if in.Reference == "" || in.UserID == "" || !in.Type.IsValid() ||
		(in.Direction != domain.DirectionIn && in.Direction != domain.DirectionOut) {
		return nil, domain.ErrInvalidReference
	}

	existing, err := uow.Ledger().FindEntryByReference(ctx, in.Reference)
	if err == nil {
		s.LogDebug(ctx, "Ledger reference replayed", slog.String("reference", in.Reference))
		return existing, nil
	}
	if !errors.Is(err, apperrors.ErrNotFound) {
		return nil, err
	}

	now := s.Now()
	account, err := uow.Accounts().LockAccountByUserID(ctx, in.UserID, s.currencyCode, now)
	if err != nil {
		return nil, err
	}
	if account.Status == domain.AccountFrozen {
		return nil, domain.ErrAccountFrozen
	}

	amount := domain.Money(in.Amount)
	if !amount.IsPositive() {
		return nil, domain.ErrNonPositiveAmount
	}

	balance := account.Balance
	switch in.Direction {
	case domain.DirectionIn:
		balance = balance.Add(amount)
	case domain.DirectionOut:
		if amount.GreaterThan(balance) {
			return nil, fmt.Errorf("%w: balance %s, requested %s", apperrors.ErrInsufficientFunds, balance.StringFixed(domain.MoneyPlaces), amount.StringFixed(domain.MoneyPlaces))
		}
		balance = balance.Sub(amount)
	default:
		return nil, domain.ErrInvalidReference
	}

	entry := domain.LedgerEntry{
		EntryID:           uuid.NewString(),
		AccountID:         account.AccountID,
		Type:              in.Type,
		Direction:         in.Direction,
		Amount:            amount,
		BalanceAfter:      balance,
		Reference:         in.Reference,
		RelatedEntityType: in.RelatedEntityType,
		RelatedEntityID:   in.RelatedEntityID,
		Metadata:          in.Metadata,
		CreatedAt:         now,
	}
	inserted, err := uow.Ledger().InsertEntryIfAbsent(ctx, entry)
	if err != nil {
		return nil, err
	}
	if !inserted {
		// A concurrent caller won the reference between our lookup and insert.
		return uow.Ledger().FindEntryByReference(ctx, in.Reference)
	}

	if err := uow.Accounts().UpdateAccountBalance(ctx, account.AccountID, balance, now); err != nil {
		return nil, err
	}
	if err := s.Audit(ctx, uow, "ledger_entry", entry.EntryID, "ledger."+string(entry.Type), in.UserID, map[string]string{
		"reference": entry.Reference,
		"direction": string(entry.Direction),
		"amount":    amount.StringFixed(domain.MoneyPlaces),
	}); err != nil {
		return nil, err
	}

	s.LogInfo(ctx, "Ledger entry recorded",
		slog.String("entry_id", entry.EntryID),
		slog.String("user_id", in.UserID),
		slog.String("type", string(entry.Type)),
		slog.String("direction", string(entry.Direction)),
		slog.String("amount", amount.StringFixed(domain.MoneyPlaces)),
		slog.String("reference", entry.Reference))
	return &entry, nil
}
