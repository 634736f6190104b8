package services

import (
	"context"
	"fmt"
	"time"

	"github.com/SscSPs/fulfillment_coordinator/internal/apperrors"
	"github.com/SscSPs/fulfillment_coordinator/internal/core/domain"
	portsrepo "github.com/SscSPs/fulfillment_coordinator/internal/core/ports/repositories"
	portssvc "github.com/SscSPs/fulfillment_coordinator/internal/core/ports/services"
	"github.com/SscSPs/fulfillment_coordinator/internal/dto"
	"github.com/SscSPs/fulfillment_coordinator/internal/utils/pagination"
)

type accountService struct {
	BaseService
	ledger portssvc.LedgerSvc
}

// NewAccountService creates a new AccountSvc.
func NewAccountService(base BaseService, ledger portssvc.LedgerSvc) portssvc.AccountSvc {
	return &accountService{BaseService: base, ledger: ledger}
}

var _ portssvc.AccountSvc = (*accountService)(nil)

func (s *accountService) GetAccount(ctx context.Context, uow portsrepo.UnitOfWork, userID string) (*domain.Account, error) {
	return uow.Accounts().FindAccountByUserID(ctx, userID)
}

// ListEntries returns one page of entries, newest first, with a keyset token
// for the next page.
func (s *accountService) ListEntries(ctx context.Context, uow portsrepo.UnitOfWork, userID string, req dto.ListEntriesParams) (*dto.ListEntriesResponse, error) {
	account, err := uow.Accounts().FindAccountByUserID(ctx, userID)
	if err != nil {
		return nil, err
	}

	limit := req.Limit
	if limit <= 0 {
		limit = 20
	}
	var afterCreatedAt *time.Time
	var afterID *string
	if req.NextToken != "" {
		createdAt, id, err := pagination.DecodeToken(req.NextToken)
		if err != nil {
			return nil, fmt.Errorf("%w: %v", apperrors.ErrValidation, err)
		}
		afterCreatedAt = &createdAt
		afterID = &id
	}

	// Fetch one extra row to know whether another page exists.
	entries, err := uow.Ledger().ListEntriesByAccount(ctx, account.AccountID, limit+1, afterCreatedAt, afterID)
	if err != nil {
		return nil, err
	}

	resp := &dto.ListEntriesResponse{Entries: entries}
	if len(entries) > limit {
		resp.Entries = entries[:limit]
		last := resp.Entries[limit-1]
		token := pagination.EncodeToken(last.CreatedAt, last.EntryID)
		resp.NextToken = &token
	}
	if resp.Entries == nil {
		resp.Entries = []domain.LedgerEntry{}
	}
	return resp, nil
}

func (s *accountService) TopUp(ctx context.Context, uow portsrepo.UnitOfWork, userID string, req dto.TopUpRequest) (*domain.LedgerEntry, error) {
	return s.ledger.Record(ctx, uow, domain.RecordEntry{
		UserID:            userID,
		Type:              domain.EntryTopup,
		Direction:         domain.DirectionIn,
		Amount:            domain.Money(req.Amount),
		Reference:         domain.TopUpReference(userID, req.ExternalReference),
		RelatedEntityType: "wallet",
		RelatedEntityID:   userID,
		Metadata:          map[string]string{"external_reference": req.ExternalReference},
	})
}
