package dto

import (
	"time"

	"github.com/SscSPs/fulfillment_coordinator/internal/core/domain"
	"github.com/shopspring/decimal"
)

// AccountResponse defines the data returned for a balance account.
type AccountResponse struct {
	AccountID    string               `json:"accountID"`
	UserID       string               `json:"userID"`
	Balance      decimal.Decimal      `json:"balance"`
	CurrencyCode string               `json:"currencyCode"`
	Status       domain.AccountStatus `json:"status"`
	CreatedAt    time.Time            `json:"createdAt"`
}

// ToAccountResponse converts a domain.Account to AccountResponse DTO
func ToAccountResponse(acc *domain.Account) AccountResponse {
	return AccountResponse{
		AccountID:    acc.AccountID,
		UserID:       acc.UserID,
		Balance:      acc.Balance,
		CurrencyCode: acc.CurrencyCode,
		Status:       acc.Status,
		CreatedAt:    acc.CreatedAt,
	}
}

// ListEntriesParams defines query parameters for listing ledger entries.
type ListEntriesParams struct {
	Limit     int    `form:"limit,default=20" binding:"gte=1,lte=100"`
	NextToken string `form:"nextToken"`
}

// ListEntriesResponse is one page of ledger entries, newest first.
type ListEntriesResponse struct {
	Entries   []domain.LedgerEntry `json:"entries"`
	NextToken *string              `json:"nextToken,omitempty"`
}

// TopUpRequest is the webhook body of an external wallet top-up.
type TopUpRequest struct {
	ExternalReference string          `json:"externalReference" binding:"required"`
	Amount            decimal.Decimal `json:"amount" binding:"dgt0"`
}
