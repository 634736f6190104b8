package domain

import (
	"fmt"
	"time"

	"github.com/shopspring/decimal"
)

// AccountStatus is the lifecycle state of a balance account.
type AccountStatus string

const (
	AccountActive AccountStatus = "active"
	AccountFrozen AccountStatus = "frozen"
)

// Account holds one user's balance. Only the ledger mutates Balance.
type Account struct {
	AccountID    string          `json:"accountID"`
	UserID       string          `json:"userID"`
	Balance      decimal.Decimal `json:"balance"`
	CurrencyCode string          `json:"currencyCode"`
	Status       AccountStatus   `json:"status"`
	AuditFields
}

// EntryType classifies a ledger entry.
type EntryType string

const (
	EntryTopup   EntryType = "topup"
	EntryDebit   EntryType = "debit"
	EntryCredit  EntryType = "credit"
	EntryHold    EntryType = "hold"
	EntryRelease EntryType = "release"
	EntryRefund  EntryType = "refund"
	EntryFee     EntryType = "fee"
)

// IsValid reports whether t is a known entry type.
func (t EntryType) IsValid() bool {
	switch t {
	case EntryTopup, EntryDebit, EntryCredit, EntryHold, EntryRelease, EntryRefund, EntryFee:
		return true
	default:
		return false
	}
}

// Direction tells whether an entry adds to or subtracts from the balance.
type Direction string

const (
	DirectionIn  Direction = "in"
	DirectionOut Direction = "out"
)

// LedgerEntry is an immutable balance-affecting record. Reference is the
// idempotency key.
type LedgerEntry struct {
	EntryID           string            `json:"entryID"`
	AccountID         string            `json:"accountID"`
	Type              EntryType         `json:"type"`
	Direction         Direction         `json:"direction"`
	Amount            decimal.Decimal   `json:"amount"`
	BalanceAfter      decimal.Decimal   `json:"balanceAfter"`
	Reference         string            `json:"reference"`
	RelatedEntityType string            `json:"relatedEntityType,omitempty"`
	RelatedEntityID   string            `json:"relatedEntityID,omitempty"`
	Metadata          map[string]string `json:"metadata,omitempty"`
	CreatedAt         time.Time         `json:"createdAt"`
}

// RecordEntry is the input to the ledger's record operation.
type RecordEntry struct {
	UserID            string
	Type              EntryType
	Direction         Direction
	Amount            decimal.Decimal
	Reference         string
	RelatedEntityType string
	RelatedEntityID   string
	Metadata          map[string]string
}

// AuditRecord is appended for every ledger and escrow mutation.
type AuditRecord struct {
	AuditID    string            `json:"auditID"`
	EntityType string            `json:"entityType"`
	EntityID   string            `json:"entityID"`
	Action     string            `json:"action"`
	ActorID    string            `json:"actorID,omitempty"`
	Metadata   map[string]string `json:"metadata,omitempty"`
	CreatedAt  time.Time         `json:"createdAt"`
}

// TopUpReference is the wallet credit of an external top-up.
func TopUpReference(userID, externalReference string) string {
	return fmt.Sprintf("wallet:%s:topup:%s", userID, externalReference)
}
