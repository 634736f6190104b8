package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// AuditFields holds standard audit information for domain entities.
type AuditFields struct {
	CreatedAt     time.Time `json:"createdAt"`
	CreatedBy     string    `json:"createdBy"` // UserID Reference
	LastUpdatedAt time.Time `json:"lastUpdatedAt"`
	LastUpdatedBy string    `json:"lastUpdatedBy"` // UserID Reference
}

// ActorRole identifies which party is performing an operation.
type ActorRole string

const (
	RoleBuyer  ActorRole = "buyer"
	RoleSeller ActorRole = "seller"
	RoleRider  ActorRole = "rider"
	RoleAdmin  ActorRole = "admin"
	RoleSystem ActorRole = "system"
)

// Actor is the authenticated caller of a coordinator operation.
type Actor struct {
	UserID string    `json:"userID"`
	Role   ActorRole `json:"role"`
}

// SystemActor is used by scheduled tasks and webhook confirmations.
var SystemActor = Actor{UserID: "system", Role: RoleSystem}

// MoneyPlaces is the fixed-point scale of every monetary amount.
const MoneyPlaces = 2

// Money rounds an amount to the ledger's fixed-point scale.
func Money(d decimal.Decimal) decimal.Decimal {
	return d.Round(MoneyPlaces)
}

// MinMoney returns the smaller of two amounts.
func MinMoney(a, b decimal.Decimal) decimal.Decimal {
	if a.LessThan(b) {
		return a
	}
	return b
}

// StringPtr returns a pointer to s.
func StringPtr(s string) *string {
	return &s
}

// TimePtr returns a pointer to t.
func TimePtr(t time.Time) *time.Time {
	return &t
}
