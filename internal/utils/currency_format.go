package utils

import (
	"github.com/SscSPs/fulfillment_coordinator/internal/core/domain"
	"github.com/shopspring/decimal"
)

// FormatMoney formats an amount at the ledger's fixed-point scale.
// Example: 12.3 returns "12.30"
func FormatMoney(amount decimal.Decimal) string {
	return amount.StringFixed(domain.MoneyPlaces)
}
