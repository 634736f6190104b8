package services

import (
	"time"

	"github.com/shopspring/decimal"
)

// Settings are the business knobs of the coordinator.
type Settings struct {
	CurrencyCode string
	// PlatformUserID receives the platform fee on release. Empty disables the platform share.
	PlatformUserID     string
	PrivatePoolWindow  time.Duration
	AutoReleaseAfter   time.Duration
	RiderCancelPenalty decimal.Decimal
	DisputePenalty     decimal.Decimal
	DeliveryOTPTTL     time.Duration
}

// DefaultSettings mirrors the configuration defaults.
func DefaultSettings() Settings {
	return Settings{
		CurrencyCode:       "INR",
		PrivatePoolWindow:  10 * time.Minute,
		AutoReleaseAfter:   48 * time.Hour,
		RiderCancelPenalty: decimal.NewFromInt(5),
		DisputePenalty:     decimal.NewFromInt(10),
		DeliveryOTPTTL:     2 * time.Hour,
	}
}
