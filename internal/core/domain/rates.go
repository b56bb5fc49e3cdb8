package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// RateTable is a cached set of exchange rates for one base currency.
// An expired-but-present table is still usable as a last-resort fallback
// when a refetch fails.
type RateTable struct {
	BaseCurrency string                     `json:"baseCurrency"`
	Rates        map[string]decimal.Decimal `json:"rates"` // target code -> multiplier
	FetchedAt    time.Time                  `json:"fetchedAt"`
	ExpiresAt    time.Time                  `json:"expiresAt"`
}

// Expired reports whether the table is past its expiry.
func (t RateTable) Expired(now time.Time) bool {
	return now.After(t.ExpiresAt)
}
