package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// SettlementType indicates the scope of a recorded payment.
type SettlementType string

const (
	SettlementGlobal      SettlementType = "GLOBAL"
	SettlementTagSpecific SettlementType = "TAG_SPECIFIC"
	SettlementPartial     SettlementType = "PARTIAL"
)

// Settlement records a point-in-time payment between two people. Settlements are
// immutable once created and, unlike expenses, hard-deletable.
type Settlement struct {
	SettlementID   string          `json:"settlementID"`
	From           PersonID        `json:"from"` // payer settling a debt
	To             PersonID        `json:"to"`   // creditor being paid
	Amount         decimal.Decimal `json:"amount"`
	CurrencyCode   string          `json:"currencyCode"`
	SettlementType SettlementType  `json:"settlementType"`
	Tag            *string         `json:"tag,omitempty"` // set for TAG_SPECIFIC
	SettlementDate time.Time       `json:"settlementDate"`
	CreatedBy      string          `json:"createdBy"`
	CreatedAt      time.Time       `json:"createdAt"`
}
