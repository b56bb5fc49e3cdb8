package dto

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/buda-loco/splitwiser-sub000/internal/core/domain"
)

// CreateSettlementRequest is the payload to record a payment between two people.
type CreateSettlementRequest struct {
	From           PersonRef             `json:"from" binding:"required"`
	To             PersonRef             `json:"to" binding:"required"`
	Amount         decimal.Decimal       `json:"amount" binding:"required"`
	CurrencyCode   string                `json:"currencyCode" binding:"required,len=3"`
	SettlementType domain.SettlementType `json:"settlementType" binding:"required,settlementtype"`
	Tag            *string               `json:"tag,omitempty"` // required for TAG_SPECIFIC
	SettlementDate time.Time             `json:"settlementDate" binding:"required"`
}
