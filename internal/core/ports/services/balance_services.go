package services

import (
	"context"

	"github.com/shopspring/decimal"

	"github.com/buda-loco/splitwiser-sub000/internal/core/domain"
	"github.com/buda-loco/splitwiser-sub000/internal/dto"
)

// BalanceSvcFacade computes who owes whom from the entity store. It performs no
// writes and re-reads on every invocation.
type BalanceSvcFacade interface {
	CalculateBalances(ctx context.Context, opts dto.BalanceOptions) (*domain.BalanceResult, error)

	// CalculateNetBalance reduces all debts between exactly two people to a
	// signed net position in the primary currency.
	CalculateNetBalance(ctx context.Context, personA, personB domain.PersonID) (*domain.NetBalance, error)

	// CalculateTagBalance is CalculateNetBalance restricted to one tag.
	CalculateTagBalance(ctx context.Context, personA, personB domain.PersonID, tag string) (*domain.NetBalance, error)
}

// RatesSvcFacade resolves exchange rates through the cache fallback chain and
// converts amounts and balance batches.
type RatesSvcFacade interface {
	// GetRate never returns a hard failure: provider errors degrade through
	// the cached (possibly expired) table down to an identity rate.
	GetRate(ctx context.Context, from, to string, manual *domain.ManualExchangeRate) (decimal.Decimal, error)

	// ConvertAmount applies GetRate and rounds the product to two decimals.
	ConvertAmount(ctx context.Context, amount decimal.Decimal, from, to string, manual *domain.ManualExchangeRate) (decimal.Decimal, error)

	// ConvertBalances converts a batch into the target currency, replacing only
	// the amount and currency fields.
	ConvertBalances(ctx context.Context, balances []domain.BalanceEntry, targetCurrency string) ([]domain.BalanceEntry, error)
}
