package services

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/buda-loco/splitwiser-sub000/internal/apperrors"
	"github.com/buda-loco/splitwiser-sub000/internal/core/domain"
	portsrepo "github.com/buda-loco/splitwiser-sub000/internal/core/ports/repositories"
	portssvc "github.com/buda-loco/splitwiser-sub000/internal/core/ports/services"
	"github.com/buda-loco/splitwiser-sub000/internal/middleware"
)

// ratesService resolves exchange rates through a fallback chain: manual
// override, fresh cache, live fetch, expired cache, identity. Conversion is a
// display concern, so the chain degrades instead of failing: the identity rate
// is the documented last resort and is always logged.
type ratesService struct {
	cacheRepo portsrepo.RateCacheRepository
	provider  portssvc.RateProvider
	cacheTTL  time.Duration
}

// NewRatesService creates a new RatesService. cacheTTL bounds how long a
// fetched rate table is considered fresh.
func NewRatesService(cacheRepo portsrepo.RateCacheRepository, provider portssvc.RateProvider, cacheTTL time.Duration) portssvc.RatesSvcFacade {
	return &ratesService{
		cacheRepo: cacheRepo,
		provider:  provider,
		cacheTTL:  cacheTTL,
	}
}

var _ portssvc.RatesSvcFacade = (*ratesService)(nil)

// GetRate resolves the from->to multiplier. A per-expense manual rate wins in
// either direction; otherwise the cache chain applies.
func (s *ratesService) GetRate(ctx context.Context, from, to string, manual *domain.ManualExchangeRate) (decimal.Decimal, error) {
	logger := middleware.GetLoggerFromCtx(ctx)
	from = strings.ToUpper(from)
	to = strings.ToUpper(to)

	if from == to {
		return decimal.NewFromInt(1), nil
	}

	if manual != nil && !manual.Rate.IsZero() {
		mFrom := strings.ToUpper(manual.FromCurrencyCode)
		mTo := strings.ToUpper(manual.ToCurrencyCode)
		if mFrom == from && mTo == to {
			return manual.Rate, nil
		}
		if mFrom == to && mTo == from {
			return decimal.NewFromInt(1).Div(manual.Rate), nil
		}
	}

	now := time.Now().UTC()
	cached, err := s.cacheRepo.FindTable(ctx, from)
	if err != nil && !errors.Is(err, apperrors.ErrNotFound) {
		return decimal.Zero, err
	}

	if cached != nil && !cached.Expired(now) {
		if rate, ok := cached.Rates[to]; ok {
			return rate, nil
		}
	}

	if rate, ok := s.refresh(ctx, from, to, now); ok {
		return rate, nil
	}

	if cached != nil {
		if rate, ok := cached.Rates[to]; ok {
			logger.Warn("Using expired cached exchange rate",
				slog.String("from", from),
				slog.String("to", to),
				slog.Time("fetched_at", cached.FetchedAt))
			return rate, nil
		}
	}

	logger.Warn("No exchange rate available, degrading to identity",
		slog.String("from", from),
		slog.String("to", to))
	return decimal.NewFromInt(1), nil
}

// refresh fetches a fresh table from the provider and caches it. Fetch and
// cache-write failures are logged, never surfaced.
func (s *ratesService) refresh(ctx context.Context, from, to string, now time.Time) (decimal.Decimal, bool) {
	logger := middleware.GetLoggerFromCtx(ctx)

	rates, err := s.provider.FetchRates(ctx, from)
	if err != nil {
		logger.Warn("Exchange rate fetch failed",
			slog.String("base", from),
			slog.String("error", err.Error()))
		return decimal.Zero, false
	}

	table := domain.RateTable{
		BaseCurrency: from,
		Rates:        rates,
		FetchedAt:    now,
		ExpiresAt:    now.Add(s.cacheTTL),
	}
	if err := s.cacheRepo.SaveTable(ctx, table); err != nil {
		logger.Warn("Failed to cache exchange rates",
			slog.String("base", from),
			slog.String("error", err.Error()))
	}

	rate, ok := rates[to]
	return rate, ok
}

// ConvertAmount applies the resolved rate and rounds to cents.
func (s *ratesService) ConvertAmount(ctx context.Context, amount decimal.Decimal, from, to string, manual *domain.ManualExchangeRate) (decimal.Decimal, error) {
	rate, err := s.GetRate(ctx, from, to, manual)
	if err != nil {
		return decimal.Zero, err
	}
	return amount.Mul(rate).Round(2), nil
}

// ConvertBalances converts a batch of entries into the target currency,
// replacing only the amount and currency of each entry.
func (s *ratesService) ConvertBalances(ctx context.Context, balances []domain.BalanceEntry, targetCurrency string) ([]domain.BalanceEntry, error) {
	targetCurrency = strings.ToUpper(targetCurrency)
	out := make([]domain.BalanceEntry, len(balances))
	for i, entry := range balances {
		converted, err := s.ConvertAmount(ctx, entry.Amount, entry.CurrencyCode, targetCurrency, nil)
		if err != nil {
			return nil, err
		}
		entry.Amount = converted
		entry.CurrencyCode = targetCurrency
		out[i] = entry
	}
	return out, nil
}
