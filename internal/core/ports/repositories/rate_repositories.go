package repositories

import (
	"context"

	"github.com/buda-loco/splitwiser-sub000/internal/core/domain"
)

// RateCacheRepository stores one cached rate table per base currency.
type RateCacheRepository interface {
	// SaveTable inserts or replaces the table for its base currency.
	SaveTable(ctx context.Context, table domain.RateTable) error

	// FindTable returns the cached table for the base currency, expired or not.
	// Returns apperrors.ErrNotFound when no row exists.
	FindTable(ctx context.Context, baseCurrency string) (*domain.RateTable, error)
}
