package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/shopspring/decimal"

	"github.com/buda-loco/splitwiser-sub000/internal/apperrors"
	"github.com/buda-loco/splitwiser-sub000/internal/core/domain"
	portsrepo "github.com/buda-loco/splitwiser-sub000/internal/core/ports/repositories"
)

// SqliteRateCacheRepository stores one cached rate table per base currency.
type SqliteRateCacheRepository struct {
	BaseRepository
}

// NewSqliteRateCacheRepository creates a new SqliteRateCacheRepository.
func NewSqliteRateCacheRepository(store *Store) *SqliteRateCacheRepository {
	return &SqliteRateCacheRepository{BaseRepository: BaseRepository{Store: store}}
}

var _ portsrepo.RateCacheRepository = (*SqliteRateCacheRepository)(nil)

// SaveTable inserts or replaces the cached table for its base currency.
func (r *SqliteRateCacheRepository) SaveTable(ctx context.Context, table domain.RateTable) error {
	rates := make(map[string]string, len(table.Rates))
	for code, rate := range table.Rates {
		rates[strings.ToUpper(code)] = rate.String()
	}
	raw, err := json.Marshal(rates)
	if err != nil {
		return fmt.Errorf("failed to marshal rate table: %w", err)
	}

	_, err = r.Store.DB.ExecContext(ctx, `
		INSERT INTO exchange_rate_cache (base_currency, rates, fetched_at, expires_at)
		VALUES (?, ?, ?, ?)
		ON CONFLICT (base_currency) DO UPDATE SET
			rates = excluded.rates, fetched_at = excluded.fetched_at, expires_at = excluded.expires_at`,
		strings.ToUpper(table.BaseCurrency), string(raw), table.FetchedAt, table.ExpiresAt,
	)
	if err != nil {
		return fmt.Errorf("failed to save rate table: %w", err)
	}
	return nil
}

// FindTable returns the cached table, expired or not.
func (r *SqliteRateCacheRepository) FindTable(ctx context.Context, baseCurrency string) (*domain.RateTable, error) {
	var (
		table domain.RateTable
		raw   string
	)
	err := r.Store.DB.QueryRowContext(ctx, `
		SELECT base_currency, rates, fetched_at, expires_at
		FROM exchange_rate_cache WHERE base_currency = ?`,
		strings.ToUpper(baseCurrency),
	).Scan(&table.BaseCurrency, &raw, &table.FetchedAt, &table.ExpiresAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, apperrors.ErrNotFound
		}
		return nil, fmt.Errorf("failed to find rate table for %s: %w", baseCurrency, err)
	}

	var rates map[string]string
	if err := json.Unmarshal([]byte(raw), &rates); err != nil {
		return nil, fmt.Errorf("malformed cached rate table: %w", err)
	}
	table.Rates = make(map[string]decimal.Decimal, len(rates))
	for code, s := range rates {
		d, err := parseDecimal(s)
		if err != nil {
			return nil, err
		}
		table.Rates[code] = d
	}
	return &table, nil
}
