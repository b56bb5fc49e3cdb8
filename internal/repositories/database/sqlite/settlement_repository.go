package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/buda-loco/splitwiser-sub000/internal/apperrors"
	"github.com/buda-loco/splitwiser-sub000/internal/core/domain"
	portsrepo "github.com/buda-loco/splitwiser-sub000/internal/core/ports/repositories"
)

// SqliteSettlementRepository implements ports.SettlementRepository over the
// shared store.
type SqliteSettlementRepository struct {
	BaseRepository
}

// NewSqliteSettlementRepository creates a new SqliteSettlementRepository.
func NewSqliteSettlementRepository(store *Store) *SqliteSettlementRepository {
	return &SqliteSettlementRepository{BaseRepository: BaseRepository{Store: store}}
}

var _ portsrepo.SettlementRepository = (*SqliteSettlementRepository)(nil)

const settlementColumns = `settlement_id, from_person, to_person, amount, currency_code,
	settlement_type, tag, settlement_date, created_by, created_at`

// CreateSettlement inserts the settlement and its queued operation atomically.
func (r *SqliteSettlementRepository) CreateSettlement(ctx context.Context, settlement domain.Settlement, op domain.Operation) error {
	return r.withTx(ctx, func(tx *sql.Tx) error {
		if err := insertSettlement(ctx, tx, settlement); err != nil {
			return err
		}
		return insertOperation(ctx, tx, op)
	})
}

// DeleteSettlement hard-deletes the row and enqueues the operation atomically.
func (r *SqliteSettlementRepository) DeleteSettlement(ctx context.Context, settlementID string, op domain.Operation) error {
	return r.withTx(ctx, func(tx *sql.Tx) error {
		res, err := tx.ExecContext(ctx,
			`DELETE FROM settlements WHERE settlement_id = ?`, settlementID)
		if err != nil {
			return fmt.Errorf("failed to delete settlement: %w", err)
		}
		if n, _ := res.RowsAffected(); n == 0 {
			return apperrors.ErrNotFound
		}
		return insertOperation(ctx, tx, op)
	})
}

// RemoveSettlement deletes the row without enqueuing anything. Rollback of an
// unsynced optimistic create only.
func (r *SqliteSettlementRepository) RemoveSettlement(ctx context.Context, settlementID string) error {
	res, err := r.Store.DB.ExecContext(ctx,
		`DELETE FROM settlements WHERE settlement_id = ?`, settlementID)
	if err != nil {
		return fmt.Errorf("failed to remove settlement: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return apperrors.ErrNotFound
	}
	return nil
}

// RestoreSettlement re-inserts a settlement without enqueuing anything.
// Rollback of an unsynced optimistic delete only.
func (r *SqliteSettlementRepository) RestoreSettlement(ctx context.Context, settlement domain.Settlement) error {
	return insertSettlement(ctx, r.Store.DB, settlement)
}

// FindSettlementByID retrieves one settlement.
func (r *SqliteSettlementRepository) FindSettlementByID(ctx context.Context, settlementID string) (*domain.Settlement, error) {
	row := r.Store.DB.QueryRowContext(ctx,
		`SELECT `+settlementColumns+` FROM settlements WHERE settlement_id = ?`, settlementID)
	s, err := scanSettlement(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, apperrors.ErrNotFound
		}
		return nil, fmt.Errorf("failed to find settlement %s: %w", settlementID, err)
	}
	return s, nil
}

// ListSettlements returns settlements newest first, optionally restricted to a
// person (either side) or a tag.
func (r *SqliteSettlementRepository) ListSettlements(ctx context.Context, person *domain.PersonID, tag *string) ([]domain.Settlement, error) {
	query := `SELECT ` + settlementColumns + ` FROM settlements WHERE 1=1`
	args := []any{}
	if person != nil {
		query += ` AND (from_person = ? OR to_person = ?)`
		key := person.Key()
		args = append(args, key, key)
	}
	if tag != nil {
		query += ` AND tag = ?`
		args = append(args, *tag)
	}
	query += ` ORDER BY settlement_date DESC, settlement_id ASC`

	rows, err := r.Store.DB.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list settlements: %w", err)
	}
	defer rows.Close()

	var settlements []domain.Settlement
	for rows.Next() {
		s, err := scanSettlement(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan settlement: %w", err)
		}
		settlements = append(settlements, *s)
	}
	return settlements, rows.Err()
}

func insertSettlement(ctx context.Context, q dbtx, s domain.Settlement) error {
	_, err := q.ExecContext(ctx, `
		INSERT INTO settlements (`+settlementColumns+`)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		s.SettlementID, s.From.Key(), s.To.Key(), s.Amount.String(), s.CurrencyCode,
		string(s.SettlementType), s.Tag, s.SettlementDate, s.CreatedBy, s.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to insert settlement: %w", err)
	}
	return nil
}

func scanSettlement(row interface{ Scan(...any) error }) (*domain.Settlement, error) {
	var (
		s              domain.Settlement
		fromKey, toKey string
		amount         string
		settlementType string
		tag            sql.NullString
	)
	err := row.Scan(&s.SettlementID, &fromKey, &toKey, &amount, &s.CurrencyCode,
		&settlementType, &tag, &s.SettlementDate, &s.CreatedBy, &s.CreatedAt)
	if err != nil {
		return nil, err
	}
	if s.From, err = domain.PersonFromKey(fromKey); err != nil {
		return nil, err
	}
	if s.To, err = domain.PersonFromKey(toKey); err != nil {
		return nil, err
	}
	if s.Amount, err = parseDecimal(amount); err != nil {
		return nil, err
	}
	s.SettlementType = domain.SettlementType(settlementType)
	if tag.Valid {
		s.Tag = &tag.String
	}
	return &s, nil
}
