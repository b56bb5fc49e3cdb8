package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/buda-loco/splitwiser-sub000/internal/apperrors"
	"github.com/buda-loco/splitwiser-sub000/internal/core/domain"
	portsrepo "github.com/buda-loco/splitwiser-sub000/internal/core/ports/repositories"
)

// SqliteVersionRepository reads the append-only expense change history.
type SqliteVersionRepository struct {
	BaseRepository
}

// NewSqliteVersionRepository creates a new SqliteVersionRepository.
func NewSqliteVersionRepository(store *Store) *SqliteVersionRepository {
	return &SqliteVersionRepository{BaseRepository: BaseRepository{Store: store}}
}

var _ portsrepo.VersionRepository = (*SqliteVersionRepository)(nil)

const versionColumns = `version_id, expense_id, version_number, changed_by, change_type,
	before_snapshot, after_snapshot, created_at`

// insertVersion writes one history row. Called by the expense repository with
// its open transaction so the entry commits with the expense write.
func insertVersion(ctx context.Context, q dbtx, v domain.ExpenseVersion) error {
	before, err := marshalSnapshot(v.Before)
	if err != nil {
		return err
	}
	after, err := marshalSnapshot(v.After)
	if err != nil {
		return err
	}
	_, err = q.ExecContext(ctx, `
		INSERT INTO expense_versions (`+versionColumns+`)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		v.VersionID, v.ExpenseID, v.VersionNumber, v.ChangedBy, string(v.ChangeType),
		before, after, v.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to record version: %w", err)
	}
	return nil
}

// FindVersionsByExpenseID returns entries newest first.
func (r *SqliteVersionRepository) FindVersionsByExpenseID(ctx context.Context, expenseID string) ([]domain.ExpenseVersion, error) {
	rows, err := r.Store.DB.QueryContext(ctx, `
		SELECT `+versionColumns+` FROM expense_versions
		WHERE expense_id = ? ORDER BY version_number DESC`, expenseID)
	if err != nil {
		return nil, fmt.Errorf("failed to query versions: %w", err)
	}
	defer rows.Close()

	var versions []domain.ExpenseVersion
	for rows.Next() {
		v, err := scanVersion(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan version: %w", err)
		}
		versions = append(versions, *v)
	}
	return versions, rows.Err()
}

// FindVersion retrieves one history entry by its version number.
func (r *SqliteVersionRepository) FindVersion(ctx context.Context, expenseID string, versionNumber int64) (*domain.ExpenseVersion, error) {
	row := r.Store.DB.QueryRowContext(ctx, `
		SELECT `+versionColumns+` FROM expense_versions
		WHERE expense_id = ? AND version_number = ?`, expenseID, versionNumber)
	v, err := scanVersion(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, apperrors.ErrNotFound
		}
		return nil, fmt.Errorf("failed to find version %d of expense %s: %w", versionNumber, expenseID, err)
	}
	return v, nil
}

func scanVersion(row interface{ Scan(...any) error }) (*domain.ExpenseVersion, error) {
	var (
		v          domain.ExpenseVersion
		changeType string
		before     sql.NullString
		after      sql.NullString
	)
	err := row.Scan(&v.VersionID, &v.ExpenseID, &v.VersionNumber, &v.ChangedBy,
		&changeType, &before, &after, &v.CreatedAt)
	if err != nil {
		return nil, err
	}
	v.ChangeType = domain.ChangeType(changeType)
	if v.Before, err = unmarshalSnapshot(before); err != nil {
		return nil, err
	}
	if v.After, err = unmarshalSnapshot(after); err != nil {
		return nil, err
	}
	return &v, nil
}

func marshalSnapshot(s *domain.ExpenseSnapshot) (any, error) {
	if s == nil {
		return nil, nil
	}
	raw, err := json.Marshal(s)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal snapshot: %w", err)
	}
	return string(raw), nil
}

func unmarshalSnapshot(col sql.NullString) (*domain.ExpenseSnapshot, error) {
	if !col.Valid {
		return nil, nil
	}
	var s domain.ExpenseSnapshot
	if err := json.Unmarshal([]byte(col.String), &s); err != nil {
		return nil, fmt.Errorf("malformed snapshot: %w", err)
	}
	return &s, nil
}
