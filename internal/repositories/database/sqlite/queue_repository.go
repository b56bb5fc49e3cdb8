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

// SqliteQueueRepository implements ports.QueueRepository over the shared store.
// It never enqueues: operation rows are inserted by the entity repositories
// inside the same transaction as the entity write.
type SqliteQueueRepository struct {
	BaseRepository
}

// NewSqliteQueueRepository creates a new SqliteQueueRepository.
func NewSqliteQueueRepository(store *Store) *SqliteQueueRepository {
	return &SqliteQueueRepository{BaseRepository: BaseRepository{Store: store}}
}

var _ portsrepo.QueueRepository = (*SqliteQueueRepository)(nil)

const operationColumns = `operation_id, ts, entity_table, operation_type, record_id, status,
	retry_count, error_message, original_values, payload, conflict_resolution`

// insertOperation writes one queue row. Called by the entity repositories with
// their open transaction so the enqueue commits with the entity write.
func insertOperation(ctx context.Context, q dbtx, op domain.Operation) error {
	payload, err := domain.EncodePayload(op.Payload)
	if err != nil {
		return err
	}

	var original any
	if op.OriginalValues != nil {
		raw, err := json.Marshal(op.OriginalValues)
		if err != nil {
			return fmt.Errorf("failed to marshal original values: %w", err)
		}
		original = string(raw)
	}

	_, err = q.ExecContext(ctx, `
		INSERT INTO sync_operations (`+operationColumns+`)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		op.OperationID, op.Timestamp, string(op.Table), string(op.OperationType),
		op.RecordID, string(op.Status), op.RetryCount, op.ErrorMessage,
		original, string(payload), op.ConflictResolution,
	)
	if err != nil {
		return fmt.Errorf("failed to enqueue operation: %w", err)
	}
	return nil
}

func scanOperation(row interface{ Scan(...any) error }) (*domain.Operation, error) {
	var (
		op            domain.Operation
		table, opType string
		status        string
		errMsg        sql.NullString
		original      sql.NullString
		payload       string
		resolution    sql.NullString
	)
	err := row.Scan(&op.OperationID, &op.Timestamp, &table, &opType, &op.RecordID,
		&status, &op.RetryCount, &errMsg, &original, &payload, &resolution)
	if err != nil {
		return nil, err
	}

	op.Table = domain.EntityTable(table)
	op.OperationType = domain.OperationType(opType)
	op.Status = domain.OperationStatus(status)
	if errMsg.Valid {
		op.ErrorMessage = &errMsg.String
	}
	if resolution.Valid {
		op.ConflictResolution = &resolution.String
	}
	if original.Valid {
		var snap domain.ExpenseSnapshot
		if err := json.Unmarshal([]byte(original.String), &snap); err != nil {
			return nil, fmt.Errorf("malformed original values: %w", err)
		}
		op.OriginalValues = &snap
	}

	op.Payload, err = domain.DecodePayload([]byte(payload))
	if err != nil {
		return nil, err
	}
	return &op, nil
}

// FindPending returns pending operations FIFO by enqueue timestamp.
func (r *SqliteQueueRepository) FindPending(ctx context.Context) ([]domain.Operation, error) {
	return r.queryOperations(ctx, `
		SELECT `+operationColumns+` FROM sync_operations
		WHERE status = ? ORDER BY ts ASC, operation_id ASC`,
		string(domain.StatusPending))
}

// FindOperationByID retrieves one operation.
func (r *SqliteQueueRepository) FindOperationByID(ctx context.Context, operationID string) (*domain.Operation, error) {
	row := r.Store.DB.QueryRowContext(ctx, `
		SELECT `+operationColumns+` FROM sync_operations WHERE operation_id = ?`,
		operationID)
	op, err := scanOperation(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, apperrors.ErrQueueOperationNotFound
		}
		return nil, fmt.Errorf("failed to find operation %s: %w", operationID, err)
	}
	return op, nil
}

// FindOperationsForRecord returns the ordered operation history for one record.
func (r *SqliteQueueRepository) FindOperationsForRecord(ctx context.Context, table domain.EntityTable, recordID string) ([]domain.Operation, error) {
	return r.queryOperations(ctx, `
		SELECT `+operationColumns+` FROM sync_operations
		WHERE entity_table = ? AND record_id = ? ORDER BY ts ASC, operation_id ASC`,
		string(table), recordID)
}

func (r *SqliteQueueRepository) queryOperations(ctx context.Context, query string, args ...any) ([]domain.Operation, error) {
	rows, err := r.Store.DB.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query operations: %w", err)
	}
	defer rows.Close()

	var ops []domain.Operation
	for rows.Next() {
		op, err := scanOperation(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan operation: %w", err)
		}
		ops = append(ops, *op)
	}
	return ops, rows.Err()
}

// MarkSynced transitions an operation to SYNCED. Idempotent for an operation
// that is already synced; the row is retained for audit until pruned.
func (r *SqliteQueueRepository) MarkSynced(ctx context.Context, operationID string) error {
	return r.withTx(ctx, func(tx *sql.Tx) error {
		op, err := findOperationTx(ctx, tx, operationID)
		if err != nil {
			return err
		}
		if op.Status == domain.StatusSynced {
			return nil
		}
		if op.Status == domain.StatusConflict {
			return fmt.Errorf("%w: operation %s is in conflict", apperrors.ErrConflict, operationID)
		}

		if _, err := tx.ExecContext(ctx,
			`UPDATE sync_operations SET status = ?, error_message = NULL WHERE operation_id = ?`,
			string(domain.StatusSynced), operationID); err != nil {
			return fmt.Errorf("failed to mark operation synced: %w", err)
		}
		return r.refreshExpenseSyncStatus(ctx, tx, op)
	})
}

// MarkFailed records a sync failure: retry count increments and the operation
// stays eligible for retry.
func (r *SqliteQueueRepository) MarkFailed(ctx context.Context, operationID string, errMsg string) error {
	return r.withTx(ctx, func(tx *sql.Tx) error {
		op, err := findOperationTx(ctx, tx, operationID)
		if err != nil {
			return err
		}

		if _, err := tx.ExecContext(ctx, `
			UPDATE sync_operations SET status = ?, retry_count = retry_count + 1, error_message = ?
			WHERE operation_id = ?`,
			string(domain.StatusFailed), errMsg, operationID); err != nil {
			return fmt.Errorf("failed to mark operation failed: %w", err)
		}

		if op.Table == domain.TableExpenses {
			if _, err := tx.ExecContext(ctx,
				`UPDATE expenses SET sync_status = ? WHERE expense_id = ?`,
				string(domain.SyncFailed), op.RecordID); err != nil {
				return fmt.Errorf("failed to flag expense sync failure: %w", err)
			}
		}
		return nil
	})
}

// MarkConflict transitions pending or failed operations to CONFLICT, terminal
// pending a manual or policy-driven resolution.
func (r *SqliteQueueRepository) MarkConflict(ctx context.Context, operationID string, resolution *string) error {
	return r.withTx(ctx, func(tx *sql.Tx) error {
		op, err := findOperationTx(ctx, tx, operationID)
		if err != nil {
			return err
		}
		if op.Status == domain.StatusSynced {
			return fmt.Errorf("%w: operation %s already synced", apperrors.ErrConflict, operationID)
		}

		if _, err := tx.ExecContext(ctx,
			`UPDATE sync_operations SET status = ?, conflict_resolution = ? WHERE operation_id = ?`,
			string(domain.StatusConflict), resolution, operationID); err != nil {
			return fmt.Errorf("failed to mark operation conflicted: %w", err)
		}
		return nil
	})
}

// RemoveOperation deletes one operation outright.
func (r *SqliteQueueRepository) RemoveOperation(ctx context.Context, operationID string) error {
	res, err := r.Store.DB.ExecContext(ctx,
		`DELETE FROM sync_operations WHERE operation_id = ?`, operationID)
	if err != nil {
		return fmt.Errorf("failed to remove operation: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return apperrors.ErrQueueOperationNotFound
	}
	return nil
}

// ClearSynced prunes synced operations, keeping the keep most recent.
func (r *SqliteQueueRepository) ClearSynced(ctx context.Context, keep int) (int64, error) {
	res, err := r.Store.DB.ExecContext(ctx, `
		DELETE FROM sync_operations WHERE status = ? AND operation_id NOT IN (
			SELECT operation_id FROM sync_operations WHERE status = ?
			ORDER BY ts DESC, operation_id DESC LIMIT ?
		)`,
		string(domain.StatusSynced), string(domain.StatusSynced), keep)
	if err != nil {
		return 0, fmt.Errorf("failed to clear synced operations: %w", err)
	}
	return res.RowsAffected()
}

// CountByStatus returns per-status counts using the status index.
func (r *SqliteQueueRepository) CountByStatus(ctx context.Context) (map[domain.OperationStatus]int, error) {
	rows, err := r.Store.DB.QueryContext(ctx,
		`SELECT status, COUNT(*) FROM sync_operations GROUP BY status`)
	if err != nil {
		return nil, fmt.Errorf("failed to count operations: %w", err)
	}
	defer rows.Close()

	counts := map[domain.OperationStatus]int{
		domain.StatusPending:  0,
		domain.StatusSynced:   0,
		domain.StatusFailed:   0,
		domain.StatusConflict: 0,
	}
	for rows.Next() {
		var status string
		var n int
		if err := rows.Scan(&status, &n); err != nil {
			return nil, fmt.Errorf("failed to scan status count: %w", err)
		}
		counts[domain.OperationStatus(status)] = n
	}
	return counts, rows.Err()
}

func findOperationTx(ctx context.Context, tx *sql.Tx, operationID string) (*domain.Operation, error) {
	row := tx.QueryRowContext(ctx, `
		SELECT `+operationColumns+` FROM sync_operations WHERE operation_id = ?`,
		operationID)
	op, err := scanOperation(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, apperrors.ErrQueueOperationNotFound
		}
		return nil, fmt.Errorf("failed to find operation %s: %w", operationID, err)
	}
	return op, nil
}

// refreshExpenseSyncStatus clears the expense row's divergence flag once no
// unterminated operation remains for the record.
func (r *SqliteQueueRepository) refreshExpenseSyncStatus(ctx context.Context, tx *sql.Tx, op *domain.Operation) error {
	if op.Table != domain.TableExpenses {
		return nil
	}
	var remaining int
	err := tx.QueryRowContext(ctx, `
		SELECT COUNT(*) FROM sync_operations
		WHERE entity_table = ? AND record_id = ? AND status IN (?, ?)`,
		string(op.Table), op.RecordID,
		string(domain.StatusPending), string(domain.StatusFailed)).Scan(&remaining)
	if err != nil {
		return fmt.Errorf("failed to count remaining operations: %w", err)
	}
	if remaining > 0 {
		return nil
	}
	if _, err := tx.ExecContext(ctx,
		`UPDATE expenses SET sync_status = ? WHERE expense_id = ?`,
		string(domain.SyncSynced), op.RecordID); err != nil {
		return fmt.Errorf("failed to refresh expense sync status: %w", err)
	}
	return nil
}
