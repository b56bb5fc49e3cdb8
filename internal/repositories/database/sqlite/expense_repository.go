package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/buda-loco/splitwiser-sub000/internal/apperrors"
	"github.com/buda-loco/splitwiser-sub000/internal/core/domain"
	portsrepo "github.com/buda-loco/splitwiser-sub000/internal/core/ports/repositories"
)

// SqliteExpenseRepository implements ports.ExpenseRepository over the shared
// store. Every mutating method runs one transaction spanning the expense
// tables, the version log and the mutation queue.
type SqliteExpenseRepository struct {
	BaseRepository
}

// NewSqliteExpenseRepository creates a new SqliteExpenseRepository.
func NewSqliteExpenseRepository(store *Store) *SqliteExpenseRepository {
	return &SqliteExpenseRepository{BaseRepository: BaseRepository{Store: store}}
}

var _ portsrepo.ExpenseRepository = (*SqliteExpenseRepository)(nil)

const expenseColumns = `expense_id, amount, currency_code, description, category, expense_date,
	paid_by, is_deleted, deleted_at, version, manual_rate, receipt_refs, sync_status,
	created_at, created_by, last_updated_at, last_updated_by`

// CreateExpense inserts the expense, its owned rows, the synthetic CREATED
// version entry and the queued operation atomically.
func (r *SqliteExpenseRepository) CreateExpense(ctx context.Context, expense domain.Expense, splits []domain.ExpenseSplit, participants []domain.ExpenseParticipant, tags []domain.ExpenseTag, version domain.ExpenseVersion, op domain.Operation) error {
	return r.withTx(ctx, func(tx *sql.Tx) error {
		if err := insertExpense(ctx, tx, expense); err != nil {
			return err
		}
		if err := insertOwnedRows(ctx, tx, expense.ExpenseID, splits, participants, tags); err != nil {
			return err
		}
		if err := insertVersion(ctx, tx, version); err != nil {
			return err
		}
		return insertOperation(ctx, tx, op)
	})
}

// UpdateExpense replaces the expense row and regenerates its owned sets,
// appending the version entry and the queued operation atomically.
func (r *SqliteExpenseRepository) UpdateExpense(ctx context.Context, expense domain.Expense, splits []domain.ExpenseSplit, participants []domain.ExpenseParticipant, tags []domain.ExpenseTag, version domain.ExpenseVersion, op domain.Operation) error {
	return r.withTx(ctx, func(tx *sql.Tx) error {
		if err := updateExpenseRow(ctx, tx, expense); err != nil {
			return err
		}
		if err := deleteOwnedRows(ctx, tx, expense.ExpenseID); err != nil {
			return err
		}
		if err := insertOwnedRows(ctx, tx, expense.ExpenseID, splits, participants, tags); err != nil {
			return err
		}
		if err := insertVersion(ctx, tx, version); err != nil {
			return err
		}
		return insertOperation(ctx, tx, op)
	})
}

// SetExpenseDeleted writes a soft delete or restore with its version entry and
// queued operation. The caller has already mutated the expense fields.
func (r *SqliteExpenseRepository) SetExpenseDeleted(ctx context.Context, expense domain.Expense, version domain.ExpenseVersion, op domain.Operation) error {
	return r.withTx(ctx, func(tx *sql.Tx) error {
		if err := updateExpenseRow(ctx, tx, expense); err != nil {
			return err
		}
		if err := insertVersion(ctx, tx, version); err != nil {
			return err
		}
		return insertOperation(ctx, tx, op)
	})
}

// RemoveExpense hard-removes an expense and everything it owns, including its
// version history. Only the rollback of an unsynced optimistic create may call
// this: the resulting state is "the expense never existed".
func (r *SqliteExpenseRepository) RemoveExpense(ctx context.Context, expenseID string) error {
	return r.withTx(ctx, func(tx *sql.Tx) error {
		if err := deleteOwnedRows(ctx, tx, expenseID); err != nil {
			return err
		}
		if _, err := tx.ExecContext(ctx,
			`DELETE FROM expense_versions WHERE expense_id = ?`, expenseID); err != nil {
			return fmt.Errorf("failed to remove expense versions: %w", err)
		}
		res, err := tx.ExecContext(ctx,
			`DELETE FROM expenses WHERE expense_id = ?`, expenseID)
		if err != nil {
			return fmt.Errorf("failed to remove expense: %w", err)
		}
		if n, _ := res.RowsAffected(); n == 0 {
			return apperrors.ErrNotFound
		}
		return nil
	})
}

// RestoreExpenseState writes the pre-mutation state back wholesale and drops
// version entries above the restored version. Only optimistic rollback of an
// update or delete may call this.
func (r *SqliteExpenseRepository) RestoreExpenseState(ctx context.Context, expense domain.Expense, splits []domain.ExpenseSplit, participants []domain.ExpenseParticipant, tags []domain.ExpenseTag) error {
	return r.withTx(ctx, func(tx *sql.Tx) error {
		if err := updateExpenseRow(ctx, tx, expense); err != nil {
			return err
		}
		if err := deleteOwnedRows(ctx, tx, expense.ExpenseID); err != nil {
			return err
		}
		if err := insertOwnedRows(ctx, tx, expense.ExpenseID, splits, participants, tags); err != nil {
			return err
		}
		if _, err := tx.ExecContext(ctx,
			`DELETE FROM expense_versions WHERE expense_id = ? AND version_number > ?`,
			expense.ExpenseID, expense.Version); err != nil {
			return fmt.Errorf("failed to drop rolled-back versions: %w", err)
		}
		return nil
	})
}

// FindExpenseByID retrieves one expense row.
func (r *SqliteExpenseRepository) FindExpenseByID(ctx context.Context, expenseID string) (*domain.Expense, error) {
	row := r.Store.DB.QueryRowContext(ctx,
		`SELECT `+expenseColumns+` FROM expenses WHERE expense_id = ?`, expenseID)
	exp, err := scanExpense(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, apperrors.ErrNotFound
		}
		return nil, fmt.Errorf("failed to find expense %s: %w", expenseID, err)
	}
	return exp, nil
}

// ListExpenses returns expenses ordered by expense date descending.
func (r *SqliteExpenseRepository) ListExpenses(ctx context.Context, includeDeleted bool, tag *string) ([]domain.Expense, error) {
	// Columns are alias-qualified: the tag join makes expense_id ambiguous.
	cols := prefixColumns("e", expenseColumns)
	query := `SELECT ` + cols + ` FROM expenses e`
	args := []any{}
	if tag != nil {
		query = `SELECT ` + cols + ` FROM expenses e
			JOIN expense_tags t ON t.expense_id = e.expense_id AND t.tag = ?`
		args = append(args, *tag)
	}
	query += ` WHERE 1=1`
	if !includeDeleted {
		query += ` AND e.is_deleted = 0`
	}
	query += ` ORDER BY e.expense_date DESC, e.expense_id ASC`

	rows, err := r.Store.DB.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list expenses: %w", err)
	}
	defer rows.Close()

	var expenses []domain.Expense
	for rows.Next() {
		exp, err := scanExpense(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan expense: %w", err)
		}
		expenses = append(expenses, *exp)
	}
	return expenses, rows.Err()
}

// FindSplitsByExpenseID returns an expense's splits.
func (r *SqliteExpenseRepository) FindSplitsByExpenseID(ctx context.Context, expenseID string) ([]domain.ExpenseSplit, error) {
	rows, err := r.Store.DB.QueryContext(ctx, `
		SELECT split_id, expense_id, person_key, amount, split_type, split_value
		FROM expense_splits WHERE expense_id = ? ORDER BY split_id ASC`, expenseID)
	if err != nil {
		return nil, fmt.Errorf("failed to query splits: %w", err)
	}
	defer rows.Close()

	var splits []domain.ExpenseSplit
	for rows.Next() {
		var (
			s          domain.ExpenseSplit
			personKey  string
			amount     string
			splitType  string
			splitValue sql.NullString
		)
		if err := rows.Scan(&s.SplitID, &s.ExpenseID, &personKey, &amount, &splitType, &splitValue); err != nil {
			return nil, fmt.Errorf("failed to scan split: %w", err)
		}
		if s.Person, err = domain.PersonFromKey(personKey); err != nil {
			return nil, err
		}
		if s.Amount, err = parseDecimal(amount); err != nil {
			return nil, err
		}
		s.SplitType = domain.SplitType(splitType)
		if splitValue.Valid {
			v, err := parseDecimal(splitValue.String)
			if err != nil {
				return nil, err
			}
			s.SplitValue = &v
		}
		splits = append(splits, s)
	}
	return splits, rows.Err()
}

// FindParticipantsByExpenseID returns an expense's participants.
func (r *SqliteExpenseRepository) FindParticipantsByExpenseID(ctx context.Context, expenseID string) ([]domain.ExpenseParticipant, error) {
	rows, err := r.Store.DB.QueryContext(ctx, `
		SELECT expense_id, person_key FROM expense_participants
		WHERE expense_id = ? ORDER BY person_key ASC`, expenseID)
	if err != nil {
		return nil, fmt.Errorf("failed to query participants: %w", err)
	}
	defer rows.Close()

	var participants []domain.ExpenseParticipant
	for rows.Next() {
		var p domain.ExpenseParticipant
		var personKey string
		if err := rows.Scan(&p.ExpenseID, &personKey); err != nil {
			return nil, fmt.Errorf("failed to scan participant: %w", err)
		}
		if p.Person, err = domain.PersonFromKey(personKey); err != nil {
			return nil, err
		}
		participants = append(participants, p)
	}
	return participants, rows.Err()
}

// FindTagsByExpenseID returns an expense's tags.
func (r *SqliteExpenseRepository) FindTagsByExpenseID(ctx context.Context, expenseID string) ([]domain.ExpenseTag, error) {
	rows, err := r.Store.DB.QueryContext(ctx, `
		SELECT expense_id, tag FROM expense_tags WHERE expense_id = ? ORDER BY tag ASC`,
		expenseID)
	if err != nil {
		return nil, fmt.Errorf("failed to query tags: %w", err)
	}
	defer rows.Close()

	var tags []domain.ExpenseTag
	for rows.Next() {
		var t domain.ExpenseTag
		if err := rows.Scan(&t.ExpenseID, &t.Tag); err != nil {
			return nil, fmt.Errorf("failed to scan tag: %w", err)
		}
		tags = append(tags, t)
	}
	return tags, rows.Err()
}

// --- row helpers ---

func insertExpense(ctx context.Context, q dbtx, e domain.Expense) error {
	manualRate, receiptRefs, err := marshalExpenseJSON(e)
	if err != nil {
		return err
	}
	_, err = q.ExecContext(ctx, `
		INSERT INTO expenses (`+expenseColumns+`)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		e.ExpenseID, e.Amount.String(), e.CurrencyCode, e.Description, e.Category,
		e.ExpenseDate, e.PaidBy.Key(), boolToInt(e.IsDeleted), e.DeletedAt, e.Version,
		manualRate, receiptRefs, string(e.SyncStatus),
		e.CreatedAt, e.CreatedBy, e.LastUpdatedAt, e.LastUpdatedBy,
	)
	if err != nil {
		return fmt.Errorf("failed to insert expense: %w", err)
	}
	return nil
}

func updateExpenseRow(ctx context.Context, q dbtx, e domain.Expense) error {
	manualRate, receiptRefs, err := marshalExpenseJSON(e)
	if err != nil {
		return err
	}
	res, err := q.ExecContext(ctx, `
		UPDATE expenses SET amount = ?, currency_code = ?, description = ?, category = ?,
			expense_date = ?, paid_by = ?, is_deleted = ?, deleted_at = ?, version = ?,
			manual_rate = ?, receipt_refs = ?, sync_status = ?,
			last_updated_at = ?, last_updated_by = ?
		WHERE expense_id = ?`,
		e.Amount.String(), e.CurrencyCode, e.Description, e.Category,
		e.ExpenseDate, e.PaidBy.Key(), boolToInt(e.IsDeleted), e.DeletedAt, e.Version,
		manualRate, receiptRefs, string(e.SyncStatus),
		e.LastUpdatedAt, e.LastUpdatedBy, e.ExpenseID,
	)
	if err != nil {
		return fmt.Errorf("failed to update expense: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return apperrors.ErrNotFound
	}
	return nil
}

func insertOwnedRows(ctx context.Context, q dbtx, expenseID string, splits []domain.ExpenseSplit, participants []domain.ExpenseParticipant, tags []domain.ExpenseTag) error {
	for _, s := range splits {
		var splitValue any
		if s.SplitValue != nil {
			splitValue = s.SplitValue.String()
		}
		if _, err := q.ExecContext(ctx, `
			INSERT INTO expense_splits (split_id, expense_id, person_key, amount, split_type, split_value)
			VALUES (?, ?, ?, ?, ?, ?)`,
			s.SplitID, expenseID, s.Person.Key(), s.Amount.String(), string(s.SplitType), splitValue,
		); err != nil {
			return fmt.Errorf("failed to insert split: %w", err)
		}
	}
	for _, p := range participants {
		if _, err := q.ExecContext(ctx, `
			INSERT INTO expense_participants (expense_id, person_key) VALUES (?, ?)`,
			expenseID, p.Person.Key(),
		); err != nil {
			return fmt.Errorf("failed to insert participant: %w", err)
		}
	}
	for _, t := range tags {
		if _, err := q.ExecContext(ctx, `
			INSERT INTO expense_tags (expense_id, tag) VALUES (?, ?)`,
			expenseID, t.Tag,
		); err != nil {
			return fmt.Errorf("failed to insert tag: %w", err)
		}
	}
	return nil
}

func deleteOwnedRows(ctx context.Context, q dbtx, expenseID string) error {
	for _, stmt := range []string{
		`DELETE FROM expense_splits WHERE expense_id = ?`,
		`DELETE FROM expense_participants WHERE expense_id = ?`,
		`DELETE FROM expense_tags WHERE expense_id = ?`,
	} {
		if _, err := q.ExecContext(ctx, stmt, expenseID); err != nil {
			return fmt.Errorf("failed to clear owned rows: %w", err)
		}
	}
	return nil
}

func marshalExpenseJSON(e domain.Expense) (manualRate any, receiptRefs string, err error) {
	if e.ManualExchangeRate != nil {
		raw, err := json.Marshal(e.ManualExchangeRate)
		if err != nil {
			return nil, "", fmt.Errorf("failed to marshal manual rate: %w", err)
		}
		manualRate = string(raw)
	}
	refs := e.ReceiptRefs
	if refs == nil {
		refs = []string{}
	}
	raw, err := json.Marshal(refs)
	if err != nil {
		return nil, "", fmt.Errorf("failed to marshal receipt refs: %w", err)
	}
	return manualRate, string(raw), nil
}

func scanExpense(row interface{ Scan(...any) error }) (*domain.Expense, error) {
	var (
		e           domain.Expense
		amount      string
		paidByKey   string
		isDeleted   int
		deletedAt   sql.NullTime
		manualRate  sql.NullString
		receiptRefs string
		syncStatus  string
	)
	err := row.Scan(&e.ExpenseID, &amount, &e.CurrencyCode, &e.Description, &e.Category,
		&e.ExpenseDate, &paidByKey, &isDeleted, &deletedAt, &e.Version,
		&manualRate, &receiptRefs, &syncStatus,
		&e.CreatedAt, &e.CreatedBy, &e.LastUpdatedAt, &e.LastUpdatedBy)
	if err != nil {
		return nil, err
	}

	if e.Amount, err = parseDecimal(amount); err != nil {
		return nil, err
	}
	if e.PaidBy, err = domain.PersonFromKey(paidByKey); err != nil {
		return nil, err
	}
	e.IsDeleted = isDeleted != 0
	if deletedAt.Valid {
		t := deletedAt.Time
		e.DeletedAt = &t
	}
	if manualRate.Valid {
		var mr domain.ManualExchangeRate
		if err := json.Unmarshal([]byte(manualRate.String), &mr); err != nil {
			return nil, fmt.Errorf("malformed manual rate: %w", err)
		}
		e.ManualExchangeRate = &mr
	}
	if err := json.Unmarshal([]byte(receiptRefs), &e.ReceiptRefs); err != nil {
		return nil, fmt.Errorf("malformed receipt refs: %w", err)
	}
	e.SyncStatus = domain.SyncStatus(syncStatus)
	return &e, nil
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}

func prefixColumns(alias, cols string) string {
	parts := strings.Split(cols, ",")
	for i, p := range parts {
		parts[i] = alias + "." + strings.TrimSpace(p)
	}
	return strings.Join(parts, ", ")
}
