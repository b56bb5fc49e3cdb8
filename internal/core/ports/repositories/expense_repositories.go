package repositories

import (
	"context"

	"github.com/buda-loco/splitwiser-sub000/internal/core/domain"
)

// ExpenseRepository defines persistence operations for expenses and their owned
// rows (splits, participants, tags). Each mutating method is one atomic
// transaction spanning the entity tables, the version log and the mutation
// queue: either every row is visible or none is.
type ExpenseRepository interface {
	// CreateExpense inserts a new expense with its owned rows, the synthetic
	// CREATED version entry and the queued operation.
	CreateExpense(ctx context.Context, expense domain.Expense, splits []domain.ExpenseSplit, participants []domain.ExpenseParticipant, tags []domain.ExpenseTag, version domain.ExpenseVersion, op domain.Operation) error

	// UpdateExpense replaces the expense row and regenerates its owned sets,
	// appending the version entry and the queued operation. Returns
	// apperrors.ErrNotFound if the expense does not exist.
	UpdateExpense(ctx context.Context, expense domain.Expense, splits []domain.ExpenseSplit, participants []domain.ExpenseParticipant, tags []domain.ExpenseTag, version domain.ExpenseVersion, op domain.Operation) error

	// SetExpenseDeleted writes a soft delete or restore: the caller has already
	// flipped IsDeleted, set or cleared DeletedAt and bumped Version.
	SetExpenseDeleted(ctx context.Context, expense domain.Expense, version domain.ExpenseVersion, op domain.Operation) error

	// RemoveExpense hard-removes an expense and all of its owned rows including
	// version entries. Used only to roll back an unsynced optimistic create.
	RemoveExpense(ctx context.Context, expenseID string) error

	// RestoreExpenseState writes the given pre-mutation state back wholesale and
	// drops version entries above expense.Version. Used only by optimistic
	// rollback of an update or delete.
	RestoreExpenseState(ctx context.Context, expense domain.Expense, splits []domain.ExpenseSplit, participants []domain.ExpenseParticipant, tags []domain.ExpenseTag) error

	FindExpenseByID(ctx context.Context, expenseID string) (*domain.Expense, error)

	// ListExpenses returns expenses, optionally including soft-deleted rows and
	// optionally restricted to those carrying the given tag.
	ListExpenses(ctx context.Context, includeDeleted bool, tag *string) ([]domain.Expense, error)

	FindSplitsByExpenseID(ctx context.Context, expenseID string) ([]domain.ExpenseSplit, error)
	FindParticipantsByExpenseID(ctx context.Context, expenseID string) ([]domain.ExpenseParticipant, error)
	FindTagsByExpenseID(ctx context.Context, expenseID string) ([]domain.ExpenseTag, error)
}
