package repositories

import (
	"context"

	"github.com/buda-loco/splitwiser-sub000/internal/core/domain"
)

// VersionRepository reads the append-only expense change history. Version rows
// are written by ExpenseRepository inside the entity-store transactions.
type VersionRepository interface {
	// FindVersionsByExpenseID returns entries sorted by version number descending.
	FindVersionsByExpenseID(ctx context.Context, expenseID string) ([]domain.ExpenseVersion, error)

	FindVersion(ctx context.Context, expenseID string, versionNumber int64) (*domain.ExpenseVersion, error)
}
