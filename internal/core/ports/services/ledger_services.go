package services

import (
	"context"

	"github.com/buda-loco/splitwiser-sub000/internal/core/domain"
	"github.com/buda-loco/splitwiser-sub000/internal/dto"
)

// LedgerSvcFacade is the mutation and read surface for expenses. Every mutation
// applies optimistically: the local write, the version log entry and the queued
// sync operation commit as one unit, and the result returns immediately.
type LedgerSvcFacade interface {
	CreateExpense(ctx context.Context, req dto.CreateExpenseRequest, actorUserID string) (*domain.ExpenseRecord, error)
	UpdateExpense(ctx context.Context, expenseID string, req dto.UpdateExpenseRequest, actorUserID string) (*domain.ExpenseRecord, error)

	// DeleteExpense soft-deletes: the expense stops contributing to balances
	// but its row and history are retained.
	DeleteExpense(ctx context.Context, expenseID string, actorUserID string) error

	// RestoreExpense clears a soft delete, incrementing the version and
	// appending a RESTORED history entry.
	RestoreExpense(ctx context.Context, expenseID string, actorUserID string) (*domain.Expense, error)

	GetExpense(ctx context.Context, expenseID string) (*domain.ExpenseRecord, error)
	ListExpenses(ctx context.Context, tag *string) ([]domain.Expense, error)
}

// VersionSvcFacade reads expense history and reverts to earlier versions.
type VersionSvcFacade interface {
	// GetVersions returns history entries sorted by version number descending.
	GetVersions(ctx context.Context, expenseID string) ([]domain.ExpenseVersion, error)

	// RevertToVersion applies the target version's after-snapshot onto the
	// current expense as a new UPDATED version; history is never rewritten.
	// Reverting to an entry without an after-snapshot fails with
	// apperrors.ErrInvalidRevertTarget.
	RevertToVersion(ctx context.Context, expenseID string, targetVersion int64, actorUserID string) (*domain.ExpenseRecord, error)
}

// SettlementSvcFacade records and removes point-in-time payments.
type SettlementSvcFacade interface {
	CreateSettlement(ctx context.Context, req dto.CreateSettlementRequest, actorUserID string) (*domain.Settlement, error)
	DeleteSettlement(ctx context.Context, settlementID string, actorUserID string) error
	GetSettlement(ctx context.Context, settlementID string) (*domain.Settlement, error)
	ListSettlements(ctx context.Context, person *domain.PersonID, tag *string) ([]domain.Settlement, error)
}
