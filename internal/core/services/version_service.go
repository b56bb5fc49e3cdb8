package services

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/buda-loco/splitwiser-sub000/internal/apperrors"
	"github.com/buda-loco/splitwiser-sub000/internal/core/domain"
	portsrepo "github.com/buda-loco/splitwiser-sub000/internal/core/ports/repositories"
	portssvc "github.com/buda-loco/splitwiser-sub000/internal/core/ports/services"
	"github.com/buda-loco/splitwiser-sub000/internal/middleware"
)

// versionService reads the append-only expense history and performs reverts.
// A revert never rewrites the log: it applies the target snapshot as a fresh
// UPDATED entry on top of the current version.
type versionService struct {
	expenseRepo portsrepo.ExpenseRepository
	versionRepo portsrepo.VersionRepository
	coordinator portssvc.OptimisticCoordinator
}

// NewVersionService creates a new VersionService.
func NewVersionService(expenseRepo portsrepo.ExpenseRepository, versionRepo portsrepo.VersionRepository, coordinator portssvc.OptimisticCoordinator) portssvc.VersionSvcFacade {
	return &versionService{
		expenseRepo: expenseRepo,
		versionRepo: versionRepo,
		coordinator: coordinator,
	}
}

var _ portssvc.VersionSvcFacade = (*versionService)(nil)

// GetVersions returns the full history of an expense, newest first.
func (s *versionService) GetVersions(ctx context.Context, expenseID string) ([]domain.ExpenseVersion, error) {
	if _, err := s.expenseRepo.FindExpenseByID(ctx, expenseID); err != nil {
		return nil, err
	}
	return s.versionRepo.FindVersionsByExpenseID(ctx, expenseID)
}

// RevertToVersion writes the target version's after-snapshot onto the current
// expense. The split set is regenerated from the current participants and
// split type against the reverted amount.
func (s *versionService) RevertToVersion(ctx context.Context, expenseID string, targetVersion int64, actorUserID string) (*domain.ExpenseRecord, error) {
	logger := middleware.GetLoggerFromCtx(ctx)

	target, err := s.versionRepo.FindVersion(ctx, expenseID, targetVersion)
	if err != nil {
		return nil, err
	}
	if target.After == nil {
		return nil, fmt.Errorf("%w: version %d of expense %s records a deletion", apperrors.ErrInvalidRevertTarget, targetVersion, expenseID)
	}

	prev, err := loadExpenseRecord(ctx, s.expenseRepo, expenseID)
	if err != nil {
		return nil, err
	}

	now := time.Now().UTC()
	expense := prev.Expense
	snap := target.After
	expense.Amount = snap.Amount
	expense.CurrencyCode = strings.ToUpper(snap.CurrencyCode)
	expense.Description = snap.Description
	expense.Category = snap.Category
	expense.ExpenseDate = snap.ExpenseDate
	expense.PaidBy = snap.PaidBy
	expense.ReceiptRefs = snap.ReceiptRefs
	expense.IsDeleted = snap.IsDeleted
	if snap.IsDeleted {
		if expense.DeletedAt == nil {
			expense.DeletedAt = &now
		}
	} else {
		expense.DeletedAt = nil
	}
	expense.Version++
	expense.SyncStatus = domain.SyncPending
	expense.LastUpdatedAt = now
	expense.LastUpdatedBy = actorUserID

	inputs := participantInputsFromSplits(prev.Splits)
	splits, err := buildSplits(expense.ExpenseID, expense.Amount, splitTypeOf(prev.Splits), inputs)
	if err != nil {
		return nil, err
	}

	before := prev.Expense.Snapshot()
	version := newVersionEntry(expense, actorUserID, domain.ChangeUpdated, before, expense.Snapshot())
	op := newOperation(domain.TableExpenses, domain.OpUpdate, expenseID, domain.ExpenseUpdatedPayload{
		Expense:      expense,
		Splits:       splits,
		Participants: prev.Participants,
		Tags:         prev.Tags,
	}, before)

	if err := s.expenseRepo.UpdateExpense(ctx, expense, splits, prev.Participants, prev.Tags, version, op); err != nil {
		logger.Error("Failed to revert expense", slog.String("expense_id", expenseID), slog.Int64("target_version", targetVersion), slog.String("error", err.Error()))
		return nil, fmt.Errorf("failed to revert expense %s to version %d: %w", expenseID, targetVersion, err)
	}

	restored := *prev
	s.coordinator.Track(op.OperationID, func(ctx context.Context) error {
		return s.expenseRepo.RestoreExpenseState(ctx, restored.Expense, restored.Splits, restored.Participants, restored.Tags)
	})

	logger.Info("Expense reverted",
		slog.String("expense_id", expenseID),
		slog.Int64("target_version", targetVersion),
		slog.Int64("new_version", expense.Version))
	return &domain.ExpenseRecord{Expense: expense, Splits: splits, Participants: prev.Participants, Tags: prev.Tags}, nil
}
