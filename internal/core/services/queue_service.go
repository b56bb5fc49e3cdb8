package services

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/buda-loco/splitwiser-sub000/internal/core/domain"
	portsrepo "github.com/buda-loco/splitwiser-sub000/internal/core/ports/repositories"
	portssvc "github.com/buda-loco/splitwiser-sub000/internal/core/ports/services"
	"github.com/buda-loco/splitwiser-sub000/internal/middleware"
)

// queueService is the mutation queue facade consumed by the sync transport.
// Status transitions flow through the coordinator where a rollback path exists,
// so confirmed operations drop their closures and conflicted ones keep the
// repository's conflict record consistent.
type queueService struct {
	queueRepo       portsrepo.QueueRepository
	coordinator     portssvc.OptimisticCoordinator
	syncedRetention int
}

// NewQueueService creates a new QueueService. syncedRetention is the number of
// most recent SYNCED operations ClearSynced keeps for audit.
func NewQueueService(queueRepo portsrepo.QueueRepository, coordinator portssvc.OptimisticCoordinator, syncedRetention int) portssvc.QueueSvcFacade {
	return &queueService{
		queueRepo:       queueRepo,
		coordinator:     coordinator,
		syncedRetention: syncedRetention,
	}
}

var _ portssvc.QueueSvcFacade = (*queueService)(nil)

func (s *queueService) GetPending(ctx context.Context) ([]domain.Operation, error) {
	return s.queueRepo.FindPending(ctx)
}

func (s *queueService) GetOperation(ctx context.Context, operationID string) (*domain.Operation, error) {
	return s.queueRepo.FindOperationByID(ctx, operationID)
}

func (s *queueService) GetOperationsForRecord(ctx context.Context, table domain.EntityTable, recordID string) ([]domain.Operation, error) {
	return s.queueRepo.FindOperationsForRecord(ctx, table, recordID)
}

// MarkSynced confirms a replayed operation and discards its rollback path.
func (s *queueService) MarkSynced(ctx context.Context, operationID string) error {
	if err := s.queueRepo.MarkSynced(ctx, operationID); err != nil {
		return err
	}
	if err := s.coordinator.Commit(ctx, operationID); err != nil {
		return fmt.Errorf("failed to commit operation %s: %w", operationID, err)
	}
	return nil
}

// MarkFailed records a replay failure; the operation stays retryable and its
// rollback path stays tracked.
func (s *queueService) MarkFailed(ctx context.Context, operationID string, errMsg string) error {
	logger := middleware.GetLoggerFromCtx(ctx)
	if err := s.queueRepo.MarkFailed(ctx, operationID, errMsg); err != nil {
		return err
	}
	logger.Warn("Sync operation failed", slog.String("operation_id", operationID), slog.String("sync_error", errMsg))
	return nil
}

// MarkConflict parks an operation for manual resolution. The rollback closure
// is kept so an "undo local change" resolution can still be applied.
func (s *queueService) MarkConflict(ctx context.Context, operationID string, resolution *string) error {
	logger := middleware.GetLoggerFromCtx(ctx)
	if err := s.queueRepo.MarkConflict(ctx, operationID, resolution); err != nil {
		return err
	}
	logger.Warn("Sync operation conflicted", slog.String("operation_id", operationID))
	return nil
}

// Remove drops an operation from the queue outright, discarding any tracked
// rollback path without invoking it.
func (s *queueService) Remove(ctx context.Context, operationID string) error {
	if err := s.queueRepo.RemoveOperation(ctx, operationID); err != nil {
		return err
	}
	return s.coordinator.Commit(ctx, operationID)
}

func (s *queueService) ClearSynced(ctx context.Context) (int64, error) {
	logger := middleware.GetLoggerFromCtx(ctx)
	removed, err := s.queueRepo.ClearSynced(ctx, s.syncedRetention)
	if err != nil {
		return 0, err
	}
	if removed > 0 {
		logger.Info("Pruned synced operations", slog.Int64("removed", removed), slog.Int("kept", s.syncedRetention))
	}
	return removed, nil
}

func (s *queueService) GetQueueSize(ctx context.Context) (map[domain.OperationStatus]int, error) {
	return s.queueRepo.CountByStatus(ctx)
}
