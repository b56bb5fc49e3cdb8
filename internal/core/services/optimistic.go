package services

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/buda-loco/splitwiser-sub000/internal/apperrors"
	"github.com/buda-loco/splitwiser-sub000/internal/core/domain"
	portsrepo "github.com/buda-loco/splitwiser-sub000/internal/core/ports/repositories"
	portssvc "github.com/buda-loco/splitwiser-sub000/internal/core/ports/services"
)

// optimisticCoordinator holds the rollback closure of each in-flight optimistic
// mutation, keyed by operation id. Closures live in memory only: a restart
// loses them, which is safe because rollback is a convenience path and the
// queue row remains the durable record.
type optimisticCoordinator struct {
	queueRepo portsrepo.QueueRepository

	mu        sync.Mutex
	rollbacks map[string]portssvc.RollbackFunc
}

// NewOptimisticCoordinator creates the process-wide coordinator.
func NewOptimisticCoordinator(queueRepo portsrepo.QueueRepository) portssvc.OptimisticCoordinator {
	return &optimisticCoordinator{
		queueRepo: queueRepo,
		rollbacks: make(map[string]portssvc.RollbackFunc),
	}
}

var _ portssvc.OptimisticCoordinator = (*optimisticCoordinator)(nil)

func (c *optimisticCoordinator) Track(operationID string, rollback portssvc.RollbackFunc) {
	if rollback == nil {
		return
	}
	c.mu.Lock()
	c.rollbacks[operationID] = rollback
	c.mu.Unlock()
}

// Commit discards the tracked closure once the operation no longer needs a
// local undo path.
func (c *optimisticCoordinator) Commit(_ context.Context, operationID string) error {
	c.mu.Lock()
	delete(c.rollbacks, operationID)
	c.mu.Unlock()
	return nil
}

// Rollback undoes the local effect of an unconfirmed operation and removes its
// queue entry. Operations already synced or conflicted, or whose closure is
// gone, are left untouched.
func (c *optimisticCoordinator) Rollback(ctx context.Context, operationID string) error {
	c.mu.Lock()
	rollback, ok := c.rollbacks[operationID]
	c.mu.Unlock()
	if !ok {
		return nil
	}

	op, err := c.queueRepo.FindOperationByID(ctx, operationID)
	if err != nil {
		if errors.Is(err, apperrors.ErrQueueOperationNotFound) {
			c.Commit(ctx, operationID)
			return nil
		}
		return err
	}
	if op.Status != domain.StatusPending && op.Status != domain.StatusFailed {
		c.Commit(ctx, operationID)
		return nil
	}

	if err := rollback(ctx); err != nil {
		return fmt.Errorf("failed to roll back operation %s: %w", operationID, err)
	}
	if err := c.queueRepo.RemoveOperation(ctx, operationID); err != nil && !errors.Is(err, apperrors.ErrQueueOperationNotFound) {
		return fmt.Errorf("failed to dequeue rolled-back operation %s: %w", operationID, err)
	}
	c.Commit(ctx, operationID)
	return nil
}

func (c *optimisticCoordinator) Tracked(operationID string) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	_, ok := c.rollbacks[operationID]
	return ok
}
