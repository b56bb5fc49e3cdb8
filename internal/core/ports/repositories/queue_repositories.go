package repositories

import (
	"context"

	"github.com/buda-loco/splitwiser-sub000/internal/core/domain"
)

// QueueRepository reads and transitions mutation queue entries. Enqueueing is
// done by the entity repositories inside the same transaction as the entity
// write; this interface never creates operations.
type QueueRepository interface {
	// FindPending returns PENDING operations in FIFO order (timestamp ascending).
	FindPending(ctx context.Context) ([]domain.Operation, error)

	FindOperationByID(ctx context.Context, operationID string) (*domain.Operation, error)

	// FindOperationsForRecord returns every operation targeting one record in
	// enqueue order, so the sync transport can detect and resolve conflicts.
	FindOperationsForRecord(ctx context.Context, table domain.EntityTable, recordID string) ([]domain.Operation, error)

	// MarkSynced transitions PENDING -> SYNCED (terminal, retained for audit)
	// and clears the underlying expense row's divergence flag when no other
	// operation for that record remains pending.
	MarkSynced(ctx context.Context, operationID string) error

	// MarkFailed increments the retry count and stores the error message; the
	// operation remains eligible for retry.
	MarkFailed(ctx context.Context, operationID string, errMsg string) error

	// MarkConflict transitions PENDING|FAILED -> CONFLICT (terminal pending a
	// manual or policy-driven resolution).
	MarkConflict(ctx context.Context, operationID string, resolution *string) error

	RemoveOperation(ctx context.Context, operationID string) error

	// ClearSynced prunes SYNCED operations, keeping the most recent keep entries.
	// Returns the number of rows removed.
	ClearSynced(ctx context.Context, keep int) (int64, error)

	// CountByStatus returns per-status counts via an indexed scan.
	CountByStatus(ctx context.Context) (map[domain.OperationStatus]int, error)
}
