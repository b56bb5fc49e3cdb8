package services

import (
	"context"

	"github.com/buda-loco/splitwiser-sub000/internal/core/domain"
)

// QueueSvcFacade is the mutation queue's consumer contract. The external sync
// transport retrieves FIFO operations with GetPending, replays each against the
// remote system, then calls exactly one of MarkSynced, MarkFailed or
// MarkConflict. It must not mutate payloads or original values.
type QueueSvcFacade interface {
	GetPending(ctx context.Context) ([]domain.Operation, error)
	GetOperation(ctx context.Context, operationID string) (*domain.Operation, error)
	GetOperationsForRecord(ctx context.Context, table domain.EntityTable, recordID string) ([]domain.Operation, error)

	MarkSynced(ctx context.Context, operationID string) error
	MarkFailed(ctx context.Context, operationID string, errMsg string) error
	MarkConflict(ctx context.Context, operationID string, resolution *string) error

	Remove(ctx context.Context, operationID string) error

	// ClearSynced prunes synced operations past the configured retention.
	ClearSynced(ctx context.Context) (int64, error)

	// GetQueueSize returns per-status counts for UI and observability.
	GetQueueSize(ctx context.Context) (map[domain.OperationStatus]int, error)
}

// RollbackFunc undoes the local effect of one optimistic mutation, re-applying
// the pre-mutation snapshot to the entity store.
type RollbackFunc func(ctx context.Context) error

// OptimisticCoordinator tracks the rollback path of each in-flight optimistic
// mutation. One instance per process, injected explicitly.
type OptimisticCoordinator interface {
	// Track registers the rollback closure for a just-enqueued operation.
	Track(operationID string, rollback RollbackFunc)

	// Commit discards the tracked entry after the sync transport confirms
	// success. No-op for unknown ids.
	Commit(ctx context.Context, operationID string) error

	// Rollback invokes the tracked closure and discards it. No-op when the
	// entry is already gone or the operation is no longer pending or failed.
	Rollback(ctx context.Context, operationID string) error

	// Tracked reports whether a rollback closure is currently held.
	Tracked(operationID string) bool
}
