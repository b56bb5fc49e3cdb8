package repositories

import (
	"context"

	"github.com/buda-loco/splitwiser-sub000/internal/core/domain"
)

// SettlementRepository defines persistence operations for settlements.
// Settlements are immutable once created and hard-deletable; mutating methods
// write the queued operation in the same transaction as the entity change.
type SettlementRepository interface {
	CreateSettlement(ctx context.Context, settlement domain.Settlement, op domain.Operation) error

	// DeleteSettlement hard-deletes the row and enqueues the operation.
	// Returns apperrors.ErrNotFound if the settlement does not exist.
	DeleteSettlement(ctx context.Context, settlementID string, op domain.Operation) error

	// RemoveSettlement hard-removes the row without enqueuing anything.
	// Used only to roll back an unsynced optimistic create.
	RemoveSettlement(ctx context.Context, settlementID string) error

	// RestoreSettlement re-inserts a settlement without enqueuing anything.
	// Used only to roll back an unsynced optimistic delete.
	RestoreSettlement(ctx context.Context, settlement domain.Settlement) error

	FindSettlementByID(ctx context.Context, settlementID string) (*domain.Settlement, error)

	// ListSettlements returns settlements ordered by settlement date descending,
	// optionally restricted to those involving a person or carrying a tag.
	ListSettlements(ctx context.Context, person *domain.PersonID, tag *string) ([]domain.Settlement, error)
}
