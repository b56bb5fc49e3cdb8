package sqlite

import (
	portsrepo "github.com/buda-loco/splitwiser-sub000/internal/core/ports/repositories"
)

// NewRepositoryProvider wires every sqlite repository over one shared store.
func NewRepositoryProvider(store *Store) *portsrepo.RepositoryProvider {
	return &portsrepo.RepositoryProvider{
		ExpenseRepo:    NewSqliteExpenseRepository(store),
		SettlementRepo: NewSqliteSettlementRepository(store),
		VersionRepo:    NewSqliteVersionRepository(store),
		QueueRepo:      NewSqliteQueueRepository(store),
		RateCacheRepo:  NewSqliteRateCacheRepository(store),
	}
}
