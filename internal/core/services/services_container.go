package services

import (
	"time"

	portsrepo "github.com/buda-loco/splitwiser-sub000/internal/core/ports/repositories"
	portssvc "github.com/buda-loco/splitwiser-sub000/internal/core/ports/services"
)

// ContainerConfig carries the tunables the service layer needs at construction.
type ContainerConfig struct {
	RateCacheTTL    time.Duration
	SyncedRetention int
}

// NewServiceContainer wires the full service graph over the repositories.
// provider and notifier are the external collaborators; notifier may be nil.
func NewServiceContainer(repos *portsrepo.RepositoryProvider, provider portssvc.RateProvider, notifier portssvc.NotificationDispatcher, cfg ContainerConfig) *portssvc.ServiceContainer {
	coordinator := NewOptimisticCoordinator(repos.QueueRepo)
	rates := NewRatesService(repos.RateCacheRepo, provider, cfg.RateCacheTTL)

	return &portssvc.ServiceContainer{
		Ledger:      NewLedgerService(repos.ExpenseRepo, coordinator, notifier),
		Versions:    NewVersionService(repos.ExpenseRepo, repos.VersionRepo, coordinator),
		Settlements: NewSettlementService(repos.SettlementRepo, coordinator),
		Queue:       NewQueueService(repos.QueueRepo, coordinator, cfg.SyncedRetention),
		Coordinator: coordinator,
		Balances:    NewBalanceService(repos.ExpenseRepo, rates),
		Rates:       rates,
	}
}
