package repositories

// RepositoryProvider bundles the concrete repositories handed to the service
// container at process start.
type RepositoryProvider struct {
	ExpenseRepo    ExpenseRepository
	SettlementRepo SettlementRepository
	VersionRepo    VersionRepository
	QueueRepo      QueueRepository
	RateCacheRepo  RateCacheRepository
}
