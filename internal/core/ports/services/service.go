package services

// ServiceContainer bundles the service facades handed to the HTTP surface.
type ServiceContainer struct {
	Ledger      LedgerSvcFacade
	Versions    VersionSvcFacade
	Settlements SettlementSvcFacade
	Queue       QueueSvcFacade
	Coordinator OptimisticCoordinator
	Balances    BalanceSvcFacade
	Rates       RatesSvcFacade
}
