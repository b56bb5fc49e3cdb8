package services

import (
	"context"

	"github.com/shopspring/decimal"

	"github.com/buda-loco/splitwiser-sub000/internal/core/domain"
)

// RateProvider is the external exchange-rate lookup: for a base currency it
// returns target-currency multipliers. Any non-success response or malformed
// payload is a fetch failure and triggers the cache fallback chain.
type RateProvider interface {
	FetchRates(ctx context.Context, baseCurrency string) (map[string]decimal.Decimal, error)
}

// NameResolver maps a person identifier to a human-readable display name,
// supplied by an external directory or profile service.
type NameResolver interface {
	ResolveName(ctx context.Context, person domain.PersonID) (string, error)
}

// NotificationDispatcher informs participants after expense changes.
// Invocations are best-effort and non-blocking; a dispatch failure must never
// fail the underlying mutation.
type NotificationDispatcher interface {
	NotifyExpenseChanged(ctx context.Context, expense domain.Expense, participants []domain.ExpenseParticipant, change domain.ChangeType) error
}
