package services

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"github.com/shopspring/decimal"

	"github.com/buda-loco/splitwiser-sub000/internal/core/domain"
	portsrepo "github.com/buda-loco/splitwiser-sub000/internal/core/ports/repositories"
	portssvc "github.com/buda-loco/splitwiser-sub000/internal/core/ports/services"
	"github.com/buda-loco/splitwiser-sub000/internal/dto"
)

// balanceService derives pairwise debts from the entity store. It never
// persists results; every call recomputes from the current expenses and splits,
// excluding soft-deleted expenses.
type balanceService struct {
	expenseRepo portsrepo.ExpenseRepository
	rates       portssvc.RatesSvcFacade
}

// NewBalanceService creates a new BalanceService.
func NewBalanceService(expenseRepo portsrepo.ExpenseRepository, rates portssvc.RatesSvcFacade) portssvc.BalanceSvcFacade {
	return &balanceService{
		expenseRepo: expenseRepo,
		rates:       rates,
	}
}

var _ portssvc.BalanceSvcFacade = (*balanceService)(nil)

// CalculateBalances aggregates every non-payer split into a debt toward the
// payer, grouped per currency. Simplification runs per currency; currency
// conversion runs after simplification.
func (s *balanceService) CalculateBalances(ctx context.Context, opts dto.BalanceOptions) (*domain.BalanceResult, error) {
	expenses, err := s.expenseRepo.ListExpenses(ctx, false, opts.Tag)
	if err != nil {
		return nil, err
	}

	type pairKey struct {
		currency string
		fromKey  string
		toKey    string
	}
	totals := make(map[pairKey]*domain.BalanceEntry)
	volume := make(map[string]decimal.Decimal)
	totalExpenses := decimal.Zero

	for _, exp := range expenses {
		splits, err := s.expenseRepo.FindSplitsByExpenseID(ctx, exp.ExpenseID)
		if err != nil {
			return nil, fmt.Errorf("failed to load splits for expense %s: %w", exp.ExpenseID, err)
		}
		totalExpenses = totalExpenses.Add(exp.Amount)
		volume[exp.CurrencyCode] = volume[exp.CurrencyCode].Add(exp.Amount)

		for _, sp := range splits {
			// The payer's own share is not a debt.
			if sp.Person.Equal(exp.PaidBy) {
				continue
			}
			key := pairKey{currency: exp.CurrencyCode, fromKey: sp.Person.Key(), toKey: exp.PaidBy.Key()}
			entry, ok := totals[key]
			if !ok {
				entry = &domain.BalanceEntry{From: sp.Person, To: exp.PaidBy, CurrencyCode: exp.CurrencyCode}
				totals[key] = entry
			}
			entry.Amount = entry.Amount.Add(sp.Amount)
			entry.Expenses = append(entry.Expenses, domain.ExpenseShare{
				ExpenseID:   exp.ExpenseID,
				Description: exp.Description,
				Amount:      sp.Amount,
			})
		}
	}

	keys := make([]pairKey, 0, len(totals))
	for k := range totals {
		keys = append(keys, k)
	}
	sort.Slice(keys, func(i, j int) bool {
		if keys[i].currency != keys[j].currency {
			return keys[i].currency < keys[j].currency
		}
		if keys[i].fromKey != keys[j].fromKey {
			return keys[i].fromKey < keys[j].fromKey
		}
		return keys[i].toKey < keys[j].toKey
	})
	entries := make([]domain.BalanceEntry, 0, len(keys))
	for _, k := range keys {
		entries = append(entries, *totals[k])
	}

	if opts.Simplified {
		entries = simplifyPerCurrency(entries)
	}

	currency := primaryCurrency(volume)
	if opts.TargetCurrency != nil && *opts.TargetCurrency != "" {
		currency = strings.ToUpper(*opts.TargetCurrency)
		entries, err = s.rates.ConvertBalances(ctx, entries, currency)
		if err != nil {
			return nil, err
		}
	}

	return &domain.BalanceResult{
		Balances:      entries,
		TotalExpenses: totalExpenses,
		CurrencyCode:  currency,
		Simplified:    opts.Simplified,
	}, nil
}

// CalculateNetBalance reduces all debts between two people to one signed
// position in the primary currency of their shared expenses.
func (s *balanceService) CalculateNetBalance(ctx context.Context, personA, personB domain.PersonID) (*domain.NetBalance, error) {
	return s.netBetween(ctx, personA, personB, nil)
}

// CalculateTagBalance is CalculateNetBalance restricted to one tag.
func (s *balanceService) CalculateTagBalance(ctx context.Context, personA, personB domain.PersonID, tag string) (*domain.NetBalance, error) {
	return s.netBetween(ctx, personA, personB, &tag)
}

func (s *balanceService) netBetween(ctx context.Context, personA, personB domain.PersonID, tag *string) (*domain.NetBalance, error) {
	if !personA.Valid() || !personB.Valid() {
		return nil, ErrInvalidPerson
	}

	expenses, err := s.expenseRepo.ListExpenses(ctx, false, tag)
	if err != nil {
		return nil, err
	}

	// Signed contribution per shared expense: positive means A owes B.
	type contribution struct {
		amount   decimal.Decimal
		currency string
		manual   *domain.ManualExchangeRate
	}
	var contributions []contribution
	volume := make(map[string]decimal.Decimal)

	for _, exp := range expenses {
		payerIsA := exp.PaidBy.Equal(personA)
		payerIsB := exp.PaidBy.Equal(personB)
		if !payerIsA && !payerIsB {
			continue
		}
		splits, err := s.expenseRepo.FindSplitsByExpenseID(ctx, exp.ExpenseID)
		if err != nil {
			return nil, fmt.Errorf("failed to load splits for expense %s: %w", exp.ExpenseID, err)
		}
		for _, sp := range splits {
			switch {
			case payerIsB && sp.Person.Equal(personA):
				contributions = append(contributions, contribution{amount: sp.Amount, currency: exp.CurrencyCode, manual: exp.ManualExchangeRate})
			case payerIsA && sp.Person.Equal(personB):
				contributions = append(contributions, contribution{amount: sp.Amount.Neg(), currency: exp.CurrencyCode, manual: exp.ManualExchangeRate})
			default:
				continue
			}
			volume[exp.CurrencyCode] = volume[exp.CurrencyCode].Add(sp.Amount)
		}
	}

	primary := primaryCurrency(volume)
	if primary == "" {
		return &domain.NetBalance{Amount: decimal.Zero, CurrencyCode: "", Direction: domain.NetSettled}, nil
	}

	net := decimal.Zero
	for _, c := range contributions {
		rate, err := s.rates.GetRate(ctx, c.currency, primary, c.manual)
		if err != nil {
			return nil, err
		}
		net = net.Add(c.amount.Mul(rate))
	}
	net = net.Round(2)

	result := &domain.NetBalance{CurrencyCode: primary}
	switch {
	case net.Abs().LessThanOrEqual(centStep):
		result.Amount = decimal.Zero
		result.Direction = domain.NetSettled
	case net.IsPositive():
		result.Amount = net
		result.Direction = domain.NetAOwesB
	default:
		result.Amount = net.Neg()
		result.Direction = domain.NetBOwesA
	}
	return result, nil
}

// simplifyPerCurrency runs the simplifier once per currency group, keeping the
// currency ordering of the input.
func simplifyPerCurrency(entries []domain.BalanceEntry) []domain.BalanceEntry {
	byCurrency := make(map[string][]domain.BalanceEntry)
	var order []string
	for _, e := range entries {
		if _, ok := byCurrency[e.CurrencyCode]; !ok {
			order = append(order, e.CurrencyCode)
		}
		byCurrency[e.CurrencyCode] = append(byCurrency[e.CurrencyCode], e)
	}
	out := make([]domain.BalanceEntry, 0, len(entries))
	for _, currency := range order {
		out = append(out, simplifyEntries(byCurrency[currency], currency)...)
	}
	return out
}

// primaryCurrency picks the currency with the largest raw expense volume,
// breaking ties by code. Returns "" when there are no expenses.
func primaryCurrency(volume map[string]decimal.Decimal) string {
	primary := ""
	best := decimal.Zero
	for code, v := range volume {
		if primary == "" || v.GreaterThan(best) || (v.Equal(best) && code < primary) {
			primary = code
			best = v
		}
	}
	return primary
}
