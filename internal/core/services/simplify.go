package services

import (
	"sort"

	"github.com/shopspring/decimal"

	"github.com/buda-loco/splitwiser-sub000/internal/core/domain"
)

// simplifyEntries collapses one currency's direct debt graph into a minimal
// transfer set. Every person's net position is preserved exactly; positions
// within one cent of zero are treated as settled. Greedy largest-debtor to
// largest-creditor matching yields at most n-1 transfers for n people.
func simplifyEntries(entries []domain.BalanceEntry, currency string) []domain.BalanceEntry {
	net := make(map[string]decimal.Decimal)
	persons := make(map[string]domain.PersonID)
	for _, e := range entries {
		fromKey, toKey := e.From.Key(), e.To.Key()
		persons[fromKey] = e.From
		persons[toKey] = e.To
		net[fromKey] = net[fromKey].Sub(e.Amount)
		net[toKey] = net[toKey].Add(e.Amount)
	}

	type position struct {
		key    string
		amount decimal.Decimal
	}
	var debtors, creditors []position
	for key, v := range net {
		switch {
		case v.GreaterThan(centStep):
			creditors = append(creditors, position{key: key, amount: v})
		case v.LessThan(centStep.Neg()):
			debtors = append(debtors, position{key: key, amount: v.Neg()})
		}
	}

	// Deterministic: largest first, ties broken by person key.
	byMagnitude := func(ps []position) func(i, j int) bool {
		return func(i, j int) bool {
			if !ps[i].amount.Equal(ps[j].amount) {
				return ps[i].amount.GreaterThan(ps[j].amount)
			}
			return ps[i].key < ps[j].key
		}
	}
	sort.Slice(debtors, byMagnitude(debtors))
	sort.Slice(creditors, byMagnitude(creditors))

	var out []domain.BalanceEntry
	i, j := 0, 0
	for i < len(debtors) && j < len(creditors) {
		transfer := decimal.Min(debtors[i].amount, creditors[j].amount)
		out = append(out, domain.BalanceEntry{
			From:         persons[debtors[i].key],
			To:           persons[creditors[j].key],
			Amount:       transfer.Round(2),
			CurrencyCode: currency,
		})
		debtors[i].amount = debtors[i].amount.Sub(transfer)
		creditors[j].amount = creditors[j].amount.Sub(transfer)
		if debtors[i].amount.LessThanOrEqual(centStep) {
			i++
		}
		if creditors[j].amount.LessThanOrEqual(centStep) {
			j++
		}
	}
	return out
}
