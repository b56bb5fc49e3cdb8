package services

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/buda-loco/splitwiser-sub000/internal/core/domain"
)

func entry(from, to domain.PersonID, amount string) domain.BalanceEntry {
	return domain.BalanceEntry{
		From:         from,
		To:           to,
		Amount:       decimal.RequireFromString(amount),
		CurrencyCode: "EUR",
	}
}

func netPositions(entries []domain.BalanceEntry) map[string]decimal.Decimal {
	nets := make(map[string]decimal.Decimal)
	for _, e := range entries {
		nets[e.From.Key()] = nets[e.From.Key()].Sub(e.Amount)
		nets[e.To.Key()] = nets[e.To.Key()].Add(e.Amount)
	}
	return nets
}

func TestSimplifyEntries_CollapsesChain(t *testing.T) {
	a := domain.UserPerson("a")
	b := domain.UserPerson("b")
	c := domain.UserPerson("c")

	result := simplifyEntries([]domain.BalanceEntry{
		entry(a, b, "50.00"),
		entry(b, c, "50.00"),
	}, "EUR")

	require.Len(t, result, 1)
	assert.Equal(t, a, result[0].From)
	assert.Equal(t, c, result[0].To)
	assert.True(t, result[0].Amount.Equal(decimal.RequireFromString("50.00")))
}

func TestSimplifyEntries_DropsSettledPairs(t *testing.T) {
	a := domain.UserPerson("a")
	b := domain.UserPerson("b")

	result := simplifyEntries([]domain.BalanceEntry{
		entry(a, b, "25.00"),
		entry(b, a, "25.00"),
	}, "EUR")

	assert.Empty(t, result)
}

func TestSimplifyEntries_PreservesNetPositions(t *testing.T) {
	a := domain.UserPerson("a")
	b := domain.UserPerson("b")
	c := domain.ParticipantPerson("c")
	d := domain.ParticipantPerson("d")

	input := []domain.BalanceEntry{
		entry(a, b, "30.00"),
		entry(a, c, "10.00"),
		entry(b, c, "20.00"),
		entry(c, d, "45.50"),
		entry(d, a, "5.25"),
	}

	result := simplifyEntries(input, "EUR")

	// fewer transactions, same money movement per person
	require.LessOrEqual(t, len(result), len(input))
	want := netPositions(input)
	got := netPositions(result)
	for key, net := range want {
		assert.True(t, got[key].Equal(net), "net position of %s: want %s, got %s", key, net, got[key])
	}
}

func TestSimplifyEntries_Deterministic(t *testing.T) {
	a := domain.UserPerson("a")
	b := domain.UserPerson("b")
	c := domain.UserPerson("c")
	d := domain.UserPerson("d")

	input := []domain.BalanceEntry{
		entry(a, c, "10.00"),
		entry(b, d, "10.00"),
	}

	first := simplifyEntries(input, "EUR")
	second := simplifyEntries(input, "EUR")
	require.Equal(t, len(first), len(second))
	for i := range first {
		assert.Equal(t, first[i].From, second[i].From)
		assert.Equal(t, first[i].To, second[i].To)
		assert.True(t, first[i].Amount.Equal(second[i].Amount))
	}
}
