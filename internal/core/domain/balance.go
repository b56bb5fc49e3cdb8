package domain

import "github.com/shopspring/decimal"

// ExpenseShare is the per-expense detail behind one direct balance entry.
type ExpenseShare struct {
	ExpenseID   string          `json:"expenseID"`
	Description string          `json:"description"`
	Amount      decimal.Decimal `json:"amount"`
}

// BalanceEntry is one pairwise debt: From owes To.
// Expenses carries per-expense detail for the direct view; simplification
// merges unrelated debts, so simplified entries carry none.
type BalanceEntry struct {
	From         PersonID        `json:"from"`
	To           PersonID        `json:"to"`
	Amount       decimal.Decimal `json:"amount"`
	CurrencyCode string          `json:"currencyCode"`
	Expenses     []ExpenseShare  `json:"expenses,omitempty"`
}

// BalanceResult is the computed, non-persisted answer to "who owes whom".
type BalanceResult struct {
	Balances      []BalanceEntry  `json:"balances"`
	TotalExpenses decimal.Decimal `json:"totalExpenses"`
	CurrencyCode  string          `json:"currencyCode"` // primary currency by expense volume
	Simplified    bool            `json:"simplified"`
}

// NetDirection indicates which way a two-person net balance points.
type NetDirection string

const (
	NetAOwesB  NetDirection = "A_OWES_B"
	NetBOwesA  NetDirection = "B_OWES_A"
	NetSettled NetDirection = "SETTLED"
)

// NetBalance is the signed net position between exactly two people, reduced to
// a non-negative amount and a direction. Nets within one cent of zero are SETTLED.
type NetBalance struct {
	Amount       decimal.Decimal `json:"amount"`
	CurrencyCode string          `json:"currencyCode"`
	Direction    NetDirection    `json:"direction"`
}
