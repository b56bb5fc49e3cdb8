package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// SyncStatus indicates whether a local row diverges from the last known synced state.
type SyncStatus string

const (
	SyncPending SyncStatus = "PENDING"
	SyncSynced  SyncStatus = "SYNCED"
	SyncFailed  SyncStatus = "FAILED"
)

// SplitType indicates how an expense's amount was divided among participants.
type SplitType string

const (
	SplitEqual      SplitType = "EQUAL"
	SplitPercentage SplitType = "PERCENTAGE"
	SplitShares     SplitType = "SHARES"
)

// ManualExchangeRate is a per-expense override of the cached rate table.
type ManualExchangeRate struct {
	FromCurrencyCode string          `json:"fromCurrencyCode"`
	ToCurrencyCode   string          `json:"toCurrencyCode"`
	Rate             decimal.Decimal `json:"rate"`
}

// Expense represents a recorded shared expense. Expenses are never hard-deleted:
// deletion flips IsDeleted and the row is retained for history. Version increments
// by exactly 1 on every accepted mutation.
type Expense struct {
	ExpenseID          string              `json:"expenseID"` // Primary key (UUID)
	Amount             decimal.Decimal     `json:"amount"`
	CurrencyCode       string              `json:"currencyCode"`
	Description        string              `json:"description"`
	Category           string              `json:"category"`
	ExpenseDate        time.Time           `json:"expenseDate"`
	PaidBy             PersonID            `json:"paidBy"`
	IsDeleted          bool                `json:"isDeleted"`
	DeletedAt          *time.Time          `json:"deletedAt,omitempty"`
	Version            int64               `json:"version"` // >= 1
	ManualExchangeRate *ManualExchangeRate `json:"manualExchangeRate,omitempty"`
	ReceiptRefs        []string            `json:"receiptRefs,omitempty"`
	SyncStatus         SyncStatus          `json:"syncStatus"`
	AuditFields
}

// ExpenseSplit is the portion of one expense's amount attributed to one person.
// Splits are owned by their expense and regenerated as a set on expense edits.
// Invariant: the sum of an expense's split amounts equals the expense amount
// within one cent.
type ExpenseSplit struct {
	SplitID    string           `json:"splitID"`
	ExpenseID  string           `json:"expenseID"`
	Person     PersonID         `json:"person"`
	Amount     decimal.Decimal  `json:"amount"`
	SplitType  SplitType        `json:"splitType"`
	SplitValue *decimal.Decimal `json:"splitValue,omitempty"` // percentage or share count
}

// ExpenseParticipant attaches a person to an expense.
type ExpenseParticipant struct {
	ExpenseID string   `json:"expenseID"`
	Person    PersonID `json:"person"`
}

// ExpenseTag attaches a free-form tag to an expense.
type ExpenseTag struct {
	ExpenseID string `json:"expenseID"`
	Tag       string `json:"tag"`
}

// ExpenseRecord aggregates an expense with its owned rows.
type ExpenseRecord struct {
	Expense      Expense              `json:"expense"`
	Splits       []ExpenseSplit       `json:"splits"`
	Participants []ExpenseParticipant `json:"participants"`
	Tags         []ExpenseTag         `json:"tags,omitempty"`
}
