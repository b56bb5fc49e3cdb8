package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// ChangeType classifies a version log entry.
type ChangeType string

const (
	ChangeCreated  ChangeType = "CREATED"
	ChangeUpdated  ChangeType = "UPDATED"
	ChangeDeleted  ChangeType = "DELETED"
	ChangeRestored ChangeType = "RESTORED"
)

// ExpenseSnapshot captures the mutable fields of an expense at one point in time.
type ExpenseSnapshot struct {
	Amount       decimal.Decimal `json:"amount"`
	CurrencyCode string          `json:"currencyCode"`
	Description  string          `json:"description"`
	Category     string          `json:"category"`
	ExpenseDate  time.Time       `json:"expenseDate"`
	PaidBy       PersonID        `json:"paidBy"`
	IsDeleted    bool            `json:"isDeleted"`
	ReceiptRefs  []string        `json:"receiptRefs,omitempty"`
}

// Snapshot captures the expense's current mutable fields.
func (e Expense) Snapshot() *ExpenseSnapshot {
	refs := make([]string, len(e.ReceiptRefs))
	copy(refs, e.ReceiptRefs)
	return &ExpenseSnapshot{
		Amount:       e.Amount,
		CurrencyCode: e.CurrencyCode,
		Description:  e.Description,
		Category:     e.Category,
		ExpenseDate:  e.ExpenseDate,
		PaidBy:       e.PaidBy,
		IsDeleted:    e.IsDeleted,
		ReceiptRefs:  refs,
	}
}

// ExpenseVersion is one immutable entry in an expense's change history.
// VersionNumber matches the expense's Version at the moment the entry is written;
// the log is append-only and never rewritten, even on revert.
type ExpenseVersion struct {
	VersionID     string           `json:"versionID"`
	ExpenseID     string           `json:"expenseID"`
	VersionNumber int64            `json:"versionNumber"`
	ChangedBy     string           `json:"changedBy"`
	ChangeType    ChangeType       `json:"changeType"`
	Before        *ExpenseSnapshot `json:"before,omitempty"` // nil for CREATED
	After         *ExpenseSnapshot `json:"after,omitempty"`  // nil for DELETED
	CreatedAt     time.Time        `json:"createdAt"`
}
