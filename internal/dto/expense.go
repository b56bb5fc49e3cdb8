package dto

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/buda-loco/splitwiser-sub000/internal/core/domain"
)

// PersonRef identifies a person in a request: exactly one of the two fields
// must be populated.
type PersonRef struct {
	UserID        string `json:"userID,omitempty"`
	ParticipantID string `json:"participantID,omitempty"`
}

// ToDomain converts the reference to a domain PersonID.
func (p PersonRef) ToDomain() domain.PersonID {
	return domain.PersonID{UserID: p.UserID, ParticipantID: p.ParticipantID}
}

// ParticipantInput names one participant of an expense, with the split value
// required by percentage and shares splits.
type ParticipantInput struct {
	Person     PersonRef        `json:"person"`
	SplitValue *decimal.Decimal `json:"splitValue,omitempty"`
}

// ManualRateInput is a per-expense override of the cached exchange rate.
type ManualRateInput struct {
	FromCurrencyCode string          `json:"fromCurrencyCode" binding:"required,len=3"`
	ToCurrencyCode   string          `json:"toCurrencyCode" binding:"required,len=3"`
	Rate             decimal.Decimal `json:"rate" binding:"required"`
}

// CreateExpenseRequest is the payload to record a new expense.
type CreateExpenseRequest struct {
	Amount       decimal.Decimal    `json:"amount" binding:"required"`
	CurrencyCode string             `json:"currencyCode" binding:"required,len=3"`
	Description  string             `json:"description" binding:"required"`
	Category     string             `json:"category"`
	ExpenseDate  time.Time          `json:"expenseDate" binding:"required"`
	PaidBy       PersonRef          `json:"paidBy" binding:"required"`
	Participants []ParticipantInput `json:"participants" binding:"required,min=1"`
	SplitType    domain.SplitType   `json:"splitType" binding:"required,splittype"`
	Tags         []string           `json:"tags,omitempty"`
	ReceiptRefs  []string           `json:"receiptRefs,omitempty"`
	ManualRate   *ManualRateInput   `json:"manualExchangeRate,omitempty"`
}

// UpdateExpenseRequest carries partial updates; nil fields are left unchanged.
// When Participants or SplitType is present the split set is regenerated from
// the new inputs, otherwise from the current ones against the updated amount.
type UpdateExpenseRequest struct {
	Amount       *decimal.Decimal   `json:"amount,omitempty"`
	CurrencyCode *string            `json:"currencyCode,omitempty"`
	Description  *string            `json:"description,omitempty"`
	Category     *string            `json:"category,omitempty"`
	ExpenseDate  *time.Time         `json:"expenseDate,omitempty"`
	PaidBy       *PersonRef         `json:"paidBy,omitempty"`
	Participants []ParticipantInput `json:"participants,omitempty"`
	SplitType    *domain.SplitType  `json:"splitType,omitempty" binding:"omitempty,splittype"`
	Tags         []string           `json:"tags,omitempty"`
	ReceiptRefs  []string           `json:"receiptRefs,omitempty"`
	ManualRate   *ManualRateInput   `json:"manualExchangeRate,omitempty"`
}
