package domain

import (
	"encoding/json"
	"fmt"
	"time"
)

// EntityTable names a logical table targeted by a sync operation.
type EntityTable string

const (
	TableExpenses    EntityTable = "expenses"
	TableSettlements EntityTable = "settlements"
)

// OperationType is the verb of a sync operation.
type OperationType string

const (
	OpCreate OperationType = "CREATE"
	OpUpdate OperationType = "UPDATE"
	OpDelete OperationType = "DELETE"
)

// OperationStatus tracks a queued operation through the sync transport.
// SYNCED and CONFLICT are terminal; FAILED operations are eligible for retry.
type OperationStatus string

const (
	StatusPending  OperationStatus = "PENDING"
	StatusSynced   OperationStatus = "SYNCED"
	StatusFailed   OperationStatus = "FAILED"
	StatusConflict OperationStatus = "CONFLICT"
)

// Operation is one entry in the mutation queue: a durable record of a local
// change awaiting synchronization with a remote system. Entries are created in
// the same storage transaction as the underlying entity write and are mutated
// only by the sync transport's status transitions or explicit queue maintenance.
type Operation struct {
	OperationID        string           `json:"operationID"`
	Timestamp          time.Time        `json:"timestamp"`
	Table              EntityTable      `json:"table"`
	OperationType      OperationType    `json:"operationType"`
	RecordID           string           `json:"recordID"`
	Status             OperationStatus  `json:"status"`
	RetryCount         int              `json:"retryCount"`
	ErrorMessage       *string          `json:"errorMessage,omitempty"`
	OriginalValues     *ExpenseSnapshot `json:"originalValues,omitempty"` // pre-mutation state, expense ops only
	Payload            OperationPayload `json:"payload"`
	ConflictResolution *string          `json:"conflictResolution,omitempty"`
}

// OperationPayload is a closed set of payload variants, one per table and verb.
// Keeping each payload strongly typed rules out the malformed-payload class of
// bugs a single loosely-typed operation struct invites.
type OperationPayload interface {
	PayloadKind() string
}

// ExpenseCreatedPayload carries a full new expense with its owned rows.
type ExpenseCreatedPayload struct {
	Expense      Expense              `json:"expense"`
	Splits       []ExpenseSplit       `json:"splits"`
	Participants []ExpenseParticipant `json:"participants"`
	Tags         []ExpenseTag         `json:"tags,omitempty"`
}

// ExpenseUpdatedPayload carries the post-update expense and its regenerated sets.
type ExpenseUpdatedPayload struct {
	Expense      Expense              `json:"expense"`
	Splits       []ExpenseSplit       `json:"splits"`
	Participants []ExpenseParticipant `json:"participants"`
	Tags         []ExpenseTag         `json:"tags,omitempty"`
}

// ExpenseDeletedPayload records a soft delete.
type ExpenseDeletedPayload struct {
	ExpenseID string    `json:"expenseID"`
	DeletedAt time.Time `json:"deletedAt"`
}

// ExpenseRestoredPayload records a restore of a soft-deleted expense.
type ExpenseRestoredPayload struct {
	ExpenseID string `json:"expenseID"`
}

// SettlementCreatedPayload carries a full new settlement.
type SettlementCreatedPayload struct {
	Settlement Settlement `json:"settlement"`
}

// SettlementDeletedPayload records a hard delete of a settlement.
type SettlementDeletedPayload struct {
	SettlementID string `json:"settlementID"`
}

func (ExpenseCreatedPayload) PayloadKind() string    { return "expense.created" }
func (ExpenseUpdatedPayload) PayloadKind() string    { return "expense.updated" }
func (ExpenseDeletedPayload) PayloadKind() string    { return "expense.deleted" }
func (ExpenseRestoredPayload) PayloadKind() string   { return "expense.restored" }
func (SettlementCreatedPayload) PayloadKind() string { return "settlement.created" }
func (SettlementDeletedPayload) PayloadKind() string { return "settlement.deleted" }

// payloadEnvelope is the storage form of a payload: the kind tag selects the
// concrete variant on decode.
type payloadEnvelope struct {
	Kind string          `json:"kind"`
	Data json.RawMessage `json:"data"`
}

// EncodePayload serializes a payload variant with its kind tag.
func EncodePayload(p OperationPayload) ([]byte, error) {
	if p == nil {
		return nil, fmt.Errorf("operation payload must not be nil")
	}
	data, err := json.Marshal(p)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal %s payload: %w", p.PayloadKind(), err)
	}
	return json.Marshal(payloadEnvelope{Kind: p.PayloadKind(), Data: data})
}

// DecodePayload deserializes a payload envelope into its concrete variant.
func DecodePayload(raw []byte) (OperationPayload, error) {
	var env payloadEnvelope
	if err := json.Unmarshal(raw, &env); err != nil {
		return nil, fmt.Errorf("failed to unmarshal payload envelope: %w", err)
	}

	var p OperationPayload
	switch env.Kind {
	case "expense.created":
		p = &ExpenseCreatedPayload{}
	case "expense.updated":
		p = &ExpenseUpdatedPayload{}
	case "expense.deleted":
		p = &ExpenseDeletedPayload{}
	case "expense.restored":
		p = &ExpenseRestoredPayload{}
	case "settlement.created":
		p = &SettlementCreatedPayload{}
	case "settlement.deleted":
		p = &SettlementDeletedPayload{}
	default:
		return nil, fmt.Errorf("unknown payload kind %q", env.Kind)
	}

	if err := json.Unmarshal(env.Data, p); err != nil {
		return nil, fmt.Errorf("failed to unmarshal %s payload: %w", env.Kind, err)
	}
	return derefPayload(p), nil
}

// derefPayload returns the value form so decoded payloads compare and type-switch
// the same way as freshly constructed ones.
func derefPayload(p OperationPayload) OperationPayload {
	switch v := p.(type) {
	case *ExpenseCreatedPayload:
		return *v
	case *ExpenseUpdatedPayload:
		return *v
	case *ExpenseDeletedPayload:
		return *v
	case *ExpenseRestoredPayload:
		return *v
	case *SettlementCreatedPayload:
		return *v
	case *SettlementDeletedPayload:
		return *v
	default:
		return p
	}
}
