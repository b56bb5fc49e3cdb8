package sqlite

import (
	"context"
	"database/sql"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
	_ "modernc.org/sqlite"

	"github.com/buda-loco/splitwiser-sub000/internal/core/domain"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	db, err := sql.Open("sqlite", ":memory:")
	require.NoError(t, err)
	db.SetMaxOpenConns(1)
	t.Cleanup(func() { db.Close() })

	store := NewStore(db)
	require.NoError(t, store.Migrate(context.Background()))
	return store
}

func testExpense(expenseID string, amount string) domain.Expense {
	now := time.Now().UTC().Truncate(time.Second)
	return domain.Expense{
		ExpenseID:    expenseID,
		Amount:       decimal.RequireFromString(amount),
		CurrencyCode: "EUR",
		Description:  "groceries",
		Category:     "food",
		ExpenseDate:  now,
		PaidBy:       domain.UserPerson("alice"),
		Version:      1,
		ReceiptRefs:  []string{},
		SyncStatus:   domain.SyncPending,
		AuditFields: domain.AuditFields{
			CreatedAt:     now,
			CreatedBy:     "alice",
			LastUpdatedAt: now,
			LastUpdatedBy: "alice",
		},
	}
}

func testSplits(expense domain.Expense, persons ...domain.PersonID) []domain.ExpenseSplit {
	share := expense.Amount.Div(decimal.NewFromInt(int64(len(persons)))).Round(2)
	splits := make([]domain.ExpenseSplit, len(persons))
	for i, p := range persons {
		splits[i] = domain.ExpenseSplit{
			SplitID:   uuid.NewString(),
			ExpenseID: expense.ExpenseID,
			Person:    p,
			Amount:    share,
			SplitType: domain.SplitEqual,
		}
	}
	return splits
}

func testParticipants(expense domain.Expense, persons ...domain.PersonID) []domain.ExpenseParticipant {
	participants := make([]domain.ExpenseParticipant, len(persons))
	for i, p := range persons {
		participants[i] = domain.ExpenseParticipant{ExpenseID: expense.ExpenseID, Person: p}
	}
	return participants
}

func testVersion(expense domain.Expense, change domain.ChangeType, before *domain.ExpenseSnapshot) domain.ExpenseVersion {
	return domain.ExpenseVersion{
		VersionID:     uuid.NewString(),
		ExpenseID:     expense.ExpenseID,
		VersionNumber: expense.Version,
		ChangedBy:     "alice",
		ChangeType:    change,
		Before:        before,
		After:         expense.Snapshot(),
		CreatedAt:     time.Now().UTC(),
	}
}

func testOperation(table domain.EntityTable, opType domain.OperationType, recordID string, payload domain.OperationPayload, ts time.Time) domain.Operation {
	return domain.Operation{
		OperationID:   uuid.NewString(),
		Timestamp:     ts,
		Table:         table,
		OperationType: opType,
		RecordID:      recordID,
		Status:        domain.StatusPending,
		Payload:       payload,
	}
}

func createExpenseFixture(t *testing.T, store *Store, expenseID string, amount string) (domain.Expense, domain.Operation) {
	t.Helper()
	repo := NewSqliteExpenseRepository(store)
	expense := testExpense(expenseID, amount)
	bob := domain.UserPerson("bob")
	splits := testSplits(expense, expense.PaidBy, bob)
	participants := testParticipants(expense, expense.PaidBy, bob)
	tags := []domain.ExpenseTag{{ExpenseID: expense.ExpenseID, Tag: "trip"}}
	version := testVersion(expense, domain.ChangeCreated, nil)
	op := testOperation(domain.TableExpenses, domain.OpCreate, expense.ExpenseID, domain.ExpenseCreatedPayload{
		Expense:      expense,
		Splits:       splits,
		Participants: participants,
		Tags:         tags,
	}, time.Now().UTC())

	require.NoError(t, repo.CreateExpense(context.Background(), expense, splits, participants, tags, version, op))
	return expense, op
}
