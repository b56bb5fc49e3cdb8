package sqlite

import (
	"context"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/suite"

	"github.com/buda-loco/splitwiser-sub000/internal/apperrors"
	"github.com/buda-loco/splitwiser-sub000/internal/core/domain"
)

type ExpenseRepositoryTestSuite struct {
	suite.Suite
	store       *Store
	repo        *SqliteExpenseRepository
	versionRepo *SqliteVersionRepository
	queueRepo   *SqliteQueueRepository
}

func (s *ExpenseRepositoryTestSuite) SetupTest() {
	s.store = newTestStore(s.T())
	s.repo = NewSqliteExpenseRepository(s.store)
	s.versionRepo = NewSqliteVersionRepository(s.store)
	s.queueRepo = NewSqliteQueueRepository(s.store)
}

func (s *ExpenseRepositoryTestSuite) TestCreateExpense_WritesAllTablesAtomically() {
	ctx := context.Background()
	expense, op := createExpenseFixture(s.T(), s.store, "exp-1", "42.50")

	found, err := s.repo.FindExpenseByID(ctx, "exp-1")
	s.Require().NoError(err)
	s.True(found.Amount.Equal(expense.Amount))
	s.Equal("EUR", found.CurrencyCode)
	s.Equal(domain.UserPerson("alice"), found.PaidBy)
	s.Equal(int64(1), found.Version)
	s.Equal(domain.SyncPending, found.SyncStatus)
	s.False(found.IsDeleted)

	splits, err := s.repo.FindSplitsByExpenseID(ctx, "exp-1")
	s.Require().NoError(err)
	s.Len(splits, 2)

	participants, err := s.repo.FindParticipantsByExpenseID(ctx, "exp-1")
	s.Require().NoError(err)
	s.Len(participants, 2)

	tags, err := s.repo.FindTagsByExpenseID(ctx, "exp-1")
	s.Require().NoError(err)
	s.Require().Len(tags, 1)
	s.Equal("trip", tags[0].Tag)

	versions, err := s.versionRepo.FindVersionsByExpenseID(ctx, "exp-1")
	s.Require().NoError(err)
	s.Require().Len(versions, 1)
	s.Equal(domain.ChangeCreated, versions[0].ChangeType)
	s.Nil(versions[0].Before)
	s.Require().NotNil(versions[0].After)
	s.True(versions[0].After.Amount.Equal(expense.Amount))

	ops, err := s.queueRepo.FindOperationsForRecord(ctx, domain.TableExpenses, "exp-1")
	s.Require().NoError(err)
	s.Require().Len(ops, 1)
	s.Equal(op.OperationID, ops[0].OperationID)
	s.Equal(domain.StatusPending, ops[0].Status)
	s.Equal("expense.created", ops[0].Payload.PayloadKind())
}

func (s *ExpenseRepositoryTestSuite) TestCreateExpense_RoundTripsManualRateAndReceipts() {
	ctx := context.Background()
	expense := testExpense("exp-json", "10.00")
	expense.ManualExchangeRate = &domain.ManualExchangeRate{
		FromCurrencyCode: "EUR",
		ToCurrencyCode:   "USD",
		Rate:             decimal.RequireFromString("1.08"),
	}
	expense.ReceiptRefs = []string{"receipt-1", "receipt-2"}
	splits := testSplits(expense, expense.PaidBy)
	version := testVersion(expense, domain.ChangeCreated, nil)
	op := testOperation(domain.TableExpenses, domain.OpCreate, expense.ExpenseID, domain.ExpenseCreatedPayload{Expense: expense, Splits: splits}, time.Now().UTC())

	s.Require().NoError(s.repo.CreateExpense(ctx, expense, splits, nil, nil, version, op))

	found, err := s.repo.FindExpenseByID(ctx, "exp-json")
	s.Require().NoError(err)
	s.Require().NotNil(found.ManualExchangeRate)
	s.Equal("EUR", found.ManualExchangeRate.FromCurrencyCode)
	s.True(found.ManualExchangeRate.Rate.Equal(decimal.RequireFromString("1.08")))
	s.Equal([]string{"receipt-1", "receipt-2"}, found.ReceiptRefs)
}

func (s *ExpenseRepositoryTestSuite) TestUpdateExpense_ReplacesOwnedRows() {
	ctx := context.Background()
	expense, _ := createExpenseFixture(s.T(), s.store, "exp-2", "30.00")

	carol := domain.ParticipantPerson("carol")
	expense.Amount = decimal.RequireFromString("60.00")
	expense.Version = 2
	splits := testSplits(expense, expense.PaidBy, carol)
	participants := testParticipants(expense, expense.PaidBy, carol)
	version := testVersion(expense, domain.ChangeUpdated, expense.Snapshot())
	op := testOperation(domain.TableExpenses, domain.OpUpdate, expense.ExpenseID, domain.ExpenseUpdatedPayload{Expense: expense, Splits: splits, Participants: participants}, time.Now().UTC())

	s.Require().NoError(s.repo.UpdateExpense(ctx, expense, splits, participants, nil, version, op))

	found, err := s.repo.FindExpenseByID(ctx, "exp-2")
	s.Require().NoError(err)
	s.True(found.Amount.Equal(decimal.RequireFromString("60.00")))
	s.Equal(int64(2), found.Version)

	gotSplits, err := s.repo.FindSplitsByExpenseID(ctx, "exp-2")
	s.Require().NoError(err)
	s.Require().Len(gotSplits, 2)
	persons := []domain.PersonID{gotSplits[0].Person, gotSplits[1].Person}
	s.Contains(persons, carol)

	gotTags, err := s.repo.FindTagsByExpenseID(ctx, "exp-2")
	s.Require().NoError(err)
	s.Empty(gotTags)

	versions, err := s.versionRepo.FindVersionsByExpenseID(ctx, "exp-2")
	s.Require().NoError(err)
	s.Require().Len(versions, 2)
	// newest first
	s.Equal(int64(2), versions[0].VersionNumber)
	s.Equal(domain.ChangeUpdated, versions[0].ChangeType)
}

func (s *ExpenseRepositoryTestSuite) TestUpdateExpense_NotFound() {
	ctx := context.Background()
	expense := testExpense("ghost", "1.00")
	version := testVersion(expense, domain.ChangeUpdated, nil)
	op := testOperation(domain.TableExpenses, domain.OpUpdate, expense.ExpenseID, domain.ExpenseUpdatedPayload{Expense: expense}, time.Now().UTC())

	err := s.repo.UpdateExpense(ctx, expense, nil, nil, nil, version, op)
	s.ErrorIs(err, apperrors.ErrNotFound)

	// the failed transaction must not leave a queue row behind
	ops, err := s.queueRepo.FindOperationsForRecord(ctx, domain.TableExpenses, "ghost")
	s.Require().NoError(err)
	s.Empty(ops)
}

func (s *ExpenseRepositoryTestSuite) TestListExpenses_FiltersDeletedAndTag() {
	ctx := context.Background()
	createExpenseFixture(s.T(), s.store, "exp-a", "10.00")
	createExpenseFixture(s.T(), s.store, "exp-b", "20.00")

	// soft-delete exp-a
	expense, err := s.repo.FindExpenseByID(ctx, "exp-a")
	s.Require().NoError(err)
	now := time.Now().UTC()
	expense.IsDeleted = true
	expense.DeletedAt = &now
	expense.Version = 2
	version := testVersion(*expense, domain.ChangeDeleted, expense.Snapshot())
	version.After = nil
	op := testOperation(domain.TableExpenses, domain.OpDelete, expense.ExpenseID, domain.ExpenseDeletedPayload{ExpenseID: expense.ExpenseID, DeletedAt: now}, now)
	s.Require().NoError(s.repo.SetExpenseDeleted(ctx, *expense, version, op))

	active, err := s.repo.ListExpenses(ctx, false, nil)
	s.Require().NoError(err)
	s.Require().Len(active, 1)
	s.Equal("exp-b", active[0].ExpenseID)

	all, err := s.repo.ListExpenses(ctx, true, nil)
	s.Require().NoError(err)
	s.Len(all, 2)

	trip := "trip"
	tagged, err := s.repo.ListExpenses(ctx, false, &trip)
	s.Require().NoError(err)
	s.Require().Len(tagged, 1)
	s.Equal("exp-b", tagged[0].ExpenseID)

	other := "holiday"
	none, err := s.repo.ListExpenses(ctx, false, &other)
	s.Require().NoError(err)
	s.Empty(none)
}

func (s *ExpenseRepositoryTestSuite) TestRemoveExpense_ErasesAllTraces() {
	ctx := context.Background()
	createExpenseFixture(s.T(), s.store, "exp-gone", "15.00")

	s.Require().NoError(s.repo.RemoveExpense(ctx, "exp-gone"))

	_, err := s.repo.FindExpenseByID(ctx, "exp-gone")
	s.ErrorIs(err, apperrors.ErrNotFound)

	splits, err := s.repo.FindSplitsByExpenseID(ctx, "exp-gone")
	s.Require().NoError(err)
	s.Empty(splits)

	versions, err := s.versionRepo.FindVersionsByExpenseID(ctx, "exp-gone")
	s.Require().NoError(err)
	s.Empty(versions)

	s.ErrorIs(s.repo.RemoveExpense(ctx, "exp-gone"), apperrors.ErrNotFound)
}

func (s *ExpenseRepositoryTestSuite) TestRestoreExpenseState_DropsNewerVersions() {
	ctx := context.Background()
	original, _ := createExpenseFixture(s.T(), s.store, "exp-r", "25.00")
	originalSplits, err := s.repo.FindSplitsByExpenseID(ctx, "exp-r")
	s.Require().NoError(err)
	originalParticipants, err := s.repo.FindParticipantsByExpenseID(ctx, "exp-r")
	s.Require().NoError(err)
	originalTags, err := s.repo.FindTagsByExpenseID(ctx, "exp-r")
	s.Require().NoError(err)

	// apply an update on top
	updated := original
	updated.Amount = decimal.RequireFromString("99.00")
	updated.Version = 2
	splits := testSplits(updated, updated.PaidBy)
	version := testVersion(updated, domain.ChangeUpdated, original.Snapshot())
	op := testOperation(domain.TableExpenses, domain.OpUpdate, updated.ExpenseID, domain.ExpenseUpdatedPayload{Expense: updated, Splits: splits}, time.Now().UTC())
	s.Require().NoError(s.repo.UpdateExpense(ctx, updated, splits, originalParticipants, originalTags, version, op))

	// roll the update back
	s.Require().NoError(s.repo.RestoreExpenseState(ctx, original, originalSplits, originalParticipants, originalTags))

	found, err := s.repo.FindExpenseByID(ctx, "exp-r")
	s.Require().NoError(err)
	s.True(found.Amount.Equal(decimal.RequireFromString("25.00")))
	s.Equal(int64(1), found.Version)

	versions, err := s.versionRepo.FindVersionsByExpenseID(ctx, "exp-r")
	s.Require().NoError(err)
	s.Require().Len(versions, 1)
	s.Equal(int64(1), versions[0].VersionNumber)
}

func TestExpenseRepositoryTestSuite(t *testing.T) {
	suite.Run(t, new(ExpenseRepositoryTestSuite))
}
