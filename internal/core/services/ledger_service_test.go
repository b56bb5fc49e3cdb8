package services_test

import (
	"context"
	"database/sql"
	"fmt"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
	"github.com/stretchr/testify/suite"
	_ "modernc.org/sqlite"

	"github.com/buda-loco/splitwiser-sub000/internal/apperrors"
	"github.com/buda-loco/splitwiser-sub000/internal/core/domain"
	portsrepo "github.com/buda-loco/splitwiser-sub000/internal/core/ports/repositories"
	portssvc "github.com/buda-loco/splitwiser-sub000/internal/core/ports/services"
	"github.com/buda-loco/splitwiser-sub000/internal/core/services"
	"github.com/buda-loco/splitwiser-sub000/internal/dto"
	"github.com/buda-loco/splitwiser-sub000/internal/repositories/database/sqlite"
)

// failingRateProvider simulates an unreachable rate endpoint.
type failingRateProvider struct{}

func (failingRateProvider) FetchRates(context.Context, string) (map[string]decimal.Decimal, error) {
	return nil, fmt.Errorf("%w: provider unreachable", apperrors.ErrRateFetchFailed)
}

// testEnv wires the full service graph over an in-memory store.
type testEnv struct {
	repos     *portsrepo.RepositoryProvider
	container *portssvc.ServiceContainer
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	db, err := sql.Open("sqlite", ":memory:")
	require.NoError(t, err)
	db.SetMaxOpenConns(1)
	t.Cleanup(func() { db.Close() })

	store := sqlite.NewStore(db)
	require.NoError(t, store.Migrate(context.Background()))

	repos := sqlite.NewRepositoryProvider(store)
	container := services.NewServiceContainer(repos, failingRateProvider{}, nil, services.ContainerConfig{
		RateCacheTTL:    24 * time.Hour,
		SyncedRetention: 100,
	})
	return &testEnv{repos: repos, container: container}
}

func personRef(p domain.PersonID) dto.PersonRef {
	return dto.PersonRef{UserID: p.UserID, ParticipantID: p.ParticipantID}
}

func equalParticipants(persons ...domain.PersonID) []dto.ParticipantInput {
	inputs := make([]dto.ParticipantInput, len(persons))
	for i, p := range persons {
		inputs[i] = dto.ParticipantInput{Person: personRef(p)}
	}
	return inputs
}

func createRequest(amount string, persons ...domain.PersonID) dto.CreateExpenseRequest {
	return dto.CreateExpenseRequest{
		Amount:       decimal.RequireFromString(amount),
		CurrencyCode: "EUR",
		Description:  "dinner",
		Category:     "food",
		ExpenseDate:  time.Now().UTC().Truncate(time.Second),
		PaidBy:       personRef(persons[0]),
		Participants: equalParticipants(persons...),
		SplitType:    domain.SplitEqual,
	}
}

var (
	alice = domain.UserPerson("alice")
	bob   = domain.UserPerson("bob")
	carol = domain.ParticipantPerson("carol")
)

type LedgerServiceTestSuite struct {
	suite.Suite
	env *testEnv
}

func (s *LedgerServiceTestSuite) SetupTest() {
	s.env = newTestEnv(s.T())
}

func (s *LedgerServiceTestSuite) ledger() portssvc.LedgerSvcFacade { return s.env.container.Ledger }

func (s *LedgerServiceTestSuite) TestCreateExpense_EqualSplitDistributesRemainderCents() {
	ctx := context.Background()
	record, err := s.ledger().CreateExpense(ctx, createRequest("10.00", alice, bob, carol), "alice")
	s.Require().NoError(err)

	s.Equal(int64(1), record.Expense.Version)
	s.Equal(domain.SyncPending, record.Expense.SyncStatus)
	s.Require().Len(record.Splits, 3)
	s.True(record.Splits[0].Amount.Equal(decimal.RequireFromString("3.34")))
	s.True(record.Splits[1].Amount.Equal(decimal.RequireFromString("3.33")))
	s.True(record.Splits[2].Amount.Equal(decimal.RequireFromString("3.33")))

	sum := decimal.Zero
	for _, sp := range record.Splits {
		sum = sum.Add(sp.Amount)
	}
	s.True(sum.Equal(record.Expense.Amount))

	// one pending operation, tracked for rollback
	pending, err := s.env.container.Queue.GetPending(ctx)
	s.Require().NoError(err)
	s.Require().Len(pending, 1)
	s.Equal(domain.OpCreate, pending[0].OperationType)
	s.True(s.env.container.Coordinator.Tracked(pending[0].OperationID))

	// history starts with a CREATED entry carrying no before-snapshot
	versions, err := s.env.container.Versions.GetVersions(ctx, record.Expense.ExpenseID)
	s.Require().NoError(err)
	s.Require().Len(versions, 1)
	s.Equal(domain.ChangeCreated, versions[0].ChangeType)
	s.Nil(versions[0].Before)
}

func (s *LedgerServiceTestSuite) TestCreateExpense_PercentageSplit() {
	ctx := context.Background()
	req := createRequest("200.00", alice, bob, carol)
	req.SplitType = domain.SplitPercentage
	fifty := decimal.RequireFromString("50")
	thirty := decimal.RequireFromString("30")
	twenty := decimal.RequireFromString("20")
	req.Participants = []dto.ParticipantInput{
		{Person: personRef(alice), SplitValue: &fifty},
		{Person: personRef(bob), SplitValue: &thirty},
		{Person: personRef(carol), SplitValue: &twenty},
	}

	record, err := s.ledger().CreateExpense(ctx, req, "alice")
	s.Require().NoError(err)
	s.True(record.Splits[0].Amount.Equal(decimal.RequireFromString("100.00")))
	s.True(record.Splits[1].Amount.Equal(decimal.RequireFromString("60.00")))
	s.True(record.Splits[2].Amount.Equal(decimal.RequireFromString("40.00")))
	s.Require().NotNil(record.Splits[0].SplitValue)
	s.True(record.Splits[0].SplitValue.Equal(fifty))
}

func (s *LedgerServiceTestSuite) TestCreateExpense_PercentagesMustSumTo100() {
	req := createRequest("100.00", alice, bob)
	req.SplitType = domain.SplitPercentage
	sixty := decimal.RequireFromString("60")
	req.Participants = []dto.ParticipantInput{
		{Person: personRef(alice), SplitValue: &sixty},
		{Person: personRef(bob), SplitValue: &sixty},
	}

	_, err := s.ledger().CreateExpense(context.Background(), req, "alice")
	s.ErrorIs(err, apperrors.ErrValidation)
}

func (s *LedgerServiceTestSuite) TestCreateExpense_SharesSplit() {
	req := createRequest("100.00", alice, bob, carol)
	req.SplitType = domain.SplitShares
	one := decimal.RequireFromString("1")
	two := decimal.RequireFromString("2")
	five := decimal.RequireFromString("5")
	req.Participants = []dto.ParticipantInput{
		{Person: personRef(alice), SplitValue: &one},
		{Person: personRef(bob), SplitValue: &two},
		{Person: personRef(carol), SplitValue: &five},
	}

	record, err := s.ledger().CreateExpense(context.Background(), req, "alice")
	s.Require().NoError(err)
	s.True(record.Splits[0].Amount.Equal(decimal.RequireFromString("12.50")))
	s.True(record.Splits[1].Amount.Equal(decimal.RequireFromString("25.00")))
	s.True(record.Splits[2].Amount.Equal(decimal.RequireFromString("62.50")))
}

func (s *LedgerServiceTestSuite) TestCreateExpense_Validation() {
	ctx := context.Background()

	zero := createRequest("10.00", alice, bob)
	zero.Amount = decimal.Zero
	_, err := s.ledger().CreateExpense(ctx, zero, "alice")
	s.ErrorIs(err, apperrors.ErrValidation)

	noPeople := createRequest("10.00", alice)
	noPeople.Participants = nil
	_, err = s.ledger().CreateExpense(ctx, noPeople, "alice")
	s.ErrorIs(err, apperrors.ErrValidation)

	badPerson := createRequest("10.00", alice, bob)
	badPerson.Participants[1].Person = dto.PersonRef{UserID: "bob", ParticipantID: "carol"}
	_, err = s.ledger().CreateExpense(ctx, badPerson, "alice")
	s.ErrorIs(err, apperrors.ErrValidation)

	tooPrecise := createRequest("10.001", alice, bob)
	_, err = s.ledger().CreateExpense(ctx, tooPrecise, "alice")
	s.ErrorIs(err, apperrors.ErrValidation)
}

func (s *LedgerServiceTestSuite) TestUpdateExpense_BumpsVersionAndRegeneratesSplits() {
	ctx := context.Background()
	created, err := s.ledger().CreateExpense(ctx, createRequest("10.00", alice, bob), "alice")
	s.Require().NoError(err)

	newAmount := decimal.RequireFromString("20.00")
	updated, err := s.ledger().UpdateExpense(ctx, created.Expense.ExpenseID, dto.UpdateExpenseRequest{Amount: &newAmount}, "bob")
	s.Require().NoError(err)

	s.Equal(int64(2), updated.Expense.Version)
	s.Equal("bob", updated.Expense.LastUpdatedBy)
	s.Require().Len(updated.Splits, 2)
	s.True(updated.Splits[0].Amount.Equal(decimal.RequireFromString("10.00")))
	s.True(updated.Splits[1].Amount.Equal(decimal.RequireFromString("10.00")))

	versions, err := s.env.container.Versions.GetVersions(ctx, created.Expense.ExpenseID)
	s.Require().NoError(err)
	s.Require().Len(versions, 2)
	s.Equal(int64(2), versions[0].VersionNumber)
	s.Equal(domain.ChangeUpdated, versions[0].ChangeType)
	s.Require().NotNil(versions[0].Before)
	s.True(versions[0].Before.Amount.Equal(decimal.RequireFromString("10.00")))
}

func (s *LedgerServiceTestSuite) TestDeleteAndRestoreExpense() {
	ctx := context.Background()
	created, err := s.ledger().CreateExpense(ctx, createRequest("10.00", alice, bob), "alice")
	s.Require().NoError(err)
	expenseID := created.Expense.ExpenseID

	s.Require().NoError(s.ledger().DeleteExpense(ctx, expenseID, "alice"))

	listed, err := s.ledger().ListExpenses(ctx, nil)
	s.Require().NoError(err)
	s.Empty(listed)

	// still retrievable directly, flagged deleted
	record, err := s.ledger().GetExpense(ctx, expenseID)
	s.Require().NoError(err)
	s.True(record.Expense.IsDeleted)
	s.NotNil(record.Expense.DeletedAt)
	s.Equal(int64(2), record.Expense.Version)

	s.ErrorIs(s.ledger().DeleteExpense(ctx, expenseID, "alice"), apperrors.ErrConflict)

	restored, err := s.ledger().RestoreExpense(ctx, expenseID, "alice")
	s.Require().NoError(err)
	s.False(restored.IsDeleted)
	s.Nil(restored.DeletedAt)
	s.Equal(int64(3), restored.Version)

	versions, err := s.env.container.Versions.GetVersions(ctx, expenseID)
	s.Require().NoError(err)
	s.Require().Len(versions, 3)
	s.Equal(domain.ChangeRestored, versions[0].ChangeType)
	s.Equal(domain.ChangeDeleted, versions[1].ChangeType)
	s.Nil(versions[1].After)
}

func (s *LedgerServiceTestSuite) TestListExpenses_TagFilter() {
	ctx := context.Background()
	tagged := createRequest("10.00", alice, bob)
	tagged.Tags = []string{"trip"}
	_, err := s.ledger().CreateExpense(ctx, tagged, "alice")
	s.Require().NoError(err)
	_, err = s.ledger().CreateExpense(ctx, createRequest("20.00", alice, bob), "alice")
	s.Require().NoError(err)

	trip := "trip"
	listed, err := s.ledger().ListExpenses(ctx, &trip)
	s.Require().NoError(err)
	s.Require().Len(listed, 1)
	s.True(listed[0].Amount.Equal(decimal.RequireFromString("10.00")))
}

func TestLedgerServiceTestSuite(t *testing.T) {
	suite.Run(t, new(LedgerServiceTestSuite))
}
