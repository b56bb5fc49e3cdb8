package services_test

import (
	"context"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/suite"

	"github.com/buda-loco/splitwiser-sub000/internal/apperrors"
	"github.com/buda-loco/splitwiser-sub000/internal/core/domain"
	"github.com/buda-loco/splitwiser-sub000/internal/dto"
)

type VersionServiceTestSuite struct {
	suite.Suite
	env *testEnv
}

func (s *VersionServiceTestSuite) SetupTest() {
	s.env = newTestEnv(s.T())
}

func (s *VersionServiceTestSuite) TestGetVersions_UnknownExpense() {
	_, err := s.env.container.Versions.GetVersions(context.Background(), "nope")
	s.ErrorIs(err, apperrors.ErrNotFound)
}

func (s *VersionServiceTestSuite) TestRevertToVersion_AppliesSnapshotAsNewVersion() {
	ctx := context.Background()
	created, err := s.env.container.Ledger.CreateExpense(ctx, createRequest("10.00", alice, bob), "alice")
	s.Require().NoError(err)
	expenseID := created.Expense.ExpenseID

	newAmount := decimal.RequireFromString("20.00")
	newDesc := "dinner and drinks"
	_, err = s.env.container.Ledger.UpdateExpense(ctx, expenseID, dto.UpdateExpenseRequest{
		Amount:      &newAmount,
		Description: &newDesc,
	}, "bob")
	s.Require().NoError(err)

	reverted, err := s.env.container.Versions.RevertToVersion(ctx, expenseID, 1, "alice")
	s.Require().NoError(err)

	// history moves forward, never back
	s.Equal(int64(3), reverted.Expense.Version)
	s.True(reverted.Expense.Amount.Equal(decimal.RequireFromString("10.00")))
	s.Equal("dinner", reverted.Expense.Description)
	s.Equal("alice", reverted.Expense.LastUpdatedBy)

	// splits regenerated against the reverted amount
	sum := decimal.Zero
	for _, sp := range reverted.Splits {
		sum = sum.Add(sp.Amount)
	}
	s.True(sum.Equal(reverted.Expense.Amount))

	versions, err := s.env.container.Versions.GetVersions(ctx, expenseID)
	s.Require().NoError(err)
	s.Require().Len(versions, 3)
	s.Equal(int64(3), versions[0].VersionNumber)
	s.Equal(domain.ChangeUpdated, versions[0].ChangeType)
	s.Require().NotNil(versions[0].Before)
	s.True(versions[0].Before.Amount.Equal(newAmount))
}

func (s *VersionServiceTestSuite) TestRevertToVersion_RejectsDeletionEntry() {
	ctx := context.Background()
	created, err := s.env.container.Ledger.CreateExpense(ctx, createRequest("10.00", alice, bob), "alice")
	s.Require().NoError(err)
	expenseID := created.Expense.ExpenseID

	s.Require().NoError(s.env.container.Ledger.DeleteExpense(ctx, expenseID, "alice"))

	_, err = s.env.container.Versions.RevertToVersion(ctx, expenseID, 2, "alice")
	s.ErrorIs(err, apperrors.ErrInvalidRevertTarget)
}

func (s *VersionServiceTestSuite) TestRevertToVersion_UnknownVersion() {
	ctx := context.Background()
	created, err := s.env.container.Ledger.CreateExpense(ctx, createRequest("10.00", alice, bob), "alice")
	s.Require().NoError(err)

	_, err = s.env.container.Versions.RevertToVersion(ctx, created.Expense.ExpenseID, 9, "alice")
	s.ErrorIs(err, apperrors.ErrNotFound)
}

func TestVersionServiceTestSuite(t *testing.T) {
	suite.Run(t, new(VersionServiceTestSuite))
}
