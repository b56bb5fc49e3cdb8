package sqlite

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/suite"

	"github.com/buda-loco/splitwiser-sub000/internal/apperrors"
	"github.com/buda-loco/splitwiser-sub000/internal/core/domain"
)

type QueueRepositoryTestSuite struct {
	suite.Suite
	store       *Store
	repo        *SqliteQueueRepository
	expenseRepo *SqliteExpenseRepository
}

func (s *QueueRepositoryTestSuite) SetupTest() {
	s.store = newTestStore(s.T())
	s.repo = NewSqliteQueueRepository(s.store)
	s.expenseRepo = NewSqliteExpenseRepository(s.store)
}

// enqueue writes a standalone settlement operation at the given timestamp.
func (s *QueueRepositoryTestSuite) enqueue(ts time.Time) domain.Operation {
	op := testOperation(domain.TableSettlements, domain.OpCreate, "rec-"+ts.Format("150405.000"), domain.SettlementCreatedPayload{}, ts)
	s.Require().NoError(insertOperation(context.Background(), s.store.DB, op))
	return op
}

func (s *QueueRepositoryTestSuite) TestFindPending_FIFOOrder() {
	base := time.Now().UTC().Truncate(time.Second)
	third := s.enqueue(base.Add(2 * time.Second))
	first := s.enqueue(base)
	second := s.enqueue(base.Add(time.Second))

	pending, err := s.repo.FindPending(context.Background())
	s.Require().NoError(err)
	s.Require().Len(pending, 3)
	s.Equal(first.OperationID, pending[0].OperationID)
	s.Equal(second.OperationID, pending[1].OperationID)
	s.Equal(third.OperationID, pending[2].OperationID)
}

func (s *QueueRepositoryTestSuite) TestMarkSynced_IsIdempotent() {
	ctx := context.Background()
	op := s.enqueue(time.Now().UTC())

	s.Require().NoError(s.repo.MarkSynced(ctx, op.OperationID))
	s.Require().NoError(s.repo.MarkSynced(ctx, op.OperationID))

	found, err := s.repo.FindOperationByID(ctx, op.OperationID)
	s.Require().NoError(err)
	s.Equal(domain.StatusSynced, found.Status)
}

func (s *QueueRepositoryTestSuite) TestMarkSynced_RejectsConflictedOperation() {
	ctx := context.Background()
	op := s.enqueue(time.Now().UTC())

	s.Require().NoError(s.repo.MarkConflict(ctx, op.OperationID, nil))
	s.ErrorIs(s.repo.MarkSynced(ctx, op.OperationID), apperrors.ErrConflict)
}

func (s *QueueRepositoryTestSuite) TestMarkSynced_ClearsExpenseDivergence() {
	ctx := context.Background()
	_, op := createExpenseFixture(s.T(), s.store, "exp-q", "12.00")

	s.Require().NoError(s.repo.MarkSynced(ctx, op.OperationID))

	expense, err := s.expenseRepo.FindExpenseByID(ctx, "exp-q")
	s.Require().NoError(err)
	s.Equal(domain.SyncSynced, expense.SyncStatus)
}

func (s *QueueRepositoryTestSuite) TestMarkSynced_KeepsDivergenceWhileOtherOpsPending() {
	ctx := context.Background()
	_, op := createExpenseFixture(s.T(), s.store, "exp-q2", "12.00")

	// a second pending operation for the same record
	second := testOperation(domain.TableExpenses, domain.OpUpdate, "exp-q2", domain.ExpenseUpdatedPayload{}, time.Now().UTC())
	s.Require().NoError(insertOperation(ctx, s.store.DB, second))

	s.Require().NoError(s.repo.MarkSynced(ctx, op.OperationID))

	expense, err := s.expenseRepo.FindExpenseByID(ctx, "exp-q2")
	s.Require().NoError(err)
	s.Equal(domain.SyncPending, expense.SyncStatus)

	s.Require().NoError(s.repo.MarkSynced(ctx, second.OperationID))
	expense, err = s.expenseRepo.FindExpenseByID(ctx, "exp-q2")
	s.Require().NoError(err)
	s.Equal(domain.SyncSynced, expense.SyncStatus)
}

func (s *QueueRepositoryTestSuite) TestMarkFailed_IncrementsRetryAndFlagsExpense() {
	ctx := context.Background()
	_, op := createExpenseFixture(s.T(), s.store, "exp-f", "12.00")

	s.Require().NoError(s.repo.MarkFailed(ctx, op.OperationID, "remote timeout"))
	s.Require().NoError(s.repo.MarkFailed(ctx, op.OperationID, "remote unreachable"))

	found, err := s.repo.FindOperationByID(ctx, op.OperationID)
	s.Require().NoError(err)
	s.Equal(domain.StatusFailed, found.Status)
	s.Equal(2, found.RetryCount)
	s.Require().NotNil(found.ErrorMessage)
	s.Equal("remote unreachable", *found.ErrorMessage)

	expense, err := s.expenseRepo.FindExpenseByID(ctx, "exp-f")
	s.Require().NoError(err)
	s.Equal(domain.SyncFailed, expense.SyncStatus)
}

func (s *QueueRepositoryTestSuite) TestRemoveOperation_NotFound() {
	s.ErrorIs(s.repo.RemoveOperation(context.Background(), "nope"), apperrors.ErrQueueOperationNotFound)
}

func (s *QueueRepositoryTestSuite) TestClearSynced_KeepsMostRecent() {
	ctx := context.Background()
	base := time.Now().UTC().Truncate(time.Second)

	var ops []domain.Operation
	for i := 0; i < 5; i++ {
		op := s.enqueue(base.Add(time.Duration(i) * time.Second))
		s.Require().NoError(s.repo.MarkSynced(ctx, op.OperationID))
		ops = append(ops, op)
	}
	stillPending := s.enqueue(base.Add(10 * time.Second))

	removed, err := s.repo.ClearSynced(ctx, 2)
	s.Require().NoError(err)
	s.Equal(int64(3), removed)

	// the two most recent synced rows and the pending row survive
	for _, op := range ops[:3] {
		_, err := s.repo.FindOperationByID(ctx, op.OperationID)
		s.ErrorIs(err, apperrors.ErrQueueOperationNotFound, fmt.Sprintf("operation %s should be pruned", op.OperationID))
	}
	for _, op := range ops[3:] {
		_, err := s.repo.FindOperationByID(ctx, op.OperationID)
		s.NoError(err)
	}
	_, err = s.repo.FindOperationByID(ctx, stillPending.OperationID)
	s.NoError(err)
}

func (s *QueueRepositoryTestSuite) TestCountByStatus_ZeroesMissingStatuses() {
	ctx := context.Background()
	op := s.enqueue(time.Now().UTC())

	counts, err := s.repo.CountByStatus(ctx)
	s.Require().NoError(err)
	s.Equal(1, counts[domain.StatusPending])
	s.Equal(0, counts[domain.StatusSynced])
	s.Equal(0, counts[domain.StatusFailed])
	s.Equal(0, counts[domain.StatusConflict])

	s.Require().NoError(s.repo.MarkSynced(ctx, op.OperationID))
	counts, err = s.repo.CountByStatus(ctx)
	s.Require().NoError(err)
	s.Equal(0, counts[domain.StatusPending])
	s.Equal(1, counts[domain.StatusSynced])
}

func TestQueueRepositoryTestSuite(t *testing.T) {
	suite.Run(t, new(QueueRepositoryTestSuite))
}
