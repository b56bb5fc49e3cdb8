package services

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/buda-loco/splitwiser-sub000/internal/apperrors"
	"github.com/buda-loco/splitwiser-sub000/internal/core/domain"
	portsrepo "github.com/buda-loco/splitwiser-sub000/internal/core/ports/repositories"
	portssvc "github.com/buda-loco/splitwiser-sub000/internal/core/ports/services"
	"github.com/buda-loco/splitwiser-sub000/internal/dto"
	"github.com/buda-loco/splitwiser-sub000/internal/middleware"
)

var (
	ErrAmountNotPositive  = fmt.Errorf("%w: expense amount must be positive", apperrors.ErrValidation)
	ErrAmountPrecision    = fmt.Errorf("%w: expense amount must not exceed two decimal places", apperrors.ErrValidation)
	ErrNoParticipants     = fmt.Errorf("%w: expense must have at least one participant", apperrors.ErrValidation)
	ErrSplitMismatch      = fmt.Errorf("%w: splits do not sum to the expense amount", apperrors.ErrValidation)
	ErrPercentagesNot100  = fmt.Errorf("%w: split percentages must sum to 100", apperrors.ErrValidation)
	ErrShareNotPositive   = fmt.Errorf("%w: share counts must be positive", apperrors.ErrValidation)
	ErrSplitValueMissing  = fmt.Errorf("%w: split value required for this split type", apperrors.ErrValidation)
	ErrExpenseDeleted     = fmt.Errorf("%w: expense is deleted", apperrors.ErrConflict)
	ErrExpenseNotDeleted  = fmt.Errorf("%w: expense is not deleted", apperrors.ErrConflict)
	ErrInvalidPerson      = fmt.Errorf("%w: person must reference exactly one of user or participant", apperrors.ErrValidation)
	ErrDescriptionMissing = fmt.Errorf("%w: expense description is required", apperrors.ErrValidation)
)

// centStep is the smallest representable money step; rounding remainders are
// distributed in cents and the split-conservation tolerance is one cent.
var centStep = decimal.New(1, -2)

// ledgerService provides expense mutations and reads. Every mutation commits
// the entity write, the version log entry and the queued sync operation as one
// storage transaction, then registers its rollback path with the coordinator.
type ledgerService struct {
	expenseRepo portsrepo.ExpenseRepository
	coordinator portssvc.OptimisticCoordinator
	notifier    portssvc.NotificationDispatcher
}

// NewLedgerService creates a new LedgerService. The notifier may be nil.
func NewLedgerService(expenseRepo portsrepo.ExpenseRepository, coordinator portssvc.OptimisticCoordinator, notifier portssvc.NotificationDispatcher) portssvc.LedgerSvcFacade {
	return &ledgerService{
		expenseRepo: expenseRepo,
		coordinator: coordinator,
		notifier:    notifier,
	}
}

var _ portssvc.LedgerSvcFacade = (*ledgerService)(nil)

// CreateExpense validates the request, generates the split set and persists the
// expense optimistically at version 1.
func (s *ledgerService) CreateExpense(ctx context.Context, req dto.CreateExpenseRequest, actorUserID string) (*domain.ExpenseRecord, error) {
	logger := middleware.GetLoggerFromCtx(ctx)

	if err := validateExpenseInput(req.Amount, req.CurrencyCode, req.Description, req.PaidBy, req.Participants); err != nil {
		return nil, err
	}

	now := time.Now().UTC()
	expense := domain.Expense{
		ExpenseID:    uuid.NewString(),
		Amount:       req.Amount,
		CurrencyCode: strings.ToUpper(req.CurrencyCode),
		Description:  req.Description,
		Category:     req.Category,
		ExpenseDate:  req.ExpenseDate,
		PaidBy:       req.PaidBy.ToDomain(),
		Version:      1,
		ReceiptRefs:  req.ReceiptRefs,
		SyncStatus:   domain.SyncPending,
		AuditFields: domain.AuditFields{
			CreatedAt:     now,
			CreatedBy:     actorUserID,
			LastUpdatedAt: now,
			LastUpdatedBy: actorUserID,
		},
	}
	if req.ManualRate != nil {
		expense.ManualExchangeRate = &domain.ManualExchangeRate{
			FromCurrencyCode: strings.ToUpper(req.ManualRate.FromCurrencyCode),
			ToCurrencyCode:   strings.ToUpper(req.ManualRate.ToCurrencyCode),
			Rate:             req.ManualRate.Rate,
		}
	}

	splits, err := buildSplits(expense.ExpenseID, expense.Amount, req.SplitType, req.Participants)
	if err != nil {
		return nil, err
	}
	participants := buildParticipants(expense.ExpenseID, req.Participants)
	tags := buildTags(expense.ExpenseID, req.Tags)

	version := newVersionEntry(expense, actorUserID, domain.ChangeCreated, nil, expense.Snapshot())
	op := newOperation(domain.TableExpenses, domain.OpCreate, expense.ExpenseID, domain.ExpenseCreatedPayload{
		Expense:      expense,
		Splits:       splits,
		Participants: participants,
		Tags:         tags,
	}, nil)

	if err := s.expenseRepo.CreateExpense(ctx, expense, splits, participants, tags, version, op); err != nil {
		logger.Error("Failed to create expense", slog.String("error", err.Error()))
		return nil, fmt.Errorf("failed to create expense: %w", err)
	}

	// Rolling back an unsynced create restores "never existed".
	expenseID := expense.ExpenseID
	s.coordinator.Track(op.OperationID, func(ctx context.Context) error {
		return s.expenseRepo.RemoveExpense(ctx, expenseID)
	})

	s.notifyParticipants(ctx, expense, participants, domain.ChangeCreated)

	logger.Info("Expense created", slog.String("expense_id", expense.ExpenseID), slog.String("operation_id", op.OperationID))
	return &domain.ExpenseRecord{Expense: expense, Splits: splits, Participants: participants, Tags: tags}, nil
}

// UpdateExpense applies a partial update, regenerates the split set against the
// new amount and appends an UPDATED history entry.
func (s *ledgerService) UpdateExpense(ctx context.Context, expenseID string, req dto.UpdateExpenseRequest, actorUserID string) (*domain.ExpenseRecord, error) {
	logger := middleware.GetLoggerFromCtx(ctx)

	prev, err := s.GetExpense(ctx, expenseID)
	if err != nil {
		return nil, err
	}
	if prev.Expense.IsDeleted {
		return nil, fmt.Errorf("%w: %s", ErrExpenseDeleted, expenseID)
	}

	now := time.Now().UTC()
	expense := prev.Expense
	if req.Amount != nil {
		expense.Amount = *req.Amount
	}
	if req.CurrencyCode != nil {
		expense.CurrencyCode = strings.ToUpper(*req.CurrencyCode)
	}
	if req.Description != nil {
		expense.Description = *req.Description
	}
	if req.Category != nil {
		expense.Category = *req.Category
	}
	if req.ExpenseDate != nil {
		expense.ExpenseDate = *req.ExpenseDate
	}
	if req.PaidBy != nil {
		expense.PaidBy = req.PaidBy.ToDomain()
	}
	if req.ReceiptRefs != nil {
		expense.ReceiptRefs = req.ReceiptRefs
	}
	if req.ManualRate != nil {
		expense.ManualExchangeRate = &domain.ManualExchangeRate{
			FromCurrencyCode: strings.ToUpper(req.ManualRate.FromCurrencyCode),
			ToCurrencyCode:   strings.ToUpper(req.ManualRate.ToCurrencyCode),
			Rate:             req.ManualRate.Rate,
		}
	}

	inputs := req.Participants
	if inputs == nil {
		inputs = participantInputsFromSplits(prev.Splits)
	}
	splitType := splitTypeOf(prev.Splits)
	if req.SplitType != nil {
		splitType = *req.SplitType
	}

	if err := validateExpenseInput(expense.Amount, expense.CurrencyCode, expense.Description, personRefOf(expense.PaidBy), inputs); err != nil {
		return nil, err
	}

	expense.Version++
	expense.SyncStatus = domain.SyncPending
	expense.LastUpdatedAt = now
	expense.LastUpdatedBy = actorUserID

	splits, err := buildSplits(expense.ExpenseID, expense.Amount, splitType, inputs)
	if err != nil {
		return nil, err
	}
	participants := buildParticipants(expense.ExpenseID, inputs)
	tags := prev.Tags
	if req.Tags != nil {
		tags = buildTags(expense.ExpenseID, req.Tags)
	}

	before := prev.Expense.Snapshot()
	version := newVersionEntry(expense, actorUserID, domain.ChangeUpdated, before, expense.Snapshot())
	op := newOperation(domain.TableExpenses, domain.OpUpdate, expense.ExpenseID, domain.ExpenseUpdatedPayload{
		Expense:      expense,
		Splits:       splits,
		Participants: participants,
		Tags:         tags,
	}, before)

	if err := s.expenseRepo.UpdateExpense(ctx, expense, splits, participants, tags, version, op); err != nil {
		logger.Error("Failed to update expense", slog.String("expense_id", expenseID), slog.String("error", err.Error()))
		return nil, fmt.Errorf("failed to update expense %s: %w", expenseID, err)
	}

	s.trackStateRollback(op.OperationID, prev)
	s.notifyParticipants(ctx, expense, participants, domain.ChangeUpdated)

	logger.Info("Expense updated", slog.String("expense_id", expenseID), slog.Int64("version", expense.Version))
	return &domain.ExpenseRecord{Expense: expense, Splits: splits, Participants: participants, Tags: tags}, nil
}

// DeleteExpense soft-deletes: the row and its history are retained and the
// expense stops contributing to balances.
func (s *ledgerService) DeleteExpense(ctx context.Context, expenseID string, actorUserID string) error {
	logger := middleware.GetLoggerFromCtx(ctx)

	prev, err := s.GetExpense(ctx, expenseID)
	if err != nil {
		return err
	}
	if prev.Expense.IsDeleted {
		return fmt.Errorf("%w: %s", ErrExpenseDeleted, expenseID)
	}

	now := time.Now().UTC()
	expense := prev.Expense
	before := expense.Snapshot()
	expense.IsDeleted = true
	expense.DeletedAt = &now
	expense.Version++
	expense.SyncStatus = domain.SyncPending
	expense.LastUpdatedAt = now
	expense.LastUpdatedBy = actorUserID

	// A DELETED entry carries no after-snapshot; it is not a revert target.
	version := newVersionEntry(expense, actorUserID, domain.ChangeDeleted, before, nil)
	op := newOperation(domain.TableExpenses, domain.OpDelete, expenseID, domain.ExpenseDeletedPayload{
		ExpenseID: expenseID,
		DeletedAt: now,
	}, before)

	if err := s.expenseRepo.SetExpenseDeleted(ctx, expense, version, op); err != nil {
		logger.Error("Failed to delete expense", slog.String("expense_id", expenseID), slog.String("error", err.Error()))
		return fmt.Errorf("failed to delete expense %s: %w", expenseID, err)
	}

	s.trackStateRollback(op.OperationID, prev)

	logger.Info("Expense soft-deleted", slog.String("expense_id", expenseID))
	return nil
}

// RestoreExpense clears a soft delete, appending a RESTORED history entry.
func (s *ledgerService) RestoreExpense(ctx context.Context, expenseID string, actorUserID string) (*domain.Expense, error) {
	logger := middleware.GetLoggerFromCtx(ctx)

	prev, err := s.GetExpense(ctx, expenseID)
	if err != nil {
		return nil, err
	}
	if !prev.Expense.IsDeleted {
		return nil, fmt.Errorf("%w: %s", ErrExpenseNotDeleted, expenseID)
	}

	now := time.Now().UTC()
	expense := prev.Expense
	before := expense.Snapshot()
	expense.IsDeleted = false
	expense.DeletedAt = nil
	expense.Version++
	expense.SyncStatus = domain.SyncPending
	expense.LastUpdatedAt = now
	expense.LastUpdatedBy = actorUserID

	version := newVersionEntry(expense, actorUserID, domain.ChangeRestored, before, expense.Snapshot())
	op := newOperation(domain.TableExpenses, domain.OpUpdate, expenseID, domain.ExpenseRestoredPayload{
		ExpenseID: expenseID,
	}, before)

	if err := s.expenseRepo.SetExpenseDeleted(ctx, expense, version, op); err != nil {
		logger.Error("Failed to restore expense", slog.String("expense_id", expenseID), slog.String("error", err.Error()))
		return nil, fmt.Errorf("failed to restore expense %s: %w", expenseID, err)
	}

	s.trackStateRollback(op.OperationID, prev)

	logger.Info("Expense restored", slog.String("expense_id", expenseID))
	return &expense, nil
}

// GetExpense retrieves an expense with its splits, participants and tags.
func (s *ledgerService) GetExpense(ctx context.Context, expenseID string) (*domain.ExpenseRecord, error) {
	return loadExpenseRecord(ctx, s.expenseRepo, expenseID)
}

// loadExpenseRecord assembles the expense aggregate from its four tables.
func loadExpenseRecord(ctx context.Context, repo portsrepo.ExpenseRepository, expenseID string) (*domain.ExpenseRecord, error) {
	expense, err := repo.FindExpenseByID(ctx, expenseID)
	if err != nil {
		return nil, err
	}
	splits, err := repo.FindSplitsByExpenseID(ctx, expenseID)
	if err != nil {
		return nil, fmt.Errorf("failed to load splits for expense %s: %w", expenseID, err)
	}
	participants, err := repo.FindParticipantsByExpenseID(ctx, expenseID)
	if err != nil {
		return nil, fmt.Errorf("failed to load participants for expense %s: %w", expenseID, err)
	}
	tags, err := repo.FindTagsByExpenseID(ctx, expenseID)
	if err != nil {
		return nil, fmt.Errorf("failed to load tags for expense %s: %w", expenseID, err)
	}
	return &domain.ExpenseRecord{Expense: *expense, Splits: splits, Participants: participants, Tags: tags}, nil
}

// ListExpenses returns non-deleted expenses, optionally restricted to a tag.
func (s *ledgerService) ListExpenses(ctx context.Context, tag *string) ([]domain.Expense, error) {
	return s.expenseRepo.ListExpenses(ctx, false, tag)
}

// trackStateRollback registers a rollback closure that writes the pre-mutation
// record back wholesale.
func (s *ledgerService) trackStateRollback(operationID string, prev *domain.ExpenseRecord) {
	restored := *prev
	s.coordinator.Track(operationID, func(ctx context.Context) error {
		return s.expenseRepo.RestoreExpenseState(ctx, restored.Expense, restored.Splits, restored.Participants, restored.Tags)
	})
}

// notifyParticipants dispatches a change notification best-effort: it runs
// detached from the request and a failure never fails the mutation.
func (s *ledgerService) notifyParticipants(ctx context.Context, expense domain.Expense, participants []domain.ExpenseParticipant, change domain.ChangeType) {
	if s.notifier == nil {
		return
	}
	logger := middleware.GetLoggerFromCtx(ctx)
	detached := context.WithoutCancel(ctx)
	go func() {
		if err := s.notifier.NotifyExpenseChanged(detached, expense, participants, change); err != nil {
			logger.Warn("Participant notification failed",
				slog.String("expense_id", expense.ExpenseID),
				slog.String("error", err.Error()))
		}
	}()
}

// --- construction helpers shared by the expense mutation paths ---

func validateExpenseInput(amount decimal.Decimal, currency, description string, paidBy dto.PersonRef, participants []dto.ParticipantInput) error {
	if amount.LessThanOrEqual(decimal.Zero) {
		return fmt.Errorf("%w (got %s)", ErrAmountNotPositive, amount.String())
	}
	if amount.Exponent() < -2 {
		return fmt.Errorf("%w (got %s)", ErrAmountPrecision, amount.String())
	}
	if len(currency) != 3 {
		return fmt.Errorf("%w: currency code must be 3 letters", apperrors.ErrValidation)
	}
	if description == "" {
		return ErrDescriptionMissing
	}
	if !paidBy.ToDomain().Valid() {
		return fmt.Errorf("%w: payer", ErrInvalidPerson)
	}
	if len(participants) == 0 {
		return ErrNoParticipants
	}
	for _, p := range participants {
		if !p.Person.ToDomain().Valid() {
			return fmt.Errorf("%w: participant", ErrInvalidPerson)
		}
	}
	return nil
}

// buildSplits divides the amount per the split type. Amounts are floored to
// cents and the remainder is handed out one cent at a time starting with the
// first participant, so the set always sums exactly to the expense amount.
func buildSplits(expenseID string, amount decimal.Decimal, splitType domain.SplitType, participants []dto.ParticipantInput) ([]domain.ExpenseSplit, error) {
	n := len(participants)
	amounts := make([]decimal.Decimal, n)

	switch splitType {
	case domain.SplitEqual:
		base := amount.Div(decimal.NewFromInt(int64(n))).RoundFloor(2)
		for i := range amounts {
			amounts[i] = base
		}
	case domain.SplitPercentage:
		total := decimal.Zero
		hundred := decimal.NewFromInt(100)
		for i, p := range participants {
			if p.SplitValue == nil {
				return nil, fmt.Errorf("%w: percentage", ErrSplitValueMissing)
			}
			total = total.Add(*p.SplitValue)
			amounts[i] = amount.Mul(*p.SplitValue).Div(hundred).RoundFloor(2)
		}
		if !total.Sub(decimal.NewFromInt(100)).Abs().LessThanOrEqual(centStep) {
			return nil, fmt.Errorf("%w (got %s)", ErrPercentagesNot100, total.String())
		}
	case domain.SplitShares:
		totalShares := decimal.Zero
		for _, p := range participants {
			if p.SplitValue == nil {
				return nil, fmt.Errorf("%w: shares", ErrSplitValueMissing)
			}
			if p.SplitValue.LessThanOrEqual(decimal.Zero) {
				return nil, ErrShareNotPositive
			}
			totalShares = totalShares.Add(*p.SplitValue)
		}
		for i, p := range participants {
			amounts[i] = amount.Mul(*p.SplitValue).Div(totalShares).RoundFloor(2)
		}
	default:
		return nil, fmt.Errorf("%w: unknown split type %q", apperrors.ErrValidation, splitType)
	}

	distributeResidual(amounts, amount)

	sum := decimal.Zero
	splits := make([]domain.ExpenseSplit, n)
	for i, p := range participants {
		splits[i] = domain.ExpenseSplit{
			SplitID:    uuid.NewString(),
			ExpenseID:  expenseID,
			Person:     p.Person.ToDomain(),
			Amount:     amounts[i],
			SplitType:  splitType,
			SplitValue: p.SplitValue,
		}
		sum = sum.Add(amounts[i])
	}
	if !sum.Sub(amount).Abs().LessThanOrEqual(centStep) {
		return nil, fmt.Errorf("%w: %s vs %s", ErrSplitMismatch, sum.String(), amount.String())
	}
	return splits, nil
}

// distributeResidual hands the leftover cents to the first participants.
func distributeResidual(amounts []decimal.Decimal, total decimal.Decimal) {
	sum := decimal.Zero
	for _, a := range amounts {
		sum = sum.Add(a)
	}
	cents := total.Sub(sum).Div(centStep).IntPart()
	for i := 0; int64(i) < cents && i < len(amounts); i++ {
		amounts[i] = amounts[i].Add(centStep)
	}
}

func buildParticipants(expenseID string, inputs []dto.ParticipantInput) []domain.ExpenseParticipant {
	participants := make([]domain.ExpenseParticipant, len(inputs))
	for i, p := range inputs {
		participants[i] = domain.ExpenseParticipant{ExpenseID: expenseID, Person: p.Person.ToDomain()}
	}
	return participants
}

func buildTags(expenseID string, tags []string) []domain.ExpenseTag {
	seen := make(map[string]struct{}, len(tags))
	out := make([]domain.ExpenseTag, 0, len(tags))
	for _, t := range tags {
		if t == "" {
			continue
		}
		if _, ok := seen[t]; ok {
			continue
		}
		seen[t] = struct{}{}
		out = append(out, domain.ExpenseTag{ExpenseID: expenseID, Tag: t})
	}
	return out
}

func participantInputsFromSplits(splits []domain.ExpenseSplit) []dto.ParticipantInput {
	inputs := make([]dto.ParticipantInput, len(splits))
	for i, s := range splits {
		inputs[i] = dto.ParticipantInput{Person: personRefOf(s.Person), SplitValue: s.SplitValue}
	}
	return inputs
}

func splitTypeOf(splits []domain.ExpenseSplit) domain.SplitType {
	if len(splits) == 0 {
		return domain.SplitEqual
	}
	return splits[0].SplitType
}

func personRefOf(p domain.PersonID) dto.PersonRef {
	return dto.PersonRef{UserID: p.UserID, ParticipantID: p.ParticipantID}
}

func newVersionEntry(expense domain.Expense, actor string, change domain.ChangeType, before, after *domain.ExpenseSnapshot) domain.ExpenseVersion {
	return domain.ExpenseVersion{
		VersionID:     uuid.NewString(),
		ExpenseID:     expense.ExpenseID,
		VersionNumber: expense.Version,
		ChangedBy:     actor,
		ChangeType:    change,
		Before:        before,
		After:         after,
		CreatedAt:     time.Now().UTC(),
	}
}

func newOperation(table domain.EntityTable, opType domain.OperationType, recordID string, payload domain.OperationPayload, original *domain.ExpenseSnapshot) domain.Operation {
	return domain.Operation{
		OperationID:    uuid.NewString(),
		Timestamp:      time.Now().UTC(),
		Table:          table,
		OperationType:  opType,
		RecordID:       recordID,
		Status:         domain.StatusPending,
		OriginalValues: original,
		Payload:        payload,
	}
}
