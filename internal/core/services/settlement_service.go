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
	ErrSettlementSelfPay   = fmt.Errorf("%w: settlement payer and payee must differ", apperrors.ErrValidation)
	ErrSettlementTagNeeded = fmt.Errorf("%w: tag-specific settlements require a tag", apperrors.ErrValidation)
	ErrSettlementTagExtra  = fmt.Errorf("%w: only tag-specific settlements may carry a tag", apperrors.ErrValidation)
)

// settlementService records and removes payments between people.
type settlementService struct {
	settlementRepo portsrepo.SettlementRepository
	coordinator    portssvc.OptimisticCoordinator
}

// NewSettlementService creates a new SettlementService.
func NewSettlementService(settlementRepo portsrepo.SettlementRepository, coordinator portssvc.OptimisticCoordinator) portssvc.SettlementSvcFacade {
	return &settlementService{
		settlementRepo: settlementRepo,
		coordinator:    coordinator,
	}
}

var _ portssvc.SettlementSvcFacade = (*settlementService)(nil)

// CreateSettlement validates and persists a payment, queuing it for sync.
func (s *settlementService) CreateSettlement(ctx context.Context, req dto.CreateSettlementRequest, actorUserID string) (*domain.Settlement, error) {
	logger := middleware.GetLoggerFromCtx(ctx)

	if err := validateSettlementInput(req); err != nil {
		return nil, err
	}

	now := time.Now().UTC()
	settlement := domain.Settlement{
		SettlementID:   uuid.NewString(),
		From:           req.From.ToDomain(),
		To:             req.To.ToDomain(),
		Amount:         req.Amount,
		CurrencyCode:   strings.ToUpper(req.CurrencyCode),
		SettlementType: req.SettlementType,
		Tag:            req.Tag,
		SettlementDate: req.SettlementDate,
		CreatedBy:      actorUserID,
		CreatedAt:      now,
	}

	op := newOperation(domain.TableSettlements, domain.OpCreate, settlement.SettlementID, domain.SettlementCreatedPayload{
		Settlement: settlement,
	}, nil)

	if err := s.settlementRepo.CreateSettlement(ctx, settlement, op); err != nil {
		logger.Error("Failed to create settlement", slog.String("error", err.Error()))
		return nil, fmt.Errorf("failed to create settlement: %w", err)
	}

	settlementID := settlement.SettlementID
	s.coordinator.Track(op.OperationID, func(ctx context.Context) error {
		return s.settlementRepo.RemoveSettlement(ctx, settlementID)
	})

	logger.Info("Settlement created",
		slog.String("settlement_id", settlement.SettlementID),
		slog.String("type", string(settlement.SettlementType)))
	return &settlement, nil
}

// DeleteSettlement hard-deletes a settlement and queues the removal for sync.
func (s *settlementService) DeleteSettlement(ctx context.Context, settlementID string, actorUserID string) error {
	logger := middleware.GetLoggerFromCtx(ctx)

	existing, err := s.settlementRepo.FindSettlementByID(ctx, settlementID)
	if err != nil {
		return err
	}

	op := newOperation(domain.TableSettlements, domain.OpDelete, settlementID, domain.SettlementDeletedPayload{
		SettlementID: settlementID,
	}, nil)

	if err := s.settlementRepo.DeleteSettlement(ctx, settlementID, op); err != nil {
		logger.Error("Failed to delete settlement", slog.String("settlement_id", settlementID), slog.String("error", err.Error()))
		return fmt.Errorf("failed to delete settlement %s: %w", settlementID, err)
	}

	restored := *existing
	s.coordinator.Track(op.OperationID, func(ctx context.Context) error {
		return s.settlementRepo.RestoreSettlement(ctx, restored)
	})

	logger.Info("Settlement deleted", slog.String("settlement_id", settlementID))
	return nil
}

// GetSettlement retrieves a settlement by ID.
func (s *settlementService) GetSettlement(ctx context.Context, settlementID string) (*domain.Settlement, error) {
	return s.settlementRepo.FindSettlementByID(ctx, settlementID)
}

// ListSettlements returns settlements, optionally filtered by person or tag.
func (s *settlementService) ListSettlements(ctx context.Context, person *domain.PersonID, tag *string) ([]domain.Settlement, error) {
	return s.settlementRepo.ListSettlements(ctx, person, tag)
}

func validateSettlementInput(req dto.CreateSettlementRequest) error {
	from := req.From.ToDomain()
	to := req.To.ToDomain()
	if !from.Valid() {
		return fmt.Errorf("%w: payer", ErrInvalidPerson)
	}
	if !to.Valid() {
		return fmt.Errorf("%w: payee", ErrInvalidPerson)
	}
	if from.Equal(to) {
		return ErrSettlementSelfPay
	}
	if req.Amount.LessThanOrEqual(decimal.Zero) {
		return fmt.Errorf("%w (got %s)", ErrAmountNotPositive, req.Amount.String())
	}
	if len(req.CurrencyCode) != 3 {
		return fmt.Errorf("%w: currency code must be 3 letters", apperrors.ErrValidation)
	}
	switch req.SettlementType {
	case domain.SettlementGlobal, domain.SettlementPartial:
		if req.Tag != nil {
			return ErrSettlementTagExtra
		}
	case domain.SettlementTagSpecific:
		if req.Tag == nil || *req.Tag == "" {
			return ErrSettlementTagNeeded
		}
	default:
		return fmt.Errorf("%w: unknown settlement type %q", apperrors.ErrValidation, req.SettlementType)
	}
	return nil
}
