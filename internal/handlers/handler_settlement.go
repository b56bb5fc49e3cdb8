package handlers

import (
	"fmt"
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/buda-loco/splitwiser-sub000/internal/core/domain"
	portssvc "github.com/buda-loco/splitwiser-sub000/internal/core/ports/services"
	"github.com/buda-loco/splitwiser-sub000/internal/dto"
	"github.com/buda-loco/splitwiser-sub000/internal/middleware"
)

// settlementHandler handles HTTP requests related to settlements.
type settlementHandler struct {
	settlementService portssvc.SettlementSvcFacade
}

func newSettlementHandler(ss portssvc.SettlementSvcFacade) *settlementHandler {
	return &settlementHandler{settlementService: ss}
}

// registerSettlementRoutes registers routes related to settlements.
func registerSettlementRoutes(rg *gin.RouterGroup, settlementService portssvc.SettlementSvcFacade) {
	h := newSettlementHandler(settlementService)

	settlements := rg.Group("/settlements")
	{
		settlements.POST("", h.createSettlement)
		settlements.GET("", h.listSettlements)
		settlements.GET("/:settlementID", h.getSettlement)
		settlements.DELETE("/:settlementID", h.deleteSettlement)
	}
}

func (h *settlementHandler) createSettlement(c *gin.Context) {
	logger := middleware.GetLoggerFromCtx(c.Request.Context())
	var req dto.CreateSettlementRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		logger.Warn("Failed to bind JSON for CreateSettlement", slog.String("error", err.Error()))
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request format: " + err.Error()})
		return
	}

	actorUserID := middleware.GetActorFromContext(c)

	settlement, err := h.settlementService.CreateSettlement(c.Request.Context(), req, actorUserID)
	if err != nil {
		respondServiceError(c, logger, err, "Failed to create settlement")
		return
	}

	c.JSON(http.StatusCreated, settlement)
}

func (h *settlementHandler) listSettlements(c *gin.Context) {
	logger := middleware.GetLoggerFromCtx(c.Request.Context())

	person, err := personFromQuery(c, "userID", "participantID")
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	var tag *string
	if t := c.Query("tag"); t != "" {
		tag = &t
	}

	settlements, err := h.settlementService.ListSettlements(c.Request.Context(), person, tag)
	if err != nil {
		respondServiceError(c, logger, err, "Failed to list settlements")
		return
	}

	c.JSON(http.StatusOK, gin.H{"settlements": settlements})
}

func (h *settlementHandler) getSettlement(c *gin.Context) {
	logger := middleware.GetLoggerFromCtx(c.Request.Context())
	settlementID := c.Param("settlementID")

	settlement, err := h.settlementService.GetSettlement(c.Request.Context(), settlementID)
	if err != nil {
		respondServiceError(c, logger, err, "Failed to retrieve settlement")
		return
	}

	c.JSON(http.StatusOK, settlement)
}

func (h *settlementHandler) deleteSettlement(c *gin.Context) {
	logger := middleware.GetLoggerFromCtx(c.Request.Context())
	settlementID := c.Param("settlementID")
	actorUserID := middleware.GetActorFromContext(c)

	if err := h.settlementService.DeleteSettlement(c.Request.Context(), settlementID, actorUserID); err != nil {
		respondServiceError(c, logger, err, "Failed to delete settlement")
		return
	}

	c.Status(http.StatusNoContent)
}

// personFromQuery builds an optional person filter from a query parameter pair.
// Returns nil when neither parameter is present.
func personFromQuery(c *gin.Context, userParam, participantParam string) (*domain.PersonID, error) {
	userID := c.Query(userParam)
	participantID := c.Query(participantParam)
	if userID == "" && participantID == "" {
		return nil, nil
	}
	person := domain.PersonID{UserID: userID, ParticipantID: participantID}
	if !person.Valid() {
		return nil, fmt.Errorf("exactly one of %s and %s must be set", userParam, participantParam)
	}
	return &person, nil
}
