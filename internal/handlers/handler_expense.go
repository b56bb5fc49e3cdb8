package handlers

import (
	"log/slog"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	portssvc "github.com/buda-loco/splitwiser-sub000/internal/core/ports/services"
	"github.com/buda-loco/splitwiser-sub000/internal/dto"
	"github.com/buda-loco/splitwiser-sub000/internal/middleware"
)

// expenseHandler handles HTTP requests related to expenses and their history.
type expenseHandler struct {
	ledgerService  portssvc.LedgerSvcFacade
	versionService portssvc.VersionSvcFacade
}

func newExpenseHandler(ls portssvc.LedgerSvcFacade, vs portssvc.VersionSvcFacade) *expenseHandler {
	return &expenseHandler{
		ledgerService:  ls,
		versionService: vs,
	}
}

// registerExpenseRoutes registers routes related to expenses.
func registerExpenseRoutes(rg *gin.RouterGroup, ledgerService portssvc.LedgerSvcFacade, versionService portssvc.VersionSvcFacade) {
	h := newExpenseHandler(ledgerService, versionService)

	expenses := rg.Group("/expenses")
	{
		expenses.POST("", h.createExpense)
		expenses.GET("", h.listExpenses)
		expenses.GET("/:expenseID", h.getExpense)
		expenses.PUT("/:expenseID", h.updateExpense)
		expenses.DELETE("/:expenseID", h.deleteExpense)
		expenses.POST("/:expenseID/restore", h.restoreExpense)
		expenses.GET("/:expenseID/versions", h.getVersions)
		expenses.POST("/:expenseID/versions/:versionNumber/revert", h.revertToVersion)
	}
}

func (h *expenseHandler) createExpense(c *gin.Context) {
	logger := middleware.GetLoggerFromCtx(c.Request.Context())
	var req dto.CreateExpenseRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		logger.Warn("Failed to bind JSON for CreateExpense", slog.String("error", err.Error()))
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request format: " + err.Error()})
		return
	}

	actorUserID := middleware.GetActorFromContext(c)

	record, err := h.ledgerService.CreateExpense(c.Request.Context(), req, actorUserID)
	if err != nil {
		respondServiceError(c, logger, err, "Failed to create expense")
		return
	}

	c.JSON(http.StatusCreated, record)
}

func (h *expenseHandler) listExpenses(c *gin.Context) {
	logger := middleware.GetLoggerFromCtx(c.Request.Context())

	var tag *string
	if t := c.Query("tag"); t != "" {
		tag = &t
	}

	expenses, err := h.ledgerService.ListExpenses(c.Request.Context(), tag)
	if err != nil {
		respondServiceError(c, logger, err, "Failed to list expenses")
		return
	}

	c.JSON(http.StatusOK, gin.H{"expenses": expenses})
}

func (h *expenseHandler) getExpense(c *gin.Context) {
	logger := middleware.GetLoggerFromCtx(c.Request.Context())
	expenseID := c.Param("expenseID")

	record, err := h.ledgerService.GetExpense(c.Request.Context(), expenseID)
	if err != nil {
		respondServiceError(c, logger, err, "Failed to retrieve expense")
		return
	}

	c.JSON(http.StatusOK, record)
}

func (h *expenseHandler) updateExpense(c *gin.Context) {
	logger := middleware.GetLoggerFromCtx(c.Request.Context())
	expenseID := c.Param("expenseID")

	var req dto.UpdateExpenseRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		logger.Warn("Failed to bind JSON for UpdateExpense", slog.String("error", err.Error()))
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request format: " + err.Error()})
		return
	}

	actorUserID := middleware.GetActorFromContext(c)

	record, err := h.ledgerService.UpdateExpense(c.Request.Context(), expenseID, req, actorUserID)
	if err != nil {
		respondServiceError(c, logger, err, "Failed to update expense")
		return
	}

	c.JSON(http.StatusOK, record)
}

func (h *expenseHandler) deleteExpense(c *gin.Context) {
	logger := middleware.GetLoggerFromCtx(c.Request.Context())
	expenseID := c.Param("expenseID")
	actorUserID := middleware.GetActorFromContext(c)

	if err := h.ledgerService.DeleteExpense(c.Request.Context(), expenseID, actorUserID); err != nil {
		respondServiceError(c, logger, err, "Failed to delete expense")
		return
	}

	c.Status(http.StatusNoContent)
}

func (h *expenseHandler) restoreExpense(c *gin.Context) {
	logger := middleware.GetLoggerFromCtx(c.Request.Context())
	expenseID := c.Param("expenseID")
	actorUserID := middleware.GetActorFromContext(c)

	expense, err := h.ledgerService.RestoreExpense(c.Request.Context(), expenseID, actorUserID)
	if err != nil {
		respondServiceError(c, logger, err, "Failed to restore expense")
		return
	}

	c.JSON(http.StatusOK, expense)
}

func (h *expenseHandler) getVersions(c *gin.Context) {
	logger := middleware.GetLoggerFromCtx(c.Request.Context())
	expenseID := c.Param("expenseID")

	versions, err := h.versionService.GetVersions(c.Request.Context(), expenseID)
	if err != nil {
		respondServiceError(c, logger, err, "Failed to retrieve expense history")
		return
	}

	c.JSON(http.StatusOK, gin.H{"versions": versions})
}

func (h *expenseHandler) revertToVersion(c *gin.Context) {
	logger := middleware.GetLoggerFromCtx(c.Request.Context())
	expenseID := c.Param("expenseID")

	targetVersion, err := strconv.ParseInt(c.Param("versionNumber"), 10, 64)
	if err != nil || targetVersion < 1 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Version number must be a positive integer"})
		return
	}

	actorUserID := middleware.GetActorFromContext(c)

	record, err := h.versionService.RevertToVersion(c.Request.Context(), expenseID, targetVersion, actorUserID)
	if err != nil {
		respondServiceError(c, logger, err, "Failed to revert expense")
		return
	}

	logger.Info("Expense reverted via API", slog.String("expense_id", expenseID), slog.Int64("target_version", targetVersion))
	c.JSON(http.StatusOK, record)
}
