package handlers

import (
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/buda-loco/splitwiser-sub000/internal/core/domain"
	portssvc "github.com/buda-loco/splitwiser-sub000/internal/core/ports/services"
	"github.com/buda-loco/splitwiser-sub000/internal/middleware"
)

// syncHandler exposes the mutation queue to the external sync transport and
// the rollback path to the local UI.
type syncHandler struct {
	queueService portssvc.QueueSvcFacade
	coordinator  portssvc.OptimisticCoordinator
}

func newSyncHandler(qs portssvc.QueueSvcFacade, oc portssvc.OptimisticCoordinator) *syncHandler {
	return &syncHandler{
		queueService: qs,
		coordinator:  oc,
	}
}

// registerSyncRoutes registers routes related to the mutation queue.
func registerSyncRoutes(rg *gin.RouterGroup, queueService portssvc.QueueSvcFacade, coordinator portssvc.OptimisticCoordinator) {
	h := newSyncHandler(queueService, coordinator)

	sync := rg.Group("/sync")
	{
		sync.GET("/pending", h.getPending)
		sync.GET("/queue-size", h.getQueueSize)
		sync.GET("/operations/:operationID", h.getOperation)
		sync.GET("/operations", h.getOperationsForRecord)
		sync.POST("/operations/:operationID/synced", h.markSynced)
		sync.POST("/operations/:operationID/failed", h.markFailed)
		sync.POST("/operations/:operationID/conflict", h.markConflict)
		sync.POST("/operations/:operationID/rollback", h.rollback)
		sync.DELETE("/operations/:operationID", h.removeOperation)
		sync.POST("/clear-synced", h.clearSynced)
	}
}

func (h *syncHandler) getPending(c *gin.Context) {
	logger := middleware.GetLoggerFromCtx(c.Request.Context())

	operations, err := h.queueService.GetPending(c.Request.Context())
	if err != nil {
		respondServiceError(c, logger, err, "Failed to retrieve pending operations")
		return
	}

	c.JSON(http.StatusOK, gin.H{"operations": operations})
}

func (h *syncHandler) getQueueSize(c *gin.Context) {
	logger := middleware.GetLoggerFromCtx(c.Request.Context())

	counts, err := h.queueService.GetQueueSize(c.Request.Context())
	if err != nil {
		respondServiceError(c, logger, err, "Failed to count queue operations")
		return
	}

	c.JSON(http.StatusOK, counts)
}

func (h *syncHandler) getOperation(c *gin.Context) {
	logger := middleware.GetLoggerFromCtx(c.Request.Context())
	operationID := c.Param("operationID")

	op, err := h.queueService.GetOperation(c.Request.Context(), operationID)
	if err != nil {
		respondServiceError(c, logger, err, "Failed to retrieve operation")
		return
	}

	c.JSON(http.StatusOK, op)
}

func (h *syncHandler) getOperationsForRecord(c *gin.Context) {
	logger := middleware.GetLoggerFromCtx(c.Request.Context())

	table := domain.EntityTable(c.Query("table"))
	recordID := c.Query("recordID")
	if (table != domain.TableExpenses && table != domain.TableSettlements) || recordID == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "table and recordID query parameters are required"})
		return
	}

	operations, err := h.queueService.GetOperationsForRecord(c.Request.Context(), table, recordID)
	if err != nil {
		respondServiceError(c, logger, err, "Failed to retrieve record operations")
		return
	}

	c.JSON(http.StatusOK, gin.H{"operations": operations})
}

func (h *syncHandler) markSynced(c *gin.Context) {
	logger := middleware.GetLoggerFromCtx(c.Request.Context())
	operationID := c.Param("operationID")

	if err := h.queueService.MarkSynced(c.Request.Context(), operationID); err != nil {
		respondServiceError(c, logger, err, "Failed to mark operation synced")
		return
	}

	c.Status(http.StatusNoContent)
}

func (h *syncHandler) markFailed(c *gin.Context) {
	logger := middleware.GetLoggerFromCtx(c.Request.Context())
	operationID := c.Param("operationID")

	var body struct {
		Error string `json:"error" binding:"required"`
	}
	if err := c.ShouldBindJSON(&body); err != nil {
		logger.Warn("Failed to bind JSON for MarkFailed", slog.String("error", err.Error()))
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request format: " + err.Error()})
		return
	}

	if err := h.queueService.MarkFailed(c.Request.Context(), operationID, body.Error); err != nil {
		respondServiceError(c, logger, err, "Failed to mark operation failed")
		return
	}

	c.Status(http.StatusNoContent)
}

func (h *syncHandler) markConflict(c *gin.Context) {
	logger := middleware.GetLoggerFromCtx(c.Request.Context())
	operationID := c.Param("operationID")

	var body struct {
		Resolution *string `json:"resolution,omitempty"`
	}
	// The resolution note is optional; an empty body is a bare conflict mark.
	if c.Request.ContentLength > 0 {
		if err := c.ShouldBindJSON(&body); err != nil {
			logger.Warn("Failed to bind JSON for MarkConflict", slog.String("error", err.Error()))
			c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request format: " + err.Error()})
			return
		}
	}

	if err := h.queueService.MarkConflict(c.Request.Context(), operationID, body.Resolution); err != nil {
		respondServiceError(c, logger, err, "Failed to mark operation conflicted")
		return
	}

	c.Status(http.StatusNoContent)
}

func (h *syncHandler) rollback(c *gin.Context) {
	logger := middleware.GetLoggerFromCtx(c.Request.Context())
	operationID := c.Param("operationID")

	if err := h.coordinator.Rollback(c.Request.Context(), operationID); err != nil {
		respondServiceError(c, logger, err, "Failed to roll back operation")
		return
	}

	logger.Info("Operation rolled back", slog.String("operation_id", operationID))
	c.Status(http.StatusNoContent)
}

func (h *syncHandler) removeOperation(c *gin.Context) {
	logger := middleware.GetLoggerFromCtx(c.Request.Context())
	operationID := c.Param("operationID")

	if err := h.queueService.Remove(c.Request.Context(), operationID); err != nil {
		respondServiceError(c, logger, err, "Failed to remove operation")
		return
	}

	c.Status(http.StatusNoContent)
}

func (h *syncHandler) clearSynced(c *gin.Context) {
	logger := middleware.GetLoggerFromCtx(c.Request.Context())

	removed, err := h.queueService.ClearSynced(c.Request.Context())
	if err != nil {
		respondServiceError(c, logger, err, "Failed to prune synced operations")
		return
	}

	c.JSON(http.StatusOK, gin.H{"removed": removed})
}
