package handlers

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/buda-loco/splitwiser-sub000/internal/core/domain"
	portssvc "github.com/buda-loco/splitwiser-sub000/internal/core/ports/services"
	"github.com/buda-loco/splitwiser-sub000/internal/dto"
	"github.com/buda-loco/splitwiser-sub000/internal/middleware"
)

// balanceHandler handles HTTP requests for the computed balance views.
type balanceHandler struct {
	balanceService portssvc.BalanceSvcFacade
}

func newBalanceHandler(bs portssvc.BalanceSvcFacade) *balanceHandler {
	return &balanceHandler{balanceService: bs}
}

// registerBalanceRoutes registers routes related to balances.
func registerBalanceRoutes(rg *gin.RouterGroup, balanceService portssvc.BalanceSvcFacade) {
	h := newBalanceHandler(balanceService)

	balances := rg.Group("/balances")
	{
		balances.GET("", h.getBalances)
		balances.GET("/net", h.getNetBalance)
	}
}

func (h *balanceHandler) getBalances(c *gin.Context) {
	logger := middleware.GetLoggerFromCtx(c.Request.Context())

	opts := dto.BalanceOptions{}
	if v := c.Query("simplified"); v != "" {
		simplified, err := strconv.ParseBool(v)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "simplified must be a boolean"})
			return
		}
		opts.Simplified = simplified
	}
	if currency := c.Query("currency"); currency != "" {
		if len(currency) != 3 {
			c.JSON(http.StatusBadRequest, gin.H{"error": "currency must be a 3-letter code"})
			return
		}
		opts.TargetCurrency = &currency
	}
	if tag := c.Query("tag"); tag != "" {
		opts.Tag = &tag
	}

	result, err := h.balanceService.CalculateBalances(c.Request.Context(), opts)
	if err != nil {
		respondServiceError(c, logger, err, "Failed to calculate balances")
		return
	}

	c.JSON(http.StatusOK, result)
}

func (h *balanceHandler) getNetBalance(c *gin.Context) {
	logger := middleware.GetLoggerFromCtx(c.Request.Context())

	personA, err := personFromQuery(c, "userA", "participantA")
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	personB, err := personFromQuery(c, "userB", "participantB")
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if personA == nil || personB == nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Both persons must be identified"})
		return
	}

	var net *domain.NetBalance
	if tag := c.Query("tag"); tag != "" {
		net, err = h.balanceService.CalculateTagBalance(c.Request.Context(), *personA, *personB, tag)
	} else {
		net, err = h.balanceService.CalculateNetBalance(c.Request.Context(), *personA, *personB)
	}
	if err != nil {
		respondServiceError(c, logger, err, "Failed to calculate net balance")
		return
	}

	c.JSON(http.StatusOK, net)
}
