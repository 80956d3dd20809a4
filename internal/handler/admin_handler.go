package handler

import (
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/fleveque/webacquire/internal/storage"
)

const (
	defaultStatsWindow = 24 * time.Hour
	defaultRecentCalls = 50
	maxRecentCalls     = 500
)

// AdminHandler handles administrative endpoints backed by the call ledger.
type AdminHandler struct {
	calls  storage.CallRepository
	logger *zap.Logger
}

// NewAdminHandler creates a new AdminHandler.
func NewAdminHandler(calls storage.CallRepository, logger *zap.Logger) *AdminHandler {
	return &AdminHandler{
		calls:  calls,
		logger: logger,
	}
}

// Stats returns the total number of recorded outbound calls plus a
// breakdown by kind and outcome over a window.
// Route: GET /api/v1/admin/stats?window=24h
func (h *AdminHandler) Stats(c *gin.Context) {
	ctx := c.Request.Context()

	window := defaultStatsWindow
	if raw := c.Query("window"); raw != "" {
		d, err := time.ParseDuration(raw)
		if err != nil || d <= 0 {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid window: use a positive duration such as 1h or 30m"})
			return
		}
		window = d
	}

	total, err := h.calls.Count(ctx)
	if err != nil {
		h.logger.Error("counting calls", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal error"})
		return
	}

	breakdown, err := h.calls.Stats(ctx, time.Now().Add(-window))
	if err != nil {
		h.logger.Error("aggregating calls", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal error"})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"total":     total,
		"window":    window.String(),
		"breakdown": breakdown,
	})
}

// Calls lists the most recent ledger rows, newest first.
// Route: GET /api/v1/admin/calls?limit=50
func (h *AdminHandler) Calls(c *gin.Context) {
	limit := defaultRecentCalls
	if raw := c.Query("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n <= 0 {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid limit"})
			return
		}
		limit = min(n, maxRecentCalls)
	}

	calls, err := h.calls.ListRecent(c.Request.Context(), limit)
	if err != nil {
		h.logger.Error("listing calls", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal error"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"calls": calls})
}
