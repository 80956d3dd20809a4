package handler

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/fleveque/webacquire/internal/model"
)

// maxRequestBytes caps the JSON body. 150 URLs fit comfortably.
const maxRequestBytes = 1 << 20

// Acquirer runs one acquire call. *service.AcquireService satisfies it;
// tests substitute a stub.
type Acquirer interface {
	Execute(ctx context.Context, req model.Request, settings model.Settings) model.Envelope
}

// AcquireHandler exposes the orchestrator over HTTP.
type AcquireHandler struct {
	acquirer Acquirer
	settings model.Settings
	logger   *zap.Logger
}

// NewAcquireHandler creates an AcquireHandler that runs every call with the
// given per-deployment settings.
func NewAcquireHandler(acquirer Acquirer, settings model.Settings, logger *zap.Logger) *AcquireHandler {
	return &AcquireHandler{
		acquirer: acquirer,
		settings: settings,
		logger:   logger,
	}
}

// Acquire decodes a flat action request and returns the envelope.
// Route: POST /api/v1/acquire
//
// Only an undecodable body is an HTTP error. Everything the orchestrator
// reports, including validation failures, is a 200 carrying success:false,
// so clients handle one response shape.
func (h *AcquireHandler) Acquire(c *gin.Context) {
	c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, maxRequestBytes)

	var req model.Request
	if err := c.ShouldBindJSON(&req); err != nil {
		h.logger.Debug("rejecting request body", zap.Error(err))
		c.JSON(http.StatusBadRequest, model.Failed("", "Invalid request body: "+err.Error()))
		return
	}

	env := h.acquirer.Execute(c.Request.Context(), req, h.settings)
	c.JSON(http.StatusOK, env)
}
