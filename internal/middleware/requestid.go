package middleware

import (
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/fleveque/webacquire/internal/requestid"
)

// maxRequestIDLen bounds caller-supplied IDs before they reach logs and the
// call ledger.
const maxRequestIDLen = 128

// RequestID accepts the caller's X-Request-ID (or mints one), stores it in
// the request context and echoes it back on the response.
func RequestID() gin.HandlerFunc {
	return func(c *gin.Context) {
		id := c.GetHeader(requestid.Header)
		if id == "" || len(id) > maxRequestIDLen {
			id = requestid.New()
		}

		c.Request = c.Request.WithContext(requestid.With(c.Request.Context(), id))
		c.Set("request_id", id)
		c.Header(requestid.Header, id)
		c.Next()
	}
}

// Logger writes one structured line per request once the handler returns.
func Logger(logger *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		fields := []zap.Field{
			zap.String("method", c.Request.Method),
			zap.String("path", c.Request.URL.Path),
			zap.Int("status", c.Writer.Status()),
			zap.Duration("duration", time.Since(start)),
			zap.String("client_ip", c.ClientIP()),
		}
		if id := requestid.From(c.Request.Context()); id != "" {
			fields = append(fields, zap.String("request_id", id))
		}
		if len(c.Errors) > 0 {
			fields = append(fields, zap.String("errors", c.Errors.String()))
		}

		switch {
		case c.Writer.Status() >= 500:
			logger.Error("request", fields...)
		case c.Writer.Status() >= 400:
			logger.Warn("request", fields...)
		default:
			logger.Info("request", fields...)
		}
	}
}
