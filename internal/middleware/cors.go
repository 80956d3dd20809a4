package middleware

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/fleveque/webacquire/internal/requestid"
)

// CORS returns middleware that sets Cross-Origin Resource Sharing headers so
// browser-based tools on a listed origin can POST acquire requests.
// Preflight OPTIONS requests are answered with 204 and never reach a handler.
func CORS(allowedOrigins []string) gin.HandlerFunc {
	allowed := keySet(allowedOrigins)

	return func(c *gin.Context) {
		origin := c.GetHeader("Origin")

		if _, ok := allowed[origin]; ok {
			c.Header("Access-Control-Allow-Origin", origin)
			c.Header("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
			c.Header("Access-Control-Allow-Headers", "X-API-Key, Authorization, Content-Type, "+requestid.Header)
			c.Header("Access-Control-Expose-Headers", requestid.Header)
			c.Header("Access-Control-Max-Age", "86400")
			c.Header("Vary", "Origin")
		}

		if c.Request.Method == http.MethodOptions {
			c.AbortWithStatus(http.StatusNoContent)
			return
		}

		c.Next()
	}
}
