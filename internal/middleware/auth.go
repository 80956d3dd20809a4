// Package middleware contains Gin middleware functions.
// Middleware in Gin is a handler that runs before (or after) your route handler.
// It calls c.Next() to proceed or c.Abort() to stop the chain.
package middleware

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
)

// ContextKeyAPIKey is where the auth middleware leaves the caller's key for
// the rate limiter.
const ContextKeyAPIKey = "api_key"

// APIKeyAuth returns middleware that validates API keys.
// The key is read from the X-API-Key header, falling back to an
// "Authorization: Bearer <key>" header for MCP-style clients.
//
// Go closures: this function returns a function. The outer function captures
// the key set in its closure, so the returned handler has access to it.
func APIKeyAuth(validKeys []string) gin.HandlerFunc {
	return keyAuth(keySet(validKeys), "API key", http.StatusUnauthorized)
}

// AdminKeyAuth guards the admin endpoints. An unknown key is 403 rather than
// 401: the caller authenticated, just not as an admin.
func AdminKeyAuth(adminKeys []string) gin.HandlerFunc {
	return keyAuth(keySet(adminKeys), "admin API key", http.StatusForbidden)
}

// keySet builds a set for O(1) lookups. Go doesn't have a built-in Set type,
// so we use map[string]struct{}; struct{} takes zero bytes of memory.
func keySet(keys []string) map[string]struct{} {
	set := make(map[string]struct{}, len(keys))
	for _, k := range keys {
		if k = strings.TrimSpace(k); k != "" {
			set[k] = struct{}{}
		}
	}
	return set
}

func keyAuth(valid map[string]struct{}, what string, invalidStatus int) gin.HandlerFunc {
	return func(c *gin.Context) {
		key := presentedKey(c)
		if key == "" {
			abort(c, http.StatusUnauthorized, "missing "+what)
			return
		}

		if _, ok := valid[key]; !ok {
			abort(c, invalidStatus, "invalid "+what)
			return
		}

		// gin.Context is a request-scoped key-value store; the rate limiter
		// reads the key back from it.
		c.Set(ContextKeyAPIKey, key)
		c.Next()
	}
}

func presentedKey(c *gin.Context) string {
	if key := c.GetHeader("X-API-Key"); key != "" {
		return key
	}
	auth := c.GetHeader("Authorization")
	if token, ok := strings.CutPrefix(auth, "Bearer "); ok {
		return strings.TrimSpace(token)
	}
	return ""
}

// abort answers with the same {success, error} shape the acquire endpoint
// uses, so clients only need one error decoder.
func abort(c *gin.Context, status int, msg string) {
	c.AbortWithStatusJSON(status, gin.H{
		"success": false,
		"error":   msg,
	})
}
