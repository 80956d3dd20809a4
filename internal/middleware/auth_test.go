package middleware

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
)

// Go HTTP testing: httptest.NewRecorder() captures the response without starting
// a real server. Combined with gin's test mode, this lets you test handlers
// and middleware in isolation, fast and without network I/O.

func init() {
	gin.SetMode(gin.TestMode)
}

// guarded builds a router with mw in front of a POST /acquire stub.
func guarded(mw ...gin.HandlerFunc) *gin.Engine {
	router := gin.New()
	router.Use(mw...)
	router.POST("/acquire", func(c *gin.Context) {
		c.String(http.StatusOK, c.GetString(ContextKeyAPIKey))
	})
	return router
}

func serve(router *gin.Engine, headers map[string]string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodPost, "/acquire", nil)
	for k, v := range headers {
		req.Header.Set(k, v)
	}
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	return w
}

func TestAPIKeyAuth_ValidHeader(t *testing.T) {
	router := guarded(APIKeyAuth([]string{"test-key-1", "test-key-2"}))

	w := serve(router, map[string]string{"X-API-Key": "test-key-2"})

	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", w.Code)
	}
	if w.Body.String() != "test-key-2" {
		t.Errorf("expected key stored in context, got %q", w.Body.String())
	}
}

func TestAPIKeyAuth_BearerToken(t *testing.T) {
	router := guarded(APIKeyAuth([]string{"test-key"}))

	w := serve(router, map[string]string{"Authorization": "Bearer test-key"})

	if w.Code != http.StatusOK {
		t.Errorf("expected 200, got %d", w.Code)
	}
}

func TestAPIKeyAuth_QueryParamNotAccepted(t *testing.T) {
	router := guarded(APIKeyAuth([]string{"test-key"}))

	req := httptest.NewRequest(http.MethodPost, "/acquire?api_key=test-key", nil)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	if w.Code != http.StatusUnauthorized {
		t.Errorf("expected 401, got %d", w.Code)
	}
}

func TestAPIKeyAuth_Missing(t *testing.T) {
	router := guarded(APIKeyAuth([]string{"test-key"}))

	w := serve(router, nil)

	if w.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401, got %d", w.Code)
	}

	var body struct {
		Success bool   `json:"success"`
		Error   string `json:"error"`
	}
	if err := json.Unmarshal(w.Body.Bytes(), &body); err != nil {
		t.Fatalf("decoding body: %v", err)
	}
	if body.Success || body.Error != "missing API key" {
		t.Errorf("unexpected body %+v", body)
	}
}

func TestAPIKeyAuth_Invalid(t *testing.T) {
	router := guarded(APIKeyAuth([]string{"test-key"}))

	w := serve(router, map[string]string{"X-API-Key": "wrong-key"})

	if w.Code != http.StatusUnauthorized {
		t.Errorf("expected 401, got %d", w.Code)
	}
}

func TestAPIKeyAuth_BlankConfiguredKeyIgnored(t *testing.T) {
	router := guarded(APIKeyAuth([]string{"  ", "real"}))

	w := serve(router, map[string]string{"X-API-Key": "  "})

	if w.Code != http.StatusUnauthorized {
		t.Errorf("expected 401, got %d", w.Code)
	}
}

func TestAdminKeyAuth_Valid(t *testing.T) {
	router := guarded(AdminKeyAuth([]string{"admin-key"}))

	w := serve(router, map[string]string{"X-API-Key": "admin-key"})

	if w.Code != http.StatusOK {
		t.Errorf("expected 200, got %d", w.Code)
	}
}

func TestAdminKeyAuth_Invalid(t *testing.T) {
	router := guarded(AdminKeyAuth([]string{"admin-key"}))

	w := serve(router, map[string]string{"X-API-Key": "not-admin"})

	if w.Code != http.StatusForbidden {
		t.Errorf("expected 403, got %d", w.Code)
	}
}

func TestAdminKeyAuth_Missing(t *testing.T) {
	router := guarded(AdminKeyAuth([]string{"admin-key"}))

	w := serve(router, nil)

	if w.Code != http.StatusUnauthorized {
		t.Errorf("expected 401, got %d", w.Code)
	}
}
