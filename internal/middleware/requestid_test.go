package middleware

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"

	"github.com/fleveque/webacquire/internal/requestid"
)

func requestIDRouter() *gin.Engine {
	router := gin.New()
	router.Use(RequestID())
	router.GET("/id", func(c *gin.Context) {
		c.String(http.StatusOK, requestid.From(c.Request.Context()))
	})
	return router
}

func TestRequestID_EchoesCallerID(t *testing.T) {
	router := requestIDRouter()

	req := httptest.NewRequest(http.MethodGet, "/id", nil)
	req.Header.Set(requestid.Header, "abc-123")
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	if w.Body.String() != "abc-123" {
		t.Errorf("expected context id abc-123, got %q", w.Body.String())
	}
	if got := w.Header().Get(requestid.Header); got != "abc-123" {
		t.Errorf("expected echoed header, got %q", got)
	}
}

func TestRequestID_GeneratesWhenAbsentOrOversized(t *testing.T) {
	router := requestIDRouter()

	for _, incoming := range []string{"", strings.Repeat("x", maxRequestIDLen+1)} {
		req := httptest.NewRequest(http.MethodGet, "/id", nil)
		if incoming != "" {
			req.Header.Set(requestid.Header, incoming)
		}
		w := httptest.NewRecorder()
		router.ServeHTTP(w, req)

		got := w.Header().Get(requestid.Header)
		if got == "" || got == incoming {
			t.Errorf("expected a fresh id, got %q", got)
		}
		if w.Body.String() != got {
			t.Errorf("context id %q does not match header %q", w.Body.String(), got)
		}
	}
}

func TestLogger_LevelFollowsStatus(t *testing.T) {
	core, logs := observer.New(zap.InfoLevel)
	router := gin.New()
	router.Use(RequestID(), Logger(zap.New(core)))
	router.GET("/ok", func(c *gin.Context) { c.Status(http.StatusOK) })
	router.GET("/boom", func(c *gin.Context) { c.Status(http.StatusBadGateway) })

	for _, path := range []string{"/ok", "/boom"} {
		router.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, path, nil))
	}

	entries := logs.All()
	if len(entries) != 2 {
		t.Fatalf("expected 2 log entries, got %d", len(entries))
	}
	if entries[0].Level != zap.InfoLevel || entries[1].Level != zap.ErrorLevel {
		t.Errorf("unexpected levels %v, %v", entries[0].Level, entries[1].Level)
	}
	if entries[1].ContextMap()["request_id"] == "" {
		t.Error("expected request_id field")
	}
}
