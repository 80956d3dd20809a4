package metrics

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestObserve(t *testing.T) {
	m := New()

	m.ObserveProxy("web_unlocker1", true, 100*time.Millisecond)
	m.ObserveProxy("web_unlocker1", false, time.Second)
	m.ObserveProxy("web_unlocker1", true, time.Second)
	m.ObserveExtraction("openai", true, time.Second)

	assert.Equal(t, 2.0, testutil.ToFloat64(m.proxyRequests.WithLabelValues("web_unlocker1", "success")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.proxyRequests.WithLabelValues("web_unlocker1", "failure")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.extractionRequests.WithLabelValues("openai", "success")))
}

func TestNilMetricsIsSafe(t *testing.T) {
	var m *Metrics

	assert.NotPanics(t, func() {
		m.ObserveProxy("z", true, time.Second)
		m.ObserveExtraction("p", false, time.Second)
		m.ObserveFanout("fetch", 3)
	})
}

func TestHandlerAndMiddleware(t *testing.T) {
	gin.SetMode(gin.TestMode)
	m := New()

	router := gin.New()
	router.Use(m.Middleware())
	router.GET("/ping", func(c *gin.Context) { c.String(http.StatusOK, "pong") })
	router.GET("/metrics", gin.WrapH(m.Handler()))

	w := httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/ping", nil))
	require.Equal(t, http.StatusOK, w.Code)

	w = httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `webacquire_http_requests_total{method="GET",route="/ping",status_code="200"} 1`)
	assert.Contains(t, w.Body.String(), "go_goroutines")
}
