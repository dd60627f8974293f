package middleware

import (
	"bytes"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func init() {
	gin.SetMode(gin.TestMode)
}

func serve(router *gin.Engine, req *http.Request) *httptest.ResponseRecorder {
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	return w
}

func TestSecurityHeaders(t *testing.T) {
	router := gin.New()
	router.Use(SecurityHeaders())
	router.GET("/", func(c *gin.Context) { c.Status(http.StatusOK) })

	w := serve(router, httptest.NewRequest(http.MethodGet, "/", nil))
	assert.Equal(t, "nosniff", w.Header().Get("X-Content-Type-Options"))
	assert.Equal(t, "DENY", w.Header().Get("X-Frame-Options"))
	assert.Equal(t, "no-store", w.Header().Get("Cache-Control"))
	assert.Empty(t, w.Header().Get("Strict-Transport-Security"))
}

func TestCorrelationID(t *testing.T) {
	router := gin.New()
	router.Use(CorrelationID())
	router.GET("/", func(c *gin.Context) { c.String(http.StatusOK, c.GetString(CorrelationKey)) })

	t.Run("Generated", func(t *testing.T) {
		w := serve(router, httptest.NewRequest(http.MethodGet, "/", nil))
		id := w.Header().Get(CorrelationHeader)
		_, err := uuid.Parse(id)
		require.NoError(t, err)
		assert.Equal(t, id, w.Body.String())
	})

	t.Run("Propagated", func(t *testing.T) {
		existing := uuid.New().String()
		req := httptest.NewRequest(http.MethodGet, "/", nil)
		req.Header.Set(CorrelationHeader, existing)
		w := serve(router, req)
		assert.Equal(t, existing, w.Header().Get(CorrelationHeader))
	})

	t.Run("Malformed_Replaced", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/", nil)
		req.Header.Set(CorrelationHeader, "<script>")
		w := serve(router, req)
		assert.NotEqual(t, "<script>", w.Header().Get(CorrelationHeader))
	})
}

func TestRequestTimeout(t *testing.T) {
	router := gin.New()
	router.Use(CorrelationID(), RequestTimeout(20*time.Millisecond))
	router.GET("/slow", func(c *gin.Context) {
		<-c.Request.Context().Done()
	})
	router.GET("/fast", func(c *gin.Context) {
		_, hasDeadline := c.Request.Context().Deadline()
		assert.True(t, hasDeadline)
		c.Status(http.StatusNoContent)
	})

	w := serve(router, httptest.NewRequest(http.MethodGet, "/slow", nil))
	assert.Equal(t, http.StatusGatewayTimeout, w.Code)
	assert.Contains(t, w.Body.String(), "Request timeout")
	assert.Contains(t, w.Body.String(), "REQUEST_TIMEOUT")

	w = serve(router, httptest.NewRequest(http.MethodGet, "/fast", nil))
	assert.Equal(t, http.StatusNoContent, w.Code)
}

func TestRateLimit(t *testing.T) {
	router := gin.New()
	router.Use(RateLimit(1, 2))
	router.GET("/", func(c *gin.Context) { c.Status(http.StatusOK) })

	codes := make([]int, 0, 3)
	var last *httptest.ResponseRecorder
	for i := 0; i < 3; i++ {
		last = serve(router, httptest.NewRequest(http.MethodGet, "/", nil))
		codes = append(codes, last.Code)
	}
	assert.Equal(t, []int{http.StatusOK, http.StatusOK, http.StatusTooManyRequests}, codes)
	assert.Equal(t, "1", last.Header().Get("Retry-After"))
	assert.Contains(t, last.Body.String(), "RATE_LIMIT_EXCEEDED")

	unlimited := gin.New()
	unlimited.Use(RateLimit(0, 0))
	unlimited.GET("/", func(c *gin.Context) { c.Status(http.StatusOK) })
	for i := 0; i < 5; i++ {
		assert.Equal(t, http.StatusOK, serve(unlimited, httptest.NewRequest(http.MethodGet, "/", nil)).Code)
	}
}

func TestAuditLogger(t *testing.T) {
	var buf bytes.Buffer
	logger := logrus.New()
	logger.SetOutput(&buf)
	logger.SetFormatter(&logrus.JSONFormatter{})

	router := gin.New()
	router.Use(CorrelationID(), AuditLogger(logger))
	router.POST("/api/v1/risk/predict", func(c *gin.Context) { c.Status(http.StatusBadRequest) })

	serve(router, httptest.NewRequest(http.MethodPost, "/api/v1/risk/predict", bytes.NewBufferString(`{"symptoms":["fever"]}`)))

	out := buf.String()
	assert.Contains(t, out, `"path":"/api/v1/risk/predict"`)
	assert.Contains(t, out, `"status":400`)
	assert.Contains(t, out, `"level":"warning"`)
	assert.NotContains(t, out, "fever")
}

func TestCORS(t *testing.T) {
	router := gin.New()
	router.Use(CORS([]string{"https://booking.example.org"}))
	router.GET("/", func(c *gin.Context) { c.Status(http.StatusOK) })

	req := httptest.NewRequest(http.MethodOptions, "/", nil)
	req.Header.Set("Origin", "https://booking.example.org")
	req.Header.Set("Access-Control-Request-Method", http.MethodGet)
	w := serve(router, req)
	assert.Equal(t, http.StatusNoContent, w.Code)
	assert.Equal(t, "https://booking.example.org", w.Header().Get("Access-Control-Allow-Origin"))

	req = httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("Origin", "https://evil.example.com")
	w = serve(router, req)
	assert.Equal(t, http.StatusForbidden, w.Code)

	open := gin.New()
	open.Use(CORS(nil))
	open.GET("/", func(c *gin.Context) { c.Status(http.StatusOK) })
	req = httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("Origin", "https://anywhere.example.com")
	w = serve(open, req)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "*", w.Header().Get("Access-Control-Allow-Origin"))
}
