package httpmiddleware

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/require"
)

func TestIPLimiterAllowsBurstThenRejects(t *testing.T) {
	l := NewIPLimiter(3, "slow down")
	now := time.Now()
	for i := 0; i < 3; i++ {
		require.True(t, l.allow("1.2.3.4", now))
	}
	require.False(t, l.allow("1.2.3.4", now))
	require.True(t, l.allow("5.6.7.8", now), "separate bucket per ip")
	require.True(t, l.allow("1.2.3.4", now.Add(20*time.Second)), "refills at perMinute/60 per second")
}

func TestIPLimiterSweepsIdleClients(t *testing.T) {
	l := NewIPLimiter(1, "x")
	now := time.Now()
	l.allow("a", now)
	l.allow("b", now.Add(2*idleTTL))
	require.Len(t, l.clients, 1)
}

func TestMiddlewareStack(t *testing.T) {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.Use(SecurityHeaders(true), RequestLogger("/health"), Metrics(), NewIPLimiter(1, "Too many requests").GinMiddleware())
	r.GET("/ping", func(c *gin.Context) { c.String(http.StatusOK, "pong") })

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/ping", nil))
	require.Equal(t, http.StatusOK, w.Code)
	require.Equal(t, "nosniff", w.Header().Get("X-Content-Type-Options"))
	require.NotEmpty(t, w.Header().Get("Strict-Transport-Security"))

	w = httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/ping", nil))
	require.Equal(t, http.StatusTooManyRequests, w.Code)
	require.JSONEq(t, `{"success":false,"message":"Too many requests"}`, w.Body.String())
}
