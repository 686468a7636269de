package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
)

func TestRateLimitMiddlewareBurstThenReject(t *testing.T) {
	t.Setenv("JWT_SECRET", "test-secret")
	t.Setenv("ADMIN_KEY_HASH", "test-hash")
	t.Setenv("RATE_LIMIT_PER_MINUTE", "4") // burst of 2

	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.GET("/ping", RateLimitMiddleware(), func(ctx *gin.Context) {
		ctx.String(http.StatusOK, "pong")
	})

	do := func(addr string) int {
		req := httptest.NewRequest("GET", "/ping", nil)
		req.RemoteAddr = addr
		w := httptest.NewRecorder()
		r.ServeHTTP(w, req)
		return w.Code
	}

	for i := 0; i < 2; i++ {
		if code := do("203.0.113.5:1234"); code != http.StatusOK {
			t.Fatalf("request %d within burst expected 200, got %d", i+1, code)
		}
	}
	if code := do("203.0.113.5:1234"); code != http.StatusTooManyRequests {
		t.Fatalf("request over burst expected 429, got %d", code)
	}

	// A different client IP gets its own bucket.
	if code := do("198.51.100.9:4321"); code != http.StatusOK {
		t.Fatalf("fresh IP expected 200, got %d", code)
	}
}
