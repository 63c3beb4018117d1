package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"taskmanager/internal/pkg/metrics"
	"taskmanager/internal/pkg/ratelimit"

	"github.com/alicebob/miniredis/v2"
	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
)

func TestLoginRateLimit_RejectsOverBurst(t *testing.T) {
	gin.SetMode(gin.TestMode)
	metrics.InitMetrics()

	s, err := miniredis.Run()
	if err != nil {
		t.Fatalf("start miniredis: %v", err)
	}
	t.Cleanup(s.Close)
	rdb := redis.NewClient(&redis.Options{Addr: s.Addr()})
	t.Cleanup(func() { _ = rdb.Close() })

	limiter := ratelimit.NewRedisRateLimiter(rdb, nil, "test:mw:login", 1, 2)

	r := gin.New()
	r.POST("/auth/login", LoginRateLimit(limiter), func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"message": "ok"})
	})

	codes := make([]int, 0, 3)
	for i := 0; i < 3; i++ {
		req := httptest.NewRequest(http.MethodPost, "/auth/login", nil)
		req.RemoteAddr = "9.9.9.9:1234"
		w := httptest.NewRecorder()
		r.ServeHTTP(w, req)
		codes = append(codes, w.Code)
	}

	if codes[0] != http.StatusOK || codes[1] != http.StatusOK {
		t.Fatalf("requests within burst should pass: %v", codes)
	}
	if codes[2] != http.StatusTooManyRequests {
		t.Fatalf("expected 429 over burst, got %v", codes)
	}
}

func TestLoginRateLimit_DisabledLimiterPasses(t *testing.T) {
	gin.SetMode(gin.TestMode)
	metrics.InitMetrics()

	limiter := ratelimit.NewRedisRateLimiter(nil, nil, "test:mw:off", 0, 0)

	r := gin.New()
	r.POST("/auth/login", LoginRateLimit(limiter), func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"message": "ok"})
	})

	req := httptest.NewRequest(http.MethodPost, "/auth/login", nil)
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	if w.Code != http.StatusOK {
		t.Fatalf("expected pass-through, got %d", w.Code)
	}
}
