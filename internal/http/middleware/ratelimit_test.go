package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
)

func rateLimitedRouter(rl *RateLimiter, pre ...gin.HandlerFunc) *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	for _, m := range pre {
		r.Use(m)
	}
	r.Use(rl.Handler())
	r.POST("/synthesize", func(c *gin.Context) { c.Status(http.StatusAccepted) })
	return r
}

func TestRateLimiter_AllowsBurstThenRejects(t *testing.T) {
	rl := NewRateLimiter(0, 2, KeyByUserOrIP())
	r := rateLimitedRouter(rl)

	for i := 0; i < 2; i++ {
		w := httptest.NewRecorder()
		r.ServeHTTP(w, httptest.NewRequest(http.MethodPost, "/synthesize", nil))
		if w.Code != http.StatusAccepted {
			t.Fatalf("request %d status = %d, want 202", i+1, w.Code)
		}
	}

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodPost, "/synthesize", nil))
	if w.Code != http.StatusTooManyRequests {
		t.Fatalf("status = %d, want 429", w.Code)
	}
	if w.Header().Get("Retry-After") == "" {
		t.Fatalf("missing Retry-After header")
	}
}

func TestRateLimiter_SeparateBucketsPerUser(t *testing.T) {
	rl := NewRateLimiter(0, 1, KeyByUserOrIP())

	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.Use(func(c *gin.Context) {
		if uid := c.GetHeader("X-User-ID"); uid != "" {
			c.Set("userID", uid)
		}
	})
	r.Use(rl.Handler())
	r.POST("/synthesize", func(c *gin.Context) { c.Status(http.StatusAccepted) })

	send := func(user string) int {
		req := httptest.NewRequest(http.MethodPost, "/synthesize", nil)
		req.Header.Set("X-User-ID", user)
		w := httptest.NewRecorder()
		r.ServeHTTP(w, req)
		return w.Code
	}

	if code := send("alice"); code != http.StatusAccepted {
		t.Fatalf("alice #1 = %d", code)
	}
	if code := send("alice"); code != http.StatusTooManyRequests {
		t.Fatalf("alice #2 = %d, want 429", code)
	}
	// A different identity has its own bucket.
	if code := send("bob"); code != http.StatusAccepted {
		t.Fatalf("bob #1 = %d, want 202", code)
	}
}

func TestRateLimiter_ReplayBypass(t *testing.T) {
	rl := NewRateLimiter(0, 1, KeyByUserOrIP())
	markBypass := func(c *gin.Context) { c.Set(ctxKeyRateBypass, true) }
	r := rateLimitedRouter(rl, markBypass)

	// Every request is a replay; the exhausted bucket never matters.
	for i := 0; i < 3; i++ {
		w := httptest.NewRecorder()
		r.ServeHTTP(w, httptest.NewRequest(http.MethodPost, "/synthesize", nil))
		if w.Code != http.StatusAccepted {
			t.Fatalf("replay %d status = %d, want 202", i+1, w.Code)
		}
	}
}
