package wpfront

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/labstack/echo/v4"
)

func TestIPLimiterBlocksAfterBurst(t *testing.T) {
	limiter := NewIPLimiter(0.001, 2, time.Minute)
	defer limiter.Stop()
	ip := "203.0.113.10"

	if !limiter.Allow(ip) {
		t.Fatalf("expected first request to be allowed")
	}
	if !limiter.Allow(ip) {
		t.Fatalf("expected second request to be allowed")
	}
	if limiter.Allow(ip) {
		t.Fatalf("expected third request to be blocked")
	}
}

func TestIPLimiterRefills(t *testing.T) {
	limiter := NewIPLimiter(20, 1, time.Minute)
	defer limiter.Stop()
	ip := "203.0.113.20"

	if !limiter.Allow(ip) {
		t.Fatalf("expected first request to be allowed")
	}
	if limiter.Allow(ip) {
		t.Fatalf("expected second request to be blocked")
	}

	time.Sleep(100 * time.Millisecond)
	if !limiter.Allow(ip) {
		t.Fatalf("expected request after refill to be allowed")
	}
}

func TestIPLimiterIsPerIP(t *testing.T) {
	limiter := NewIPLimiter(0.001, 1, time.Minute)
	defer limiter.Stop()

	if !limiter.Allow("203.0.113.30") {
		t.Fatalf("expected first ip to be allowed")
	}
	if !limiter.Allow("203.0.113.31") {
		t.Fatalf("expected second ip to be allowed independently")
	}
	if limiter.Allow("203.0.113.30") {
		t.Fatalf("expected first ip to be blocked after burst")
	}
}

func TestIPLimiterSweep(t *testing.T) {
	limiter := NewIPLimiter(1, 1, time.Minute)
	defer limiter.Stop()
	limiter.Allow("203.0.113.40")
	limiter.sweep(time.Now().Add(time.Second))

	limiter.mu.Lock()
	n := len(limiter.clients)
	limiter.mu.Unlock()
	if n != 0 {
		t.Fatalf("expected idle client to be swept, %d left", n)
	}
	limiter.Stop()
}

func TestIPLimiterMiddleware(t *testing.T) {
	limiter := NewIPLimiter(0.001, 1, time.Minute)
	defer limiter.Stop()
	e := echo.New()
	e.GET("/x", func(c echo.Context) error { return c.NoContent(http.StatusOK) }, limiter.Middleware())

	for i, want := range []int{http.StatusOK, http.StatusTooManyRequests} {
		req := httptest.NewRequest(http.MethodGet, "/x", nil)
		req.RemoteAddr = "203.0.113.50:1234"
		rec := httptest.NewRecorder()
		e.ServeHTTP(rec, req)
		if rec.Code != want {
			t.Fatalf("request %d: status %d, want %d", i, rec.Code, want)
		}
	}
}
