package wpfront

import (
	"net/http"
	"sync"
	"time"

	"github.com/labstack/echo/v4"
	"golang.org/x/time/rate"
)

// IPLimiter is a per IP token bucket. Buckets idle for longer than the idle
// window are dropped by a background sweep until Stop is called.
type IPLimiter struct {
	mu      sync.Mutex
	clients map[string]*ipClient
	limit   rate.Limit
	burst   int
	idle    time.Duration

	done     chan struct{}
	stopOnce sync.Once
}

type ipClient struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

// NewIPLimiter allows rps requests per second per IP with the given burst.
func NewIPLimiter(rps float64, burst int, idle time.Duration) *IPLimiter {
	if idle <= 0 {
		idle = 10 * time.Minute
	}
	l := &IPLimiter{
		clients: make(map[string]*ipClient),
		limit:   rate.Limit(rps),
		burst:   burst,
		idle:    idle,
		done:    make(chan struct{}),
	}
	go l.cleanup()
	return l
}

func (l *IPLimiter) cleanup() {
	ticker := time.NewTicker(l.idle)
	defer ticker.Stop()
	for {
		select {
		case <-l.done:
			return
		case <-ticker.C:
			l.sweep(time.Now().Add(-l.idle))
		}
	}
}

func (l *IPLimiter) sweep(cutoff time.Time) {
	l.mu.Lock()
	defer l.mu.Unlock()
	for ip, c := range l.clients {
		if c.lastSeen.Before(cutoff) {
			delete(l.clients, ip)
		}
	}
}

// Allow reports whether ip may make a request now and consumes a token.
func (l *IPLimiter) Allow(ip string) bool {
	l.mu.Lock()
	c, ok := l.clients[ip]
	if !ok {
		c = &ipClient{limiter: rate.NewLimiter(l.limit, l.burst)}
		l.clients[ip] = c
	}
	c.lastSeen = time.Now()
	l.mu.Unlock()
	return c.limiter.Allow()
}

// Stop ends the background sweep. It is safe to call more than once.
func (l *IPLimiter) Stop() {
	l.stopOnce.Do(func() { close(l.done) })
}

// Middleware rejects requests over the limit with 429.
func (l *IPLimiter) Middleware() echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			if !l.Allow(c.RealIP()) {
				c.Response().Header().Set("Retry-After", "1")
				return c.NoContent(http.StatusTooManyRequests)
			}
			return next(c)
		}
	}
}
