package httpmiddleware

import (
	"net/http"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"golang.org/x/time/rate"
)

const idleTTL = 15 * time.Minute

// IPLimiter is an in-memory per-client token bucket keyed by client IP.
type IPLimiter struct {
	limit   rate.Limit
	burst   int
	message string

	mu        sync.Mutex
	clients   map[string]*client
	lastSweep time.Time
}

type client struct {
	limiter *rate.Limiter
	seen    time.Time
}

// NewIPLimiter allows perMinute requests per IP, bursting to the same amount.
// Rejected requests get a 429 carrying message.
func NewIPLimiter(perMinute int, message string) *IPLimiter {
	if perMinute <= 0 {
		perMinute = 60
	}
	return &IPLimiter{
		limit:     rate.Limit(float64(perMinute) / 60),
		burst:     perMinute,
		message:   message,
		clients:   make(map[string]*client),
		lastSweep: time.Now(),
	}
}

// GinMiddleware returns gin handler enforcing per-IP limits.
func (l *IPLimiter) GinMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		ip := c.ClientIP()
		if ip == "" {
			ip = "unknown"
		}
		if !l.allow(ip, time.Now()) {
			c.AbortWithStatusJSON(http.StatusTooManyRequests, gin.H{"success": false, "message": l.message})
			return
		}
		c.Next()
	}
}

func (l *IPLimiter) allow(key string, now time.Time) bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	if now.Sub(l.lastSweep) > idleTTL {
		for k, cl := range l.clients {
			if now.Sub(cl.seen) > idleTTL {
				delete(l.clients, k)
			}
		}
		l.lastSweep = now
	}
	cl, ok := l.clients[key]
	if !ok {
		cl = &client{limiter: rate.NewLimiter(l.limit, l.burst)}
		l.clients[key] = cl
	}
	cl.seen = now
	return cl.limiter.AllowN(now, 1)
}
