// internal/middleware/rate_limit.go
package middleware

import (
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"golang.org/x/time/rate"

	"github.com/javajoker/gemstore-backend/internal/utils"
)

type visitor struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

type RateLimiter struct {
	visitors map[string]*visitor
	mtx      sync.Mutex
	rate     rate.Limit
	burst    int
}

func NewRateLimiter(r rate.Limit, b int) *RateLimiter {
	return &RateLimiter{
		visitors: make(map[string]*visitor),
		rate:     r,
		burst:    b,
	}
}

// StartCleanup evicts visitors idle for three minutes until stop is closed.
func (rl *RateLimiter) StartCleanup(stop <-chan struct{}) {
	go func() {
		ticker := time.NewTicker(time.Minute)
		defer ticker.Stop()
		for {
			select {
			case <-stop:
				return
			case <-ticker.C:
				rl.evictIdle(3 * time.Minute)
			}
		}
	}()
}

func (rl *RateLimiter) evictIdle(maxIdle time.Duration) {
	rl.mtx.Lock()
	defer rl.mtx.Unlock()
	for ip, v := range rl.visitors {
		if time.Since(v.lastSeen) > maxIdle {
			delete(rl.visitors, ip)
		}
	}
}

func (rl *RateLimiter) getVisitor(ip string) *rate.Limiter {
	rl.mtx.Lock()
	defer rl.mtx.Unlock()

	v, exists := rl.visitors[ip]
	if !exists {
		limiter := rate.NewLimiter(rl.rate, rl.burst)
		rl.visitors[ip] = &visitor{limiter, time.Now()}
		return limiter
	}

	v.lastSeen = time.Now()
	return v.limiter
}

func (rl *RateLimiter) Middleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		if !rl.getVisitor(c.ClientIP()).Allow() {
			utils.TooManyRequestsResponse(c)
			c.Abort()
			return
		}
		c.Next()
	}
}

// RateLimiters groups the per-route-class limiters used by the router.
type RateLimiters struct {
	General *RateLimiter
	Auth    *RateLimiter
	Upload  *RateLimiter
}

func DefaultRateLimiters() *RateLimiters {
	return &RateLimiters{
		General: NewRateLimiter(rate.Every(100*time.Millisecond), 20), // 10 requests per second
		Auth:    NewRateLimiter(rate.Every(12*time.Second), 5),        // 5 auth requests per minute
		Upload:  NewRateLimiter(rate.Every(6*time.Second), 10),        // 10 uploads per minute
	}
}

func (r *RateLimiters) StartCleanup(stop <-chan struct{}) {
	r.General.StartCleanup(stop)
	r.Auth.StartCleanup(stop)
	r.Upload.StartCleanup(stop)
}
