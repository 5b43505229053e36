package middleware

import (
	"fmt"
	"math"
	"net/http"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"golang.org/x/time/rate"
)

type userLimiter struct {
	limiter *rate.Limiter
	expires time.Time
}

// UserRateLimiter keeps one token bucket per authenticated user. Idle
// buckets are dropped after ttl.
type UserRateLimiter struct {
	mu       sync.Mutex
	limiters map[string]*userLimiter
	every    time.Duration
	burst    int
	ttl      time.Duration
	now      func() time.Time
}

func NewUserRateLimiter(every time.Duration, burst int) *UserRateLimiter {
	if burst < 1 {
		burst = 1
	}
	return &UserRateLimiter{
		limiters: map[string]*userLimiter{},
		every:    every,
		burst:    burst,
		ttl:      5 * time.Minute,
		now:      time.Now,
	}
}

// Limit must run after RequireAuth. A non-positive interval disables it.
func (l *UserRateLimiter) Limit() gin.HandlerFunc {
	return func(c *gin.Context) {
		if l.every <= 0 {
			c.Next()
			return
		}

		key := c.GetString("user_id")
		if key == "" {
			key = c.ClientIP()
		}

		reservation := l.get(key).ReserveN(l.now(), 1)
		if delay := reservation.DelayFrom(l.now()); delay > 0 {
			reservation.CancelAt(l.now())
			c.Header("Retry-After", fmt.Sprintf("%.0f", math.Ceil(delay.Seconds())))
			c.JSON(http.StatusTooManyRequests, gin.H{"error": "too many requests, slow down"})
			c.Abort()
			return
		}

		c.Next()
	}
}

func (l *UserRateLimiter) get(key string) *rate.Limiter {
	l.mu.Lock()
	defer l.mu.Unlock()

	now := l.now()
	for k, ul := range l.limiters {
		if now.After(ul.expires) {
			delete(l.limiters, k)
		}
	}

	if ul, ok := l.limiters[key]; ok {
		ul.expires = now.Add(l.ttl)
		return ul.limiter
	}

	ul := &userLimiter{
		limiter: rate.NewLimiter(rate.Every(l.every), l.burst),
		expires: now.Add(l.ttl),
	}
	l.limiters[key] = ul
	return ul.limiter
}
