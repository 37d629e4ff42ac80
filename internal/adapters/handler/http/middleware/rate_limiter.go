package middleware

import (
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
	"golang.org/x/time/rate"

	"github.com/comitanigiacomo/kanso-tracker/internal/logger"
	"github.com/comitanigiacomo/kanso-tracker/internal/metrics"
)

// LocalLimiter is a per-key token bucket kept in process memory. It backs
// the Redis limiter when Redis is missing or failing.
type LocalLimiter struct {
	mu       sync.Mutex
	limiters map[string]*localEntry
	rate     rate.Limit
	burst    int
}

type localEntry struct {
	limiter    *rate.Limiter
	lastAccess time.Time
}

func NewLocalLimiter(limit int, window time.Duration) *LocalLimiter {
	if limit < 1 {
		limit = 1
	}
	return &LocalLimiter{
		limiters: make(map[string]*localEntry),
		rate:     rate.Every(window / time.Duration(limit)),
		burst:    limit,
	}
}

func (l *LocalLimiter) entry(key string) *rate.Limiter {
	l.mu.Lock()
	defer l.mu.Unlock()

	e, ok := l.limiters[key]
	if !ok {
		e = &localEntry{limiter: rate.NewLimiter(l.rate, l.burst)}
		l.limiters[key] = e
	}
	e.lastAccess = time.Now()
	return e.limiter
}

func (l *LocalLimiter) Allow(key string) bool {
	return l.entry(key).Allow()
}

// Remaining is the whole number of tokens left for key.
func (l *LocalLimiter) Remaining(key string) int {
	return max(0, int(l.entry(key).Tokens()))
}

// Cleanup drops buckets idle for longer than maxIdle.
func (l *LocalLimiter) Cleanup(maxIdle time.Duration) {
	l.mu.Lock()
	defer l.mu.Unlock()

	threshold := time.Now().Add(-maxIdle)
	for k, e := range l.limiters {
		if e.lastAccess.Before(threshold) {
			delete(l.limiters, k)
		}
	}
}

func (l *LocalLimiter) Len() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.limiters)
}

// RateLimiterMiddleware counts requests per client IP in a fixed Redis
// window. rdb may be nil, in which case only the local limiter is used.
func RateLimiterMiddleware(rdb redis.Cmdable, limit int, window time.Duration) gin.HandlerFunc {
	local := NewLocalLimiter(limit, window)

	return func(c *gin.Context) {
		clientIP := c.ClientIP()

		if rdb == nil {
			localLimit(c, local, clientIP, limit, window)
			return
		}

		key := fmt.Sprintf("rate_limit:%s", clientIP)
		ctx := c.Request.Context()

		count, err := rdb.Incr(ctx, key).Result()
		if err != nil {
			logger.Warn("rate limiter: redis unavailable, using local limiter", "err", err)
			localLimit(c, local, clientIP, limit, window)
			return
		}

		if count == 1 {
			if err := rdb.Expire(ctx, key, window).Err(); err != nil {
				logger.Warn("rate limiter: expire failed, deleting key", "key", key, "err", err)
				rdb.Del(ctx, key)
				c.Next()
				return
			}
		}

		ttl, err := rdb.TTL(ctx, key).Result()
		if err != nil || ttl < 0 {
			ttl = window
		}

		c.Header("X-RateLimit-Limit", fmt.Sprintf("%d", limit))
		c.Header("X-RateLimit-Remaining", fmt.Sprintf("%d", max(0, int64(limit)-count)))
		c.Header("X-RateLimit-Reset", fmt.Sprintf("%d", time.Now().Add(ttl).Unix()))

		if count > int64(limit) {
			metrics.RateLimited.WithLabelValues("redis").Inc()
			tooManyRequests(c, ttl)
			return
		}

		c.Next()
	}
}

func localLimit(c *gin.Context, local *LocalLimiter, key string, limit int, window time.Duration) {
	allowed := local.Allow(key)

	c.Header("X-RateLimit-Limit", fmt.Sprintf("%d", limit))
	c.Header("X-RateLimit-Remaining", fmt.Sprintf("%d", local.Remaining(key)))

	if !allowed {
		metrics.RateLimited.WithLabelValues("local").Inc()
		tooManyRequests(c, window/time.Duration(max(1, limit)))
		return
	}
	c.Next()
}

func tooManyRequests(c *gin.Context, retry time.Duration) {
	c.AbortWithStatusJSON(http.StatusTooManyRequests, gin.H{
		"status":     "error",
		"message":    "Too many requests. Slow down!",
		"retry_in_s": int(retry.Seconds()),
	})
}
