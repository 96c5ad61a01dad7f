package middleware

import (
	"context"
	"net/http"
	"strconv"
	"time"

	"tprmgrc/internal/config"
	"tprmgrc/internal/models/dto"
	"tprmgrc/pkg/logger"

	"github.com/gin-gonic/gin"
	"golang.org/x/sync/semaphore"
)

const (
	defaultMaxRequests = 120
	rateLimitWindow    = 60 * time.Second
)

// Counter counts hits of a key inside a fixed window
type Counter interface {
	Hit(ctx context.Context, key string, window time.Duration) (int64, time.Duration, error)
}

// RateLimiter limits requests per client IP
type RateLimiter struct {
	counter     Counter
	log         logger.Interface
	maxRequests int
	window      time.Duration
}

// NewRateLimiter builds a limiter of maxRequests per window
func NewRateLimiter(counter Counter, log logger.Interface, maxRequests int, window time.Duration) *RateLimiter {
	return &RateLimiter{
		counter:     counter,
		log:         log,
		maxRequests: maxRequests,
		window:      window,
	}
}

// setupRedisDB installs the Redis backed rate limiter
func setupRedisDB(engine *gin.Engine, cfg *config.App) {
	maxRequests := int(getEnvAsInt64("MAX_REQUEST_COUNT_BY_IP", defaultMaxRequests))
	rateLimiter := NewRateLimiter(cfg.Redis, cfg.Log(), maxRequests, rateLimitWindow)
	engine.Use(rateLimiter.Middleware())
}

// Middleware returns the gin handler. Counter failures let the request
// through.
func (rl *RateLimiter) Middleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		count, ttl, err := rl.counter.Hit(c.Request.Context(), c.ClientIP(), rl.window)
		if err != nil {
			rl.log.Warn("rate limiter unavailable", map[string]interface{}{
				"remote_ip": c.ClientIP(),
				"error":     err.Error(),
			})
			c.Next()
			return
		}

		remaining := rl.maxRequests - int(count)
		if remaining < 0 {
			remaining = 0
		}
		c.Header("X-RateLimit-Limit", strconv.Itoa(rl.maxRequests))
		c.Header("X-RateLimit-Remaining", strconv.Itoa(remaining))

		if count > int64(rl.maxRequests) {
			if ttl < 0 {
				ttl = rl.window
			}
			c.Header("Retry-After", strconv.Itoa(int(ttl.Seconds())))
			c.AbortWithStatusJSON(http.StatusTooManyRequests,
				dto.NewRateLimitErrorResponse(c, ttl.String(), rl.maxRequests, 0, time.Now().Add(ttl).UTC()))
			return
		}

		c.Next()
	}
}

// setupSemaphore bounds the number of requests served at once
func setupSemaphore(engine *gin.Engine) {
	max := getEnvAsInt64("MAX_REQUEST_COUNT_GLOBAL", int64(100))
	sema := semaphore.NewWeighted(max)
	engine.Use(func(c *gin.Context) {
		if err := sema.Acquire(c.Request.Context(), 1); err != nil {
			c.AbortWithStatusJSON(http.StatusTooManyRequests,
				dto.NewErrorResponse(c, http.StatusTooManyRequests, "too_many_requests", "Server busy", nil))
			return
		}
		defer sema.Release(1)
		c.Next()
	})
}
