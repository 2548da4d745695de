package middleware

import (
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/go-redis/redis/v8"
	"github.com/ulule/limiter/v3"
	mgin "github.com/ulule/limiter/v3/drivers/middleware/gin"
	"github.com/ulule/limiter/v3/drivers/store/memory"
	sredis "github.com/ulule/limiter/v3/drivers/store/redis"
)

const rateLimitPrefix = "ratelimit"

// NewRateLimiter allows requests per window for each client IP. With a Redis client
// the windows are shared across instances, otherwise they live in process memory.
func NewRateLimiter(client *redis.Client, requests int, window time.Duration) (*limiter.Limiter, error) {
	rate := limiter.Rate{Period: window, Limit: int64(requests)}

	var store limiter.Store
	if client != nil {
		var err error
		store, err = sredis.NewStoreWithOptions(client, limiter.StoreOptions{Prefix: rateLimitPrefix, MaxRetry: 3})
		if err != nil {
			return nil, fmt.Errorf("create redis rate limit store: %w", err)
		}
	} else {
		cleanup := window
		if cleanup <= 0 {
			cleanup = limiter.DefaultCleanUpInterval
		}
		store = memory.NewStoreWithOptions(limiter.StoreOptions{Prefix: rateLimitPrefix, CleanUpInterval: cleanup})
	}
	return limiter.New(store, rate), nil
}

// RateLimitMiddleware отдает 429 сверх лимита. A store failure lets the request through.
func RateLimitMiddleware(l *limiter.Limiter, serviceName string) gin.HandlerFunc {
	return mgin.NewMiddleware(l,
		mgin.WithLimitReachedHandler(func(c *gin.Context) {
			rateLimitedTotal.WithLabelValues(serviceName).Inc()
			c.JSON(http.StatusTooManyRequests, gin.H{"error": "Too many requests from this IP, please try again later"})
		}),
		mgin.WithErrorHandler(func(c *gin.Context, err error) {
			slog.Warn("rate limiter unavailable", "error", err)
			// обработчики запускаются здесь: после ErrorHandler middleware делает Abort
			c.Next()
		}),
	)
}
