// Package ratelimit builds the per-source-address limiter for the REST
// surface. The store is Redis-backed when Redis is configured, so the
// limit holds across instances; otherwise it degrades to process-local
// memory.
package ratelimit

import (
	"context"
	"time"

	"github.com/gin-gonic/gin"
	goredis "github.com/redis/go-redis/v9"
	"github.com/ulule/limiter/v3"
	mgin "github.com/ulule/limiter/v3/drivers/middleware/gin"
	memorystore "github.com/ulule/limiter/v3/drivers/store/memory"
	redisstore "github.com/ulule/limiter/v3/drivers/store/redis"
	"go.uber.org/zap"

	"github.com/quickmate/server/internal/v1/logging"
)

// Middleware returns the gin middleware enforcing limit requests per
// window per client IP. redisClient may be nil.
func Middleware(limit int64, window time.Duration, redisClient *goredis.Client) gin.HandlerFunc {
	rate := limiter.Rate{Period: window, Limit: limit}

	var store limiter.Store
	if redisClient != nil {
		s, err := redisstore.NewStoreWithOptions(redisClient, limiter.StoreOptions{
			Prefix: "chess:ratelimit",
		})
		if err != nil {
			logging.Warn(context.Background(),
				"redis rate-limit store unavailable, using memory", zap.Error(err))
		} else {
			store = s
		}
	}
	if store == nil {
		store = memorystore.NewStore()
	}

	return mgin.NewMiddleware(limiter.New(store, rate))
}
