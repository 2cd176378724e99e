package store

import (
	"context"
	"encoding/json"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/sony/gobreaker"
	"go.uber.org/zap"

	"github.com/quickmate/server/internal/v1/logging"
	"github.com/quickmate/server/internal/v1/metrics"
	"github.com/quickmate/server/internal/v1/room"
)

// Cache is a best-effort write-through copy of room state for
// observability and warm restarts. The in-memory map stays
// authoritative: cache failures are logged and swallowed.
type Cache interface {
	Put(ctx context.Context, r *room.Room)
	Delete(ctx context.Context, id string)
}

// NopCache is the degraded mode used when Redis is not configured.
type NopCache struct{}

func (NopCache) Put(context.Context, *room.Room) {}
func (NopCache) Delete(context.Context, string)  {}

const (
	cacheKeyPrefix = "room:"
	cacheTTL       = 2 * time.Hour
)

// RedisCache mirrors rooms into Redis behind a circuit breaker, so a
// struggling Redis cannot slow the game path down.
type RedisCache struct {
	client  redis.UniversalClient
	breaker *gobreaker.CircuitBreaker
}

// NewRedisCache wraps a connected client.
func NewRedisCache(client redis.UniversalClient) *RedisCache {
	settings := gobreaker.Settings{
		Name:        "redis-room-cache",
		MaxRequests: 3,
		Interval:    30 * time.Second,
		Timeout:     15 * time.Second,
		ReadyToTrip: func(c gobreaker.Counts) bool {
			return c.ConsecutiveFailures >= 5
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			metrics.CircuitBreakerState.Set(float64(to))
			logging.Warn(context.Background(), "redis breaker state change",
				zap.String("breaker", name),
				zap.String("from", from.String()),
				zap.String("to", to.String()))
		},
	}
	return &RedisCache{client: client, breaker: gobreaker.NewCircuitBreaker(settings)}
}

func (c *RedisCache) Put(ctx context.Context, r *room.Room) {
	payload, err := json.Marshal(r)
	if err != nil {
		logging.Error(ctx, "room cache marshal failed", zap.Error(err))
		return
	}
	_, err = c.breaker.Execute(func() (any, error) {
		return nil, c.client.Set(ctx, cacheKeyPrefix+r.ID, payload, cacheTTL).Err()
	})
	if err != nil {
		metrics.CircuitBreakerFailures.Inc()
		logging.Debug(ctx, "room cache write skipped", zap.String("room_id", r.ID), zap.Error(err))
	}
}

func (c *RedisCache) Delete(ctx context.Context, id string) {
	_, err := c.breaker.Execute(func() (any, error) {
		return nil, c.client.Del(ctx, cacheKeyPrefix+id).Err()
	})
	if err != nil {
		metrics.CircuitBreakerFailures.Inc()
		logging.Debug(ctx, "room cache delete skipped", zap.String("room_id", id), zap.Error(err))
	}
}
