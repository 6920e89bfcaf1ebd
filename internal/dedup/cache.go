package dedup

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

const fingerprintKeyPrefix = "jobsift:fp:"

// SeenCache is a Redis fast path for exact fingerprint checks. Entries
// expire with the recency window, so the cache can never outlive the
// store-side duplicate horizon. It is best-effort: any Redis failure is
// logged at debug level and the checker falls back to the store.
type SeenCache struct {
	rdb    *redis.Client
	window time.Duration
	logger *zap.Logger
}

// NewSeenCache connects to Redis and verifies connectivity.
func NewSeenCache(ctx context.Context, redisURL string, window time.Duration, log *zap.Logger) (*SeenCache, error) {
	opts, err := redis.ParseURL(redisURL)
	if err != nil {
		return nil, fmt.Errorf("redis.ParseURL: %w", err)
	}

	rdb := redis.NewClient(opts)
	if err := rdb.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("redis ping: %w", err)
	}

	if log == nil {
		log = zap.NewNop()
	}
	return &SeenCache{rdb: rdb, window: window, logger: log}, nil
}

// Find returns the stored posting id for a fingerprint seen within the
// window, and whether it was present.
func (c *SeenCache) Find(ctx context.Context, fingerprint string) (string, bool) {
	id, err := c.rdb.Get(ctx, fingerprintKeyPrefix+fingerprint).Result()
	if err == redis.Nil {
		return "", false
	}
	if err != nil {
		c.logger.Debug("fingerprint cache lookup failed", zap.Error(err))
		return "", false
	}
	return id, true
}

// Remember records an accepted posting's fingerprint for the window.
func (c *SeenCache) Remember(ctx context.Context, fingerprint, id string) {
	if err := c.rdb.SetNX(ctx, fingerprintKeyPrefix+fingerprint, id, c.window).Err(); err != nil {
		c.logger.Debug("fingerprint cache store failed", zap.Error(err))
	}
}

// Close releases the Redis connection.
func (c *SeenCache) Close() error {
	return c.rdb.Close()
}
