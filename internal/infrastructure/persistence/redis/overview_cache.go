package redis

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/studypath-hub/studypath-hub/pkg/logger"
)

// OverviewCache caches rendered progress-overview payloads per user. Cache
// misses and Redis failures are both treated as a miss; the caller falls
// through to the store of record.
type OverviewCache struct {
	client *redis.Client
	ttl    time.Duration
	log    *logger.Logger
}

// NewOverviewCache creates an overview cache with the given TTL.
func NewOverviewCache(client *redis.Client, ttl time.Duration, log *logger.Logger) *OverviewCache {
	return &OverviewCache{client: client, ttl: ttl, log: log}
}

func overviewKey(userID string) string {
	return PrefixOverview + userID
}

// Get returns the cached payload for the user and whether it was present.
func (c *OverviewCache) Get(ctx context.Context, userID string, dest any) bool {
	data, err := c.client.Get(ctx, overviewKey(userID)).Bytes()
	if errors.Is(err, redis.Nil) {
		return false
	}
	if err != nil {
		c.log.Warn("overview cache read failed", logger.UserID(userID), logger.Err(err))
		return false
	}
	if err := json.Unmarshal(data, dest); err != nil {
		c.log.Warn("overview cache entry corrupt, discarding", logger.UserID(userID), logger.Err(err))
		c.client.Del(ctx, overviewKey(userID))
		return false
	}
	return true
}

// Set stores the payload for the user. Failures are logged, not returned;
// the cache is best effort.
func (c *OverviewCache) Set(ctx context.Context, userID string, payload any) {
	data, err := json.Marshal(payload)
	if err != nil {
		c.log.Warn("overview cache encode failed", logger.UserID(userID), logger.Err(err))
		return
	}
	if err := c.client.Set(ctx, overviewKey(userID), data, c.ttl).Err(); err != nil {
		c.log.Warn("overview cache write failed", logger.UserID(userID), logger.Err(err))
	}
}

// Invalidate drops the cached payload for the user.
func (c *OverviewCache) Invalidate(ctx context.Context, userID string) {
	if err := c.client.Del(ctx, overviewKey(userID)).Err(); err != nil {
		c.log.Warn("overview cache invalidation failed", logger.UserID(userID), logger.Err(err))
	}
}
