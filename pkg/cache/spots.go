package cache

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"campuspark/pkg/logger"
	"campuspark/pkg/model"

	"github.com/redis/go-redis/v9"
)

const spotsKeyPrefix = "spots:"

// SpotCache keeps each lot's spot list in Redis. Reservation writes flip
// isReserved on spots, so they invalidate the owning lots after commit.
// A nil Redis client disables the cache; every method then falls through.
type SpotCache struct {
	rdb *redis.Client
	ttl time.Duration
	log *logger.Logger
}

func NewSpotCache(rdb *redis.Client, ttl time.Duration, log *logger.Logger) *SpotCache {
	return &SpotCache{rdb: rdb, ttl: ttl, log: log}
}

func SpotsKey(lotID string) string {
	return spotsKeyPrefix + lotID
}

func (c *SpotCache) Enabled() bool {
	return c != nil && c.rdb != nil
}

// GetSpots returns the cached list and true on a hit.
func (c *SpotCache) GetSpots(ctx context.Context, lotID string) ([]*model.Spot, bool) {
	if !c.Enabled() {
		return nil, false
	}

	raw, err := c.rdb.Get(ctx, SpotsKey(lotID)).Result()
	if err != nil {
		if !errors.Is(err, redis.Nil) {
			c.log.Warn("spot cache read failed", "lot_id", lotID, "error", err)
		}
		return nil, false
	}

	var spots []*model.Spot
	if err := json.Unmarshal([]byte(raw), &spots); err != nil {
		c.log.Warn("spot cache entry corrupt", "lot_id", lotID, "error", err)
		return nil, false
	}
	return spots, true
}

func (c *SpotCache) SetSpots(ctx context.Context, lotID string, spots []*model.Spot) {
	if !c.Enabled() {
		return
	}

	data, err := json.Marshal(spots)
	if err != nil {
		c.log.Warn("spot cache encode failed", "lot_id", lotID, "error", err)
		return
	}

	if err := c.rdb.Set(ctx, SpotsKey(lotID), string(data), c.ttl).Err(); err != nil {
		c.log.Warn("spot cache write failed", "lot_id", lotID, "error", err)
	}
}

func (c *SpotCache) Invalidate(ctx context.Context, lotIDs ...string) {
	if !c.Enabled() || len(lotIDs) == 0 {
		return
	}

	keys := make([]string, 0, len(lotIDs))
	seen := make(map[string]struct{}, len(lotIDs))
	for _, id := range lotIDs {
		if id == "" {
			continue
		}
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		keys = append(keys, SpotsKey(id))
	}
	if len(keys) == 0 {
		return
	}

	if err := c.rdb.Del(ctx, keys...).Err(); err != nil {
		c.log.Warn("spot cache invalidation failed", "keys", keys, "error", err)
	}
}
