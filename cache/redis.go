package cache

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"

	"github.com/warp/calendar-engine/calendar"
)

// =============================================================================
// REDIS CACHE - Shared month cache
// =============================================================================

// Redis caches month reads under "cal:month:<user>:<yyyy-mm>" with a TTL.
// It fails open: any Redis or codec error is logged and treated as a miss
// (on Get) or a no-op (on Put/Evict), so the store stays the source of truth.
type Redis struct {
	client *redis.Client
	ttl    time.Duration
	log    *logrus.Logger
}

func NewRedis(client *redis.Client, ttl time.Duration, log *logrus.Logger) *Redis {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	return &Redis{client: client, ttl: ttl, log: log}
}

func monthKeyFor(userID calendar.UserID, ym calendar.YearMonth) string {
	return fmt.Sprintf("cal:month:%d:%s", userID, ym)
}

func (r *Redis) Get(ctx context.Context, userID calendar.UserID, ym calendar.YearMonth) ([]calendar.Item, bool) {
	key := monthKeyFor(userID, ym)
	payload, err := r.client.Get(ctx, key).Bytes()
	if err == redis.Nil {
		return nil, false
	}
	if err != nil {
		r.log.WithError(err).WithField("key", key).Warn("month cache read failed")
		return nil, false
	}
	var items []calendar.Item
	if err := json.Unmarshal(payload, &items); err != nil {
		r.log.WithError(err).WithField("key", key).Warn("month cache entry corrupt, dropping")
		r.client.Del(ctx, key)
		return nil, false
	}
	return items, true
}

func (r *Redis) Put(ctx context.Context, userID calendar.UserID, ym calendar.YearMonth, items []calendar.Item) {
	key := monthKeyFor(userID, ym)
	payload, err := json.Marshal(items)
	if err != nil {
		r.log.WithError(err).WithField("key", key).Warn("month cache encode failed")
		return
	}
	if err := r.client.Set(ctx, key, payload, r.ttl).Err(); err != nil {
		r.log.WithError(err).WithField("key", key).Warn("month cache write failed")
	}
}

func (r *Redis) Evict(ctx context.Context, userID calendar.UserID, ym calendar.YearMonth) {
	key := monthKeyFor(userID, ym)
	if err := r.client.Del(ctx, key).Err(); err != nil {
		r.log.WithError(err).WithField("key", key).Warn("month cache evict failed")
	}
}
