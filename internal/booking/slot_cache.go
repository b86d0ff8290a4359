package booking

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	"github.com/wolfman30/clinic-scheduling-platform/internal/schedule"
	"github.com/wolfman30/clinic-scheduling-platform/pkg/logging"
)

// RedisSlotCache caches computed day grids in Redis. Cache misses and Redis
// failures both fall through to recomputation; the cache is never
// authoritative.
type RedisSlotCache struct {
	client *redis.Client
	ttl    time.Duration
	logger *logging.Logger
}

// NewRedisSlotCache creates a slot cache. A zero ttl defaults to five
// minutes.
func NewRedisSlotCache(client *redis.Client, ttl time.Duration, logger *logging.Logger) *RedisSlotCache {
	if client == nil {
		panic("booking: redis client is required")
	}
	if ttl <= 0 {
		ttl = 5 * time.Minute
	}
	if logger == nil {
		logger = logging.Default()
	}
	return &RedisSlotCache{client: client, ttl: ttl, logger: logger}
}

func slotKey(doctorID uuid.UUID, date time.Time) string {
	return fmt.Sprintf("slots:%s:%s", doctorID, date.Format("2006-01-02"))
}

// Get returns the cached grid for a doctor-day, or false on miss.
func (c *RedisSlotCache) Get(ctx context.Context, doctorID uuid.UUID, date time.Time) ([]schedule.TimeSlot, bool) {
	data, err := c.client.Get(ctx, slotKey(doctorID, date)).Bytes()
	if err == redis.Nil {
		return nil, false
	}
	if err != nil {
		c.logger.Warn("slot cache read failed", "error", err, "doctor_id", doctorID)
		return nil, false
	}
	var slots []schedule.TimeSlot
	if err := json.Unmarshal(data, &slots); err != nil {
		c.logger.Warn("slot cache decode failed", "error", err, "doctor_id", doctorID)
		return nil, false
	}
	return slots, true
}

// Set stores a computed grid with the cache TTL.
func (c *RedisSlotCache) Set(ctx context.Context, doctorID uuid.UUID, date time.Time, slots []schedule.TimeSlot) {
	data, err := json.Marshal(slots)
	if err != nil {
		c.logger.Warn("slot cache encode failed", "error", err, "doctor_id", doctorID)
		return
	}
	if err := c.client.Set(ctx, slotKey(doctorID, date), data, c.ttl).Err(); err != nil {
		c.logger.Warn("slot cache write failed", "error", err, "doctor_id", doctorID)
	}
}

// InvalidateDate drops the cached grid for one doctor-day.
func (c *RedisSlotCache) InvalidateDate(ctx context.Context, doctorID uuid.UUID, date time.Time) {
	if err := c.client.Del(ctx, slotKey(doctorID, date)).Err(); err != nil {
		c.logger.Warn("slot cache invalidate failed", "error", err, "doctor_id", doctorID)
	}
}

// InvalidateDoctor drops every cached grid for a doctor. Used when a
// recurring block changes, since that can touch any future day.
func (c *RedisSlotCache) InvalidateDoctor(ctx context.Context, doctorID uuid.UUID) {
	pattern := fmt.Sprintf("slots:%s:*", doctorID)
	iter := c.client.Scan(ctx, 0, pattern, 100).Iterator()
	var keys []string
	for iter.Next(ctx) {
		keys = append(keys, iter.Val())
	}
	if err := iter.Err(); err != nil {
		c.logger.Warn("slot cache scan failed", "error", err, "doctor_id", doctorID)
		return
	}
	if len(keys) == 0 {
		return
	}
	if err := c.client.Del(ctx, keys...).Err(); err != nil {
		c.logger.Warn("slot cache invalidate failed", "error", err, "doctor_id", doctorID)
	}
}
