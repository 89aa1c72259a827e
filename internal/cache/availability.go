package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/nekogravitycat/resort-booking-backend/internal/availability"
)

// AvailabilityCache keeps short-lived availability snapshots. Each resource has
// a version counter that is part of every snapshot key; bumping it on a booking
// commit orphans all older snapshots at once.
type AvailabilityCache struct {
	client *redis.Client
	ttl    time.Duration
}

func NewAvailabilityCache(client *redis.Client, ttl time.Duration) *AvailabilityCache {
	if ttl <= 0 {
		ttl = 10 * time.Second
	}
	return &AvailabilityCache{client: client, ttl: ttl}
}

var _ availability.Cache = (*AvailabilityCache)(nil)

func versionKey(kind availability.Kind, id string) string {
	return fmt.Sprintf("avail:ver:%s:%s", kind, id)
}

func snapshotKey(kind availability.Kind, id string, version int64, checkIn, checkOut time.Time) string {
	return fmt.Sprintf("avail:%s:%s:v%d:%d:%d", kind, id, version, checkIn.Unix(), checkOut.Unix())
}

func (c *AvailabilityCache) version(ctx context.Context, kind availability.Kind, id string) (int64, error) {
	v, err := c.client.Get(ctx, versionKey(kind, id)).Int64()
	if errors.Is(err, redis.Nil) {
		return 0, nil
	}
	if err != nil {
		return 0, fmt.Errorf("redis get version failed: %w", err)
	}
	return v, nil
}

// Get returns nil without error on a miss.
func (c *AvailabilityCache) Get(ctx context.Context, q availability.Query) (*availability.Availability, error) {
	version, err := c.version(ctx, q.Kind, q.ResourceID)
	if err != nil {
		return nil, err
	}

	data, err := c.client.Get(ctx, snapshotKey(q.Kind, q.ResourceID, version, q.CheckIn, q.CheckOut)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("redis get failed: %w", err)
	}

	var a availability.Availability
	if err := json.Unmarshal(data, &a); err != nil {
		return nil, fmt.Errorf("unmarshal availability failed: %w", err)
	}
	return &a, nil
}

func (c *AvailabilityCache) Set(ctx context.Context, a *availability.Availability) error {
	version, err := c.version(ctx, a.Kind, a.ResourceID)
	if err != nil {
		return err
	}

	data, err := json.Marshal(a)
	if err != nil {
		return fmt.Errorf("marshal availability failed: %w", err)
	}
	key := snapshotKey(a.Kind, a.ResourceID, version, a.CheckIn, a.CheckOut)
	if err := c.client.Set(ctx, key, data, c.ttl).Err(); err != nil {
		return fmt.Errorf("redis set failed: %w", err)
	}
	return nil
}

func (c *AvailabilityCache) Invalidate(ctx context.Context, kind availability.Kind, ids ...string) error {
	if len(ids) == 0 {
		return nil
	}
	pipe := c.client.TxPipeline()
	for _, id := range ids {
		pipe.Incr(ctx, versionKey(kind, id))
	}
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("redis invalidate failed: %w", err)
	}
	return nil
}
