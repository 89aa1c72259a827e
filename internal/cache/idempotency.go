package cache

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

const pendingMarker = "pending"

// IdempotencyStore maps client request keys to the booking they produced.
type IdempotencyStore struct {
	client *redis.Client
	ttl    time.Duration
}

func NewIdempotencyStore(client *redis.Client, ttl time.Duration) *IdempotencyStore {
	if ttl <= 0 {
		ttl = 24 * time.Hour
	}
	return &IdempotencyStore{client: client, ttl: ttl}
}

func idempotencyKey(key string) string {
	return "idem:" + key
}

// Reserve claims key with a pending marker. If someone else holds it, the
// stored booking id is returned, or "" while their request is still running.
func (s *IdempotencyStore) Reserve(ctx context.Context, key string) (bool, string, error) {
	ok, err := s.client.SetNX(ctx, idempotencyKey(key), pendingMarker, s.ttl).Result()
	if err != nil {
		return false, "", fmt.Errorf("redis setnx failed: %w", err)
	}
	if ok {
		return true, "", nil
	}

	val, err := s.client.Get(ctx, idempotencyKey(key)).Result()
	if errors.Is(err, redis.Nil) {
		// Released between the two calls; let the caller retry as fresh.
		return false, "", nil
	}
	if err != nil {
		return false, "", fmt.Errorf("redis get failed: %w", err)
	}
	if val == pendingMarker {
		return false, "", nil
	}
	return false, val, nil
}

func (s *IdempotencyStore) Complete(ctx context.Context, key, bookingID string) error {
	if err := s.client.Set(ctx, idempotencyKey(key), bookingID, s.ttl).Err(); err != nil {
		return fmt.Errorf("redis set failed: %w", err)
	}
	return nil
}

func (s *IdempotencyStore) Release(ctx context.Context, key string) error {
	if err := s.client.Del(ctx, idempotencyKey(key)).Err(); err != nil {
		return fmt.Errorf("redis delete failed: %w", err)
	}
	return nil
}
