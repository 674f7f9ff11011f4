package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/wekeepgrowing/medvoa-backend/internal/usecase"
)

const snapshotKeyPrefix = "medvoa:subscription:snapshot:"

// RedisSnapshotCache shares query snapshots between server instances.
type RedisSnapshotCache struct {
	client *redis.Client
	ttl    time.Duration
}

// NewRedisSnapshotCache creates a cache whose keys expire after ttl.
func NewRedisSnapshotCache(client *redis.Client, ttl time.Duration) *RedisSnapshotCache {
	if ttl <= 0 {
		ttl = usecase.DefaultSnapshotFreshness
	}
	return &RedisSnapshotCache{client: client, ttl: ttl}
}

var _ usecase.SnapshotCache = (*RedisSnapshotCache)(nil)

func snapshotKey(email string) string {
	return snapshotKeyPrefix + email
}

func (c *RedisSnapshotCache) Get(ctx context.Context, email string) (*usecase.SnapshotEntry, error) {
	data, err := c.client.Get(ctx, snapshotKey(email)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read snapshot cache: %w", err)
	}

	var entry usecase.SnapshotEntry
	if err := json.Unmarshal(data, &entry); err != nil {
		return nil, fmt.Errorf("failed to decode cached snapshot: %w", err)
	}
	return &entry, nil
}

func (c *RedisSnapshotCache) Set(ctx context.Context, email string, entry usecase.SnapshotEntry) error {
	data, err := json.Marshal(entry)
	if err != nil {
		return fmt.Errorf("failed to encode snapshot: %w", err)
	}
	if err := c.client.Set(ctx, snapshotKey(email), data, c.ttl).Err(); err != nil {
		return fmt.Errorf("failed to write snapshot cache: %w", err)
	}
	return nil
}

func (c *RedisSnapshotCache) Invalidate(ctx context.Context, email string) error {
	if err := c.client.Del(ctx, snapshotKey(email)).Err(); err != nil {
		return fmt.Errorf("failed to invalidate snapshot cache: %w", err)
	}
	return nil
}
