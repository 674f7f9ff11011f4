package usage

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/wekeepgrowing/medvoa-backend/internal/entitlement"
)

const redisKeyPrefix = "medvoa:usage:"

// rollover-then-add in one round trip. ARGV: window key, delta, ttl seconds.
var bumpScript = redis.NewScript(`
local stored = redis.call('HGET', KEYS[1], 'window_key')
local delta = tonumber(ARGV[2])
if stored ~= ARGV[1] then
  if delta == 0 and not stored then
    return 0
  end
  redis.call('HSET', KEYS[1], 'window_key', ARGV[1], 'count', 0)
end
local count = redis.call('HINCRBY', KEYS[1], 'count', delta)
local ttl = tonumber(ARGV[3])
if ttl > 0 then
  redis.call('EXPIRE', KEYS[1], ttl)
end
return count
`)

// RedisStore keeps one hash per user, feature and window so every session
// of the user shares its counters.
type RedisStore struct {
	client *redis.Client
}

func NewRedisStore(client *redis.Client) *RedisStore {
	return &RedisStore{client: client}
}

func counterRedisKey(userID, feature string, window entitlement.Window) string {
	return redisKeyPrefix + userID + ":" + feature + ":" + string(window)
}

// ttlFor keeps a counter a little past the end of its window.
func ttlFor(window entitlement.Window) time.Duration {
	switch window {
	case entitlement.WindowDaily:
		return 48 * time.Hour
	case entitlement.WindowMonthly:
		return 62 * 24 * time.Hour
	default:
		return 0
	}
}

func (s *RedisStore) bump(ctx context.Context, userID, feature string, window entitlement.Window, windowKey string, delta int) (Counter, error) {
	key := counterRedisKey(userID, feature, window)
	ttl := int64(ttlFor(window) / time.Second)
	n, err := bumpScript.Run(ctx, s.client, []string{key}, windowKey, delta, ttl).Int()
	if err != nil {
		return Counter{}, fmt.Errorf("failed to update usage counter %s: %w", key, err)
	}
	return Counter{Feature: feature, Window: window, Count: n, WindowKey: windowKey}, nil
}

func (s *RedisStore) Load(ctx context.Context, userID, feature string, window entitlement.Window, windowKey string) (Counter, error) {
	return s.bump(ctx, userID, feature, window, windowKey, 0)
}

func (s *RedisStore) Increment(ctx context.Context, userID, feature string, window entitlement.Window, windowKey string) (Counter, error) {
	return s.bump(ctx, userID, feature, window, windowKey, 1)
}

func (s *RedisStore) List(ctx context.Context, userID string) ([]Counter, error) {
	prefix := redisKeyPrefix + userID + ":"
	var out []Counter

	iter := s.client.Scan(ctx, 0, prefix+"*", 100).Iterator()
	for iter.Next(ctx) {
		key := iter.Val()
		rest := strings.TrimPrefix(key, prefix)
		sep := strings.LastIndex(rest, ":")
		if sep <= 0 {
			continue
		}
		window, err := entitlement.ParseWindow(rest[sep+1:])
		if err != nil {
			continue
		}

		fields, err := s.client.HGetAll(ctx, key).Result()
		if err != nil {
			return nil, fmt.Errorf("failed to read usage counter %s: %w", key, err)
		}
		if len(fields) == 0 {
			// expired between SCAN and HGETALL
			continue
		}
		count, _ := strconv.Atoi(fields["count"])
		out = append(out, Counter{
			Feature:   rest[:sep],
			Window:    window,
			Count:     count,
			WindowKey: fields["window_key"],
		})
	}
	if err := iter.Err(); err != nil {
		return nil, fmt.Errorf("failed to list usage counters: %w", err)
	}
	return out, nil
}
