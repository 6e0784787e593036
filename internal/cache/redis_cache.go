package cache

import (
	"context"
	"encoding/json"
	"strconv"
	"time"

	"github.com/JaroldEnderez/Vanity/internal/dto"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

const activityKey = "branch:last_active"

type RedisSummaryCache struct {
	client *redis.Client
}

func NewRedisSummaryCache(client *redis.Client) *RedisSummaryCache {
	return &RedisSummaryCache{client: client}
}

func (c *RedisSummaryCache) Get(ctx context.Context, key string) (*dto.OwnerSummaryResponse, bool, error) {
	val, err := c.client.Get(ctx, key).Result()
	if err == redis.Nil {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, err
	}

	var resp dto.OwnerSummaryResponse
	if err := json.Unmarshal([]byte(val), &resp); err != nil {
		return nil, false, err
	}
	return &resp, true, nil
}

func (c *RedisSummaryCache) Set(ctx context.Context, key string, value *dto.OwnerSummaryResponse, ttl time.Duration) error {
	if value == nil {
		return nil
	}
	payload, err := json.Marshal(value)
	if err != nil {
		return err
	}
	return c.client.Set(ctx, key, payload, ttl).Err()
}

// RedisActivity stores one hash field per branch holding unix milliseconds.
type RedisActivity struct {
	client *redis.Client
}

func NewRedisActivity(client *redis.Client) *RedisActivity {
	return &RedisActivity{client: client}
}

func (a *RedisActivity) Touch(ctx context.Context, branchID uuid.UUID, at time.Time) error {
	return a.client.HSet(ctx, activityKey, branchID.String(), at.UnixMilli()).Err()
}

func (a *RedisActivity) LastActive(ctx context.Context, branchIDs []uuid.UUID) (map[uuid.UUID]time.Time, error) {
	out := make(map[uuid.UUID]time.Time, len(branchIDs))
	if len(branchIDs) == 0 {
		return out, nil
	}
	fields := make([]string, len(branchIDs))
	for i, id := range branchIDs {
		fields[i] = id.String()
	}
	vals, err := a.client.HMGet(ctx, activityKey, fields...).Result()
	if err != nil {
		return nil, err
	}
	for i, v := range vals {
		s, ok := v.(string)
		if !ok {
			continue
		}
		ms, err := strconv.ParseInt(s, 10, 64)
		if err != nil {
			continue
		}
		out[branchIDs[i]] = time.UnixMilli(ms)
	}
	return out, nil
}
