package webhook

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

const redisKeyPrefix = "semantic-flow:webhook:"

// RedisDeduper shares the dedupe window between processes with SET NX PX
type RedisDeduper struct {
	client redis.UniversalClient
	ttl    time.Duration
}

var _ Deduper = (*RedisDeduper)(nil)

func NewRedisDeduper(client redis.UniversalClient, ttl time.Duration) *RedisDeduper {
	return &RedisDeduper{client: client, ttl: ttl}
}

func (d *RedisDeduper) Seen(ctx context.Context, key string) (bool, error) {
	stored, err := d.client.SetNX(ctx, redisKeyPrefix+key, NowTimeFunc().UnixMilli(), d.ttl).Result()
	if err != nil {
		return false, fmt.Errorf("redis dedupe: %w", err)
	}
	return !stored, nil
}
