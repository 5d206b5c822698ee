package numbering

import (
	"context"

	"github.com/redis/go-redis/v9"
)

// RedisSequence keeps counters in redis so several API instances share one numbering space.
type RedisSequence struct {
	client *redis.Client
}

func NewRedisSequence(client *redis.Client) *RedisSequence {
	return &RedisSequence{client: client}
}

func (s *RedisSequence) Next(ctx context.Context, name string) (int64, error) {
	return s.client.Incr(ctx, name).Result()
}
