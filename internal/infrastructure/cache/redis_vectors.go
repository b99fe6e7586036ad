package cache

import (
	"context"
	"errors"
	"time"

	"internmatch/internal/domain/matching"

	"github.com/goccy/go-json"
	"github.com/redis/go-redis/v9"
)

type RedisVectorCache struct {
	r *Redis
}

func NewRedisVectorCache(r *Redis) *RedisVectorCache {
	return &RedisVectorCache{r: r}
}

// GetMany reads keys with a single MGET. Missing and undecodable entries are
// left out of the result.
func (c *RedisVectorCache) GetMany(ctx context.Context, keys []string) (map[string]matching.Vector, error) {
	out := make(map[string]matching.Vector, len(keys))
	if c == nil || c.r.isUnavailable() || len(keys) == 0 {
		return out, nil
	}

	vals, err := c.r.client.MGet(ctx, keys...).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return out, nil
		}
		c.r.warnUnavailableOnce(err)
		return nil, err
	}

	for i, raw := range vals {
		s, ok := raw.(string)
		if !ok || s == "" {
			continue
		}
		var v matching.Vector
		if err := json.Unmarshal([]byte(s), &v); err != nil {
			c.r.logger.Debug().Err(err).Str("key", keys[i]).Msg("dropping undecodable cache entry")
			continue
		}
		out[keys[i]] = v
	}
	return out, nil
}

func (c *RedisVectorCache) SetMany(ctx context.Context, entries map[string]matching.Vector, ttl time.Duration) error {
	if c == nil || c.r.isUnavailable() || len(entries) == 0 {
		return nil
	}
	if ttl <= 0 {
		ttl = time.Hour
	}

	pipe := c.r.client.Pipeline()
	for k, v := range entries {
		b, err := json.Marshal(v)
		if err != nil {
			return err
		}
		pipe.Set(ctx, k, b, ttl)
	}
	if _, err := pipe.Exec(ctx); err != nil {
		c.r.warnUnavailableOnce(err)
		return err
	}
	return nil
}
