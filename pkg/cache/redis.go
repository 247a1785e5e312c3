package cache

import (
	"context"
	"errors"
	"time"

	"github.com/kart-io/logger"
	goredis "github.com/redis/go-redis/v9"
)

// Redis is a byte-valued Cache backed by a shared Redis instance. Errors
// degrade to cache misses so an unavailable Redis never fails a request.
type Redis struct {
	client    *goredis.Client
	keyPrefix string
}

var _ Cache[string, []byte] = (*Redis)(nil)

// NewRedis creates a Redis cache. keyPrefix namespaces keys so multiple
// caches can share one database.
func NewRedis(client *goredis.Client, keyPrefix string) *Redis {
	return &Redis{client: client, keyPrefix: keyPrefix}
}

func (r *Redis) key(k string) string {
	return r.keyPrefix + k
}

// Get implements Cache.
func (r *Redis) Get(ctx context.Context, key string) ([]byte, bool) {
	data, err := r.client.Get(ctx, r.key(key)).Bytes()
	if err != nil {
		if !errors.Is(err, goredis.Nil) {
			logger.Warnw("redis get failed, treating as miss", "key", key, "error", err.Error())
		}
		return nil, false
	}
	return data, true
}

// Set implements Cache.
func (r *Redis) Set(ctx context.Context, key string, value []byte, ttl time.Duration) {
	if ttl < 0 {
		ttl = 0
	}
	if err := r.client.Set(ctx, r.key(key), value, ttl).Err(); err != nil {
		logger.Warnw("redis set failed", "key", key, "error", err.Error())
	}
}

// Delete implements Cache.
func (r *Redis) Delete(ctx context.Context, key string) {
	if err := r.client.Del(ctx, r.key(key)).Err(); err != nil {
		logger.Warnw("redis delete failed", "key", key, "error", err.Error())
	}
}

// Len returns the number of keys under the prefix. It is advisory only
// and scans at most one cursor page.
func (r *Redis) Len() int {
	keys, _, err := r.client.Scan(context.Background(), 0, r.keyPrefix+"*", 1000).Result()
	if err != nil {
		return 0
	}
	return len(keys)
}

// Clear removes all keys under the prefix.
func (r *Redis) Clear() {
	ctx := context.Background()
	var cursor uint64
	for {
		keys, next, err := r.client.Scan(ctx, cursor, r.keyPrefix+"*", 1000).Result()
		if err != nil {
			return
		}
		if len(keys) > 0 {
			_ = r.client.Del(ctx, keys...).Err()
		}
		if next == 0 {
			return
		}
		cursor = next
	}
}
