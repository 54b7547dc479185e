package embedcache

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// RedisCache stores embeddings in Redis with a TTL per entry. Entries
// are write-once per hash; concurrent writers racing on the same hash
// are harmless.
type RedisCache struct {
	client *redis.Client
	ttl    time.Duration
}

func NewRedisCache(addr, password string, db int, ttl time.Duration) *RedisCache {
	rdb := redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: password,
		DB:       db,
	})
	return &RedisCache{client: rdb, ttl: ttl}
}

func (c *RedisCache) key(hash string) string {
	return fmt.Sprintf("embedding:%s", hash)
}

func (c *RedisCache) Get(hash string) ([]float32, bool) {
	val, err := c.client.Get(context.Background(), c.key(hash)).Result()
	if err != nil {
		return nil, false
	}
	var vec []float32
	if err := json.Unmarshal([]byte(val), &vec); err != nil {
		return nil, false
	}
	return vec, true
}

func (c *RedisCache) Put(hash string, vec []float32) {
	data, err := json.Marshal(vec)
	if err != nil {
		return
	}
	_ = c.client.Set(context.Background(), c.key(hash), data, c.ttl).Err()
}

func (c *RedisCache) Len() int {
	n, err := c.client.Eval(context.Background(),
		`return #redis.call('keys', 'embedding:*')`, nil).Int()
	if err != nil {
		return 0
	}
	return n
}

// Flush is a no-op: Redis persists entries as they are written.
func (c *RedisCache) Flush() error { return nil }

func (c *RedisCache) Close() error { return c.client.Close() }
