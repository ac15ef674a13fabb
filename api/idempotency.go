package api

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// RedisDeduper records seen idempotency keys in Redis so retried mutations
// are rejected across all instances, not just the one that handled the
// original request.
type RedisDeduper struct {
	client *redis.Client
	ttl    time.Duration
}

// NewRedisDeduper creates a deduper with the given client and key TTL.
func NewRedisDeduper(client *redis.Client, ttl time.Duration) *RedisDeduper {
	return &RedisDeduper{client: client, ttl: ttl}
}

// Keys are scoped per subject: two users may reuse the same key value.
func (r *RedisDeduper) key(subjectID, key string) string {
	return fmt.Sprintf("idem:%s:%s", subjectID, key)
}

// Add records the key if it was not seen before. It returns true when the key
// was newly recorded.
func (r *RedisDeduper) Add(ctx context.Context, subjectID, key string) (bool, error) {
	return r.client.SetNX(ctx, r.key(subjectID, key), 1, r.ttl).Result()
}

// Remove forgets a previously recorded key so the caller may retry after a
// failed commit.
func (r *RedisDeduper) Remove(ctx context.Context, subjectID, key string) error {
	return r.client.Del(ctx, r.key(subjectID, key)).Err()
}
