// Package idempotency guards against double-submission of the same
// registration payload within a short window. The guard is advisory: the
// saga's duplicate resolution remains the source of truth for identity.
package idempotency

import (
	"context"
	"time"

	"github.com/redis/go-redis/v9"
)

const submissionKeyPrefix = "intake:submission:"

// RedisStore is the production implementation for deployments with more than
// one instance; SET NX gives an atomic first-writer-wins reservation.
type RedisStore struct {
	client *redis.Client
}

func NewRedis(client *redis.Client) *RedisStore {
	return &RedisStore{client: client}
}

// Reserve claims the submission key for ttl. It returns false when another
// submission already holds the key.
func (s *RedisStore) Reserve(ctx context.Context, key string, ttl time.Duration) (bool, error) {
	return s.client.SetNX(ctx, submissionKeyPrefix+key, "1", ttl).Result()
}

// Release drops a reservation so a failed registration can be resubmitted
// immediately.
func (s *RedisStore) Release(ctx context.Context, key string) error {
	return s.client.Del(ctx, submissionKeyPrefix+key).Err()
}
