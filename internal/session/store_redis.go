package session

import (
	"context"
	"errors"
	"time"

	"github.com/redis/go-redis/v9"
)

// revokedKeyPrefix namespaces revoked session ids in Redis
const revokedKeyPrefix = "booklog:session:revoked:"

// RedisStore is a Redis-backed revocation list shared by every server instance
type RedisStore struct {
	client *redis.Client
}

// NewRedisStore creates a revocation list on top of client
func NewRedisStore(client *redis.Client) *RedisStore {
	return &RedisStore{client: client}
}

// Revoke implements RevocationStore using SET with expiry
func (s *RedisStore) Revoke(ctx context.Context, jti string, ttl time.Duration) error {
	if jti == "" {
		return nil
	}
	return s.client.Set(ctx, revokedKeyPrefix+jti, "1", ttl).Err()
}

// IsRevoked implements RevocationStore
func (s *RedisStore) IsRevoked(ctx context.Context, jti string) (bool, error) {
	if jti == "" {
		return false, nil
	}
	_, err := s.client.Get(ctx, revokedKeyPrefix+jti).Result()
	if errors.Is(err, redis.Nil) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return true, nil
}
