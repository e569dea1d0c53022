package store

import (
	"context"
	"errors"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/AlibekovAA/margarine/internal/common/constants"
	"github.com/AlibekovAA/margarine/internal/common/db"
)

const redisStoreName = "redis"

// RedisStore relies on native key expiry, so an expired token is simply gone.
type RedisStore struct {
	client redis.Cmdable
	prefix string
}

func NewRedisStore(client redis.Cmdable) *RedisStore {
	return &RedisStore{client: client, prefix: constants.TokenKeyPrefix}
}

func (s *RedisStore) key(token string) string {
	return s.prefix + token
}

func (s *RedisStore) Set(ctx context.Context, token, username string, ttl time.Duration) error {
	start := time.Now()
	err := s.client.Set(ctx, s.key(token), username, ttl).Err()
	return db.ObserveOperation(redisStoreName, "set token", start, err)
}

func (s *RedisStore) Get(ctx context.Context, token string) (string, error) {
	start := time.Now()
	username, err := s.client.Get(ctx, s.key(token)).Result()
	if errors.Is(err, redis.Nil) {
		err = ErrTokenNotFound
	}
	if err = db.ObserveOperation(redisStoreName, "get token", start, err, ErrTokenNotFound); err != nil {
		return "", err
	}
	return username, nil
}

func (s *RedisStore) Delete(ctx context.Context, token string) error {
	start := time.Now()
	err := s.client.Del(ctx, s.key(token)).Err()
	return db.ObserveOperation(redisStoreName, "delete token", start, err)
}

func (s *RedisStore) Ping(ctx context.Context) error {
	return s.client.Ping(ctx).Err()
}
