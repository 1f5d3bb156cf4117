package store

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

type RedisStore struct {
	rdb *redis.Client
	ttl time.Duration
}

func NewRedisStore(rdb *redis.Client, ttl time.Duration) *RedisStore {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	return &RedisStore{rdb: rdb, ttl: ttl}
}

func (s *RedisStore) Load(ctx context.Context, visitorID string) ([]byte, error) {
	data, err := s.rdb.Get(ctx, Key(visitorID)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("redis get %s: %w", Key(visitorID), err)
	}
	return data, nil
}

func (s *RedisStore) Save(ctx context.Context, visitorID string, data []byte) error {
	if err := s.rdb.Set(ctx, Key(visitorID), data, s.ttl).Err(); err != nil {
		return fmt.Errorf("redis set %s: %w", Key(visitorID), err)
	}
	return nil
}

func (s *RedisStore) Delete(ctx context.Context, visitorID string) error {
	if err := s.rdb.Del(ctx, Key(visitorID)).Err(); err != nil {
		return fmt.Errorf("redis del %s: %w", Key(visitorID), err)
	}
	return nil
}
