package storage

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// RedisKV stores profile keys in redis, shared by every process of the profile.
type RedisKV struct {
	client  *redis.Client
	profile string
	ttl     time.Duration
}

// NewRedisKV returns redis-backed storage. ttl <= 0 keeps keys forever.
func NewRedisKV(client *redis.Client, profile string, ttl time.Duration) *RedisKV {
	return &RedisKV{client: client, profile: profile, ttl: ttl}
}

func (s *RedisKV) key(name string) string {
	return fmt.Sprintf("student-portal:%s:%s", s.profile, name)
}

func (s *RedisKV) Get(ctx context.Context, key string) (string, bool, error) {
	val, err := s.client.Get(ctx, s.key(key)).Result()
	if errors.Is(err, redis.Nil) {
		return "", false, nil
	}
	if err != nil {
		return "", false, err
	}
	return val, true, nil
}

func (s *RedisKV) Set(ctx context.Context, key, value string) error {
	ttl := s.ttl
	if ttl < 0 {
		ttl = 0
	}
	return s.client.Set(ctx, s.key(key), value, ttl).Err()
}

func (s *RedisKV) Delete(ctx context.Context, keys ...string) error {
	if len(keys) == 0 {
		return nil
	}
	full := make([]string, 0, len(keys))
	for _, k := range keys {
		full = append(full, s.key(k))
	}
	err := s.client.Del(ctx, full...).Err()
	if errors.Is(err, redis.Nil) {
		return nil
	}
	return err
}
