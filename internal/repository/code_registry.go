package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// CodeRegistry reserves ticket codes across service instances so two
// processes importing the same export cannot both create a code.
type CodeRegistry interface {
	// Reserve claims code. It reports false when another holder already has it.
	Reserve(ctx context.Context, code string) (bool, error)
	// Release frees a code whose ticket was never stored.
	Release(ctx context.Context, code string) error
}

// RedisCodeRegistry implements CodeRegistry with SETNX keys.
type RedisCodeRegistry struct {
	client redis.Cmdable
	prefix string
	ttl    time.Duration
}

// NewRedisCodeRegistry builds a registry. A zero ttl keeps keys forever.
func NewRedisCodeRegistry(client redis.Cmdable, prefix string, ttl time.Duration) *RedisCodeRegistry {
	if prefix == "" {
		prefix = "complaint-desk:ticket-code:"
	}
	return &RedisCodeRegistry{client: client, prefix: prefix, ttl: ttl}
}

func (r *RedisCodeRegistry) key(code string) string {
	return r.prefix + code
}

func (r *RedisCodeRegistry) Reserve(ctx context.Context, code string) (bool, error) {
	ok, err := r.client.SetNX(ctx, r.key(code), time.Now().UTC().Format(time.RFC3339), r.ttl).Result()
	if err != nil {
		return false, fmt.Errorf("reserve ticket code %s: %w", code, err)
	}
	return ok, nil
}

func (r *RedisCodeRegistry) Release(ctx context.Context, code string) error {
	if err := r.client.Del(ctx, r.key(code)).Err(); err != nil {
		return fmt.Errorf("release ticket code %s: %w", code, err)
	}
	return nil
}
