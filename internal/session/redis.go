package session

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/timmy/crafto/internal/domain"
	"github.com/timmy/crafto/internal/logger"
)

const (
	DefaultKeyPrefix = "crafto:session:"

	fieldToken    = "token"
	fieldUsername = "username"
)

// RedisStore keeps each credential in a hash named prefix+key.
type RedisStore struct {
	client *redis.Client
	prefix string
	ttl    time.Duration
}

// NewRedisStore creates a store on client. A zero ttl keeps credentials until cleared.
func NewRedisStore(client *redis.Client, prefix string, ttl time.Duration) *RedisStore {
	if prefix == "" {
		prefix = DefaultKeyPrefix
	}
	return &RedisStore{client: client, prefix: prefix, ttl: ttl}
}

func (r *RedisStore) redisKey(key string) string {
	return r.prefix + key
}

func (r *RedisStore) Save(ctx context.Context, key string, cred domain.Credential) error {
	rk := r.redisKey(key)
	_, err := r.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.Del(ctx, rk)
		pipe.HSet(ctx, rk, fieldToken, cred.Token, fieldUsername, cred.Username)
		if r.ttl > 0 {
			pipe.Expire(ctx, rk, r.ttl)
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("failed to save credential: %w", err)
	}
	return nil
}

func (r *RedisStore) Read(ctx context.Context, key string) (domain.Credential, bool) {
	vals, err := r.client.HGetAll(ctx, r.redisKey(key)).Result()
	if err != nil {
		if !errors.Is(err, redis.Nil) {
			logger.CtxError(ctx, "Failed to read credential from redis: %v", err)
		}
		return domain.Credential{}, false
	}
	token := vals[fieldToken]
	if token == "" {
		return domain.Credential{}, false
	}
	return domain.Credential{Token: token, Username: vals[fieldUsername]}, true
}

func (r *RedisStore) Clear(ctx context.Context, key string) error {
	if err := r.client.Del(ctx, r.redisKey(key)).Err(); err != nil {
		return fmt.Errorf("failed to clear credential: %w", err)
	}
	return nil
}
