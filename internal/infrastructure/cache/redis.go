package cache

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/johnquangdev/meeting-intel/pkg/config"
)

// RedisStore is the shared score cache. Put-if-absent maps onto SETNX so
// concurrent writers for one key agree on a single value.
type RedisStore struct {
	client *redis.Client
}

// NewRedisStore connects to Redis and verifies the connection
func NewRedisStore(ctx context.Context, cfg *config.Config) (*RedisStore, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     cfg.GetRedisAddr(),
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
	})
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("failed to connect to redis: %w", err)
	}
	return &RedisStore{client: client}, nil
}

// NewRedisStoreFromClient wraps an existing client
func NewRedisStoreFromClient(client *redis.Client) *RedisStore {
	return &RedisStore{client: client}
}

// Get returns the payload stored for (meetingID, model)
func (r *RedisStore) Get(ctx context.Context, meetingID, model string) ([]byte, bool, error) {
	payload, err := r.client.Get(ctx, ScoreKey(meetingID, model)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("redis get: %w", err)
	}
	return payload, true, nil
}

// PutIfAbsent stores payload unless the key is set. A ttl of zero never expires.
func (r *RedisStore) PutIfAbsent(ctx context.Context, meetingID, model string, payload []byte, ttl time.Duration) (bool, error) {
	stored, err := r.client.SetNX(ctx, ScoreKey(meetingID, model), payload, ttl).Result()
	if err != nil {
		return false, fmt.Errorf("redis setnx: %w", err)
	}
	return stored, nil
}

// Ping checks the connection
func (r *RedisStore) Ping(ctx context.Context) error {
	return r.client.Ping(ctx).Err()
}

// Close closes the client
func (r *RedisStore) Close() error {
	return r.client.Close()
}
