package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/sweetpotato0/ragdeck/auth"
	errorskg "github.com/sweetpotato0/ragdeck/errors"
	"github.com/sweetpotato0/ragdeck/pkg/env"
)

// RedisStore keeps the session under a single Redis key so several
// machines can share one login.
type RedisStore struct {
	client *redis.Client
	key    string
	ttl    time.Duration
}

// RedisConfig holds Redis configuration for sessions.
type RedisConfig struct {
	Addr     string
	Password string
	DB       int
	Key      string
	TTL      time.Duration
}

// RedisConfigFromEnv loads the Redis session configuration from environment variables.
func RedisConfigFromEnv() *RedisConfig {
	return &RedisConfig{
		Addr:     env.String("REDIS_ADDR", "localhost:6379"),
		Password: env.String("REDIS_PASSWORD", ""),
		DB:       env.Int("REDIS_DB", 0),
		Key:      env.String("REDIS_AUTH_KEY", "ragdeck:auth"),
		TTL:      env.Duration("REDIS_AUTH_TTL", 0),
	}
}

// NewRedisStore creates a Redis-backed session store.
func NewRedisStore(config *RedisConfig) *RedisStore {
	if config == nil {
		config = &RedisConfig{Addr: "localhost:6379", Key: "ragdeck:auth"}
	}
	if config.Key == "" {
		config.Key = "ragdeck:auth"
	}

	client := redis.NewClient(&redis.Options{
		Addr:     config.Addr,
		Password: config.Password,
		DB:       config.DB,
	})

	return &RedisStore{client: client, key: config.Key, ttl: config.TTL}
}

// Load reads the session.
func (s *RedisStore) Load(ctx context.Context) (auth.Persisted, error) {
	var p auth.Persisted
	raw, err := s.client.Get(ctx, s.key).Bytes()
	if errors.Is(err, redis.Nil) {
		return p, errorskg.ErrNotFound
	}
	if err != nil {
		return p, fmt.Errorf("failed to load session: %w", err)
	}
	if err := json.Unmarshal(raw, &p); err != nil {
		return p, fmt.Errorf("failed to unmarshal session: %w", err)
	}
	return p, nil
}

// Save writes the session.
func (s *RedisStore) Save(ctx context.Context, p auth.Persisted) error {
	raw, err := json.Marshal(p)
	if err != nil {
		return fmt.Errorf("failed to marshal session: %w", err)
	}
	if err := s.client.Set(ctx, s.key, raw, s.ttl).Err(); err != nil {
		return fmt.Errorf("failed to save session: %w", err)
	}
	return nil
}

// Clear deletes the session.
func (s *RedisStore) Clear(ctx context.Context) error {
	if err := s.client.Del(ctx, s.key).Err(); err != nil {
		return fmt.Errorf("failed to clear session: %w", err)
	}
	return nil
}

// Ping checks if Redis connection is alive.
func (s *RedisStore) Ping(ctx context.Context) error {
	return s.client.Ping(ctx).Err()
}

// Close closes the Redis connection.
func (s *RedisStore) Close() error {
	return s.client.Close()
}
