package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	errorskg "github.com/sweetpotato0/ragdeck/errors"
	"github.com/sweetpotato0/ragdeck/history"
)

// RedisStore implements history.Store using Redis. Records are JSON values
// under prefix+"rec:"+id; prefix+"index" lists IDs newest first.
type RedisStore struct {
	client *redis.Client
	prefix string
	ttl    time.Duration
	max    int
}

// RedisConfig holds Redis configuration
type RedisConfig struct {
	Addr       string        // Redis server address (e.g., "localhost:6379")
	Password   string        // Redis password (if any)
	DB         int           // Redis database number
	Prefix     string        // Key prefix for namespacing
	TTL        time.Duration // Time-to-live for records (0 means no expiration)
	MaxRecords int           // Index length cap (0 means unbounded)
}

// NewRedisStore creates a new Redis-based history store
func NewRedisStore(config *RedisConfig) *RedisStore {
	if config == nil {
		config = RedisConfigFromEnv()
	}

	client := redis.NewClient(&redis.Options{
		Addr:     config.Addr,
		Password: config.Password,
		DB:       config.DB,
	})

	return &RedisStore{
		client: client,
		prefix: config.Prefix,
		ttl:    config.TTL,
		max:    config.MaxRecords,
	}
}

func (s *RedisStore) indexKey() string           { return s.prefix + "index" }
func (s *RedisStore) recordKey(id string) string { return s.prefix + "rec:" + id }

// Add stores a record and pushes its ID onto the index
func (s *RedisStore) Add(ctx context.Context, r *history.Record) error {
	if r == nil {
		return fmt.Errorf("record cannot be nil")
	}
	r.Prepare()

	data, err := json.Marshal(r)
	if err != nil {
		return fmt.Errorf("failed to marshal record: %w", err)
	}

	pipe := s.client.TxPipeline()
	pipe.Set(ctx, s.recordKey(r.ID), data, s.ttl)
	pipe.LRem(ctx, s.indexKey(), 0, r.ID)
	pipe.LPush(ctx, s.indexKey(), r.ID)
	if s.max > 0 {
		pipe.LTrim(ctx, s.indexKey(), 0, int64(s.max-1))
	}
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("failed to store record: %w", err)
	}
	return nil
}

// Get returns one record
func (s *RedisStore) Get(ctx context.Context, id string) (*history.Record, error) {
	data, err := s.client.Get(ctx, s.recordKey(id)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, fmt.Errorf("record %s: %w", id, errorskg.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load record: %w", err)
	}
	var r history.Record
	if err := json.Unmarshal(data, &r); err != nil {
		return nil, fmt.Errorf("failed to unmarshal record: %w", err)
	}
	return &r, nil
}

// Search walks the index newest first; expired records are skipped
func (s *RedisStore) Search(ctx context.Context, query string, limit int) ([]*history.Record, error) {
	ids, err := s.client.LRange(ctx, s.indexKey(), 0, -1).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to read index: %w", err)
	}

	out := make([]*history.Record, 0)
	for _, id := range ids {
		if limit > 0 && len(out) >= limit {
			break
		}
		r, err := s.Get(ctx, id)
		if errors.Is(err, errorskg.ErrNotFound) {
			continue
		}
		if err != nil {
			return nil, err
		}
		if r.Matches(query) {
			out = append(out, r)
		}
	}
	return out, nil
}

// Recent returns the newest records
func (s *RedisStore) Recent(ctx context.Context, limit int) ([]*history.Record, error) {
	return s.Search(ctx, "", limit)
}

// Clear removes every record and the index
func (s *RedisStore) Clear(ctx context.Context) error {
	ids, err := s.client.LRange(ctx, s.indexKey(), 0, -1).Result()
	if err != nil {
		return fmt.Errorf("failed to read index: %w", err)
	}
	keys := make([]string, 0, len(ids)+1)
	for _, id := range ids {
		keys = append(keys, s.recordKey(id))
	}
	keys = append(keys, s.indexKey())
	return s.client.Del(ctx, keys...).Err()
}

// Count returns the index length
func (s *RedisStore) Count(ctx context.Context) (int, error) {
	n, err := s.client.LLen(ctx, s.indexKey()).Result()
	return int(n), err
}

// Ping checks the connection
func (s *RedisStore) Ping(ctx context.Context) error {
	return s.client.Ping(ctx).Err()
}

// Close closes the Redis connection
func (s *RedisStore) Close() error {
	return s.client.Close()
}
