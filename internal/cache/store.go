package cache

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"time"

	"github.com/redis/go-redis/v9"
)

// Store is the single cache surface. Entries are disposable: everything
// cached here is reconstructible from the stores of record, so callers
// treat a miss or a failure as "go to the source of truth".
type Store interface {
	// Get unmarshals the cached value into dest. Returns false on miss.
	Get(ctx context.Context, key string, dest interface{}) (bool, error)

	// Set stores the value with a TTL.
	Set(ctx context.Context, key string, value interface{}, ttl time.Duration) error

	// Invalidate removes the given keys.
	Invalidate(ctx context.Context, keys ...string) error
}

// RedisStore implements Store with JSON values in Redis.
type RedisStore struct {
	client *redis.Client
}

// NewStore creates a Store backed by Redis.
func NewStore(client *redis.Client) Store {
	return &RedisStore{client: client}
}

func (s *RedisStore) Get(ctx context.Context, key string, dest interface{}) (bool, error) {
	data, err := s.client.Get(ctx, key).Bytes()
	if err == redis.Nil {
		return false, nil
	}
	if err != nil {
		log.Printf("[Cache] Get FAILED: key=%s err=%v", key, err)
		return false, fmt.Errorf("cache get: %w", err)
	}

	if err := json.Unmarshal(data, dest); err != nil {
		// A corrupt entry is as good as a miss; drop it.
		log.Printf("[Cache] Get unmarshal error: key=%s err=%v", key, err)
		s.client.Del(ctx, key)
		return false, nil
	}
	return true, nil
}

func (s *RedisStore) Set(ctx context.Context, key string, value interface{}, ttl time.Duration) error {
	data, err := json.Marshal(value)
	if err != nil {
		return fmt.Errorf("cache marshal: %w", err)
	}

	if err := s.client.Set(ctx, key, data, ttl).Err(); err != nil {
		log.Printf("[Cache] Set FAILED: key=%s err=%v", key, err)
		return fmt.Errorf("cache set: %w", err)
	}
	return nil
}

func (s *RedisStore) Invalidate(ctx context.Context, keys ...string) error {
	if len(keys) == 0 {
		return nil
	}

	if err := s.client.Del(ctx, keys...).Err(); err != nil {
		log.Printf("[Cache] Invalidate FAILED: keys=%v err=%v", keys, err)
		return fmt.Errorf("cache invalidate: %w", err)
	}
	return nil
}
