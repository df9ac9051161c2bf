package redis

import (
	"context"
	"fmt"

	"github.com/redis/go-redis/v9"

	"aufy/internal/config"
)

// Client wraps the Redis client with application-specific configuration.
// A single shared client serves the cache, the event stream, and the
// worker consumers to reuse connection pooling.
type Client struct {
	*redis.Client
}

// NewClient creates a new Redis client from the application config.
func NewClient(cfg *config.Config) *Client {
	client := redis.NewClient(&redis.Options{
		Addr:     cfg.RedisAddr,
		Password: cfg.RedisPassword,
		DB:       cfg.RedisDB,
	})
	return &Client{Client: client}
}

// Ping verifies the connection to Redis.
// Call this on application startup to fail fast if Redis is unreachable.
func (c *Client) Ping(ctx context.Context) error {
	if err := c.Client.Ping(ctx).Err(); err != nil {
		return fmt.Errorf("redis ping: %w", err)
	}
	return nil
}

// Close closes the Redis connection.
func (c *Client) Close() error {
	return c.Client.Close()
}
