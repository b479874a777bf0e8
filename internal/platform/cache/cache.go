// Package cache opens the Redis client used when ACADEMY_STORE_DRIVER is
// "redis". The progress store keeps each profile's record as one JSON value
// under academy:progress:<profile_id> with no expiry, so the target Redis
// must persist data (AOF or RDB) for progress to survive a restart.
package cache

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// ClientName identifies academy connections in CLIENT LIST. A name set in
// the URL wins.
const ClientName = "pai-academy"

// Timeouts applied to every connection.
const (
	DialTimeout = 5 * time.Second
	IOTimeout   = 3 * time.Second
)

// Cache owns the Redis client behind the redis progress store.
type Cache struct {
	Client *redis.Client
}

// ParseURL validates ACADEMY_CACHE_URL (redis:// or rediss://, optional /db
// suffix) and applies the academy's timeouts and client name.
func ParseURL(url string) (*redis.Options, error) {
	if url == "" {
		return nil, fmt.Errorf("cache URL is empty")
	}
	opts, err := redis.ParseURL(url)
	if err != nil {
		return nil, fmt.Errorf("invalid cache URL: %w", err)
	}
	opts.DialTimeout = DialTimeout
	opts.ReadTimeout = IOTimeout
	opts.WriteTimeout = IOTimeout
	if opts.ClientName == "" {
		opts.ClientName = ClientName
	}
	return opts, nil
}

// New connects and pings the server, so an unreachable Redis fails startup
// instead of the first commit.
func New(ctx context.Context, url string) (*Cache, error) {
	opts, err := ParseURL(url)
	if err != nil {
		return nil, err
	}

	client := redis.NewClient(opts)

	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("pinging cache: %w", err)
	}

	return &Cache{Client: client}, nil
}

// Close closes the client. The redis progress store must not be used
// afterwards.
func (c *Cache) Close() error {
	return c.Client.Close()
}

// HealthCheck pings the server.
func (c *Cache) HealthCheck(ctx context.Context) error {
	return c.Client.Ping(ctx).Err()
}
