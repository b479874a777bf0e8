package progress

import (
	"context"
	"errors"
	"fmt"

	"github.com/redis/go-redis/v9"
)

const redisKeyPrefix = "academy:progress:"

// RedisStore keeps each record as a single JSON string value, so a save is
// one SET and therefore atomic.
type RedisStore struct {
	client *redis.Client
}

// NewRedisStore wraps an existing client. The client belongs to the caller.
func NewRedisStore(client *redis.Client) (*RedisStore, error) {
	if client == nil {
		return nil, fmt.Errorf("redis client is nil")
	}
	return &RedisStore{client: client}, nil
}

func redisKey(profileID string) string {
	return redisKeyPrefix + profileID
}

func (s *RedisStore) Load(ctx context.Context, profileID string) (*Record, error) {
	data, err := s.client.Get(ctx, redisKey(profileID)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get progress: %w", err)
	}
	return decodeRecord(data)
}

func (s *RedisStore) Save(ctx context.Context, rec *Record) error {
	if rec == nil || rec.ProfileID == "" {
		return fmt.Errorf("profile_id is required")
	}
	data, err := encodeRecord(rec)
	if err != nil {
		return err
	}
	if err := s.client.Set(ctx, redisKey(rec.ProfileID), data, 0).Err(); err != nil {
		return fmt.Errorf("set progress: %w", err)
	}
	return nil
}

func (s *RedisStore) HealthCheck(ctx context.Context) error {
	return s.client.Ping(ctx).Err()
}

// Close is a no-op; the client belongs to the caller.
func (s *RedisStore) Close() error {
	return nil
}
