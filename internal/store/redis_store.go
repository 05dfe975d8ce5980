package store

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/extra/redisotel/v9"
	"github.com/redis/go-redis/v9"
)

var compareAndDeleteScript = redis.NewScript(`
if redis.call("GET", KEYS[1]) == ARGV[1] then
    return redis.call("DEL", KEYS[1])
else
    return 0
end
`)

var compareAndExtendScript = redis.NewScript(`
if redis.call("GET", KEYS[1]) == ARGV[1] then
    return redis.call("PEXPIRE", KEYS[1], ARGV[2])
else
    return 0
end
`)

// RedisStore implements Store on top of a single Redis endpoint
type RedisStore struct {
	client *redis.Client
}

// NewRedisStore creates a new RedisStore using the provided client.
// The store takes ownership of the client and closes it on Close.
func NewRedisStore(client *redis.Client) *RedisStore {
	return &RedisStore{client: client}
}

// NewRedisStoreFromURL creates a RedisStore from a redis:// or rediss:// URL.
// With tracing set, commands are recorded as otel spans.
func NewRedisStoreFromURL(url string, tracing bool) (*RedisStore, error) {
	opts, err := redis.ParseURL(url)
	if err != nil {
		return nil, fmt.Errorf("failed to parse redis url: %w", err)
	}

	client := redis.NewClient(opts)
	if tracing {
		if err := redisotel.InstrumentTracing(client); err != nil {
			_ = client.Close()
			return nil, fmt.Errorf("failed to instrument redis client: %w", err)
		}
	}

	return NewRedisStore(client), nil
}

// Load registers the lock scripts on the server. Running a script loads it
// on demand, so calling Load is optional and safe to repeat.
func (s *RedisStore) Load(ctx context.Context) error {
	for _, script := range []*redis.Script{compareAndDeleteScript, compareAndExtendScript} {
		if err := script.Load(ctx, s.client).Err(); err != nil {
			return fmt.Errorf("failed to load script: %w", err)
		}
	}
	return nil
}

// Ping checks connectivity to the server
func (s *RedisStore) Ping(ctx context.Context) error {
	return s.client.Ping(ctx).Err()
}

func (s *RedisStore) SetIfAbsent(ctx context.Context, key, value string, ttl time.Duration) (bool, error) {
	return s.client.SetNX(ctx, key, value, ttl).Result()
}

func (s *RedisStore) CompareAndDelete(ctx context.Context, key, value string) (int64, error) {
	return compareAndDeleteScript.Run(ctx, s.client, []string{key}, value).Int64()
}

func (s *RedisStore) CompareAndExtend(ctx context.Context, key, value string, ttl time.Duration) (int64, error) {
	return compareAndExtendScript.Run(ctx, s.client, []string{key}, value, ttl.Milliseconds()).Int64()
}

func (s *RedisStore) RemainingTTL(ctx context.Context, key string) (time.Duration, error) {
	ttl, err := s.client.PTTL(ctx, key).Result()
	if err != nil {
		return 0, err
	}

	// PTTL replies -2 for a missing key and -1 for a key without expiry
	switch ttl {
	case -2:
		return Missing, nil
	case -1:
		return NoExpiry, nil
	}
	return ttl, nil
}

// Close closes the underlying Redis client
func (s *RedisStore) Close() error {
	return s.client.Close()
}
