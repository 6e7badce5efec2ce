package ratelimit

import (
	"context"
	"errors"
	"time"

	"github.com/redis/go-redis/v9"
)

const DefaultRedisPrefix = "streamguard:ratelimit:"

// attemptScript reads, compares and increments in one round trip so two
// concurrent requests cannot both take the last slot.
var attemptScript = redis.NewScript(`
local current = tonumber(redis.call('GET', KEYS[1]) or '0')
if current >= tonumber(ARGV[1]) then
	return 0
end
current = redis.call('INCR', KEYS[1])
if current == 1 then
	redis.call('PEXPIRE', KEYS[1], ARGV[2])
end
return 1
`)

// RedisStore shares windows across instances through Redis.
type RedisStore struct {
	client redis.UniversalClient
	prefix string
}

func NewRedisStore(client redis.UniversalClient, prefix string) *RedisStore {
	if prefix == "" {
		prefix = DefaultRedisPrefix
	}
	return &RedisStore{client: client, prefix: prefix}
}

func (s *RedisStore) Attempt(ctx context.Context, key string, maxAttempts int, decay time.Duration) (bool, error) {
	res, err := attemptScript.Run(ctx, s.client, []string{s.prefix + key}, maxAttempts, decay.Milliseconds()).Int()
	if err != nil {
		return false, err
	}
	return res == 1, nil
}

func (s *RedisStore) Attempts(ctx context.Context, key string) (int, error) {
	n, err := s.client.Get(ctx, s.prefix+key).Int()
	if errors.Is(err, redis.Nil) {
		return 0, nil
	}
	return n, err
}

func (s *RedisStore) AvailableIn(ctx context.Context, key string) (time.Duration, error) {
	d, err := s.client.PTTL(ctx, s.prefix+key).Result()
	if err != nil {
		return 0, err
	}
	// -1 and -2 come back for keys without expiry or missing keys
	if d < 0 {
		return 0, nil
	}
	return d, nil
}

func (s *RedisStore) Clear(ctx context.Context, key string) error {
	return s.client.Del(ctx, s.prefix+key).Err()
}
