package ratelimit

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"

	"github.com/redis/go-redis/v9"
)

const redisKeyPrefix = "ratelimit:contact:"

// reserveScript takes one unit unless the window is full and starts the
// TTL on first use. Returns 1 when a unit was taken.
var reserveScript = redis.NewScript(`
	local count = tonumber(redis.call('GET', KEYS[1]) or '0')
	if count >= tonumber(ARGV[2]) then
		return 0
	end
	count = redis.call('INCR', KEYS[1])
	if count == 1 then
		redis.call('PEXPIRE', KEYS[1], ARGV[1])
	end
	return 1
`)

// releaseScript gives one unit back without creating or reviving a key.
var releaseScript = redis.NewScript(`
	local count = tonumber(redis.call('GET', KEYS[1]) or '0')
	if count > 0 then
		redis.call('DECR', KEYS[1])
	end
	return 0
`)

// RedisStore keeps counters in Redis so every instance shares one limit.
type RedisStore struct {
	client *redis.Client
	cfg    Config
}

// NewRedisStore creates a RedisStore.
func NewRedisStore(client *redis.Client, cfg Config) *RedisStore {
	return &RedisStore{client: client, cfg: cfg.withDefaults()}
}

// Reserve implements Store.
func (s *RedisStore) Reserve(ctx context.Context, key string) (bool, error) {
	taken, err := reserveScript.Run(ctx, s.client, []string{redisKey(key)},
		s.cfg.Window.Milliseconds(), s.cfg.Limit).Int()
	if err != nil {
		return false, fmt.Errorf("reserve: %w", err)
	}
	return taken == 1, nil
}

// Release implements Store.
func (s *RedisStore) Release(ctx context.Context, key string) error {
	if err := releaseScript.Run(ctx, s.client, []string{redisKey(key)}).Err(); err != nil {
		return fmt.Errorf("release: %w", err)
	}
	return nil
}

// redisKey hashes the caller key so raw IPs are not stored.
func redisKey(key string) string {
	sum := sha256.Sum256([]byte(key))
	return redisKeyPrefix + hex.EncodeToString(sum[:8])
}
