package counter

import (
	"context"

	"github.com/redis/go-redis/v9"
)

// Both scripts perform the read-check-mutate in one server-side step.
// The capacity limit travels as ARGV so the script body stays constant
// and Redis can reuse the cached compilation across events.
var (
	incrIfBelow = redis.NewScript(`
local current = redis.call('GET', KEYS[1])
if not current then
  current = '0'
end
if tonumber(current) >= tonumber(ARGV[1]) then
  return 0
end
redis.call('INCR', KEYS[1])
return 1
`)

	decrIfPositive = redis.NewScript(`
local current = redis.call('GET', KEYS[1])
if not current or tonumber(current) <= 0 then
  return 0
end
redis.call('DECR', KEYS[1])
return 1
`)
)

// RedisStore implements Store using Lua scripts for the conditional
// increment and decrement.
type RedisStore struct {
	client *redis.Client
}

// NewRedisStore returns a RedisStore bound to the given client.
func NewRedisStore(client *redis.Client) *RedisStore {
	return &RedisStore{client: client}
}

// IncrementIfBelow increments the counter only while it is below limit.
// It reports whether the increment happened.
func (s *RedisStore) IncrementIfBelow(ctx context.Context, key string, limit int64) (bool, error) {
	n, err := incrIfBelow.Run(ctx, s.client, []string{key}, limit).Int()
	if err != nil {
		return false, err
	}
	return n == 1, nil
}

// DecrementIfPositive decrements the counter only while it is above
// zero.  It reports whether the decrement happened.
func (s *RedisStore) DecrementIfPositive(ctx context.Context, key string) (bool, error) {
	n, err := decrIfPositive.Run(ctx, s.client, []string{key}).Int()
	if err != nil {
		return false, err
	}
	return n == 1, nil
}

// Get returns the current counter value, treating a missing key as 0.
func (s *RedisStore) Get(ctx context.Context, key string) (int64, error) {
	n, err := s.client.Get(ctx, key).Int64()
	if err == redis.Nil {
		return 0, nil
	}
	if err != nil {
		return 0, err
	}
	return n, nil
}

// Delete removes the counter key.
func (s *RedisStore) Delete(ctx context.Context, key string) error {
	return s.client.Del(ctx, key).Err()
}
