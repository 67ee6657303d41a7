package lock

import (
	"context"
	"time"

	"github.com/redis/go-redis/v9"
)

// compareAndDelete removes the key only while it still holds the
// caller's token.  The GET and DEL must happen in one script; doing
// them as two round trips would let another holder slip in between.
var compareAndDelete = redis.NewScript(`
if redis.call('GET', KEYS[1]) == ARGV[1] then
  return redis.call('DEL', KEYS[1])
end
return 0
`)

// RedisStore implements Store on a Redis client.  SET NX PX and the
// compare-and-delete script are both single server-side operations.
type RedisStore struct {
	client *redis.Client
}

// NewRedisStore returns a RedisStore bound to the given client.
func NewRedisStore(client *redis.Client) *RedisStore {
	return &RedisStore{client: client}
}

// SetIfAbsent sets key to value with the given TTL only when the key
// does not exist.  It reports whether the set took effect.
func (s *RedisStore) SetIfAbsent(ctx context.Context, key, value string, ttl time.Duration) (bool, error) {
	return s.client.SetNX(ctx, key, value, ttl).Result()
}

// CompareAndDelete deletes key only if its current value equals value.
// It reports whether the delete took effect.
func (s *RedisStore) CompareAndDelete(ctx context.Context, key, value string) (bool, error) {
	n, err := compareAndDelete.Run(ctx, s.client, []string{key}, value).Int()
	if err != nil {
		return false, err
	}
	return n == 1, nil
}
