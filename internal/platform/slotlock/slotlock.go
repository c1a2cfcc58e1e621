// Package slotlock serializes bookings for the same doctor slot across
// server replicas using Redis.
package slotlock

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

const (
	DefaultTTL = 5 * time.Second
	keyPrefix  = "slotlock:"
)

// ErrLockLost is returned by unlock when the lock expired or was taken over.
var ErrLockLost = errors.New("slot lock lost")

// releaseScript deletes the key only when it still holds our token.
var releaseScript = redis.NewScript(`
if redis.call("GET", KEYS[1]) == ARGV[1] then
	return redis.call("DEL", KEYS[1])
end
return 0
`)

// RedisLocker takes short-lived SET NX PX locks.
type RedisLocker struct {
	client redis.UniversalClient
	ttl    time.Duration
}

func NewRedisLocker(client redis.UniversalClient, ttl time.Duration) *RedisLocker {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	return &RedisLocker{client: client, ttl: ttl}
}

// Lock tries once to take the lock for key. acquired is false when another
// holder owns it; err is set only when Redis itself failed.
func (l *RedisLocker) Lock(ctx context.Context, key string) (func(context.Context) error, bool, error) {
	token := uuid.NewString()
	ok, err := l.client.SetNX(ctx, keyPrefix+key, token, l.ttl).Result()
	if err != nil {
		return nil, false, fmt.Errorf("acquire slot lock %s: %w", key, err)
	}
	if !ok {
		return nil, false, nil
	}

	unlock := func(ctx context.Context) error {
		n, err := releaseScript.Run(ctx, l.client, []string{keyPrefix + key}, token).Int64()
		if err != nil {
			return fmt.Errorf("release slot lock %s: %w", key, err)
		}
		if n == 0 {
			return ErrLockLost
		}
		return nil
	}
	return unlock, true, nil
}
