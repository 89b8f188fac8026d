package redislock

import (
	"context"
	"log/slog"
	"time"

	"github.com/go-redis/redis/v8"
	"github.com/google/uuid"
)

type LockerInterface interface {
	// TryLock returns ok=false when someone else holds key. release is nil unless ok.
	TryLock(ctx context.Context, key string, ttl time.Duration) (release func(), ok bool, err error)
}

var _ LockerInterface = (*Locker)(nil)

// compare-and-delete so a lock that expired and was re-taken is not released by the old holder
var unlockScript = redis.NewScript(`
if redis.call("get", KEYS[1]) == ARGV[1] then
	return redis.call("del", KEYS[1])
end
return 0`)

type Locker struct {
	rdb    *redis.Client
	prefix string
}

func NewLocker(rdb *redis.Client, prefix string) *Locker {
	return &Locker{rdb: rdb, prefix: prefix}
}

func (l *Locker) TryLock(ctx context.Context, key string, ttl time.Duration) (func(), bool, error) {
	full := l.prefix + key
	token := uuid.NewString()

	ok, err := l.rdb.SetNX(ctx, full, token, ttl).Result()
	if err != nil {
		return nil, false, err
	}
	if !ok {
		return nil, false, nil
	}

	release := func() {
		ctx, cancel := context.WithTimeout(context.Background(), 500*time.Millisecond)
		defer cancel()
		if err := unlockScript.Run(ctx, l.rdb, []string{full}, token).Err(); err != nil && err != redis.Nil {
			slog.Warn("failed to release lock", slog.String("key", full), slog.String("error", err.Error()))
		}
	}
	return release, true, nil
}
