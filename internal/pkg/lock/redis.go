package lock

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/go-redsync/redsync/v4"
	redsyncredis "github.com/go-redsync/redsync/v4/redis"
	"github.com/go-redsync/redsync/v4/redis/goredis/v9"
	"github.com/redis/go-redis/v9"
)

// RedisLocker is a Redlock based Locker shared by every engine instance.
type RedisLocker struct {
	rs     *redsync.Redsync
	opts   Options
	logger *slog.Logger
}

// NewRedisLocker builds a locker over the given redsync pools.
func NewRedisLocker(logger *slog.Logger, opts Options, pools ...redsyncredis.Pool) *RedisLocker {
	return &RedisLocker{rs: redsync.New(pools...), opts: opts, logger: logger}
}

// NewRedisLockerFromClient builds a locker over a single go-redis client.
func NewRedisLockerFromClient(logger *slog.Logger, opts Options, client redis.UniversalClient) *RedisLocker {
	return NewRedisLocker(logger, opts, goredis.NewPool(client))
}

// WithLock runs fn while holding the distributed mutex named by key.
func (l *RedisLocker) WithLock(ctx context.Context, key string, fn func(context.Context) error) error {
	if err := validate(key, fn); err != nil {
		return err
	}

	mutex := l.rs.NewMutex(
		"lock:"+key,
		redsync.WithExpiry(l.opts.Expiry),
		redsync.WithTries(l.opts.Tries),
		redsync.WithRetryDelay(l.opts.RetryDelay),
		redsync.WithDriftFactor(l.opts.DriftFactor),
	)

	if err := mutex.LockContext(ctx); err != nil {
		return fmt.Errorf("acquire lock %s: %w", key, err)
	}

	defer func() {
		if ok, err := mutex.UnlockContext(context.WithoutCancel(ctx)); !ok || err != nil {
			l.logger.Warn("failed to release lock", slog.String("key", key), slog.Bool("unlock_ok", ok), slog.Any("error", err))
		}
	}()

	return fn(ctx)
}
