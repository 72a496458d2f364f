package lock

import (
	"context"
	"log/slog"

	"github.com/redis/go-redis/v9"
	"go.uber.org/fx"

	"github.com/polkiloo/reviewmart/internal/config"
)

// Module provides the entity Locker: Redis backed when REDIS_ADDR is set,
// in-process otherwise.
var Module = fx.Provide(newLocker)

type lockerParams struct {
	fx.In

	Lifecycle fx.Lifecycle
	Config    *config.Config
	Logger    *slog.Logger
}

var newRedisClient = func(cfg *config.Config) redis.UniversalClient {
	return redis.NewClient(&redis.Options{Addr: cfg.RedisAddr, Password: cfg.RedisPassword})
}

func newLocker(p lockerParams) Locker {
	if p.Config.RedisAddr == "" {
		p.Logger.Info("using in-process entity locks")
		return NewLocalLocker()
	}

	client := newRedisClient(p.Config)
	p.Lifecycle.Append(fx.Hook{
		OnStop: func(context.Context) error {
			return client.Close()
		},
	})
	p.Logger.Info("using redis entity locks", slog.String("addr", p.Config.RedisAddr))
	return NewRedisLockerFromClient(p.Logger, DefaultOptions(p.Config.LockTTL), client)
}
