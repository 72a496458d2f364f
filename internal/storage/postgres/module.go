package postgres

import (
	"context"
	"fmt"
	"log/slog"

	"go.uber.org/fx"

	"github.com/polkiloo/reviewmart/internal/config"
	"github.com/polkiloo/reviewmart/internal/domain/repository"
)

// Module opens the PostgreSQL pool and hands out every repository through the
// storage's repository.Factory.
var Module = fx.Options(
	fx.Provide(
		newStorage,
		func(s *Storage) repository.Factory { return s },
	),
	fx.Provide(
		func(f repository.Factory) repository.ApplicationRepository { return f.Applications() },
		func(f repository.Factory) repository.ReviewRepository { return f.Reviews() },
		func(f repository.Factory) repository.LedgerRepository { return f.Ledger() },
		func(f repository.Factory) repository.BalanceRepository { return f.Balances() },
		func(f repository.Factory) repository.WithdrawalRepository { return f.Withdrawals() },
	),
	fx.Invoke(manageStorage),
)

type storageParams struct {
	fx.In

	Ctx    context.Context
	Config *config.Config
	Logger *slog.Logger
}

func newStorage(p storageParams) (*Storage, error) {
	return New(p.Ctx, p.Config.DatabaseURI, p.Logger)
}

// manageStorage refuses to start without a reachable database and closes the
// pool last on stop.
func manageStorage(lc fx.Lifecycle, storage *Storage) {
	lc.Append(fx.Hook{
		OnStart: func(ctx context.Context) error {
			if err := storage.HealthCheck(ctx); err != nil {
				return fmt.Errorf("postgres unreachable: %w", err)
			}
			return nil
		},
		OnStop: func(context.Context) error {
			storage.Close()
			storage.Logger().Info("postgres pool closed")
			return nil
		},
	})
}
