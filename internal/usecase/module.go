package usecase

import (
	"log/slog"

	"go.uber.org/fx"

	"github.com/polkiloo/reviewmart/internal/config"
	"github.com/polkiloo/reviewmart/internal/domain/repository"
)

// Module provides the engine use cases to the fx container.
var Module = fx.Provide(
	newStatusRegistry,
	NewLedgerStore,
	NewApplicationUseCase,
	NewTransitionCoordinator,
	newWithdrawalProcessor,
	newReconciliationSweep,
)

func newStatusRegistry(cfg *config.Config) *StatusRegistry {
	return NewStatusRegistry(cfg.MaxReviewResubmissions)
}

type processorParams struct {
	fx.In

	Config      *config.Config
	Withdrawals repository.WithdrawalRepository
	Ledger      *LedgerStore
	Events      EventPublisher
	Logger      *slog.Logger
}

func newWithdrawalProcessor(p processorParams) *WithdrawalProcessor {
	return NewWithdrawalProcessor(p.Withdrawals, p.Ledger, p.Events, p.Config.WithdrawalTaxRate, p.Logger)
}

type sweepParams struct {
	fx.In

	Config       *config.Config
	Applications repository.ApplicationRepository
	Reviews      repository.ReviewRepository
	Withdrawals  repository.WithdrawalRepository
	Ledger       *LedgerStore
	Coordinator  *TransitionCoordinator
	Processor    *WithdrawalProcessor
	Logger       *slog.Logger
}

func newReconciliationSweep(p sweepParams) *ReconciliationSweep {
	return NewReconciliationSweep(p.Applications, p.Reviews, p.Withdrawals, p.Ledger,
		p.Coordinator, p.Processor, p.Config.SweepBatchSize, p.Logger)
}
