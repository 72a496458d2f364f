package app

import (
	"context"
	"log/slog"

	"github.com/polkiloo/reviewmart/internal/domain/model"
	"github.com/polkiloo/reviewmart/internal/pkg/lock"
	"github.com/polkiloo/reviewmart/internal/usecase"
)

// EngineFacade is the single entry point of HTTP handlers and the sweep worker.
// Writes run under per-entity locks: the user key first, then the entity key.
type EngineFacade struct {
	applications *usecase.ApplicationUseCase
	coordinator  *usecase.TransitionCoordinator
	processor    *usecase.WithdrawalProcessor
	ledger       *usecase.LedgerStore
	sweep        *usecase.ReconciliationSweep
	locker       lock.Locker
	logger       *slog.Logger
}

func NewEngineFacade(
	applications *usecase.ApplicationUseCase,
	coordinator *usecase.TransitionCoordinator,
	processor *usecase.WithdrawalProcessor,
	ledger *usecase.LedgerStore,
	sweep *usecase.ReconciliationSweep,
	locker lock.Locker,
	logger *slog.Logger,
) *EngineFacade {
	return &EngineFacade{
		applications: applications,
		coordinator:  coordinator,
		processor:    processor,
		ledger:       ledger,
		sweep:        sweep,
		locker:       locker,
		logger:       logger,
	}
}

func (f *EngineFacade) CreateApplication(ctx context.Context, userID, campaignID int64) (*model.Application, error) {
	return f.applications.Create(ctx, userID, campaignID)
}

func (f *EngineFacade) Application(ctx context.Context, id int64) (*model.Application, error) {
	return f.applications.Get(ctx, id)
}

func (f *EngineFacade) Applications(ctx context.Context, userID int64) ([]model.Application, error) {
	return f.applications.ListByUser(ctx, userID)
}

func (f *EngineFacade) Advance(ctx context.Context, id int64, target model.ApplicationStatus, tc model.TransitionContext) (*model.Result, error) {
	app, err := f.applications.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	var res *model.Result
	err = f.withLocks(ctx, []string{lock.UserKey(app.UserID), lock.ApplicationKey(id)}, func(ctx context.Context) error {
		res, err = f.coordinator.Advance(ctx, id, target, tc)
		return err
	})
	return res, err
}

func (f *EngineFacade) ArchiveApplication(ctx context.Context, id int64) error {
	return f.locker.WithLock(ctx, lock.ApplicationKey(id), func(ctx context.Context) error {
		return f.applications.Archive(ctx, id)
	})
}

func (f *EngineFacade) Balance(ctx context.Context, userID int64) (model.Balance, error) {
	return f.ledger.BalanceOf(ctx, userID)
}

func (f *EngineFacade) History(ctx context.Context, userID int64, limit int) ([]model.LedgerEntry, error) {
	return f.ledger.History(ctx, userID, limit)
}

// ReverseEntry appends the reversal of a settled entry. It is the only way to
// correct the ledger.
func (f *EngineFacade) ReverseEntry(ctx context.Context, entryID int64, reason string) (*model.LedgerEntry, bool, error) {
	entry, err := f.ledger.Entry(ctx, entryID)
	if err != nil {
		return nil, false, err
	}
	var res *usecase.AppendResult
	err = f.locker.WithLock(ctx, lock.UserKey(entry.UserID), func(ctx context.Context) error {
		res, err = f.ledger.Reverse(ctx, entryID, reason)
		return err
	})
	if err != nil {
		return nil, false, err
	}
	f.logger.Info("ledger entry reversed",
		slog.Int64("entry_id", entryID),
		slog.Int64("reversal_id", res.Entry.ID),
		slog.Bool("created", res.Created),
	)
	return res.Entry, res.Created, nil
}

func (f *EngineFacade) RequestWithdrawal(ctx context.Context, userID, points int64, destination string) (*model.Result, error) {
	var (
		res *model.Result
		err error
	)
	err = f.locker.WithLock(ctx, lock.UserKey(userID), func(ctx context.Context) error {
		res, err = f.processor.Request(ctx, userID, points, destination)
		return err
	})
	return res, err
}

func (f *EngineFacade) Withdrawal(ctx context.Context, id int64) (*model.WithdrawalRequest, error) {
	return f.processor.Get(ctx, id)
}

func (f *EngineFacade) Withdrawals(ctx context.Context, userID int64) ([]model.WithdrawalRequest, error) {
	return f.processor.ListByUser(ctx, userID)
}

func (f *EngineFacade) ApproveWithdrawal(ctx context.Context, id int64, note string) (*model.Result, error) {
	return f.withWithdrawal(ctx, id, func(ctx context.Context) (*model.Result, error) {
		return f.processor.Approve(ctx, id, note)
	})
}

func (f *EngineFacade) RejectWithdrawal(ctx context.Context, id int64, note string) (*model.Result, error) {
	return f.withWithdrawal(ctx, id, func(ctx context.Context) (*model.Result, error) {
		return f.processor.Reject(ctx, id, note)
	})
}

func (f *EngineFacade) CompleteWithdrawal(ctx context.Context, id int64) (*model.Result, error) {
	return f.withWithdrawal(ctx, id, func(ctx context.Context) (*model.Result, error) {
		return f.processor.Complete(ctx, id)
	})
}

func (f *EngineFacade) ScanDiscrepancies(ctx context.Context) ([]model.Discrepancy, error) {
	return f.sweep.Scan(ctx)
}

// RepairDiscrepancy repairs d while holding the locks of the entities it names.
func (f *EngineFacade) RepairDiscrepancy(ctx context.Context, d model.Discrepancy) (*model.Result, error) {
	var keys []string
	if d.UserID > 0 {
		keys = append(keys, lock.UserKey(d.UserID))
	}
	if d.ApplicationID > 0 {
		keys = append(keys, lock.ApplicationKey(d.ApplicationID))
	}
	if d.WithdrawalID > 0 {
		keys = append(keys, lock.WithdrawalKey(d.WithdrawalID))
	}
	var (
		res *model.Result
		err error
	)
	err = f.withLocks(ctx, keys, func(ctx context.Context) error {
		res, err = f.sweep.Repair(ctx, d)
		return err
	})
	return res, err
}

// Reconcile scans once and repairs every discrepancy found, in order.
func (f *EngineFacade) Reconcile(ctx context.Context) (*model.SweepReport, error) {
	found, err := f.ScanDiscrepancies(ctx)
	if err != nil {
		return nil, err
	}
	report := &model.SweepReport{Found: found}
	for _, d := range found {
		res, err := f.RepairDiscrepancy(ctx, d)
		switch {
		case err != nil || res.Retryable():
			report.Failed++
		case res.Outcome == model.OutcomeNoop:
			report.Noop++
		default:
			report.Repaired++
		}
	}
	f.logger.Info("reconciliation pass finished",
		slog.Int("found", len(found)),
		slog.Int("repaired", report.Repaired),
		slog.Int("failed", report.Failed),
	)
	return report, nil
}

func (f *EngineFacade) withWithdrawal(ctx context.Context, id int64, fn func(context.Context) (*model.Result, error)) (*model.Result, error) {
	req, err := f.processor.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	var res *model.Result
	err = f.withLocks(ctx, []string{lock.UserKey(req.UserID), lock.WithdrawalKey(id)}, func(ctx context.Context) error {
		res, err = fn(ctx)
		return err
	})
	return res, err
}

func (f *EngineFacade) withLocks(ctx context.Context, keys []string, fn func(context.Context) error) error {
	if len(keys) == 0 {
		return fn(ctx)
	}
	return f.locker.WithLock(ctx, keys[0], func(ctx context.Context) error {
		return f.withLocks(ctx, keys[1:], fn)
	})
}
