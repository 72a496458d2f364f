package handlers

import (
	"context"

	"github.com/polkiloo/reviewmart/internal/domain/model"
)

// ApplicationFacade covers application lifecycle endpoints.
type ApplicationFacade interface {
	CreateApplication(ctx context.Context, userID, campaignID int64) (*model.Application, error)
	Application(ctx context.Context, id int64) (*model.Application, error)
	Applications(ctx context.Context, userID int64) ([]model.Application, error)
	Advance(ctx context.Context, id int64, target model.ApplicationStatus, tc model.TransitionContext) (*model.Result, error)
	ArchiveApplication(ctx context.Context, id int64) error
}

// LedgerFacade provides balance and ledger operations.
type LedgerFacade interface {
	Balance(ctx context.Context, userID int64) (model.Balance, error)
	History(ctx context.Context, userID int64, limit int) ([]model.LedgerEntry, error)
	ReverseEntry(ctx context.Context, entryID int64, reason string) (*model.LedgerEntry, bool, error)
}

// WithdrawalFacade encapsulates withdrawal operations exposed via HTTP.
type WithdrawalFacade interface {
	RequestWithdrawal(ctx context.Context, userID, points int64, destination string) (*model.Result, error)
	Withdrawal(ctx context.Context, id int64) (*model.WithdrawalRequest, error)
	Withdrawals(ctx context.Context, userID int64) ([]model.WithdrawalRequest, error)
	ApproveWithdrawal(ctx context.Context, id int64, note string) (*model.Result, error)
	RejectWithdrawal(ctx context.Context, id int64, note string) (*model.Result, error)
	CompleteWithdrawal(ctx context.Context, id int64) (*model.Result, error)
}

// ReconciliationFacade exposes the sweep to operators.
type ReconciliationFacade interface {
	ScanDiscrepancies(ctx context.Context) ([]model.Discrepancy, error)
	RepairDiscrepancy(ctx context.Context, d model.Discrepancy) (*model.Result, error)
	Reconcile(ctx context.Context) (*model.SweepReport, error)
}

// EngineFacade aggregates the full set of operations used across handlers.
type EngineFacade interface {
	ApplicationFacade
	LedgerFacade
	WithdrawalFacade
	ReconciliationFacade
}
