package test

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"github.com/polkiloo/reviewmart/internal/domain/model"
)

// ApplicationFacadeStub provides controllable behaviour for application endpoints.
type ApplicationFacadeStub struct {
	CreateFn  func(context.Context, int64, int64) (*model.Application, error)
	GetFn     func(context.Context, int64) (*model.Application, error)
	ListFn    func(context.Context, int64) ([]model.Application, error)
	AdvanceFn func(context.Context, int64, model.ApplicationStatus, model.TransitionContext) (*model.Result, error)
	ArchiveFn func(context.Context, int64) error
}

// CreateApplication delegates to provided function or returns a pending application.
func (s ApplicationFacadeStub) CreateApplication(ctx context.Context, userID, campaignID int64) (*model.Application, error) {
	if s.CreateFn != nil {
		return s.CreateFn(ctx, userID, campaignID)
	}
	return &model.Application{ID: 1, UserID: userID, CampaignID: campaignID, Status: model.ApplicationStatusPending}, nil
}

// Application returns a default application.
func (s ApplicationFacadeStub) Application(ctx context.Context, id int64) (*model.Application, error) {
	if s.GetFn != nil {
		return s.GetFn(ctx, id)
	}
	return &model.Application{ID: id, UserID: 1, CampaignID: 1, Status: model.ApplicationStatusPending}, nil
}

// Applications returns predefined applications for given user.
func (s ApplicationFacadeStub) Applications(ctx context.Context, userID int64) ([]model.Application, error) {
	if s.ListFn != nil {
		return s.ListFn(ctx, userID)
	}
	return []model.Application{{ID: 1, UserID: userID, Status: model.ApplicationStatusPending}}, nil
}

// Advance returns a success result at target by default.
func (s ApplicationFacadeStub) Advance(ctx context.Context, id int64, target model.ApplicationStatus, tc model.TransitionContext) (*model.Result, error) {
	if s.AdvanceFn != nil {
		return s.AdvanceFn(ctx, id, target, tc)
	}
	res := model.Success()
	res.Application = &model.Application{ID: id, Status: target}
	return res, nil
}

// ArchiveApplication executes configured archive handler.
func (s ApplicationFacadeStub) ArchiveApplication(ctx context.Context, id int64) error {
	if s.ArchiveFn != nil {
		return s.ArchiveFn(ctx, id)
	}
	return nil
}

// LedgerFacadeStub simulates balance and ledger reads.
type LedgerFacadeStub struct {
	BalanceFn func(context.Context, int64) (model.Balance, error)
	HistoryFn func(context.Context, int64, int) ([]model.LedgerEntry, error)
	ReverseFn func(context.Context, int64, string) (*model.LedgerEntry, bool, error)
}

// Balance returns stored balance or default data.
func (s LedgerFacadeStub) Balance(ctx context.Context, userID int64) (model.Balance, error) {
	if s.BalanceFn != nil {
		return s.BalanceFn(ctx, userID)
	}
	return model.NewBalance(userID, 10, 5, 0), nil
}

// History returns preconfigured ledger rows.
func (s LedgerFacadeStub) History(ctx context.Context, userID int64, limit int) ([]model.LedgerEntry, error) {
	if s.HistoryFn != nil {
		return s.HistoryFn(ctx, userID, limit)
	}
	appID := int64(1)
	return []model.LedgerEntry{{ID: 1, UserID: userID, ApplicationID: &appID, Kind: model.EntryKindEarned,
		Amount: 10, Status: model.EntryStatusSuccess, CreatedAt: time.Unix(0, 0)}}, nil
}

// ReverseEntry returns a reversal of entryID.
func (s LedgerFacadeStub) ReverseEntry(ctx context.Context, entryID int64, reason string) (*model.LedgerEntry, bool, error) {
	if s.ReverseFn != nil {
		return s.ReverseFn(ctx, entryID, reason)
	}
	return &model.LedgerEntry{ID: entryID + 1, Kind: model.EntryKindReversal, ReversalOf: &entryID, Description: reason}, true, nil
}

// WithdrawalFacadeStub simulates withdrawal operations.
type WithdrawalFacadeStub struct {
	RequestFn  func(context.Context, int64, int64, string) (*model.Result, error)
	GetFn      func(context.Context, int64) (*model.WithdrawalRequest, error)
	ListFn     func(context.Context, int64) ([]model.WithdrawalRequest, error)
	ApproveFn  func(context.Context, int64, string) (*model.Result, error)
	RejectFn   func(context.Context, int64, string) (*model.Result, error)
	CompleteFn func(context.Context, int64) (*model.Result, error)
}

func withdrawalResult(id int64, status model.WithdrawalStatus) *model.Result {
	res := model.Success()
	res.Withdrawal = &model.WithdrawalRequest{ID: id, UserID: 1, Points: 100, Tax: 3, NetPayout: 97, Status: status}
	return res
}

// RequestWithdrawal delegates to provided function or returns a pending request.
func (s WithdrawalFacadeStub) RequestWithdrawal(ctx context.Context, userID, points int64, destination string) (*model.Result, error) {
	if s.RequestFn != nil {
		return s.RequestFn(ctx, userID, points, destination)
	}
	return withdrawalResult(1, model.WithdrawalStatusPending), nil
}

// Withdrawal returns a default pending request.
func (s WithdrawalFacadeStub) Withdrawal(ctx context.Context, id int64) (*model.WithdrawalRequest, error) {
	if s.GetFn != nil {
		return s.GetFn(ctx, id)
	}
	return withdrawalResult(id, model.WithdrawalStatusPending).Withdrawal, nil
}

// Withdrawals returns preconfigured history.
func (s WithdrawalFacadeStub) Withdrawals(ctx context.Context, userID int64) ([]model.WithdrawalRequest, error) {
	if s.ListFn != nil {
		return s.ListFn(ctx, userID)
	}
	return []model.WithdrawalRequest{*withdrawalResult(1, model.WithdrawalStatusPending).Withdrawal}, nil
}

// ApproveWithdrawal returns an approved request by default.
func (s WithdrawalFacadeStub) ApproveWithdrawal(ctx context.Context, id int64, note string) (*model.Result, error) {
	if s.ApproveFn != nil {
		return s.ApproveFn(ctx, id, note)
	}
	return withdrawalResult(id, model.WithdrawalStatusApproved), nil
}

// RejectWithdrawal returns a rejected request by default.
func (s WithdrawalFacadeStub) RejectWithdrawal(ctx context.Context, id int64, note string) (*model.Result, error) {
	if s.RejectFn != nil {
		return s.RejectFn(ctx, id, note)
	}
	return withdrawalResult(id, model.WithdrawalStatusRejected), nil
}

// CompleteWithdrawal returns a completed request by default.
func (s WithdrawalFacadeStub) CompleteWithdrawal(ctx context.Context, id int64) (*model.Result, error) {
	if s.CompleteFn != nil {
		return s.CompleteFn(ctx, id)
	}
	return withdrawalResult(id, model.WithdrawalStatusCompleted), nil
}

// ReconciliationFacadeStub simulates the operator reconciliation endpoints.
type ReconciliationFacadeStub struct {
	ScanFn      func(context.Context) ([]model.Discrepancy, error)
	RepairFn    func(context.Context, model.Discrepancy) (*model.Result, error)
	ReconcileFn func(context.Context) (*model.SweepReport, error)
}

// ScanDiscrepancies returns no discrepancies by default.
func (s ReconciliationFacadeStub) ScanDiscrepancies(ctx context.Context) ([]model.Discrepancy, error) {
	if s.ScanFn != nil {
		return s.ScanFn(ctx)
	}
	return nil, nil
}

// RepairDiscrepancy reports success by default.
func (s ReconciliationFacadeStub) RepairDiscrepancy(ctx context.Context, d model.Discrepancy) (*model.Result, error) {
	if s.RepairFn != nil {
		return s.RepairFn(ctx, d)
	}
	return model.Success(), nil
}

// Reconcile returns an empty report by default.
func (s ReconciliationFacadeStub) Reconcile(ctx context.Context) (*model.SweepReport, error) {
	if s.ReconcileFn != nil {
		return s.ReconcileFn(ctx)
	}
	return &model.SweepReport{}, nil
}

// EngineFacadeStub aggregates every facade stub used by the router.
type EngineFacadeStub struct {
	ApplicationFacadeStub
	LedgerFacadeStub
	WithdrawalFacadeStub
	ReconciliationFacadeStub
}

// ReconcilerStub mimics worker interactions with the engine facade.
type ReconcilerStub struct {
	Scans    [][]model.Discrepancy
	ScanFn   func(context.Context) ([]model.Discrepancy, error)
	RepairFn func(context.Context, model.Discrepancy) (*model.Result, error)
	Repairs  []model.Discrepancy

	mu        sync.Mutex
	scanCount int32
}

// Lock exposes internal mutex for external synchronization.
func (s *ReconcilerStub) Lock() { s.mu.Lock() }

// Unlock releases previously acquired lock.
func (s *ReconcilerStub) Unlock() { s.mu.Unlock() }

// ScanDiscrepancies returns batches from configured queue.
func (s *ReconcilerStub) ScanDiscrepancies(ctx context.Context) ([]model.Discrepancy, error) {
	if s.ScanFn != nil {
		return s.ScanFn(ctx)
	}
	call := atomic.AddInt32(&s.scanCount, 1)
	if int(call) <= len(s.Scans) {
		return s.Scans[call-1], nil
	}
	return nil, nil
}

// RepairDiscrepancy records repair requests.
func (s *ReconcilerStub) RepairDiscrepancy(ctx context.Context, d model.Discrepancy) (*model.Result, error) {
	s.mu.Lock()
	s.Repairs = append(s.Repairs, d)
	s.mu.Unlock()
	if s.RepairFn != nil {
		return s.RepairFn(ctx, d)
	}
	return model.Success(), nil
}

// RepairCount reports how many repairs were requested.
func (s *ReconcilerStub) RepairCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.Repairs)
}

// HealthCheckerStub answers health checks with Err and counts them.
type HealthCheckerStub struct {
	Err   error
	Calls int
}

// HealthCheck returns the configured error.
func (s *HealthCheckerStub) HealthCheck(context.Context) error {
	s.Calls++
	return s.Err
}
