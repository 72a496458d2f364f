package usecase

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	domainErrors "github.com/polkiloo/reviewmart/internal/domain/errors"
	"github.com/polkiloo/reviewmart/internal/domain/model"
	"github.com/polkiloo/reviewmart/internal/domain/repository"
)

const (
	defaultSweepBatch = 100
	reconcileReason   = "reconciliation"
)

var (
	reviewStages = []model.ApplicationStatus{
		model.ApplicationStatusReviewSubmitted,
		model.ApplicationStatusReviewRejected,
		model.ApplicationStatusReviewCompleted,
		model.ApplicationStatusRewardRequested,
		model.ApplicationStatusRewardCompleted,
	}
	withdrawalStatuses = []model.WithdrawalStatus{
		model.WithdrawalStatusPending,
		model.WithdrawalStatusApproved,
		model.WithdrawalStatusRejected,
		model.WithdrawalStatusCompleted,
	}
)

// ReconciliationSweep compares every mirror with the ledger and repairs the
// mirror side. The ledger is never changed to match a mirror, except for
// reinstating a missing withdrawal hold.
type ReconciliationSweep struct {
	applications repository.ApplicationRepository
	reviews      repository.ReviewRepository
	withdrawals  repository.WithdrawalRepository
	ledger       *LedgerStore
	coordinator  *TransitionCoordinator
	processor    *WithdrawalProcessor
	batch        int
	logger       *slog.Logger
}

// NewReconciliationSweep constructs ReconciliationSweep reading batch rows per page.
func NewReconciliationSweep(
	applications repository.ApplicationRepository,
	reviews repository.ReviewRepository,
	withdrawals repository.WithdrawalRepository,
	ledger *LedgerStore,
	coordinator *TransitionCoordinator,
	processor *WithdrawalProcessor,
	batch int,
	logger *slog.Logger,
) *ReconciliationSweep {
	if batch <= 0 {
		batch = defaultSweepBatch
	}
	return &ReconciliationSweep{
		applications: applications,
		reviews:      reviews,
		withdrawals:  withdrawals,
		ledger:       ledger,
		coordinator:  coordinator,
		processor:    processor,
		batch:        batch,
		logger:       logger,
	}
}

// Scan reports every discrepancy currently visible. It writes nothing.
func (s *ReconciliationSweep) Scan(ctx context.Context) ([]model.Discrepancy, error) {
	var found []model.Discrepancy

	apps, err := s.scanApplications(ctx)
	if err != nil {
		return nil, err
	}
	found = append(found, apps...)

	withdrawals, err := s.scanWithdrawals(ctx)
	if err != nil {
		return nil, err
	}
	found = append(found, withdrawals...)

	balances, err := s.scanBalances(ctx)
	if err != nil {
		return nil, err
	}
	found = append(found, balances...)

	if len(found) > 0 {
		s.logger.Info("reconciliation scan found discrepancies", slog.Int("count", len(found)))
	}
	return found, nil
}

func (s *ReconciliationSweep) scanApplications(ctx context.Context) ([]model.Discrepancy, error) {
	var found []model.Discrepancy
	var after int64
	for {
		page, err := s.applications.ListByStatuses(ctx, reviewStages, after, s.batch)
		if err != nil {
			return nil, fmt.Errorf("list applications: %w", err)
		}
		for i := range page {
			d, err := s.checkApplication(ctx, &page[i])
			if err != nil {
				return nil, err
			}
			if d != nil {
				found = append(found, *d)
			}
		}
		if len(page) < s.batch {
			return found, nil
		}
		after = page[len(page)-1].ID
	}
}

func (s *ReconciliationSweep) checkApplication(ctx context.Context, app *model.Application) (*model.Discrepancy, error) {
	if app.Status == model.ApplicationStatusReviewSubmitted {
		entries, err := s.ledger.ForApplication(ctx, app.ID)
		if err != nil {
			return nil, fmt.Errorf("load application entries: %w", err)
		}
		if len(model.LiveEntries(entries, model.EntryKindEarned)) > 0 {
			return &model.Discrepancy{
				Kind:          model.DiscrepancyApplicationBehindLedger,
				UserID:        app.UserID,
				ApplicationID: app.ID,
				Expected:      string(model.ApplicationStatusReviewCompleted),
				Actual:        string(app.Status),
				Detail:        "reward credited",
			}, nil
		}
	}

	want, ok := model.ExpectedReviewStatus(app.Status)
	if !ok {
		return nil, nil
	}
	review, err := s.reviews.Active(ctx, app.ID)
	if errors.Is(err, domainErrors.ErrNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("load active review: %w", err)
	}
	if review.Status == want {
		return nil, nil
	}
	return &model.Discrepancy{
		Kind:          model.DiscrepancyReviewMirrorMismatch,
		UserID:        app.UserID,
		ApplicationID: app.ID,
		Expected:      string(want),
		Actual:        string(review.Status),
		Detail:        fmt.Sprintf("application is %s", app.Status),
	}, nil
}

func (s *ReconciliationSweep) scanWithdrawals(ctx context.Context) ([]model.Discrepancy, error) {
	var found []model.Discrepancy
	var after int64
	for {
		page, err := s.withdrawals.ListByStatuses(ctx, withdrawalStatuses, after, s.batch)
		if err != nil {
			return nil, fmt.Errorf("list withdrawals: %w", err)
		}
		for i := range page {
			d, err := s.checkWithdrawal(ctx, &page[i])
			if err != nil {
				return nil, err
			}
			if d != nil {
				found = append(found, *d)
			}
		}
		if len(page) < s.batch {
			return found, nil
		}
		after = page[len(page)-1].ID
	}
}

func (s *ReconciliationSweep) checkWithdrawal(ctx context.Context, req *model.WithdrawalRequest) (*model.Discrepancy, error) {
	entries, err := s.ledger.ForWithdrawal(ctx, req.ID)
	if err != nil {
		return nil, fmt.Errorf("load withdrawal entries: %w", err)
	}
	live := len(model.LiveEntries(entries, model.EntryKindWithdrawn)) > 0
	hold := model.CurrentHold(entries)

	d := &model.Discrepancy{UserID: req.UserID, WithdrawalID: req.ID}
	switch req.Status {
	case model.WithdrawalStatusPending:
		if live {
			d.Kind = model.DiscrepancyWithdrawalBehindLedger
			d.Expected, d.Actual = string(model.WithdrawalStatusApproved), string(req.Status)
			d.Detail = "live debit on a pending request"
			return d, nil
		}
		if hold == nil {
			d.Kind = model.DiscrepancyWithdrawalHoldUnresolved
			d.Expected, d.Actual = string(model.EntryStatusPending), "missing"
			d.Detail = "pending request has no hold"
			return d, nil
		}
		if hold.Status != model.EntryStatusPending {
			d.Kind = model.DiscrepancyWithdrawalHoldUnresolved
			d.Expected, d.Actual = string(model.EntryStatusPending), string(hold.Status)
			d.Detail = "pending request hold already settled"
			return d, nil
		}
	case model.WithdrawalStatusApproved, model.WithdrawalStatusCompleted:
		if !live {
			d.Kind = model.DiscrepancyWithdrawalDebitMissing
			d.Expected, d.Actual = "debit", "missing"
			d.Detail = fmt.Sprintf("%s request has no live debit", req.Status)
			return d, nil
		}
		if hold != nil && hold.Status == model.EntryStatusPending {
			d.Kind = model.DiscrepancyWithdrawalHoldUnresolved
			d.Expected, d.Actual = string(model.EntryStatusSuccess), string(hold.Status)
			d.Detail = fmt.Sprintf("%s request still holds points", req.Status)
			return d, nil
		}
	case model.WithdrawalStatusRejected:
		if hold != nil && hold.Status == model.EntryStatusPending {
			d.Kind = model.DiscrepancyWithdrawalHoldUnresolved
			d.Expected, d.Actual = string(model.EntryStatusFailed), string(hold.Status)
			d.Detail = "rejected request still holds points"
			return d, nil
		}
	}
	return nil, nil
}

func (s *ReconciliationSweep) scanBalances(ctx context.Context) ([]model.Discrepancy, error) {
	var found []model.Discrepancy
	var after int64
	for {
		ids, err := s.ledger.UserIDs(ctx, after, s.batch)
		if err != nil {
			return nil, fmt.Errorf("list ledger users: %w", err)
		}
		for _, userID := range ids {
			d, err := s.checkBalance(ctx, userID)
			if err != nil {
				return nil, err
			}
			if d != nil {
				found = append(found, *d)
			}
		}
		if len(ids) < s.batch {
			return found, nil
		}
		after = ids[len(ids)-1]
	}
}

func (s *ReconciliationSweep) checkBalance(ctx context.Context, userID int64) (*model.Discrepancy, error) {
	totals, err := s.ledger.Totals(ctx, userID)
	if err != nil {
		return nil, err
	}
	d := &model.Discrepancy{
		Kind:     model.DiscrepancyBalanceDrift,
		UserID:   userID,
		Expected: describeBalance(totals),
	}
	cached, err := s.ledger.CachedBalance(ctx, userID)
	switch {
	case errors.Is(err, domainErrors.ErrNotFound):
		d.Actual, d.Detail = "missing", "no cache row"
		return d, nil
	case err != nil:
		return nil, fmt.Errorf("load cached balance: %w", err)
	case cached.Stale:
		d.Actual, d.Detail = describeBalance(*cached), "cache flagged stale"
		return d, nil
	case !cached.Agrees(totals):
		d.Actual, d.Detail = describeBalance(*cached), "cache differs from ledger"
		return d, nil
	}
	return nil, nil
}

// Repair fixes the mirror named by d after re-reading current state. A
// discrepancy that no longer holds yields a noop result.
func (s *ReconciliationSweep) Repair(ctx context.Context, d model.Discrepancy) (*model.Result, error) {
	var (
		res *model.Result
		err error
	)
	switch d.Kind {
	case model.DiscrepancyBalanceDrift:
		res, err = s.repairBalance(ctx, d.UserID)
	case model.DiscrepancyApplicationBehindLedger:
		res, err = s.repairApplicationStatus(ctx, d.ApplicationID)
	case model.DiscrepancyReviewMirrorMismatch:
		res, err = s.repairReview(ctx, d.ApplicationID)
	case model.DiscrepancyWithdrawalBehindLedger:
		res, err = s.repairWithdrawalStatus(ctx, d.WithdrawalID)
	case model.DiscrepancyWithdrawalDebitMissing:
		res, err = s.repairMissingDebit(ctx, d.WithdrawalID)
	case model.DiscrepancyWithdrawalHoldUnresolved:
		res, err = s.repairHold(ctx, d.WithdrawalID)
	default:
		return nil, domainErrors.NewValidation("kind", fmt.Sprintf("unknown discrepancy kind %q", d.Kind))
	}
	if err != nil {
		s.logger.Warn("reconciliation repair failed", slog.String("kind", string(d.Kind)), slog.Any("error", err))
		return nil, err
	}
	if res.Outcome != model.OutcomeNoop {
		s.logger.Info("reconciliation repair applied",
			slog.String("kind", string(d.Kind)),
			slog.String("outcome", string(res.Outcome)),
			slog.Int64("user_id", d.UserID),
			slog.Int64("application_id", d.ApplicationID),
			slog.Int64("withdrawal_id", d.WithdrawalID),
		)
	}
	return res, nil
}

func (s *ReconciliationSweep) repairBalance(ctx context.Context, userID int64) (*model.Result, error) {
	d, err := s.checkBalance(ctx, userID)
	if err != nil {
		return nil, err
	}
	if d == nil {
		return noop(), nil
	}
	if _, err := s.ledger.RefreshBalance(ctx, userID); err != nil {
		return nil, err
	}
	return model.Success(), nil
}

func (s *ReconciliationSweep) repairApplicationStatus(ctx context.Context, applicationID int64) (*model.Result, error) {
	app, err := s.applications.GetByID(ctx, applicationID)
	if err != nil {
		return nil, err
	}
	d, err := s.checkApplication(ctx, app)
	if err != nil {
		return nil, err
	}
	if d == nil || d.Kind != model.DiscrepancyApplicationBehindLedger {
		return noopFor(app), nil
	}
	return s.coordinator.Advance(ctx, applicationID, model.ApplicationStatusReviewCompleted, model.TransitionContext{Reason: reconcileReason})
}

func (s *ReconciliationSweep) repairReview(ctx context.Context, applicationID int64) (*model.Result, error) {
	app, err := s.applications.GetByID(ctx, applicationID)
	if err != nil {
		return nil, err
	}
	d, err := s.checkApplication(ctx, app)
	if err != nil {
		return nil, err
	}
	if d == nil || d.Kind != model.DiscrepancyReviewMirrorMismatch {
		return noopFor(app), nil
	}
	review, err := s.reviews.Active(ctx, applicationID)
	if err != nil {
		return nil, err
	}
	want := model.ReviewStatus(d.Expected)
	reason := ""
	if want == model.ReviewStatusRejected {
		reason = app.Reason
	}
	if err := s.reviews.SetStatus(ctx, review.ID, want, reason); err != nil {
		return nil, fmt.Errorf("set review status: %w", err)
	}
	res := model.Success()
	res.Application = app
	return res, nil
}

func (s *ReconciliationSweep) repairWithdrawalStatus(ctx context.Context, withdrawalID int64) (*model.Result, error) {
	req, d, err := s.recheckWithdrawal(ctx, withdrawalID)
	if err != nil {
		return nil, err
	}
	if d == nil || d.Kind != model.DiscrepancyWithdrawalBehindLedger {
		return noopForWithdrawal(req), nil
	}
	return s.processor.Approve(ctx, withdrawalID, req.AdminNote)
}

func (s *ReconciliationSweep) repairMissingDebit(ctx context.Context, withdrawalID int64) (*model.Result, error) {
	req, d, err := s.recheckWithdrawal(ctx, withdrawalID)
	if err != nil {
		return nil, err
	}
	if d == nil || d.Kind != model.DiscrepancyWithdrawalDebitMissing {
		return noopForWithdrawal(req), nil
	}
	if req.Status == model.WithdrawalStatusCompleted {
		// Paid out already; only an operator can settle this.
		return nil, fmt.Errorf("withdrawal %d completed without a live debit, operator review required: %w",
			withdrawalID, domainErrors.ErrInvalidTransition)
	}

	note := fmt.Sprintf("returned to pending by reconciliation: %s without a live debit", req.Status)
	reverted, err := s.withdrawals.UpdateStatus(ctx, withdrawalID, req.Status, model.WithdrawalStatusPending, note)
	if err != nil {
		return nil, fmt.Errorf("revert withdrawal %d: %w", withdrawalID, err)
	}
	hold, err := s.reinstateHold(ctx, reverted)
	if err != nil {
		res := s.processor.partial(reverted, err, model.Discrepancy{
			Kind:         model.DiscrepancyWithdrawalHoldUnresolved,
			UserID:       reverted.UserID,
			WithdrawalID: withdrawalID,
			Expected:     string(model.EntryStatusPending),
			Actual:       "settled",
			Detail:       "returned to pending without a hold",
		})
		return res, nil
	}
	res := model.Success()
	res.Withdrawal = reverted
	res.Entry = hold
	return res, nil
}

// reinstateHold places the next hold of a pending request whose current hold
// is missing or settled.
func (s *ReconciliationSweep) reinstateHold(ctx context.Context, req *model.WithdrawalRequest) (*model.LedgerEntry, error) {
	entries, err := s.ledger.ForWithdrawal(ctx, req.ID)
	if err != nil {
		return nil, fmt.Errorf("load withdrawal entries: %w", err)
	}
	if hold := model.CurrentHold(entries); hold != nil && hold.Status == model.EntryStatusPending {
		return hold, nil
	}
	placed, err := s.processor.placeHold(ctx, req, model.CountHolds(entries)+1)
	if err != nil {
		return nil, err
	}
	return placed.Entry, nil
}

func (s *ReconciliationSweep) repairHold(ctx context.Context, withdrawalID int64) (*model.Result, error) {
	req, d, err := s.recheckWithdrawal(ctx, withdrawalID)
	if err != nil {
		return nil, err
	}
	if d == nil || d.Kind != model.DiscrepancyWithdrawalHoldUnresolved {
		return noopForWithdrawal(req), nil
	}
	res := model.Success()
	res.Withdrawal = req
	if req.Status == model.WithdrawalStatusPending {
		hold, err := s.reinstateHold(ctx, req)
		if err != nil {
			return nil, err
		}
		res.Entry = hold
		return res, nil
	}
	status := model.EntryStatusSuccess
	if req.Status == model.WithdrawalStatusRejected {
		status = model.EntryStatusFailed
	}
	hold, err := s.ledger.ResolveHold(ctx, withdrawalID, status)
	if err != nil {
		return nil, err
	}
	res.Entry = hold
	return res, nil
}

func (s *ReconciliationSweep) recheckWithdrawal(ctx context.Context, withdrawalID int64) (*model.WithdrawalRequest, *model.Discrepancy, error) {
	req, err := s.withdrawals.GetByID(ctx, withdrawalID)
	if err != nil {
		return nil, nil, err
	}
	d, err := s.checkWithdrawal(ctx, req)
	if err != nil {
		return nil, nil, err
	}
	return req, d, nil
}

func describeBalance(b model.Balance) string {
	return fmt.Sprintf("available=%d earned=%d withdrawn=%d held=%d", b.Available, b.Earned, b.Withdrawn, b.Held)
}

func noop() *model.Result {
	return &model.Result{Outcome: model.OutcomeNoop}
}

func noopFor(app *model.Application) *model.Result {
	res := noop()
	res.Application = app
	return res
}

func noopForWithdrawal(req *model.WithdrawalRequest) *model.Result {
	res := noop()
	res.Withdrawal = req
	return res
}
