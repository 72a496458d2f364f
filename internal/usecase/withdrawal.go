package usecase

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/shopspring/decimal"

	domainErrors "github.com/polkiloo/reviewmart/internal/domain/errors"
	"github.com/polkiloo/reviewmart/internal/domain/model"
	"github.com/polkiloo/reviewmart/internal/domain/repository"
)

// WithdrawalProcessor runs the withdrawal lifecycle against the ledger.
type WithdrawalProcessor struct {
	withdrawals repository.WithdrawalRepository
	ledger      *LedgerStore
	events      EventPublisher
	taxRate     decimal.Decimal
	logger      *slog.Logger
}

// NewWithdrawalProcessor constructs WithdrawalProcessor.
func NewWithdrawalProcessor(
	withdrawals repository.WithdrawalRepository,
	ledger *LedgerStore,
	events EventPublisher,
	taxRate decimal.Decimal,
	logger *slog.Logger,
) *WithdrawalProcessor {
	return &WithdrawalProcessor{
		withdrawals: withdrawals,
		ledger:      ledger,
		events:      events,
		taxRate:     taxRate,
		logger:      logger,
	}
}

// Get returns one withdrawal request.
func (p *WithdrawalProcessor) Get(ctx context.Context, id int64) (*model.WithdrawalRequest, error) {
	return p.withdrawals.GetByID(ctx, id)
}

// ListByUser returns requests of a user, newest first.
func (p *WithdrawalProcessor) ListByUser(ctx context.Context, userID int64) ([]model.WithdrawalRequest, error) {
	return p.withdrawals.ListByUser(ctx, userID)
}

// Request creates a pending withdrawal and places a hold on the points.
func (p *WithdrawalProcessor) Request(ctx context.Context, userID, points int64, destination string) (*model.Result, error) {
	destination = strings.TrimSpace(destination)
	switch {
	case userID <= 0:
		return nil, domainErrors.NewValidation("user_id", "must be positive")
	case points <= 0:
		return nil, domainErrors.NewValidation("points", "must be positive")
	case destination == "":
		return nil, domainErrors.NewValidation("destination", "must not be empty")
	}

	balance, err := p.ledger.Totals(ctx, userID)
	if err != nil {
		return nil, err
	}
	if balance.Spendable() < points {
		return nil, fmt.Errorf("user %d can spend %d of %d points: %w",
			userID, balance.Spendable(), points, domainErrors.ErrInsufficientBalance)
	}

	tax, net := model.ComputePayout(points, p.taxRate)
	req, err := p.withdrawals.Create(ctx, model.WithdrawalRequest{
		UserID:      userID,
		Points:      points,
		Tax:         tax,
		NetPayout:   net,
		Destination: destination,
		Status:      model.WithdrawalStatusPending,
	})
	if err != nil {
		return nil, fmt.Errorf("create withdrawal: %w", err)
	}

	hold, err := p.placeHold(ctx, req, 1)
	if err != nil {
		res := p.partial(req, err, model.Discrepancy{
			Kind:         model.DiscrepancyWithdrawalHoldUnresolved,
			UserID:       userID,
			WithdrawalID: req.ID,
			Expected:     string(model.EntryStatusPending),
			Actual:       "missing",
			Detail:       "request stored without a hold",
		})
		return res, nil
	}

	res := model.Success()
	res.Withdrawal = req
	res.Entry = hold.Entry
	res.EventPublished = p.publish(ctx, model.WithdrawalEvent(req, ""))
	return res, nil
}

// placeHold appends the attempt-th hold of req. Only the first hold uses the
// plain hold key.
func (p *WithdrawalProcessor) placeHold(ctx context.Context, req *model.WithdrawalRequest, attempt int) (*AppendResult, error) {
	withdrawalID := req.ID
	key := model.HoldKey(req.ID)
	if attempt > 1 {
		key = model.ReinstatedHoldKey(req.ID, attempt)
	}
	return p.ledger.Append(ctx, model.LedgerEntry{
		UserID:         req.UserID,
		WithdrawalID:   &withdrawalID,
		Kind:           model.EntryKindPending,
		Amount:         -req.Points,
		Status:         model.EntryStatusPending,
		Description:    fmt.Sprintf("hold for withdrawal %d", req.ID),
		IdempotencyKey: key,
	})
}

// Approve debits the ledger and marks the request approved. Any failure after
// the debit reverses it and reports a partial_failure with the compensation.
func (p *WithdrawalProcessor) Approve(ctx context.Context, id int64, note string) (*model.Result, error) {
	req, err := p.withdrawals.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if req.Status != model.WithdrawalStatusPending {
		return nil, fmt.Errorf("withdrawal %d is %s: %w", id, req.Status, domainErrors.ErrAlreadyProcessed)
	}

	entries, err := p.ledger.ForWithdrawal(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("load withdrawal entries: %w", err)
	}

	var (
		debit      *model.LedgerEntry
		stepErr    error
		preBalance model.Balance
	)
	if live := model.LiveEntries(entries, model.EntryKindWithdrawn); len(live) > 0 {
		// An earlier attempt debited but did not finish.
		debit = &live[0]
		if _, stepErr = p.ledger.RefreshBalance(ctx, req.UserID); stepErr != nil {
			stepErr = fmt.Errorf("refresh balance: %w", stepErr)
		}
	} else {
		if preBalance, err = p.ledger.Totals(ctx, req.UserID); err != nil {
			return nil, err
		}
		if preBalance.Available < req.Points {
			return nil, fmt.Errorf("user %d has %d of %d points: %w",
				req.UserID, preBalance.Available, req.Points, domainErrors.ErrInsufficientBalance)
		}
		attempt := model.CountReversed(entries, model.EntryKindWithdrawn) + 1
		appended, err := p.ledger.Append(ctx, model.LedgerEntry{
			UserID:         req.UserID,
			WithdrawalID:   &id,
			Kind:           model.EntryKindWithdrawn,
			Amount:         -req.Points,
			Status:         model.EntryStatusSuccess,
			Description:    fmt.Sprintf("withdrawal %d", id),
			IdempotencyKey: model.WithdrawnKey(id, attempt),
		})
		if err != nil {
			return nil, err
		}
		debit = appended.Entry
		p.logger.Info("withdrawal debited",
			slog.Int64("withdrawal_id", id),
			slog.Int64("user_id", req.UserID),
			slog.Int64("points", req.Points),
			slog.Int64("available_before", preBalance.Available),
			slog.Int("attempt", attempt),
		)
		if appended.CacheStale {
			stepErr = errors.New("balance cache refresh failed")
		}
	}

	var approved *model.WithdrawalRequest
	if stepErr == nil {
		approved, stepErr = p.withdrawals.UpdateStatus(ctx, id, model.WithdrawalStatusPending, model.WithdrawalStatusApproved, note)
	}
	if stepErr != nil {
		return p.compensate(ctx, req, debit, stepErr), nil
	}

	res := model.Success()
	res.Withdrawal = approved
	res.Entry = debit
	if _, err := p.ledger.ResolveHold(ctx, id, model.EntryStatusSuccess); err != nil {
		res = p.partial(approved, err, model.Discrepancy{
			Kind:         model.DiscrepancyWithdrawalHoldUnresolved,
			UserID:       req.UserID,
			WithdrawalID: id,
			Expected:     string(model.EntryStatusSuccess),
			Actual:       string(model.EntryStatusPending),
			Detail:       "request approved, hold still pending",
		})
		res.Entry = debit
	}
	res.EventPublished = p.publish(ctx, model.WithdrawalEvent(approved, model.WithdrawalStatusPending))
	return res, nil
}

// compensate reverses the debit of a failed approval.
func (p *WithdrawalProcessor) compensate(ctx context.Context, req *model.WithdrawalRequest, debit *model.LedgerEntry, cause error) *model.Result {
	comp := &model.Compensation{DebitEntryID: debit.ID}
	reversal, err := p.ledger.Reverse(ctx, debit.ID, fmt.Sprintf("compensation for withdrawal %d", req.ID))
	var res *model.Result
	if err != nil {
		comp.Error = err.Error()
		res = p.partial(req, errors.Join(cause, err), model.Discrepancy{
			Kind:         model.DiscrepancyWithdrawalBehindLedger,
			UserID:       req.UserID,
			WithdrawalID: req.ID,
			Expected:     string(model.WithdrawalStatusApproved),
			Actual:       string(req.Status),
			Detail:       "debit stands, compensation failed",
		})
	} else {
		comp.Succeeded = true
		comp.ReversalEntryID = reversal.Entry.ID
		res = p.partial(req, cause)
	}
	p.logger.Warn("withdrawal approval compensated",
		slog.Int64("withdrawal_id", req.ID),
		slog.Int64("debit_entry_id", debit.ID),
		slog.Bool("reversed", comp.Succeeded),
		slog.Any("error", cause),
	)
	res.Compensation = comp
	res.Entry = debit
	return res
}

// Reject declines a pending request and releases its hold.
func (p *WithdrawalProcessor) Reject(ctx context.Context, id int64, note string) (*model.Result, error) {
	req, err := p.withdrawals.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if req.Status != model.WithdrawalStatusPending {
		return nil, fmt.Errorf("withdrawal %d is %s: %w", id, req.Status, domainErrors.ErrAlreadyProcessed)
	}

	entries, err := p.ledger.ForWithdrawal(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("load withdrawal entries: %w", err)
	}
	for _, debit := range model.LiveEntries(entries, model.EntryKindWithdrawn) {
		if _, err := p.ledger.Reverse(ctx, debit.ID, fmt.Sprintf("withdrawal %d rejected", id)); err != nil {
			return nil, err
		}
	}

	rejected, err := p.withdrawals.UpdateStatus(ctx, id, model.WithdrawalStatusPending, model.WithdrawalStatusRejected, note)
	if err != nil {
		return nil, fmt.Errorf("reject withdrawal %d: %w", id, err)
	}

	res := model.Success()
	res.Withdrawal = rejected
	if _, err := p.ledger.ResolveHold(ctx, id, model.EntryStatusFailed); err != nil {
		res = p.partial(rejected, err, model.Discrepancy{
			Kind:         model.DiscrepancyWithdrawalHoldUnresolved,
			UserID:       req.UserID,
			WithdrawalID: id,
			Expected:     string(model.EntryStatusFailed),
			Actual:       string(model.EntryStatusPending),
			Detail:       "request rejected, hold still pending",
		})
	}
	res.EventPublished = p.publish(ctx, model.WithdrawalEvent(rejected, model.WithdrawalStatusPending))
	return res, nil
}

// Complete records that the payout of an approved request was executed.
func (p *WithdrawalProcessor) Complete(ctx context.Context, id int64) (*model.Result, error) {
	req, err := p.withdrawals.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	switch req.Status {
	case model.WithdrawalStatusApproved:
	case model.WithdrawalStatusCompleted:
		return nil, fmt.Errorf("withdrawal %d is %s: %w", id, req.Status, domainErrors.ErrAlreadyProcessed)
	default:
		return nil, &domainErrors.TransitionError{From: string(req.Status), To: string(model.WithdrawalStatusCompleted)}
	}

	entries, err := p.ledger.ForWithdrawal(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("load withdrawal entries: %w", err)
	}
	live := model.LiveEntries(entries, model.EntryKindWithdrawn)
	if len(live) == 0 {
		return p.partial(req, errors.New("no live debit"), model.Discrepancy{
			Kind:         model.DiscrepancyWithdrawalDebitMissing,
			UserID:       req.UserID,
			WithdrawalID: id,
			Expected:     "debit",
			Actual:       "missing",
			Detail:       "approved request has no live debit",
		}), nil
	}

	completed, err := p.withdrawals.UpdateStatus(ctx, id, model.WithdrawalStatusApproved, model.WithdrawalStatusCompleted, "")
	if err != nil {
		return nil, fmt.Errorf("complete withdrawal %d: %w", id, err)
	}
	res := model.Success()
	res.Withdrawal = completed
	res.Entry = &live[0]
	res.EventPublished = p.publish(ctx, model.WithdrawalEvent(completed, model.WithdrawalStatusApproved))
	return res, nil
}

func (p *WithdrawalProcessor) partial(req *model.WithdrawalRequest, cause error, ds ...model.Discrepancy) *model.Result {
	attrs := []any{slog.Int64("withdrawal_id", req.ID), slog.Any("error", cause)}
	for _, d := range ds {
		attrs = append(attrs, slog.String("discrepancy", string(d.Kind)))
	}
	p.logger.Warn("withdrawal step failed", attrs...)
	res := model.Partial(ds...)
	res.Withdrawal = req
	return res
}

func (p *WithdrawalProcessor) publish(ctx context.Context, event model.TransitionEvent) bool {
	if p.events == nil {
		return false
	}
	if err := p.events.Publish(ctx, event); err != nil {
		p.logger.Warn("transition event not published",
			slog.String("routing_key", event.RoutingKey()),
			slog.Any("error", err),
		)
		return false
	}
	return true
}
