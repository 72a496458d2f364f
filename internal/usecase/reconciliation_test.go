package usecase

import (
	"context"
	"errors"
	"testing"

	domainErrors "github.com/polkiloo/reviewmart/internal/domain/errors"
	"github.com/polkiloo/reviewmart/internal/domain/model"
	testhelpers "github.com/polkiloo/reviewmart/internal/test"
)

func (e *engine) scan(t *testing.T) []model.Discrepancy {
	t.Helper()
	found, err := e.sweep.Scan(context.Background())
	if err != nil {
		t.Fatalf("scan: unexpected error: %v", err)
	}
	return found
}

// repairAll fixes every discrepancy of one scan and expects each repair to apply.
func (e *engine) repairAll(t *testing.T, found []model.Discrepancy) {
	t.Helper()
	for _, d := range found {
		res, err := e.sweep.Repair(context.Background(), d)
		if err != nil {
			t.Fatalf("repair %s: unexpected error: %v", d.Kind, err)
		}
		if res.Outcome != model.OutcomeSuccess {
			t.Fatalf("repair %s: expected success, got %s", d.Kind, res.Outcome)
		}
	}
}

func expectOnly(t *testing.T, found []model.Discrepancy, kind model.DiscrepancyKind) model.Discrepancy {
	t.Helper()
	if len(found) != 1 || found[0].Kind != kind {
		t.Fatalf("expected a single %s, got %+v", kind, found)
	}
	return found[0]
}

func TestSweepCleanStateIsEmpty(t *testing.T) {
	e := newEngine(t, 5000, 0)
	ctx := context.Background()
	e.credited(t, 7)
	e.credited(t, 8)
	req := e.request(t, 7, 1000)
	if _, err := e.processor.Approve(ctx, req.ID, ""); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	rejected := e.request(t, 8, 500)
	if _, err := e.processor.Reject(ctx, rejected.ID, "duplicate"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	e.request(t, 8, 200)

	if found := e.scan(t); len(found) != 0 {
		t.Fatalf("expected no discrepancies, got %+v", found)
	}
}

func TestSweepRepairsBalanceDrift(t *testing.T) {
	e := newEngine(t, 5000, 0)
	ctx := context.Background()
	e.credited(t, 7)
	e.store.PutBalance(model.NewBalance(7, 999, 0, 0))

	d := expectOnly(t, e.scan(t), model.DiscrepancyBalanceDrift)
	if d.UserID != 7 || d.Detail != "cache differs from ledger" {
		t.Fatalf("unexpected discrepancy %+v", d)
	}
	e.repairAll(t, []model.Discrepancy{d})
	if b := e.store.CachedBalance(7); b == nil || b.Available != 5000 {
		t.Fatalf("unexpected cache after repair %+v", b)
	}
	if found := e.scan(t); len(found) != 0 {
		t.Fatalf("expected clean scan, got %+v", found)
	}

	res, err := e.sweep.Repair(ctx, d)
	if err != nil || res.Outcome != model.OutcomeNoop {
		t.Fatalf("expected repeated repair to be a noop, got %+v err=%v", res, err)
	}
}

func TestSweepReportsMissingAndStaleCache(t *testing.T) {
	e := newEngine(t, 5000, 0)
	e.store.PutEntry(earnedEntry(9, 90, 700))
	if d := expectOnly(t, e.scan(t), model.DiscrepancyBalanceDrift); d.Actual != "missing" {
		t.Fatalf("unexpected discrepancy %+v", d)
	}

	stale := model.NewBalance(9, 700, 0, 0)
	stale.Stale = true
	e.store.PutBalance(stale)
	d := expectOnly(t, e.scan(t), model.DiscrepancyBalanceDrift)
	if d.Detail != "cache flagged stale" {
		t.Fatalf("unexpected discrepancy %+v", d)
	}
	e.repairAll(t, []model.Discrepancy{d})
	if b := e.store.CachedBalance(9); b == nil || b.Stale || b.Available != 700 {
		t.Fatalf("unexpected cache after repair %+v", b)
	}
}

func TestSweepRepairsApplicationBehindLedger(t *testing.T) {
	e := newEngine(t, 5000, 0)
	app := e.store.PutApplication(model.Application{UserID: 7, CampaignID: 70, Status: model.ApplicationStatusPending})
	e.advanceTo(t, app.ID, model.ApplicationStatusReviewSubmitted)

	e.store.Fail(testhelpers.OpApplicationUpdateStatus, errors.New("write lost"))
	res, err := e.coordinator.Advance(context.Background(), app.ID, model.ApplicationStatusReviewCompleted, model.TransitionContext{})
	if err != nil || !res.Retryable() {
		t.Fatalf("expected partial failure, got %+v err=%v", res, err)
	}

	d := expectOnly(t, e.scan(t), model.DiscrepancyApplicationBehindLedger)
	if d.ApplicationID != app.ID || d.Expected != string(model.ApplicationStatusReviewCompleted) {
		t.Fatalf("unexpected discrepancy %+v", d)
	}
	e.repairAll(t, []model.Discrepancy{d})

	if got := e.store.Application(app.ID); got.Status != model.ApplicationStatusReviewCompleted {
		t.Fatalf("unexpected status %s", got.Status)
	}
	if n := e.countKind(model.EntryKindEarned); n != 1 {
		t.Fatalf("expected one earned entry, got %d", n)
	}
	if found := e.scan(t); len(found) != 0 {
		t.Fatalf("expected clean scan, got %+v", found)
	}
}

func TestSweepRepairsReviewMirror(t *testing.T) {
	e := newEngine(t, 5000, 0)
	ctx := context.Background()
	app := e.credited(t, 7)

	review := e.store.ActiveReview(app.ID)
	if err := e.store.Reviews().SetStatus(ctx, review.ID, model.ReviewStatusSubmitted, ""); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	d := expectOnly(t, e.scan(t), model.DiscrepancyReviewMirrorMismatch)
	if d.Expected != string(model.ReviewStatusApproved) || d.Actual != string(model.ReviewStatusSubmitted) {
		t.Fatalf("unexpected discrepancy %+v", d)
	}
	e.repairAll(t, []model.Discrepancy{d})
	if got := e.store.ActiveReview(app.ID); got.Status != model.ReviewStatusApproved {
		t.Fatalf("unexpected review status %s", got.Status)
	}
	if b := e.balance(t, 7); b.Available != 5000 {
		t.Fatalf("review repair touched the ledger: %+v", b)
	}
}

func TestSweepRepairsReturnedReviewWithReason(t *testing.T) {
	e := newEngine(t, 5000, 0)
	ctx := context.Background()
	app := e.store.PutApplication(model.Application{UserID: 7, CampaignID: 70, Status: model.ApplicationStatusPending})
	e.advanceTo(t, app.ID, model.ApplicationStatusReviewSubmitted)

	if _, err := e.coordinator.Advance(ctx, app.ID, model.ApplicationStatusReviewRejected, model.TransitionContext{Reason: "blurry photos"}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	review := e.store.ActiveReview(app.ID)
	if err := e.store.Reviews().SetStatus(ctx, review.ID, model.ReviewStatusSubmitted, ""); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	d := expectOnly(t, e.scan(t), model.DiscrepancyReviewMirrorMismatch)
	e.repairAll(t, []model.Discrepancy{d})
	got := e.store.ActiveReview(app.ID)
	if got.Status != model.ReviewStatusRejected || got.RejectionReason != "blurry photos" {
		t.Fatalf("unexpected review %+v", got)
	}
}

func TestSweepRepairsWithdrawalBehindLedger(t *testing.T) {
	e := newEngine(t, 5000, 0)
	ctx := context.Background()
	e.credited(t, 7)
	req := e.request(t, 7, 5000)

	e.store.Fail(testhelpers.OpWithdrawalUpdateStatus, errors.New("write lost"))
	e.store.Fail(testhelpers.OpLedgerGet, errors.New("ledger unreachable"))
	if _, err := e.processor.Approve(ctx, req.ID, "paid out"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	d := expectOnly(t, e.scan(t), model.DiscrepancyWithdrawalBehindLedger)
	if d.WithdrawalID != req.ID {
		t.Fatalf("unexpected discrepancy %+v", d)
	}
	e.repairAll(t, []model.Discrepancy{d})

	if got := e.store.Withdrawal(req.ID); got.Status != model.WithdrawalStatusApproved {
		t.Fatalf("unexpected status %s", got.Status)
	}
	if n := e.countKind(model.EntryKindWithdrawn); n != 1 {
		t.Fatalf("expected exactly one debit, got %d", n)
	}
	if b := e.balance(t, 7); b.Available != 0 || b.Held != 0 {
		t.Fatalf("unexpected balance %+v", b)
	}
	if found := e.scan(t); len(found) != 0 {
		t.Fatalf("expected clean scan, got %+v", found)
	}
}

func TestSweepReturnsUndebitedWithdrawalToPending(t *testing.T) {
	e := newEngine(t, 5000, 0)
	ctx := context.Background()
	e.credited(t, 7)
	req := e.store.PutWithdrawal(model.WithdrawalRequest{UserID: 7, Points: 1000, Tax: 33, NetPayout: 967,
		Destination: "acct", Status: model.WithdrawalStatusApproved})

	d := expectOnly(t, e.scan(t), model.DiscrepancyWithdrawalDebitMissing)
	e.repairAll(t, []model.Discrepancy{d})
	got := e.store.Withdrawal(req.ID)
	if got.Status != model.WithdrawalStatusPending || got.AdminNote == "" {
		t.Fatalf("unexpected request %+v", got)
	}
	if b := e.balance(t, 7); b.Held != 1000 {
		t.Fatalf("expected hold to be placed with the revert, got %+v", b)
	}
	if found := e.scan(t); len(found) != 0 {
		t.Fatalf("expected clean scan, got %+v", found)
	}

	res, err := e.processor.Approve(ctx, req.ID, "")
	if err != nil || res.Outcome != model.OutcomeSuccess {
		t.Fatalf("unexpected approval %+v err=%v", res, err)
	}
	if b := e.balance(t, 7); b.Available != 4000 || b.Held != 0 {
		t.Fatalf("unexpected balance %+v", b)
	}
}

func TestSweepReinstatesHoldAfterDebitReversal(t *testing.T) {
	e := newEngine(t, 5000, 0)
	ctx := context.Background()
	e.credited(t, 7)
	req := e.request(t, 7, 5000)
	approved, err := e.processor.Approve(ctx, req.ID, "")
	if err != nil || approved.Outcome != model.OutcomeSuccess {
		t.Fatalf("unexpected approval %+v err=%v", approved, err)
	}
	if _, err := e.ledger.Reverse(ctx, approved.Entry.ID, "bank bounced the payout"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	d := expectOnly(t, e.scan(t), model.DiscrepancyWithdrawalDebitMissing)
	if d.WithdrawalID != req.ID || d.Detail != "approved request has no live debit" {
		t.Fatalf("unexpected discrepancy %+v", d)
	}
	res, err := e.sweep.Repair(ctx, d)
	if err != nil || res.Outcome != model.OutcomeSuccess {
		t.Fatalf("unexpected repair %+v err=%v", res, err)
	}
	if res.Entry == nil || res.Entry.IdempotencyKey != model.ReinstatedHoldKey(req.ID, 2) || res.Entry.Status != model.EntryStatusPending {
		t.Fatalf("expected a second hold, got %+v", res.Entry)
	}
	if got := e.store.Withdrawal(req.ID); got.Status != model.WithdrawalStatusPending {
		t.Fatalf("unexpected status %s", got.Status)
	}
	if b := e.balance(t, 7); b.Available != 5000 || b.Held != 5000 || b.Spendable() != 0 {
		t.Fatalf("expected the points to be held again, got %+v", b)
	}
	if found := e.scan(t); len(found) != 0 {
		t.Fatalf("expected clean scan, got %+v", found)
	}

	if _, err := e.processor.Request(ctx, 7, 5000, testhelpers.RandomDestination()); !errors.Is(err, domainErrors.ErrInsufficientBalance) {
		t.Fatalf("expected held points to be unspendable, got %v", err)
	}

	again, err := e.processor.Approve(ctx, req.ID, "")
	if err != nil || again.Outcome != model.OutcomeSuccess {
		t.Fatalf("unexpected approval %+v err=%v", again, err)
	}
	if again.Entry.IdempotencyKey != model.WithdrawnKey(req.ID, 2) {
		t.Fatalf("expected second debit attempt, got %s", again.Entry.IdempotencyKey)
	}
	if live := liveDebits(e, req.ID); len(live) != 1 {
		t.Fatalf("expected one live debit, got %+v", live)
	}
	if b := e.balance(t, 7); b.Available != 0 || b.Held != 0 {
		t.Fatalf("unexpected balance %+v", b)
	}
	assertInvariant(t, e, 7)
}

func TestSweepLeavesCompletedWithdrawalForOperator(t *testing.T) {
	e := newEngine(t, 5000, 0)
	ctx := context.Background()
	e.credited(t, 7)
	req := e.request(t, 7, 2000)
	approved, err := e.processor.Approve(ctx, req.ID, "")
	if err != nil || approved.Outcome != model.OutcomeSuccess {
		t.Fatalf("unexpected approval %+v err=%v", approved, err)
	}
	if _, err := e.processor.Complete(ctx, req.ID); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if _, err := e.ledger.Reverse(ctx, approved.Entry.ID, "manual correction"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	d := expectOnly(t, e.scan(t), model.DiscrepancyWithdrawalDebitMissing)
	if _, err := e.sweep.Repair(ctx, d); !errors.Is(err, domainErrors.ErrInvalidTransition) {
		t.Fatalf("expected completed request to need an operator, got %v", err)
	}
	if got := e.store.Withdrawal(req.ID); got.Status != model.WithdrawalStatusCompleted {
		t.Fatalf("completed request was reopened: %s", got.Status)
	}
	if b := e.balance(t, 7); b.Held != 0 || b.Available != 5000 {
		t.Fatalf("repair must not touch the ledger, got %+v", b)
	}
	expectOnly(t, e.scan(t), model.DiscrepancyWithdrawalDebitMissing)
}

func TestSweepReinstatesSettledHoldOfPendingRequest(t *testing.T) {
	e := newEngine(t, 5000, 0)
	ctx := context.Background()
	e.credited(t, 7)
	req := e.request(t, 7, 1500)
	if _, err := e.ledger.ResolveHold(ctx, req.ID, model.EntryStatusFailed); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	d := expectOnly(t, e.scan(t), model.DiscrepancyWithdrawalHoldUnresolved)
	if d.Expected != string(model.EntryStatusPending) || d.Actual != string(model.EntryStatusFailed) {
		t.Fatalf("unexpected discrepancy %+v", d)
	}
	e.repairAll(t, []model.Discrepancy{d})
	if b := e.balance(t, 7); b.Held != 1500 {
		t.Fatalf("expected hold to be reinstated, got %+v", b)
	}
	if n := e.countKind(model.EntryKindPending); n != 2 {
		t.Fatalf("expected original and reinstated holds, got %d", n)
	}
	if found := e.scan(t); len(found) != 0 {
		t.Fatalf("expected clean scan, got %+v", found)
	}
}

func TestSweepReleasesHoldOfRejectedRequest(t *testing.T) {
	e := newEngine(t, 5000, 0)
	e.credited(t, 7)
	req := e.request(t, 7, 1000)

	e.store.Fail(testhelpers.OpLedgerResolve, errors.New("ledger down"))
	res, err := e.processor.Reject(context.Background(), req.ID, "fraud")
	if err != nil || !res.Retryable() {
		t.Fatalf("expected partial failure, got %+v err=%v", res, err)
	}

	d := expectOnly(t, e.scan(t), model.DiscrepancyWithdrawalHoldUnresolved)
	if d.Expected != string(model.EntryStatusFailed) {
		t.Fatalf("unexpected discrepancy %+v", d)
	}
	e.repairAll(t, []model.Discrepancy{d})
	if b := e.balance(t, 7); b.Spendable() != 5000 {
		t.Fatalf("unexpected balance %+v", b)
	}
	if found := e.scan(t); len(found) != 0 {
		t.Fatalf("expected clean scan, got %+v", found)
	}
}

func TestSweepPagesThroughEveryRow(t *testing.T) {
	e := newEngine(t, 5000, 0)
	for user := int64(1); user <= 5; user++ {
		e.store.PutEntry(earnedEntry(user, 100+user, 100))
	}
	for i := 0; i < 3; i++ {
		e.store.PutWithdrawal(model.WithdrawalRequest{UserID: 1, Points: 10, Destination: "acct", Status: model.WithdrawalStatusPending})
	}

	found := e.scan(t)
	counts := make(map[model.DiscrepancyKind]int)
	for _, d := range found {
		counts[d.Kind]++
	}
	if counts[model.DiscrepancyBalanceDrift] != 5 || counts[model.DiscrepancyWithdrawalHoldUnresolved] != 3 {
		t.Fatalf("unexpected discrepancies %v", counts)
	}

	for _, d := range found {
		if _, err := e.sweep.Repair(context.Background(), d); err != nil {
			t.Fatalf("repair %s: unexpected error: %v", d.Kind, err)
		}
	}
	if found := e.scan(t); len(found) != 0 {
		t.Fatalf("expected clean scan, got %+v", found)
	}
}

func TestSweepRepairErrors(t *testing.T) {
	e := newEngine(t, 5000, 0)
	ctx := context.Background()

	_, err := e.sweep.Repair(ctx, model.Discrepancy{Kind: "phantom"})
	var vErr *domainErrors.ValidationError
	if !errors.As(err, &vErr) || vErr.Field != "kind" {
		t.Fatalf("expected validation error, got %v", err)
	}

	if _, err := e.sweep.Repair(ctx, model.Discrepancy{Kind: model.DiscrepancyWithdrawalDebitMissing, WithdrawalID: 404}); !errors.Is(err, domainErrors.ErrNotFound) {
		t.Fatalf("expected not found, got %v", err)
	}

	e.store.PutEntry(earnedEntry(9, 90, 700))
	d := expectOnly(t, e.scan(t), model.DiscrepancyBalanceDrift)
	e.store.Fail(testhelpers.OpBalanceUpsert, errors.New("cache down"))
	if _, err := e.sweep.Repair(ctx, d); err == nil {
		t.Fatal("expected repair error")
	}
	if b := e.store.CachedBalance(9); b == nil || !b.Stale {
		t.Fatalf("expected failed repair to flag the cache, got %+v", b)
	}

	e.store.Fail(testhelpers.OpApplicationList, errors.New("db down"))
	if _, err := e.sweep.Scan(ctx); err == nil {
		t.Fatal("expected scan error")
	}
}
