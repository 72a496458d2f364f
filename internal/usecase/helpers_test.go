package usecase

import (
	"context"
	"io"
	"log/slog"
	"testing"

	"github.com/polkiloo/reviewmart/internal/domain/model"
	testhelpers "github.com/polkiloo/reviewmart/internal/test"
)

type engine struct {
	store       *testhelpers.MemoryStore
	events      *testhelpers.PublisherStub
	ledger      *LedgerStore
	registry    *StatusRegistry
	coordinator *TransitionCoordinator
	processor   *WithdrawalProcessor
	sweep       *ReconciliationSweep
}

func discardLogger() *slog.Logger {
	return slog.New(slog.NewJSONHandler(io.Discard, nil))
}

func newEngine(t *testing.T, reward int64, maxResubmissions int) *engine {
	t.Helper()
	store := testhelpers.NewMemoryStore()
	events := &testhelpers.PublisherStub{}
	logger := discardLogger()

	ledger := NewLedgerStore(store.Ledger(), store.Balances(), logger)
	registry := NewStatusRegistry(maxResubmissions)
	coordinator := NewTransitionCoordinator(store.Applications(), store.Reviews(), ledger, registry,
		testhelpers.CampaignProviderStub{Reward: reward}, events, logger)
	processor := NewWithdrawalProcessor(store.Withdrawals(), ledger, events, model.DefaultTaxRate, logger)
	sweep := NewReconciliationSweep(store.Applications(), store.Reviews(), store.Withdrawals(), ledger,
		coordinator, processor, 2, logger)

	return &engine{
		store:       store,
		events:      events,
		ledger:      ledger,
		registry:    registry,
		coordinator: coordinator,
		processor:   processor,
		sweep:       sweep,
	}
}

// advanceTo walks an application from its current status along the happy
// path up to target.
func (e *engine) advanceTo(t *testing.T, appID int64, target model.ApplicationStatus) {
	t.Helper()
	path := []model.ApplicationStatus{
		model.ApplicationStatusApproved,
		model.ApplicationStatusProductPurchased,
		model.ApplicationStatusShipping,
		model.ApplicationStatusDelivered,
		model.ApplicationStatusReviewSubmitted,
		model.ApplicationStatusReviewCompleted,
		model.ApplicationStatusRewardRequested,
		model.ApplicationStatusRewardCompleted,
	}
	start := 0
	if app := e.store.Application(appID); app != nil {
		for i, status := range path {
			if status == app.Status {
				start = i + 1
			}
		}
	}
	for _, status := range path[start:] {
		tc := model.TransitionContext{OperatorID: 1}
		if status == model.ApplicationStatusReviewSubmitted {
			tc.ContentRefs = testhelpers.RandomContentRefs(2)
		}
		res, err := e.coordinator.Advance(context.Background(), appID, status, tc)
		if err != nil {
			t.Fatalf("advance to %s: unexpected error: %v", status, err)
		}
		if res.Outcome != model.OutcomeSuccess {
			t.Fatalf("advance to %s: expected success, got %s", status, res.Outcome)
		}
		if status == target {
			return
		}
	}
	t.Fatalf("status %s is not on the happy path", target)
}

// credited creates an application and walks it to review_completed.
func (e *engine) credited(t *testing.T, userID int64) *model.Application {
	t.Helper()
	app := e.store.PutApplication(model.Application{UserID: userID, CampaignID: 100 + userID, Status: model.ApplicationStatusPending})
	e.advanceTo(t, app.ID, model.ApplicationStatusReviewCompleted)
	return e.store.Application(app.ID)
}

func (e *engine) balance(t *testing.T, userID int64) model.Balance {
	t.Helper()
	b, err := e.ledger.BalanceOf(context.Background(), userID)
	if err != nil {
		t.Fatalf("balance: unexpected error: %v", err)
	}
	return b
}

func (e *engine) countKind(kind model.EntryKind) int {
	n := 0
	for _, entry := range e.store.Entries() {
		if entry.Kind == kind {
			n++
		}
	}
	return n
}

func assertInvariant(t *testing.T, e *engine, userID int64) {
	t.Helper()
	totals, err := e.ledger.Totals(context.Background(), userID)
	if err != nil {
		t.Fatalf("totals: unexpected error: %v", err)
	}
	if totals.Available != totals.Earned-totals.Withdrawn {
		t.Fatalf("available %d != earned %d - withdrawn %d", totals.Available, totals.Earned, totals.Withdrawn)
	}
	cached := e.store.CachedBalance(userID)
	if cached != nil && !cached.Stale && !cached.Agrees(totals) {
		t.Fatalf("cache %+v disagrees with ledger %+v", *cached, totals)
	}
}
