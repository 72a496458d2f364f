package usecase

import (
	"context"
	"errors"
	"testing"

	domainErrors "github.com/polkiloo/reviewmart/internal/domain/errors"
	"github.com/polkiloo/reviewmart/internal/domain/model"
	testhelpers "github.com/polkiloo/reviewmart/internal/test"
)

func TestApplicationUseCaseCreate(t *testing.T) {
	store := testhelpers.NewMemoryStore()
	uc := NewApplicationUseCase(store.Applications())
	ctx := context.Background()

	if _, err := uc.Create(ctx, 0, 1); !errors.Is(err, domainErrors.ErrValidation) {
		t.Fatalf("expected validation error, got %v", err)
	}
	if _, err := uc.Create(ctx, 1, -1); !errors.Is(err, domainErrors.ErrValidation) {
		t.Fatalf("expected validation error, got %v", err)
	}

	app, err := uc.Create(ctx, 7, 70)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if app.Status != model.ApplicationStatusPending || app.RewardPoints != nil {
		t.Fatalf("unexpected application %+v", app)
	}
	if _, err := uc.Create(ctx, 7, 70); !errors.Is(err, domainErrors.ErrAlreadyExists) {
		t.Fatalf("expected duplicate to be refused, got %v", err)
	}

	got, err := uc.Get(ctx, app.ID)
	if err != nil || got.ID != app.ID {
		t.Fatalf("unexpected application %+v err=%v", got, err)
	}
	list, err := uc.ListByUser(ctx, 7)
	if err != nil || len(list) != 1 {
		t.Fatalf("unexpected list %+v err=%v", list, err)
	}
}

func TestApplicationUseCaseArchive(t *testing.T) {
	store := testhelpers.NewMemoryStore()
	uc := NewApplicationUseCase(store.Applications())
	ctx := context.Background()

	open := store.PutApplication(model.Application{UserID: 7, CampaignID: 70, Status: model.ApplicationStatusShipping})
	err := uc.Archive(ctx, open.ID)
	var tErr *domainErrors.TransitionError
	if !errors.As(err, &tErr) || tErr.To != "archived" {
		t.Fatalf("expected transition error, got %v", err)
	}

	done := store.PutApplication(model.Application{UserID: 7, CampaignID: 71, Status: model.ApplicationStatusRewardCompleted})
	if err := uc.Archive(ctx, done.ID); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got := store.Application(done.ID); got.ArchivedAt == nil {
		t.Fatal("expected archived timestamp")
	}
	if err := uc.Archive(ctx, 404); !errors.Is(err, domainErrors.ErrNotFound) {
		t.Fatalf("expected not found, got %v", err)
	}
}
