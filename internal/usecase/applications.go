package usecase

import (
	"context"
	"fmt"

	domainErrors "github.com/polkiloo/reviewmart/internal/domain/errors"
	"github.com/polkiloo/reviewmart/internal/domain/model"
	"github.com/polkiloo/reviewmart/internal/domain/repository"
)

const archivedStatus = "archived"

// ApplicationUseCase covers application reads and the writes outside the
// status machine.
type ApplicationUseCase struct {
	applications repository.ApplicationRepository
}

// NewApplicationUseCase constructs ApplicationUseCase.
func NewApplicationUseCase(applications repository.ApplicationRepository) *ApplicationUseCase {
	return &ApplicationUseCase{applications: applications}
}

// Create registers a pending application of user for campaign.
func (u *ApplicationUseCase) Create(ctx context.Context, userID, campaignID int64) (*model.Application, error) {
	if userID <= 0 {
		return nil, domainErrors.NewValidation("user_id", "must be positive")
	}
	if campaignID <= 0 {
		return nil, domainErrors.NewValidation("campaign_id", "must be positive")
	}
	return u.applications.Create(ctx, userID, campaignID)
}

// Get returns one application.
func (u *ApplicationUseCase) Get(ctx context.Context, id int64) (*model.Application, error) {
	return u.applications.GetByID(ctx, id)
}

// ListByUser returns applications of a user, newest first.
func (u *ApplicationUseCase) ListByUser(ctx context.Context, userID int64) ([]model.Application, error) {
	return u.applications.ListByUser(ctx, userID)
}

// Archive soft deletes a finished application. Ledger rows keep referencing it.
func (u *ApplicationUseCase) Archive(ctx context.Context, id int64) error {
	app, err := u.applications.GetByID(ctx, id)
	if err != nil {
		return err
	}
	if !app.Status.Terminal() {
		return fmt.Errorf("archive application %d: %w", id,
			&domainErrors.TransitionError{From: string(app.Status), To: archivedStatus})
	}
	return u.applications.Archive(ctx, id)
}
