package repository

import (
	"context"

	"github.com/polkiloo/reviewmart/internal/domain/model"
)

// ApplicationRepository describes persistence operations for applications.
type ApplicationRepository interface {
	Create(ctx context.Context, userID, campaignID int64) (*model.Application, error)
	GetByID(ctx context.Context, id int64) (*model.Application, error)
	ListByUser(ctx context.Context, userID int64) ([]model.Application, error)
	// ListByStatuses pages through applications with id greater than afterID.
	ListByStatuses(ctx context.Context, statuses []model.ApplicationStatus, afterID int64, limit int) ([]model.Application, error)
	// UpdateStatus writes the new status only while the stored status still equals from.
	UpdateStatus(ctx context.Context, id int64, from, to model.ApplicationStatus, patch model.ApplicationPatch) (*model.Application, error)
	Archive(ctx context.Context, id int64) error
}
