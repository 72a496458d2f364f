package repository

import (
	"context"

	"github.com/polkiloo/reviewmart/internal/domain/model"
)

// WithdrawalRepository provides access to withdrawal requests.
type WithdrawalRepository interface {
	Create(ctx context.Context, req model.WithdrawalRequest) (*model.WithdrawalRequest, error)
	GetByID(ctx context.Context, id int64) (*model.WithdrawalRequest, error)
	ListByUser(ctx context.Context, userID int64) ([]model.WithdrawalRequest, error)
	ListByStatuses(ctx context.Context, statuses []model.WithdrawalStatus, afterID int64, limit int) ([]model.WithdrawalRequest, error)
	// UpdateStatus writes the new status only while the stored status still equals from.
	UpdateStatus(ctx context.Context, id int64, from, to model.WithdrawalStatus, note string) (*model.WithdrawalRequest, error)
}
