package repository

import (
	"context"

	"github.com/polkiloo/reviewmart/internal/domain/model"
)

// BalanceRepository manages the cached user points balance.
type BalanceRepository interface {
	Get(ctx context.Context, userID int64) (*model.Balance, error)
	Upsert(ctx context.Context, balance model.Balance) error
	MarkStale(ctx context.Context, userID int64) error
}
