package repository

import (
	"context"

	"github.com/polkiloo/reviewmart/internal/domain/model"
)

// LedgerRepository is the append-only points ledger. It offers no way to
// change an entry's amount or kind.
type LedgerRepository interface {
	// Insert stores the entry unless its idempotency key is taken, in which
	// case the existing entry is returned with created=false.
	Insert(ctx context.Context, entry model.LedgerEntry) (*model.LedgerEntry, bool, error)
	GetByID(ctx context.Context, id int64) (*model.LedgerEntry, error)
	GetByKey(ctx context.Context, key string) (*model.LedgerEntry, error)
	ListByUser(ctx context.Context, userID int64, limit int) ([]model.LedgerEntry, error)
	ListByApplication(ctx context.Context, applicationID int64) ([]model.LedgerEntry, error)
	ListByWithdrawal(ctx context.Context, withdrawalID int64) ([]model.LedgerEntry, error)
	// ResolvePending settles a pending hold entry; other entries are left untouched.
	ResolvePending(ctx context.Context, id int64, status model.EntryStatus) error
	Totals(ctx context.Context, userID int64) (model.Balance, error)
	UserIDs(ctx context.Context, afterID int64, limit int) ([]int64, error)
}
