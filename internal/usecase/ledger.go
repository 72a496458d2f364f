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
	defaultHistoryLimit = 50
	maxHistoryLimit     = 500
)

// AppendResult describes the outcome of a ledger append.
type AppendResult struct {
	Entry   *model.LedgerEntry
	Created bool
	// CacheStale is set when the entry was stored but the balance cache
	// could not be refreshed.
	CacheStale bool
}

// LedgerStore is the only writer of the points ledger and its balance cache.
type LedgerStore struct {
	entries  repository.LedgerRepository
	balances repository.BalanceRepository
	logger   *slog.Logger
}

// NewLedgerStore constructs LedgerStore.
func NewLedgerStore(entries repository.LedgerRepository, balances repository.BalanceRepository, logger *slog.Logger) *LedgerStore {
	return &LedgerStore{entries: entries, balances: balances, logger: logger}
}

// Append validates and stores a new entry. A taken idempotency key returns the
// stored entry with Created=false.
func (s *LedgerStore) Append(ctx context.Context, entry model.LedgerEntry) (*AppendResult, error) {
	if entry.Status == "" {
		entry.Status = model.EntryStatusSuccess
	}
	if err := validateEntry(entry); err != nil {
		return nil, err
	}
	return s.insert(ctx, entry)
}

// Reverse appends an entry cancelling entryID. An entry can be reversed once.
func (s *LedgerStore) Reverse(ctx context.Context, entryID int64, reason string) (*AppendResult, error) {
	target, err := s.entries.GetByID(ctx, entryID)
	if err != nil {
		return nil, fmt.Errorf("load entry %d: %w", entryID, err)
	}
	switch {
	case target.Kind == model.EntryKindReversal:
		return nil, domainErrors.NewValidation("entry_id", "a reversal cannot be reversed")
	case target.Kind == model.EntryKindPending:
		return nil, domainErrors.NewValidation("entry_id", "holds are resolved, not reversed")
	case target.Status != model.EntryStatusSuccess:
		return nil, domainErrors.NewValidation("entry_id", "only settled entries can be reversed")
	}
	if reason == "" {
		reason = fmt.Sprintf("reversal of entry %d", entryID)
	}
	id := target.ID
	reversal := model.LedgerEntry{
		UserID:         target.UserID,
		ApplicationID:  target.ApplicationID,
		WithdrawalID:   target.WithdrawalID,
		Kind:           model.EntryKindReversal,
		Amount:         -target.Amount,
		Status:         model.EntryStatusSuccess,
		Description:    reason,
		IdempotencyKey: model.ReversalKey(id),
		ReversalOf:     &id,
		ReversedKind:   target.Kind,
	}
	return s.insert(ctx, reversal)
}

func (s *LedgerStore) insert(ctx context.Context, entry model.LedgerEntry) (*AppendResult, error) {
	stored, created, err := s.entries.Insert(ctx, entry)
	if err != nil {
		return nil, fmt.Errorf("append %s entry: %w", entry.Kind, err)
	}
	res := &AppendResult{Entry: stored, Created: created}
	if _, err := s.RefreshBalance(ctx, entry.UserID); err != nil {
		res.CacheStale = true
		s.logger.Warn("balance cache refresh failed after append",
			slog.Int64("user_id", entry.UserID),
			slog.Int64("entry_id", stored.ID),
			slog.Any("error", err),
		)
	}
	return res, nil
}

// RefreshBalance recomputes the cached balance from the ledger. On failure the
// cache row is flagged stale so that reads fall back to the ledger.
func (s *LedgerStore) RefreshBalance(ctx context.Context, userID int64) (model.Balance, error) {
	totals, err := s.entries.Totals(ctx, userID)
	if err == nil {
		err = s.balances.Upsert(ctx, totals)
	}
	if err != nil {
		if markErr := s.balances.MarkStale(ctx, userID); markErr != nil {
			err = errors.Join(err, fmt.Errorf("mark stale: %w", markErr))
		}
		return model.Balance{}, fmt.Errorf("refresh balance of user %d: %w", userID, err)
	}
	return totals, nil
}

// BalanceOf serves the cached balance and falls back to the ledger when the
// cache is missing, stale or unreadable.
func (s *LedgerStore) BalanceOf(ctx context.Context, userID int64) (model.Balance, error) {
	cached, err := s.balances.Get(ctx, userID)
	switch {
	case err == nil && !cached.Stale:
		return *cached, nil
	case err != nil && !errors.Is(err, domainErrors.ErrNotFound):
		s.logger.Warn("balance cache read failed", slog.Int64("user_id", userID), slog.Any("error", err))
	}
	return s.Totals(ctx, userID)
}

// Totals sums the ledger.
func (s *LedgerStore) Totals(ctx context.Context, userID int64) (model.Balance, error) {
	balance, err := s.entries.Totals(ctx, userID)
	if err != nil {
		return model.Balance{}, fmt.Errorf("ledger totals of user %d: %w", userID, err)
	}
	return balance, nil
}

// ResolveHold settles the current hold of a withdrawal. A missing hold is not
// an error.
func (s *LedgerStore) ResolveHold(ctx context.Context, withdrawalID int64, status model.EntryStatus) (*model.LedgerEntry, error) {
	entries, err := s.entries.ListByWithdrawal(ctx, withdrawalID)
	if err != nil {
		return nil, fmt.Errorf("load holds of withdrawal %d: %w", withdrawalID, err)
	}
	hold := model.CurrentHold(entries)
	if hold == nil || hold.Status != model.EntryStatusPending {
		return hold, nil
	}
	if err := s.entries.ResolvePending(ctx, hold.ID, status); err != nil {
		return nil, fmt.Errorf("resolve hold %d: %w", hold.ID, err)
	}
	hold.Status = status
	if _, err := s.RefreshBalance(ctx, hold.UserID); err != nil {
		s.logger.Warn("balance cache refresh failed after hold resolution",
			slog.Int64("user_id", hold.UserID),
			slog.Any("error", err),
		)
	}
	return hold, nil
}

// Entry returns one ledger entry.
func (s *LedgerStore) Entry(ctx context.Context, entryID int64) (*model.LedgerEntry, error) {
	return s.entries.GetByID(ctx, entryID)
}

// History lists the newest entries of a user.
func (s *LedgerStore) History(ctx context.Context, userID int64, limit int) ([]model.LedgerEntry, error) {
	if limit <= 0 {
		limit = defaultHistoryLimit
	}
	if limit > maxHistoryLimit {
		limit = maxHistoryLimit
	}
	return s.entries.ListByUser(ctx, userID, limit)
}

// ForWithdrawal lists entries referencing a withdrawal request.
func (s *LedgerStore) ForWithdrawal(ctx context.Context, withdrawalID int64) ([]model.LedgerEntry, error) {
	return s.entries.ListByWithdrawal(ctx, withdrawalID)
}

// ForApplication lists entries referencing an application.
func (s *LedgerStore) ForApplication(ctx context.Context, applicationID int64) ([]model.LedgerEntry, error) {
	return s.entries.ListByApplication(ctx, applicationID)
}

// UserIDs pages through users present in the ledger.
func (s *LedgerStore) UserIDs(ctx context.Context, afterID int64, limit int) ([]int64, error) {
	return s.entries.UserIDs(ctx, afterID, limit)
}

// CachedBalance returns the raw cache row without falling back.
func (s *LedgerStore) CachedBalance(ctx context.Context, userID int64) (*model.Balance, error) {
	return s.balances.Get(ctx, userID)
}

func validateEntry(e model.LedgerEntry) error {
	if e.UserID <= 0 {
		return domainErrors.NewValidation("user_id", "must reference a user")
	}
	if e.Amount == 0 {
		return domainErrors.NewValidation("amount", "must not be zero")
	}
	if e.IdempotencyKey == "" {
		return domainErrors.NewValidation("idempotency_key", "must be set")
	}
	switch e.Kind {
	case model.EntryKindEarned:
		if e.ApplicationID == nil {
			return domainErrors.NewValidation("application_id", "earned entries must reference an application")
		}
		if e.Amount < 0 {
			return domainErrors.NewValidation("amount", "earned entries must be positive")
		}
		if e.Status != model.EntryStatusSuccess {
			return domainErrors.NewValidation("status", "earned entries are settled on append")
		}
	case model.EntryKindPending:
		if e.WithdrawalID == nil {
			return domainErrors.NewValidation("withdrawal_id", "holds must reference a withdrawal")
		}
		if e.Amount > 0 {
			return domainErrors.NewValidation("amount", "holds must be negative")
		}
		if e.Status != model.EntryStatusPending {
			return domainErrors.NewValidation("status", "holds start pending")
		}
	case model.EntryKindWithdrawn:
		if e.WithdrawalID == nil {
			return domainErrors.NewValidation("withdrawal_id", "debits must reference a withdrawal")
		}
		if e.Amount > 0 {
			return domainErrors.NewValidation("amount", "debits must be negative")
		}
		if e.Status != model.EntryStatusSuccess {
			return domainErrors.NewValidation("status", "debits are settled on append")
		}
	case model.EntryKindReversal:
		return domainErrors.NewValidation("kind", "reversals are created by Reverse")
	default:
		return domainErrors.NewValidation("kind", fmt.Sprintf("unknown entry kind %q", e.Kind))
	}
	return nil
}
