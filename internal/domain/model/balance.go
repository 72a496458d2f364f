package model

import "time"

// Balance is the derived points position of a user.
// Available always equals Earned minus Withdrawn; Held is informational.
type Balance struct {
	UserID    int64
	Available int64
	Earned    int64
	Withdrawn int64
	Held      int64
	Stale     bool
	UpdatedAt time.Time
}

// NewBalance builds a balance keeping the available invariant.
func NewBalance(userID, earned, withdrawn, held int64) Balance {
	return Balance{
		UserID:    userID,
		Available: earned - withdrawn,
		Earned:    earned,
		Withdrawn: withdrawn,
		Held:      held,
	}
}

// Spendable is what a new withdrawal request may still claim.
func (b Balance) Spendable() int64 {
	return b.Available - b.Held
}

// Agrees reports whether two balances carry the same totals.
func (b Balance) Agrees(other Balance) bool {
	return b.Available == other.Available &&
		b.Earned == other.Earned &&
		b.Withdrawn == other.Withdrawn &&
		b.Held == other.Held
}

// SumEntries derives a balance from ledger rows. Only success rows move
// earned and withdrawn; holds count while still pending.
func SumEntries(userID int64, entries []LedgerEntry) Balance {
	var earned, withdrawn, held int64
	for _, e := range entries {
		if e.UserID != userID {
			continue
		}
		if e.Kind == EntryKindPending {
			if e.Status == EntryStatusPending {
				held -= e.Amount
			}
			continue
		}
		if e.Status != EntryStatusSuccess {
			continue
		}
		switch {
		case e.Kind == EntryKindEarned, e.Kind == EntryKindReversal && e.ReversedKind == EntryKindEarned:
			earned += e.Amount
		case e.Kind == EntryKindWithdrawn, e.Kind == EntryKindReversal && e.ReversedKind == EntryKindWithdrawn:
			withdrawn -= e.Amount
		}
	}
	return NewBalance(userID, earned, withdrawn, held)
}
