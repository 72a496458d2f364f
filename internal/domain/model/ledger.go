package model

import (
	"fmt"
	"time"
)

// EntryKind classifies a points movement.
type EntryKind string

const (
	EntryKindEarned    EntryKind = "earned"
	EntryKindPending   EntryKind = "pending"
	EntryKindWithdrawn EntryKind = "withdrawn"
	EntryKindReversal  EntryKind = "reversal"
)

// EntryStatus is the settlement state of a ledger entry.
type EntryStatus string

const (
	EntryStatusPending EntryStatus = "pending"
	EntryStatusSuccess EntryStatus = "success"
	EntryStatusFailed  EntryStatus = "failed"
)

// LedgerEntry is one append-only signed points movement.
type LedgerEntry struct {
	ID             int64
	UserID         int64
	ApplicationID  *int64
	WithdrawalID   *int64
	Kind           EntryKind
	Amount         int64
	Status         EntryStatus
	Description    string
	IdempotencyKey string
	ReversalOf     *int64
	ReversedKind   EntryKind
	CreatedAt      time.Time
}

// EarnedKey identifies the single reward credit of an application.
func EarnedKey(applicationID int64) string {
	return fmt.Sprintf("application:%d:earned", applicationID)
}

// HoldKey identifies the pending hold placed when a withdrawal is requested.
func HoldKey(withdrawalID int64) string {
	return fmt.Sprintf("withdrawal:%d:pending", withdrawalID)
}

// ReinstatedHoldKey identifies a hold placed again after the request was
// returned to pending. attempt starts at 2.
func ReinstatedHoldKey(withdrawalID int64, attempt int) string {
	return fmt.Sprintf("withdrawal:%d:pending:%d", withdrawalID, attempt)
}

// WithdrawnKey identifies one debit attempt of a withdrawal.
func WithdrawnKey(withdrawalID int64, attempt int) string {
	return fmt.Sprintf("withdrawal:%d:withdrawn:%d", withdrawalID, attempt)
}

// ReversalKey makes an entry reversible at most once.
func ReversalKey(entryID int64) string {
	return fmt.Sprintf("reversal:%d", entryID)
}

// LiveEntries returns entries of the given kind that have not been reversed.
// entries must include any reversals that may target them.
func LiveEntries(entries []LedgerEntry, kind EntryKind) []LedgerEntry {
	reversed := make(map[int64]struct{})
	for _, e := range entries {
		if e.Kind == EntryKindReversal && e.ReversalOf != nil {
			reversed[*e.ReversalOf] = struct{}{}
		}
	}
	var live []LedgerEntry
	for _, e := range entries {
		if e.Kind != kind || e.Status != EntryStatusSuccess {
			continue
		}
		if _, ok := reversed[e.ID]; ok {
			continue
		}
		live = append(live, e)
	}
	return live
}

// CurrentHold returns the unsettled hold among entries, or the latest settled
// one when none is pending. It returns nil when no hold was ever placed.
func CurrentHold(entries []LedgerEntry) *LedgerEntry {
	var latest *LedgerEntry
	for i := range entries {
		if entries[i].Kind != EntryKindPending {
			continue
		}
		if entries[i].Status == EntryStatusPending {
			return &entries[i]
		}
		if latest == nil || entries[i].ID > latest.ID {
			latest = &entries[i]
		}
	}
	return latest
}

// CountHolds returns how many holds were placed among entries.
func CountHolds(entries []LedgerEntry) int {
	n := 0
	for _, e := range entries {
		if e.Kind == EntryKindPending {
			n++
		}
	}
	return n
}

// CountReversed returns how many entries of the given kind were reversed.
func CountReversed(entries []LedgerEntry, kind EntryKind) int {
	n := 0
	for _, e := range entries {
		if e.Kind == EntryKindReversal && e.ReversedKind == kind {
			n++
		}
	}
	return n
}
