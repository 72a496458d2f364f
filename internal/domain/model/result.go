package model

import domainErrors "github.com/polkiloo/reviewmart/internal/domain/errors"

// Outcome summarizes how a write operation ended.
type Outcome string

const (
	OutcomeSuccess        Outcome = "success"
	OutcomePartialFailure Outcome = "partial_failure"
	OutcomeNoop           Outcome = "noop"
)

// DiscrepancyKind names a mirror that disagrees with the ledger.
type DiscrepancyKind string

const (
	DiscrepancyBalanceDrift             DiscrepancyKind = "balance_drift"
	DiscrepancyApplicationBehindLedger  DiscrepancyKind = "application_status_behind_ledger"
	DiscrepancyReviewMirrorMismatch     DiscrepancyKind = "review_mirror_mismatch"
	DiscrepancyWithdrawalBehindLedger   DiscrepancyKind = "withdrawal_status_behind_ledger"
	DiscrepancyWithdrawalDebitMissing   DiscrepancyKind = "withdrawal_debit_missing"
	DiscrepancyWithdrawalHoldUnresolved DiscrepancyKind = "withdrawal_hold_unresolved"
)

// Discrepancy points at one inconsistent mirror.
type Discrepancy struct {
	Kind          DiscrepancyKind `json:"kind"`
	UserID        int64           `json:"user_id,omitempty"`
	ApplicationID int64           `json:"application_id,omitempty"`
	WithdrawalID  int64           `json:"withdrawal_id,omitempty"`
	Expected      string          `json:"expected,omitempty"`
	Actual        string          `json:"actual,omitempty"`
	Detail        string          `json:"detail,omitempty"`
}

// Compensation records the undo step run after a failed withdrawal approval.
type Compensation struct {
	DebitEntryID    int64
	ReversalEntryID int64
	Succeeded       bool
	Error           string
}

// Result is returned by every coordinated write.
type Result struct {
	Outcome        Outcome
	Discrepancies  []Discrepancy
	Compensation   *Compensation
	Application    *Application
	Withdrawal     *WithdrawalRequest
	Entry          *LedgerEntry
	EventPublished bool
}

// Success builds a plain success result.
func Success() *Result {
	return &Result{Outcome: OutcomeSuccess}
}

// Partial builds a retryable partial-failure result.
func Partial(discrepancies ...Discrepancy) *Result {
	return &Result{Outcome: OutcomePartialFailure, Discrepancies: discrepancies}
}

// Retryable reports whether the caller should invoke the same operation again.
func (r *Result) Retryable() bool {
	return r != nil && r.Outcome == OutcomePartialFailure
}

// Err exposes a partial failure as ErrPartialFailure.
func (r *Result) Err() error {
	if r.Retryable() {
		return domainErrors.ErrPartialFailure
	}
	return nil
}

// SweepReport summarizes one scan followed by repairs.
type SweepReport struct {
	Found    []Discrepancy
	Repaired int
	Noop     int
	Failed   int
}
