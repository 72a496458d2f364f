package dto

import "github.com/polkiloo/reviewmart/internal/domain/model"

// ErrorResponse is written for every failed request.
type ErrorResponse struct {
	Error string `json:"error"`
	Field string `json:"field,omitempty"`
}

// CompensationResponse describes the undo step of a failed approval.
type CompensationResponse struct {
	DebitEntryID    int64  `json:"debit_entry_id"`
	ReversalEntryID int64  `json:"reversal_entry_id,omitempty"`
	Succeeded       bool   `json:"succeeded"`
	Error           string `json:"error,omitempty"`
}

// ResultResponse is written for coordinated writes.
type ResultResponse struct {
	Outcome        string                `json:"outcome"`
	Retry          bool                  `json:"retry,omitempty"`
	Discrepancies  []model.Discrepancy   `json:"discrepancies,omitempty"`
	Compensation   *CompensationResponse `json:"compensation,omitempty"`
	Application    *ApplicationResponse  `json:"application,omitempty"`
	Withdrawal     *WithdrawalResponse   `json:"withdrawal,omitempty"`
	Entry          *LedgerEntryResponse  `json:"entry,omitempty"`
	EventPublished bool                  `json:"event_published"`
}

// NewResultResponse maps a coordinated write result.
func NewResultResponse(res *model.Result) ResultResponse {
	resp := ResultResponse{
		Outcome:        string(res.Outcome),
		Retry:          res.Retryable(),
		Discrepancies:  res.Discrepancies,
		Application:    NewApplicationResponse(res.Application),
		Withdrawal:     NewWithdrawalResponse(res.Withdrawal),
		Entry:          NewLedgerEntryResponse(res.Entry),
		EventPublished: res.EventPublished,
	}
	if c := res.Compensation; c != nil {
		resp.Compensation = &CompensationResponse{
			DebitEntryID:    c.DebitEntryID,
			ReversalEntryID: c.ReversalEntryID,
			Succeeded:       c.Succeeded,
			Error:           c.Error,
		}
	}
	return resp
}

// SweepReportResponse summarizes an operator-triggered reconciliation pass.
type SweepReportResponse struct {
	Found    []model.Discrepancy `json:"found"`
	Repaired int                 `json:"repaired"`
	Noop     int                 `json:"noop"`
	Failed   int                 `json:"failed"`
}

// NewSweepReportResponse maps a sweep report.
func NewSweepReportResponse(r *model.SweepReport) SweepReportResponse {
	found := r.Found
	if found == nil {
		found = []model.Discrepancy{}
	}
	return SweepReportResponse{Found: found, Repaired: r.Repaired, Noop: r.Noop, Failed: r.Failed}
}
