package dto

import (
	"time"

	"github.com/polkiloo/reviewmart/internal/domain/model"
)

// BalanceResponse represents the points position of a user.
type BalanceResponse struct {
	UserID    int64 `json:"user_id"`
	Available int64 `json:"available"`
	Earned    int64 `json:"earned"`
	Withdrawn int64 `json:"withdrawn"`
	Held      int64 `json:"held"`
	Spendable int64 `json:"spendable"`
}

// NewBalanceResponse maps a domain balance.
func NewBalanceResponse(b model.Balance) BalanceResponse {
	return BalanceResponse{
		UserID:    b.UserID,
		Available: b.Available,
		Earned:    b.Earned,
		Withdrawn: b.Withdrawn,
		Held:      b.Held,
		Spendable: b.Spendable(),
	}
}

// LedgerEntryResponse describes one ledger row.
type LedgerEntryResponse struct {
	ID            int64     `json:"id"`
	Kind          string    `json:"kind"`
	Amount        int64     `json:"amount"`
	Status        string    `json:"status"`
	ApplicationID *int64    `json:"application_id,omitempty"`
	WithdrawalID  *int64    `json:"withdrawal_id,omitempty"`
	ReversalOf    *int64    `json:"reversal_of,omitempty"`
	Description   string    `json:"description,omitempty"`
	CreatedAt     time.Time `json:"created_at"`
}

// NewLedgerEntryResponse maps a ledger row.
func NewLedgerEntryResponse(e *model.LedgerEntry) *LedgerEntryResponse {
	if e == nil {
		return nil
	}
	return &LedgerEntryResponse{
		ID:            e.ID,
		Kind:          string(e.Kind),
		Amount:        e.Amount,
		Status:        string(e.Status),
		ApplicationID: e.ApplicationID,
		WithdrawalID:  e.WithdrawalID,
		ReversalOf:    e.ReversalOf,
		Description:   e.Description,
		CreatedAt:     e.CreatedAt,
	}
}

// ReverseRequest carries the operator's reason for a reversal.
type ReverseRequest struct {
	Reason string `json:"reason"`
}
