package dto

import (
	"time"

	"github.com/polkiloo/reviewmart/internal/domain/model"
)

// WithdrawRequest describes withdrawal request payload.
type WithdrawRequest struct {
	UserID      int64  `json:"user_id"`
	Points      int64  `json:"points"`
	Destination string `json:"destination"`
}

// DecisionRequest carries the operator note for approve and reject.
type DecisionRequest struct {
	AdminNote string `json:"admin_note"`
}

// WithdrawalResponse describes a withdrawal request.
type WithdrawalResponse struct {
	ID          int64      `json:"id"`
	UserID      int64      `json:"user_id"`
	Points      int64      `json:"points"`
	Tax         int64      `json:"tax"`
	NetPayout   int64      `json:"net_payout"`
	Destination string     `json:"destination"`
	Status      string     `json:"status"`
	AdminNote   string     `json:"admin_note,omitempty"`
	RequestedAt time.Time  `json:"requested_at"`
	ProcessedAt *time.Time `json:"processed_at,omitempty"`
	CompletedAt *time.Time `json:"completed_at,omitempty"`
}

// NewWithdrawalResponse maps a domain withdrawal request.
func NewWithdrawalResponse(w *model.WithdrawalRequest) *WithdrawalResponse {
	if w == nil {
		return nil
	}
	return &WithdrawalResponse{
		ID:          w.ID,
		UserID:      w.UserID,
		Points:      w.Points,
		Tax:         w.Tax,
		NetPayout:   w.NetPayout,
		Destination: w.Destination,
		Status:      string(w.Status),
		AdminNote:   w.AdminNote,
		RequestedAt: w.RequestedAt,
		ProcessedAt: w.ProcessedAt,
		CompletedAt: w.CompletedAt,
	}
}
