package model

import (
	"time"

	"github.com/shopspring/decimal"
)

// WithdrawalStatus describes payout request lifecycle.
type WithdrawalStatus string

const (
	WithdrawalStatusPending   WithdrawalStatus = "pending"
	WithdrawalStatusApproved  WithdrawalStatus = "approved"
	WithdrawalStatusRejected  WithdrawalStatus = "rejected"
	WithdrawalStatusCompleted WithdrawalStatus = "completed"
)

// DefaultTaxRate is the withdrawal tax applied when none is configured.
var DefaultTaxRate = decimal.RequireFromString("0.033")

// WithdrawalRequest is one request to convert points into money.
type WithdrawalRequest struct {
	ID          int64
	UserID      int64
	Points      int64
	Tax         int64
	NetPayout   int64
	Destination string
	Status      WithdrawalStatus
	AdminNote   string
	RequestedAt time.Time
	ProcessedAt *time.Time
	CompletedAt *time.Time
}

// ComputePayout returns floor(points*rate) as tax and the remaining net payout.
func ComputePayout(points int64, rate decimal.Decimal) (tax, net int64) {
	tax = decimal.NewFromInt(points).Mul(rate).Floor().IntPart()
	return tax, points - tax
}
