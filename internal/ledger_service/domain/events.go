package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// Event subjects published after a unit of work commits.
const (
	SubjectPixPaid             = "ledger.pix.paid"
	SubjectWithdrawalRequested = "ledger.withdrawal.requested"
	SubjectWithdrawalDecided   = "ledger.withdrawal.decided"
	SubjectUserRegistered      = "user.registered"
)

type PixPaidEvent struct {
	PixID      string          `json:"pix_id"`
	UserID     string          `json:"user_id"`
	Gross      decimal.Decimal `json:"gross"`
	Fee        decimal.Decimal `json:"fee"`
	Net        decimal.Decimal `json:"net"`
	NewBalance decimal.Decimal `json:"new_balance"`
	PaidAt     time.Time       `json:"paid_at"`
}

type WithdrawalEvent struct {
	WithdrawalID string           `json:"withdrawal_id"`
	UserID       string           `json:"user_id"`
	Amount       decimal.Decimal  `json:"amount"`
	Fee          decimal.Decimal  `json:"fee"`
	Status       WithdrawalStatus `json:"status"`
	ProcessedBy  *string          `json:"processed_by,omitempty"`
	OccurredAt   time.Time        `json:"occurred_at"`
}
