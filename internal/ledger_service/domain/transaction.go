package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// TransactionType defines the nature of a money movement.
type TransactionType string

const (
	TransactionTypeReceive  TransactionType = "receive"
	TransactionTypeWithdraw TransactionType = "withdraw"
	TransactionTypeFee      TransactionType = "fee"
)

func (t TransactionType) Valid() bool {
	switch t {
	case TransactionTypeReceive, TransactionTypeWithdraw, TransactionTypeFee:
		return true
	}
	return false
}

// TransactionStatus is the status recorded on a ledger transaction.
type TransactionStatus string

const (
	TransactionStatusPending   TransactionStatus = "pending"
	TransactionStatusCompleted TransactionStatus = "completed"
	TransactionStatusFailed    TransactionStatus = "failed"
	TransactionStatusApproved  TransactionStatus = "approved"
	TransactionStatusRejected  TransactionStatus = "rejected"
)

func (s TransactionStatus) Valid() bool {
	switch s {
	case TransactionStatusPending, TransactionStatusCompleted, TransactionStatusFailed,
		TransactionStatusApproved, TransactionStatusRejected:
		return true
	}
	return false
}

// Transaction is an append-only record of a committed money movement.
// Completed transactions are never edited.
type Transaction struct {
	ID          string            `json:"id"`
	UserID      string            `json:"user_id"`
	Type        TransactionType   `json:"type"`
	Amount      decimal.Decimal   `json:"amount"`
	Fee         decimal.Decimal   `json:"fee"`
	Description string            `json:"description,omitempty"`
	PixID       *string           `json:"pix_id,omitempty"`
	PixKey      *string           `json:"pix_key,omitempty"`
	Status      TransactionStatus `json:"status"`
	CreatedAt   time.Time         `json:"created_at"`
}
