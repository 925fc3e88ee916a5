package domain

import (
	"fmt"
	"time"

	"github.com/shopspring/decimal"
)

// WithdrawalStatus is the lifecycle state of a withdrawal request.
type WithdrawalStatus string

const (
	WithdrawalStatusPending  WithdrawalStatus = "pending"
	WithdrawalStatusApproved WithdrawalStatus = "approved"
	WithdrawalStatusRejected WithdrawalStatus = "rejected"
)

// withdrawalTransitions lists every legal move; approved and rejected are terminal.
var withdrawalTransitions = map[WithdrawalStatus][]WithdrawalStatus{
	WithdrawalStatusPending: {WithdrawalStatusApproved, WithdrawalStatusRejected},
}

// ParseDecision accepts only the two admin decisions.
func ParseDecision(s string) (WithdrawalStatus, error) {
	switch st := WithdrawalStatus(s); st {
	case WithdrawalStatusApproved, WithdrawalStatusRejected:
		return st, nil
	}
	return "", &ValidationError{Field: "status", Reason: fmt.Sprintf("must be approved or rejected, got %q", s), Cause: ErrInvalidStatus}
}

// CanTransition reports whether the table allows s -> to.
func (s WithdrawalStatus) CanTransition(to WithdrawalStatus) bool {
	for _, next := range withdrawalTransitions[s] {
		if next == to {
			return true
		}
	}
	return false
}

func (s WithdrawalStatus) Terminal() bool {
	return len(withdrawalTransitions[s]) == 0
}

// Withdrawal is a user's request to move funds out to a PIX key.
type Withdrawal struct {
	ID          string           `json:"id"`
	UserID      string           `json:"user_id"`
	Amount      decimal.Decimal  `json:"amount"`
	Fee         decimal.Decimal  `json:"fee"`
	PixKey      string           `json:"pix_key"`
	Status      WithdrawalStatus `json:"status"`
	AdminNotes  *string          `json:"admin_notes,omitempty"`
	ProcessedAt *time.Time       `json:"processed_at,omitempty"`
	ProcessedBy *string          `json:"processed_by,omitempty"`
	CreatedAt   time.Time        `json:"created_at"`
	UpdatedAt   time.Time        `json:"updated_at"`
}

// Total is amount plus fee, the sum debited on approval.
func (w *Withdrawal) Total() decimal.Decimal {
	return w.Amount.Add(w.Fee)
}

// Decide applies an admin decision. Anything but a pending withdrawal yields ErrAlreadyProcessed.
func (w *Withdrawal) Decide(to WithdrawalStatus, adminID string, notes *string, at time.Time) error {
	if w.Status.Terminal() {
		return ErrAlreadyProcessed
	}
	if !w.Status.CanTransition(to) {
		return fmt.Errorf("%w: withdrawal %s -> %s", ErrIllegalTransition, w.Status, to)
	}
	w.Status = to
	w.AdminNotes = notes
	w.ProcessedAt = &at
	w.ProcessedBy = &adminID
	w.UpdatedAt = at
	return nil
}

// PendingWithdrawal is a pending withdrawal joined with its owner for the admin queue.
type PendingWithdrawal struct {
	Withdrawal
	UserFullName string          `json:"user_full_name"`
	UserEmail    string          `json:"user_email"`
	UserBalance  decimal.Decimal `json:"user_balance"`
}
