package domain

import (
	"fmt"
	"time"

	"github.com/shopspring/decimal"
)

// PixExpiry is how long a generated charge stays payable.
const PixExpiry = 30 * time.Minute

// PixPaymentStatus is the lifecycle state of an inbound PIX charge.
type PixPaymentStatus string

const (
	PixStatusPending PixPaymentStatus = "pending"
	PixStatusPaid    PixPaymentStatus = "paid"
	PixStatusExpired PixPaymentStatus = "expired"
)

var pixTransitions = map[PixPaymentStatus][]PixPaymentStatus{
	PixStatusPending: {PixStatusPaid, PixStatusExpired},
}

func (s PixPaymentStatus) CanTransition(to PixPaymentStatus) bool {
	for _, next := range pixTransitions[s] {
		if next == to {
			return true
		}
	}
	return false
}

// Transition validates s -> to against the table.
func (s PixPaymentStatus) Transition(to PixPaymentStatus) (PixPaymentStatus, error) {
	if !s.CanTransition(to) {
		return s, fmt.Errorf("%w: pix payment %s -> %s", ErrIllegalTransition, s, to)
	}
	return to, nil
}

// PixPayment is an inbound charge created at the gateway.
type PixPayment struct {
	ID          string           `json:"id"`
	UserID      string           `json:"user_id"`
	Amount      decimal.Decimal  `json:"amount"`
	PixID       string           `json:"pix_id"`
	QRCode      string           `json:"qr_code"`
	Description string           `json:"description,omitempty"`
	Status      PixPaymentStatus `json:"status"`
	ExpiresAt   time.Time        `json:"expires_at"`
	PaidAt      *time.Time       `json:"paid_at,omitempty"`
	CreatedAt   time.Time        `json:"created_at"`
}

// ExpiredAt reports whether the charge is past its deadline at now.
func (p *PixPayment) ExpiredAt(now time.Time) bool {
	return now.After(p.ExpiresAt)
}
