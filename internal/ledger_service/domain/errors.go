package domain

import (
	"errors"
	"fmt"
)

var (
	ErrNotFound           = errors.New("not found")
	ErrUserNotFound       = fmt.Errorf("user %w", ErrNotFound)
	ErrWithdrawalNotFound = fmt.Errorf("withdrawal %w", ErrNotFound)
	ErrPixPaymentNotFound = fmt.Errorf("pix payment %w", ErrNotFound)

	ErrValidation        = errors.New("validation failed")
	ErrBelowMinimum      = errors.New("amount is below the minimum")
	ErrInvalidStatus     = errors.New("invalid status")
	ErrInsufficientFunds = errors.New("insufficient funds")
	ErrGateway           = errors.New("payment gateway error")
	ErrAlreadyProcessed  = errors.New("withdrawal already processed")
	ErrIllegalTransition = errors.New("illegal status transition")
	ErrForbidden         = errors.New("operation not permitted for this user")
)

// ValidationError describes malformed or out-of-range input. It matches ErrValidation
// and, when Cause is set, Cause as well.
type ValidationError struct {
	Field  string
	Reason string
	Cause  error
}

func (e *ValidationError) Error() string {
	if e.Field == "" {
		return e.Reason
	}
	return e.Field + ": " + e.Reason
}

func (e *ValidationError) Is(target error) bool {
	return target == ErrValidation || (e.Cause != nil && target == e.Cause)
}

func (e *ValidationError) Unwrap() error {
	return e.Cause
}

// NewValidationError builds a ValidationError without a specific cause.
func NewValidationError(field, reason string) *ValidationError {
	return &ValidationError{Field: field, Reason: reason}
}
