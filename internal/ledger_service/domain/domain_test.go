package domain

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSplitPixFee(t *testing.T) {
	tests := []struct {
		gross, fee, net string
	}{
		{"50.00", "4.00", "46.00"},
		{"10.00", "0.80", "9.20"},
		{"12.34", "0.99", "11.35"},
		{"99.99", "8.00", "91.99"},
	}
	for _, tt := range tests {
		t.Run(tt.gross, func(t *testing.T) {
			fee, net := SplitPixFee(decimal.RequireFromString(tt.gross))
			assert.True(t, fee.Equal(decimal.RequireFromString(tt.fee)), "fee %s", fee)
			assert.True(t, net.Equal(decimal.RequireFromString(tt.net)), "net %s", net)
			assert.True(t, fee.Add(net).Equal(decimal.RequireFromString(tt.gross)))
		})
	}
}

func TestHasMoneyScale(t *testing.T) {
	assert.True(t, HasMoneyScale(decimal.RequireFromString("10")))
	assert.True(t, HasMoneyScale(decimal.RequireFromString("10.5")))
	assert.True(t, HasMoneyScale(decimal.RequireFromString("10.55")))
	assert.False(t, HasMoneyScale(decimal.RequireFromString("10.555")))
}

func TestWithdrawalTransitions(t *testing.T) {
	assert.True(t, WithdrawalStatusPending.CanTransition(WithdrawalStatusApproved))
	assert.True(t, WithdrawalStatusPending.CanTransition(WithdrawalStatusRejected))
	assert.False(t, WithdrawalStatusApproved.CanTransition(WithdrawalStatusRejected))
	assert.False(t, WithdrawalStatusRejected.CanTransition(WithdrawalStatusApproved))
	assert.False(t, WithdrawalStatusPending.CanTransition(WithdrawalStatusPending))
	assert.True(t, WithdrawalStatusApproved.Terminal())
}

func TestWithdrawal_Decide(t *testing.T) {
	now := time.Date(2024, 1, 2, 3, 4, 5, 0, time.UTC)
	notes := "ok"
	w := &Withdrawal{Status: WithdrawalStatusPending}

	require.NoError(t, w.Decide(WithdrawalStatusApproved, "admin-1", &notes, now))
	assert.Equal(t, WithdrawalStatusApproved, w.Status)
	require.NotNil(t, w.ProcessedBy)
	assert.Equal(t, "admin-1", *w.ProcessedBy)
	assert.Equal(t, now, *w.ProcessedAt)

	err := w.Decide(WithdrawalStatusRejected, "admin-2", nil, now)
	assert.ErrorIs(t, err, ErrAlreadyProcessed)
	assert.Equal(t, "admin-1", *w.ProcessedBy)
}

func TestParseDecision(t *testing.T) {
	st, err := ParseDecision("approved")
	require.NoError(t, err)
	assert.Equal(t, WithdrawalStatusApproved, st)

	_, err = ParseDecision("pending")
	assert.ErrorIs(t, err, ErrInvalidStatus)
	assert.ErrorIs(t, err, ErrValidation)
}

func TestPixTransitions(t *testing.T) {
	next, err := PixStatusPending.Transition(PixStatusPaid)
	require.NoError(t, err)
	assert.Equal(t, PixStatusPaid, next)

	_, err = PixStatusPaid.Transition(PixStatusPaid)
	assert.ErrorIs(t, err, ErrIllegalTransition)
	_, err = PixStatusExpired.Transition(PixStatusPaid)
	assert.ErrorIs(t, err, ErrIllegalTransition)
}

func TestPixPayment_ExpiredAt(t *testing.T) {
	exp := time.Date(2024, 1, 1, 12, 30, 0, 0, time.UTC)
	p := &PixPayment{ExpiresAt: exp}
	assert.False(t, p.ExpiredAt(exp.Add(-time.Second)))
	assert.False(t, p.ExpiredAt(exp))
	assert.True(t, p.ExpiredAt(exp.Add(time.Second)))
}

func TestErrorTaxonomy(t *testing.T) {
	assert.True(t, errors.Is(ErrPixPaymentNotFound, ErrNotFound))
	assert.True(t, errors.Is(ErrWithdrawalNotFound, ErrNotFound))

	verr := &ValidationError{Field: "amount", Reason: "minimum is 10.00", Cause: ErrBelowMinimum}
	assert.ErrorIs(t, verr, ErrValidation)
	assert.ErrorIs(t, verr, ErrBelowMinimum)
	assert.Equal(t, "amount: minimum is 10.00", verr.Error())
}

func TestNewActivityLog_UsesRequestMeta(t *testing.T) {
	ctx := WithRequestMeta(context.Background(), RequestMeta{IPAddress: "10.0.0.1", UserAgent: "curl/8"})
	uid := "u1"
	entry := NewActivityLog(ctx, "id-1", &uid, ActionUserLogin, "login", time.Unix(0, 0))
	assert.Equal(t, "10.0.0.1", entry.IPAddress)
	assert.Equal(t, "curl/8", entry.UserAgent)
	assert.Equal(t, ActionUserLogin, entry.Action)
}
