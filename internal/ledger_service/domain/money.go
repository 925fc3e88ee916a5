package domain

import (
	"github.com/shopspring/decimal"
)

// MoneyScale is the number of fractional digits stored for every monetary column.
const MoneyScale = 2

var (
	// PixMinimumAmount is the smallest gross amount a PIX charge may request.
	PixMinimumAmount = decimal.RequireFromString("10.00")
	// PixFeeRate is the platform fee applied to every PIX receipt.
	PixFeeRate = decimal.RequireFromString("0.08")
	// WithdrawalFee is the flat fee charged on every withdrawal.
	WithdrawalFee = decimal.RequireFromString("2.00")
)

// RoundMoney rounds half away from zero to cents.
func RoundMoney(d decimal.Decimal) decimal.Decimal {
	return d.Round(MoneyScale)
}

// HasMoneyScale reports whether d has at most two fractional digits.
func HasMoneyScale(d decimal.Decimal) bool {
	return d.Equal(d.Truncate(MoneyScale))
}

// SplitPixFee returns the fee and the net amount for a gross PIX receipt.
// fee + net always equals gross.
func SplitPixFee(gross decimal.Decimal) (fee, net decimal.Decimal) {
	fee = RoundMoney(gross.Mul(PixFeeRate))
	net = gross.Sub(fee)
	return fee, net
}

// WithdrawalTotal is the amount debited when a withdrawal of amount is approved.
func WithdrawalTotal(amount decimal.Decimal) decimal.Decimal {
	return amount.Add(WithdrawalFee)
}
