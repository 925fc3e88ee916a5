package app

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/pixbank/golang_services/internal/ledger_service/domain"
	"github.com/pixbank/golang_services/internal/ledger_service/repository"
	"github.com/shopspring/decimal"
)

// BalanceManager is the only writer of users.balance. Every method must run on a
// transaction-bound Querier; the account row stays locked until that transaction ends.
type BalanceManager struct {
	accounts repository.AccountRepository
	logger   *slog.Logger
}

func NewBalanceManager(accounts repository.AccountRepository, logger *slog.Logger) *BalanceManager {
	return &BalanceManager{accounts: accounts, logger: logger.With("component", "balance_manager")}
}

// Lock reads the account under a row lock so a caller can validate before mutating.
func (m *BalanceManager) Lock(ctx context.Context, q repository.Querier, userID string) (*domain.Account, error) {
	return m.accounts.GetByIDForUpdate(ctx, q, userID)
}

// AdjustBalance applies a signed delta and returns the new balance.
func (m *BalanceManager) AdjustBalance(ctx context.Context, q repository.Querier, userID string, delta decimal.Decimal) (decimal.Decimal, error) {
	acct, err := m.accounts.GetByIDForUpdate(ctx, q, userID)
	if err != nil {
		return decimal.Zero, err
	}

	next := domain.RoundMoney(acct.Balance.Add(delta))
	if next.IsNegative() {
		m.logger.WarnContext(ctx, "Rejected debit beyond balance",
			"user_id", userID, "balance", acct.Balance.StringFixed(2), "delta", delta.StringFixed(2))
		return acct.Balance, fmt.Errorf("%w: balance %s, required %s",
			domain.ErrInsufficientFunds, acct.Balance.StringFixed(2), delta.Neg().StringFixed(2))
	}

	if err := m.accounts.UpdateBalance(ctx, q, userID, next); err != nil {
		return acct.Balance, err
	}
	m.logger.DebugContext(ctx, "Balance adjusted",
		"user_id", userID, "before", acct.Balance.StringFixed(2), "after", next.StringFixed(2))
	return next, nil
}
