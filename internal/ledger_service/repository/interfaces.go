package repository

import (
	"context"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/pixbank/golang_services/internal/ledger_service/domain"
	"github.com/shopspring/decimal"
)

// Querier is implemented by *pgxpool.Pool and pgx.Tx so every repository method can run
// inside or outside a transaction.
type Querier interface {
	Exec(ctx context.Context, sql string, arguments ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// DB is a Querier that can also open transactions (for pgx.BeginFunc).
type DB interface {
	Querier
	Begin(ctx context.Context) (pgx.Tx, error)
}

// AccountRepository reads and writes the balance columns of users rows.
type AccountRepository interface {
	GetByID(ctx context.Context, q Querier, userID string) (*domain.Account, error)
	// GetByIDForUpdate locks the user row until the surrounding transaction ends.
	GetByIDForUpdate(ctx context.Context, q Querier, userID string) (*domain.Account, error)
	UpdateBalance(ctx context.Context, q Querier, userID string, balance decimal.Decimal) error
	ListCustomers(ctx context.Context, q Querier) ([]domain.Account, error)
}

type TransactionRepository interface {
	Create(ctx context.Context, q Querier, tx *domain.Transaction) error
	ListByUser(ctx context.Context, q Querier, userID string, limit int) ([]domain.Transaction, error)
}

type WithdrawalRepository interface {
	Create(ctx context.Context, q Querier, w *domain.Withdrawal) error
	GetByID(ctx context.Context, q Querier, id string) (*domain.Withdrawal, error)
	GetByIDForUpdate(ctx context.Context, q Querier, id string) (*domain.Withdrawal, error)
	// UpdateDecision persists a decided withdrawal only if the row is still pending;
	// otherwise it returns domain.ErrAlreadyProcessed.
	UpdateDecision(ctx context.Context, q Querier, w *domain.Withdrawal) error
	ListByUser(ctx context.Context, q Querier, userID string, limit int) ([]domain.Withdrawal, error)
	ListPending(ctx context.Context, q Querier) ([]domain.PendingWithdrawal, error)
	// SumPendingByUser returns the sum of amount+fee over the user's pending withdrawals.
	SumPendingByUser(ctx context.Context, q Querier, userID string) (decimal.Decimal, error)
}

type PixPaymentRepository interface {
	Create(ctx context.Context, q Querier, p *domain.PixPayment) error
	GetByPixID(ctx context.Context, q Querier, pixID string) (*domain.PixPayment, error)
	// MarkPaid moves a pending, unexpired row to paid. It reports false when no row
	// transitioned; at most one caller ever observes true for a given pixID.
	MarkPaid(ctx context.Context, q Querier, pixID string, paidAt time.Time) (bool, error)
	MarkExpired(ctx context.Context, q Querier, pixID string, now time.Time) (bool, error)
	ExpireOverdue(ctx context.Context, q Querier, now time.Time) (int64, error)
}

type ActivityLogRepository interface {
	Create(ctx context.Context, q Querier, entry *domain.ActivityLog) error
}

type StatsRepository interface {
	AdminStats(ctx context.Context, q Querier, since time.Time) (*domain.AdminStats, error)
}
