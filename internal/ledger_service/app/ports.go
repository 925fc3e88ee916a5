package app

import (
	"context"
	"time"

	"github.com/pixbank/golang_services/internal/ledger_service/domain"
	"github.com/pixbank/golang_services/internal/ledger_service/repository"
	"github.com/shopspring/decimal"
)

// PixGateway is the external payment collaborator. Implementations must return an error
// wrapping domain.ErrGateway for transport failures, non-success answers and malformed payloads.
type PixGateway interface {
	CreateCharge(ctx context.Context, amount decimal.Decimal, payerRef string) (*domain.Charge, error)
	CheckCharge(ctx context.Context, externalID string) (*domain.ChargeCheck, error)
}

// EventPublisher publishes post-commit domain events. Delivery is best effort.
type EventPublisher interface {
	Publish(ctx context.Context, subject string, payload any) error
}

// StatsCache is a short-lived cache for the admin dashboard.
type StatsCache interface {
	Get(ctx context.Context, key string) (*domain.AdminStats, bool, error)
	Set(ctx context.Context, key string, stats *domain.AdminStats, ttl time.Duration) error
}

// Repositories groups the ledger store ports shared by the workflows.
type Repositories struct {
	Accounts     repository.AccountRepository
	Transactions repository.TransactionRepository
	Withdrawals  repository.WithdrawalRepository
	PixPayments  repository.PixPaymentRepository
	ActivityLogs repository.ActivityLogRepository
	Stats        repository.StatsRepository
}

type noopPublisher struct{}

func (noopPublisher) Publish(context.Context, string, any) error { return nil }
