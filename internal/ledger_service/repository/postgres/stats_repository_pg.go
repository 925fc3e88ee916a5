package postgres

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/pixbank/golang_services/internal/ledger_service/domain"
	"github.com/pixbank/golang_services/internal/ledger_service/repository"
)

type PgStatsRepository struct {
	logger *slog.Logger
}

func NewPgStatsRepository(logger *slog.Logger) repository.StatsRepository {
	return &PgStatsRepository{logger: logger.With("component", "stats_repository_pg")}
}

// AdminStats computes every aggregate in one round trip. COALESCE keeps empty tables at zero.
func (r *PgStatsRepository) AdminStats(ctx context.Context, q repository.Querier, since time.Time) (*domain.AdminStats, error) {
	query := `
		SELECT
			(SELECT COALESCE(SUM(fee), 0) FROM transactions WHERE status = 'completed'),
			(SELECT COUNT(*) FROM users WHERE role = 'user' AND is_active),
			(SELECT COUNT(*) FROM withdrawals WHERE status = 'pending'),
			(SELECT COUNT(*) FROM transactions WHERE created_at >= $1)
	`
	var s domain.AdminStats
	if err := q.QueryRow(ctx, query, since).Scan(&s.TotalRevenue, &s.ActiveUsers, &s.PendingWithdrawals, &s.TodayTransactions); err != nil {
		r.logger.ErrorContext(ctx, "Error computing admin stats", "error", err)
		return nil, fmt.Errorf("computing admin stats: %w", err)
	}
	return &s, nil
}
