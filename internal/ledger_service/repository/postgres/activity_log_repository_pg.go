package postgres

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/pixbank/golang_services/internal/ledger_service/domain"
	"github.com/pixbank/golang_services/internal/ledger_service/repository"
)

type PgActivityLogRepository struct {
	logger *slog.Logger
}

func NewPgActivityLogRepository(logger *slog.Logger) repository.ActivityLogRepository {
	return &PgActivityLogRepository{logger: logger.With("component", "activity_log_repository_pg")}
}

func (r *PgActivityLogRepository) Create(ctx context.Context, q repository.Querier, e *domain.ActivityLog) error {
	query := `
		INSERT INTO activity_logs (id, user_id, action, details, ip_address, user_agent, created_at)
		VALUES ($1, $2, $3, $4, NULLIF($5, ''), NULLIF($6, ''), $7)
	`
	if _, err := q.Exec(ctx, query, e.ID, e.UserID, e.Action, e.Details, e.IPAddress, e.UserAgent, e.CreatedAt); err != nil {
		r.logger.ErrorContext(ctx, "Error writing activity log", "error", err, "action", e.Action)
		return fmt.Errorf("creating activity log: %w", err)
	}
	return nil
}
