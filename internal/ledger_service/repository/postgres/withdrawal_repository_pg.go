package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"

	"github.com/jackc/pgx/v5"
	"github.com/pixbank/golang_services/internal/ledger_service/domain"
	"github.com/pixbank/golang_services/internal/ledger_service/repository"
	"github.com/shopspring/decimal"
)

const withdrawalColumns = `w.id, w.user_id, w.amount, w.fee, w.pix_key, w.status, w.admin_notes,
	w.processed_at, w.processed_by, w.created_at, w.updated_at`

type PgWithdrawalRepository struct {
	logger *slog.Logger
}

func NewPgWithdrawalRepository(logger *slog.Logger) repository.WithdrawalRepository {
	return &PgWithdrawalRepository{logger: logger.With("component", "withdrawal_repository_pg")}
}

func (r *PgWithdrawalRepository) Create(ctx context.Context, q repository.Querier, w *domain.Withdrawal) error {
	query := `
		INSERT INTO withdrawals (id, user_id, amount, fee, pix_key, status, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
	`
	_, err := q.Exec(ctx, query, w.ID, w.UserID, w.Amount, w.Fee, w.PixKey, string(w.Status), w.CreatedAt, w.UpdatedAt)
	if err != nil {
		r.logger.ErrorContext(ctx, "Error creating withdrawal", "error", err, "withdrawal_id", w.ID, "user_id", w.UserID)
		return fmt.Errorf("creating withdrawal: %w", err)
	}
	return nil
}

// withdrawalDest holds the nullable scan targets shared by the withdrawal queries.
type withdrawalDest struct {
	w           domain.Withdrawal
	status      string
	adminNotes  sql.NullString
	processedAt sql.NullTime
	processedBy sql.NullString
}

func (d *withdrawalDest) targets() []any {
	return []any{
		&d.w.ID, &d.w.UserID, &d.w.Amount, &d.w.Fee, &d.w.PixKey, &d.status, &d.adminNotes,
		&d.processedAt, &d.processedBy, &d.w.CreatedAt, &d.w.UpdatedAt,
	}
}

func (d *withdrawalDest) withdrawal() domain.Withdrawal {
	w := d.w
	w.Status = domain.WithdrawalStatus(d.status)
	if d.adminNotes.Valid {
		w.AdminNotes = &d.adminNotes.String
	}
	if d.processedAt.Valid {
		w.ProcessedAt = &d.processedAt.Time
	}
	if d.processedBy.Valid {
		w.ProcessedBy = &d.processedBy.String
	}
	return w
}

func (r *PgWithdrawalRepository) getOne(ctx context.Context, q repository.Querier, query, id string) (*domain.Withdrawal, error) {
	var d withdrawalDest
	if err := q.QueryRow(ctx, query, id).Scan(d.targets()...); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrWithdrawalNotFound
		}
		r.logger.ErrorContext(ctx, "Error fetching withdrawal", "error", err, "withdrawal_id", id)
		return nil, fmt.Errorf("getting withdrawal %s: %w", id, err)
	}
	w := d.withdrawal()
	return &w, nil
}

func (r *PgWithdrawalRepository) GetByID(ctx context.Context, q repository.Querier, id string) (*domain.Withdrawal, error) {
	return r.getOne(ctx, q, `SELECT `+withdrawalColumns+` FROM withdrawals w WHERE w.id = $1`, id)
}

func (r *PgWithdrawalRepository) GetByIDForUpdate(ctx context.Context, q repository.Querier, id string) (*domain.Withdrawal, error) {
	return r.getOne(ctx, q, `SELECT `+withdrawalColumns+` FROM withdrawals w WHERE w.id = $1 FOR UPDATE`, id)
}

func (r *PgWithdrawalRepository) UpdateDecision(ctx context.Context, q repository.Querier, w *domain.Withdrawal) error {
	query := `
		UPDATE withdrawals
		SET status = $2, admin_notes = $3, processed_at = $4, processed_by = $5, updated_at = $6
		WHERE id = $1 AND status = 'pending'
	`
	tag, err := q.Exec(ctx, query, w.ID, string(w.Status), w.AdminNotes, w.ProcessedAt, w.ProcessedBy, w.UpdatedAt)
	if err != nil {
		r.logger.ErrorContext(ctx, "Error updating withdrawal decision", "error", err, "withdrawal_id", w.ID)
		return fmt.Errorf("updating withdrawal %s: %w", w.ID, err)
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrAlreadyProcessed
	}
	return nil
}

func (r *PgWithdrawalRepository) ListByUser(ctx context.Context, q repository.Querier, userID string, limit int) ([]domain.Withdrawal, error) {
	query := `SELECT ` + withdrawalColumns + ` FROM withdrawals w WHERE w.user_id = $1 ORDER BY w.created_at DESC LIMIT $2`
	rows, err := q.Query(ctx, query, userID, limit)
	if err != nil {
		return nil, fmt.Errorf("listing withdrawals for %s: %w", userID, err)
	}
	defer rows.Close()

	var out []domain.Withdrawal
	for rows.Next() {
		var d withdrawalDest
		if err := rows.Scan(d.targets()...); err != nil {
			return nil, fmt.Errorf("scanning withdrawal: %w", err)
		}
		out = append(out, d.withdrawal())
	}
	return out, rows.Err()
}

func (r *PgWithdrawalRepository) ListPending(ctx context.Context, q repository.Querier) ([]domain.PendingWithdrawal, error) {
	query := `
		SELECT ` + withdrawalColumns + `, u.full_name, u.email, u.balance
		FROM withdrawals w
		JOIN users u ON u.id = w.user_id
		WHERE w.status = 'pending'
		ORDER BY w.created_at ASC
	`
	rows, err := q.Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("listing pending withdrawals: %w", err)
	}
	defer rows.Close()

	var out []domain.PendingWithdrawal
	for rows.Next() {
		var d withdrawalDest
		var p domain.PendingWithdrawal
		dest := append(d.targets(), &p.UserFullName, &p.UserEmail, &p.UserBalance)
		if err := rows.Scan(dest...); err != nil {
			return nil, fmt.Errorf("scanning pending withdrawal: %w", err)
		}
		p.Withdrawal = d.withdrawal()
		out = append(out, p)
	}
	return out, rows.Err()
}

func (r *PgWithdrawalRepository) SumPendingByUser(ctx context.Context, q repository.Querier, userID string) (decimal.Decimal, error) {
	query := `SELECT COALESCE(SUM(amount + fee), 0) FROM withdrawals WHERE user_id = $1 AND status = 'pending'`
	var total decimal.Decimal
	if err := q.QueryRow(ctx, query, userID).Scan(&total); err != nil {
		return decimal.Zero, fmt.Errorf("summing pending withdrawals for %s: %w", userID, err)
	}
	return total, nil
}
