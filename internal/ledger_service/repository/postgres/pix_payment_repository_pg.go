package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/pixbank/golang_services/internal/ledger_service/domain"
	"github.com/pixbank/golang_services/internal/ledger_service/repository"
)

// ErrDuplicatePixID is returned when the gateway hands out an id that is already stored.
var ErrDuplicatePixID = errors.New("pix id already exists")

type PgPixPaymentRepository struct {
	logger *slog.Logger
}

func NewPgPixPaymentRepository(logger *slog.Logger) repository.PixPaymentRepository {
	return &PgPixPaymentRepository{logger: logger.With("component", "pix_payment_repository_pg")}
}

func (r *PgPixPaymentRepository) Create(ctx context.Context, q repository.Querier, p *domain.PixPayment) error {
	query := `
		INSERT INTO pix_payments (id, user_id, amount, pix_id, qr_code, description, status, expires_at, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
	`
	_, err := q.Exec(ctx, query, p.ID, p.UserID, p.Amount, p.PixID, p.QRCode, p.Description, string(p.Status), p.ExpiresAt, p.CreatedAt)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" {
			return ErrDuplicatePixID
		}
		r.logger.ErrorContext(ctx, "Error creating pix payment", "error", err, "pix_id", p.PixID)
		return fmt.Errorf("creating pix payment: %w", err)
	}
	return nil
}

func (r *PgPixPaymentRepository) GetByPixID(ctx context.Context, q repository.Querier, pixID string) (*domain.PixPayment, error) {
	query := `
		SELECT id, user_id, amount, pix_id, qr_code, COALESCE(description, ''), status, expires_at, paid_at, created_at
		FROM pix_payments WHERE pix_id = $1
	`
	var p domain.PixPayment
	var status string
	var paidAt sql.NullTime
	err := q.QueryRow(ctx, query, pixID).Scan(
		&p.ID, &p.UserID, &p.Amount, &p.PixID, &p.QRCode, &p.Description, &status, &p.ExpiresAt, &paidAt, &p.CreatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrPixPaymentNotFound
		}
		return nil, fmt.Errorf("getting pix payment %s: %w", pixID, err)
	}
	p.Status = domain.PixPaymentStatus(status)
	if paidAt.Valid {
		p.PaidAt = &paidAt.Time
	}
	return &p, nil
}

// MarkPaid is the single commit gate for crediting a PIX receipt.
func (r *PgPixPaymentRepository) MarkPaid(ctx context.Context, q repository.Querier, pixID string, paidAt time.Time) (bool, error) {
	query := `
		UPDATE pix_payments SET status = 'paid', paid_at = $2
		WHERE pix_id = $1 AND status = 'pending' AND expires_at >= $2
	`
	tag, err := q.Exec(ctx, query, pixID, paidAt)
	if err != nil {
		r.logger.ErrorContext(ctx, "Error marking pix payment paid", "error", err, "pix_id", pixID)
		return false, fmt.Errorf("marking pix payment %s paid: %w", pixID, err)
	}
	return tag.RowsAffected() == 1, nil
}

func (r *PgPixPaymentRepository) MarkExpired(ctx context.Context, q repository.Querier, pixID string, now time.Time) (bool, error) {
	query := `UPDATE pix_payments SET status = 'expired' WHERE pix_id = $1 AND status = 'pending' AND expires_at < $2`
	tag, err := q.Exec(ctx, query, pixID, now)
	if err != nil {
		return false, fmt.Errorf("marking pix payment %s expired: %w", pixID, err)
	}
	return tag.RowsAffected() == 1, nil
}

func (r *PgPixPaymentRepository) ExpireOverdue(ctx context.Context, q repository.Querier, now time.Time) (int64, error) {
	tag, err := q.Exec(ctx, `UPDATE pix_payments SET status = 'expired' WHERE status = 'pending' AND expires_at < $1`, now)
	if err != nil {
		return 0, fmt.Errorf("expiring overdue pix payments: %w", err)
	}
	return tag.RowsAffected(), nil
}
