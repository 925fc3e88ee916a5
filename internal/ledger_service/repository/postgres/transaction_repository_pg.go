package postgres

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"

	"github.com/jackc/pgx/v5"
	"github.com/pixbank/golang_services/internal/ledger_service/domain"
	"github.com/pixbank/golang_services/internal/ledger_service/repository"
)

type PgTransactionRepository struct {
	logger *slog.Logger
}

func NewPgTransactionRepository(logger *slog.Logger) repository.TransactionRepository {
	return &PgTransactionRepository{logger: logger.With("component", "transaction_repository_pg")}
}

func (r *PgTransactionRepository) Create(ctx context.Context, q repository.Querier, t *domain.Transaction) error {
	query := `
		INSERT INTO transactions (id, user_id, type, amount, fee, description, pix_id, pix_key, status, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
	`
	_, err := q.Exec(ctx, query,
		t.ID, t.UserID, string(t.Type), t.Amount, t.Fee, t.Description,
		t.PixID, t.PixKey, string(t.Status), t.CreatedAt,
	)
	if err != nil {
		r.logger.ErrorContext(ctx, "Error creating transaction", "error", err, "transaction_id", t.ID, "user_id", t.UserID)
		return fmt.Errorf("creating transaction: %w", err)
	}
	return nil
}

func scanTransaction(row pgx.Row) (*domain.Transaction, error) {
	var t domain.Transaction
	var typ, status string
	var pixID, pixKey sql.NullString
	if err := row.Scan(&t.ID, &t.UserID, &typ, &t.Amount, &t.Fee, &t.Description, &pixID, &pixKey, &status, &t.CreatedAt); err != nil {
		return nil, err
	}
	t.Type = domain.TransactionType(typ)
	t.Status = domain.TransactionStatus(status)
	if pixID.Valid {
		t.PixID = &pixID.String
	}
	if pixKey.Valid {
		t.PixKey = &pixKey.String
	}
	return &t, nil
}

func (r *PgTransactionRepository) ListByUser(ctx context.Context, q repository.Querier, userID string, limit int) ([]domain.Transaction, error) {
	query := `
		SELECT id, user_id, type, amount, fee, COALESCE(description, ''), pix_id, pix_key, status, created_at
		FROM transactions
		WHERE user_id = $1
		ORDER BY created_at DESC
		LIMIT $2
	`
	rows, err := q.Query(ctx, query, userID, limit)
	if err != nil {
		return nil, fmt.Errorf("listing transactions for %s: %w", userID, err)
	}
	defer rows.Close()

	var out []domain.Transaction
	for rows.Next() {
		t, err := scanTransaction(rows)
		if err != nil {
			return nil, fmt.Errorf("scanning transaction: %w", err)
		}
		out = append(out, *t)
	}
	return out, rows.Err()
}
