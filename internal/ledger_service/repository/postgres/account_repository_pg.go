package postgres

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/jackc/pgx/v5"
	"github.com/pixbank/golang_services/internal/ledger_service/domain"
	"github.com/pixbank/golang_services/internal/ledger_service/repository"
	"github.com/shopspring/decimal"
)

const accountColumns = `id, full_name, email, cpf, role, balance, is_active, created_at`

type PgAccountRepository struct {
	logger *slog.Logger
}

func NewPgAccountRepository(logger *slog.Logger) repository.AccountRepository {
	return &PgAccountRepository{logger: logger.With("component", "account_repository_pg")}
}

func scanAccount(row pgx.Row) (*domain.Account, error) {
	var a domain.Account
	var role string
	if err := row.Scan(&a.UserID, &a.FullName, &a.Email, &a.CPF, &role, &a.Balance, &a.IsActive, &a.CreatedAt); err != nil {
		return nil, err
	}
	a.Role = domain.Role(role)
	return &a, nil
}

func (r *PgAccountRepository) GetByID(ctx context.Context, q repository.Querier, userID string) (*domain.Account, error) {
	query := `SELECT ` + accountColumns + ` FROM users WHERE id = $1`
	a, err := scanAccount(q.QueryRow(ctx, query, userID))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrUserNotFound
		}
		return nil, fmt.Errorf("getting account %s: %w", userID, err)
	}
	return a, nil
}

func (r *PgAccountRepository) GetByIDForUpdate(ctx context.Context, q repository.Querier, userID string) (*domain.Account, error) {
	query := `SELECT ` + accountColumns + ` FROM users WHERE id = $1 FOR UPDATE`
	a, err := scanAccount(q.QueryRow(ctx, query, userID))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrUserNotFound
		}
		r.logger.ErrorContext(ctx, "Error locking account row", "error", err, "user_id", userID)
		return nil, fmt.Errorf("locking account %s: %w", userID, err)
	}
	return a, nil
}

func (r *PgAccountRepository) UpdateBalance(ctx context.Context, q repository.Querier, userID string, balance decimal.Decimal) error {
	query := `UPDATE users SET balance = $2, updated_at = NOW() WHERE id = $1`
	tag, err := q.Exec(ctx, query, userID, balance)
	if err != nil {
		r.logger.ErrorContext(ctx, "Error updating balance", "error", err, "user_id", userID)
		return fmt.Errorf("updating balance for %s: %w", userID, err)
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrUserNotFound
	}
	return nil
}

func (r *PgAccountRepository) ListCustomers(ctx context.Context, q repository.Querier) ([]domain.Account, error) {
	query := `SELECT ` + accountColumns + ` FROM users WHERE role = 'user' ORDER BY created_at DESC`
	rows, err := q.Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("listing customers: %w", err)
	}
	defer rows.Close()

	var accounts []domain.Account
	for rows.Next() {
		a, err := scanAccount(rows)
		if err != nil {
			return nil, fmt.Errorf("scanning customer: %w", err)
		}
		accounts = append(accounts, *a)
	}
	return accounts, rows.Err()
}
