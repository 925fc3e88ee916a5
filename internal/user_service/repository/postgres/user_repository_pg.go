package postgres

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/pixbank/golang_services/internal/user_service/domain"
	"github.com/pixbank/golang_services/internal/user_service/repository"
)

const userColumns = `id, full_name, email, cpf, phone, password_hash, role, balance, is_active, created_at, updated_at`

type pgUserRepository struct{}

func NewPgUserRepository() repository.UserRepository {
	return &pgUserRepository{}
}

func (r *pgUserRepository) Create(ctx context.Context, q repository.Querier, user *domain.User) error {
	query := `
		INSERT INTO users (` + userColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
	`
	_, err := q.Exec(ctx, query,
		user.ID, user.FullName, user.Email, user.CPF, user.Phone, user.PasswordHash,
		string(user.Role), user.Balance, user.IsActive, user.CreatedAt, user.UpdatedAt,
	)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" {
			if strings.Contains(pgErr.ConstraintName, "cpf") {
				return repository.ErrDuplicateCPF
			}
			return repository.ErrDuplicateEmail
		}
		return fmt.Errorf("inserting user: %w", err)
	}
	return nil
}

func (r *pgUserRepository) GetByID(ctx context.Context, q repository.Querier, id string) (*domain.User, error) {
	return r.getBy(ctx, q, "id", id)
}

func (r *pgUserRepository) GetByEmail(ctx context.Context, q repository.Querier, email string) (*domain.User, error) {
	return r.getBy(ctx, q, "email", email)
}

func (r *pgUserRepository) GetByCPF(ctx context.Context, q repository.Querier, cpf string) (*domain.User, error) {
	return r.getBy(ctx, q, "cpf", cpf)
}

// getBy is only called with fixed column names.
func (r *pgUserRepository) getBy(ctx context.Context, q repository.Querier, column, value string) (*domain.User, error) {
	query := `SELECT ` + userColumns + ` FROM users WHERE ` + column + ` = $1`
	var (
		user domain.User
		role string
	)
	err := q.QueryRow(ctx, query, value).Scan(
		&user.ID, &user.FullName, &user.Email, &user.CPF, &user.Phone, &user.PasswordHash,
		&role, &user.Balance, &user.IsActive, &user.CreatedAt, &user.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, repository.ErrUserNotFound
		}
		return nil, fmt.Errorf("getting user by %s: %w", column, err)
	}
	user.Role = domain.Role(role)
	return &user, nil
}
